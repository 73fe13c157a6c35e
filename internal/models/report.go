package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// regionCellDegrees - размер ячейки региона в градусах (грубая сетка для
// тегов кэша и группировки на дашборде)
const regionCellDegrees = 0.5

// Location - координаты в градусах WGS84
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RegionID возвращает идентификатор ячейки сетки, в которую попадает точка
func (l Location) RegionID() string {
	latIdx := int(math.Floor(l.Latitude / regionCellDegrees))
	lonIdx := int(math.Floor(l.Longitude / regionCellDegrees))
	return fmt.Sprintf("r%d:%d", latIdx, lonIdx)
}

// Report - одиночное сообщение об опасности от гражданина, сенсора,
// соцсетей или спасателя. После создания неизменяемо, кроме IncidentID,
// который выставляет кластеризатор ровно один раз.
type Report struct {
	ID                   uuid.UUID  `json:"id"`
	Location             *Location  `json:"location"`
	Timestamp            time.Time  `json:"timestamp"`
	HazardType           HazardType `json:"hazard_type"`
	SourceType           SourceType `json:"source_type"`
	Severity             Severity   `json:"severity"`
	ClassifierConfidence float64    `json:"classifier_confidence"`
	HasMedia             bool       `json:"has_media"`
	Description          string     `json:"description,omitempty"`
	IncidentID           *uuid.UUID `json:"incident_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// RegionID возвращает регион сообщения или пустую строку, если координат нет
func (r *Report) RegionID() string {
	if r.Location == nil {
		return ""
	}
	return r.Location.RegionID()
}
