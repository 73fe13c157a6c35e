package models

import (
	"time"

	"github.com/google/uuid"
)

// IncidentStatus - статус инцидента
type IncidentStatus string

const (
	IncidentOpen   IncidentStatus = "open"
	IncidentClosed IncidentStatus = "closed"
)

// Incident - реальное событие, собранное кластеризатором из связанных
// сообщений. Никогда не удаляется: по истечении окна без новых сообщений
// помечается закрытым.
type Incident struct {
	ID                     uuid.UUID      `json:"id"`
	HazardType             HazardType     `json:"hazard_type"`
	CentroidLat            float64        `json:"centroid_lat"`
	CentroidLon            float64        `json:"centroid_lon"`
	WindowStart            time.Time      `json:"window_start"`
	WindowEnd              time.Time      `json:"window_end"`
	MemberReportIDs        []uuid.UUID    `json:"member_report_ids"`
	SourceTypesSeen        []SourceType   `json:"source_types_seen"`
	GeographicSpreadMeters float64        `json:"geographic_spread_meters"`
	ConfidenceScore        float64        `json:"confidence_score"`
	Status                 IncidentStatus `json:"status"`
	CreatedAt              time.Time      `json:"created_at"`
	UpdatedAt              time.Time      `json:"updated_at"`
}

// Centroid возвращает центроид инцидента как Location
func (i *Incident) Centroid() Location {
	return Location{Latitude: i.CentroidLat, Longitude: i.CentroidLon}
}

// MemberCount возвращает число сообщений в инциденте
func (i *Incident) MemberCount() int {
	return len(i.MemberReportIDs)
}
