package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertStatus - статус оповещения
type AlertStatus string

const (
	AlertActive     AlertStatus = "active"
	AlertVerified   AlertStatus = "verified"
	AlertResolved   AlertStatus = "resolved"
	AlertFalseAlarm AlertStatus = "false_alarm"
)

// Valid проверяет, что статус входит в известный набор
func (s AlertStatus) Valid() bool {
	switch s {
	case AlertActive, AlertVerified, AlertResolved, AlertFalseAlarm:
		return true
	}
	return false
}

// Live сообщает, является ли оповещение действующим (не терминальным)
func (s AlertStatus) Live() bool {
	return s == AlertActive || s == AlertVerified
}

// Terminal сообщает, является ли статус конечным для экземпляра оповещения
func (s AlertStatus) Terminal() bool {
	return s == AlertResolved || s == AlertFalseAlarm
}

// EscalationReason - зафиксированное обоснование эскалации инцидента
type EscalationReason struct {
	ReportCount            int       `json:"report_count"`
	SourceTypeCount        int       `json:"source_type_count"`
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	GeographicSpreadMeters float64   `json:"geographic_spread_meters"`
	ThresholdsMet          []string  `json:"thresholds_met"`
	Rationale              string    `json:"rationale,omitempty"`
}

// Alert - продвинутое оповещение, порожденное инцидентом, пересекшим
// пороги эскалации. Для одного инцидента в любой момент существует не более
// одного оповещения в статусе active или verified.
type Alert struct {
	ID               uuid.UUID        `json:"id"`
	IncidentID       uuid.UUID        `json:"incident_id"`
	Status           AlertStatus      `json:"status"`
	Severity         Severity         `json:"severity"`
	Confidence       float64          `json:"confidence"`
	Escalation       EscalationReason `json:"escalation_reason"`
	RelatedReportIDs []uuid.UUID      `json:"related_report_ids"`
	AISummary        string           `json:"ai_summary,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}
