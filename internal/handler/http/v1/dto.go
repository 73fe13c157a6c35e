package v1

import (
	"time"

	"github.com/google/uuid"
)

// SubmitReportRequest DTO для приема сообщения об опасности
// @Description DTO для приема сообщения об опасности
type SubmitReportRequest struct {
	Latitude             *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude            *float64 `json:"longitude" validate:"omitempty,longitude"`
	Timestamp            string   `json:"timestamp,omitempty"`
	HazardType           string   `json:"hazard_type" validate:"required"`
	SourceType           string   `json:"source_type" validate:"required"`
	Severity             string   `json:"severity" validate:"required"`
	ClassifierConfidence float64  `json:"classifier_confidence"`
	HasMedia             bool     `json:"has_media"`
	Description          string   `json:"description,omitempty"`
}

// SubmitReportResponse DTO для ответа на прием сообщения
// @Description DTO для ответа на прием сообщения
type SubmitReportResponse struct {
	ReportID   uuid.UUID  `json:"report_id"`
	IncidentID uuid.UUID  `json:"incident_id"`
	AlertID    *uuid.UUID `json:"alert_id,omitempty"`
}

// AlertResponse DTO для ответа с информацией об оповещении
// @Description DTO для ответа с информацией об оповещении
type AlertResponse struct {
	ID               uuid.UUID               `json:"id"`
	IncidentID       uuid.UUID               `json:"incident_id"`
	Status           string                  `json:"status"`
	Severity         string                  `json:"severity"`
	Confidence       float64                 `json:"confidence"`
	Escalation       EscalationReasonDTO     `json:"escalation_reason"`
	RelatedReportIDs []uuid.UUID             `json:"related_report_ids"`
	AISummary        string                  `json:"ai_summary,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// EscalationReasonDTO - обоснование эскалации в ответе API
// @Description Обоснование эскалации оповещения
type EscalationReasonDTO struct {
	ReportCount            int       `json:"report_count"`
	SourceTypeCount        int       `json:"source_type_count"`
	WindowStart            time.Time `json:"window_start"`
	WindowEnd              time.Time `json:"window_end"`
	GeographicSpreadMeters float64   `json:"geographic_spread_meters"`
	ThresholdsMet          []string  `json:"thresholds_met"`
	Rationale              string    `json:"rationale,omitempty"`
}

// ReportResponse DTO для ответа с информацией о сообщении
// @Description DTO для ответа с информацией о сообщении
type ReportResponse struct {
	ID                   uuid.UUID  `json:"id"`
	Latitude             float64    `json:"latitude"`
	Longitude            float64    `json:"longitude"`
	Timestamp            time.Time  `json:"timestamp"`
	HazardType           string     `json:"hazard_type"`
	SourceType           string     `json:"source_type"`
	Severity             string     `json:"severity"`
	ClassifierConfidence float64    `json:"classifier_confidence"`
	HasMedia             bool       `json:"has_media"`
	Description          string     `json:"description,omitempty"`
	IncidentID           *uuid.UUID `json:"incident_id,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// DashboardStatsResponse DTO для ответа со статистикой дашборда
// @Description DTO для ответа со статистикой дашборда
type DashboardStatsResponse struct {
	TotalReports    int            `json:"total_reports"`
	ActiveAlerts    int            `json:"active_alerts"`
	ReportsByRegion map[string]int `json:"reports_by_region"`
}
