package v1

import (
	"fmt"
	"time"

	"github.com/shenikar/hazard_fusion_engine/internal/models"
)

// DTOToReportModel преобразует DTO приема сообщения в доменную модель
func DTOToReportModel(dto SubmitReportRequest) (*models.Report, error) {
	report := &models.Report{
		HazardType:           models.HazardType(dto.HazardType),
		SourceType:           models.SourceType(dto.SourceType),
		Severity:             models.Severity(dto.Severity),
		ClassifierConfidence: dto.ClassifierConfidence,
		HasMedia:             dto.HasMedia,
		Description:          dto.Description,
	}
	if dto.Latitude != nil && dto.Longitude != nil {
		report.Location = &models.Location{
			Latitude:  *dto.Latitude,
			Longitude: *dto.Longitude,
		}
	}
	if dto.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, dto.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q: %w", dto.Timestamp, err)
		}
		report.Timestamp = ts.UTC()
	}
	return report, nil
}

// ModelToAlertResponse преобразует доменную модель оповещения в DTO для ответа
func ModelToAlertResponse(model *models.Alert) *AlertResponse {
	return &AlertResponse{
		ID:         model.ID,
		IncidentID: model.IncidentID,
		Status:     string(model.Status),
		Severity:   string(model.Severity),
		Confidence: model.Confidence,
		Escalation: EscalationReasonDTO{
			ReportCount:            model.Escalation.ReportCount,
			SourceTypeCount:        model.Escalation.SourceTypeCount,
			WindowStart:            model.Escalation.WindowStart,
			WindowEnd:              model.Escalation.WindowEnd,
			GeographicSpreadMeters: model.Escalation.GeographicSpreadMeters,
			ThresholdsMet:          model.Escalation.ThresholdsMet,
			Rationale:              model.Escalation.Rationale,
		},
		RelatedReportIDs: model.RelatedReportIDs,
		AISummary:        model.AISummary,
		CreatedAt:        model.CreatedAt,
		UpdatedAt:        model.UpdatedAt,
	}
}

// ModelsToAlertResponses преобразует срез моделей в срез DTO
func ModelsToAlertResponses(models []*models.Alert) []*AlertResponse {
	responses := make([]*AlertResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToAlertResponse(model)
	}
	return responses
}

// ModelToReportResponse преобразует доменную модель сообщения в DTO для ответа
func ModelToReportResponse(model *models.Report) *ReportResponse {
	resp := &ReportResponse{
		ID:                   model.ID,
		Timestamp:            model.Timestamp,
		HazardType:           string(model.HazardType),
		SourceType:           string(model.SourceType),
		Severity:             string(model.Severity),
		ClassifierConfidence: model.ClassifierConfidence,
		HasMedia:             model.HasMedia,
		Description:          model.Description,
		IncidentID:           model.IncidentID,
		CreatedAt:            model.CreatedAt,
	}
	if model.Location != nil {
		resp.Latitude = model.Location.Latitude
		resp.Longitude = model.Location.Longitude
	}
	return resp
}

// ModelsToReportResponses преобразует срез моделей в срез DTO
func ModelsToReportResponses(models []*models.Report) []*ReportResponse {
	responses := make([]*ReportResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToReportResponse(model)
	}
	return responses
}
