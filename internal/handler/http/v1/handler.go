package v1

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/config"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/shenikar/hazard_fusion_engine/internal/service"
	"github.com/sirupsen/logrus"
)

type Handler struct {
	engine   service.Engine
	logger   *logrus.Logger
	validate *validator.Validate
	cfg      *config.Config
}

func NewHandler(engine service.Engine, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		engine:   engine,
		logger:   logger,
		validate: validator.New(),
		cfg:      cfg,
	}
}

// @Summary Submit a hazard report
// @Description Submit a classified hazard report for clustering and escalation. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param report body SubmitReportRequest true "Report submission request"
// @Success 201 {object} SubmitReportResponse
// @Success 202 {object} map[string]string "Queued for async retry"
// @Failure 400 {object} map[string]string "Invalid request body or classifier output"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 503 {object} map[string]string "Store temporarily unavailable, retry later"
// @Router /reports [post]
func (h *Handler) submitReport(c *gin.Context) {
	var input SubmitReportRequest
	log := h.logger.WithField("method", "submitReport")

	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := DTOToReportModel(input)
	if err != nil {
		log.WithError(err).Warn("Failed to map report DTO")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.SubmitReport(c.Request.Context(), report)
	if err != nil {
		h.writeEngineError(c, log, err)
		return
	}

	c.JSON(http.StatusCreated, SubmitReportResponse{
		ReportID:   report.ID,
		IncidentID: result.IncidentID,
		AlertID:    result.AlertID,
	})
}

// @Summary List alerts
// @Description List alerts matching all supplied filters. Requires API key.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param status query string false "Alert status" Enums(active, verified, resolved, false_alarm)
// @Param hazard_type query string false "Hazard type"
// @Param severity query string false "Severity" Enums(low, medium, high)
// @Param region query string false "Region cell id"
// @Success 200 {array} AlertResponse
// @Failure 400 {object} map[string]string "Unknown filter value"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /alerts [get]
func (h *Handler) listAlerts(c *gin.Context) {
	log := h.logger.WithField("method", "listAlerts")

	filter := service.AlertFilter{
		Status:     c.Query("status"),
		HazardType: c.Query("hazard_type"),
		Severity:   c.Query("severity"),
		Region:     c.Query("region"),
	}

	alerts, err := h.engine.ListAlerts(c.Request.Context(), filter)
	if err != nil {
		h.writeEngineError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToAlertResponses(alerts))
}

// @Summary Query reports near a point
// @Description Return reports within a radius of a point, ordered by timestamp. Requires API key.
// @Tags Reports
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "Latitude"
// @Param lon query number true "Longitude"
// @Param radius_meters query number true "Radius in meters"
// @Success 200 {array} ReportResponse
// @Failure 400 {object} map[string]string "Invalid coordinates or radius"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /reports/near [get]
func (h *Handler) queryReportsNear(c *gin.Context) {
	log := h.logger.WithField("method", "queryReportsNear")

	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lat"})
		return
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid lon"})
		return
	}
	radius, err := strconv.ParseFloat(c.Query("radius_meters"), 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid radius_meters"})
		return
	}

	reports, err := h.engine.QueryReportsNear(c.Request.Context(), models.Location{Latitude: lat, Longitude: lon}, radius)
	if err != nil {
		h.writeEngineError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelsToReportResponses(reports))
}

// @Summary Get dashboard statistics
// @Description Get aggregate counters for the dashboard. Requires API key.
// @Tags Admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} DashboardStatsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /dashboard/stats [get]
func (h *Handler) getDashboardStats(c *gin.Context) {
	log := h.logger.WithField("method", "getDashboardStats")

	stats, err := h.engine.GetDashboardStats(c.Request.Context())
	if err != nil {
		h.writeEngineError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, DashboardStatsResponse{
		TotalReports:    stats.TotalReports,
		ActiveAlerts:    stats.ActiveAlerts,
		ReportsByRegion: stats.ReportsByRegion,
	})
}

// @Summary Verify an alert
// @Description Confirm an active alert by an external responder signal. Requires API key.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} AlertResponse
// @Failure 400 {object} map[string]string "Invalid alert ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Alert not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /alerts/{id}/verify [post]
func (h *Handler) verifyAlert(c *gin.Context) {
	h.signalAlert(c, "verifyAlert", h.engine.VerifyAlert)
}

// @Summary Resolve an alert
// @Description Resolve an active or verified alert. Requires API key.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} AlertResponse
// @Failure 400 {object} map[string]string "Invalid alert ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Alert not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /alerts/{id}/resolve [post]
func (h *Handler) resolveAlert(c *gin.Context) {
	h.signalAlert(c, "resolveAlert", h.engine.ResolveAlert)
}

// @Summary Mark an alert as false alarm
// @Description Mark an active or verified alert as a false alarm. Explicit signal only. Requires API key.
// @Tags Alerts
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Alert ID"
// @Success 200 {object} AlertResponse
// @Failure 400 {object} map[string]string "Invalid alert ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Alert not found"
// @Failure 409 {object} map[string]string "Transition not allowed"
// @Router /alerts/{id}/false-alarm [post]
func (h *Handler) falseAlarmAlert(c *gin.Context) {
	h.signalAlert(c, "falseAlarmAlert", h.engine.MarkAlertFalseAlarm)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// signalAlert обрабатывает внешний сигнал по оповещению общим для всех переходов способом
func (h *Handler) signalAlert(c *gin.Context, method string, signal func(ctx context.Context, id uuid.UUID) (*models.Alert, error)) {
	log := h.logger.WithField("method", method)

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return
	}

	alert, err := signal(c.Request.Context(), id)
	if err != nil {
		h.writeEngineError(c, log, err)
		return
	}

	c.JSON(http.StatusOK, ModelToAlertResponse(alert))
}

// writeEngineError переводит доменные ошибки движка в HTTP-статусы
func (h *Handler) writeEngineError(c *gin.Context, log *logrus.Entry, err error) {
	switch {
	case errors.Is(err, apperr.ErrRetryScheduled):
		log.WithError(err).Warn("Report queued for async retry")
		c.JSON(http.StatusAccepted, gin.H{"status": "retry scheduled"})
	case errors.Is(err, apperr.ErrMissingLocation),
		errors.Is(err, apperr.ErrInvalidClassification),
		errors.Is(err, apperr.ErrInvalidQuery):
		log.WithError(err).Warn("Rejected invalid request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
	case errors.Is(err, apperr.ErrInvalidTransition):
		log.WithError(err).Warn("Rejected alert transition")
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrStoreUnavailable):
		log.WithError(err).Error("Store unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "store temporarily unavailable"})
	default:
		log.WithError(err).Error("Internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
