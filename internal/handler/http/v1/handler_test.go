package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shenikar/hazard_fusion_engine/internal/apperr"
	"github.com/shenikar/hazard_fusion_engine/internal/config"
	"github.com/shenikar/hazard_fusion_engine/internal/models"
	"github.com/shenikar/hazard_fusion_engine/internal/service"
	"github.com/shenikar/hazard_fusion_engine/internal/service/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

// newTestHandler создает новый экземпляр Handler с мокированным движком
func newTestHandler(t *testing.T) (*Handler, *mocks.MockEngine, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockEngine := mocks.NewMockEngine(ctrl)

	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{}) // Отключаем вывод логов в тестах

	cfg := &config.Config{
		APIKeys: []string{"test-api-key"},
	}

	handler := NewHandler(mockEngine, logger, cfg)

	// Настройка Gin роутера для тестов
	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	return handler, mockEngine, router
}

// makeRequest - вспомогательная функция для выполнения HTTP-запросов
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func authHeader() map[string]string {
	return map[string]string{"X-API-Key": "test-api-key"}
}

func validSubmitRequest() SubmitReportRequest {
	lat, lon := 43.1, 131.9
	return SubmitReportRequest{
		Latitude:             &lat,
		Longitude:            &lon,
		HazardType:           "flood",
		SourceType:           "citizen",
		Severity:             "medium",
		ClassifierConfidence: 82,
	}
}

func TestSubmitReport_Created(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	incidentID := uuid.New()
	alertID := uuid.New()

	mockEngine.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, report *models.Report) (*service.SubmitResult, error) {
			assert.Equal(t, models.HazardFlood, report.HazardType)
			assert.Equal(t, models.SourceCitizen, report.SourceType)
			require.NotNil(t, report.Location)
			assert.Equal(t, 43.1, report.Location.Latitude)
			report.ID = uuid.New()
			return &service.SubmitResult{IncidentID: incidentID, AlertID: &alertID}, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(validSubmitRequest())
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp SubmitReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, incidentID, resp.IncidentID)
	require.NotNil(t, resp.AlertID)
	assert.Equal(t, alertID, *resp.AlertID)
}

func TestSubmitReport_InvalidJSON(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Times(0) // Движок не должен вызываться

	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBufferString(`{"hazard_type": "flood"`), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestSubmitReport_ValidationError(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	reqBody := validSubmitRequest()
	reqBody.HazardType = "" // Отсутствует обязательное поле

	mockEngine.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Times(0) // Движок не должен вызываться

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "Error:Field validation for 'HazardType' failed on the 'required' tag")
}

func TestSubmitReport_BadTimestamp(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	reqBody := validSubmitRequest()
	reqBody.Timestamp = "yesterday"

	mockEngine.EXPECT().SubmitReport(gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid timestamp")
}

func TestSubmitReport_MissingLocation(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	reqBody := validSubmitRequest()
	reqBody.Latitude = nil
	reqBody.Longitude = nil

	mockEngine.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		Return(nil, apperr.ErrMissingLocation).
		Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "location")
}

func TestSubmitReport_RetryScheduled(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		Return(nil, apperr.ErrRetryScheduled).
		Times(1)

	bodyBytes, _ := json.Marshal(validSubmitRequest())
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), "retry scheduled")
}

func TestSubmitReport_StoreUnavailable(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().
		SubmitReport(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("retries exhausted: %w", apperr.ErrStoreUnavailable)).
		Times(1)

	bodyBytes, _ := json.Marshal(validSubmitRequest())
	w := makeRequest(router, "POST", "/api/v1/reports", bytes.NewBuffer(bodyBytes), authHeader())

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListAlerts_Success(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	alert := &models.Alert{
		ID:         uuid.New(),
		IncidentID: uuid.New(),
		Status:     models.AlertActive,
		Severity:   models.SeverityHigh,
		Confidence: 85,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}

	mockEngine.EXPECT().
		ListAlerts(gomock.Any(), service.AlertFilter{Status: "active", HazardType: "flood"}).
		Return([]*models.Alert{alert}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/alerts?status=active&hazard_type=flood", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*AlertResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, alert.ID, resp[0].ID)
	assert.Equal(t, "active", resp[0].Status)
	assert.Equal(t, "high", resp[0].Severity)
}

func TestListAlerts_InvalidFilter(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().
		ListAlerts(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: unknown status", apperr.ErrInvalidQuery)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/alerts?status=pending", nil, authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryReportsNear_Success(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	report := &models.Report{
		ID:         uuid.New(),
		Location:   &models.Location{Latitude: 43.1, Longitude: 131.9},
		Timestamp:  time.Now().UTC(),
		HazardType: models.HazardFlood,
		SourceType: models.SourceSensor,
		Severity:   models.SeverityMedium,
	}

	mockEngine.EXPECT().
		QueryReportsNear(gomock.Any(), models.Location{Latitude: 43.1, Longitude: 131.9}, 2000.0).
		Return([]*models.Report{report}, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports/near?lat=43.1&lon=131.9&radius_meters=2000", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*ReportResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	require.Len(t, resp, 1)
	assert.Equal(t, report.ID, resp[0].ID)
	assert.Equal(t, 43.1, resp[0].Latitude)
}

func TestQueryReportsNear_BadCoordinates(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().QueryReportsNear(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/reports/near?lat=abc&lon=131.9&radius_meters=2000", nil, authHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = makeRequest(router, "GET", "/api/v1/reports/near?lat=43.1&lon=131.9", nil, authHeader())
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestQueryReportsNear_InvalidRadius(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().
		QueryReportsNear(gomock.Any(), gomock.Any(), -5.0).
		Return(nil, apperr.ErrInvalidQuery).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/reports/near?lat=43.1&lon=131.9&radius_meters=-5", nil, authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetDashboardStats_Success(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	stats := &service.DashboardStats{
		TotalReports:    12,
		ActiveAlerts:    2,
		ReportsByRegion: map[string]int{"r86:263": 12},
	}

	mockEngine.EXPECT().GetDashboardStats(gomock.Any()).Return(stats, nil).Times(1)

	w := makeRequest(router, "GET", "/api/v1/dashboard/stats", nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp DashboardStatsResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, 12, resp.TotalReports)
	assert.Equal(t, 2, resp.ActiveAlerts)
	assert.Equal(t, 12, resp.ReportsByRegion["r86:263"])
}

func TestVerifyAlert_Success(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	alertID := uuid.New()
	verified := &models.Alert{
		ID:     alertID,
		Status: models.AlertVerified,
	}

	mockEngine.EXPECT().VerifyAlert(gomock.Any(), alertID).Return(verified, nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/alerts/%s/verify", alertID), nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AlertResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "verified", resp.Status)
}

func TestVerifyAlert_BadID(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().VerifyAlert(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/alerts/not-a-uuid/verify", nil, authHeader())

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid alert id")
}

func TestVerifyAlert_NotFound(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	alertID := uuid.New()

	mockEngine.EXPECT().VerifyAlert(gomock.Any(), alertID).Return(nil, apperr.ErrAlertNotFound).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/alerts/%s/verify", alertID), nil, authHeader())

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestResolveAlert_InvalidTransition(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	alertID := uuid.New()

	mockEngine.EXPECT().
		ResolveAlert(gomock.Any(), alertID).
		Return(nil, fmt.Errorf("%w: resolved -> resolved", apperr.ErrInvalidTransition)).
		Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/alerts/%s/resolve", alertID), nil, authHeader())

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestFalseAlarmAlert_Success(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)
	alertID := uuid.New()
	marked := &models.Alert{
		ID:     alertID,
		Status: models.AlertFalseAlarm,
	}

	mockEngine.EXPECT().MarkAlertFalseAlarm(gomock.Any(), alertID).Return(marked, nil).Times(1)

	w := makeRequest(router, "POST", fmt.Sprintf("/api/v1/alerts/%s/false-alarm", alertID), nil, authHeader())

	assert.Equal(t, http.StatusOK, w.Code)

	var resp AlertResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "false_alarm", resp.Status)
}

func TestHealthCheck_NoAuthRequired(t *testing.T) {
	_, _, router := newTestHandler(t)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestAPIKeyAuthMiddleware_Success(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg := &config.Config{APIKeys: []string{"test-api-key"}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := makeRequest(router, "GET", "/ping", nil, map[string]string{"X-API-Key": "test-api-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Ключ в заголовке Authorization: Bearer тоже принимается
	w = makeRequest(router, "GET", "/ping", nil, map[string]string{"Authorization": "Bearer test-api-key"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIKeyAuthMiddleware_MissingKey(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg := &config.Config{APIKeys: []string{"test-api-key"}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := makeRequest(router, "GET", "/ping", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "API key required")
}

func TestAPIKeyAuthMiddleware_InvalidKey(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(&bytes.Buffer{})
	cfg := &config.Config{APIKeys: []string{"test-api-key"}}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(APIKeyAuthMiddleware(cfg, logger))
	router.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := makeRequest(router, "GET", "/ping", nil, map[string]string{"X-API-Key": "wrong"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid API key")
}

func TestProtectedRoutes_RequireAPIKey(t *testing.T) {
	_, mockEngine, router := newTestHandler(t)

	mockEngine.EXPECT().ListAlerts(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/alerts", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
