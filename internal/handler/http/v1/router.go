package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все маршруты API v1
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	auth := APIKeyAuthMiddleware(h.cfg, h.logger)

	// Маршруты приема и выборки сообщений об опасности
	reports := api.Group("/reports", auth)
	{
		reports.POST("", h.submitReport)
		reports.GET("/near", h.queryReportsNear)
	}

	// Маршруты чтения оповещений и внешних сигналов по ним
	alerts := api.Group("/alerts", auth)
	{
		alerts.GET("", h.listAlerts)
		alerts.POST("/:id/verify", h.verifyAlert)
		alerts.POST("/:id/resolve", h.resolveAlert)
		alerts.POST("/:id/false-alarm", h.falseAlarmAlert)
	}

	// Маршрут статистики дашборда
	api.GET("/dashboard/stats", auth, h.getDashboardStats)

	// Маршрут Health-check открыт без ключа
	api.GET("/system/health", h.healthCheck)
}
