package v1

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all API v1 routes.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	authorized := api.Group("")
	authorized.Use(APIKeyAuthMiddleware(h.cfg, h.logger))

	sos := authorized.Group("/sos")
	{
		sos.POST("", h.createSOSReport)
		sos.GET("", h.listSOSReports)
		sos.GET("/stats", h.getStats)
		sos.GET("/:id", h.getSOSReport)
		sos.PATCH("/:id", h.updateSOSReport)
		sos.POST("/:id/assign", h.assignHospital)
	}

	authorized.POST("/hospitals/:id/stock-alert", h.sendStockAlert)

	// Realtime subscriptions and health stay outside the API-key check.
	api.GET("/ws", h.serveWS)
	api.GET("/system/health", h.healthCheck)
}
