package api

import (
	"net/http"

	boardDelivery "pushboard-backend/internal/board/delivery"
	dispatchDelivery "pushboard-backend/internal/dispatch/delivery"
	"pushboard-backend/pkg/metrics"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, dispatchHandler *dispatchDelivery.DispatchHandler, boardHandler *boardDelivery.BoardHandler, m *metrics.Metrics) {
	// Metrics (Prometheus text format)
	if m != nil {
		r.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// Legacy path used by existing service worker clients
	r.POST("/notification", dispatchHandler.SendNotification)

	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Web Push dispatch
		api.POST("/notification", dispatchHandler.SendNotification)
		api.GET("/push/vapid-public-key", dispatchHandler.GetPublicKey)
		api.GET("/deliveries", dispatchHandler.GetDeliveries)

		// Realtime board
		api.POST("/messages", boardHandler.PostMessage)
		api.GET("/board/ws", boardHandler.ServeWS)
	}
}
