package api

import (
	"net/http"

	authDelivery "inbox-agent/internal/auth/delivery"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, h *Handler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Gmail push endpoint, authenticated by the push sender's bearer token
	r.POST("/webhook/gmail", authDelivery.PushAuthMiddleware(h.pushVerifier, h.logger), h.sync.GmailWebhook)

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		api.POST("/admin/login", h.authHandler.Login)

		admin := api.Group("/admin")
		admin.Use(authDelivery.AuthMiddleware(h.auth))
		{
			admin.POST("/watch", h.sync.RenewWatch)
			admin.DELETE("/watch", h.sync.StopWatch)
			admin.GET("/cursor", h.sync.GetCursor)

			admin.GET("/messages/failed", h.agent.ListFailed)
			admin.POST("/messages/:id/retry", h.agent.Retry)

			admin.POST("/kb/snippets", h.knowledge.Ingest)
			admin.POST("/kb/query", h.knowledge.Query)

			admin.GET("/devices", h.operator.ListDevices)
			admin.POST("/devices", h.operator.RegisterDevice)
			admin.DELETE("/devices", h.operator.UnregisterDevice)

			admin.GET("/settings/ollama", h.settings.GetOllamaSettings)
			admin.PUT("/settings/ollama", h.settings.UpdateOllamaSettings)
			admin.POST("/settings/ollama/test", h.settings.TestOllamaConnection)
		}
	}
}
