package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	approvalhttp "signdesk-backend/internal/approval/delivery/http"
	contacthttp "signdesk-backend/internal/contact/delivery/http"
	intakehttp "signdesk-backend/internal/intake/delivery/http"
)

func SetupRoutes(r *gin.Engine, gmailWebhook *intakehttp.GmailWebhookHandler, telegramWebhook *approvalhttp.TelegramWebhookHandler, contactHandler *contacthttp.ContactHandler) {
	api := r.Group("/api")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		// Inbound event webhooks
		webhooks := api.Group("/webhooks")
		{
			webhooks.POST("/gmail", gmailWebhook.Handle)
			webhooks.POST("/telegram", telegramWebhook.Handle)
		}

		// Sender allow-list
		contacts := api.Group("/contacts")
		{
			contacts.GET("", contactHandler.List)
			contacts.POST("", contactHandler.Create)
			contacts.PUT("/:id", contactHandler.Update)
		}

		// Runtime settings
		settings := api.Group("/settings")
		{
			settings.GET("/ollama", GetOllamaSettings)
			settings.PUT("/ollama", UpdateOllamaSettings)
			settings.POST("/ollama/test", TestOllamaConnection)
		}
	}
}
