package http

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"signdesk-backend/internal/intake/usecase"
)

// pushEnvelope is the Pub/Sub push wrapper around a Gmail notification.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

type gmailNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
}

// GmailWebhookHandler receives Gmail push notifications relayed by Pub/Sub.
type GmailWebhookHandler struct {
	pipeline *usecase.Pipeline
}

func NewGmailWebhookHandler(pipeline *usecase.Pipeline) *GmailWebhookHandler {
	return &GmailWebhookHandler{pipeline: pipeline}
}

// Handle always answers 200. A non-2xx would make Pub/Sub redeliver the same
// notification in a tight loop, and the pipeline already reports failures to
// the operator chat.
func (h *GmailWebhookHandler) Handle(c *gin.Context) {
	defer c.JSON(http.StatusOK, gin.H{"status": "ok"})

	var envelope pushEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		log.Printf("[GmailWebhook] Error decoding push envelope: %v", err)
		return
	}

	payload, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Printf("[GmailWebhook] Error decoding message data: %v", err)
		return
	}

	var notification gmailNotification
	if err := json.Unmarshal(payload, &notification); err != nil {
		log.Printf("[GmailWebhook] Error parsing notification: %v", err)
		return
	}
	if notification.EmailAddress == "" {
		log.Printf("[GmailWebhook] Notification missing email address, dropping")
		return
	}

	if err := h.pipeline.ProcessHistoryUpdate(c.Request.Context(), notification.EmailAddress, notification.HistoryID); err != nil {
		log.Printf("[GmailWebhook] Error processing history update: %v", err)
	}
}
