package http

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"signdesk-backend/internal/approval/usecase"
	"signdesk-backend/pkg/telegram"
)

// TelegramWebhookHandler receives bot updates. Only the configured operator
// chat is honored; anything else is dropped.
type TelegramWebhookHandler struct {
	workflow       *usecase.Workflow
	operatorChatID int64
}

func NewTelegramWebhookHandler(workflow *usecase.Workflow, operatorChatID int64) *TelegramWebhookHandler {
	return &TelegramWebhookHandler{workflow: workflow, operatorChatID: operatorChatID}
}

// Handle always answers 200 so Telegram does not redeliver.
func (h *TelegramWebhookHandler) Handle(c *gin.Context) {
	var update telegram.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		log.Printf("[TelegramWebhook] Error decoding update: %v", err)
		c.JSON(http.StatusOK, gin.H{"ok": true})
		return
	}

	ctx := c.Request.Context()

	switch {
	case update.CallbackQuery != nil:
		cb := update.CallbackQuery
		if cb.Message == nil || cb.Message.Chat.ID != h.operatorChatID {
			log.Printf("[TelegramWebhook] Ignoring callback from unknown chat")
			break
		}
		h.workflow.HandleCallback(ctx, cb.Message.Chat.ID, cb.ID, cb.Data)
	case update.Message != nil:
		msg := update.Message
		if msg.Chat.ID != h.operatorChatID {
			log.Printf("[TelegramWebhook] Ignoring message from unknown chat %d", msg.Chat.ID)
			break
		}
		h.workflow.HandleText(ctx, msg.Chat.ID, msg.Text)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
