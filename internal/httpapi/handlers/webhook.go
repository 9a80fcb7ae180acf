package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/common"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/messaging"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/notification"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/store/rabbitmq"
)

type inboundWebhookReq struct {
	AiID      string    `json:"ai_id" binding:"required"`
	UserID    string    `json:"user_id" binding:"required"`
	From      string    `json:"from"` // phone; empty for website visitors
	Name      string    `json:"name"`
	Body      string    `json:"body" binding:"required"`
	Timestamp time.Time `json:"timestamp"`
}

// InboundWebhook receives customer messages from the messaging gateway or
// the website widget, appends the message row, bumps the conversation's
// unread state and fans a notification event out to the worker queue.
func (h *Handler) InboundWebhook(c *gin.Context) {
	var req inboundWebhookReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "body is empty"})
		return
	}

	phone := req.From
	if phone == "" {
		phone = conversation.AnonymousPhone
	}
	name := req.Name
	if name == "" {
		name = "Visitor"
	}

	ctx := c.Request.Context()
	conv, err := h.ConvRepo.FindOrCreateByCustomer(ctx, req.AiID, req.UserID, phone, name)
	if err != nil {
		log.Printf("webhook conversation resolve failed ai=%s err=%v", req.AiID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to resolve conversation"})
		return
	}

	platform := messaging.PlatformWebsite
	msgType := conversation.MessageTypeText
	if conv.Customer.HasWhatsApp() {
		platform = messaging.PlatformWhatsApp
		msgType = conversation.MessageTypeWhatsApp
	}

	id, err := common.NewULID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal error"})
		return
	}
	msg := &conversation.Message{
		ID:             id,
		ConversationID: conv.ID,
		Sender:         conversation.SenderCustomer,
		Content:        req.Body,
		MessageType:    msgType,
		Delivered:      true,
		Metadata:       conversation.MessageMetadata{Platform: platform},
		Timestamp:      req.Timestamp,
	}
	if err := h.ConvRepo.InsertMessage(ctx, msg); err != nil {
		log.Printf("webhook message insert failed conversation=%s err=%v", conv.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to save message"})
		return
	}

	if err := h.ConvRepo.RecordCustomerMessage(ctx, conv.ID, msg.Timestamp); err != nil {
		log.Printf("webhook unread bump failed conversation=%s err=%v", conv.ID, err)
	}

	h.fanOutNotification(ctx, conv, msg)

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"conversation_id": conv.ID,
		"message_id":      msg.ID,
	})
}

// fanOutNotification prefers the queue; without a broker (or on publish
// failure) it notifies inline so the alert is never silently lost.
func (h *Handler) fanOutNotification(ctx context.Context, conv *conversation.Conversation, msg *conversation.Message) {
	customerName := ""
	if conv.Customer != nil {
		customerName = conv.Customer.Name
	}

	if h.Rabbit != nil {
		evt := rabbitmq.NotificationEvent{
			ConversationID: conv.ID,
			MessageID:      msg.ID,
			UserID:         conv.UserID,
			MessagePreview: msg.Content,
			CustomerName:   customerName,
		}
		err := h.Rabbit.PublishNotification(ctx, evt)
		if err == nil {
			return
		}
		log.Printf("notification publish failed conversation=%s err=%v", conv.ID, err)
	}

	_, _, err := h.Notifier.Notify(ctx, notification.NotifyInput{
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		UserID:         conv.UserID,
		MessagePreview: msg.Content,
		CustomerName:   customerName,
	})
	if err != nil {
		log.Printf("inline notify failed conversation=%s err=%v", conv.ID, err)
	}
}
