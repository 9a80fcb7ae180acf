package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/messaging"
)

type sendMessageReq struct {
	Message  string `json:"message"`
	Platform string `json:"platform"`
}

// SendMessage delivers a human agent message through the conversation's
// channel. Requires the conversation to be under human control.
func (h *Handler) SendMessage(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	conversationID := c.Param("id")

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid json"})
		return
	}

	conv, err := h.ConvRepo.Get(c.Request.Context(), conversationID, uid)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to load conversation"})
		return
	}

	msg, err := h.Delivery.Send(c.Request.Context(), conv, uid, req.Message, req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, messaging.ErrEmptyMessage):
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "message is empty"})
		case errors.Is(err, messaging.ErrNotEnabled):
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "intervention not enabled"})
		case errors.Is(err, messaging.ErrDeliveryFailed):
			// Saved but not delivered; surface distinctly so the UI can say so.
			log.Printf("send delivery failed conversation=%s message=%s err=%v", conversationID, msg.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"success":    false,
				"message_id": msg.ID,
				"delivered":  false,
				"error":      "message saved but not delivered",
			})
		default:
			log.Printf("send failed conversation=%s user=%s err=%v", conversationID, uid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message_id": msg.ID})
}
