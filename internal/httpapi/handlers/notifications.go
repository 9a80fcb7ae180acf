package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/notification"
)

// ListNotifications returns the tenant's notifications newest first plus an
// independently computed unread count.
func (h *Handler) ListNotifications(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.Query("limit"))

	result, err := h.Notifier.List(c.Request.Context(), uid, unreadOnly, limit)
	if err != nil {
		log.Printf("list notifications failed user=%s err=%v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"notifications": result.Notifications,
		"unread_count":  result.UnreadCount,
	})
}

type createNotificationReq struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	MessageID      string `json:"message_id" binding:"required"`
	UserID         string `json:"user_id"`
	MessagePreview string `json:"message_preview"`
	CustomerName   string `json:"customer_name"`
}

// CreateNotification is an idempotent create keyed on the
// (conversation, message, user) triple.
func (h *Handler) CreateNotification(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	var req createNotificationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "conversation_id and message_id are required"})
		return
	}
	if req.UserID == "" {
		req.UserID = uid
	}

	id, _, err := h.Notifier.Notify(c.Request.Context(), notification.NotifyInput{
		ConversationID: req.ConversationID,
		MessageID:      req.MessageID,
		UserID:         req.UserID,
		MessagePreview: req.MessagePreview,
		CustomerName:   req.CustomerName,
	})
	if err != nil {
		if errors.Is(err, notification.ErrMissingField) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		log.Printf("create notification failed user=%s err=%v", req.UserID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to create notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "notification_id": id})
}

// MarkNotificationRead read-marks a single notification.
func (h *Handler) MarkNotificationRead(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	err := h.Notifier.MarkRead(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, notification.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "notification not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// MarkConversationNotificationsRead read-marks every notification for a
// conversation and resets its unread counter.
func (h *Handler) MarkConversationNotificationsRead(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	err := h.Notifier.MarkAllReadForConversation(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
			return
		}
		log.Printf("mark conversation notifications failed user=%s err=%v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unread_count": 0})
}
