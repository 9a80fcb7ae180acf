package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
)

type interventionReq struct {
	Action string `json:"action" binding:"required"`
}

// PostIntervention toggles human takeover of a conversation.
func (h *Handler) PostIntervention(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}
	conversationID := c.Param("id")

	var req interventionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "action is required"})
		return
	}

	switch req.Action {
	case "enable":
		status, err := h.Intervention.Enable(c.Request.Context(), conversationID, uid, uid)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
				return
			}
			log.Printf("enable intervention failed conversation=%s user=%s err=%v", conversationID, uid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to enable intervention"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":                 true,
			"intervention_enabled":    true,
			"intervention_started_at": status.StartedAt,
			"message":                 "intervention enabled",
		})

	case "disable":
		err := h.Intervention.Disable(c.Request.Context(), conversationID, uid)
		if err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found or not under intervention"})
				return
			}
			log.Printf("disable intervention failed conversation=%s user=%s err=%v", conversationID, uid, err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to disable intervention"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":              true,
			"intervention_enabled": false,
			"message":              "intervention disabled",
		})

	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "action must be enable or disable"})
	}
}

// GetIntervention projects the intervention fields for a conversation.
func (h *Handler) GetIntervention(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	status, err := h.Intervention.GetStatus(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to read intervention status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"intervention_enabled":       status.Enabled,
		"intervention_started_at":    status.StartedAt,
		"intervened_by":              status.IntervenedBy,
		"last_intervention_activity": status.LastActivity,
	})
}
