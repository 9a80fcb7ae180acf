package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/poller"
)

// MarkConversationRead resets the conversation's unread counter.
func (h *Handler) MarkConversationRead(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	err := h.ConvRepo.ResetUnread(c.Request.Context(), c.Param("id"), uid)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "conversation not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to mark read"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "unread_count": 0})
}

// PollConversations returns the tenant's conversations with customer
// activity or an intervention start at/after since, newest first, capped.
func (h *Handler) PollConversations(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	since, err := time.Parse(time.RFC3339, c.Query("since"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "since must be an RFC3339 timestamp"})
		return
	}

	convs, err := h.ConvRepo.ListUpdatedSince(c.Request.Context(), uid, since, h.Cfg.PollMaxRows)
	if err != nil {
		log.Printf("poll failed user=%s err=%v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "failed to poll conversations"})
		return
	}

	updated := make([]poller.Conversation, 0, len(convs))
	for _, conv := range convs {
		entry := poller.Conversation{
			ID:                    conv.ID,
			AiID:                  conv.AiID,
			UnreadCount:           conv.UnreadCount,
			InterventionEnabled:   conv.InterventionEnabled,
			InterventionStartedAt: conv.InterventionStartedAt,
			LastCustomerMessageAt: conv.LastCustomerMessageAt,
		}
		if conv.Customer != nil {
			entry.CustomerName = conv.Customer.Name
		}
		updated = append(updated, entry)
	}

	c.JSON(http.StatusOK, gin.H{
		"updated_conversations": updated,
		"timestamp":             time.Now().UTC(),
	})
}

// AutoDisableStale is the on-demand reaper trigger, scoped to the caller's
// tenant.
func (h *Handler) AutoDisableStale(c *gin.Context) {
	uid, ok := userIDFromContext(c)
	if !ok {
		unauthorized(c)
		return
	}

	count, err := h.Reaper.Sweep(c.Request.Context(), conversation.ByUser(uid))
	if err != nil {
		log.Printf("stale sweep failed user=%s err=%v", uid, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"disabled_count": count,
		"timestamp":      time.Now().UTC(),
	})
}

// CronAutoDisableStale is the privileged scheduler entrypoint sweeping all
// tenants. A redis lock keeps overlapping cron fires from double-sweeping.
func (h *Handler) CronAutoDisableStale(c *gin.Context) {
	ctx := c.Request.Context()

	if h.Redis != nil {
		acquired, err := h.Redis.AcquireSweepLock(ctx, 2*h.Cfg.StaleThreshold)
		if err != nil {
			log.Printf("sweep lock error err=%v", err)
		} else if !acquired {
			c.JSON(http.StatusOK, gin.H{
				"success":        true,
				"disabled_count": 0,
				"timestamp":      time.Now().UTC(),
				"message":        "sweep already running",
			})
			return
		} else {
			defer func() {
				if err := h.Redis.ReleaseSweepLock(ctx); err != nil {
					log.Printf("sweep lock release failed err=%v", err)
				}
			}()
		}
	}

	count, err := h.Reaper.Sweep(ctx, conversation.ScopeAll())
	if err != nil {
		log.Printf("cron sweep failed err=%v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "sweep failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"disabled_count": count,
		"timestamp":      time.Now().UTC(),
	})
}
