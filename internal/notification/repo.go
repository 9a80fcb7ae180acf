package notification

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("notification not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// CreateOrGet inserts the notification; if the (conversation, message, user)
// triple already exists it returns the existing row instead. The unique
// index turns the constraint violation into the idempotent success path.
func (r *Repo) CreateOrGet(ctx context.Context, n *Notification) (*Notification, bool, error) {
	err := r.db.WithContext(ctx).Create(n).Error
	if err == nil {
		return n, true, nil
	}

	existing, getErr := r.getByTriple(ctx, n.ConversationID, n.MessageID, n.UserID)
	if getErr == nil {
		return existing, false, nil
	}
	if errors.Is(getErr, gorm.ErrRecordNotFound) {
		return nil, false, err
	}
	return nil, false, getErr
}

func (r *Repo) getByTriple(ctx context.Context, conversationID, messageID, userID string) (*Notification, error) {
	var n Notification
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND message_id = ? AND user_id = ?", conversationID, messageID, userID).
		First(&n).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// List returns the tenant's notifications newest first, joined with
// conversation context.
func (r *Repo) List(ctx context.Context, userID string, unreadOnly bool, limit int) ([]ListItem, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	q := r.db.WithContext(ctx).
		Table("notifications").
		Select("notifications.id, notifications.conversation_id, notifications.message_id, "+
			"notifications.message_preview, notifications.customer_name, notifications.is_read, "+
			"notifications.created_at, conversations.ai_id, conversations.intervention_enabled").
		Joins("LEFT JOIN conversations ON conversations.id = notifications.conversation_id").
		Where("notifications.user_id = ?", userID).
		Order("notifications.created_at DESC").
		Limit(limit)
	if unreadOnly {
		q = q.Where("notifications.is_read = ?", false)
	}

	var items []ListItem
	if err := q.Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// CountUnread computes the unread aggregate independently of any list page.
func (r *Repo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	return n, err
}

func (r *Repo) MarkRead(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAllForConversation read-marks every notification the tenant has for
// the conversation. Zero rows is fine; there may be nothing unread.
func (r *Repo) MarkAllForConversation(ctx context.Context, conversationID, userID string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Notification{}).
		Where("conversation_id = ? AND user_id = ? AND is_read = ?", conversationID, userID, false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}
