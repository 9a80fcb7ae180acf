package notification

import "time"

// Notification alerts a tenant user about a new customer message. At most
// one row exists per (conversation, message, user) triple; the unique index
// is what makes Notify idempotent under races.
type Notification struct {
	ID             string    `gorm:"primaryKey;size:26" json:"id"` // ULID
	ConversationID string    `gorm:"size:36;not null;index;uniqueIndex:uniq_notif_conv_msg_user,priority:1" json:"conversation_id"`
	MessageID      string    `gorm:"size:26;not null;uniqueIndex:uniq_notif_conv_msg_user,priority:2" json:"message_id"`
	UserID         string    `gorm:"size:36;not null;index;uniqueIndex:uniq_notif_conv_msg_user,priority:3" json:"user_id"`
	MessagePreview string    `gorm:"size:160" json:"message_preview"`
	CustomerName   string    `gorm:"size:128" json:"customer_name"`
	IsRead         bool      `gorm:"not null;default:false;index" json:"is_read"`
	CreatedAt      time.Time `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string { return "notifications" }

// ListItem is a notification joined with lightweight conversation context.
type ListItem struct {
	ID                  string    `json:"id"`
	ConversationID      string    `json:"conversation_id"`
	MessageID           string    `json:"message_id"`
	MessagePreview      string    `json:"message_preview"`
	CustomerName        string    `json:"customer_name"`
	IsRead              bool      `json:"is_read"`
	CreatedAt           time.Time `json:"created_at"`
	AiID                string    `json:"ai_id"`
	InterventionEnabled bool      `json:"intervention_enabled"`
}
