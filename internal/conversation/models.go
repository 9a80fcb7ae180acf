package conversation

import "time"

const (
	SenderCustomer = "customer"
	SenderBot      = "bot"
	SenderAgent    = "agent"
)

const (
	MessageTypeText     = "text"
	MessageTypeWhatsApp = "whatsapp"
)

// AnonymousPhone is the placeholder phone stored for website-widget visitors.
// A customer with this (or an empty) phone has no WhatsApp channel.
const AnonymousPhone = "Anonymous"

// Customer is the end user chatting with an assistant.
type Customer struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Name      string    `gorm:"size:128" json:"name"`
	Phone     string    `gorm:"size:32;index" json:"phone"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (Customer) TableName() string { return "customers" }

// HasWhatsApp reports whether the customer is reachable over WhatsApp.
func (c *Customer) HasWhatsApp() bool {
	return c != nil && c.Phone != "" && c.Phone != AnonymousPhone
}

// Conversation is the single shared mutable resource of this subsystem.
// Intervention fields are only written through the intervention service;
// every writer filters by both conversation id and owning tenant.
//
// Invariant: intervention_enabled=true implies intervention_started_at is
// set; on disable, started_at, intervened_by and last_intervention_activity
// are cleared together.
type Conversation struct {
	ID         string    `gorm:"primaryKey;size:36" json:"id"`
	AiID       string    `gorm:"column:ai_id;size:36;index;not null" json:"ai_id"`
	UserID     string    `gorm:"size:36;index;not null" json:"user_id"`
	CustomerID string    `gorm:"size:36;index" json:"customer_id"`
	Customer   *Customer `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`

	InterventionEnabled      bool       `gorm:"not null;default:false;index" json:"intervention_enabled"`
	InterventionStartedAt    *time.Time `gorm:"index" json:"intervention_started_at"`
	IntervenedBy             *string    `gorm:"size:36" json:"intervened_by"`
	LastInterventionActivity *time.Time `gorm:"index" json:"last_intervention_activity"`

	UnreadCount           int        `gorm:"not null;default:0" json:"unread_count"`
	LastCustomerMessageAt *time.Time `gorm:"index" json:"last_customer_message_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Conversation) TableName() string { return "conversations" }

// MessageMetadata is the free-form blob carried by every message row.
type MessageMetadata struct {
	IsBot        bool   `json:"is_bot"`
	IsHandoff    bool   `json:"is_handoff,omitempty"`
	SentByUserID string `json:"sent_by_user_id,omitempty"`
	Platform     string `json:"platform,omitempty"`
}

// Message rows are append-only; they are never mutated after creation except
// for the delivered flag on a failed WhatsApp dispatch.
type Message struct {
	ID             string          `gorm:"primaryKey;size:26" json:"id"` // ULID
	ConversationID string          `gorm:"size:36;index;not null" json:"conversation_id"`
	Sender         string          `gorm:"size:16;index;not null" json:"sender"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	MessageType    string          `gorm:"size:16;not null;default:'text'" json:"message_type"`
	SentByHuman    bool            `gorm:"not null;default:false" json:"sent_by_human"`
	Delivered      bool            `gorm:"not null;default:true" json:"delivered"`
	Metadata       MessageMetadata `gorm:"serializer:json" json:"metadata"`
	Timestamp      time.Time       `gorm:"index" json:"timestamp"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (Message) TableName() string { return "messages" }
