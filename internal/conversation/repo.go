package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a row lookup or a tenant-filtered update
// matches nothing. Zero rows affected doubles as the ownership check: the
// store never distinguishes "missing" from "not yours".
var ErrNotFound = errors.New("conversation not found")

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, conv *Conversation) error {
	return r.db.WithContext(ctx).Create(conv).Error
}

// Get loads a conversation with its customer, scoped to the owning tenant.
func (r *Repo) Get(ctx context.Context, id, userID string) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("id = ? AND user_id = ?", id, userID).
		First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// EnableIntervention flips the conversation to human control in one
// tenant-filtered update. Last writer wins: a second agent enabling an
// already-enabled conversation overwrites intervened_by.
func (r *Repo) EnableIntervention(ctx context.Context, id, userID, agentID string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"intervention_enabled":       true,
			"intervention_started_at":    now,
			"last_intervention_activity": now,
			"intervened_by":              agentID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DisableIntervention clears all intervention fields together; it only
// matches conversations currently under human control, so it is idempotent
// for the reaper (zero rows = already disabled).
func (r *Repo) DisableIntervention(ctx context.Context, id string, scope Scope) error {
	res := scope.apply(r.db.WithContext(ctx).Model(&Conversation{})).
		Where("id = ? AND intervention_enabled = ?", id, true).
		Updates(map[string]any{
			"intervention_enabled":       false,
			"intervention_started_at":    nil,
			"intervened_by":              nil,
			"last_intervention_activity": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchInterventionActivity advances last_intervention_activity; valid only
// while intervention is enabled.
func (r *Repo) TouchInterventionActivity(ctx context.Context, id string, now time.Time) error {
	res := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND intervention_enabled = ?", id, true).
		Update("last_intervention_activity", now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetUnread zeroes the unread counter on explicit mark-read.
func (r *Repo) ResetUnread(ctx context.Context, id, userID string) error {
	res := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("unread_count", 0)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RecordCustomerMessage bumps unread_count and last_customer_message_at when
// an inbound customer message arrives.
func (r *Repo) RecordCustomerMessage(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Conversation{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"unread_count":             gorm.Expr("unread_count + 1"),
			"last_customer_message_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUpdatedSince returns the tenant's conversations with customer activity
// or an intervention start at/after since, newest first.
func (r *Repo) ListUpdatedSince(ctx context.Context, userID string, since time.Time, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}
	var convs []Conversation
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Where("user_id = ?", userID).
		Where("last_customer_message_at >= ? OR intervention_started_at >= ?", since, since).
		Order("updated_at DESC").
		Limit(limit).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// ListStaleInterventions returns conversations under human control whose
// last agent activity is older than cutoff.
func (r *Repo) ListStaleInterventions(ctx context.Context, scope Scope, cutoff time.Time) ([]Conversation, error) {
	var convs []Conversation
	err := scope.apply(r.db.WithContext(ctx)).
		Where("intervention_enabled = ?", true).
		Where("last_intervention_activity IS NOT NULL AND last_intervention_activity < ?", cutoff).
		Find(&convs).Error
	if err != nil {
		return nil, err
	}
	return convs, nil
}

// FindOrCreateByCustomer resolves the conversation for an inbound message,
// creating the customer and conversation rows on first contact.
func (r *Repo) FindOrCreateByCustomer(ctx context.Context, aiID, userID, phone, name string) (*Conversation, error) {
	var conv Conversation
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Joins("JOIN customers ON customers.id = conversations.customer_id").
		Where("conversations.ai_id = ? AND customers.phone = ?", aiID, phone).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	cust := &Customer{ID: uuid.NewString(), Name: name, Phone: phone}
	if err := r.db.WithContext(ctx).Create(cust).Error; err != nil {
		return nil, err
	}
	conv = Conversation{
		ID:         uuid.NewString(),
		AiID:       aiID,
		UserID:     userID,
		CustomerID: cust.ID,
	}
	if err := r.db.WithContext(ctx).Create(&conv).Error; err != nil {
		return nil, err
	}
	conv.Customer = cust
	return &conv, nil
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now()
	}
	return r.db.WithContext(ctx).Create(m).Error
}

// MarkMessageUndelivered flags a saved message whose downstream dispatch
// failed.
func (r *Repo) MarkMessageUndelivered(ctx context.Context, messageID string) error {
	return r.db.WithContext(ctx).Model(&Message{}).
		Where("id = ?", messageID).
		Update("delivered", false).Error
}

// ListMessages returns a conversation's messages in ascending timestamp
// order; display ordering is by timestamp at read time.
func (r *Repo) ListMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	var msgs []Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
