package messaging

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/common"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrNotEnabled   = errors.New("intervention not enabled")

	// ErrDeliveryFailed means the message row was persisted but the
	// downstream gateway push failed: saved, not delivered.
	ErrDeliveryFailed = errors.New("message saved but not delivered")
)

// HandoffCopy is the one-time notice sent to the customer when a human
// agent takes over.
const HandoffCopy = "An agent will assist you shortly. Please wait."

// Router decides, per conversation, which channel carries an outbound
// message and persists the row before dispatching.
type Router struct {
	repo     *conversation.Repo
	channels *Registry
}

func NewRouter(repo *conversation.Repo, channels *Registry) *Router {
	return &Router{repo: repo, channels: channels}
}

func messageType(platform string) string {
	if platform == PlatformWhatsApp {
		return conversation.MessageTypeWhatsApp
	}
	return conversation.MessageTypeText
}

// Send persists and dispatches a human agent message. The conversation must
// be under human control. On a WhatsApp gateway failure the saved row is
// flagged undelivered and ErrDeliveryFailed is returned alongside the
// message, so callers can report "saved but not delivered".
func (rt *Router) Send(ctx context.Context, conv *conversation.Conversation, agentID, content, platform string) (*conversation.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if !conv.InterventionEnabled {
		return nil, ErrNotEnabled
	}
	if platform == "" {
		platform = PlatformWebsite
	}

	ch, err := rt.channels.Get(platform)
	if err != nil {
		return nil, err
	}

	id, err := common.NewULID()
	if err != nil {
		return nil, err
	}
	msg := &conversation.Message{
		ID:             id,
		ConversationID: conv.ID,
		Sender:         conversation.SenderAgent,
		Content:        content,
		MessageType:    messageType(platform),
		SentByHuman:    true,
		Delivered:      true,
		Metadata: conversation.MessageMetadata{
			IsBot:        false,
			SentByUserID: agentID,
			Platform:     platform,
		},
	}
	if err := rt.repo.InsertMessage(ctx, msg); err != nil {
		return nil, err
	}

	// Keep the intervention alive; a concurrent disable just means there is
	// no activity row to touch anymore.
	if err := rt.repo.TouchInterventionActivity(ctx, conv.ID, time.Now()); err != nil &&
		!errors.Is(err, conversation.ErrNotFound) {
		log.Printf("touch intervention activity failed conversation=%s err=%v", conv.ID, err)
	}

	if err := ch.Deliver(ctx, conv, content); err != nil {
		if markErr := rt.repo.MarkMessageUndelivered(ctx, msg.ID); markErr != nil {
			log.Printf("mark undelivered failed message=%s err=%v", msg.ID, markErr)
		}
		msg.Delivered = false
		return msg, fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return msg, nil
}

// SendHandoff persists and dispatches the bot handoff notice. Channel choice
// is keyed off the customer record: a real phone number means WhatsApp,
// anything else is a website visitor.
func (rt *Router) SendHandoff(ctx context.Context, conv *conversation.Conversation) error {
	platform := PlatformWebsite
	if conv.Customer.HasWhatsApp() {
		platform = PlatformWhatsApp
	}

	ch, err := rt.channels.Get(platform)
	if err != nil {
		return err
	}

	id, err := common.NewULID()
	if err != nil {
		return err
	}
	msg := &conversation.Message{
		ID:             id,
		ConversationID: conv.ID,
		Sender:         conversation.SenderBot,
		Content:        HandoffCopy,
		MessageType:    messageType(platform),
		Delivered:      true,
		Metadata: conversation.MessageMetadata{
			IsBot:     true,
			IsHandoff: true,
			Platform:  platform,
		},
	}
	if err := rt.repo.InsertMessage(ctx, msg); err != nil {
		return err
	}

	if err := ch.Deliver(ctx, conv, HandoffCopy); err != nil {
		if markErr := rt.repo.MarkMessageUndelivered(ctx, msg.ID); markErr != nil {
			log.Printf("mark undelivered failed message=%s err=%v", msg.ID, markErr)
		}
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}
