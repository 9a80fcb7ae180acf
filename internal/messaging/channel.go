package messaging

import (
	"context"
	"errors"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
)

const (
	PlatformWebsite  = "website"
	PlatformWhatsApp = "whatsapp"
)

// Channel delivers an already-persisted outbound message to the customer's
// transport. The website channel is store-mediated: the persisted row is the
// delivery mechanism, picked up by the widget's poller.
type Channel interface {
	Deliver(ctx context.Context, conv *conversation.Conversation, text string) error
}

// WebsiteChannel has nothing to push; delivery happens at read time.
type WebsiteChannel struct{}

func (WebsiteChannel) Deliver(ctx context.Context, conv *conversation.Conversation, text string) error {
	return nil
}

// WhatsAppChannel pushes through the external messaging gateway.
type WhatsAppChannel struct {
	Gateway *GatewayClient
}

func (ch WhatsAppChannel) Deliver(ctx context.Context, conv *conversation.Conversation, text string) error {
	if !conv.Customer.HasWhatsApp() {
		return errors.New("customer has no whatsapp number")
	}
	return ch.Gateway.SendText(ctx, conv.AiID, conv.Customer.Phone, text)
}
