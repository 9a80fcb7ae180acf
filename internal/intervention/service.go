package intervention

import (
	"context"
	"log"
	"time"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/messaging"
)

// SystemAgent is the actor recorded for automatic disable transitions.
const SystemAgent = "system"

// Status is the read-only projection of a conversation's intervention
// fields.
type Status struct {
	Enabled      bool       `json:"intervention_enabled"`
	StartedAt    *time.Time `json:"intervention_started_at"`
	IntervenedBy *string    `json:"intervened_by"`
	LastActivity *time.Time `json:"last_intervention_activity"`
}

// Service owns the AI_CONTROLLED <-> HUMAN_CONTROLLED transitions. All
// mutations go through tenant-filtered single-row updates; an update that
// matches nothing is the authorization failure.
type Service struct {
	repo   *conversation.Repo
	router *messaging.Router
}

func NewService(repo *conversation.Repo, router *messaging.Router) *Service {
	return &Service{repo: repo, router: router}
}

// Enable puts the conversation under human control and announces the
// handoff to the customer. The handoff send is best effort: the state
// transition is the source of truth and is never rolled back because the
// customer could not be notified.
func (s *Service) Enable(ctx context.Context, conversationID, userID, agentID string) (*Status, error) {
	now := time.Now()
	if err := s.repo.EnableIntervention(ctx, conversationID, userID, agentID, now); err != nil {
		return nil, err
	}

	conv, err := s.repo.Get(ctx, conversationID, userID)
	if err != nil {
		log.Printf("handoff skipped, conversation reload failed conversation=%s err=%v", conversationID, err)
	} else if err := s.router.SendHandoff(ctx, conv); err != nil {
		log.Printf("handoff message failed conversation=%s err=%v", conversationID, err)
	}

	return &Status{
		Enabled:      true,
		StartedAt:    &now,
		IntervenedBy: &agentID,
		LastActivity: &now,
	}, nil
}

// Disable returns the conversation to the AI. No customer-facing message is
// sent; only enable announces a handoff.
func (s *Service) Disable(ctx context.Context, conversationID, userID string) error {
	return s.repo.DisableIntervention(ctx, conversationID, conversation.ByUser(userID))
}

// RecordActivity advances last_intervention_activity; valid only while the
// conversation is under human control.
func (s *Service) RecordActivity(ctx context.Context, conversationID string) error {
	return s.repo.TouchInterventionActivity(ctx, conversationID, time.Now())
}

// GetStatus projects the intervention fields, scoped by tenant ownership.
func (s *Service) GetStatus(ctx context.Context, conversationID, userID string) (*Status, error) {
	conv, err := s.repo.Get(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	return &Status{
		Enabled:      conv.InterventionEnabled,
		StartedAt:    conv.InterventionStartedAt,
		IntervenedBy: conv.IntervenedBy,
		LastActivity: conv.LastInterventionActivity,
	}, nil
}
