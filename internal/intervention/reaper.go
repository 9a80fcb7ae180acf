package intervention

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/GeniusMundi10/growbro-crmtool-sub001/internal/conversation"
)

// Reaper force-disables interventions with no agent activity beyond the
// threshold. It is triggered by an external scheduler (all tenants) or an
// authenticated client check (one tenant); zero matches is a normal outcome.
type Reaper struct {
	repo      *conversation.Repo
	threshold time.Duration
}

func NewReaper(repo *conversation.Repo, threshold time.Duration) *Reaper {
	if threshold <= 0 {
		threshold = 30 * time.Minute
	}
	return &Reaper{repo: repo, threshold: threshold}
}

// Sweep disables every stale intervention in scope through the same disable
// transition agents use, with the system actor. Returns the number of
// conversations disabled.
func (rp *Reaper) Sweep(ctx context.Context, scope conversation.Scope) (int, error) {
	cutoff := time.Now().Add(-rp.threshold)
	stale, err := rp.repo.ListStaleInterventions(ctx, scope, cutoff)
	if err != nil {
		return 0, err
	}

	disabled := 0
	for _, conv := range stale {
		err := rp.repo.DisableIntervention(ctx, conv.ID, scope)
		if err != nil {
			// Already released between the scan and the update.
			if errors.Is(err, conversation.ErrNotFound) {
				continue
			}
			log.Printf("reaper disable failed conversation=%s agent=%s err=%v", conv.ID, SystemAgent, err)
			continue
		}
		disabled++
	}

	if disabled > 0 {
		log.Printf("reaper disabled stale interventions count=%d threshold=%s", disabled, rp.threshold)
	}
	return disabled, nil
}
