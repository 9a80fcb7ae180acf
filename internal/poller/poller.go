// Package poller implements the client-resident polling coordinator used by
// the dashboard: it periodically asks the server what changed since the last
// successful poll, never runs two requests at once, and goes quiet while the
// host page is hidden.
package poller

import (
	"context"
	"log"
	"sync"
	"time"
)

// Conversation is the delta entry returned by the poll endpoint.
type Conversation struct {
	ID                    string     `json:"id"`
	AiID                  string     `json:"ai_id"`
	CustomerName          string     `json:"customer_name"`
	UnreadCount           int        `json:"unread_count"`
	InterventionEnabled   bool       `json:"intervention_enabled"`
	InterventionStartedAt *time.Time `json:"intervention_started_at"`
	LastCustomerMessageAt *time.Time `json:"last_customer_message_at"`
}

// Fetcher retrieves conversations updated at or after since.
type Fetcher interface {
	FetchUpdates(ctx context.Context, since time.Time) ([]Conversation, error)
}

type Options struct {
	// Interval between polls; defaults to 10s.
	Interval time.Duration
	// OnUpdate receives each non-empty delta. Never invoked after Stop.
	OnUpdate func([]Conversation)
	// OnError observes poll failures; polling always continues. Defaults
	// to logging.
	OnError func(error)
}

// Poller coordinates the polling loop.
//
// lastPoll only advances on a poll that returned at least one update; an
// empty delta re-checks the same window next tick. Redundant re-scans are
// cheaper than missing an update to clock skew.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	onUpdate func([]Conversation)
	onError  func(error)

	mu         sync.Mutex
	lastPoll   time.Time
	inFlight   bool
	running    bool
	closed     bool
	loopCancel context.CancelFunc
}

func New(fetcher Fetcher, opts Options) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	onError := opts.OnError
	if onError == nil {
		onError = func(err error) { log.Printf("poll failed err=%v", err) }
	}
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		onUpdate: opts.OnUpdate,
		onError:  onError,
		lastPoll: time.Now(),
	}
}

// Start begins the interval loop. Safe to call once; use SetVisible to
// pause and resume.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.running {
		return
	}
	p.startLoopLocked()
}

// SetVisible mirrors the host page's visibility. Hidden tears the timer
// down entirely; visible fires an immediate poll and resumes the interval.
func (p *Poller) SetVisible(visible bool) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	if !visible {
		p.stopLoopLocked()
		p.mu.Unlock()
		return
	}
	if !p.running {
		p.startLoopLocked()
	}
	p.mu.Unlock()

	go p.pollOnce(context.Background())
}

// Stop tears the coordinator down. An in-flight response is dropped; the
// update callback never fires after Stop returns.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.stopLoopLocked()
}

// LastPollTime returns the start time of the last poll that saw an update.
func (p *Poller) LastPollTime() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastPoll
}

func (p *Poller) startLoopLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	p.loopCancel = cancel
	p.running = true
	go p.loop(ctx)
}

func (p *Poller) stopLoopLocked() {
	if p.running {
		p.loopCancel()
		p.running = false
	}
}

func (p *Poller) loop(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce(ctx)
		}
	}
}

// pollOnce runs a single poll unless one is already in flight. Fetch
// latency can exceed the tick interval, hence the guard.
func (p *Poller) pollOnce(ctx context.Context) {
	p.mu.Lock()
	if p.closed || p.inFlight {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	since := p.lastPoll
	p.mu.Unlock()

	start := time.Now()
	updates, err := p.fetcher.FetchUpdates(ctx, since)

	p.mu.Lock()
	p.inFlight = false
	if p.closed {
		// Torn down while the request was in flight; the late response is
		// not acted upon.
		p.mu.Unlock()
		return
	}
	if err != nil {
		p.mu.Unlock()
		p.onError(err)
		return
	}
	if len(updates) == 0 {
		p.mu.Unlock()
		return
	}
	p.lastPoll = start
	cb := p.onUpdate
	p.mu.Unlock()

	if cb != nil {
		cb(updates)
	}
}
