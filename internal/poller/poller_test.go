package poller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// scriptedFetcher hands out canned results and records each since value.
type scriptedFetcher struct {
	mu      sync.Mutex
	results [][]Conversation
	errs    []error
	sinces  []time.Time
	calls   int

	// when set, FetchUpdates blocks until released
	block   chan struct{}
	started chan struct{}
}

func (f *scriptedFetcher) FetchUpdates(ctx context.Context, since time.Time) ([]Conversation, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	f.sinces = append(f.sinces, since)
	block := f.block
	started := f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}

	var res []Conversation
	if i < len(f.results) {
		res = f.results[i]
	}
	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	return res, err
}

func (f *scriptedFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func delta(n int) []Conversation {
	out := make([]Conversation, n)
	for i := range out {
		out[i] = Conversation{ID: "conv", UnreadCount: i + 1}
	}
	return out
}

func TestPollOnce_EmptyDeltaKeepsWindow(t *testing.T) {
	f := &scriptedFetcher{results: [][]Conversation{nil, nil}}
	p := New(f, Options{Interval: time.Hour})

	before := p.LastPollTime()
	p.pollOnce(context.Background())
	p.pollOnce(context.Background())

	if got := p.LastPollTime(); !got.Equal(before) {
		t.Fatalf("empty delta must not advance the window: before=%v after=%v", before, got)
	}
	if len(f.sinces) != 2 || !f.sinces[1].Equal(before) {
		t.Fatalf("second poll must re-check the same window, got %v", f.sinces)
	}
}

func TestPollOnce_AdvancesOnUpdate(t *testing.T) {
	var got []Conversation
	f := &scriptedFetcher{results: [][]Conversation{delta(2)}}
	p := New(f, Options{
		Interval: time.Hour,
		OnUpdate: func(updates []Conversation) { got = updates },
	})

	before := p.LastPollTime()
	time.Sleep(2 * time.Millisecond)
	p.pollOnce(context.Background())

	if len(got) != 2 {
		t.Fatalf("expected the delta via OnUpdate, got %v", got)
	}
	if !p.LastPollTime().After(before) {
		t.Fatalf("non-empty delta must advance the window")
	}
	// the window moved to the poll's start, not its completion
	if p.LastPollTime().After(time.Now()) {
		t.Fatalf("window may never sit in the future")
	}
}

func TestPollOnce_ErrorKeepsWindowAndReports(t *testing.T) {
	var polled error
	f := &scriptedFetcher{errs: []error{errors.New("503")}}
	p := New(f, Options{
		Interval: time.Hour,
		OnError:  func(err error) { polled = err },
	})

	before := p.LastPollTime()
	p.pollOnce(context.Background())

	if polled == nil {
		t.Fatalf("expected the failure on OnError")
	}
	if !p.LastPollTime().Equal(before) {
		t.Fatalf("a failed poll must not advance the window")
	}
}

func TestPollOnce_SingleFlight(t *testing.T) {
	f := &scriptedFetcher{
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p := New(f, Options{Interval: time.Hour})

	go p.pollOnce(context.Background())
	<-f.started

	// overlapping attempt must bail without fetching
	p.pollOnce(context.Background())
	if n := f.callCount(); n != 1 {
		t.Fatalf("expected the overlap to be skipped, got %d fetches", n)
	}
	close(f.block)
}

func TestStop_DropsLateResponse(t *testing.T) {
	fired := make(chan struct{}, 1)
	f := &scriptedFetcher{
		results: [][]Conversation{delta(1)},
		block:   make(chan struct{}),
		started: make(chan struct{}, 1),
	}
	p := New(f, Options{
		Interval: time.Hour,
		OnUpdate: func([]Conversation) { fired <- struct{}{} },
	})

	done := make(chan struct{})
	go func() {
		p.pollOnce(context.Background())
		close(done)
	}()
	<-f.started

	p.Stop()
	close(f.block)
	<-done

	select {
	case <-fired:
		t.Fatalf("OnUpdate must not fire after Stop")
	default:
	}

	// a stopped poller ignores further pokes
	p.pollOnce(context.Background())
	p.Start()
	p.SetVisible(true)
	if n := f.callCount(); n != 1 {
		t.Fatalf("stopped poller must not fetch again, got %d fetches", n)
	}
}

func TestSetVisible_PausesAndResumes(t *testing.T) {
	f := &scriptedFetcher{}
	p := New(f, Options{Interval: 5 * time.Millisecond})
	defer p.Stop()

	p.Start()
	time.Sleep(25 * time.Millisecond)
	if f.callCount() == 0 {
		t.Fatalf("expected interval polls while visible")
	}

	p.SetVisible(false)
	time.Sleep(10 * time.Millisecond)
	paused := f.callCount()
	time.Sleep(25 * time.Millisecond)
	if f.callCount() != paused {
		t.Fatalf("hidden poller must not poll: %d -> %d", paused, f.callCount())
	}

	p.SetVisible(true)
	deadline := time.After(200 * time.Millisecond)
	for f.callCount() == paused {
		select {
		case <-deadline:
			t.Fatalf("visible transition must trigger an immediate poll")
		case <-time.After(2 * time.Millisecond):
		}
	}
}
