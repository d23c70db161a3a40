package generate

import (
	"context"
	"sync"

	"github.com/assetforge/forge-cli/internal/api"
)

// Update is one emission from a tracking session: a job snapshot, or, for
// the final emission only, an observation fault.
type Update struct {
	Job api.Job
	Err error
}

// Tracker turns a status observer into a cancelable stream of updates with
// at most one active observation. Starting a new observation stops the
// previous one first, so updates for an abandoned job never interleave with
// the new job's.
type Tracker struct {
	observer StatusObserver

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker creates a tracker over the given observer.
func NewTracker(observer StatusObserver) *Tracker {
	return &Tracker{observer: observer}
}

// Track starts observing jobID and returns the update channel. Snapshots
// arrive in transport order; the channel closes after a terminal snapshot,
// an observation fault, or cancellation. When Track is called while a
// previous observation is active, the previous observation has fully
// stopped, and its channel is closed, before Track returns.
func (t *Tracker) Track(ctx context.Context, jobID string) <-chan Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()

	obsCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	updates := make(chan Update)
	go t.observe(obsCtx, jobID, updates, done)
	return updates
}

// Reset stops the active observation, if any. When Reset returns, the
// observation's channel is closed and nothing more will be emitted.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// observe runs one observation to completion and closes the channels when
// it ends. A fault is forwarded as the final update unless the observation
// was canceled.
func (t *Tracker) observe(ctx context.Context, jobID string, updates chan<- Update, done chan struct{}) {
	defer close(done)
	defer close(updates)

	err := t.observer.Observe(ctx, jobID, func(job api.Job) {
		select {
		case updates <- Update{Job: job}:
		case <-ctx.Done():
		}
	})
	if err != nil && ctx.Err() == nil {
		select {
		case updates <- Update{Err: err}:
		case <-ctx.Done():
		}
	}
}

// stopLocked cancels the active observation and waits for its goroutine to
// finish. Callers must hold t.mu.
func (t *Tracker) stopLocked() {
	if t.cancel == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel = nil
	t.done = nil
}
