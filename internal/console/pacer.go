package console

import (
	"context"
	"sync"
	"time"
)

// Pacer implements the cosmetic pauses between output lines.
//
// Skip ends every pause currently in flight. It never cancels the work the
// pause was decorating: state changes are applied before pacing starts.
type Pacer struct {
	mu      sync.Mutex
	skip    chan struct{}
	instant bool
}

// NewPacer creates a pacer.
func NewPacer() *Pacer {
	return &Pacer{skip: make(chan struct{})}
}

// SetInstant disables (or re-enables) every pause.
func (p *Pacer) SetInstant(instant bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.instant = instant
}

// Pause sleeps for d, returning early on Skip. A cancelled ctx returns its error.
func (p *Pacer) Pause(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	skip, instant := p.skip, p.instant
	p.mu.Unlock()

	if instant || d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-skip:
		return nil
	case <-timer.C:
		return nil
	}
}

// Skip wakes all in-flight pauses.
func (p *Pacer) Skip() {
	p.mu.Lock()
	defer p.mu.Unlock()
	close(p.skip)
	p.skip = make(chan struct{})
}
