package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// SeqClock is the monotonic logical clock that stamps events.
//
// Thread-safety: safe for concurrent use (atomic operations).
type SeqClock struct {
	seq atomic.Int64
}

// NewSeqClockAt creates a clock whose first Next returns start+1.
// Used to resume from the last seq in the log.
func NewSeqClockAt(start int64) *SeqClock {
	c := &SeqClock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *SeqClock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *SeqClock) Current() int64 {
	return c.seq.Load()
}

// IDGenerator produces event ids.
type IDGenerator interface {
	Generate() string
}

type uuidV7 struct{}

// Generate returns a time-ordered UUIDv7, falling back to v4 if the clock
// source fails.
func (uuidV7) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// RecorderOption configures an EventRecorder.
type RecorderOption func(*EventRecorder)

// WithIDGenerator replaces the UUIDv7 id source.
func WithIDGenerator(g IDGenerator) RecorderOption {
	return func(r *EventRecorder) { r.ids = g }
}

// WithRecorderLogger sets the logger used for swallowed write failures.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *EventRecorder) { r.logger = l }
}

// WithRecorderNow sets the wall clock stamped into created_at.
func WithRecorderNow(now func() time.Time) RecorderOption {
	return func(r *EventRecorder) { r.now = now }
}

// EventRecorder appends session events to the store. Write failures are
// logged and never reach the session.
type EventRecorder struct {
	store     *Store
	sessionID string
	clock     *SeqClock
	ids       IDGenerator
	now       func() time.Time
	logger    *slog.Logger
}

// NewEventRecorder creates a recorder for sessionID whose clock resumes
// after the highest seq already in the log.
func NewEventRecorder(ctx context.Context, s *Store, sessionID string, opts ...RecorderOption) (*EventRecorder, error) {
	last, err := s.MaxEventSeq(ctx)
	if err != nil {
		return nil, fmt.Errorf("new event recorder: %w", err)
	}
	r := &EventRecorder{
		store:     s,
		sessionID: sessionID,
		clock:     NewSeqClockAt(last),
		ids:       uuidV7{},
		now:       s.now,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// SessionID returns the session the recorder writes for.
func (r *EventRecorder) SessionID() string { return r.sessionID }

// Record appends one event.
func (r *EventRecorder) Record(ctx context.Context, kind string, payload map[string]any) {
	e := Event{
		ID:        r.ids.Generate(),
		SessionID: r.sessionID,
		Seq:       r.clock.Next(),
		Kind:      kind,
		Payload:   maps.Clone(payload),
		CreatedAt: r.now(),
	}
	if err := r.store.AppendEvent(ctx, e); err != nil {
		r.logger.Warn("failed to record event",
			"kind", kind,
			"seq", e.Seq,
			"error", err)
	}
}
