package harness

import (
	"context"
	"maps"
	"sync"

	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/testutil"
)

// TraceEvent is one session event captured during a run.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	Kind    string         `json:"kind"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion held.
	Pass bool `json:"pass"`

	// Errors contains assertion failure messages.
	Errors []string `json:"errors,omitempty"`

	// Output is every line printed during the session, including lines
	// later cleared from the screen.
	Output []string `json:"output"`

	// Trace is the session event log in seq order.
	Trace []TraceEvent `json:"trace"`

	// Animations lists cosmetic events in firing order.
	Animations []string `json:"animations,omitempty"`

	Summary           story.ProgressSummary `json:"summary"`
	StoryFlags        []string              `json:"story_flags"`
	UnlockedCommands  []string              `json:"unlocked_commands"`
	CompletedMissions []string              `json:"completed_missions"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Output: []string{},
		Trace:  []TraceEvent{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// traceSink collects session events, stamping them from a logical clock.
type traceSink struct {
	mu     sync.Mutex
	clock  *testutil.DeterministicClock
	events []TraceEvent
}

func newTraceSink() *traceSink {
	return &traceSink{clock: testutil.NewDeterministicClock()}
}

func (s *traceSink) Record(_ context.Context, kind string, payload map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, TraceEvent{
		Seq:     s.clock.Next(),
		Kind:    kind,
		Payload: maps.Clone(payload),
	})
}

func (s *traceSink) Events() []TraceEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TraceEvent{}, s.events...)
}
