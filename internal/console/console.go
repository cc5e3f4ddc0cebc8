// Package console defines how the game talks to the player: an ordered,
// styled line printer and a fire-and-forget animation sink.
//
// StyledWriter renders lines to a real terminal through lipgloss. Transcript
// records lines for tests and the scenario harness. Both satisfy Printer.
package console

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Style is the presentation class of an output line.
type Style int

const (
	StyleOutput Style = iota
	StyleInfo
	StyleError
	StyleSuccess
	StyleWarning
	StyleStory
	StyleSystem
	StyleInput
)

var styleNames = [...]string{
	StyleOutput:  "output",
	StyleInfo:    "info",
	StyleError:   "error",
	StyleSuccess: "success",
	StyleWarning: "warning",
	StyleStory:   "story",
	StyleSystem:  "system",
	StyleInput:   "input",
}

func (s Style) String() string {
	if s < 0 || int(s) >= len(styleNames) {
		return fmt.Sprintf("Style(%d)", int(s))
	}
	return styleNames[s]
}

// ParseStyle maps a style name back to a Style.
func ParseStyle(name string) (Style, bool) {
	for i, n := range styleNames {
		if n == name {
			return Style(i), true
		}
	}
	return StyleOutput, false
}

// Printer appends styled lines in call order. Print may block for pacing;
// it is the only suspension point in a command.
type Printer interface {
	Print(ctx context.Context, line string, style Style) error
}

// Clearer is implemented by printers that can wipe the screen.
type Clearer interface {
	Clear() error
}

// Animator receives named cosmetic events. Trigger never blocks and has no
// result; the game never waits for an effect to finish.
type Animator interface {
	Trigger(name string, payload map[string]any)
}

// LogAnimator records animation events in the debug log.
type LogAnimator struct {
	Logger *slog.Logger
}

// Trigger implements Animator.
func (a LogAnimator) Trigger(name string, payload map[string]any) {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("animation event", "name", name, "payload", payload)
}

// AnimationEvent is one recorded Trigger call.
type AnimationEvent struct {
	Name    string
	Payload map[string]any
}

// Recorder is an Animator that keeps every event.
//
// Thread-safety: safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []AnimationEvent
}

// Trigger implements Animator.
func (r *Recorder) Trigger(name string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, AnimationEvent{Name: name, Payload: payload})
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []AnimationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]AnimationEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.events))
	for i, e := range r.events {
		names[i] = e.Name
	}
	return names
}

// Line is one printed line.
type Line struct {
	Text  string
	Style Style
}

// Transcript is a Printer that records output instead of drawing it.
//
// Thread-safety: safe for concurrent use.
type Transcript struct {
	mu    sync.Mutex
	lines []Line
	all   []Line
}

// NewTranscript creates an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Print implements Printer.
func (t *Transcript) Print(ctx context.Context, line string, style Style) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	l := Line{Text: line, Style: style}
	t.lines = append(t.lines, l)
	t.all = append(t.all, l)
	return nil
}

// Clear implements Clearer. It empties the visible screen; History still
// holds everything ever printed.
func (t *Transcript) Clear() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	return nil
}

// Lines returns the visible lines.
func (t *Transcript) Lines() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Line, len(t.lines))
	copy(out, t.lines)
	return out
}

// History returns every line printed, including cleared ones.
func (t *Transcript) History() []Line {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Line, len(t.all))
	copy(out, t.all)
	return out
}

// Text joins every printed line with newlines.
func (t *Transcript) Text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var b strings.Builder
	for i, l := range t.all {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	return b.String()
}

// Reset forgets all output.
func (t *Transcript) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = nil
	t.all = nil
}

// Println is a convenience for printing several lines in one style. It stops
// at the first error.
func Println(ctx context.Context, p Printer, style Style, lines ...string) error {
	for _, line := range lines {
		if err := p.Print(ctx, line, style); err != nil {
			return err
		}
	}
	return nil
}
