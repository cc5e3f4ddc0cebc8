package console

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a colour per output style.
type Theme map[Style]lipgloss.Color

// DefaultTheme is used when no theme is configured.
const DefaultTheme = "matrix"

var themes = map[string]Theme{
	"matrix": {
		StyleOutput:  "#00ff41",
		StyleInfo:    "#7fff9f",
		StyleError:   "#ff3860",
		StyleSuccess: "#39ff14",
		StyleWarning: "#ffdd57",
		StyleStory:   "#00d1b2",
		StyleSystem:  "#008f11",
		StyleInput:   "#ffffff",
	},
	"amber": {
		StyleOutput:  "#ffb000",
		StyleInfo:    "#ffcc66",
		StyleError:   "#ff5f1f",
		StyleSuccess: "#ffd700",
		StyleWarning: "#ff8c00",
		StyleStory:   "#ffe4b5",
		StyleSystem:  "#cc8400",
		StyleInput:   "#fff5e0",
	},
	"cyan": {
		StyleOutput:  "#00ffff",
		StyleInfo:    "#87cefa",
		StyleError:   "#ff00ff",
		StyleSuccess: "#00fa9a",
		StyleWarning: "#f0e68c",
		StyleStory:   "#e0ffff",
		StyleSystem:  "#008b8b",
		StyleInput:   "#ffffff",
	},
	"mono": {},
}

// Themes returns the known theme names, sorted.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsTheme reports whether name is a known theme.
func IsTheme(name string) bool {
	_, ok := themes[name]
	return ok
}

// StyledWriter renders styled lines to a terminal.
//
// Colours are resolved by a lipgloss renderer bound to the writer, so output
// to a pipe or file degrades to plain text.
type StyledWriter struct {
	mu       sync.Mutex
	w        io.Writer
	renderer *lipgloss.Renderer
	theme    string
	styles   map[Style]lipgloss.Style
	pacer    *Pacer
	delay    time.Duration
}

// WriterOption configures a StyledWriter.
type WriterOption func(*StyledWriter)

// WithPacer sets the pacer used between lines.
func WithPacer(p *Pacer) WriterOption {
	return func(sw *StyledWriter) { sw.pacer = p }
}

// WithLineDelay sets the pause after each printed line.
func WithLineDelay(d time.Duration) WriterOption {
	return func(sw *StyledWriter) { sw.delay = d }
}

// NewStyledWriter creates a writer using theme. Unknown themes fall back to
// DefaultTheme.
func NewStyledWriter(w io.Writer, theme string, opts ...WriterOption) *StyledWriter {
	sw := &StyledWriter{
		w:        w,
		renderer: lipgloss.NewRenderer(w),
		pacer:    NewPacer(),
	}
	for _, opt := range opts {
		opt(sw)
	}
	if err := sw.SetTheme(theme); err != nil {
		_ = sw.SetTheme(DefaultTheme)
	}
	return sw
}

// Pacer returns the writer's pacer so input handling can skip pauses.
func (sw *StyledWriter) Pacer() *Pacer { return sw.pacer }

// Theme returns the active theme name.
func (sw *StyledWriter) Theme() string {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.theme
}

// SetTheme switches the colour theme.
func (sw *StyledWriter) SetTheme(name string) error {
	palette, ok := themes[name]
	if !ok {
		return fmt.Errorf("unknown theme %q", name)
	}

	styles := make(map[Style]lipgloss.Style, len(styleNames))
	for i := range styleNames {
		s := Style(i)
		st := sw.renderer.NewStyle()
		if c, ok := palette[s]; ok {
			st = st.Foreground(c)
		}
		switch s {
		case StyleError, StyleSuccess:
			st = st.Bold(true)
		case StyleStory:
			st = st.Italic(true)
		}
		styles[s] = st
	}

	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.theme = name
	sw.styles = styles
	return nil
}

// Print implements Printer: it writes one rendered line, then paces.
func (sw *StyledWriter) Print(ctx context.Context, line string, style Style) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	sw.mu.Lock()
	st, ok := sw.styles[style]
	if !ok {
		st = sw.styles[StyleOutput]
	}
	_, err := fmt.Fprintln(sw.w, st.Render(line))
	sw.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return sw.pacer.Pause(ctx, sw.delay)
}

// Prompt writes the input prompt without a trailing newline.
func (sw *StyledWriter) Prompt(prompt string) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	_, err := fmt.Fprint(sw.w, sw.styles[StyleInput].Render(prompt)+" ")
	return err
}

// Clear implements Clearer with the ANSI clear-screen sequence.
func (sw *StyledWriter) Clear() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	_, err := io.WriteString(sw.w, "\x1b[H\x1b[2J")
	return err
}
