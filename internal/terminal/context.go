package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/mission"
	"github.com/roach88/cyberterm/internal/story"
)

// HomeDir is the directory a session starts in.
const HomeDir = "/home/user"

// Intro is the onboarding sequence run at session start and by `start`.
type Intro interface {
	Run(ctx context.Context, sc *SessionContext) error
}

// Themer is implemented by printers that support colour themes.
type Themer interface {
	SetTheme(name string) error
	Theme() string
}

// UIState is terminal-local presentation state. It is not part of the story
// progress and is never persisted with it.
type UIState struct {
	Cwd    string
	Theme  string
	Prompt string
}

// UpdatePrompt rebuilds the prompt as <name>@neon:<cwd>$.
func (u *UIState) UpdatePrompt(name string) {
	if name == "" {
		name = "guest"
	}
	cwd := u.Cwd
	switch {
	case cwd == HomeDir:
		cwd = "~"
	case strings.HasPrefix(cwd, HomeDir+"/"):
		cwd = "~" + strings.TrimPrefix(cwd, HomeDir)
	}
	u.Prompt = fmt.Sprintf("%s@neon:%s$", name, cwd)
}

// lineReader delivers the next raw input line, bypassing command parsing.
type lineReader interface {
	ReadLine(ctx context.Context, prompt string) (string, error)
}

// SessionContext is handed to every command handler. Story and Missions are
// nil when the terminal runs without a story engine.
type SessionContext struct {
	Story      *story.Engine
	Missions   *mission.System
	Out        console.Printer
	Animations console.Animator
	UI         *UIState
	History    *History
	Registry   *Registry
	Intro      Intro
	Logger     *slog.Logger
	Clock      story.Clock

	reader lineReader
}

// ReadLine captures the next raw input line. While a handler waits here no
// other command is dispatched.
func (sc *SessionContext) ReadLine(ctx context.Context, prompt string) (string, error) {
	if sc.reader == nil {
		return "", fmt.Errorf("read line: no input attached")
	}
	return sc.reader.ReadLine(ctx, prompt)
}

// Print writes lines in one style.
func (sc *SessionContext) Print(ctx context.Context, style console.Style, lines ...string) error {
	return console.Println(ctx, sc.Out, style, lines...)
}

// Now returns the session wall time.
func (sc *SessionContext) Now() time.Time {
	if sc.Clock == nil {
		return time.Now()
	}
	return sc.Clock.Now()
}

// StoryMode reports whether a story engine is attached.
func (sc *SessionContext) StoryMode() bool { return sc.Story != nil }

// CharacterName returns the player handle, or "" without a story.
func (sc *SessionContext) CharacterName() string {
	if sc.Story == nil {
		return ""
	}
	return sc.Story.CharacterName()
}

// RefreshPrompt rebuilds the prompt from the current name and directory.
func (sc *SessionContext) RefreshPrompt() {
	sc.UI.UpdatePrompt(sc.CharacterName())
}

// Track forwards a player action to the mission system.
func (sc *SessionContext) Track(ctx context.Context, action string, details map[string]any) error {
	if sc.Missions == nil {
		return nil
	}
	_, err := sc.Missions.TrackAction(ctx, action, details)
	return err
}

// Animate fires a cosmetic event.
func (sc *SessionContext) Animate(name string, payload map[string]any) {
	if sc.Animations != nil {
		sc.Animations.Trigger(name, payload)
	}
}

// HistorySlotKey is the storage slot for command history.
const HistorySlotKey = "cyberterm_terminal_history"

// MaxHistory caps the persisted command history.
const MaxHistory = 100

// History is the command history, persisted to its own slot.
type History struct {
	entries []string
	storage story.Storage
	logger  *slog.Logger
}

// LoadHistory restores history from storage. A missing or malformed slot
// yields an empty history.
func LoadHistory(ctx context.Context, storage story.Storage, logger *slog.Logger) *History {
	h := &History{storage: storage, logger: logger}
	if storage == nil {
		return h
	}
	raw, ok, err := storage.Load(ctx, HistorySlotKey)
	if err != nil {
		logger.Warn("failed to load command history", "key", HistorySlotKey, "error", err)
		return h
	}
	if !ok {
		return h
	}
	if err := json.Unmarshal(raw, &h.entries); err != nil {
		logger.Warn("ignoring malformed command history", "key", HistorySlotKey, "error", err)
		h.entries = nil
	}
	if n := len(h.entries); n > MaxHistory {
		h.entries = h.entries[n-MaxHistory:]
	}
	return h
}

// Add appends a line and persists. Failures are logged and swallowed.
func (h *History) Add(ctx context.Context, line string) {
	h.entries = append(h.entries, line)
	if n := len(h.entries); n > MaxHistory {
		h.entries = append([]string(nil), h.entries[n-MaxHistory:]...)
	}
	if h.storage == nil {
		return
	}
	data, err := json.Marshal(h.entries)
	if err != nil {
		h.logger.Error("failed to encode command history", "error", err)
		return
	}
	if err := h.storage.Save(ctx, HistorySlotKey, data); err != nil {
		h.logger.Warn("failed to save command history", "key", HistorySlotKey, "error", err)
	}
}

// Entries returns the history, oldest first.
func (h *History) Entries() []string {
	return append([]string(nil), h.entries...)
}
