package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/mission"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
)

// EventSink receives analytics events. Implementations must not fail the
// session: errors are theirs to log.
type EventSink interface {
	Record(ctx context.Context, kind string, payload map[string]any)
}

type nopSink struct{}

func (nopSink) Record(context.Context, string, map[string]any) {}

// Prompter is implemented by printers that can show an input prompt.
type Prompter interface {
	Prompt(prompt string) error
}

// Config assembles a Session.
type Config struct {
	// Story is optional. Without it the file commands use a small built-in
	// filesystem and nothing is gated.
	Story      *story.Engine
	Out        console.Printer
	Animations console.Animator
	Intro      Intro
	Events     EventSink

	// Storage holds the command history slot. Usually the same storage as the
	// story engine.
	Storage story.Storage

	// Pacer is skipped when the player submits an empty line mid-sequence.
	Pacer *console.Pacer

	Logger    *slog.Logger
	Clock     story.Clock
	Registry  *Registry
	SessionID string
	Theme     string

	// Interactive sessions drop typed commands while a sequence is playing.
	// Scripted sessions queue every line.
	Interactive bool
}

// Session runs the command loop for one player.
type Session struct {
	id          string
	sc          *SessionContext
	queue       *lineQueue
	events      EventSink
	pacer       *console.Pacer
	logger      *slog.Logger
	interactive bool

	busy     atomic.Bool
	awaiting atomic.Bool
	started  bool
}

// NewSession wires a session from cfg.
func NewSession(cfg Config) (*Session, error) {
	if cfg.Out == nil {
		return nil, errors.New("new session: output printer is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := cfg.Registry
	if registry == nil {
		registry = DefaultRegistry()
	}
	events := cfg.Events
	if events == nil {
		events = nopSink{}
	}
	anim := cfg.Animations
	if anim == nil {
		anim = console.LogAnimator{Logger: logger}
	}
	id := cfg.SessionID
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("new session id: %w", err)
		}
		id = u.String()
	}

	s := &Session{
		id:          id,
		queue:       newLineQueue(),
		events:      events,
		pacer:       cfg.Pacer,
		logger:      logger.With("session", id),
		interactive: cfg.Interactive,
	}

	ui := &UIState{Cwd: HomeDir, Theme: cfg.Theme}
	if t, ok := cfg.Out.(Themer); ok {
		if ui.Theme != "" {
			if err := t.SetTheme(ui.Theme); err != nil {
				s.logger.Warn("unknown theme", "theme", ui.Theme)
			}
		}
		ui.Theme = t.Theme()
	}

	s.sc = &SessionContext{
		Story:      cfg.Story,
		Out:        cfg.Out,
		Animations: anim,
		UI:         ui,
		History:    LoadHistory(context.Background(), cfg.Storage, logger),
		Registry:   registry,
		Intro:      cfg.Intro,
		Logger:     s.logger,
		Clock:      cfg.Clock,
		reader:     s,
	}
	if cfg.Story != nil {
		s.sc.Missions = mission.New(cfg.Story, cfg.Out,
			mission.WithAnimator(anim),
			mission.WithLogger(s.logger),
			mission.WithCompletionHook(func(ctx context.Context, m storydata.Mission) {
				s.events.Record(ctx, "mission_completed", map[string]any{
					"mission": string(m.ID),
					"reward":  m.CompletionReward,
				})
			}))
	}
	s.sc.RefreshPrompt()
	return s, nil
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Context exposes the handler context, e.g. for tests and the intro.
func (s *Session) Context() *SessionContext { return s.sc }

// Busy reports whether a command or sequence is running.
func (s *Session) Busy() bool { return s.busy.Load() }

// Submit hands a raw input line to the session. It may be called from any
// goroutine. In interactive mode a line typed while a sequence is playing is
// dropped, and an empty line skips the current pacing instead. It reports
// whether the line was queued.
func (s *Session) Submit(line string) bool {
	if s.interactive && s.busy.Load() && !s.awaiting.Load() {
		if strings.TrimSpace(line) == "" {
			if s.pacer != nil {
				s.pacer.Skip()
			}
		} else {
			s.logger.Debug("input ignored while busy", "line", line)
		}
		return false
	}
	return s.queue.Enqueue(line)
}

// Close ends input. Run returns once queued lines are processed.
func (s *Session) Close() { s.queue.Close() }

// ReadLine implements direct input mode for handlers and the intro.
func (s *Session) ReadLine(ctx context.Context, prompt string) (string, error) {
	if prompt != "" {
		s.showPrompt(ctx, prompt)
	}
	s.awaiting.Store(true)
	defer s.awaiting.Store(false)

	line, err := s.queue.Next(ctx)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (s *Session) showPrompt(ctx context.Context, prompt string) {
	if p, ok := s.sc.Out.(Prompter); ok && s.interactive {
		if err := p.Prompt(prompt); err != nil {
			s.logger.Debug("prompt write failed", "error", err)
		}
		return
	}
	if err := s.sc.Out.Print(ctx, prompt, console.StyleInput); err != nil {
		s.logger.Debug("prompt write failed", "error", err)
	}
}

// Start runs the intro, if any. Run calls it automatically.
func (s *Session) Start(ctx context.Context) error {
	if s.started {
		return nil
	}
	s.started = true
	if s.sc.Intro == nil {
		return nil
	}

	s.busy.Store(true)
	defer s.busy.Store(false)
	if err := s.sc.Intro.Run(ctx, s.sc); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return err
		}
		s.logger.Error("intro failed", "error", err)
		_ = s.sc.Print(ctx, console.StyleError, "Startup sequence interrupted.")
	}
	return nil
}

// Run plays the intro, then dispatches queued lines until the input is closed
// (nil) or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	for {
		if s.interactive {
			s.showPrompt(ctx, s.sc.UI.Prompt)
		}
		line, err := s.queue.Next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Debug("command failed", "line", line, "error", err)
		}
	}
}

// Execute dispatches one line. The failure is shown to the player before
// Execute returns it; the session always continues.
func (s *Session) Execute(ctx context.Context, line string) error {
	name, args, err := ParseLine(line)
	if err != nil {
		s.report(ctx, err)
		return err
	}
	if name == "" {
		return nil
	}

	s.busy.Store(true)
	defer s.busy.Store(false)

	s.sc.History.Add(ctx, strings.TrimSpace(line))

	cmd, ok := s.sc.Registry.Lookup(name)
	if !ok {
		err := &CommandError{Code: ErrCodeNotFound, Command: name, Message: "command not found"}
		s.record(ctx, name, args, err)
		s.report(ctx, err)
		return err
	}

	if cmd.UnlockRequired && s.sc.Story != nil && !s.sc.Story.HasUnlockedCommand(cmd.Name) {
		err := &CommandError{Code: ErrCodeLocked, Command: cmd.Name, Message: "access denied"}
		s.record(ctx, cmd.Name, args, err)
		s.report(ctx, err)
		return err
	}

	// Only dispatched commands count toward the first-command beat.
	if s.sc.Story != nil && !s.sc.Story.HasStoryFlag("terminal_mastery_begun") {
		s.sc.Story.TriggerStoryEvent(story.EventFirstCommand, map[string]any{"command": cmd.Name})
	}

	err = s.invoke(ctx, cmd, args)
	s.record(ctx, cmd.Name, args, err)
	if err != nil {
		s.report(ctx, err)
	}
	return err
}

// invoke runs the handler, converting panics and plain errors to CommandErrors.
// State committed before a failure is kept.
func (s *Session) invoke(ctx context.Context, cmd Command, args []string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("command panicked", "command", cmd.Name, "panic", r)
			err = &CommandError{
				Code:    ErrCodePanic,
				Command: cmd.Name,
				Message: "error executing command",
				Err:     fmt.Errorf("panic: %v", r),
			}
		}
	}()

	if err := cmd.Run(ctx, s.sc, args); err != nil {
		var ce *CommandError
		if errors.As(err, &ce) {
			return err
		}
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.logger.Warn("command failed", "command", cmd.Name, "error", err)
		return &CommandError{Code: ErrCodeHandler, Command: cmd.Name, Message: "error executing command", Err: err}
	}
	return nil
}

func (s *Session) record(ctx context.Context, name string, args []string, err error) {
	payload := map[string]any{"command": name, "args": len(args), "ok": err == nil}
	var ce *CommandError
	if errors.As(err, &ce) {
		payload["code"] = string(ce.Code)
	}
	s.events.Record(ctx, "command", payload)
}

// report prints the player-facing form of a dispatch error.
func (s *Session) report(ctx context.Context, err error) {
	var ce *CommandError
	if !errors.As(err, &ce) {
		return
	}

	var msg string
	switch ce.Code {
	case ErrCodeNotFound:
		msg = fmt.Sprintf("%s: command not found. Type 'help' for available commands.", ce.Command)
	case ErrCodeLocked:
		msg = fmt.Sprintf("%s: ACCESS DENIED. This command has not been unlocked yet.", ce.Command)
	case ErrCodeUsage:
		msg = ce.Message
		if ce.Command != "" {
			msg = ce.Command + ": " + ce.Message
		}
	default:
		msg = fmt.Sprintf("Error executing command '%s'.", ce.Command)
	}
	if perr := s.sc.Print(ctx, console.StyleError, msg); perr != nil {
		s.logger.Debug("error report not shown", "error", perr)
	}
}
