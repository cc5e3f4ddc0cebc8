package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/startup"
	"github.com/roach88/cyberterm/internal/store"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/terminal"
)

// PlayOptions holds flags for the play command.
type PlayOptions struct {
	*RootOptions
	SkipIntro bool
	Ephemeral bool // keep progress in memory only
	Sandbox   bool // no story: every command available, nothing saved
	Theme     string
}

// NewPlayCommand creates the play command.
func NewPlayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive session",
		Long: `Start an interactive terminal session on stdin/stdout.

First-time players get the full boot sequence and meet the Oracle.
Returning players resume where they left off. Press Enter during a
sequence to skip ahead, Ctrl-C to quit.

Examples:
  cyberterm play
  cyberterm play --theme amber --skip-intro
  cyberterm play --ephemeral
  cyberterm play --sandbox`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.SkipIntro, "skip-intro", false, "skip the startup sequence")
	cmd.Flags().BoolVar(&opts.Ephemeral, "ephemeral", false, "do not read or write the save database")
	cmd.Flags().BoolVar(&opts.Sandbox, "sandbox", false, "free play without the story")
	cmd.Flags().StringVar(&opts.Theme, "theme", "", "colour theme (matrix|amber|cyan|mono)")

	return cmd
}

func runPlay(opts *PlayOptions, cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := opts.logger()
	theme := opts.Theme
	if theme == "" {
		theme = opts.Config.Theme
	}
	if !console.IsTheme(theme) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown theme %q: must be one of %v", theme, console.Themes()))
	}

	in := cmd.InOrStdin()
	interactive := isTerminal(in)

	pacer := console.NewPacer()
	pacer.SetInstant(!interactive)
	out := console.NewStyledWriter(cmd.OutOrStdout(), theme,
		console.WithPacer(pacer),
		console.WithLineDelay(opts.Config.TypingDelay))

	sessionID, err := uuid.NewV7()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session id", err)
	}

	cfg := terminal.Config{
		Out:         out,
		Pacer:       pacer,
		Logger:      logger,
		SessionID:   sessionID.String(),
		Theme:       theme,
		Interactive: interactive,
	}

	if !opts.Sandbox {
		var storage story.Storage
		if opts.Ephemeral {
			storage = story.NewMemoryStorage()
		} else {
			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			storage = st

			rec, err := store.NewEventRecorder(ctx, st, cfg.SessionID, store.WithRecorderLogger(logger))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to open event log", err)
			}
			cfg.Events = rec
		}

		eng, err := opts.newEngine(storage)
		if err != nil {
			return err
		}
		cfg.Story = eng
		cfg.Storage = storage
	}

	if !opts.SkipIntro && !opts.Config.SkipIntro {
		cfg.Intro = startup.New(startup.WithPacer(pacer), startup.WithLogger(logger))
	}

	session, err := terminal.NewSession(cfg)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	logger.Debug("session started", "session", session.ID(), "interactive", interactive, "sandbox", opts.Sandbox)

	go feedInput(ctx, in, session)

	err = session.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return WrapExitError(ExitFailure, "session ended with error", err)
	}
	return nil
}

// feedInput submits each line read from r until EOF, then closes the session input.
func feedInput(ctx context.Context, r io.Reader, session *terminal.Session) {
	defer session.Close()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		session.Submit(scanner.Text())
	}
}

// isTerminal reports whether r is an interactive terminal. Piped input is
// replayed as a script: every line is queued and pacing is instant.
func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
