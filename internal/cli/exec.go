package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/store"
	"github.com/roach88/cyberterm/internal/terminal"
)

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <line>...",
		Short: "Run terminal commands against the saved profile",
		Long: `Run one or more terminal command lines without the startup
sequence and without waiting for input. Each argument is one line.

Commands that ask for confirmation (like reset) see end of input and
cancel.

Examples:
  cyberterm exec help
  cyberterm exec "cat briefing.txt" "cd /archives" ls`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExec(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runExec(opts *RootOptions, lines []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger()

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := opts.newEngine(st)
	if err != nil {
		return err
	}

	sessionID, err := uuid.NewV7()
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to create session id", err)
	}
	rec, err := store.NewEventRecorder(ctx, st, sessionID.String(), store.WithRecorderLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open event log", err)
	}

	pacer := console.NewPacer()
	pacer.SetInstant(true)
	session, err := terminal.NewSession(terminal.Config{
		Story:     eng,
		Out:       console.NewStyledWriter(cmd.OutOrStdout(), opts.Config.Theme, console.WithPacer(pacer)),
		Events:    rec,
		Storage:   st,
		Pacer:     pacer,
		Logger:    logger,
		SessionID: rec.SessionID(),
		Theme:     opts.Config.Theme,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start session", err)
	}
	// No further input: direct-input prompts see EOF instead of blocking.
	session.Close()

	failed := 0
	for _, line := range lines {
		err := session.Execute(ctx, line)
		if err == nil || errors.Is(err, io.EOF) {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return WrapExitError(ExitFailure, "interrupted", ctxErr)
		}
		logger.Debug("command failed", "line", line, "error", err)
		failed++
	}

	if failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d command(s) failed", failed, len(lines)))
	}
	return nil
}
