package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/terminal"
)

// ResetOptions holds flags for the reset command.
type ResetOptions struct {
	*RootOptions
	Yes     bool
	History bool
}

// NewResetCommand creates the reset command.
func NewResetCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResetOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase saved story progress",
		Long: `Delete the story progress slot from the save database.
The event log is kept.

Examples:
  cyberterm reset --yes
  cyberterm reset --yes --history`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReset(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm the reset (required)")
	cmd.Flags().BoolVar(&opts.History, "history", false, "also clear the command history")

	return cmd
}

// ResetResult is the JSON payload of a reset.
type ResetResult struct {
	Database string   `json:"database"`
	Deleted  []string `json:"deleted"`
}

func runReset(opts *ResetOptions, cmd *cobra.Command) error {
	if !opts.Yes {
		return NewExitError(ExitCommandError, "refusing to reset without --yes")
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	keys := []string{story.DefaultSlotKey}
	if opts.History {
		keys = append(keys, terminal.HistorySlotKey)
	}
	for _, key := range keys {
		if err := st.Delete(cmd.Context(), key); err != nil {
			return WrapExitError(ExitCommandError, "failed to delete "+key, err)
		}
	}
	opts.logger().Info("progress reset", "database", opts.Config.DBPath, "keys", keys)

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(ResetResult{Database: opts.Config.DBPath, Deleted: keys})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Progress erased from %s.\n", opts.Config.DBPath)
	return nil
}
