package cli

import (
	"fmt"
	"log/slog"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/config"
	"github.com/roach88/cyberterm/internal/store"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose  bool
	Format   string // "json" | "text"
	Database string // overrides CYBERTERM_DB when set

	// Filled in by PersistentPreRunE.
	Config config.Config
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cyberterm CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cyberterm",
		Short: "cyberterm - a story-driven hacker terminal",
		Long: `A single-player cyberpunk terminal game.

Talk to the Oracle, learn the terminal one command at a time, and work
through the mission chain. Progress is saved to a local SQLite file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}

			cfg, err := config.Load()
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			if opts.Database != "" {
				cfg.DBPath = opts.Database
			}
			opts.Config = cfg

			level, err := cfg.SlogLevel()
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid log level", err)
			}
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: level,
			}))
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the save database (default $CYBERTERM_DB or cyberterm.db)")

	cmd.AddCommand(NewPlayCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewStatusCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewTraceCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

func (o *RootOptions) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// openStore opens the configured save database.
func (o *RootOptions) openStore() (*store.Store, error) {
	st, err := store.Open(o.Config.DBPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

// loadDataset returns the story data from CYBERTERM_DATA_DIR, or the embedded
// data when unset.
func (o *RootOptions) loadDataset() (*storydata.Dataset, error) {
	if o.Config.DataDir == "" {
		ds, err := storydata.Default()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to load story data", err)
		}
		return ds, nil
	}
	ds, err := storydata.Load(os.DirFS(o.Config.DataDir))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load story data from "+o.Config.DataDir, err)
	}
	return ds, nil
}

// newEngine restores the saved story over storage.
func (o *RootOptions) newEngine(storage story.Storage) (*story.Engine, error) {
	ds, err := o.loadDataset()
	if err != nil {
		return nil, err
	}
	return story.New(ds, storage, story.WithLogger(o.logger())), nil
}
