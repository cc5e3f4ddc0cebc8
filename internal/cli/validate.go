package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/storydata"
)

// Error codes for validate output that are not data findings.
const (
	ErrCodeDirNotFound = "E_DIR_NOT_FOUND"
	ErrCodeLoad        = "E_LOAD"
	ErrCodeInvalid     = "E_INVALID_DATA"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid    bool                        `json:"valid"`
	Source   string                      `json:"source"`
	Missions int                         `json:"missions,omitempty"`
	NPCs     int                         `json:"npcs,omitempty"`
	Dirs     int                         `json:"directories,omitempty"`
	Errors   []storydata.ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [data-dir]",
		Short: "Validate story data",
		Long: `Validate a story data directory (missions.yaml, npcs.yaml, world.yaml
and an optional schema.cue) against the story schema and the
cross-reference rules.

Without an argument validates $CYBERTERM_DATA_DIR, or the built-in data
when that is unset.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := rootOpts.Config.DataDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, dataDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	source := dataDir
	var fsys fs.FS
	if dataDir == "" {
		source = "(built-in)"
		fsys = storydata.EmbeddedFS()
	} else {
		info, err := os.Stat(dataDir)
		if err != nil || !info.IsDir() {
			_ = formatter.Error(ErrCodeDirNotFound, "data directory not found: "+dataDir, nil)
			return NewExitError(ExitCommandError, "data directory not found: "+dataDir)
		}
		fsys = os.DirFS(dataDir)
	}
	formatter.VerboseLog("Validating story data in %s", source)

	ds, err := storydata.Load(fsys)
	if err != nil {
		var invalid *storydata.InvalidDataError
		if errors.As(err, &invalid) {
			return outputValidationErrors(formatter, source, invalid.Errors)
		}
		_ = formatter.Error(ErrCodeLoad, err.Error(), nil)
		return WrapExitError(ExitFailure, "failed to load story data", err)
	}

	result := ValidationResult{
		Valid:    true,
		Source:   source,
		Missions: len(ds.Missions),
		NPCs:     len(ds.NPCs),
		Dirs:     len(ds.World),
	}
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "✓ Story data valid: %d missions, %d NPCs, %d directories\n",
		result.Missions, result.NPCs, result.Dirs)
	return nil
}

// outputValidationErrors reports every finding, then fails with exit code 1.
func outputValidationErrors(formatter *OutputFormatter, source string, verrs []storydata.ValidationError) error {
	msg := fmt.Sprintf("%d validation error(s) in %s", len(verrs), source)
	if formatter.Format == "json" {
		if err := formatter.Error(ErrCodeInvalid, msg, ValidationResult{Source: source, Errors: verrs}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✗ %s\n", msg)
	for _, verr := range verrs {
		fmt.Fprintf(w, "  %s\n", verr.Error())
	}
	return NewExitError(ExitFailure, msg)
}
