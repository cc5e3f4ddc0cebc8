package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/story"
)

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show saved progress",
		Long: `Show the progress summary of the saved profile.

Examples:
  cyberterm status
  cyberterm status --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(rootOpts, cmd)
		},
	}

	return cmd
}

func runStatus(opts *RootOptions, cmd *cobra.Command) error {
	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	eng, err := opts.newEngine(st)
	if err != nil {
		return err
	}
	summary := eng.ProgressSummary()

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(summary)
	}
	outputStatusText(cmd, summary)
	return nil
}

func outputStatusText(cmd *cobra.Command, s story.ProgressSummary) {
	w := cmd.OutOrStdout()

	name := s.CharacterName
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(w, "Operative:   %s (level %d)\n", name, s.CharacterLevel)
	if s.CurrentMission == "" {
		fmt.Fprintln(w, "Mission:     all missions complete")
	} else {
		fmt.Fprintf(w, "Mission:     %s\n", s.CurrentMission)
	}
	fmt.Fprintf(w, "Progress:    %d/%d missions (%d%%)\n", s.CompletedMissions, s.TotalMissions, s.ProgressPercentage)
	fmt.Fprintf(w, "Experience:  %d XP\n", s.ExperiencePoints)
	fmt.Fprintf(w, "Commands:    %d unlocked\n", s.UnlockedCommands)
	fmt.Fprintf(w, "Story flags: %d\n", s.StoryFlags)
}
