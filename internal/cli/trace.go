package cli

import (
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"github.com/roach88/cyberterm/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Session string
	Kind    string
	Limit   int
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session string        `json:"session,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Events  []store.Event `json:"events"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the listed events.
type TraceStats struct {
	TotalEvents      int            `json:"total_events"`
	Sessions         int            `json:"sessions"`
	RecordedSessions []string       `json:"recorded_sessions"`
	ByKind           map[string]int `json:"by_kind"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "List the session event log",
		Long: `List recorded session events: commands run, missions completed.

Events are shown oldest first. --limit keeps only the most recent N.

Examples:
  cyberterm trace
  cyberterm trace --kind mission_completed
  cyberterm trace --session 01890a5d-ac96-774b-bcce-b302099a8057 --limit 20
  cyberterm trace --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Session, "session", "", "only events of this session")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "only events of this kind (command|mission_completed)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "show at most the N most recent events (0 = all)")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	if opts.Limit < 0 {
		return NewExitError(ExitCommandError, "--limit must not be negative")
	}

	st, err := opts.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	recorded, err := st.Sessions(cmd.Context())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}
	if opts.Session != "" && !slices.Contains(recorded, opts.Session) {
		return NewExitError(ExitCommandError, fmt.Sprintf("no such session: %s", opts.Session))
	}

	events, err := st.ReadEvents(cmd.Context(), store.EventFilter{
		SessionID: opts.Session,
		Kind:      opts.Kind,
		Limit:     opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{
		Session: opts.Session,
		Kind:    opts.Kind,
		Events:  events,
		Stats:   traceStats(events, recorded),
	}

	if opts.Format == "json" {
		return opts.formatter(cmd).Success(result)
	}
	return outputTraceText(cmd.OutOrStdout(), result, opts.Verbose)
}

func traceStats(events []store.Event, recorded []string) TraceStats {
	stats := TraceStats{TotalEvents: len(events), RecordedSessions: recorded, ByKind: map[string]int{}}
	sessions := map[string]struct{}{}
	for _, e := range events {
		stats.ByKind[e.Kind]++
		sessions[e.SessionID] = struct{}{}
	}
	stats.Sessions = len(sessions)
	return stats
}

// outputTraceText outputs the trace result as a table.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	if len(result.Events) == 0 {
		fmt.Fprintln(w, "No events recorded.")
		return nil
	}

	tbl := table.New("Seq", "Session", "Kind", "Payload", "Time").WithWriter(w)
	for _, e := range result.Events {
		session := e.SessionID
		if !verbose {
			session = truncateID(session)
		}
		tbl.AddRow(e.Seq, session, e.Kind, formatArgs(e.Payload), e.CreatedAt.Format(time.DateTime))
	}
	tbl.Print()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total Events: %d across %d session(s)\n", result.Stats.TotalEvents, result.Stats.Sessions)
	fmt.Fprintf(w, "Recorded Sessions: %d\n", len(result.Stats.RecordedSessions))
	return nil
}

// formatArgs formats a payload map for display.
// Uses sorted keys to ensure deterministic output.
func formatArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}

	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(args[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v any) string {
	switch val := v.(type) {
	case map[string]any:
		return formatArgs(val)
	case []any:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
