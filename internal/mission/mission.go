// Package mission renders mission status, hints and briefings and turns
// player actions into objective checks. It holds no state of its own; every
// read and write goes through the story engine.
package mission

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rodaine/table"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
)

// Action names accepted by TrackAction.
const (
	ActionUsedLS           = "used_ls"
	ActionUsedPWD          = "used_pwd"
	ActionReadFile         = "read_file"
	ActionChangedDirectory = "changed_directory"
	ActionUsedScan         = "used_scan"
	ActionLearnedHelp      = "learned_help"
	ActionMetOracle        = "met_oracle"
)

// AnimationMissionComplete is fired after a mission completes.
const AnimationMissionComplete = "mission_complete"

// CompletionHook observes completed missions.
type CompletionHook func(ctx context.Context, completed storydata.Mission)

// Option configures a System.
type Option func(*System)

// WithAnimator sets the animation sink.
func WithAnimator(a console.Animator) Option {
	return func(s *System) { s.anim = a }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *System) { s.logger = l }
}

// WithCompletionHook registers a callback run after each completion sequence.
func WithCompletionHook(h CompletionHook) Option {
	return func(s *System) { s.onComplete = h }
}

// System is the guidance layer over a story.Engine.
type System struct {
	story      *story.Engine
	out        console.Printer
	anim       console.Animator
	logger     *slog.Logger
	onComplete CompletionHook
}

// New creates a System printing to out.
func New(engine *story.Engine, out console.Printer, opts ...Option) *System {
	s := &System{
		story:  engine,
		out:    out,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.anim == nil {
		s.anim = console.LogAnimator{Logger: s.logger}
	}
	return s
}

// SetOutput redirects rendering, e.g. when the session swaps printers.
func (s *System) SetOutput(out console.Printer) { s.out = out }

func (s *System) print(ctx context.Context, style console.Style, lines ...string) error {
	return console.Println(ctx, s.out, style, lines...)
}

// HandleMissionCommand routes `mission [objectives|hint|progress|briefing|all]`.
func (s *System) HandleMissionCommand(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return s.ShowCurrentMission(ctx)
	}
	switch strings.ToLower(args[0]) {
	case "objectives":
		return s.ShowObjectives(ctx)
	case "hint":
		return s.ShowHint(ctx)
	case "progress":
		return s.ShowProgress(ctx)
	case "briefing":
		return s.ShowBriefing(ctx)
	case "all":
		return s.ShowAll(ctx)
	default:
		return s.ShowHelp(ctx)
	}
}

// ShowCurrentMission prints the active mission and its objectives.
func (s *System) ShowCurrentMission(ctx context.Context) error {
	m, ok := s.story.CurrentMission()
	if !ok {
		return s.print(ctx, console.StyleInfo, "No active mission.")
	}

	status := "ACTIVE"
	if s.story.IsMissionCompleted(m.ID) {
		status = "COMPLETE"
	}
	if err := s.print(ctx, console.StyleSystem, fmt.Sprintf("=== MISSION: %s [%s] ===", m.Title, status)); err != nil {
		return err
	}
	if err := s.print(ctx, console.StyleStory, m.Description); err != nil {
		return err
	}
	if err := s.printObjectives(ctx, m); err != nil {
		return err
	}
	return s.print(ctx, console.StyleInfo, "Type 'mission hint' for guidance or 'mission help' for options.")
}

// ShowObjectives prints the objective checklist with a completion count.
func (s *System) ShowObjectives(ctx context.Context) error {
	m, ok := s.story.CurrentMission()
	if !ok {
		return s.print(ctx, console.StyleInfo, "No active mission.")
	}
	if err := s.print(ctx, console.StyleSystem, "Objectives: "+m.Title); err != nil {
		return err
	}
	if err := s.printObjectives(ctx, m); err != nil {
		return err
	}
	return s.print(ctx, console.StyleInfo,
		fmt.Sprintf("Progress: %d/%d objectives", s.story.CompletedObjectiveCount(), len(m.Objectives)))
}

func (s *System) printObjectives(ctx context.Context, m storydata.Mission) error {
	if len(m.Objectives) == 0 {
		return s.print(ctx, console.StyleOutput, "  (no objectives)")
	}
	for _, o := range m.Objectives {
		mark, style := "○", console.StyleOutput
		if s.story.ObjectiveCompleted(m.ID, o.ID) {
			mark, style = "✓", console.StyleSuccess
		}
		if err := s.print(ctx, style, fmt.Sprintf("  %s %s", mark, o.Text)); err != nil {
			return err
		}
	}
	return nil
}

// ShowHint prints the hint for the current mission. Hints get more specific
// as objectives complete. The first prologue hint before the Oracle has been
// met plays the Oracle briefing instead.
func (s *System) ShowHint(ctx context.Context) error {
	m, ok := s.story.CurrentMission()
	if !ok {
		return s.print(ctx, console.StyleInfo, "No hints available.")
	}

	if m.ID == storydata.Prologue && !s.story.HasStoryFlag("met_oracle") {
		return s.oracleBriefing(ctx)
	}

	if len(m.Hints) == 0 {
		return s.print(ctx, console.StyleInfo, "No hints available for this mission.")
	}
	idx := min(s.story.CompletedObjectiveCount(), len(m.Hints)-1)
	return s.print(ctx, console.StyleWarning, "HINT: "+m.Hints[idx])
}

// oracleBriefing is the scripted first contact triggered from a hint request.
func (s *System) oracleBriefing(ctx context.Context) error {
	s.anim.Trigger("oracle_contact", map[string]any{"source": "hint"})

	if err := s.print(ctx, console.StyleSystem, "[INCOMING TRANSMISSION]"); err != nil {
		return err
	}
	for _, line := range s.story.NPCDialogue("oracle", "briefing") {
		s.story.AddDialogueToHistory("oracle", line)
		if err := s.print(ctx, console.StyleStory, "ORACLE: "+line); err != nil {
			return err
		}
	}
	if err := s.print(ctx, console.StyleSystem, "[TRANSMISSION ENDS]"); err != nil {
		return err
	}

	s.story.SetStoryFlag("met_oracle")
	_, err := s.TrackAction(ctx, ActionMetOracle, map[string]any{"source": "hint"})
	return err
}

// ShowProgress prints the overall progress summary.
func (s *System) ShowProgress(ctx context.Context) error {
	p := s.story.ProgressSummary()
	name := p.CharacterName
	if name == "" {
		name = "(unidentified)"
	}
	lines := []string{
		"Operator:   " + name,
		fmt.Sprintf("Level:      %d %s", p.CharacterLevel, LevelBar(p.ExperiencePoints, 20)),
		fmt.Sprintf("Experience: %d XP", p.ExperiencePoints),
		fmt.Sprintf("Missions:   %d/%d (%d%%)", p.CompletedMissions, p.TotalMissions, p.ProgressPercentage),
		fmt.Sprintf("Commands:   %d unlocked", p.UnlockedCommands),
		fmt.Sprintf("Session:    %ds", p.SessionTime),
	}
	if err := s.print(ctx, console.StyleSystem, "=== PROGRESS ==="); err != nil {
		return err
	}
	return s.print(ctx, console.StyleInfo, lines...)
}

// LevelBar draws progress towards the next level, e.g. "[#####...............]".
func LevelBar(xp, width int) string {
	if width <= 0 {
		return ""
	}
	into := xp % story.XPPerLevel
	if into < 0 {
		into = 0
	}
	filled := into * width / story.XPPerLevel
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// ShowBriefing prints the current mission's briefing.
func (s *System) ShowBriefing(ctx context.Context) error {
	m, ok := s.story.CurrentMission()
	if !ok {
		return s.print(ctx, console.StyleInfo, "No briefing available.")
	}
	return s.showBriefing(ctx, m)
}

func (s *System) showBriefing(ctx context.Context, m storydata.Mission) error {
	if len(m.Briefing) == 0 {
		return s.print(ctx, console.StyleInfo, "No briefing available.")
	}
	if err := s.print(ctx, console.StyleSystem, "=== BRIEFING: "+m.Title+" ==="); err != nil {
		return err
	}
	return s.print(ctx, console.StyleStory, m.Briefing...)
}

// ShowAll prints every mission with its status in a table.
func (s *System) ShowAll(ctx context.Context) error {
	var buf bytes.Buffer
	tbl := table.New("#", "Mission", "Status", "Reward").WithWriter(&buf)
	for i, m := range s.story.Data().Missions {
		tbl.AddRow(i+1, m.Title, s.status(m.ID), fmt.Sprintf("%d XP", m.CompletionReward))
	}
	tbl.Print()

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if err := s.print(ctx, console.StyleOutput, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func (s *System) status(id storydata.MissionID) string {
	switch {
	case s.story.IsMissionCompleted(id):
		return "COMPLETE"
	case s.story.CurrentMissionID() == id:
		return "ACTIVE"
	default:
		return "LOCKED"
	}
}

// ShowHelp lists the mission subcommands.
func (s *System) ShowHelp(ctx context.Context) error {
	return s.print(ctx, console.StyleInfo,
		"Usage: mission [subcommand]",
		"  (none)      show the current mission",
		"  objectives  list objectives and their status",
		"  hint        get a hint for the next step",
		"  progress    show overall progress",
		"  briefing    replay the mission briefing",
		"  all         list every mission",
	)
}

// IsObjectiveCompleted checks an objective of the current mission.
func (s *System) IsObjectiveCompleted(id storydata.ObjectiveID) bool {
	return s.story.ObjectiveCompleted(s.story.CurrentMissionID(), id)
}

// IsObjectiveTextCompleted checks an objective by its display text. Text that
// matches no objective is reported as incomplete.
func (s *System) IsObjectiveTextCompleted(text string) bool {
	for _, m := range s.story.Data().Missions {
		for _, o := range m.Objectives {
			if o.Text == text {
				return s.story.ObjectiveCompleted(m.ID, o.ID)
			}
		}
	}
	return false
}

// flagFor maps an action to the story flag it raises, if any.
func flagFor(action string, details map[string]any) string {
	switch action {
	case ActionUsedLS, ActionUsedPWD, ActionUsedScan, ActionLearnedHelp, ActionMetOracle:
		return action
	case ActionReadFile:
		switch detail(details, "filename") {
		case "briefing.txt":
			return "read_briefing"
		case "fragment_7.dat":
			return "found_fragment"
		}
	case ActionChangedDirectory:
		if detail(details, "path") == "/archives" {
			return "visited_archives"
		}
	}
	return ""
}

func detail(details map[string]any, key string) string {
	v, _ := details[key].(string)
	return v
}

// TrackAction records a player action and re-checks the current mission. When
// the mission completes it plays the completion sequence and moves on. It
// reports whether a mission was completed.
func (s *System) TrackAction(ctx context.Context, action string, details map[string]any) (bool, error) {
	if flag := flagFor(action, details); flag != "" {
		s.story.SetStoryFlag(flag)
	}

	current, _ := s.story.CurrentMission()
	if !s.story.CheckObjectiveCompletion(action, details) {
		return false, nil
	}

	s.logger.Info("mission objectives complete", "mission", current.ID, "action", action)
	return true, s.completionSequence(ctx, current)
}

func (s *System) completionSequence(ctx context.Context, m storydata.Mission) error {
	lines := []string{
		strings.Repeat("=", 40),
		"  MISSION COMPLETE: " + m.Title,
		fmt.Sprintf("  +%d XP (Level %d)", m.CompletionReward, s.story.CharacterLevel()),
	}
	if len(m.UnlockCommands) > 0 {
		lines = append(lines, "  New commands unlocked: "+strings.Join(m.UnlockCommands, ", "))
	}
	lines = append(lines, strings.Repeat("=", 40))
	if err := s.print(ctx, console.StyleSuccess, lines...); err != nil {
		return err
	}
	// Beats of the mission just finished.
	for _, beat := range m.StoryBeats {
		if err := s.print(ctx, console.StyleOutput, "> "+beat); err != nil {
			return err
		}
	}

	s.anim.Trigger(AnimationMissionComplete, map[string]any{
		"mission": string(m.ID),
		"reward":  m.CompletionReward,
		"level":   s.story.CharacterLevel(),
	})

	next, advanced := s.story.TriggerStoryEvent(story.EventMissionCompleted, map[string]any{"mission": string(m.ID)})
	if s.onComplete != nil {
		s.onComplete(ctx, m)
	}
	if !advanced {
		return s.print(ctx, console.StyleStory, "All missions complete. The signal goes quiet.")
	}
	return s.showBriefing(ctx, next)
}
