package terminal

import (
	"context"
	"fmt"
	"strings"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/mission"
)

// DefaultRegistry returns the full command table.
//
// Story-gated: oracle, whoami, date, ls, cat, pwd, cd, scan, decrypt, trace,
// hack, connect, override. Everything else is always available.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.MustRegister(
		Command{Name: "help", Summary: "List commands or describe one", Usage: "help [command]", Run: cmdHelp},
		Command{Name: "clear", Summary: "Clear the screen", Usage: "clear", Run: cmdClear},
		Command{Name: "about", Summary: "About this terminal", Usage: "about", Run: cmdAbout},
		Command{Name: "mission", Summary: "Mission status, hints and briefings", Usage: "mission [objectives|hint|progress|briefing|all]", Run: cmdMission},
		Command{Name: "oracle", Summary: "Talk to the Oracle", Usage: "oracle [topic]", UnlockRequired: true, Run: cmdOracle},
		Command{Name: "whoami", Summary: "Show your identity", Usage: "whoami", UnlockRequired: true, Run: cmdWhoami},
		Command{Name: "date", Summary: "Show the system date", Usage: "date", UnlockRequired: true, Run: cmdDate},
		Command{Name: "status", Summary: "Show system and progress status", Usage: "status", Run: cmdStatus},
		Command{Name: "start", Summary: "Replay the startup sequence", Usage: "start", Run: cmdStart},
		Command{Name: "reset", Summary: "Erase all story progress", Usage: "reset", Run: cmdReset},
	)
	registerFileCommands(r)
	registerNetCommands(r)
	return r
}

func cmdHelp(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) > 0 {
		cmd, ok := sc.Registry.Lookup(args[0])
		if !ok {
			return sc.Print(ctx, console.StyleError, fmt.Sprintf("help: no help for '%s'", args[0]))
		}
		if cmd.UnlockRequired && sc.Story != nil && !sc.Story.HasUnlockedCommand(cmd.Name) {
			return sc.Print(ctx, console.StyleWarning, fmt.Sprintf("%s: [LOCKED] keep playing to unlock this command.", cmd.Name))
		}
		return sc.Print(ctx, console.StyleInfo, cmd.Name+": "+cmd.Summary, "usage: "+cmd.Usage)
	}

	if err := sc.Print(ctx, console.StyleSystem, "Available commands:"); err != nil {
		return err
	}
	for _, cmd := range sc.Registry.Commands() {
		if cmd.UnlockRequired && sc.Story != nil && !sc.Story.HasUnlockedCommand(cmd.Name) {
			continue
		}
		if err := sc.Print(ctx, console.StyleOutput, fmt.Sprintf("  %-10s %s", cmd.Name, cmd.Summary)); err != nil {
			return err
		}
	}
	if sc.Story != nil {
		if m, ok := sc.Story.CurrentMission(); ok {
			if err := sc.Print(ctx, console.StyleInfo, "Current mission: "+m.Title+" (type 'mission')"); err != nil {
				return err
			}
		}
	}
	if err := sc.Print(ctx, console.StyleInfo, "Type 'help <command>' for details."); err != nil {
		return err
	}
	return sc.Track(ctx, mission.ActionLearnedHelp, nil)
}

func cmdClear(_ context.Context, sc *SessionContext, _ []string) error {
	if c, ok := sc.Out.(console.Clearer); ok {
		return c.Clear()
	}
	return nil
}

func cmdAbout(ctx context.Context, sc *SessionContext, _ []string) error {
	return sc.Print(ctx, console.StyleInfo,
		"NEON TERMINAL v2.0.77",
		"A node on the grid. Nobody remembers installing it.",
		"Type 'help' to see what it lets you do.",
	)
}

func cmdMission(ctx context.Context, sc *SessionContext, args []string) error {
	if sc.Missions == nil {
		return sc.Print(ctx, console.StyleWarning, "Mission system offline.")
	}
	return sc.Missions.HandleMissionCommand(ctx, args)
}

func cmdOracle(ctx context.Context, sc *SessionContext, args []string) error {
	if sc.Story == nil {
		return sc.Print(ctx, console.StyleStory, "ORACLE: ...the signal is too weak here.")
	}

	firstContact := !sc.Story.HasStoryFlag("met_oracle")
	topic := "idle"
	switch {
	case len(args) > 0:
		topic = strings.ToLower(args[0])
	case firstContact:
		topic = "intro"
	default:
		if m, ok := sc.Story.CurrentMission(); ok {
			topic = string(m.ID)
		}
	}

	sc.Animate("oracle_contact", map[string]any{"topic": topic})
	for _, line := range sc.Story.NPCDialogue("oracle", topic) {
		sc.Story.AddDialogueToHistory("oracle", line)
		if err := sc.Print(ctx, console.StyleStory, "ORACLE: "+line); err != nil {
			return err
		}
	}
	return sc.Track(ctx, mission.ActionMetOracle, map[string]any{"topic": topic})
}

func cmdWhoami(ctx context.Context, sc *SessionContext, _ []string) error {
	if sc.Story == nil {
		return sc.Print(ctx, console.StyleOutput, "guest")
	}
	name := sc.Story.CharacterName()
	if name == "" {
		name = "unknown"
	}
	return sc.Print(ctx, console.StyleOutput,
		name,
		fmt.Sprintf("Level %d, %d XP", sc.Story.CharacterLevel(), sc.Story.ExperiencePoints()),
	)
}

func cmdDate(ctx context.Context, sc *SessionContext, _ []string) error {
	return sc.Print(ctx, console.StyleOutput, sc.Now().UTC().Format("Mon Jan _2 15:04:05 UTC 2006"))
}

func cmdStatus(ctx context.Context, sc *SessionContext, _ []string) error {
	if err := sc.Print(ctx, console.StyleSystem, "SYSTEM STATUS: NOMINAL"); err != nil {
		return err
	}
	if sc.Missions == nil {
		return nil
	}
	return sc.Missions.ShowProgress(ctx)
}

func cmdStart(ctx context.Context, sc *SessionContext, _ []string) error {
	if sc.Intro == nil {
		return sc.Print(ctx, console.StyleInfo, "Nothing to start.")
	}
	return sc.Intro.Run(ctx, sc)
}

// ResetConfirmation is the word the player must type to confirm a reset.
const ResetConfirmation = "RESET"

func cmdReset(ctx context.Context, sc *SessionContext, _ []string) error {
	if sc.Story == nil {
		return sc.Print(ctx, console.StyleInfo, "Nothing to reset.")
	}
	if err := sc.Print(ctx, console.StyleWarning,
		"WARNING: this erases your identity and all mission progress.",
		"Type "+ResetConfirmation+" to confirm."); err != nil {
		return err
	}
	answer, err := sc.ReadLine(ctx, "confirm>")
	if err != nil {
		return err
	}
	if strings.TrimSpace(answer) != ResetConfirmation {
		return sc.Print(ctx, console.StyleInfo, "Reset cancelled.")
	}

	sc.Story.Reset()
	sc.UI.Cwd = HomeDir
	sc.RefreshPrompt()
	sc.Animate("glitch", map[string]any{"intensity": 1.0})
	if c, ok := sc.Out.(console.Clearer); ok {
		_ = c.Clear()
	}
	if err := sc.Print(ctx, console.StyleSystem, "Progress erased. Rebooting..."); err != nil {
		return err
	}
	if sc.Intro != nil {
		return sc.Intro.Run(ctx, sc)
	}
	return nil
}
