// Package startup runs the onboarding sequence shown when a session opens.
//
// The sequence is a fixed scene graph. A first encounter plays
//
//	Boot → OracleIntro → CharacterCreation → Tutorial → Transition
//
// and a returning player, recognised by the completed_intro flag, gets
//
//	WelcomeBack → MissionStatus → Transition
//
// Every story mutation of a scene happens before that scene's pacing, so
// skipping a pause never skips state.
package startup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
	"github.com/roach88/cyberterm/internal/terminal"
)

// Flags raised by the sequence.
const (
	FlagCompletedIntro = "completed_intro"
	FlagMetOracle      = "met_oracle"
)

// AnonymousName is used when the player declines to give a name twice.
const AnonymousName = "Anonymous"

// Animation names emitted by the scenes.
const (
	AnimationBoot       = "boot_sequence"
	AnimationGlitch     = "glitch"
	AnimationTransition = "transition"
)

// State is the scene the sequencer is in.
type State int

const (
	NotStarted State = iota
	Boot
	OracleIntro
	CharacterCreation
	Tutorial
	WelcomeBack
	MissionStatus
	Transition
	Done
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Boot:
		return "boot"
	case OracleIntro:
		return "oracle_intro"
	case CharacterCreation:
		return "character_creation"
	case Tutorial:
		return "tutorial"
	case WelcomeBack:
		return "welcome_back"
	case MissionStatus:
		return "mission_status"
	case Transition:
		return "transition"
	case Done:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Flows.
var (
	FirstTimeFlow = []State{Boot, OracleIntro, CharacterCreation, Tutorial, Transition}
	ReturningFlow = []State{WelcomeBack, MissionStatus, Transition}
)

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithPacer routes scene pauses through p. Without a pacer the sequence
// runs without pauses.
func WithPacer(p *console.Pacer) Option {
	return func(s *Sequencer) { s.pacer = p }
}

// WithDelays sets the pause after each line and after each scene.
func WithDelays(line, scene time.Duration) Option {
	return func(s *Sequencer) {
		s.lineDelay = line
		s.sceneDelay = scene
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sequencer) { s.logger = l }
}

// Sequencer plays the onboarding scenes. It implements terminal.Intro and may
// be run again, e.g. after a reset.
type Sequencer struct {
	pacer      *console.Pacer
	lineDelay  time.Duration
	sceneDelay time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	state   State
	visited []State
}

var _ terminal.Intro = (*Sequencer)(nil)

// New creates a sequencer.
func New(opts ...Option) *Sequencer {
	s := &Sequencer{
		lineDelay:  400 * time.Millisecond,
		sceneDelay: 1200 * time.Millisecond,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the current scene.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Visited returns the scenes entered by the last run, in order, ending with
// Done when the run finished.
func (s *Sequencer) Visited() []State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]State(nil), s.visited...)
}

func (s *Sequencer) enter(st State) {
	s.mu.Lock()
	s.state = st
	s.visited = append(s.visited, st)
	s.mu.Unlock()
	s.logger.Debug("startup scene", "scene", st.String())
}

// Run plays the flow that matches the player's progress.
func (s *Sequencer) Run(ctx context.Context, sc *terminal.SessionContext) error {
	s.mu.Lock()
	s.state = NotStarted
	s.visited = nil
	s.mu.Unlock()

	if !sc.StoryMode() {
		s.enter(Done)
		return s.say(ctx, sc, console.StyleSystem,
			"NEON TERMINAL v2.0.77",
			"Story mode offline. Type 'help' for available commands.")
	}

	flow := FirstTimeFlow
	if sc.Story.HasStoryFlag(FlagCompletedIntro) {
		flow = ReturningFlow
	}

	for _, st := range flow {
		s.enter(st)
		if err := s.scene(st, flow)(ctx, sc); err != nil {
			return fmt.Errorf("startup %s: %w", st, err)
		}
		if err := s.pause(ctx, s.sceneDelay); err != nil {
			return err
		}
	}
	s.enter(Done)
	return nil
}

func (s *Sequencer) scene(st State, flow []State) func(context.Context, *terminal.SessionContext) error {
	switch st {
	case Boot:
		return s.boot
	case OracleIntro:
		return s.oracleIntro
	case CharacterCreation:
		return s.characterCreation
	case Tutorial:
		return s.tutorial
	case WelcomeBack:
		return s.welcomeBack
	case MissionStatus:
		return s.missionStatus
	case Transition:
		firstTime := len(flow) > 0 && flow[0] == Boot
		return func(ctx context.Context, sc *terminal.SessionContext) error {
			return s.transition(ctx, sc, firstTime)
		}
	default:
		return func(context.Context, *terminal.SessionContext) error { return nil }
	}
}

func (s *Sequencer) boot(ctx context.Context, sc *terminal.SessionContext) error {
	sc.Animate(AnimationBoot, nil)
	return s.say(ctx, sc, console.StyleSystem,
		"NEON TERMINAL v2.0.77",
		"Initializing neural interface...",
		"Memory check.............. OK",
		"Network uplink............ UNSTABLE",
		"Boot complete.")
}

func (s *Sequencer) oracleIntro(ctx context.Context, sc *terminal.SessionContext) error {
	sc.Animate(AnimationGlitch, map[string]any{"source": "oracle"})
	if err := s.say(ctx, sc, console.StyleWarning, "[INCOMING TRANSMISSION]"); err != nil {
		return err
	}
	return s.oracleSays(ctx, sc, sc.Story.NPCDialogue("oracle", "intro")...)
}

func (s *Sequencer) characterCreation(ctx context.Context, sc *terminal.SessionContext) error {
	if err := s.oracleSays(ctx, sc, "Before we go further. What do they call you?"); err != nil {
		return err
	}

	name, err := sc.ReadLine(ctx, "name>")
	if err != nil {
		return err
	}
	if strings.TrimSpace(name) == "" {
		if err := s.oracleSays(ctx, sc, "Everyone has a name. Even if it is only a handle."); err != nil {
			return err
		}
		name, err = sc.ReadLine(ctx, "name>")
		if err != nil {
			return err
		}
		if strings.TrimSpace(name) == "" {
			name = AnonymousName
		}
	}

	name = sc.Story.SetCharacterName(name)
	sc.Story.TriggerStoryEvent(story.EventCharacterNamed, map[string]any{"name": name})
	sc.RefreshPrompt()

	return s.oracleSays(ctx, sc, fmt.Sprintf("%s. I will remember that.", name))
}

func (s *Sequencer) tutorial(ctx context.Context, sc *terminal.SessionContext) error {
	if m, ok := sc.Story.Data().Mission(storydata.Prologue); ok {
		for _, cmd := range m.RequiredCommands {
			sc.Story.UnlockCommand(cmd)
		}
	}

	if err := s.oracleSays(ctx, sc, sc.Story.NPCDialogue("oracle", "briefing")...); err != nil {
		return err
	}
	return s.say(ctx, sc, console.StyleInfo,
		"Available commands: "+strings.Join(sc.Story.UnlockedCommands(), ", "))
}

func (s *Sequencer) welcomeBack(ctx context.Context, sc *terminal.SessionContext) error {
	sc.Animate(AnimationGlitch, map[string]any{"source": "reconnect"})
	return s.say(ctx, sc, console.StyleSystem,
		"NEON TERMINAL v2.0.77",
		"Connection restored.",
		fmt.Sprintf("Welcome back, %s. Level %d, %d XP.",
			sc.Story.CharacterName(), sc.Story.CharacterLevel(), sc.Story.ExperiencePoints()))
}

func (s *Sequencer) missionStatus(ctx context.Context, sc *terminal.SessionContext) error {
	if sc.Missions == nil {
		return nil
	}
	return sc.Missions.ShowCurrentMission(ctx)
}

func (s *Sequencer) transition(ctx context.Context, sc *terminal.SessionContext, firstTime bool) error {
	if firstTime {
		sc.Story.SetStoryFlag(FlagCompletedIntro)
	}
	sc.Story.SetStoryFlag(FlagMetOracle)
	sc.RefreshPrompt()

	sc.Animate(AnimationTransition, nil)
	return s.say(ctx, sc, console.StyleSuccess,
		"Link established. Type 'help' to see what you can do, 'mission' to see why you are here.")
}

func (s *Sequencer) oracleSays(ctx context.Context, sc *terminal.SessionContext, lines ...string) error {
	for _, line := range lines {
		sc.Story.AddDialogueToHistory("oracle", line)
		if err := s.say(ctx, sc, console.StyleStory, "ORACLE: "+line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) say(ctx context.Context, sc *terminal.SessionContext, style console.Style, lines ...string) error {
	for _, line := range lines {
		if err := sc.Print(ctx, style, line); err != nil {
			return err
		}
		if err := s.pause(ctx, s.lineDelay); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequencer) pause(ctx context.Context, d time.Duration) error {
	if s.pacer == nil {
		return ctx.Err()
	}
	return s.pacer.Pause(ctx, d)
}
