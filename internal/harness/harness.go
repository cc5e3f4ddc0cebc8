package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/startup"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
	"github.com/roach88/cyberterm/internal/terminal"
	"github.com/roach88/cyberterm/internal/testutil"
)

// Harness holds the per-run fixtures of one scenario.
type Harness struct {
	data    *storydata.Dataset
	storage *story.MemoryStorage
	clock   *testutil.FixedClock
	engine  *story.Engine
	out     *console.Transcript
	anim    *console.Recorder
	sink    *traceSink
	logger  *slog.Logger
}

// Run executes a scenario against the embedded story data.
func Run(scenario *Scenario) (*Result, error) {
	ds, err := storydata.Default()
	if err != nil {
		return nil, fmt.Errorf("load story data: %w", err)
	}
	return RunWithData(context.Background(), ds, scenario)
}

// RunWithData executes a scenario and returns the result.
//
// Each scenario runs in fresh in-memory storage. Deterministic helpers ensure
// reproducible results.
//
// Execution flow:
// 1. Build the story engine and session
// 2. Apply character and setup
// 3. Play the intro (unless skipped) and the input lines
// 4. Evaluate assertions against the final state and output
func RunWithData(ctx context.Context, ds *storydata.Dataset, scenario *Scenario) (*Result, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &Harness{
		data:    ds,
		storage: story.NewMemoryStorage(),
		clock:   testutil.NewFixedClock(testutil.Epoch),
		out:     console.NewTranscript(),
		anim:    &console.Recorder{},
		sink:    newTraceSink(),
		logger:  logger,
	}
	h.engine = story.New(ds, h.storage,
		story.WithLogger(logger),
		story.WithClock(h.clock),
		story.WithRand(testutil.NewSequenceRand(7)))

	input := scenario.Input
	var intro terminal.Intro
	if scenario.SkipIntro {
		if scenario.Character != "" {
			name := h.engine.SetCharacterName(scenario.Character)
			h.engine.TriggerStoryEvent(story.EventCharacterNamed, map[string]any{"name": name})
		}
	} else {
		intro = startup.New(startup.WithLogger(logger))
		if scenario.Character != "" {
			input = append([]string{scenario.Character}, input...)
		}
	}

	if err := h.applySetup(scenario.Setup); err != nil {
		return nil, fmt.Errorf("failed to apply setup: %w", err)
	}

	session, err := terminal.NewSession(terminal.Config{
		Story:      h.engine,
		Out:        h.out,
		Animations: h.anim,
		Intro:      intro,
		Events:     h.sink,
		Storage:    h.storage,
		Logger:     logger,
		Clock:      h.clock,
		SessionID:  "scenario-" + scenario.Name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	for _, line := range input {
		session.Submit(line)
	}
	session.Close()
	if err := session.Run(ctx); err != nil {
		return nil, fmt.Errorf("failed to run session: %w", err)
	}

	result := h.collect()
	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func (h *Harness) applySetup(s Setup) error {
	for _, flag := range s.Flags {
		h.engine.SetStoryFlag(flag)
	}
	for _, cmd := range s.Unlock {
		h.engine.UnlockCommand(cmd)
	}
	for _, raw := range s.Missions {
		id := storydata.MissionID(raw)
		if !h.data.HasMission(id) {
			return fmt.Errorf("setup: unknown mission %q", raw)
		}
		h.engine.CompleteMission(id)
		if h.engine.CurrentMissionID() == id {
			h.engine.TriggerStoryEvent(story.EventMissionCompleted, map[string]any{"mission": raw})
		}
	}
	return nil
}

func (h *Harness) collect() *Result {
	r := NewResult()
	for _, line := range h.out.History() {
		r.Output = append(r.Output, line.Text)
	}
	r.Trace = h.sink.Events()
	r.Animations = h.anim.Names()
	r.Summary = h.engine.ProgressSummary()
	r.StoryFlags = h.engine.StoryFlags()
	r.UnlockedCommands = h.engine.UnlockedCommands()
	r.CompletedMissions = []string{}
	for _, id := range h.engine.CompletedMissions() {
		r.CompletedMissions = append(r.CompletedMissions, string(id))
	}
	return r
}
