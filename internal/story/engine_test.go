package story

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberterm/internal/storydata"
	"github.com/roach88/cyberterm/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testData(t *testing.T) *storydata.Dataset {
	t.Helper()
	ds, err := storydata.Default()
	require.NoError(t, err)
	return ds
}

// newTestEngine creates an engine with a fixed clock over fresh memory storage.
func newTestEngine(t *testing.T, opts ...Option) (*Engine, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	base := []Option{
		WithLogger(discardLogger()),
		WithClock(testutil.NewFixedClock(time.Time{})),
		WithRand(testutil.NewSequenceRand(42)),
	}
	return New(testData(t), storage, append(base, opts...)...), storage
}

func TestNew_Defaults(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, storydata.Prologue, e.CurrentMissionID())
	assert.Equal(t, 1, e.CharacterLevel())
	assert.Equal(t, 0, e.ExperiencePoints())
	assert.Empty(t, e.CharacterName())
	assert.Empty(t, e.CompletedMissions())
	assert.Equal(t, []string{"help", "clear", "about", "mission", "oracle"}, e.UnlockedCommands())
	assert.Empty(t, e.StoryFlags())
}

func TestCompleteMission_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	require.True(t, e.CompleteMission(storydata.Prologue))
	first := e.Snapshot()

	assert.False(t, e.CompleteMission(storydata.Prologue))
	assert.Equal(t, first, e.Snapshot())
	assert.Equal(t, 100, e.ExperiencePoints())
	assert.Equal(t, []storydata.MissionID{storydata.Prologue}, e.CompletedMissions())
}

func TestCompleteMission_UnknownMission(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.False(t, e.CompleteMission("epilogue"))
	assert.Empty(t, e.CompletedMissions())
}

func TestCompleteMission_GrantsUnlocksAndReward(t *testing.T) {
	e, _ := newTestEngine(t)

	require.True(t, e.CompleteMission(storydata.Prologue))

	for _, cmd := range []string{"whoami", "date", "status"} {
		assert.True(t, e.HasUnlockedCommand(cmd), cmd)
	}
	assert.Equal(t, 100, e.ExperiencePoints())
	assert.Equal(t, 1, e.CharacterLevel())
}

func TestMonotonicity(t *testing.T) {
	e, _ := newTestEngine(t)

	prevCmds, prevFlags, prevXP, prevDone := 0, 0, 0, 0
	check := func() {
		t.Helper()
		assert.GreaterOrEqual(t, len(e.UnlockedCommands()), prevCmds)
		assert.GreaterOrEqual(t, len(e.StoryFlags()), prevFlags)
		assert.GreaterOrEqual(t, e.ExperiencePoints(), prevXP)
		assert.GreaterOrEqual(t, len(e.CompletedMissions()), prevDone)
		assert.Equal(t, LevelForXP(e.ExperiencePoints()), e.CharacterLevel())
		prevCmds, prevFlags = len(e.UnlockedCommands()), len(e.StoryFlags())
		prevXP, prevDone = e.ExperiencePoints(), len(e.CompletedMissions())
	}

	for _, id := range storydata.MissionOrder {
		e.SetStoryFlag("flag_" + string(id))
		check()
		e.UnlockCommand("help")
		check()
		e.CompleteMission(id)
		check()
		e.CompleteMission(id)
		check()
		e.TriggerStoryEvent(EventMissionCompleted, nil)
		check()
	}

	assert.Equal(t, 2200, e.ExperiencePoints())
	assert.Equal(t, 5, e.CharacterLevel())
}

func TestLevelForXP(t *testing.T) {
	tests := []struct {
		xp    int
		level int
	}{
		{0, 1},
		{499, 1},
		{500, 2},
		{999, 2},
		{1000, 3},
		{1999, 4},
		{-10, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.level, LevelForXP(tt.xp), "xp=%d", tt.xp)
	}
}

func TestAdvanceToNextMission_VisitsOrderThenStops(t *testing.T) {
	e, _ := newTestEngine(t)

	var visited []storydata.MissionID
	for {
		m, ok := e.AdvanceToNextMission()
		if !ok {
			break
		}
		visited = append(visited, m.ID)
	}

	assert.Equal(t, []storydata.MissionID{
		storydata.Tutorial,
		storydata.DataRecovery,
		storydata.CodeBreaking,
		storydata.SystemInfiltration,
		storydata.Revelation,
	}, visited)

	for i := 0; i < 3; i++ {
		_, ok := e.AdvanceToNextMission()
		assert.False(t, ok)
		assert.Equal(t, storydata.Revelation, e.CurrentMissionID())
	}
}

func TestPersistence_RoundTrip(t *testing.T) {
	e, storage := newTestEngine(t)

	e.SetCharacterName("Neo")
	e.SetStoryFlag("met_oracle")
	e.SetStoryFlag("used_ls")
	e.UnlockCommand("scan")
	e.CompleteMission(storydata.Prologue)
	e.AdvanceToNextMission()

	restored := New(testData(t), storage,
		WithLogger(discardLogger()),
		WithClock(testutil.NewFixedClock(time.Time{})))

	assert.Equal(t, "Neo", restored.CharacterName())
	assert.ElementsMatch(t, e.StoryFlags(), restored.StoryFlags())
	assert.ElementsMatch(t, e.UnlockedCommands(), restored.UnlockedCommands())
	assert.Equal(t, e.CurrentMissionID(), restored.CurrentMissionID())
	assert.Equal(t, e.CompletedMissions(), restored.CompletedMissions())
	assert.Equal(t, e.ExperiencePoints(), restored.ExperiencePoints())
	assert.Equal(t, e.CharacterLevel(), restored.CharacterLevel())
}

func TestPersistence_SlotLayout(t *testing.T) {
	e, storage := newTestEngine(t)
	e.SetStoryFlag("met_oracle")

	raw, ok, err := storage.Load(context.Background(), DefaultSlotKey)
	require.NoError(t, err)
	require.True(t, ok)

	var slot map[string]any
	require.NoError(t, json.Unmarshal(raw, &slot))
	for _, key := range []string{
		"currentMission", "completedMissions", "characterName", "characterLevel",
		"unlockedCommands", "storyFlags", "experiencePoints", "sessionStartTime",
	} {
		assert.Contains(t, slot, key)
	}
	assert.Equal(t, []any{"met_oracle"}, slot["storyFlags"])
}

func TestRestore_MalformedSlotFallsBack(t *testing.T) {
	storage := NewMemoryStorage()
	require.NoError(t, storage.Save(context.Background(), DefaultSlotKey, []byte("{not json")))

	e := New(testData(t), storage, WithLogger(discardLogger()))

	assert.Equal(t, storydata.Prologue, e.CurrentMissionID())
	assert.Equal(t, 0, e.ExperiencePoints())
}

func TestRestore_MergesOverDefaults(t *testing.T) {
	storage := NewMemoryStorage()
	slot := `{"currentMission":"atlantis","completedMissions":["prologue","ghost","prologue"],` +
		`"characterName":"Trin","characterLevel":99,"unlockedCommands":["scan"],` +
		`"storyFlags":["met_oracle"],"experiencePoints":600}`
	require.NoError(t, storage.Save(context.Background(), DefaultSlotKey, []byte(slot)))

	e := New(testData(t), storage, WithLogger(discardLogger()))

	assert.Equal(t, storydata.Prologue, e.CurrentMissionID(), "unknown mission falls back")
	assert.Equal(t, []storydata.MissionID{storydata.Prologue}, e.CompletedMissions())
	assert.Equal(t, 2, e.CharacterLevel(), "level is derived, not trusted")
	assert.True(t, e.HasUnlockedCommand("help"), "base commands always present")
	assert.True(t, e.HasUnlockedCommand("scan"))
	assert.True(t, e.HasStoryFlag("met_oracle"))
}

func TestPersistence_FailureIsSwallowed(t *testing.T) {
	e, storage := newTestEngine(t)
	storage.FailWrites = true

	assert.True(t, e.SetStoryFlag("met_oracle"))
	assert.True(t, e.HasStoryFlag("met_oracle"), "in-memory state stays authoritative")
	assert.True(t, e.CompleteMission(storydata.Prologue))
}

func TestPersistence_LeavesOtherSlotsAlone(t *testing.T) {
	e, storage := newTestEngine(t)
	ctx := context.Background()
	require.NoError(t, storage.Save(ctx, "puzzle_progress", []byte(`{"solved":3}`)))

	e.SetStoryFlag("x")
	e.Reset()

	raw, ok, err := storage.Load(ctx, "puzzle_progress")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"solved":3}`, string(raw))
}

func TestSetCharacterName(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Equal(t, "Case", e.SetCharacterName("  Case "))
	assert.Equal(t, "Case", e.CharacterName())
}

func TestSetCharacterName_EmptyGeneratesHandle(t *testing.T) {
	for _, input := range []string{"", "   "} {
		e := New(testData(t), nil, WithLogger(discardLogger()))
		name := e.SetCharacterName(input)
		assert.Regexp(t, `^Hacker_\d{1,3}$`, name)
		assert.Equal(t, name, e.CharacterName())
	}
}

func TestSetCharacterName_UsesRand(t *testing.T) {
	e, _ := newTestEngine(t, WithRand(testutil.NewSequenceRand(7)))
	assert.Equal(t, "Hacker_7", e.SetCharacterName(""))
}

func TestSetCharacterName_NormalisesNFC(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, "Zo\u00e9", e.SetCharacterName("Zoe\u0301"))
}

func TestUnlockCommand_ReportsNewness(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.True(t, e.UnlockCommand("scan"))
	assert.False(t, e.UnlockCommand("scan"))
	assert.False(t, e.UnlockCommand("help"))
	assert.True(t, e.HasUnlockedCommand("scan"))
	assert.False(t, e.HasUnlockedCommand("hack"))
}

func TestSetStoryFlag_Idempotent(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.True(t, e.SetStoryFlag("read_briefing"))
	assert.False(t, e.SetStoryFlag("read_briefing"))
	assert.Equal(t, []string{"read_briefing"}, e.StoryFlags())
}

func TestNPCDialogue(t *testing.T) {
	e, _ := newTestEngine(t)

	intro := e.NPCDialogue("oracle", "")
	assert.Equal(t, e.NPCDialogue("oracle", "intro"), intro)
	assert.NotEmpty(t, intro)

	assert.Equal(t, []string{DialogueNotFound}, e.NPCDialogue("nonexistent_npc", ""))
	assert.Equal(t, []string{"[ERROR: Dialogue not found]"}, e.NPCDialogue("oracle", "no_such_context"))
}

func TestDialogueHistory_Capped(t *testing.T) {
	e, _ := newTestEngine(t)

	for i := 0; i < 60; i++ {
		e.AddDialogueToHistory("oracle", string(rune('A'+i%26))+"-"+strconv.Itoa(i))
	}

	history := e.DialogueHistory()
	require.Len(t, history, MaxDialogueHistory)
	assert.Equal(t, "K-10", history[0].Dialogue)
	assert.Equal(t, "H-59", history[49].Dialogue)
}

func TestAvailableFiles_RespectsUnlockCondition(t *testing.T) {
	e, _ := newTestEngine(t)

	files := e.AvailableFiles("/archives")
	assert.Contains(t, files, "index.dat")
	assert.NotContains(t, files, "fragment_7.dat")

	_, ok := e.FileContent("/archives", "fragment_7.dat")
	assert.False(t, ok)

	e.SetStoryFlag("used_scan")

	files = e.AvailableFiles("/archives")
	assert.Contains(t, files, "fragment_7.dat")

	fc, ok := e.FileContent("/archives", "fragment_7.dat")
	require.True(t, ok)
	assert.True(t, fc.Encrypted)
	assert.Equal(t, "caesar", fc.Cipher)
	assert.Equal(t, "Nexus core is the mirror", fc.Decrypted)
}

func TestAvailableFiles_UnknownDirectory(t *testing.T) {
	e, _ := newTestEngine(t)

	assert.Empty(t, e.AvailableFiles("/nowhere"))
	_, ok := e.FileContent("/nowhere", "x")
	assert.False(t, ok)
	_, ok = e.FileContent("/home/user", "missing.txt")
	assert.False(t, ok)
}

func TestTriggerStoryEvent(t *testing.T) {
	e, _ := newTestEngine(t)

	e.TriggerStoryEvent(EventCharacterNamed, map[string]any{"name": "Neo"})
	assert.True(t, e.HasStoryFlag("character_created"))

	e.TriggerStoryEvent(EventFirstCommand, nil)
	assert.True(t, e.HasStoryFlag("terminal_mastery_begun"))

	next, ok := e.TriggerStoryEvent(EventMissionCompleted, nil)
	require.True(t, ok)
	assert.Equal(t, storydata.Tutorial, next.ID)
	for _, cmd := range next.RequiredCommands {
		assert.True(t, e.HasUnlockedCommand(cmd), cmd)
	}

	_, ok = e.TriggerStoryEvent("unknown_event", nil)
	assert.False(t, ok)
}

func TestProgressSummary(t *testing.T) {
	clock := testutil.NewFixedClock(time.Time{})
	e, _ := newTestEngine(t, WithClock(clock))
	e.SetCharacterName("Neo")
	e.SetStoryFlag("met_oracle")
	e.CompleteMission(storydata.Prologue)
	clock.Advance(90 * time.Second)

	s := e.ProgressSummary()
	assert.Equal(t, ProgressSummary{
		CharacterName:      "Neo",
		CharacterLevel:     1,
		CurrentMission:     storydata.Prologue,
		CompletedMissions:  1,
		TotalMissions:      6,
		ProgressPercentage: 17,
		ExperiencePoints:   100,
		UnlockedCommands:   8,
		SessionTime:        90,
		StoryFlags:         1,
	}, s)
}

func TestReset(t *testing.T) {
	e, storage := newTestEngine(t)
	e.SetCharacterName("Neo")
	e.CompleteMission(storydata.Prologue)

	e.Reset()

	assert.Empty(t, e.CharacterName())
	assert.Equal(t, 0, e.ExperiencePoints())
	assert.False(t, e.HasUnlockedCommand("whoami"))
	_, ok, err := storage.Load(context.Background(), DefaultSlotKey)
	require.NoError(t, err)
	assert.False(t, ok)
}
