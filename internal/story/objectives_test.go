package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberterm/internal/storydata"
)

func TestCheckObjectiveCompletion_Prologue(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetStoryFlag("met_oracle")
	e.SetStoryFlag("learned_help")

	assert.False(t, e.CheckObjectiveCompletion("learned_help", nil), "name still missing")

	e.SetCharacterName("X")
	require.True(t, e.CheckObjectiveCompletion("character_named", nil))

	assert.Equal(t, 100, e.ExperiencePoints())
	for _, cmd := range []string{"whoami", "date", "status"} {
		assert.True(t, e.HasUnlockedCommand(cmd), cmd)
	}
	assert.Equal(t, storydata.Prologue, e.CurrentMissionID(), "completion does not advance")

	e.TriggerStoryEvent(EventMissionCompleted, nil)
	assert.Equal(t, storydata.Tutorial, e.CurrentMissionID())
}

func TestCheckObjectiveCompletion_AlreadyCompleted(t *testing.T) {
	e, _ := newTestEngine(t)
	e.SetStoryFlag("met_oracle")
	e.SetStoryFlag("learned_help")
	e.SetCharacterName("X")

	require.True(t, e.CheckObjectiveCompletion("", nil))
	assert.False(t, e.CheckObjectiveCompletion("", nil))
	assert.Equal(t, 100, e.ExperiencePoints())
}

func TestCheckObjectiveCompletion_UnmappedMissionNeverCompletes(t *testing.T) {
	e, _ := newTestEngine(t)
	for e.CurrentMissionID() != storydata.CodeBreaking {
		_, ok := e.AdvanceToNextMission()
		require.True(t, ok)
	}
	for _, flag := range []string{"decrypted_fragment_7.dat", "decrypted_access.key", "used_trace"} {
		e.SetStoryFlag(flag)
	}

	assert.False(t, HasObjectiveChecks(storydata.CodeBreaking))
	assert.False(t, e.CheckObjectiveCompletion("used_trace", nil))
	assert.Empty(t, e.CompletedMissions())
}

func TestCompletedObjectiveCount(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.Equal(t, 0, e.CompletedObjectiveCount())

	e.SetStoryFlag("met_oracle")
	assert.Equal(t, 1, e.CompletedObjectiveCount())
	assert.True(t, e.ObjectiveCompleted(storydata.Prologue, storydata.ObjMeetOracle))
	assert.False(t, e.ObjectiveCompleted(storydata.Prologue, storydata.ObjLearnHelp))

	e.SetCharacterName("Neo")
	assert.Equal(t, 2, e.CompletedObjectiveCount())
}

func TestObjectiveCompleted_UnknownObjective(t *testing.T) {
	e, _ := newTestEngine(t)
	assert.False(t, e.ObjectiveCompleted(storydata.Revelation, storydata.ObjReadTruth))
	assert.False(t, e.ObjectiveCompleted("ghost", "nothing"))
}
