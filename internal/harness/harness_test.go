package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int { return &n }

func TestRun_TestdataScenarios(t *testing.T) {
	paths, err := FindScenarios("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)

			result, err := Run(scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRunWithGolden_PrologueHelp(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/prologue_help.yaml")
	require.NoError(t, err)

	result, err := RunWithGolden(t, scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_IsDeterministic(t *testing.T) {
	scenario, err := LoadScenario("testdata/scenarios/tutorial_walkthrough.yaml")
	require.NoError(t, err)

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	a, err := NewSnapshot(scenario.Name, first).Marshal()
	require.NoError(t, err)
	b, err := NewSnapshot(scenario.Name, second).Marshal()
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, first.Output, second.Output)
}

func TestRun_FailingAssertionsAreReported(t *testing.T) {
	scenario := &Scenario{
		Name:        "failing",
		Description: "Expectations that cannot hold",
		SkipIntro:   true,
		Input:       []string{"about"},
		Assertions: []Assertion{
			{Type: AssertFlagSet, Flag: "never_set"},
			{Type: AssertExperience, Value: intPtr(999)},
			{Type: AssertOutputContains, Text: "NEON TERMINAL"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "assertion 0")
	assert.Contains(t, result.Errors[0], "never_set")
	assert.Contains(t, result.Errors[1], "999 XP")
}

func TestRun_SkipIntroWithoutCharacter(t *testing.T) {
	scenario := &Scenario{
		Name:        "nameless",
		Description: "No intro, no name",
		SkipIntro:   true,
		Input:       []string{"whoami"},
		Assertions: []Assertion{
			{Type: AssertFlagUnset, Flag: "completed_intro"},
			{Type: AssertOutputNotContains, Text: "[INCOMING TRANSMISSION]"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Empty(t, result.Summary.CharacterName)
}

func TestRun_IntroWithBlankNames(t *testing.T) {
	scenario := &Scenario{
		Name:        "anonymous",
		Description: "Two blank answers fall back to Anonymous",
		Input:       []string{"", ""},
		Assertions: []Assertion{
			{Type: AssertFlagSet, Flag: "completed_intro"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, "Anonymous", result.Summary.CharacterName)
}

func TestRun_SetupUnknownMission(t *testing.T) {
	scenario := &Scenario{
		Name:        "bad_setup",
		Description: "Unknown mission in setup",
		SkipIntro:   true,
		Setup:       Setup{Missions: []string{"epilogue"}},
		Assertions:  []Assertion{{Type: AssertLevel, Value: intPtr(1)}},
	}

	_, err := Run(scenario)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mission "epilogue"`)
}

func TestRun_SetupCompletesMissionsInOrder(t *testing.T) {
	scenario := &Scenario{
		Name:        "advanced",
		Description: "Jump ahead to code breaking",
		SkipIntro:   true,
		Setup: Setup{
			Unlock:   []string{"matrix"},
			Missions: []string{"prologue", "tutorial", "data_recovery"},
		},
		Assertions: []Assertion{
			{Type: AssertCurrentMission, Mission: "code_breaking"},
			{Type: AssertExperience, Value: intPtr(500)},
			{Type: AssertLevel, Value: intPtr(2)},
			{Type: AssertCommandUnlocked, Command: "decrypt"},
			{Type: AssertCommandUnlocked, Command: "matrix"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}
