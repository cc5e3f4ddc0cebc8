package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario_Valid(t *testing.T) {
	s, err := ParseScenario([]byte(`
name: sample
description: A sample
character: neo
skip_intro: true
setup:
  flags: [met_oracle]
  unlock: [ls]
  missions: [prologue]
input: [ls, pwd]
assertions:
  - type: level
    value: 1
  - type: event_count
    kind: command
    count: 0
`))
	require.NoError(t, err)

	assert.Equal(t, "sample", s.Name)
	assert.Equal(t, "neo", s.Character)
	assert.True(t, s.SkipIntro)
	assert.Equal(t, []string{"met_oracle"}, s.Setup.Flags)
	assert.Equal(t, []string{"ls"}, s.Setup.Unlock)
	assert.Equal(t, []string{"prologue"}, s.Setup.Missions)
	assert.Equal(t, []string{"ls", "pwd"}, s.Input)
	require.Len(t, s.Assertions, 2)
	assert.Equal(t, 1, *s.Assertions[0].Value)
	assert.Equal(t, 0, *s.Assertions[1].Count)
}

func TestParseScenario_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "unknown field",
			yaml: "name: a\ndescription: b\nassertion: []\n",
			want: "failed to parse YAML",
		},
		{
			name: "missing name",
			yaml: "description: b\nassertions: [{type: level, value: 1}]\n",
			want: "name is required",
		},
		{
			name: "missing description",
			yaml: "name: a\nassertions: [{type: level, value: 1}]\n",
			want: "description is required",
		},
		{
			name: "no assertions",
			yaml: "name: a\ndescription: b\n",
			want: "assertions list is required",
		},
		{
			name: "unknown type",
			yaml: "name: a\ndescription: b\nassertions: [{type: vibes}]\n",
			want: `unknown assertion type "vibes"`,
		},
		{
			name: "flag missing",
			yaml: "name: a\ndescription: b\nassertions: [{type: flag_set}]\n",
			want: "flag is required for flag_set",
		},
		{
			name: "value missing",
			yaml: "name: a\ndescription: b\nassertions: [{type: experience}]\n",
			want: "value is required for experience",
		},
		{
			name: "texts missing",
			yaml: "name: a\ndescription: b\nassertions: [{type: output_order}]\n",
			want: "texts is required for output_order",
		},
		{
			name: "negative count",
			yaml: "name: a\ndescription: b\nassertions: [{type: event_count, kind: command, count: -1}]\n",
			want: "count must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestFindScenarios(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.yaml", "a.yml", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.yaml"), 0o755))

	paths, err := FindScenarios(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yml"), filepath.Join(dir, "b.yaml")}, paths)

	_, err = FindScenarios(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestMatchName(t *testing.T) {
	ok, err := MatchName("", "anything")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchName("tutorial_*", "tutorial_walkthrough")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MatchName("tutorial_*", "first_boot")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = MatchName("[", "x")
	assert.Error(t, err)
}
