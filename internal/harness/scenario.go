package harness

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Scenario defines one scripted session and what must hold afterwards.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Character is the handle the player chooses.
	Character string `yaml:"character,omitempty"`

	// SkipIntro starts the session at the command prompt.
	SkipIntro bool `yaml:"skip_intro,omitempty"`

	// Setup establishes state before any input is played.
	Setup Setup `yaml:"setup,omitempty"`

	// Input lines are submitted in order, as if typed.
	Input []string `yaml:"input,omitempty"`

	// Assertions validate the final state and output.
	Assertions []Assertion `yaml:"assertions"`
}

// Setup is applied in field order: flags, then unlocks, then missions.
type Setup struct {
	Flags  []string `yaml:"flags,omitempty"`
	Unlock []string `yaml:"unlock,omitempty"`

	// Missions are completed in order. Completing the current mission also
	// advances past it.
	Missions []string `yaml:"missions,omitempty"`
}

// Assertion validates the session outcome.
type Assertion struct {
	Type string `yaml:"type"`

	// Flag is used by flag_set and flag_unset.
	Flag string `yaml:"flag,omitempty"`

	// Command is used by command_unlocked and command_locked.
	Command string `yaml:"command,omitempty"`

	// Mission is used by current_mission and mission_completed.
	Mission string `yaml:"mission,omitempty"`

	// Value is used by experience and level.
	Value *int `yaml:"value,omitempty"`

	// Text is used by output_contains and output_not_contains.
	Text string `yaml:"text,omitempty"`

	// Texts is the expected order for output_order.
	Texts []string `yaml:"texts,omitempty"`

	// Kind and Count are used by event_count.
	Kind  string `yaml:"kind,omitempty"`
	Count *int   `yaml:"count,omitempty"`
}

// Assertion type constants.
const (
	AssertFlagSet           = "flag_set"
	AssertFlagUnset         = "flag_unset"
	AssertCommandUnlocked   = "command_unlocked"
	AssertCommandLocked     = "command_locked"
	AssertCurrentMission    = "current_mission"
	AssertMissionCompleted  = "mission_completed"
	AssertExperience        = "experience"
	AssertLevel             = "level"
	AssertOutputContains    = "output_contains"
	AssertOutputNotContains = "output_not_contains"
	AssertOutputOrder       = "output_order"
	AssertEventCount        = "event_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// FindScenarios lists the .yaml and .yml files in dir, sorted by name.
func FindScenarios(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scenario dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

// MatchName reports whether a scenario name matches a glob filter. An empty
// filter matches everything.
func MatchName(filter, name string) (bool, error) {
	if filter == "" {
		return true, nil
	}
	ok, err := path.Match(filter, name)
	if err != nil {
		return false, fmt.Errorf("bad filter %q: %w", filter, err)
	}
	return ok, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	require := func(ok bool, field string) error {
		if !ok {
			return fmt.Errorf("assertions[%d]: %s is required for %s", index, field, a.Type)
		}
		return nil
	}

	switch a.Type {
	case AssertFlagSet, AssertFlagUnset:
		return require(a.Flag != "", "flag")
	case AssertCommandUnlocked, AssertCommandLocked:
		return require(a.Command != "", "command")
	case AssertCurrentMission, AssertMissionCompleted:
		return require(a.Mission != "", "mission")
	case AssertExperience, AssertLevel:
		return require(a.Value != nil, "value")
	case AssertOutputContains, AssertOutputNotContains:
		return require(a.Text != "", "text")
	case AssertOutputOrder:
		return require(len(a.Texts) > 0, "texts")
	case AssertEventCount:
		if err := require(a.Kind != "", "kind"); err != nil {
			return err
		}
		if err := require(a.Count != nil, "count"); err != nil {
			return err
		}
		if *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for event_count", index)
		}
		return nil
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
}
