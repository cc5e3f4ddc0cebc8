package harness

import (
	"fmt"
	"slices"
	"strings"
)

// outputContext is how many trailing output lines an AssertionError shows.
const outputContext = 10

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Output   []string // Session output for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Output) > 0 {
		start := max(0, len(e.Output)-outputContext)
		fmt.Fprintf(&buf, "\nLast output:\n")
		for i, line := range e.Output[start:] {
			fmt.Fprintf(&buf, "  [%d] %s\n", start+i+1, line)
		}
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns the failure messages.
// An empty slice means all assertions held.
func EvaluateAssertions(r *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		if err := evaluate(r, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}

func evaluate(r *Result, a Assertion) error {
	fail := func(expected, actual string) error {
		return &AssertionError{Type: a.Type, Expected: expected, Actual: actual, Output: r.Output}
	}

	switch a.Type {
	case AssertFlagSet:
		if !slices.Contains(r.StoryFlags, a.Flag) {
			return fail("flag "+a.Flag+" set", fmt.Sprintf("flags %v", r.StoryFlags))
		}
	case AssertFlagUnset:
		if slices.Contains(r.StoryFlags, a.Flag) {
			return fail("flag "+a.Flag+" unset", "flag is set")
		}
	case AssertCommandUnlocked:
		if !slices.Contains(r.UnlockedCommands, a.Command) {
			return fail("command "+a.Command+" unlocked", fmt.Sprintf("unlocked %v", r.UnlockedCommands))
		}
	case AssertCommandLocked:
		if slices.Contains(r.UnlockedCommands, a.Command) {
			return fail("command "+a.Command+" locked", "command is unlocked")
		}
	case AssertCurrentMission:
		if got := string(r.Summary.CurrentMission); got != a.Mission {
			return fail("current mission "+a.Mission, got)
		}
	case AssertMissionCompleted:
		if !slices.Contains(r.CompletedMissions, a.Mission) {
			return fail("mission "+a.Mission+" completed", fmt.Sprintf("completed %v", r.CompletedMissions))
		}
	case AssertExperience:
		if r.Summary.ExperiencePoints != *a.Value {
			return fail(fmt.Sprintf("%d XP", *a.Value), fmt.Sprintf("%d XP", r.Summary.ExperiencePoints))
		}
	case AssertLevel:
		if r.Summary.CharacterLevel != *a.Value {
			return fail(fmt.Sprintf("level %d", *a.Value), fmt.Sprintf("level %d", r.Summary.CharacterLevel))
		}
	case AssertOutputContains:
		if findLine(r.Output, a.Text, 0) < 0 {
			return fail(fmt.Sprintf("output containing %q", a.Text), "not found")
		}
	case AssertOutputNotContains:
		if i := findLine(r.Output, a.Text, 0); i >= 0 {
			return fail(fmt.Sprintf("no output containing %q", a.Text), fmt.Sprintf("found on line %d", i+1))
		}
	case AssertOutputOrder:
		return assertOutputOrder(r, a)
	case AssertEventCount:
		n := 0
		for _, e := range r.Trace {
			if e.Kind == a.Kind {
				n++
			}
		}
		if n != *a.Count {
			return fail(fmt.Sprintf("%d %s events", *a.Count, a.Kind), fmt.Sprintf("%d", n))
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// assertOutputOrder checks that each text appears on a line at or after the
// line that matched the previous text. Intervening lines are allowed.
func assertOutputOrder(r *Result, a Assertion) error {
	pos := 0
	for i, text := range a.Texts {
		found := findLine(r.Output, text, pos)
		if found < 0 {
			actual := fmt.Sprintf("%q not found", text)
			if i > 0 {
				actual = fmt.Sprintf("%q not found after %q (line %d)", text, a.Texts[i-1], pos+1)
			}
			return &AssertionError{
				Type:     a.Type,
				Expected: fmt.Sprintf("output in order: %q", a.Texts),
				Actual:   actual,
				Output:   r.Output,
			}
		}
		pos = found
	}
	return nil
}

// findLine returns the index of the first line at or after from containing
// text, or -1.
func findLine(lines []string, text string, from int) int {
	for i := from; i < len(lines); i++ {
		if strings.Contains(lines[i], text) {
			return i
		}
	}
	return -1
}
