package story

import (
	"encoding/json"
	"slices"

	"github.com/roach88/cyberterm/internal/storydata"
)

// XPPerLevel is the experience needed to gain one character level.
const XPPerLevel = 500

// LevelForXP derives the character level from experience points.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/XPPerLevel + 1
}

// Progress is the persisted form of the story state. Field names match the
// JSON slot layout.
type Progress struct {
	CurrentMission    storydata.MissionID   `json:"currentMission"`
	CompletedMissions []storydata.MissionID `json:"completedMissions"`
	CharacterName     string                `json:"characterName"`
	CharacterLevel    int                   `json:"characterLevel"`
	UnlockedCommands  []string              `json:"unlockedCommands"`
	StoryFlags        []string              `json:"storyFlags"`
	ExperiencePoints  int                   `json:"experiencePoints"`
	SessionStartTime  int64                 `json:"sessionStartTime"` // unix millis
}

// ProgressSummary is the read-only overview shown by `status` and `mission progress`.
type ProgressSummary struct {
	CharacterName      string              `json:"characterName"`
	CharacterLevel     int                 `json:"characterLevel"`
	CurrentMission     storydata.MissionID `json:"currentMission"`
	CompletedMissions  int                 `json:"completedMissions"`
	TotalMissions      int                 `json:"totalMissions"`
	ProgressPercentage int                 `json:"progressPercentage"`
	ExperiencePoints   int                 `json:"experiencePoints"`
	UnlockedCommands   int                 `json:"unlockedCommands"`
	SessionTime        int                 `json:"sessionTime"` // seconds
	StoryFlags         int                 `json:"storyFlags"`
}

// orderedSet is an insertion-ordered string set. Order is kept so the
// persisted arrays are stable across saves.
type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet(items ...string) *orderedSet {
	s := &orderedSet{index: make(map[string]struct{}, len(items))}
	for _, it := range items {
		s.Add(it)
	}
	return s
}

// Add inserts item and reports whether it was new.
func (s *orderedSet) Add(item string) bool {
	if _, ok := s.index[item]; ok {
		return false
	}
	s.index[item] = struct{}{}
	s.items = append(s.items, item)
	return true
}

func (s *orderedSet) Has(item string) bool {
	_, ok := s.index[item]
	return ok
}

func (s *orderedSet) Len() int { return len(s.items) }

func (s *orderedSet) Slice() []string { return slices.Clone(s.items) }

// decodeProgress parses a slot. Any decode failure yields ok=false.
func decodeProgress(data []byte) (Progress, bool) {
	var p Progress
	if len(data) == 0 {
		return p, false
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, false
	}
	return p, true
}
