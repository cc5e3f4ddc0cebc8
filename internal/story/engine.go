package story

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/cyberterm/internal/storydata"
)

// MaxDialogueHistory caps the in-memory dialogue log; oldest entries go first.
const MaxDialogueHistory = 50

// persistTimeout bounds a single slot write.
const persistTimeout = 2 * time.Second

// Story event names understood by TriggerStoryEvent.
const (
	EventMissionCompleted = "mission_completed"
	EventCharacterNamed   = "character_named"
	EventFirstCommand     = "first_command"
)

// Clock supplies wall time. Injected so tests get stable session times.
type Clock interface {
	Now() time.Time
}

// Rand supplies the random suffix of generated character names.
type Rand interface {
	IntN(n int) int
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type systemRand struct{}

func (systemRand) IntN(n int) int { return rand.Intn(n) }

// DialogueEntry is one line of NPC dialogue the player has seen.
type DialogueEntry struct {
	NPC       string    `json:"npc"`
	Dialogue  string    `json:"dialogue"`
	Timestamp time.Time `json:"timestamp"`
}

// FileContent is a readable world file.
type FileContent struct {
	Content   string
	Encrypted bool
	Cipher    string
	Decrypted string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the diagnostic logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides the wall clock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithRand overrides the name-suffix generator.
func WithRand(r Rand) Option {
	return func(e *Engine) { e.rand = r }
}

// WithSlotKey overrides the storage slot key.
func WithSlotKey(key string) Option {
	return func(e *Engine) { e.slotKey = key }
}

// Engine owns and persists narrative state.
//
// Thread-safety: Engine is not safe for concurrent use. A play session drives
// it from a single goroutine (the terminal session loop).
type Engine struct {
	data    *storydata.Dataset
	storage Storage
	logger  *slog.Logger
	clock   Clock
	rand    Rand
	slotKey string

	characterName     string
	characterLevel    int
	experiencePoints  int
	unlockedCommands  *orderedSet
	storyFlags        *orderedSet
	currentMission    storydata.MissionID
	completedMissions []storydata.MissionID
	dialogueHistory   []DialogueEntry
	sessionStart      time.Time
}

// New creates an Engine over data and restores any saved progress from storage.
// A nil storage gets a fresh MemoryStorage.
func New(data *storydata.Dataset, storage Storage, opts ...Option) *Engine {
	if storage == nil {
		storage = NewMemoryStorage()
	}
	e := &Engine{
		data:    data,
		storage: storage,
		logger:  slog.Default(),
		clock:   systemClock{},
		rand:    systemRand{},
		slotKey: DefaultSlotKey,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.resetState()
	e.restore()
	return e
}

func (e *Engine) resetState() {
	e.characterName = ""
	e.characterLevel = 1
	e.experiencePoints = 0
	e.unlockedCommands = newOrderedSet(e.data.BaseCommands...)
	e.storyFlags = newOrderedSet()
	e.currentMission = storydata.Prologue
	if order := e.data.Order(); len(order) > 0 {
		e.currentMission = order[0]
	}
	e.completedMissions = nil
	e.dialogueHistory = nil
	e.sessionStart = e.clock.Now()
}

// restore merges the saved slot over the defaults.
func (e *Engine) restore() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	raw, ok, err := e.storage.Load(ctx, e.slotKey)
	if err != nil {
		e.logger.Warn("failed to load story progress", "key", e.slotKey, "error", err)
		return
	}
	if !ok {
		return
	}
	p, ok := decodeProgress(raw)
	if !ok {
		e.logger.Warn("ignoring malformed story progress", "key", e.slotKey)
		return
	}

	e.characterName = p.CharacterName
	if p.ExperiencePoints > 0 {
		e.experiencePoints = p.ExperiencePoints
	}
	e.characterLevel = LevelForXP(e.experiencePoints)
	for _, cmd := range p.UnlockedCommands {
		if cmd != "" {
			e.unlockedCommands.Add(cmd)
		}
	}
	for _, flag := range p.StoryFlags {
		if flag != "" {
			e.storyFlags.Add(flag)
		}
	}
	if e.data.HasMission(p.CurrentMission) {
		e.currentMission = p.CurrentMission
	}
	for _, id := range p.CompletedMissions {
		if e.data.HasMission(id) && !slices.Contains(e.completedMissions, id) {
			e.completedMissions = append(e.completedMissions, id)
		}
	}

	e.logger.Debug("story progress restored",
		"mission", e.currentMission,
		"completed", len(e.completedMissions),
		"xp", e.experiencePoints)
}

// Snapshot returns the persisted form of the current state.
func (e *Engine) Snapshot() Progress {
	completed := slices.Clone(e.completedMissions)
	if completed == nil {
		completed = []storydata.MissionID{}
	}
	return Progress{
		CurrentMission:    e.currentMission,
		CompletedMissions: completed,
		CharacterName:     e.characterName,
		CharacterLevel:    e.characterLevel,
		UnlockedCommands:  e.unlockedCommands.Slice(),
		StoryFlags:        e.storyFlags.Slice(),
		ExperiencePoints:  e.experiencePoints,
		SessionStartTime:  e.sessionStart.UnixMilli(),
	}
}

// save writes the full snapshot. Failures are logged, never returned.
func (e *Engine) save() {
	data, err := json.Marshal(e.Snapshot())
	if err != nil {
		e.logger.Error("failed to encode story progress", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.storage.Save(ctx, e.slotKey, data); err != nil {
		e.logger.Warn("failed to save story progress", "key", e.slotKey, "error", err)
	}
}

// Reset clears the saved slot and returns the engine to a fresh state.
func (e *Engine) Reset() {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := e.storage.Delete(ctx, e.slotKey); err != nil {
		e.logger.Warn("failed to delete story progress", "key", e.slotKey, "error", err)
	}
	e.resetState()
	e.logger.Info("story progress reset")
}

// Data returns the static story content.
func (e *Engine) Data() *storydata.Dataset { return e.data }

// CharacterName returns the player's handle, empty until named.
func (e *Engine) CharacterName() string { return e.characterName }

// CharacterLevel returns the derived level.
func (e *Engine) CharacterLevel() int { return e.characterLevel }

// ExperiencePoints returns the accumulated XP.
func (e *Engine) ExperiencePoints() int { return e.experiencePoints }

// CurrentMissionID returns the active mission id.
func (e *Engine) CurrentMissionID() storydata.MissionID { return e.currentMission }

// CompletedMissions returns the completed missions in completion order.
func (e *Engine) CompletedMissions() []storydata.MissionID {
	return slices.Clone(e.completedMissions)
}

// IsMissionCompleted reports whether id has been completed.
func (e *Engine) IsMissionCompleted(id storydata.MissionID) bool {
	return slices.Contains(e.completedMissions, id)
}

// UnlockedCommands returns unlocked command names in unlock order.
func (e *Engine) UnlockedCommands() []string { return e.unlockedCommands.Slice() }

// StoryFlags returns raised flags in the order they were set.
func (e *Engine) StoryFlags() []string { return e.storyFlags.Slice() }

// CurrentMission looks up the active mission.
func (e *Engine) CurrentMission() (storydata.Mission, bool) {
	return e.data.Mission(e.currentMission)
}

// CompleteMission marks id completed, grants its unlocks and reward, and
// persists. It reports false for unknown or already completed missions.
func (e *Engine) CompleteMission(id storydata.MissionID) bool {
	m, ok := e.data.Mission(id)
	if !ok {
		e.logger.Debug("complete unknown mission ignored", "mission", id)
		return false
	}
	if slices.Contains(e.completedMissions, id) {
		return false
	}

	e.completedMissions = append(e.completedMissions, id)
	for _, cmd := range m.UnlockCommands {
		e.unlockedCommands.Add(cmd)
	}
	if m.CompletionReward > 0 {
		e.experiencePoints += m.CompletionReward
	}
	e.characterLevel = LevelForXP(e.experiencePoints)
	e.save()

	e.logger.Info("mission completed",
		"mission", id,
		"reward", m.CompletionReward,
		"level", e.characterLevel)
	return true
}

// AdvanceToNextMission moves to the mission after the current one. At the end
// of content it returns false and changes nothing.
func (e *Engine) AdvanceToNextMission() (storydata.Mission, bool) {
	next, ok := e.data.Next(e.currentMission)
	if !ok {
		return storydata.Mission{}, false
	}
	e.currentMission = next
	e.save()
	return e.data.Mission(next)
}

// SetCharacterName sets the player's handle and returns the stored value.
// Names are trimmed and NFC-normalised; an empty result is replaced with
// Hacker_<0-999>.
func (e *Engine) SetCharacterName(name string) string {
	name = norm.NFC.String(strings.TrimSpace(name))
	if name == "" {
		name = fmt.Sprintf("Hacker_%d", e.rand.IntN(1000))
	}
	e.characterName = name
	e.save()
	return name
}

// HasUnlockedCommand reports whether cmd is available to the player.
func (e *Engine) HasUnlockedCommand(cmd string) bool {
	return e.unlockedCommands.Has(cmd)
}

// UnlockCommand adds cmd and reports whether it was newly unlocked.
func (e *Engine) UnlockCommand(cmd string) bool {
	added := e.unlockedCommands.Add(cmd)
	e.save()
	return added
}

// SetStoryFlag raises flag and reports whether it was newly set.
func (e *Engine) SetStoryFlag(flag string) bool {
	added := e.storyFlags.Add(flag)
	e.save()
	return added
}

// HasStoryFlag reports whether flag is set.
func (e *Engine) HasStoryFlag(flag string) bool {
	return e.storyFlags.Has(flag)
}

// NPCDialogue returns the lines for npc for topic. An empty topic
// means "intro". Misses return the single DialogueNotFound line.
func (e *Engine) NPCDialogue(npc, topic string) []string {
	if topic == "" {
		topic = "intro"
	}
	table, ok := e.data.NPC(npc)
	if !ok {
		return []string{DialogueNotFound}
	}
	lines, ok := table.Dialogues[topic]
	if !ok || len(lines) == 0 {
		return []string{DialogueNotFound}
	}
	return slices.Clone(lines)
}

// AddDialogueToHistory appends a line to the dialogue log.
func (e *Engine) AddDialogueToHistory(npc, dialogue string) {
	e.dialogueHistory = append(e.dialogueHistory, DialogueEntry{
		NPC:       npc,
		Dialogue:  dialogue,
		Timestamp: e.clock.Now(),
	})
	if n := len(e.dialogueHistory); n > MaxDialogueHistory {
		e.dialogueHistory = slices.Clone(e.dialogueHistory[n-MaxDialogueHistory:])
	}
}

// DialogueHistory returns the most recent dialogue lines, oldest first.
func (e *Engine) DialogueHistory() []DialogueEntry {
	return slices.Clone(e.dialogueHistory)
}

// fileVisible applies the discoverability rule.
func (e *Engine) fileVisible(f storydata.File) bool {
	return f.Discoverable || (f.UnlockCondition != "" && e.storyFlags.Has(f.UnlockCondition))
}

// AvailableFiles returns the visible files of dir. Unknown directories yield an
// empty map.
func (e *Engine) AvailableFiles(dir string) map[string]storydata.File {
	out := make(map[string]storydata.File)
	d, ok := e.data.Directory(dir)
	if !ok {
		return out
	}
	for name, f := range d.Files {
		if e.fileVisible(f) {
			out[name] = f
		}
	}
	return out
}

// FileContent returns a readable file. ok is false when the file is missing or
// still locked.
func (e *Engine) FileContent(dir, name string) (FileContent, bool) {
	d, ok := e.data.Directory(dir)
	if !ok {
		return FileContent{}, false
	}
	f, ok := d.Files[name]
	if !ok || !e.fileVisible(f) {
		return FileContent{}, false
	}
	return FileContent{
		Content:   f.Content,
		Encrypted: f.Encrypted,
		Cipher:    f.Cipher,
		Decrypted: f.Decrypted,
	}, true
}

// TriggerStoryEvent applies the side effects of a named narrative event and
// persists. For mission_completed it returns the mission advanced to.
//
// Advancing also equips the new mission's required commands, so a player is
// never stranded in a mission whose tools are still locked.
func (e *Engine) TriggerStoryEvent(event string, data map[string]any) (storydata.Mission, bool) {
	var (
		next     storydata.Mission
		advanced bool
	)

	switch event {
	case EventMissionCompleted:
		next, advanced = e.AdvanceToNextMission()
		// Equipped directly, not through UnlockCommand; the single save below covers it.
		if advanced {
			for _, cmd := range next.RequiredCommands {
				e.unlockedCommands.Add(cmd)
			}
		}
	case EventCharacterNamed:
		e.storyFlags.Add("character_created")
	case EventFirstCommand:
		e.storyFlags.Add("terminal_mastery_begun")
	default:
		e.logger.Debug("unhandled story event", "event", event, "data", data)
	}

	e.save()
	return next, advanced
}

// ProgressSummary reports overall progress.
func (e *Engine) ProgressSummary() ProgressSummary {
	total := len(e.data.Missions)
	completed := len(e.completedMissions)
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return ProgressSummary{
		CharacterName:      e.characterName,
		CharacterLevel:     e.characterLevel,
		CurrentMission:     e.currentMission,
		CompletedMissions:  completed,
		TotalMissions:      total,
		ProgressPercentage: pct,
		ExperiencePoints:   e.experiencePoints,
		UnlockedCommands:   e.unlockedCommands.Len(),
		SessionTime:        int(e.clock.Now().Sub(e.sessionStart).Seconds()),
		StoryFlags:         e.storyFlags.Len(),
	}
}
