// Package storydata holds the static narrative content: missions, NPC
// dialogue tables and the world file tree.
//
// The data is pure lookup. Nothing in this package mutates after Load returns,
// so a *Dataset may be shared freely between the story engine, the mission
// system and the command handlers.
package storydata

import (
	"path"
	"sort"
	"strings"
)

// MissionID identifies a mission in the fixed narrative order.
type MissionID string

// Mission identifiers, in narrative order.
const (
	Prologue           MissionID = "prologue"
	Tutorial           MissionID = "tutorial"
	DataRecovery       MissionID = "data_recovery"
	CodeBreaking       MissionID = "code_breaking"
	SystemInfiltration MissionID = "system_infiltration"
	Revelation         MissionID = "revelation"
)

// MissionOrder is the only legal ordering of missions. Loaded data must match it.
var MissionOrder = []MissionID{
	Prologue,
	Tutorial,
	DataRecovery,
	CodeBreaking,
	SystemInfiltration,
	Revelation,
}

// ObjectiveID identifies one objective inside a mission. Display text lives
// in the Mission data and is looked up by id.
type ObjectiveID string

// Objective identifiers.
const (
	ObjMeetOracle        ObjectiveID = "meet_oracle"
	ObjLearnHelp         ObjectiveID = "learn_help"
	ObjEstablishIdentity ObjectiveID = "establish_identity"

	ObjListFiles     ObjectiveID = "list_files"
	ObjPrintLocation ObjectiveID = "print_location"
	ObjReadBriefing  ObjectiveID = "read_briefing"

	ObjEnterArchives   ObjectiveID = "enter_archives"
	ObjScanNetwork     ObjectiveID = "scan_network"
	ObjRecoverFragment ObjectiveID = "recover_fragment"

	ObjDecryptFragment  ObjectiveID = "decrypt_fragment"
	ObjDecryptAccessKey ObjectiveID = "decrypt_access_key"
	ObjTraceSignal      ObjectiveID = "trace_signal"

	ObjConnectCore     ObjectiveID = "connect_core"
	ObjBreachICE       ObjectiveID = "breach_ice"
	ObjAcquireOverride ObjectiveID = "acquire_override"

	ObjRunOverride ObjectiveID = "run_override"
	ObjReadTruth   ObjectiveID = "read_truth"
)

// Objective is a single checkable condition within a mission.
type Objective struct {
	ID   ObjectiveID `yaml:"id" json:"id"`
	Text string      `yaml:"text" json:"text"`
}

// Mission is a named stage of the narrative.
type Mission struct {
	ID               MissionID   `yaml:"id" json:"id"`
	Title            string      `yaml:"title" json:"title"`
	Description      string      `yaml:"description" json:"description"`
	Objectives       []Objective `yaml:"objectives" json:"objectives"`
	RequiredCommands []string    `yaml:"required_commands" json:"required_commands"`
	UnlockCommands   []string    `yaml:"unlock_commands" json:"unlock_commands"`
	StoryBeats       []string    `yaml:"story_beats" json:"story_beats"`
	CompletionReward int         `yaml:"completion_reward" json:"completion_reward"`
	Hints            []string    `yaml:"hints" json:"hints"`
	Briefing         []string    `yaml:"briefing" json:"briefing"`
}

// Objective returns the objective with the given id.
func (m Mission) Objective(id ObjectiveID) (Objective, bool) {
	for _, o := range m.Objectives {
		if o.ID == id {
			return o, true
		}
	}
	return Objective{}, false
}

// File is one entry of the world file tree.
//
// A file is visible only when Discoverable is set or its UnlockCondition flag
// has been raised.
type File struct {
	Content         string `yaml:"content" json:"content"`
	Discoverable    bool   `yaml:"discoverable" json:"discoverable"`
	UnlockCondition string `yaml:"unlock_condition,omitempty" json:"unlock_condition,omitempty"`
	Encrypted       bool   `yaml:"encrypted,omitempty" json:"encrypted,omitempty"`
	Cipher          string `yaml:"cipher,omitempty" json:"cipher,omitempty"`
	Decrypted       string `yaml:"decrypted,omitempty" json:"decrypted,omitempty"`
}

// Directory is a node of the world tree, keyed by absolute path in Dataset.World.
type Directory struct {
	Files map[string]File `yaml:"files" json:"files"`
}

// NPC is a dialogue table: context -> ordered lines.
type NPC struct {
	Name      string              `yaml:"name" json:"name"`
	Dialogues map[string][]string `yaml:"dialogues" json:"dialogues"`
}

// Dataset is the complete static story content.
type Dataset struct {
	BaseCommands []string             `json:"base_commands"`
	Missions     []Mission            `json:"missions"`
	NPCs         map[string]NPC       `json:"npcs"`
	World        map[string]Directory `json:"world"`

	index map[MissionID]int
}

// Mission looks up a mission by id.
func (d *Dataset) Mission(id MissionID) (Mission, bool) {
	i, ok := d.index[id]
	if !ok {
		return Mission{}, false
	}
	return d.Missions[i], true
}

// HasMission reports whether id is a key of the mission table.
func (d *Dataset) HasMission(id MissionID) bool {
	_, ok := d.index[id]
	return ok
}

// Order returns mission ids in narrative order.
func (d *Dataset) Order() []MissionID {
	ids := make([]MissionID, len(d.Missions))
	for i, m := range d.Missions {
		ids[i] = m.ID
	}
	return ids
}

// Next returns the mission that follows id. The second result is false for the
// last mission and for unknown ids.
func (d *Dataset) Next(id MissionID) (MissionID, bool) {
	i, ok := d.index[id]
	if !ok || i+1 >= len(d.Missions) {
		return "", false
	}
	return d.Missions[i+1].ID, true
}

// Directory looks up a directory by absolute path. The path is cleaned first.
func (d *Dataset) Directory(dir string) (Directory, bool) {
	dirData, ok := d.World[path.Clean(dir)]
	return dirData, ok
}

// Subdirectories returns the names of the direct children of dir, sorted.
func (d *Dataset) Subdirectories(dir string) []string {
	dir = path.Clean(dir)
	var names []string
	for p := range d.World {
		if p == dir || path.Dir(p) != dir {
			continue
		}
		names = append(names, strings.TrimPrefix(p[len(path.Dir(p)):], "/"))
	}
	sort.Strings(names)
	return names
}

// NPC looks up an NPC dialogue table.
func (d *Dataset) NPC(id string) (NPC, bool) {
	npc, ok := d.NPCs[id]
	return npc, ok
}

func (d *Dataset) buildIndex() {
	d.index = make(map[MissionID]int, len(d.Missions))
	for i, m := range d.Missions {
		if _, dup := d.index[m.ID]; !dup {
			d.index[m.ID] = i
		}
	}
}
