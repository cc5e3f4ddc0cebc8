package storydata

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml data/schema.cue
var embedded embed.FS

// Data file names inside a story data directory.
const (
	MissionsFile = "missions.yaml"
	NPCsFile     = "npcs.yaml"
	WorldFile    = "world.yaml"
	SchemaFile   = "schema.cue"
)

var (
	defaultOnce sync.Once
	defaultData *Dataset
	defaultErr  error
)

// Default returns the embedded story data, loading and validating it once.
func Default() (*Dataset, error) {
	defaultOnce.Do(func() {
		sub, err := fs.Sub(embedded, "data")
		if err != nil {
			defaultErr = fmt.Errorf("embedded story data: %w", err)
			return
		}
		defaultData, defaultErr = Load(sub)
	})
	return defaultData, defaultErr
}

// EmbeddedFS exposes the embedded data directory, e.g. for `validate` output.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		panic(err) // static embed path; cannot fail
	}
	return sub
}

// Load decodes a story data directory and validates it.
//
// The directory must contain missions.yaml, npcs.yaml and world.yaml. A
// schema.cue in the directory overrides the embedded schema.
func Load(fsys fs.FS) (*Dataset, error) {
	ds, err := Decode(fsys)
	if err != nil {
		return nil, err
	}

	schema, err := readSchema(fsys)
	if err != nil {
		return nil, err
	}

	if verrs := Validate(ds, schema); len(verrs) > 0 {
		return nil, &InvalidDataError{Errors: verrs}
	}
	return ds, nil
}

// Decode reads the YAML files without validating them.
// Unknown YAML keys are rejected.
func Decode(fsys fs.FS) (*Dataset, error) {
	var missions struct {
		BaseCommands []string  `yaml:"base_commands"`
		Missions     []Mission `yaml:"missions"`
	}
	if err := decodeFile(fsys, MissionsFile, &missions); err != nil {
		return nil, err
	}

	var npcs struct {
		NPCs map[string]NPC `yaml:"npcs"`
	}
	if err := decodeFile(fsys, NPCsFile, &npcs); err != nil {
		return nil, err
	}

	var world struct {
		World map[string]Directory `yaml:"world"`
	}
	if err := decodeFile(fsys, WorldFile, &world); err != nil {
		return nil, err
	}

	ds := &Dataset{
		BaseCommands: missions.BaseCommands,
		Missions:     missions.Missions,
		NPCs:         npcs.NPCs,
		World:        world.World,
	}
	ds.normalize()
	ds.buildIndex()
	return ds, nil
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return &InvalidDataError{Errors: []ValidationError{{
			Field:   name,
			Message: err.Error(),
			Code:    ErrCodeDecode,
		}}}
	}
	return nil
}

func readSchema(fsys fs.FS) (string, error) {
	data, err := fs.ReadFile(fsys, SchemaFile)
	if err == nil {
		return string(data), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("read %s: %w", SchemaFile, err)
	}
	data, err = fs.ReadFile(embedded, "data/"+SchemaFile)
	if err != nil {
		return "", fmt.Errorf("read embedded schema: %w", err)
	}
	return string(data), nil
}

// normalize replaces nil collections with empty ones so the JSON form handed to
// CUE never contains null.
func (d *Dataset) normalize() {
	if d.BaseCommands == nil {
		d.BaseCommands = []string{}
	}
	if d.Missions == nil {
		d.Missions = []Mission{}
	}
	for i := range d.Missions {
		m := &d.Missions[i]
		if m.Objectives == nil {
			m.Objectives = []Objective{}
		}
		if m.RequiredCommands == nil {
			m.RequiredCommands = []string{}
		}
		if m.UnlockCommands == nil {
			m.UnlockCommands = []string{}
		}
		if m.StoryBeats == nil {
			m.StoryBeats = []string{}
		}
		if m.Hints == nil {
			m.Hints = []string{}
		}
		if m.Briefing == nil {
			m.Briefing = []string{}
		}
	}
	if d.NPCs == nil {
		d.NPCs = map[string]NPC{}
	}
	for id, npc := range d.NPCs {
		if npc.Dialogues == nil {
			npc.Dialogues = map[string][]string{}
			d.NPCs[id] = npc
		}
	}
	if d.World == nil {
		d.World = map[string]Directory{}
	}
	for p, dir := range d.World {
		if dir.Files == nil {
			dir.Files = map[string]File{}
			d.World[p] = dir
		}
	}
}
