package storydata

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// Validate checks a data set against the CUE schema and then against the
// cross-reference rules CUE cannot express. It returns every finding; an empty
// result means the data set is usable.
func Validate(ds *Dataset, schema string) []ValidationError {
	var errs []ValidationError

	errs = append(errs, validateSchema(ds, schema)...)
	errs = append(errs, validateMissions(ds)...)
	errs = append(errs, validateWorld(ds)...)
	errs = append(errs, validateNPCs(ds)...)

	return errs
}

// validateSchema unifies the JSON form of the data set with #Story.
func validateSchema(ds *Dataset, schema string) []ValidationError {
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema, cue.Filename(SchemaFile))
	if err := schemaVal.Err(); err != nil {
		return []ValidationError{compileErrorToValidation(formatCUEError(err))}
	}

	story := schemaVal.LookupPath(cue.ParsePath("#Story"))
	if !story.Exists() {
		return []ValidationError{{
			Field:   "schema",
			Message: "#Story definition not found",
			Code:    ErrCodeSchema,
		}}
	}

	data, err := json.Marshal(ds)
	if err != nil {
		return []ValidationError{{Field: "data", Message: err.Error(), Code: ErrCodeGeneric}}
	}

	dataVal := ctx.CompileBytes(data, cue.Filename("story.json"))
	if err := dataVal.Err(); err != nil {
		return []ValidationError{compileErrorToValidation(formatCUEError(err))}
	}

	unified := story.Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return cueValidationErrors(err)
	}
	return nil
}

func compileErrorToValidation(err error) ValidationError {
	if ce, ok := err.(*CompileError); ok {
		ve := ValidationError{Field: ce.Field, Message: ce.Message, Code: ErrCodeSchema}
		if ce.Pos.IsValid() {
			ve.Line = ce.Pos.Line()
		}
		return ve
	}
	return ValidationError{Field: "schema", Message: err.Error(), Code: ErrCodeSchema}
}

func validateMissions(ds *Dataset) []ValidationError {
	var errs []ValidationError

	if len(ds.BaseCommands) == 0 {
		errs = append(errs, ValidationError{
			Field:   "base_commands",
			Message: "at least one base command is required",
			Code:    ErrCodeCommand,
		})
	}

	if len(ds.Missions) != len(MissionOrder) {
		errs = append(errs, ValidationError{
			Field:   "missions",
			Message: fmt.Sprintf("expected %d missions, found %d", len(MissionOrder), len(ds.Missions)),
			Code:    ErrCodeMissionOrder,
		})
	}
	for i, want := range MissionOrder {
		if i >= len(ds.Missions) {
			break
		}
		if got := ds.Missions[i].ID; got != want {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("missions[%d].id", i),
				Message: fmt.Sprintf("expected %q, found %q", want, got),
				Code:    ErrCodeMissionOrder,
			})
		}
	}

	seen := make(map[MissionID]bool, len(ds.Missions))
	for _, m := range ds.Missions {
		field := "missions." + string(m.ID)
		if seen[m.ID] {
			errs = append(errs, ValidationError{Field: field, Message: "duplicate mission id", Code: ErrCodeDuplicateID})
		}
		seen[m.ID] = true

		objSeen := make(map[ObjectiveID]bool, len(m.Objectives))
		for _, o := range m.Objectives {
			if objSeen[o.ID] {
				errs = append(errs, ValidationError{
					Field:   field + ".objectives." + string(o.ID),
					Message: "duplicate objective id",
					Code:    ErrCodeDuplicateID,
				})
			}
			objSeen[o.ID] = true
		}

		for _, list := range [][]string{m.RequiredCommands, m.UnlockCommands} {
			for _, cmd := range list {
				if strings.TrimSpace(cmd) == "" || strings.ContainsAny(cmd, " \t") {
					errs = append(errs, ValidationError{
						Field:   field,
						Message: fmt.Sprintf("invalid command name %q", cmd),
						Code:    ErrCodeCommand,
					})
				}
			}
		}
	}

	return errs
}

func validateWorld(ds *Dataset) []ValidationError {
	var errs []ValidationError

	for p, dir := range ds.World {
		if !path.IsAbs(p) || path.Clean(p) != p {
			errs = append(errs, ValidationError{
				Field:   "world." + p,
				Message: "directory paths must be absolute and clean",
				Code:    ErrCodeDirectory,
			})
			continue
		}
		if p != "/" {
			if _, ok := ds.World[path.Dir(p)]; !ok {
				errs = append(errs, ValidationError{
					Field:   "world." + p,
					Message: fmt.Sprintf("parent directory %q is not defined", path.Dir(p)),
					Code:    ErrCodeDirectory,
				})
			}
		}
		for name, f := range dir.Files {
			field := "world." + p + "." + name
			if strings.Contains(name, "/") {
				errs = append(errs, ValidationError{Field: field, Message: "file names cannot contain '/'", Code: ErrCodeFile})
			}
			if !f.Discoverable && f.UnlockCondition == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "hidden file has no unlock_condition and can never be read",
					Code:    ErrCodeFile,
				})
			}
			if f.Encrypted && (f.Cipher == "" || f.Decrypted == "") {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: "encrypted files need both cipher and decrypted",
					Code:    ErrCodeFile,
				})
			}
		}
	}

	return errs
}

func validateNPCs(ds *Dataset) []ValidationError {
	var errs []ValidationError
	for id, npc := range ds.NPCs {
		if _, ok := npc.Dialogues["intro"]; !ok {
			errs = append(errs, ValidationError{
				Field:   "npcs." + id,
				Message: "every NPC needs an intro dialogue",
				Code:    ErrCodeNPC,
			})
		}
	}
	return errs
}
