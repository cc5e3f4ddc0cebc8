package storydata

import (
	"fmt"

	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// Validation error codes.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeSchema       = "E002" // CUE schema violation
	ErrCodeDecode       = "E003" // YAML decode failure
	ErrCodeMissionOrder = "E101" // Missions missing or out of order
	ErrCodeDuplicateID  = "E102" // Duplicate mission or objective id
	ErrCodeCommand      = "E103" // Empty or malformed command name
	ErrCodeFile         = "E110" // Inconsistent file entry
	ErrCodeDirectory    = "E111" // Directory path not absolute/clean
	ErrCodeNPC          = "E120" // NPC table problem
)

// CompileError reports a structural problem found while evaluating the CUE
// schema against the data set.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError is one finding of Validate.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// InvalidDataError wraps the findings of a failed Load.
type InvalidDataError struct {
	Errors []ValidationError
}

func (e *InvalidDataError) Error() string {
	if len(e.Errors) == 1 {
		return "invalid story data: " + e.Errors[0].Error()
	}
	return fmt.Sprintf("invalid story data: %s (and %d more)", e.Errors[0].Error(), len(e.Errors)-1)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}

	return err
}

// cueValidationErrors flattens a CUE error list into ValidationErrors.
func cueValidationErrors(err error) []ValidationError {
	var out []ValidationError
	for _, e := range errors.Errors(err) {
		ve := ValidationError{
			Field:   "schema",
			Message: e.Error(),
			Code:    ErrCodeSchema,
		}
		if path := e.Path(); len(path) > 0 {
			ve.Field = joinPath(path)
		}
		if positions := errors.Positions(e); len(positions) > 0 && positions[0].IsValid() {
			ve.Line = positions[0].Line()
		}
		out = append(out, ve)
	}
	if len(out) == 0 {
		out = append(out, ValidationError{Field: "schema", Message: err.Error(), Code: ErrCodeSchema})
	}
	return out
}

func joinPath(parts []string) string {
	s := parts[0]
	for _, p := range parts[1:] {
		s += "." + p
	}
	return s
}
