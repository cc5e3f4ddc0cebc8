package terminal

import (
	"errors"
	"fmt"
)

// CommandErrorCode categorizes dispatch failures.
type CommandErrorCode string

const (
	// ErrCodeNotFound indicates no command has the given name.
	ErrCodeNotFound CommandErrorCode = "NOT_FOUND"

	// ErrCodeLocked indicates the command exists but the story has not unlocked it.
	ErrCodeLocked CommandErrorCode = "LOCKED"

	// ErrCodeUsage indicates bad arguments or an unparsable line.
	ErrCodeUsage CommandErrorCode = "USAGE"

	// ErrCodeHandler indicates the handler returned an error.
	ErrCodeHandler CommandErrorCode = "HANDLER"

	// ErrCodePanic indicates the handler panicked.
	ErrCodePanic CommandErrorCode = "PANIC"
)

// CommandError is returned by Session.Execute after the failure has already
// been shown to the player.
type CommandError struct {
	Code    CommandErrorCode
	Command string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *CommandError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Command, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CommandError) Unwrap() error { return e.Err }

// UsageError builds the error a handler returns for bad arguments.
func UsageError(command, usage string) *CommandError {
	return &CommandError{Code: ErrCodeUsage, Command: command, Message: "usage: " + usage}
}

func hasCode(err error, code CommandErrorCode) bool {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// IsNotFound reports whether err is an unknown-command error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

// IsLocked reports whether err is a story-gating error.
func IsLocked(err error) bool { return hasCode(err, ErrCodeLocked) }

// IsUsage reports whether err is an argument error.
func IsUsage(err error) bool { return hasCode(err, ErrCodeUsage) }
