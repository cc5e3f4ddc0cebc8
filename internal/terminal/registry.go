package terminal

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/buildkite/shellwords"
	"golang.org/x/text/cases"
)

// Handler runs one command invocation.
type Handler func(ctx context.Context, sc *SessionContext, args []string) error

// Command is one entry of the command table.
//
// UnlockRequired commands are only dispatched once the story has unlocked
// them. Without a story engine nothing is gated.
type Command struct {
	Name           string
	Summary        string
	Usage          string
	UnlockRequired bool
	Run            Handler
}

// Registry maps case-folded names to commands.
type Registry struct {
	cmds map[string]Command
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{cmds: make(map[string]Command)}
}

func foldName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}

// Register adds cmd. Names are matched case-insensitively; registering the
// same name twice is an error.
func (r *Registry) Register(cmd Command) error {
	if cmd.Name == "" || cmd.Run == nil {
		return fmt.Errorf("register command: name and handler are required")
	}
	key := foldName(cmd.Name)
	if _, dup := r.cmds[key]; dup {
		return fmt.Errorf("register command: %q already registered", cmd.Name)
	}
	r.cmds[key] = cmd
	return nil
}

// MustRegister is Register for static tables; it panics on error.
func (r *Registry) MustRegister(cmds ...Command) {
	for _, cmd := range cmds {
		if err := r.Register(cmd); err != nil {
			panic(err)
		}
	}
}

// Lookup resolves a command name.
func (r *Registry) Lookup(name string) (Command, bool) {
	cmd, ok := r.cmds[foldName(name)]
	return cmd, ok
}

// Commands returns every command sorted by name.
func (r *Registry) Commands() []Command {
	out := make([]Command, 0, len(r.cmds))
	for _, cmd := range r.cmds {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ParseLine splits an input line into a command name and arguments using
// POSIX shell quoting. A blank line yields an empty name.
func ParseLine(line string) (string, []string, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil, nil
	}
	parts, err := shellwords.SplitPosix(line)
	if err != nil {
		return "", nil, &CommandError{Code: ErrCodeUsage, Message: "parse error: " + err.Error(), Err: err}
	}
	if len(parts) == 0 {
		return "", nil, nil
	}
	return parts[0], parts[1:], nil
}
