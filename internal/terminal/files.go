package terminal

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/mission"
)

func registerFileCommands(r *Registry) {
	r.MustRegister(
		Command{Name: "ls", Summary: "List directory contents", Usage: "ls [dir]", UnlockRequired: true, Run: cmdLs},
		Command{Name: "cat", Summary: "Print a file", Usage: "cat <file>", UnlockRequired: true, Run: cmdCat},
		Command{Name: "pwd", Summary: "Print the working directory", Usage: "pwd", UnlockRequired: true, Run: cmdPwd},
		Command{Name: "cd", Summary: "Change directory", Usage: "cd [dir]", UnlockRequired: true, Run: cmdCd},
	)
}

// resolvePath turns a user-supplied path into a clean absolute path.
func resolvePath(cwd, p string) string {
	switch {
	case p == "" || p == "~":
		return HomeDir
	case strings.HasPrefix(p, "~/"):
		return path.Clean(HomeDir + p[1:])
	case path.IsAbs(p):
		return path.Clean(p)
	default:
		return path.Join(cwd, p)
	}
}

// fallbackFS is the world used when no story engine is attached.
var fallbackFS = struct {
	dirs  map[string][]string
	files map[string]map[string]string
}{
	dirs: map[string][]string{
		"/":          {"home"},
		"/home":      {"user"},
		"/home/user": nil,
	},
	files: map[string]map[string]string{
		"/home/user": {
			"readme.txt": "Story mode is offline. This is a plain shell.",
		},
	},
}

// listing is one directory view: subdirectories and visible file names.
type listing struct {
	dirs  []string
	files []string
}

func (sc *SessionContext) dirExists(dir string) bool {
	if sc.Story != nil {
		_, ok := sc.Story.Data().Directory(dir)
		return ok
	}
	_, ok := fallbackFS.dirs[dir]
	return ok
}

func (sc *SessionContext) list(dir string) (listing, bool) {
	if !sc.dirExists(dir) {
		return listing{}, false
	}
	var l listing
	if sc.Story != nil {
		l.dirs = sc.Story.Data().Subdirectories(dir)
		for name := range sc.Story.AvailableFiles(dir) {
			l.files = append(l.files, name)
		}
	} else {
		l.dirs = append(l.dirs, fallbackFS.dirs[dir]...)
		for name := range fallbackFS.files[dir] {
			l.files = append(l.files, name)
		}
	}
	sort.Strings(l.files)
	return l, true
}

func cmdLs(ctx context.Context, sc *SessionContext, args []string) error {
	dir := sc.UI.Cwd
	if len(args) > 0 {
		dir = resolvePath(sc.UI.Cwd, args[0])
	}

	l, ok := sc.list(dir)
	if !ok {
		return sc.Print(ctx, console.StyleError, fmt.Sprintf("ls: cannot access '%s': No such directory", dir))
	}
	if len(l.dirs) == 0 && len(l.files) == 0 {
		if err := sc.Print(ctx, console.StyleOutput, "(empty)"); err != nil {
			return err
		}
	}
	for _, d := range l.dirs {
		if err := sc.Print(ctx, console.StyleInfo, d+"/"); err != nil {
			return err
		}
	}
	for _, f := range l.files {
		if err := sc.Print(ctx, console.StyleOutput, f); err != nil {
			return err
		}
	}
	return sc.Track(ctx, mission.ActionUsedLS, map[string]any{"path": dir})
}

func cmdCat(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) == 0 {
		return UsageError("cat", "cat <file>")
	}
	full := resolvePath(sc.UI.Cwd, args[0])
	dir, name := path.Dir(full), path.Base(full)

	if sc.Story == nil {
		content, ok := fallbackFS.files[dir][name]
		if !ok {
			return sc.Print(ctx, console.StyleError, fmt.Sprintf("cat: %s: No such file", args[0]))
		}
		return sc.Print(ctx, console.StyleOutput, content)
	}

	fc, ok := sc.Story.FileContent(dir, name)
	if !ok {
		return sc.Print(ctx, console.StyleError, fmt.Sprintf("cat: %s: No such file", args[0]))
	}
	if err := sc.Print(ctx, console.StyleOutput, fc.Content); err != nil {
		return err
	}
	if fc.Encrypted {
		if err := sc.Print(ctx, console.StyleWarning,
			fmt.Sprintf("[ENCRYPTED: %s] Use 'decrypt %s' to decode.", fc.Cipher, name)); err != nil {
			return err
		}
	}
	return sc.Track(ctx, mission.ActionReadFile, map[string]any{"filename": name, "path": dir})
}

func cmdPwd(ctx context.Context, sc *SessionContext, _ []string) error {
	if err := sc.Print(ctx, console.StyleOutput, sc.UI.Cwd); err != nil {
		return err
	}
	return sc.Track(ctx, mission.ActionUsedPWD, nil)
}

func cmdCd(ctx context.Context, sc *SessionContext, args []string) error {
	target := HomeDir
	if len(args) > 0 {
		target = resolvePath(sc.UI.Cwd, args[0])
	}
	if !sc.dirExists(target) {
		return sc.Print(ctx, console.StyleError, fmt.Sprintf("cd: %s: No such directory", target))
	}

	sc.UI.Cwd = target
	sc.RefreshPrompt()
	return sc.Track(ctx, mission.ActionChangedDirectory, map[string]any{"path": target})
}
