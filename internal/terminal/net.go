package terminal

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/rodaine/table"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/mission"
)

func registerNetCommands(r *Registry) {
	r.MustRegister(
		Command{Name: "scan", Summary: "Scan the local network", Usage: "scan", UnlockRequired: true, Run: cmdScan},
		Command{Name: "decrypt", Summary: "Decrypt an encrypted file", Usage: "decrypt <file>", UnlockRequired: true, Run: cmdDecrypt},
		Command{Name: "trace", Summary: "Trace a signal to its source", Usage: "trace [target]", UnlockRequired: true, Run: cmdTrace},
		Command{Name: "hack", Summary: "Attack a target's defences", Usage: "hack <target>", UnlockRequired: true, Run: cmdHack},
		Command{Name: "connect", Summary: "Open a session to a host", Usage: "connect <host>", UnlockRequired: true, Run: cmdConnect},
		Command{Name: "override", Summary: "Seize control of the core", Usage: "override", UnlockRequired: true, Run: cmdOverride},
		Command{Name: "matrix", Summary: "Watch the code rain", Usage: "matrix", Run: cmdMatrix},
		Command{Name: "probe", Summary: "Probe the local system", Usage: "probe", Run: cmdProbe},
		Command{Name: "history", Summary: "Show command history", Usage: "history [n]", Run: cmdHistory},
		Command{Name: "theme", Summary: "List or switch colour themes", Usage: "theme [name]", Run: cmdTheme},
	)
}

func cmdScan(ctx context.Context, sc *SessionContext, _ []string) error {
	sc.Animate("scan_sweep", nil)
	if err := sc.Print(ctx, console.StyleSystem, "Scanning local segment..."); err != nil {
		return err
	}
	if err := sc.Print(ctx, console.StyleOutput,
		"  10.0.0.1    gateway      [FILTERED]",
		"  10.0.0.7    archive-7    [OPEN]",
		"  10.0.0.13   nexus-core   [ICE ACTIVE]",
	); err != nil {
		return err
	}
	if sc.Story != nil {
		if err := sc.Print(ctx, console.StyleInfo, "Residual data signatures detected in /archives."); err != nil {
			return err
		}
	}
	return sc.Track(ctx, mission.ActionUsedScan, nil)
}

func cmdDecrypt(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) == 0 {
		return UsageError("decrypt", "decrypt <file>")
	}
	if sc.Story == nil {
		return sc.Print(ctx, console.StyleError, "decrypt: no cipher modules loaded")
	}

	full := resolvePath(sc.UI.Cwd, args[0])
	dir, name := path.Dir(full), path.Base(full)
	fc, ok := sc.Story.FileContent(dir, name)
	if !ok {
		return sc.Print(ctx, console.StyleError, fmt.Sprintf("decrypt: %s: No such file", args[0]))
	}
	if !fc.Encrypted {
		return sc.Print(ctx, console.StyleInfo, fmt.Sprintf("decrypt: %s is not encrypted", name))
	}

	sc.Story.SetStoryFlag("decrypted_" + name)
	sc.Animate("decrypt", map[string]any{"cipher": fc.Cipher})
	return sc.Print(ctx, console.StyleSuccess,
		fmt.Sprintf("Cipher identified: %s", fc.Cipher),
		"Plaintext: "+fc.Decrypted,
	)
}

func cmdTrace(ctx context.Context, sc *SessionContext, args []string) error {
	target := "nexus-core"
	if len(args) > 0 {
		target = args[0]
	}
	if sc.Story != nil {
		sc.Story.SetStoryFlag("used_trace")
	}
	return sc.Print(ctx, console.StyleOutput,
		"Tracing route to "+target+"...",
		"  1  10.0.0.1     gateway",
		"  2  10.0.0.7     archive-7",
		"  3  10.0.0.13    "+target,
		"Signal origin confirmed.",
	)
}

func cmdHack(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) == 0 {
		return UsageError("hack", "hack <target>")
	}
	target := strings.ToLower(args[0])
	if sc.Story != nil {
		sc.Story.SetStoryFlag("hacked_" + target)
	}
	sc.Animate("glitch", map[string]any{"intensity": 0.6})
	return sc.Print(ctx, console.StyleWarning,
		"Injecting payload into "+target+"...",
		"Defences breached. You have minutes, not hours.",
	)
}

func cmdConnect(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) == 0 {
		return UsageError("connect", "connect <host>")
	}
	host := strings.ToLower(args[0])
	if sc.Story != nil {
		sc.Story.SetStoryFlag("connected_" + host)
	}
	return sc.Print(ctx, console.StyleSystem,
		"Opening session to "+host+"...",
		"Connected.",
	)
}

func cmdOverride(ctx context.Context, sc *SessionContext, _ []string) error {
	if sc.Story == nil || !sc.Story.HasStoryFlag("decrypted_access.key") {
		return sc.Print(ctx, console.StyleError, "ACCESS DENIED: override key required.")
	}
	sc.Story.SetStoryFlag("system_override")
	sc.Animate("glitch", map[string]any{"intensity": 1.0})
	return sc.Print(ctx, console.StyleSuccess,
		"Override key accepted.",
		"NEXUS CORE: control transferred. /classified is now readable.",
	)
}

func cmdMatrix(ctx context.Context, sc *SessionContext, _ []string) error {
	sc.Animate("matrix_rain", map[string]any{"intensity": 1.0})
	return sc.Print(ctx, console.StyleStory, "Wake up...")
}

func cmdProbe(ctx context.Context, sc *SessionContext, _ []string) error {
	return sc.Print(ctx, console.StyleOutput,
		"host:    neon",
		"kernel:  nexus 4.19.77-grid",
		"uptime:  unknown",
		"shell:   "+sc.UI.Theme+" console",
	)
}

func cmdHistory(ctx context.Context, sc *SessionContext, args []string) error {
	entries := sc.History.Entries()
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return UsageError("history", "history [n]")
		}
		if n < len(entries) {
			entries = entries[len(entries)-n:]
		}
	}
	if len(entries) == 0 {
		return sc.Print(ctx, console.StyleInfo, "No history.")
	}

	var buf bytes.Buffer
	tbl := table.New("#", "Command").WithWriter(&buf)
	offset := len(sc.History.Entries()) - len(entries)
	for i, e := range entries {
		tbl.AddRow(offset+i+1, e)
	}
	tbl.Print()
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		if err := sc.Print(ctx, console.StyleOutput, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

func cmdTheme(ctx context.Context, sc *SessionContext, args []string) error {
	if len(args) == 0 {
		return sc.Print(ctx, console.StyleInfo,
			"Current theme: "+sc.UI.Theme,
			"Available: "+strings.Join(console.Themes(), ", "))
	}
	name := strings.ToLower(args[0])
	if !console.IsTheme(name) {
		return sc.Print(ctx, console.StyleError, fmt.Sprintf("theme: unknown theme '%s'", args[0]))
	}
	if t, ok := sc.Out.(Themer); ok {
		if err := t.SetTheme(name); err != nil {
			return err
		}
	}
	sc.UI.Theme = name
	return sc.Print(ctx, console.StyleSuccess, "Theme set to "+name+".")
}
