package terminal

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cyberterm/internal/console"
	"github.com/roach88/cyberterm/internal/story"
	"github.com/roach88/cyberterm/internal/storydata"
	"github.com/roach88/cyberterm/internal/testutil"
)

type recordingSink struct {
	mu    sync.Mutex
	kinds []string
	last  map[string]any
}

func (r *recordingSink) Record(_ context.Context, kind string, payload map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	r.last = payload
}

type fixture struct {
	session *Session
	engine  *story.Engine
	storage *story.MemoryStorage
	out     *console.Transcript
	anim    *console.Recorder
	events  *recordingSink
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newFixture(t *testing.T, withStory bool) *fixture {
	t.Helper()
	f := &fixture{
		storage: story.NewMemoryStorage(),
		out:     console.NewTranscript(),
		anim:    &console.Recorder{},
		events:  &recordingSink{},
	}
	clock := testutil.NewFixedClock(testutil.Epoch)
	if withStory {
		ds, err := storydata.Default()
		require.NoError(t, err)
		f.engine = story.New(ds, f.storage, story.WithLogger(discardLogger()), story.WithClock(clock))
	}
	s, err := NewSession(Config{
		Story:      f.engine,
		Out:        f.out,
		Animations: f.anim,
		Events:     f.events,
		Storage:    f.storage,
		Logger:     discardLogger(),
		Clock:      clock,
		SessionID:  "test-session",
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *fixture) exec(t *testing.T, line string) error {
	t.Helper()
	return f.session.Execute(context.Background(), line)
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		name string
		args []string
	}{
		{"", "", nil},
		{"   ", "", nil},
		{"ls", "ls", []string{}},
		{"cat  briefing.txt", "cat", []string{"briefing.txt"}},
		{`oracle "who are you"`, "oracle", []string{"who are you"}},
		{`cd '/home/user'`, "cd", []string{"/home/user"}},
	}
	for _, tt := range tests {
		name, args, err := ParseLine(tt.line)
		require.NoError(t, err, tt.line)
		assert.Equal(t, tt.name, name, tt.line)
		if tt.args == nil {
			assert.Empty(t, args)
		} else {
			assert.Equal(t, tt.args, args, tt.line)
		}
	}
}

func TestRegistry_CaseInsensitiveAndUnique(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context, *SessionContext, []string) error { return nil }

	require.NoError(t, r.Register(Command{Name: "scan", Run: noop}))
	assert.Error(t, r.Register(Command{Name: "SCAN", Run: noop}))
	assert.Error(t, r.Register(Command{Name: "", Run: noop}))

	cmd, ok := r.Lookup("ScAn")
	require.True(t, ok)
	assert.Equal(t, "scan", cmd.Name)
}

func TestDefaultRegistry_GatingList(t *testing.T) {
	r := DefaultRegistry()
	gated := map[string]bool{
		"oracle": true, "whoami": true, "date": true, "ls": true, "cat": true,
		"pwd": true, "cd": true, "scan": true, "decrypt": true, "trace": true,
		"hack": true, "connect": true, "override": true,
	}
	for _, cmd := range r.Commands() {
		assert.Equal(t, gated[cmd.Name], cmd.UnlockRequired, cmd.Name)
	}
	assert.Len(t, r.Commands(), 24)
}

func TestExecute_UnknownCommand(t *testing.T) {
	f := newFixture(t, true)

	err := f.exec(t, "teleport now")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, f.out.Text(), "teleport: command not found")

	require.NoError(t, f.exec(t, "about"), "session keeps going")
}

func TestExecute_CaseInsensitive(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.exec(t, "ABOUT"))
	assert.Contains(t, f.out.Text(), "NEON TERMINAL")
}

func TestExecute_LockedCommand(t *testing.T) {
	f := newFixture(t, true)

	err := f.exec(t, "ls")
	require.Error(t, err)
	assert.True(t, IsLocked(err))
	assert.Contains(t, f.out.Text(), "ACCESS DENIED")
	assert.False(t, f.engine.HasStoryFlag("used_ls"))

	f.engine.UnlockCommand("ls")
	require.NoError(t, f.exec(t, "ls"))
	assert.True(t, f.engine.HasStoryFlag("used_ls"))
}

func TestExecute_UngatedAlwaysAvailable(t *testing.T) {
	f := newFixture(t, true)
	for _, line := range []string{"status", "matrix", "probe", "history", "theme", "help"} {
		assert.NoError(t, f.exec(t, line), line)
	}
}

func TestExecute_FirstCommandEvent(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.exec(t, "about"))
	assert.True(t, f.engine.HasStoryFlag("terminal_mastery_begun"))
}

func TestExecute_RejectedLinesLeaveStoryUntouched(t *testing.T) {
	f := newFixture(t, true)
	before := f.engine.Snapshot()

	for _, line := range []string{"nosuchcmd", "scan", "DECRYPT x"} {
		assert.Error(t, f.exec(t, line), line)
	}

	assert.Empty(t, f.engine.StoryFlags())
	assert.Equal(t, before, f.engine.Snapshot())

	_, saved, err := f.storage.Load(context.Background(), story.DefaultSlotKey)
	require.NoError(t, err)
	assert.False(t, saved, "rejected commands must not write the story slot")
}

func TestExecute_HelpTracksLearnedHelp(t *testing.T) {
	f := newFixture(t, true)

	require.NoError(t, f.exec(t, "help"))

	text := f.out.Text()
	assert.Contains(t, text, "Available commands:")
	assert.Contains(t, text, "mission")
	assert.NotContains(t, text, "override", "locked commands are hidden")
	assert.True(t, f.engine.HasStoryFlag("learned_help"))

	require.NoError(t, f.exec(t, "help decrypt"))
	assert.Contains(t, f.out.Text(), "[LOCKED]")
}

func TestExecute_HandlerPanicIsContained(t *testing.T) {
	f := newFixture(t, true)
	f.session.Context().Registry.MustRegister(Command{
		Name: "boom",
		Run: func(context.Context, *SessionContext, []string) error {
			f.engine.SetStoryFlag("before_panic")
			panic("kaboom")
		},
	})

	err := f.exec(t, "boom")
	require.Error(t, err)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodePanic, ce.Code)
	assert.Contains(t, f.out.Text(), "Error executing command 'boom'.")
	assert.True(t, f.engine.HasStoryFlag("before_panic"), "no rollback")

	require.NoError(t, f.exec(t, "about"))
}

func TestExecute_HandlerErrorWrapped(t *testing.T) {
	f := newFixture(t, true)
	cause := errors.New("disk on fire")
	f.session.Context().Registry.MustRegister(Command{
		Name: "fail",
		Run:  func(context.Context, *SessionContext, []string) error { return cause },
	})

	err := f.exec(t, "fail")
	require.ErrorIs(t, err, cause)
	var ce *CommandError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ErrCodeHandler, ce.Code)
}

func TestExecute_UsageError(t *testing.T) {
	f := newFixture(t, true)
	f.engine.UnlockCommand("cat")

	err := f.exec(t, "cat")
	require.Error(t, err)
	assert.True(t, IsUsage(err))
	assert.Contains(t, f.out.Text(), "cat: usage: cat <file>")
}

func TestCatBriefing_SetsFlagOnce(t *testing.T) {
	f := newFixture(t, true)
	f.engine.UnlockCommand("cat")

	require.NoError(t, f.exec(t, "cat briefing.txt"))
	assert.Contains(t, f.out.Text(), "OPERATOR BRIEFING")
	assert.True(t, f.engine.HasStoryFlag("read_briefing"))
	before := len(f.engine.StoryFlags())

	require.NoError(t, f.exec(t, "cat briefing.txt"))
	assert.Len(t, f.engine.StoryFlags(), before)
}

func TestCat_LockedFileIsMissing(t *testing.T) {
	f := newFixture(t, true)
	f.engine.UnlockCommand("cat")

	require.NoError(t, f.exec(t, "cat /archives/fragment_7.dat"))
	assert.Contains(t, f.out.Text(), "No such file")

	f.engine.SetStoryFlag("used_scan")
	require.NoError(t, f.exec(t, "cat /archives/fragment_7.dat"))
	assert.Contains(t, f.out.Text(), "[ENCRYPTED: caesar]")
}

func TestCd_UpdatesCwdAndPrompt(t *testing.T) {
	f := newFixture(t, true)
	f.engine.UnlockCommand("cd")
	f.engine.SetCharacterName("neo")

	require.NoError(t, f.exec(t, "cd /archives"))
	ui := f.session.Context().UI
	assert.Equal(t, "/archives", ui.Cwd)
	assert.Equal(t, "neo@neon:/archives$", ui.Prompt)
	assert.True(t, f.engine.HasStoryFlag("visited_archives"))

	require.NoError(t, f.exec(t, "cd ../nowhere"))
	assert.Contains(t, f.out.Text(), "cd: /nowhere: No such directory")
	assert.Equal(t, "/archives", ui.Cwd)

	require.NoError(t, f.exec(t, "cd"))
	assert.Equal(t, "neo@neon:~$", ui.Prompt)
}

func TestTutorialFlow_CompletesMission(t *testing.T) {
	f := newFixture(t, true)
	f.engine.SetCharacterName("neo")
	f.engine.UnlockCommand("oracle")

	require.NoError(t, f.exec(t, "oracle"))
	require.NoError(t, f.exec(t, "help"))
	assert.Equal(t, storydata.Tutorial, f.engine.CurrentMissionID())

	for _, line := range []string{"ls", "pwd", "cat briefing.txt"} {
		require.NoError(t, f.exec(t, line), line)
	}
	assert.Equal(t, storydata.DataRecovery, f.engine.CurrentMissionID())
	assert.Equal(t, 250, f.engine.ExperiencePoints())
	assert.Contains(t, f.anim.Names(), "mission_complete")
	assert.Contains(t, f.events.kinds, "mission_completed")
}

func TestDecryptAndOverride(t *testing.T) {
	f := newFixture(t, true)
	for _, cmd := range []string{"decrypt", "override", "cat"} {
		f.engine.UnlockCommand(cmd)
	}
	f.engine.SetStoryFlag("visited_archives")

	require.NoError(t, f.exec(t, "override"))
	assert.Contains(t, f.out.Text(), "ACCESS DENIED")
	assert.False(t, f.engine.HasStoryFlag("system_override"))

	require.NoError(t, f.exec(t, "decrypt /system/access.key"))
	assert.Contains(t, f.out.Text(), "Plaintext: override-authorised")

	require.NoError(t, f.exec(t, "override"))
	assert.True(t, f.engine.HasStoryFlag("system_override"))

	require.NoError(t, f.exec(t, "cat /classified/truth.txt"))
	assert.NotContains(t, f.out.Lines()[len(f.out.Lines())-1].Text, "No such file")
}

func TestReset_ConfirmedThroughReadLine(t *testing.T) {
	f := newFixture(t, true)
	f.engine.SetCharacterName("neo")
	f.engine.CompleteMission(storydata.Prologue)

	f.session.Submit("reset")
	f.session.Submit("RESET")
	f.session.Close()
	require.NoError(t, f.session.Run(context.Background()))

	assert.Empty(t, f.engine.CharacterName())
	assert.Equal(t, 0, f.engine.ExperiencePoints())
	assert.Contains(t, f.out.Text(), "Progress erased.")
}

func TestReset_Cancelled(t *testing.T) {
	f := newFixture(t, true)
	f.engine.SetCharacterName("neo")

	f.session.Submit("reset")
	f.session.Submit("no thanks")
	f.session.Close()
	require.NoError(t, f.session.Run(context.Background()))

	assert.Equal(t, "neo", f.engine.CharacterName())
	assert.Contains(t, f.out.Text(), "Reset cancelled.")
}

func TestReset_EOFWhileWaiting(t *testing.T) {
	f := newFixture(t, true)
	f.engine.SetCharacterName("neo")

	f.session.Submit("reset")
	f.session.Close()
	require.NoError(t, f.session.Run(context.Background()))
	assert.Equal(t, "neo", f.engine.CharacterName())
}

func TestSubmit_InteractiveBusyDropsInput(t *testing.T) {
	f := newFixture(t, true)
	pacer := console.NewPacer()
	f.session.interactive = true
	f.session.pacer = pacer

	f.session.busy.Store(true)
	assert.False(t, f.session.Submit("ls"))
	assert.False(t, f.session.Submit(""))
	assert.Equal(t, 0, f.session.queue.Len())

	f.session.awaiting.Store(true)
	assert.True(t, f.session.Submit("neo"), "direct input is delivered while busy")

	f.session.awaiting.Store(false)
	f.session.busy.Store(false)
	assert.True(t, f.session.Submit("ls"))
	assert.Equal(t, 2, f.session.queue.Len())
}

func TestHistory_PersistedAndCapped(t *testing.T) {
	f := newFixture(t, true)
	for i := 0; i < MaxHistory+5; i++ {
		_ = f.exec(t, "about "+strconv.Itoa(i))
	}

	h := LoadHistory(context.Background(), f.storage, discardLogger())
	entries := h.Entries()
	require.Len(t, entries, MaxHistory)
	assert.Equal(t, "about 5", entries[0])
	assert.Equal(t, "about 104", entries[MaxHistory-1])

	raw, ok, err := f.storage.Load(context.Background(), story.DefaultSlotKey)
	require.NoError(t, err)
	assert.True(t, ok, "story slot untouched by history writes")
	assert.NotEmpty(t, raw)
}

func TestHistoryCommand(t *testing.T) {
	f := newFixture(t, true)
	require.NoError(t, f.exec(t, "about"))
	require.NoError(t, f.exec(t, "history 1"))

	lines := f.out.Lines()
	last := lines[len(lines)-1].Text
	assert.Contains(t, last, "2")
	assert.Contains(t, last, "history 1")
}

func TestHistoryCommand_RejectsMalformedCount(t *testing.T) {
	f := newFixture(t, true)
	for _, arg := range []string{"3x", "0", "-2", "two"} {
		err := f.exec(t, "history "+arg)
		assert.True(t, IsUsage(err), "history %s: %v", arg, err)
	}
}

func TestEvents_RecordCommands(t *testing.T) {
	f := newFixture(t, true)
	_ = f.exec(t, "ls")

	assert.Equal(t, []string{"command"}, f.events.kinds)
	assert.Equal(t, "LOCKED", f.events.last["code"])
	assert.Equal(t, false, f.events.last["ok"])
}

func TestFallbackMode_NoStory(t *testing.T) {
	f := newFixture(t, false)

	require.NoError(t, f.exec(t, "ls"))
	assert.Contains(t, f.out.Text(), "readme.txt")

	require.NoError(t, f.exec(t, "cat readme.txt"))
	assert.Contains(t, f.out.Text(), "Story mode is offline")

	require.NoError(t, f.exec(t, "cd /"))
	require.NoError(t, f.exec(t, "pwd"))
	assert.Equal(t, "/", f.out.Lines()[len(f.out.Lines())-1].Text)

	require.NoError(t, f.exec(t, "mission"))
	assert.Contains(t, f.out.Text(), "Mission system offline.")
	assert.Equal(t, "guest@neon:/$", f.session.Context().UI.Prompt)
}

func TestTheme_SwitchesStyledWriter(t *testing.T) {
	sw := console.NewStyledWriter(io.Discard, "matrix")
	s, err := NewSession(Config{Out: sw, Logger: discardLogger(), SessionID: "t"})
	require.NoError(t, err)

	require.NoError(t, s.Execute(context.Background(), "theme amber"))
	assert.Equal(t, "amber", sw.Theme())
	assert.Equal(t, "amber", s.Context().UI.Theme)
}

func TestUIState_UpdatePrompt(t *testing.T) {
	ui := &UIState{Cwd: "/home/user/docs"}
	ui.UpdatePrompt("")
	assert.Equal(t, "guest@neon:~/docs$", ui.Prompt)
}

func TestResolvePath(t *testing.T) {
	assert.Equal(t, "/home/user", resolvePath("/archives", "~"))
	assert.Equal(t, "/home/user/x", resolvePath("/", "~/x"))
	assert.Equal(t, "/system", resolvePath("/archives", "../system"))
	assert.Equal(t, "/", resolvePath("/", ".."))
	assert.Equal(t, "/archives", resolvePath("/home", "/archives/"))
}
