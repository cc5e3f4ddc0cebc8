package console

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyle_String(t *testing.T) {
	assert.Equal(t, "output", StyleOutput.String())
	assert.Equal(t, "story", StyleStory.String())
	assert.Equal(t, "Style(42)", Style(42).String())

	s, ok := ParseStyle("warning")
	require.True(t, ok)
	assert.Equal(t, StyleWarning, s)

	_, ok = ParseStyle("sparkle")
	assert.False(t, ok)
}

func TestTranscript_RecordsInOrder(t *testing.T) {
	ctx := context.Background()
	tr := NewTranscript()

	require.NoError(t, tr.Print(ctx, "one", StyleInfo))
	require.NoError(t, Println(ctx, tr, StyleStory, "two", "three"))

	assert.Equal(t, []Line{
		{Text: "one", Style: StyleInfo},
		{Text: "two", Style: StyleStory},
		{Text: "three", Style: StyleStory},
	}, tr.Lines())
	assert.Equal(t, "one\ntwo\nthree", tr.Text())
}

func TestTranscript_ClearKeepsHistory(t *testing.T) {
	ctx := context.Background()
	tr := NewTranscript()
	require.NoError(t, tr.Print(ctx, "before", StyleOutput))

	require.NoError(t, tr.Clear())
	require.NoError(t, tr.Print(ctx, "after", StyleOutput))

	assert.Len(t, tr.Lines(), 1)
	assert.Len(t, tr.History(), 2)
	assert.Equal(t, "before\nafter", tr.Text())
}

func TestTranscript_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tr := NewTranscript()
	assert.ErrorIs(t, tr.Print(ctx, "x", StyleOutput), context.Canceled)
	assert.Empty(t, tr.Lines())
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Trigger("mission_complete", map[string]any{"mission": "prologue"})
	r.Trigger("glitch", nil)

	assert.Equal(t, []string{"mission_complete", "glitch"}, r.Names())
	assert.Equal(t, "prologue", r.Events()[0].Payload["mission"])
}

func TestStyledWriter_PlainOutputOnPipe(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStyledWriter(&buf, "amber")

	require.NoError(t, sw.Print(context.Background(), "ACCESS GRANTED", StyleSuccess))
	require.NoError(t, sw.Prompt("neo@neon:~$"))

	assert.Equal(t, "ACCESS GRANTED\nneo@neon:~$ ", buf.String())
	assert.Equal(t, "amber", sw.Theme())
}

func TestStyledWriter_Themes(t *testing.T) {
	sw := NewStyledWriter(&bytes.Buffer{}, "no-such-theme")
	assert.Equal(t, DefaultTheme, sw.Theme())

	assert.Error(t, sw.SetTheme("plaid"))
	require.NoError(t, sw.SetTheme("mono"))
	assert.Equal(t, "mono", sw.Theme())

	assert.Equal(t, []string{"amber", "cyan", "matrix", "mono"}, Themes())
	assert.True(t, IsTheme("cyan"))
}

func TestStyledWriter_Clear(t *testing.T) {
	var buf bytes.Buffer
	sw := NewStyledWriter(&buf, "mono")

	require.NoError(t, sw.Clear())
	assert.Equal(t, "\x1b[H\x1b[2J", buf.String())
}

func TestPacer_SkipEndsPause(t *testing.T) {
	p := NewPacer()
	done := make(chan error, 1)

	go func() {
		done <- p.Pause(context.Background(), time.Hour)
	}()

	// Keep skipping until the pause observes it.
	deadline := time.After(5 * time.Second)
	for {
		p.Skip()
		select {
		case err := <-done:
			assert.NoError(t, err)
			return
		case <-deadline:
			t.Fatal("pause was not skipped")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestPacer_Instant(t *testing.T) {
	p := NewPacer()
	p.SetInstant(true)

	start := time.Now()
	require.NoError(t, p.Pause(context.Background(), time.Hour))
	assert.Less(t, time.Since(start), time.Second)
}

func TestPacer_ContextCancel(t *testing.T) {
	p := NewPacer()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, p.Pause(ctx, time.Hour), context.DeadlineExceeded)
}
