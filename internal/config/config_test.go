package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromMap_Defaults(t *testing.T) {
	cfg, err := FromMap(map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, Config{
		DBPath:      "cyberterm.db",
		Theme:       "matrix",
		TypingDelay: 15 * time.Millisecond,
		SkipIntro:   false,
		DataDir:     "",
		LogLevel:    "warn",
	}, cfg)
}

func TestFromMap_Overrides(t *testing.T) {
	cfg, err := FromMap(map[string]string{
		"CYBERTERM_DB":           "/tmp/save.db",
		"CYBERTERM_THEME":        "amber",
		"CYBERTERM_TYPING_DELAY": "0s",
		"CYBERTERM_SKIP_INTRO":   "true",
		"CYBERTERM_DATA_DIR":     "./story",
		"CYBERTERM_LOG_LEVEL":    "debug",
	})
	require.NoError(t, err)

	assert.Equal(t, "/tmp/save.db", cfg.DBPath)
	assert.Equal(t, "amber", cfg.Theme)
	assert.Zero(t, cfg.TypingDelay)
	assert.True(t, cfg.SkipIntro)
	assert.Equal(t, "./story", cfg.DataDir)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestFromMap_EmptyValueUsesDefault(t *testing.T) {
	cfg, err := FromMap(map[string]string{"CYBERTERM_THEME": ""})
	require.NoError(t, err)
	assert.Equal(t, "matrix", cfg.Theme)
}

func TestFromMap_Errors(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
		want    string
	}{
		{"bad duration", map[string]string{"CYBERTERM_TYPING_DELAY": "soon"}, "parse env"},
		{"bad bool", map[string]string{"CYBERTERM_SKIP_INTRO": "maybe"}, "parse env"},
		{"negative delay", map[string]string{"CYBERTERM_TYPING_DELAY": "-1s"}, "must not be negative"},
		{"unknown theme", map[string]string{"CYBERTERM_THEME": "neon-pink"}, `unknown theme "neon-pink"`},
		{"bad level", map[string]string{"CYBERTERM_LOG_LEVEL": "loud"}, "CYBERTERM_LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromMap(tt.environ)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_DotenvDoesNotOverrideEnvironment(t *testing.T) {
	dir := t.TempDir()
	dotenv := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(dotenv, []byte("CYBERTERM_THEME=cyan\nCYBERTERM_DATA_DIR=/from/dotenv\n"), 0o644))

	t.Setenv("CYBERTERM_THEME", "amber")
	t.Cleanup(func() { os.Unsetenv("CYBERTERM_DATA_DIR") })

	cfg, err := Load(dotenv)
	require.NoError(t, err)
	assert.Equal(t, "amber", cfg.Theme)
	assert.Equal(t, "/from/dotenv", cfg.DataDir)
}

func TestLoad_MissingDotenvIsIgnored(t *testing.T) {
	t.Setenv("CYBERTERM_DB", "elsewhere.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "elsewhere.db", cfg.DBPath)
}

func TestParseEnv_WrapsErrors(t *testing.T) {
	t.Setenv("CYBERTERM_SKIP_INTRO", "sometimes")

	var cfg Config
	err := ParseEnv(&cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}
