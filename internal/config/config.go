// Package config loads cyberterm settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/roach88/cyberterm/internal/console"
)

// DefaultDotenv is the file Load reads when no paths are given.
const DefaultDotenv = ".env"

// Config holds the runtime settings. Command-line flags override it.
type Config struct {
	// DBPath is the SQLite save file.
	DBPath string `env:"CYBERTERM_DB" envDefault:"cyberterm.db"`

	Theme string `env:"CYBERTERM_THEME" envDefault:"matrix"`

	// TypingDelay is the pause after each printed line in interactive play.
	TypingDelay time.Duration `env:"CYBERTERM_TYPING_DELAY" envDefault:"15ms"`

	SkipIntro bool `env:"CYBERTERM_SKIP_INTRO" envDefault:"false"`

	// DataDir overrides the embedded story data when set.
	DataDir string `env:"CYBERTERM_DATA_DIR"`

	LogLevel string `env:"CYBERTERM_LOG_LEVEL" envDefault:"warn"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the dotenv files (missing files are ignored), then parses the
// process environment. Variables already set in the environment win over the
// dotenv files.
func Load(dotenvPaths ...string) (Config, error) {
	if len(dotenvPaths) == 0 {
		dotenvPaths = []string{DefaultDotenv}
	}
	for _, p := range dotenvPaths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", p, err)
		}
	}

	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// FromMap parses configuration from an explicit environment, ignoring the
// process environment.
func FromMap(environ map[string]string) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate checks values the tags cannot.
func (c Config) Validate() error {
	if !console.IsTheme(c.Theme) {
		return fmt.Errorf("CYBERTERM_THEME: unknown theme %q (available: %s)",
			c.Theme, strings.Join(console.Themes(), ", "))
	}
	if c.TypingDelay < 0 {
		return fmt.Errorf("CYBERTERM_TYPING_DELAY: must not be negative, got %s", c.TypingDelay)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel (debug, info, warn, error).
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn, fmt.Errorf("CYBERTERM_LOG_LEVEL: %w", err)
	}
	return level, nil
}
