// Package config loads the hexciv configuration file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete runtime configuration.
type Config struct {
	Seed          int64    `yaml:"seed"` // 0 draws a random seed
	MapRadius     int      `yaml:"map_radius"`
	Civilizations []string `yaml:"civilizations"` // First entry is the player
	RulesPath     string   `yaml:"rules_path"`    // Empty uses the built-in rules

	DBPath      string `yaml:"db_path"`
	SnapshotDir string `yaml:"snapshot_dir"`

	APIPort     int    `yaml:"api_port"`
	AdminKeyEnv string `yaml:"admin_key_env"` // Environment variable holding the admin bearer token

	TurnIntervalMS int    `yaml:"turn_interval_ms"`
	AutosaveEvery  int    `yaml:"autosave_every"` // Turns between database saves
	SnapshotEvery  int    `yaml:"snapshot_every"` // Turns between snapshot files; 0 = never
	UndoDepth      int    `yaml:"undo_depth"`     // Turns that can be undone
	MaxTurns       int    `yaml:"max_turns"`      // 0 = run until stopped
	LogLevel       string `yaml:"log_level"`      // debug, info, warn or error
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		MapRadius:      12,
		Civilizations:  []string{"Rome", "Greece", "Egypt"},
		DBPath:         "data/hexciv.db",
		SnapshotDir:    "data/snapshots",
		APIPort:        8080,
		AdminKeyEnv:    "HEXCIV_ADMIN_KEY",
		TurnIntervalMS: 2000,
		AutosaveEvery:  1,
		SnapshotEvery:  10,
		UndoDepth:      5,
		LogLevel:       "info",
	}
}

// Normalize trims names and lower-cases the log level.
func (c *Config) Normalize() {
	if c == nil {
		return
	}
	names := c.Civilizations[:0]
	for _, name := range c.Civilizations {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	c.Civilizations = names
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.RulesPath = strings.TrimSpace(c.RulesPath)
}

// Validate checks value ranges.
func (c Config) Validate() error {
	var errs []error
	if c.MapRadius < 3 {
		errs = append(errs, fmt.Errorf("map_radius must be at least 3, got %d", c.MapRadius))
	}
	if len(c.Civilizations) == 0 {
		errs = append(errs, errors.New("civilizations must name at least the player"))
	}
	seen := make(map[string]bool)
	for _, name := range c.Civilizations {
		if seen[name] {
			errs = append(errs, fmt.Errorf("civilization %q listed twice", name))
		}
		seen[name] = true
	}
	if c.DBPath == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("api_port out of range: %d", c.APIPort))
	}
	if c.TurnIntervalMS <= 0 {
		errs = append(errs, fmt.Errorf("turn_interval_ms must be positive, got %d", c.TurnIntervalMS))
	}
	for name, v := range map[string]int{
		"autosave_every": c.AutosaveEvery,
		"snapshot_every": c.SnapshotEvery,
		"undo_depth":     c.UndoDepth,
		"max_turns":      c.MaxTurns,
	} {
		if v < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %d", name, v))
		}
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level returns the slog level for LogLevel.
func (c Config) Level() (slog.Level, error) {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log_level %q", c.LogLevel)
}

// TurnInterval returns the time between turns at speed 1.
func (c Config) TurnInterval() time.Duration {
	return time.Duration(c.TurnIntervalMS) * time.Millisecond
}

// AdminKey returns the admin token from the configured environment variable.
func (c Config) AdminKey() string {
	if c.AdminKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.AdminKeyEnv)
}
