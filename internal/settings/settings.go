// Package settings reads the optional carbon config.yaml that lives next to
// the projects file.
package settings

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const FileName = "config.yaml"

type Settings struct {
	StrictLoad bool   `yaml:"strict_load"`
	TimeFormat string `yaml:"time_format"`
	LogLevel   string `yaml:"log_level"`
}

// PathFor returns the settings path that sits beside dataPath.
func PathFor(dataPath string) string {
	return filepath.Join(filepath.Dir(dataPath), FileName)
}

// Load reads path. A missing file yields zero Settings.
func Load(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Settings{}, nil
		}
		return Settings{}, fmt.Errorf("read settings: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if _, err := s.Level(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Level maps log_level to a slog level; empty means info.
func (s Settings) Level() (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s.LogLevel)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log_level %q", s.LogLevel)
	}
}
