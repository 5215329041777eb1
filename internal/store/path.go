package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	appDir   = "carbon"
	fileName = "projects.json"
)

// ConfigHome resolves $XDG_CONFIG_HOME, falling back to $HOME/.config.
func ConfigHome() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return dir, nil
	}
	home := os.Getenv("HOME")
	if home == "" {
		h, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		home = h
	}
	if home == "" {
		return "", errors.New("resolve home dir: empty")
	}
	return filepath.Join(home, ".config"), nil
}

func DefaultDir() (string, error) {
	home, err := ConfigHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, appDir), nil
}

func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, fileName), nil
}
