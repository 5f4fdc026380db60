// Package settings manages the application configuration stored at
// ~/.repodeck/config.json. Missing files and missing keys fall back to
// defaults, so a fresh install works without any setup.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Settings holds the user-tunable application configuration.
type Settings struct {
	CloneBasePath string `json:"clone_base_path"`
	DefaultBranch string `json:"default_branch"`
	LogLevel      string `json:"log_level"`
	DashboardPort int    `json:"dashboard_port"`
}

// Defaults returns the built-in configuration.
func Defaults() Settings {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Settings{
		CloneBasePath: filepath.Join(home, "github_repos"),
		DefaultBranch: "main",
		LogLevel:      "info",
		DashboardPort: 8787,
	}
}

// DefaultPath returns ~/.repodeck/config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home directory: %w", err)
	}
	return filepath.Join(home, ".repodeck", "config.json"), nil
}

// Load reads settings from path, merging the file's values over the
// defaults. A missing file is not an error: it yields the defaults.
func Load(path string) (Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, fmt.Errorf("read settings %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return Defaults(), fmt.Errorf("parse settings %s: %w", path, err)
	}
	return s, nil
}

// Save writes settings to path, creating the parent directory if needed.
func Save(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write settings %s: %w", path, err)
	}
	return nil
}

// Keys lists the settable configuration keys in display order.
func Keys() []string {
	return []string{"clone_base_path", "default_branch", "log_level", "dashboard_port"}
}

// Get returns the value of a key by its JSON name.
func (s Settings) Get(key string) (string, error) {
	switch key {
	case "clone_base_path":
		return s.CloneBasePath, nil
	case "default_branch":
		return s.DefaultBranch, nil
	case "log_level":
		return s.LogLevel, nil
	case "dashboard_port":
		return strconv.Itoa(s.DashboardPort), nil
	default:
		return "", fmt.Errorf("unknown setting %q", key)
	}
}

// Set updates a key by its JSON name.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "clone_base_path":
		s.CloneBasePath = value
	case "default_branch":
		s.DefaultBranch = value
	case "log_level":
		s.LogLevel = value
	case "dashboard_port":
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port %q", value)
		}
		s.DashboardPort = port
	default:
		return fmt.Errorf("unknown setting %q", key)
	}
	return nil
}
