package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
	"github.com/tailscale/hujson"

	"pillar/internal/entity"
)

// configVersion is the workspace layout version written by Init.
const configVersion = 1

// Config is the parsed .pillar/config.json. The file is HuJSON, so comments
// and trailing commas in hand-edited configs are tolerated.
type Config struct {
	Workspace WorkspaceConfig `json:"workspace"`
	Defaults  DefaultsConfig  `json:"defaults"`
}

// WorkspaceConfig holds layout settings.
type WorkspaceConfig struct {
	Version       int    `json:"version"`
	BaseDirectory string `json:"base_directory"`
}

// DefaultsConfig holds the status and priority applied to new issues when the
// caller does not pass them.
type DefaultsConfig struct {
	Status   string `json:"status"`
	Priority string `json:"priority"`
}

// DefaultConfig returns the config Init writes for a fresh workspace.
func DefaultConfig(base string) Config {
	return Config{
		Workspace: WorkspaceConfig{Version: configVersion, BaseDirectory: base},
		Defaults: DefaultsConfig{
			Status:   string(entity.StatusTodo),
			Priority: string(entity.PriorityMedium),
		},
	}
}

// DefaultStatus resolves the configured default status for new issues.
func (c Config) DefaultStatus() (entity.Status, error) {
	if c.Defaults.Status == "" {
		return entity.StatusTodo, nil
	}

	return entity.ParseStatus(c.Defaults.Status)
}

// DefaultPriority resolves the configured default priority for new issues.
func (c Config) DefaultPriority() (entity.Priority, error) {
	if c.Defaults.Priority == "" {
		return entity.PriorityMedium, nil
	}

	return entity.ParsePriority(c.Defaults.Priority)
}

// LoadConfig reads and parses a workspace config file.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	std, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Workspace.BaseDirectory == "" {
		cfg.Workspace.BaseDirectory = "."
	}

	return cfg, nil
}

// WriteConfig atomically writes cfg as commented HuJSON.
func WriteConfig(path string, cfg Config) error {
	content := fmt.Sprintf(`{
  // pillar workspace configuration
  "workspace": {
    "version": %d,
    "base_directory": %q,
  },
  // defaults applied when creating issues without explicit flags
  "defaults": {
    "status": %q,
    "priority": %q,
  },
}
`, cfg.Workspace.Version, cfg.Workspace.BaseDirectory, cfg.Defaults.Status, cfg.Defaults.Priority)

	if err := atomic.WriteFile(path, bytes.NewReader([]byte(content))); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}

	return nil
}
