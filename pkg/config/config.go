// Package config handles configuration loading and management
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/lowmemd/lowmemd/pkg/types"
)

// DefaultConfigName is the config file the CLI looks for by default
const DefaultConfigName = "lowmemd.config.json"

// Manager handles configuration operations
type Manager struct{}

// NewManager creates a new configuration manager
func NewManager() *Manager {
	return &Manager{}
}

// LoadConfig loads configuration from a file
func (m *Manager) LoadConfig(path string) (*types.LowmemdConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg types.LowmemdConfig

	// Try JSON first
	if err := json.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	// Try YAML
	if err := yaml.Unmarshal(data, &cfg); err == nil {
		return m.validateConfig(&cfg)
	}

	return nil, fmt.Errorf("failed to parse config as JSON or YAML")
}

// ValidateConfig validates a configuration
func (m *Manager) ValidateConfig(config *types.LowmemdConfig) error {
	// Check version
	if config.Version != "1.0" {
		return fmt.Errorf("unsupported config version: %s", config.Version)
	}

	policy := &config.Policy

	if policy.Multiplier < 0 {
		return fmt.Errorf("multiplier must be non-negative, got %d", policy.Multiplier)
	}
	if policy.GracePeriodMS < 0 {
		return fmt.Errorf("grace period must be non-negative, got %d", policy.GracePeriodMS)
	}

	for i, floor := range policy.PriorityFloors {
		if i > 0 && floor < policy.PriorityFloors[i-1] {
			return fmt.Errorf("priority floors must be ascending: slot %d (%d) below slot %d (%d)",
				i, floor, i-1, policy.PriorityFloors[i-1])
		}
	}

	for i, pages := range policy.MinFreePages {
		if pages <= 0 {
			return fmt.Errorf("min free pages must be positive: slot %d is %d", i, pages)
		}
		if i > 0 && pages < policy.MinFreePages[i-1] {
			return fmt.Errorf("min free pages must be ascending: slot %d (%d) below slot %d (%d)",
				i, pages, i-1, policy.MinFreePages[i-1])
		}
	}

	// Tables longer than the slot cap are legal; the excess is ignored.
	// An empty pairing is legal too: the daemon idles with no tiers.

	if config.Daemon != nil && config.Daemon.PollIntervalMS < 0 {
		return fmt.Errorf("poll interval must be non-negative, got %d", config.Daemon.PollIntervalMS)
	}

	return nil
}

// GetDefaultConfig returns the default configuration, tuned to match the
// classic lowmemorykiller defaults.
func (m *Manager) GetDefaultConfig() *types.LowmemdConfig {
	enabled := false

	return &types.LowmemdConfig{
		Version: "1.0",
		Policy: types.EvictionPolicyConfig{
			PriorityFloors: []int{0, 1, 6, 12},
			MinFreePages:   []int64{1536, 2048, 4096, 16384},
			Multiplier:     36,
			LegacyMode:     false,
			DebugLevel:     2,
			GracePeriodMS:  1000,
		},
		Daemon: &types.DaemonConfig{
			PollIntervalMS: 1000,
			LogLevel:       "info",
		},
		Notifications: &types.NotificationConfig{
			Enabled: &enabled,
		},
	}
}

// WriteDefaultConfig writes the default configuration to path
func (m *Manager) WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := json.MarshalIndent(m.GetDefaultConfig(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// FindConfig searches dir and its ancestors for a config file
func (m *Manager) FindConfig(dir string) (string, error) {
	names := []string{DefaultConfigName, "lowmemd.config.yaml", "lowmemd.config.yml"}

	for {
		for _, name := range names {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no config file found")
		}
		dir = parent
	}
}

// Private methods

func (m *Manager) validateConfig(cfg *types.LowmemdConfig) (*types.LowmemdConfig, error) {
	if err := m.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
