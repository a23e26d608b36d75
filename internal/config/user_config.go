package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// UserConfig holds per-user state from .sparcl/config.json.
// The logging package reads the same file for its debug toggles, so the
// Logging block here must stay shape-compatible with what it parses.
type UserConfig struct {
	// Theme for the dashboard ("light", "dark" or "auto")
	Theme string `json:"theme,omitempty"`

	// Logging debug toggles
	Logging *LoggingConfig `json:"logging,omitempty"`
}

// ValidThemes lists the dashboard themes.
var ValidThemes = []string{"light", "dark", "auto"}

// DefaultUserConfig returns a UserConfig with sensible defaults.
func DefaultUserConfig() *UserConfig {
	return &UserConfig{
		Theme: "dark",
	}
}

// GetTheme returns the configured theme, defaulting to "dark".
func (c *UserConfig) GetTheme() string {
	if c == nil || c.Theme == "" {
		return "dark"
	}
	return c.Theme
}

// SetTheme updates the theme setting.
func (c *UserConfig) SetTheme(theme string) error {
	if !contains(ValidThemes, theme) {
		return fmt.Errorf("invalid theme: %s (valid: %v)", theme, ValidThemes)
	}
	c.Theme = theme
	return nil
}

// GetLogging returns logging settings with defaults applied.
func (c *UserConfig) GetLogging() LoggingConfig {
	if c.Logging != nil {
		cfg := *c.Logging
		if cfg.Level == "" {
			cfg.Level = "info"
		}
		// DebugMode stays false (production mode) unless explicitly set
		return cfg
	}
	return LoggingConfig{
		Level:     "info",
		DebugMode: false,
	}
}

// SetDebugMode flips the master logging toggle. Categories already chosen
// by the user are kept.
func (c *UserConfig) SetDebugMode(enabled bool) {
	if c.Logging == nil {
		c.Logging = &LoggingConfig{Level: "debug"}
	}
	c.Logging.DebugMode = enabled
}

// DefaultUserConfigPath returns the default path to .sparcl/config.json.
func DefaultUserConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".sparcl", "config.json")
	}
	return filepath.Join(root, ".sparcl", "config.json")
}

// FindWorkspaceRoot attempts to find the project root by looking for .sparcl or go.mod.
// If not found, returns the current working directory.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".sparcl")); err == nil {
			return dir, nil
		}
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}

// LoadUserConfig loads configuration from .sparcl/config.json.
func LoadUserConfig(path string) (*UserConfig, error) {
	cfg := &UserConfig{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return empty config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read user config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse user config: %w", err)
	}

	return cfg, nil
}

// Save saves configuration to .sparcl/config.json.
func (c *UserConfig) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write user config: %w", err)
	}

	return nil
}

// GlobalConfig loads the user config from the default path.
// Returns an empty config if the file doesn't exist.
func GlobalConfig() (*UserConfig, error) {
	return LoadUserConfig(DefaultUserConfigPath())
}
