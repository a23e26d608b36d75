// Package config loads and persists sparcl's workspace configuration.
//
// Two files live under .sparcl/ in the workspace root: config.yaml holds
// the operator-facing settings (storage driver, mode policy, marker
// calibration), and config.json holds per-user state (theme, debug
// logging) that the logging package also reads at startup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the workspace configuration from .sparcl/config.yaml.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Storage   StorageConfig   `yaml:"storage"`
	Logging   LoggingConfig   `yaml:"logging"`
	Modes     ModesConfig     `yaml:"modes"`
	P2P       P2PConfig       `yaml:"p2p"`
	Marker    MarkerConfig    `yaml:"marker"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

// StorageConfig selects the settings backend.
type StorageConfig struct {
	Driver string `yaml:"driver"` // memory, file, sqlite
	Path   string `yaml:"path"`   // backend file, relative paths resolve against the workspace
}

// ModesConfig controls which AR modes the client may enter.
type ModesConfig struct {
	Default string `yaml:"default"` // mode used when the persisted setting is absent
	// Allowed restricts the modes a user can switch to.
	// Empty means every valid mode is allowed.
	Allowed []string `yaml:"allowed"`
}

// P2PConfig configures the peer-to-peer content sync connection.
type P2PConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ServiceURL string `yaml:"service_url"`
	Timeout    string `yaml:"timeout"` // Go duration string, e.g. "30s"
}

// MarkerConfig calibrates marker mode. Width is the printed size of the
// marker image in meters; tracking scales content from it.
type MarkerConfig struct {
	Image string  `yaml:"image"`
	Width float64 `yaml:"width"`
}

// DiscoveryConfig locates the service records used outside live SSD lookups.
type DiscoveryConfig struct {
	RecordsPath string `yaml:"records_path"`
	Refresh     string `yaml:"refresh"` // Go duration string between reloads
}

// ValidDrivers lists the supported storage backends.
var ValidDrivers = []string{"memory", "file", "sqlite"}

// ValidModes lists the AR modes the client understands.
var ValidModes = []string{"auto", "oscp", "marker", "creator", "dev", "experiment"}

// DefaultConfig returns the configuration used when config.yaml is absent.
func DefaultConfig() *Config {
	return &Config{
		Name:    "sparcl",
		Version: "0.1.0",

		Storage: StorageConfig{
			Driver: "file",
			Path:   ".sparcl/settings.json",
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		Modes: ModesConfig{
			Default: "auto",
		},

		P2P: P2PConfig{
			Enabled: false,
			Timeout: "30s",
		},

		Marker: MarkerConfig{
			Image: "/media/overlays/marker.jpg",
			Width: 0.2,
		},

		Discovery: DiscoveryConfig{
			RecordsPath: ".sparcl/services.json",
			Refresh:     "30s",
		},
	}
}

// Load reads config.yaml from path. A missing file is not an error;
// defaults are returned. Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets SPARCL_* environment variables win over file values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SPARCL_STORAGE_DRIVER"); v != "" {
		c.Storage.Driver = v
	}
	if v := os.Getenv("SPARCL_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("SPARCL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SPARCL_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.DebugMode = b
		}
	}
	if v := os.Getenv("SPARCL_MODE"); v != "" {
		c.Modes.Default = v
	}
	if v := os.Getenv("SPARCL_MARKER_IMAGE"); v != "" {
		c.Marker.Image = v
	}
	if v := os.Getenv("SPARCL_MARKER_WIDTH"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			c.Marker.Width = w
		}
	}
	if v := os.Getenv("SPARCL_P2P_URL"); v != "" {
		c.P2P.ServiceURL = v
	}
	if v := os.Getenv("SPARCL_SERVICES"); v != "" {
		c.Discovery.RecordsPath = v
	}
}

// Validate checks the configuration for values the client cannot run with.
func (c *Config) Validate() error {
	if !contains(ValidDrivers, c.Storage.Driver) {
		return fmt.Errorf("invalid storage driver: %s (valid: %v)", c.Storage.Driver, ValidDrivers)
	}
	if !contains(ValidModes, c.Modes.Default) {
		return fmt.Errorf("invalid default mode: %s (valid: %v)", c.Modes.Default, ValidModes)
	}
	for _, mode := range c.Modes.Allowed {
		if !contains(ValidModes, mode) {
			return fmt.Errorf("invalid allowed mode: %s (valid: %v)", mode, ValidModes)
		}
	}
	if w := c.Marker.Width; w != 0 && (w < 0.01 || w > 10) {
		return fmt.Errorf("marker width %.3f out of range [0.01, 10]", w)
	}
	if c.P2P.Timeout != "" {
		if _, err := time.ParseDuration(c.P2P.Timeout); err != nil {
			return fmt.Errorf("invalid p2p timeout: %w", err)
		}
	}
	if c.Discovery.Refresh != "" {
		if _, err := time.ParseDuration(c.Discovery.Refresh); err != nil {
			return fmt.Errorf("invalid discovery refresh: %w", err)
		}
	}
	return nil
}

// IsModeAllowed reports whether the user may switch to mode.
// An empty allow list permits every valid mode.
func (c *Config) IsModeAllowed(mode string) bool {
	if !contains(ValidModes, mode) {
		return false
	}
	if len(c.Modes.Allowed) == 0 {
		return true
	}
	return contains(c.Modes.Allowed, mode)
}

// GetP2PTimeout returns the p2p timeout as a duration.
func (c *Config) GetP2PTimeout() time.Duration {
	d, err := time.ParseDuration(c.P2P.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetDiscoveryRefresh returns the discovery refresh interval as a duration.
func (c *Config) GetDiscoveryRefresh() time.Duration {
	d, err := time.ParseDuration(c.Discovery.Refresh)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// StoragePath resolves the settings backend path against the workspace root.
func (c *Config) StoragePath(workspace string) string {
	return resolvePath(workspace, c.Storage.Path)
}

// ServicesPath resolves the service records path against the workspace root.
func (c *Config) ServicesPath(workspace string) string {
	return resolvePath(workspace, c.Discovery.RecordsPath)
}

func resolvePath(workspace, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(workspace, path)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// DefaultConfigPath returns the path to .sparcl/config.yaml in the workspace root.
func DefaultConfigPath() string {
	root, err := FindWorkspaceRoot()
	if err != nil {
		return filepath.Join(".sparcl", "config.yaml")
	}
	return filepath.Join(root, ".sparcl", "config.yaml")
}
