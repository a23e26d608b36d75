package config

// LoggingConfig configures the category logging system. The same struct
// serializes into config.yaml (yaml tags) and .sparcl/config.json (json
// tags), where the logging package reads it at startup.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"`             // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`   // master toggle, false means no log files at all
	JSONFormat bool            `yaml:"json_format" json:"json_format,omitempty"` // structured JSON lines instead of text
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`   // per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true // All enabled by default in debug mode
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}
