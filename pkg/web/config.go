package web

import (
	"fmt"
	"strconv"

	"github.com/camtk/stereocam/internal/config"
)

// Config holds the streaming server settings.
type Config struct {
	// === Listener ===
	// Port the HTTP server listens on.
	Port string `json:"port"`

	// === Streaming ===
	// Quality is the JPEG quality for streamed frames (1-100).
	Quality int `json:"quality"`

	// === Snapshots ===
	// SnapshotDir receives snapshots saved through the API.
	SnapshotDir string `json:"snapshot_dir"`

	// === Diagnostics ===
	// Debug enables per-request logging.
	Debug bool `json:"debug"`
}

// DefaultConfig returns the standard server settings.
func DefaultConfig() Config {
	return Config{
		Port:        "8080",
		Quality:     85,
		SnapshotDir: ".",
	}
}

// FromEnv overlays environment overrides onto the config. WEB_PORT,
// WEB_QUALITY, WEB_SNAPSHOT_DIR and WEB_DEBUG are honored.
func (c Config) FromEnv() Config {
	c.Port = config.GetEnv("WEB_PORT", c.Port)
	c.Quality = config.GetEnvInt("WEB_QUALITY", c.Quality)
	c.SnapshotDir = config.GetEnv("WEB_SNAPSHOT_DIR", c.SnapshotDir)
	c.Debug = config.GetEnvBool("WEB_DEBUG", c.Debug)
	return c
}

// Validate checks the config values. Returns a list of validation
// errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		errors = append(errors, fmt.Sprintf("port %q must be a number between 1 and 65535", c.Port))
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.SnapshotDir == "" {
		errors = append(errors, "snapshot dir must be set")
	}
	return errors
}
