// Package config holds runtime settings for the notekeeper CLI and resolves
// them from defaults, an optional JSON file and command-line flags, in that
// order of precedence.
package config

import "time"

// Config holds runtime settings.
//
// RemoteDSN empty means the app runs local-only: version history works,
// push/pull/subscribe are unavailable.
type Config struct {
	LocalDSN  string
	RemoteDSN string
	UserID    string
	DeviceID  string

	MaxVersionsPerResource int
	MaxVersionsTotal       int

	SweepInterval     time.Duration
	AutoSaveThreshold time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.LocalDSN = "notekeeper.db"
	c.RemoteDSN = ""
	c.UserID = ""
	c.DeviceID = ""
	c.MaxVersionsPerResource = 50
	c.MaxVersionsTotal = 1000
	c.SweepInterval = 5 * time.Second
	c.AutoSaveThreshold = 5 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
