// Package config loads the agent configuration: defaults, then an optional
// JSON file, then command-line flags, later sources winning.
package config

import "github.com/refsync/refsync/internal/client/uploader"

// Config holds runtime settings for the RefSync agent.
//
// Fields:
//   - ServerAddr: base URL of the queue service.
//   - DatabaseDSN: path of the local SQLite catalog.
//   - UploadConcurrency: worker budget of the upload engine.
type Config struct {
	ServerAddr        string
	DatabaseDSN       string
	UploadConcurrency int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerAddr = "http://127.0.0.1:8080"
	c.DatabaseDSN = "refsync.db"
	c.UploadConcurrency = uploader.DefaultConcurrency
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later sources
// take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
