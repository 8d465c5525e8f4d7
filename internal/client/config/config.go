package config

import "time"

// Config holds runtime settings for the QConnect CLI.
//
// Fields:
//   - ProviderRegion: AWS region of the Cognito user pool.
//   - ProviderClientID: Cognito app client id used for all pool operations.
//   - DatabaseDSN: SQLite DSN of the local credential store.
//   - RefreshSkew: how far ahead of expiry a token refresh is triggered.
//   - RefreshWait: how long a caller waits on an in-flight refresh it did
//     not start before giving up.
type Config struct {
	ProviderRegion   string
	ProviderClientID string
	DatabaseDSN      string
	RefreshSkew      time.Duration
	RefreshWait      time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ProviderRegion = "ap-northeast-1"
	c.ProviderClientID = ""
	c.DatabaseDSN = "session.db"
	c.RefreshSkew = 5 * time.Minute
	c.RefreshWait = 30 * time.Second
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
