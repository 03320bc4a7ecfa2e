package config

import "time"

// Config holds runtime settings for the PageKeep client.
//
// Fields:
//   - APIEndpoint: base URL of the backend service.
//   - APIToken: session token; usually restored from local storage, but
//     can be injected for scripted use.
//   - DatabasePath: path of the SQLite database file.
//   - PageSize: number of items per feed page.
//   - SyncTimeout: upper bound on a foreground sync call.
type Config struct {
	APIEndpoint  string
	APIToken     string
	DatabasePath string
	PageSize     int
	SyncTimeout  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIEndpoint = "https://api.pagekeep.app"
	c.DatabasePath = "pagekeep.db"
	c.PageSize = 10
	c.SyncTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from the environment (including a .env file if present), JSON (if
// present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
