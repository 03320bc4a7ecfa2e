package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pagekeep/pagekeep/internal/flagx"
	"github.com/pagekeep/pagekeep/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies
// on timex.Duration so JSON can specify intervals either as strings like
// "30s" or as integer nanoseconds.
type JsonConfig struct {
	APIEndpoint  string         `json:"api_endpoint"`
	DatabasePath string         `json:"database_path"`
	PageSize     int            `json:"page_size"`
	SyncTimeout  timex.Duration `json:"sync_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file. The
// file path comes from the -c or -config flag; when neither is set no
// JSON is loaded. Empty fields in the file leave the current value
// untouched.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIEndpoint != "" {
		cfg.APIEndpoint = jc.APIEndpoint
	}
	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.PageSize > 0 {
		cfg.PageSize = jc.PageSize
	}
	if jc.SyncTimeout.Duration > 0 {
		cfg.SyncTimeout = time.Duration(jc.SyncTimeout.Duration)
	}
}
