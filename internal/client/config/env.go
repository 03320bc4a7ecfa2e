package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config with values from the process environment.
// A .env file in the working directory is loaded first; variables
// already present in the environment win over the file.
//
// Recognized variables:
//
//	PAGEKEEP_API_ENDPOINT
//	PAGEKEEP_API_TOKEN
//	PAGEKEEP_DB_PATH
//	PAGEKEEP_PAGE_SIZE
func parseEnv(cfg *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PAGEKEEP_API_ENDPOINT"); v != "" {
		cfg.APIEndpoint = v
	}
	if v := os.Getenv("PAGEKEEP_API_TOKEN"); v != "" {
		cfg.APIToken = v
	}
	if v := os.Getenv("PAGEKEEP_DB_PATH"); v != "" {
		cfg.DatabasePath = v
	}
	if v := os.Getenv("PAGEKEEP_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
}
