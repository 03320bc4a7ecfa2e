package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_parseEnv_Overlays(t *testing.T) {
	t.Setenv("PAGEKEEP_API_ENDPOINT", "https://env.example")
	t.Setenv("PAGEKEEP_API_TOKEN", "env-token")
	t.Setenv("PAGEKEEP_DB_PATH", "/tmp/env.db")
	t.Setenv("PAGEKEEP_PAGE_SIZE", "25")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "https://env.example", cfg.APIEndpoint)
	assert.Equal(t, "env-token", cfg.APIToken)
	assert.Equal(t, "/tmp/env.db", cfg.DatabasePath)
	assert.Equal(t, 25, cfg.PageSize)
}

func Test_parseEnv_IgnoresEmptyAndInvalid(t *testing.T) {
	t.Setenv("PAGEKEEP_API_ENDPOINT", "")
	t.Setenv("PAGEKEEP_PAGE_SIZE", "not-a-number")

	cfg := &Config{}
	cfg.LoadDefaults()
	parseEnv(cfg)

	assert.Equal(t, "https://api.pagekeep.app", cfg.APIEndpoint)
	assert.Equal(t, 10, cfg.PageSize)
}
