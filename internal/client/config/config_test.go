package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "https://api.pagekeep.app", c.APIEndpoint)
	assert.Equal(t, "pagekeep.db", c.DatabasePath)
	assert.Equal(t, 10, c.PageSize)
	assert.Equal(t, 30*time.Second, c.SyncTimeout)
	assert.Empty(t, c.APIToken)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, "https://api.pagekeep.app", cfg.APIEndpoint)
	assert.Equal(t, 10, cfg.PageSize)
}
