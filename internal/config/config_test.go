package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, 5*time.Minute, cfg.PermissionRefreshInterval)
	assert.Equal(t, "sqlite", cfg.AuthStoreDriver)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_TIMEOUT", "3s")
	t.Setenv("AUTH_STORE_DRIVER", "redis")
	t.Setenv("APP_ENV", "production")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.APITimeout)
	assert.Equal(t, "redis", cfg.AuthStoreDriver)
	assert.True(t, cfg.IsProduction())
}

func TestOrigins(t *testing.T) {
	cfg := &Config{AllowedOrigins: " http://a.local, ,http://b.local"}
	assert.Equal(t, []string{"http://a.local", "http://b.local"}, cfg.Origins())
	assert.Empty(t, (&Config{}).Origins())
}
