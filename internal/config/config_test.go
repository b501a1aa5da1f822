package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "portfolio-portal", cfg.App.Name)
	assert.Equal(t, 5*time.Second, cfg.Poller.Interval())
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, "memory", cfg.Poller.Ledger)
	assert.Equal(t, "/me", cfg.Backend.MePath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("BACKEND_BASE_URL", "https://api.example.test")
	t.Setenv("POLLER_INTERVAL_MS", "250")
	t.Setenv("SESSION_STORE", "redis")
	t.Setenv("SESSION_TTL_MINUTES", "30")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, "https://api.example.test", cfg.Backend.BaseURL)
	assert.Equal(t, 250*time.Millisecond, cfg.Poller.Interval())
	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("unknown session store", func(t *testing.T) {
		t.Setenv("SESSION_STORE", "cookie")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres ledger without dsn", func(t *testing.T) {
		t.Setenv("POLLER_LEDGER", "postgres")
		t.Setenv("POSTGRES_DSN", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("invalid redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "one")
		_, err := Load()
		assert.Error(t, err)
	})
}
