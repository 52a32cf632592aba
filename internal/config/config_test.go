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

	assert.Equal(t, "https://api.tzevaadom.live/v1/alerts", cfg.AlertAPIURL)
	assert.Equal(t, "http://ip-api.com/json", cfg.GeoIPURL)
	assert.Empty(t, cfg.SensorURL, "no sensor bridge unless configured")
	assert.Equal(t, "127.0.0.1:7931", cfg.ListenAddr)
	assert.Equal(t, "warningd.db", cfg.StorePath)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5.0, cfg.DefaultPollIntervalMinutes)
	assert.Equal(t, 60000, cfg.DefaultAlertTimeoutMs)
	assert.Equal(t, "en", cfg.DefaultLanguage)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ALERT_API_URL", "http://localhost:9000/alerts")
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9001")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("DEFAULT_POLL_INTERVAL_MINUTES", "0.5")
	t.Setenv("LOG_FORMAT", "console")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000/alerts", cfg.AlertAPIURL)
	assert.Equal(t, "127.0.0.1:9001", cfg.ListenAddr)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 0.5, cfg.DefaultPollIntervalMinutes)
	assert.Equal(t, "console", cfg.LogFormat)
}

func TestLoadRejectsEmptyRequiredValues(t *testing.T) {
	t.Run("alert api url", func(t *testing.T) {
		t.Setenv("ALERT_API_URL", "")
		// envDefault does not apply when the variable is set but empty.
		_, err := Load()
		require.Error(t, err)
	})

	t.Run("store path", func(t *testing.T) {
		t.Setenv("STORE_PATH", "")
		_, err := Load()
		require.Error(t, err)
	})
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("FETCH_TIMEOUT", "soon")
	_, err := Load()
	require.Error(t, err)
}
