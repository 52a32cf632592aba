// Package config loads process configuration from the environment.
//
// Process configuration covers where the agent listens, where its store
// lives, and which upstream endpoints it talks to. User-facing settings
// (poll interval, popup behavior, language) live in the persistent store
// instead; the environment only seeds their defaults on first run.
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pkg/errors"
)

// Config holds the agent's process configuration.
type Config struct {
	// AlertAPIURL is the missile-warning alert feed endpoint.
	AlertAPIURL string `env:"ALERT_API_URL" envDefault:"https://api.tzevaadom.live/v1/alerts"`

	// GeoIPURL is the IP-based geolocation fallback endpoint.
	GeoIPURL string `env:"GEOIP_URL" envDefault:"http://ip-api.com/json"`

	// SensorURL is an optional on-device location sensor bridge endpoint.
	// When empty, only the IP-based tier is used.
	SensorURL string `env:"SENSOR_URL"`

	// ListenAddr is the local HTTP API address serving the popup UI.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:7931"`

	// StorePath is the SQLite settings store location.
	StorePath string `env:"STORE_PATH" envDefault:"warningd.db"`

	// PopupURL is the canonical popup page URL; popup-open detection is an
	// exact string match against this value.
	PopupURL string `env:"POPUP_URL" envDefault:"http://127.0.0.1:7931/popup"`

	// FetchTimeout bounds one alert feed request.
	FetchTimeout time.Duration `env:"FETCH_TIMEOUT" envDefault:"30s"`

	// Seed defaults for the persistent settings store. Applied only when
	// the corresponding key is absent from the store.
	DefaultPollIntervalMinutes float64 `env:"DEFAULT_POLL_INTERVAL_MINUTES" envDefault:"5"`
	DefaultAlertTimeoutMs      int     `env:"DEFAULT_ALERT_TIMEOUT_MS" envDefault:"60000"`
	DefaultLanguage            string  `env:"DEFAULT_LANGUAGE" envDefault:"en"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse environment")
	}

	if cfg.AlertAPIURL == "" {
		return nil, errors.New("ALERT_API_URL must not be empty")
	}
	if cfg.StorePath == "" {
		return nil, errors.New("STORE_PATH must not be empty")
	}

	return cfg, nil
}
