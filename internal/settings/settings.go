// Package settings defines the user-facing configuration of the agent and
// its persistence in the store. The store is the sole source of truth;
// callers re-read settings at the start of every poll cycle instead of
// caching them.
package settings

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/store"
)

// Store keys. Each key is persisted and defaulted independently, so a
// partially written store still yields a fully populated Settings value.
const (
	KeyPopupEnabled   = "showPopup"
	KeySoundEnabled   = "showSound"
	KeyPollInterval   = "pollInterval"
	KeyAlertTimeout   = "alertTimeout"
	KeyPollingEnabled = "pollingEnabled"
	KeyLanguage       = "language"
)

// Floors enforced when settings are saved. Values below the floor are
// silently clamped and the caller is handed a notice to surface once.
const (
	MinPollIntervalMinutes = 0.1
	MinAlertTimeoutMs      = 1000
)

// Defaults applied when a key is absent from the store.
const (
	DefaultPopupEnabled        = true
	DefaultSoundEnabled        = false
	DefaultPollIntervalMinutes = 5.0
	DefaultAlertTimeoutMs      = 60000
	DefaultPollingEnabled      = true
	DefaultLanguage            = "en"
)

// SupportedLanguages lists the notification catalog languages.
var SupportedLanguages = map[string]bool{
	"en": true,
	"he": true,
	"ru": true,
	"ar": true,
}

// Settings is the user configuration read at the start of each poll cycle.
type Settings struct {
	PopupEnabled        bool    `json:"popupEnabled"`
	SoundEnabled        bool    `json:"soundEnabled"`
	PollIntervalMinutes float64 `json:"pollIntervalMinutes"`
	AlertTimeoutMs      int     `json:"alertTimeoutMs"`
	PollingEnabled      bool    `json:"pollingEnabled"`
	Language            string  `json:"language"`
}

// Defaults returns the settings applied to a fresh store.
func Defaults() Settings {
	return Settings{
		PopupEnabled:        DefaultPopupEnabled,
		SoundEnabled:        DefaultSoundEnabled,
		PollIntervalMinutes: DefaultPollIntervalMinutes,
		AlertTimeoutMs:      DefaultAlertTimeoutMs,
		PollingEnabled:      DefaultPollingEnabled,
		Language:            DefaultLanguage,
	}
}

// PollInterval converts the configured poll cadence to a duration.
func (s Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMinutes * float64(time.Minute))
}

// AlertTimeout converts the configured icon revert delay to a duration.
func (s Settings) AlertTimeout() time.Duration {
	return time.Duration(s.AlertTimeoutMs) * time.Millisecond
}

// Notice describes a save-time adjustment that must be surfaced to the user
// once, such as a below-floor value being clamped up.
type Notice struct {
	Key     string `json:"key"`
	Message string `json:"message"`
}

// Service reads and writes settings through the store.
type Service struct {
	store  *store.Store
	logger *zap.Logger
}

// NewService creates a settings service on top of the given store.
func NewService(st *store.Store, logger *zap.Logger) *Service {
	return &Service{store: st, logger: logger}
}

// Load reads the current settings from the store. Storage failures are
// logged and the affected key falls back to its default; Load never fails.
func (s *Service) Load() Settings {
	out := Defaults()

	values, err := s.store.GetMany(
		KeyPopupEnabled,
		KeySoundEnabled,
		KeyPollInterval,
		KeyAlertTimeout,
		KeyPollingEnabled,
		KeyLanguage,
	)
	if err != nil {
		s.logger.Error("Failed to read settings, using defaults", zap.Error(err))
		return out
	}

	readKey(s.logger, values, KeyPopupEnabled, &out.PopupEnabled)
	readKey(s.logger, values, KeySoundEnabled, &out.SoundEnabled)
	readKey(s.logger, values, KeyPollInterval, &out.PollIntervalMinutes)
	readKey(s.logger, values, KeyAlertTimeout, &out.AlertTimeoutMs)
	readKey(s.logger, values, KeyPollingEnabled, &out.PollingEnabled)
	readKey(s.logger, values, KeyLanguage, &out.Language)

	if !SupportedLanguages[out.Language] {
		s.logger.Warn("Unsupported language in store, falling back to default",
			zap.String("language", out.Language))
		out.Language = DefaultLanguage
	}

	return out
}

// Save validates, clamps, and persists the given settings. The returned
// settings are the values actually stored; the notices describe any clamp
// that changed a requested value.
func (s *Service) Save(in Settings) (Settings, []Notice, error) {
	applied, notices := Clamp(in)

	values, err := encode(applied)
	if err != nil {
		return Settings{}, nil, err
	}

	if err := s.store.SetMany(values); err != nil {
		return Settings{}, nil, errors.Wrap(err, "failed to save settings")
	}

	return applied, notices, nil
}

// Seed writes defaults for every settings key absent from the store. Keys
// already present are left untouched, so reinstalling or restarting the
// agent never clobbers user choices.
func (s *Service) Seed(defaults Settings) error {
	applied, _ := Clamp(defaults)

	all, err := encode(applied)
	if err != nil {
		return err
	}

	existing, err := s.store.GetMany(
		KeyPopupEnabled,
		KeySoundEnabled,
		KeyPollInterval,
		KeyAlertTimeout,
		KeyPollingEnabled,
		KeyLanguage,
	)
	if err != nil {
		return errors.Wrap(err, "failed to read existing settings")
	}

	missing := make(map[string][]byte)
	for key, value := range all {
		if _, ok := existing[key]; !ok {
			missing[key] = value
		}
	}

	if len(missing) == 0 {
		return nil
	}

	return s.store.SetMany(missing)
}

// Clamp applies the save-time validation policy: below-floor values are
// raised to their minimum and reported, unknown languages fall back to the
// default.
func Clamp(in Settings) (Settings, []Notice) {
	out := in
	var notices []Notice

	if out.PollIntervalMinutes < MinPollIntervalMinutes {
		notices = append(notices, Notice{
			Key: KeyPollInterval,
			Message: fmt.Sprintf(
				"Poll interval cannot be less than %.1f minutes; it has been set to %.1f.",
				MinPollIntervalMinutes, MinPollIntervalMinutes),
		})
		out.PollIntervalMinutes = MinPollIntervalMinutes
	}

	if out.AlertTimeoutMs < MinAlertTimeoutMs {
		notices = append(notices, Notice{
			Key: KeyAlertTimeout,
			Message: fmt.Sprintf(
				"Alert timeout cannot be less than %d milliseconds; it has been set to %d.",
				MinAlertTimeoutMs, MinAlertTimeoutMs),
		})
		out.AlertTimeoutMs = MinAlertTimeoutMs
	}

	if !SupportedLanguages[out.Language] {
		notices = append(notices, Notice{
			Key: KeyLanguage,
			Message: fmt.Sprintf(
				"Language %q is not supported; it has been set to %q.",
				out.Language, DefaultLanguage),
		})
		out.Language = DefaultLanguage
	}

	return out, notices
}

func encode(s Settings) (map[string][]byte, error) {
	values := make(map[string][]byte, 6)

	fields := []struct {
		key   string
		value any
	}{
		{KeyPopupEnabled, s.PopupEnabled},
		{KeySoundEnabled, s.SoundEnabled},
		{KeyPollInterval, s.PollIntervalMinutes},
		{KeyAlertTimeout, s.AlertTimeoutMs},
		{KeyPollingEnabled, s.PollingEnabled},
		{KeyLanguage, s.Language},
	}

	for _, f := range fields {
		data, err := json.Marshal(f.value)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to marshal setting %s", f.key)
		}
		values[f.key] = data
	}

	return values, nil
}

func readKey[T any](logger *zap.Logger, values map[string][]byte, key string, dst *T) {
	data, ok := values[key]
	if !ok {
		return
	}
	if err := json.Unmarshal(data, dst); err != nil {
		logger.Warn("Failed to decode stored setting, using default",
			zap.String("key", key),
			zap.Error(err))
	}
}
