package controller

import (
	"encoding/json"
	"time"

	"github.com/pkg/errors"

	"github.com/redalert-watch/warningd/internal/alertsource"
)

// Store keys owned by the controller. The warning set lives under its own
// key, distinct from user settings, so the popup UI can react to it through
// the store's change stream.
const (
	// WarningSetKey holds the active warning set as a JSON list.
	WarningSetKey = "latestWarnings"

	lastPollKey    = "lastPoll"
	lastSuccessKey = "lastSuccess"
	lastErrorKey   = "lastError"
	failuresKey    = "consecutiveFailures"
)

// WarningStore is the slice of the persistent store the controller writes.
type WarningStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(keys ...string) error
}

// cycleState persists per-cycle bookkeeping: poll timestamps, the last
// error, and the consecutive failure count.
type cycleState struct {
	store WarningStore
}

func (s *cycleState) saveLastPoll(t time.Time) error {
	return s.saveTime(lastPollKey, t)
}

func (s *cycleState) saveLastSuccess(t time.Time) error {
	return s.saveTime(lastSuccessKey, t)
}

func (s *cycleState) saveTime(key string, t time.Time) error {
	data, err := json.Marshal(t)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s", key)
	}
	return s.store.Set(key, data)
}

func (s *cycleState) getTime(key string) (time.Time, error) {
	data, err := s.store.Get(key)
	if err != nil {
		return time.Time{}, err
	}
	if data == nil {
		return time.Time{}, nil
	}

	var t time.Time
	if err := json.Unmarshal(data, &t); err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to unmarshal %s", key)
	}
	return t, nil
}

func (s *cycleState) saveLastError(msg string) error {
	return s.store.Set(lastErrorKey, []byte(msg))
}

func (s *cycleState) getLastError() (string, error) {
	data, err := s.store.Get(lastErrorKey)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *cycleState) incrementFailures() (int, error) {
	count, err := s.getFailures()
	if err != nil {
		return 0, err
	}
	count++

	data, err := json.Marshal(count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to marshal failure count")
	}
	if err := s.store.Set(failuresKey, data); err != nil {
		return 0, err
	}
	return count, nil
}

func (s *cycleState) resetFailures() error {
	data, err := json.Marshal(0)
	if err != nil {
		return errors.Wrap(err, "failed to marshal failure count")
	}
	return s.store.Set(failuresKey, data)
}

func (s *cycleState) getFailures() (int, error) {
	data, err := s.store.Get(failuresKey)
	if err != nil {
		return 0, err
	}
	if data == nil {
		return 0, nil
	}

	var count int
	if err := json.Unmarshal(data, &count); err != nil {
		return 0, errors.Wrap(err, "failed to unmarshal failure count")
	}
	return count, nil
}

// saveWarnings replaces the persisted warning set with the given records.
func (s *cycleState) saveWarnings(items []alertsource.AlertRecord) error {
	data, err := json.Marshal(items)
	if err != nil {
		return errors.Wrap(err, "failed to marshal warning set")
	}
	return s.store.Set(WarningSetKey, data)
}

// clearWarnings removes the persisted warning set.
func (s *cycleState) clearWarnings() error {
	return s.store.Remove(WarningSetKey)
}

// loadWarnings reads the persisted warning set. Absent key yields an empty
// set.
func loadWarnings(store WarningStore) ([]alertsource.AlertRecord, error) {
	data, err := store.Get(WarningSetKey)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}

	var items []alertsource.AlertRecord
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal warning set")
	}
	return items, nil
}
