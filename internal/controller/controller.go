// Package controller implements the warning lifecycle: one poll cycle
// obtains a location, queries the alert feed, reconciles the result against
// the persisted warning state, and drives the presentation surfaces.
package controller

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/alertsource"
	"github.com/redalert-watch/warningd/internal/geo"
	"github.com/redalert-watch/warningd/internal/i18n"
	"github.com/redalert-watch/warningd/internal/metrics"
	"github.com/redalert-watch/warningd/internal/presenter"
	"github.com/redalert-watch/warningd/internal/settings"
)

// Stable notification ids, reused so a newer notification replaces the
// previous one instead of stacking.
const (
	WarningNotificationID = "missile-warning"
	ErrorNotificationID   = "missile-warning-error"
)

// AlertFetcher queries the alert feed.
type AlertFetcher interface {
	FetchAlerts(ctx context.Context, loc *geo.Sample) (*alertsource.AlertResponse, error)
}

// LocationProvider supplies the best-effort geolocation sample for a cycle.
// A nil sample means no location is available, which is not fatal.
type LocationProvider interface {
	Current(ctx context.Context) *geo.Sample
}

// SettingsReader loads the current user settings. The controller re-reads
// settings at the start of every cycle instead of caching them.
type SettingsReader interface {
	Load() settings.Settings
}

// NotifyRecorder decides whether a warning id still needs a notification.
type NotifyRecorder interface {
	Record(alertID string) bool
}

// Controller owns the only non-trivial state machine in the agent. At most
// one cycle runs at a time; a trigger arriving while a cycle is in flight
// is dropped, not queued.
type Controller struct {
	settings SettingsReader
	location LocationProvider
	fetcher  AlertFetcher
	store    WarningStore
	surface  presenter.Surface
	recorder NotifyRecorder
	popupURL string
	logger   *zap.Logger

	state cycleState

	inFlight atomic.Bool

	// revertGen invalidates stale icon-revert timers: each Presenting step
	// bumps the generation, and a timer only reverts if its generation is
	// still current (last writer wins).
	revertGen atomic.Uint64
}

// New wires a controller with its collaborators.
func New(
	settingsReader SettingsReader,
	location LocationProvider,
	fetcher AlertFetcher,
	store WarningStore,
	surface presenter.Surface,
	recorder NotifyRecorder,
	popupURL string,
	logger *zap.Logger,
) *Controller {
	return &Controller{
		settings: settingsReader,
		location: location,
		fetcher:  fetcher,
		store:    store,
		surface:  surface,
		recorder: recorder,
		popupURL: popupURL,
		logger:   logger,
		state:    cycleState{store: store},
	}
}

// RunCycle executes one poll cycle end to end. Returns false when the cycle
// was dropped because another one was still in flight.
func (c *Controller) RunCycle(ctx context.Context) bool {
	if !c.inFlight.CompareAndSwap(false, true) {
		metrics.SkippedTicks.Inc()
		c.logger.Debug("Dropping poll trigger, cycle already in flight")
		return false
	}
	defer c.inFlight.Store(false)

	start := time.Now()
	defer func() {
		metrics.CycleDuration.Observe(time.Since(start).Seconds())
	}()

	c.logger.Debug("Starting poll cycle")

	if err := c.state.saveLastPoll(start); err != nil {
		c.logger.Error("Failed to save last poll time", zap.Error(err))
	}

	cfg := c.settings.Load()

	// Locating. Both tiers failing yields a nil sample and the cycle
	// proceeds without coordinates.
	loc := c.location.Current(ctx)

	// Querying.
	resp, err := c.fetcher.FetchAlerts(ctx, loc)
	if err != nil {
		c.handleFailure(cfg, err)
		metrics.PollCycles.WithLabelValues("failure").Inc()
		return true
	}

	// Reconciling: full replace, no merge. The persisted write happens
	// before any presentation side effect that depends on it.
	if len(resp.Items) > 0 {
		if err := c.state.saveWarnings(resp.Items); err != nil {
			c.logger.Error("Failed to persist warning set", zap.Error(err))
		}
		c.presentWarnings(cfg, resp.Items)
	} else {
		if err := c.state.clearWarnings(); err != nil {
			c.logger.Error("Failed to clear warning set", zap.Error(err))
		}
		c.presentAllClear()
	}

	now := time.Now()
	if err := c.state.saveLastSuccess(now); err != nil {
		c.logger.Error("Failed to save last success time", zap.Error(err))
	}
	if err := c.state.resetFailures(); err != nil {
		c.logger.Error("Failed to reset failure counter", zap.Error(err))
	}
	if err := c.state.saveLastError(""); err != nil {
		c.logger.Error("Failed to clear last error", zap.Error(err))
	}

	metrics.PollCycles.WithLabelValues("success").Inc()
	c.logger.Debug("Poll cycle completed",
		zap.Int("warnings", len(resp.Items)),
		zap.Duration("took", time.Since(start)))
	return true
}

// presentWarnings drives the Presenting step for a non-empty warning set:
// warning icon, one summarizing notification, and the single-popup policy.
func (c *Controller) presentWarnings(cfg settings.Settings, items []alertsource.AlertRecord) {
	gen := c.revertGen.Add(1)

	if err := c.surface.SetIcon(presenter.IconWarning); err != nil {
		c.logger.Error("Failed to set warning icon", zap.Error(err))
	}
	metrics.ActiveWarnings.Set(float64(len(items)))

	// Notify only when the set contains a warning the user has not been
	// told about yet; a set that merely persists across polls stays quiet.
	unseen := false
	for _, item := range items {
		if c.recorder.Record(item.AlertID) {
			unseen = true
		}
	}

	if unseen {
		cat := i18n.For(cfg.Language)
		n := presenter.Notification{
			Title:    cat.WarningTitle(),
			Message:  cat.WarningMessage(len(items), items[0].Header),
			IconPath: presenter.IconWarning.AssetPaths()["48"],
			RTL:      cat.RTL(),
		}
		if err := c.surface.CreateNotification(WarningNotificationID, n); err != nil {
			c.logger.Error("Failed to create warning notification", zap.Error(err))
		} else {
			metrics.NotificationsCreated.WithLabelValues("warning").Inc()
		}
	}

	if cfg.PopupEnabled {
		if err := presenter.EnsurePopup(c.surface, c.popupURL, c.logger); err != nil {
			c.logger.Error("Failed to ensure popup window", zap.Error(err))
		}
	}

	c.scheduleRevert(gen, cfg.AlertTimeout())
}

// presentAllClear drives the Presenting step after a successful poll with
// zero results: normal icon, notifications cleared, no popup.
func (c *Controller) presentAllClear() {
	c.revertGen.Add(1) // invalidate any pending revert from an older cycle

	if err := c.surface.SetIcon(presenter.IconNormal); err != nil {
		c.logger.Error("Failed to set normal icon", zap.Error(err))
	}
	metrics.ActiveWarnings.Set(0)

	if err := c.surface.ClearNotification(WarningNotificationID); err != nil {
		c.logger.Error("Failed to clear warning notification", zap.Error(err))
	}
	if err := c.surface.ClearNotification(ErrorNotificationID); err != nil {
		c.logger.Error("Failed to clear error notification", zap.Error(err))
	}
}

// handleFailure drives the failed branch: error icon, one error
// notification, revert timer. The persisted warning set is left untouched.
func (c *Controller) handleFailure(cfg settings.Settings, err error) {
	c.logger.Error("Poll cycle failed", zap.Error(err))

	if saveErr := c.state.saveLastError(err.Error()); saveErr != nil {
		c.logger.Error("Failed to save last error", zap.Error(saveErr))
	}
	if _, incErr := c.state.incrementFailures(); incErr != nil {
		c.logger.Error("Failed to increment failure counter", zap.Error(incErr))
	}

	gen := c.revertGen.Add(1)

	if iconErr := c.surface.SetIcon(presenter.IconError); iconErr != nil {
		c.logger.Error("Failed to set error icon", zap.Error(iconErr))
	}

	cat := i18n.For(cfg.Language)
	n := presenter.Notification{
		Title:    cat.ErrorTitle(),
		Message:  cat.ErrorMessage(err.Error()),
		IconPath: presenter.IconError.AssetPaths()["48"],
		RTL:      cat.RTL(),
	}
	if notifyErr := c.surface.CreateNotification(ErrorNotificationID, n); notifyErr != nil {
		c.logger.Error("Failed to create error notification", zap.Error(notifyErr))
	} else {
		metrics.NotificationsCreated.WithLabelValues("error").Inc()
	}

	c.scheduleRevert(gen, cfg.AlertTimeout())
}

// scheduleRevert arms a one-shot timer reverting the icon to Normal unless
// a newer cycle has presented since.
func (c *Controller) scheduleRevert(gen uint64, after time.Duration) {
	time.AfterFunc(after, func() {
		if c.revertGen.Load() != gen {
			c.logger.Debug("Skipping stale icon revert", zap.Uint64("generation", gen))
			return
		}
		if err := c.surface.SetIcon(presenter.IconNormal); err != nil {
			c.logger.Error("Failed to revert icon", zap.Error(err))
		}
	})
}

// OpenPopup opens or focuses the popup window regardless of the
// popupEnabled setting. Used by the notification "view details" action.
func (c *Controller) OpenPopup() error {
	return presenter.EnsurePopup(c.surface, c.popupURL, c.logger)
}

// Warnings returns the persisted active warning set.
func (c *Controller) Warnings() ([]alertsource.AlertRecord, error) {
	return loadWarnings(c.store)
}

// Status summarizes the controller's persisted bookkeeping.
type Status struct {
	LastPollTime        time.Time `json:"lastPollTime"`
	LastSuccessTime     time.Time `json:"lastSuccessTime"`
	LastError           string    `json:"lastError,omitempty"`
	ConsecutiveFailures int       `json:"consecutiveFailures"`
	ActiveWarnings      int       `json:"activeWarnings"`
}

// Status reads the persisted cycle bookkeeping. Individual read failures
// are logged and leave the corresponding field zeroed.
func (c *Controller) Status() Status {
	var st Status

	if t, err := c.state.getTime(lastPollKey); err != nil {
		c.logger.Warn("Failed to read last poll time", zap.Error(err))
	} else {
		st.LastPollTime = t
	}

	if t, err := c.state.getTime(lastSuccessKey); err != nil {
		c.logger.Warn("Failed to read last success time", zap.Error(err))
	} else {
		st.LastSuccessTime = t
	}

	if msg, err := c.state.getLastError(); err != nil {
		c.logger.Warn("Failed to read last error", zap.Error(err))
	} else {
		st.LastError = msg
	}

	if count, err := c.state.getFailures(); err != nil {
		c.logger.Warn("Failed to read failure counter", zap.Error(err))
	} else {
		st.ConsecutiveFailures = count
	}

	if items, err := loadWarnings(c.store); err != nil {
		c.logger.Warn("Failed to read warning set", zap.Error(err))
	} else {
		st.ActiveWarnings = len(items)
	}

	return st
}
