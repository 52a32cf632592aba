// Package scheduler drives the poll cadence. It uses a self-rescheduling
// one-shot timer: the interval is re-read from settings before every arm,
// so a changed interval takes effect immediately after the current wait is
// kicked, without a host-level recurring job.
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/settings"
)

// MinInterval is the hard floor on the effective poll cadence. Requested
// intervals below it are clamped to prevent feed abuse from
// misconfiguration.
const MinInterval = 10 * time.Second

// CycleRunner runs one poll cycle. It must drop overlapping triggers
// itself; the scheduler does not serialize across other trigger sources.
type CycleRunner interface {
	RunCycle(ctx context.Context) bool
}

// SettingsReader loads the current user settings.
type SettingsReader interface {
	Load() settings.Settings
}

// Scheduler arms the next poll after each cycle completes.
type Scheduler struct {
	runner   CycleRunner
	settings SettingsReader
	logger   *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool

	rearm chan struct{}
}

// New creates a scheduler over the given runner.
func New(runner CycleRunner, settingsReader SettingsReader, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		settings: settingsReader,
		logger:   logger,
		rearm:    make(chan struct{}, 1),
	}
}

// EffectiveInterval clamps a requested interval to the scheduling floor.
func EffectiveInterval(requested time.Duration) time.Duration {
	if requested < MinInterval {
		return MinInterval
	}
	return requested
}

// Start arms the scheduler. Starting an already armed scheduler is a
// no-op, so install and startup paths can both call it safely.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.logger.Debug("Scheduler already armed")
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	go s.loop(ctx, s.done)
	s.logger.Info("Scheduler started")
}

// Stop cancels future cycles and waits for the loop to exit. A cycle
// already in flight completes. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("Scheduler stopped")
}

// Kick interrupts the current wait so the loop re-reads settings now.
// Called when pollIntervalMinutes or pollingEnabled changes.
func (s *Scheduler) Kick() {
	select {
	case s.rearm <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		cfg := s.settings.Load()

		if !cfg.PollingEnabled {
			// Parked until a settings change kicks us or we shut down.
			select {
			case <-ctx.Done():
				return
			case <-s.rearm:
				continue
			}
		}

		interval := EffectiveInterval(cfg.PollInterval())
		if interval != cfg.PollInterval() {
			s.logger.Warn("Poll interval below floor, clamped",
				zap.Duration("requested", cfg.PollInterval()),
				zap.Duration("effective", interval))
		}

		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.rearm:
			timer.Stop()
			continue
		case <-timer.C:
		}

		// Re-read so a toggle during the wait is honored before fetching.
		if !s.settings.Load().PollingEnabled {
			continue
		}

		s.runner.RunCycle(ctx)
	}
}
