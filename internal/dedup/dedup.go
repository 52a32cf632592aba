// Package dedup suppresses repeat notifications for warnings the user has
// already been told about. A warning that stays active across several poll
// cycles notifies once, not once per cycle.
package dedup

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	// CacheTTL is how long seen alert ids are remembered.
	CacheTTL = 1 * time.Hour

	// CleanupInterval is how often expired entries are removed.
	CleanupInterval = 10 * time.Minute
)

// Deduplicator tracks seen alert ids with a TTL cache.
type Deduplicator struct {
	logger *zap.Logger

	mu   sync.RWMutex
	seen map[string]time.Time

	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

// New creates a deduplicator and starts its cleanup loop.
func New(logger *zap.Logger) *Deduplicator {
	d := &Deduplicator{
		logger:      logger,
		seen:        make(map[string]time.Time),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}

	go d.cleanupLoop()

	return d
}

// Record marks an alert id as seen. Returns true if the id was new, false
// if the user was already notified about it.
func (d *Deduplicator) Record(alertID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[alertID]; exists {
		return false
	}

	d.seen[alertID] = time.Now()
	return true
}

func (d *Deduplicator) cleanupLoop() {
	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()
	defer close(d.cleanupDone)

	for {
		select {
		case <-ticker.C:
			d.cleanup()
		case <-d.stopCleanup:
			return
		}
	}
}

func (d *Deduplicator) cleanup() {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	expired := 0

	for alertID, seenAt := range d.seen {
		if now.Sub(seenAt) > CacheTTL {
			delete(d.seen, alertID)
			expired++
		}
	}

	if expired > 0 {
		d.logger.Debug("Cleaned up expired dedup entries",
			zap.Int("expired", expired),
			zap.Int("remaining", len(d.seen)))
	}
}

// Stop stops the cleanup goroutine and waits for it to finish.
func (d *Deduplicator) Stop() {
	close(d.stopCleanup)
	<-d.cleanupDone
}
