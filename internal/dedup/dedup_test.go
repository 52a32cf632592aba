package dedup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestRecord(t *testing.T) {
	d := New(zap.NewNop())
	defer d.Stop()

	assert.True(t, d.Record("alert-1"), "first sighting is new")
	assert.False(t, d.Record("alert-1"), "repeat sighting is suppressed")
	assert.True(t, d.Record("alert-2"), "distinct ids are independent")
}

func TestCleanupExpiresOldEntries(t *testing.T) {
	d := New(zap.NewNop())
	defer d.Stop()

	d.Record("stale")
	d.Record("fresh")

	// Backdate one entry past the TTL and run a cleanup pass directly.
	d.mu.Lock()
	d.seen["stale"] = time.Now().Add(-CacheTTL - time.Minute)
	d.mu.Unlock()

	d.cleanup()

	assert.True(t, d.Record("stale"), "expired id notifies again")
	assert.False(t, d.Record("fresh"), "unexpired id stays suppressed")
}

func TestStopTerminatesCleanupLoop(t *testing.T) {
	d := New(zap.NewNop())

	done := make(chan struct{})
	go func() {
		d.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return")
	}
}
