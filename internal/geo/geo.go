// Package geo produces a best-effort geolocation sample for alert queries.
//
// Location comes from two tiers: a precise on-device source queried with a
// bounded timeout, and an IP-based lookup used when the precise tier fails.
// Both tiers failing is not fatal; the poll cycle proceeds without
// coordinates. The last good sample is cached and persisted across polls.
package geo

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/redalert-watch/warningd/internal/store"
)

// PreciseTimeout bounds one precise-tier location request.
const PreciseTimeout = 10 * time.Second

// lastLocationKey is the store key holding the last good sample.
const lastLocationKey = "lastLocation"

// Sample is a latitude/longitude pair.
type Sample struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// PreciseProvider is the tier-1 location source, typically an on-device
// sensor bridge. Implementations must not serve stale readings.
type PreciseProvider interface {
	PreciseLocation(ctx context.Context) (Sample, error)
}

// ApproximateProvider is the tier-2 IP-based location source. A nil sample
// with a nil error means "unavailable", which is not a failure.
type ApproximateProvider interface {
	ApproximateLocation(ctx context.Context) (*Sample, error)
}

// CachedProvider orchestrates the two tiers and keeps the last good sample
// across polls, persisting it in the store so a restart does not lose it.
type CachedProvider struct {
	precise PreciseProvider // nil when no sensor is configured
	approx  ApproximateProvider
	store   *store.Store
	logger  *zap.Logger

	mu   sync.Mutex
	last *Sample
}

// NewCachedProvider creates a provider over the given tiers. precise may be
// nil; approx may be nil; the store seeds the cache from the persisted
// sample if one exists.
func NewCachedProvider(precise PreciseProvider, approx ApproximateProvider, st *store.Store, logger *zap.Logger) *CachedProvider {
	p := &CachedProvider{
		precise: precise,
		approx:  approx,
		store:   st,
		logger:  logger,
	}

	if st != nil {
		if data, err := st.Get(lastLocationKey); err != nil {
			logger.Warn("Failed to read persisted location", zap.Error(err))
		} else if data != nil {
			var s Sample
			if err := json.Unmarshal(data, &s); err != nil {
				logger.Warn("Failed to decode persisted location", zap.Error(err))
			} else {
				p.last = &s
			}
		}
	}

	return p
}

// Current refreshes and returns the best available sample for this poll
// attempt. Returns nil when no tier has ever produced a location.
func (p *CachedProvider) Current(ctx context.Context) *Sample {
	if sample := p.refresh(ctx); sample != nil {
		p.remember(*sample)
		return sample
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last != nil {
		p.logger.Debug("Using cached location sample",
			zap.Float64("lat", p.last.Lat),
			zap.Float64("lon", p.last.Lon))
	}
	return p.last
}

func (p *CachedProvider) refresh(ctx context.Context) *Sample {
	if p.precise != nil {
		preciseCtx, cancel := context.WithTimeout(ctx, PreciseTimeout)
		sample, err := p.precise.PreciseLocation(preciseCtx)
		cancel()
		if err == nil {
			return &sample
		}
		p.logger.Debug("Precise location unavailable, trying IP fallback", zap.Error(err))
	}

	if p.approx == nil {
		return nil
	}

	sample, err := p.approx.ApproximateLocation(ctx)
	if err != nil {
		p.logger.Debug("IP location lookup failed", zap.Error(err))
		return nil
	}
	return sample
}

func (p *CachedProvider) remember(sample Sample) {
	p.mu.Lock()
	p.last = &sample
	p.mu.Unlock()

	if p.store == nil {
		return
	}
	data, err := json.Marshal(sample)
	if err != nil {
		p.logger.Warn("Failed to encode location sample", zap.Error(err))
		return
	}
	if err := p.store.Set(lastLocationKey, data); err != nil {
		p.logger.Warn("Failed to persist location sample", zap.Error(err))
	}
}
