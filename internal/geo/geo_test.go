package geo

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pkg/errors"

	"github.com/redalert-watch/warningd/internal/store"
)

type fakePrecise struct {
	sample Sample
	err    error
	calls  int
}

func (f *fakePrecise) PreciseLocation(ctx context.Context) (Sample, error) {
	f.calls++
	return f.sample, f.err
}

type fakeApprox struct {
	sample *Sample
	err    error
	calls  int
}

func (f *fakeApprox) ApproximateLocation(ctx context.Context) (*Sample, error) {
	f.calls++
	return f.sample, f.err
}

func TestCurrentPrefersPreciseTier(t *testing.T) {
	precise := &fakePrecise{sample: Sample{Lat: 32.08, Lon: 34.78}}
	approx := &fakeApprox{sample: &Sample{Lat: 31.0, Lon: 35.0}}
	p := NewCachedProvider(precise, approx, nil, zap.NewNop())

	got := p.Current(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, Sample{Lat: 32.08, Lon: 34.78}, *got)
	assert.Zero(t, approx.calls, "tier 2 untouched when tier 1 succeeds")
}

func TestCurrentFallsBackToApproximate(t *testing.T) {
	precise := &fakePrecise{err: errors.New("sensor offline")}
	approx := &fakeApprox{sample: &Sample{Lat: 31.0, Lon: 35.0}}
	p := NewCachedProvider(precise, approx, nil, zap.NewNop())

	got := p.Current(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, Sample{Lat: 31.0, Lon: 35.0}, *got)
	assert.Equal(t, 1, precise.calls)
}

func TestCurrentWithoutPreciseTier(t *testing.T) {
	approx := &fakeApprox{sample: &Sample{Lat: 31.0, Lon: 35.0}}
	p := NewCachedProvider(nil, approx, nil, zap.NewNop())

	got := p.Current(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, 1, approx.calls)
}

func TestCurrentBothTiersFail(t *testing.T) {
	precise := &fakePrecise{err: errors.New("sensor offline")}
	approx := &fakeApprox{err: errors.New("network down")}
	p := NewCachedProvider(precise, approx, nil, zap.NewNop())

	assert.Nil(t, p.Current(context.Background()))
}

func TestCurrentApproximateUnavailable(t *testing.T) {
	// nil sample with nil error means "unavailable"; with no cache the
	// result is nil.
	approx := &fakeApprox{}
	p := NewCachedProvider(nil, approx, nil, zap.NewNop())

	assert.Nil(t, p.Current(context.Background()))
}

func TestCurrentServesCachedSampleOnFailure(t *testing.T) {
	approx := &fakeApprox{sample: &Sample{Lat: 31.0, Lon: 35.0}}
	p := NewCachedProvider(nil, approx, nil, zap.NewNop())

	first := p.Current(context.Background())
	require.NotNil(t, first)

	// The tier goes dark; the last good sample stands in.
	approx.sample = nil
	approx.err = errors.New("network down")

	second := p.Current(context.Background())
	require.NotNil(t, second)
	assert.Equal(t, *first, *second)
}

func TestCachedSampleSurvivesRestart(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "geo.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	approx := &fakeApprox{sample: &Sample{Lat: 31.0, Lon: 35.0}}
	p := NewCachedProvider(nil, approx, st, zap.NewNop())
	require.NotNil(t, p.Current(context.Background()))

	// A fresh provider over the same store with every tier failing still
	// serves the persisted sample.
	dead := &fakeApprox{err: errors.New("network down")}
	p2 := NewCachedProvider(nil, dead, st, zap.NewNop())

	got := p2.Current(context.Background())
	require.NotNil(t, got)
	assert.Equal(t, Sample{Lat: 31.0, Lon: 35.0}, *got)
}
