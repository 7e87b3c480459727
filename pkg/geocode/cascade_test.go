package geocode

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

type mockProvider struct {
	name      string
	available bool
	result    *Result
	err       error
	calls     int
}

func (m *mockProvider) Name() string    { return m.name }
func (m *mockProvider) Available() bool { return m.available }

func (m *mockProvider) Geocode(_ context.Context, _ string) (*Result, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := *m.result
	r.Source = m.name
	return &r, nil
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]model.GeocodeEntry
	setErr  error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]model.GeocodeEntry)}
}

func (c *memCache) GetGeocode(_ context.Context, key string) (*model.GeocodeEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *memCache) SetGeocodes(_ context.Context, entries []model.GeocodeEntry) error {
	if c.setErr != nil {
		return c.setErr
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.entries[e.Key] = e
	}
	return nil
}

func matched(lat, lon float64) *Result {
	return &Result{Latitude: lat, Longitude: lon, Matched: true}
}

func TestCascade_FirstMatchWins(t *testing.T) {
	first := &mockProvider{name: "nominatim", available: true, result: &Result{}}
	second := &mockProvider{name: "census", available: true, result: matched(39.1, -84.5)}
	third := &mockProvider{name: "google", available: true, result: matched(0, 0)}

	c := NewCascadeClient([]Provider{first, second, third}, nil)
	r, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)
	assert.True(t, r.Matched)
	assert.Equal(t, "census", r.Source)
	assert.InDelta(t, 39.1, r.Latitude, 1e-9)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, third.calls)
}

func TestCascade_SkipsUnavailableAndErrors(t *testing.T) {
	off := &mockProvider{name: "google", available: false, result: matched(1, 1)}
	broken := &mockProvider{name: "nominatim", available: true, err: errors.New("boom")}
	ok := &mockProvider{name: "census", available: true, result: matched(39.1, -84.5)}

	c := NewCascadeClient([]Provider{off, broken, ok}, nil)
	r, err := c.Geocode(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "census", r.Source)
	assert.Equal(t, 0, off.calls)
}

func TestCascade_AllFailedReturnsErrorAndCachesNothing(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "nominatim", available: true, err: errors.New("connection refused")}

	c := NewCascadeClient([]Provider{p}, cache)
	_, err := c.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all providers failed")
	assert.Equal(t, 0, c.Pending())
}

func TestCascade_NoProviders(t *testing.T) {
	c := NewCascadeClient(nil, nil)
	_, err := c.Geocode(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no providers")
}

func TestCascade_CachesNegativeResult(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "nominatim", available: true, result: &Result{}}

	c := NewCascadeClient([]Provider{p}, cache)
	r, err := c.Geocode(context.Background(), "1 NOWHERE LN")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	require.NoError(t, c.Flush(context.Background()))

	r, err = c.Geocode(context.Background(), "1 nowhere ln ")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.True(t, r.Cached)
	assert.Equal(t, 1, p.calls)
}

func TestCascade_CacheHitSkipsProviders(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "nominatim", available: true, result: matched(39.1, -84.5)}

	c := NewCascadeClient([]Provider{p}, cache)
	_, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Pending())
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Pending())

	r, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)
	assert.True(t, r.Cached)
	assert.True(t, r.Matched)
	assert.Equal(t, "nominatim", r.Source)
	assert.InDelta(t, -84.5, r.Longitude, 1e-9)
	assert.Equal(t, 1, p.calls)
}

func TestCascade_CacheDisabled(t *testing.T) {
	cache := newMemCache()
	p := &mockProvider{name: "nominatim", available: true, result: matched(39.1, -84.5)}

	c := NewCascadeClient([]Provider{p}, cache, WithCascadeCacheEnabled(false))
	_, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)
	assert.Equal(t, 0, c.Pending())
}

func TestCascade_ExpiredEntryIgnored(t *testing.T) {
	cache := newMemCache()
	key := cacheKey("123 MAIN ST")
	cache.entries[key] = model.GeocodeEntry{
		Key:      key,
		Provider: "census",
		Found:    true,
		CachedAt: time.Now().Add(-48 * time.Hour),
	}
	p := &mockProvider{name: "nominatim", available: true, result: matched(39.1, -84.5)}

	c := NewCascadeClient([]Provider{p}, cache, WithCascadeCacheTTLDays(1))
	r, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)
	assert.False(t, r.Cached)
	assert.Equal(t, 1, p.calls)
}

func TestCascade_FlushFailureKeepsPending(t *testing.T) {
	cache := newMemCache()
	cache.setErr = errors.New("disk full")
	p := &mockProvider{name: "nominatim", available: true, result: matched(39.1, -84.5)}

	c := NewCascadeClient([]Provider{p}, cache)
	_, err := c.Geocode(context.Background(), "123 MAIN ST")
	require.NoError(t, err)

	err = c.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, c.Pending())

	cache.setErr = nil
	require.NoError(t, c.Flush(context.Background()))
	assert.Equal(t, 0, c.Pending())
}

func TestCacheKey_Normalizes(t *testing.T) {
	assert.Equal(t, cacheKey("123 Main St"), cacheKey("  123 MAIN ST "))
	assert.NotEqual(t, cacheKey("123 Main St"), cacheKey("124 Main St"))
	assert.Len(t, cacheKey("x"), 64)
}
