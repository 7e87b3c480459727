package geocode

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// CascadeClient tries each available provider in order and returns the
// first match. Answers are cached, including addresses nobody could find.
type CascadeClient struct {
	providers    []Provider
	cache        Cache
	cacheEnabled bool
	cacheTTLDays int
	now          func() time.Time

	mu      sync.Mutex
	pending []model.GeocodeEntry
}

// CascadeOption configures a CascadeClient.
type CascadeOption func(*CascadeClient)

// WithCascadeCacheEnabled toggles the result cache.
func WithCascadeCacheEnabled(enabled bool) CascadeOption {
	return func(c *CascadeClient) { c.cacheEnabled = enabled }
}

// WithCascadeCacheTTLDays ignores cached results older than days. Zero
// keeps them forever.
func WithCascadeCacheTTLDays(days int) CascadeOption {
	return func(c *CascadeClient) { c.cacheTTLDays = days }
}

var _ Client = (*CascadeClient)(nil)

// NewCascadeClient creates a cascade over providers. cache may be nil.
func NewCascadeClient(providers []Provider, cache Cache, opts ...CascadeOption) *CascadeClient {
	c := &CascadeClient{
		providers:    providers,
		cache:        cache,
		cacheEnabled: true,
		now:          time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	if c.cache == nil {
		c.cacheEnabled = false
	}
	return c
}

// Geocode implements Client. A result with Matched=false means every
// provider answered without a match; an error means none answered at all.
func (c *CascadeClient) Geocode(ctx context.Context, query string) (*Result, error) {
	key := cacheKey(query)
	if c.cacheEnabled {
		if r := c.checkCache(ctx, key); r != nil {
			return r, nil
		}
	}

	var errs []error
	answered := false
	for _, p := range c.providers {
		if !p.Available() {
			continue
		}
		r, err := p.Geocode(ctx, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: cancelled")
			}
			zap.L().Debug("geocode: provider failed",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		answered = true
		if r.Matched {
			if c.cacheEnabled {
				c.storeCache(key, query, r)
			}
			return r, nil
		}
	}

	if !answered {
		if len(errs) == 0 {
			return nil, eris.New("geocode: no providers available")
		}
		return nil, eris.Wrap(errors.Join(errs...), "geocode: all providers failed")
	}

	miss := &Result{Matched: false}
	if c.cacheEnabled {
		c.storeCache(key, query, miss)
	}
	return miss, nil
}

// Flush writes buffered results to the cache.
func (c *CascadeClient) Flush(ctx context.Context) error {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(batch) == 0 || c.cache == nil {
		return nil
	}
	if err := c.cache.SetGeocodes(ctx, batch); err != nil {
		c.mu.Lock()
		c.pending = append(batch, c.pending...)
		c.mu.Unlock()
		return eris.Wrap(err, "geocode: flush cache")
	}
	zap.L().Debug("geocode: flushed cache", zap.Int("entries", len(batch)))
	return nil
}

// Pending returns the number of buffered cache writes.
func (c *CascadeClient) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
