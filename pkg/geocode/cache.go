package geocode

import (
	"context"
	"crypto/sha256"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cat-astrophic/cincinnati-fc/internal/model"
)

// Cache persists geocoder answers between runs.
type Cache interface {
	GetGeocode(ctx context.Context, key string) (*model.GeocodeEntry, error)
	SetGeocodes(ctx context.Context, entries []model.GeocodeEntry) error
}

// cacheKey returns SHA-256 hex of the normalized query for cache lookup.
func cacheKey(query string) string {
	h := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(query))))
	return fmt.Sprintf("%x", h)
}

// checkCache looks up a cached result, respecting TTL if configured.
// Cached non-matches are returned so the caller skips the providers.
func (c *CascadeClient) checkCache(ctx context.Context, key string) *Result {
	entry, err := c.cache.GetGeocode(ctx, key)
	if err != nil {
		zap.L().Warn("geocode: cache lookup failed", zap.Error(err))
		return nil
	}
	if entry == nil {
		return nil
	}
	if c.cacheTTLDays > 0 && c.now().Sub(entry.CachedAt) > time.Duration(c.cacheTTLDays)*24*time.Hour {
		return nil
	}

	zap.L().Debug("geocode cache hit", zap.String("key", key[:12]), zap.Bool("matched", entry.Found))
	return &Result{
		Latitude:  entry.Latitude,
		Longitude: entry.Longitude,
		Source:    entry.Provider,
		Matched:   entry.Found,
		Cached:    true,
	}
}

// storeCache buffers a result (match or non-match) until the next Flush.
func (c *CascadeClient) storeCache(key, query string, result *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = append(c.pending, model.GeocodeEntry{
		Key:       key,
		Query:     query,
		Provider:  result.Source,
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		Found:     result.Matched,
		CachedAt:  c.now(),
	})
}
