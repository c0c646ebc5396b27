package nws

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/ndfd-forecast-etl/internal/domain"
	"github.com/couchcryptid/ndfd-forecast-etl/internal/observability"
	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedLookup wraps an ElevationLookup with an in-memory LRU cache.
// Neighbouring grid cells often fall in the same NWS gridpoint, so keys are
// rounded to four decimal places like the API itself.
type CachedLookup struct {
	inner   domain.ElevationLookup
	cache   *lru.Cache[string, cachedElevation]
	metrics *observability.Metrics
}

type cachedElevation struct {
	meters     float64
	noCoverage bool
}

// NewCachedLookup creates a cache decorator around a lookup.
func NewCachedLookup(inner domain.ElevationLookup, maxEntries int, metrics *observability.Metrics) (*CachedLookup, error) {
	cache, err := lru.New[string, cachedElevation](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("create elevation cache: %w", err)
	}
	return &CachedLookup{inner: inner, cache: cache, metrics: metrics}, nil
}

func (c *CachedLookup) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lon)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ElevationCache.WithLabelValues("hit").Inc()
		if v.noCoverage {
			return 0, fmt.Errorf("points %s: %w", key, domain.ErrNoCoverage)
		}
		return v.meters, nil
	}
	c.metrics.ElevationCache.WithLabelValues("miss").Inc()

	meters, err := c.inner.Elevation(ctx, lat, lon)
	switch {
	case errors.Is(err, domain.ErrNoCoverage):
		// Coverage does not change between runs; remember the miss.
		c.cache.Add(key, cachedElevation{noCoverage: true})
	case err == nil:
		c.cache.Add(key, cachedElevation{meters: meters})
	}
	return meters, err
}
