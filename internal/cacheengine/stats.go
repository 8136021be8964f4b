package cacheengine

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
)

// Stats summarizes the cache's current occupancy and health, suitable for
// a "stats" CLI subcommand or a dispatcher CacheStats message.
type Stats struct {
	TotalSizeBytes      int64
	MaxSizeBytes        int64
	UsagePercent        float64
	CachedCount         int
	TotalCount          int
	CachePercent        float64
	ConsecutiveFailures int
	IsOffline           bool
}

// TotalSizeHuman renders TotalSizeBytes as a human-readable size, e.g. "42 MB".
func (s Stats) TotalSizeHuman() string {
	return humanize.Bytes(uint64(s.TotalSizeBytes))
}

// MaxSizeHuman renders MaxSizeBytes as a human-readable size.
func (s Stats) MaxSizeHuman() string {
	return humanize.Bytes(uint64(s.MaxSizeBytes))
}

// Stats reports the cache's current size, budget usage, and health.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	total, err := e.cfg.Catalog.CacheBytesTotal(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("cacheengine: reading cache bytes total: %w", err)
	}

	cached, err := e.cfg.Catalog.CachedCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("cacheengine: reading cached count: %w", err)
	}

	all, err := e.cfg.Catalog.TotalCount(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("cacheengine: reading total count: %w", err)
	}

	s := Stats{
		TotalSizeBytes:      total,
		MaxSizeBytes:        e.cfg.MaxCacheBytes,
		CachedCount:         cached,
		TotalCount:          all,
		ConsecutiveFailures: int(e.consecutiveFailures.Load()),
		IsOffline:           e.consecutiveFailures.Load() >= offlineThreshold,
	}

	if e.cfg.MaxCacheBytes > 0 {
		s.UsagePercent = 100 * float64(total) / float64(e.cfg.MaxCacheBytes)
	}

	if all > 0 {
		s.CachePercent = 100 * float64(cached) / float64(all)
	}

	return s, nil
}
