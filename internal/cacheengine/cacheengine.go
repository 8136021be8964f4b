// Package cacheengine drives the periodic fetch/transform/evict cycle
// that keeps the local photo cache within its configured size budget
// and populated with display-ready images.
package cacheengine

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/photoframe/internal/catalog"
	"github.com/tonimelisma/photoframe/internal/provider"
)

const (
	defaultBatchSize    = 5
	defaultTickInterval = 30 * time.Second
	defaultJPEGQuality  = 85

	evictionBatchSize = 10
	offlineThreshold  = 3
	offlineCoolDown   = 60 * time.Second
	perPhotoRetries   = 3
	downloadTimeout   = 30 * time.Second
)

// Config configures an Engine. Zero-value BatchSize, TickInterval, and
// JPEGQuality fall back to their documented defaults.
type Config struct {
	MaxCacheBytes  int64
	BatchSize      int
	TickInterval   time.Duration
	CacheDir       string
	UseBlobStorage bool
	DisplayWidth   int
	DisplayHeight  int
	JPEGQuality    int
	Catalog        *catalog.Catalog
	Provider       provider.Provider
	Logger         *slog.Logger

	// Ready reports whether the Provider has completed authentication and
	// is reachable (e.g. the sync controller's State() == StateOnline). A
	// nil Ready always permits fetching, matching the zero-value Engine's
	// previous behavior. When non-nil and false, the fetch pass is skipped
	// for this tick without touching consecutiveFailures — readiness is a
	// distinct signal from a failed fetch attempt.
	Ready func() bool
}

// Engine runs the recurring cache-maintenance cycle: evict over-budget
// payloads, then fetch and transform candidates missing a payload.
type Engine struct {
	cfg Config

	ticking             atomic.Bool
	consecutiveFailures atomic.Int32

	transformAvailable bool // capability seam; always true, forced false only in tests
}

// New constructs an Engine, applying defaults for any zero-valued Config
// fields.
func New(cfg Config) *Engine {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = defaultTickInterval
	}

	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = defaultJPEGQuality
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Engine{cfg: cfg, transformAvailable: true}
}

// Run ticks on cfg.TickInterval until ctx is canceled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	e.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick runs one maintenance cycle: re-entrancy guarded, so an overrunning
// cycle never overlaps with the next scheduled one.
func (e *Engine) Tick(ctx context.Context) {
	if !e.ticking.CompareAndSwap(false, true) {
		e.cfg.Logger.Debug("cache tick already in progress, skipping")
		return
	}
	defer e.ticking.Store(false)

	if err := e.evictIfOverBudget(ctx); err != nil {
		e.cfg.Logger.Error("eviction pass failed", slog.String("error", err.Error()))
	}

	if e.cfg.Provider == nil {
		e.cfg.Logger.Debug("no provider configured, skipping fetch pass")
		return
	}

	if e.cfg.Ready != nil && !e.cfg.Ready() {
		e.cfg.Logger.Debug("provider not yet authenticated, skipping fetch pass")
		return
	}

	if e.consecutiveFailures.Load() >= offlineThreshold {
		e.cfg.Logger.Warn("provider unreachable, cooling down before next attempt",
			slog.Duration("cool_down", offlineCoolDown))

		select {
		case <-ctx.Done():
			return
		case <-time.After(offlineCoolDown):
		}

		e.consecutiveFailures.Store(0)
	}

	candidates, err := e.cfg.Catalog.ListFetchCandidates(ctx, e.cfg.BatchSize)
	if err != nil {
		e.cfg.Logger.Error("listing fetch candidates failed", slog.String("error", err.Error()))
		e.consecutiveFailures.Add(1)

		return
	}

	if len(candidates) == 0 {
		return
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(e.cfg.BatchSize)

	var failures atomic.Int32

	for i := range candidates {
		photo := candidates[i]

		group.Go(func() error {
			if err := e.fetchOne(gctx, photo); err != nil {
				e.cfg.Logger.Warn("fetch failed for photo",
					slog.String("photo_id", photo.ID),
					slog.String("error", err.Error()))

				failures.Add(1)
			}

			return nil // each goroutine swallows its own error; siblings must not be canceled
		})
	}

	_ = group.Wait()

	if int(failures.Load()) == len(candidates) {
		e.consecutiveFailures.Add(1)
	} else {
		e.consecutiveFailures.Store(0)
	}
}
