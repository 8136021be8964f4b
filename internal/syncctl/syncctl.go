// Package syncctl drives the recurring synchronization cycle between a
// Provider and the Catalog: periodic full or incremental scans, connection
// health tracking, and a doubling backoff when the Provider is unreachable.
package syncctl

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// State is the controller's connection lifecycle state.
type State int32

const (
	StateInitializing State = iota
	StateOnline
	StateOffline
	StateRetrying
	StateError
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateOnline:
		return "online"
	case StateOffline:
		return "offline"
	case StateRetrying:
		return "retrying"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	defaultScanInterval = 6 * time.Hour
	defaultMaxBackoff   = 120 * time.Second
	minBackoff          = 5 * time.Second
	maxBackoffCeiling   = 600 * time.Second
	backoffFactor       = 2.0
)

// Notification is emitted on connection state transitions, for a caller
// (the dispatcher) that wants to surface them to the display.
type Notification struct {
	State   State
	Message string
}

// Config configures a Controller. Zero-value ScanInterval and MaxBackoff
// fall back to their documented defaults.
type Config struct {
	ScanInterval time.Duration
	MaxBackoff   time.Duration
	MaxRetries   int // 0 = unbounded
	Logger       *slog.Logger
	Notify       func(Notification)
}

func (c *Config) applyDefaults() {
	if c.ScanInterval <= 0 {
		c.ScanInterval = defaultScanInterval
	}

	if c.MaxBackoff <= 0 {
		c.MaxBackoff = defaultMaxBackoff
	}

	if c.MaxBackoff < minBackoff {
		c.MaxBackoff = minBackoff
	}

	if c.MaxBackoff > maxBackoffCeiling {
		c.MaxBackoff = maxBackoffCeiling
	}

	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	if c.Notify == nil {
		c.Notify = func(Notification) {}
	}
}

// Controller owns the sync lifecycle for a single Provider.
type Controller struct {
	deps Deps
	cfg  Config

	state   atomic.Int32
	attempt atomic.Int32

	retryPending atomic.Bool
	ticking      atomic.Bool
}

// New constructs a Controller, applying defaults for any zero-valued
// Config fields.
func New(deps Deps, cfg Config) *Controller {
	cfg.applyDefaults()

	c := &Controller{deps: deps, cfg: cfg}
	c.state.Store(int32(StateInitializing))

	return c
}

// State returns the controller's current connection state.
func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) setState(s State) {
	c.state.Store(int32(s))
}

func (c *Controller) notify(s State, msg string) {
	c.setState(s)
	c.cfg.Notify(Notification{State: s, Message: msg})
}

// Start performs the one synchronous init attempt, then either begins the
// periodic scan ticker (on success) or schedules the retry backoff loop
// (on failure). It returns once the initial attempt has been made; the
// periodic work continues in a background goroutine until ctx is done.
func (c *Controller) Start(ctx context.Context) {
	if err := c.deps.Provider.Init(ctx); err != nil {
		c.cfg.Logger.Warn("provider init failed", slog.String("error", err.Error()))
		c.notify(StateOffline, "provider unreachable")
		c.scheduleRetry(ctx)

		return
	}

	c.attempt.Store(0)
	c.notify(StateOnline, "connected")

	if err := c.Sync(ctx); err != nil {
		c.handleSyncError(ctx, err)
	}

	go c.runTicker(ctx)
}

func (c *Controller) runTicker(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

func (c *Controller) tick(ctx context.Context) {
	if !c.ticking.CompareAndSwap(false, true) {
		c.cfg.Logger.Debug("sync tick already in progress, skipping")
		return
	}
	defer c.ticking.Store(false)

	if err := c.Sync(ctx); err != nil {
		c.handleSyncError(ctx, err)
		return
	}

	c.attempt.Store(0)

	if c.State() != StateOnline {
		c.notify(StateOnline, "connected")
	}
}

func (c *Controller) handleSyncError(ctx context.Context, err error) {
	if classify(err) {
		c.cfg.Logger.Error("sync failed permanently, not retrying", slog.String("error", err.Error()))
		c.notify(StateError, err.Error())

		return
	}

	cached, countErr := c.deps.Catalog.CachedCount(ctx)
	if countErr != nil {
		cached = 0
	}

	c.cfg.Logger.Warn("sync failed, will retry", slog.String("error", err.Error()))
	c.notify(StateOffline, formatCachedCount(cached))
	c.attempt.Store(0)
	c.scheduleRetry(ctx)
}

// scheduleRetry arms a single background retry after the current
// doubling-backoff delay. retryPending ensures at most one retry is ever
// scheduled at a time, even if called again before the pending one fires.
func (c *Controller) scheduleRetry(ctx context.Context) {
	if !c.retryPending.CompareAndSwap(false, true) {
		return
	}

	attempt := c.attempt.Add(1)
	delay := backoffDelay(attempt, c.cfg.MaxBackoff)

	if c.cfg.MaxRetries > 0 && int(attempt) > c.cfg.MaxRetries {
		c.cfg.Logger.Error("exhausted max sync retries", slog.Int("attempt", int(attempt)))
		c.notify(StateError, "retries exhausted")
		c.retryPending.Store(false)

		return
	}

	go func() {
		select {
		case <-ctx.Done():
			c.retryPending.Store(false)
			return
		case <-time.After(delay):
		}

		// Cleared before the attempt so a failure below can arm the next,
		// longer retry.
		c.retryPending.Store(false)
		c.setState(StateRetrying)

		if err := c.deps.Provider.Init(ctx); err != nil {
			c.cfg.Logger.Warn("retry init failed", slog.String("error", err.Error()))
			c.notify(StateOffline, "provider unreachable")
			c.scheduleRetry(ctx)

			return
		}

		c.attempt.Store(0)
		c.notify(StateOnline, "connected")

		if err := c.Sync(ctx); err != nil {
			c.handleSyncError(ctx, err)
			return
		}

		go c.runTicker(ctx)
	}()
}

// backoffDelay returns the doubling backoff for the given 1-indexed
// attempt: 5s, 10s, 20s, 40s, 80s, ... clamped to max. Deliberately not
// jittered, unlike the Provider's own per-request HTTP backoff — this
// schedule is meant to be an exact, testable sequence.
func backoffDelay(attempt int32, max time.Duration) time.Duration {
	delay := minBackoff

	for i := int32(1); i < attempt; i++ {
		delay *= time.Duration(backoffFactor)

		if delay >= max {
			return max
		}
	}

	if delay > max {
		return max
	}

	return delay
}

func formatCachedCount(n int) string {
	if n == 1 {
		return "1 cached photo"
	}

	return fmt.Sprintf("%d cached photos", n)
}
