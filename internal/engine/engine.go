// Package engine assembles the Catalog, Provider, CacheEngine,
// SyncController, and Dispatcher into one running process, the analog of
// the teacher's Orchestrator: this is the only package that constructs
// every component and wires their outbound channels together.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tonimelisma/photoframe/internal/cacheengine"
	"github.com/tonimelisma/photoframe/internal/catalog"
	"github.com/tonimelisma/photoframe/internal/config"
	"github.com/tonimelisma/photoframe/internal/dispatcher"
	"github.com/tonimelisma/photoframe/internal/provider"
	"github.com/tonimelisma/photoframe/internal/syncctl"

	// Blank-imported so their init() registers with the provider registry;
	// see provider.Register.
	_ "github.com/tonimelisma/photoframe/internal/provider/graphphotos"
	_ "github.com/tonimelisma/photoframe/internal/provider/localfolder"
)

// outChanSize bounds how many outbound messages can be buffered before the
// dispatcher or sync controller starts dropping them (both log-and-drop on
// a full channel rather than block; see dispatcher.send).
const outChanSize = 8

// Engine owns every long-running component for one process.
type Engine struct {
	catalog  *catalog.Catalog
	cache    *cacheengine.Engine
	sync     *syncctl.Controller
	dispatch *dispatcher.Dispatcher
	out      chan dispatcher.Message
	logger   *slog.Logger
}

// Out returns the channel the host display surface reads outbound
// messages from (DisplayPhoto, UpdateStatus, ConnectionStatus, ErrorMsg).
func (e *Engine) Out() <-chan dispatcher.Message {
	return e.out
}

// Catalog exposes the underlying Catalog, e.g. for the `stats` CLI
// subcommand to query cache occupancy without starting the full engine.
func (e *Engine) Catalog() *catalog.Catalog {
	return e.catalog
}

// CacheStats reports the cache engine's current occupancy and health.
func (e *Engine) CacheStats(ctx context.Context) (cacheengine.Stats, error) {
	return e.cache.Stats(ctx)
}

// HandleImageLoaded forwards the host's acknowledgement that a displayed
// photo finished rendering, to the dispatcher, which marks the photo
// viewed at acknowledgement time.
func (e *Engine) HandleImageLoaded(ctx context.Context, photoID string) {
	e.dispatch.HandleImageLoaded(ctx, photoID)
}

// New builds every component from cfg but starts nothing; call Run to
// start the timers.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	cacheDir := cfg.Cache.Dir
	if cacheDir == "" {
		cacheDir = config.DefaultDataDir()
	}

	if err := os.MkdirAll(cacheDir, 0o700); err != nil {
		return nil, fmt.Errorf("engine: creating cache directory %s: %w", cacheDir, err)
	}

	catalogPath := config.DefaultCatalogPath()
	if cfg.Cache.Dir != "" {
		catalogPath = filepath.Join(cacheDir, "catalog.db")
	}

	cat, err := catalog.Open(ctx, catalogPath, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: opening catalog: %w", err)
	}

	tokenPath := cfg.Provider.TokenPath
	if tokenPath == "" {
		tokenPath = config.DefaultTokenPath()
	}

	prov, err := newProvider(ctx, cfg, tokenPath, logger)
	if err != nil {
		_ = cat.Close()
		return nil, fmt.Errorf("engine: constructing provider %q: %w", cfg.Provider.Key, err)
	}

	out := make(chan dispatcher.Message, outChanSize)

	containers := make([]provider.Container, 0, len(cfg.Provider.Containers))
	for _, c := range cfg.Provider.Containers {
		containers = append(containers, provider.Container{ID: c.ID, Depth: c.Depth})
	}

	syncCtl := syncctl.New(syncctl.Deps{
		Provider:    prov,
		Catalog:     cat,
		ProviderKey: cfg.Provider.Key,
		Containers:  containers,
	}, syncctl.Config{
		ScanInterval: mustParseDuration(cfg.Sync.ScanInterval, logger),
		MaxBackoff:   mustParseDuration(cfg.Sync.MaxBackoff, logger),
		MaxRetries:   cfg.Sync.MaxRetries,
		Logger:       logger,
		Notify:       notifyAdapter(out, logger),
	})

	cache := cacheengine.New(cacheengine.Config{
		MaxCacheBytes:  cfg.Cache.MaxSizeMB * bytesPerMB,
		BatchSize:      cfg.Cache.BatchSize,
		TickInterval:   mustParseDuration(cfg.Cache.TickInterval, logger),
		CacheDir:       cacheDir,
		UseBlobStorage: cfg.Cache.UseBlobStorage,
		DisplayWidth:   cfg.Display.Width,
		DisplayHeight:  cfg.Display.Height,
		JPEGQuality:    cfg.Display.JPEGQuality,
		Catalog:        cat,
		Provider:       prov,
		Logger:         logger,
		Ready:          func() bool { return syncCtl.State() == syncctl.StateOnline },
	})

	dispatch := dispatcher.New(dispatcher.Config{
		Catalog:  cat,
		Interval: mustParseDuration(cfg.Display.UpdateInterval, logger),
		SortMode: catalog.ParseSortMode(cfg.Display.SortMode),
		Out:      out,
		Logger:   logger,
	})

	return &Engine{
		catalog:  cat,
		cache:    cache,
		sync:     syncCtl,
		dispatch: dispatch,
		out:      out,
		logger:   logger,
	}, nil
}

// Run starts the sync controller, the cache engine's tick loop, and the
// dispatcher's emit loop, and blocks until ctx is canceled. Cancellation
// propagates into in-flight Provider HTTP requests; Run then closes the
// Catalog before returning.
func (e *Engine) Run(ctx context.Context) error {
	e.sync.Start(ctx)

	go e.cache.Run(ctx)
	go e.dispatch.Run(ctx)

	<-ctx.Done()

	e.logger.Info("engine: shutting down")

	return e.catalog.Close()
}

const bytesPerMB = 1 << 20

// mustParseDuration parses s, returning zero (which each component
// interprets as "use its own default") on error. Validate already rejects
// unparseable durations before a Config reaches here, so this is a last
// line of defense, not the primary check.
func mustParseDuration(s string, logger *slog.Logger) time.Duration {
	parsed, err := time.ParseDuration(s)
	if err != nil {
		logger.Warn("engine: unparseable duration reached engine assembly, using component default",
			slog.String("value", s), slog.String("error", err.Error()))

		return 0
	}

	return parsed
}
