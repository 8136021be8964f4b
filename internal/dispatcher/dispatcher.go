// Package dispatcher selects the next cached photo on a fixed cadence and
// emits it, base64-encoded, to a channel consumed by the host display
// surface.
package dispatcher

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"github.com/tonimelisma/photoframe/internal/catalog"
)

const (
	defaultInterval = 60 * time.Second
	minInterval     = 10 * time.Second
	firstEmitDelay  = 2 * time.Second
)

// Config configures a Dispatcher. Zero-value Interval falls back to the
// documented default; any Interval below minInterval is clamped up to it.
type Config struct {
	Catalog  *catalog.Catalog
	Interval time.Duration
	SortMode catalog.SortMode
	Out      chan<- Message
	Logger   *slog.Logger
}

// Dispatcher periodically picks the next display candidate from the
// Catalog and emits it on cfg.Out.
type Dispatcher struct {
	cfg Config

	emitting atomic.Bool
}

// New constructs a Dispatcher, applying defaults for any zero-valued
// Config fields.
func New(cfg Config) *Dispatcher {
	switch {
	case cfg.Interval == 0:
		cfg.Interval = defaultInterval
	case cfg.Interval < minInterval:
		cfg.Interval = minInterval
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Dispatcher{cfg: cfg}
}

// Run fires emitOnce once after a short startup delay, independent of the
// recurring interval ticker, then on every configured interval until ctx
// is done.
func (d *Dispatcher) Run(ctx context.Context) {
	firstTimer := time.NewTimer(firstEmitDelay)
	defer firstTimer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-firstTimer.C:
		d.emitOnce(ctx)
	}

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.emitOnce(ctx)
		}
	}
}

// emitOnce selects and emits one display candidate. Re-entrancy guarded,
// so an overrunning emission never overlaps the next scheduled one.
func (d *Dispatcher) emitOnce(ctx context.Context) {
	if !d.emitting.CompareAndSwap(false, true) {
		d.cfg.Logger.Debug("dispatcher emission already in progress, skipping")
		return
	}
	defer d.emitting.Store(false)

	photo, err := d.cfg.Catalog.NextDisplayCandidate(ctx, d.cfg.SortMode)
	if err != nil {
		d.cfg.Logger.Error("selecting display candidate failed", slog.String("error", err.Error()))
		d.send(UpdateStatus{Text: "error selecting next photo"})

		return
	}

	if photo == nil {
		d.send(UpdateStatus{Text: "Waiting for photos to cache..."})
		return
	}

	data, err := d.readPayload(photo)
	if err != nil {
		d.cfg.Logger.Warn("reading cached payload failed",
			slog.String("photo_id", photo.ID), slog.String("error", err.Error()))
		d.send(UpdateStatus{Text: "error reading cached photo"})

		return
	}

	d.send(DisplayPhoto{
		ID:           photo.ID,
		Image:        base64.StdEncoding.EncodeToString(data),
		Filename:     photo.Filename,
		Width:        photo.Width,
		Height:       photo.Height,
		CreationTime: photo.CreationTime,
		LocationName: photo.LocationName,
	})

	// Fire-and-forget: MarkViewed has its own internal error sink (logs
	// and swallows), so it is never joined or checked here.
	go d.cfg.Catalog.MarkViewed(context.Background(), photo.ID, time.Now())
}

func (d *Dispatcher) readPayload(photo *catalog.Photo) ([]byte, error) {
	switch photo.CacheState {
	case catalog.CacheBlob:
		return photo.BlobBytes, nil
	case catalog.CacheFile:
		return os.ReadFile(photo.FilePath)
	default:
		return nil, fmt.Errorf("dispatcher: photo %s has no cache payload", photo.ID)
	}
}

func (d *Dispatcher) send(msg Message) {
	select {
	case d.cfg.Out <- msg:
	default:
		d.cfg.Logger.Warn("dispatcher output channel full, dropping message")
	}
}

// HandleImageLoaded is the second call site of MarkViewed, invoked when
// the host reports IMAGE_LOADED for the most recent emission. It marks
// the photo viewed at acknowledgement time, which moves last_viewed_at
// forward from the dispatch-time mark set in emitOnce; the catalog's
// monotonic last_viewed_at guard only keeps an older timestamp from
// replacing a newer one.
func (d *Dispatcher) HandleImageLoaded(ctx context.Context, id string) {
	d.cfg.Catalog.MarkViewed(ctx, id, time.Now())
}
