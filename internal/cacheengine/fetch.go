package cacheengine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tonimelisma/photoframe/internal/catalog"
)

// fetchOne downloads, transforms, and attaches one photo's cache payload.
// Up to perPhotoRetries attempts with a linear backoff (1s before the
// second attempt, 2s before the third, and so on) — a
// deliberately simpler schedule than the Provider's own per-request
// exponential+jittered HTTP retry, since this layer retries the whole
// download+transform operation rather than a single HTTP round trip.
func (e *Engine) fetchOne(ctx context.Context, photo catalog.Photo) error {
	var lastErr error

	for attempt := 0; attempt < perPhotoRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := e.fetchOnce(ctx, photo); err != nil {
			lastErr = err

			e.cfg.Logger.Debug("fetch attempt failed",
				slog.String("photo_id", photo.ID),
				slog.Int("attempt", attempt+1),
				slog.String("error", err.Error()))

			continue
		}

		return nil
	}

	return fmt.Errorf("cacheengine: fetching photo %s after %d attempts: %w", photo.ID, perPhotoRetries, lastErr)
}

func (e *Engine) fetchOnce(ctx context.Context, photo catalog.Photo) error {
	stream, err := e.cfg.Provider.Download(ctx, photo.ID, downloadTimeout)
	if err != nil {
		return fmt.Errorf("downloading: %w", err)
	}
	defer stream.Close()

	if !e.transformAvailable {
		return e.storeRaw(ctx, photo, stream)
	}

	raw, data, mimeType, err := transform(ctx, stream, e.cfg.DisplayWidth, e.cfg.DisplayHeight, e.cfg.JPEGQuality)
	if err != nil {
		e.cfg.Logger.Warn("transform failed, storing raw bytes instead",
			slog.String("photo_id", photo.ID), slog.String("error", err.Error()))

		// raw already holds everything transform read off stream before it
		// failed; reusing the drained stream here would copy zero bytes.
		return e.storeRaw(ctx, photo, bytes.NewReader(raw))
	}

	if e.cfg.UseBlobStorage {
		return e.cfg.Catalog.AttachBlob(ctx, photo.ID, data, mimeType)
	}

	return e.storeFile(ctx, photo.ID, data)
}

// storeRaw copies the provider's stream straight to disk with no resize,
// for when the transform pipeline is unavailable or fails. The capability
// flag transformAvailable keeps this path reachable by tests even though
// the real pipeline (disintegration/imaging, pure Go) never disables
// itself at runtime.
func (e *Engine) storeRaw(ctx context.Context, photo catalog.Photo, stream io.Reader) error {
	path := filepath.Join(e.cfg.CacheDir, photo.ID+".jpg")

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating cache file: %w", err)
	}

	n, copyErr := io.Copy(f, stream)

	closeErr := f.Close()

	if copyErr != nil {
		_ = os.Remove(path)
		return fmt.Errorf("copying stream to cache file: %w", copyErr)
	}

	if closeErr != nil {
		return fmt.Errorf("closing cache file: %w", closeErr)
	}

	return e.cfg.Catalog.AttachFile(ctx, photo.ID, path, n)
}

func (e *Engine) storeFile(ctx context.Context, photoID string, data []byte) error {
	path := filepath.Join(e.cfg.CacheDir, photoID+".jpg")

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing cache file: %w", err)
	}

	return e.cfg.Catalog.AttachFile(ctx, photoID, path, int64(len(data)))
}
