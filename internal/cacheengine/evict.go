package cacheengine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
)

// evictIfOverBudget removes cached payloads, oldest last_viewed_at first,
// until total cache usage is back under MaxCacheBytes. Each candidate's
// file (if any) is unlinked before its catalog row is cleared, so a crash
// between the two can leave a row still marked cached whose file is
// already gone; a failed unlink is logged and tolerated rather than aborting
// the whole pass, since ClearCache still brings the accounting back in
// sync. Every call gets its own batchID so a multi-iteration pass (large
// overshoot, many small eviction rounds) reads as one correlated unit in
// the logs rather than a stream of unrelated single-photo lines.
func (e *Engine) evictIfOverBudget(ctx context.Context) error {
	if e.cfg.MaxCacheBytes <= 0 {
		return nil
	}

	batchID := uuid.NewString()

	for {
		total, err := e.cfg.Catalog.CacheBytesTotal(ctx)
		if err != nil {
			return fmt.Errorf("checking cache budget: %w", err)
		}

		if total <= e.cfg.MaxCacheBytes {
			return nil
		}

		candidates, err := e.cfg.Catalog.ListEvictionCandidates(ctx, evictionBatchSize)
		if err != nil {
			return fmt.Errorf("listing eviction candidates: %w", err)
		}

		if len(candidates) == 0 {
			return nil
		}

		e.cfg.Logger.Debug("evicting cache batch",
			slog.String("batch_id", batchID), slog.Int("count", len(candidates)))

		for _, photo := range candidates {
			if photo.FilePath != "" {
				if err := os.Remove(photo.FilePath); err != nil && !os.IsNotExist(err) {
					e.cfg.Logger.Warn("failed to unlink cached file during eviction",
						slog.String("batch_id", batchID),
						slog.String("photo_id", photo.ID),
						slog.String("path", photo.FilePath),
						slog.String("error", err.Error()))
				}
			}

			if err := e.cfg.Catalog.ClearCache(ctx, photo.ID); err != nil {
				return fmt.Errorf("clearing cache row for %s (batch %s): %w", photo.ID, batchID, err)
			}

			// Stop the moment budget is satisfied, rather than clearing the
			// rest of this batch unconditionally.
			total, err := e.cfg.Catalog.CacheBytesTotal(ctx)
			if err != nil {
				return fmt.Errorf("checking cache budget: %w", err)
			}

			if total <= e.cfg.MaxCacheBytes {
				return nil
			}
		}

		if err := ctx.Err(); err != nil {
			return err
		}
	}
}
