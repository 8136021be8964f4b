package syncctl

import (
	"context"
	"fmt"

	"github.com/tonimelisma/photoframe/internal/catalog"
	"github.com/tonimelisma/photoframe/internal/provider"
)

// Deps are the collaborators a Controller drives. Provider is the
// interface's minimal surface; Containers are the roots the Provider
// scans on a full scan.
type Deps struct {
	Provider    provider.Provider
	Catalog     *catalog.Catalog
	ProviderKey string
	Containers  []provider.Container
}

// Sync runs one synchronization pass: resumes from a stored delta token
// when the Provider supports it and one is on record, otherwise performs
// a full scan. Newly seen or changed photos are upserted; photos reported
// deleted by a delta page are removed from the catalog.
func (c *Controller) Sync(ctx context.Context) error {
	deltaCap, isDeltaCapable := c.deps.Provider.(provider.DeltaCapable)

	tokenKey := catalog.DeltaTokenKey(c.deps.ProviderKey)

	if isDeltaCapable {
		token, ok, err := c.deps.Catalog.GetSetting(ctx, tokenKey)
		if err != nil {
			return fmt.Errorf("syncctl: reading delta token: %w", err)
		}

		if ok && token != "" {
			return c.syncDelta(ctx, deltaCap, tokenKey, token)
		}
	}

	if err := c.syncFull(ctx); err != nil {
		return err
	}

	if isDeltaCapable {
		token, err := deltaCap.DeltaStartToken(ctx)
		if err != nil {
			return fmt.Errorf("syncctl: fetching delta start token: %w", err)
		}

		if err := c.deps.Catalog.PutSetting(ctx, tokenKey, token); err != nil {
			return fmt.Errorf("syncctl: persisting delta start token: %w", err)
		}
	}

	return nil
}

func (c *Controller) syncFull(ctx context.Context) error {
	metas, err := c.deps.Provider.FullScan(ctx, c.deps.Containers)
	if err != nil {
		return fmt.Errorf("syncctl: full scan: %w", err)
	}

	photos := make([]catalog.Photo, 0, len(metas))
	for _, m := range metas {
		photos = append(photos, photoFromMeta(c.deps.ProviderKey, m))
	}

	if err := c.deps.Catalog.UpsertPhotos(ctx, photos); err != nil {
		return fmt.Errorf("syncctl: upserting full scan results: %w", err)
	}

	return nil
}

func (c *Controller) syncDelta(ctx context.Context, deltaCap provider.DeltaCapable, tokenKey, token string) error {
	result, err := deltaCap.Delta(ctx, token)
	if err != nil {
		// An expired/invalid token falls back to a full re-enumeration,
		// per the Provider/DeltaCapable contract (the caller's response
		// to ErrGone-class errors, not a classify()-worthy failure).
		if provider.IsDeltaTokenExpired(err) {
			c.cfg.Logger.Warn("delta token expired, falling back to full scan")

			if fullErr := c.syncFull(ctx); fullErr != nil {
				return fullErr
			}

			newToken, tokenErr := deltaCap.DeltaStartToken(ctx)
			if tokenErr != nil {
				return fmt.Errorf("syncctl: fetching delta start token after fallback: %w", tokenErr)
			}

			return c.deps.Catalog.PutSetting(ctx, tokenKey, newToken)
		}

		return fmt.Errorf("syncctl: delta sync: %w", err)
	}

	photos := make([]catalog.Photo, 0, len(result.AddedOrModified))
	for _, m := range result.AddedOrModified {
		photos = append(photos, photoFromMeta(c.deps.ProviderKey, m))
	}

	if len(photos) > 0 {
		if err := c.deps.Catalog.UpsertPhotos(ctx, photos); err != nil {
			return fmt.Errorf("syncctl: upserting delta results: %w", err)
		}
	}

	for _, id := range result.DeletedIDs {
		if err := c.deps.Catalog.DeletePhoto(ctx, id); err != nil {
			return fmt.Errorf("syncctl: deleting photo %s: %w", id, err)
		}
	}

	if result.NextToken != "" {
		if err := c.deps.Catalog.PutSetting(ctx, tokenKey, result.NextToken); err != nil {
			return fmt.Errorf("syncctl: persisting next delta token: %w", err)
		}
	}

	return nil
}

func photoFromMeta(providerKey string, m provider.PhotoMeta) catalog.Photo {
	return catalog.Photo{
		ID:           m.ID,
		ProviderKey:  providerKey,
		ContainerKey: m.ContainerKey,
		Filename:     m.Filename,
		CreationTime: m.CreationTime,
		Width:        m.Width,
		Height:       m.Height,
		Latitude:     m.Latitude,
		Longitude:    m.Longitude,
		LocationName: m.LocationName,
	}
}
