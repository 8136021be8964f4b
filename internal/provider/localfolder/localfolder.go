// Package localfolder implements provider.Provider against a directory
// tree already present on local disk — useful for tests, and for any
// deployment pointed at a photo library already mirrored onto the same
// filesystem (e.g. a network share mount). It implements only
// provider.Provider, not provider.DeltaCapable: every sync is a fresh
// walk of the tree.
package localfolder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/photoframe/internal/provider"
)

func init() {
	provider.Register("localfolder", New)
}

// Provider walks a root directory on disk and reports image files as
// photos, using the directory path as container key.
type Provider struct {
	root   string
	logger *slog.Logger
}

// New constructs a localfolder Provider. Recognized config key: "root"
// (string, required) — the directory to walk.
func New(cfg map[string]any, _ provider.TokenSource, logger *slog.Logger) (provider.Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}

	root, _ := cfg["root"].(string)
	if root == "" {
		return nil, fmt.Errorf("localfolder: config requires a non-empty \"root\" path")
	}

	return &Provider{root: root, logger: logger}, nil
}

func (p *Provider) Name() string { return "localfolder" }

// Init verifies the root directory exists and is readable.
func (p *Provider) Init(ctx context.Context) error {
	info, err := os.Stat(p.root)
	if err != nil {
		return fmt.Errorf("localfolder: stat root %q: %w", p.root, err)
	}

	if !info.IsDir() {
		return fmt.Errorf("localfolder: root %q is not a directory", p.root)
	}

	return nil
}

// FullScan walks each container's directory (relative to root) up to
// Depth levels, reporting image files as photos. The container's ID is
// used directly as the directory's relative path.
func (p *Provider) FullScan(ctx context.Context, containers []provider.Container) ([]provider.PhotoMeta, error) {
	var out []provider.PhotoMeta

	for _, c := range containers {
		items, err := p.scanDir(ctx, c.ID, c.ID, c.Depth)
		if err != nil {
			return nil, err
		}

		out = append(out, items...)
	}

	return out, nil
}

func (p *Provider) scanDir(ctx context.Context, relDir, containerKey string, depthRemaining int) ([]provider.PhotoMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullDir := filepath.Join(p.root, relDir)

	entries, err := os.ReadDir(fullDir)
	if err != nil {
		return nil, fmt.Errorf("localfolder: reading directory %q: %w", fullDir, err)
	}

	var out []provider.PhotoMeta

	for _, entry := range entries {
		name := norm.NFC.String(entry.Name())
		entryRel := filepath.Join(relDir, entry.Name())

		if entry.IsDir() {
			if depthRemaining <= 0 {
				continue
			}

			sub, err := p.scanDir(ctx, entryRel, containerKey, depthRemaining-1)
			if err != nil {
				return nil, err
			}

			out = append(out, sub...)

			continue
		}

		if !isImageName(name) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			p.logger.Warn("localfolder: cannot stat entry, skipping",
				slog.String("path", entryRel), slog.String("error", err.Error()))

			continue
		}

		out = append(out, provider.PhotoMeta{
			ID:           entryRel,
			Filename:     name,
			ContainerKey: containerKey,
			CreationTime: info.ModTime(),
		})
	}

	return out, nil
}

// Download opens the file directly. timeout has no effect since a local
// open either succeeds or fails immediately.
func (p *Provider) Download(_ context.Context, photoID string, _ time.Duration) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.root, photoID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("localfolder: photo %s: %w", photoID, os.ErrNotExist)
	}

	if err != nil {
		return nil, fmt.Errorf("localfolder: opening %s: %w", photoID, err)
	}

	return f, nil
}

func isImageName(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))

	return strings.HasPrefix(mime.TypeByExtension(ext), "image/") ||
		ext == ".jpg" || ext == ".jpeg" || ext == ".png" || ext == ".heic" || ext == ".webp"
}
