package localfolder

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/photoframe/internal/provider"
)

func newTestProvider(t *testing.T, root string) *Provider {
	t.Helper()

	return &Provider{root: root, logger: slog.Default()}
}

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o600))
}

func TestFullScanFindsImagesAndSkipsOthers(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "album", "a.jpg"), []byte("x"))
	writeFile(t, filepath.Join(root, "album", "notes.txt"), []byte("x"))

	p := newTestProvider(t, root)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "album", Depth: 2}})
	require.NoError(t, err)
	require.Len(t, photos, 1)
	require.Equal(t, "a.jpg", filepath.Base(photos[0].ID))
}

func TestFullScanRecursesIntoSubdirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "album", "a.jpg"), []byte("x"))
	writeFile(t, filepath.Join(root, "album", "sub", "b.png"), []byte("x"))

	p := newTestProvider(t, root)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "album", Depth: 5}})
	require.NoError(t, err)
	require.Len(t, photos, 2)
}

func TestFullScanRespectsDepth(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "album", "sub", "b.png"), []byte("x"))

	p := newTestProvider(t, root)

	photos, err := p.FullScan(context.Background(), []provider.Container{{ID: "album", Depth: 0}})
	require.NoError(t, err)
	require.Empty(t, photos)
}

func TestDownloadReadsFileContents(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "album", "a.jpg"), []byte("jpeg-bytes"))

	p := newTestProvider(t, root)

	rc, err := p.Download(context.Background(), filepath.Join("album", "a.jpg"), time.Second)
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Equal(t, "jpeg-bytes", string(data))
}

func TestDownloadMissingFile(t *testing.T) {
	root := t.TempDir()
	p := newTestProvider(t, root)

	_, err := p.Download(context.Background(), "missing.jpg", time.Second)
	require.Error(t, err)
}
