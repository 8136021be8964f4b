package dispatcher

import (
	"context"
	"encoding/base64"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/photoframe/internal/catalog"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	cat, err := catalog.Open(ctx, path, testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { _ = cat.Close() })

	return cat
}

func TestEmitOnceSendsUpdateStatusWhenNothingCached(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	out := make(chan Message, 1)
	d := New(Config{Catalog: cat, Out: out, Logger: testLogger(t)})

	d.emitOnce(ctx)

	msg := <-out
	status, ok := msg.(UpdateStatus)
	require.True(t, ok)
	require.Equal(t, "Waiting for photos to cache...", status.Text)
}

func TestEmitOnceSendsDisplayPhotoFromBlob(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	require.NoError(t, cat.UpsertPhotos(ctx, []catalog.Photo{{
		ID: "p1", ProviderKey: "test", ContainerKey: "root",
		Filename: "a.jpg", CreationTime: time.Now(), Width: 100, Height: 50,
	}}))
	require.NoError(t, cat.AttachBlob(ctx, "p1", []byte("jpeg-bytes"), "image/jpeg"))

	out := make(chan Message, 1)
	d := New(Config{Catalog: cat, Out: out, Logger: testLogger(t)})

	d.emitOnce(ctx)

	msg := <-out
	photo, ok := msg.(DisplayPhoto)
	require.True(t, ok)
	require.Equal(t, "p1", photo.ID)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")), photo.Image)
	require.Equal(t, 100, photo.Width)

	// MarkViewed runs in a detached goroutine, so wait for it to land.
	var got *catalog.Photo

	require.Eventually(t, func() bool {
		var err error
		got, err = cat.GetPhoto(ctx, "p1")

		return err == nil && got != nil && got.LastViewedAt != nil
	}, 2*time.Second, 10*time.Millisecond)
	require.NotNil(t, got.LastViewedAt)
}

func TestEmitOnceSendsDisplayPhotoFromFile(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	require.NoError(t, cat.UpsertPhotos(ctx, []catalog.Photo{{
		ID: "p1", ProviderKey: "test", ContainerKey: "root",
		Filename: "a.jpg", CreationTime: time.Now(),
	}}))

	path := filepath.Join(t.TempDir(), "p1.jpg")
	require.NoError(t, os.WriteFile(path, []byte("file-bytes"), 0o600))
	require.NoError(t, cat.AttachFile(ctx, "p1", path, 10))

	out := make(chan Message, 1)
	d := New(Config{Catalog: cat, Out: out, Logger: testLogger(t)})

	d.emitOnce(ctx)

	msg := <-out
	photo, ok := msg.(DisplayPhoto)
	require.True(t, ok)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("file-bytes")), photo.Image)
}

func TestEmitOnceIsReentrancyGuarded(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	out := make(chan Message, 1)
	d := New(Config{Catalog: cat, Out: out, Logger: testLogger(t)})

	d.emitting.Store(true)
	d.emitOnce(ctx)

	select {
	case <-out:
		t.Fatal("expected no message while emitting guard is held")
	default:
	}
}

func TestHandleImageLoadedMarksViewed(t *testing.T) {
	ctx := context.Background()
	cat := newTestCatalog(t)

	require.NoError(t, cat.UpsertPhotos(ctx, []catalog.Photo{{
		ID: "p1", ProviderKey: "test", ContainerKey: "root",
		Filename: "a.jpg", CreationTime: time.Now(),
	}}))

	out := make(chan Message, 1)
	d := New(Config{Catalog: cat, Out: out, Logger: testLogger(t)})

	d.HandleImageLoaded(ctx, "p1")

	got, err := cat.GetPhoto(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, got.LastViewedAt)
}

func TestIntervalClampsToMinimum(t *testing.T) {
	d := New(Config{Interval: time.Second})
	require.Equal(t, minInterval, d.cfg.Interval)
}

func TestIntervalDefaultsWhenZero(t *testing.T) {
	d := New(Config{})
	require.Equal(t, defaultInterval, d.cfg.Interval)
}
