package engine

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/tonimelisma/photoframe/internal/config"
	"github.com/tonimelisma/photoframe/internal/dispatcher"
	"github.com/tonimelisma/photoframe/internal/syncctl"
	"github.com/tonimelisma/photoframe/internal/tokenfile"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	tmp := t.TempDir()

	photoDir := filepath.Join(tmp, "photos")
	require.NoError(t, os.MkdirAll(photoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(photoDir, "a.jpg"), []byte("fake-jpeg"), 0o600))

	tokenPath := filepath.Join(tmp, "token.json")
	require.NoError(t, tokenfile.Save(tokenPath, &oauth2.Token{
		AccessToken: "unused-by-localfolder",
		Expiry:      time.Now().Add(time.Hour),
	}, nil))

	cfg := config.DefaultConfig()
	cfg.Provider.Key = "localfolder"
	cfg.Provider.Settings = map[string]any{"root": photoDir}
	cfg.Provider.TokenPath = tokenPath
	cfg.Cache.Dir = filepath.Join(tmp, "cache")
	cfg.Cache.TickInterval = "1h"
	cfg.Sync.ScanInterval = "1h"
	cfg.Display.UpdateInterval = "1h"

	return cfg
}

func TestNewBuildsAllComponents(t *testing.T) {
	ctx := context.Background()

	e, err := New(ctx, testConfig(t), testLogger(t))
	require.NoError(t, err)
	require.NotNil(t, e)

	require.NoError(t, e.catalog.Close())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	e, err := New(ctx, testConfig(t), testLogger(t))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after context cancellation")
	}
}

func TestConnectionStatusForMapsAllStates(t *testing.T) {
	cases := map[syncctl.State]dispatcher.ConnectionStatusValue{
		syncctl.StateOnline:       dispatcher.ConnectionOnline,
		syncctl.StateOffline:      dispatcher.ConnectionOffline,
		syncctl.StateRetrying:     dispatcher.ConnectionRetrying,
		syncctl.StateError:        dispatcher.ConnectionError,
		syncctl.StateInitializing: dispatcher.ConnectionInitializing,
	}

	for in, want := range cases {
		assert.Equal(t, want, connectionStatusFor(in))
	}
}

func TestNotifyAdapterDropsOnFullChannel(t *testing.T) {
	out := make(chan dispatcher.Message) // unbuffered, no reader

	notify := notifyAdapter(out, testLogger(t))

	// Must not block even though nothing ever reads from out.
	done := make(chan struct{})
	go func() {
		notify(syncctl.Notification{State: syncctl.StateOnline})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("notifyAdapter blocked on a full channel")
	}
}
