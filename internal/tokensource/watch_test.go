package tokensource

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

	"github.com/tonimelisma/photoframe/internal/tokenfile"
)

func TestFromPathPicksUpExternallyRewrittenToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")

	require.NoError(t, tokenfile.Save(path, &oauth2.Token{
		AccessToken: "first-token",
		Expiry:      time.Now().Add(time.Hour),
	}, nil))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	ts, err := FromPath(ctx, path, &oauth2.Config{}, slog.Default())
	require.NoError(t, err)

	got, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "first-token", got)

	require.NoError(t, tokenfile.Save(path, &oauth2.Token{
		AccessToken: "second-token",
		Expiry:      time.Now().Add(time.Hour),
	}, nil))

	assert.Eventually(t, func() bool {
		got, err := ts.Token()
		return err == nil && got == "second-token"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestReloadFromDiskIgnoresMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.json")

	b := &bridge{
		src:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "unchanged"}),
		cfg:    &oauth2.Config{},
		logger: slog.Default(),
	}

	reloadFromDisk(path, b, slog.Default())

	got, err := b.Token()
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)
}

func TestReloadFromDiskIgnoresCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	b := &bridge{
		src:    oauth2.StaticTokenSource(&oauth2.Token{AccessToken: "unchanged"}),
		cfg:    &oauth2.Config{},
		logger: slog.Default(),
	}

	reloadFromDisk(path, b, slog.Default())

	got, err := b.Token()
	require.NoError(t, err)
	assert.Equal(t, "unchanged", got)
}
