// Package tokensource bridges a saved OAuth2 token file to a
// provider.TokenSource, auto-refreshing and persisting renewed tokens.
// It never performs the interactive authorization exchange itself — that
// is an external collaborator's job; this package only reads what it
// produced.
package tokensource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/photoframe/internal/provider"
	"github.com/tonimelisma/photoframe/internal/tokenfile"
)

// FromPath loads a token saved at tokenPath and wraps it in a
// provider.TokenSource backed by oauthCfg's endpoint. Silent refreshes are
// persisted back to tokenPath via oauthCfg.OnTokenChange, which this
// function wires before building the source. It also starts a background
// watch on tokenPath's directory for the life of ctx, so a re-login
// performed externally (a new token file written by the provider's own
// login tool, outside this process) is picked up without a restart.
func FromPath(ctx context.Context, tokenPath string, oauthCfg *oauth2.Config, logger *slog.Logger) (provider.TokenSource, error) {
	tok, meta, err := tokenfile.Load(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("tokensource: loading %s: %w", tokenPath, err)
	}

	if tok == nil {
		return nil, fmt.Errorf(
			"tokensource: no token file at %s (run the provider's external login flow first)", tokenPath)
	}

	expired := !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now())
	logger.Info("loaded saved token",
		slog.String("path", tokenPath),
		slog.Time("expiry", tok.Expiry),
		slog.Bool("expired", expired),
	)

	cfg := *oauthCfg
	cfg.OnTokenChange = func(refreshed *oauth2.Token) {
		logger.Info("token refreshed by oauth2 library",
			slog.String("path", tokenPath),
			slog.Time("new_expiry", refreshed.Expiry),
		)

		if err := tokenfile.Save(tokenPath, refreshed, meta); err != nil {
			logger.Warn("failed to persist refreshed token",
				slog.String("path", tokenPath),
				slog.String("error", err.Error()),
			)

			return
		}

		logger.Info("persisted refreshed token to disk", slog.String("path", tokenPath))
	}

	br := &bridge{src: cfg.TokenSource(ctx, tok), cfg: &cfg, logger: logger}

	watchForExternalUpdates(ctx, tokenPath, br, logger)

	return br, nil
}

// bridge adapts oauth2.TokenSource to provider.TokenSource. src is
// replaced wholesale (under mu) when the watcher in watch.go detects the
// token file changed outside this process.
type bridge struct {
	mu     sync.Mutex
	src    oauth2.TokenSource
	cfg    *oauth2.Config
	logger *slog.Logger
}

func (b *bridge) Token() (string, error) {
	b.mu.Lock()
	src := b.src
	b.mu.Unlock()

	t, err := src.Token()
	if err != nil {
		b.logger.Warn("token acquisition failed", slog.String("error", err.Error()))
		return "", fmt.Errorf("tokensource: obtaining token: %w", err)
	}

	return t.AccessToken, nil
}

// reload replaces the underlying oauth2.TokenSource with one wrapping tok,
// called after the watcher observes an externally-rewritten token file.
func (b *bridge) reload(tok *oauth2.Token) {
	b.mu.Lock()
	b.src = b.cfg.TokenSource(context.Background(), tok)
	b.mu.Unlock()
}
