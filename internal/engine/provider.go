package engine

import (
	"context"
	"log/slog"

	"golang.org/x/oauth2"

	"github.com/tonimelisma/photoframe/internal/config"
	"github.com/tonimelisma/photoframe/internal/dispatcher"
	"github.com/tonimelisma/photoframe/internal/provider"
	"github.com/tonimelisma/photoframe/internal/syncctl"
	"github.com/tonimelisma/photoframe/internal/tokensource"
)

// newProvider builds a provider.TokenSource from the on-disk token file
// (the interactive OAuth exchange that produced it is out of scope; see
// the engine's Non-goals) and constructs the configured Provider from it.
func newProvider(ctx context.Context, cfg *config.Config, tokenPath string, logger *slog.Logger) (provider.Provider, error) {
	ts, err := tokensource.FromPath(ctx, tokenPath, &oauth2.Config{}, logger)
	if err != nil {
		return nil, err
	}

	prov, err := provider.New(cfg.Provider.Key, providerSettings(cfg), ts, logger)
	if err != nil {
		return nil, err
	}

	return prov, nil
}

// providerSettings merges the ambient network settings into the
// provider's own settings map, so a provider implementation (e.g.
// graphphotos's download bandwidth limiter) can read them without the
// engine needing to know which providers care about which settings.
// cfg.Provider.Settings wins on key collision, since it is the more
// specific, provider-scoped layer.
func providerSettings(cfg *config.Config) map[string]any {
	merged := map[string]any{
		"download_rate_limit_kbps": cfg.Network.DownloadRateLimitKBps,
		"user_agent":               cfg.Network.UserAgent,
	}

	for k, v := range cfg.Provider.Settings {
		merged[k] = v
	}

	return merged
}

// notifyAdapter bridges syncctl.Notification to the dispatcher's outbound
// ConnectionStatus message, the single sink the host display surface reads
// from alongside DisplayPhoto/UpdateStatus. A StateError notification is
// additionally surfaced as a terminal ErrorMsg.
func notifyAdapter(out chan<- dispatcher.Message, logger *slog.Logger) func(syncctl.Notification) {
	return func(n syncctl.Notification) {
		status := connectionStatusFor(n.State)

		select {
		case out <- dispatcher.ConnectionStatus{Status: status, Message: n.Message}:
		default:
			logger.Warn("engine: outbound channel full, dropping connection status notification")
		}

		if n.State != syncctl.StateError {
			return
		}

		select {
		case out <- dispatcher.ErrorMsg{Message: n.Message}:
		default:
			logger.Warn("engine: outbound channel full, dropping error notification")
		}
	}
}

func connectionStatusFor(s syncctl.State) dispatcher.ConnectionStatusValue {
	switch s {
	case syncctl.StateOnline:
		return dispatcher.ConnectionOnline
	case syncctl.StateOffline:
		return dispatcher.ConnectionOffline
	case syncctl.StateRetrying:
		return dispatcher.ConnectionRetrying
	case syncctl.StateError:
		return dispatcher.ConnectionError
	default:
		return dispatcher.ConnectionInitializing
	}
}
