package tokensource

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/tonimelisma/photoframe/internal/tokenfile"
)

// watchForExternalUpdates watches tokenPath's containing directory (not
// the file itself — editors and login tools typically replace the file
// via a rename, which fsnotify only sees as an event on the directory)
// and reloads br.src whenever tokenPath is rewritten. Runs until ctx is
// done. A watcher that fails to start only logs a warning: the bridge
// still works, it just won't notice an external re-login without a
// process restart.
func watchForExternalUpdates(ctx context.Context, tokenPath string, br *bridge, logger *slog.Logger) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("tokensource: starting token file watcher failed, external re-login requires a restart",
			slog.String("error", err.Error()))

		return
	}

	dir := filepath.Dir(tokenPath)
	if err := watcher.Add(dir); err != nil {
		logger.Warn("tokensource: watching token directory failed, external re-login requires a restart",
			slog.String("dir", dir), slog.String("error", err.Error()))

		_ = watcher.Close()

		return
	}

	go runWatchLoop(ctx, watcher, tokenPath, br, logger)
}

func runWatchLoop(ctx context.Context, watcher *fsnotify.Watcher, tokenPath string, br *bridge, logger *slog.Logger) {
	defer watcher.Close()

	target := filepath.Clean(tokenPath)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(ev.Name) != target {
				continue
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			reloadFromDisk(tokenPath, br, logger)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			logger.Warn("tokensource: file watcher error", slog.String("error", err.Error()))
		}
	}
}

func reloadFromDisk(tokenPath string, br *bridge, logger *slog.Logger) {
	tok, _, err := tokenfile.Load(tokenPath)
	if err != nil {
		logger.Warn("tokensource: reloading token file after change failed",
			slog.String("path", tokenPath), slog.String("error", err.Error()))

		return
	}

	if tok == nil {
		return
	}

	br.reload(tok)

	logger.Info("tokensource: reloaded token file after external change",
		slog.String("path", tokenPath), slog.Time("new_expiry", tok.Expiry))
}
