package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/photoframe/internal/dispatcher"
	"github.com/tonimelisma/photoframe/internal/engine"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the cache and sync engine and block until shutdown",
		Long: `Builds the catalog, provider, cache engine, sync controller, and
dispatcher from the resolved configuration, then runs until interrupted.

Outbound display messages (DisplayPhoto, UpdateStatus, ConnectionStatus,
ErrorMsg) are logged here; a real host display surface would instead read
them from engine.Out() and render them.`,
		RunE: runRun,
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	ctx := shutdownContext(cmd.Context(), cc.Logger)

	eng, err := engine.New(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}

	go logOutbound(ctx, eng.Out(), cc.Logger)

	return eng.Run(ctx)
}

// logOutbound drains the engine's outbound channel and logs each message
// until ctx is done. Stands in for a real display surface, which would
// instead render DisplayPhoto payloads and react to ConnectionStatus.
func logOutbound(ctx context.Context, out <-chan dispatcher.Message, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-out:
			if !ok {
				return
			}

			logOneMessage(msg, logger)
		}
	}
}

func logOneMessage(msg dispatcher.Message, logger *slog.Logger) {
	switch m := msg.(type) {
	case dispatcher.DisplayPhoto:
		logger.Info("display photo", slog.String("id", m.ID), slog.String("filename", m.Filename))
	case dispatcher.UpdateStatus:
		logger.Info("status update", slog.String("text", m.Text))
	case dispatcher.ConnectionStatus:
		logger.Info("connection status", slog.String("status", string(m.Status)), slog.String("message", m.Message))
	case dispatcher.ErrorMsg:
		logger.Error("engine error", slog.String("message", m.Message), slog.String("details", m.Details))
	default:
		logger.Warn("unrecognized outbound message type")
	}
}
