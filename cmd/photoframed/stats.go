package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/photoframe/internal/cacheengine"
	"github.com/tonimelisma/photoframe/internal/engine"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print current cache occupancy and health, then exit",
		Long: `Opens the catalog (without starting the sync or dispatch loops) and
reports cached photo count, total size, and consecutive provider failures.`,
		RunE: runStats,
	}
}

func runStats(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	ctx := cmd.Context()

	eng, err := engine.New(ctx, cc.Cfg, cc.Logger)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	defer eng.Catalog().Close()

	stats, err := eng.CacheStats(ctx)
	if err != nil {
		return fmt.Errorf("reading cache stats: %w", err)
	}

	if flagJSON {
		return printStatsJSON(stats)
	}

	printStatsText(stats)

	return nil
}

func printStatsJSON(stats cacheengine.Stats) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}

	return nil
}

func printStatsText(s cacheengine.Stats) {
	fmt.Printf("Cache usage:     %s / %s (%.1f%%)\n", s.TotalSizeHuman(), s.MaxSizeHuman(), s.UsagePercent)
	fmt.Printf("Cached photos:   %d / %d (%.1f%%)\n", s.CachedCount, s.TotalCount, s.CachePercent)

	if s.IsOffline {
		fmt.Printf("Provider:        offline (%d consecutive failures)\n", s.ConsecutiveFailures)
	} else {
		fmt.Println("Provider:        online")
	}
}
