package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/noplanalderson/argus/internal/adapter/external/blocklist"
	"github.com/noplanalderson/argus/internal/config"
)

// One-shot rebuild of the local block-set index from a source list.
// Meant for initial provisioning and for operators who manage the
// schedule outside the API process.
func main() {
	var (
		source    = flag.String("source", "", "block-set source (file path or http(s) URL); defaults to BLOCKLIST_SOURCE_PATH")
		indexPath = flag.String("index", "", "badger index directory; defaults to BLOCKLIST_INDEX_PATH")
		timeout   = flag.Duration("timeout", 10*time.Minute, "rebuild deadline")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := config.SetupLogger(cfg)

	if *source == "" {
		*source = cfg.Blocklist.SourcePath
	}
	if *indexPath == "" {
		*indexPath = cfg.Blocklist.IndexPath
	}

	index, err := blocklist.OpenIndex(*indexPath)
	if err != nil {
		logger.Error("Failed to open block-set index", "path", *indexPath, "error", err)
		os.Exit(1)
	}
	defer index.Close()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	builder := blocklist.NewBuilder(index, *source, logger)
	if err := builder.Rebuild(ctx); err != nil {
		logger.Error("Block-set rebuild failed", "error", err)
		os.Exit(1)
	}

	stats, err := index.Stats()
	if err != nil {
		logger.Error("Failed to read block-set stats", "error", err)
		os.Exit(1)
	}
	logger.Info("Block-set index rebuilt", "entries", stats.Entries, "built_at", stats.BuiltAt)
}
