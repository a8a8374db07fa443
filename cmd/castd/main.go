// castd runs the spell cast simulation: one partition per configured map and
// a websocket endpoint for cast requests and cast events.
//
// Usage:
//
//	go run ./cmd/castd -config data/castcore.yaml
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/castcore/internal/config"
	"github.com/lawnchairsociety/castcore/internal/content"
	"github.com/lawnchairsociety/castcore/internal/database"
	"github.com/lawnchairsociety/castcore/internal/logger"
	"github.com/lawnchairsociety/castcore/internal/server"
)

func main() {
	configFile := flag.String("config", "data/castcore.yaml", "Path to server config YAML file")
	loggingConfig := flag.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	listen := flag.String("listen", "", "Override the websocket listen address")
	seed := flag.Int64("seed", 0, "Random seed for hit and value rolls (default: from config, then the clock)")
	flag.Parse()

	// Initialize logger first (before any logging)
	logConfig, _ := logger.LoadConfig(*loggingConfig)
	if err := logger.Initialize(logConfig); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger.Info("Starting castd")

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		logger.Warning("Failed to load server config, using defaults", "path", *configFile, "error", err)
	}
	if *listen != "" {
		cfg.WebSocket.Listen = *listen
	}
	if *seed != 0 {
		cfg.Casting.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := loadContent(ctx, cfg.Content)
	if err != nil {
		log.Fatalf("Failed to load content: %v", err)
	}
	logger.Info("Content loaded",
		"source", cfg.Content.Source,
		"spells", store.Spells.Len(),
		"creatures", store.Creatures(),
		"items", store.Items())

	srv, err := server.New(cfg, store)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	logger.Info("castd running", "maps", cfg.Partition.Maps, "tick", cfg.Partition.Tick())
	logger.Info("Press Ctrl+C to shutdown")
	if err := srv.Run(ctx); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

// loadContent reads templates from YAML files or from a content database.
func loadContent(ctx context.Context, cc config.ContentConfig) (*content.Store, error) {
	if cc.Source == "" || cc.Source == "yaml" {
		return content.LoadYAML(cc.SpellsFile, cc.CreaturesFile, cc.ItemsFile)
	}

	dbCfg, err := database.FromContent(cc)
	if err != nil {
		return nil, err
	}
	db, err := database.OpenWithConfig(dbCfg)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.LoadContent(ctx)
}
