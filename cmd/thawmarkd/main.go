package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"thawmark/internal/config"
	"thawmark/internal/daemon"
	"thawmark/internal/logging"
	"thawmark/internal/manifest"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := manifest.Open(cfg)
	if err != nil {
		logger.Error("open manifest store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	d, err := daemon.New(cfg, store, logger)
	if err != nil {
		logger.Error("create daemon", "error", err)
		os.Exit(1)
	}
	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", "error", err)
		os.Exit(1)
	}
	defer d.Stop()

	<-ctx.Done()
	logger.Info("thawmarkd shutting down")
}
