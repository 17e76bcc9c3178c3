package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/unipulse/unipulse-bot/internal/bootstrap"
	"github.com/unipulse/unipulse-bot/internal/pkg/logger"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to configuration file")
	flag.Parse()

	app, err := bootstrap.New(*configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Startup failed")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Server exited with error")
		os.Exit(1)
	}
}
