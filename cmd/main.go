package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/tuncerburak97/vitrin/internal/config"
	"github.com/tuncerburak97/vitrin/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Logger = logger.New(cfg.Log, os.Stderr)

	srv, err := newServer(cfg, &log.Logger, os.Stdout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize server")
	}

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Info().Str("addr", addr).Str("mode", cfg.Mode).Msg("Starting server")
		if err := srv.app.Listen(addr); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	if err := srv.app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	// Flushes queued request records.
	if err := srv.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close resources")
	}
}
