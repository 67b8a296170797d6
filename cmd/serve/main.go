package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"textheads/internal/bundle"
	"textheads/internal/cfg"
	"textheads/internal/engine"
	"textheads/internal/metrics"
	"textheads/internal/serve"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	_ = godotenv.Load()

	settings, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	outcomes, err := bundle.Discover(settings.ModelsDir)
	if err != nil {
		log.Fatal().Err(err).Msg("model discovery failed")
	}
	bundles := bundle.Loaded(outcomes)

	m := metrics.New()
	m.BundlesLoaded.Set(float64(len(bundles)))

	eng := engine.New(bundles, settings.Thresholds, m)
	server := serve.New(eng, m, settings.Port)

	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown timeout, forcing exit")
	}
}
