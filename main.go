// main.go
//
// Entry point for the paging-log API server.
// Responsibilities:
//   - Loading configuration (.env + environment) and setting up zerolog.
//   - Opening the store selected by STORE_DRIVER (migrations run here).
//   - Serving HTTP until SIGINT/SIGTERM, then closing the store.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/edpaging/paging-log/internal/auth"
	"github.com/edpaging/paging-log/internal/config"
	"github.com/edpaging/paging-log/internal/httpserver"
	"github.com/edpaging/paging-log/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Error().Err(err).Msg("server exited")
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	if cfg.TokenSecret == config.DevSecret {
		log.Warn().Msg("ACCESS_TOKEN_SECRET not set, using development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = log.Logger.WithContext(ctx)

	st, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	srv := httpserver.New(st, auth.NewIssuer(cfg.TokenSecret, cfg.TokenTTL), httpserver.Options{
		ClientOrigin:   cfg.ClientOrigin,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         log.Logger,
	})
	log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("starting paging-log api")
	if err := srv.Start(ctx, cfg.Addr()); err != nil {
		return err
	}
	log.Info().Msg("server stopped")
	return nil
}

func setupLogging(cfg *config.Config) {
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		zerolog.SetGlobalLevel(lvl)
	}
	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
