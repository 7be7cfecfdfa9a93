package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/config"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/logging"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/server"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/signaling"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/store"
	"github.com/deviprasad-dev/Nocturne-night-social-patform/internal/version"
)

func main() {
	// Load local .env (dev only)
	_ = godotenv.Load()

	cfg := config.LoadServer()
	logger := logging.New(cfg.Env, cfg.LogLevel)
	logger.Info("config.loaded",
		"version", version.Version,
		"env", cfg.Env,
		"addr", cfg.HTTPAddr,
		"store", cfg.Store.Driver,
		"send_buffer", cfg.SendBuffer,
	)

	// Cancel on SIGINT/SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// History sink behind a non-blocking writer
	sink, err := store.Open(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store.open", "driver", cfg.Store.Driver, "err", err)
		os.Exit(1)
	}
	defer sink.Close()
	history := store.NewWriter(sink, cfg.Store.QueueSize, logger)

	// Hub event loop
	hub := signaling.NewHub(logger, history)
	go hub.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.NewRouter(cfg, logger, hub, sink),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server.listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.crash", "err", err)
			cancel()
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()
	logger.Info("server.shutdown.start")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	_ = srv.Shutdown(shutdownCtx)

	// Hub closes every websocket once ctx is done; then flush history.
	<-hub.Done()
	history.Close()

	logger.Info("server.shutdown.complete")
}
