package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stratolift/internal/config"
	"stratolift/internal/handlers"
	"stratolift/internal/log"
	"stratolift/internal/server"
	"stratolift/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.Component(log.New(cfg.Environment), "mockapi")

	ctx := context.Background()

	blobs := newBlobStore(ctx, cfg, logger)

	handlerSet := handlers.NewHandlerSet(logger, blobs, cfg)
	if err := handlerSet.Seed(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to seed mock data")
	}
	if len(cfg.Mock.Users) == 0 {
		logger.Warn().Msg("no mock.users configured, only registration will work")
	}

	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer)
}

// newBlobStore uses MinIO when an endpoint is configured and falls back to
// process memory otherwise.
func newBlobStore(ctx context.Context, cfg *config.AppConfig, logger zerolog.Logger) storage.BlobStore {
	if cfg.Mock.Storage.Endpoint == "" {
		base := strings.TrimSuffix(cfg.Mock.PublicURL, "/") + "/api/files"
		logger.Info().Str("base_url", base).Msg("uploads kept in memory")
		return storage.NewMemoryStore(base)
	}

	objectStore, err := storage.NewObjectStore(cfg.Mock.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	return objectStore
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
