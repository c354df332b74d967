package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Soujiro0/market-pulse-sub000/internal/api"
	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
	"github.com/Soujiro0/market-pulse-sub000/internal/storage"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	store, closeStore, err := storage.Open(ctx, cfg.GameConfig, logger)
	if err != nil {
		logger.Error("storage open failed", "err", err)
		os.Exit(1)
	}
	defer closeStore()

	cat, err := catalog.FromPath(cfg.CatalogPath)
	if err != nil {
		logger.Error("catalog load failed", "path", cfg.CatalogPath, "err", err)
		closeStore()
		os.Exit(1)
	}

	gameSvc, err := game.NewService(ctx, store, logger, game.Options{
		Source:  game.NewSource(cfg.Seed),
		Catalog: &cat,
		Shop:    game.NewShopRotation(cfg.ShopRotation, nil),
	})
	if err != nil {
		logger.Error("session init failed", "err", err)
		closeStore()
		os.Exit(1)
	}

	server := api.New(cfg, logger, gameSvc, nil)
	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("market pulse api listening", "addr", cfg.Addr, "dev_commands", cfg.DevCommands)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "err", err)
		os.Exit(1)
	}
}
