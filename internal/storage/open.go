package storage

import (
	"context"
	"log/slog"

	"github.com/Soujiro0/market-pulse-sub000/internal/config"
	"github.com/Soujiro0/market-pulse-sub000/internal/db"
	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

// Open picks Postgres when a database url is configured and the data dir
// otherwise. The returned close func is never nil.
func Open(ctx context.Context, cfg config.GameConfig, logger *slog.Logger) (game.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		fs, err := NewFileStore(cfg.DataDir, cfg.SaveKey, logger)
		if err != nil {
			return nil, func() {}, err
		}
		return fs, func() {}, nil
	}
	pool, err := db.Connect(ctx, cfg.DatabaseURL, db.DefaultPoolOptions())
	if err != nil {
		return nil, func() {}, err
	}
	ps, err := NewPGStore(ctx, pool, cfg.SnapshotTable, cfg.SaveKey, logger)
	if err != nil {
		pool.Close()
		return nil, func() {}, err
	}
	return ps, pool.Close, nil
}
