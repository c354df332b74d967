package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

// DB is the subset of *pgxpool.Pool the snapshot store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PGStore keeps snapshots as jsonb rows keyed by save key.
type PGStore struct {
	db    DB
	key   string
	log   *slog.Logger
	table string
}

func NewPGStore(ctx context.Context, db DB, table, key string, logger *slog.Logger) (*PGStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &PGStore{db: db, key: key, log: logger, table: pq.QuoteIdentifier(table)}
	if _, err := db.Exec(ctx, s.schemaSQL()); err != nil {
		return nil, fmt.Errorf("ensure snapshot table: %w", err)
	}
	return s, nil
}

func (s *PGStore) schemaSQL() string {
	return `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		save_key text PRIMARY KEY,
		payload jsonb NOT NULL,
		updated_at timestamptz NOT NULL DEFAULT now()
	)`
}

func (s *PGStore) Load(ctx context.Context) (game.GameState, error) {
	var raw []byte
	err := s.db.QueryRow(ctx, `SELECT payload FROM `+s.table+` WHERE save_key = $1`, s.key).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.NewGameState(nil, nil), nil
	}
	if err != nil {
		return game.GameState{}, fmt.Errorf("load snapshot: %w", err)
	}
	return Decode(raw, s.log), nil
}

func (s *PGStore) Save(ctx context.Context, st game.GameState) error {
	raw, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	_, err = s.db.Exec(ctx, `
		INSERT INTO `+s.table+` (save_key, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (save_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()
	`, s.key, raw)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
