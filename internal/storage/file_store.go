package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

// FileStore keeps one snapshot per save key as a JSON file under dir.
type FileStore struct {
	path string
	log  *slog.Logger

	mu sync.Mutex
}

func NewFileStore(dir, key string, logger *slog.Logger) (*FileStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: filepath.Join(dir, key+".json"), log: logger}, nil
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(_ context.Context) (game.GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return game.NewGameState(nil, nil), nil
	}
	if err != nil {
		return game.GameState{}, fmt.Errorf("read save: %w", err)
	}
	return Decode(raw, s.log), nil
}

// Save writes the snapshot atomically.
func (s *FileStore) Save(_ context.Context, st game.GameState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := Encode(st)
	if err != nil {
		return fmt.Errorf("encode save: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write save: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace save: %w", err)
	}
	return nil
}
