package storage

import (
	"bytes"
	"encoding/json"
	"log/slog"

	"github.com/Soujiro0/market-pulse-sub000/internal/game"
)

// Decode reads a snapshot over the fresh-save defaults so missing fields keep
// their documented values. Malformed data yields a fresh state.
func Decode(raw []byte, logger *slog.Logger) game.GameState {
	if logger == nil {
		logger = slog.Default()
	}
	fresh := game.NewGameState(nil, nil)
	if len(bytes.TrimSpace(raw)) == 0 {
		return fresh
	}
	st := game.NewGameState(nil, nil)
	if err := json.Unmarshal(raw, &st); err != nil {
		logger.Warn("discarding unreadable save", "err", err, "bytes", len(raw))
		return fresh
	}
	st, _ = game.Normalize(st)
	return st
}

func Encode(s game.GameState) ([]byte, error) {
	return json.MarshalIndent(s, "", "  ")
}
