package game

import (
	"context"
	"sync"
	"testing"

	"github.com/Soujiro0/market-pulse-sub000/internal/catalog"
)

// scripted replays a fixed sequence of uniform draws; Intn always answers 0.
type scripted struct {
	floats []float64
	i      int
}

func (s *scripted) Float64() float64 {
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[s.i%len(s.floats)]
	s.i++
	return v
}

func (s *scripted) Intn(n int) int { return 0 }

type memStore struct {
	mu    sync.Mutex
	state GameState
	has   bool
	saves int
}

func (m *memStore) Load(context.Context) (GameState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.has {
		return NewGameState(nil, nil), nil
	}
	return m.state.Clone(), nil
}

func (m *memStore) Save(_ context.Context, s GameState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s.Clone()
	m.has = true
	m.saves++
	return nil
}

func testTemplates() []catalog.AssetTemplate {
	return catalog.Default().Templates
}

func freshState(t *testing.T) GameState {
	t.Helper()
	return NewGameState(NewSource(7), testTemplates())
}

func approx(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}
