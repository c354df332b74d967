package game

import (
	mathrand "math/rand"
	"sync"
	"time"
)

// Source is the single entry point for every stochastic draw in the engine.
type Source interface {
	// Float64 returns a uniform value in [0,1).
	Float64() float64
	// Intn returns a uniform value in [0,n).
	Intn(n int) int
}

type lockedSource struct {
	mu   sync.Mutex
	rand *mathrand.Rand
}

// NewSource seeds a goroutine-safe source; seed 0 seeds from the clock.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &lockedSource{rand: mathrand.New(mathrand.NewSource(seed))}
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Float64()
}

func (s *lockedSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rand.Intn(n)
}

// normalish maps a uniform draw in [0,1) to [-1,1).
func normalish(seed float64) float64 {
	return seed + seed - 1
}

func shuffle(src Source, n int, swap func(i, j int)) {
	for i := n - 1; i > 0; i-- {
		j := src.Intn(i + 1)
		swap(i, j)
	}
}
