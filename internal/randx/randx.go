// Package randx provides a seedable random source that is safe to share
// between probe workers.
package randx

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness used for backoff jitter and User-Agent selection.
type Source interface {
	// Between returns a duration uniformly distributed in [lo, hi].
	Between(lo, hi time.Duration) time.Duration
	// IntN returns an int in [0, n).
	IntN(n int) int
}

type lockedSource struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Source seeded with seed. The same seed replays the same
// sequence of draws.
func New(seed uint64) Source {
	return &lockedSource{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewUnseeded returns a Source seeded from the runtime's random state.
func NewUnseeded() Source {
	return New(rand.Uint64())
}

func (s *lockedSource) Between(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + time.Duration(s.rnd.Int64N(int64(hi-lo)+1))
}

func (s *lockedSource) IntN(n int) int {
	if n <= 1 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.IntN(n)
}
