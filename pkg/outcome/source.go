package outcome

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the randomness a Table draws from. *rand.Rand from math/rand/v2
// satisfies it but is not safe for concurrent use; wrap shared instances in
// a LockedSource or use GlobalSource.
type Source interface {
	// IntN returns a uniform int in [0, n). n > 0.
	IntN(n int) int
	// Float64 returns a uniform float64 in [0, 1).
	Float64() float64
}

// NewSource returns a PCG-backed generator. A zero seed is replaced by the
// current time.
func NewSource(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// GlobalSource draws from the process-wide math/rand/v2 generator, which is
// safe for concurrent use.
type GlobalSource struct{}

func (GlobalSource) IntN(n int) int   { return rand.IntN(n) }
func (GlobalSource) Float64() float64 { return rand.Float64() }

// LockedSource serializes access to a Source shared between goroutines.
type LockedSource struct {
	mu  sync.Mutex
	src Source
}

func NewLockedSource(src Source) *LockedSource {
	return &LockedSource{src: src}
}

func (l *LockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *LockedSource) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Float64()
}
