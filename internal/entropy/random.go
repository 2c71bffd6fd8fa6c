// Package entropy isolates every probability draw behind an injectable
// source so tests can supply deterministic sequences and verify exact branch
// selection. Falls back to crypto/rand when no seeded source is wired.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mathrand "math/rand"
	"sync"
)

// Source yields uniform random values for the simulation. Implementations
// need not be safe for concurrent use; the engine is single-writer.
type Source interface {
	// Float returns a value in [0, 1).
	Float() float64
	// Intn returns a value in [0, n). n must be positive.
	Intn(n int) int
}

// seeded is a math/rand-backed source for reproducible runs.
type seeded struct {
	rng *mathrand.Rand
}

// NewSeeded returns a deterministic source for the given seed.
func NewSeeded(seed int64) Source {
	return &seeded{rng: mathrand.New(mathrand.NewSource(seed))}
}

func (s *seeded) Float() float64 { return s.rng.Float64() }
func (s *seeded) Intn(n int) int { return s.rng.Intn(n) }

// crypto is a crypto/rand-backed source. Safe for concurrent use.
type crypto struct{}

// NewCrypto returns a source backed by the operating system's entropy pool.
func NewCrypto() Source { return crypto{} }

func (crypto) Float() float64 { return cryptoRandFloat() }

func (crypto) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(cryptoRandFloat() * float64(n))
}

// cryptoRandFloat generates a uniform float64 in [0, 1) from crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// Should never happen; 0.5 is a safe neutral default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Sequence replays a fixed list of floats, then repeats the final value.
// Intended for tests that pin specific probability branches.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	pos    int
}

// NewSequence returns a source that yields the given values in order.
func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &Sequence{values: values}
}

func (s *Sequence) Float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.pos]
	if s.pos < len(s.values)-1 {
		s.pos++
	}
	return v
}

func (s *Sequence) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	return int(s.Float() * float64(n))
}
