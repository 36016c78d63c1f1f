// Package random isolates the randomness behind synthetic identifiers and
// simulated outcomes so that callers can pin them in tests.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

// Source supplies random bytes for identifiers and floats for simulated outcomes.
type Source interface {
	Read(p []byte) (int, error)
	Float64() float64
}

type cryptoSource struct{}

// NewCryptoSource returns a Source backed by crypto/rand.
func NewCryptoSource() Source {
	return cryptoSource{}
}

func (cryptoSource) Read(p []byte) (int, error) {
	return crand.Read(p)
}

func (cryptoSource) Float64() float64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return rand.Float64()
	}
	return float64(binary.LittleEndian.Uint64(b[:])>>11) / (1 << 53)
}

// Seeded is a deterministic Source. It is safe for concurrent use.
type Seeded struct {
	mu  sync.Mutex
	gen *rand.ChaCha8
	rnd *rand.Rand
}

// NewSeeded returns a deterministic Source derived from seed.
func NewSeeded(seed int64) *Seeded {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], uint64(seed))
	gen := rand.NewChaCha8(key)
	return &Seeded{gen: gen, rnd: rand.New(gen)}
}

func (s *Seeded) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen.Read(p)
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rnd.Float64()
}

// Fixed returns the same float for every draw and reads bytes from Bytes.
// Tests use it to force a verification outcome.
type Fixed struct {
	Value float64
	Bytes Source
}

func (f Fixed) Read(p []byte) (int, error) {
	if f.Bytes == nil {
		return crand.Read(p)
	}
	return f.Bytes.Read(p)
}

func (f Fixed) Float64() float64 {
	return f.Value
}
