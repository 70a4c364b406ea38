package pipeline

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// MaxSeed is the largest seed the form accepts.
const MaxSeed int64 = 9999999999

// Generator is a deterministic random source seeded once per request.
// Two generators created with the same seed produce the same sequence.
type Generator struct {
	seed int64
	rng  *mrand.Rand
}

// NewGenerator returns a Generator seeded with seed.
func NewGenerator(seed int64) *Generator {
	return &Generator{
		seed: seed,
		rng:  mrand.New(mrand.NewSource(seed)),
	}
}

// Seed returns the seed the generator was created with.
func (g *Generator) Seed() int64 {
	if g == nil {
		return 0
	}
	return g.seed
}

// Rand returns the underlying random source.
func (g *Generator) Rand() *mrand.Rand {
	return g.rng
}

// RandomSeed draws a fresh seed in [0, MaxSeed] from crypto/rand.
func RandomSeed() int64 {
	var buf [8]byte
	// rand.Read never returns an error; it crashes the process instead.
	rand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]) % uint64(MaxSeed+1))
}
