// Package entropy provides the seedable random streams used by trials.
// Every trial owns one stream; nothing in the simulation reads global randomness.
// Unseeded runs draw their master seed from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source is the random stream a trial draws from: pairing shuffles, noise
// flips and stochastic strategies. *math/rand.Rand satisfies it.
type Source interface {
	Float64() float64
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

// New returns a deterministic stream for the given seed.
func New(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// Seeds derives n per-trial seeds from a master seed. The i-th seed depends
// only on the master seed and i, never on the order trials are executed.
func Seeds(master int64, n int) []int64 {
	rng := New(master)
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = rng.Int63()
	}
	return seeds
}

// MasterSeed returns seed unchanged when non-zero, otherwise a fresh
// seed from crypto/rand.
func MasterSeed(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return CryptoSeed()
}

// CryptoSeed returns a positive seed read from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1
	}
	n := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if n == 0 {
		return 1
	}
	return n
}
