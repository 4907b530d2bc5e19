// Package entropy provides the random sources the game draws from.
// A fixed seed makes a game reproducible; seed 0 draws one from crypto/rand.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"log/slog"
	mrand "math/rand"
)

// NewSource returns a deterministic generator for the seed. A zero seed is
// replaced by a fresh one from crypto/rand.
func NewSource(seed int64) *mrand.Rand {
	if seed == 0 {
		seed = CryptoSeed()
		slog.Debug("random seed drawn", "seed", seed)
	}
	return mrand.New(mrand.NewSource(seed))
}

// CryptoSeed returns a non-zero seed from crypto/rand.
func CryptoSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		return 1
	}
	seed := int64(binary.LittleEndian.Uint64(buf[:]) >> 1)
	if seed == 0 {
		seed = 1
	}
	return seed
}
