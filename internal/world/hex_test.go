package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDistance_SymmetricAndZero(t *testing.T) {
	coords := Disc(HexCoord{Q: 1, R: -2}, 4)
	for _, a := range coords {
		assert.Equal(t, 0, Distance(a, a))
		for _, b := range coords {
			assert.Equal(t, Distance(a, b), Distance(b, a), "%v %v", a, b)
		}
	}
}

func TestDistance_Known(t *testing.T) {
	assert.Equal(t, 5, Distance(HexCoord{}, HexCoord{Q: 0, R: 5}))
	assert.Equal(t, 3, Distance(HexCoord{Q: -1, R: -1}, HexCoord{Q: 2, R: -2}))
	assert.Equal(t, 1, Distance(HexCoord{}, HexCoord{Q: -1, R: 1}))
}

func TestRing_SizeAndDistance(t *testing.T) {
	origin := HexCoord{Q: 3, R: -1}
	assert.Equal(t, []HexCoord{origin}, Ring(origin, 0))
	assert.Empty(t, Ring(origin, -1))

	for d := 1; d <= 6; d++ {
		ring := Ring(origin, d)
		assert.Len(t, ring, 6*d)
		for _, c := range ring {
			assert.Equal(t, d, Distance(origin, c))
		}
	}
}

func TestDisc_IsUnionOfDisjointRings(t *testing.T) {
	origin := HexCoord{Q: -2, R: 4}
	for d := 0; d <= 6; d++ {
		disc := Disc(origin, d)

		seen := make(map[HexCoord]bool)
		for _, c := range disc {
			require.False(t, seen[c], "duplicate %v in disc %d", c, d)
			seen[c] = true
		}

		var union []HexCoord
		for k := 0; k <= d; k++ {
			union = append(union, Ring(origin, k)...)
		}
		assert.ElementsMatch(t, union, disc)
		assert.Len(t, disc, 1+3*d*(d+1))
	}
}

func TestNeighbors_AreAdjacent(t *testing.T) {
	c := HexCoord{Q: 2, R: 2}
	for _, n := range c.Neighbors() {
		assert.Equal(t, 1, Distance(c, n))
	}
	assert.ElementsMatch(t, Ring(c, 1), c.Neighbors())
}
