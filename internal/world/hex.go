// Package world provides the hex grid, tiles, and the spatial algorithms that run on
// them: movement cost, reachability, multi-turn paths, and line of sight.
// Uses axial coordinates (q, r) for the hex grid.
package world

import "fmt"

// HexCoord represents a position on the hex grid using axial coordinates.
// The third cube coordinate s is derived: s = -q - r.
type HexCoord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// S returns the implicit third cube coordinate.
func (h HexCoord) S() int {
	return -h.Q - h.R
}

// Add returns the component-wise sum of two coordinates.
func (h HexCoord) Add(o HexCoord) HexCoord {
	return HexCoord{Q: h.Q + o.Q, R: h.R + o.R}
}

// Scale multiplies both components by k.
func (h HexCoord) Scale(k int) HexCoord {
	return HexCoord{Q: h.Q * k, R: h.R * k}
}

func (h HexCoord) String() string {
	return fmt.Sprintf("(%d,%d)", h.Q, h.R)
}

// HexNeighborDirections defines the six neighbor offsets in axial coordinates.
// Ring walks depend on this order.
var HexNeighborDirections = [6]HexCoord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// Neighbors returns the six adjacent hex coordinates.
func (h HexCoord) Neighbors() [6]HexCoord {
	var result [6]HexCoord
	for i, dir := range HexNeighborDirections {
		result[i] = h.Add(dir)
	}
	return result
}

// Distance returns the hex distance between two coordinates.
func Distance(a, b HexCoord) int {
	dq := abs(a.Q - b.Q)
	dr := abs(a.R - b.R)
	ds := abs(a.S() - b.S())
	// Max of the three absolute differences in cube coordinates.
	return max(dq, dr, ds)
}

// Ring returns every coordinate at exactly distance d from origin.
// Ring(origin, 0) is just the origin. Negative d yields nothing.
func Ring(origin HexCoord, d int) []HexCoord {
	if d < 0 {
		return nil
	}
	if d == 0 {
		return []HexCoord{origin}
	}
	result := make([]HexCoord, 0, 6*d)
	// Start d steps out in direction 4, then walk each side of the hexagon.
	cur := origin.Add(HexNeighborDirections[4].Scale(d))
	for side := 0; side < 6; side++ {
		for step := 0; step < d; step++ {
			result = append(result, cur)
			cur = cur.Add(HexNeighborDirections[side])
		}
	}
	return result
}

// Disc returns every coordinate within distance d of origin, ring by ring
// starting with the origin itself.
func Disc(origin HexCoord, d int) []HexCoord {
	if d < 0 {
		return nil
	}
	result := make([]HexCoord, 0, 1+3*d*(d+1))
	for k := 0; k <= d; k++ {
		result = append(result, Ring(origin, k)...)
	}
	return result
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
