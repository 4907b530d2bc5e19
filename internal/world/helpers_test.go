package world

import (
	"testing"

	"github.com/talgya/hexciv/internal/rules"
)

// uniformMap builds a disc of plains tiles with no infrastructure.
func uniformMap(t *testing.T, radius int) *Map {
	t.Helper()
	m := NewMap(radius, rules.Default())
	for _, c := range Disc(HexCoord{}, radius) {
		m.Set(&Tile{Position: c, Terrain: "Plains"})
	}
	return m
}

func warrior(owner string) *Unit {
	def, _ := rules.Default().Unit("Warrior")
	return NewUnit(def, owner)
}

func worker(owner string) *Unit {
	def, _ := rules.Default().Unit("Worker")
	return NewUnit(def, owner)
}
