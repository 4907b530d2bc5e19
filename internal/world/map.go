package world

import (
	"errors"
	"fmt"
	"sort"

	"github.com/talgya/hexciv/internal/rules"
)

// ErrNoFreeTile is returned when no tile near a requested position can hold a unit.
var ErrNoFreeTile = errors.New("no free tile near position")

// Map is the tile store: it owns every tile of one game, keyed by coordinate.
// Tile identity is fixed after creation; tile contents change during play.
type Map struct {
	Tiles  map[HexCoord]*Tile `json:"-"` // All tiles keyed by coordinate
	Radius int                `json:"radius"`

	rules        *rules.Ruleset
	maxPathTurns int // Turn layers a path search may expand; 0 means MaxPathTurns
}

// NewMap creates an empty map with the given radius.
// A hex grid of radius R contains hexes where max(|q|, |r|, |s|) <= R.
func NewMap(radius int, rs *rules.Ruleset) *Map {
	return &Map{
		Tiles:  make(map[HexCoord]*Tile),
		Radius: radius,
		rules:  rs,
	}
}

// Rules returns the ruleset the map resolves terrain against.
func (m *Map) Rules() *rules.Ruleset {
	return m.rules
}

// Set places a tile at its coordinate and wires its back-reference.
func (m *Map) Set(t *Tile) {
	t.tileMap = m
	m.Tiles[t.Position] = t
}

// SetTransients re-wires every non-serialized reference after a bulk copy or load.
func (m *Map) SetTransients(rs *rules.Ruleset) {
	m.rules = rs
	for _, t := range m.Tiles {
		t.tileMap = m
	}
}

// Contains reports whether a tile exists at the coordinate.
func (m *Map) Contains(c HexCoord) bool {
	_, ok := m.Tiles[c]
	return ok
}

// Get returns the tile at the coordinate. The coordinate must exist; asking for
// an absent one is a programming error and panics.
func (m *Map) Get(c HexCoord) *Tile {
	t, ok := m.Tiles[c]
	if !ok {
		panic(fmt.Sprintf("world: no tile at %v", c))
	}
	return t
}

// TilesInDisc returns the existing tiles within distance d of origin, in ring order.
func (m *Map) TilesInDisc(origin HexCoord, d int) []*Tile {
	return m.existing(Disc(origin, d))
}

// TilesInRing returns the existing tiles at exactly distance d of origin.
func (m *Map) TilesInRing(origin HexCoord, d int) []*Tile {
	return m.existing(Ring(origin, d))
}

func (m *Map) existing(coords []HexCoord) []*Tile {
	tiles := make([]*Tile, 0, len(coords))
	for _, c := range coords {
		if t, ok := m.Tiles[c]; ok {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// All returns every tile, sorted by q then r so callers drawing random picks
// from the list stay reproducible.
func (m *Map) All() []*Tile {
	tiles := make([]*Tile, 0, len(m.Tiles))
	for _, t := range m.Tiles {
		tiles = append(tiles, t)
	}
	SortTiles(tiles)
	return tiles
}

// SortTiles orders tiles by q then r.
func SortTiles(tiles []*Tile) {
	sort.Slice(tiles, func(i, j int) bool {
		a, b := tiles[i].Position, tiles[j].Position
		if a.Q != b.Q {
			return a.Q < b.Q
		}
		return a.R < b.R
	})
}

// TileCount returns the total number of tiles in the map.
func (m *Map) TileCount() int {
	return len(m.Tiles)
}

// Units returns every unit on the map in tile order.
func (m *Map) Units() []*Unit {
	var units []*Unit
	for _, t := range m.All() {
		units = append(units, t.Units()...)
	}
	return units
}

// PlaceUnitNearTile puts the unit on the first tile within distance 2 of position,
// scanning ring by ring, whose slot for the unit's kind is free.
func (m *Map) PlaceUnitNearTile(position HexCoord, u *Unit) (*Tile, error) {
	for _, t := range m.TilesInDisc(position, 2) {
		if t.CanHold(u.Kind) {
			m.putUnit(t, u)
			return t, nil
		}
	}
	return nil, fmt.Errorf("place %s for %s at %v: %w", u.Name, u.Owner, position, ErrNoFreeTile)
}

// PlaceUnitOnFreeTile is like PlaceUnitNearTile but only accepts tiles with no
// occupant at all.
func (m *Map) PlaceUnitOnFreeTile(position HexCoord, u *Unit) (*Tile, error) {
	for _, t := range m.TilesInDisc(position, 2) {
		if !t.IsOccupied() {
			m.putUnit(t, u)
			return t, nil
		}
	}
	return nil, fmt.Errorf("place %s for %s at %v: %w", u.Name, u.Owner, position, ErrNoFreeTile)
}

// RemoveUnit takes the unit off its tile.
func (m *Map) RemoveUnit(u *Unit) {
	t, ok := m.Tiles[u.Position]
	if !ok {
		return
	}
	if slot := t.slot(u.Kind); *slot == u {
		*slot = nil
	}
}

func (m *Map) putUnit(t *Tile, u *Unit) {
	*t.slot(u.Kind) = u
	u.Position = t.Position
}

// Clone deep-copies the map. Tiles and units are copied first, then every
// back-reference is wired to the copy, so the two maps share nothing mutable.
func (m *Map) Clone() *Map {
	c := NewMap(m.Radius, m.rules)
	c.maxPathTurns = m.maxPathTurns
	for coord, t := range m.Tiles {
		nt := *t
		if t.CivilianUnit != nil {
			nt.CivilianUnit = t.CivilianUnit.clone()
		}
		if t.MilitaryUnit != nil {
			nt.MilitaryUnit = t.MilitaryUnit.clone()
		}
		c.Tiles[coord] = &nt
	}
	c.SetTransients(m.rules)
	return c
}

// String returns a summary of the map.
func (m *Map) String() string {
	return fmt.Sprintf("Map(radius=%d, tiles=%d)", m.Radius, m.TileCount())
}
