package world

import "fmt"

// Elevation is the height class of a tile, used for sight and occlusion.
type Elevation uint8

const (
	ElevationFlat Elevation = iota
	ElevationHill           // Grants +1 sight and blocks lower tiles behind it
)

// Infrastructure is the transport improvement on a tile.
type Infrastructure uint8

const (
	InfraNone Infrastructure = iota
	InfraRoad
	InfraRailroad
)

func (i Infrastructure) String() string {
	switch i {
	case InfraRoad:
		return "road"
	case InfraRailroad:
		return "railroad"
	default:
		return "none"
	}
}

// Tile is a single hex on the world map. Tiles are created by a Map and never
// exist outside one.
type Tile struct {
	Position       HexCoord       `json:"position"`
	Terrain        string         `json:"terrain"` // Rules terrain identifier
	Elevation      Elevation      `json:"elevation"`
	Infrastructure Infrastructure `json:"infrastructure"`

	// Owner is the name of the civilization whose territory this is; empty if unowned.
	Owner string `json:"owner,omitempty"`

	// Independent occupant slots: a civilian and a military unit may share a tile.
	CivilianUnit *Unit `json:"civilian_unit,omitempty"`
	MilitaryUnit *Unit `json:"military_unit,omitempty"`

	tileMap *Map // Non-owning back-reference, re-wired by Map.SetTransients
}

// Map returns the map this tile belongs to.
func (t *Tile) Map() *Map {
	return t.tileMap
}

// MovementCost returns the intrinsic cost of entering this tile.
func (t *Tile) MovementCost() float64 {
	def, ok := t.tileMap.rules.Terrain(t.Terrain)
	if !ok {
		panic(fmt.Sprintf("world: tile %v has unknown terrain %q", t.Position, t.Terrain))
	}
	return float64(def.MovementCost)
}

// Neighbors returns the existing tiles adjacent to this one.
func (t *Tile) Neighbors() []*Tile {
	return t.tileMap.TilesInRing(t.Position, 1)
}

// IsOccupied reports whether any unit stands on the tile.
func (t *Tile) IsOccupied() bool {
	return t.CivilianUnit != nil || t.MilitaryUnit != nil
}

// Units returns the occupants of the tile, military first.
func (t *Tile) Units() []*Unit {
	var units []*Unit
	if t.MilitaryUnit != nil {
		units = append(units, t.MilitaryUnit)
	}
	if t.CivilianUnit != nil {
		units = append(units, t.CivilianUnit)
	}
	return units
}

// slot returns a pointer to the occupant slot matching the unit kind.
func (t *Tile) slot(kind UnitKind) **Unit {
	if kind == UnitCivilian {
		return &t.CivilianUnit
	}
	return &t.MilitaryUnit
}

// CanHold reports whether a unit of the given kind could stand here.
func (t *Tile) CanHold(kind UnitKind) bool {
	return *t.slot(kind) == nil
}

func (t *Tile) String() string {
	return fmt.Sprintf("%s%v", t.Terrain, t.Position)
}
