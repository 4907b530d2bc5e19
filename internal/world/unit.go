package world

import (
	"github.com/google/uuid"

	"github.com/talgya/hexciv/internal/rules"
)

// UnitKind selects which occupant slot of a tile a unit uses.
type UnitKind uint8

const (
	UnitMilitary UnitKind = iota
	UnitCivilian
)

// KindFromRules maps a rules unit kind onto a slot kind.
func KindFromRules(kind string) UnitKind {
	if kind == rules.KindCivilian {
		return UnitCivilian
	}
	return UnitMilitary
}

// Unit is a movable agent standing on a tile.
type Unit struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`  // Rules unit identifier
	Owner           string   `json:"owner"` // Civilization name
	Kind            UnitKind `json:"kind"`
	Position        HexCoord `json:"position"`
	CurrentMovement float64  `json:"current_movement"`
}

// NewUnit creates a unit from its rules definition with full movement.
// The unit is not on the map until placed.
func NewUnit(def rules.UnitDef, owner string) *Unit {
	return &Unit{
		ID:              uuid.NewString(),
		Name:            def.Name,
		Owner:           owner,
		Kind:            KindFromRules(def.Kind),
		CurrentMovement: float64(def.Movement),
	}
}

// IsMilitary reports whether the unit occupies the military slot.
func (u *Unit) IsMilitary() bool {
	return u.Kind == UnitMilitary
}

func (u *Unit) clone() *Unit {
	c := *u
	return &c
}
