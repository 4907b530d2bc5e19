package persistence

import (
	"errors"
	"fmt"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/engine"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

// ErrCorrupt is returned when saved state cannot describe a valid game.
var ErrCorrupt = errors.New("corrupt game state")

// Version is the current save format version.
const Version = 1

// Header identifies a saved game without decoding all of it.
type Header struct {
	Version int    `json:"version"`
	Turns   int    `json:"turns"`
	Radius  int    `json:"radius"`
	Player  string `json:"player"`
}

// GameV1 is the serializable form of a game. References between objects are
// by value (positions and names); Import re-links them.
type GameV1 struct {
	Header        Header
	Tiles         []TileV1
	Civilizations []*civ.Civilization
	Notifications []civ.Notification
}

// TileV1 is one tile with its occupants.
type TileV1 struct {
	Q, R           int
	Terrain        string
	Elevation      world.Elevation
	Infrastructure world.Infrastructure
	Owner          string
	Civilian       *world.Unit
	Military       *world.Unit
}

// Export copies the game into its serializable form.
func Export(g *engine.Game) GameV1 {
	snap := GameV1{
		Header: Header{
			Version: Version,
			Turns:   g.Turns,
			Radius:  g.TileMap.Radius,
			Player:  g.PlayerCiv().Name,
		},
	}
	for _, t := range g.TileMap.All() {
		tv := TileV1{
			Q:              t.Position.Q,
			R:              t.Position.R,
			Terrain:        t.Terrain,
			Elevation:      t.Elevation,
			Infrastructure: t.Infrastructure,
			Owner:          t.Owner,
		}
		if t.CivilianUnit != nil {
			u := *t.CivilianUnit
			tv.Civilian = &u
		}
		if t.MilitaryUnit != nil {
			u := *t.MilitaryUnit
			tv.Military = &u
		}
		snap.Tiles = append(snap.Tiles, tv)
	}
	for _, c := range g.Civilizations {
		snap.Civilizations = append(snap.Civilizations, c.Clone())
	}
	for _, n := range g.Notifications {
		snap.Notifications = append(snap.Notifications, n.Clone())
	}
	return snap
}

// Import rebuilds a game from its serializable form. Every object is created
// first; back-references are wired once the whole game exists.
func Import(snap GameV1, rs *rules.Ruleset, rng engine.Random, auto engine.Automation) (*engine.Game, error) {
	if snap.Header.Version != Version {
		return nil, fmt.Errorf("%w: version %d, want %d", ErrCorrupt, snap.Header.Version, Version)
	}
	if len(snap.Civilizations) < 2 {
		return nil, fmt.Errorf("%w: %d civilizations", ErrCorrupt, len(snap.Civilizations))
	}
	if !snap.Civilizations[1].Barbarian {
		return nil, fmt.Errorf("%w: second civilization %q is not the barbarians", ErrCorrupt, snap.Civilizations[1].Name)
	}

	m := world.NewMap(snap.Header.Radius, rs)
	for _, tv := range snap.Tiles {
		pos := world.HexCoord{Q: tv.Q, R: tv.R}
		if m.Contains(pos) {
			return nil, fmt.Errorf("%w: duplicate tile %v", ErrCorrupt, pos)
		}
		if _, ok := rs.Terrain(tv.Terrain); !ok {
			return nil, fmt.Errorf("%w: tile %v has unknown terrain %q", ErrCorrupt, pos, tv.Terrain)
		}
		t := &world.Tile{
			Position:       pos,
			Terrain:        tv.Terrain,
			Elevation:      tv.Elevation,
			Infrastructure: tv.Infrastructure,
			Owner:          tv.Owner,
		}
		if tv.Civilian != nil {
			u := *tv.Civilian
			u.Position, u.Kind = pos, world.UnitCivilian
			t.CivilianUnit = &u
		}
		if tv.Military != nil {
			u := *tv.Military
			u.Position, u.Kind = pos, world.UnitMilitary
			t.MilitaryUnit = &u
		}
		m.Tiles[pos] = t
	}

	g := &engine.Game{
		Turns:   snap.Header.Turns,
		TileMap: m,
	}
	for _, c := range snap.Civilizations {
		g.Civilizations = append(g.Civilizations, c.Clone())
	}
	for _, n := range snap.Notifications {
		g.Notifications = append(g.Notifications, n.Clone())
	}
	g.SetTransients(rs, rng, auto)
	return g, nil
}
