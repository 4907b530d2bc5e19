package engine

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

// ErrNoRoom is returned when the map is too small for the requested civilizations.
var ErrNoRoom = errors.New("map too small for civilizations")

// Setup describes a new game.
type Setup struct {
	Gen           world.GenConfig
	Civilizations []string // The first one is the player
}

// NewGame generates a map, founds a capital for every civilization and hands
// out the starting units. The barbarians always come second.
func NewGame(s Setup, rs *rules.Ruleset, rng Random, auto Automation) (*Game, error) {
	if len(s.Civilizations) == 0 {
		return nil, fmt.Errorf("new game: no civilizations")
	}

	g := &Game{TileMap: world.Generate(s.Gen, rs)}
	for i, name := range s.Civilizations {
		if name == BarbarianName {
			return nil, fmt.Errorf("new game: %q is reserved", name)
		}
		g.Civilizations = append(g.Civilizations, civ.New(name, false))
		if i == 0 {
			g.Civilizations = append(g.Civilizations, civ.New(BarbarianName, true))
		}
	}
	g.SetTransients(rs, rng, auto)

	capitals, err := placeCapitals(g.TileMap, len(s.Civilizations), rng)
	if err != nil {
		return nil, err
	}
	for i, name := range s.Civilizations {
		if err := g.found(g.CivByName(name), capitals[i]); err != nil {
			return nil, err
		}
	}

	slog.Info("new game",
		"radius", s.Gen.Radius,
		"tiles", g.TileMap.TileCount(),
		"civilizations", len(g.Civilizations),
		"player", g.PlayerCiv().Name,
	)
	return g, nil
}

// found builds a capital: its ring of territory gets roads and the starting
// units are placed around it.
func (g *Game) found(c *civ.Civilization, at world.HexCoord) error {
	c.Cities = append(c.Cities, civ.City{Name: c.Name, Position: at})
	for _, t := range g.TileMap.TilesInDisc(at, 1) {
		t.Owner = c.Name
		t.Infrastructure = world.InfraRoad
	}
	for _, name := range g.rules.StartingUnits {
		def, _ := g.rules.Unit(name)
		if _, err := g.TileMap.PlaceUnitNearTile(at, world.NewUnit(def, c.Name)); err != nil {
			return fmt.Errorf("found %s: %w", c.Name, err)
		}
	}
	c.SciencePerTurn = len(c.Cities) * g.rules.SciencePerCity
	return nil
}

// placeCapitals picks n capital sites. It starts with a generous spacing and
// relaxes it until every civilization fits.
func placeCapitals(m *world.Map, n int, rng Random) ([]world.HexCoord, error) {
	var candidates []world.HexCoord
	for _, t := range m.All() {
		// Keep the capital's territory on the map.
		if world.Distance(world.HexCoord{}, t.Position) < m.Radius {
			candidates = append(candidates, t.Position)
		}
	}
	for i := len(candidates) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}

	for spacing := max(m.Radius, 3); spacing >= 3; spacing-- {
		var chosen []world.HexCoord
		for _, c := range candidates {
			if len(chosen) == n {
				break
			}
			ok := true
			for _, other := range chosen {
				if world.Distance(c, other) < spacing {
					ok = false
					break
				}
			}
			if ok {
				chosen = append(chosen, c)
			}
		}
		if len(chosen) == n {
			return chosen, nil
		}
	}
	return nil, fmt.Errorf("%w: %d civilizations on radius %d", ErrNoRoom, n, m.Radius)
}
