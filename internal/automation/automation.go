// Package automation moves the units of computer-controlled civilizations.
//
// Military units close in on the nearest visible enemy and otherwise wander to
// a random tile they can reach this turn. Civilian units stay put.
package automation

import (
	"errors"
	"log/slog"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/world"
)

// Random is the source used to pick wander targets. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// NextTurn automates one civilization's moves per call.
type NextTurn struct {
	rng Random
}

// New creates an automation drawing from rng.
func New(rng Random) *NextTurn {
	return &NextTurn{rng: rng}
}

// AutomateCivMoves moves every military unit of c.
func (a *NextTurn) AutomateCivMoves(c *civ.Civilization) {
	m := c.Map()
	caps := c.Capabilities()
	for _, u := range c.Units() {
		if !u.IsMilitary() || u.CurrentMovement <= 0 {
			continue
		}
		if target, ok := nearestEnemy(c, u); ok {
			to, err := m.HeadTowards(u, target, caps)
			if err == nil {
				slog.Debug("unit advancing", "civ", c.Name, "unit", u.Name, "to", to.Position, "target", target)
				continue
			}
			if !errors.Is(err, world.ErrNoPath) {
				slog.Warn("head towards enemy", "civ", c.Name, "unit", u.Name, "error", err)
			}
		}
		a.wander(m, u, caps)
	}
}

// nearestEnemy returns the closest tile, among those c can see, holding a unit
// of a civilization c is at war with.
func nearestEnemy(c *civ.Civilization, u *world.Unit) (world.HexCoord, bool) {
	var (
		best  world.HexCoord
		found bool
		dist  int
	)
	for _, t := range c.ViewableTiles() {
		for _, other := range t.Units() {
			if other.Owner == c.Name {
				continue
			}
			if !c.IsEnemy(other.Owner) {
				continue
			}
			d := world.Distance(u.Position, t.Position)
			if !found || d < dist {
				best, dist, found = t.Position, d, true
			}
		}
	}
	return best, found
}

// wander moves u to a random free tile it can reach this turn.
func (a *NextTurn) wander(m *world.Map, u *world.Unit, caps world.Capabilities) {
	var options []*world.Tile
	for t := range m.Reachable(u.Position, u.CurrentMovement, caps) {
		if t.Position != u.Position && !t.IsOccupied() {
			options = append(options, t)
		}
	}
	if len(options) == 0 {
		return
	}
	world.SortTiles(options)

	// Occupied tiles may block the route; try others until one works.
	for len(options) > 0 {
		i := a.rng.Intn(len(options))
		err := m.MoveUnit(u, options[i].Position, caps)
		if err == nil {
			return
		}
		options = append(options[:i], options[i+1:]...)
	}
	slog.Debug("unit has nowhere to go", "unit", u.Name, "owner", u.Owner, "at", u.Position)
}
