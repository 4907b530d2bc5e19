package world

import (
	"errors"
	"fmt"
	"sort"
)

// MaxPathTurns is the default bound on the number of turn layers a path search
// may expand.
const MaxPathTurns = 64

// SetMaxPathTurns changes the path search bound for this map. Zero or less
// restores MaxPathTurns.
func (m *Map) SetMaxPathTurns(n int) {
	m.maxPathTurns = max(n, 0)
}

func (m *Map) pathTurnLimit() int {
	if m.maxPathTurns > 0 {
		return m.maxPathTurns
	}
	return MaxPathTurns
}

var (
	// ErrNoPath is returned when the destination cannot be reached at all.
	ErrNoPath = errors.New("no path to destination")
	// ErrUnreachable is returned when a move cannot be completed this turn.
	ErrUnreachable = errors.New("destination not reachable this turn")
)

// reach is the result of one budgeted relaxation from a single origin.
type reach struct {
	origin *Tile
	cost   map[*Tile]float64
	parent map[*Tile]*Tile
}

// relax expands outward from origin in rounds. A tile whose cumulative cost
// reaches the budget is recorded at the budget and not expanded further: the
// unit can enter it but has no movement left. passable, when set, excludes tiles
// from being entered at all.
func (m *Map) relax(origin *Tile, budget float64, caps Capabilities, passable func(*Tile) bool) reach {
	r := reach{
		origin: origin,
		cost:   map[*Tile]float64{origin: 0},
		parent: make(map[*Tile]*Tile),
	}
	if budget <= 0 {
		return r
	}

	frontier := []*Tile{origin}
	for len(frontier) > 0 {
		var next []*Tile
		for _, from := range frontier {
			for _, to := range from.Neighbors() {
				if passable != nil && !passable(to) {
					continue
				}
				total := r.cost[from] + StepCost(from, to, caps)
				if prev, seen := r.cost[to]; seen && prev <= total {
					continue
				}
				if total < budget {
					next = append(next, to)
				} else {
					total = budget
				}
				r.cost[to] = total
				r.parent[to] = from
			}
		}
		frontier = next
	}
	return r
}

// stepsTo returns the tiles walked from the origin (exclusive) to t (inclusive).
func (r reach) stepsTo(t *Tile) []*Tile {
	var steps []*Tile
	for cur := t; cur != r.origin; cur = r.parent[cur] {
		steps = append(steps, cur)
	}
	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps
}

// sorted returns the reached tiles ordered by cost, then position.
func (r reach) sorted() []*Tile {
	tiles := make([]*Tile, 0, len(r.cost))
	for t := range r.cost {
		tiles = append(tiles, t)
	}
	sort.Slice(tiles, func(i, j int) bool {
		ci, cj := r.cost[tiles[i]], r.cost[tiles[j]]
		if ci != cj {
			return ci < cj
		}
		a, b := tiles[i].Position, tiles[j].Position
		if a.Q != b.Q {
			return a.Q < b.Q
		}
		return a.R < b.R
	})
	return tiles
}

// Reachable returns every tile a unit at origin can enter this turn with the given
// movement budget, mapped to the movement spent getting there. The origin is
// always present at cost 0 and no cost exceeds the budget.
func (m *Map) Reachable(origin HexCoord, budget float64, caps Capabilities) map[*Tile]float64 {
	return m.relax(m.Get(origin), budget, caps, nil).cost
}

// Path is a multi-turn route.
type Path struct {
	Tiles []*Tile // Chronological steps, origin excluded, destination included
	Turns int     // Turns needed, counting the current one
}

// ShortestPath finds a route from origin to destination across several turns.
// The first turn uses currentMovement, every later turn fullMovement. Tiles
// holding a unit cannot be crossed; the destination itself may be occupied.
func (m *Map) ShortestPath(origin, destination HexCoord, currentMovement, fullMovement float64, caps Capabilities) (Path, error) {
	start := m.Get(origin)
	dest := m.Get(destination)
	if start == dest {
		return Path{}, nil
	}
	if fullMovement <= 0 {
		return Path{}, fmt.Errorf("%w: no movement", ErrNoPath)
	}

	// Out of movement now: the unit waits and starts fresh next turn.
	waited := 0
	if currentMovement <= 0 {
		currentMovement = fullMovement
		waited = 1
	}

	passable := func(t *Tile) bool {
		return t == dest || !t.IsOccupied()
	}

	// hop records, per discovered tile, the frontier tile of the turn it was
	// first reached in; steps holds the walk from that frontier tile.
	hop := map[*Tile]*Tile{start: nil}
	steps := map[*Tile][]*Tile{}
	frontier := []*Tile{start}

	limit := m.pathTurnLimit()
	for turn := 1; turn <= limit; turn++ {
		budget := fullMovement
		if turn == 1 {
			budget = currentMovement
		}

		var (
			best     *Tile
			bestCost float64
			bestLeg  reach
			next     []*Tile
		)
		for _, from := range frontier {
			r := m.relax(from, budget, caps, passable)
			if c, ok := r.cost[dest]; ok {
				if best == nil || c < bestCost {
					best, bestCost, bestLeg = from, c, r
				}
				continue
			}
			if best != nil {
				continue
			}
			for _, t := range r.sorted() {
				if _, seen := hop[t]; seen {
					continue // A tile found in an earlier turn cannot be reached faster now
				}
				hop[t] = from
				steps[t] = r.stepsTo(t)
				next = append(next, t)
			}
		}

		if best != nil {
			var legs [][]*Tile
			legs = append(legs, bestLeg.stepsTo(dest))
			for cur := best; cur != start; cur = hop[cur] {
				legs = append(legs, steps[cur])
			}
			var tiles []*Tile
			for i := len(legs) - 1; i >= 0; i-- {
				tiles = append(tiles, legs[i]...)
			}
			return Path{Tiles: removeLoops(start, tiles), Turns: turn + waited}, nil
		}

		if len(next) == 0 {
			return Path{}, ErrNoPath
		}
		frontier = next
	}
	return Path{}, fmt.Errorf("%w: exceeds %d turns", ErrNoPath, limit)
}

// removeLoops cuts any detour that returns to a tile already on the walk, so the
// result never visits a tile twice.
func removeLoops(start *Tile, walk []*Tile) []*Tile {
	out := make([]*Tile, 0, len(walk))
	index := map[*Tile]int{start: -1}
	for _, t := range walk {
		if i, seen := index[t]; seen {
			for _, dropped := range out[i+1:] {
				delete(index, dropped)
			}
			out = out[:i+1]
			continue
		}
		index[t] = len(out)
		out = append(out, t)
	}
	return out
}

// MoveUnit moves u onto dest if it can get there this turn, spending the
// movement the trip costs. Occupied tiles cannot be crossed.
func (m *Map) MoveUnit(u *Unit, dest HexCoord, caps Capabilities) error {
	to, ok := m.Tiles[dest]
	if !ok {
		return fmt.Errorf("%w: %v is off the map", ErrUnreachable, dest)
	}
	if to.Position == u.Position {
		return nil
	}
	if !to.CanHold(u.Kind) {
		return fmt.Errorf("%w: %v is occupied", ErrUnreachable, dest)
	}

	r := m.relax(m.Get(u.Position), u.CurrentMovement, caps, func(t *Tile) bool {
		return t == to || !t.IsOccupied()
	})
	cost, ok := r.cost[to]
	if !ok {
		return fmt.Errorf("%w: %v from %v with %.2f movement", ErrUnreachable, dest, u.Position, u.CurrentMovement)
	}

	m.RemoveUnit(u)
	m.putUnit(to, u)
	u.CurrentMovement = max(u.CurrentMovement-cost, 0)
	return nil
}

// HeadTowards moves u as far along its shortest path to dest as this turn's
// movement allows and returns the tile it ends on.
func (m *Map) HeadTowards(u *Unit, dest HexCoord, caps Capabilities) (*Tile, error) {
	def, ok := m.rules.Unit(u.Name)
	if !ok {
		return nil, fmt.Errorf("unknown unit %q", u.Name)
	}
	path, err := m.ShortestPath(u.Position, dest, u.CurrentMovement, float64(def.Movement), caps)
	if err != nil {
		return nil, err
	}

	here := m.Get(u.Position)
	r := m.relax(here, u.CurrentMovement, caps, func(t *Tile) bool {
		return t.Position == dest || !t.IsOccupied()
	})
	for i := len(path.Tiles) - 1; i >= 0; i-- {
		t := path.Tiles[i]
		if _, inReach := r.cost[t]; !inReach || !t.CanHold(u.Kind) {
			continue
		}
		if err := m.MoveUnit(u, t.Position, caps); err != nil {
			continue
		}
		return t, nil
	}
	return here, nil
}
