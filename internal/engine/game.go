// Package engine holds the game state and advances it one turn at a time.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

// BarbarianName is the name of the barbarian civilization.
const BarbarianName = "Barbarians"

// BarbarianSpawnInterval is how often, in turns, a barbarian unit appears.
const BarbarianSpawnInterval = 10

// Random is the source of randomness the game draws from. *rand.Rand satisfies it.
type Random interface {
	Intn(n int) int
}

// Automation moves the units of computer-controlled civilizations.
type Automation interface {
	AutomateCivMoves(c *civ.Civilization)
}

// Game is the complete state of one game.
type Game struct {
	Turns         int                 `json:"turns"`
	Civilizations []*civ.Civilization `json:"civilizations"` // 0 = player, 1 = barbarians
	Notifications []civ.Notification  `json:"notifications"`
	TileMap       *world.Map          `json:"-"`

	civIndex   map[string]*civ.Civilization
	rules      *rules.Ruleset
	rng        Random
	automation Automation
}

// SetTransients wires every non-serialized reference: tile back-references,
// civilization back-references and the civilization index.
func (g *Game) SetTransients(rs *rules.Ruleset, rng Random, auto Automation) {
	g.rules = rs
	g.rng = rng
	g.automation = auto
	g.TileMap.SetTransients(rs)
	g.civIndex = make(map[string]*civ.Civilization, len(g.Civilizations))
	for _, c := range g.Civilizations {
		g.civIndex[c.Name] = c
		c.SetTransients(g.TileMap, rs, g)
	}
}

// Rules returns the ruleset the game is played with.
func (g *Game) Rules() *rules.Ruleset {
	return g.rules
}

// PlayerCiv returns the human player's civilization.
func (g *Game) PlayerCiv() *civ.Civilization {
	return g.Civilizations[0]
}

// BarbarianCiv returns the barbarian civilization.
func (g *Game) BarbarianCiv() *civ.Civilization {
	return g.Civilizations[1]
}

// CivByName returns the civilization with the given name, or nil.
func (g *Game) CivByName(name string) *civ.Civilization {
	return g.civIndex[name]
}

// Notify records a notification. Only the player's notifications are kept.
func (g *Game) Notify(from *civ.Civilization, n civ.Notification) {
	if from != g.PlayerCiv() {
		return
	}
	g.Notifications = append(g.Notifications, n)
}

// NextTurn advances the game by one turn. The only error it returns comes
// from placing a barbarian unit when no tile near the chosen one is free.
func (g *Game) NextTurn() error {
	g.Notifications = g.Notifications[:0]
	player := g.PlayerCiv()

	for _, c := range g.Civilizations {
		if !c.HasPendingResearch() {
			g.pickResearch(c)
		}
	}
	for _, c := range g.Civilizations {
		c.EndTurn()
	}

	for _, c := range g.Civilizations {
		if c == player || (c.IsDefeated() && !c.IsBarbarian()) {
			continue
		}
		c.StartTurn()
		if g.automation != nil {
			g.automation.AutomateCivMoves(c)
		}
	}

	if g.Turns%BarbarianSpawnInterval == 0 {
		if err := g.PlaceBarbarianUnit(nil); err != nil {
			return fmt.Errorf("turn %d: %w", g.Turns, err)
		}
	}

	player.StartTurn()
	g.warnOfEnemies(player)

	g.Turns++
	slog.Info("turn complete",
		"turn", g.Turns,
		"civilizations", len(g.Civilizations),
		"units", len(g.TileMap.Units()),
		"notifications", len(g.Notifications),
	)
	return nil
}

// PickResearch returns the cheapest technology the civilization can research
// next. Ties go to the technology listed first in the rules.
func PickResearch(c *civ.Civilization) (string, bool) {
	var best *rules.TechnologyDef
	options := c.ResearchableTechnologies()
	for i := range options {
		if best == nil || options[i].Cost < best.Cost {
			best = &options[i]
		}
	}
	if best == nil {
		return "", false
	}
	return best.Name, true
}

func (g *Game) pickResearch(c *civ.Civilization) {
	name, ok := PickResearch(c)
	if !ok {
		slog.Debug("nothing left to research", "civ", c.Name)
		return
	}
	if err := c.EnqueueResearch(name); err != nil {
		slog.Warn("enqueue research", "civ", c.Name, "technology", name, "error", err)
	}
}

// warnOfEnemies notifies the player of hostile military units standing in or
// next to its territory.
func (g *Game) warnOfEnemies(player *civ.Civilization) {
	for _, t := range player.ViewableTiles() {
		enemy := t.MilitaryUnit
		if enemy == nil || enemy.Owner == player.Name {
			continue
		}
		if !player.IsAtWarWith(g.CivByName(enemy.Owner)) {
			continue
		}

		where := ""
		if t.Owner == player.Name {
			where = "in"
		} else {
			for _, n := range t.Neighbors() {
				if n.Owner == player.Name {
					where = "near"
					break
				}
			}
		}
		if where == "" {
			continue
		}

		pos := t.Position
		player.AddNotification(fmt.Sprintf("An enemy %s was spotted %s our territory", enemy.Name, where), &pos, civ.ColorRed)
	}
}

// PlaceBarbarianUnit puts a barbarian land unit on or near tile. With a nil
// tile a spot is drawn at random from the empty tiles no other civilization can
// see; when there is none nothing is placed.
func (g *Game) PlaceBarbarianUnit(tile *world.Tile) error {
	if tile == nil {
		seen := make(map[*world.Tile]bool)
		for _, c := range g.Civilizations {
			if c.IsBarbarian() {
				continue
			}
			for _, t := range c.ViewableTiles() {
				seen[t] = true
			}
		}

		var candidates []*world.Tile
		for _, t := range g.TileMap.All() {
			if !seen[t] && !t.IsOccupied() {
				candidates = append(candidates, t)
			}
		}
		if len(candidates) == 0 {
			slog.Debug("no hidden tile for barbarians", "turn", g.Turns)
			return nil
		}
		tile = candidates[g.rng.Intn(len(candidates))]
	}

	def, ok := g.rules.Unit(g.rules.DefaultLandUnit)
	if !ok {
		return fmt.Errorf("default land unit %q not in rules", g.rules.DefaultLandUnit)
	}
	barbs := g.BarbarianCiv()
	placed, err := g.TileMap.PlaceUnitOnFreeTile(tile.Position, world.NewUnit(def, barbs.Name))
	if err != nil {
		return err
	}
	slog.Debug("barbarian unit placed", "unit", def.Name, "at", placed.Position)
	return nil
}

// Clone deep-copies the game. Values are copied first; the copy's tile,
// civilization and index references are then wired to the copy itself.
// The random source and the automation are not state and stay shared: drawing
// from the clone advances the original's random stream too.
func (g *Game) Clone() *Game {
	c := &Game{
		Turns:         g.Turns,
		TileMap:       g.TileMap.Clone(),
		Civilizations: make([]*civ.Civilization, 0, len(g.Civilizations)),
		Notifications: make([]civ.Notification, 0, len(g.Notifications)),
	}
	for _, civInfo := range g.Civilizations {
		c.Civilizations = append(c.Civilizations, civInfo.Clone())
	}
	for _, n := range g.Notifications {
		c.Notifications = append(c.Notifications, n.Clone())
	}
	c.SetTransients(g.rules, g.rng, g.automation)
	return c
}

// Summary is a compact view of the game for logs and the API.
type Summary struct {
	Turns         int    `json:"turns"`
	Player        string `json:"player"`
	Civilizations int    `json:"civilizations"`
	Tiles         int    `json:"tiles"`
	Units         int    `json:"units"`
	Notifications int    `json:"notifications"`
}

// Summarize returns the current summary.
func (g *Game) Summarize() Summary {
	return Summary{
		Turns:         g.Turns,
		Player:        g.PlayerCiv().Name,
		Civilizations: len(g.Civilizations),
		Tiles:         g.TileMap.TileCount(),
		Units:         len(g.TileMap.Units()),
		Notifications: len(g.Notifications),
	}
}
