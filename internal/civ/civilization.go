// Package civ models a civilization: its cities, research, diplomacy and the
// units it owns on the world map.
package civ

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sort"

	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

// ErrUnknownTechnology is returned when a technology is not in the rules table.
var ErrUnknownTechnology = errors.New("unknown technology")

// Color tags a notification for display.
type Color string

const (
	ColorRed   Color = "red"
	ColorBlue  Color = "blue"
	ColorWhite Color = "white"
)

// Notification is a message for the player, optionally pinned to a tile.
type Notification struct {
	Text     string          `json:"text"`
	Location *world.HexCoord `json:"location,omitempty"`
	Color    Color           `json:"color"`
}

// Clone copies the notification, including its location.
func (n Notification) Clone() Notification {
	if n.Location != nil {
		loc := *n.Location
		n.Location = &loc
	}
	return n
}

// Game is what a civilization needs from the game it belongs to.
type Game interface {
	Notify(from *Civilization, n Notification)
	CivByName(name string) *Civilization
}

// City is a settlement owned by a civilization.
type City struct {
	Name     string         `json:"name"`
	Position world.HexCoord `json:"position"`
}

// Civilization is one player, AI or barbarian faction.
type Civilization struct {
	Name           string          `json:"name"`
	Barbarian      bool            `json:"barbarian,omitempty"`
	Tech           TechManager     `json:"tech"`
	Cities         []City          `json:"cities"`
	AtWar          map[string]bool `json:"at_war,omitempty"` // Civilization names
	SciencePerTurn int             `json:"science_per_turn"`

	tileMap *world.Map
	rules   *rules.Ruleset
	game    Game
}

// New creates a civilization with nothing researched.
func New(name string, barbarian bool) *Civilization {
	return &Civilization{
		Name:      name,
		Barbarian: barbarian,
		Tech:      newTechManager(),
		AtWar:     make(map[string]bool),
	}
}

// SetTransients wires the back-references that are not serialized.
func (c *Civilization) SetTransients(m *world.Map, rs *rules.Ruleset, g Game) {
	c.tileMap = m
	c.rules = rs
	c.game = g
	if c.AtWar == nil {
		c.AtWar = make(map[string]bool)
	}
	c.Tech.setTransients()
}

// Map returns the map this civilization plays on.
func (c *Civilization) Map() *world.Map {
	return c.tileMap
}

// IsBarbarian reports whether this is the barbarian faction.
func (c *Civilization) IsBarbarian() bool {
	return c.Barbarian
}

// IsDefeated reports whether the civilization has neither cities nor units left.
func (c *Civilization) IsDefeated() bool {
	return len(c.Cities) == 0 && len(c.Units()) == 0
}

// IsAtWarWith reports whether the two civilizations are hostile. Barbarians are
// at war with everyone.
func (c *Civilization) IsAtWarWith(other *Civilization) bool {
	if other == nil || other == c || other.Name == c.Name {
		return false
	}
	if c.Barbarian || other.Barbarian {
		return true
	}
	return c.AtWar[other.Name]
}

// IsEnemy is IsAtWarWith for a civilization known only by name.
func (c *Civilization) IsEnemy(name string) bool {
	if c.game == nil {
		return false
	}
	return c.IsAtWarWith(c.game.CivByName(name))
}

// DeclareWar puts both civilizations at war with each other.
func (c *Civilization) DeclareWar(other *Civilization) {
	c.AtWar[other.Name] = true
	other.AtWar[c.Name] = true
}

// MakePeace ends a war on both sides.
func (c *Civilization) MakePeace(other *Civilization) {
	delete(c.AtWar, other.Name)
	delete(other.AtWar, c.Name)
}

// Units returns the units this civilization owns, in map order.
func (c *Civilization) Units() []*world.Unit {
	var units []*world.Unit
	for _, u := range c.tileMap.Units() {
		if u.Owner == c.Name {
			units = append(units, u)
		}
	}
	return units
}

// OwnedTiles returns the tiles inside this civilization's territory.
func (c *Civilization) OwnedTiles() []*world.Tile {
	var tiles []*world.Tile
	for _, t := range c.tileMap.All() {
		if t.Owner == c.Name {
			tiles = append(tiles, t)
		}
	}
	return tiles
}

// ViewableTiles returns every tile seen by a unit, a city or the territory of
// this civilization, without duplicates and sorted by position.
func (c *Civilization) ViewableTiles() []*world.Tile {
	seen := make(map[*world.Tile]bool)
	add := func(tiles []*world.Tile) {
		for _, t := range tiles {
			seen[t] = true
		}
	}

	for _, u := range c.Units() {
		sight := 1
		if def, ok := c.rules.Unit(u.Name); ok {
			sight = def.Sight
		}
		add(c.tileMap.ViewableTiles(u.Position, sight))
	}
	for _, city := range c.Cities {
		add(c.tileMap.ViewableTiles(city.Position, c.rules.CitySight))
	}
	for _, t := range c.OwnedTiles() {
		add(c.tileMap.TilesInDisc(t.Position, 1))
	}

	tiles := make([]*world.Tile, 0, len(seen))
	for t := range seen {
		tiles = append(tiles, t)
	}
	world.SortTiles(tiles)
	return tiles
}

// Capabilities returns the movement abilities unlocked by research.
func (c *Civilization) Capabilities() world.Capabilities {
	var caps world.Capabilities
	for _, name := range c.Tech.Researched {
		if def, ok := c.rules.Technology(name); ok && def.FastMovement {
			caps.FastMovement = true
		}
	}
	return caps
}

// AddNotification sends a message to the game's notification list.
func (c *Civilization) AddNotification(text string, location *world.HexCoord, color Color) {
	n := Notification{Text: text, Location: location, Color: color}
	if c.game == nil {
		slog.Debug("notification dropped", "civ", c.Name, "text", text)
		return
	}
	c.game.Notify(c, n.Clone())
}

// StartTurn restores every unit's movement and recomputes science output.
func (c *Civilization) StartTurn() {
	for _, u := range c.Units() {
		if def, ok := c.rules.Unit(u.Name); ok {
			u.CurrentMovement = float64(def.Movement)
		}
	}
	c.SciencePerTurn = len(c.Cities) * c.rules.SciencePerCity
}

// EndTurn applies this turn's science to the current research.
func (c *Civilization) EndTurn() {
	done, ok := c.Tech.addScience(c.rules, c.SciencePerTurn)
	if !ok {
		return
	}
	slog.Debug("research completed", "civ", c.Name, "technology", done)
	if !c.Barbarian {
		c.AddNotification(fmt.Sprintf("Research of %s has completed!", done), nil, ColorBlue)
	}
}

// HasPendingResearch reports whether anything is queued for research.
func (c *Civilization) HasPendingResearch() bool {
	return len(c.Tech.Queue) > 0
}

// IsResearched reports whether the technology is known.
func (c *Civilization) IsResearched(name string) bool {
	return c.Tech.isResearched(name)
}

// CanBeResearched reports whether every prerequisite of the technology is known.
func (c *Civilization) CanBeResearched(name string) bool {
	def, ok := c.rules.Technology(name)
	if !ok {
		return false
	}
	for _, p := range def.Prerequisites {
		if !c.Tech.isResearched(p) {
			return false
		}
	}
	return true
}

// ResearchableTechnologies returns the technologies that are not yet known and
// whose prerequisites are, in rules table order.
func (c *Civilization) ResearchableTechnologies() []rules.TechnologyDef {
	var out []rules.TechnologyDef
	for _, def := range c.rules.Technologies {
		if !c.IsResearched(def.Name) && c.CanBeResearched(def.Name) {
			out = append(out, def)
		}
	}
	return out
}

// EnqueueResearch appends a technology to the research queue. Known or already
// queued technologies are ignored.
func (c *Civilization) EnqueueResearch(name string) error {
	if _, ok := c.rules.Technology(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTechnology, name)
	}
	if c.IsResearched(name) || slices.Contains(c.Tech.Queue, name) {
		return nil
	}
	c.Tech.Queue = append(c.Tech.Queue, name)
	return nil
}

// Clone deep-copies the civilization. Back-references are left unset; the
// owner of the clone wires them with SetTransients.
func (c *Civilization) Clone() *Civilization {
	n := &Civilization{
		Name:           c.Name,
		Barbarian:      c.Barbarian,
		Tech:           c.Tech.clone(),
		Cities:         slices.Clone(c.Cities),
		AtWar:          make(map[string]bool, len(c.AtWar)),
		SciencePerTurn: c.SciencePerTurn,
	}
	for k, v := range c.AtWar {
		n.AtWar[k] = v
	}
	return n
}

// Enemies returns the names of the civilizations this one is formally at war
// with, sorted.
func (c *Civilization) Enemies() []string {
	names := make([]string, 0, len(c.AtWar))
	for name, war := range c.AtWar {
		if war {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

func (c *Civilization) String() string {
	return fmt.Sprintf("Civilization(%s, cities=%d, techs=%d)", c.Name, len(c.Cities), len(c.Tech.Researched))
}
