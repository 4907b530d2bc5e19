package automation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

type civs map[string]*civ.Civilization

func (civs) Notify(*civ.Civilization, civ.Notification) {}

func (c civs) CivByName(name string) *civ.Civilization { return c[name] }

type fixture struct {
	m     *world.Map
	civs  civs
	rome  *civ.Civilization
	barbs *civ.Civilization
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rs := rules.Default()
	m := world.NewMap(6, rs)
	for _, c := range world.Disc(world.HexCoord{}, 6) {
		m.Set(&world.Tile{Position: c, Terrain: "Plains"})
	}
	m.SetTransients(rs)

	f := &fixture{m: m, civs: civs{}}
	f.rome = civ.New("Rome", false)
	f.barbs = civ.New("Barbarians", true)
	for _, c := range []*civ.Civilization{f.rome, f.barbs} {
		c.SetTransients(m, rs, f.civs)
		f.civs[c.Name] = c
	}
	return f
}

func (f *fixture) unit(t *testing.T, name, owner string, at world.HexCoord) *world.Unit {
	t.Helper()
	def, ok := f.m.Rules().Unit(name)
	require.True(t, ok)
	u := world.NewUnit(def, owner)
	tile, err := f.m.PlaceUnitNearTile(at, u)
	require.NoError(t, err)
	require.Equal(t, at, tile.Position)
	return u
}

func TestAutomateCivMoves_ApproachesVisibleEnemy(t *testing.T) {
	f := newFixture(t)
	scout := f.unit(t, "Scout", "Rome", world.HexCoord{})
	enemy := world.HexCoord{Q: 3}
	f.unit(t, "Warrior", "Barbarians", enemy)

	New(rand.New(rand.NewSource(1))).AutomateCivMoves(f.rome)

	assert.Equal(t, 1, world.Distance(scout.Position, enemy))
	assert.Zero(t, scout.CurrentMovement)
}

func TestAutomateCivMoves_WandersWithoutEnemies(t *testing.T) {
	f := newFixture(t)
	w := f.unit(t, "Warrior", "Rome", world.HexCoord{})

	New(rand.New(rand.NewSource(1))).AutomateCivMoves(f.rome)

	assert.NotEqual(t, world.HexCoord{}, w.Position)
	assert.LessOrEqual(t, world.Distance(world.HexCoord{}, w.Position), 2)
	assert.Less(t, w.CurrentMovement, 2.0)
	assert.Same(t, w, f.m.Get(w.Position).MilitaryUnit)
	assert.Nil(t, f.m.Get(world.HexCoord{}).MilitaryUnit)
}

func TestAutomateCivMoves_CiviliansAndSpentUnitsStay(t *testing.T) {
	f := newFixture(t)
	worker := f.unit(t, "Worker", "Rome", world.HexCoord{})
	tired := f.unit(t, "Warrior", "Rome", world.HexCoord{Q: 2})
	tired.CurrentMovement = 0

	New(rand.New(rand.NewSource(1))).AutomateCivMoves(f.rome)

	assert.Equal(t, world.HexCoord{}, worker.Position)
	assert.Equal(t, world.HexCoord{Q: 2}, tired.Position)
}

func TestAutomateCivMoves_IgnoresFriendlyUnits(t *testing.T) {
	f := newFixture(t)
	greece := civ.New("Greece", false)
	greece.SetTransients(f.m, f.m.Rules(), f.civs)
	f.civs["Greece"] = greece

	f.unit(t, "Warrior", "Greece", world.HexCoord{Q: 2})
	target, ok := nearestEnemy(f.rome, f.unit(t, "Scout", "Rome", world.HexCoord{}))
	assert.False(t, ok, "unexpected target %v", target)

	f.unit(t, "Warrior", "Barbarians", world.HexCoord{R: -2})
	target, ok = nearestEnemy(f.rome, f.rome.Units()[0])
	require.True(t, ok)
	assert.Equal(t, world.HexCoord{R: -2}, target)
}
