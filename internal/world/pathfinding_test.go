package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReachable_UniformTerrainIsDisc(t *testing.T) {
	m := uniformMap(t, 6)
	got := m.Reachable(HexCoord{}, 3, Capabilities{})

	require.Len(t, got, 37)
	for tile, cost := range got {
		assert.Equal(t, float64(Distance(HexCoord{}, tile.Position)), cost, "%v", tile.Position)
	}
}

func TestReachable_OriginAtZeroAndWithinBudget(t *testing.T) {
	m := uniformMap(t, 5)
	for _, c := range []HexCoord{{Q: 1, R: 0}, {Q: 0, R: 2}, {Q: -2, R: 1}} {
		m.Get(c).Terrain = "Marsh"
	}
	m.Get(HexCoord{Q: -1, R: 0}).Terrain = "Forest"

	for _, budget := range []float64{0, 0.5, 1, 2.5, 4} {
		got := m.Reachable(HexCoord{}, budget, Capabilities{})
		assert.Equal(t, 0.0, got[m.Get(HexCoord{})])
		for tile, cost := range got {
			assert.LessOrEqual(t, cost, budget, "%v budget %v", tile.Position, budget)
		}
	}
}

func TestReachable_ExpensiveTileClampsToBudget(t *testing.T) {
	m := uniformMap(t, 3)
	marsh := m.Get(HexCoord{Q: 1, R: 0})
	marsh.Terrain = "Marsh"

	got := m.Reachable(HexCoord{}, 2, Capabilities{})
	assert.Equal(t, 2.0, got[marsh])
	// Nothing past the marsh is entered through it this turn.
	_, ok := got[m.Get(HexCoord{Q: 3, R: 0})]
	assert.False(t, ok)
}

func TestReachable_RoadsExtendRange(t *testing.T) {
	m := uniformMap(t, 6)
	for q := 0; q <= 6; q++ {
		m.Get(HexCoord{Q: q, R: 0}).Infrastructure = InfraRoad
	}
	got := m.Reachable(HexCoord{}, 2, Capabilities{})
	assert.InDelta(t, 2.0, got[m.Get(HexCoord{Q: 4, R: 0})], 1e-9)

	fast := m.Reachable(HexCoord{}, 2, Capabilities{FastMovement: true})
	_, ok := fast[m.Get(HexCoord{Q: 6, R: 0})]
	assert.True(t, ok)
}

func TestShortestPath_MultiTurnScenario(t *testing.T) {
	m := uniformMap(t, 6)
	path, err := m.ShortestPath(HexCoord{}, HexCoord{Q: 0, R: 5}, 1, 2, Capabilities{})
	require.NoError(t, err)

	require.Len(t, path.Tiles, 5)
	assert.Equal(t, 3, path.Turns)
	assert.Equal(t, HexCoord{Q: 0, R: 5}, path.Tiles[4].Position)
	assertWalk(t, HexCoord{}, path)
}

func TestShortestPath_AvoidsOccupiedTiles(t *testing.T) {
	m := uniformMap(t, 4)
	_, err := m.PlaceUnitNearTile(HexCoord{Q: 0, R: 1}, warrior("Rome"))
	require.NoError(t, err)

	path, err := m.ShortestPath(HexCoord{}, HexCoord{Q: 0, R: 2}, 5, 5, Capabilities{})
	require.NoError(t, err)
	assert.Len(t, path.Tiles, 3)
	assert.Equal(t, 1, path.Turns)
	for _, tile := range path.Tiles {
		assert.NotEqual(t, HexCoord{Q: 0, R: 1}, tile.Position)
	}
	assertWalk(t, HexCoord{}, path)
}

func TestShortestPath_OccupiedDestinationAllowed(t *testing.T) {
	m := uniformMap(t, 4)
	_, err := m.PlaceUnitNearTile(HexCoord{Q: 0, R: 3}, warrior("Barbarians"))
	require.NoError(t, err)

	path, err := m.ShortestPath(HexCoord{}, HexCoord{Q: 0, R: 3}, 2, 2, Capabilities{})
	require.NoError(t, err)
	assert.Len(t, path.Tiles, 3)
	assert.Equal(t, 2, path.Turns)
}

func TestShortestPath_UnreachableTerminates(t *testing.T) {
	m := uniformMap(t, 4)
	target := HexCoord{Q: 2, R: 0}
	for _, n := range target.Neighbors() {
		if m.Contains(n) {
			_, err := m.PlaceUnitNearTile(n, warrior("Rome"))
			require.NoError(t, err)
		}
	}

	_, err := m.ShortestPath(HexCoord{Q: -3, R: 0}, target, 2, 2, Capabilities{})
	assert.ErrorIs(t, err, ErrNoPath)
}

func TestShortestPath_StopsAtTurnBound(t *testing.T) {
	m := uniformMap(t, 4)
	from, to := HexCoord{Q: -4, R: 0}, HexCoord{Q: 4, R: 0}

	// One plains tile per turn: eight turns across the map.
	m.SetMaxPathTurns(3)
	_, err := m.ShortestPath(from, to, 1, 1, Capabilities{})
	require.ErrorIs(t, err, ErrNoPath)
	assert.Contains(t, err.Error(), "exceeds 3 turns")

	m.SetMaxPathTurns(8)
	path, err := m.ShortestPath(from, to, 1, 1, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, 8, path.Turns)
	assert.Len(t, path.Tiles, 8)

	m.SetMaxPathTurns(0)
	assert.Equal(t, MaxPathTurns, m.pathTurnLimit())
}

func TestShortestPath_SameTile(t *testing.T) {
	m := uniformMap(t, 2)
	path, err := m.ShortestPath(HexCoord{}, HexCoord{}, 2, 2, Capabilities{})
	require.NoError(t, err)
	assert.Empty(t, path.Tiles)
}

func TestShortestPath_NoMovementLeftWaitsATurn(t *testing.T) {
	m := uniformMap(t, 4)
	path, err := m.ShortestPath(HexCoord{}, HexCoord{Q: 0, R: 2}, 0, 2, Capabilities{})
	require.NoError(t, err)
	assert.Len(t, path.Tiles, 2)
	assert.Equal(t, 2, path.Turns)
}

func TestRemoveLoops(t *testing.T) {
	m := uniformMap(t, 2)
	a := m.Get(HexCoord{})
	b := m.Get(HexCoord{Q: 1, R: 0})
	c := m.Get(HexCoord{Q: 1, R: -1})
	d := m.Get(HexCoord{Q: 2, R: -1})

	assert.Equal(t, []*Tile{b, d}, removeLoops(a, []*Tile{b, c, b, d}))
	assert.Equal(t, []*Tile{d}, removeLoops(a, []*Tile{b, a, d}))
}

func TestMoveUnit_SpendsMovement(t *testing.T) {
	m := uniformMap(t, 3)
	u := warrior("Rome")
	_, err := m.PlaceUnitNearTile(HexCoord{}, u)
	require.NoError(t, err)

	require.NoError(t, m.MoveUnit(u, HexCoord{Q: 1, R: 0}, Capabilities{}))
	assert.Equal(t, HexCoord{Q: 1, R: 0}, u.Position)
	assert.Equal(t, 1.0, u.CurrentMovement)
	assert.Nil(t, m.Get(HexCoord{}).MilitaryUnit)
	assert.Same(t, u, m.Get(HexCoord{Q: 1, R: 0}).MilitaryUnit)

	err = m.MoveUnit(u, HexCoord{Q: 3, R: 0}, Capabilities{})
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestHeadTowards_StopsAtTurnLimit(t *testing.T) {
	m := uniformMap(t, 6)
	u := warrior("Rome")
	_, err := m.PlaceUnitNearTile(HexCoord{}, u)
	require.NoError(t, err)

	tile, err := m.HeadTowards(u, HexCoord{Q: 0, R: 5}, Capabilities{})
	require.NoError(t, err)
	assert.Equal(t, 2, Distance(HexCoord{}, tile.Position))
	assert.Equal(t, 0.0, u.CurrentMovement)
}

// assertWalk checks the path invariants: adjacent steps, no repeats, no
// occupied tile before the last.
func assertWalk(t *testing.T, origin HexCoord, path Path) {
	t.Helper()
	seen := map[HexCoord]bool{origin: true}
	prev := origin
	for i, tile := range path.Tiles {
		assert.Equal(t, 1, Distance(prev, tile.Position), "step %d", i)
		assert.False(t, seen[tile.Position], "repeat %v", tile.Position)
		if i < len(path.Tiles)-1 {
			assert.False(t, tile.IsOccupied(), "occupied %v", tile.Position)
		}
		seen[tile.Position] = true
		prev = tile.Position
	}
}
