package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMap_GetAbsentCoordinatePanics(t *testing.T) {
	m := uniformMap(t, 2)
	assert.True(t, m.Contains(HexCoord{Q: 2, R: 0}))
	assert.False(t, m.Contains(HexCoord{Q: 3, R: 0}))
	assert.Panics(t, func() { m.Get(HexCoord{Q: 3, R: 0}) })
}

func TestMap_TilesInDiscClipsToMap(t *testing.T) {
	m := uniformMap(t, 2)
	assert.Len(t, m.TilesInDisc(HexCoord{}, 2), 19)
	assert.Len(t, m.TilesInDisc(HexCoord{}, 5), 19)

	// A corner tile has only three neighbors inside a radius-2 disc.
	assert.Len(t, m.TilesInRing(HexCoord{Q: 2, R: 0}, 1), 3)
}

func TestMap_AllIsSortedAndComplete(t *testing.T) {
	m := uniformMap(t, 3)
	all := m.All()
	require.Len(t, all, 37)
	for i := 1; i < len(all); i++ {
		a, b := all[i-1].Position, all[i].Position
		assert.True(t, a.Q < b.Q || (a.Q == b.Q && a.R < b.R))
	}
}

func TestMap_BackReferences(t *testing.T) {
	m := uniformMap(t, 1)
	for _, tile := range m.All() {
		assert.Same(t, m, tile.Map())
	}
	assert.Len(t, m.Get(HexCoord{}).Neighbors(), 6)
}

func TestMap_CloneIsIndependent(t *testing.T) {
	m := uniformMap(t, 2)
	u := warrior("Rome")
	_, err := m.PlaceUnitNearTile(HexCoord{}, u)
	require.NoError(t, err)
	m.Get(HexCoord{Q: 1, R: 0}).Owner = "Rome"

	c := m.Clone()
	for _, tile := range c.All() {
		assert.Same(t, c, tile.Map())
	}

	ct := c.Get(HexCoord{})
	require.NotNil(t, ct.MilitaryUnit)
	assert.NotSame(t, u, ct.MilitaryUnit)

	ct.MilitaryUnit.CurrentMovement = 0
	c.Get(HexCoord{Q: 1, R: 0}).Owner = "Babylon"
	c.Get(HexCoord{Q: 0, R: 1}).Infrastructure = InfraRailroad

	assert.Equal(t, 2.0, u.CurrentMovement)
	assert.Equal(t, "Rome", m.Get(HexCoord{Q: 1, R: 0}).Owner)
	assert.Equal(t, InfraNone, m.Get(HexCoord{Q: 0, R: 1}).Infrastructure)

	// And the other way round.
	m.RemoveUnit(u)
	assert.NotNil(t, c.Get(HexCoord{}).MilitaryUnit)
}

func TestMap_PlaceUnitNearTileScansRings(t *testing.T) {
	m := uniformMap(t, 3)
	first := warrior("Rome")
	tile, err := m.PlaceUnitNearTile(HexCoord{}, first)
	require.NoError(t, err)
	assert.Equal(t, HexCoord{}, tile.Position)

	// A civilian shares the tile with the military unit.
	civ := worker("Rome")
	tile, err = m.PlaceUnitNearTile(HexCoord{}, civ)
	require.NoError(t, err)
	assert.Equal(t, HexCoord{}, tile.Position)

	second := warrior("Rome")
	tile, err = m.PlaceUnitNearTile(HexCoord{}, second)
	require.NoError(t, err)
	assert.Equal(t, 1, Distance(HexCoord{}, tile.Position))
	assert.Equal(t, tile.Position, second.Position)
}

func TestMap_PlaceUnitOnFreeTileSkipsAnyOccupant(t *testing.T) {
	m := uniformMap(t, 3)
	_, err := m.PlaceUnitNearTile(HexCoord{}, worker("Rome"))
	require.NoError(t, err)

	tile, err := m.PlaceUnitOnFreeTile(HexCoord{}, warrior("Barbarians"))
	require.NoError(t, err)
	assert.NotEqual(t, HexCoord{}, tile.Position)
}

func TestMap_PlaceUnitFailsWhenCrowded(t *testing.T) {
	m := uniformMap(t, 1)
	for _, tile := range m.All() {
		_, err := m.PlaceUnitNearTile(tile.Position, warrior("Rome"))
		require.NoError(t, err)
	}
	_, err := m.PlaceUnitNearTile(HexCoord{}, warrior("Rome"))
	assert.ErrorIs(t, err, ErrNoFreeTile)
}
