package world

// ViewableTiles returns the tiles visible from position with the given sight radius.
//
// Adjacent tiles are always visible. Standing on elevated ground adds one to the
// radius. Further out, rings are processed in increasing distance and each ring in
// walk order: a tile becomes visible when an already visible neighbor stands no
// higher than the tile itself. A tile accepted earlier in the same ring counts.
// Higher ground therefore hides what lies behind it.
func (m *Map) ViewableTiles(position HexCoord, sight int) []*Tile {
	origin := m.Get(position)
	visible := m.TilesInDisc(position, 1)
	seen := make(map[*Tile]bool, len(visible))
	for _, t := range visible {
		seen[t] = true
	}

	radius := sight
	if origin.Elevation == ElevationHill {
		radius++
	}

	for d := 2; d <= radius; d++ {
		for _, t := range m.TilesInRing(position, d) {
			for _, n := range t.Neighbors() {
				if seen[n] && n.Elevation <= t.Elevation {
					seen[t] = true
					visible = append(visible, t)
					break
				}
			}
		}
	}
	return visible
}
