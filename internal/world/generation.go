// World generation using layered simplex noise.
// Generates elevation, rainfall, and temperature fields, then derives terrain.
package world

import (
	"math"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/hexciv/internal/entropy"
	"github.com/talgya/hexciv/internal/rules"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Radius  int     // Hex grid radius
	Seed    int64   // Random seed (0 = random)
	HillLvl float64 // Elevation threshold for hills (0.0–1.0)
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Radius:  12,
		Seed:    0,
		HillLvl: 0.68,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Radius:  5,
		Seed:    42,
		HillLvl: 0.7,
	}
}

// Generate creates a complete map for the given radius. Every tile's
// back-reference is wired before it returns.
func Generate(cfg GenConfig, rs *rules.Ruleset) *Map {
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.CryptoSeed()
	}

	// Three noise generators for independent layers.
	elevNoise := opensimplex.NewNormalized(seed)
	rainNoise := opensimplex.NewNormalized(seed + 1)
	tempNoise := opensimplex.NewNormalized(seed + 2)

	m := NewMap(cfg.Radius, rs)

	for _, coord := range Disc(HexCoord{}, cfg.Radius) {
		// Hex axial → cartesian: x = q + r*0.5, y = r * sqrt(3)/2
		x := float64(coord.Q) + float64(coord.R)*0.5
		y := float64(coord.R) * math.Sqrt(3.0) / 2.0

		elev := octaveNoise(elevNoise, x, y, 4, 0.12, 0.5)
		rain := octaveNoise(rainNoise, x, y, 3, 0.09, 0.5)
		temp := octaveNoise(tempNoise, x, y, 3, 0.07, 0.5)

		// Colder toward the poles of the disc.
		if cfg.Radius > 0 {
			temp = temp*0.7 + (1.0-math.Abs(y)/float64(cfg.Radius))*0.3
		}

		terrain := terrainFor(rs, deriveTerrain(elev, rain, temp, cfg))
		tile := &Tile{
			Position: coord,
			Terrain:  terrain,
		}
		if def, ok := rs.Terrain(terrain); ok && def.Elevated {
			tile.Elevation = ElevationHill
		}
		m.Set(tile)
	}

	m.SetTransients(rs)
	return m
}

// deriveTerrain determines terrain from environmental parameters.
func deriveTerrain(elev, rain, temp float64, cfg GenConfig) string {
	switch {
	case elev > cfg.HillLvl:
		return "Hill"
	case temp < 0.25:
		return "Tundra"
	case rain < 0.25 && temp > 0.5:
		return "Desert"
	case rain > 0.75 && elev < 0.35:
		return "Marsh"
	case rain > 0.6 && temp > 0.6:
		return "Jungle"
	case rain > 0.5:
		return "Forest"
	case temp > 0.55:
		return "Plains"
	default:
		return "Grassland"
	}
}

// terrainFor falls back to the first terrain of the ruleset when a custom
// ruleset lacks the derived terrain.
func terrainFor(rs *rules.Ruleset, name string) string {
	if _, ok := rs.Terrain(name); ok {
		return name
	}
	return rs.Terrains[0].Name
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TerrainCounts returns a summary of terrain distribution.
func TerrainCounts(m *Map) map[string]int {
	counts := make(map[string]int)
	for _, t := range m.Tiles {
		counts[t.Terrain]++
	}
	return counts
}
