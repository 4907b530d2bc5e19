// Package rules provides the read-only game rules tables: terrain movement costs,
// technology costs and prerequisites, and unit definitions.
package rules

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRules []byte

// Unit kinds.
const (
	KindMilitary = "military"
	KindCivilian = "civilian"
)

// Ruleset is the complete rules table for one game.
type Ruleset struct {
	DefaultLandUnit string   `yaml:"default_land_unit"`
	StartingUnits   []string `yaml:"starting_units"`
	CitySight       int      `yaml:"city_sight"`
	SciencePerCity  int      `yaml:"science_per_city"`

	Terrains     []TerrainDef    `yaml:"terrains"`
	Technologies []TechnologyDef `yaml:"technologies"`
	Units        []UnitDef       `yaml:"units"`

	terrainIndex map[string]int
	techIndex    map[string]int
	unitIndex    map[string]int
}

// TerrainDef describes a base terrain.
type TerrainDef struct {
	Name         string `yaml:"name"`
	MovementCost int    `yaml:"movement_cost"`
	Elevated     bool   `yaml:"elevated"`
}

// TechnologyDef describes a researchable technology.
type TechnologyDef struct {
	Name          string   `yaml:"name"`
	Cost          int      `yaml:"cost"`
	Prerequisites []string `yaml:"prerequisites"`
	FastMovement  bool     `yaml:"fast_movement"` // Unlocks faster road movement
}

// UnitDef describes a unit type.
type UnitDef struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"` // "military" or "civilian"
	Movement int    `yaml:"movement"`
	Sight    int    `yaml:"sight"`
}

// Default returns the built-in ruleset. It panics if the embedded table is broken,
// which can only happen at development time.
func Default() *Ruleset {
	r, err := Parse(defaultRules)
	if err != nil {
		panic(fmt.Sprintf("rules: embedded rules.yaml: %v", err))
	}
	return r
}

// Load reads a ruleset from a YAML file. An empty path returns the built-in ruleset.
func Load(path string) (*Ruleset, error) {
	if path == "" {
		return Default(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Parse decodes and validates a ruleset.
func Parse(raw []byte) (*Ruleset, error) {
	var r Ruleset
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, err
	}
	if err := r.index(); err != nil {
		return nil, err
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Ruleset) index() error {
	r.terrainIndex = make(map[string]int, len(r.Terrains))
	for i, t := range r.Terrains {
		if _, dup := r.terrainIndex[t.Name]; dup {
			return fmt.Errorf("duplicate terrain %q", t.Name)
		}
		r.terrainIndex[t.Name] = i
	}
	r.techIndex = make(map[string]int, len(r.Technologies))
	for i, t := range r.Technologies {
		if _, dup := r.techIndex[t.Name]; dup {
			return fmt.Errorf("duplicate technology %q", t.Name)
		}
		r.techIndex[t.Name] = i
	}
	r.unitIndex = make(map[string]int, len(r.Units))
	for i, u := range r.Units {
		if _, dup := r.unitIndex[u.Name]; dup {
			return fmt.Errorf("duplicate unit %q", u.Name)
		}
		r.unitIndex[u.Name] = i
	}
	return nil
}

// Validate checks cross references and value ranges.
func (r *Ruleset) Validate() error {
	if len(r.Terrains) == 0 {
		return fmt.Errorf("no terrains defined")
	}
	for _, t := range r.Terrains {
		if t.Name == "" {
			return fmt.Errorf("terrain with empty name")
		}
		if t.MovementCost <= 0 {
			return fmt.Errorf("terrain %q: movement_cost must be positive", t.Name)
		}
	}
	for _, t := range r.Technologies {
		if t.Cost <= 0 {
			return fmt.Errorf("technology %q: cost must be positive", t.Name)
		}
		for _, p := range t.Prerequisites {
			if _, ok := r.techIndex[p]; !ok {
				return fmt.Errorf("technology %q: unknown prerequisite %q", t.Name, p)
			}
		}
	}
	for _, u := range r.Units {
		if u.Kind != KindMilitary && u.Kind != KindCivilian {
			return fmt.Errorf("unit %q: unknown kind %q", u.Name, u.Kind)
		}
		if u.Movement <= 0 {
			return fmt.Errorf("unit %q: movement must be positive", u.Name)
		}
	}
	def, ok := r.Unit(r.DefaultLandUnit)
	if !ok {
		return fmt.Errorf("default_land_unit %q is not a unit", r.DefaultLandUnit)
	}
	if def.Kind != KindMilitary {
		return fmt.Errorf("default_land_unit %q must be military", r.DefaultLandUnit)
	}
	for _, name := range r.StartingUnits {
		if _, ok := r.Unit(name); !ok {
			return fmt.Errorf("starting unit %q is not a unit", name)
		}
	}
	return nil
}

// Terrain looks up a terrain by name.
func (r *Ruleset) Terrain(name string) (TerrainDef, bool) {
	i, ok := r.terrainIndex[name]
	if !ok {
		return TerrainDef{}, false
	}
	return r.Terrains[i], true
}

// Technology looks up a technology by name.
func (r *Ruleset) Technology(name string) (TechnologyDef, bool) {
	i, ok := r.techIndex[name]
	if !ok {
		return TechnologyDef{}, false
	}
	return r.Technologies[i], true
}

// Unit looks up a unit definition by name.
func (r *Ruleset) Unit(name string) (UnitDef, bool) {
	i, ok := r.unitIndex[name]
	if !ok {
		return UnitDef{}, false
	}
	return r.Units[i], true
}
