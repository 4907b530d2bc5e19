package civ

import (
	"maps"
	"slices"

	"github.com/talgya/hexciv/internal/rules"
)

// TechManager tracks what a civilization knows and what it is working on.
type TechManager struct {
	Researched []string       `json:"researched"` // In order of completion
	Queue      []string       `json:"queue"`      // Head is the current research
	Progress   map[string]int `json:"progress"`   // Science spent per technology

	known map[string]bool
}

func newTechManager() TechManager {
	return TechManager{
		Progress: make(map[string]int),
		known:    make(map[string]bool),
	}
}

func (tm *TechManager) setTransients() {
	if tm.Progress == nil {
		tm.Progress = make(map[string]int)
	}
	tm.known = make(map[string]bool, len(tm.Researched))
	for _, name := range tm.Researched {
		tm.known[name] = true
	}
}

func (tm *TechManager) isResearched(name string) bool {
	return tm.known[name]
}

// Current returns the technology being researched, if any.
func (tm *TechManager) Current() (string, bool) {
	if len(tm.Queue) == 0 {
		return "", false
	}
	return tm.Queue[0], true
}

// addScience spends science on the head of the queue and reports the technology
// it completed, if any.
func (tm *TechManager) addScience(rs *rules.Ruleset, science int) (string, bool) {
	current, ok := tm.Current()
	if !ok || science <= 0 {
		return "", false
	}
	tm.Progress[current] += science
	def, ok := rs.Technology(current)
	if !ok || tm.Progress[current] < def.Cost {
		return "", false
	}

	delete(tm.Progress, current)
	tm.Queue = tm.Queue[1:]
	tm.Researched = append(tm.Researched, current)
	tm.known[current] = true
	return current, true
}

func (tm *TechManager) clone() TechManager {
	c := TechManager{
		Researched: slices.Clone(tm.Researched),
		Queue:      slices.Clone(tm.Queue),
		Progress:   maps.Clone(tm.Progress),
	}
	if c.Progress == nil {
		c.Progress = make(map[string]int)
	}
	c.setTransients()
	return c
}
