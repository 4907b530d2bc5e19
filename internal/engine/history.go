package engine

// History keeps the most recent game states for undo.
type History struct {
	depth  int
	states []*Game
}

// NewHistory keeps at most depth states. Zero disables undo.
func NewHistory(depth int) *History {
	return &History{depth: depth}
}

// Push records a copy of g, dropping the oldest state when full.
func (h *History) Push(g *Game) {
	if h.depth <= 0 {
		return
	}
	h.record(g.Clone())
}

// record keeps g itself; the caller hands over ownership.
func (h *History) record(g *Game) {
	if h.depth <= 0 {
		return
	}
	h.states = append(h.states, g)
	if len(h.states) > h.depth {
		h.states[0] = nil
		h.states = h.states[1:]
	}
}

// Pop returns the most recent state.
func (h *History) Pop() (*Game, bool) {
	if len(h.states) == 0 {
		return nil, false
	}
	g := h.states[len(h.states)-1]
	h.states[len(h.states)-1] = nil
	h.states = h.states[:len(h.states)-1]
	return g, true
}

// Len returns the number of states that can be restored.
func (h *History) Len() int {
	return len(h.states)
}
