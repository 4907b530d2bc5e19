package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Engine drives a game forward on a timer. It shares a lock with readers such
// as the HTTP API: turns, undo and replacement take the write lock.
type Engine struct {
	Speed           float64       // Multiplier: 1.0 = one turn per Interval, 0 = paused
	Interval        time.Duration // Base time between turns
	MaxTurns        int           // Stop after this turn; 0 = never
	CheckpointEvery int           // Turns between OnCheckpoint calls; 0 = never

	// Callbacks run after a turn with the read lock held.
	OnTurn       func(g *Game)
	OnCheckpoint func(g *Game)

	mu      *sync.RWMutex
	game    *Game
	history *History
}

// NewEngine creates an engine for g with default settings.
func NewEngine(g *Game, mu *sync.RWMutex, history *History) *Engine {
	if history == nil {
		history = NewHistory(0)
	}
	return &Engine{
		Speed:    1.0,
		Interval: time.Second,
		mu:       mu,
		game:     g,
		history:  history,
	}
}

// Game returns the current game. Callers must hold the shared lock.
func (e *Engine) Game() *Game {
	return e.game
}

// Replace swaps in another game, for example one loaded from disk, and forgets
// the undo history.
func (e *Engine) Replace(g *Game) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.game = g
	e.history = NewHistory(e.history.depth)
}

// SetSpeed changes the speed multiplier. Zero or less pauses the loop.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Speed = speed
}

func (e *Engine) speed() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.Speed
}

// Run advances turns until ctx is done, MaxTurns is reached or a turn fails.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("turn engine started", "turn", e.turns(), "speed", e.speed())
	defer func() { slog.Info("turn engine stopped", "turn", e.turns()) }()

	for {
		speed := e.speed()
		if speed <= 0 {
			// Paused; check again shortly.
			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}
		if e.MaxTurns > 0 && e.turns() >= e.MaxTurns {
			return nil
		}

		start := time.Now()
		if err := e.Step(); err != nil {
			return err
		}

		elapsed := time.Since(start)
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return nil
			}
		} else if ctx.Err() != nil {
			return nil
		}
	}
}

// Step plays exactly one turn and runs the callbacks. A failed turn restores the
// game state from before the call.
func (e *Engine) Step() error {
	e.mu.Lock()
	before := e.game.Clone()
	if err := e.game.NextTurn(); err != nil {
		e.game = before
		e.mu.Unlock()
		slog.Warn("turn rolled back", "turn", before.Turns, "error", err)
		return err
	}
	e.history.record(before)
	e.mu.Unlock()

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.OnTurn != nil {
		e.OnTurn(e.game)
	}
	if e.CheckpointEvery > 0 && e.game.Turns%e.CheckpointEvery == 0 && e.OnCheckpoint != nil {
		e.OnCheckpoint(e.game)
	}
	return nil
}

// Undo restores the state before the last turn.
func (e *Engine) Undo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev, ok := e.history.Pop()
	if !ok {
		return false
	}
	e.game = prev
	slog.Info("turn undone", "turn", prev.Turns)
	return true
}

// UndoDepth returns how many turns can be undone.
func (e *Engine) UndoDepth() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.history.Len()
}

func (e *Engine) turns() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.game.Turns
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
