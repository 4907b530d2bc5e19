// Package api provides the HTTP API for observing a running game.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (admin control plane).
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/engine"
	"github.com/talgya/hexciv/internal/persistence"
	"github.com/talgya/hexciv/internal/world"
)

// DefaultPathMovement is the movement budget assumed for path queries from an
// empty tile.
const DefaultPathMovement = 2

// Server serves the game state over HTTP.
type Server struct {
	Eng         *engine.Engine
	Mu          *sync.RWMutex // Shared with the engine
	DB          *persistence.DB
	SnapshotDir string // Empty disables snapshot files
	Port        int
	AdminKey    string // Bearer token for POST endpoints. Empty = POST disabled.

	// PathLimit caps path and reach queries per client per minute; 0 = 60.
	PathLimit int
}

// Handler builds the request router.
func (s *Server) Handler() http.Handler {
	limit := s.PathLimit
	if limit <= 0 {
		limit = 60
	}
	queryLimiter := NewRateLimiter(limit, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints (GET, read-only).
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/civs", s.handleCivs)
	mux.HandleFunc("/api/v1/notifications", s.handleNotifications)
	mux.HandleFunc("/api/v1/map", s.handleMapRoutes)
	mux.HandleFunc("/api/v1/map/", s.handleMapRoutes)
	mux.HandleFunc("/api/v1/view", s.handleView)
	mux.HandleFunc("/api/v1/path", RateLimitMiddleware(queryLimiter, s.handlePath))
	mux.HandleFunc("/api/v1/reach", RateLimitMiddleware(queryLimiter, s.handleReach))

	// Admin endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/speed", s.adminOnly(s.handleSpeed))
	mux.HandleFunc("/api/v1/turn", s.adminOnly(s.handleTurn))
	mux.HandleFunc("/api/v1/undo", s.adminOnly(s.handleUndo))
	mux.HandleFunc("/api/v1/snapshot", s.adminOnly(s.handleSnapshot))

	return mux
}

// Start begins serving the HTTP API in a goroutine. The returned server can be
// shut down by the caller.
func (s *Server) Start() *http.Server {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	return srv
}

// checkBearerToken returns true if the request has a valid admin bearer token.
func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly wraps a handler to require bearer token auth on POST requests.
// GET requests pass through (for endpoints that support both GET and POST).
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "admin endpoints disabled (no admin key set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	undo := s.Eng.UndoDepth()

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	writeJSON(w, map[string]any{
		"name":       "hexciv",
		"game":       g.Summarize(),
		"speed":      s.Eng.Speed,
		"undo":       undo,
		"barbarians": len(g.BarbarianCiv().Units()),
		"defeated":   defeatedNames(g),
	})
}

func defeatedNames(g *engine.Game) []string {
	names := []string{}
	for _, c := range g.Civilizations {
		if !c.IsBarbarian() && c.IsDefeated() {
			names = append(names, c.Name)
		}
	}
	return names
}

type civSummary struct {
	Name        string     `json:"name"`
	Barbarian   bool       `json:"barbarian"`
	Defeated    bool       `json:"defeated"`
	Cities      []civ.City `json:"cities"`
	Units       int        `json:"units"`
	Science     int        `json:"science_per_turn"`
	Researched  []string   `json:"researched"`
	Researching string     `json:"researching,omitempty"`
	AtWarWith   []string   `json:"at_war_with"`
}

func (s *Server) handleCivs(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	out := make([]civSummary, 0, len(g.Civilizations))
	for _, c := range g.Civilizations {
		current, _ := c.Tech.Current()
		out = append(out, civSummary{
			Name:        c.Name,
			Barbarian:   c.IsBarbarian(),
			Defeated:    c.IsDefeated(),
			Cities:      c.Cities,
			Units:       len(c.Units()),
			Science:     c.SciencePerTurn,
			Researched:  c.Tech.Researched,
			Researching: current,
			AtWarWith:   c.Enemies(),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	writeJSON(w, map[string]any{
		"turn":          g.Turns,
		"notifications": g.Notifications,
	})
}

// handleMapRoutes dispatches between bulk map (GET /api/v1/map) and tile detail (GET /api/v1/map/:q/:r).
func (s *Server) handleMapRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/map")
	if path == "" || path == "/" {
		s.handleBulkMap(w, r)
		return
	}
	s.handleTileDetail(w, r)
}

type tileEntry struct {
	Q              int    `json:"q"`
	R              int    `json:"r"`
	Terrain        string `json:"terrain"`
	Hill           bool   `json:"hill,omitempty"`
	Infrastructure string `json:"infrastructure,omitempty"`
	Owner          string `json:"owner,omitempty"`
	Military       string `json:"military,omitempty"` // "<owner> <unit>"
	Civilian       string `json:"civilian,omitempty"`
}

func newTileEntry(t *world.Tile) tileEntry {
	e := tileEntry{
		Q:       t.Position.Q,
		R:       t.Position.R,
		Terrain: t.Terrain,
		Hill:    t.Elevation == world.ElevationHill,
		Owner:   t.Owner,
	}
	if t.Infrastructure != world.InfraNone {
		e.Infrastructure = t.Infrastructure.String()
	}
	if u := t.MilitaryUnit; u != nil {
		e.Military = u.Owner + " " + u.Name
	}
	if u := t.CivilianUnit; u != nil {
		e.Civilian = u.Owner + " " + u.Name
	}
	return e
}

func tileEntries(tiles []*world.Tile) []tileEntry {
	out := make([]tileEntry, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, newTileEntry(t))
	}
	return out
}

// handleBulkMap returns every tile for a map renderer.
func (s *Server) handleBulkMap(w http.ResponseWriter, r *http.Request) {
	s.Mu.RLock()
	defer s.Mu.RUnlock()

	m := s.Eng.Game().TileMap
	writeJSON(w, map[string]any{
		"radius": m.Radius,
		"tiles":  tileEntries(m.All()),
	})
}

func (s *Server) handleTileDetail(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(r.URL.Path, "/")
	// /api/v1/map/:q/:r → parts[0]="" [1]="api" [2]="v1" [3]="map" [4]=q [5]=r
	if len(parts) < 6 {
		http.Error(w, "usage: /api/v1/map/:q/:r", http.StatusBadRequest)
		return
	}
	coord, err := parseCoord(parts[4], parts[5])
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	m := s.Eng.Game().TileMap
	if !m.Contains(coord) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	t := m.Get(coord)

	units := append([]*world.Unit{}, t.Units()...)
	writeJSON(w, map[string]any{
		"tile":          newTileEntry(t),
		"movement_cost": t.MovementCost(),
		"neighbors":     tileEntries(t.Neighbors()),
		"units":         units,
	})
}

// handleView returns the tiles visible from a position:
// GET /api/v1/view?q=&r=&sight=
func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	coord, err := parseCoord(query.Get("q"), query.Get("r"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sight := 2
	if v := query.Get("sight"); v != "" {
		if sight, err = strconv.Atoi(v); err != nil || sight < 1 || sight > 10 {
			http.Error(w, "sight must be 1-10", http.StatusBadRequest)
			return
		}
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	m := s.Eng.Game().TileMap
	if !m.Contains(coord) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	tiles := m.ViewableTiles(coord, sight)
	world.SortTiles(tiles)
	writeJSON(w, map[string]any{
		"origin": coord,
		"sight":  sight,
		"tiles":  tileEntries(tiles),
	})
}

// budgetFor returns the movement budgets and capabilities for a route starting
// at from: the unit standing there if any, else the default budget.
func budgetFor(g *engine.Game, from *world.Tile) (current, full float64, caps world.Capabilities) {
	full = DefaultPathMovement
	current = full
	units := from.Units()
	if len(units) == 0 {
		return current, full, caps
	}
	u := units[0]
	if def, ok := g.Rules().Unit(u.Name); ok {
		full = float64(def.Movement)
	}
	if owner := g.CivByName(u.Owner); owner != nil {
		caps = owner.Capabilities()
	}
	return u.CurrentMovement, full, caps
}

// handlePath returns the shortest multi-turn route between two tiles:
// GET /api/v1/path?from_q=&from_r=&to_q=&to_r=
func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from, err := parseCoord(query.Get("from_q"), query.Get("from_r"))
	if err != nil {
		http.Error(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseCoord(query.Get("to_q"), query.Get("to_r"))
	if err != nil {
		http.Error(w, "to: "+err.Error(), http.StatusBadRequest)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	m := g.TileMap
	if !m.Contains(from) || !m.Contains(to) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	current, full, caps := budgetFor(g, m.Get(from))
	path, err := m.ShortestPath(from, to, current, full, caps)
	if errors.Is(err, world.ErrNoPath) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	steps := make([]world.HexCoord, 0, len(path.Tiles))
	for _, t := range path.Tiles {
		steps = append(steps, t.Position)
	}
	writeJSON(w, map[string]any{
		"from":  from,
		"to":    to,
		"turns": path.Turns,
		"steps": steps,
	})
}

// handleReach returns the tiles enterable this turn from a position:
// GET /api/v1/reach?q=&r=&movement=
func (s *Server) handleReach(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	coord, err := parseCoord(query.Get("q"), query.Get("r"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	m := g.TileMap
	if !m.Contains(coord) {
		http.Error(w, "tile not found", http.StatusNotFound)
		return
	}
	budget, _, caps := budgetFor(g, m.Get(coord))
	if v := query.Get("movement"); v != "" {
		if budget, err = strconv.ParseFloat(v, 64); err != nil || budget < 0 || budget > 100 {
			http.Error(w, "movement must be 0-100", http.StatusBadRequest)
			return
		}
	}

	type reachEntry struct {
		Q    int     `json:"q"`
		R    int     `json:"r"`
		Cost float64 `json:"cost"`
	}
	reach := m.Reachable(coord, budget, caps)
	tiles := make([]*world.Tile, 0, len(reach))
	for t := range reach {
		tiles = append(tiles, t)
	}
	world.SortTiles(tiles)
	out := make([]reachEntry, 0, len(tiles))
	for _, t := range tiles {
		out = append(out, reachEntry{Q: t.Position.Q, R: t.Position.R, Cost: reach[t]})
	}
	writeJSON(w, map[string]any{
		"origin":   coord,
		"movement": budget,
		"tiles":    out,
	})
}

func (s *Server) handleSpeed(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			Speed float64 `json:"speed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if req.Speed < 0 || req.Speed > 1000 {
			http.Error(w, "speed must be 0-1000", http.StatusBadRequest)
			return
		}
		s.Eng.SetSpeed(req.Speed)
		slog.Info("speed changed", "speed", req.Speed)
	}

	s.Mu.RLock()
	speed := s.Eng.Speed
	s.Mu.RUnlock()
	writeJSON(w, map[string]float64{"speed": speed})
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.Eng.Step(); err != nil {
		slog.Error("manual turn failed", "error", err)
		http.Error(w, "turn failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()
	writeJSON(w, s.Eng.Game().Summarize())
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.Eng.Undo() {
		http.Error(w, "nothing to undo", http.StatusConflict)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()
	writeJSON(w, s.Eng.Game().Summarize())
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil && s.SnapshotDir == "" {
		http.Error(w, "no storage configured", http.StatusServiceUnavailable)
		return
	}

	s.Mu.RLock()
	defer s.Mu.RUnlock()

	g := s.Eng.Game()
	resp := map[string]any{"turn": g.Turns}
	if s.DB != nil {
		if err := s.DB.SaveWorldState(g); err != nil {
			slog.Error("snapshot save failed", "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		resp["database"] = "saved"
	}
	if s.SnapshotDir != "" {
		path := filepath.Join(s.SnapshotDir, persistence.SnapshotName(g.Turns))
		if err := persistence.WriteSnapshot(path, persistence.Export(g)); err != nil {
			slog.Error("snapshot file failed", "path", path, "error", err)
			http.Error(w, "snapshot failed", http.StatusInternalServerError)
			return
		}
		resp["file"] = path
		if info, err := os.Stat(path); err == nil {
			resp["size"] = humanize.Bytes(uint64(info.Size()))
		}
	}
	writeJSON(w, resp)
}

func parseCoord(q, r string) (world.HexCoord, error) {
	qi, err1 := strconv.Atoi(q)
	ri, err2 := strconv.Atoi(r)
	if err1 != nil || err2 != nil {
		return world.HexCoord{}, errors.New("invalid coordinates")
	}
	return world.HexCoord{Q: qi, R: ri}, nil
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
