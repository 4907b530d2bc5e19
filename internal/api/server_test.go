package api

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/hexciv/internal/engine"
	"github.com/talgya/hexciv/internal/persistence"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

const testKey = "test-admin-key"

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	gen := world.SmallTestConfig()
	gen.Radius = 8
	g, err := engine.NewGame(engine.Setup{Gen: gen, Civilizations: []string{"Rome", "Greece"}},
		rules.Default(), rand.New(rand.NewSource(9)), nil)
	require.NoError(t, err)

	db, err := persistence.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mu := &sync.RWMutex{}
	s := &Server{
		Eng:         engine.NewEngine(g, mu, engine.NewHistory(2)),
		Mu:          mu,
		DB:          db,
		SnapshotDir: t.TempDir(),
		AdminKey:    testKey,
		PathLimit:   3,
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func get(t *testing.T, ts *httptest.Server, path string, out any) int {
	t.Helper()
	resp, err := http.Get(ts.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func post(t *testing.T, ts *httptest.Server, path, key, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestStatus(t *testing.T) {
	_, ts := newTestServer(t)
	var status struct {
		Name string         `json:"name"`
		Game engine.Summary `json:"game"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/status", &status))
	assert.Equal(t, "hexciv", status.Name)
	assert.Equal(t, 0, status.Game.Turns)
	assert.Equal(t, "Rome", status.Game.Player)
	assert.Equal(t, 217, status.Game.Tiles)
}

func TestMapAndTileDetail(t *testing.T) {
	s, ts := newTestServer(t)
	var bulk struct {
		Radius int         `json:"radius"`
		Tiles  []tileEntry `json:"tiles"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/map", &bulk))
	assert.Equal(t, 8, bulk.Radius)
	assert.Len(t, bulk.Tiles, 217)

	capital := s.Eng.Game().PlayerCiv().Cities[0].Position
	var detail struct {
		Tile      tileEntry     `json:"tile"`
		Neighbors []tileEntry   `json:"neighbors"`
		Units     []*world.Unit `json:"units"`
	}
	path := fmt.Sprintf("/api/v1/map/%d/%d", capital.Q, capital.R)
	require.Equal(t, http.StatusOK, get(t, ts, path, &detail))
	assert.Equal(t, "Rome", detail.Tile.Owner)
	assert.Equal(t, "road", detail.Tile.Infrastructure)
	assert.Len(t, detail.Neighbors, 6)
	assert.Len(t, detail.Units, 2)

	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/map/40/40", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/map/x/1", nil))
	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/map/1", nil))
}

func TestCivsAndNotifications(t *testing.T) {
	_, ts := newTestServer(t)
	var civs []civSummary
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/civs", &civs))
	require.Len(t, civs, 3)
	assert.Equal(t, "Rome", civs[0].Name)
	assert.True(t, civs[1].Barbarian)
	assert.Equal(t, 2, civs[2].Units)

	var notes struct {
		Turn int `json:"turn"`
	}
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/v1/notifications", &notes))
}

func TestView(t *testing.T) {
	s, ts := newTestServer(t)
	var view struct {
		Tiles []tileEntry `json:"tiles"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/view?q=0&r=0&sight=1", &view))
	want := s.Eng.Game().TileMap.ViewableTiles(world.HexCoord{}, 1)
	assert.Len(t, view.Tiles, len(want))
	assert.GreaterOrEqual(t, len(view.Tiles), 7)

	assert.Equal(t, http.StatusBadRequest, get(t, ts, "/api/v1/view?q=0&r=0&sight=0", nil))
	assert.Equal(t, http.StatusNotFound, get(t, ts, "/api/v1/view?q=99&r=0", nil))
}

func TestPathAndReach(t *testing.T) {
	s, ts := newTestServer(t)
	from := s.Eng.Game().PlayerCiv().Cities[0].Position
	to := world.HexCoord{Q: -from.Q, R: -from.R}

	var route struct {
		Turns int              `json:"turns"`
		Steps []world.HexCoord `json:"steps"`
	}
	path := fmt.Sprintf("/api/v1/path?from_q=%d&from_r=%d&to_q=%d&to_r=%d", from.Q, from.R, to.Q, to.R)
	require.Equal(t, http.StatusOK, get(t, ts, path, &route))
	if from != to {
		require.NotEmpty(t, route.Steps)
		assert.Equal(t, to, route.Steps[len(route.Steps)-1])
		assert.GreaterOrEqual(t, route.Turns, 1)
	}

	var reach struct {
		Tiles []struct {
			Q, R int
			Cost float64
		} `json:"tiles"`
	}
	require.Equal(t, http.StatusOK, get(t, ts, "/api/v1/reach?q=0&r=0&movement=0", &reach))
	require.Len(t, reach.Tiles, 1)
	assert.Zero(t, reach.Tiles[0].Cost)

	// PathLimit is 3 per minute, shared by path and reach.
	assert.Equal(t, http.StatusOK, get(t, ts, "/api/v1/reach?q=0&r=0", nil))
	assert.Equal(t, http.StatusTooManyRequests, get(t, ts, "/api/v1/reach?q=0&r=0", nil))
}

func TestAdmin_RequiresKey(t *testing.T) {
	_, ts := newTestServer(t)
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/turn", "", "", nil))
	assert.Equal(t, http.StatusUnauthorized, post(t, ts, "/api/v1/turn", "wrong", "", nil))

	s := &Server{Eng: nil, Mu: &sync.RWMutex{}}
	disabled := httptest.NewServer(s.Handler())
	defer disabled.Close()
	assert.Equal(t, http.StatusForbidden, post(t, disabled, "/api/v1/turn", testKey, "", nil))
}

func TestAdmin_TurnAndUndo(t *testing.T) {
	s, ts := newTestServer(t)

	var summary engine.Summary
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/turn", testKey, "", &summary))
	assert.Equal(t, 1, summary.Turns)
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/turn", testKey, "", &summary))
	assert.Equal(t, 2, summary.Turns)

	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/undo", testKey, "", &summary))
	assert.Equal(t, 1, summary.Turns)
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/undo", testKey, "", &summary))
	assert.Equal(t, 0, summary.Turns)
	assert.Equal(t, http.StatusConflict, post(t, ts, "/api/v1/undo", testKey, "", nil))
	assert.Equal(t, 0, s.Eng.Game().Turns)

	assert.Equal(t, http.StatusMethodNotAllowed, get(t, ts, "/api/v1/turn", nil))
}

func TestAdmin_Speed(t *testing.T) {
	s, ts := newTestServer(t)
	var resp map[string]float64
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/speed", testKey, `{"speed": 4}`, &resp))
	assert.Equal(t, 4.0, resp["speed"])
	assert.Equal(t, 4.0, s.Eng.Speed)

	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/speed", testKey, `{"speed": -1}`, nil))
	assert.Equal(t, http.StatusBadRequest, post(t, ts, "/api/v1/speed", testKey, `nope`, nil))
}

func TestAdmin_Snapshot(t *testing.T) {
	s, ts := newTestServer(t)
	var resp map[string]any
	require.Equal(t, http.StatusOK, post(t, ts, "/api/v1/snapshot", testKey, "", &resp))
	assert.Equal(t, "saved", resp["database"])
	require.NotEmpty(t, resp["size"])

	assert.True(t, s.DB.HasWorldState())
	h, err := persistence.ReadHeader(resp["file"].(string))
	require.NoError(t, err)
	assert.Equal(t, "Rome", h.Player)
}

func TestRateLimiter_Window(t *testing.T) {
	rl := NewRateLimiter(2, time.Minute)
	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"))
	assert.Positive(t, rl.RetryAfter("a"))
	assert.Zero(t, rl.RetryAfter("unknown"))
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(r))

	r.Header.Set("X-Forwarded-For", "192.0.2.7, 10.0.0.1")
	assert.Equal(t, "192.0.2.7", clientIP(r))
}
