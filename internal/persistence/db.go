// Package persistence provides SQLite game storage and compressed snapshot files.
package persistence

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hexciv/internal/civ"
	"github.com/talgya/hexciv/internal/engine"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

// ErrNoSavedGame is returned by LoadWorldState when the database is empty.
var ErrNoSavedGame = errors.New("no saved game")

// DB wraps a SQLite connection for game persistence.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS tiles (
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		terrain TEXT NOT NULL,
		elevation INTEGER NOT NULL,
		infrastructure INTEGER NOT NULL,
		owner TEXT NOT NULL,
		PRIMARY KEY (q, r)
	);

	CREATE TABLE IF NOT EXISTS units (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		kind INTEGER NOT NULL,
		q INTEGER NOT NULL,
		r INTEGER NOT NULL,
		movement REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS civilizations (
		idx INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		barbarian INTEGER NOT NULL,
		science INTEGER NOT NULL,
		tech_json TEXT NOT NULL,
		cities_json TEXT NOT NULL,
		at_war_json TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		q INTEGER,
		r INTEGER,
		color TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_units_owner ON units(owner);
	CREATE INDEX IF NOT EXISTS idx_tiles_owner ON tiles(owner);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type tileRow struct {
	Q              int    `db:"q"`
	R              int    `db:"r"`
	Terrain        string `db:"terrain"`
	Elevation      int    `db:"elevation"`
	Infrastructure int    `db:"infrastructure"`
	Owner          string `db:"owner"`
}

type unitRow struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	Owner    string  `db:"owner"`
	Kind     int     `db:"kind"`
	Q        int     `db:"q"`
	R        int     `db:"r"`
	Movement float64 `db:"movement"`
}

type civRow struct {
	Idx        int    `db:"idx"`
	Name       string `db:"name"`
	Barbarian  int    `db:"barbarian"`
	Science    int    `db:"science"`
	TechJSON   string `db:"tech_json"`
	CitiesJSON string `db:"cities_json"`
	AtWarJSON  string `db:"at_war_json"`
}

type notificationRow struct {
	Text  string        `db:"text"`
	Q     sql.NullInt64 `db:"q"`
	R     sql.NullInt64 `db:"r"`
	Color string        `db:"color"`
}

// saveTiles writes all tiles (full replace).
func saveTiles(tx *sqlx.Tx, tiles []TileV1) error {
	if _, err := tx.Exec("DELETE FROM tiles"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO tiles
		(q, r, terrain, elevation, infrastructure, owner)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tiles {
		if _, err := stmt.Exec(t.Q, t.R, t.Terrain, int(t.Elevation), int(t.Infrastructure), t.Owner); err != nil {
			return fmt.Errorf("insert tile (%d,%d): %w", t.Q, t.R, err)
		}
	}
	return nil
}

func saveUnits(tx *sqlx.Tx, tiles []TileV1) error {
	if _, err := tx.Exec("DELETE FROM units"); err != nil {
		return err
	}
	stmt, err := tx.Preparex(`INSERT INTO units
		(id, name, owner, kind, q, r, movement)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tiles {
		for _, u := range []*world.Unit{t.Military, t.Civilian} {
			if u == nil {
				continue
			}
			if _, err := stmt.Exec(u.ID, u.Name, u.Owner, int(u.Kind), t.Q, t.R, u.CurrentMovement); err != nil {
				return fmt.Errorf("insert unit %s: %w", u.ID, err)
			}
		}
	}
	return nil
}

func saveCivilizations(tx *sqlx.Tx, civs []*civ.Civilization) error {
	if _, err := tx.Exec("DELETE FROM civilizations"); err != nil {
		return err
	}
	for i, c := range civs {
		techJSON, _ := json.Marshal(c.Tech)
		citiesJSON, _ := json.Marshal(c.Cities)
		atWarJSON, _ := json.Marshal(c.AtWar)

		barbarian := 0
		if c.Barbarian {
			barbarian = 1
		}

		_, err := tx.Exec(`INSERT INTO civilizations
			(idx, name, barbarian, science, tech_json, cities_json, at_war_json)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			i, c.Name, barbarian, c.SciencePerTurn,
			string(techJSON), string(citiesJSON), string(atWarJSON),
		)
		if err != nil {
			return fmt.Errorf("insert civilization %s: %w", c.Name, err)
		}
	}
	return nil
}

func saveNotifications(tx *sqlx.Tx, notes []civ.Notification) error {
	if _, err := tx.Exec("DELETE FROM notifications"); err != nil {
		return err
	}
	for _, n := range notes {
		var q, r sql.NullInt64
		if n.Location != nil {
			q = sql.NullInt64{Int64: int64(n.Location.Q), Valid: true}
			r = sql.NullInt64{Int64: int64(n.Location.R), Valid: true}
		}
		if _, err := tx.Exec("INSERT INTO notifications (text, q, r, color) VALUES (?, ?, ?, ?)",
			n.Text, q, r, string(n.Color)); err != nil {
			return err
		}
	}
	return nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}

// HasWorldState reports whether a game has been saved.
func (db *DB) HasWorldState() bool {
	var count int
	if err := db.conn.Get(&count, "SELECT COUNT(*) FROM civilizations"); err != nil {
		return false
	}
	return count > 0
}

// SaveWorldState performs a full save of the game in one transaction.
func (db *DB) SaveWorldState(g *engine.Game) error {
	snap := Export(g)
	slog.Debug("saving world state", "turn", snap.Header.Turns, "tiles", len(snap.Tiles))

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := saveTiles(tx, snap.Tiles); err != nil {
		return fmt.Errorf("save tiles: %w", err)
	}
	if err := saveUnits(tx, snap.Tiles); err != nil {
		return fmt.Errorf("save units: %w", err)
	}
	if err := saveCivilizations(tx, snap.Civilizations); err != nil {
		return fmt.Errorf("save civilizations: %w", err)
	}
	if err := saveNotifications(tx, snap.Notifications); err != nil {
		return fmt.Errorf("save notifications: %w", err)
	}
	meta := map[string]string{
		"turns":    strconv.Itoa(snap.Header.Turns),
		"radius":   strconv.Itoa(snap.Header.Radius),
		"version":  strconv.Itoa(Version),
		"saved_at": time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range meta {
		if _, err := tx.Exec("INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return fmt.Errorf("save meta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	slog.Info("world state saved", "turn", snap.Header.Turns)
	return nil
}

// LoadWorldState reads the saved game and wires it for play.
func (db *DB) LoadWorldState(rs *rules.Ruleset, rng engine.Random, auto engine.Automation) (*engine.Game, error) {
	if !db.HasWorldState() {
		return nil, ErrNoSavedGame
	}
	snap := GameV1{Header: Header{Version: Version}}

	for key, dst := range map[string]*int{"turns": &snap.Header.Turns, "radius": &snap.Header.Radius, "version": &snap.Header.Version} {
		raw, err := db.GetMeta(key)
		if err != nil {
			return nil, fmt.Errorf("load meta %s: %w", key, err)
		}
		if *dst, err = strconv.Atoi(raw); err != nil {
			return nil, fmt.Errorf("%w: meta %s=%q", ErrCorrupt, key, raw)
		}
	}

	var tiles []tileRow
	if err := db.conn.Select(&tiles, "SELECT q, r, terrain, elevation, infrastructure, owner FROM tiles ORDER BY q, r"); err != nil {
		return nil, fmt.Errorf("load tiles: %w", err)
	}
	index := make(map[world.HexCoord]int, len(tiles))
	for _, t := range tiles {
		index[world.HexCoord{Q: t.Q, R: t.R}] = len(snap.Tiles)
		snap.Tiles = append(snap.Tiles, TileV1{
			Q:              t.Q,
			R:              t.R,
			Terrain:        t.Terrain,
			Elevation:      world.Elevation(t.Elevation),
			Infrastructure: world.Infrastructure(t.Infrastructure),
			Owner:          t.Owner,
		})
	}

	var units []unitRow
	if err := db.conn.Select(&units, "SELECT id, name, owner, kind, q, r, movement FROM units"); err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	for _, row := range units {
		pos := world.HexCoord{Q: row.Q, R: row.R}
		i, ok := index[pos]
		if !ok {
			return nil, fmt.Errorf("%w: unit %s off the map at %v", ErrCorrupt, row.ID, pos)
		}
		u := &world.Unit{
			ID:              row.ID,
			Name:            row.Name,
			Owner:           row.Owner,
			Kind:            world.UnitKind(row.Kind),
			Position:        pos,
			CurrentMovement: row.Movement,
		}
		if u.Kind == world.UnitCivilian {
			snap.Tiles[i].Civilian = u
		} else {
			snap.Tiles[i].Military = u
		}
	}

	var civs []civRow
	if err := db.conn.Select(&civs, "SELECT idx, name, barbarian, science, tech_json, cities_json, at_war_json FROM civilizations ORDER BY idx"); err != nil {
		return nil, fmt.Errorf("load civilizations: %w", err)
	}
	for _, row := range civs {
		c := civ.New(row.Name, row.Barbarian != 0)
		c.SciencePerTurn = row.Science
		if err := json.Unmarshal([]byte(row.TechJSON), &c.Tech); err != nil {
			return nil, fmt.Errorf("%w: civilization %s tech: %v", ErrCorrupt, row.Name, err)
		}
		if err := json.Unmarshal([]byte(row.CitiesJSON), &c.Cities); err != nil {
			return nil, fmt.Errorf("%w: civilization %s cities: %v", ErrCorrupt, row.Name, err)
		}
		if err := json.Unmarshal([]byte(row.AtWarJSON), &c.AtWar); err != nil {
			return nil, fmt.Errorf("%w: civilization %s wars: %v", ErrCorrupt, row.Name, err)
		}
		snap.Civilizations = append(snap.Civilizations, c)
	}

	var notes []notificationRow
	if err := db.conn.Select(&notes, "SELECT text, q, r, color FROM notifications ORDER BY id"); err != nil {
		return nil, fmt.Errorf("load notifications: %w", err)
	}
	for _, row := range notes {
		n := civ.Notification{Text: row.Text, Color: civ.Color(row.Color)}
		if row.Q.Valid && row.R.Valid {
			n.Location = &world.HexCoord{Q: int(row.Q.Int64), R: int(row.R.Int64)}
		}
		snap.Notifications = append(snap.Notifications, n)
	}

	g, err := Import(snap, rs, rng, auto)
	if err != nil {
		return nil, err
	}
	slog.Info("world state loaded", "turn", g.Turns, "tiles", g.TileMap.TileCount(), "civilizations", len(g.Civilizations))
	return g, nil
}
