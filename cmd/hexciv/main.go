// Command hexciv runs a turn-based hex-grid strategy game and serves it over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexciv/internal/api"
	"github.com/talgya/hexciv/internal/automation"
	"github.com/talgya/hexciv/internal/config"
	"github.com/talgya/hexciv/internal/engine"
	"github.com/talgya/hexciv/internal/entropy"
	"github.com/talgya/hexciv/internal/persistence"
	"github.com/talgya/hexciv/internal/rules"
	"github.com/talgya/hexciv/internal/world"
)

func main() {
	configPath := flag.String("config", "", "path to hexciv.yaml (defaults when empty)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	level, _ := cfg.Level()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("hexciv starting", "config", *configPath, "civilizations", cfg.Civilizations)

	// ── Rules ─────────────────────────────────────────────────────────
	rs, err := rules.Load(cfg.RulesPath)
	if err != nil {
		slog.Error("failed to load rules", "path", cfg.RulesPath, "error", err)
		os.Exit(1)
	}
	slog.Info("rules loaded",
		"terrains", len(rs.Terrains),
		"technologies", len(rs.Technologies),
		"units", len(rs.Units),
	)

	// ── Database ──────────────────────────────────────────────────────
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		slog.Error("failed to create data directory", "error", err)
		os.Exit(1)
	}
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── Load or Generate Game ─────────────────────────────────────────
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.CryptoSeed()
	}
	rng := entropy.NewSource(seed)
	auto := automation.New(rng)

	var g *engine.Game
	if db.HasWorldState() {
		slog.Info("found saved game, loading...")
		g, err = db.LoadWorldState(rs, rng, auto)
		if err != nil {
			slog.Error("failed to load game", "error", err)
			os.Exit(1)
		}
	} else {
		slog.Info("no saved game found, generating new world...", "seed", seed, "radius", cfg.MapRadius)
		gen := world.DefaultGenConfig()
		gen.Radius = cfg.MapRadius
		gen.Seed = seed
		g, err = engine.NewGame(engine.Setup{Gen: gen, Civilizations: cfg.Civilizations}, rs, rng, auto)
		if err != nil {
			slog.Error("failed to create game", "error", err)
			os.Exit(1)
		}
		if err := db.SaveWorldState(g); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}

	counts := world.TerrainCounts(g.TileMap)
	terrains := make([]string, 0, len(counts))
	for name := range counts {
		terrains = append(terrains, name)
	}
	sort.Strings(terrains)
	for _, name := range terrains {
		slog.Debug("terrain", "type", name, "count", counts[name])
	}
	slog.Info("game ready",
		"turn", g.Turns,
		"tiles", g.TileMap.TileCount(),
		"units", len(g.TileMap.Units()),
		"player", g.PlayerCiv().Name,
	)

	// ── Engine ────────────────────────────────────────────────────────
	mu := &sync.RWMutex{}
	eng := engine.NewEngine(g, mu, engine.NewHistory(cfg.UndoDepth))
	eng.Interval = cfg.TurnInterval()
	eng.MaxTurns = cfg.MaxTurns
	eng.CheckpointEvery = cfg.SnapshotEvery

	// Autosave after turns; snapshot files at checkpoints.
	eng.OnTurn = func(g *engine.Game) {
		if cfg.AutosaveEvery == 0 || g.Turns%cfg.AutosaveEvery != 0 {
			return
		}
		if err := db.SaveWorldState(g); err != nil {
			slog.Error("autosave failed", "turn", g.Turns, "error", err)
		}
	}
	eng.OnCheckpoint = func(g *engine.Game) {
		if cfg.SnapshotDir == "" {
			return
		}
		start := time.Now()
		path := filepath.Join(cfg.SnapshotDir, persistence.SnapshotName(g.Turns))
		if err := persistence.WriteSnapshot(path, persistence.Export(g)); err != nil {
			slog.Error("snapshot failed", "path", path, "error", err)
			return
		}
		size := "?"
		if info, err := os.Stat(path); err == nil {
			size = humanize.Bytes(uint64(info.Size()))
		}
		slog.Info("snapshot written", "path", path, "size", size, "took", time.Since(start).Round(time.Millisecond))
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := cfg.AdminKey()
	if adminKey == "" {
		slog.Warn("admin key not set, admin POST endpoints will be disabled", "env", cfg.AdminKeyEnv)
	}

	apiServer := &api.Server{
		Eng:         eng,
		Mu:          mu,
		DB:          db,
		SnapshotDir: cfg.SnapshotDir,
		Port:        cfg.APIPort,
		AdminKey:    adminKey,
	}
	srv := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n%s leads %d civilizations across %s tiles.\n",
		g.PlayerCiv().Name, len(g.Civilizations), humanize.Comma(int64(g.TileMap.TileCount())))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)
	if g.Turns > 0 {
		fmt.Printf("Resuming from turn %d\n", g.Turns)
	}
	fmt.Println("Starting game... (Ctrl+C to stop)")

	runErr := eng.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		slog.Warn("HTTP shutdown", "error", err)
	}

	// Final save on shutdown.
	slog.Info("final save...")
	mu.RLock()
	if err := db.SaveWorldState(eng.Game()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	mu.RUnlock()

	if runErr != nil {
		slog.Error("game stopped with error", "error", runErr)
		os.Exit(1)
	}
	fmt.Println("Game stopped. State saved.")
}
