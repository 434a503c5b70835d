package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/game"
	"github.com/pthm-cable/bonsai/physics"
	"github.com/pthm-cable/bonsai/protocol"
	"github.com/pthm-cable/bonsai/transport/ws"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Int("stats-window", 0, "Stats window size in ticks (0 = use config)")
	archiveDir := flag.String("archive-dir", "", "Directory for archived snapshots")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int64("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	listen := flag.String("listen", "", "Serve the request protocol over websocket on this address (empty = use config)")
	debug := flag.Bool("debug", false, "Enable debug logging")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}
	addr := cfg.Server.Listen
	if *listen != "" {
		addr = *listen
	}

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	g, err := game.New(cfg, physics.NewWorld(cfg.Physics), game.Options{
		Seed:        rngSeed,
		LogStats:    *logStats,
		OutputDir:   *outputDir,
		SnapshotDir: *archiveDir,
	})
	if err != nil {
		slog.Error("failed to create game", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := g.Unload(); err != nil {
			slog.Error("failed to close output", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr != "" {
		h, err := protocol.NewHandler(g)
		if err != nil {
			slog.Error("failed to compile request schemas", "error", err)
			return
		}
		if err := ws.NewServer(h).ListenAndServe(ctx, addr, cfg.Server.Path); err != nil {
			slog.Error("server stopped", "error", err)
		}
		return
	}

	slog.Info("starting headless simulation",
		"seed", rngSeed,
		"stats_window", cfg.Telemetry.StatsWindow,
		"max_ticks", *maxTicks,
	)
	for ctx.Err() == nil {
		if _, err := g.SafeStep(); err != nil {
			continue
		}
		if *maxTicks > 0 && g.Tick() >= *maxTicks {
			slog.Info("max ticks reached", "tick", g.Tick())
			return
		}
	}
	slog.Info("interrupted", "tick", g.Tick())
}
