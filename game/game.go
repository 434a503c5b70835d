// Package game drives a chunk and wires it to telemetry: windowed stats,
// bookmarks, archived snapshots and the seed bank.
package game

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"runtime/debug"

	"github.com/pthm-cable/bonsai/chunk"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/physics"
	"github.com/pthm-cable/bonsai/telemetry"
)

// Options configures a Game.
type Options struct {
	Seed        int64  // RNG seed for soil, light jitter and mutation
	LogStats    bool   // Log window stats and bookmarks
	OutputDir   string // CSV output directory (empty = disabled)
	SnapshotDir string // Archived snapshot directory (empty = disabled)

	// StatsCallback, when set, receives every flushed window.
	StatsCallback func(telemetry.WindowStats)
}

// Game owns one chunk and its telemetry. The embedded chunk provides the
// plant operations; Step wraps the chunk tick with bookkeeping.
type Game struct {
	*chunk.Chunk

	cfg  *config.Config
	seed int64
	rng  *rand.Rand

	collector     *telemetry.Collector
	bank          *telemetry.SeedBank
	bookmarks     *telemetry.BookmarkDetector
	outputManager *telemetry.OutputManager

	logStats      bool
	snapshotDir   string
	statsCallback func(telemetry.WindowStats)
}

// New creates a game over engine and drops the initial population.
func New(cfg *config.Config, engine physics.Engine, opts Options) (*Game, error) {
	rng := rand.New(rand.NewSource(opts.Seed))
	bank := telemetry.NewSeedBank(cfg.SeedBank, rng)

	g := &Game{
		Chunk:         chunk.New(cfg, engine, rng),
		cfg:           cfg,
		seed:          opts.Seed,
		rng:           rng,
		collector:     telemetry.NewCollector(cfg.Telemetry.StatsWindow, cfg.Physics.DT, bank),
		bank:          bank,
		bookmarks:     telemetry.NewBookmarkDetector(10),
		logStats:      opts.LogStats,
		snapshotDir:   opts.SnapshotDir,
		statsCallback: opts.StatsCallback,
	}
	g.SetObserver(g.collector)

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("output manager: %w", err)
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if err := g.SeedPopulation(cfg.Chunk.InitialPlants); err != nil {
		om.Close()
		return nil, err
	}

	slog.Info("game_created",
		"seed", opts.Seed,
		"plants", g.Plants(),
		"soil_blocks", len(g.Soil()),
		"output_dir", opts.OutputDir,
	)
	return g, nil
}

// Step runs one chunk tick followed by telemetry and reseeding.
func (g *Game) Step() chunk.StepStats {
	stats := g.Chunk.Step()

	lifetimes := g.collector.Lifetimes()
	g.EachPlant(func(id uint32, cells int, energy float64) {
		lifetimes.Update(id, cells, energy)
	})

	g.flushTelemetry()
	if every := int64(g.cfg.Telemetry.ArchiveEvery); every > 0 && g.snapshotDir != "" && g.Tick()%every == 0 {
		g.saveSnapshot(nil)
	}
	g.reseedFromBankIfNeeded()
	return stats
}

// ErrStepPanic wraps a panic recovered by SafeStep.
var ErrStepPanic = errors.New("game: step panicked")

// SafeStep is Step with the panic boundary of a long-running loop: a panic
// inside the tick is logged with its stack and returned as ErrStepPanic.
// The tick counter does not advance for a tick that panicked before the
// chunk finished it.
func (g *Game) SafeStep() (stats chunk.StepStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("step_panic",
				"tick", g.Tick(),
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w at tick %d: %v", ErrStepPanic, g.Tick(), r)
		}
	}()
	return g.Step(), nil
}

// Tick returns the number of completed ticks.
func (g *Game) Tick() int64 {
	return g.Age()
}

// Seed returns the RNG seed the game was created with.
func (g *Game) Seed() int64 {
	return g.seed
}

// SeedBank returns the bank of successful genomes.
func (g *Game) SeedBank() *telemetry.SeedBank {
	return g.bank
}

// Unload writes the seed bank and closes output files.
func (g *Game) Unload() error {
	if g.outputManager == nil {
		return nil
	}
	if err := g.outputManager.WriteSeedBank(g.bank); err != nil {
		slog.Error("failed to write seed bank", "error", err)
	}
	return g.outputManager.Close()
}
