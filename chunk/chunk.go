// Package chunk owns one simulated patch of ground: its soil, its plants and
// the fixed per-tick pipeline that drives them.
package chunk

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
	"github.com/pthm-cable/bonsai/physics"
	"github.com/pthm-cable/bonsai/systems"
	"github.com/pthm-cable/bonsai/telemetry"
)

var (
	// ErrUnknownPlant is returned for a plant ID that is not in the chunk.
	ErrUnknownPlant = errors.New("chunk: unknown plant")
	// ErrInvalidEnvironment is returned for a negative or non-finite light multiplier.
	ErrInvalidEnvironment = errors.New("chunk: invalid environment")
)

// Observer receives population events as they happen.
type Observer interface {
	RecordBirth(id, parent uint32, tick int64)
	RecordDivision(id uint32)
	RecordDeath(rec telemetry.PlantRecord)
}

// StepStats reports one tick. Phase durations are in milliseconds.
type StepStats struct {
	Tick      int64   `json:"tick"`
	BioMS     float64 `json:"bio"`
	SyncMS    float64 `json:"sync"`
	LightMS   float64 `json:"light"`
	PhysicsMS float64 `json:"physics"`
	DespawnMS float64 `json:"despawn"`
	TotalMS   float64 `json:"total"`

	Plants    int `json:"plants"`
	Cells     int `json:"cells"`
	Divisions int `json:"divisions"`
	Seeds     int `json:"seeds"`
	Deaths    int `json:"deaths"`
	Fell      int `json:"fell"`
	Rooted    int `json:"rooted"`
	LightHits int `json:"light_hits"`

	Bodies      int `json:"bodies"`      // cell bodies, soil excluded
	Constraints int `json:"constraints"` // soil and parent attachments
}

// Chunk is a single-threaded simulation world. None of its methods are safe
// for concurrent use.
type Chunk struct {
	cfg    *config.Config
	world  *ecs.World
	cells  *systems.Cells
	engine physics.Engine
	sync   *systems.SyncSystem
	light  *systems.Light
	bio    *systems.BioSystem
	rng    genome.Rand
	perf   *telemetry.PerfCollector

	observer Observer

	plants []ecs.Entity // Roots in insertion order
	byID   map[uint32]ecs.Entity
	soil   []SoilBlock
	nextID uint32
	age    int64

	live []ecs.Entity
}

// New creates a chunk over engine and lays down its soil.
func New(cfg *config.Config, engine physics.Engine, rng genome.Rand) *Chunk {
	world := ecs.NewWorld()
	cells := systems.NewCells(world)
	c := &Chunk{
		cfg:    cfg,
		world:  world,
		cells:  cells,
		engine: engine,
		sync:   systems.NewSyncSystem(cells, engine, cfg),
		light:  systems.NewLight(cells, cfg, rng),
		bio:    systems.NewBioSystem(cells, cfg, rng),
		rng:    rng,
		perf:   telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
		byID:   make(map[uint32]ecs.Entity),
	}

	c.soil = GenerateSoil(cfg.Soil, cfg.Chunk.Size, int64(rng.Intn(math.MaxInt32)))
	for i := range c.soil {
		c.soil[i].Tag = c.sync.AddSoil(c.soil[i].Pose(), c.soil[i].Half)
	}
	return c
}

// SetObserver installs the population event sink. nil disables events.
func (c *Chunk) SetObserver(o Observer) {
	c.observer = o
}

// Perf returns the chunk's phase timer.
func (c *Chunk) Perf() *telemetry.PerfCollector {
	return c.perf
}

// Age returns the number of completed ticks.
func (c *Chunk) Age() int64 {
	return c.age
}

// Plants returns the number of plants in the chunk.
func (c *Chunk) Plants() int {
	return len(c.plants)
}

// Soil returns the soil blocks.
func (c *Chunk) Soil() []SoilBlock {
	return c.soil
}

// Step runs one tick: bio, sync, light, physics, despawn.
func (c *Chunk) Step() StepStats {
	stats := StepStats{Tick: c.age}
	c.perf.StartTick()

	// Bio
	c.perf.StartPhase(systems.PhaseBio)
	res := c.bio.Step(c.plants)
	for _, parent := range res.Divisions {
		root := c.cells.Lineage.Get(parent).Root
		plant := c.cells.Plant.Get(root)
		if plant.Dead {
			continue
		}
		c.bio.Divide(parent)
		stats.Divisions++
		if c.observer != nil {
			c.observer.RecordDivision(plant.ID)
		}
	}
	for _, root := range res.Deaths {
		c.removePlant(root)
		stats.Deaths++
	}
	for _, req := range res.Spawns {
		c.addPlant(c.seedPosition(req.Pos), req.Genome, req.Energy, req.Parent)
		stats.Seeds++
	}
	c.compactPlants()

	// Sync
	c.perf.StartPhase(systems.PhaseSync)
	c.live = c.cells.LiveCells(c.live[:0], c.plants)
	c.sync.Reconcile(c.live)

	// Light
	c.perf.StartPhase(systems.PhaseLight)
	c.light.Update(c.age)
	stats.LightHits = c.light.Cast(c.engine, c.sync)

	// Physics
	c.perf.StartPhase(systems.PhasePhysics)
	c.engine.Step(c.cfg.Physics.DT)
	c.sync.Readback(c.live)
	stats.Rooted = len(c.sync.DetectRooting())

	// Despawn
	c.perf.StartPhase(systems.PhaseDespawn)
	stats.Fell = c.despawn()

	c.perf.EndTick()
	c.age++

	last := c.perf.Last()
	stats.BioMS = ms(last.Phases[systems.PhaseBio])
	stats.SyncMS = ms(last.Phases[systems.PhaseSync])
	stats.LightMS = ms(last.Phases[systems.PhaseLight])
	stats.PhysicsMS = ms(last.Phases[systems.PhasePhysics])
	stats.DespawnMS = ms(last.Phases[systems.PhaseDespawn])
	stats.TotalMS = ms(last.TickDuration)
	stats.Plants = len(c.plants)
	stats.Cells = len(c.live)
	stats.Bodies = c.sync.Bodies()
	stats.Constraints = c.sync.Constraints()
	return stats
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// despawn removes plants whose root fell below the despawn height and
// releases their physics resources. Returns the number removed.
func (c *Chunk) despawn() int {
	fell := 0
	for _, root := range c.plants {
		if c.cells.Pose.Get(root).World.Pos.Z >= c.cfg.Chunk.DespawnHeight {
			continue
		}
		c.cells.Plant.Get(root).Kill(components.CauseFell)
		c.removePlant(root)
		fell++
	}
	if fell == 0 {
		return 0
	}
	c.compactPlants()
	c.live = c.cells.LiveCells(c.live[:0], c.plants)
	c.sync.Prune(c.live)
	return fell
}

// seedPosition places a seed at its flower. With cell.seed_spread > 0 the
// seed is scattered horizontally, clamped to the footprint, at the flower's height.
func (c *Chunk) seedPosition(flower r3.Vec) r3.Vec {
	spread := c.cfg.Cell.SeedSpread
	if spread <= 0 {
		return flower
	}
	limit := c.cfg.Derived.HalfSize - c.cfg.Cell.UnitSize/2
	x := flower.X + (c.rng.Float64()*2-1)*spread
	y := flower.Y + (c.rng.Float64()*2-1)*spread
	return r3.Vec{
		X: math.Max(-limit, math.Min(limit, x)),
		Y: math.Max(-limit, math.Min(limit, y)),
		Z: flower.Z,
	}
}

// AddPlant creates an unrooted single-cell plant at pos and returns its ID.
// A nil genome uses the starter genome; energy <= 0 uses the configured
// initial energy. The plant gets its body on the next sync.
func (c *Chunk) AddPlant(pos r3.Vec, g *genome.Genome, energy float64) uint32 {
	if g == nil {
		g = genome.Default()
	}
	if energy <= 0 {
		energy = c.cfg.Energy.Initial
	}
	return c.addPlant(pos, g, energy, 0)
}

func (c *Chunk) addPlant(pos r3.Vec, g *genome.Genome, energy float64, parent uint32) uint32 {
	id := c.issueID()
	root := c.cells.NewRoot(id, geom.Translation(pos), c.cfg.Cell.UnitSize, g, energy)
	c.plants = append(c.plants, root)
	c.byID[id] = root
	if c.observer != nil {
		c.observer.RecordBirth(id, parent, c.age)
	}
	return id
}

// issueID returns the next unused plant ID. 0 is never issued.
func (c *Chunk) issueID() uint32 {
	for {
		c.nextID++
		if c.nextID == 0 {
			continue
		}
		if _, ok := c.byID[c.nextID]; !ok {
			return c.nextID
		}
	}
}

// KillPlant removes a plant and its physics resources immediately.
func (c *Chunk) KillPlant(id uint32) error {
	root, ok := c.byID[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownPlant, id)
	}
	c.cells.Plant.Get(root).Kill(components.CauseKilled)
	c.removePlant(root)
	c.compactPlants()
	c.live = c.cells.LiveCells(c.live[:0], c.plants)
	c.sync.Prune(c.live)
	return nil
}

// removePlant reports the plant and deletes its cells. The caller compacts
// c.plants and prunes physics resources afterwards.
func (c *Chunk) removePlant(root ecs.Entity) {
	plant := c.cells.Plant.Get(root)
	rec := telemetry.PlantRecord{
		ID:     plant.ID,
		Tick:   c.age,
		Genome: c.cells.Lineage.Get(root).Genome.Encode(),
		Age:    plant.Age,
		Cells:  len(plant.Cells),
		Energy: plant.Energy,
		Cause:  plant.DeathCause,
	}
	delete(c.byID, plant.ID)
	c.cells.RemovePlant(root)

	slog.Debug("plant_removed", "plant", rec.ID, "reason", rec.Cause.String(), "cells", rec.Cells, "age", rec.Age)
	if c.observer != nil {
		c.observer.RecordDeath(rec)
	}
}

func (c *Chunk) compactPlants() {
	n := 0
	for _, root := range c.plants {
		if c.world.Alive(root) {
			c.plants[n] = root
			n++
		}
	}
	clear(c.plants[n:])
	c.plants = c.plants[:n]
}

// SetEnvironment sets the light multiplier used from the next tick on.
func (c *Chunk) SetEnvironment(multiplier float64) error {
	if multiplier < 0 || math.IsNaN(multiplier) || math.IsInf(multiplier, 0) {
		return fmt.Errorf("%w: light multiplier %v", ErrInvalidEnvironment, multiplier)
	}
	c.light.Multiplier = multiplier
	return nil
}

// LightMultiplier returns the current environment multiplier.
func (c *Chunk) LightMultiplier() float64 {
	return c.light.Multiplier
}

// SeedPopulation drops n plants at random positions over the footprint,
// using the configured seed genome or the built-in starter.
func (c *Chunk) SeedPopulation(n int) error {
	g := genome.Default()
	if text := c.cfg.Chunk.SeedGenome; text != "" {
		var err error
		if g, err = genome.Decode(text); err != nil {
			return fmt.Errorf("seed genome: %w", err)
		}
	}

	for i := 0; i < n; i++ {
		c.AddPlant(c.DropPosition(), g, 0)
	}
	return nil
}

// DropPosition returns a random point over the footprint at the spawn height.
func (c *Chunk) DropPosition() r3.Vec {
	limit := c.cfg.Derived.HalfSize - c.cfg.Cell.UnitSize/2
	return r3.Vec{
		X: (c.rng.Float64()*2 - 1) * limit,
		Y: (c.rng.Float64()*2 - 1) * limit,
		Z: c.cfg.Chunk.SpawnHeight,
	}
}

// Census samples the population for telemetry.
func (c *Chunk) Census() telemetry.Population {
	pop := telemetry.Population{
		Plants:   len(c.plants),
		Energies: make([]float64, 0, len(c.plants)),
		Light:    c.light.Intensity,
	}
	for _, root := range c.plants {
		plant := c.cells.Plant.Get(root)
		pop.Cells += len(plant.Cells)
		pop.Energies = append(pop.Energies, plant.Energy)
		if c.cells.State.Get(root).Rooted {
			pop.RootedPlants++
		}
	}
	return pop
}

// EachPlant calls fn for every plant in insertion order.
func (c *Chunk) EachPlant(fn func(id uint32, cells int, energy float64)) {
	for _, root := range c.plants {
		plant := c.cells.Plant.Get(root)
		fn(plant.ID, len(plant.Cells), plant.Energy)
	}
}
