package chunk

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"reflect"
	"strings"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
	"github.com/pthm-cable/bonsai/physics"
	"github.com/pthm-cable/bonsai/physics/physicstest"
	"github.com/pthm-cable/bonsai/telemetry"
)

var _ Observer = (*telemetry.Collector)(nil)

type recorder struct {
	births    [][2]uint32
	divisions []uint32
	deaths    []telemetry.PlantRecord
}

func (r *recorder) RecordBirth(id, parent uint32, tick int64) {
	r.births = append(r.births, [2]uint32{id, parent})
}

func (r *recorder) RecordDivision(id uint32) {
	r.divisions = append(r.divisions, id)
}

func (r *recorder) RecordDeath(rec telemetry.PlantRecord) {
	r.deaths = append(r.deaths, rec)
}

// inert expresses a free marker and nothing else.
var inert = genome.MustDecode("e:e")

func newTestChunk(t *testing.T) (*Chunk, *physicstest.Engine, *recorder) {
	t.Helper()
	cfg := config.Default()
	cfg.Soil.Grid = 2
	eng := physicstest.New()
	c := New(cfg, eng, rand.New(rand.NewSource(1)))
	rec := &recorder{}
	c.SetObserver(rec)
	return c, eng, rec
}

// onlyDynamic returns the single cell body, failing otherwise.
func onlyDynamic(t *testing.T, eng *physicstest.Engine) physics.Tag {
	t.Helper()
	tags := eng.DynamicTags()
	if len(tags) != 1 {
		t.Fatalf("expected 1 cell body, got %d", len(tags))
	}
	return tags[0]
}

// rootedPlant adds a plant, gives it a body and roots it on the first soil block.
// Returns the plant ID and its body tag. The soil attachment is created on the
// next step.
func rootedPlant(t *testing.T, c *Chunk, eng *physicstest.Engine, g *genome.Genome, energy float64) (uint32, physics.Tag) {
	t.Helper()
	id := c.AddPlant(r3.Vec{Z: 20}, g, energy)
	c.Step()
	tag := onlyDynamic(t, eng)
	eng.ContactPairs = [][2]physics.Tag{{tag, c.Soil()[0].Tag}}
	c.Step()
	return id, tag
}

func TestNew_RegistersSoil(t *testing.T) {
	c, eng, _ := newTestChunk(t)

	if len(c.Soil()) != 4 {
		t.Fatalf("expected 4 soil blocks, got %d", len(c.Soil()))
	}
	if len(eng.Bodies) != 4 {
		t.Errorf("expected 4 bodies, got %d", len(eng.Bodies))
	}
	for _, b := range c.Soil() {
		body, ok := eng.Bodies[b.Tag]
		if !ok || !body.Desc.Static {
			t.Errorf("expected static body for soil tag %d", b.Tag)
		}
		if math.Abs(b.Top()) > c.cfg.Soil.NoiseAmplitude+1e-9 {
			t.Errorf("expected soil top within noise amplitude, got %v", b.Top())
		}
	}
}

func TestAddPlant_LiveOnNextSync(t *testing.T) {
	c, eng, rec := newTestChunk(t)

	id := c.AddPlant(r3.Vec{Z: 20}, inert, 0)
	if id != 1 {
		t.Errorf("expected first plant id 1, got %d", id)
	}
	if len(eng.DynamicTags()) != 0 {
		t.Error("expected no body before the first step")
	}
	if len(rec.births) != 1 || rec.births[0] != [2]uint32{1, 0} {
		t.Errorf("expected birth of plant 1 without parent, got %v", rec.births)
	}

	stats := c.Step()
	onlyDynamic(t, eng)
	if stats.Plants != 1 || stats.Cells != 1 {
		t.Errorf("expected 1 plant with 1 cell, got %d/%d", stats.Plants, stats.Cells)
	}

	d, err := c.Inspect(id)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if d.Rooted {
		t.Error("expected fresh plant to be unrooted")
	}
	if d.Energy != c.cfg.Energy.Initial || d.Age != 0 {
		t.Errorf("expected unrooted plant untouched, got energy %v age %d", d.Energy, d.Age)
	}
}

func TestStep_RootingCreatesSoilAttachment(t *testing.T) {
	c, eng, _ := newTestChunk(t)
	id, tag := rootedPlant(t, c, eng, inert, 100)

	d, _ := c.Inspect(id)
	if !d.Rooted {
		t.Fatal("expected plant to root on first soil contact")
	}
	if len(eng.Springs) != 0 {
		t.Fatalf("expected attachment on the next sync, got %d springs", len(eng.Springs))
	}

	eng.RayHit = func(from, to r3.Vec) (physics.Tag, bool) { return tag, true }
	stats := c.Step()

	if len(eng.Springs) != 1 {
		t.Fatalf("expected 1 spring, got %d", len(eng.Springs))
	}
	for _, s := range eng.Springs {
		if s.A != c.Soil()[0].Tag || s.B != tag {
			t.Errorf("expected soil %d to cell %d, got %d-%d", c.Soil()[0].Tag, tag, s.A, s.B)
		}
	}
	if want := c.cfg.Light.Grid * c.cfg.Light.Grid; stats.LightHits != want {
		t.Errorf("expected %d light hits, got %d", want, stats.LightHits)
	}
}

func TestStep_DespawnBelowThreshold(t *testing.T) {
	c, eng, rec := newTestChunk(t)
	id, tag := rootedPlant(t, c, eng, inert, 100)
	c.Step() // attach

	eng.ContactPairs = nil
	if err := eng.SetBodyPose(tag, geom.Translation(r3.Vec{Z: c.cfg.Chunk.DespawnHeight - 1})); err != nil {
		t.Fatal(err)
	}
	stats := c.Step()

	if stats.Fell != 1 || c.Plants() != 0 {
		t.Errorf("expected the fallen plant removed, got fell=%d plants=%d", stats.Fell, c.Plants())
	}
	if _, err := c.Inspect(id); !errors.Is(err, ErrUnknownPlant) {
		t.Errorf("expected ErrUnknownPlant, got %v", err)
	}
	if len(eng.DynamicTags()) != 0 || len(eng.Springs) != 0 {
		t.Errorf("expected physics resources released, got %d bodies %d springs", len(eng.DynamicTags()), len(eng.Springs))
	}
	if len(rec.deaths) != 1 || rec.deaths[0].Cause != components.CauseFell {
		t.Errorf("expected one fell death, got %+v", rec.deaths)
	}
}

func TestStep_StarvedPlantRemovedSameTick(t *testing.T) {
	c, eng, rec := newTestChunk(t)
	rootedPlant(t, c, eng, inert, 0.5)

	stats := c.Step()

	if stats.Deaths != 1 || c.Plants() != 0 {
		t.Errorf("expected starved plant removed, got deaths=%d plants=%d", stats.Deaths, c.Plants())
	}
	if len(eng.DynamicTags()) != 0 {
		t.Error("expected body of starved plant removed in the same tick")
	}
	if len(rec.deaths) != 1 || rec.deaths[0].Cause != components.CauseStarvation {
		t.Errorf("expected starvation, got %+v", rec.deaths)
	}
	if rec.deaths[0].Genome != "e:e" {
		t.Errorf("expected genome in death record, got %q", rec.deaths[0].Genome)
	}
}

func TestStep_DivisionAttachesChild(t *testing.T) {
	c, eng, rec := newTestChunk(t)
	id, _ := rootedPlant(t, c, eng, inert, 100)

	root := c.byID[id]
	c.cells.Signals.Get(root).Add(genome.Diff, 10)
	stats := c.Step()

	if stats.Divisions != 1 {
		t.Fatalf("expected 1 division, got %d", stats.Divisions)
	}
	d, _ := c.Inspect(id)
	if d.CellCount != 2 {
		t.Fatalf("expected 2 cells, got %d", d.CellCount)
	}
	if d.Cells[0].Signals["d"] != 0 {
		t.Errorf("expected parent diff consumed, got %d", d.Cells[0].Signals["d"])
	}
	if len(eng.DynamicTags()) != 2 {
		t.Errorf("expected 2 cell bodies, got %d", len(eng.DynamicTags()))
	}
	if len(eng.Springs) != 2 {
		t.Errorf("expected soil and parent springs, got %d", len(eng.Springs))
	}
	if stats.Bodies != 2 || stats.Constraints != 2 {
		t.Errorf("expected 2 bodies and 2 constraints in stats, got %d and %d", stats.Bodies, stats.Constraints)
	}
	if len(rec.divisions) != 1 || rec.divisions[0] != id {
		t.Errorf("expected division event for plant %d, got %v", id, rec.divisions)
	}
}

func TestKillPlant(t *testing.T) {
	c, eng, rec := newTestChunk(t)
	id, tag := rootedPlant(t, c, eng, inert, 100)
	c.Step() // attach

	if err := c.KillPlant(999); !errors.Is(err, ErrUnknownPlant) {
		t.Errorf("expected ErrUnknownPlant, got %v", err)
	}

	eng.Calls = nil
	if err := c.KillPlant(id); err != nil {
		t.Fatalf("kill: %v", err)
	}
	if c.Plants() != 0 || len(eng.DynamicTags()) != 0 || len(eng.Springs) != 0 {
		t.Error("expected plant and physics resources removed immediately")
	}
	wantBody := fmt.Sprintf("remove_body %d", tag)
	if len(eng.Calls) != 2 || !strings.HasPrefix(eng.Calls[0], "remove_spring") || eng.Calls[1] != wantBody {
		t.Errorf("expected spring removal before body removal, got %v", eng.Calls)
	}
	if len(rec.deaths) != 1 || rec.deaths[0].Cause != components.CauseKilled {
		t.Errorf("expected killed death record, got %+v", rec.deaths)
	}
}

func TestSerialize_ReadOnly(t *testing.T) {
	c, _, _ := newTestChunk(t)
	c.AddPlant(r3.Vec{X: 1, Y: -1, Z: 20}, inert, 0)
	c.Step()

	a := c.Serialize()
	b := c.Serialize()
	if !reflect.DeepEqual(a, b) {
		t.Error("expected repeated snapshots to be identical")
	}
	if c.Age() != 1 || a.Age != 1 {
		t.Errorf("expected age 1, got chunk %d snapshot %d", c.Age(), a.Age)
	}
	if a.Stats.Plants != 1 || a.Stats.Cells != 1 || a.Stats.Energy != c.cfg.Energy.Initial {
		t.Errorf("unexpected aggregate %+v", a.Stats)
	}
	if len(a.Soil) != 4 {
		t.Errorf("expected 4 soil boxes, got %d", len(a.Soil))
	}

	p := a.Plants[0]
	if p.ID != 1 || p.Genome != "e:e" || len(p.Cells) != 1 {
		t.Fatalf("unexpected plant %+v", p)
	}
	cell := p.Cells[0]
	if cell.Position != [3]float64{1, -1, 20} {
		t.Errorf("expected position (1,-1,20), got %v", cell.Position)
	}
	if cell.Rotation != [4]float64{1, 0, 0, 0} {
		t.Errorf("expected identity rotation, got %v", cell.Rotation)
	}
	if cell.Color != colorSeed {
		t.Errorf("expected seed color for unrooted cell, got %+v", cell.Color)
	}
	if _, err := json.Marshal(a); err != nil {
		t.Errorf("snapshot does not marshal: %v", err)
	}
}

func TestSetEnvironment(t *testing.T) {
	c, _, _ := newTestChunk(t)

	for _, bad := range []float64{-1, math.NaN(), math.Inf(1)} {
		if err := c.SetEnvironment(bad); !errors.Is(err, ErrInvalidEnvironment) {
			t.Errorf("expected ErrInvalidEnvironment for %v, got %v", bad, err)
		}
	}
	if err := c.SetEnvironment(2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.LightMultiplier() != 2 {
		t.Errorf("expected multiplier 2, got %v", c.LightMultiplier())
	}

	c.Step()
	if want := 2 * c.cfg.Light.Intensity; math.Abs(c.Serialize().LightIntensity-want) > 1e-9 {
		t.Errorf("expected intensity %v at age 0, got %v", want, c.Serialize().LightIntensity)
	}
}

func TestSeedPopulation(t *testing.T) {
	c, _, rec := newTestChunk(t)

	c.cfg.Chunk.SeedGenome = "A:b"
	if err := c.SeedPopulation(3); !errors.Is(err, genome.ErrFormat) {
		t.Errorf("expected genome format error, got %v", err)
	}
	if c.Plants() != 0 {
		t.Errorf("expected no plants after a failed seed, got %d", c.Plants())
	}

	c.cfg.Chunk.SeedGenome = ""
	if err := c.SeedPopulation(5); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if c.Plants() != 5 || len(rec.births) != 5 {
		t.Fatalf("expected 5 plants, got %d", c.Plants())
	}

	half := c.cfg.Derived.HalfSize
	for _, p := range c.Serialize().Plants {
		pos := p.Cells[0].Position
		if math.Abs(pos[0]) > half || math.Abs(pos[1]) > half || pos[2] != c.cfg.Chunk.SpawnHeight {
			t.Errorf("plant %d dropped outside the footprint: %v", p.ID, pos)
		}
		if p.Genome != genome.Default().Encode() {
			t.Errorf("expected starter genome, got %q", p.Genome)
		}
	}
}

func TestCensus(t *testing.T) {
	c, eng, _ := newTestChunk(t)
	rootedPlant(t, c, eng, inert, 100)
	c.AddPlant(r3.Vec{X: 2, Z: 20}, inert, 40)

	pop := c.Census()
	if pop.Plants != 2 || pop.RootedPlants != 1 || pop.Cells != 2 {
		t.Errorf("expected 2 plants (1 rooted) with 2 cells, got %+v", pop)
	}
	if len(pop.Energies) != 2 || pop.Energies[1] != 40 {
		t.Errorf("expected energies in insertion order, got %v", pop.Energies)
	}
}

// flowerPlant roots a plant at pos and primes its root to flower on the next step.
func flowerPlant(t *testing.T, c *Chunk, eng *physicstest.Engine) (uint32, physics.Tag) {
	t.Helper()
	c.cfg.Cell.FlowerChance = 1
	id, tag := rootedPlant(t, c, eng, inert, 100)
	c.cells.Signals.Get(c.byID[id]).Add(genome.Flower, 1)
	return id, tag
}

func seedling(t *testing.T, c *Chunk, parent uint32) PlantSnapshot {
	t.Helper()
	for _, p := range c.Serialize().Plants {
		if p.ID != parent {
			return p
		}
	}
	t.Fatal("expected a seedling")
	return PlantSnapshot{}
}

func TestStep_FlowerSeedAtFlowerPosition(t *testing.T) {
	c, eng, rec := newTestChunk(t)
	id, _ := flowerPlant(t, c, eng)

	stats := c.Step()
	if stats.Seeds != 1 || c.Plants() != 2 {
		t.Fatalf("expected one seed, got seeds=%d plants=%d", stats.Seeds, c.Plants())
	}
	last := rec.births[len(rec.births)-1]
	if last[1] != id {
		t.Errorf("expected seedling parented to %d, got %v", id, last)
	}
	seed := seedling(t, c, id)
	if pos := seed.Cells[0].Position; pos != [3]float64{0, 0, 20} {
		t.Errorf("expected seedling at the flower (0,0,20), got %v", pos)
	}
}

func TestStep_FlowerSeedScatterIsOptIn(t *testing.T) {
	c, eng, _ := newTestChunk(t)
	c.cfg.Cell.SeedSpread = 1.5
	id, _ := flowerPlant(t, c, eng)

	c.Step()
	pos := seedling(t, c, id).Cells[0].Position
	if math.Abs(pos[0]) > 1.5 || math.Abs(pos[1]) > 1.5 {
		t.Errorf("expected seedling within 1.5 of the flower, got %v", pos)
	}
	if pos[2] != 20 {
		t.Errorf("expected seedling at the flower's height 20, got %v", pos[2])
	}
}

func TestStep_RootsOnRealSoil(t *testing.T) {
	cfg := config.Default()
	cfg.Soil.Grid = 2
	world := physics.NewWorld(cfg.Physics)
	c := New(cfg, world, rand.New(rand.NewSource(1)))

	// Centre of one soil block, so the root lands on a single box.
	q := cfg.Chunk.Size / 4
	id := c.AddPlant(r3.Vec{X: q, Y: q, Z: cfg.Chunk.SpawnHeight}, inert, 100)

	rooted := false
	for i := 0; i < 600 && !rooted; i++ {
		c.Step()
		d, err := c.Inspect(id)
		if err != nil {
			t.Fatalf("plant lost while falling at tick %d: %v", i, err)
		}
		rooted = d.Rooted
	}
	if !rooted {
		t.Fatal("expected the root to touch soil and root")
	}

	stats := c.Step()
	if world.ConstraintCount() != 1 || stats.Constraints != 1 {
		t.Errorf("expected one soil spring, got world=%d stats=%d", world.ConstraintCount(), stats.Constraints)
	}
	d, err := c.Inspect(id)
	if err != nil || !d.Rooted {
		t.Errorf("expected plant to stay rooted, got %+v %v", d, err)
	}
	if z := c.Serialize().Plants[0].Cells[0].Position[2]; z > cfg.Soil.NoiseAmplitude+cfg.Cell.UnitSize {
		t.Errorf("expected root resting on the soil, got z=%v", z)
	}
}
