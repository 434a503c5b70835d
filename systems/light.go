package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/physics"
)

// CellLookup resolves physics bodies back to cells.
type CellLookup interface {
	CellAt(tag physics.Tag) (ecs.Entity, bool)
}

// Light casts a jittered grid of downward rays over the chunk footprint and
// delivers photons to the rooted cells they hit first.
type Light struct {
	cells *Cells
	cfg   config.LightConfig
	half  float64
	step  float64
	rng   genome.Rand

	Multiplier float64
	Intensity  float64
}

// NewLight creates a light source covering the chunk footprint.
func NewLight(cells *Cells, cfg *config.Config, rng genome.Rand) *Light {
	return &Light{
		cells:      cells,
		cfg:        cfg.Light,
		half:       cfg.Derived.HalfSize,
		step:       cfg.Derived.LightCell,
		rng:        rng,
		Multiplier: cfg.Light.Multiplier,
	}
}

// Update recomputes the intensity for the given chunk age:
// base * multiplier * (0.5 + 0.5cos(2*pi*age/period)).
func (l *Light) Update(age int64) float64 {
	wave := 1.0
	if l.cfg.Period > 0 {
		wave = 0.5 + 0.5*math.Cos(2*math.Pi*float64(age)/l.cfg.Period)
	}
	l.Intensity = l.cfg.Intensity * l.Multiplier * wave
	return l.Intensity
}

// Cast fires one ray per grid cell and returns the number of cell hits.
func (l *Light) Cast(engine physics.Engine, lookup CellLookup) int {
	if l.Intensity <= 0 {
		return 0
	}
	hits := 0
	n := l.cfg.Grid
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := -l.half + (float64(i)+l.rng.Float64())*l.step
			y := -l.half + (float64(j)+l.rng.Float64())*l.step
			tag, ok := engine.RayTest(r3.Vec{X: x, Y: y, Z: l.cfg.RayTop}, r3.Vec{X: x, Y: y, Z: l.cfg.RayBottom})
			if !ok {
				continue
			}
			e, ok := lookup.CellAt(tag)
			if !ok {
				continue
			}
			state := l.cells.State.Get(e)
			if !state.Rooted {
				continue
			}
			state.Photons += l.Intensity
			hits++
		}
	}
	return hits
}
