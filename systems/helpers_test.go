package systems

import (
	"testing"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
)

// fixedRand always returns the same draws.
type fixedRand struct {
	f float64
	i int
}

func (r fixedRand) Float64() float64 { return r.f }

func (r fixedRand) Intn(n int) int {
	if r.i >= n {
		return n - 1
	}
	return r.i
}

func newTestCells(t *testing.T) (*Cells, *config.Config) {
	t.Helper()
	cfg := config.Default()
	return NewCells(ecs.NewWorld()), cfg
}

// rootedPlant creates a single-cell plant that is already rooted.
func rootedPlant(cells *Cells, cfg *config.Config, g *genome.Genome, energy float64) ecs.Entity {
	e := cells.NewRoot(1, geom.Identity(), cfg.Cell.UnitSize, g, energy)
	cells.State.Get(e).Rooted = true
	return e
}
