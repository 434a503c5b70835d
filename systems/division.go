package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
)

// Divide buds a child cell off parent and appends it to the plant.
// Must not be called while a query is open.
func (s *BioSystem) Divide(parent ecs.Entity) ecs.Entity {
	cfg := s.cfg
	psig := &s.cells.Signals.Get(parent).Multiset

	rot := divisionRotation(psig, cfg.Cell.RotationCap)
	child := splitSignals(psig)

	pose := *s.cells.Pose.Get(parent)
	psize := *s.cells.Size.Get(parent)
	plin := *s.cells.Lineage.Get(parent)

	unit := cfg.Cell.UnitSize
	world := geom.Chain(
		pose.World,
		geom.Translation(r3.Vec{Z: psize.Z / 2}),
		geom.Rotation(rot),
		geom.Translation(r3.Vec{Z: unit / 2}),
	)

	// Copy everything out before the structural change.
	e := s.cells.newChild(
		components.Pose{World: world},
		components.Cube(unit),
		components.Signals{Multiset: child},
		components.CellState{Rooted: true},
		components.Lineage{
			Root:      plin.Root,
			Parent:    parent,
			HasParent: true,
			ParentRot: rot,
			Genome:    plin.Genome,
		},
	)

	plant := s.cells.Plant.Get(plin.Root)
	plant.Cells = append(plant.Cells, e)
	return e
}

// splitSignals moves one copy of every present signal into a new multiset.
// The parent keeps count-1 when it had more than two, otherwise loses the
// signal entirely.
func splitSignals(parent *genome.Multiset) genome.Multiset {
	var child genome.Multiset
	for i, n := range parent {
		if n <= 0 {
			continue
		}
		child[i] = 1
		if n > 2 {
			parent[i] = n - 1
		} else {
			parent[i] = 0
		}
	}
	return child
}

// divisionRotation maps the RotX and RotZ counts, each capped, linearly onto
// [0, pi] about the x and z axes.
func divisionRotation(sig *genome.Multiset, limit int) quat.Number {
	if limit <= 0 {
		return quat.Number{Real: 1}
	}
	ax := float64(min(sig.Count(genome.RotX), limit)) / float64(limit) * math.Pi
	az := float64(min(sig.Count(genome.RotZ), limit)) / float64(limit) * math.Pi
	qx := geom.AxisAngle(r3.Vec{X: 1}, ax)
	qz := geom.AxisAngle(r3.Vec{Z: 1}, az)
	return geom.Normalize(quat.Mul(qz, qx))
}
