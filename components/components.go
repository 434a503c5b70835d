// Package components defines ECS components for plant cells.
//
// Every cell is an ark entity carrying Pose, Size, Signals, CellState and
// Lineage. The root cell of a plant additionally carries Plant.
package components

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/num/quat"

	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
)

// Signals holds a cell's signal multiset.
type Signals struct {
	genome.Multiset
}

// CellState holds per-tick biological state.
type CellState struct {
	Age     int32
	Rooted  bool
	Photons float64 // Accumulated since the last bio step
	Power   float64 // Net static energy delta applied this tick
}

// Lineage links a cell into its plant tree.
type Lineage struct {
	Root      ecs.Entity // Root cell of the plant (self for roots)
	Parent    ecs.Entity // Valid only when HasParent
	HasParent bool

	// ParentRot orients the in-node relative to the parent's out-node, or the
	// world orientation captured at first soil contact for root cells.
	ParentRot quat.Number

	Genome *genome.Genome // Shared by every cell of the plant

	// Soil attachment, set when a root cell first touches soil.
	SoilTag    uint32
	SoilAnchor geom.Transform // In-node frame in the soil body's local space
	HasSoil    bool
}

// IsRoot reports whether the cell is a plant root.
func (l *Lineage) IsRoot() bool {
	return !l.HasParent
}
