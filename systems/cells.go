package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/genome"
	"github.com/pthm-cable/bonsai/geom"
)

// Cells bundles the component maps shared by the cell systems. The ark world
// is the cell arena: entities give stable, generation-checked identities.
type Cells struct {
	World *ecs.World

	Pose    *ecs.Map[components.Pose]
	Size    *ecs.Map[components.Size]
	Signals *ecs.Map[components.Signals]
	State   *ecs.Map[components.CellState]
	Lineage *ecs.Map[components.Lineage]
	Plant   *ecs.Map[components.Plant]

	cellMapper *ecs.Map5[
		components.Pose,
		components.Size,
		components.Signals,
		components.CellState,
		components.Lineage,
	]
	rootMapper *ecs.Map6[
		components.Pose,
		components.Size,
		components.Signals,
		components.CellState,
		components.Lineage,
		components.Plant,
	]
	plantFilter ecs.Filter2[components.Lineage, components.Plant]
}

// NewCells creates the maps for w.
func NewCells(w *ecs.World) *Cells {
	return &Cells{
		World:   w,
		Pose:    ecs.NewMap[components.Pose](w),
		Size:    ecs.NewMap[components.Size](w),
		Signals: ecs.NewMap[components.Signals](w),
		State:   ecs.NewMap[components.CellState](w),
		Lineage: ecs.NewMap[components.Lineage](w),
		Plant:   ecs.NewMap[components.Plant](w),
		cellMapper: ecs.NewMap5[
			components.Pose,
			components.Size,
			components.Signals,
			components.CellState,
			components.Lineage,
		](w),
		rootMapper: ecs.NewMap6[
			components.Pose,
			components.Size,
			components.Signals,
			components.CellState,
			components.Lineage,
			components.Plant,
		](w),
		plantFilter: *ecs.NewFilter2[components.Lineage, components.Plant](w),
	}
}

// NewRoot creates the root cell of a new plant. The cell starts unrooted with
// no signals and a unit-cube body.
func (c *Cells) NewRoot(id uint32, pose geom.Transform, unit float64, g *genome.Genome, energy float64) ecs.Entity {
	p := components.Pose{World: pose}
	size := components.Cube(unit)
	sig := components.Signals{}
	state := components.CellState{}
	lin := components.Lineage{Genome: g, ParentRot: pose.Rot}
	plant := components.Plant{ID: id, Energy: energy}

	e := c.rootMapper.NewEntity(&p, &size, &sig, &state, &lin, &plant)

	c.Lineage.Get(e).Root = e
	c.Plant.Get(e).Cells = []ecs.Entity{e}
	return e
}

// newChild creates a non-root cell. Callers append it to the plant.
func (c *Cells) newChild(pose components.Pose, size components.Size, sig components.Signals, state components.CellState, lin components.Lineage) ecs.Entity {
	return c.cellMapper.NewEntity(&pose, &size, &sig, &state, &lin)
}

// RemovePlant deletes every cell of the plant rooted at root.
// Must not be called while a query is open.
func (c *Cells) RemovePlant(root ecs.Entity) int {
	if !c.World.Alive(root) {
		return 0
	}
	cells := append([]ecs.Entity(nil), c.Plant.Get(root).Cells...)
	removed := 0
	for _, e := range cells {
		if c.World.Alive(e) {
			c.World.RemoveEntity(e)
			removed++
		}
	}
	return removed
}

// Roots returns every plant root in the world, in no particular order.
func (c *Cells) Roots() []ecs.Entity {
	var roots []ecs.Entity
	query := c.plantFilter.Query()
	for query.Next() {
		roots = append(roots, query.Entity())
	}
	return roots
}

// LiveCells appends every cell of the given plants to dst, skipping dead plants.
func (c *Cells) LiveCells(dst []ecs.Entity, roots []ecs.Entity) []ecs.Entity {
	for _, root := range roots {
		if !c.World.Alive(root) {
			continue
		}
		plant := c.Plant.Get(root)
		if plant.Dead {
			continue
		}
		dst = append(dst, plant.Cells...)
	}
	return dst
}
