package components

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

// Pose is a cell's world transform, copied back from physics every tick.
type Pose struct {
	World geom.Transform
}

// Position returns the cell center.
func (p *Pose) Position() r3.Vec {
	return p.World.Pos
}

// InNode returns the world frame of the attachment point towards the parent
// (or soil), half a unit cell below the center along local z.
func (p *Pose) InNode(unit float64) geom.Transform {
	return geom.Mul(p.World, geom.Translation(r3.Vec{Z: -unit / 2}))
}

// OutNode returns the world frame children attach to, at the top face.
func (p *Pose) OutNode(s Size) geom.Transform {
	return geom.Mul(p.World, geom.Translation(r3.Vec{Z: s.Z / 2}))
}
