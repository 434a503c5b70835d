package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

// minHalfExtent keeps inertia finite for degenerate boxes.
const minHalfExtent = 1e-3

type body struct {
	tag    Tag
	half   r3.Vec
	radius float64 // Bounding sphere
	static bool

	invMass    float64
	invInertia r3.Vec // Principal axes, local space

	pos    r3.Vec
	rot    quat.Number
	vel    r3.Vec
	angVel r3.Vec

	springs int // Constraints referencing this body
}

func newBody(desc BodyDesc) *body {
	b := &body{
		tag:    desc.Tag,
		static: desc.Static,
		pos:    desc.Pose.Pos,
		rot:    geom.Normalize(desc.Pose.Rot),
	}
	b.setShape(desc.HalfExtents, desc.Mass)
	return b
}

// setShape updates extents and mass properties without touching motion state.
func (b *body) setShape(half r3.Vec, mass float64) {
	b.half = r3.Vec{
		X: math.Max(half.X, minHalfExtent),
		Y: math.Max(half.Y, minHalfExtent),
		Z: math.Max(half.Z, minHalfExtent),
	}
	b.radius = r3.Norm(b.half)
	if b.static || mass <= 0 {
		b.invMass = 0
		b.invInertia = r3.Vec{}
		return
	}
	b.invMass = 1 / mass
	x2, y2, z2 := b.half.X*b.half.X, b.half.Y*b.half.Y, b.half.Z*b.half.Z
	// Solid box: I = m/3 * (b² + c²) with half extents
	b.invInertia = r3.Vec{
		X: 3 / (mass * (y2 + z2)),
		Y: 3 / (mass * (x2 + z2)),
		Z: 3 / (mass * (x2 + y2)),
	}
}

func (b *body) pose() geom.Transform {
	return geom.Transform{Pos: b.pos, Rot: b.rot}
}

// applyInvInertia multiplies a world-space vector by the world inverse inertia.
func (b *body) applyInvInertia(v r3.Vec) r3.Vec {
	local := geom.RotateVec(quat.Conj(b.rot), v)
	local = r3.Vec{
		X: local.X * b.invInertia.X,
		Y: local.Y * b.invInertia.Y,
		Z: local.Z * b.invInertia.Z,
	}
	return geom.RotateVec(b.rot, local)
}

// applyImpulse applies impulse j at offset r from the center of mass.
func (b *body) applyImpulse(j, r r3.Vec) {
	if b.static {
		return
	}
	b.vel = r3.Add(b.vel, r3.Scale(b.invMass, j))
	b.angVel = r3.Add(b.angVel, b.applyInvInertia(r3.Cross(r, j)))
}

// applyAngularImpulse applies a pure angular impulse.
func (b *body) applyAngularImpulse(l r3.Vec) {
	if b.static {
		return
	}
	b.angVel = r3.Add(b.angVel, b.applyInvInertia(l))
}

// pointVelocity returns the velocity of a point at offset r.
func (b *body) pointVelocity(r r3.Vec) r3.Vec {
	return r3.Add(b.vel, r3.Cross(b.angVel, r))
}

// invMassAlong returns the inverse effective mass along n at offset r.
func (b *body) invMassAlong(r, n r3.Vec) float64 {
	if b.static {
		return 0
	}
	rn := r3.Cross(r, n)
	return b.invMass + r3.Dot(rn, b.applyInvInertia(rn))
}

// maxInvInertia is a scalar stand-in for the inverse inertia tensor.
func (b *body) maxInvInertia() float64 {
	return math.Max(b.invInertia.X, math.Max(b.invInertia.Y, b.invInertia.Z))
}

func (b *body) integrate(h, linDamp, angDamp float64) {
	if b.static {
		return
	}
	b.vel = r3.Scale(math.Pow(1-linDamp, h), b.vel)
	b.angVel = r3.Scale(math.Pow(1-angDamp, h), b.angVel)
	b.pos = r3.Add(b.pos, r3.Scale(h, b.vel))
	b.rot = geom.Integrate(b.rot, b.angVel, h)
}

// corners returns the eight box corners in world space.
func (b *body) corners() [8]r3.Vec {
	var out [8]r3.Vec
	for i := range out {
		local := r3.Vec{X: b.half.X, Y: b.half.Y, Z: b.half.Z}
		if i&1 != 0 {
			local.X = -local.X
		}
		if i&2 != 0 {
			local.Y = -local.Y
		}
		if i&4 != 0 {
			local.Z = -local.Z
		}
		out[i] = r3.Add(b.pos, geom.RotateVec(b.rot, local))
	}
	return out
}
