package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

type spring struct {
	id     ConstraintID
	desc   SpringDesc
	a, b   *body
	broken bool
}

// apply runs one substep of the spring: a linear spring-damper between the
// two frame origins and an angular one between their orientations, each with
// a per-axis dead zone of desc.Limit. It returns the linear impulse applied.
func (s *spring) apply(h float64) float64 {
	if s.broken {
		return 0
	}
	a, b := s.a, s.b
	invMass := a.invMass + b.invMass
	if invMass == 0 {
		return 0
	}

	fa := geom.Mul(a.pose(), s.desc.FrameA)
	fb := geom.Mul(b.pose(), s.desc.FrameB)
	ra := r3.Sub(fa.Pos, a.pos)
	rb := r3.Sub(fb.Pos, b.pos)

	// Linear, measured in frame A's axes.
	d := deadZone(fa.Rot, r3.Sub(fb.Pos, fa.Pos), s.desc.Limit)
	dv := r3.Sub(b.pointVelocity(rb), a.pointVelocity(ra))
	k := s.desc.Stiffness
	c := 2 * s.desc.Damping * math.Sqrt(k/invMass)
	j := r3.Scale(h, r3.Add(r3.Scale(k, d), r3.Scale(c, dv)))
	a.applyImpulse(j, ra)
	b.applyImpulse(r3.Scale(-1, j), rb)

	// Angular: rotation taking frame A onto frame B, in world space.
	e := geom.ToAxisAngle(quat.Mul(fb.Rot, quat.Conj(fa.Rot)))
	e = deadZone(fa.Rot, e, s.desc.Limit)
	dw := r3.Sub(b.angVel, a.angVel)
	invI := a.maxInvInertia() + b.maxInvInertia()
	if invI > 0 {
		ka := s.desc.AngularStiffness
		ca := 2 * s.desc.Damping * math.Sqrt(ka/invI)
		l := r3.Scale(h, r3.Add(r3.Scale(ka, e), r3.Scale(ca, dw)))
		a.applyAngularImpulse(l)
		b.applyAngularImpulse(r3.Scale(-1, l))
	}

	impulse := r3.Norm(j)
	if s.desc.BreakingImpulse > 0 && impulse > s.desc.BreakingImpulse {
		s.broken = true
	}
	return impulse
}

// deadZone shrinks each component of v, expressed in the frame rot, towards
// zero by limit and returns the result in world space.
func deadZone(rot quat.Number, v r3.Vec, limit float64) r3.Vec {
	if limit <= 0 {
		return v
	}
	local := geom.RotateVec(quat.Conj(rot), v)
	local = r3.Vec{X: shrink(local.X, limit), Y: shrink(local.Y, limit), Z: shrink(local.Z, limit)}
	return geom.RotateVec(rot, local)
}

func shrink(x, limit float64) float64 {
	switch {
	case x > limit:
		return x - limit
	case x < -limit:
		return x + limit
	}
	return 0
}
