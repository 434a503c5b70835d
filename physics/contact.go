package physics

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

const (
	contactSlop    = 0.005
	contactPercent = 0.4
)

type contact struct {
	point  r3.Vec // World space
	normal r3.Vec // Points from the static body into the dynamic one
	depth  float64
}

// manifold collects the contacts between one dynamic and one static body.
type manifold struct {
	dyn, static *body
	contacts    []contact
}

var manifoldPool = sync.Pool{
	New: func() any {
		return &manifold{contacts: make([]contact, 0, 8)}
	},
}

func getManifold(dyn, static *body) *manifold {
	m := manifoldPool.Get().(*manifold)
	m.dyn, m.static = dyn, static
	m.contacts = m.contacts[:0]
	return m
}

func putManifold(m *manifold) {
	m.dyn, m.static = nil, nil
	manifoldPool.Put(m)
}

// collide fills m with corner-in-box contacts in both directions.
func collide(m *manifold) bool {
	d, s := m.dyn, m.static
	if r3.Norm(r3.Sub(d.pos, s.pos)) > d.radius+s.radius {
		return false
	}
	for _, c := range d.corners() {
		if n, depth, ok := pointInBox(s, c); ok {
			m.contacts = append(m.contacts, contact{point: c, normal: n, depth: depth})
		}
	}
	for _, c := range s.corners() {
		if n, depth, ok := pointInBox(d, c); ok {
			m.contacts = append(m.contacts, contact{point: c, normal: r3.Scale(-1, n), depth: depth})
		}
	}
	return len(m.contacts) > 0
}

// pointInBox reports whether p lies inside b and, if so, the outward face
// normal of least penetration and the penetration depth.
func pointInBox(b *body, p r3.Vec) (r3.Vec, float64, bool) {
	local := geom.RotateVec(quat.Conj(b.rot), r3.Sub(p, b.pos))
	dx := b.half.X - math.Abs(local.X)
	dy := b.half.Y - math.Abs(local.Y)
	dz := b.half.Z - math.Abs(local.Z)
	if dx <= 0 || dy <= 0 || dz <= 0 {
		return r3.Vec{}, 0, false
	}
	var n r3.Vec
	depth := dz
	n.Z = math.Copysign(1, local.Z)
	if dx < depth {
		depth = dx
		n = r3.Vec{X: math.Copysign(1, local.X)}
	}
	if dy < depth {
		depth = dy
		n = r3.Vec{Y: math.Copysign(1, local.Y)}
	}
	return geom.RotateVec(b.rot, n), depth, true
}

// resolve applies normal and friction impulses for every contact in m.
func resolve(m *manifold, friction float64) {
	b := m.dyn
	for _, c := range m.contacts {
		r := r3.Sub(c.point, b.pos)
		vn := r3.Dot(b.pointVelocity(r), c.normal)
		if vn >= 0 {
			continue
		}
		j := -vn / b.invMassAlong(r, c.normal)
		b.applyImpulse(r3.Scale(j, c.normal), r)

		v := b.pointVelocity(r)
		vt := r3.Sub(v, r3.Scale(r3.Dot(v, c.normal), c.normal))
		speed := r3.Norm(vt)
		if speed < 1e-9 {
			continue
		}
		t := r3.Scale(1/speed, vt)
		jt := math.Min(speed/b.invMassAlong(r, t), friction*j)
		b.applyImpulse(r3.Scale(-jt, t), r)
	}
}

// correct pushes the dynamic body out along the deepest contact.
func correct(m *manifold) {
	deepest := -1
	for i, c := range m.contacts {
		if deepest < 0 || c.depth > m.contacts[deepest].depth {
			deepest = i
		}
	}
	if deepest < 0 {
		return
	}
	c := m.contacts[deepest]
	if c.depth <= contactSlop {
		return
	}
	m.dyn.pos = r3.Add(m.dyn.pos, r3.Scale((c.depth-contactSlop)*contactPercent, c.normal))
}
