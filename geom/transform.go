// Package geom provides rigid transforms built on gonum's r3 vectors and quaternions.
package geom

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Transform is a rigid transform: rotate by Rot, then translate by Pos.
type Transform struct {
	Pos r3.Vec
	Rot quat.Number
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{Rot: quat.Number{Real: 1}}
}

// Translation returns a pure translation.
func Translation(v r3.Vec) Transform {
	return Transform{Pos: v, Rot: quat.Number{Real: 1}}
}

// Rotation returns a pure rotation.
func Rotation(q quat.Number) Transform {
	return Transform{Rot: Normalize(q)}
}

// Mul composes two transforms. The result applies b first, then a.
func Mul(a, b Transform) Transform {
	return Transform{
		Pos: r3.Add(a.Pos, RotateVec(a.Rot, b.Pos)),
		Rot: Normalize(quat.Mul(a.Rot, b.Rot)),
	}
}

// Chain composes transforms left to right, parent first.
func Chain(ts ...Transform) Transform {
	out := Identity()
	for _, t := range ts {
		out = Mul(out, t)
	}
	return out
}

// Inverse returns the inverse transform.
func (t Transform) Inverse() Transform {
	inv := quat.Conj(t.Rot)
	return Transform{
		Pos: r3.Scale(-1, RotateVec(inv, t.Pos)),
		Rot: inv,
	}
}

// Apply maps a point from local to parent space.
func (t Transform) Apply(p r3.Vec) r3.Vec {
	return r3.Add(t.Pos, RotateVec(t.Rot, p))
}

// RotateVec rotates v by the unit quaternion q.
func RotateVec(q quat.Number, v r3.Vec) r3.Vec {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vec{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// AxisAngle returns the rotation of angle radians about axis.
func AxisAngle(axis r3.Vec, angle float64) quat.Number {
	n := r3.Norm(axis)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(angle/2) / n
	return quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
}

// ToAxisAngle decomposes a unit quaternion into a rotation vector (axis * angle)
// using the shortest arc.
func ToAxisAngle(q quat.Number) r3.Vec {
	q = Normalize(q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	v := r3.Vec{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	s := r3.Norm(v)
	if s < 1e-12 {
		return r3.Scale(2, v)
	}
	angle := 2 * math.Atan2(s, q.Real)
	return r3.Scale(angle/s, v)
}

// Normalize returns q scaled to unit length. The zero quaternion maps to identity.
func Normalize(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// Integrate advances orientation q by angular velocity w over dt.
func Integrate(q quat.Number, w r3.Vec, dt float64) quat.Number {
	dq := quat.Mul(quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}, q)
	return Normalize(quat.Add(q, quat.Scale(0.5*dt, dq)))
}
