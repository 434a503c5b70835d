package physics

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/geom"
)

// rayBox intersects the segment from + t*dir, t in [0, 1], with b using the
// slab method in the box's local frame. It returns the entry parameter.
func rayBox(b *body, from, dir r3.Vec) (float64, bool) {
	inv := quat.Conj(b.rot)
	o := geom.RotateVec(inv, r3.Sub(from, b.pos))
	d := geom.RotateVec(inv, dir)

	tmin, tmax := 0.0, 1.0
	axes := [3][3]float64{
		{o.X, d.X, b.half.X},
		{o.Y, d.Y, b.half.Y},
		{o.Z, d.Z, b.half.Z},
	}
	for _, ax := range axes {
		origin, delta, half := ax[0], ax[1], ax[2]
		if math.Abs(delta) < 1e-12 {
			if math.Abs(origin) > half {
				return 0, false
			}
			continue
		}
		t1 := (-half - origin) / delta
		t2 := (half - origin) / delta
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// segmentNearSphere is a cheap reject before the slab test.
func segmentNearSphere(from, dir, center r3.Vec, radius float64) bool {
	l2 := r3.Dot(dir, dir)
	t := 0.0
	if l2 > 0 {
		t = math.Min(math.Max(r3.Dot(r3.Sub(center, from), dir)/l2, 0), 1)
	}
	closest := r3.Add(from, r3.Scale(t, dir))
	return r3.Norm(r3.Sub(center, closest)) <= radius
}
