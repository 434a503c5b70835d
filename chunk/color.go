package chunk

import (
	"math"

	"github.com/pthm-cable/bonsai/genome"
)

// Color is a linear RGB triple in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

var (
	colorSeed   = Color{0.80, 0.70, 0.45}
	colorBark   = Color{0.45, 0.32, 0.20}
	colorLeaf   = Color{0.20, 0.65, 0.20}
	colorFlower = Color{0.95, 0.55, 0.75}
)

func (c Color) lerp(o Color, t float64) Color {
	return Color{
		R: c.R + (o.R-c.R)*t,
		G: c.G + (o.G-c.G)*t,
		B: c.B + (o.B-c.B)*t,
	}
}

// cellColor shades a cell by its chloroplast efficiency, tinted towards pink
// while flowering. Unrooted cells show as seeds.
func cellColor(sig *genome.Multiset, rooted bool, chloroplastBase float64) Color {
	if !rooted {
		return colorSeed
	}
	eff := 1 - math.Pow(chloroplastBase, float64(sig.Count(genome.Chloroplast)))
	col := colorBark.lerp(colorLeaf, eff)
	if f := sig.Count(genome.Flower); f > 0 {
		col = col.lerp(colorFlower, 1-math.Pow(0.5, float64(f)))
	}
	return col
}
