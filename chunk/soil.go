package chunk

import (
	"github.com/ojrac/opensimplex-go"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/geom"
	"github.com/pthm-cable/bonsai/physics"
)

// SoilBlock is one static box of the chunk floor.
type SoilBlock struct {
	Tag    physics.Tag
	Center r3.Vec
	Half   r3.Vec
}

// Top returns the z of the block's upper face.
func (b SoilBlock) Top() float64 {
	return b.Center.Z + b.Half.Z
}

// GenerateSoil tiles the chunk footprint with a grid of blocks whose top
// faces are jittered around the nominal surface by simplex noise.
func GenerateSoil(cfg config.SoilConfig, size float64, seed int64) []SoilBlock {
	noise := opensimplex.New(seed)
	n := cfg.Grid
	edge := size / float64(n)
	half := size / 2

	blocks := make([]SoilBlock, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			x := -half + (float64(i)+0.5)*edge
			y := -half + (float64(j)+0.5)*edge
			top := cfg.Surface
			if cfg.NoiseAmplitude > 0 {
				top += cfg.NoiseAmplitude * noise.Eval2(x*cfg.NoiseScale, y*cfg.NoiseScale)
			}
			blocks = append(blocks, SoilBlock{
				Center: r3.Vec{X: x, Y: y, Z: top - cfg.Thickness/2},
				Half:   r3.Vec{X: edge / 2, Y: edge / 2, Z: cfg.Thickness / 2},
			})
		}
	}
	return blocks
}

// Pose returns the block's world transform.
func (b SoilBlock) Pose() geom.Transform {
	return geom.Translation(b.Center)
}
