package chunk

import (
	"github.com/pthm-cable/bonsai/geom"
)

// Snapshot is a read-only view of the chunk.
type Snapshot struct {
	Age            int64           `json:"age"`
	LightIntensity float64         `json:"light_intensity"`
	Plants         []PlantSnapshot `json:"plants"`
	Soil           []BoxSnapshot   `json:"soil"`
	Stats          Aggregate       `json:"stats"`
}

// PlantSnapshot is one plant's geometry.
type PlantSnapshot struct {
	ID     uint32         `json:"id"`
	Genome string         `json:"genome"`
	Cells  []CellSnapshot `json:"cells"`
}

// CellSnapshot is one cell's world transform, size and display color.
// Rotation is a unit quaternion ordered w, x, y, z.
type CellSnapshot struct {
	Position [3]float64 `json:"position"`
	Rotation [4]float64 `json:"rotation"`
	Size     [3]float64 `json:"size"`
	Color    Color      `json:"color"`
}

// BoxSnapshot is an axis-aligned soil block.
type BoxSnapshot struct {
	Position [3]float64 `json:"position"`
	Size     [3]float64 `json:"size"`
}

// Aggregate holds chunk-wide totals.
type Aggregate struct {
	Age    int64   `json:"age"`
	Plants int     `json:"plants"`
	Cells  int     `json:"cells"`
	Energy float64 `json:"energy"`
}

// Serialize captures the current state without mutating it.
func (c *Chunk) Serialize() Snapshot {
	snap := Snapshot{
		Age:            c.age,
		LightIntensity: c.light.Intensity,
		Plants:         make([]PlantSnapshot, 0, len(c.plants)),
		Soil:           make([]BoxSnapshot, 0, len(c.soil)),
		Stats:          Aggregate{Age: c.age, Plants: len(c.plants)},
	}
	base := c.cfg.Energy.ChloroplastBase

	for _, root := range c.plants {
		plant := c.cells.Plant.Get(root)
		ps := PlantSnapshot{
			ID:     plant.ID,
			Genome: c.cells.Lineage.Get(root).Genome.Encode(),
			Cells:  make([]CellSnapshot, 0, len(plant.Cells)),
		}
		for _, e := range plant.Cells {
			world := c.cells.Pose.Get(e).World
			size := c.cells.Size.Get(e)
			sig := &c.cells.Signals.Get(e).Multiset
			ps.Cells = append(ps.Cells, CellSnapshot{
				Position: vec3(world),
				Rotation: [4]float64{world.Rot.Real, world.Rot.Imag, world.Rot.Jmag, world.Rot.Kmag},
				Size:     [3]float64{size.X, size.Y, size.Z},
				Color:    cellColor(sig, c.cells.State.Get(e).Rooted, base),
			})
		}
		snap.Stats.Cells += len(plant.Cells)
		snap.Stats.Energy += plant.Energy
		snap.Plants = append(snap.Plants, ps)
	}

	for _, b := range c.soil {
		snap.Soil = append(snap.Soil, BoxSnapshot{
			Position: [3]float64{b.Center.X, b.Center.Y, b.Center.Z},
			Size:     [3]float64{2 * b.Half.X, 2 * b.Half.Y, 2 * b.Half.Z},
		})
	}
	return snap
}

func vec3(t geom.Transform) [3]float64 {
	return [3]float64{t.Pos.X, t.Pos.Y, t.Pos.Z}
}
