package chunk

import "fmt"

// PlantDetail is the inspection view of one plant.
type PlantDetail struct {
	ID        uint32       `json:"id"`
	CellCount int          `json:"cell_count"`
	Age       int32        `json:"age"`
	Energy    float64      `json:"energy"`
	Delta     float64      `json:"delta"`
	Genome    string       `json:"genome"`
	Rooted    bool         `json:"rooted"`
	Cells     []CellDetail `json:"cells"`
}

// CellDetail holds one cell's signal multiset and local state.
type CellDetail struct {
	Signals map[string]int `json:"signals"`
	Age     int32          `json:"age"`
	Rooted  bool           `json:"rooted"`
	Power   float64        `json:"power"` // Net energy contribution last tick
	Size    [3]float64     `json:"size"`
}

// Inspect returns per-plant detail for id.
func (c *Chunk) Inspect(id uint32) (PlantDetail, error) {
	root, ok := c.byID[id]
	if !ok {
		return PlantDetail{}, fmt.Errorf("%w: %d", ErrUnknownPlant, id)
	}
	plant := c.cells.Plant.Get(root)
	d := PlantDetail{
		ID:        plant.ID,
		CellCount: len(plant.Cells),
		Age:       plant.Age,
		Energy:    plant.Energy,
		Delta:     plant.Delta,
		Genome:    c.cells.Lineage.Get(root).Genome.Encode(),
		Rooted:    c.cells.State.Get(root).Rooted,
		Cells:     make([]CellDetail, 0, len(plant.Cells)),
	}
	for _, e := range plant.Cells {
		state := c.cells.State.Get(e)
		size := c.cells.Size.Get(e)
		d.Cells = append(d.Cells, CellDetail{
			Signals: c.cells.Signals.Get(e).Map(),
			Age:     state.Age,
			Rooted:  state.Rooted,
			Power:   state.Power,
			Size:    [3]float64{size.X, size.Y, size.Z},
		})
	}
	return d, nil
}
