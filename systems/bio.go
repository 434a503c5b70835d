package systems

import (
	"math"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/bonsai/components"
	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
)

// SpawnRequest asks the chunk to seed a new plant.
type SpawnRequest struct {
	Parent uint32 // Plant ID of the flowering plant
	Pos    r3.Vec
	Genome *genome.Genome
	Energy float64
}

// BioResult collects the structural changes a bio pass requests. They are
// applied after the pass so new cells never join the current tick.
type BioResult struct {
	Divisions []ecs.Entity // One entry per division, parent cell
	Spawns    []SpawnRequest
	Deaths    []ecs.Entity // Roots that died this pass
	Expressed int          // Genes that fired and paid
}

// BioSystem runs the genetic and growth step for rooted cells.
type BioSystem struct {
	cells *Cells
	rng   genome.Rand
	cfg   *config.Config
}

// NewBioSystem creates a bio system.
func NewBioSystem(cells *Cells, cfg *config.Config, rng genome.Rand) *BioSystem {
	return &BioSystem{cells: cells, cfg: cfg, rng: rng}
}

// Step runs one bio tick for every plant whose root is rooted.
func (s *BioSystem) Step(roots []ecs.Entity) BioResult {
	var res BioResult
	for _, root := range roots {
		if !s.cells.State.Get(root).Rooted {
			continue
		}
		s.stepPlant(root, &res)
	}
	return res
}

func (s *BioSystem) stepPlant(root ecs.Entity, res *BioResult) {
	plant := s.cells.Plant.Get(root)
	if plant.Dead {
		return
	}
	plant.Age++
	start := plant.Energy

	for _, e := range plant.Cells {
		if !s.cells.State.Get(e).Rooted {
			continue
		}
		s.stepCell(e, plant, res)
		if plant.Dead {
			break
		}
	}

	plant.Delta = plant.Energy - start
	if !plant.Dead {
		if limit := s.cfg.Derived.EnergyCap * float64(len(plant.Cells)); plant.Energy > limit {
			plant.Energy = limit
		}
		if plant.Energy <= 0 {
			plant.Kill(components.CauseExhausted)
		}
	}
	if plant.Dead {
		res.Deaths = append(res.Deaths, root)
	}
}

func (s *BioSystem) stepCell(e ecs.Entity, plant *components.Plant, res *BioResult) {
	cfg := s.cfg
	state := s.cells.State.Get(e)
	sig := &s.cells.Signals.Get(e).Multiset
	size := s.cells.Size.Get(e)
	lin := s.cells.Lineage.Get(e)

	state.Age++
	state.Power = 0

	// Static settlement
	eff := 1 - math.Pow(cfg.Energy.ChloroplastBase, float64(sig.Count(genome.Chloroplast)))
	income := state.Photons * eff
	state.Photons = 0
	upkeep := cfg.Energy.BaseUpkeep + cfg.Energy.VolumeUpkeep*size.Volume()
	delta := income - upkeep
	if plant.Energy+delta < 0 {
		plant.Kill(components.CauseStarvation)
		return
	}
	plant.Energy += delta
	state.Power = delta

	// Gene expression
	for _, gene := range lin.Genome.Genes {
		p := ExpressionProbability(gene.When, sig, cfg.Energy.ExpressionBase)
		if s.rng.Float64() >= p {
			continue
		}
		if !plant.Withdraw(float64(len(gene.Emit)) * cfg.Energy.EmitCost) {
			continue
		}
		for _, sg := range gene.Emit {
			sig.Add(sg, 1)
		}
		res.Expressed++
	}

	// Signal-driven effects
	for sig.Count(genome.Remover) > 0 {
		sig.Remove(genome.Remover, 1)
		sig.RemoveWeighted(s.rng)
	}

	step := cfg.Cell.GrowthStep
	size.Grow(
		float64(sig.Clear(genome.GrowX))*step,
		float64(sig.Clear(genome.GrowY))*step,
		float64(sig.Clear(genome.GrowZ))*step,
		cfg.Cell.MaxSize,
	)

	if sig.Count(genome.Diff) >= cfg.Cell.DiffThreshold {
		sig.Remove(genome.Diff, cfg.Cell.DiffThreshold)
		res.Divisions = append(res.Divisions, e)
	}

	if sig.Count(genome.Flower) > 0 && s.rng.Float64() < cfg.Cell.FlowerChance {
		if energy := plant.WithdrawUpTo(cfg.Cell.FlowerWithdraw); energy > 0 {
			res.Spawns = append(res.Spawns, SpawnRequest{
				Parent: plant.ID,
				Pos:    s.cells.Pose.Get(e).Position(),
				Genome: lin.Genome.NaturalClone(s.rng, s.mutation()),
				Energy: energy,
			})
		}
	}
}

func (s *BioSystem) mutation() genome.MutationParams {
	m := s.cfg.Mutation
	return genome.MutationParams{Keep: m.Keep, Duplicate: m.Duplicate, Replace: m.Replace}
}

// ExpressionProbability evaluates a gene's When clause against a multiset.
// Each required signal scales the running probability by
// 0.5 + 0.5(1 - base^count); Invert flips it.
func ExpressionProbability(when []genome.Signal, sig *genome.Multiset, base float64) float64 {
	p := 1.0
	for _, s := range when {
		if s == genome.Invert {
			p = 1 - p
			continue
		}
		p *= 0.5 + 0.5*(1-math.Pow(base, float64(sig.Count(s))))
	}
	return p
}
