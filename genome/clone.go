package genome

// MutationParams controls NaturalClone.
type MutationParams struct {
	Keep      float64 // Probability an element survives
	Duplicate float64 // Probability an element is copied and appended
	Replace   float64 // Probability a signal is swapped for a random one
}

// DefaultMutation returns the standard ~1% mutation rates.
func DefaultMutation() MutationParams {
	return MutationParams{Keep: 0.99, Duplicate: 0.01, Replace: 0.01}
}

// NaturalClone returns a mutated copy. The same keep/duplicate shuffle is
// applied to the gene list and to every gene's When and Emit lists.
func (g *Genome) NaturalClone(rng Rand, p MutationParams) *Genome {
	cloneSignal := func(s Signal) Signal {
		if rng.Float64() < p.Replace {
			return RandomSignal(rng)
		}
		return s
	}
	cloneGene := func(gene Gene) Gene {
		return Gene{
			When: naturalShuffle(rng, gene.When, p, cloneSignal),
			Emit: naturalShuffle(rng, gene.Emit, p, cloneSignal),
		}
	}
	return &Genome{Genes: naturalShuffle(rng, g.Genes, p, cloneGene)}
}

// naturalShuffle keeps each element with probability p.Keep, then appends a
// copy of each original element with probability p.Duplicate. Every emitted
// element passes through clone.
func naturalShuffle[T any](rng Rand, xs []T, p MutationParams, clone func(T) T) []T {
	out := make([]T, 0, len(xs))
	for _, x := range xs {
		if rng.Float64() < p.Keep {
			out = append(out, clone(x))
		}
	}
	for _, x := range xs {
		if rng.Float64() < p.Duplicate {
			out = append(out, clone(x))
		}
	}
	return out
}
