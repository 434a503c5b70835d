package genome

// starterGenome grows a photosynthesizing stalk that branches and flowers.
//   - chloroplast cells keep producing chloroplasts and grow tall
//   - growth pressure accumulates diff until the cell divides
//   - mature (base material) cells eventually flower
const starterGenome = "c:cz/z:d/zd:dx/i:cc/dd:bv/bc:y/bbd:f/f:r"

// Default returns the built-in starter genome used for seeding a chunk.
func Default() *Genome {
	return MustDecode(starterGenome)
}

// Random builds a genome of n genes with short random When/Emit lists.
func Random(rng Rand, n int) *Genome {
	genes := make([]Gene, n)
	for i := range genes {
		genes[i] = Gene{
			When: randomSignals(rng, 1+rng.Intn(3)),
			Emit: randomSignals(rng, 1+rng.Intn(4)),
		}
	}
	return &Genome{Genes: genes}
}

func randomSignals(rng Rand, n int) []Signal {
	out := make([]Signal, n)
	for i := range out {
		out[i] = RandomSignal(rng)
	}
	return out
}
