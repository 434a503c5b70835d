package genome

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
)

func TestNaturalShuffle_DropAndDuplicateRates(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	p := DefaultMutation()

	const n = 2000
	const trials = 50
	xs := make([]int, n)
	for i := range xs {
		xs[i] = i
	}

	dropRates := make([]float64, trials)
	dupRates := make([]float64, trials)
	for trial := 0; trial < trials; trial++ {
		out := naturalShuffle(rng, xs, p, func(x int) int { return x })
		seen := make(map[int]int, n)
		for _, x := range out {
			seen[x]++
		}
		dropped := 0
		for _, x := range xs {
			if seen[x] == 0 {
				dropped++
			}
		}
		dropRates[trial] = float64(dropped) / n
		dupRates[trial] = float64(len(out)-(n-dropped)) / n
	}

	if m := stat.Mean(dropRates, nil); math.Abs(m-0.01) > 0.003 {
		t.Errorf("expected drop rate ~0.01, got %.4f", m)
	}
	if m := stat.Mean(dupRates, nil); math.Abs(m-0.01) > 0.003 {
		t.Errorf("expected duplicate rate ~0.01, got %.4f", m)
	}
}

func TestNaturalClone_ReplacementRate(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	p := MutationParams{Keep: 1, Duplicate: 0, Replace: 0.01}

	when := make([]Signal, 1000)
	for i := range when {
		when[i] = Chloroplast
	}
	g := New(Gene{When: when})

	const trials = 50
	rates := make([]float64, trials)
	for trial := 0; trial < trials; trial++ {
		c := g.NaturalClone(rng, p)
		changed := 0
		for _, s := range c.Genes[0].When {
			if s != Chloroplast {
				changed++
			}
		}
		rates[trial] = float64(changed) / float64(len(when))
	}

	// A replacement can draw the same signal again.
	want := 0.01 * float64(NumSignals-1) / NumSignals
	if m := stat.Mean(rates, nil); math.Abs(m-want) > 0.003 {
		t.Errorf("expected replacement rate ~%.4f, got %.4f", want, m)
	}
}

func TestNaturalClone_ExpectedSizePreserved(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	g := Random(rng, 40)
	base := float64(g.Len())

	const trials = 400
	sizes := make([]float64, trials)
	for i := range sizes {
		sizes[i] = float64(g.NaturalClone(rng, DefaultMutation()).Len())
	}
	if m := stat.Mean(sizes, nil); math.Abs(m-base)/base > 0.02 {
		t.Errorf("expected mean size ~%.0f, got %.1f", base, m)
	}
}

func TestNaturalClone_DoesNotAliasParent(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	g := MustDecode("c:cz")
	c := g.NaturalClone(rng, MutationParams{Keep: 1})
	c.Genes[0].When[0] = Flower
	if g.Genes[0].When[0] != Chloroplast {
		t.Error("clone shares storage with parent")
	}
}
