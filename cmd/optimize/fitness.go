package main

import (
	"math"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/game"
	"github.com/pthm-cable/bonsai/physics"
	"github.com/pthm-cable/bonsai/telemetry"
)

// FitnessEvaluator scores a parameter vector by running one headless
// simulation per seed. Lower fitness is better.
type FitnessEvaluator struct {
	params   *ParamVector
	base     *config.Config
	seeds    []int64
	maxTicks int64

	mu          sync.Mutex
	bestFitness float64
	bestBank    *telemetry.SeedBank // bank of the best single run in the best evaluation
	lastQuality float64
}

func NewFitnessEvaluator(params *ParamVector, maxTicks int64, seeds []int64, base *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		base:        base,
		seeds:       seeds,
		maxTicks:    maxTicks,
		bestFitness: math.Inf(1),
	}
}

func (fe *FitnessEvaluator) BestSeedBank() *telemetry.SeedBank {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestBank
}

// LastQuality is the mean quality of the most recent Evaluate call.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

type runResult struct {
	survivalTicks int64 // tick the chunk emptied, or maxTicks
	windowStats   []telemetry.WindowStats
	bank          *telemetry.SeedBank
}

// Evaluate runs every seed concurrently and returns the mean fitness.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	runs := make([]*runResult, len(fe.seeds))
	var eg errgroup.Group
	eg.SetLimit(runtime.GOMAXPROCS(0))
	for i, seed := range fe.seeds {
		eg.Go(func() error {
			runs[i] = fe.runSimulation(x, seed)
			return nil
		})
	}
	eg.Wait()

	var sumFitness, sumQuality float64
	runBest := math.Inf(1)
	var runBestBank *telemetry.SeedBank
	for _, r := range runs {
		f := computeFitness(r)
		sumFitness += f
		sumQuality += computeQuality(r.windowStats)
		if f < runBest {
			runBest, runBestBank = f, r.bank
		}
	}
	n := float64(len(runs))
	fitness := sumFitness / n

	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.lastQuality = sumQuality / n
	if fitness < fe.bestFitness {
		fe.bestFitness, fe.bestBank = fitness, runBestBank
	}
	return fitness
}

// runSimulation executes a single headless run until the chunk empties, a
// tick panics, or maxTicks is reached. Reseeding is disabled so extinction
// ends the run.
func (fe *FitnessEvaluator) runSimulation(x []float64, seed int64) *runResult {
	cfg := fe.configCopy()
	fe.params.ApplyToConfig(cfg, x)
	cfg.SeedBank.ReseedCount = 0

	result := &runResult{}
	g, err := game.New(cfg, physics.NewWorld(cfg.Physics), game.Options{
		Seed: seed,
		StatsCallback: func(stats telemetry.WindowStats) {
			result.windowStats = append(result.windowStats, stats)
		},
	})
	if err != nil {
		return result
	}
	defer g.Unload()
	result.bank = g.SeedBank()

	for g.Tick() < fe.maxTicks {
		if _, err := g.SafeStep(); err != nil || g.Plants() == 0 {
			result.survivalTicks = g.Tick()
			return result
		}
	}
	result.survivalTicks = fe.maxTicks
	return result
}

// configCopy copies the base config. Config is plain values, so this is deep.
func (fe *FitnessEvaluator) configCopy() *config.Config {
	cfg := *fe.base
	return &cfg
}

// computeFitness calculates the scalar fitness (lower = better).
// Formula: -(survivalTicks × (1.0 + 0.2 × quality))
func computeFitness(r *runResult) float64 {
	survival := float64(r.survivalTicks)
	quality := computeQuality(r.windowStats)
	return -(survival * (1.0 + 0.2*quality))
}

// Quality component weights.
const (
	qualityWeightPopulation = 0.35
	qualityWeightStability  = 0.25
	qualityWeightSeedlings  = 0.25
	qualityWeightRooted     = 0.15

	qualityWarmupWindows = 3  // skip first N windows (warmup)
	qualityTargetPlants  = 20 // population the score peaks at
)

// computeQuality computes ecosystem quality ∈ [0, 1] from window stats.
func computeQuality(windows []telemetry.WindowStats) float64 {
	if len(windows) <= qualityWarmupWindows {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	var popSum, seedSum, rootedSum float64
	counts := make([]float64, 0, len(valid))
	for _, w := range valid {
		if w.Plants == 0 {
			continue
		}
		counts = append(counts, float64(w.Plants))

		logErr := math.Log(float64(w.Plants) / qualityTargetPlants)
		popSum += math.Exp(-logErr * logErr)

		// Saturates once every plant leaves about one seedling per window.
		seedSum += 1 - math.Exp(-float64(w.Seedlings)/float64(w.Plants))

		rootedSum += float64(w.RootedPlants) / float64(w.Plants)
	}
	if len(counts) == 0 {
		return 0
	}
	n := float64(len(counts))

	stabilityScore := 0.0
	if len(counts) >= 2 {
		c := cv(counts)
		stabilityScore = math.Exp(-c * c)
	}

	quality := qualityWeightPopulation*popSum/n +
		qualityWeightStability*stabilityScore +
		qualityWeightSeedlings*seedSum/n +
		qualityWeightRooted*rootedSum/n
	return clamp01(quality)
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	mean, std := stat.MeanStdDev(values, nil)
	if mean == 0 || math.IsNaN(std) {
		return 0
	}
	return std / mean
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}
