// Command optimize runs CMA-ES over energy, light and growth parameters to
// find configurations where a plant population persists.
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/bonsai/config"
)

type options struct {
	configPath string
	outputDir  string
	maxTicks   int64
	seeds      int
	maxEvals   int
	population int
}

func main() {
	var opts options
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.Int64Var(&opts.maxTicks, "max-ticks", 20000, "Tick cap per simulation run")
	flag.IntVar(&opts.seeds, "seeds", 3, "Runs (seeds) per evaluation")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.StringVar(&opts.outputDir, "output", "", "Directory for the eval log, best config and seed bank")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := run(opts); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func run(opts options) error {
	if opts.outputDir == "" {
		return fmt.Errorf("--output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	params := NewParamVector()
	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = 42 + int64(i)*1000
	}
	evaluator := NewFitnessEvaluator(params, opts.maxTicks, seeds, config.Cfg())

	elog, err := newEvalLog(filepath.Join(opts.outputDir, "optimize_log.csv"), params, opts.maxEvals)
	if err != nil {
		return err
	}
	defer elog.Close()

	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			used := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(used)
			elog.Record(used, fitness, evaluator.LastQuality())
			return fitness
		},
	}

	slog.Info("starting CMA-ES",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", opts.maxEvals,
		"seeds", opts.seeds,
		"max_ticks", opts.maxTicks,
	)
	result, err := optimize.Minimize(problem,
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: opts.maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	best := elog.best
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return fmt.Errorf("no evaluations completed")
	}

	slog.Info("optimization complete",
		"evals", elog.count,
		"elapsed", elog.elapsed().Round(time.Second).String(),
		"best_fitness", elog.bestFitness,
	)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "value", best[i])
	}

	return saveResults(opts, params, best, evaluator)
}

// saveResults writes best_config.yaml and, when the best run banked any
// plants, seed_bank.json.
func saveResults(opts options, params *ParamVector, best []float64, evaluator *FitnessEvaluator) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("reloading config: %w", err)
	}
	params.ApplyToConfig(cfg, best)

	cfgPath := filepath.Join(opts.outputDir, "best_config.yaml")
	if err := cfg.WriteYAML(cfgPath); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	slog.Info("best config saved", "path", cfgPath)

	bank := evaluator.BestSeedBank()
	if bank == nil || bank.Size() == 0 {
		return nil
	}
	data, err := json.MarshalIndent(bank, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling seed bank: %w", err)
	}
	bankPath := filepath.Join(opts.outputDir, "seed_bank.json")
	if err := os.WriteFile(bankPath, data, 0644); err != nil {
		return fmt.Errorf("writing seed bank: %w", err)
	}
	slog.Info("seed bank saved", "path", bankPath, "entries", bank.Size())
	return nil
}

// evalLog appends one CSV row per evaluation and tracks the best vector seen.
type evalLog struct {
	f        *os.File
	w        *csv.Writer
	maxEvals int
	start    time.Time

	count       int
	best        []float64
	bestFitness float64
}

func newEvalLog(path string, params *ParamVector, maxEvals int) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	w := csv.NewWriter(f)
	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing eval log header: %w", err)
	}
	return &evalLog{f: f, w: w, maxEvals: maxEvals, start: time.Now(), bestFitness: math.Inf(1)}, nil
}

func (l *evalLog) elapsed() time.Duration {
	return time.Since(l.start)
}

// Record logs an evaluation of the values actually applied to the config.
func (l *evalLog) Record(values []float64, fitness, quality float64) {
	l.count++
	if fitness < l.bestFitness {
		l.bestFitness = fitness
		l.best = append([]float64(nil), values...)
	}

	row := make([]string, 0, len(values)+2)
	row = append(row, strconv.Itoa(l.count), strconv.FormatFloat(fitness, 'f', 6, 64))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	l.w.Write(row)
	l.w.Flush()

	elapsed := l.elapsed()
	eta := time.Duration(l.maxEvals-l.count) * (elapsed / time.Duration(l.count))
	slog.Info("eval",
		"n", l.count,
		"of", l.maxEvals,
		"survived_ticks", int64(survivalFromFitness(fitness, quality)),
		"quality", quality,
		"best", l.bestFitness,
		"elapsed", elapsed.Round(time.Second).String(),
		"eta", eta.Round(time.Second).String(),
	)
}

func (l *evalLog) Close() error {
	l.w.Flush()
	return l.f.Close()
}

// survivalFromFitness inverts computeFitness for progress output.
func survivalFromFitness(fitness, quality float64) float64 {
	return -fitness / (1.0 + 0.2*quality)
}
