package telemetry

import (
	"log/slog"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats is one telemetry window: the census at its end plus the
// events counted during it. Field tags define the telemetry.csv columns.
type WindowStats struct {
	WindowStartTick int64   `csv:"-"`
	WindowEndTick   int64   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	// Population at window end
	Plants       int `csv:"plants"`
	RootedPlants int `csv:"rooted_plants"`
	Cells        int `csv:"cells"`

	// Events during window
	Births    int `csv:"births"`    // All new plants
	Seedlings int `csv:"seedlings"` // Births from flowering
	Divisions int `csv:"divisions"`
	Deaths    int `csv:"deaths"`
	Starved   int `csv:"starved"`
	Exhausted int `csv:"exhausted"`
	Fell      int `csv:"fell"`
	Killed    int `csv:"killed"`

	// Energy distribution across plants (sampled at window end)
	EnergyMean  float64 `csv:"energy_mean"`
	EnergyStd   float64 `csv:"energy_std"`
	EnergyP10   float64 `csv:"energy_p10"`
	EnergyP50   float64 `csv:"energy_p50"`
	EnergyP90   float64 `csv:"energy_p90"`
	TotalEnergy float64 `csv:"total_energy"`

	LightIntensity float64 `csv:"light"`
	ActiveLineages int     `csv:"active_lineages"`
}

// Percentile returns the p-th quantile (p in [0, 1]) of an ascending slice,
// interpolating linearly between neighbours. Empty input yields 0.
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	last := len(sorted) - 1
	pos := min(max(p, 0), 1) * float64(last)
	lo := int(math.Floor(pos))
	if lo >= last {
		return sorted[last]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// ComputeEnergyStats returns the mean, sample standard deviation and the
// 10th/50th/90th percentiles of values. values is not modified.
func ComputeEnergyStats(values []float64) (mean, std, p10, p50, p90 float64) {
	switch len(values) {
	case 0:
		return
	case 1:
		mean = values[0]
	default:
		mean, std = stat.MeanStdDev(values, nil)
	}

	sorted := slices.Sorted(slices.Values(values))
	return mean, std, Percentile(sorted, 0.10), Percentile(sorted, 0.50), Percentile(sorted, 0.90)
}

// LogValue implements slog.LogValuer.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("plants", s.Plants),
		slog.Int("rooted_plants", s.RootedPlants),
		slog.Int("cells", s.Cells),
		slog.Int("births", s.Births),
		slog.Int("seedlings", s.Seedlings),
		slog.Int("divisions", s.Divisions),
		slog.Int("deaths", s.Deaths),
		slog.Int("starved", s.Starved),
		slog.Int("exhausted", s.Exhausted),
		slog.Int("fell", s.Fell),
		slog.Int("killed", s.Killed),
		slog.Float64("energy_mean", s.EnergyMean),
		slog.Float64("energy_std", s.EnergyStd),
		slog.Float64("energy_p10", s.EnergyP10),
		slog.Float64("energy_p50", s.EnergyP50),
		slog.Float64("energy_p90", s.EnergyP90),
		slog.Float64("total_energy", s.TotalEnergy),
		slog.Float64("light", s.LightIntensity),
		slog.Int("active_lineages", s.ActiveLineages),
	)
}

// LogStats logs the window at info level.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}
