package telemetry

import "github.com/pthm-cable/bonsai/components"

// Collector accumulates events within time windows and produces WindowStats.
// It also owns the lifetime tracker and feeds dead plants to the seed bank.
type Collector struct {
	windowDurationTicks int64
	dt                  float64

	windowStartTick int64

	// Event counters for current window
	births    int
	seedlings int
	divisions int
	deaths    [components.NumDeathCauses]int

	lifetimes *LifetimeTracker
	bank      *SeedBank
}

// NewCollector creates a new stats collector.
// windowTicks: ticks per stats window
// dt: seconds per tick (used for tick-to-time conversion)
// bank may be nil.
func NewCollector(windowTicks int, dt float64, bank *SeedBank) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{
		windowDurationTicks: int64(windowTicks),
		dt:                  dt,
		lifetimes:           NewLifetimeTracker(),
		bank:                bank,
	}
}

// RecordBirth records a new plant. parent is 0 for externally added plants.
func (c *Collector) RecordBirth(id, parent uint32, tick int64) {
	c.births++
	if parent != 0 {
		c.seedlings++
	}
	c.lifetimes.Register(id, tick, parent)
}

// RecordDivision records one cell division in plant id.
func (c *Collector) RecordDivision(id uint32) {
	c.divisions++
	c.lifetimes.RecordDivision(id)
}

// RecordDeath records a plant leaving the chunk and offers it to the seed bank.
func (c *Collector) RecordDeath(rec PlantRecord) {
	if int(rec.Cause) < len(c.deaths) {
		c.deaths[rec.Cause]++
	}
	ls := c.lifetimes.Remove(rec.ID)
	if c.bank != nil && ls != nil {
		c.bank.Consider(rec, ls)
	}
}

// Lifetimes returns the lifetime tracker.
func (c *Collector) Lifetimes() *LifetimeTracker {
	return c.lifetimes
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int64) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Population is the chunk state sampled at flush time.
type Population struct {
	Plants       int
	RootedPlants int
	Cells        int
	Energies     []float64 // Stored energy per plant
	Light        float64
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(currentTick int64, pop Population) WindowStats {
	mean, std, p10, p50, p90 := ComputeEnergyStats(pop.Energies)
	var total float64
	for _, e := range pop.Energies {
		total += e
	}

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Plants:       pop.Plants,
		RootedPlants: pop.RootedPlants,
		Cells:        pop.Cells,

		Births:    c.births,
		Seedlings: c.seedlings,
		Divisions: c.divisions,
		Starved:   c.deaths[components.CauseStarvation],
		Exhausted: c.deaths[components.CauseExhausted],
		Fell:      c.deaths[components.CauseFell],
		Killed:    c.deaths[components.CauseKilled],

		EnergyMean:  mean,
		EnergyStd:   std,
		EnergyP10:   p10,
		EnergyP50:   p50,
		EnergyP90:   p90,
		TotalEnergy: total,

		LightIntensity: pop.Light,
		ActiveLineages: c.lifetimes.ActiveLineageCount(),
	}
	for _, n := range c.deaths {
		stats.Deaths += n
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.births = 0
	c.seedlings = 0
	c.divisions = 0
	c.deaths = [components.NumDeathCauses]int{}

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int64 {
	return c.windowDurationTicks
}
