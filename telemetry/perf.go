package telemetry

import (
	"log/slog"
	"time"

	"github.com/pthm-cable/bonsai/systems"
)

// Phases lists the step phases in pipeline order.
var Phases = systems.NewSystemRegistry().IDs()

// PerfSample is the timing of one tick, split by phase.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector keeps the last N tick samples in a ring.
type PerfCollector struct {
	ring []PerfSample
	next int

	cur        PerfSample
	tickStart  time.Time
	phase      string
	phaseStart time.Time
}

// NewPerfCollector returns a collector averaging over window ticks
// (60 when window < 1).
func NewPerfCollector(window int) *PerfCollector {
	if window < 1 {
		window = 60
	}
	return &PerfCollector{ring: make([]PerfSample, 0, window)}
}

func (p *PerfCollector) StartTick() {
	p.tickStart = time.Now()
	p.cur = PerfSample{Phases: make(map[string]time.Duration, len(Phases))}
	p.phase = ""
}

// StartPhase closes the running phase, if any, and opens the named one.
func (p *PerfCollector) StartPhase(phase string) {
	now := time.Now()
	p.closePhase(now)
	p.phase, p.phaseStart = phase, now
}

func (p *PerfCollector) closePhase(now time.Time) {
	if p.phase != "" {
		p.cur.Phases[p.phase] += now.Sub(p.phaseStart)
	}
}

// EndTick records the tick into the ring, evicting the oldest sample once full.
func (p *PerfCollector) EndTick() {
	now := time.Now()
	p.closePhase(now)
	p.phase = ""
	p.cur.TickDuration = now.Sub(p.tickStart)

	if len(p.ring) < cap(p.ring) {
		p.ring = append(p.ring, p.cur)
	} else {
		p.ring[p.next] = p.cur
	}
	p.next = (p.next + 1) % cap(p.ring)
}

// Last returns the most recently completed tick.
func (p *PerfCollector) Last() PerfSample {
	if len(p.ring) == 0 {
		return PerfSample{}
	}
	i := p.next - 1
	if i < 0 {
		i = len(p.ring) - 1
	}
	return p.ring[i]
}

// PerfStats summarises the ticks currently in the window.
type PerfStats struct {
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	PhaseAvg map[string]time.Duration
	PhasePct map[string]float64 // share of the average tick, 0..100

	TicksPerSecond float64
}

func (p *PerfCollector) Stats() PerfStats {
	s := PerfStats{
		PhaseAvg: make(map[string]time.Duration),
		PhasePct: make(map[string]float64),
	}
	n := time.Duration(len(p.ring))
	if n == 0 {
		return s
	}

	var total time.Duration
	for i, sample := range p.ring {
		total += sample.TickDuration
		if i == 0 || sample.TickDuration < s.MinTickDuration {
			s.MinTickDuration = sample.TickDuration
		}
		s.MaxTickDuration = max(s.MaxTickDuration, sample.TickDuration)
		for phase, d := range sample.Phases {
			s.PhaseAvg[phase] += d
		}
	}
	s.AvgTickDuration = total / n
	for phase, sum := range s.PhaseAvg {
		s.PhaseAvg[phase] = sum / n
	}

	if s.AvgTickDuration > 0 {
		for phase, avg := range s.PhaseAvg {
			s.PhasePct[phase] = 100 * float64(avg) / float64(s.AvgTickDuration)
		}
		s.TicksPerSecond = float64(time.Second) / float64(s.AvgTickDuration)
	}
	return s
}

// LogStats logs the summary at info level.
func (s PerfStats) LogStats() {
	slog.Info("perf", "perf", s)
}

// LogValue implements slog.LogValuer.
func (s PerfStats) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 4+len(Phases))
	attrs = append(attrs,
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	)
	for _, phase := range Phases {
		attrs = append(attrs, slog.Float64(phase+"_pct", s.PhasePct[phase]))
	}
	return slog.GroupValue(attrs...)
}

// PerfStatsCSV is one perf.csv row.
type PerfStatsCSV struct {
	WindowEnd   int64   `csv:"window_end"`
	AvgTickUS   int64   `csv:"avg_tick_us"`
	MinTickUS   int64   `csv:"min_tick_us"`
	MaxTickUS   int64   `csv:"max_tick_us"`
	TicksPerSec float64 `csv:"ticks_per_sec"`
	BioPct      float64 `csv:"bio_pct"`
	SyncPct     float64 `csv:"sync_pct"`
	LightPct    float64 `csv:"light_pct"`
	PhysicsPct  float64 `csv:"physics_pct"`
	DespawnPct  float64 `csv:"despawn_pct"`
}

// ToCSV flattens s into a row stamped with the window's end tick.
func (s PerfStats) ToCSV(windowEnd int64) PerfStatsCSV {
	pct := s.PhasePct
	return PerfStatsCSV{
		WindowEnd:   windowEnd,
		AvgTickUS:   s.AvgTickDuration.Microseconds(),
		MinTickUS:   s.MinTickDuration.Microseconds(),
		MaxTickUS:   s.MaxTickDuration.Microseconds(),
		TicksPerSec: s.TicksPerSecond,
		BioPct:      pct[systems.PhaseBio],
		SyncPct:     pct[systems.PhaseSync],
		LightPct:    pct[systems.PhaseLight],
		PhysicsPct:  pct[systems.PhasePhysics],
		DespawnPct:  pct[systems.PhaseDespawn],
	}
}
