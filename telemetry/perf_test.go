package telemetry

import (
	"testing"
	"time"

	"github.com/pthm-cable/bonsai/systems"
)

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase(systems.PhaseBio)
		time.Sleep(100 * time.Microsecond)
		pc.StartPhase(systems.PhasePhysics)
		time.Sleep(200 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration")
	}
	if _, ok := stats.PhaseAvg[systems.PhaseBio]; !ok {
		t.Error("expected bio phase to be tracked")
	}
	if _, ok := stats.PhaseAvg[systems.PhasePhysics]; !ok {
		t.Error("expected physics phase to be tracked")
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5) // Small window

	for i := 0; i < 10; i++ {
		pc.StartTick()
		pc.StartPhase(systems.PhaseSync)
		pc.EndTick()
	}

	stats := pc.Stats()

	if stats.AvgTickDuration <= 0 {
		t.Error("expected positive average tick duration after window filled")
	}
	if stats.TicksPerSecond <= 0 {
		t.Error("expected positive ticks per second")
	}
}

func TestPerfCollector_PhasePercentages(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := 0; i < 5; i++ {
		pc.StartTick()
		pc.StartPhase("fast")
		time.Sleep(10 * time.Microsecond)
		pc.StartPhase("slow")
		time.Sleep(100 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()

	fastPct := stats.PhasePct["fast"]
	slowPct := stats.PhasePct["slow"]
	if slowPct <= fastPct {
		t.Errorf("expected slow phase (%v%%) > fast phase (%v%%)", slowPct, fastPct)
	}
}

func TestPerfCollector_EmptyStats(t *testing.T) {
	pc := NewPerfCollector(10)

	stats := pc.Stats()

	if stats.AvgTickDuration != 0 {
		t.Error("expected zero avg tick duration for empty collector")
	}
	if stats.PhaseAvg == nil {
		t.Error("expected non-nil PhaseAvg map")
	}
	if stats.PhasePct == nil {
		t.Error("expected non-nil PhasePct map")
	}
}

func TestPerfCollector_LastSample(t *testing.T) {
	pc := NewPerfCollector(3)

	pc.StartTick()
	pc.StartPhase(systems.PhaseLight)
	time.Sleep(50 * time.Microsecond)
	pc.EndTick()

	last := pc.Last()
	if last.TickDuration <= 0 {
		t.Error("expected positive duration for last tick")
	}
	if last.Phases[systems.PhaseLight] <= 0 {
		t.Errorf("expected light phase in last sample, got %v", last.Phases)
	}

	pc.StartTick()
	pc.EndTick()
	if _, ok := pc.Last().Phases[systems.PhaseLight]; ok {
		t.Error("expected last sample to be replaced by the newest tick")
	}
}

func TestPerfStats_ToCSV(t *testing.T) {
	s := PerfStats{
		AvgTickDuration: 2 * time.Millisecond,
		PhasePct:        map[string]float64{systems.PhaseBio: 40, systems.PhasePhysics: 60},
	}
	row := s.ToCSV(100)
	if row.WindowEnd != 100 || row.AvgTickUS != 2000 {
		t.Errorf("expected window 100 and 2000us, got %d and %d", row.WindowEnd, row.AvgTickUS)
	}
	if row.BioPct != 40 || row.PhysicsPct != 60 || row.LightPct != 0 {
		t.Errorf("unexpected phase split %+v", row)
	}
}

func TestPerfCollector_EvictsOldest(t *testing.T) {
	pc := NewPerfCollector(2)

	for _, phase := range []string{"first", "second", "third"} {
		pc.StartTick()
		pc.StartPhase(phase)
		time.Sleep(10 * time.Microsecond)
		pc.EndTick()
	}

	stats := pc.Stats()
	if _, ok := stats.PhaseAvg["first"]; ok {
		t.Error("expected the oldest tick to be evicted from the window")
	}
	if _, ok := stats.PhaseAvg["third"]; !ok {
		t.Error("expected the newest tick in the window")
	}
	if _, ok := pc.Last().Phases["third"]; !ok {
		t.Errorf("expected last sample to be the third tick, got %v", pc.Last().Phases)
	}
}
