package telemetry

import (
	"testing"

	"github.com/pthm-cable/bonsai/config"
)

type fixedIntn int

func (r fixedIntn) Float64() float64 { return 0 }

func (r fixedIntn) Intn(n int) int {
	if int(r) >= n {
		return n - 1
	}
	return int(r)
}

func bankConfig() config.SeedBankConfig {
	return config.SeedBankConfig{
		Size:        3,
		ReseedCount: 2,
		Entry:       config.SeedBankEntry{MinSeedlings: 1, MinAge: 100, MinCells: 4},
		Fitness:     config.SeedBankWeight{SeedlingWeight: 50, AgeWeight: 0.1, CellWeight: 5},
	}
}

func TestSeedBank_EntryCriteria(t *testing.T) {
	bank := NewSeedBank(bankConfig(), fixedIntn(0))

	tests := []struct {
		name  string
		rec   PlantRecord
		stats LifetimeStats
		want  bool
	}{
		{"seedling parent", PlantRecord{ID: 1, Genome: "a:b", Age: 1}, LifetimeStats{Seedlings: 1, PeakCells: 1}, true},
		{"old and large", PlantRecord{ID: 2, Genome: "a:b", Age: 100}, LifetimeStats{PeakCells: 4}, true},
		{"old but small", PlantRecord{ID: 3, Genome: "a:b", Age: 500}, LifetimeStats{PeakCells: 3}, false},
		{"large but young", PlantRecord{ID: 4, Genome: "a:b", Age: 99}, LifetimeStats{PeakCells: 10}, false},
		{"no genome", PlantRecord{ID: 5, Age: 500}, LifetimeStats{Seedlings: 3, PeakCells: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := tt.stats
			if got := bank.Consider(tt.rec, &stats); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestSeedBank_KeepsFittest(t *testing.T) {
	bank := NewSeedBank(bankConfig(), fixedIntn(0))

	for i, seeds := range []int{1, 4, 2, 3} {
		bank.Consider(PlantRecord{ID: uint32(i + 1), Genome: "c:c"}, &LifetimeStats{Seedlings: seeds})
	}

	if bank.Size() != 3 {
		t.Fatalf("expected capacity 3, got %d", bank.Size())
	}
	entries := bank.Entries()
	if entries[0].PlantID != 2 || entries[1].PlantID != 4 || entries[2].PlantID != 3 {
		t.Errorf("expected order 2,4,3, got %d,%d,%d", entries[0].PlantID, entries[1].PlantID, entries[2].PlantID)
	}
	if bank.TopFitness() != 200 {
		t.Errorf("expected top fitness 200, got %v", bank.TopFitness())
	}

	// Worse than everything held
	if bank.Consider(PlantRecord{ID: 9, Genome: "c:c"}, &LifetimeStats{Seedlings: 1}) {
		t.Error("expected a full bank to reject a weaker entry")
	}
}

func TestSeedBank_Sample(t *testing.T) {
	empty := NewSeedBank(bankConfig(), fixedIntn(0))
	if empty.Sample() != nil {
		t.Error("expected nil sample from empty bank")
	}

	bank := NewSeedBank(bankConfig(), fixedIntn(1))
	bank.Consider(PlantRecord{ID: 1, Genome: "c:cc"}, &LifetimeStats{Seedlings: 5})
	bank.Consider(PlantRecord{ID: 2, Genome: "d:dd"}, &LifetimeStats{Seedlings: 1})

	g := bank.Sample()
	if g == nil {
		t.Fatal("expected a genome")
	}
	// Every draw lands on index 1
	if g.Encode() != "d:dd" {
		t.Errorf("expected %q, got %q", "d:dd", g.Encode())
	}
}
