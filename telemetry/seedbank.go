package telemetry

import (
	"encoding/json"
	"sort"

	"github.com/pthm-cable/bonsai/config"
	"github.com/pthm-cable/bonsai/genome"
)

// BankEntry is a genome that proved itself, with the record that earned its place.
type BankEntry struct {
	PlantID   uint32  `json:"plant_id"`
	Genome    string  `json:"genome"`
	Fitness   float64 `json:"fitness"`
	Age       int32   `json:"age"`
	PeakCells int     `json:"peak_cells"`
	Seedlings int     `json:"seedlings"`
	Lineage   uint32  `json:"lineage"`
}

// SeedBank keeps the fittest genomes of dead plants for reseeding an empty chunk.
// Entries are sorted by descending fitness.
type SeedBank struct {
	entries []BankEntry
	cfg     config.SeedBankConfig
	rng     genome.Rand
}

// NewSeedBank creates an empty bank.
func NewSeedBank(cfg config.SeedBankConfig, rng genome.Rand) *SeedBank {
	return &SeedBank{
		entries: make([]BankEntry, 0, cfg.Size),
		cfg:     cfg,
		rng:     rng,
	}
}

// Consider evaluates a dead plant for entry.
// Returns true if the plant was added to the bank.
func (b *SeedBank) Consider(rec PlantRecord, stats *LifetimeStats) bool {
	if b.cfg.Size <= 0 || rec.Genome == "" || !b.meetsEntryCriteria(rec, stats) {
		return false
	}

	entry := BankEntry{
		PlantID:   rec.ID,
		Genome:    rec.Genome,
		Fitness:   b.fitness(rec, stats),
		Age:       rec.Age,
		PeakCells: stats.PeakCells,
		Seedlings: stats.Seedlings,
		Lineage:   stats.Lineage,
	}

	// Sorted descending by fitness
	idx := sort.Search(len(b.entries), func(i int) bool {
		return b.entries[i].Fitness < entry.Fitness
	})
	if idx >= b.cfg.Size {
		return false
	}
	b.entries = append(b.entries, BankEntry{})
	copy(b.entries[idx+1:], b.entries[idx:])
	b.entries[idx] = entry
	if len(b.entries) > b.cfg.Size {
		b.entries = b.entries[:b.cfg.Size]
	}
	return true
}

func (b *SeedBank) meetsEntryCriteria(rec PlantRecord, stats *LifetimeStats) bool {
	e := b.cfg.Entry
	if stats.Seedlings >= e.MinSeedlings && e.MinSeedlings > 0 {
		return true
	}
	return rec.Age >= e.MinAge && stats.PeakCells >= e.MinCells
}

func (b *SeedBank) fitness(rec PlantRecord, stats *LifetimeStats) float64 {
	w := b.cfg.Fitness
	return float64(stats.Seedlings)*w.SeedlingWeight +
		float64(rec.Age)*w.AgeWeight +
		float64(stats.PeakCells)*w.CellWeight
}

// Sample selects a genome using tournament selection.
// Returns nil if the bank is empty.
func (b *SeedBank) Sample() *genome.Genome {
	if len(b.entries) == 0 {
		return nil
	}

	// Tournament selection with k=3
	const tournamentSize = 3
	best := -1
	for i := 0; i < tournamentSize; i++ {
		idx := b.rng.Intn(len(b.entries))
		if best < 0 || b.entries[idx].Fitness > b.entries[best].Fitness {
			best = idx
		}
	}

	// Entries are only admitted from encoded genomes, so they decode.
	return genome.MustDecode(b.entries[best].Genome)
}

// Size returns the number of entries.
func (b *SeedBank) Size() int {
	return len(b.entries)
}

// TopFitness returns the highest fitness in the bank, or 0 if empty.
func (b *SeedBank) TopFitness() float64 {
	if len(b.entries) == 0 {
		return 0
	}
	return b.entries[0].Fitness
}

// Entries returns the bank contents, best first.
func (b *SeedBank) Entries() []BankEntry {
	return b.entries
}

// MarshalJSON serializes the bank.
func (b *SeedBank) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.entries)
}
