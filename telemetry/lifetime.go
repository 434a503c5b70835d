package telemetry

// LifetimeStats tracks per-plant statistics over its lifetime.
type LifetimeStats struct {
	BirthTick int64
	Parent    uint32 // Flowering parent (0 = seeded externally)
	Lineage   uint32 // ID of the externally seeded ancestor

	Divisions int
	Seedlings int // Successful seeds dropped

	PeakCells  int
	PeakEnergy float64
}

// LifetimeTracker manages per-plant lifetime statistics.
type LifetimeTracker struct {
	stats map[uint32]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[uint32]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new plant. A plant with a tracked
// parent inherits the parent's lineage and counts as one of its seedlings.
func (lt *LifetimeTracker) Register(id uint32, birthTick int64, parent uint32) {
	s := &LifetimeStats{
		BirthTick: birthTick,
		Parent:    parent,
		Lineage:   id,
		PeakCells: 1,
	}
	if p := lt.stats[parent]; parent != 0 && p != nil {
		s.Lineage = p.Lineage
		p.Seedlings++
	}
	lt.stats[id] = s
}

// Get returns the lifetime stats for a plant, or nil if not found.
func (lt *LifetimeTracker) Get(id uint32) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes a plant's stats and returns them.
func (lt *LifetimeTracker) Remove(id uint32) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordDivision increments the division count.
func (lt *LifetimeTracker) RecordDivision(id uint32) {
	if s := lt.stats[id]; s != nil {
		s.Divisions++
	}
}

// Update tracks peak cell count and energy.
func (lt *LifetimeTracker) Update(id uint32, cells int, energy float64) {
	if s := lt.stats[id]; s != nil {
		if cells > s.PeakCells {
			s.PeakCells = cells
		}
		if energy > s.PeakEnergy {
			s.PeakEnergy = energy
		}
	}
}

// Count returns the number of tracked plants.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

// ActiveLineageCount returns the number of distinct lineages among living plants.
func (lt *LifetimeTracker) ActiveLineageCount() int {
	seen := make(map[uint32]struct{})
	for _, stats := range lt.stats {
		seen[stats.Lineage] = struct{}{}
	}
	return len(seen)
}
