// Package telemetry provides population tracking, bookmarking, the seed bank
// and snapshot archives.
package telemetry

import "github.com/pthm-cable/bonsai/components"

// PlantRecord describes a plant at the moment it leaves the chunk.
type PlantRecord struct {
	ID     uint32
	Tick   int64
	Genome string // Encoded genome
	Age    int32  // Bio ticks lived
	Cells  int
	Energy float64
	Cause  components.DeathCause
}
