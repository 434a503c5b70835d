package components

// DeathCause records why a plant was removed.
type DeathCause uint8

const (
	CauseNone       DeathCause = iota
	CauseStarvation            // Upkeep exceeded the energy pool
	CauseExhausted             // Energy at or below zero after the tick
	CauseFell                  // Root fell below the despawn height
	CauseKilled                // Removed on request

	NumDeathCauses = iota
)

// String returns the snake_case name used in logs and telemetry.
func (c DeathCause) String() string {
	names := DeathCauseNames()
	if int(c) < len(names) {
		return names[c]
	}
	return "unknown"
}

// DeathCauseNames returns the names for all causes.
// The order matches the DeathCause constants.
func DeathCauseNames() []string {
	return []string{"none", "starvation", "exhausted", "fell", "killed"}
}
