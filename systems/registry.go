package systems

// Step phase identifiers, in pipeline order.
const (
	PhaseBio     = "bio"
	PhaseSync    = "sync"
	PhaseLight   = "light"
	PhasePhysics = "physics"
	PhaseDespawn = "despawn"
)

// SystemInfo names one step phase.
type SystemInfo struct {
	ID          string // perf key
	Name        string
	Description string
}

// SystemRegistry is the ordered list of step phases. Perf tracking keys off
// its IDs, so a phase added to Chunk.Step must be registered here too.
type SystemRegistry struct {
	phases []SystemInfo
}

// NewSystemRegistry returns the registry of the chunk's step pipeline.
func NewSystemRegistry() *SystemRegistry {
	return &SystemRegistry{phases: []SystemInfo{
		{PhaseBio, "Bio", "Gene expression, energy and growth"},
		{PhaseSync, "Sync", "Reconciles cells with bodies and constraints"},
		{PhaseLight, "Light", "Casts light rays and delivers photons"},
		{PhasePhysics, "Physics", "Steps the world and detects rooting"},
		{PhaseDespawn, "Despawn", "Removes dead and fallen plants"},
	}}
}

// Register appends a phase.
func (r *SystemRegistry) Register(info SystemInfo) {
	r.phases = append(r.phases, info)
}

// Name returns the display name for id, or id itself when unregistered.
func (r *SystemRegistry) Name(id string) string {
	for _, p := range r.phases {
		if p.ID == id {
			return p.Name
		}
	}
	return id
}

// IDs returns the phase IDs in pipeline order.
func (r *SystemRegistry) IDs() []string {
	ids := make([]string, 0, len(r.phases))
	for _, p := range r.phases {
		ids = append(ids, p.ID)
	}
	return ids
}
