// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds all simulation configuration parameters.
type Config struct {
	Chunk     ChunkConfig     `yaml:"chunk"`
	Soil      SoilConfig      `yaml:"soil"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Cell      CellConfig      `yaml:"cell"`
	Energy    EnergyConfig    `yaml:"energy"`
	Light     LightConfig     `yaml:"light"`
	Mutation  MutationConfig  `yaml:"mutation"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	SeedBank  SeedBankConfig  `yaml:"seed_bank"`
	Server    ServerConfig    `yaml:"server"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ChunkConfig holds chunk extent and population parameters.
type ChunkConfig struct {
	Size          float64 `yaml:"size"`           // Horizontal footprint edge length, centered on origin
	DespawnHeight float64 `yaml:"despawn_height"` // Plants whose root falls below this z are removed
	SpawnHeight   float64 `yaml:"spawn_height"`   // Drop height for seeded and flowered plants
	InitialPlants int     `yaml:"initial_plants"`
	SeedGenome    string  `yaml:"seed_genome"` // Encoded genome for seeding (empty = built-in starter)
}

// SoilConfig holds static soil block generation parameters.
type SoilConfig struct {
	Grid           int     `yaml:"grid"`            // Blocks per side
	Thickness      float64 `yaml:"thickness"`       // Block height
	Surface        float64 `yaml:"surface"`         // Nominal top surface z
	NoiseScale     float64 `yaml:"noise_scale"`     // Spatial frequency of height jitter
	NoiseAmplitude float64 `yaml:"noise_amplitude"` // Max height jitter (0 = flat)
}

// PhysicsConfig holds rigid body simulation parameters.
type PhysicsConfig struct {
	DT          float64      `yaml:"dt"`
	Substeps    int          `yaml:"substeps"`
	Gravity     float64      `yaml:"gravity"` // Acceleration along -z
	Density     float64      `yaml:"density"` // Mass per unit volume of a cell body
	LinearDamp  float64      `yaml:"linear_damping"`
	AngularDamp float64      `yaml:"angular_damping"`
	Friction    float64      `yaml:"friction"`
	MaxTag      uint32       `yaml:"max_tag"` // Body identifiers wrap at this bound
	Spring      SpringConfig `yaml:"spring"`
}

// SpringConfig holds attachment constraint parameters.
type SpringConfig struct {
	Stiffness        float64 `yaml:"stiffness"`
	AngularStiffness float64 `yaml:"angular_stiffness"`
	Damping          float64 `yaml:"damping"`
	Limit            float64 `yaml:"limit"`            // Free play per axis before the spring engages
	BreakingImpulse  float64 `yaml:"breaking_impulse"` // Links shear above this impulse (0 = unbreakable)
}

// CellConfig holds cell geometry and growth parameters.
type CellConfig struct {
	UnitSize       float64 `yaml:"unit_size"`      // Edge length of a new cell
	MaxSize        float64 `yaml:"max_size"`       // Per-axis size clamp
	GrowthStep     float64 `yaml:"growth_step"`    // Size added per growth signal
	DiffThreshold  int     `yaml:"diff_threshold"` // Diff count that triggers division
	RotationCap    int     `yaml:"rotation_cap"`   // Rotation signals beyond this are ignored
	FlowerChance   float64 `yaml:"flower_chance"`  // Per-tick seed probability while flowering
	FlowerWithdraw float64 `yaml:"flower_withdraw"`
	SeedSpread     float64 `yaml:"seed_spread"` // Horizontal scatter of a seed around its flower (0 = at the flower)
}

// EnergyConfig holds plant energy economics.
type EnergyConfig struct {
	Initial         float64 `yaml:"initial"`          // Energy injected into a new plant by default
	CapPerCell      float64 `yaml:"cap_per_cell"`     // Root energy is clamped to this times cell count
	BaseUpkeep      float64 `yaml:"base_upkeep"`      // Fixed cost per cell per tick
	VolumeUpkeep    float64 `yaml:"volume_upkeep"`    // Cost per unit cell volume per tick
	EmitCost        float64 `yaml:"emit_cost"`        // Cost per emitted signal
	ChloroplastBase float64 `yaml:"chloroplast_base"` // Efficiency is 1 - base^k
	ExpressionBase  float64 `yaml:"expression_base"`  // Per-signal factor is 0.5 + 0.5(1 - base^m)
}

// LightConfig holds the light source parameters.
type LightConfig struct {
	Grid       int     `yaml:"grid"`       // Rays per side
	Intensity  float64 `yaml:"intensity"`  // Photons per hit at noon with multiplier 1
	Multiplier float64 `yaml:"multiplier"` // External environment scale
	Period     float64 `yaml:"period"`     // Ticks per day/night cycle (0 = constant)
	RayTop     float64 `yaml:"ray_top"`
	RayBottom  float64 `yaml:"ray_bottom"`
}

// MutationConfig holds genome cloning rates.
type MutationConfig struct {
	Keep      float64 `yaml:"keep"`
	Duplicate float64 `yaml:"duplicate"`
	Replace   float64 `yaml:"replace"`
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         int `yaml:"stats_window"`          // Ticks per stats window
	PerfCollectorWindow int `yaml:"perf_collector_window"` // Ticks averaged by the perf collector
	ArchiveEvery        int `yaml:"archive_every"`         // Ticks between archived snapshots (0 = off)
}

// SeedBankConfig holds parameters for the genome bank used to reseed an empty chunk.
type SeedBankConfig struct {
	Size        int            `yaml:"size"`         // Genomes kept
	ReseedCount int            `yaml:"reseed_count"` // Plants dropped when the chunk empties (0 = off)
	Entry       SeedBankEntry  `yaml:"entry"`
	Fitness     SeedBankWeight `yaml:"fitness"`
}

// SeedBankEntry holds the criteria a dead plant must meet to enter the bank.
type SeedBankEntry struct {
	MinSeedlings int   `yaml:"min_seedlings"` // Qualifies outright
	MinAge       int32 `yaml:"min_age"`       // Otherwise requires this age
	MinCells     int   `yaml:"min_cells"`     // and this peak cell count
}

// SeedBankWeight holds the fitness weights.
type SeedBankWeight struct {
	SeedlingWeight float64 `yaml:"seedling_weight"`
	AgeWeight      float64 `yaml:"age_weight"`
	CellWeight     float64 `yaml:"cell_weight"`
}

// ServerConfig holds protocol server settings.
type ServerConfig struct {
	Listen string `yaml:"listen"` // Empty = headless loop
	Path   string `yaml:"path"`
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	HalfSize   float64 // Chunk.Size / 2
	LightCell  float64 // Footprint edge of one light ray cell
	SubstepDT  float64 // Physics.DT / Substeps
	EnergyCap  float64 // Energy.CapPerCell, clamped positive
	MaxTagBits int     // Bits needed to represent Physics.MaxTag
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Default returns a fresh copy of the embedded defaults.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults invalid: %v", err))
	}
	return cfg
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Chunk.Size <= 0:
		return fmt.Errorf("config: chunk.size must be positive, got %v", c.Chunk.Size)
	case c.Physics.DT <= 0:
		return fmt.Errorf("config: physics.dt must be positive, got %v", c.Physics.DT)
	case c.Light.Grid <= 0:
		return fmt.Errorf("config: light.grid must be positive, got %d", c.Light.Grid)
	case c.Soil.Grid <= 0:
		return fmt.Errorf("config: soil.grid must be positive, got %d", c.Soil.Grid)
	case c.Cell.DiffThreshold <= 0:
		return fmt.Errorf("config: cell.diff_threshold must be positive, got %d", c.Cell.DiffThreshold)
	case c.Physics.MaxTag < 16:
		return fmt.Errorf("config: physics.max_tag too small, got %d", c.Physics.MaxTag)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.HalfSize = c.Chunk.Size / 2
	c.Derived.LightCell = c.Chunk.Size / float64(c.Light.Grid)

	substeps := c.Physics.Substeps
	if substeps < 1 {
		substeps = 1
		c.Physics.Substeps = 1
	}
	c.Derived.SubstepDT = c.Physics.DT / float64(substeps)

	c.Derived.EnergyCap = math.Max(c.Energy.CapPerCell, 0)
	c.Derived.MaxTagBits = int(math.Ceil(math.Log2(float64(c.Physics.MaxTag))))
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
