package main

import (
	"github.com/pthm-cable/bonsai/config"
)

// ParamSpec is one tunable config field and its search bounds.
type ParamSpec struct {
	Name    string
	Min     float64
	Max     float64
	Default float64

	field func(*config.Config) *float64
}

// ParamVector is the ordered set of tuned parameters. Vector index i always
// refers to Specs[i].
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector returns the parameters the optimizer searches over.
func NewParamVector() *ParamVector {
	return &ParamVector{Specs: []ParamSpec{
		{"initial_energy", 40, 300, 100, func(c *config.Config) *float64 { return &c.Energy.Initial }},
		{"base_upkeep", 0.2, 2.0, 1.0, func(c *config.Config) *float64 { return &c.Energy.BaseUpkeep }},
		{"volume_upkeep", 0.2, 2.0, 1.0, func(c *config.Config) *float64 { return &c.Energy.VolumeUpkeep }},
		{"chloroplast_base", 0.5, 0.95, 0.8, func(c *config.Config) *float64 { return &c.Energy.ChloroplastBase }},
		{"light_intensity", 2, 15, 6, func(c *config.Config) *float64 { return &c.Light.Intensity }},
		{"flower_chance", 0.001, 0.05, 0.01, func(c *config.Config) *float64 { return &c.Cell.FlowerChance }},
		{"flower_withdraw", 20, 200, 80, func(c *config.Config) *float64 { return &c.Cell.FlowerWithdraw }},
		{"growth_step", 0.02, 0.3, 0.1, func(c *config.Config) *float64 { return &c.Cell.GrowthStep }},
	}}
}

func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// mapSpecs builds a vector by applying fn to every spec and its input value.
func (pv *ParamVector) mapSpecs(in []float64, fn func(s ParamSpec, v float64) float64) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		var v float64
		if in != nil {
			v = in[i]
		}
		out[i] = fn(s, v)
	}
	return out
}

func (pv *ParamVector) DefaultVector() []float64 {
	return pv.mapSpecs(nil, func(s ParamSpec, _ float64) float64 { return s.Default })
}

// Normalize maps raw values onto [0,1] using each spec's bounds.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	return pv.mapSpecs(raw, func(s ParamSpec, v float64) float64 { return (v - s.Min) / (s.Max - s.Min) })
}

// Denormalize is the inverse of Normalize.
func (pv *ParamVector) Denormalize(norm []float64) []float64 {
	return pv.mapSpecs(norm, func(s ParamSpec, v float64) float64 { return s.Min + v*(s.Max-s.Min) })
}

func (pv *ParamVector) Clamp(v []float64) []float64 {
	return pv.mapSpecs(v, func(s ParamSpec, v float64) float64 { return min(max(v, s.Min), s.Max) })
}

// ApplyToConfig writes clamped values into cfg.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	for i, v := range pv.Clamp(values) {
		*pv.Specs[i].field(cfg) = v
	}
}

// ExtractFromConfig reads the tuned fields back out of cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	out := make([]float64, len(pv.Specs))
	for i, s := range pv.Specs {
		out[i] = *s.field(cfg)
	}
	return out
}
