// Package config holds the tunable simulation parameters and their YAML loader.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidParams marks a parameter file with out-of-range values.
var ErrInvalidParams = errors.New("invalid parameters")

// Routing modes.
const (
	RoutingShortest = "shortest" // Fixed BFS route planned once per storey
	RoutingHazard   = "hazard"   // Periodic smoke-weighted replanning
)

// Params are the run-wide tunables. Zero values are not meaningful; start
// from Default.
type Params struct {
	K                   float64 `yaml:"k"`                    // Fire spread coefficient
	IgnitionProbability float64 `yaml:"ignition_probability"` // Initial per-furniture ignition chance
	BurnTime            float64 `yaml:"burn_time"`            // Seconds
	SmokeInterval       float64 `yaml:"smoke_interval"`       // Seconds
	SmokeEmission       float64 `yaml:"smoke_emission"`

	HumanSeed    float64 `yaml:"human_seed"`   // Per-floor-cell spawn probability
	SmokeDamage  float64 `yaml:"smoke_damage"` // Health lost per second per unit density
	HealthSpread float64 `yaml:"health_spread"`
	SpeedSpread  float64 `yaml:"speed_spread"`
	MaxHealth    float64 `yaml:"max_health"`
	MaxSpeed     float64 `yaml:"max_speed"` // Render units per second

	TickSeconds  float64 `yaml:"tick_seconds"`
	Seed         int64   `yaml:"seed"` // 0 draws a fresh seed
	Routing      string  `yaml:"routing"`
	RerouteEvery int     `yaml:"reroute_every"` // Ticks between hazard replans
	MaxTicks     int     `yaml:"max_ticks"`     // 0 runs until everyone is dead or safe
	ReportEvery  int     `yaml:"report_every"`
}

// Default returns the parameters of the stock evacuation drill.
func Default() Params {
	return Params{
		K:                   1,
		IgnitionProbability: 0.05,
		BurnTime:            100,
		SmokeInterval:       1,
		SmokeEmission:       5,

		HumanSeed:    0.1,
		SmokeDamage:  1,
		HealthSpread: 0.2,
		SpeedSpread:  0.2,
		MaxHealth:    100,
		MaxSpeed:     10,

		TickSeconds:  1.0 / 60,
		Seed:         0,
		Routing:      RoutingShortest,
		RerouteEvery: 30,
		MaxTicks:     36000,
		ReportEvery:  600,
	}
}

// Load reads a YAML parameter file over the defaults and validates it.
// An empty path returns the defaults.
func Load(path string) (Params, error) {
	p := Default()
	if path == "" {
		return p, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read params: %w", err)
	}
	return Parse(raw)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(raw []byte) (Params, error) {
	p := Default()
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("params yaml: %w", err)
	}
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

// Validate reports every out-of-range value at once.
func (p Params) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(p.K > 0, "k must be positive, got %v", p.K)
	check(p.IgnitionProbability >= 0 && p.IgnitionProbability <= 1, "ignition_probability must be in [0,1], got %v", p.IgnitionProbability)
	check(p.BurnTime > 0, "burn_time must be positive, got %v", p.BurnTime)
	check(p.SmokeInterval > 0, "smoke_interval must be positive, got %v", p.SmokeInterval)
	check(p.SmokeEmission >= 0, "smoke_emission must not be negative, got %v", p.SmokeEmission)

	check(p.HumanSeed >= 0 && p.HumanSeed <= 1, "human_seed must be in [0,1], got %v", p.HumanSeed)
	check(p.SmokeDamage >= 0, "smoke_damage must not be negative, got %v", p.SmokeDamage)
	check(p.HealthSpread >= 0 && p.HealthSpread < 1, "health_spread must be in [0,1), got %v", p.HealthSpread)
	check(p.SpeedSpread >= 0 && p.SpeedSpread < 1, "speed_spread must be in [0,1), got %v", p.SpeedSpread)
	check(p.MaxHealth > 0, "max_health must be positive, got %v", p.MaxHealth)
	check(p.MaxSpeed > 0, "max_speed must be positive, got %v", p.MaxSpeed)

	check(p.TickSeconds > 0, "tick_seconds must be positive, got %v", p.TickSeconds)
	check(p.Routing == RoutingShortest || p.Routing == RoutingHazard, "routing must be %q or %q, got %q", RoutingShortest, RoutingHazard, p.Routing)
	check(p.RerouteEvery > 0, "reroute_every must be positive, got %d", p.RerouteEvery)
	check(p.MaxTicks >= 0, "max_ticks must not be negative, got %d", p.MaxTicks)
	check(p.ReportEvery >= 0, "report_every must not be negative, got %d", p.ReportEvery)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidParams, errors.Join(errs...))
	}
	return nil
}
