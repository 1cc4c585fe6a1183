package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	p := config.Default()
	require.NoError(t, p.Validate())
	assert.Equal(t, 0.05, p.IgnitionProbability)
	assert.Equal(t, 100.0, p.BurnTime)
	assert.Equal(t, 5.0, p.SmokeEmission)
	assert.Equal(t, config.RoutingShortest, p.Routing)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	p, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default(), p)
}

func TestParseOverridesDefaults(t *testing.T) {
	p, err := config.Parse([]byte(`
k: 2.5
human_seed: 0.3
routing: hazard
seed: 1234
`))
	require.NoError(t, err)
	assert.Equal(t, 2.5, p.K)
	assert.Equal(t, 0.3, p.HumanSeed)
	assert.Equal(t, config.RoutingHazard, p.Routing)
	assert.Equal(t, int64(1234), p.Seed)
	// Untouched keys keep their defaults.
	assert.Equal(t, 100.0, p.MaxHealth)
	assert.Equal(t, 30, p.RerouteEvery)
}

func TestParseRejectsOutOfRange(t *testing.T) {
	cases := map[string]string{
		"probability": "ignition_probability: 1.5",
		"burn time":   "burn_time: 0",
		"spread":      "health_spread: 1",
		"routing":     "routing: teleport",
		"tick":        "tick_seconds: -1",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(raw))
			assert.ErrorIs(t, err, config.ErrInvalidParams)
		})
	}
}

func TestValidateReportsAllProblems(t *testing.T) {
	p := config.Default()
	p.K = 0
	p.MaxSpeed = -1
	err := p.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k must be positive")
	assert.Contains(t, err.Error(), "max_speed must be positive")
}

func TestParseRejectsBadYAML(t *testing.T) {
	_, err := config.Parse([]byte("k: [1, 2"))
	assert.Error(t, err)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_ticks: 10\n"), 0o644))

	p, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.MaxTicks)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
