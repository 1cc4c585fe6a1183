// Crowd spawning: seeds humans on floor cells with jittered health and speed.
package agents

import (
	"github.com/talgya/firedrill/internal/entropy"
	"github.com/talgya/firedrill/internal/world"
)

// SpawnConfig controls initial crowd generation.
type SpawnConfig struct {
	HumanSeed    float64 // Probability that a floor cell holds a human
	MaxHealth    float64
	HealthSpread float64 // Health drawn from [(1-spread)·MaxHealth, MaxHealth)
	MaxSpeed     float64
	SpeedSpread  float64 // Per-human top speed drawn from [(1-spread)·MaxSpeed, (1+spread)·MaxSpeed)
}

// Spawner creates humans with sequential ids.
type Spawner struct {
	rng    *entropy.Source
	nextID AgentID
}

// NewSpawner creates a spawner drawing from rng.
func NewSpawner(rng *entropy.Source) *Spawner {
	return &Spawner{
		rng:    rng,
		nextID: 1,
	}
}

// SpawnStorey scans the storey row-major and places a human on each floor
// cell with probability cfg.HumanSeed. Humans are not planned yet.
func (s *Spawner) SpawnStorey(storey *world.Storey, cfg SpawnConfig) []*Human {
	var out []*Human
	for i, t := range storey.Grid.Tiles {
		if t != world.TileFloor || !s.rng.Bool(cfg.HumanSeed) {
			continue
		}
		out = append(out, s.spawnOne(storey, storey.Grid.CoordOf(i), cfg))
	}
	return out
}

func (s *Spawner) spawnOne(storey *world.Storey, at world.Coord, cfg SpawnConfig) *Human {
	id := s.nextID
	s.nextID++

	health := s.rng.Range((1-cfg.HealthSpread)*cfg.MaxHealth, cfg.MaxHealth)
	maxSpeed := s.rng.Range((1-cfg.SpeedSpread)*cfg.MaxSpeed, (1+cfg.SpeedSpread)*cfg.MaxSpeed)
	pos := storey.Geometry.Position(at)

	return &Human{
		ID:           id,
		Storey:       storey.ID,
		Tile:         at,
		NextTile:     at,
		Target:       at,
		Position:     pos,
		NextPosition: pos,
		MaxSpeed:     maxSpeed,
		Speed:        maxSpeed * health / cfg.MaxHealth,
		Health:       health,
		MaxHealth:    cfg.MaxHealth,
	}
}
