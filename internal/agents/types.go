// Package agents provides the evacuee data model, crowd spawning and the per-tick movement rule.
package agents

import (
	"github.com/talgya/firedrill/internal/world"
)

// AgentID is a unique, permanent identifier for one human.
type AgentID uint64

// Human is one evacuee. Tile coordinates always refer to Storey.
type Human struct {
	ID     AgentID        `json:"id"`
	Storey world.StoreyID `json:"storey"`

	// Routing
	Tile     world.Coord   `json:"tile"`      // Last tile reached
	NextTile world.Coord   `json:"next_tile"` // Tile currently walked toward
	Target   world.Coord   `json:"target"`    // Exit, or safe place once evacuated
	Path     []world.Coord `json:"-"`         // Remaining tiles; Path[0] == NextTile while moving

	// Render space
	Position     world.Vec2 `json:"position"`
	NextPosition world.Vec2 `json:"next_position"`
	Direction    world.Vec2 `json:"direction"`

	// Vitals
	Speed     float64 `json:"speed"`
	MaxSpeed  float64 `json:"max_speed"`
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"max_health"`

	// Lifecycle
	Evacuated bool `json:"evacuated"`
	Dead      bool `json:"dead"`
	Safe      bool `json:"safe"`
}

// Active reports whether the human still takes part in the tick.
func (h *Human) Active() bool {
	return !h.Dead && !h.Safe
}

// EventKind enumerates lifecycle transitions.
type EventKind uint8

const (
	EventDead         EventKind = iota // Health reached zero
	EventEvacuated                     // Reached an exit of the ground storey
	EventChangeStorey                  // Reached an exit leading to a lower storey
	EventChangeSafe                    // Reached the assembly point outside
)

var eventNames = [...]string{"dead", "evacuated", "change_storey", "change_safe"}

func (k EventKind) String() string {
	if int(k) < len(eventNames) {
		return eventNames[k]
	}
	return "unknown"
}

// MarshalText renders the kind by name in JSON.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is one lifecycle transition produced by the agent phase.
type Event struct {
	Kind   EventKind      `json:"kind"`
	ID     AgentID        `json:"id"`
	Storey world.StoreyID `json:"storey"` // Storey the human was on when it fired
}
