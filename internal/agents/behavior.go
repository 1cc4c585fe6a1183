// Per-tick evacuee behaviour: smoke damage, arrival handling, speed and movement.
// Update is the only place a human's vitals and position change during a tick.
package agents

import (
	"fmt"

	"github.com/talgya/firedrill/internal/route"
	"github.com/talgya/firedrill/internal/world"
)

// Hazard is the smoke density a human breathes on its current storey.
type Hazard interface {
	Density(c world.Coord) float64
}

// Rules are the storey-dependent constants Update needs.
type Rules struct {
	SmokeDamage float64        // Health lost per second per unit density
	Ground      world.StoreyID // Reaching an exit here evacuates the human
	DescendsTo  world.StoreyID // Storey below the human's current one, if any
	Geometry    world.Geometry // Render geometry of the human's current storey
}

// Plan targets the nearest exit of the current storey and walks the
// shortest passable path to it.
func (h *Human) Plan(field *route.Field, geo world.Geometry) error {
	exit, err := route.NearestExit(field, h.Tile)
	if err != nil {
		return fmt.Errorf("human %d on %s: %w", h.ID, h.Storey, err)
	}
	path, err := route.ShortestPath(field, h.Tile, exit)
	if err != nil {
		return fmt.Errorf("human %d on %s: %w", h.ID, h.Storey, err)
	}
	h.Target = exit
	h.follow(path, geo)
	return nil
}

// Reroute replaces the remaining path while keeping the human on its way to
// the tile it is currently entering. path starts at NextTile.
func (h *Human) Reroute(path []world.Coord) {
	if len(path) == 0 || path[0] != h.NextTile {
		return
	}
	h.Path = path
	h.Target = path[len(path)-1]
}

// Evacuate routes an evacuated human from its exit to the nearest safe
// place through the outdoor area. A storey without a safe place leaves the
// human safe where it stands; the returned flag reports that case.
func (h *Human) Evacuate(grid *world.Grid, geo world.Geometry) (bool, error) {
	safe, ok := route.NearestSafePlace(grid, h.Tile)
	if !ok || safe == h.Tile {
		h.Safe = true
		h.Path = nil
		h.Speed = 0
		return true, nil
	}
	path, err := route.SafePath(grid, h.Tile, safe)
	if err != nil {
		return false, fmt.Errorf("human %d safe place %v: %w", h.ID, safe, err)
	}
	h.Target = safe
	h.follow(path, geo)
	return false, nil
}

// MoveTo puts the human on another storey at the same tile and plans a
// fresh route there. It reports true when that tile is already the nearest
// exit, in which case the caller raises the arrival with Arrive.
func (h *Human) MoveTo(storey world.StoreyID, field *route.Field, geo world.Geometry) (bool, error) {
	h.Storey = storey
	if err := h.Plan(field, geo); err != nil {
		return false, err
	}
	return h.Tile == h.Target, nil
}

// Arrive applies reaching the target tile and returns the resulting event.
// An evacuee becomes safe, a human on the ground storey is evacuated, and one
// on an upper storey changes storey. A storey with no way down raises nothing.
func (h *Human) Arrive(ground, descendsTo world.StoreyID) (Event, bool) {
	switch {
	case h.Evacuated:
		h.Safe = true
		return Event{Kind: EventChangeSafe, ID: h.ID, Storey: h.Storey}, true
	case h.Storey == ground:
		h.Evacuated = true
		return Event{Kind: EventEvacuated, ID: h.ID, Storey: h.Storey}, true
	case descendsTo != "":
		return Event{Kind: EventChangeStorey, ID: h.ID, Storey: h.Storey}, true
	}
	return Event{}, false
}

// follow installs a path that starts next to the current tile.
func (h *Human) follow(path []world.Coord, geo world.Geometry) {
	h.Path = path
	h.Position = geo.Position(h.Tile)
	if len(path) == 0 {
		h.NextTile = h.Tile
		h.NextPosition = h.Position
		h.Direction = world.Vec2{}
		return
	}
	h.NextTile = path[0]
	h.NextPosition = geo.Position(h.NextTile)
	h.Direction = h.NextPosition.Sub(h.Position).Normalize()
}

// Update advances one human by dt seconds. In order: smoke damage (death
// ends the update), arrival at the next tile with its target events, speed
// from remaining health, then movement that never overshoots the next tile.
func Update(h *Human, hazard Hazard, dt float64, rules Rules) []Event {
	if !h.Active() {
		return nil
	}

	h.Health -= rules.SmokeDamage * dt * hazard.Density(h.Tile)
	if h.Health <= 0 {
		h.Health = 0
		h.Speed = 0
		h.Dead = true
		return []Event{{Kind: EventDead, ID: h.ID, Storey: h.Storey}}
	}

	var events []Event
	if h.Position == h.NextPosition && len(h.Path) > 0 {
		h.Tile = h.Path[0]
		h.Path = h.Path[1:]

		if h.Tile == h.Target {
			if ev, ok := h.Arrive(rules.Ground, rules.DescendsTo); ok {
				events = append(events, ev)
			}
		}

		if len(h.Path) > 0 {
			h.NextTile = h.Path[0]
			h.NextPosition = rules.Geometry.Position(h.NextTile)
			h.Direction = h.NextPosition.Sub(h.Position).Normalize()
		} else {
			h.NextTile = h.Tile
		}
	}

	if h.Safe {
		h.Speed = 0
		return events
	}
	h.Speed = h.MaxSpeed * h.Health / h.MaxHealth

	step := h.Speed * dt
	if remaining := h.NextPosition.Sub(h.Position).Len(); step >= remaining {
		h.Position = h.NextPosition
	} else {
		h.Position = h.Position.Add(h.Direction.Scale(step))
	}
	return events
}
