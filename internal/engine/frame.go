package engine

import (
	"github.com/talgya/firedrill/internal/agents"
	"github.com/talgya/firedrill/internal/world"
)

// Frame is a render snapshot: what a viewer needs to draw one tick.
type Frame struct {
	Tick    uint64        `json:"tick"`
	Elapsed float64       `json:"elapsed"`
	Counts  agents.Counts `json:"counts"`
	Storeys []StoreyFrame `json:"storeys"`
	Agents  []AgentFrame  `json:"agents"`
}

// StoreyFrame holds row-major per-cell display values of one storey.
type StoreyFrame struct {
	ID    world.StoreyID `json:"id"`
	Rows  int            `json:"rows"`
	Cols  int            `json:"cols"`
	Fire  []bool         `json:"fire"`  // Flame visible
	Smoke []float64      `json:"smoke"` // Opacity in [0,1]
}

// AgentFrame places one human in render space.
type AgentFrame struct {
	ID        agents.AgentID `json:"id"`
	Storey    world.StoreyID `json:"storey"`
	Position  world.Vec2     `json:"position"`
	Dead      bool           `json:"dead"`
	Evacuated bool           `json:"evacuated,omitempty"`
	Safe      bool           `json:"safe,omitempty"`
}

// StoreyInfo describes one storey's static layout for clients.
type StoreyInfo struct {
	ID         world.StoreyID `json:"id"`
	DescendsTo world.StoreyID `json:"descends_to,omitempty"`
	Ground     bool           `json:"ground"`
	Rows       int            `json:"rows"`
	Cols       int            `json:"cols"`
	Geometry   world.Geometry `json:"geometry"`
	Exits      []world.Coord  `json:"exits"`
	Tiles      string         `json:"tiles"` // ASCII shorthand, one line per row
}

// Frame captures the current display state.
func (s *Simulation) Frame() Frame {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f := Frame{
		Tick:    s.LastTick,
		Elapsed: s.Elapsed,
		Counts:  s.Stats.Counts,
		Agents:  make([]AgentFrame, 0, s.Crowd.Len()),
	}
	for _, id := range s.Building.IDs() {
		g := s.Building.Storey(id).Grid
		fs := s.Fire.Storey(id)
		sm := s.Smoke.Storey(id)
		sf := StoreyFrame{
			ID:    id,
			Rows:  g.Rows,
			Cols:  g.Cols,
			Fire:  make([]bool, len(g.Tiles)),
			Smoke: make([]float64, len(g.Tiles)),
		}
		for i := range g.Tiles {
			c := g.CoordOf(i)
			sf.Fire[i] = fs.Visible(c)
			sf.Smoke[i] = sm.Opacity(c)
		}
		f.Storeys = append(f.Storeys, sf)
	}
	for _, h := range s.Crowd.Humans {
		f.Agents = append(f.Agents, AgentFrame{
			ID:        h.ID,
			Storey:    h.Storey,
			Position:  h.Position,
			Dead:      h.Dead,
			Evacuated: h.Evacuated,
			Safe:      h.Safe,
		})
	}
	return f
}

// Storeys lists the building's storeys in name order.
func (s *Simulation) Storeys() []StoreyInfo {
	out := make([]StoreyInfo, 0, len(s.Building.Storeys))
	for _, id := range s.Building.IDs() {
		st := s.Building.Storey(id)
		out = append(out, StoreyInfo{
			ID:         id,
			DescendsTo: st.DescendsTo,
			Ground:     id == s.Building.Ground,
			Rows:       st.Grid.Rows,
			Cols:       st.Grid.Cols,
			Geometry:   st.Geometry,
			Exits:      s.Pass[id].Exits(),
			Tiles:      st.Grid.String(),
		})
	}
	return out
}
