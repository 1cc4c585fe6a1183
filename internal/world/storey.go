package world

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// StoreyID names one floor plan. It keys every building-level field.
type StoreyID string

// Vec2 is a render-space position or direction.
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns v+o.
func (v Vec2) Add(o Vec2) Vec2 { return Vec2{X: v.X + o.X, Y: v.Y + o.Y} }

// Sub returns v-o.
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{X: v.X - o.X, Y: v.Y - o.Y} }

// Scale returns v*k.
func (v Vec2) Scale(k float64) Vec2 { return Vec2{X: v.X * k, Y: v.Y * k} }

// Len returns the Euclidean length.
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }

// Normalize returns the unit vector, or the zero vector for zero length.
func (v Vec2) Normalize() Vec2 {
	l := v.Len()
	if l == 0 {
		return Vec2{}
	}
	return Vec2{X: v.X / l, Y: v.Y / l}
}

// Geometry converts tile coordinates into render space for one storey.
type Geometry struct {
	CellSize float64 `json:"cell_size"`
	Width    float64 `json:"width"`  // Board width in pixels
	Height   float64 `json:"height"` // Board height in pixels
}

// Position returns the render-space centre of cell c.
// Row 0 / column 0 is the top-left cell; the y axis points up.
func (g Geometry) Position(c Coord) Vec2 {
	return Vec2{
		X: g.CellSize/2 + float64(c.Col)*g.CellSize - g.Width/2,
		Y: -g.CellSize/2 - float64(c.Row)*g.CellSize + g.Height/2,
	}
}

// GeometryFor returns a geometry whose board exactly covers grid g.
func GeometryFor(g *Grid, cellSize float64) Geometry {
	return Geometry{
		CellSize: cellSize,
		Width:    float64(g.Cols) * cellSize,
		Height:   float64(g.Rows) * cellSize,
	}
}

// Storey is one floor plan plus its render geometry.
type Storey struct {
	ID       StoreyID
	Grid     *Grid
	Geometry Geometry

	// DescendsTo is the storey agents move to after reaching an exit here.
	// Empty for the ground storey.
	DescendsTo StoreyID
}

// Building is the set of storeys a simulation runs on.
type Building struct {
	Name    string
	Ground  StoreyID
	Storeys map[StoreyID]*Storey
}

// NewBuilding creates an empty building with the given ground storey.
func NewBuilding(name string, ground StoreyID) *Building {
	return &Building{
		Name:    name,
		Ground:  ground,
		Storeys: make(map[StoreyID]*Storey),
	}
}

// Add registers a storey.
func (b *Building) Add(s *Storey) {
	b.Storeys[s.ID] = s
}

// Storey returns the storey with the given id. A missing storey means setup
// did not run to completion, so it panics.
func (b *Building) Storey(id StoreyID) *Storey {
	s, ok := b.Storeys[id]
	if !ok {
		panic(fmt.Sprintf("world: storey %q not in building %q", id, b.Name))
	}
	return s
}

// IDs returns the storey ids sorted by name, for deterministic iteration.
func (b *Building) IDs() []StoreyID {
	ids := make([]StoreyID, 0, len(b.Storeys))
	for id := range b.Storeys {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ErrNoDescent marks a storey whose descends_to chain never reaches the ground.
var ErrNoDescent = errors.New("no way down to the ground storey")

// CheckDescent verifies that the ground storey exists and does not descend,
// and that every other storey reaches it by following descends_to without
// visiting a storey twice.
func (b *Building) CheckDescent() error {
	ground, ok := b.Storeys[b.Ground]
	if !ok {
		return fmt.Errorf("ground storey %q not declared", b.Ground)
	}
	if ground.DescendsTo != "" {
		return fmt.Errorf("ground storey %q cannot descend", b.Ground)
	}
	var errs []error
	for _, id := range b.IDs() {
		if err := b.descent(id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *Building) descent(id StoreyID) error {
	seen := map[StoreyID]bool{}
	for cur := id; cur != b.Ground; {
		seen[cur] = true
		next := b.Storeys[cur].DescendsTo
		switch {
		case next == "":
			return fmt.Errorf("storey %q: %w, %q has no descends_to", id, ErrNoDescent, cur)
		case b.Storeys[next] == nil:
			return fmt.Errorf("storey %q: %w, %q descends to unknown storey %q", id, ErrNoDescent, cur, next)
		case seen[next]:
			return fmt.Errorf("storey %q: %w, cycle at %q", id, ErrNoDescent, next)
		}
		cur = next
	}
	return nil
}
