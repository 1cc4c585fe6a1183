// Package route computes passability, hazard-weighted flow fields and
// shortest paths over a storey grid.
package route

import (
	"errors"
	"fmt"
	"slices"

	"github.com/talgya/firedrill/internal/world"
)

var (
	// ErrUnreachable is returned when no passable path joins two cells.
	ErrUnreachable = errors.New("target unreachable")
	// ErrNoExit is returned when a storey has no exit to route to.
	ErrNoExit = errors.New("storey has no exit")
)

// Cell is one passability cell. Danger is only meaningful when Passable.
type Cell struct {
	Passable bool
	Danger   float64
}

// DensitySource is the read side of a smoke field.
type DensitySource interface {
	Dims() (int, int)
	Diffusible(c world.Coord) bool
	Density(c world.Coord) float64
}

// Field is the passability map of one storey.
type Field struct {
	grid  *world.Grid
	cells []Cell
	exits []world.Coord
}

// NewField classifies grid cells. Walls, furniture and outdoor stone block
// movement; exits are recorded in ascending column order.
func NewField(grid *world.Grid) *Field {
	f := &Field{
		grid:  grid,
		cells: make([]Cell, len(grid.Tiles)),
	}
	for i, t := range grid.Tiles {
		switch t {
		case world.TileWall, world.TileFurniture, world.TileStone:
		default:
			f.cells[i].Passable = true
		}
		if t == world.TileExit {
			f.exits = append(f.exits, grid.CoordOf(i))
		}
	}
	slices.SortStableFunc(f.exits, func(a, b world.Coord) int {
		return a.Col - b.Col
	})
	return f
}

// Grid returns the storey grid the field was built from.
func (f *Field) Grid() *world.Grid {
	return f.grid
}

// Exits returns the exit coordinates in stored order. The slice is shared.
func (f *Field) Exits() []world.Coord {
	return f.exits
}

// Passable reports whether c is inside the grid and walkable.
func (f *Field) Passable(c world.Coord) bool {
	return f.grid.InBounds(c) && f.cells[f.grid.Index(c)].Passable
}

// Danger returns the last refreshed hazard value at c.
func (f *Field) Danger(c world.Coord) float64 {
	return f.cells[f.grid.Index(c)].Danger
}

// Refresh copies smoke density into the danger of every passable cell
// whose smoke cell is diffusible.
func (f *Field) Refresh(src DensitySource) error {
	rows, cols := src.Dims()
	if err := f.grid.CheckDims(rows, cols); err != nil {
		return fmt.Errorf("refresh danger: %w", err)
	}
	for i := range f.cells {
		if !f.cells[i].Passable {
			continue
		}
		c := f.grid.CoordOf(i)
		if src.Diffusible(c) {
			f.cells[i].Danger = src.Density(c)
		}
	}
	return nil
}
