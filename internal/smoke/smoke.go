// Package smoke models smoke density per storey and its diffusion between neighbouring cells.
package smoke

import (
	"fmt"

	"github.com/talgya/firedrill/internal/world"
)

// Storey is the smoke field of one floor. Walls and exits never hold smoke.
type Storey struct {
	rows, cols int
	diffusible []bool
	density    []float64
	scratch    []float64
}

// New builds an empty field for grid.
func New(grid *world.Grid) *Storey {
	s := &Storey{
		rows:       grid.Rows,
		cols:       grid.Cols,
		diffusible: make([]bool, len(grid.Tiles)),
		density:    make([]float64, len(grid.Tiles)),
		scratch:    make([]float64, len(grid.Tiles)),
	}
	for i, t := range grid.Tiles {
		s.diffusible[i] = t != world.TileWall && t != world.TileExit
	}
	return s
}

// Dims returns the field's rows and columns.
func (s *Storey) Dims() (int, int) {
	return s.rows, s.cols
}

func (s *Storey) index(c world.Coord) int {
	return c.Row*s.cols + c.Col
}

func (s *Storey) inBounds(r, c int) bool {
	return r >= 0 && r < s.rows && c >= 0 && c < s.cols
}

// Increase adds v to the density at c. No-op on in-diffusible cells.
func (s *Storey) Increase(c world.Coord, v float64) {
	i := s.index(c)
	if !s.diffusible[i] {
		return
	}
	s.density[i] += v
}

// Density returns the smoke density at c; 0 for in-diffusible cells.
func (s *Storey) Density(c world.Coord) float64 {
	return s.density[s.index(c)]
}

// Diffusible reports whether c can hold smoke.
func (s *Storey) Diffusible(c world.Coord) bool {
	return s.diffusible[s.index(c)]
}

// Opacity is the density clamped to [0, 1] for display.
func (s *Storey) Opacity(c world.Coord) float64 {
	d := s.density[s.index(c)]
	switch {
	case d < 0:
		return 0
	case d > 1:
		return 1
	}
	return d
}

// Total returns the summed density of the field.
func (s *Storey) Total() float64 {
	sum := 0.0
	for _, d := range s.density {
		sum += d
	}
	return sum
}

// Diffuse performs one averaging pass: every diffusible cell takes the mean
// of itself and its diffusible 4-neighbours, all read from the densities at
// the start of the pass.
func (s *Storey) Diffuse() {
	copy(s.scratch, s.density)
	for r := 0; r < s.rows; r++ {
		for c := 0; c < s.cols; c++ {
			i := r*s.cols + c
			if !s.diffusible[i] {
				continue
			}
			sum := s.scratch[i]
			n := 0
			for _, d := range world.Neighbor4 {
				nr, nc := r+d.Row, c+d.Col
				if !s.inBounds(nr, nc) {
					continue
				}
				j := nr*s.cols + nc
				if !s.diffusible[j] {
					continue
				}
				sum += s.scratch[j]
				n++
			}
			s.density[i] = sum / float64(1+n)
		}
	}
}

// Building holds one smoke field per storey.
type Building struct {
	Storeys map[world.StoreyID]*Storey
}

// NewBuilding creates an empty building-level smoke map.
func NewBuilding() *Building {
	return &Building{Storeys: make(map[world.StoreyID]*Storey)}
}

// Storey returns the field for id and panics if setup never provisioned it.
func (b *Building) Storey(id world.StoreyID) *Storey {
	s, ok := b.Storeys[id]
	if !ok {
		panic(fmt.Sprintf("smoke: no field for storey %q", id))
	}
	return s
}
