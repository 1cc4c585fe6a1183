// Package fire models per-storey fire ignition and spread as a grid cellular automaton.
package fire

import (
	"fmt"
	"math"

	"github.com/talgya/firedrill/internal/entropy"
	"github.com/talgya/firedrill/internal/world"
)

// State is the combustion state of one cell. Transitions only go
// Off → On → NeverBurn.
type State uint8

const (
	Off       State = iota // Unburned flammable material
	On                     // Burning; timers running
	NeverBurn              // Burned out, or never flammable
)

func (s State) String() string {
	switch s {
	case Off:
		return "off"
	case On:
		return "on"
	default:
		return "never_burn"
	}
}

// jitter is the relative spread applied to freshly drawn timers.
const jitter = 0.2

// Params are fixed per storey at construction.
type Params struct {
	BurnTime      float64 // Seconds a cell burns before going out
	SmokeInterval float64 // Seconds between smoke emissions
	K             float64 // Ignition coefficient: ignite when elapsed/distance > K
	Emission      float64 // Smoke emitted per interval at full burn fraction
}

// DefaultParams mirrors the constants of the original tool.
func DefaultParams() Params {
	return Params{
		BurnTime:      100,
		SmokeInterval: 1,
		K:             1,
		Emission:      5,
	}
}

// Cell holds the automaton state and, while On, its two timers.
type Cell struct {
	State         State
	BurnElapsed   float64
	BurnDuration  float64
	SmokeElapsed  float64
	SmokeInterval float64
}

// Emitter receives smoke produced by burning cells.
type Emitter interface {
	Increase(c world.Coord, amount float64)
}

// Storey is the fire field of one floor.
type Storey struct {
	rows, cols int
	cells      []Cell
	params     Params
	rng        *entropy.Source
}

// New classifies every cell of grid: Furniture is Off, everything else NeverBurn.
func New(grid *world.Grid, params Params, rng *entropy.Source) *Storey {
	s := &Storey{
		rows:   grid.Rows,
		cols:   grid.Cols,
		cells:  make([]Cell, len(grid.Tiles)),
		params: params,
		rng:    rng,
	}
	for i, t := range grid.Tiles {
		if t == world.TileFurniture {
			s.cells[i].State = Off
		} else {
			s.cells[i].State = NeverBurn
		}
	}
	return s
}

// Dims returns the field's rows and columns.
func (s *Storey) Dims() (int, int) {
	return s.rows, s.cols
}

// Params returns the storey's fire parameters.
func (s *Storey) Params() Params {
	return s.params
}

func (s *Storey) index(c world.Coord) int {
	return c.Row*s.cols + c.Col
}

// State returns the combustion state at c.
func (s *Storey) State(c world.Coord) State {
	return s.cells[s.index(c)].State
}

// Cell returns a copy of the full cell at c.
func (s *Storey) Cell(c world.Coord) Cell {
	return s.cells[s.index(c)]
}

// Visible reports whether a flame should be drawn at c.
func (s *Storey) Visible(c world.Coord) bool {
	return s.cells[s.index(c)].State == On
}

// BurnElapsed returns how long the cell at c has been burning, 0 if not On.
func (s *Storey) BurnElapsed(c world.Coord) float64 {
	cell := &s.cells[s.index(c)]
	if cell.State != On {
		return 0
	}
	return cell.BurnElapsed
}

// Burning returns the number of cells currently On.
func (s *Storey) Burning() int {
	n := 0
	for i := range s.cells {
		if s.cells[i].State == On {
			n++
		}
	}
	return n
}

// IgniteAt lights the cell at c if it is Off. Returns whether it changed.
func (s *Storey) IgniteAt(c world.Coord) bool {
	return s.light(&s.cells[s.index(c)])
}

func (s *Storey) light(cell *Cell) bool {
	if cell.State != Off {
		return false
	}
	*cell = Cell{
		State:         On,
		BurnDuration:  s.rng.Jitter(s.params.BurnTime, jitter),
		SmokeInterval: s.rng.Jitter(s.params.SmokeInterval, jitter),
	}
	return true
}

// Ignite lights every Off cell independently with probability p.
// Returns how many cells were lit.
func (s *Storey) Ignite(p float64) int {
	n := 0
	for i := range s.cells {
		if s.cells[i].State != Off {
			continue
		}
		if s.rng.Bool(p) && s.light(&s.cells[i]) {
			n++
		}
	}
	return n
}

// Spread ignites unburned cells close enough to a burning one.
// A cell ignites on the first burning cell found with elapsed/distance > K.
// The burning set is taken before any new ignition this call.
func (s *Storey) Spread() int {
	var burning, unburned []int
	for i := range s.cells {
		switch s.cells[i].State {
		case On:
			burning = append(burning, i)
		case Off:
			unburned = append(unburned, i)
		}
	}
	if len(burning) == 0 {
		return 0
	}

	type source struct {
		row, col int
		elapsed  float64
	}
	sources := make([]source, len(burning))
	for k, i := range burning {
		sources[k] = source{row: i / s.cols, col: i % s.cols, elapsed: s.cells[i].BurnElapsed}
	}

	n := 0
	for _, i := range unburned {
		r, c := i/s.cols, i%s.cols
		for _, src := range sources {
			dist := math.Hypot(float64(r-src.row), float64(c-src.col))
			if src.elapsed/dist > s.params.K {
				s.light(&s.cells[i])
				n++
				break
			}
		}
	}
	return n
}

// Advance moves every burning cell's timers forward by dt seconds.
// Each completed smoke interval emits Emission × burn fraction into smoke;
// a completed burn timer puts the cell out for good.
func (s *Storey) Advance(dt float64, smoke Emitter) (burnedOut int) {
	for i := range s.cells {
		cell := &s.cells[i]
		if cell.State != On {
			continue
		}

		cell.BurnElapsed += dt
		if cell.BurnElapsed > cell.BurnDuration {
			cell.BurnElapsed = cell.BurnDuration
		}

		cell.SmokeElapsed += dt
		if cell.SmokeInterval > 0 {
			for cell.SmokeElapsed >= cell.SmokeInterval {
				cell.SmokeElapsed -= cell.SmokeInterval
				if smoke != nil {
					smoke.Increase(world.Coord{Row: i / s.cols, Col: i % s.cols},
						s.params.Emission*cell.BurnElapsed/cell.BurnDuration)
				}
			}
		}

		if cell.BurnElapsed >= cell.BurnDuration {
			*cell = Cell{State: NeverBurn}
			burnedOut++
		}
	}
	return burnedOut
}

// Building holds one fire field per storey.
type Building struct {
	Storeys map[world.StoreyID]*Storey
}

// NewBuilding creates an empty building-level fire map.
func NewBuilding() *Building {
	return &Building{Storeys: make(map[world.StoreyID]*Storey)}
}

// Storey returns the field for id. Fields are provisioned once during setup
// from the same storey set, so a miss is a programming error.
func (b *Building) Storey(id world.StoreyID) *Storey {
	s, ok := b.Storeys[id]
	if !ok {
		panic(fmt.Sprintf("fire: no field for storey %q", id))
	}
	return s
}
