package world

import (
	"errors"
	"fmt"
	"strings"
)

// ErrDimensionMismatch is returned when a per-cell field does not match its source grid.
var ErrDimensionMismatch = errors.New("grid dimension mismatch")

// Coord addresses one cell by zero-based row and column.
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String returns "(row,col)".
func (c Coord) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// Add returns the coordinate offset by d.
func (c Coord) Add(d Coord) Coord {
	return Coord{Row: c.Row + d.Row, Col: c.Col + d.Col}
}

// Manhattan returns the 4-connected grid distance between two cells.
func Manhattan(a, b Coord) int {
	dr := a.Row - b.Row
	dc := a.Col - b.Col
	if dr < 0 {
		dr = -dr
	}
	if dc < 0 {
		dc = -dc
	}
	return dr + dc
}

// Neighbor4 lists the four orthogonal offsets in scan order: right, left, down, up.
var Neighbor4 = [4]Coord{
	{Row: 0, Col: 1},
	{Row: 0, Col: -1},
	{Row: 1, Col: 0},
	{Row: -1, Col: 0},
}

// Grid is a rectangular, row-major tile array for one storey.
type Grid struct {
	Rows  int
	Cols  int
	Tiles []Tile
}

// NewGrid creates a grid filled with Floor.
func NewGrid(rows, cols int) *Grid {
	return &Grid{
		Rows:  rows,
		Cols:  cols,
		Tiles: make([]Tile, rows*cols),
	}
}

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.Rows && c.Col >= 0 && c.Col < g.Cols
}

// Index returns the row-major offset of c. The caller guarantees InBounds.
func (g *Grid) Index(c Coord) int {
	return c.Row*g.Cols + c.Col
}

// CoordOf is the inverse of Index.
func (g *Grid) CoordOf(i int) Coord {
	return Coord{Row: i / g.Cols, Col: i % g.Cols}
}

// At returns the tile at c.
func (g *Grid) At(c Coord) Tile {
	return g.Tiles[g.Index(c)]
}

// Set places a tile at c.
func (g *Grid) Set(c Coord, t Tile) {
	g.Tiles[g.Index(c)] = t
}

// Find returns every cell holding tile t in row-major order.
func (g *Grid) Find(t Tile) []Coord {
	var out []Coord
	for i, v := range g.Tiles {
		if v == t {
			out = append(out, g.CoordOf(i))
		}
	}
	return out
}

// Count returns how many cells hold tile t.
func (g *Grid) Count(t Tile) int {
	n := 0
	for _, v := range g.Tiles {
		if v == t {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := &Grid{Rows: g.Rows, Cols: g.Cols, Tiles: make([]Tile, len(g.Tiles))}
	copy(out.Tiles, g.Tiles)
	return out
}

// CheckDims verifies that a field of rows×cols was built for g.
func (g *Grid) CheckDims(rows, cols int) error {
	if rows != g.Rows || cols != g.Cols {
		return fmt.Errorf("%w: field %dx%d, grid %dx%d", ErrDimensionMismatch, rows, cols, g.Rows, g.Cols)
	}
	return nil
}

// ParseASCII builds a grid from lines of single-character tiles
// ('.' floor, '#' wall, 'E' exit, 'F' furniture, 'o' stone, 'P' save place,
// 'S' stair, 'D' door, 'L' elevator, 'A' alarm, 'H' hydrant, 'T' detector).
// Leading and trailing blank lines are ignored; rows must be the same width.
func ParseASCII(src string) (*Grid, error) {
	var lines []string
	for _, l := range strings.Split(src, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty grid", ErrInvalidPlan)
	}
	cols := len([]rune(lines[0]))
	g := NewGrid(len(lines), cols)
	for r, l := range lines {
		runes := []rune(l)
		if len(runes) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidPlan, r, len(runes), cols)
		}
		for c, ch := range runes {
			t, ok := asciiTiles[ch]
			if !ok {
				return nil, fmt.Errorf("%w: unknown tile %q at (%d,%d)", ErrInvalidPlan, ch, r, c)
			}
			g.Set(Coord{Row: r, Col: c}, t)
		}
	}
	return g, nil
}

// MustParseASCII is ParseASCII for fixtures known to be valid.
func MustParseASCII(src string) *Grid {
	g, err := ParseASCII(src)
	if err != nil {
		panic(err)
	}
	return g
}

// String renders the grid back to ASCII shorthand.
func (g *Grid) String() string {
	var b strings.Builder
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			b.WriteRune(g.At(Coord{Row: r, Col: c}).Rune())
		}
		b.WriteByte('\n')
	}
	return b.String()
}
