// Demo building generation using layered simplex noise.
// Produces a two-storey office: furniture clusters come from noise, corridors
// every third row and column keep every floor cell connected to an exit.
package world

import (
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// Storey names used by generated buildings.
const (
	GroundStorey StoreyID = "f1"
	UpperStorey  StoreyID = "f2"
)

// yardRows is the outdoor band above the ground floor: save place, stone, wall.
const yardRows = 3

// GenConfig holds demo building parameters.
type GenConfig struct {
	Rows      int     // Total rows including the yard band and walls
	Cols      int     // Total columns including walls
	Seed      int64   // Random seed (0 = random)
	CellSize  float64 // Render size of one cell
	Exits     int     // Ground-floor exits along the yard wall
	Furniture float64 // Noise threshold above which block cells become furniture (0.0–1.0)
}

// DefaultGenConfig returns a reasonable office-sized building.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Rows:      24,
		Cols:      32,
		Seed:      0,
		CellSize:  20,
		Exits:     3,
		Furniture: 0.55,
	}
}

// SmallTestConfig returns a tiny building for rapid iteration.
func SmallTestConfig() GenConfig {
	return GenConfig{
		Rows:      12,
		Cols:      11,
		Seed:      42,
		CellSize:  10,
		Exits:     2,
		Furniture: 0.5,
	}
}

// Generate creates the demo building. Both storeys share one furniture layout
// so that stair positions line up.
func Generate(cfg GenConfig) *Building {
	if cfg.Rows < yardRows+5 {
		cfg.Rows = yardRows + 5
	}
	if cfg.Cols < 5 {
		cfg.Cols = 5
	}
	if cfg.Exits < 1 {
		cfg.Exits = 1
	}
	if cfg.CellSize <= 0 {
		cfg.CellSize = 1
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	furnNoise := opensimplex.NewNormalized(seed)
	detailNoise := opensimplex.NewNormalized(seed + 1)

	interior := NewGrid(cfg.Rows, cfg.Cols)
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Cols; c++ {
			interior.Set(Coord{Row: r, Col: c}, interiorTile(r, c, cfg, furnNoise, detailNoise))
		}
	}

	stairs := stairCells(cfg)

	ground := interior.Clone()
	for c := 0; c < cfg.Cols; c++ {
		ground.Set(Coord{Row: 0, Col: c}, TileSavePlace)
		ground.Set(Coord{Row: 1, Col: c}, TileStone)
	}
	for _, c := range exitCols(cfg) {
		ground.Set(Coord{Row: yardRows - 1, Col: c}, TileExit)
	}
	for _, s := range stairs {
		ground.Set(s, TileStair)
	}

	upper := interior.Clone()
	for r := 0; r < yardRows-1; r++ {
		for c := 0; c < cfg.Cols; c++ {
			upper.Set(Coord{Row: r, Col: c}, TileWall)
		}
	}
	for _, s := range stairs {
		upper.Set(s, TileExit)
	}

	b := NewBuilding("demo", GroundStorey)
	b.Add(&Storey{ID: GroundStorey, Grid: ground, Geometry: GeometryFor(ground, cfg.CellSize)})
	b.Add(&Storey{ID: UpperStorey, Grid: upper, Geometry: GeometryFor(upper, cfg.CellSize), DescendsTo: GroundStorey})
	return b
}

// interiorTile decides one cell of the shared indoor layout.
func interiorTile(r, c int, cfg GenConfig, furn, detail opensimplex.Noise) Tile {
	if r < yardRows || r == cfg.Rows-1 || c == 0 || c == cfg.Cols-1 {
		return TileWall
	}
	ir, ic := r-yardRows, c-1
	if ir%3 == 0 || ic%3 == 0 || r == cfg.Rows-2 || c == cfg.Cols-2 {
		// Corridor. Sparse fixtures are walkable and never block a route.
		if octaveNoise(detail, float64(r), float64(c), 2, 0.9, 0.5) > 0.85 {
			return TileDetector
		}
		return TileFloor
	}
	if octaveNoise(furn, float64(r), float64(c), 3, 0.25, 0.5) > cfg.Furniture {
		return TileFurniture
	}
	return TileFloor
}

// exitCols spreads ground exits over corridor columns.
func exitCols(cfg GenConfig) []int {
	var corridors []int
	for c := 1; c < cfg.Cols-1; c++ {
		if (c-1)%3 == 0 {
			corridors = append(corridors, c)
		}
	}
	n := cfg.Exits
	if n > len(corridors) {
		n = len(corridors)
	}
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, corridors[(2*i+1)*len(corridors)/(2*n)])
	}
	return out
}

// stairCells places two stair wells on the lowest corridor row, at the
// outermost corridor columns.
func stairCells(cfg GenConfig) []Coord {
	row := yardRows + 3*((cfg.Rows-yardRows-2)/3)
	left := 1
	right := 1 + 3*((cfg.Cols-3)/3)
	cells := []Coord{{Row: row, Col: left}}
	if right != left {
		cells = append(cells, Coord{Row: row, Col: right})
	}
	return cells
}

func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}

// TileCounts returns a summary of tile distribution for one storey.
func TileCounts(g *Grid) map[Tile]int {
	counts := make(map[Tile]int)
	for _, t := range g.Tiles {
		counts[t]++
	}
	return counts
}
