package route

import (
	"fmt"

	"github.com/zyedidia/generic/queue"

	"github.com/talgya/firedrill/internal/world"
)

// NearestExit returns the exit with the smallest Manhattan distance to from.
// Ties go to the earliest exit in stored order.
func NearestExit(f *Field, from world.Coord) (world.Coord, error) {
	if len(f.exits) == 0 {
		return world.Coord{}, ErrNoExit
	}
	best := f.exits[0]
	bestDist := world.Manhattan(from, best)
	for _, e := range f.exits[1:] {
		if d := world.Manhattan(from, e); d < bestDist {
			best, bestDist = e, d
		}
	}
	return best, nil
}

// ShortestPath returns the fewest-step passable path from one cell to
// another. The path excludes from and ends at to.
func ShortestPath(f *Field, from, to world.Coord) ([]world.Coord, error) {
	return bfs(f.grid, from, to, f.Passable)
}

// NearestSafePlace returns the SavePlace cell closest to from by Manhattan
// distance, scanning row-major. ok is false when the grid has none.
func NearestSafePlace(grid *world.Grid, from world.Coord) (world.Coord, bool) {
	var best world.Coord
	bestDist := -1
	for i, t := range grid.Tiles {
		if t != world.TileSavePlace {
			continue
		}
		c := grid.CoordOf(i)
		if d := world.Manhattan(from, c); bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist >= 0
}

// SafePath routes through the outdoor area: only Stone, SavePlace and Exit
// tiles are walkable.
func SafePath(grid *world.Grid, from, to world.Coord) ([]world.Coord, error) {
	return bfs(grid, from, to, func(c world.Coord) bool {
		if !grid.InBounds(c) {
			return false
		}
		switch grid.At(c) {
		case world.TileStone, world.TileSavePlace, world.TileExit:
			return true
		}
		return false
	})
}

func bfs(grid *world.Grid, from, to world.Coord, walkable func(world.Coord) bool) ([]world.Coord, error) {
	if !grid.InBounds(from) || !grid.InBounds(to) {
		return nil, fmt.Errorf("%w: %v -> %v out of bounds", ErrUnreachable, from, to)
	}
	if from == to {
		return nil, nil
	}

	prev := make([]int, len(grid.Tiles))
	for i := range prev {
		prev[i] = -1
	}
	start := grid.Index(from)
	prev[start] = start

	q := queue.New[world.Coord]()
	q.Enqueue(from)
	found := false
	for !q.Empty() && !found {
		cur := q.Dequeue()
		for _, d := range world.Neighbor4 {
			next := cur.Add(d)
			if !walkable(next) {
				continue
			}
			j := grid.Index(next)
			if prev[j] >= 0 {
				continue
			}
			prev[j] = grid.Index(cur)
			if next == to {
				found = true
				break
			}
			q.Enqueue(next)
		}
	}
	if !found {
		return nil, fmt.Errorf("%w: %v -> %v", ErrUnreachable, from, to)
	}

	var path []world.Coord
	for i := grid.Index(to); i != start; i = prev[i] {
		path = append(path, grid.CoordOf(i))
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, nil
}
