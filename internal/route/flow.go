package route

import (
	"math"

	"github.com/zyedidia/generic/heap"

	"github.com/talgya/firedrill/internal/world"
)

// FlowOptions tunes the Dijkstra edge cost.
type FlowOptions struct {
	// StepCost is added per move. Zero ranks routes by accumulated danger
	// only; a positive value also prefers fewer steps.
	StepCost int
}

// Flow points every reachable cell one step closer to an exit.
type Flow struct {
	grid *world.Grid
	exit world.Coord
	dir  []int8 // index into world.Neighbor4, -1 when unset
	cost []int
}

type frontier struct {
	cost int
	idx  int
}

// ComputeFlow runs Dijkstra outward from exit over passable cells. Entering a
// cell costs StepCost plus its integer danger. Only a strictly lower cost
// replaces a recorded direction.
func ComputeFlow(f *Field, exit world.Coord, opts FlowOptions) *Flow {
	g := f.grid
	fl := &Flow{
		grid: g,
		exit: exit,
		dir:  make([]int8, len(g.Tiles)),
		cost: make([]int, len(g.Tiles)),
	}
	for i := range fl.cost {
		fl.cost[i] = math.MaxInt
		fl.dir[i] = -1
	}
	if !f.Passable(exit) {
		return fl
	}

	start := g.Index(exit)
	fl.cost[start] = 0
	pq := heap.New(func(a, b frontier) bool { return a.cost < b.cost })
	pq.Push(frontier{cost: 0, idx: start})

	for pq.Size() > 0 {
		cur, _ := pq.Pop()
		if cur.cost > fl.cost[cur.idx] {
			continue
		}
		at := g.CoordOf(cur.idx)
		for k, d := range world.Neighbor4 {
			next := at.Add(d)
			if !f.Passable(next) {
				continue
			}
			j := g.Index(next)
			nc := cur.cost + opts.StepCost + int(f.cells[j].Danger)
			if nc < fl.cost[j] {
				fl.cost[j] = nc
				fl.dir[j] = opposite(k)
				pq.Push(frontier{cost: nc, idx: j})
			}
		}
	}
	return fl
}

// opposite returns the Neighbor4 index pointing the other way.
func opposite(k int) int8 {
	// right<->left, down<->up
	return int8(k ^ 1)
}

// Exit returns the exit this flow leads to.
func (fl *Flow) Exit() world.Coord {
	return fl.exit
}

// Reachable reports whether c has a route to the exit.
func (fl *Flow) Reachable(c world.Coord) bool {
	return fl.grid.InBounds(c) && fl.cost[fl.grid.Index(c)] != math.MaxInt
}

// Cost returns the accumulated cost from c to the exit.
func (fl *Flow) Cost(c world.Coord) int {
	return fl.cost[fl.grid.Index(c)]
}

// Next returns the neighbour of c on the way to the exit.
// ok is false at the exit itself and for unreachable cells.
func (fl *Flow) Next(c world.Coord) (world.Coord, bool) {
	if !fl.grid.InBounds(c) {
		return c, false
	}
	k := fl.dir[fl.grid.Index(c)]
	if k < 0 {
		return c, false
	}
	return c.Add(world.Neighbor4[k]), true
}

// Trace follows the flow from c. The path excludes c and ends at the exit;
// it is empty when c is the exit.
func (fl *Flow) Trace(from world.Coord) ([]world.Coord, error) {
	if !fl.Reachable(from) {
		return nil, ErrUnreachable
	}
	var path []world.Coord
	cur := from
	for steps := 0; cur != fl.exit; steps++ {
		if steps > len(fl.dir) {
			return nil, ErrUnreachable
		}
		next, ok := fl.Next(cur)
		if !ok {
			return nil, ErrUnreachable
		}
		path = append(path, next)
		cur = next
	}
	return path, nil
}
