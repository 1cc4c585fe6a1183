package route_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/route"
	"github.com/talgya/firedrill/internal/smoke"
	"github.com/talgya/firedrill/internal/world"
)

func at(r, c int) world.Coord { return world.Coord{Row: r, Col: c} }

func TestFieldPassability(t *testing.T) {
	g := world.MustParseASCII(`
#FoP
.SDE
`)
	f := route.NewField(g)

	for _, c := range []world.Coord{at(0, 0), at(0, 1), at(0, 2)} {
		assert.False(t, f.Passable(c), "cell %v", c)
	}
	for _, c := range []world.Coord{at(0, 3), at(1, 0), at(1, 1), at(1, 2), at(1, 3)} {
		assert.True(t, f.Passable(c), "cell %v", c)
	}
	assert.False(t, f.Passable(at(-1, 0)))
	assert.False(t, f.Passable(at(0, 4)))
}

func TestExitsSortedByColumn(t *testing.T) {
	g := world.MustParseASCII(`
...E.
.....
.E...
...E.
`)
	f := route.NewField(g)
	assert.Equal(t, []world.Coord{at(2, 1), at(0, 3), at(3, 3)}, f.Exits())
}

func TestNearestExitTieBreak(t *testing.T) {
	g := world.MustParseASCII(`
E...E
.....
`)
	f := route.NewField(g)

	e, err := route.NearestExit(f, at(1, 2))
	require.NoError(t, err)
	assert.Equal(t, at(0, 0), e, "equal distance keeps the first stored exit")

	e, err = route.NearestExit(f, at(1, 3))
	require.NoError(t, err)
	assert.Equal(t, at(0, 4), e)
}

func TestNearestExitWithoutExits(t *testing.T) {
	f := route.NewField(world.MustParseASCII("..."))
	_, err := route.NearestExit(f, at(0, 0))
	assert.ErrorIs(t, err, route.ErrNoExit)
}

func TestShortestPathCorridorIgnoresSmoke(t *testing.T) {
	g := world.MustParseASCII(`
#######
E.....#
#######
`)
	f := route.NewField(g)
	s := smoke.New(g)
	for c := 1; c < 6; c++ {
		s.Increase(at(1, c), 40)
	}
	require.NoError(t, f.Refresh(s))

	path, err := route.ShortestPath(f, at(1, 5), at(1, 0))
	require.NoError(t, err)
	assert.Len(t, path, 5)
	assert.Equal(t, at(1, 4), path[0], "source is excluded")
	assert.Equal(t, at(1, 0), path[len(path)-1])
}

func TestShortestPathToSelf(t *testing.T) {
	f := route.NewField(world.MustParseASCII("E.."))
	path, err := route.ShortestPath(f, at(0, 0), at(0, 0))
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestShortestPathUnreachable(t *testing.T) {
	g := world.MustParseASCII(`
E.#..
..#..
`)
	f := route.NewField(g)
	_, err := route.ShortestPath(f, at(1, 4), at(0, 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, route.ErrUnreachable))
}

func TestShortestPathStepsAreAdjacent(t *testing.T) {
	g := world.MustParseASCII(`
E....
.##F.
.F...
...#.
`)
	f := route.NewField(g)
	from := at(3, 4)
	path, err := route.ShortestPath(f, from, at(0, 0))
	require.NoError(t, err)
	assert.Len(t, path, 7)

	prev := from
	for _, c := range path {
		assert.Equal(t, 1, world.Manhattan(prev, c), "%v -> %v", prev, c)
		assert.True(t, f.Passable(c))
		prev = c
	}
}

// Two equal-length corridors around a block; smoke sits on the upper one.
const ring = `
E....
.###.
.....
`

func TestFlowAvoidsDanger(t *testing.T) {
	g := world.MustParseASCII(ring)
	f := route.NewField(g)
	s := smoke.New(g)
	s.Increase(at(0, 2), 10)
	require.NoError(t, f.Refresh(s))
	assert.InDelta(t, 10.0, f.Danger(at(0, 2)), 1e-12)

	fl := route.ComputeFlow(f, at(0, 0), route.FlowOptions{StepCost: 1})
	path, err := fl.Trace(at(2, 4))
	require.NoError(t, err)
	assert.NotContains(t, path, at(0, 2))
	assert.Len(t, path, 6)
	assert.Equal(t, at(0, 0), path[len(path)-1])
	assert.Equal(t, 6, fl.Cost(at(2, 4)))
}

func TestFlowPureDangerMetric(t *testing.T) {
	g := world.MustParseASCII(ring)
	f := route.NewField(g)

	fl := route.ComputeFlow(f, at(0, 0), route.FlowOptions{})
	assert.Zero(t, fl.Cost(at(2, 4)), "no smoke and no step cost")
	assert.True(t, fl.Reachable(at(2, 4)))

	_, ok := fl.Next(at(0, 0))
	assert.False(t, ok, "the exit has no next step")
	assert.Equal(t, at(0, 0), fl.Exit())
}

func TestFlowNextPointsTowardExit(t *testing.T) {
	g := world.MustParseASCII(`
E...
`)
	fl := route.ComputeFlow(route.NewField(g), at(0, 0), route.FlowOptions{StepCost: 1})
	for c := 1; c < 4; c++ {
		next, ok := fl.Next(at(0, c))
		require.True(t, ok)
		assert.Equal(t, at(0, c-1), next)
		assert.Equal(t, c, fl.Cost(at(0, c)))
	}
}

func TestFlowUnreachableCell(t *testing.T) {
	g := world.MustParseASCII(`
E.#.
`)
	fl := route.ComputeFlow(route.NewField(g), at(0, 0), route.FlowOptions{StepCost: 1})
	assert.False(t, fl.Reachable(at(0, 3)))
	_, err := fl.Trace(at(0, 3))
	assert.ErrorIs(t, err, route.ErrUnreachable)
}

func TestRefreshDimensionMismatch(t *testing.T) {
	f := route.NewField(world.MustParseASCII("E.."))
	s := smoke.New(world.MustParseASCII("E.\n.."))
	err := f.Refresh(s)
	assert.ErrorIs(t, err, world.ErrDimensionMismatch)
}

func TestRefreshSkipsBlockedCells(t *testing.T) {
	g := world.MustParseASCII("EF.")
	f := route.NewField(g)
	s := smoke.New(g)
	s.Increase(at(0, 1), 3)
	s.Increase(at(0, 2), 4)
	require.NoError(t, f.Refresh(s))
	assert.Zero(t, f.Danger(at(0, 1)))
	assert.InDelta(t, 4.0, f.Danger(at(0, 2)), 1e-12)
	assert.Zero(t, f.Danger(at(0, 0)))
}

func TestSafePath(t *testing.T) {
	g := world.MustParseASCII(`
PPPPP
ooooo
##E##
.....
`)
	target, ok := route.NearestSafePlace(g, at(2, 2))
	require.True(t, ok)
	assert.Equal(t, at(0, 2), target)

	path, err := route.SafePath(g, at(2, 2), target)
	require.NoError(t, err)
	assert.Equal(t, []world.Coord{at(1, 2), at(0, 2)}, path)
}

func TestSafePathStaysOutdoors(t *testing.T) {
	g := world.MustParseASCII(`
P#...
#E..E
`)
	_, err := route.SafePath(g, at(1, 4), at(0, 0))
	assert.ErrorIs(t, err, route.ErrUnreachable)
}

func TestNearestSafePlaceMissing(t *testing.T) {
	_, ok := route.NearestSafePlace(world.MustParseASCII("E.."), at(0, 0))
	assert.False(t, ok)
}
