package agents_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/agents"
	"github.com/talgya/firedrill/internal/entropy"
	"github.com/talgya/firedrill/internal/route"
	"github.com/talgya/firedrill/internal/world"
)

type uniform float64

func (u uniform) Density(world.Coord) float64 { return float64(u) }

func at(r, c int) world.Coord { return world.Coord{Row: r, Col: c} }

func storey(t *testing.T, id world.StoreyID, ascii string) *world.Storey {
	t.Helper()
	g, err := world.ParseASCII(ascii)
	require.NoError(t, err)
	return &world.Storey{ID: id, Grid: g, Geometry: world.GeometryFor(g, 10)}
}

var exact = agents.SpawnConfig{HumanSeed: 1, MaxHealth: 100, MaxSpeed: 10}

// spawnAt places one human with full health and speed 10 on the only floor cell.
func spawnAt(t *testing.T, s *world.Storey) *agents.Human {
	t.Helper()
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	require.Len(t, hs, 1)
	return hs[0]
}

func TestSpawnerRanges(t *testing.T) {
	s := storey(t, "f1", `
#######
#.....#
#..F..#
#.....#
###E###
`)
	cfg := agents.SpawnConfig{HumanSeed: 1, MaxHealth: 100, HealthSpread: 0.2, MaxSpeed: 10, SpeedSpread: 0.2}
	hs := agents.NewSpawner(entropy.New(4)).SpawnStorey(s, cfg)
	require.Len(t, hs, 14)

	for i, h := range hs {
		assert.Equal(t, agents.AgentID(i+1), h.ID)
		assert.Equal(t, world.TileFloor, s.Grid.At(h.Tile))
		assert.Equal(t, world.StoreyID("f1"), h.Storey)
		assert.GreaterOrEqual(t, h.Health, 80.0)
		assert.Less(t, h.Health, 100.0)
		assert.GreaterOrEqual(t, h.MaxSpeed, 8.0)
		assert.Less(t, h.MaxSpeed, 12.0)
		assert.Equal(t, s.Geometry.Position(h.Tile), h.Position)
		assert.True(t, h.Active())
	}
}

func TestSpawnerSeedZero(t *testing.T) {
	s := storey(t, "f1", "....E")
	hs := agents.NewSpawner(entropy.New(4)).SpawnStorey(s, agents.SpawnConfig{MaxHealth: 1, MaxSpeed: 1})
	assert.Empty(t, hs)
}

func TestSpawnerIDsContinueAcrossStoreys(t *testing.T) {
	sp := agents.NewSpawner(entropy.New(2))
	a := sp.SpawnStorey(storey(t, "f1", "..E"), exact)
	b := sp.SpawnStorey(storey(t, "f2", "E.."), exact)
	require.Len(t, a, 2)
	require.Len(t, b, 2)
	assert.Equal(t, agents.AgentID(3), b[0].ID)
}

func TestPlanTargetsNearestExit(t *testing.T) {
	s := storey(t, "f1", "E..#.E\n##...#")
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	require.NotEmpty(t, hs)

	h := hs[0]
	require.Equal(t, at(0, 1), h.Tile)
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))
	assert.Equal(t, at(0, 0), h.Target)
	assert.Equal(t, []world.Coord{at(0, 0)}, h.Path)
	assert.Equal(t, at(0, 0), h.NextTile)
	assert.Equal(t, world.Vec2{X: -1, Y: 0}, h.Direction)
}

func TestPlanUnreachable(t *testing.T) {
	s := storey(t, "f1", "E#.")
	h := spawnAt(t, s)
	err := h.Plan(route.NewField(s.Grid), s.Geometry)
	assert.ErrorIs(t, err, route.ErrUnreachable)
}

func TestSmokeDamageAndSpeedCoupling(t *testing.T) {
	s := storey(t, "f1", "E....")
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	h := hs[len(hs)-1]
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))

	events := agents.Update(h, uniform(2), 0.5, agents.Rules{SmokeDamage: 10, Ground: "f1", Geometry: s.Geometry})
	assert.Empty(t, events)
	assert.InDelta(t, 90.0, h.Health, 1e-9)
	assert.InDelta(t, 9.0, h.Speed, 1e-9)

	h.Health = 25
	agents.Update(h, uniform(0), 0.1, agents.Rules{Ground: "f1", Geometry: s.Geometry})
	assert.InDelta(t, 2.5, h.Speed, 1e-9)
}

func TestDeathFiresOnce(t *testing.T) {
	s := storey(t, "f1", "E.")
	h := spawnAt(t, s)
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))
	start := h.Position

	rules := agents.Rules{SmokeDamage: 1, Ground: "f1", Geometry: s.Geometry}
	events := agents.Update(h, uniform(200), 1, rules)
	require.Len(t, events, 1)
	assert.Equal(t, agents.EventDead, events[0].Kind)
	assert.Equal(t, h.ID, events[0].ID)
	assert.True(t, h.Dead)
	assert.Zero(t, h.Speed)
	assert.Equal(t, start, h.Position, "the dying tick does not move")

	assert.Empty(t, agents.Update(h, uniform(200), 1, rules))
	assert.False(t, h.Active())
}

func TestMovementNeverOvershoots(t *testing.T) {
	s := storey(t, "f1", "E.")
	h := spawnAt(t, s)
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))

	rules := agents.Rules{Ground: "f1", Geometry: s.Geometry}
	agents.Update(h, uniform(0), 0.25, rules)
	assert.InDelta(t, s.Geometry.Position(at(0, 1)).X-2.5, h.Position.X, 1e-9)

	agents.Update(h, uniform(0), 100, rules)
	assert.Equal(t, h.NextPosition, h.Position)
}

func walk(h *agents.Human, rules agents.Rules, ticks int) []agents.Event {
	var all []agents.Event
	for i := 0; i < ticks; i++ {
		all = append(all, agents.Update(h, uniform(0), 1, rules)...)
	}
	return all
}

func TestEvacuatedOnceOnGround(t *testing.T) {
	s := storey(t, "f1", "E...#")
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	h := hs[len(hs)-1]
	require.Equal(t, at(0, 3), h.Tile)
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))

	events := walk(h, agents.Rules{Ground: "f1", Geometry: s.Geometry}, 20)
	require.Len(t, events, 1)
	assert.Equal(t, agents.EventEvacuated, events[0].Kind)
	assert.True(t, h.Evacuated)
	assert.Equal(t, at(0, 0), h.Tile)
	assert.Empty(t, h.Path)
}

func TestChangeStoreyOnUpperExit(t *testing.T) {
	upper := storey(t, "f2", "E.")
	lower := storey(t, "f1", `S.
E#`)
	h := spawnAt(t, upper)
	require.NoError(t, h.Plan(route.NewField(upper.Grid), upper.Geometry))

	events := walk(h, agents.Rules{Ground: "f1", DescendsTo: "f1", Geometry: upper.Geometry}, 5)
	require.Len(t, events, 1)
	assert.Equal(t, agents.EventChangeStorey, events[0].Kind)
	assert.Equal(t, world.StoreyID("f2"), events[0].Storey)
	assert.False(t, h.Evacuated)

	arrived, err := h.MoveTo("f1", route.NewField(lower.Grid), lower.Geometry)
	require.NoError(t, err)
	assert.False(t, arrived)
	assert.Equal(t, world.StoreyID("f1"), h.Storey)
	assert.Equal(t, at(0, 0), h.Tile)
	assert.Equal(t, at(1, 0), h.Target)
	assert.Equal(t, lower.Geometry.Position(at(0, 0)), h.Position)

	events = walk(h, agents.Rules{Ground: "f1", Geometry: lower.Geometry}, 5)
	require.Len(t, events, 1)
	assert.Equal(t, agents.EventEvacuated, events[0].Kind)
}

func TestMoveToLandsOnExit(t *testing.T) {
	upper := storey(t, "f2", "E.")
	lower := storey(t, "f1", "ES")
	h := spawnAt(t, upper)
	require.NoError(t, h.Plan(route.NewField(upper.Grid), upper.Geometry))
	walk(h, agents.Rules{Ground: "f1", DescendsTo: "f1", Geometry: upper.Geometry}, 5)
	require.Equal(t, at(0, 0), h.Tile)

	arrived, err := h.MoveTo("f1", route.NewField(lower.Grid), lower.Geometry)
	require.NoError(t, err)
	assert.True(t, arrived)
	assert.Empty(t, h.Path)

	ev, ok := h.Arrive("f1", "")
	require.True(t, ok)
	assert.Equal(t, agents.EventEvacuated, ev.Kind)
	assert.Equal(t, world.StoreyID("f1"), ev.Storey)
	assert.True(t, h.Evacuated)
}

func TestArriveWithoutWayDown(t *testing.T) {
	h := spawnAt(t, storey(t, "f2", "E."))
	_, ok := h.Arrive("f1", "")
	assert.False(t, ok)
	assert.False(t, h.Evacuated)
}

func TestEvacuateWalksToSafePlace(t *testing.T) {
	s := storey(t, "f1", `
PPP
ooo
#E#
#.#
`)
	h := spawnAt(t, s)
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))
	rules := agents.Rules{Ground: "f1", Geometry: s.Geometry}

	events := walk(h, rules, 3)
	require.Len(t, events, 1)
	require.Equal(t, agents.EventEvacuated, events[0].Kind)

	safeNow, err := h.Evacuate(s.Grid, s.Geometry)
	require.NoError(t, err)
	assert.False(t, safeNow)
	assert.Equal(t, at(0, 1), h.Target)
	assert.Equal(t, []world.Coord{at(1, 1), at(0, 1)}, h.Path)

	events = walk(h, rules, 5)
	require.Len(t, events, 1)
	assert.Equal(t, agents.EventChangeSafe, events[0].Kind)
	assert.True(t, h.Safe)
	assert.Zero(t, h.Speed)
	assert.Empty(t, walk(h, rules, 3))
}

func TestEvacuateWithoutSafePlace(t *testing.T) {
	s := storey(t, "f1", "E.")
	h := spawnAt(t, s)
	safeNow, err := h.Evacuate(s.Grid, s.Geometry)
	require.NoError(t, err)
	assert.True(t, safeNow)
	assert.True(t, h.Safe)
}

func TestEvacuateUnreachableSafePlace(t *testing.T) {
	s := storey(t, "f1", "P#E.")
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	h := hs[0]
	h.Tile = at(0, 2)
	_, err := h.Evacuate(s.Grid, s.Geometry)
	assert.ErrorIs(t, err, route.ErrUnreachable)
}

func TestRerouteKeepsCurrentStep(t *testing.T) {
	s := storey(t, "f1", "E...E")
	hs := agents.NewSpawner(entropy.New(1)).SpawnStorey(s, exact)
	h := hs[1] // (0,2): nearest exit is (0,0), ties keep the first
	require.NoError(t, h.Plan(route.NewField(s.Grid), s.Geometry))
	require.Equal(t, at(0, 1), h.NextTile)

	h.Reroute([]world.Coord{at(0, 3), at(0, 4)})
	assert.Equal(t, at(0, 0), h.Target, "a path not starting at the next tile is ignored")

	h.Reroute([]world.Coord{at(0, 1), at(0, 2), at(0, 3), at(0, 4)})
	assert.Equal(t, at(0, 4), h.Target)
	assert.Len(t, h.Path, 4)
}

func TestCrowdCounts(t *testing.T) {
	c := agents.NewCrowd()
	c.Add(
		&agents.Human{ID: 1},
		&agents.Human{ID: 2, Dead: true},
		&agents.Human{ID: 3, Evacuated: true},
		&agents.Human{ID: 4, Evacuated: true, Safe: true},
	)
	assert.Equal(t, agents.Counts{Total: 4, Alive: 3, Dead: 1, Evacuated: 2, Safe: 1}, c.Counts())
	assert.False(t, c.Settled())

	h, ok := c.Get(3)
	require.True(t, ok)
	assert.True(t, h.Evacuated)
	_, ok = c.Get(9)
	assert.False(t, ok)

	c.Humans[0].Dead = true
	c.Humans[2].Safe = true
	assert.True(t, c.Settled())
}
