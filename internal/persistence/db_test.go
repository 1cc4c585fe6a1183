package persistence_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/agents"
	"github.com/talgya/firedrill/internal/config"
	"github.com/talgya/firedrill/internal/engine"
	"github.com/talgya/firedrill/internal/persistence"
)

func openTemp(t *testing.T) *persistence.DB {
	t.Helper()
	db, err := persistence.Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTemp(t)
	assert.Equal(t, "sqlite", db.Driver())

	id, err := db.StartRun("office", 42, config.Default())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	r, err := db.Run(id)
	require.NoError(t, err)
	assert.Equal(t, "office", r.Plan)
	assert.Equal(t, int64(42), r.Seed)
	assert.Contains(t, r.ParamsJSON, "RerouteEvery")
	assert.False(t, r.Finished())

	final := engine.Stats{
		Counts:  agents.Counts{Total: 10, Alive: 7, Dead: 3, Evacuated: 7, Safe: 6},
		Tick:    900,
		Elapsed: 15,
	}
	require.NoError(t, db.FinishRun(id, final))

	r, err = db.Run(id)
	require.NoError(t, err)
	assert.True(t, r.Finished())
	assert.Equal(t, int64(900), r.Ticks)
	assert.InDelta(t, 15.0, r.Elapsed, 1e-9)
	assert.Equal(t, 10, r.Total)
	assert.Equal(t, 3, r.Dead)
	assert.Equal(t, 7, r.Evacuated)
	assert.Equal(t, 6, r.Safe)
}

func TestMissingRun(t *testing.T) {
	db := openTemp(t)
	_, err := db.Run("nope")
	assert.ErrorIs(t, err, persistence.ErrNotFound)
	assert.ErrorIs(t, db.FinishRun("nope", engine.Stats{}), persistence.ErrNotFound)
}

func TestEventsNewestFirst(t *testing.T) {
	db := openTemp(t)
	id, err := db.StartRun("office", 1, config.Default())
	require.NoError(t, err)
	other, err := db.StartRun("office", 2, config.Default())
	require.NoError(t, err)

	require.NoError(t, db.SaveEvents(id, nil))
	require.NoError(t, db.SaveEvents(id, []engine.Event{
		{Tick: 10, Elapsed: 0.5, Kind: agents.EventEvacuated, AgentID: 1, Storey: "f1", Description: "human 1 left f1"},
		{Tick: 10, Elapsed: 0.5, Kind: agents.EventChangeSafe, AgentID: 1, Storey: "f1", Description: "human 1 is safe"},
		{Tick: 20, Elapsed: 1, Kind: agents.EventDead, AgentID: 2, Storey: "f2", Description: "human 2 died"},
	}))
	require.NoError(t, db.SaveEvents(other, []engine.Event{{Tick: 1, Kind: agents.EventDead, AgentID: 9}}))

	got, err := db.RecentEvents(id, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "dead", got[0].Kind)
	assert.Equal(t, int64(2), got[0].AgentID)
	assert.Equal(t, "f2", got[0].Storey)
	assert.Equal(t, "change_safe", got[1].Kind)
	assert.Equal(t, id, got[1].RunID)
}

func TestTickStatsOrdered(t *testing.T) {
	db := openTemp(t)
	id, err := db.StartRun("office", 1, config.Default())
	require.NoError(t, err)

	for _, tick := range []uint64{600, 0, 1200} {
		st := engine.Stats{Tick: tick, Elapsed: float64(tick) / 60, Burning: int(tick / 600), SmokeTotal: 1.5}
		st.Alive = 5
		require.NoError(t, db.SaveTickStats(id, st))
	}
	assert.Error(t, db.SaveTickStats(id, engine.Stats{Tick: 600}), "one sample per tick")

	rows, err := db.TickStats(id)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, int64(0), rows[0].Tick)
	assert.Equal(t, int64(1200), rows[2].Tick)
	assert.Equal(t, 2, rows[2].Burning)
	assert.Equal(t, 5, rows[1].Alive)
	assert.InDelta(t, 20.0, rows[2].Elapsed, 1e-9)
}

func TestMetaUpsert(t *testing.T) {
	db := openTemp(t)
	_, err := db.GetMeta("last_run")
	assert.ErrorIs(t, err, persistence.ErrNotFound)

	require.NoError(t, db.SaveMeta("last_run", "a"))
	require.NoError(t, db.SaveMeta("last_run", "b"))
	v, err := db.GetMeta("last_run")
	require.NoError(t, err)
	assert.Equal(t, "b", v)
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := persistence.Open(path)
	require.NoError(t, err)
	id, err := db.StartRun("office", 3, config.Default())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = persistence.Open(path)
	require.NoError(t, err)
	defer db.Close()
	r, err := db.Run(id)
	require.NoError(t, err)
	assert.Equal(t, int64(3), r.Seed)
}
