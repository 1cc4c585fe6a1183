package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/engine"
	"github.com/talgya/firedrill/internal/persistence"
	"github.com/talgya/firedrill/internal/persistence/framelog"
	"github.com/talgya/firedrill/internal/world"
)

func writeParams(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "params.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 11
ignition_probability: 0.2
human_seed: 0.3
report_every: 60
max_ticks: 60000
`), 0o644))
	return path
}

func TestDemoThenValidate(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "plans", "office.json")
	require.NoError(t, runDemo(plan, 7, 0, 0))

	b, err := world.LoadPlan(plan)
	require.NoError(t, err)
	assert.Len(t, b.Storeys, 2)

	require.NoError(t, runValidate(runOptions{plan: plan, params: writeParams(t, dir)}))
}

func TestRunRecordsDrill(t *testing.T) {
	dir := t.TempDir()
	plan := filepath.Join(dir, "office.json")
	require.NoError(t, runDemo(plan, 3, 0, 0))

	o := runOptions{
		plan:       plan,
		params:     writeParams(t, dir),
		db:         filepath.Join(dir, "runs.db"),
		frames:     filepath.Join(dir, "frames"),
		frameEvery: 30,
	}
	require.NoError(t, runDrill(context.Background(), o))

	db, err := persistence.Open(o.db)
	require.NoError(t, err)
	defer db.Close()

	runID, err := db.GetMeta("last_run")
	require.NoError(t, err)
	r, err := db.Run(runID)
	require.NoError(t, err)
	assert.True(t, r.Finished())
	assert.Equal(t, int64(11), r.Seed)
	assert.Positive(t, r.Total)
	assert.Equal(t, r.Total, r.Safe+r.Dead, "the drill runs until everyone is settled")

	stats, err := db.TickStats(runID)
	require.NoError(t, err)
	require.NotEmpty(t, stats)
	assert.Equal(t, int64(0), stats[0].Tick)
	assert.Equal(t, r.Ticks, stats[len(stats)-1].Tick)

	events, err := db.RecentEvents(runID, 10000)
	require.NoError(t, err)
	assert.Len(t, events, r.Safe+r.Dead+r.Evacuated+changes(events),
		"one safe or dead event per human, plus evacuations and storey changes")

	logs, err := filepath.Glob(filepath.Join(o.frames, "*.jsonl.zst"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	frames, err := framelog.ReadAll[engine.Frame](logs[0])
	require.NoError(t, err)
	require.NotEmpty(t, frames)
	assert.Zero(t, frames[0].Tick)
	assert.Equal(t, uint64(r.Ticks), frames[len(frames)-1].Tick)
}

func changes(events []persistence.EventRecord) int {
	n := 0
	for _, e := range events {
		if e.Kind == "change_storey" {
			n++
		}
	}
	return n
}

func TestFramePrefix(t *testing.T) {
	assert.Equal(t, "frames", framePrefix(""))
	assert.Equal(t, "head-office-2", framePrefix("head office/2"))
}
