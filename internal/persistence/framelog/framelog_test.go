package framelog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/firedrill/internal/engine"
	"github.com/talgya/firedrill/internal/persistence/framelog"
	"github.com/talgya/firedrill/internal/world"
)

func TestFramesRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "frames")
	w, err := framelog.Open(dir, "office")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(w.Path()), "office-"))
	assert.True(t, strings.HasSuffix(w.Path(), ".jsonl.zst"))

	frames := []engine.Frame{
		{Tick: 1, Elapsed: 1.0 / 60, Storeys: []engine.StoreyFrame{
			{ID: "f1", Rows: 1, Cols: 2, Fire: []bool{true, false}, Smoke: []float64{0.25, 0}},
		}},
		{Tick: 2, Elapsed: 2.0 / 60, Agents: []engine.AgentFrame{
			{ID: 7, Storey: "f1", Position: world.Vec2{X: 5, Y: 15}, Dead: true},
		}},
	}
	for _, f := range frames {
		require.NoError(t, w.Write(f))
	}
	assert.Equal(t, 2, w.Lines())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
	assert.ErrorIs(t, w.Write(frames[0]), os.ErrClosed)

	got, err := framelog.ReadAll[engine.Frame](w.Path())
	require.NoError(t, err)
	assert.Equal(t, frames, got)
}

func TestReadAllRejectsPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.jsonl.zst")
	require.NoError(t, os.WriteFile(path, []byte("{\"tick\":1}\n"), 0o644))
	_, err := framelog.ReadAll[engine.Frame](path)
	assert.Error(t, err)
}
