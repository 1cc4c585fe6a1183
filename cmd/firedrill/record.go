package main

import (
	"fmt"
	"log/slog"

	"github.com/talgya/firedrill/internal/engine"
	"github.com/talgya/firedrill/internal/persistence"
	"github.com/talgya/firedrill/internal/persistence/framelog"
)

// recorder persists a run as it ticks: lifecycle events every tick, a stats
// sample every report, and a render frame every frameEvery ticks.
type recorder struct {
	db         *persistence.DB
	runID      string
	frames     *framelog.Writer
	frameEvery uint64

	saved   uint64 // Last tick whose events are stored
	sampled uint64 // Last tick with a stats sample
	hasStat bool
}

// attach wraps the engine callbacks already wired by Engine.Attach.
func (r *recorder) attach(eng *engine.Engine, sim *engine.Simulation) error {
	if err := r.sample(sim); err != nil {
		return err
	}

	step := eng.OnTick
	eng.OnTick = func(tick uint64) error {
		if err := step(tick); err != nil {
			return err
		}
		if r.db != nil {
			if err := r.db.SaveEvents(r.runID, sim.EventsSince(r.saved)); err != nil {
				return fmt.Errorf("save events: %w", err)
			}
			r.saved = tick
		}
		if r.frames != nil && r.frameEvery > 0 && tick%r.frameEvery == 0 {
			if err := r.frames.Write(sim.Frame()); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}
		return nil
	}

	report := eng.OnReport
	eng.OnReport = func(tick uint64) {
		report(tick)
		if err := r.saveStats(sim.Snapshot()); err != nil {
			slog.Warn("tick stats not saved", "tick", tick, "error", err)
		}
	}
	return nil
}

// saveStats stores one sample per tick at most.
func (r *recorder) saveStats(st engine.Stats) error {
	if r.db == nil || (r.hasStat && st.Tick == r.sampled) {
		return nil
	}
	if err := r.db.SaveTickStats(r.runID, st); err != nil {
		return err
	}
	r.sampled, r.hasStat = st.Tick, true
	return nil
}

// sample stores the pre-run state.
func (r *recorder) sample(sim *engine.Simulation) error {
	if err := r.saveStats(sim.Snapshot()); err != nil {
		return fmt.Errorf("save tick stats: %w", err)
	}
	if r.db != nil {
		if err := r.db.SaveEvents(r.runID, sim.EventsSince(0)); err != nil {
			return fmt.Errorf("save events: %w", err)
		}
	}
	if r.frames != nil {
		if err := r.frames.Write(sim.Frame()); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}
	return nil
}

// finish stamps the run with its final statistics and closes the frame log.
func (r *recorder) finish(sim *engine.Simulation) error {
	var err error
	if r.frames != nil {
		if r.frameEvery == 0 || sim.CurrentTick()%r.frameEvery != 0 {
			err = r.frames.Write(sim.Frame())
		}
		if cerr := r.frames.Close(); err == nil {
			err = cerr
		}
		slog.Info("frame log written", "path", r.frames.Path(), "frames", r.frames.Lines())
	}
	if r.db != nil {
		st := sim.Snapshot()
		if serr := r.saveStats(st); err == nil {
			err = serr
		}
		if eerr := r.db.SaveEvents(r.runID, sim.EventsSince(r.saved)); err == nil {
			err = eerr
		}
		if ferr := r.db.FinishRun(r.runID, st); err == nil {
			err = ferr
		}
		if merr := r.db.SaveMeta("last_run", r.runID); err == nil {
			err = merr
		}
	}
	return err
}
