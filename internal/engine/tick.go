// Package engine provides the evacuation simulation and the tick loop that drives it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// pausePoll is how often a paused engine checks for a speed change.
const pausePoll = 100 * time.Millisecond

// Engine drives a simulation forward at a fixed simulated step.
type Engine struct {
	Tick     uint64        // Current tick counter (monotonic)
	DT       float64       // Simulated seconds per tick
	Interval time.Duration // Wall-clock time per tick at speed 1
	Headless bool          // Never sleep; run as fast as possible

	MaxTicks    uint64 // Stop after this many ticks (0 = unbounded)
	ReportEvery uint64 // OnReport cadence in ticks (0 = never)

	// Callbacks, populated during setup.
	OnTick   func(tick uint64) error // Every tick; an error stops the loop
	OnReport func(tick uint64)       // Every ReportEvery ticks
	Done     func() bool             // Checked after every tick

	mu      sync.Mutex
	speed   float64 // Multiplier: 1.0 = real-time, 0 = paused
	stopped bool
}

// NewEngine creates an engine stepping dt simulated seconds per tick,
// paced in real time.
func NewEngine(dt float64) *Engine {
	return &Engine{
		DT:       dt,
		Interval: time.Duration(dt * float64(time.Second)),
		speed:    1.0,
	}
}

// Speed returns the current speed multiplier.
func (e *Engine) Speed() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.speed
}

// SetSpeed changes the speed multiplier; 0 pauses a paced engine.
func (e *Engine) SetSpeed(speed float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.speed = speed
}

// Stop halts the loop after the current tick.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
}

func (e *Engine) isStopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Run steps until Stop, context cancellation, MaxTicks, Done, or the first
// OnTick error, which it returns.
func (e *Engine) Run(ctx context.Context) error {
	slog.Info("simulation engine started", "tick", e.Tick, "speed", e.Speed(), "headless", e.Headless)
	defer func() { slog.Info("simulation engine stopped", "tick", e.Tick) }()

	for !e.isStopped() {
		if err := ctx.Err(); err != nil {
			return nil
		}

		speed := e.Speed()
		if !e.Headless && speed <= 0 {
			if !sleep(ctx, pausePoll) {
				return nil
			}
			continue
		}

		start := time.Now()
		if err := e.step(); err != nil {
			return err
		}
		if e.MaxTicks > 0 && e.Tick >= e.MaxTicks {
			slog.Info("tick limit reached", "tick", e.Tick)
			return nil
		}
		if e.Done != nil && e.Done() {
			return nil
		}

		if e.Headless {
			continue
		}
		// Sleep for the remainder of the tick interval, adjusted for speed.
		target := time.Duration(float64(e.Interval) / speed)
		if elapsed := time.Since(start); elapsed < target {
			if !sleep(ctx, target-elapsed) {
				return nil
			}
		}
	}
	return nil
}

// step advances the simulation by one tick.
func (e *Engine) step() error {
	e.Tick++

	if e.OnTick != nil {
		if err := e.OnTick(e.Tick); err != nil {
			return fmt.Errorf("tick %d: %w", e.Tick, err)
		}
	}

	if e.ReportEvery > 0 && e.Tick%e.ReportEvery == 0 && e.OnReport != nil {
		e.OnReport(e.Tick)
	}
	return nil
}

// sleep waits for d or until ctx is done; it reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

// SimTime renders simulated seconds as mm:ss.s.
func SimTime(elapsed float64) string {
	minutes := int(elapsed) / 60
	seconds := elapsed - float64(minutes*60)
	return fmt.Sprintf("%02d:%04.1f", minutes, seconds)
}

// Attach wires a simulation into the engine: every tick steps it by DT and
// the loop ends once everyone is dead or safe.
func (e *Engine) Attach(sim *Simulation) {
	e.OnTick = func(uint64) error {
		_, err := sim.Step(e.DT)
		return err
	}
	e.Done = sim.Settled
	e.OnReport = func(tick uint64) {
		st := sim.Snapshot()
		slog.Info("periodic report",
			"tick", tick,
			"time", SimTime(st.Elapsed),
			"alive", st.Alive,
			"dead", st.Dead,
			"evacuated", st.Evacuated,
			"safe", st.Safe,
			"burning", st.Burning,
			"smoke_total", fmt.Sprintf("%.1f", st.SmokeTotal),
		)
	}
}
