package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/talgya/firedrill/internal/api"
	"github.com/talgya/firedrill/internal/config"
	"github.com/talgya/firedrill/internal/engine"
	"github.com/talgya/firedrill/internal/entropy"
	"github.com/talgya/firedrill/internal/persistence"
	"github.com/talgya/firedrill/internal/persistence/framelog"
	"github.com/talgya/firedrill/internal/world"
)

type runOptions struct {
	plan       string
	params     string
	db         string
	frames     string
	frameEvery int
}

// drill is a built simulation plus the inputs it came from.
type drill struct {
	building *world.Building
	params   config.Params
	sim      *engine.Simulation
}

// setup loads parameters and the floor plan, then builds the simulation.
// Without a plan the demo office is generated from the run seed.
func setup(o runOptions) (*drill, error) {
	p, err := config.Load(o.params)
	if err != nil {
		return nil, err
	}
	rng := entropy.New(p.Seed)

	var b *world.Building
	if o.plan == "" {
		cfg := world.DefaultGenConfig()
		cfg.Seed = rng.Seed()
		b = world.Generate(cfg)
	} else if b, err = world.LoadPlan(o.plan); err != nil {
		return nil, err
	}
	slog.Info("building loaded", "plan", b.Summary())

	sim, err := engine.NewSimulation(b, p, rng)
	if err != nil {
		return nil, fmt.Errorf("build simulation: %w", err)
	}
	return &drill{building: b, params: p, sim: sim}, nil
}

// engineFor creates an engine wired to the drill's simulation.
func (d *drill) engineFor(headless bool) *engine.Engine {
	eng := engine.NewEngine(d.params.TickSeconds)
	eng.Headless = headless
	eng.MaxTicks = uint64(max(d.params.MaxTicks, 0))
	eng.ReportEvery = uint64(max(d.params.ReportEvery, 0))
	eng.Attach(d.sim)
	return eng
}

// recorderFor opens the optional run database and frame log.
func (d *drill) recorderFor(o runOptions) (*recorder, error) {
	r := &recorder{frameEvery: uint64(max(o.frameEvery, 0))}
	if o.db != "" {
		db, err := persistence.Open(o.db)
		if err != nil {
			return nil, err
		}
		id, err := db.StartRun(d.building.Name, d.sim.Seed(), d.params)
		if err != nil {
			db.Close()
			return nil, err
		}
		r.db, r.runID = db, id
	}
	if o.frames != "" {
		w, err := framelog.Open(o.frames, framePrefix(d.building.Name))
		if err != nil {
			r.close()
			return nil, fmt.Errorf("open frame log: %w", err)
		}
		r.frames = w
	}
	return r, nil
}

// close releases the database; the frame log is closed by finish.
func (r *recorder) close() {
	if r.db != nil {
		r.db.Close()
	}
}

func framePrefix(name string) string {
	name = strings.Map(func(c rune) rune {
		if c == '/' || c == '\\' || c == ' ' {
			return '-'
		}
		return c
	}, name)
	if name == "" {
		return "frames"
	}
	return name
}

func runDrill(ctx context.Context, o runOptions) error {
	d, err := setup(o)
	if err != nil {
		return err
	}
	eng := d.engineFor(true)

	rec, err := d.recorderFor(o)
	if err != nil {
		return err
	}
	defer rec.close()
	if err := rec.attach(eng, d.sim); err != nil {
		return err
	}

	runErr := eng.Run(ctx)
	if err := rec.finish(d.sim); err != nil {
		slog.Error("run not fully recorded", "error", err)
	}
	printSummary(d.sim, rec.runID)
	return runErr
}

func runValidate(o runOptions) error {
	d, err := setup(o)
	if err != nil {
		return err
	}
	for _, info := range d.sim.Storeys() {
		fmt.Printf("storey %s: %dx%d, %d exits", info.ID, info.Rows, info.Cols, len(info.Exits))
		if info.DescendsTo != "" {
			fmt.Printf(", descends to %s", info.DescendsTo)
		}
		if info.Ground {
			fmt.Print(", ground")
		}
		fmt.Println()
	}
	st := d.sim.Snapshot()
	fmt.Printf("OK: %s humans can reach an exit; %s cells burning at start.\n",
		humanize.Comma(int64(st.Total)), humanize.Comma(int64(st.Burning)))
	return nil
}

func runServe(ctx context.Context, o runOptions, port int) error {
	d, err := setup(o)
	if err != nil {
		return err
	}
	eng := d.engineFor(false)

	rec, err := d.recorderFor(o)
	if err != nil {
		return err
	}
	defer rec.close()
	if err := rec.attach(eng, d.sim); err != nil {
		return err
	}

	adminKey := os.Getenv("FIREDRILL_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("FIREDRILL_ADMIN_KEY not set, admin POST endpoints will be disabled")
	}
	srv := &api.Server{
		Sim:      d.sim,
		Eng:      eng,
		DB:       rec.db,
		RunID:    rec.runID,
		Port:     port,
		AdminKey: adminKey,
	}
	srv.Start(ctx)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", port)

	runErr := eng.Run(ctx)
	if err := rec.finish(d.sim); err != nil {
		slog.Error("run not fully recorded", "error", err)
	}
	printSummary(d.sim, rec.runID)
	if runErr != nil {
		return runErr
	}

	if ctx.Err() == nil {
		fmt.Println("Drill finished; API stays up until Ctrl+C.")
		<-ctx.Done()
	}
	return nil
}

func runDemo(out string, seed int64, rows, cols int) error {
	cfg := world.DefaultGenConfig()
	cfg.Seed = seed
	if rows > 0 {
		cfg.Rows = rows
	}
	if cols > 0 {
		cfg.Cols = cols
	}
	b := world.Generate(cfg)
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	if err := world.SavePlan(out, b); err != nil {
		return err
	}
	fmt.Printf("Wrote %s: %s\n", out, b.Summary())
	return nil
}

func printSummary(sim *engine.Simulation, runID string) {
	st := sim.Snapshot()
	fmt.Printf("\nDrill over at %s (%s ticks): %s of %s humans safe, %s evacuated, %s dead.\n",
		engine.SimTime(st.Elapsed),
		humanize.Comma(int64(st.Tick)),
		humanize.Comma(int64(st.Safe)),
		humanize.Comma(int64(st.Total)),
		humanize.Comma(int64(st.Evacuated)),
		humanize.Comma(int64(st.Dead)),
	)
	if st.Total > 0 {
		fmt.Printf("Survival rate %s%%, %s cells burned out.\n",
			humanize.FtoaWithDigits(100*float64(st.Total-st.Dead)/float64(st.Total), 1),
			humanize.Comma(int64(st.BurnedOut)))
	}
	if runID != "" {
		fmt.Printf("Run %s recorded.\n", runID)
	}
}
