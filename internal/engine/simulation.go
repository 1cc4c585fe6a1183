// Simulation ties the per-storey fire, smoke and passability fields to the
// crowd and steps them in a fixed order every tick.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zyedidia/generic/mapset"

	"github.com/talgya/firedrill/internal/agents"
	"github.com/talgya/firedrill/internal/config"
	"github.com/talgya/firedrill/internal/entropy"
	"github.com/talgya/firedrill/internal/fire"
	"github.com/talgya/firedrill/internal/route"
	"github.com/talgya/firedrill/internal/smoke"
	"github.com/talgya/firedrill/internal/world"
)

// maxEvents bounds the in-memory event log.
const maxEvents = 1000

// subscriberBuffer is the per-subscriber channel capacity.
const subscriberBuffer = 256

// hazardStepCost keeps smoke-free hazard routes as short as plain BFS routes.
const hazardStepCost = 1

// Simulation holds the complete run state. Step takes the write lock for a
// whole tick; the read accessors take the read lock.
type Simulation struct {
	mu sync.RWMutex

	Building *world.Building
	Params   config.Params
	Fire     *fire.Building
	Smoke    *smoke.Building
	Pass     map[world.StoreyID]*route.Field
	Crowd    *agents.Crowd

	Events   []Event // Recent lifecycle records, trimmed to maxEvents
	LastTick uint64
	Elapsed  float64 // Simulated seconds
	Stats    Stats

	rng *entropy.Source

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextSub int
}

// Event is one record in the simulation's event log.
type Event struct {
	Tick        uint64           `json:"tick"`
	Elapsed     float64          `json:"elapsed"`
	Kind        agents.EventKind `json:"kind"`
	AgentID     agents.AgentID   `json:"agent_id"`
	Storey      world.StoreyID   `json:"storey"`
	Description string           `json:"description"`
}

// Stats tracks aggregate run statistics.
type Stats struct {
	agents.Counts
	Tick       uint64  `json:"tick"`
	Elapsed    float64 `json:"elapsed"`
	Burning    int     `json:"burning"`
	BurnedOut  int     `json:"burned_out"`
	SmokeTotal float64 `json:"smoke_total"`
}

// NewSimulation provisions one fire, smoke and passability field per storey,
// lights the initial fires, then spawns and plans the crowd. Any error
// aborts setup.
func NewSimulation(b *world.Building, p config.Params, rng *entropy.Source) (*Simulation, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := b.CheckDescent(); err != nil {
		return nil, fmt.Errorf("%w: %w", world.ErrInvalidPlan, err)
	}

	s := &Simulation{
		Building: b,
		Params:   p,
		Fire:     fire.NewBuilding(),
		Smoke:    smoke.NewBuilding(),
		Pass:     make(map[world.StoreyID]*route.Field, len(b.Storeys)),
		Crowd:    agents.NewCrowd(),
		rng:      rng,
		subs:     make(map[int]chan Event),
	}

	fireParams := fire.Params{
		BurnTime:      p.BurnTime,
		SmokeInterval: p.SmokeInterval,
		K:             p.K,
		Emission:      p.SmokeEmission,
	}
	ignited := 0
	for _, id := range b.IDs() {
		st := b.Storey(id)
		if st.DescendsTo != "" {
			below := b.Storey(st.DescendsTo)
			if err := below.Grid.CheckDims(st.Grid.Rows, st.Grid.Cols); err != nil {
				return nil, fmt.Errorf("storey %q over %q: %w", id, st.DescendsTo, err)
			}
		}
		f := fire.New(st.Grid, fireParams, rng)
		ignited += f.Ignite(p.IgnitionProbability)
		s.Fire.Storeys[id] = f
		s.Smoke.Storeys[id] = smoke.New(st.Grid)
		s.Pass[id] = route.NewField(st.Grid)
	}

	spawner := agents.NewSpawner(rng)
	cfg := agents.SpawnConfig{
		HumanSeed:    p.HumanSeed,
		MaxHealth:    p.MaxHealth,
		HealthSpread: p.HealthSpread,
		MaxSpeed:     p.MaxSpeed,
		SpeedSpread:  p.SpeedSpread,
	}
	for _, id := range b.IDs() {
		st := b.Storey(id)
		for _, h := range spawner.SpawnStorey(st, cfg) {
			if err := h.Plan(s.Pass[id], st.Geometry); err != nil {
				return nil, fmt.Errorf("plan crowd: %w", err)
			}
			s.Crowd.Add(h)
		}
	}
	s.updateStats()

	slog.Info("simulation built",
		"building", b.Name,
		"storeys", len(b.Storeys),
		"humans", s.Crowd.Len(),
		"ignited", ignited,
		"routing", p.Routing,
		"seed", rng.Seed(),
	)
	return s, nil
}

// Step advances the simulation by dt seconds and returns the lifecycle
// events raised this tick, after their consumers have run.
func (s *Simulation) Step(dt float64) ([]agents.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastTick++
	s.Elapsed += dt
	ids := s.Building.IDs()

	for _, id := range ids {
		f := s.Fire.Storey(id)
		sm := s.Smoke.Storey(id)
		f.Spread()
		s.Stats.BurnedOut += f.Advance(dt, sm)
		sm.Diffuse()
	}

	if s.Params.Routing == config.RoutingHazard && s.LastTick%uint64(s.Params.RerouteEvery) == 0 {
		if err := s.reroute(ids); err != nil {
			return nil, err
		}
	}

	var events []agents.Event
	for _, h := range s.Crowd.Humans {
		if !h.Active() {
			continue
		}
		st := s.Building.Storey(h.Storey)
		events = append(events, agents.Update(h, s.Smoke.Storey(h.Storey), dt, agents.Rules{
			SmokeDamage: s.Params.SmokeDamage,
			Ground:      s.Building.Ground,
			DescendsTo:  st.DescendsTo,
			Geometry:    st.Geometry,
		})...)
	}

	events, err := s.dispatch(events)
	s.updateStats()
	return events, err
}

// dispatch runs the consumers of this tick's events. Consumers may append
// follow-up events: an evacuee with nowhere to go is immediately safe, and a
// human landing on an exit below arrives in the same tick.
func (s *Simulation) dispatch(events []agents.Event) ([]agents.Event, error) {
	var errs []error
	for i := 0; i < len(events); i++ {
		ev := events[i]
		h, ok := s.Crowd.Get(ev.ID)
		if !ok {
			panic(fmt.Sprintf("engine: event for unknown human %d", ev.ID))
		}
		switch ev.Kind {
		case agents.EventEvacuated:
			st := s.Building.Storey(h.Storey)
			safeNow, err := h.Evacuate(st.Grid, st.Geometry)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if safeNow {
				events = append(events, agents.Event{Kind: agents.EventChangeSafe, ID: h.ID, Storey: h.Storey})
			}
		case agents.EventChangeStorey:
			below := s.Building.Storey(s.Building.Storey(h.Storey).DescendsTo)
			arrived, err := h.MoveTo(below.ID, s.Pass[below.ID], below.Geometry)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if arrived {
				if next, ok := h.Arrive(s.Building.Ground, below.DescendsTo); ok {
					events = append(events, next)
				}
			}
		}
		s.record(ev, h)
	}
	return events, errors.Join(errs...)
}

// reroute refreshes danger from smoke and sends every enroute human along
// the hazard-weighted flow toward its cheapest exit.
func (s *Simulation) reroute(ids []world.StoreyID) error {
	busy := mapset.New[world.StoreyID]()
	for _, h := range s.Crowd.Humans {
		if enroute(h) {
			busy.Put(h.Storey)
		}
	}

	for _, id := range ids {
		if !busy.Has(id) {
			continue
		}
		field := s.Pass[id]
		if err := field.Refresh(s.Smoke.Storey(id)); err != nil {
			return fmt.Errorf("storey %s: %w", id, err)
		}

		flows := make([]*route.Flow, 0, len(field.Exits()))
		for _, exit := range field.Exits() {
			flows = append(flows, route.ComputeFlow(field, exit, route.FlowOptions{StepCost: hazardStepCost}))
		}

		for _, h := range s.Crowd.Humans {
			if h.Storey != id || !enroute(h) {
				continue
			}
			best := cheapest(flows, h.NextTile)
			if best == nil {
				continue
			}
			trace, err := best.Trace(h.NextTile)
			if err != nil {
				return fmt.Errorf("storey %s human %d: %w", id, h.ID, err)
			}
			h.Reroute(append([]world.Coord{h.NextTile}, trace...))
		}
	}
	return nil
}

// enroute reports whether h is still inside, walking toward an exit.
func enroute(h *agents.Human) bool {
	return h.Active() && !h.Evacuated && len(h.Path) > 0
}

// cheapest returns the flow with the lowest cost from c; ties keep exit order.
func cheapest(flows []*route.Flow, c world.Coord) *route.Flow {
	var best *route.Flow
	for _, fl := range flows {
		if !fl.Reachable(c) {
			continue
		}
		if best == nil || fl.Cost(c) < best.Cost(c) {
			best = fl
		}
	}
	return best
}

func (s *Simulation) record(ev agents.Event, h *agents.Human) {
	var desc string
	switch ev.Kind {
	case agents.EventDead:
		desc = fmt.Sprintf("human %d died on %s at %v", h.ID, ev.Storey, h.Tile)
	case agents.EventEvacuated:
		desc = fmt.Sprintf("human %d left the building through %v", h.ID, h.Tile)
	case agents.EventChangeStorey:
		desc = fmt.Sprintf("human %d went down from %s to %s", h.ID, ev.Storey, h.Storey)
	case agents.EventChangeSafe:
		desc = fmt.Sprintf("human %d reached safety at %v", h.ID, h.Tile)
	}
	e := Event{
		Tick:        s.LastTick,
		Elapsed:     s.Elapsed,
		Kind:        ev.Kind,
		AgentID:     ev.ID,
		Storey:      ev.Storey,
		Description: desc,
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxEvents {
		s.Events = s.Events[len(s.Events)-maxEvents:]
	}
	s.publish(e)
}

func (s *Simulation) updateStats() {
	st := Stats{
		Counts:    s.Crowd.Counts(),
		Tick:      s.LastTick,
		Elapsed:   s.Elapsed,
		BurnedOut: s.Stats.BurnedOut,
	}
	for _, id := range s.Building.IDs() {
		st.Burning += s.Fire.Storey(id).Burning()
		st.SmokeTotal += s.Smoke.Storey(id).Total()
	}
	s.Stats = st
}

// Seed returns the effective random seed of the run.
func (s *Simulation) Seed() int64 {
	return s.rng.Seed()
}

// CurrentTick returns the most recently processed tick number.
func (s *Simulation) CurrentTick() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.LastTick
}

// Snapshot returns the current statistics.
func (s *Simulation) Snapshot() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Stats
}

// Settled reports whether every human is dead or safe.
func (s *Simulation) Settled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Crowd.Settled()
}

// Humans returns copies of every human, optionally filtered by storey.
func (s *Simulation) Humans(storey world.StoreyID) []agents.Human {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]agents.Human, 0, s.Crowd.Len())
	for _, h := range s.Crowd.Humans {
		if storey != "" && h.Storey != storey {
			continue
		}
		out = append(out, *h)
	}
	return out
}

// Human returns a copy of one human.
func (s *Simulation) Human(id agents.AgentID) (agents.Human, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.Crowd.Get(id)
	if !ok {
		return agents.Human{}, false
	}
	return *h, true
}

// RecentEvents returns up to limit of the newest log records, oldest first.
func (s *Simulation) RecentEvents(limit int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := 0
	if limit > 0 && len(s.Events) > limit {
		start = len(s.Events) - limit
	}
	out := make([]Event, len(s.Events)-start)
	copy(out, s.Events[start:])
	return out
}

// EventsSince returns the retained log records newer than tick, oldest first.
func (s *Simulation) EventsSince(tick uint64) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	start := len(s.Events)
	for start > 0 && s.Events[start-1].Tick > tick {
		start--
	}
	out := make([]Event, len(s.Events)-start)
	copy(out, s.Events[start:])
	return out
}

// Subscribe registers a listener for new log records.
func (s *Simulation) Subscribe() (int, <-chan Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	ch := make(chan Event, subscriberBuffer)
	s.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a listener and closes its channel.
func (s *Simulation) Unsubscribe(id int) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	if ch, ok := s.subs[id]; ok {
		delete(s.subs, id)
		close(ch)
	}
}

// publish never blocks the tick; a full subscriber misses the record.
func (s *Simulation) publish(e Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("subscriber dropped event", "sub_id", id, "tick", e.Tick)
		}
	}
}
