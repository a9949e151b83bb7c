// Package simulation ties the terrain, wireless topology, scheduler and
// swarm packages together into the fixed-timestep driver loop (spec.md §2,
// §5): each tick recomputes who is wirelessly reachable from the master,
// lets the scheduler assign whatever pending missions it can to reachable
// idle drones, then advances every drone's own state machine in ascending
// key order for determinism.
package simulation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"drones-sim/internal/mission"
	"drones-sim/internal/scheduler"
	"drones-sim/internal/swarm"
	"drones-sim/internal/terrain"
	"drones-sim/internal/wireless"
)

// Station is a control or charge station placed in the world.
type Station struct {
	Key  string
	Kind string // "control" or "charge"
	X, Y float64
}

// pool is the concrete swarm.MissionPool backing a Simulation: the shared
// backlog of not-yet-assigned missions.
type pool struct {
	missions []mission.Mission
}

func (p *pool) Pending() []mission.Mission { return p.missions }

func (p *pool) Take(m mission.Mission) {
	for i, x := range p.missions {
		if x == m {
			p.missions = append(p.missions[:i], p.missions[i+1:]...)
			return
		}
	}
}

func (p *pool) Return(m mission.Mission) {
	p.missions = append(p.missions, m)
}

// Simulation owns the world, the swarm and the mission pool, and advances
// them together one fixed step at a time. Exported state is read through
// Snapshot, which takes a read lock, so an HTTP handler can poll it from a
// separate goroutine while Run ticks the simulation forward.
type Simulation struct {
	mu sync.RWMutex

	world         *terrain.World
	stations      []swarm.ChargeStation
	controlKey    string
	drones        map[string]*swarm.Drone
	droneOrder    []string
	masterKey     string
	wirelessRange float64
	step          float64

	pool    *pool
	elapsed float64
	running bool
}

// New builds a Simulation from already-loaded world/station/drone state
// and an initial mission pool. droneOrder is sorted ascending once, here,
// so every subsequent tick iterates drones in the same deterministic
// order without resorting.
func New(world *terrain.World, stations []Station, drones map[string]*swarm.Drone, masterKey string, wirelessRange, step float64, missions []mission.Mission) (*Simulation, error) {
	var chargeStations []swarm.ChargeStation
	controlKey := ""
	for _, s := range stations {
		switch s.Kind {
		case "charge":
			chargeStations = append(chargeStations, swarm.ChargeStation{Key: s.Key, X: s.X, Y: s.Y})
		case "control":
			controlKey = s.Key
		default:
			return nil, errors.Errorf("simulation: unknown station kind %q", s.Kind)
		}
	}
	if controlKey == "" {
		return nil, errors.New("simulation: no control station provided")
	}
	if len(chargeStations) == 0 {
		return nil, errors.New("simulation: no charge stations provided")
	}
	if _, ok := drones[masterKey]; !ok {
		return nil, errors.Errorf("simulation: master key %q not present among drones", masterKey)
	}

	order := make([]string, 0, len(drones))
	for k := range drones {
		order = append(order, k)
	}
	sort.Strings(order)

	return &Simulation{
		world:         world,
		stations:      chargeStations,
		controlKey:    controlKey,
		drones:        drones,
		droneOrder:    order,
		masterKey:     masterKey,
		wirelessRange: wirelessRange,
		step:          step,
		pool:          &pool{missions: missions},
	}, nil
}

func (s *Simulation) orderedDrones() []*swarm.Drone {
	out := make([]*swarm.Drone, len(s.droneOrder))
	for i, k := range s.droneOrder {
		out[i] = s.drones[k]
	}
	return out
}

// Tick advances the simulation by one fixed step: recompute reachability,
// schedule, then fly/update every drone in key order.
func (s *Simulation) Tick() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.orderedDrones()

	nodes := make([]wireless.Node, len(all))
	for i, d := range all {
		nodes[i] = wireless.Node{Key: d.Key, X: d.X, Y: d.Y}
	}
	reachable := wireless.ReachableFrom(nodes, s.masterKey, s.wirelessRange)

	var available []*swarm.Drone
	for _, d := range all {
		if reachable[d.Key] {
			available = append(available, d)
		}
	}

	if err := scheduler.Schedule(available, s.stations, s.world, s.pool); err != nil {
		return errors.Wrap(err, "simulation: scheduling")
	}

	for _, key := range s.droneOrder {
		d := s.drones[key]
		if err := d.Update(s.world, s.stations, all, reachable, s.step, s.pool); err != nil {
			return errors.Wrapf(err, "simulation: updating drone %s", key)
		}
	}

	s.elapsed += s.step
	return nil
}

// Run ticks the simulation forward on a wall-clock timer scaled by
// whatever realtimeFactor currently returns (1.0 = one tick per s.step
// seconds of wall time), re-read before every tick so a caller's keyboard
// loop can speed up or slow down playback without restarting Run.
func (s *Simulation) Run(ctx context.Context, realtimeFactor func() float64) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	for {
		interval := time.Duration(s.step / realtimeFactor() * float64(time.Second))
		timer := time.NewTimer(interval)

		select {
		case <-ctx.Done():
			timer.Stop()
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			return nil
		case <-timer.C:
			s.mu.RLock()
			paused := !s.running
			s.mu.RUnlock()
			if paused {
				continue
			}
			if err := s.Tick(); err != nil {
				log.Error().Err(err).Msg("simulation tick failed")
				return err
			}
		}
	}
}

// SetRunning pauses or resumes Run's ticking without tearing down state.
func (s *Simulation) SetRunning(running bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = running
}

// ToggleRunning flips the pause state and returns the new value.
func (s *Simulation) ToggleRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = !s.running
	return s.running
}

// DroneSnapshot is the read-only view of one drone exposed over HTTP.
type DroneSnapshot struct {
	Key          string  `json:"key"`
	IsMaster     bool    `json:"is_master"`
	X            float64 `json:"x"`
	Y            float64 `json:"y"`
	State        string  `json:"state"`
	LifetimeLeft float64 `json:"lifetime_left"`
	Flying       bool    `json:"flying"`
}

// Snapshot is the full read-only simulation state exposed over HTTP.
type Snapshot struct {
	Elapsed       float64         `json:"elapsed"`
	Running       bool            `json:"running"`
	PendingCount  int             `json:"pending_missions"`
	Drones        []DroneSnapshot `json:"drones"`
}

// Snapshot takes a read lock and copies out the current state.
func (s *Simulation) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	drones := make([]DroneSnapshot, len(s.droneOrder))
	for i, key := range s.droneOrder {
		d := s.drones[key]
		drones[i] = DroneSnapshot{
			Key:          d.Key,
			IsMaster:     d.IsMaster,
			X:            d.X,
			Y:            d.Y,
			State:        string(d.State),
			LifetimeLeft: d.LifetimeLeft,
			Flying:       d.Flying,
		}
	}

	return Snapshot{
		Elapsed:      s.elapsed,
		Running:      s.running,
		PendingCount: len(s.pool.Pending()),
		Drones:       drones,
	}
}
