// Package swarm implements the per-drone flight/mission/charge state
// machine (spec.md §3 Drone, §4.5): collision-avoiding flight toward a
// target, mission execution, charging, and the master's idle-time
// connectivity patrol. Scheduling (which drone gets which mission) lives
// in internal/scheduler; this package only knows how to fly one drone
// forward in time.
package swarm

import (
	"math"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"drones-sim/internal/geometry"
	"drones-sim/internal/mission"
	"drones-sim/internal/terrain"
)

// State is one of the five drone states from spec.md §3.
type State string

const (
	StateWait         State = "wait"
	StateFlyToMission State = "flyToMission"
	StateOnMission    State = "onMission"
	StateFlyToCharge  State = "flyToCharge"
	StateOnCharge     State = "onCharge"
)

// ChargeStation is a charging point a drone can fly to.
type ChargeStation struct {
	Key  string
	X, Y float64
}

// MissionPool is the master's shared mission backlog, held behind an
// interface rather than a bare shared slice reference so ownership of
// mutation is explicit (spec.md §9 DESIGN NOTES). Drones only ever return
// missions to it (on battery diversion, or a finished patrol loop); only
// the scheduler takes from it.
type MissionPool interface {
	Pending() []mission.Mission
	Take(m mission.Mission)
	Return(m mission.Mission)
}

// Drone is one swarm member: a flight state machine plus the payload
// capabilities and battery budget that constrain what it can be assigned.
type Drone struct {
	Key      string
	IsMaster bool
	Payload  []string

	X, Y  float64
	Speed float64

	MaxLifetime  float64
	LifetimeLeft float64
	ChargePower  float64

	PayloadAgroVolume     float64
	PayloadAgroVolumeLeft float64

	State                State
	TargetX, TargetY      float64
	TargetMission         mission.Mission
	PathPlannerMission    *mission.Path
	Flying                bool
}

// NewDrone builds a drone at rest, at full charge, in the wait state.
func NewDrone(key string, isMaster bool, payload []string, x, y, speed, maxLifetime, chargePower, payloadAgroVolume float64) *Drone {
	return &Drone{
		Key:                   key,
		IsMaster:              isMaster,
		Payload:               payload,
		X:                     x,
		Y:                     y,
		Speed:                 speed,
		MaxLifetime:           maxLifetime,
		LifetimeLeft:          maxLifetime,
		ChargePower:           chargePower,
		PayloadAgroVolume:     payloadAgroVolume,
		PayloadAgroVolumeLeft: payloadAgroVolume,
		State:                 StateWait,
	}
}

// CanCarry reports whether the drone's payload roster includes the given
// mission type.
func (d *Drone) CanCarry(missionType string) bool {
	for _, p := range d.Payload {
		if p == missionType {
			return true
		}
	}
	return false
}

// TimeTo returns how long it would take the drone to fly in a straight
// line to (x, y) at its nominal speed.
func (d *Drone) TimeTo(x, y float64) float64 {
	return geometry.DistBetween(d.X, d.Y, x, y) / d.Speed
}

// NeedTask reports whether the drone is idle and eligible for assignment.
func (d *Drone) NeedTask() bool {
	return d.TargetMission == nil && d.State == StateWait
}

// AddTask assigns m to the drone, planning a route to its first waypoint
// through world if the drone is currently idle on the ground.
func (d *Drone) AddTask(m mission.Mission, world *terrain.World) error {
	if !d.NeedTask() {
		return errors.Errorf("swarm: drone %s: AddTask called while not idle (state=%s)", d.Key, d.State)
	}
	log.Info().Str("drone", d.Key).Int("mission", m.Key()).Msg("new mission")

	d.Flying = true
	d.TargetMission = m

	if d.State == StateWait {
		fw := m.FirstWaypoint()
		path, err := world.EstimatePath(d.X, d.Y, fw.X, fw.Y)
		if err != nil {
			return errors.Wrapf(err, "swarm: drone %s: planning route to mission %d", d.Key, m.Key())
		}
		d.PathPlannerMission = mission.NewPath(0, "", path)
		wp := d.PathPlannerMission.NextWaypoint()
		d.TargetX, d.TargetY = wp.X, wp.Y
		d.State = StateFlyToMission
	}
	return nil
}

func (d *Drone) predictNextPosition(dt float64) (x, y float64) {
	dx, dy := d.TargetX-d.X, d.TargetY-d.Y
	dist := geometry.Dist(dx, dy)
	if dist == 0 {
		return d.X, d.Y
	}
	travel := d.Speed * dt
	if travel >= dist {
		return d.TargetX, d.TargetY
	}
	return d.X + dx/dist*travel, d.Y + dy/dist*travel
}

// Fly advances the drone one step toward its current target, pausing in
// place for one tick if its projected path this tick would cross another
// drone's projected path — resolved deterministically by comparing keys,
// so only one of the two drones ever yields (spec.md §4.5 collision
// avoidance). On arrival it either advances the planner-produced path to
// its next leg, or — once the whole planned path is spent — transitions
// out of the flyTo* state.
func (d *Drone) Fly(others []*Drone, dt float64) error {
	nx, ny := d.predictNextPosition(dt)

	for _, other := range others {
		if other == d {
			continue
		}
		onx, ony := other.predictNextPosition(dt)
		if geometry.SegmentsIntersect(d.X, d.Y, nx, ny, other.X, other.Y, onx, ony) && d.Key < other.Key {
			log.Info().Str("drone", d.Key).Str("other", other.Key).Msg("collision avoidance pause")
			nx, ny = d.X, d.Y
		}
	}

	d.X, d.Y = nx, ny
	if d.X != d.TargetX || d.Y != d.TargetY {
		return nil
	}

	if d.PathPlannerMission != nil {
		d.PathPlannerMission.Update(dt)
		if d.PathPlannerMission.Finished() {
			d.PathPlannerMission = nil
		} else {
			wp := d.PathPlannerMission.NextWaypoint()
			d.TargetX, d.TargetY = wp.X, wp.Y
			return nil
		}
	}

	switch d.State {
	case StateFlyToMission:
		d.State = StateOnMission
		log.Info().Str("drone", d.Key).Int("mission", d.TargetMission.Key()).Msg("executing mission")
	case StateFlyToCharge:
		d.State = StateOnCharge
		d.Flying = false
		log.Info().Str("drone", d.Key).Msg("on charge")
	default:
		return errors.Errorf("swarm: drone %s: arrived at target in unexpected state %q", d.Key, d.State)
	}
	return nil
}

func (d *Drone) updateMission(dt float64) error {
	if d.State != StateOnMission {
		return errors.Errorf("swarm: drone %s: updateMission called outside onMission (state=%s)", d.Key, d.State)
	}
	m := d.TargetMission
	m.Update(dt)

	if m.Type() == "agro" {
		if poly, ok := m.(*mission.Poly); ok {
			d.PayloadAgroVolumeLeft -= dt * poly.AgroVolumePerSecond
			if d.PayloadAgroVolumeLeft < 0 {
				log.Warn().Str("drone", d.Key).Msg("agro payload exhausted mid-mission")
			}
		}
	}

	if m.Finished() {
		log.Info().Str("drone", d.Key).Int("mission", m.Key()).Msg("mission finished")
		if patrol, ok := m.(*mission.Patrol); ok {
			patrol.Reset()
		}
		d.TargetMission = nil
		d.State = StateWait
	} else if m.HasNextWaypoint() {
		d.State = StateFlyToMission
		wp := m.NextWaypoint()
		d.TargetX, d.TargetY = wp.X, wp.Y
	}
	return nil
}

func (d *Drone) updateCharge(dt float64) error {
	if d.State != StateOnCharge {
		return errors.Errorf("swarm: drone %s: updateCharge called outside onCharge (state=%s)", d.Key, d.State)
	}
	d.LifetimeLeft = math.Min(d.MaxLifetime, d.LifetimeLeft+d.ChargePower*dt)

	if d.LifetimeLeft == d.MaxLifetime {
		log.Info().Str("drone", d.Key).Msg("charge finished")
		if d.TargetMission == nil {
			d.State = StateWait
		} else {
			return errors.Errorf("swarm: drone %s: fully charged with a mission still assigned", d.Key)
		}
	}

	if d.PayloadAgroVolumeLeft != d.PayloadAgroVolume {
		d.PayloadAgroVolumeLeft = d.PayloadAgroVolume
		log.Info().Str("drone", d.Key).Msg("agro payload restocked")
	}
	return nil
}

func closestChargeStation(stations []ChargeStation, x, y float64) (ChargeStation, float64) {
	best := stations[0]
	bestDist := geometry.DistBetween(x, y, best.X, best.Y)
	for _, s := range stations[1:] {
		d := geometry.DistBetween(x, y, s.X, s.Y)
		if d < bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist
}

func furthestChargeStation(stations []ChargeStation, x, y float64) (ChargeStation, float64) {
	best := stations[0]
	bestDist := geometry.DistBetween(x, y, best.X, best.Y)
	for _, s := range stations[1:] {
		d := geometry.DistBetween(x, y, s.X, s.Y)
		if d > bestDist {
			best, bestDist = s, d
		}
	}
	return best, bestDist
}

// TimeToClosestChargeStationFrom returns the flight time from (x, y) to the
// nearest charge station, at this drone's speed.
func (d *Drone) TimeToClosestChargeStationFrom(stations []ChargeStation, x, y float64) float64 {
	_, dist := closestChargeStation(stations, x, y)
	return dist / d.Speed
}

// checkIfBatteryIsLow diverts the drone to the nearest charge station the
// instant its remaining lifetime is no longer strictly more than the time
// needed to reach it (spec.md §4.5: ">=" on purpose — this is "just barely
// enough", not a safety margin).
func (d *Drone) checkIfBatteryIsLow(stations []ChargeStation, world *terrain.World, pool MissionPool) error {
	station, dist := closestChargeStation(stations, d.X, d.Y)
	timeToReach := dist / d.Speed
	if timeToReach < d.LifetimeLeft {
		return nil
	}

	log.Info().Str("drone", d.Key).Msg("low battery, diverting to charge station")
	d.State = StateFlyToCharge
	if d.TargetMission != nil {
		pool.Return(d.TargetMission)
		d.TargetMission = nil
	}

	path, err := world.EstimatePath(d.X, d.Y, station.X, station.Y)
	if err != nil {
		return errors.Wrapf(err, "swarm: drone %s: planning route to charge station", d.Key)
	}
	d.PathPlannerMission = mission.NewPath(0, "", path)
	wp := d.PathPlannerMission.NextWaypoint()
	d.TargetX, d.TargetY = wp.X, wp.Y
	return nil
}

// Update advances the drone one simulation tick. reachableKeys is the set
// of drone keys (including the master itself) currently wirelessly
// reachable from the master; it only matters when d.IsMaster and the
// drone is idle — if the swarm has fragmented, the master flies toward
// the furthest charge station as a deliberate connectivity patrol,
// trading its own position for better network coverage (spec.md §4.5).
func (d *Drone) Update(world *terrain.World, stations []ChargeStation, allDrones []*Drone, reachableKeys map[string]bool, dt float64, pool MissionPool) error {
	if d.State != StateFlyToCharge && d.State != StateOnCharge {
		if err := d.checkIfBatteryIsLow(stations, world, pool); err != nil {
			return err
		}
	}

	switch d.State {
	case StateFlyToMission, StateFlyToCharge:
		if err := d.Fly(allDrones, dt); err != nil {
			return err
		}
	case StateOnMission:
		m := d.TargetMission
		if err := d.updateMission(dt); err != nil {
			return err
		}
		if patrol, ok := m.(*mission.Patrol); ok && d.TargetMission == nil {
			pool.Return(patrol)
		}
	case StateOnCharge:
		if err := d.updateCharge(dt); err != nil {
			return err
		}
	case StateWait:
		if d.IsMaster && len(reachableKeys) < len(allDrones) {
			station, dist := furthestChargeStation(stations, d.X, d.Y)
			timeToReach := dist / d.Speed
			if d.LifetimeLeft >= timeToReach {
				path, err := world.EstimatePath(d.X, d.Y, station.X, station.Y)
				if err != nil {
					return errors.Wrap(err, "swarm: master: planning connectivity patrol route")
				}
				d.PathPlannerMission = mission.NewPath(0, "", path)
				wp := d.PathPlannerMission.NextWaypoint()
				d.TargetX, d.TargetY = wp.X, wp.Y
				d.State = StateFlyToCharge
			}
		}
	default:
		return errors.Errorf("swarm: drone %s: unknown state %q", d.Key, d.State)
	}

	if d.Flying {
		d.LifetimeLeft -= dt
		if d.LifetimeLeft < 0 {
			return errors.Errorf("swarm: drone %s: battery exhausted mid-flight", d.Key)
		}
	}
	return nil
}

// closestChargeStation/furthestChargeStation index stations[0]
// unconditionally; internal/config's LoadStations enforces at least one
// charge station at load time, so an empty slice here would mean the
// caller skipped validation rather than a condition to handle gracefully.
