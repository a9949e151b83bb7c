// Package scheduler implements the master drone's iterative greedy
// mission assignment (spec.md §4.6 / original_source/drone.py's
// tryToScheduleTasks): repeatedly pick the single cheapest idle-drone /
// pending-mission pair, assign it, and repeat until no pair is feasible.
package scheduler

import (
	"math"

	"github.com/rs/zerolog/log"

	"drones-sim/internal/mission"
	"drones-sim/internal/swarm"
	"drones-sim/internal/terrain"
)

const (
	inf = 1e12
	// farMissionWeight discounts a mission's cost by how soon some other
	// drone already on a mission could reach it instead, so the scheduler
	// leaves far-off missions to whichever drone will free up near them
	// rather than sending the nearest idle drone across the whole map.
	farMissionWeight = 0.25
)

// Schedule assigns as many pending missions from pool as are feasible,
// one at a time, cheapest pair first, re-scanning after every assignment
// since an assignment changes which drones are "on mission" and therefore
// changes every other mission's alternate-drone cost term.
func Schedule(availableDrones []*swarm.Drone, stations []swarm.ChargeStation, world *terrain.World, pool swarm.MissionPool) error {
	for {
		missions := pendingWithWork(pool)
		idle := idleDrones(availableDrones)
		onMission := dronesOnMission(availableDrones)

		if len(missions) == 0 || len(idle) == 0 {
			return nil
		}

		winJ, winI, winCost := -1, -1, inf
		for j, d := range idle {
			for i, m := range missions {
				cost, ok := pairCost(d, m, stations, onMission)
				if !ok {
					continue
				}
				if cost < winCost {
					winJ, winI, winCost = j, i, cost
				}
			}
		}

		if winJ == -1 {
			return nil
		}

		drone, m := idle[winJ], missions[winI]
		if err := drone.AddTask(m, world); err != nil {
			return err
		}
		pool.Take(m)
		log.Info().Str("drone", drone.Key).Int("mission", m.Key()).Float64("cost", winCost).Msg("assigned mission")
	}
}

func pendingWithWork(pool swarm.MissionPool) []mission.Mission {
	var out []mission.Mission
	for _, m := range pool.Pending() {
		if m.HasNextWaypoint() {
			out = append(out, m)
		}
	}
	return out
}

func idleDrones(drones []*swarm.Drone) []*swarm.Drone {
	var out []*swarm.Drone
	for _, d := range drones {
		if d.NeedTask() {
			out = append(out, d)
		}
	}
	return out
}

func dronesOnMission(drones []*swarm.Drone) []*swarm.Drone {
	var out []*swarm.Drone
	for _, d := range drones {
		if d.TargetMission != nil {
			out = append(out, d)
		}
	}
	return out
}

// pairCost computes the assignment cost of giving mission m to drone d, or
// ok=false if the pairing is infeasible (wrong payload, insufficient agro
// volume, or not enough battery to fly there, execute it and reach a
// charge station afterward).
//
// The cost itself deliberately omits the charge-station leg that the
// feasibility check includes — a quirk carried over verbatim from the
// original scheduler, where only time_to_start and time_to_execute (net
// of the alternate-drone discount) drive ranking, not the full round trip.
func pairCost(d *swarm.Drone, m mission.Mission, stations []swarm.ChargeStation, onMission []*swarm.Drone) (float64, bool) {
	if !d.CanCarry(m.Type()) {
		return 0, false
	}

	fw, lw := m.FirstWaypoint(), m.LastWaypoint()
	timeToStart := d.TimeTo(fw.X, fw.Y)
	timeToExecute := m.TotalLength() / d.Speed

	if m.Type() == "agro" {
		if poly, ok := m.(*mission.Poly); ok {
			needed := poly.AgroVolumePerSecond * timeToExecute
			if d.PayloadAgroVolumeLeft < needed {
				return 0, false
			}
		}
	}

	timeToCharge := d.TimeToClosestChargeStationFrom(stations, lw.X, lw.Y)
	totalTime := timeToStart + timeToExecute + timeToCharge
	if totalTime > d.LifetimeLeft {
		return 0, false
	}

	// closestMissionFinishTime holds a *time-to-start*, not a finish time —
	// the name mirrors the original's closest_mission_finish_time, which
	// is computed this way in the source and left as-is here rather than
	// renamed to something it isn't.
	closestMissionFinishTime := inf
	for _, other := range onMission {
		otherLW := other.TargetMission.LastWaypoint()
		otherTimeToFinish := other.TargetMission.TotalLength() / other.Speed
		otherTimeToStart := distBetween(otherLW.X, otherLW.Y, fw.X, fw.Y) / other.Speed
		otherTimeToExecute := m.TotalLength() / other.Speed
		otherTimeToCharge := other.TimeToClosestChargeStationFrom(stations, lw.X, lw.Y)
		otherTotal := otherTimeToFinish + otherTimeToStart + otherTimeToExecute + otherTimeToCharge

		if otherTotal < other.LifetimeLeft {
			closestMissionFinishTime = math.Min(closestMissionFinishTime, otherTimeToStart)
		}
	}

	cost := timeToStart + timeToExecute - closestMissionFinishTime*farMissionWeight
	return cost, true
}

func distBetween(x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	return math.Sqrt(dx*dx + dy*dy)
}
