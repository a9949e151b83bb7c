package main

import (
	"fmt"

	"github.com/pkg/errors"

	"drones-sim/internal/config"
	"drones-sim/internal/geometry"
	"drones-sim/internal/mission"
	"drones-sim/internal/simulation"
	"drones-sim/internal/swarm"
	"drones-sim/internal/terrain"
)

// splitTimeBudget and splitSpeed are the defaults original_source/main.py
// passes to splitMission for every MissionPoly: a 1000s budget at a
// nominal 8 m/s, regardless of the mission's own assigned drone speed.
//
// rasterizeStep is the same file's mission_step passed to load_missions,
// which every MissionPoly rasterizes its coverage grid at.
const (
	splitTimeBudget = 1000.0
	splitSpeed      = 8.0
	rasterizeStep   = 500.0
)

type loaded struct {
	sim       *simulation.Simulation
	masterKey string
}

func loadSimulation(dir string) (*loaded, error) {
	worldCfg, err := config.LoadWorld(dir + "/world.json")
	if err != nil {
		return nil, err
	}
	stationFiles, err := config.LoadStations(dir + "/stations.json")
	if err != nil {
		return nil, err
	}
	droneFiles, err := config.LoadDrones(dir + "/drones.json")
	if err != nil {
		return nil, err
	}
	missionFiles, err := config.LoadMissions(dir + "/missions.json")
	if err != nil {
		return nil, err
	}

	heights, err := terrain.LoadDEM(worldCfg.DEMPath)
	if err != nil {
		return nil, err
	}
	world := terrain.NewWorld(heights, worldCfg.DEMResolution, worldCfg.MaximumAllowedHeight)

	var stations []simulation.Station
	chargeIdx := 0
	for _, sf := range stationFiles {
		key := "control"
		if sf.Type == "charge" {
			chargeIdx++
			key = fmt.Sprintf("charge-%d", chargeIdx)
		}
		stations = append(stations, simulation.Station{Key: key, Kind: sf.Type, X: sf.X, Y: sf.Y})
	}

	drones := make(map[string]*swarm.Drone, len(droneFiles))
	masterKey := ""
	controlX, controlY := 0.0, 0.0
	for _, sf := range stationFiles {
		if sf.Type == "control" {
			controlX, controlY = sf.X, sf.Y
		}
	}
	for i, df := range droneFiles {
		key := fmt.Sprintf("%d", i)
		agroVolume := 0.0
		if df.PayloadAgroVolume != nil {
			agroVolume = *df.PayloadAgroVolume
		}
		d := swarm.NewDrone(key, df.IsMaster, df.Payload, controlX, controlY, df.Speed, df.Lifetime, worldCfg.ChargePower, agroVolume)
		drones[key] = d
		if df.IsMaster {
			masterKey = key
		}
	}
	if masterKey == "" {
		return nil, errors.New("dronesim: no master drone in drones.json")
	}

	missions, err := buildMissions(missionFiles)
	if err != nil {
		return nil, err
	}

	sim, err := simulation.New(world, stations, drones, masterKey, worldCfg.WirelessRange, worldCfg.SimulationStep, missions)
	if err != nil {
		return nil, err
	}

	return &loaded{sim: sim, masterKey: masterKey}, nil
}

func buildMissions(files []config.MissionFile) ([]mission.Mission, error) {
	var out []mission.Mission
	key := 0
	for _, mf := range files {
		key++
		switch {
		case mf.Destination != nil:
			wp := geometry.Point{X: mf.Destination[0], Y: mf.Destination[1]}
			out = append(out, mission.NewPath(key, mf.Type, []geometry.Point{wp}))

		case mf.Rect != nil:
			poly := mission.PolySquare(mf.Rect[0], mf.Rect[1], mf.Rect[2], mf.Rect[3])
			agro := agroVolume(mf)
			out = append(out, mission.NewPoly(key, mf.Type, poly, rasterizeStep, agro))

		case mf.Polygon != nil:
			poly := toPoints(mf.Polygon)
			agro := agroVolume(mf)
			out = append(out, mission.NewPoly(key, mf.Type, poly, rasterizeStep, agro))

		case mf.PatrolRect != nil:
			poly := mission.PolySquare(mf.PatrolRect[0], mf.PatrolRect[1], mf.PatrolRect[2], mf.PatrolRect[3])
			loop := append(poly, poly[0])
			out = append(out, mission.NewPatrol(key, mf.Type, loop))

		case mf.PatrolPolygon != nil:
			poly := toPoints(mf.PatrolPolygon)
			loop := append(poly, poly[0])
			out = append(out, mission.NewPatrol(key, mf.Type, loop))

		default:
			return nil, errors.Errorf("dronesim: missions.json entry %d has no recognized variant", key)
		}
	}

	// split every polygon mission into time-bounded sub-missions, then
	// rekey everything sequentially, per original_source/main.py.
	var split []mission.Mission
	for _, m := range out {
		if poly, ok := m.(*mission.Poly); ok {
			for _, part := range mission.Split(poly, splitTimeBudget, splitSpeed) {
				split = append(split, part)
			}
		} else {
			split = append(split, m)
		}
	}
	mission.Rekey(split)
	return split, nil
}

func agroVolume(mf config.MissionFile) float64 {
	if mf.AgroVolumePerSecond != nil {
		return *mf.AgroVolumePerSecond
	}
	return 0
}

func toPoints(raw [][]float64) []geometry.Point {
	out := make([]geometry.Point, len(raw))
	for i, p := range raw {
		out[i] = geometry.Point{X: p[0], Y: p[1]}
	}
	return out
}
