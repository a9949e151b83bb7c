// Package config ingests the world/stations/drones/missions JSON records
// (spec.md §6.1) into typed structs via viper, enforcing the configuration
// invariants (exactly one control station, exactly one master drone, etc.)
// at load time. A configuration violation is fatal: callers must not start
// the simulation if Load* returns an error.
package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// WorldFile is world.json's "world" object.
type WorldFile struct {
	DEMPath            string  `mapstructure:"dem_path"`
	DEMResolution      float64 `mapstructure:"dem_resolution"`
	MaximumAllowedHeight float64 `mapstructure:"maximum_allowed_height"`
	SimulationStep     float64 `mapstructure:"simulation_step"`
	WirelessRange      float64 `mapstructure:"wireless_range"`
	DroneSpeed         float64 `mapstructure:"drone_speed"`
	DroneLife          float64 `mapstructure:"drone_life"`
	ChargePower        float64 `mapstructure:"charge_power"`
}

type worldRoot struct {
	World WorldFile `mapstructure:"world"`
}

// StationFile is one entry of stations.json's "stations" array.
type StationFile struct {
	Type string  `mapstructure:"type"`
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
}

type stationsRoot struct {
	Stations []StationFile `mapstructure:"stations"`
}

// DroneFile is one entry of drones.json's "drones" array.
type DroneFile struct {
	IsMaster          bool     `mapstructure:"isMaster"`
	Payload           []string `mapstructure:"payload"`
	Speed             float64  `mapstructure:"speed"`
	Lifetime          float64  `mapstructure:"lifetime"`
	PayloadAgroVolume *float64 `mapstructure:"payloadAgroVolume"`
}

type dronesRoot struct {
	Drones []DroneFile `mapstructure:"drones"`
}

// MissionFile is one entry of missions.json's "missions" array; exactly one
// of Rect/Polygon/Destination/PatrolRect/PatrolPolygon is set, matching the
// mutually exclusive variant fields of spec.md §6.1.
type MissionFile struct {
	Type                string      `mapstructure:"type"`
	Rect                []float64   `mapstructure:"rect"`
	Polygon             [][]float64 `mapstructure:"polygon"`
	AgroVolumePerSecond *float64    `mapstructure:"agroVolumePerSecond"`
	Destination         []float64   `mapstructure:"destination"`
	PatrolRect          []float64   `mapstructure:"patrolrect"`
	PatrolPolygon       [][]float64 `mapstructure:"patrolpolygon"`
}

type missionsRoot struct {
	Missions []MissionFile `mapstructure:"missions"`
}

func readJSON(path string, out interface{}) error {
	v := viper.New()
	v.SetConfigType("json")
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "config: reading %s", path)
	}
	if err := v.Unmarshal(out); err != nil {
		return errors.Wrapf(err, "config: decoding %s", path)
	}
	return nil
}

// LoadWorld reads world.json.
func LoadWorld(path string) (WorldFile, error) {
	var root worldRoot
	if err := readJSON(path, &root); err != nil {
		return WorldFile{}, err
	}
	return root.World, nil
}

// LoadStations reads stations.json and enforces exactly one control
// station and at least one charge station.
func LoadStations(path string) ([]StationFile, error) {
	var root stationsRoot
	if err := readJSON(path, &root); err != nil {
		return nil, err
	}
	nControl, nCharge := 0, 0
	for _, s := range root.Stations {
		switch s.Type {
		case "control":
			nControl++
		case "charge":
			nCharge++
		default:
			return nil, errors.Errorf("config: stations.json: unknown station type %q", s.Type)
		}
	}
	if nControl != 1 {
		return nil, errors.Errorf("config: stations.json: expected exactly one control station, got %d", nControl)
	}
	if nCharge < 1 {
		return nil, errors.New("config: stations.json: expected at least one charge station")
	}
	return root.Stations, nil
}

// LoadDrones reads drones.json and enforces exactly one master drone and
// at least two drones total.
func LoadDrones(path string) ([]DroneFile, error) {
	var root dronesRoot
	if err := readJSON(path, &root); err != nil {
		return nil, err
	}
	nMaster := 0
	for _, d := range root.Drones {
		hasAgroPayload := false
		for _, p := range d.Payload {
			if p == "agro" {
				hasAgroPayload = true
			}
		}
		if hasAgroPayload && d.PayloadAgroVolume == nil {
			return nil, errors.New("config: drones.json: drone with \"agro\" payload is missing payloadAgroVolume")
		}
		if !hasAgroPayload && d.PayloadAgroVolume != nil {
			return nil, errors.New("config: drones.json: payloadAgroVolume set without \"agro\" in payload")
		}
		if d.IsMaster {
			nMaster++
		}
	}
	if nMaster != 1 {
		return nil, errors.Errorf("config: drones.json: expected exactly one master drone, got %d", nMaster)
	}
	if len(root.Drones) < 2 {
		return nil, errors.New("config: drones.json: expected at least two drones")
	}
	return root.Drones, nil
}

// LoadMissions reads missions.json.
func LoadMissions(path string) ([]MissionFile, error) {
	var root missionsRoot
	if err := readJSON(path, &root); err != nil {
		return nil, err
	}
	return root.Missions, nil
}
