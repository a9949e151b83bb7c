package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadWorld(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "world.json", `{
		"world": {
			"dem_path": "dem.png",
			"dem_resolution": 5,
			"maximum_allowed_height": 100,
			"simulation_step": 0.5,
			"wireless_range": 300,
			"drone_speed": 8,
			"drone_life": 600,
			"charge_power": 2
		}
	}`)

	w, err := LoadWorld(path)
	require.NoError(t, err)
	assert.Equal(t, "dem.png", w.DEMPath)
	assert.Equal(t, 5.0, w.DEMResolution)
	assert.Equal(t, 300.0, w.WirelessRange)
}

func TestLoadStationsRequiresExactlyOneControl(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stations.json", `{
		"stations": [
			{"type": "control", "x": 0, "y": 0},
			{"type": "control", "x": 1, "y": 1},
			{"type": "charge", "x": 2, "y": 2}
		]
	}`)

	_, err := LoadStations(path)
	assert.Error(t, err)
}

func TestLoadStationsRequiresAtLeastOneCharge(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stations.json", `{
		"stations": [
			{"type": "control", "x": 0, "y": 0}
		]
	}`)

	_, err := LoadStations(path)
	assert.Error(t, err)
}

func TestLoadStationsAccepts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stations.json", `{
		"stations": [
			{"type": "control", "x": 0, "y": 0},
			{"type": "charge", "x": 2, "y": 2}
		]
	}`)

	stations, err := LoadStations(path)
	require.NoError(t, err)
	assert.Len(t, stations, 2)
}

func TestLoadDronesRequiresExactlyOneMaster(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drones.json", `{
		"drones": [
			{"isMaster": true, "payload": ["scan"], "speed": 8, "lifetime": 600},
			{"isMaster": true, "payload": ["scan"], "speed": 8, "lifetime": 600}
		]
	}`)

	_, err := LoadDrones(path)
	assert.Error(t, err)
}

func TestLoadDronesRequiresAtLeastTwo(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drones.json", `{
		"drones": [
			{"isMaster": true, "payload": ["scan"], "speed": 8, "lifetime": 600}
		]
	}`)

	_, err := LoadDrones(path)
	assert.Error(t, err)
}

func TestLoadDronesRejectsAgroWithoutVolume(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drones.json", `{
		"drones": [
			{"isMaster": true, "payload": ["agro"], "speed": 8, "lifetime": 600},
			{"isMaster": false, "payload": ["scan"], "speed": 8, "lifetime": 600}
		]
	}`)

	_, err := LoadDrones(path)
	assert.Error(t, err)
}

func TestLoadDronesAccepts(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "drones.json", `{
		"drones": [
			{"isMaster": true, "payload": ["agro"], "speed": 8, "lifetime": 600, "payloadAgroVolume": 10},
			{"isMaster": false, "payload": ["scan"], "speed": 8, "lifetime": 600}
		]
	}`)

	drones, err := LoadDrones(path)
	require.NoError(t, err)
	require.Len(t, drones, 2)
	require.NotNil(t, drones[0].PayloadAgroVolume)
	assert.Equal(t, 10.0, *drones[0].PayloadAgroVolume)
}

func TestLoadMissions(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "missions.json", `{
		"missions": [
			{"type": "scan", "destination": [10, 20]},
			{"type": "agro", "rect": [0, 0, 10, 10], "agroVolumePerSecond": 2}
		]
	}`)

	missions, err := LoadMissions(path)
	require.NoError(t, err)
	require.Len(t, missions, 2)
	assert.Equal(t, []float64{10, 20}, missions[0].Destination)
	assert.Equal(t, "agro", missions[1].Type)
}
