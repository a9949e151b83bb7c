package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drones-sim/internal/geometry"
	"drones-sim/internal/mission"
	"drones-sim/internal/swarm"
	"drones-sim/internal/terrain"
)

type pool struct {
	pending []mission.Mission
}

func (p *pool) Pending() []mission.Mission { return p.pending }
func (p *pool) Take(m mission.Mission) {
	for i, x := range p.pending {
		if x == m {
			p.pending = append(p.pending[:i], p.pending[i+1:]...)
			return
		}
	}
}
func (p *pool) Return(m mission.Mission) { p.pending = append(p.pending, m) }

func flatWorld(n int, resolution float64) *terrain.World {
	heights := make([][]float64, n)
	for j := range heights {
		heights[j] = make([]float64, n)
	}
	return terrain.NewWorld(heights, resolution, 100.0)
}

func TestScheduleAssignsNearestFeasibleMission(t *testing.T) {
	world := flatWorld(30, 1.0)
	d := swarm.NewDrone("0", false, []string{"scan"}, 1, 1, 5, 1000, 1, 0)
	stations := []swarm.ChargeStation{{Key: "c1", X: 1, Y: 1}}

	near := mission.NewPath(1, "scan", []geometry.Point{{X: 3, Y: 1}})
	far := mission.NewPath(2, "scan", []geometry.Point{{X: 20, Y: 1}})
	p := &pool{pending: []mission.Mission{far, near}}

	require.NoError(t, Schedule([]*swarm.Drone{d}, stations, world, p))
	require.NotNil(t, d.TargetMission)
	assert.Same(t, near, d.TargetMission)
	assert.Len(t, p.pending, 1)
	assert.Same(t, far, p.pending[0])
}

func TestScheduleSkipsWrongPayload(t *testing.T) {
	world := flatWorld(30, 1.0)
	d := swarm.NewDrone("0", false, []string{"patrol"}, 1, 1, 5, 1000, 1, 0)
	stations := []swarm.ChargeStation{{Key: "c1", X: 1, Y: 1}}

	m := mission.NewPath(1, "scan", []geometry.Point{{X: 3, Y: 1}})
	p := &pool{pending: []mission.Mission{m}}

	require.NoError(t, Schedule([]*swarm.Drone{d}, stations, world, p))
	assert.Nil(t, d.TargetMission)
	assert.Len(t, p.pending, 1)
}

func TestScheduleSkipsWhenAgroVolumeInsufficient(t *testing.T) {
	world := flatWorld(30, 1.0)
	d := swarm.NewDrone("0", false, []string{"agro"}, 0, 0, 1, 1000, 1, 0.5)
	stations := []swarm.ChargeStation{{Key: "c1", X: 0, Y: 0}}

	square := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	m := mission.NewPoly(1, "agro", square, 2, 2.0)
	p := &pool{pending: []mission.Mission{m}}

	require.NoError(t, Schedule([]*swarm.Drone{d}, stations, world, p))
	assert.Nil(t, d.TargetMission)
}

func TestScheduleSkipsWhenBatteryInsufficient(t *testing.T) {
	world := flatWorld(30, 1.0)
	d := swarm.NewDrone("0", false, []string{"scan"}, 0, 0, 1, 2, 1, 0) // lifetime=2s, mission far away
	stations := []swarm.ChargeStation{{Key: "c1", X: 0, Y: 0}}

	m := mission.NewPath(1, "scan", []geometry.Point{{X: 25, Y: 0}})
	p := &pool{pending: []mission.Mission{m}}

	require.NoError(t, Schedule([]*swarm.Drone{d}, stations, world, p))
	assert.Nil(t, d.TargetMission)
}

func TestScheduleAssignsMultiplePairsAcrossIterations(t *testing.T) {
	world := flatWorld(30, 1.0)
	d1 := swarm.NewDrone("0", false, []string{"scan"}, 1, 1, 5, 1000, 1, 0)
	d2 := swarm.NewDrone("1", false, []string{"scan"}, 25, 25, 5, 1000, 1, 0)
	stations := []swarm.ChargeStation{{Key: "c1", X: 1, Y: 1}}

	m1 := mission.NewPath(1, "scan", []geometry.Point{{X: 3, Y: 1}})
	m2 := mission.NewPath(2, "scan", []geometry.Point{{X: 27, Y: 25}})
	p := &pool{pending: []mission.Mission{m1, m2}}

	require.NoError(t, Schedule([]*swarm.Drone{d1, d2}, stations, world, p))
	assert.NotNil(t, d1.TargetMission)
	assert.NotNil(t, d2.TargetMission)
	assert.Empty(t, p.pending)
}
