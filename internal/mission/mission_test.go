package mission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drones-sim/internal/geometry"
)

func TestRasterizePolygonBoustrophedon(t *testing.T) {
	square := []geometry.Point{{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10}}
	wps := RasterizePolygon(square, 2)
	require.NotEmpty(t, wps)

	var row0, row1 []geometry.Point
	for _, p := range wps {
		if p.Y == 0 {
			row0 = append(row0, p)
		} else if p.Y == 2 {
			row1 = append(row1, p)
		}
	}
	require.NotEmpty(t, row0)
	require.NotEmpty(t, row1)

	// row y=0 is irow=0 (even), so it is reversed: descending x.
	for i := 1; i < len(row0); i++ {
		assert.Greater(t, row0[i-1].X, row0[i].X)
	}
	// row y=2 is irow=1 (odd), left in ascending x.
	for i := 1; i < len(row1); i++ {
		assert.Less(t, row1[i-1].X, row1[i].X)
	}
}

func TestPolyFinishedAndHasNextWaypoint(t *testing.T) {
	square := []geometry.Point{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 4, Y: 4}, {X: 0, Y: 4}}
	m := NewPoly(1, "scan", square, 2, 0)
	require.False(t, m.Finished())

	for m.HasNextWaypoint() {
		m.Update(1.0)
	}
	assert.True(t, m.Finished())
	assert.False(t, m.HasNextWaypoint())
}

func TestPathRejectsAgroType(t *testing.T) {
	assert.Panics(t, func() {
		NewPath(1, "agro", []geometry.Point{{X: 0, Y: 0}})
	})
}

func TestPatrolRequiresClosedLoop(t *testing.T) {
	assert.Panics(t, func() {
		NewPatrol(1, "patrol", []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 1}})
	})

	loop := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}
	assert.NotPanics(t, func() {
		NewPatrol(1, "patrol", loop)
	})
}

func TestPatrolReset(t *testing.T) {
	loop := []geometry.Point{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}
	m := NewPatrol(1, "patrol", loop)

	for m.HasNextWaypoint() {
		m.Update(1.0)
	}
	require.True(t, m.Finished())

	m.Reset()
	assert.False(t, m.Finished())
	assert.True(t, m.HasNextWaypoint())
	assert.Equal(t, 0, m.waypointTrack.NVisited)
	for _, v := range m.waypointTrack.Visited {
		assert.False(t, v)
	}
}

func TestSplitReproducesOriginalWaypointsInOrder(t *testing.T) {
	square := []geometry.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}}
	m := NewPoly(1, "scan", square, 2, 0)

	parts := Split(m, 5.0, 1.0)
	require.NotEmpty(t, parts)

	var rebuilt []geometry.Point
	for _, p := range parts {
		rebuilt = append(rebuilt, p.waypointTrack.Waypoints...)
	}
	assert.Equal(t, m.waypointTrack.Waypoints, rebuilt)
}

func TestSplitPartsCarryOverTypeAndStep(t *testing.T) {
	square := []geometry.Point{{X: 0, Y: 0}, {X: 20, Y: 0}, {X: 20, Y: 20}, {X: 0, Y: 20}}
	m := NewPoly(7, "agro", square, 2, 1.5)

	parts := Split(m, 5.0, 1.0)
	require.NotEmpty(t, parts)
	for _, p := range parts {
		assert.Equal(t, "agro", p.Type())
		assert.Equal(t, 2.0, p.Step)
		assert.Equal(t, 1.5, p.AgroVolumePerSecond)
		assert.Equal(t, 0, p.waypointTrack.NVisited)
	}
}

func TestRekeyAssignsSequentialKeys(t *testing.T) {
	missions := []Mission{
		NewPath(99, "scan", []geometry.Point{{X: 0, Y: 0}}),
		NewPath(3, "scan", []geometry.Point{{X: 1, Y: 1}}),
		NewPoint(50, 10, 0, 0),
	}
	Rekey(missions)
	for i, m := range missions {
		assert.Equal(t, i+1, m.Key())
	}
}

func TestPointMissionClampsAtZero(t *testing.T) {
	p := NewPoint(1, 5, 0, 0)
	assert.False(t, p.Finished())
	p.Update(10)
	assert.True(t, p.Finished())
	assert.Equal(t, 0.0, p.timeToFinish)
}

func TestPolySquareFourUnclosedCorners(t *testing.T) {
	corners := PolySquare(1, 2, 3, 4)
	require.Len(t, corners, 4)
	assert.Equal(t, geometry.Point{X: 1, Y: 2}, corners[0])
	assert.Equal(t, geometry.Point{X: 4, Y: 6}, corners[2])
	assert.NotEqual(t, corners[0], corners[len(corners)-1])
}
