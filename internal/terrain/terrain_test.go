package terrain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatHeights builds an n x n all-zero height matrix (everything passable).
func flatHeights(n int) [][]float64 {
	h := make([][]float64, n)
	for j := range h {
		h[j] = make([]float64, n)
	}
	return h
}

func TestEstimatePathOnFlatTerrainIsStraightish(t *testing.T) {
	heights := flatHeights(20)
	w := NewWorld(heights, 1.0, 100.0)

	path, err := w.EstimatePath(1, 1, 15, 1)
	require.NoError(t, err)
	require.NotEmpty(t, path)
	assert.Equal(t, 1.0, path[0].X)
	assert.Equal(t, 1.0, path[0].Y)
	assert.Equal(t, 15.0, path[len(path)-1].X)
	assert.Equal(t, 1.0, path[len(path)-1].Y)
}

func TestEstimatePathRoutesAroundObstacle(t *testing.T) {
	heights := flatHeights(20)
	// a wall at column 10 leaving a gap in rows 15..19, forcing a detour
	// down and around rather than a straight line.
	for j := 0; j < 15; j++ {
		heights[j][10] = 1000
	}
	w := NewWorld(heights, 1.0, 100.0)

	path, err := w.EstimatePath(1, 1, 18, 1)
	require.NoError(t, err)
	require.NotEmpty(t, path)

	// the path must not pass through the prohibited column's cell centers.
	for _, p := range path {
		i, j := int(p.X/w.Resolution), int(p.Y/w.Resolution)
		if i == 10 {
			assert.False(t, j < 15, "path should detour around the prohibited segment of the column")
		}
	}
}

func TestEstimatePathUnreachableDestinationErrors(t *testing.T) {
	heights := flatHeights(10)
	// wall off the entire right half, width 10 so columns 0..9, wall at col 5.
	for j := 0; j < 10; j++ {
		heights[j][5] = 1000
	}
	w := NewWorld(heights, 1.0, 100.0)

	_, err := w.EstimatePath(1, 1, 8, 1)
	assert.Error(t, err)
}

func TestEstimatePathMemoizesOnQuantizedEndpoints(t *testing.T) {
	heights := flatHeights(20)
	w := NewWorld(heights, 1.0, 100.0)

	p1, err := w.EstimatePath(1.1, 1.1, 15.2, 1.3)
	require.NoError(t, err)
	p2, err := w.EstimatePath(1.4, 1.4, 15.4, 1.4)
	require.NoError(t, err)

	// same quantized cells, same number of intermediate vertices cached,
	// but literal endpoints differ and must be substituted per call.
	assert.Equal(t, len(p1), len(p2))
	assert.NotEqual(t, p1[0], p2[0])
	assert.NotEqual(t, p1[len(p1)-1], p2[len(p2)-1])
}

func TestEstimatePathOutOfBounds(t *testing.T) {
	heights := flatHeights(10)
	w := NewWorld(heights, 1.0, 100.0)

	_, err := w.EstimatePath(-5, 0, 5, 5)
	assert.Error(t, err)
}
