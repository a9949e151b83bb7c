// Package geometry provides the 2D primitives shared by the path planner
// and the drone flight/collision-avoidance logic: distance, segment
// intersection, point-to-segment distance and polyline simplification.
package geometry

import "math"

// Point is a 2D coordinate in world meters.
type Point struct {
	X, Y float64
}

// Dist is the Euclidean length of vector (dx, dy).
func Dist(dx, dy float64) float64 {
	return math.Sqrt(dx*dx + dy*dy)
}

// DistBetween is the Euclidean distance between two points.
func DistBetween(x0, y0, x1, y1 float64) float64 {
	return Dist(x1-x0, y1-y0)
}

// ccw reports whether A, B, C are in counter-clockwise order.
func ccw(ax, ay, bx, by, cx, cy float64) bool {
	return (cy-ay)*(bx-ax) > (by-ay)*(cx-ax)
}

// SegmentsIntersect reports whether open segments AB and CD strictly cross.
// See https://stackoverflow.com/a/9997374.
func SegmentsIntersect(ax, ay, bx, by, cx, cy, dx, dy float64) bool {
	return ccw(ax, ay, cx, cy, dx, dy) != ccw(bx, by, cx, cy, dx, dy) &&
		ccw(ax, ay, bx, by, cx, cy) != ccw(ax, ay, bx, by, dx, dy)
}

// DistancePointToSegment returns the perpendicular distance from P to
// segment AB, clipped to the segment's endpoints when the foot of the
// perpendicular falls outside it.
func DistancePointToSegment(px, py, ax, ay, bx, by float64) float64 {
	ulx, uly := bx-ax, by-ay
	norm := Dist(ulx, uly)
	if norm == 0 {
		return DistBetween(px, py, ax, ay)
	}
	nux, nuy := ulx/norm, uly/norm

	// perpendicular distance to the infinite line through A,B
	cross := ulx*(ay-py) - uly*(ax-px)
	segDist := math.Abs(cross) / norm

	diff := nux*(px-ax) + nuy*(py-ay)
	xSeg := nux*diff + ax
	ySeg := nuy*diff + ay

	endpointDist := math.Min(DistBetween(px, py, ax, ay), DistBetween(px, py, bx, by))

	isBetwX := (ax <= xSeg && xSeg <= bx) || (bx <= xSeg && xSeg <= ax)
	isBetwY := (ay <= ySeg && ySeg <= by) || (by <= ySeg && ySeg <= ay)
	if isBetwX && isBetwY {
		return segDist
	}
	return endpointDist
}

// SimplifyPath iteratively removes the interior point whose perpendicular
// distance to the chord through its neighbors is smallest, provided that
// distance is strictly less than maxError; as a shortcut, a scan stops at
// the first point whose distance is below maxError/100 and removes that one
// instead. Stops when no interior point qualifies. The first and last
// points are always preserved.
func SimplifyPath(xys []Point, maxError float64) []Point {
	result := make([]Point, len(xys))
	copy(result, xys)

	for {
		bestI := -1
		bestError := maxError
		for i := 1; i < len(result)-1; i++ {
			a := result[i-1]
			p := result[i]
			b := result[i+1]
			err := DistancePointToSegment(p.X, p.Y, a.X, a.Y, b.X, b.Y)
			if err < bestError {
				bestI = i
				bestError = err
				if err < maxError/100.0 {
					break
				}
			}
		}
		if bestI == -1 {
			break
		}
		result = append(result[:bestI], result[bestI+1:]...)
	}
	return result
}
