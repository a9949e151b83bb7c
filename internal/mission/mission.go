// Package mission implements the four mission variants (point, polygon,
// path, patrol) behind a single uniform waypoint-stepping contract, plus
// mission splitting and rekeying. Decoding missions.json is done elsewhere
// (internal/config and cmd/dronesim).
package mission

import (
	"fmt"

	"github.com/brunoga/deep"

	"drones-sim/internal/geometry"
)

// Mission is the common capability set every variant exposes (spec.md §3):
// waypoint iteration, progress update and completion.
type Mission interface {
	Key() int
	Type() string
	HasNextWaypoint() bool
	NextWaypoint() geometry.Point
	FirstWaypoint() geometry.Point
	LastWaypoint() geometry.Point
	TotalLength() float64
	Update(dt float64)
	Finished() bool
}

// waypointTrack is the shared representation of an ordered waypoint list
// with a visited mask and cursor, composed into Poly/Path/Patrol rather
// than inherited (spec.md §9 DESIGN NOTES).
type waypointTrack struct {
	Waypoints []geometry.Point
	Visited   []bool
	NVisited  int
}

func newWaypointTrack(wps []geometry.Point) waypointTrack {
	return waypointTrack{
		Waypoints: wps,
		Visited:   make([]bool, len(wps)),
	}
}

func (t *waypointTrack) HasNextWaypoint() bool { return !t.finished() }
func (t *waypointTrack) finished() bool        { return t.NVisited >= len(t.Waypoints) }

func (t *waypointTrack) NextWaypoint() geometry.Point { return t.Waypoints[t.NVisited] }
func (t *waypointTrack) FirstWaypoint() geometry.Point { return t.Waypoints[0] }
func (t *waypointTrack) LastWaypoint() geometry.Point {
	return t.Waypoints[len(t.Waypoints)-1]
}

func (t *waypointTrack) TotalLength() float64 {
	length := 0.0
	for i := 1; i < len(t.Waypoints); i++ {
		a, b := t.Waypoints[i-1], t.Waypoints[i]
		length += geometry.DistBetween(a.X, a.Y, b.X, b.Y)
	}
	return length
}

// advance marks the next unvisited waypoint visited. update(dt) on Poly,
// Path and Patrol intentionally ignores dt: it advances exactly one
// waypoint per call (see SPEC_FULL.md / spec.md §9 Open Questions — the
// time actually spent between waypoints is governed by flight time, not
// mission time; this is preserved verbatim from the source).
func (t *waypointTrack) advance() {
	t.Visited[t.NVisited] = true
	t.NVisited++
}

// Point is the legacy time-based single-location mission (spec.md §3
// PointMission). It is never built from missions.json (no variant there
// encodes it) and is kept only because the source keeps it; see DESIGN.md.
type Point struct {
	key             int
	totalTime       float64
	timeToFinish    float64
	x, y            float64
}

// NewPoint creates a legacy time-based mission at (x, y).
func NewPoint(key int, totalTime, x, y float64) *Point {
	return &Point{key: key, totalTime: totalTime, timeToFinish: totalTime, x: x, y: y}
}

func (p *Point) Key() int    { return p.key }
func (p *Point) Type() string { return "" }

func (p *Point) Update(dt float64) {
	p.timeToFinish -= dt
	if p.timeToFinish < 0 {
		p.timeToFinish = 0
	}
}

func (p *Point) Finished() bool { return p.timeToFinish == 0 }

func (p *Point) HasNextWaypoint() bool         { return !p.Finished() }
func (p *Point) NextWaypoint() geometry.Point  { return geometry.Point{X: p.x, Y: p.y} }
func (p *Point) FirstWaypoint() geometry.Point { return geometry.Point{X: p.x, Y: p.y} }
func (p *Point) LastWaypoint() geometry.Point  { return geometry.Point{X: p.x, Y: p.y} }
func (p *Point) TotalLength() float64          { return 0 }

// Poly is a boustrophedon-rasterized area-coverage mission ("scan"/"agro").
type Poly struct {
	key     int
	typ     string
	Polygon []geometry.Point
	Step    float64
	waypointTrack
	AgroVolumePerSecond float64
}

// NewPoly builds a polygon mission, rasterizing it at the given step.
// agroVolumePerSecond is meaningless unless typ == "agro".
func NewPoly(key int, typ string, polygon []geometry.Point, step float64, agroVolumePerSecond float64) *Poly {
	return &Poly{
		key:                 key,
		typ:                 typ,
		Polygon:             polygon,
		Step:                step,
		waypointTrack:       newWaypointTrack(RasterizePolygon(polygon, step)),
		AgroVolumePerSecond: agroVolumePerSecond,
	}
}

func (m *Poly) Key() int         { return m.key }
func (m *Poly) Type() string     { return m.typ }
func (m *Poly) Finished() bool   { return m.waypointTrack.finished() }
func (m *Poly) Update(dt float64) { m.waypointTrack.advance() }

// pointInPolygon is a standard even-odd ray-casting test.
func pointInPolygon(polygon []geometry.Point, x, y float64) bool {
	inside := false
	n := len(polygon)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := polygon[i].X, polygon[i].Y
		xj, yj := polygon[j].X, polygon[j].Y
		intersects := (yi > y) != (yj > y) &&
			x < (xj-xi)*(y-yi)/(yj-yi)+xi
		if intersects {
			inside = !inside
		}
	}
	return inside
}

// RasterizePolygon samples the polygon's bounding box on a grid of the
// given step, keeping only cell centers that fall inside the polygon, and
// reversing every even-indexed row to produce a boustrophedon (serpentine)
// coverage order. Preserved verbatim from original_source/mission.py's
// rasterizePolygon for determinism.
func RasterizePolygon(polygon []geometry.Point, step float64) []geometry.Point {
	if len(polygon) == 0 {
		panic("mission: RasterizePolygon requires a non-empty polygon")
	}
	minX, minY := polygon[0].X, polygon[0].Y
	maxX, maxY := minX, minY
	for _, p := range polygon {
		minX = minF(minX, p.X)
		minY = minF(minY, p.Y)
		maxX = maxF(maxX, p.X)
		maxY = maxF(maxY, p.Y)
	}

	var waypoints []geometry.Point
	irow := 0
	for y := minY; y < maxY; y += step {
		var row []geometry.Point
		for x := minX; x < maxX; x += step {
			if pointInPolygon(polygon, x, y) {
				row = append(row, geometry.Point{X: x, Y: y})
			}
		}
		if irow%2 == 0 {
			reverse(row)
		}
		waypoints = append(waypoints, row...)
		irow++
	}
	return waypoints
}

func reverse(pts []geometry.Point) {
	for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
		pts[i], pts[j] = pts[j], pts[i]
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// Path is an ordered, non-repeating waypoint list ("path"/"scan"/"patrol"
// legs, never "agro").
type Path struct {
	key int
	typ string
	waypointTrack
}

// NewPath builds a path mission from an already-computed waypoint list
// (e.g. a planner-produced route, or a single destination).
func NewPath(key int, typ string, waypoints []geometry.Point) *Path {
	if typ == "agro" {
		panic("mission: PathMission type must not be \"agro\"")
	}
	return &Path{key: key, typ: typ, waypointTrack: newWaypointTrack(waypoints)}
}

func (m *Path) Key() int          { return m.key }
func (m *Path) Type() string      { return m.typ }
func (m *Path) Finished() bool    { return m.waypointTrack.finished() }
func (m *Path) Update(dt float64) { m.waypointTrack.advance() }

// Patrol is like Path but resets to n_visited=0 and re-enters the pool
// when finished instead of being discarded. Its waypoints must form a
// closed loop (last == first).
type Patrol struct {
	key int
	typ string
	waypointTrack
}

// NewPatrol builds a patrol mission from a closed waypoint loop.
func NewPatrol(key int, typ string, waypoints []geometry.Point) *Patrol {
	if typ == "agro" {
		panic("mission: PatrolMission type must not be \"agro\"")
	}
	if len(waypoints) < 2 || waypoints[0] != waypoints[len(waypoints)-1] {
		panic("mission: PatrolMission waypoints must be a closed loop")
	}
	return &Patrol{key: key, typ: typ, waypointTrack: newWaypointTrack(waypoints)}
}

func (m *Patrol) Key() int          { return m.key }
func (m *Patrol) Type() string      { return m.typ }
func (m *Patrol) Finished() bool    { return m.waypointTrack.finished() }
func (m *Patrol) Update(dt float64) { m.waypointTrack.advance() }

// Reset returns the patrol to its start state (all waypoints unvisited).
func (m *Patrol) Reset() {
	m.waypointTrack.Visited = make([]bool, len(m.waypointTrack.Waypoints))
	m.waypointTrack.NVisited = 0
}

// Split walks m's waypoint list, accumulating segment flight times at the
// given speed, and closes a sub-mission as soon as its accumulated time
// first exceeds timeBudget (so a part can run one segment past the budget)
// or the last waypoint is reached, cloning m (via a deep copy, mirroring original_source/mission.py's
// copy.deepcopy) for every emitted part so type/key/step/agro fields carry
// over. Concatenating the returned sub-missions' waypoints and visited
// flags, in order, reproduces m exactly.
func Split(m *Poly, timeBudget, speed float64) []*Poly {
	var result []*Poly

	var waypointBuffer []geometry.Point
	var maskBuffer []bool
	curTime := 0.0

	for i, wp := range m.waypointTrack.Waypoints {
		waypointBuffer = append(waypointBuffer, wp)
		maskBuffer = append(maskBuffer, m.waypointTrack.Visited[i])
		if i > 0 {
			prev := m.waypointTrack.Waypoints[i-1]
			d := geometry.DistBetween(wp.X, wp.Y, prev.X, prev.Y)
			curTime += d / speed
		}

		if curTime > timeBudget || i+1 == len(m.waypointTrack.Waypoints) {
			// deep-copy m (mirrors original_source/mission.py's
			// copy.deepcopy(mission)) then overwrite only Waypoints/Visited;
			// NVisited is deliberately left as whatever m's was (always 0 at
			// load time, since splitting runs before any assignment/flight) —
			// reproduced literally rather than recomputed.
			part, err := deep.Copy(m)
			if err != nil {
				panic(fmt.Sprintf("mission: Split: deep copy failed: %v", err))
			}
			part.waypointTrack.Waypoints = waypointBuffer
			part.waypointTrack.Visited = maskBuffer
			result = append(result, part)

			waypointBuffer = nil
			maskBuffer = nil
			curTime = 0
		}
	}

	return result
}

// PolySquare converts an [x0, y0, w, h] rectangle into a closed polygon
// (the four corners, not repeating the first point — callers that need a
// closed loop append polygon[0] themselves, matching original_source's
// polySquare + explicit closing appends in load_missions/Patrol loading).
func PolySquare(x0, y0, w, h float64) []geometry.Point {
	return []geometry.Point{
		{X: x0, Y: y0},
		{X: x0 + w, Y: y0},
		{X: x0 + w, Y: y0 + h},
		{X: x0, Y: y0 + h},
	}
}

// Rekey assigns sequential keys 1..N to missions, in place order — applied
// after splitting, per spec.md §4.2.
func Rekey(missions []Mission) {
	for i, m := range missions {
		switch v := m.(type) {
		case *Point:
			v.key = i + 1
		case *Poly:
			v.key = i + 1
		case *Path:
			v.key = i + 1
		case *Patrol:
			v.key = i + 1
		}
	}
}
