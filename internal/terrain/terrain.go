// Package terrain loads a digital elevation model (DEM), derives a
// prohibited-cell mask from it, builds a weighted grid graph over the
// passable cells and answers shortest-path queries against that graph
// (spec.md §4.3). Paths are memoized on the quantized (start cell, finish
// cell) pair, exactly as the source world.py's cachedPaths dict does.
package terrain

import (
	"container/heap"
	"image"
	_ "image/png"
	"os"
	"sync"

	"github.com/pkg/errors"

	"drones-sim/internal/geometry"
)

// edge is one adjacency-list entry: the neighboring vertex id and the
// Euclidean travel weight between the two cell centers.
type edge struct {
	to     int
	weight float64
}

// World holds the DEM, its prohibited mask and the derived navigation
// graph. It is built once at startup and is safe for concurrent read-only
// use; the path cache is guarded by its own mutex since EstimatePath may be
// called concurrently by multiple drones' planning calls.
type World struct {
	Resolution         float64
	MaximumAllowedHeight float64
	width, height       int
	prohibited          [][]bool // [j][i]
	adj                 map[int][]edge

	cacheMu sync.RWMutex
	cache   map[[2]int][]geometry.Point
}

// LoadDEM decodes a grayscale image file and returns the per-pixel height
// matrix ([row][col], i.e. [j][i]), using the pixel's gray level directly
// as a height sample. image/png is used rather than a dedicated DEM/GIS
// library: no such library surfaced in the retrieved example pack, so this
// one concern is carried on the standard library (see DESIGN.md).
func LoadDEM(path string) ([][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "terrain: opening DEM %s", path)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "terrain: decoding DEM %s", path)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	heights := make([][]float64, h)
	for j := 0; j < h; j++ {
		heights[j] = make([]float64, w)
		for i := 0; i < w; i++ {
			r, g, b, _ := img.At(bounds.Min.X+i, bounds.Min.Y+j).RGBA()
			gray := (float64(r) + float64(g) + float64(b)) / 3.0 / 257.0 // 16-bit -> 0..255
			heights[j][i] = gray
		}
	}
	return heights, nil
}

// NewWorld builds a World from a height matrix, marking any cell whose
// height exceeds maximumAllowedHeight as prohibited, and constructing the
// navigation graph over the remaining cells.
func NewWorld(heights [][]float64, resolution, maximumAllowedHeight float64) *World {
	h := len(heights)
	w := 0
	if h > 0 {
		w = len(heights[0])
	}

	prohibited := make([][]bool, h)
	for j := 0; j < h; j++ {
		prohibited[j] = make([]bool, w)
		for i := 0; i < w; i++ {
			prohibited[j][i] = heights[j][i] > maximumAllowedHeight
		}
	}

	world := &World{
		Resolution:           resolution,
		MaximumAllowedHeight: maximumAllowedHeight,
		width:                w,
		height:               h,
		prohibited:           prohibited,
		cache:                make(map[[2]int][]geometry.Point),
	}
	world.buildGraph()
	return world
}

func (w *World) toVertexID(i, j int) int { return j*w.width + i }
func (w *World) fromVertexID(id int) (i, j int) {
	return id % w.width, id / w.width
}

func (w *World) inBounds(i, j int) bool {
	return i >= 0 && i < w.width && j >= 0 && j < w.height
}

// buildGraph reproduces world.py's prepairPathPlanning: every passable cell
// connects to cells up to 2 steps away in i and 0..2 steps away in j (j
// only forward, since the graph is undirected; pairs within the same row
// are reached from both ends, so those edges appear twice in the adjacency
// lists, which leaves shortest paths unchanged), guarded against cutting
// corners through a prohibited cell along the way.
func (w *World) buildGraph() {
	w.adj = make(map[int][]edge)

	addEdge := func(i0, j0, i1, j1 int, weight float64) {
		v0, v1 := w.toVertexID(i0, j0), w.toVertexID(i1, j1)
		if v0 > v1 {
			v0, v1 = v1, v0
		}
		w.adj[v0] = append(w.adj[v0], edge{to: v1, weight: weight})
		w.adj[v1] = append(w.adj[v1], edge{to: v0, weight: weight})
	}

	for j := 0; j < w.height; j++ {
		for i := 0; i < w.width; i++ {
			if w.prohibited[j][i] {
				continue
			}
			for dj := 0; dj < 3; dj++ {
				for di := -2; di <= 2; di++ {
					if di == 0 && dj == 0 {
						continue
					}
					ti, tj := i+di, j+dj
					if !w.inBounds(ti, tj) || w.prohibited[tj][ti] {
						continue
					}

					switch {
					case abs(di) == 2 && dj == 0:
						if w.prohibited[j][i+di/2] {
							continue
						}
					case abs(di) == 2 && dj == 1:
						if w.prohibited[j][i+di/2] && w.prohibited[j+1][i+di/2] {
							continue
						}
					case abs(di) == 1 && dj == 2:
						if w.prohibited[j+1][i] && w.prohibited[j+1][i+di] {
							continue
						}
					case di == 0 && dj == 2:
						if w.prohibited[j+1][i] {
							continue
						}
					case abs(di) == 2 && dj == 2:
						if w.prohibited[j+1][i+di/2] {
							continue
						}
					}

					weight := geometry.Dist(float64(di)*w.Resolution, float64(dj)*w.Resolution)
					addEdge(i, j, ti, tj, weight)
				}
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// pqItem is one entry of the Dijkstra priority queue.
type pqItem struct {
	vertex int
	dist   float64
	index  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(a, b int) bool  { return pq[a].dist < pq[b].dist }
func (pq priorityQueue) Swap(a, b int) {
	pq[a], pq[b] = pq[b], pq[a]
	pq[a].index, pq[b].index = a, b
}
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.index = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}

// shortestPath runs Dijkstra from startID to finishID over w.adj, returning
// the vertex id sequence. Returns an error (instead of the Python source's
// implicit networkx.NetworkXNoPath exception) if finishID is unreachable.
func (w *World) shortestPath(startID, finishID int) ([]int, error) {
	dist := map[int]float64{startID: 0}
	prev := map[int]int{}
	visited := map[int]bool{}

	pq := &priorityQueue{{vertex: startID, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		u := item.vertex
		if visited[u] {
			continue
		}
		visited[u] = true
		if u == finishID {
			break
		}
		for _, e := range w.adj[u] {
			if visited[e.to] {
				continue
			}
			nd := dist[u] + e.weight
			if old, ok := dist[e.to]; !ok || nd < old {
				dist[e.to] = nd
				prev[e.to] = u
				heap.Push(pq, &pqItem{vertex: e.to, dist: nd})
			}
		}
	}

	if !visited[finishID] {
		return nil, errors.Errorf("terrain: no path from vertex %d to vertex %d", startID, finishID)
	}

	var path []int
	for v := finishID; ; {
		path = append(path, v)
		if v == startID {
			break
		}
		v = prev[v]
	}
	for l, r := 0, len(path)-1; l < r; l, r = l+1, r-1 {
		path[l], path[r] = path[r], path[l]
	}
	return path, nil
}

// EstimatePath returns a simplified polyline from (x0, y0) to (x1, y1) that
// avoids prohibited cells, substituting the literal requested endpoints in
// place of their quantized cell centers. Results are memoized by the
// quantized (start cell, finish cell) pair.
func (w *World) EstimatePath(x0, y0, x1, y1 float64) ([]geometry.Point, error) {
	i0, j0 := int(x0/w.Resolution), int(y0/w.Resolution)
	i1, j1 := int(x1/w.Resolution), int(y1/w.Resolution)
	if !w.inBounds(i0, j0) {
		return nil, errors.Errorf("terrain: start (%v,%v) out of bounds", x0, y0)
	}
	if !w.inBounds(i1, j1) {
		return nil, errors.Errorf("terrain: finish (%v,%v) out of bounds", x1, y1)
	}

	startID, finishID := w.toVertexID(i0, j0), w.toVertexID(i1, j1)
	key := [2]int{startID, finishID}

	w.cacheMu.RLock()
	if cached, ok := w.cache[key]; ok {
		w.cacheMu.RUnlock()
		out := make([]geometry.Point, len(cached))
		copy(out, cached)
		out[0] = geometry.Point{X: x0, Y: y0}
		out[len(out)-1] = geometry.Point{X: x1, Y: y1}
		return out, nil
	}
	w.cacheMu.RUnlock()

	vertices, err := w.shortestPath(startID, finishID)
	if err != nil {
		return nil, err
	}

	xys := make([]geometry.Point, len(vertices))
	for k, v := range vertices {
		i, j := w.fromVertexID(v)
		xys[k] = geometry.Point{X: (float64(i) + 0.5) * w.Resolution, Y: (float64(j) + 0.5) * w.Resolution}
	}
	xys[0] = geometry.Point{X: x0, Y: y0}
	xys[len(xys)-1] = geometry.Point{X: x1, Y: y1}

	simplified := geometry.SimplifyPath(xys, w.Resolution/4.0)
	if simplified[0] != (geometry.Point{X: x0, Y: y0}) || simplified[len(simplified)-1] != (geometry.Point{X: x1, Y: y1}) {
		panic("terrain: EstimatePath: simplification altered endpoints")
	}

	w.cacheMu.Lock()
	w.cache[key] = simplified
	w.cacheMu.Unlock()

	out := make([]geometry.Point, len(simplified))
	copy(out, simplified)
	return out, nil
}

// Prohibited reports whether the DEM cell at pixel (i, j) is impassable.
func (w *World) Prohibited(i, j int) bool {
	if !w.inBounds(i, j) {
		return true
	}
	return w.prohibited[j][i]
}

// Dimensions returns the DEM's pixel width and height.
func (w *World) Dimensions() (width, height int) { return w.width, w.height }
