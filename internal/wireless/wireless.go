// Package wireless computes the swarm's wireless connectivity topology: a
// minimum spanning tree over drone positions, and the set of drones
// reachable from a given node by hopping along MST edges no longer than the
// wireless range (spec.md §4.4). Recomputed every tick from the drones'
// current positions — drones move, so there is no reason to cache it
// across ticks.
package wireless

import "drones-sim/internal/geometry"

// Node is one drone's position, keyed the same way swarm.Drone is keyed.
type Node struct {
	Key string
	X, Y float64
}

type mstEdge struct {
	a, b   int
	weight float64
}

// minimumSpanningTree runs Prim's algorithm over the complete graph induced
// by nodes' Euclidean distances, mirroring world.py's
// generateWirelessNetworkSpanningTree (there built via
// scipy.sparse.csgraph.minimum_spanning_tree over a dense distance matrix).
func minimumSpanningTree(nodes []Node) []mstEdge {
	n := len(nodes)
	if n < 2 {
		return nil
	}

	inTree := make([]bool, n)
	minDist := make([]float64, n)
	minFrom := make([]int, n)
	for i := range minDist {
		minDist[i] = -1
		minFrom[i] = -1
	}
	inTree[0] = true
	for i := 1; i < n; i++ {
		minDist[i] = geometry.DistBetween(nodes[0].X, nodes[0].Y, nodes[i].X, nodes[i].Y)
		minFrom[i] = 0
	}

	var edges []mstEdge
	for added := 1; added < n; added++ {
		best := -1
		for i := 0; i < n; i++ {
			if inTree[i] {
				continue
			}
			if best == -1 || minDist[i] < minDist[best] {
				best = i
			}
		}
		if best == -1 {
			break
		}
		inTree[best] = true
		edges = append(edges, mstEdge{a: minFrom[best], b: best, weight: minDist[best]})

		for i := 0; i < n; i++ {
			if inTree[i] {
				continue
			}
			d := geometry.DistBetween(nodes[best].X, nodes[best].Y, nodes[i].X, nodes[i].Y)
			if minDist[i] < 0 || d < minDist[i] {
				minDist[i] = d
				minFrom[i] = best
			}
		}
	}
	return edges
}

// ReachableFrom returns the set of drone keys reachable from fromKey by
// hopping along MST edges whose length is within wirelessRange, inclusive
// (mirrors world.py's getWirelessReachableDrones, which uses <=). The
// origin node is always included in the result.
func ReachableFrom(nodes []Node, fromKey string, wirelessRange float64) map[string]bool {
	reachable := make(map[string]bool)
	index := make(map[string]int, len(nodes))
	for i, n := range nodes {
		index[n.Key] = i
	}

	start, ok := index[fromKey]
	if !ok {
		return reachable
	}

	edges := minimumSpanningTree(nodes)
	adj := make(map[int][]mstEdge, len(nodes))
	for _, e := range edges {
		adj[e.a] = append(adj[e.a], e)
		adj[e.b] = append(adj[e.b], mstEdge{a: e.b, b: e.a, weight: e.weight})
	}

	reachedIdx := map[int]bool{start: true}
	frontier := []int{start}
	for len(frontier) > 0 {
		var next []int
		for _, u := range frontier {
			for _, e := range adj[u] {
				if reachedIdx[e.b] {
					continue
				}
				if e.weight <= wirelessRange {
					reachedIdx[e.b] = true
					next = append(next, e.b)
				}
			}
		}
		frontier = next
	}

	for i := range reachedIdx {
		reachable[nodes[i].Key] = true
	}
	return reachable
}
