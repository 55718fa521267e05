// Copyright 2020-2021 Dolthub, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package graph

import (
	"container/heap"

	"github.com/RoaringBitmap/roaring/v2"
)

// NeighborRow is one result row of graph_neighbors (spec §4.7): the
// reached node, the hop distance it was first discovered at, and the
// node the first edge that reached it came from.
type NeighborRow struct {
	NodeID string
	Hop    int
	PrevID string
}

// nodeIDs allocates dense uint32 IDs for a Backend's opaque string node
// IDs, so the visited set during a traversal can be a roaring.Bitmap
// rather than a map[string]bool.
type nodeIDs struct {
	ids map[string]uint32
}

func newNodeIDs() *nodeIDs { return &nodeIDs{ids: map[string]uint32{}} }

func (n *nodeIDs) idFor(s string) uint32 {
	if id, ok := n.ids[s]; ok {
		return id
	}
	id := uint32(len(n.ids))
	n.ids[s] = id
	return id
}

// Neighbors implements graph_neighbors: bounded frontier-expansion BFS
// from the already-resolved start node ID out to maxHops, restricted to
// etype ("" for any) and the [lower,upper) temporal window
// Backend.Neighbors applies.
func Neighbors(b Backend, start, etype string, maxHops int, lower, upper *int64) ([]NeighborRow, error) {
	ids := newNodeIDs()
	visited := roaring.New()
	visited.Add(ids.idFor(start))

	var out []NeighborRow
	frontier := []string{start}
	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, cur := range frontier {
			edges, err := b.Neighbors(cur, etype, lower, upper)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				id := ids.idFor(e.To)
				if visited.Contains(id) {
					continue
				}
				visited.Add(id)
				out = append(out, NeighborRow{NodeID: e.To, Hop: hop, PrevID: cur})
				next = append(next, e.To)
			}
		}
		frontier = next
	}
	return out, nil
}

// PathStep is one node of a graph_paths result, in path order: Ord 0 is
// the start node, Cost is its cumulative distance from the start (hop
// count for an unweighted BFS fallback, summed edge cost for Dijkstra).
type PathStep struct {
	NodeID string
	Ord    int
	Cost   float64
}

// ShortestPath implements graph_paths (spec §4.7/4.9) between two
// already-resolved node IDs: Dijkstra when the backend reports a cost
// column on any configured edge kind, otherwise unweighted BFS with Cost
// taking the hop index. Returns nil, nil when no path under maxHops
// exists, matching the TVF's "empty result, not an error" contract for an
// unreachable destination.
func ShortestPath(b Backend, start, end, etype string, maxHops int, lower, upper *int64) ([]PathStep, error) {
	if b.HasCost() {
		return dijkstraPath(b, start, end, etype, maxHops, lower, upper)
	}
	return bfsPath(b, start, end, etype, maxHops, lower, upper)
}

func reconstruct(prev map[string]string, start, end string, costOf func(string) float64) []PathStep {
	var chain []string
	for cur := end; ; {
		chain = append(chain, cur)
		if cur == start {
			break
		}
		cur = prev[cur]
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	out := make([]PathStep, len(chain))
	for i, n := range chain {
		out[i] = PathStep{NodeID: n, Ord: i, Cost: costOf(n)}
	}
	return out
}

// bfsPath is the unweighted BFS fallback: the first frontier sweep that
// reaches end is shortest by definition, with Cost set to hop index.
func bfsPath(b Backend, start, end, etype string, maxHops int, lower, upper *int64) ([]PathStep, error) {
	if start == end {
		return []PathStep{{NodeID: start, Ord: 0, Cost: 0}}, nil
	}
	ids := newNodeIDs()
	visited := roaring.New()
	visited.Add(ids.idFor(start))

	prev := map[string]string{}
	hopOf := map[string]int{start: 0}
	frontier := []string{start}
	found := false
	for hop := 1; hop <= maxHops && len(frontier) > 0 && !found; hop++ {
		var next []string
		for _, cur := range frontier {
			edges, err := b.Neighbors(cur, etype, lower, upper)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				id := ids.idFor(e.To)
				if visited.Contains(id) {
					continue
				}
				visited.Add(id)
				prev[e.To] = cur
				hopOf[e.To] = hop
				next = append(next, e.To)
				if e.To == end {
					found = true
				}
			}
		}
		frontier = next
	}
	if !found {
		return nil, nil
	}
	return reconstruct(prev, start, end, func(n string) float64 { return float64(hopOf[n]) }), nil
}

// pqItem is one entry of dijkstraPath's open set.
type pqItem struct {
	id   string
	dist float64
}

type pathQueue []pqItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(pqItem)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	it := old[n-1]
	*q = old[:n-1]
	return it
}

// dijkstraPath is standard binary-heap relaxation over Backend edges,
// bounded to maxHops relaxations deep along any single path.
func dijkstraPath(b Backend, start, end, etype string, maxHops int, lower, upper *int64) ([]PathStep, error) {
	dist := map[string]float64{start: 0}
	hops := map[string]int{start: 0}
	prev := map[string]string{}
	visited := map[string]bool{}

	pq := &pathQueue{{id: start, dist: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqItem)
		if visited[cur.id] {
			continue
		}
		visited[cur.id] = true
		if cur.id == end {
			break
		}
		if hops[cur.id] >= maxHops {
			continue
		}
		edges, err := b.Neighbors(cur.id, etype, lower, upper)
		if err != nil {
			return nil, err
		}
		for _, e := range edges {
			nd := cur.dist + e.Cost
			if d, ok := dist[e.To]; !ok || nd < d {
				dist[e.To] = nd
				prev[e.To] = cur.id
				hops[e.To] = hops[cur.id] + 1
				heap.Push(pq, pqItem{id: e.To, dist: nd})
			}
		}
	}
	if _, ok := dist[end]; !ok {
		return nil, nil
	}
	return reconstruct(prev, start, end, func(n string) float64 { return dist[n] }), nil
}
