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

package ann

import (
	"container/heap"
	"sort"

	"github.com/euanmacinnes/clarium/types"
)

// Candidate is one row eligible for ANN ordering: an opaque ID (the
// executor's row index) plus its embedding.
type Candidate struct {
	ID    int
	Vec   types.Vec
	Score float64
}

// candHeap is the bounded heap of Candidates, kept "worst first"
// (a max-heap for ascending metrics, a min-heap for descending ones) so
// the worst element is always evicted when a better one arrives.
type candHeap struct {
	items []Candidate
	worse func(a, b float64) bool // true if a is worse than b
}

func (h candHeap) Len() int { return len(h.items) }
func (h candHeap) Less(i, j int) bool {
	return h.worse(h.items[i].Score, h.items[j].Score)
}
func (h candHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *candHeap) Push(x interface{}) {
	h.items = append(h.items, x.(Candidate))
}
func (h *candHeap) Pop() interface{} {
	n := len(h.items)
	it := h.items[n-1]
	h.items = h.items[:n-1]
	return it
}

// TopK re-scores every candidate against query with metric and returns
// the best limit of them in final sort order (limit < 0 means "all").
// This is always an exact computation (spec §4.8 step 4's rescore),
// which is what makes the ANN/exact parity guarantee trivially true for
// this implementation: a bounded heap just avoids sorting the full
// candidate set when limit is small.
func TopK(metric Metric, query types.Vec, candidates []Candidate, limit int64) ([]Candidate, error) {
	scored := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		d, err := Distance(metric, c.Vec, query)
		if err != nil {
			return nil, err
		}
		c.Score = d
		scored = append(scored, c)
	}

	desc := metric.Descending()
	if limit < 0 || limit >= int64(len(scored)) {
		sort.SliceStable(scored, func(i, j int) bool {
			if desc {
				return scored[i].Score > scored[j].Score
			}
			return scored[i].Score < scored[j].Score
		})
		return scored, nil
	}

	// worse(a,b) for a bounded best-K heap: true when a is the element we
	// would want to evict first, i.e. a is less good than b.
	worse := func(a, b float64) bool {
		if desc {
			return a < b
		}
		return a > b
	}
	h := &candHeap{worse: worse}
	heap.Init(h)
	for _, c := range scored {
		if int64(h.Len()) < limit {
			heap.Push(h, c)
			continue
		}
		if worse(h.items[0].Score, c.Score) {
			heap.Pop(h)
			heap.Push(h, c)
		}
	}
	out := make([]Candidate, h.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(h).(Candidate)
	}
	return out, nil
}
