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

// Package slicealg implements the SLICE interval algebra (spec §4.5): an
// ordered set of disjoint [start,end] intervals, each optionally carrying
// label columns, with UNION and INTERSECT operators over two such sets.
// This package is pure algebra: it knows nothing about tables, WHERE
// predicates, or the parser. The exec package materializes a SliceSource
// into a []Interval (reading rows, applying WHERE, evaluating LABEL(...))
// and then drives the algebra here.
package slicealg

import (
	"sort"

	"github.com/euanmacinnes/clarium/types"
)

// Interval is one [Start,End] interval (inclusive, in the source's time
// unit) plus its label column values.
type Interval struct {
	Start  int64
	End    int64
	Labels map[string]types.Value
}

// coalesceLabels merges rhs into lhs under the LHS-sticky rule (spec §4.5,
// design note §9): lhs's value for a label wins unless it is NULL or the
// empty string, in which case rhs's value (if any) fills it.
func coalesceLabels(lhs, rhs map[string]types.Value) map[string]types.Value {
	if lhs == nil && rhs == nil {
		return nil
	}
	out := make(map[string]types.Value, len(lhs)+len(rhs))
	for k, v := range lhs {
		out[k] = v
	}
	for k, v := range rhs {
		if cur, ok := out[k]; !ok || types.IsNullOrEmpty(cur) {
			if !types.IsNullOrEmpty(v) || !ok {
				out[k] = v
			}
		}
	}
	return out
}

// overlapsOrAbuts reports whether b starts no later than one unit past
// a's end, i.e. the two intervals overlap or are contiguous and should
// coalesce into one under UNION.
func overlapsOrAbuts(a, b Interval) bool {
	return b.Start <= a.End+1
}

// SortCoalesce sorts ivs by Start (ties broken by original order, so the
// LHS-sticky label rule has a deterministic "earlier wins" reading) and
// merges any intervals that overlap or abut, per spec §4.5 ("Intervals
// within a single source are pre-normalized by sort+coalesce").
func SortCoalesce(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	ordered := make([]Interval, len(ivs))
	copy(ordered, ivs)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Start < ordered[j].Start })

	out := make([]Interval, 0, len(ordered))
	cur := ordered[0]
	for _, next := range ordered[1:] {
		if overlapsOrAbuts(cur, next) {
			if next.End > cur.End {
				cur.End = next.End
			}
			cur.Labels = coalesceLabels(cur.Labels, next.Labels)
			continue
		}
		out = append(out, cur)
		cur = next
	}
	out = append(out, cur)
	return out
}

// Union merges a and b: eval(Union(A,B)) = sort_coalesce(eval(A) ∪ eval(B))
// per spec §8's testable property. a's intervals are listed first so ties
// at the same Start favor a's labels as the "earlier" (LHS) side when two
// intervals from different sources coalesce.
func Union(a, b []Interval) []Interval {
	combined := make([]Interval, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return SortCoalesce(combined)
}

// Intersect clips each pairwise overlap between a's and b's (already
// disjoint, sorted) intervals. Both sides must contribute to an overlap
// for it to appear in the result; labels coalesce LHS-sticky with a as
// the LHS, per spec §4.5.
func Intersect(a, b []Interval) []Interval {
	var out []Interval
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		lo := max64(a[i].Start, b[j].Start)
		hi := min64(a[i].End, b[j].End)
		if lo <= hi {
			out = append(out, Interval{
				Start:  lo,
				End:    hi,
				Labels: coalesceLabels(a[i].Labels, b[j].Labels),
			})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
