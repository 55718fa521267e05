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

package slicealg

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSortCoalesceMergesOverlapping(t *testing.T) {
	in := []Interval{{Start: 10, End: 20}, {Start: 0, End: 11}}
	out := SortCoalesce(in)
	assert.Equal(t, []Interval{{Start: 0, End: 20}}, out)
}

func TestSortCoalesceAbutting(t *testing.T) {
	in := []Interval{{Start: 0, End: 9}, {Start: 10, End: 20}}
	out := SortCoalesce(in)
	assert.Equal(t, []Interval{{Start: 0, End: 20}}, out)
}

func TestSortCoalesceDisjointStaysSeparate(t *testing.T) {
	in := []Interval{{Start: 0, End: 5}, {Start: 20, End: 30}}
	out := SortCoalesce(in)
	assert.Equal(t, in, out)
}

func TestIntersectClipsOverlap(t *testing.T) {
	a := []Interval{{Start: 0, End: 20}}
	b := []Interval{{Start: 10, End: 30}}
	out := Intersect(a, b)
	assert.Equal(t, []Interval{{Start: 10, End: 20}}, out)
}

func TestIntersectNoOverlapIsEmpty(t *testing.T) {
	a := []Interval{{Start: 0, End: 5}}
	b := []Interval{{Start: 10, End: 20}}
	assert.Empty(t, Intersect(a, b))
}

func TestLabelCoalesceLHSStickyFillsFromRHS(t *testing.T) {
	a := []Interval{{Start: 0, End: 20, Labels: map[string]interface{}{"tag": ""}}}
	b := []Interval{{Start: 10, End: 30, Labels: map[string]interface{}{"tag": "from-b"}}}
	out := Intersect(a, b)
	assert.Equal(t, "from-b", out[0].Labels["tag"])
}

func TestLabelCoalesceLHSWinsWhenNonEmpty(t *testing.T) {
	a := []Interval{{Start: 0, End: 20, Labels: map[string]interface{}{"tag": "from-a"}}}
	b := []Interval{{Start: 10, End: 30, Labels: map[string]interface{}{"tag": "from-b"}}}
	out := Intersect(a, b)
	assert.Equal(t, "from-a", out[0].Labels["tag"])
}

func TestUnionMatchesSortCoalesceOfConcatenation(t *testing.T) {
	a := []Interval{{Start: 0, End: 20}}
	b := []Interval{{Start: 10, End: 30}}
	assert.Equal(t, SortCoalesce(append(append([]Interval{}, a...), b...)), Union(a, b))
}
