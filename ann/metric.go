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

// Package ann implements the ANN ORDER BY planner (spec §4.8): sidecar
// lookup, the metric/dimension compatibility gate, and a bounded top-K
// scan that rescoring guarantees is exact. No HNSW (or other true
// approximate-index) library exists anywhere in the reference corpus, so
// the "index" this package searches is always the exact candidate set;
// the planner's gating and fallback-without-error contract is preserved
// so the behavior documented in spec §4.8 is observable even though step
// 3's "search" always degenerates to a full scan.
package ann

import (
	"math"

	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// Metric is one of the three supported vector distance/similarity
// functions. Sort direction differs per metric: L2 is ascending
// (smaller is closer), cosine similarity and inner product are
// descending (larger is closer).
type Metric int

const (
	MetricL2 Metric = iota
	MetricCosine
	MetricIP
)

// ParseMetricFunc maps a lowercase scalar-function name to its Metric.
func ParseMetricFunc(name string) (Metric, bool) {
	switch name {
	case "vec_l2":
		return MetricL2, true
	case "cosine_sim":
		return MetricCosine, true
	case "vec_ip":
		return MetricIP, true
	}
	return 0, false
}

// Descending reports whether higher scores should sort first.
func (m Metric) Descending() bool {
	return m == MetricCosine || m == MetricIP
}

// String renders the sidecar-facing metric name, matching the spelling
// CREATE VECTOR INDEX ... METRIC '<name>' stores.
func (m Metric) String() string {
	switch m {
	case MetricL2:
		return "l2"
	case MetricCosine:
		return "cosine"
	case MetricIP:
		return "ip"
	}
	return "unknown"
}

// Distance computes metric(a, b): L2 returns Euclidean distance, cosine
// returns cosine similarity, IP returns the raw inner product. No
// library in the reference corpus computes vector distance client-side
// (the pack's own pgvector-go call sites only construct pgvector.Vector
// to hand a []float32 to pgx as a wire-format query argument, leaving
// the `<->`/`<=>`/`<#>` distance math to the server); this loop is
// plain stdlib math for the same reason lex and slicealg are.
func Distance(metric Metric, a, b types.Vec) (float64, error) {
	va, vb := []float32(a), []float32(b)
	if len(va) != len(vb) {
		return 0, errs.ErrType.New("vector dimension mismatch")
	}
	switch metric {
	case MetricL2:
		var sum float64
		for i := range va {
			d := float64(va[i]) - float64(vb[i])
			sum += d * d
		}
		return math.Sqrt(sum), nil
	case MetricIP:
		var sum float64
		for i := range va {
			sum += float64(va[i]) * float64(vb[i])
		}
		return sum, nil
	case MetricCosine:
		var dot, na, nb float64
		for i := range va {
			dot += float64(va[i]) * float64(vb[i])
			na += float64(va[i]) * float64(va[i])
			nb += float64(vb[i]) * float64(vb[i])
		}
		if na == 0 || nb == 0 {
			return 0, nil
		}
		return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
	}
	return 0, errs.ErrType.New("unknown metric")
}
