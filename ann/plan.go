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

import "github.com/euanmacinnes/clarium/catalog"

// DefaultEfSearch is the candidate-set floor spec §4.8 step 3 names when
// no LIMIT is given a smaller value.
const DefaultEfSearch = 64

// Decide implements spec §4.8 steps 1-2 and 6: locate a READY sidecar for
// (table, column) and check it agrees with the query's metric and
// dimension. A caller that gets ok=false should fall back to an exact
// scan silently rather than error.
func Decide(sc *catalog.SidecarStore, table, column string, metric Metric, queryDim int, useExactHint bool) (ok bool, efSearch int) {
	if useExactHint || sc == nil {
		return false, 0
	}
	vi, found := sc.VectorIndexFor(table, column)
	if !found || vi.State != catalog.VIndexReady {
		return false, 0
	}
	if vi.Metric != metric.String() || vi.Dim != queryDim {
		return false, 0
	}
	return true, DefaultEfSearch
}
