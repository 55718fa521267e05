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

package exec

import "github.com/euanmacinnes/clarium/ast"

// joinBatches evaluates a nested-loop join of left and right per the
// Join stage of spec §4.6. INNER drops unmatched rows on both sides;
// LEFT/RIGHT/FULL pad the unmatched side with NULLs, matching the
// teacher's plan.JoinNode evaluation strategy simplified to a
// materialize-then-probe loop since batches here are already fully
// materialized in memory.
func (e *Engine) joinBatches(ctx *Context, jt ast.JoinType, left, right *Batch, on *ast.Predicate) (*Batch, error) {
	cols := append(append([]ColRef{}, left.Cols...), right.Cols...)
	out := NewBatch(cols)

	rightMatched := make([]bool, len(right.Rows))

	for _, lrow := range left.Rows {
		matchedAny := false
		for ri, rrow := range right.Rows {
			combined := make(Row, 0, len(lrow)+len(rrow))
			combined = append(combined, lrow...)
			combined = append(combined, rrow...)

			ok := true
			if on != nil {
				var err error
				ok, err = e.EvalPredicate(ctx, on, &rowScope{cols: cols, row: combined})
				if err != nil {
					return nil, err
				}
			}
			if ok {
				out.Rows = append(out.Rows, combined)
				matchedAny = true
				rightMatched[ri] = true
			}
		}
		if !matchedAny && (jt == ast.JoinLeft || jt == ast.JoinFull) {
			combined := make(Row, 0, len(lrow)+len(right.Cols))
			combined = append(combined, lrow...)
			for range right.Cols {
				combined = append(combined, nil)
			}
			out.Rows = append(out.Rows, combined)
		}
	}

	if jt == ast.JoinRight || jt == ast.JoinFull {
		for ri, rrow := range right.Rows {
			if rightMatched[ri] {
				continue
			}
			combined := make(Row, 0, len(left.Cols)+len(rrow))
			for range left.Cols {
				combined = append(combined, nil)
			}
			combined = append(combined, rrow...)
			out.Rows = append(out.Rows, combined)
		}
	}
	return out, nil
}
