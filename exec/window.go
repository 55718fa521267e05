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

import (
	"fmt"
	"sort"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// collectWindowCalls finds ROW_NUMBER() OVER(...) calls in q's
// projection, spec §4.6's window-function stage.
func collectWindowCalls(q *ast.Query) []*ast.Expr {
	var out []*ast.Expr
	for _, item := range q.Select {
		if item.Expr.Kind == ast.ExprCall && item.Expr.Over != nil {
			out = append(out, item.Expr)
		}
	}
	return out
}

// applyWindowFunctions computes each call in calls over b and appends one
// result column per call, named by CanonicalAggName(call).
func (e *Engine) applyWindowFunctions(ctx *Context, b *Batch, calls []*ast.Expr) (*Batch, error) {
	if len(calls) == 0 {
		return b, nil
	}
	results := make([][]types.Value, len(calls))
	for ci, call := range calls {
		if upper(call.Func) != "ROW_NUMBER" {
			return nil, errs.ErrUdf.New("unsupported window function " + call.Func)
		}
		vals, err := e.rowNumber(ctx, b, call.Over)
		if err != nil {
			return nil, err
		}
		results[ci] = vals
	}
	cols := append([]ColRef{}, b.Cols...)
	for _, call := range calls {
		cols = append(cols, ColRef{Name: CanonicalAggName(call)})
	}
	out := NewBatch(cols)
	for ri, row := range b.Rows {
		newRow := append(append(Row{}, row...))
		for ci := range calls {
			newRow = append(newRow, results[ci][ri])
		}
		out.Rows = append(out.Rows, newRow)
	}
	return out, nil
}

// rowNumber partitions b's rows by ws.PartitionBy, sorts each partition
// by ws.OrderBy, and assigns a 1-based rank within the partition,
// preserving b's original row order in the output.
func (e *Engine) rowNumber(ctx *Context, b *Batch, ws *ast.WindowSpec) ([]types.Value, error) {
	n := len(b.Rows)
	out := make([]types.Value, n)

	partOf := make([]string, n)
	for i, row := range b.Rows {
		sc := &rowScope{cols: b.Cols, row: row}
		key := make([]types.Value, len(ws.PartitionBy))
		for pi, pe := range ws.PartitionBy {
			v, err := e.EvalExpr(ctx, pe, sc)
			if err != nil {
				return nil, err
			}
			key[pi] = v
		}
		partOf[i] = fmt.Sprint(key)
	}

	partitions := map[string][]int{}
	var order []string
	for i, k := range partOf {
		if _, ok := partitions[k]; !ok {
			order = append(order, k)
		}
		partitions[k] = append(partitions[k], i)
	}

	for _, k := range order {
		idxs := partitions[k]
		sorted := append([]int{}, idxs...)
		sort.SliceStable(sorted, func(a, bI int) bool {
			ra, rb := b.Rows[sorted[a]], b.Rows[sorted[bI]]
			for _, ok := range ws.OrderBy {
				va, err1 := e.EvalExpr(ctx, ok.Expr, &rowScope{cols: b.Cols, row: ra})
				vb, err2 := e.EvalExpr(ctx, ok.Expr, &rowScope{cols: b.Cols, row: rb})
				if err1 != nil || err2 != nil {
					return false
				}
				c, ok2 := types.Compare(va, vb)
				if !ok2 || c == 0 {
					continue
				}
				if ok.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
		for rank, idx := range sorted {
			out[idx] = int64(rank + 1)
		}
	}
	return out, nil
}
