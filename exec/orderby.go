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
	"sort"
	"strings"

	"github.com/euanmacinnes/clarium/ann"
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// orderBy implements the ORDER BY stage of spec §4.6: when the hint
// selects ANN and the hinted key is a supported metric call, routes the
// whole sort through the ann planner and keeps only its returned rows
// (any remaining keys then stably re-sort that top-K, so ANN order is
// kept only among rows that tie on them); otherwise performs a plain
// multi-key stable sort. Session.StrictProjection is not consulted: keys
// are always evaluated against b before Project runs (the caller always
// calls orderBy before project), so they may reference source columns
// that the final projection omits.
func (e *Engine) orderBy(ctx *Context, b *Batch, q *ast.Query) (*Batch, error) {
	if len(q.OrderBy) == 0 {
		return b, nil
	}

	if q.OrderByHint == ast.HintANN {
		key := q.OrderBy[q.OrderHintOnKey]
		if metric, col, qv, ok := annMetricCall(key.Expr); ok {
			limit := int64(-1)
			if q.Limit != nil && *q.Limit > 0 {
				limit = *q.Limit
			}
			routed, err := e.runANNOrder(ctx, b, metric, col, qv, limit)
			if err == nil {
				return e.sortRows(ctx, routed, dropKey(q.OrderBy, q.OrderHintOnKey))
			}
			// Fall back to exact evaluation on any planner mismatch (spec
			// §4.8's "never error" contract).
		}
	}
	return e.sortRows(ctx, b, q.OrderBy)
}

// annMetricCall recognizes `metric_fn(col, query_vec)` as the first
// ORDER BY key of an ANN-hinted query.
func annMetricCall(e *ast.Expr) (ann.Metric, *ast.Expr, *ast.Expr, bool) {
	if e == nil || e.Kind != ast.ExprCall || len(e.Args) != 2 {
		return 0, nil, nil, false
	}
	m, ok := ann.ParseMetricFunc(strings.ToLower(e.Func))
	if !ok {
		return 0, nil, nil, false
	}
	return m, e.Args[0], e.Args[1], true
}

func dropKey(keys []ast.OrderKey, idx int) []ast.OrderKey {
	out := make([]ast.OrderKey, 0, len(keys)-1)
	for i, k := range keys {
		if i != idx {
			out = append(out, k)
		}
	}
	return out
}

// runANNOrder evaluates col over every row of b to build the candidate
// vector set, asks the ann package for the top-limit ordering, and
// reorders b's rows to match.
func (e *Engine) runANNOrder(ctx *Context, b *Batch, metric ann.Metric, col, queryExpr *ast.Expr, limit int64) (*Batch, error) {
	qv, err := e.EvalExpr(ctx, queryExpr, nil)
	if err != nil {
		return nil, err
	}
	query, err := asVector(qv)
	if err != nil || query == nil {
		return nil, errs.ErrType.New("ANN query operand is not a vector")
	}

	candidates := make([]ann.Candidate, 0, len(b.Rows))
	for i, row := range b.Rows {
		sc := &rowScope{cols: b.Cols, row: row}
		v, err := e.EvalExpr(ctx, col, sc)
		if err != nil {
			return nil, err
		}
		vec, err := asVector(v)
		if err != nil || vec == nil {
			continue
		}
		candidates = append(candidates, ann.Candidate{ID: i, Vec: vec})
	}

	if col.Kind == ast.ExprColumn {
		useIndex, ef := ann.Decide(e.Cat.Sidecars, col.Qualifier, col.Name, metric, len(query), false)
		ctx.Log.WithField("vindex_routed", useIndex).WithField("ef_search", ef).Trace("exec: ANN order planning")
	}

	ranked, err := ann.TopK(metric, query, candidates, limit)
	if err != nil {
		return nil, err
	}

	out := NewBatch(b.Cols)
	out.Rows = make([]Row, len(ranked))
	for i, r := range ranked {
		out.Rows[i] = b.Rows[r.ID]
	}
	return out, nil
}

// sortRows performs a plain multi-key stable sort of b per keys.
func (e *Engine) sortRows(ctx *Context, b *Batch, keys []ast.OrderKey) (*Batch, error) {
	if len(keys) == 0 {
		return b, nil
	}
	idxs := allIndexes(len(b.Rows))
	cache := make([][]types.Value, len(keys))
	for ki, k := range keys {
		cache[ki] = make([]types.Value, len(b.Rows))
		for ri, row := range b.Rows {
			v, err := e.EvalExpr(ctx, k.Expr, &rowScope{cols: b.Cols, row: row})
			if err != nil {
				return nil, err
			}
			cache[ki][ri] = v
		}
	}
	sort.SliceStable(idxs, func(i, j int) bool {
		a, bI := idxs[i], idxs[j]
		for ki, k := range keys {
			va, vb := cache[ki][a], cache[ki][bI]
			if va == nil && vb == nil {
				continue
			}
			if va == nil {
				return !k.Desc
			}
			if vb == nil {
				return k.Desc
			}
			c, ok := types.Compare(va, vb)
			if !ok || c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	out := NewBatch(b.Cols)
	out.Rows = make([]Row, len(idxs))
	for i, idx := range idxs {
		out.Rows[i] = b.Rows[idx]
	}
	return out, nil
}

// applyLimit implements spec §4.6's LIMIT semantics: non-negative N keeps
// the first N rows, negative N keeps the last |N| in existing order.
func applyLimit(b *Batch, limit *int64) *Batch {
	if limit == nil {
		return b
	}
	n := *limit
	total := int64(len(b.Rows))
	out := NewBatch(b.Cols)
	if n >= 0 {
		if n > total {
			n = total
		}
		out.Rows = append(out.Rows, b.Rows[:n]...)
		return out
	}
	k := -n
	if k > total {
		k = total
	}
	out.Rows = append(out.Rows, b.Rows[total-k:]...)
	return out
}
