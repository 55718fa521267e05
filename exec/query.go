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

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

// ExecuteQuery runs the staged SELECT pipeline of spec §4.6 over q: CTE
// resolution, source/join, WHERE, aggregate, window functions, HAVING,
// ORDER BY, LIMIT, projection, UNION, and finally an INTO sink. sc carries
// CTEs visible from an enclosing query (nil at top level).
func (e *Engine) ExecuteQuery(ctx *Context, q *ast.Query, sc *scope) (*Batch, error) {
	child := &scope{ctes: map[string]*Batch{}}
	if sc != nil {
		for name, b := range sc.ctes {
			child.ctes[name] = b
		}
	}
	for _, cte := range q.WithCTEs {
		b, err := e.ExecuteQuery(ctx, cte.Query, child)
		if err != nil {
			return nil, err
		}
		child.ctes[cte.Name] = b
	}

	b, err := e.resolveFromTree(ctx, q.From, child)
	if err != nil {
		return nil, err
	}

	if q.Where != nil {
		b, err = e.filterRows(ctx, b, q.Where)
		if err != nil {
			return nil, err
		}
	}

	aggCalls := collectAggregateCalls(q)
	if q.AggKind != ast.AggNone || len(aggCalls) > 0 {
		b, err = e.aggregate(ctx, b, q, aggCalls)
		if err != nil {
			return nil, err
		}
	}

	if windowCalls := collectWindowCalls(q); len(windowCalls) > 0 {
		b, err = e.applyWindowFunctions(ctx, b, windowCalls)
		if err != nil {
			return nil, err
		}
	}

	if q.Having != nil {
		b, err = e.filterRows(ctx, b, q.Having)
		if err != nil {
			return nil, err
		}
	}

	b, err = e.orderBy(ctx, b, q)
	if err != nil {
		return nil, err
	}

	b = applyLimit(b, q.Limit)

	b, err = e.project(ctx, b, q.Select)
	if err != nil {
		return nil, err
	}

	if q.UnionNext != nil {
		next, err := e.ExecuteQuery(ctx, q.UnionNext, sc)
		if err != nil {
			return nil, err
		}
		b, err = unionBatches(b, next, q.UnionAll)
		if err != nil {
			return nil, err
		}
	}

	if q.Into != nil {
		if err := e.writeInto(ctx, b, q.Into); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// filterRows keeps every row of b for which pred evaluates true, per
// spec §4.6's WHERE/HAVING stages (NULL and false both drop a row).
func (e *Engine) filterRows(ctx *Context, b *Batch, pred *ast.Predicate) (*Batch, error) {
	out := NewBatch(b.Cols)
	for _, row := range b.Rows {
		ok, err := e.EvalPredicate(ctx, pred, &rowScope{cols: b.Cols, row: row})
		if err != nil {
			return nil, err
		}
		if ok {
			out.Rows = append(out.Rows, row)
		}
	}
	return out, nil
}

// unionBatches implements SELECT ... UNION [ALL] SELECT ...: both sides
// must project the same column count; ALL keeps duplicates, plain UNION
// dedupes against a textual row key.
func unionBatches(a, b *Batch, all bool) (*Batch, error) {
	if len(a.Cols) != len(b.Cols) {
		return nil, errs.ErrConstraint.New("UNION requires the same number of columns on both sides")
	}
	out := NewBatch(a.Cols)
	out.Rows = append(out.Rows, a.Rows...)
	if all {
		out.Rows = append(out.Rows, b.Rows...)
		return out, nil
	}
	seen := make(map[string]bool, len(out.Rows))
	for _, r := range out.Rows {
		seen[rowKey(r)] = true
	}
	for _, r := range b.Rows {
		k := rowKey(r)
		if seen[k] {
			continue
		}
		seen[k] = true
		out.Rows = append(out.Rows, r)
	}
	return out, nil
}

func rowKey(r Row) string {
	return fmt.Sprint([]types.Value(r))
}

// writeInto implements SELECT ... INTO <table> [APPEND|REPLACE] (spec
// §4.6): REPLACE drops and recreates the target with b's inferred schema;
// APPEND creates the target on first use and otherwise inserts into the
// existing table.
func (e *Engine) writeInto(ctx *Context, b *Batch, into *ast.Into) error {
	name, err := e.normalizeDefault(ctx, into.Table, false)
	if err != nil {
		return err
	}
	db, err := e.Store.Database(name.DB)
	if err != nil {
		return err
	}
	tbl, lookupErr := db.Table(name.Object)
	exists := lookupErr == nil

	if into.Mode == ast.IntoReplace && exists {
		if err := db.DropTable(name.Object); err != nil {
			return err
		}
		exists = false
	}
	if !exists {
		tbl = store.NewMemTable(name.Object, batchSchema(b))
		if err := db.CreateTable(name.Object, tbl); err != nil {
			return err
		}
	}
	for _, row := range b.Rows {
		out := make(store.Row, len(row))
		copy(out, row)
		if err := tbl.Insert(out); err != nil {
			return err
		}
	}
	return nil
}

// batchSchema infers a store.Schema for a batch materialized by SELECT
// ... INTO, sampling each column's first non-NULL value for its dtype.
func batchSchema(b *Batch) store.Schema {
	sch := make(store.Schema, len(b.Cols))
	for i, c := range b.Cols {
		dt := types.String
		for _, row := range b.Rows {
			if row[i] != nil {
				dt = inferDType(row[i])
				break
			}
		}
		sch[i] = store.Column{Name: c.Name, Type: dt, Nullable: true}
	}
	return sch
}

func inferDType(v types.Value) types.DType {
	switch v.(type) {
	case int64:
		return types.Int64
	case float64:
		return types.Float64
	case bool:
		return types.Bool
	case types.Vec, []float32:
		return types.Vector
	default:
		return types.String
	}
}
