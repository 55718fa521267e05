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
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

// execDML dispatches INSERT/UPDATE/DELETE against the resolved table,
// mirroring the single-statement-at-a-time locking model spec §5
// describes (store.LockOrder governs multi-table acquisition; a single
// DML statement only ever touches the one table it names).
func (e *Engine) execDML(ctx *Context, kind ast.CommandKind, d *ast.DML) (*Batch, error) {
	_, tbl, err := e.Store.Resolve(ctx.Session.Defaults(), d.Table)
	if err != nil {
		return nil, err
	}
	switch kind {
	case ast.CmdUpdate:
		return e.execUpdate(ctx, tbl, d)
	case ast.CmdDelete:
		return e.execDelete(ctx, tbl, d)
	default:
		return e.execInsert(ctx, tbl, d)
	}
}

func (e *Engine) execInsert(ctx *Context, tbl store.Table, d *ast.DML) (*Batch, error) {
	schema := tbl.Schema()
	cols := d.Columns
	if len(cols) == 0 {
		cols = make([]string, len(schema))
		for i, c := range schema {
			cols[i] = c.Name
		}
	}
	positions := make([]int, len(cols))
	for i, name := range cols {
		positions[i] = schema.IndexOf(name)
	}

	n := 0
	insertRow := func(vals []types.Value) error {
		row := make(store.Row, len(schema))
		for i, pos := range positions {
			if pos >= 0 {
				row[pos] = vals[i]
			}
		}
		if err := tbl.Insert(row); err != nil {
			return err
		}
		n++
		return nil
	}

	if d.FromSelect != nil {
		b, err := e.ExecuteQuery(ctx, d.FromSelect, nil)
		if err != nil {
			return nil, err
		}
		for _, r := range b.Rows {
			if err := insertRow([]types.Value(r)); err != nil {
				return nil, err
			}
		}
		return statusBatch("insert", n), nil
	}

	for _, tuple := range d.Values {
		vals := make([]types.Value, len(tuple))
		for i, ex := range tuple {
			v, err := e.EvalExpr(ctx, ex, nil)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		if err := insertRow(vals); err != nil {
			return nil, err
		}
	}
	return statusBatch("insert", n), nil
}

func (e *Engine) execUpdate(ctx *Context, tbl store.Table, d *ast.DML) (*Batch, error) {
	schema := tbl.Schema()
	cols := make([]ColRef, len(schema))
	for i, c := range schema {
		cols[i] = ColRef{Name: c.Name}
	}

	var evalErr error
	pred := func(r store.Row) bool {
		if d.Where == nil {
			return true
		}
		ok, err := e.EvalPredicate(ctx, d.Where, &rowScope{cols: cols, row: Row(r)})
		if err != nil {
			evalErr = err
			return false
		}
		return ok
	}
	apply := func(r store.Row) store.Row {
		if evalErr != nil {
			return r
		}
		out := make(store.Row, len(r))
		copy(out, r)
		sc := &rowScope{cols: cols, row: Row(r)}
		for name, ex := range d.Assignments {
			v, err := e.EvalExpr(ctx, ex, sc)
			if err != nil {
				evalErr = err
				return r
			}
			if pos := schema.IndexOf(name); pos >= 0 {
				out[pos] = v
			}
		}
		return out
	}

	n, err := tbl.Update(pred, apply)
	if err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}
	return statusBatch("update", n), nil
}

func (e *Engine) execDelete(ctx *Context, tbl store.Table, d *ast.DML) (*Batch, error) {
	schema := tbl.Schema()
	cols := make([]ColRef, len(schema))
	for i, c := range schema {
		cols[i] = ColRef{Name: c.Name}
	}

	var evalErr error
	pred := func(r store.Row) bool {
		if d.Where == nil {
			return true
		}
		ok, err := e.EvalPredicate(ctx, d.Where, &rowScope{cols: cols, row: Row(r)})
		if err != nil {
			evalErr = err
			return false
		}
		return ok
	}

	n, err := tbl.Delete(pred)
	if err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}
	return statusBatch("delete", n), nil
}
