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
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/ident"
	"github.com/euanmacinnes/clarium/slicealg"
	"github.com/euanmacinnes/clarium/types"
)

// evalSlicePlan materializes plan's algebra tree into sorted, coalesced
// intervals (spec §4.5): the base source, then each clause's source
// combined in turn by Union or Intersect.
func (e *Engine) evalSlicePlan(ctx *Context, plan *ast.SlicePlan) ([]slicealg.Interval, error) {
	if plan == nil {
		return nil, errs.ErrSyntax.New("empty SLICE plan")
	}
	acc, err := e.evalSliceSource(ctx, plan.Base)
	if err != nil {
		return nil, err
	}
	acc = slicealg.SortCoalesce(acc)
	for _, clause := range plan.Clauses {
		rhs, err := e.evalSliceSource(ctx, clause.Src)
		if err != nil {
			return nil, err
		}
		rhs = slicealg.SortCoalesce(rhs)
		switch clause.Op {
		case ast.SliceUnion:
			acc = slicealg.Union(acc, rhs)
		case ast.SliceIntersect:
			acc = slicealg.Intersect(acc, rhs)
		}
	}
	return acc, nil
}

// sliceDefaultCols are the (start,end) column name pairs tried in order
// when a Table slice source omits explicit start_col/end_col, per spec
// §4.5.
var sliceDefaultCols = [][2]string{
	{"_start_date", "_end_date"},
	{"_start_time", "_end_time"},
}

func (e *Engine) evalSliceSource(ctx *Context, src *ast.SliceSource) ([]slicealg.Interval, error) {
	switch src.Kind {
	case ast.SliceSrcManual:
		out := make([]slicealg.Interval, 0, len(src.Manual))
		for _, m := range src.Manual {
			labels := map[string]types.Value{}
			for k, ex := range m.Labels {
				v, err := e.EvalExpr(ctx, ex, nil)
				if err != nil {
					return nil, err
				}
				labels[k] = v
			}
			out = append(out, slicealg.Interval{Start: m.Start, End: m.End, Labels: labels})
		}
		return out, nil

	case ast.SliceSrcPlan:
		return e.evalSlicePlan(ctx, src.Plan)

	case ast.SliceSrcTable:
		return e.evalSliceTableSource(ctx, src)
	}
	return nil, errs.ErrSyntax.New("unknown SLICE source kind")
}

func (e *Engine) evalSliceTableSource(ctx *Context, src *ast.SliceSource) ([]slicealg.Interval, error) {
	name, err := ident.Normalize(src.Table, ctx.Session.Defaults(), false)
	if err != nil {
		return nil, err
	}
	db, tbl, err := e.Store.Resolve(ctx.Session.Defaults(), name.String())
	if err != nil {
		return nil, err
	}
	_ = db
	schema := tbl.Schema()
	cols := make([]ColRef, len(schema))
	for i, c := range schema {
		cols[i] = ColRef{Name: c.Name}
	}

	startCol, endCol := src.StartCol, src.EndCol
	if startCol == "" || endCol == "" {
		for _, pair := range sliceDefaultCols {
			if schema.IndexOf(pair[0]) >= 0 && schema.IndexOf(pair[1]) >= 0 {
				startCol, endCol = pair[0], pair[1]
				break
			}
		}
	}
	startIdx := schema.IndexOf(startCol)
	endIdx := schema.IndexOf(endCol)
	if startIdx < 0 || endIdx < 0 {
		return nil, errs.ErrName.New("SLICE source table has no recognizable start/end columns")
	}

	iter, err := tbl.Scan()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []slicealg.Interval
	for {
		r, err := iter.Next()
		if err != nil {
			break
		}
		sc := &rowScope{cols: cols, row: Row(r)}
		if src.Where != nil {
			ok, err := e.EvalPredicate(ctx, src.Where, sc)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
		}
		s, _ := r[startIdx].(int64)
		en, _ := r[endIdx].(int64)
		labels := map[string]types.Value{}
		for k, ex := range src.LabelVals {
			v, err := e.EvalExpr(ctx, ex, sc)
			if err != nil {
				return nil, err
			}
			labels[k] = v
		}
		out = append(out, slicealg.Interval{Start: s, End: en, Labels: labels})
	}
	return out, nil
}

// execSliceStatement evaluates a bare top-level SLICE statement directly
// to its interval batch: one row per resulting interval, projecting
// _start_time/_end_time plus its label columns, per spec §4.5.
func (e *Engine) execSliceStatement(ctx *Context, plan *ast.SlicePlan) (*Batch, error) {
	ivs, err := e.evalSlicePlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	cols := []ColRef{{Name: "_start_time"}, {Name: "_end_time"}}
	for _, l := range plan.Labels {
		cols = append(cols, ColRef{Name: l})
	}
	b := NewBatch(cols)
	for _, iv := range ivs {
		row := make(Row, 0, len(cols))
		row = append(row, iv.Start, iv.End)
		for _, l := range plan.Labels {
			row = append(row, iv.Labels[l])
		}
		b.Rows = append(b.Rows, row)
	}
	return b, nil
}
