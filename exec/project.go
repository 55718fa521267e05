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

// project applies items to b, the Project stage of spec §4.6. A bare "*"
// or "alias.*" item expands to the concrete source columns it stands
// for; every other item becomes one output column named by its alias, or
// by its canonical display name when unaliased.
func (e *Engine) project(ctx *Context, b *Batch, items []ast.SelectItem) (*Batch, error) {
	var outCols []ColRef
	type plan struct {
		expr      *ast.Expr
		sourceIdx int // >=0 when this is a pass-through wildcard column
	}
	var plans []plan

	for _, item := range items {
		if item.Expr.Kind == ast.ExprColumn && item.Expr.Name == "*" {
			expanded := b.ExpandWildcard(item.Expr.Qualifier)
			for _, c := range expanded {
				idx, err := b.IndexOf(c.Alias, c.Name)
				if err != nil {
					return nil, err
				}
				name := projectedName(c)
				if item.Expr.Qualifier != "" {
					name = c.Name
				}
				outCols = append(outCols, ColRef{Name: name})
				plans = append(plans, plan{sourceIdx: idx})
			}
			continue
		}
		name := item.Alias
		if name == "" {
			name = exprDisplayName(item.Expr)
		}
		outCols = append(outCols, ColRef{Name: name})
		plans = append(plans, plan{expr: item.Expr, sourceIdx: -1})
	}

	out := NewBatch(outCols)
	for _, row := range b.Rows {
		sc := &rowScope{cols: b.Cols, row: row}
		newRow := make(Row, len(plans))
		for i, p := range plans {
			if p.sourceIdx >= 0 {
				newRow[i] = row[p.sourceIdx]
				continue
			}
			v, err := e.EvalExpr(ctx, p.expr, sc)
			if err != nil {
				return nil, err
			}
			newRow[i] = v
		}
		out.Rows = append(out.Rows, newRow)
	}
	return out, nil
}

// exprDisplayName renders an unaliased projection item's display name:
// an aggregate call's canonical name, a bare column's own name, or the
// generic "expr" fallback the teacher uses for computed columns.
func exprDisplayName(e *ast.Expr) string {
	switch e.Kind {
	case ast.ExprColumn:
		return e.Name
	case ast.ExprCall:
		if e.IsAgg || knownAggregateNames[upper(e.Func)] || e.Over != nil {
			return CanonicalAggName(e)
		}
		return e.Func
	default:
		return exprDisplay(e)
	}
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
