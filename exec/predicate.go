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
	"github.com/euanmacinnes/clarium/types"
)

// EvalPredicate evaluates p against sc using three-valued (NULL-aware)
// SQL logic collapsed to Go bool per the teacher's convention: a NULL
// comparison result is treated as not-true, matching WHERE/HAVING/ON
// filtering semantics (a row is kept only when its predicate is
// definitely true).
func (e *Engine) EvalPredicate(ctx *Context, p *ast.Predicate, sc *rowScope) (bool, error) {
	if p == nil {
		return true, nil
	}
	switch p.Kind {
	case ast.PredOr:
		for _, c := range p.Clauses {
			ok, err := e.EvalPredicate(ctx, c, sc)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil

	case ast.PredAnd:
		for _, c := range p.Clauses {
			ok, err := e.EvalPredicate(ctx, c, sc)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil

	case ast.PredParen:
		return e.EvalPredicate(ctx, p.Inner, sc)

	case ast.PredCompare:
		return e.evalCompare(ctx, p, sc)

	case ast.PredLike:
		l, err := e.EvalExpr(ctx, p.Left, sc)
		if err != nil {
			return false, err
		}
		pat, err := e.EvalExpr(ctx, p.Pattern, sc)
		if err != nil {
			return false, err
		}
		if l == nil || pat == nil {
			return false, nil
		}
		ls, _ := l.(string)
		ps, _ := pat.(string)
		ok := types.LikeMatch(ls, ps)
		if p.Negated {
			ok = !ok
		}
		return ok, nil

	case ast.PredIsNull:
		v, err := e.EvalExpr(ctx, p.Left, sc)
		if err != nil {
			return false, err
		}
		isNull := v == nil
		if p.Negated {
			return !isNull, nil
		}
		return isNull, nil

	case ast.PredBetween:
		v, err := e.EvalExpr(ctx, p.Left, sc)
		if err != nil {
			return false, err
		}
		lo, err := e.EvalExpr(ctx, p.Low, sc)
		if err != nil {
			return false, err
		}
		hi, err := e.EvalExpr(ctx, p.High, sc)
		if err != nil {
			return false, err
		}
		if v == nil || lo == nil || hi == nil {
			return false, nil
		}
		cLo, ok1 := types.Compare(v, lo)
		cHi, ok2 := types.Compare(v, hi)
		if !ok1 || !ok2 {
			return false, nil
		}
		ok := cLo >= 0 && cHi <= 0
		if p.Negated {
			return !ok, nil
		}
		return ok, nil

	case ast.PredIn:
		return e.evalIn(ctx, p, sc)

	case ast.PredExists:
		return e.evalExists(ctx, p, sc)

	case ast.PredAnyAll:
		return e.evalAnyAll(ctx, p.AA, p.Negated, nil, sc, ctx)
	}
	return false, errs.ErrSyntax.New("unevaluable predicate kind")
}

func (e *Engine) evalCompare(ctx *Context, p *ast.Predicate, sc *rowScope) (bool, error) {
	l, err := e.EvalExpr(ctx, p.Left, sc)
	if err != nil {
		return false, err
	}
	if p.RightAnyAll != nil {
		return e.evalAnyAll(ctx, p.RightAnyAll, false, l, sc, ctx)
	}
	r, err := e.EvalExpr(ctx, p.Right, sc)
	if err != nil {
		return false, err
	}
	return compareValues(p.Op, l, r), nil
}

func compareValues(op ast.CompareOp, l, r types.Value) bool {
	if l == nil || r == nil {
		return false
	}
	if op == ast.CmpEq {
		return types.Equal(l, r)
	}
	if op == ast.CmpNe {
		return !types.Equal(l, r)
	}
	c, ok := types.Compare(l, r)
	if !ok {
		return false
	}
	switch op {
	case ast.CmpLt:
		return c < 0
	case ast.CmpLe:
		return c <= 0
	case ast.CmpGt:
		return c > 0
	case ast.CmpGe:
		return c >= 0
	}
	return false
}

func (e *Engine) evalIn(ctx *Context, p *ast.Predicate, sc *rowScope) (bool, error) {
	l, err := e.EvalExpr(ctx, p.Left, sc)
	if err != nil {
		return false, err
	}
	if l == nil {
		return false, nil
	}
	found := false
	if p.InSub != nil {
		b, err := e.ExecuteQuery(ctx, p.InSub, nil)
		if err != nil {
			return false, err
		}
		for _, row := range b.Rows {
			if len(row) > 0 && types.Equal(l, row[0]) {
				found = true
				break
			}
		}
	} else {
		for _, item := range p.List {
			v, err := e.EvalExpr(ctx, item, sc)
			if err != nil {
				return false, err
			}
			if types.Equal(l, v) {
				found = true
				break
			}
		}
	}
	if p.Negated {
		return !found, nil
	}
	return found, nil
}

// evalExists runs p.Sub once per outer row, binding sc's current row into
// the correlation chain so the subquery's WHERE clause can reference
// outer columns by "alias.col" or bare "col" (design note §9).
func (e *Engine) evalExists(ctx *Context, p *ast.Predicate, sc *rowScope) (bool, error) {
	innerCtx := e.bindOuterRow(ctx, sc)
	b, err := e.ExecuteQuery(innerCtx, p.Sub, nil)
	if err != nil {
		return false, err
	}
	exists := len(b.Rows) > 0
	if p.Negated {
		return !exists, nil
	}
	return exists, nil
}

// evalAnyAll evaluates an ANY/ALL(subquery) comparison. If lhs is nil the
// caller (evalCompare) has already supplied it as l; otherwise it comes
// from aa itself having no stand-alone left side (PredAnyAll form is used
// only through PredCompare.RightAnyAll in this grammar, so lhs is always
// provided there).
func (e *Engine) evalAnyAll(ctx *Context, aa *ast.AnyAll, negated bool, lhs types.Value, sc *rowScope, outer *Context) (bool, error) {
	innerCtx := e.bindOuterRow(outer, sc)
	b, err := e.ExecuteQuery(innerCtx, aa.Sub, nil)
	if err != nil {
		return false, err
	}
	any := false
	all := true
	saw := false
	for _, row := range b.Rows {
		if len(row) == 0 {
			continue
		}
		saw = true
		ok := compareValues(aa.Op, lhs, row[0])
		if ok {
			any = true
		} else {
			all = false
		}
	}
	var result bool
	if aa.All {
		result = saw && all
	} else {
		result = any
	}
	if negated {
		return !result, nil
	}
	return result, nil
}

// bindOuterRow packages sc's current row as a correlation frame keyed by
// both "alias.col" and bare "col", so a correlated subquery's WHERE can
// reference the outer row by either form.
func (e *Engine) bindOuterRow(ctx *Context, sc *rowScope) *Context {
	if sc == nil {
		return ctx
	}
	vals := make(map[string]interface{}, len(sc.cols)*2)
	for i, c := range sc.cols {
		vals[c.Name] = sc.row[i]
		if c.Alias != "" {
			vals[c.Alias+"."+c.Name] = sc.row[i]
		}
	}
	return ctx.WithCorrelation(vals)
}
