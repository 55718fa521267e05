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
	"strconv"
	"strings"

	"github.com/euanmacinnes/clarium/ann"
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// rowScope is the (columns, values) pair an expression or predicate is
// evaluated against. A nil scope is valid for constant-folding contexts
// (DDL default expressions, manual SLICE label literals) that never
// reference a column.
type rowScope struct {
	cols []ColRef
	row  Row
}

// lookupColumn resolves qualifier.name against the scope, falling back to the
// Context's correlated-subquery binding chain (spec §4.3) when the scope
// itself has no such column — the "bind outer row's values as literals"
// contract design note §9 describes.
func (e *Engine) lookupColumn(ctx *Context, sc *rowScope, qualifier, name string) (types.Value, error) {
	if sc != nil {
		for i, c := range sc.cols {
			if c.Name == name && (qualifier == "" || c.Alias == qualifier) {
				return sc.row[i], nil
			}
		}
	}
	key := name
	if qualifier != "" {
		key = qualifier + "." + name
	}
	if v, ok := ctx.lookupCorrelated(key); ok {
		return v, nil
	}
	if v, ok := ctx.lookupCorrelated(name); ok {
		return v, nil
	}
	return nil, errs.ErrName.New(fmt.Sprintf("unknown column %q", key))
}

// EvalExpr evaluates e against sc (which may be nil for constant
// expressions), resolving aggregate-call references against already
// materialized post-aggregate columns when present.
func (e *Engine) EvalExpr(ctx *Context, ex *ast.Expr, sc *rowScope) (types.Value, error) {
	if ex == nil {
		return nil, nil
	}
	switch ex.Kind {
	case ast.ExprLiteral:
		return ex.LitValue, nil

	case ast.ExprColumn:
		if ex.Name == "*" {
			return nil, errs.ErrName.New("wildcard cannot be evaluated as a scalar")
		}
		return e.lookupColumn(ctx, sc, ex.Qualifier, ex.Name)

	case ast.ExprBinary:
		l, err := e.EvalExpr(ctx, ex.Left, sc)
		if err != nil {
			return nil, err
		}
		r, err := e.EvalExpr(ctx, ex.Right, sc)
		if err != nil {
			return nil, err
		}
		return types.Arith(ex.Op, l, r)

	case ast.ExprUnary:
		v, err := e.EvalExpr(ctx, ex.Right, sc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		if ex.Op == "-" {
			return types.Arith("-", int64(0), v)
		}
		return v, nil

	case ast.ExprCall:
		return e.evalCall(ctx, ex, sc)

	case ast.ExprCase:
		for _, wt := range ex.WhenThens {
			ok, err := e.EvalPredicate(ctx, wt.When, sc)
			if err != nil {
				return nil, err
			}
			if ok {
				return e.EvalExpr(ctx, wt.Then, sc)
			}
		}
		if ex.Else != nil {
			return e.EvalExpr(ctx, ex.Else, sc)
		}
		return nil, nil

	case ast.ExprCast:
		v, err := e.EvalExpr(ctx, ex.Operand, sc)
		if err != nil {
			return nil, err
		}
		name, err := types.NormalizeTypeWord(ex.CastType.Name)
		if err != nil {
			return nil, err
		}
		return types.Cast(v, name)

	case ast.ExprSlice:
		return e.evalSlice(ctx, ex, sc)

	case ast.ExprConcat:
		var b strings.Builder
		for _, part := range ex.Parts {
			v, err := e.EvalExpr(ctx, part, sc)
			if err != nil {
				return nil, err
			}
			b.WriteString(toDisplayString(v))
		}
		return b.String(), nil

	case ast.ExprPredicate:
		ok, err := e.EvalPredicate(ctx, ex.Pred, sc)
		if err != nil {
			return nil, err
		}
		return ok, nil

	case ast.ExprScalarSubquery:
		return e.evalScalarSubquery(ctx, ex)
	}
	return nil, errs.ErrSyntax.New("unevaluable expression kind")
}

func toDisplayString(v types.Value) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// evalSlice implements expr[a:b:c] indexing/slicing over string operands,
// per spec §4.2. A pattern bound searches the operand for the literal
// text and resolves to the match position (end position when Inclusive).
// Any out-of-bounds result is recovered as NULL (IndexError) unless
// strict mode is set.
func (e *Engine) evalSlice(ctx *Context, ex *ast.Expr, sc *rowScope) (types.Value, error) {
	base, err := e.EvalExpr(ctx, ex.Operand, sc)
	if err != nil {
		return nil, err
	}
	s, ok := base.(string)
	if !ok {
		if base == nil {
			return nil, nil
		}
		s = toDisplayString(base)
	}
	runes := []rune(s)

	resolveBound := func(b *ast.SliceBound, def int) (int, error) {
		if b == nil {
			return def, nil
		}
		if b.Pattern != nil {
			pv, err := e.EvalExpr(ctx, b.Pattern, sc)
			if err != nil {
				return 0, err
			}
			pat := toDisplayString(pv)
			idx := strings.Index(s, pat)
			if idx < 0 {
				return -1, nil
			}
			if b.Negated {
				idx = len(runes) - len([]rune(s[:idx])) - len([]rune(pat))
			}
			pos := len([]rune(s[:idx]))
			if b.Inclusive {
				pos += len([]rune(pat))
			}
			return pos, nil
		}
		iv, err := e.EvalExpr(ctx, b.Index, sc)
		if err != nil {
			return 0, err
		}
		n, ok := iv.(int64)
		if !ok {
			return 0, errs.ErrType.New("slice bound must be an integer")
		}
		if n < 0 {
			n += int64(len(runes))
		}
		return int(n), nil
	}

	start, err := resolveBound(ex.Start, 0)
	if err != nil {
		return nil, err
	}
	end, err := resolveBound(ex.End, len(runes))
	if err != nil {
		return nil, err
	}
	step := int64(1)
	if ex.Step != nil {
		sv, err := e.EvalExpr(ctx, ex.Step, sc)
		if err != nil {
			return nil, err
		}
		if n, ok := sv.(int64); ok && n != 0 {
			step = n
		}
	}

	if start < 0 || end < 0 || start > len(runes) || end > len(runes) || start > end {
		if !ctx.Session.StrictProjection {
			return nil, nil
		}
		return nil, errs.ErrIndex.New(fmt.Sprintf("slice [%d:%d] out of bounds for length %d", start, end, len(runes)))
	}
	if step == 1 {
		return string(runes[start:end]), nil
	}
	var b strings.Builder
	for i := start; i < end; i += int(step) {
		b.WriteRune(runes[i])
	}
	return b.String(), nil
}

// knownAggregateNames mirrors the set spec §4.2 tags as aggregate
// function calls during parsing; ExprCall.IsAgg is set by the parser, but
// exec re-derives canonical display names from this table.
var knownAggregateNames = map[string]bool{
	"AVG": true, "SUM": true, "COUNT": true, "MIN": true, "MAX": true,
	"FIRST": true, "LAST": true, "STDEV": true, "DELTA": true, "HEIGHT": true,
	"GRADIENT": true, "QUANTILE": true, "ARRAY_AGG": true,
}

// evalCall dispatches a function call: a pre-computed aggregate result
// (looked up by its canonical column name on the current scope, valid
// after the aggregate stage), a known scalar builtin, or a UDF.
func (e *Engine) evalCall(ctx *Context, ex *ast.Expr, sc *rowScope) (types.Value, error) {
	fn := strings.ToUpper(ex.Func)
	if ex.IsAgg || knownAggregateNames[fn] || ex.Over != nil {
		name := CanonicalAggName(ex)
		if sc != nil {
			if i, err := sc_indexOfLoose(sc.cols, name); err == nil {
				return sc.row[i], nil
			}
		}
		return nil, errs.ErrConstraint.New("aggregate " + name + " referenced outside of an aggregated context")
	}

	args := make([]types.Value, len(ex.Args))
	for i, a := range ex.Args {
		v, err := e.EvalExpr(ctx, a, sc)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch strings.ToLower(ex.Func) {
	case "to_vec":
		s, _ := args[0].(string)
		return types.ParseVectorLiteral(s)
	case "vec_l2", "vec_ip", "cosine_sim":
		return e.evalVectorMetric(strings.ToLower(ex.Func), args)
	case "nullif":
		if len(args) == 2 && types.Equal(args[0], args[1]) {
			return nil, nil
		}
		return args[0], nil
	case "coalesce":
		for _, a := range args {
			if a != nil {
				return a, nil
			}
		}
		return nil, nil
	case "format_type":
		oid, _ := args[0].(int64)
		mod := int64(0)
		if len(args) > 1 {
			mod, _ = args[1].(int64)
		}
		name, ok := catalog.FormatType(int(oid), int(mod))
		if !ok {
			return nil, nil
		}
		return name, nil
	case "to_regtype":
		s, _ := args[0].(string)
		oid, ok := catalog.ToRegtype(s)
		if !ok {
			return nil, nil
		}
		return int64(oid), nil
	case "pg_get_viewdef":
		oid, _ := args[0].(int64)
		sql, ok := e.Cat.PgGetViewdef(oid)
		if !ok {
			return nil, nil
		}
		return sql, nil
	case "pg_get_expr":
		// pg_get_expr(pg_node_tree, relation_oid[, pretty]) renders a stored
		// node-tree expression; this core stores no node trees, so it
		// always resolves NULL, matching the documented contract for an
		// unknown input (spec §6).
		return nil, nil
	case "version":
		return catalog.ServerVersion, nil
	}

	return e.invokeUDF(ctx, ex.Func, args)
}

func (e *Engine) invokeUDF(ctx *Context, name string, args []types.Value) (types.Value, error) {
	sig, ok := e.UDFs.Resolve(name)
	if !ok {
		return nil, errs.ErrUdf.New("unknown function " + name)
	}
	if len(args) < sig.MinArity || (sig.MaxArity >= 0 && len(args) > sig.MaxArity) {
		return nil, errs.ErrUdf.New(fmt.Sprintf("%s expects %d..%d arguments, got %d", name, sig.MinArity, sig.MaxArity, len(args)))
	}
	out, err := e.UDFs.InvokeScalar(name, [][]types.Value{args})
	if err != nil {
		if ctx.Session.NullOnError {
			return nil, nil
		}
		return nil, errs.ErrUdf.New(err.Error())
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (e *Engine) evalVectorMetric(fn string, args []types.Value) (types.Value, error) {
	if len(args) != 2 {
		return nil, errs.ErrUdf.New(fn + " expects 2 arguments")
	}
	a, err := asVector(args[0])
	if err != nil {
		return nil, err
	}
	b, err := asVector(args[1])
	if err != nil {
		return nil, err
	}
	metric, _ := ann.ParseMetricFunc(fn)
	return ann.Distance(metric, a, b)
}

func asVector(v types.Value) (types.Vec, error) {
	switch x := v.(type) {
	case types.Vec:
		return x, nil
	case []float32:
		return types.Vec(x), nil
	case string:
		return types.ParseVectorLiteral(x)
	case nil:
		return nil, nil
	}
	return nil, errs.ErrType.New("value is not a vector")
}

// evalScalarSubquery parses ex.SQLText on first use (caching the parsed
// Query on ex), executes it, and returns the first column of the first
// result row, or NULL when the result has no rows. Extra rows or columns
// are not rejected.
func (e *Engine) evalScalarSubquery(ctx *Context, ex *ast.Expr) (types.Value, error) {
	if ex.Query == nil {
		cmd, err := e.parseSelectText(ex.SQLText)
		if err != nil {
			return nil, err
		}
		if cmd.Kind != ast.CmdSelect || cmd.Select == nil {
			return nil, errs.ErrSyntax.New("scalar subquery is not a SELECT")
		}
		ex.Query = cmd.Select
	}
	b, err := e.ExecuteQuery(ctx, ex.Query, nil)
	if err != nil {
		return nil, err
	}
	if len(b.Rows) == 0 {
		return nil, nil
	}
	if len(b.Rows[0]) == 0 {
		return nil, nil
	}
	return b.Rows[0][0], nil
}

// sc_indexOfLoose looks up name by column Name only, ignoring alias,
// since synthetic aggregate/window columns carry no source alias.
func sc_indexOfLoose(cols []ColRef, name string) (int, error) {
	for i, c := range cols {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, errs.ErrName.New("unknown column " + name)
}

// CanonicalAggName renders ex (an aggregate call) as the stable display
// name used both as its output column and as the name HAVING/projection
// look it up by, e.g. "AVG(v)", "COUNT(*)", "QUANTILE(v,50)".
func CanonicalAggName(ex *ast.Expr) string {
	fn := strings.ToUpper(ex.Func)
	if fn == "COUNT" && len(ex.Args) == 1 && ex.Args[0].Kind == ast.ExprColumn && ex.Args[0].Name == "*" {
		return "COUNT(*)"
	}
	parts := make([]string, len(ex.Args))
	for i, a := range ex.Args {
		parts[i] = exprDisplay(a)
	}
	if fn == "QUANTILE" && ex.AggPct != 0 {
		return fmt.Sprintf("QUANTILE(%s,%s)", parts[0], trimFloat(ex.AggPct))
	}
	return fn + "(" + strings.Join(parts, ",") + ")"
}

func trimFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// exprDisplay renders a simple expression (column ref or literal) back to
// source-like text for canonical aggregate/alias naming.
func exprDisplay(e *ast.Expr) string {
	switch e.Kind {
	case ast.ExprColumn:
		if e.Name == "*" {
			return "*"
		}
		if e.Qualifier != "" {
			return e.Qualifier + "." + e.Name
		}
		return e.Name
	case ast.ExprLiteral:
		return toDisplayString(e.LitValue)
	default:
		return "expr"
	}
}
