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
	"math"
	"sort"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// timeColumnName is the canonical time-series column every BY WINDOW,
// ROLLING BY, GRADIENT and BY SLICE clause buckets or regresses against.
const timeColumnName = "_time"

// group is one aggregation bucket: its member row indexes into the
// pre-aggregate batch plus the key/label values carried into the
// post-aggregate projection scope.
type group struct {
	rows  []int
	extra map[string]types.Value // _time, _start_time, _end_time, group keys
}

// aggregate drives the Aggregate stage of spec §4.6: it buckets b's rows
// per q's AggKind, evaluates every aggregate call appearing in the
// query's projection/HAVING/ORDER BY against each bucket, and returns a
// new batch whose columns are the GROUP BY keys (or BY-clause synthetic
// columns) plus one column per distinct aggregate call, named by its
// canonical display name.
func (e *Engine) aggregate(ctx *Context, b *Batch, q *ast.Query, aggCalls []*ast.Expr) (*Batch, error) {
	if q.AggKind == ast.AggNone {
		if len(aggCalls) == 0 {
			return b, nil
		}
		// Whole-batch implicit group: every aggregate call collapses to
		// one output row.
		g := group{rows: allIndexes(len(b.Rows))}
		return e.materializeGroups(ctx, b, []group{g}, aggCalls, nil)
	}

	switch q.AggKind {
	case ast.AggGroupBy:
		groups, err := e.buildGroupByGroups(ctx, b, q)
		if err != nil {
			return nil, err
		}
		return e.materializeGroups(ctx, b, groups, aggCalls, q.GroupBy)
	case ast.AggByWindow:
		groups, err := e.buildWindowGroups(ctx, b, q.ByWindowMs)
		if err != nil {
			return nil, err
		}
		return e.materializeGroups(ctx, b, groups, aggCalls, nil)
	case ast.AggBySlice:
		groups, err := e.buildSliceGroups(ctx, b, q.BySlice)
		if err != nil {
			return nil, err
		}
		return e.materializeGroups(ctx, b, groups, aggCalls, nil)
	case ast.AggRollingBy:
		return e.rollingAggregate(ctx, b, q.RollingMs, aggCalls)
	}
	return b, nil
}

func allIndexes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// buildGroupByGroups partitions rows by the key tuple of q.GroupBy. When
// q.GroupNotNull is set (single grouping column), it instead segments
// contiguous runs of non-NULL key value, emitting _start_time/_end_time
// per segment per spec §4.6.
func (e *Engine) buildGroupByGroups(ctx *Context, b *Batch, q *ast.Query) ([]group, error) {
	if q.GroupNotNull {
		return e.buildNotNullSegments(ctx, b, q.GroupBy[0])
	}
	keyed := map[string]*group{}
	var order []string
	for i, row := range b.Rows {
		sc := &rowScope{cols: b.Cols, row: row}
		keyVals := make([]types.Value, len(q.GroupBy))
		for ki, ke := range q.GroupBy {
			v, err := e.EvalExpr(ctx, ke, sc)
			if err != nil {
				return nil, err
			}
			keyVals[ki] = v
		}
		k := fmt.Sprint(keyVals)
		g, ok := keyed[k]
		if !ok {
			extra := map[string]types.Value{}
			for ki, ke := range q.GroupBy {
				extra[exprDisplayName(ke)] = keyVals[ki]
			}
			g = &group{extra: extra}
			keyed[k] = g
			order = append(order, k)
		}
		g.rows = append(g.rows, i)
	}
	out := make([]group, len(order))
	for i, k := range order {
		out[i] = *keyed[k]
	}
	return out, nil
}

// buildNotNullSegments groups contiguous rows (in existing batch order)
// sharing the same non-NULL keyExpr value. A NULL row is excluded from
// every segment's row set but does not end the segment that precedes
// it — only a change to a *different* non-NULL value starts a new one,
// so a=[_,1,_,_,2,_,2,_,3] yields segments [1],[2,2],[3], not four
// singletons split at every gap.
func (e *Engine) buildNotNullSegments(ctx *Context, b *Batch, keyExpr *ast.Expr) ([]group, error) {
	timeIdx, _ := b.IndexOf("", timeColumnName)
	var out []group
	var cur *group
	var curVal types.Value
	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}
	for i, row := range b.Rows {
		sc := &rowScope{cols: b.Cols, row: row}
		v, err := e.EvalExpr(ctx, keyExpr, sc)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		if cur == nil || !types.Equal(v, curVal) {
			flush()
			extra := map[string]types.Value{exprDisplayName(keyExpr): v}
			if timeIdx >= 0 {
				extra["_start_time"] = row[timeIdx]
			}
			cur = &group{extra: extra}
			curVal = v
		}
		cur.rows = append(cur.rows, i)
		if timeIdx >= 0 {
			cur.extra["_end_time"] = row[timeIdx]
		}
	}
	flush()
	return out, nil
}

// buildWindowGroups buckets rows by floor(_time/windowMs)*windowMs.
func (e *Engine) buildWindowGroups(ctx *Context, b *Batch, windowMs int64) ([]group, error) {
	timeIdx, err := b.IndexOf("", timeColumnName)
	if err != nil {
		return nil, errs.ErrConstraint.New("BY WINDOW requires a " + timeColumnName + " column")
	}
	if windowMs <= 0 {
		return nil, errs.ErrConstraint.New("BY WINDOW requires a positive window")
	}
	keyed := map[int64]*group{}
	var order []int64
	for i, row := range b.Rows {
		t, ok := row[timeIdx].(int64)
		if !ok {
			continue
		}
		bucket := (t / windowMs) * windowMs
		if t < 0 && t%windowMs != 0 {
			bucket -= windowMs
		}
		g, ok2 := keyed[bucket]
		if !ok2 {
			g = &group{extra: map[string]types.Value{
				timeColumnName: bucket,
				"_start_time":  bucket,
				"_end_time":    bucket + windowMs,
			}}
			keyed[bucket] = g
			order = append(order, bucket)
		}
		g.rows = append(g.rows, i)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })
	out := make([]group, len(order))
	for i, k := range order {
		out[i] = *keyed[k]
	}
	return out, nil
}

// buildSliceGroups evaluates plan into intervals (via slicealg, see
// slice.go) and restricts one group per interval to rows whose _time
// falls within [start,end].
func (e *Engine) buildSliceGroups(ctx *Context, b *Batch, plan *ast.SlicePlan) ([]group, error) {
	ivs, err := e.evalSlicePlan(ctx, plan)
	if err != nil {
		return nil, err
	}
	timeIdx, err := b.IndexOf("", timeColumnName)
	if err != nil {
		return nil, errs.ErrConstraint.New("BY SLICE requires a " + timeColumnName + " column")
	}
	out := make([]group, 0, len(ivs))
	for _, iv := range ivs {
		g := group{extra: map[string]types.Value{
			timeColumnName: iv.Start,
			"_start_time":  iv.Start,
			"_end_time":    iv.End,
		}}
		for k, v := range iv.Labels {
			g.extra[k] = v
		}
		for i, row := range b.Rows {
			t, ok := row[timeIdx].(int64)
			if ok && t >= iv.Start && t <= iv.End {
				g.rows = append(g.rows, i)
			}
		}
		out = append(out, g)
	}
	return out, nil
}

// rollingAggregate computes, for every row i, a trailing window of rows
// whose _time lies in (t_i - windowMs, t_i], then evaluates every
// aggregate call over that window, emitting one output row per input
// row (ROLLING BY never collapses cardinality).
func (e *Engine) rollingAggregate(ctx *Context, b *Batch, windowMs int64, aggCalls []*ast.Expr) (*Batch, error) {
	timeIdx, err := b.IndexOf("", timeColumnName)
	if err != nil {
		return nil, errs.ErrConstraint.New("ROLLING BY requires a " + timeColumnName + " column")
	}
	groups := make([]group, len(b.Rows))
	for i, row := range b.Rows {
		t, _ := row[timeIdx].(int64)
		var members []int
		for j, other := range b.Rows {
			ot, ok := other[timeIdx].(int64)
			if ok && ot <= t && ot > t-windowMs {
				members = append(members, j)
			}
		}
		groups[i] = group{rows: members, extra: map[string]types.Value{timeColumnName: t}}
	}
	return e.materializeGroups(ctx, b, groups, aggCalls, nil)
}

// materializeGroups renders groups into the post-aggregate batch: one
// column per GROUP BY key expr (if any) followed by one column per
// distinct aggregate call, each evaluated against that group's member
// rows of the pre-aggregate batch b.
func (e *Engine) materializeGroups(ctx *Context, b *Batch, groups []group, aggCalls []*ast.Expr, groupKeys []*ast.Expr) (*Batch, error) {
	var cols []ColRef
	seenExtra := map[string]bool{}
	if len(groups) > 0 {
		for k := range groups[0].extra {
			if !seenExtra[k] {
				cols = append(cols, ColRef{Name: k})
				seenExtra[k] = true
			}
		}
	}
	for _, call := range aggCalls {
		cols = append(cols, ColRef{Name: CanonicalAggName(call)})
	}
	out := NewBatch(cols)

	for _, g := range groups {
		row := make(Row, 0, len(cols))
		for _, c := range cols[:len(cols)-len(aggCalls)] {
			row = append(row, g.extra[c.Name])
		}
		for _, call := range aggCalls {
			v, err := e.evalAggregateCall(ctx, b, g.rows, call)
			if err != nil {
				return nil, err
			}
			row = append(row, v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// evalAggregateCall evaluates one aggregate function call over the rows
// of b selected by idxs.
func (e *Engine) evalAggregateCall(ctx *Context, b *Batch, idxs []int, call *ast.Expr) (types.Value, error) {
	fn := upper(call.Func)
	if fn == "COUNT" && len(call.Args) == 1 && call.Args[0].Kind == ast.ExprColumn && call.Args[0].Name == "*" {
		return int64(len(idxs)), nil
	}
	var arg *ast.Expr
	if len(call.Args) > 0 {
		arg = call.Args[0]
	}
	values := make([]types.Value, 0, len(idxs))
	var times []int64
	timeIdx, hasTime := -1, false
	if ti, err := b.IndexOf("", timeColumnName); err == nil {
		timeIdx, hasTime = ti, true
	}
	for _, idx := range idxs {
		row := b.Rows[idx]
		sc := &rowScope{cols: b.Cols, row: row}
		v, err := e.EvalExpr(ctx, arg, sc)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		if hasTime {
			if t, ok := row[timeIdx].(int64); ok {
				times = append(times, t)
			}
		}
	}
	switch fn {
	case "COUNT":
		n := int64(0)
		for _, v := range values {
			if v != nil {
				n++
			}
		}
		return n, nil
	case "SUM":
		return sumValues(values)
	case "AVG":
		sum, n := sumNonNull(values)
		if n == 0 {
			return nil, nil
		}
		return sum / float64(n), nil
	case "MIN":
		return minMax(values, true)
	case "MAX":
		return minMax(values, false)
	case "FIRST":
		for _, v := range values {
			if v != nil {
				return v, nil
			}
		}
		return nil, nil
	case "LAST":
		for i := len(values) - 1; i >= 0; i-- {
			if values[i] != nil {
				return values[i], nil
			}
		}
		return nil, nil
	case "STDEV":
		return stdev(values)
	case "DELTA":
		first, last := firstLastNonNull(values)
		if first == nil || last == nil {
			return nil, nil
		}
		fv, _ := asF(first)
		lv, _ := asF(last)
		return lv - fv, nil
	case "HEIGHT":
		mn, err := minMax(values, true)
		if err != nil {
			return nil, err
		}
		mx, err := minMax(values, false)
		if err != nil {
			return nil, err
		}
		if mn == nil || mx == nil {
			return nil, nil
		}
		mnv, _ := asF(mn)
		mxv, _ := asF(mx)
		return mxv - mnv, nil
	case "GRADIENT":
		return gradient(times, values)
	case "QUANTILE":
		pct := call.AggPct
		return quantile(values, pct)
	case "ARRAY_AGG":
		out := make([]interface{}, 0, len(values))
		for _, v := range values {
			out = append(out, v)
		}
		return out, nil
	}
	return nil, errs.ErrUdf.New("unknown aggregate function " + call.Func)
}

func asF(v types.Value) (float64, bool) {
	switch x := v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	}
	return 0, false
}

func sumValues(values []types.Value) (types.Value, error) {
	var iSum int64
	var fSum float64
	isFloat := false
	any := false
	for _, v := range values {
		if v == nil {
			continue
		}
		any = true
		switch x := v.(type) {
		case int64:
			if isFloat {
				fSum += float64(x)
			} else {
				iSum += x
			}
		case float64:
			if !isFloat {
				fSum = float64(iSum)
				isFloat = true
			}
			fSum += x
		default:
			return nil, errs.ErrType.New("SUM requires numeric values")
		}
	}
	if !any {
		return nil, nil
	}
	if isFloat {
		return fSum, nil
	}
	return iSum, nil
}

func sumNonNull(values []types.Value) (float64, int) {
	var sum float64
	n := 0
	for _, v := range values {
		if f, ok := asF(v); ok {
			sum += f
			n++
		}
	}
	return sum, n
}

func minMax(values []types.Value, wantMin bool) (types.Value, error) {
	var best types.Value
	for _, v := range values {
		if v == nil {
			continue
		}
		if best == nil {
			best = v
			continue
		}
		c, ok := types.Compare(v, best)
		if !ok {
			continue
		}
		if (wantMin && c < 0) || (!wantMin && c > 0) {
			best = v
		}
	}
	return best, nil
}

func firstLastNonNull(values []types.Value) (types.Value, types.Value) {
	var first, last types.Value
	for _, v := range values {
		if v == nil {
			continue
		}
		if first == nil {
			first = v
		}
		last = v
	}
	return first, last
}

func stdev(values []types.Value) (types.Value, error) {
	sum, n := sumNonNull(values)
	if n < 2 {
		return nil, nil
	}
	mean := sum / float64(n)
	var ss float64
	for _, v := range values {
		if f, ok := asF(v); ok {
			d := f - mean
			ss += d * d
		}
	}
	return math.Sqrt(ss / float64(n-1)), nil
}

// gradient fits an ordinary-least-squares slope of values against times,
// per spec §4.6's "linear-regression slope vs _time".
func gradient(times []int64, values []types.Value) (types.Value, error) {
	if len(times) != len(values) || len(times) < 2 {
		return nil, nil
	}
	var n, sx, sy, sxx, sxy float64
	for i, t := range times {
		v, ok := asF(values[i])
		if !ok {
			continue
		}
		x := float64(t)
		n++
		sx += x
		sy += v
		sxx += x * x
		sxy += x * v
	}
	if n < 2 {
		return nil, nil
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return nil, nil
	}
	return (n*sxy - sx*sy) / denom, nil
}

func quantile(values []types.Value, pct float64) (types.Value, error) {
	var nums []float64
	for _, v := range values {
		if f, ok := asF(v); ok {
			nums = append(nums, f)
		}
	}
	if len(nums) == 0 {
		return nil, nil
	}
	sort.Float64s(nums)
	if pct <= 0 {
		return nums[0], nil
	}
	if pct >= 100 {
		return nums[len(nums)-1], nil
	}
	pos := (pct / 100) * float64(len(nums)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return nums[lo], nil
	}
	frac := pos - float64(lo)
	return nums[lo]*(1-frac) + nums[hi]*frac, nil
}

// collectAggregateCalls walks q's projection, HAVING and ORDER BY
// looking for aggregate-function calls, returning the distinct set in
// first-seen order keyed by canonical name.
func collectAggregateCalls(q *ast.Query) []*ast.Expr {
	seen := map[string]bool{}
	var out []*ast.Expr
	var walkExpr func(e *ast.Expr)
	var walkPred func(p *ast.Predicate)
	walkExpr = func(e *ast.Expr) {
		if e == nil {
			return
		}
		if e.IsAgg || knownAggregateNames[upper(e.Func)] {
			name := CanonicalAggName(e)
			if !seen[name] {
				seen[name] = true
				out = append(out, e)
			}
			return
		}
		walkExpr(e.Left)
		walkExpr(e.Right)
		for _, a := range e.Args {
			walkExpr(a)
		}
		for _, wt := range e.WhenThens {
			walkPred(wt.When)
			walkExpr(wt.Then)
		}
		walkExpr(e.Else)
		walkExpr(e.Operand)
		for _, p := range e.Parts {
			walkExpr(p)
		}
		walkPred(e.Pred)
	}
	walkPred = func(p *ast.Predicate) {
		if p == nil {
			return
		}
		for _, c := range p.Clauses {
			walkPred(c)
		}
		walkExpr(p.Left)
		walkExpr(p.Right)
		walkExpr(p.Pattern)
		walkExpr(p.Low)
		walkExpr(p.High)
		for _, it := range p.List {
			walkExpr(it)
		}
		walkPred(p.Inner)
	}
	for _, item := range q.Select {
		walkExpr(item.Expr)
	}
	walkPred(q.Having)
	for _, ok := range q.OrderBy {
		walkExpr(ok.Expr)
	}
	return out
}
