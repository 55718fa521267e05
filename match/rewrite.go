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

// Package match rewrites a parsed MATCH pattern (ast.MatchPattern, spec
// §4.10) into an ordinary SELECT over the graph_neighbors/graph_paths
// table-valued functions, so the executor never needs to know MATCH
// exists: by the time exec.Engine sees it, it is a *ast.Query like any
// other. This mirrors design note §9's "view substitution vs.
// compilation" choice — MATCH is handled the same way, as a rewrite at
// the AST layer rather than a second executor code path.
package match

import (
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
)

// tvfAlias is the alias given to the graph_neighbors/graph_paths FROM
// source the rewrite produces; RETURN/WHERE/ORDER BY substitutions
// qualify with it.
const tvfAlias = "g"

// Rewrite translates m into a SELECT, resolving the active graph from
// m.Graph (USING GRAPH) or defaultGraph (the session default) per spec
// §4.10. Only the single-edge variable-length pattern is supported
// (design note §9's "MATCH scope"); multi-pattern joins and path
// predicates are out of scope.
func Rewrite(m *ast.MatchPattern, defaultGraph string) (*ast.Query, error) {
	graphName := m.Graph
	if graphName == "" {
		graphName = defaultGraph
	}
	if graphName == "" {
		return nil, errs.ErrName.New("MATCH requires USING GRAPH or a session default graph")
	}

	var from *ast.FromTree
	if m.Shortest {
		if m.EndKeyLit == nil {
			return nil, errs.ErrSyntax.New("MATCH SHORTEST requires a destination key")
		}
		args := []*ast.Expr{
			ast.Literal(graphName),
		}
		if m.StartKeyLit != nil {
			args = append(args, m.StartKeyLit)
		} else {
			args = append(args, ast.Literal(""))
		}
		args = append(args, m.EndKeyLit, ast.Literal(int64(m.MaxHops)))
		if m.EdgeType != "" {
			args = append(args, ast.Literal(m.EdgeType))
		}
		from = &ast.FromTree{Base: &ast.FromSource{
			Kind: ast.FromTVF, TVFName: "graph_paths", TVFArgs: args, Alias: tvfAlias,
		}}
	} else {
		startKey := m.StartKeyLit
		if startKey == nil {
			startKey = ast.Literal("")
		}
		args := []*ast.Expr{
			ast.Literal(graphName), startKey, ast.Literal(m.EdgeType), ast.Literal(int64(m.MaxHops)),
		}
		from = &ast.FromTree{Base: &ast.FromSource{
			Kind: ast.FromTVF, TVFName: "graph_neighbors", TVFArgs: args, Alias: tvfAlias,
		}}
	}

	sub := &substituter{startKey: m.StartKeyLit, alias: tvfAlias}

	sel := make([]ast.SelectItem, len(m.Return))
	for i, it := range m.Return {
		sel[i] = ast.SelectItem{Expr: sub.expr(it.Expr), Alias: it.Alias}
	}

	var where *ast.Predicate
	if m.Where != nil {
		where = sub.pred(m.Where)
	}

	var orderBy []ast.OrderKey
	if len(m.OrderBy) > 0 {
		orderBy = make([]ast.OrderKey, len(m.OrderBy))
		for i, k := range m.OrderBy {
			orderBy[i] = ast.OrderKey{Expr: sub.expr(k.Expr), Desc: k.Desc}
		}
	}

	return &ast.Query{
		Select:  sel,
		From:    from,
		Where:   where,
		OrderBy: orderBy,
		Limit:   m.Limit,
	}, nil
}

// substituter rewrites s.key/t.key/prev.key column references into the
// literal start key, node_id, and prev_id respectively (spec §4.10's
// "projection substitutions"), applied uniformly to RETURN, WHERE and
// ORDER BY.
type substituter struct {
	startKey *ast.Expr
	alias    string
}

func (s *substituter) expr(e *ast.Expr) *ast.Expr {
	if e == nil {
		return nil
	}
	if e.Kind == ast.ExprColumn {
		switch e.Qualifier {
		case "s":
			if e.Name == "key" && s.startKey != nil {
				return s.startKey
			}
		case "t":
			if e.Name == "key" {
				return ast.Column(s.alias, "node_id")
			}
		case "prev":
			if e.Name == "key" {
				return ast.Column(s.alias, "prev_id")
			}
		}
		return e
	}

	out := *e
	out.Left = s.expr(e.Left)
	out.Right = s.expr(e.Right)
	out.Operand = s.expr(e.Operand)
	out.Step = s.expr(e.Step)
	out.Else = s.expr(e.Else)
	if e.Args != nil {
		out.Args = make([]*ast.Expr, len(e.Args))
		for i, a := range e.Args {
			out.Args[i] = s.expr(a)
		}
	}
	if e.Parts != nil {
		out.Parts = make([]*ast.Expr, len(e.Parts))
		for i, p := range e.Parts {
			out.Parts[i] = s.expr(p)
		}
	}
	if e.WhenThens != nil {
		out.WhenThens = make([]ast.WhenThen, len(e.WhenThens))
		for i, wt := range e.WhenThens {
			out.WhenThens[i] = ast.WhenThen{When: s.pred(wt.When), Then: s.expr(wt.Then)}
		}
	}
	if e.Start != nil {
		b := *e.Start
		b.Index = s.expr(e.Start.Index)
		b.Pattern = s.expr(e.Start.Pattern)
		out.Start = &b
	}
	if e.End != nil {
		b := *e.End
		b.Index = s.expr(e.End.Index)
		b.Pattern = s.expr(e.End.Pattern)
		out.End = &b
	}
	if e.Pred != nil {
		out.Pred = s.pred(e.Pred)
	}
	return &out
}

func (s *substituter) pred(p *ast.Predicate) *ast.Predicate {
	if p == nil {
		return nil
	}
	out := *p
	out.Left = s.expr(p.Left)
	out.Right = s.expr(p.Right)
	out.Pattern = s.expr(p.Pattern)
	out.Low = s.expr(p.Low)
	out.High = s.expr(p.High)
	out.Inner = s.pred(p.Inner)
	if p.Clauses != nil {
		out.Clauses = make([]*ast.Predicate, len(p.Clauses))
		for i, c := range p.Clauses {
			out.Clauses[i] = s.pred(c)
		}
	}
	if p.List != nil {
		out.List = make([]*ast.Expr, len(p.List))
		for i, e := range p.List {
			out.List[i] = s.expr(e)
		}
	}
	// InSub/Sub/RightAnyAll/AA hold nested *ast.Query bodies (subqueries);
	// spec §4.10 only substitutes RETURN/WHERE/ORDER BY at the top level,
	// so nested subquery text passes through unchanged.
	return &out
}
