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

package parse

import (
	"strconv"
	"strings"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/lex"
)

// clauseKeywords are the global clause boundaries a FROM/ON/WHERE clause
// stops at when scanning at depth 0, per spec §4.4.
var clauseKeywords = []string{"WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "INTO"}
var joinKeywords = []string{"INNER", "LEFT", "RIGHT", "FULL", "JOIN", "WHERE", "GROUP", "HAVING", "ORDER", "LIMIT", "INTO", "BY", "ROLLING", "UNION"}

// ParseCommand parses any top-level statement supported by the core
// (spec §4.4) and returns its typed Command.
func ParseCommand(src string) (*ast.Command, error) {
	s := lex.New(strings.TrimSpace(src))
	lex.SkipSpaces(s)

	switch {
	case matchKeywordAt(s.Src, s.Pos, "WITH"), matchKeywordAt(s.Src, s.Pos, "SELECT"):
		q, err := ParseSelect(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdSelect, Select: q}, nil
	case matchKeywordAt(s.Src, s.Pos, "SLICE"):
		s.Pos += len("SLICE")
		plan, err := parseSliceStatementBody(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdSlice, Slice: plan}, nil
	case matchKeywordAt(s.Src, s.Pos, "MATCH"):
		m, err := parseMatch(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdMatch, Match: m}, nil
	case matchKeywordAt(s.Src, s.Pos, "INSERT"):
		d, err := parseInsert(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdInsert, DML: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "UPDATE"):
		d, err := parseUpdate(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdUpdate, DML: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "DELETE"):
		d, err := parseDelete(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdDelete, DML: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "CREATE"):
		d, err := parseCreate(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdCreate, DDL: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "DROP"):
		d, err := parseDrop(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdDrop, DDL: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "RENAME"):
		d, err := parseRename(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdRename, DDL: d}, nil
	case matchKeywordAt(s.Src, s.Pos, "USE"):
		u, err := parseUse(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdUse, UseSet: u}, nil
	case matchKeywordAt(s.Src, s.Pos, "SET"):
		u, err := parseSet(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdSet, UseSet: u}, nil
	case matchKeywordAt(s.Src, s.Pos, "DESCRIBE"):
		s.Pos += len("DESCRIBE")
		lex.SkipSpaces(s)
		return &ast.Command{Kind: ast.CmdDescribe, Show: &ast.Show{IsDescribe: true, What: strings.TrimSpace(string(s.Src[s.Pos:]))}}, nil
	case matchKeywordAt(s.Src, s.Pos, "SHOW"):
		s.Pos += len("SHOW")
		lex.SkipSpaces(s)
		return &ast.Command{Kind: ast.CmdShow, Show: &ast.Show{What: strings.TrimSpace(string(s.Src[s.Pos:]))}}, nil
	case matchKeywordAt(s.Src, s.Pos, "LOAD"):
		l, err := parseLoad(s)
		if err != nil {
			return nil, err
		}
		return &ast.Command{Kind: ast.CmdLoad, Load: l}, nil
	case matchKeywordAt(s.Src, s.Pos, "GC"):
		s.Pos += len("GC")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "GRAPH") {
			return nil, errs.ErrSyntax.New("expected GRAPH after GC")
		}
		s.Pos += len("GRAPH")
		lex.SkipSpaces(s)
		var name string
		if !s.Eof() {
			n, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			name = n
		}
		return &ast.Command{Kind: ast.CmdGCGraph, Load: &ast.Load{Table: name}}, nil
	case matchKeywordAt(s.Src, s.Pos, "USER"):
		u, err := parseUser(s)
		if err != nil {
			return nil, err
		}
		kind := ast.CmdUserAdd
		switch u.Action {
		case "ALTER":
			kind = ast.CmdUserAlter
		case "DELETE":
			kind = ast.CmdUserDelete
		}
		return &ast.Command{Kind: kind, User: u}, nil
	}
	return nil, errs.ErrSyntax.New("unrecognized statement" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
}

// ParseSelect parses a full SELECT statement, including an optional
// leading WITH clause and trailing UNION [ALL] SELECT chain. UNION
// splitting happens at depth 0 outside quotes, per spec §4.4.
func ParseSelect(s *lex.Scanner) (*ast.Query, error) {
	lex.SkipSpaces(s)

	var ctes []ast.CTE
	if matchKeywordAt(s.Src, s.Pos, "WITH") {
		s.Pos += len("WITH")
		for {
			lex.SkipSpaces(s)
			name, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			lex.SkipSpaces(s)
			if !matchKeywordAt(s.Src, s.Pos, "AS") {
				return nil, errs.ErrSyntax.New("expected AS in WITH clause" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
			}
			s.Pos += len("AS")
			lex.SkipSpaces(s)
			if s.Peek() != '(' {
				return nil, errs.ErrSyntax.New("expected '(' after AS" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
			}
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			q, err := ParseSelect(lex.New(text))
			if err != nil {
				return nil, err
			}
			ctes = append(ctes, ast.CTE{Name: name, Query: q})
			lex.SkipSpaces(s)
			if s.Peek() == ',' {
				s.Pos++
				continue
			}
			break
		}
		lex.SkipSpaces(s)
	}

	q, err := parseSelectCore(s)
	if err != nil {
		return nil, err
	}
	q.WithCTEs = ctes

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "UNION") {
		s.Pos += len("UNION")
		lex.SkipSpaces(s)
		all := false
		if matchKeywordAt(s.Src, s.Pos, "ALL") {
			all = true
			s.Pos += len("ALL")
		}
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "SELECT") && !matchKeywordAt(s.Src, s.Pos, "WITH") {
			return nil, errs.ErrSyntax.New("expected SELECT after UNION" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		next, err := ParseSelect(s)
		if err != nil {
			return nil, err
		}
		q.UnionNext = next
		q.UnionAll = all
	}

	return q, nil
}

func parseSelectCore(s *lex.Scanner) (*ast.Query, error) {
	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "SELECT") {
		return nil, errs.ErrSyntax.New("expected SELECT" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos += len("SELECT")

	items, err := parseSelectList(s)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, errs.ErrSyntax.New("expected select list" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	q := &ast.Query{Select: items}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "FROM") {
		s.Pos += len("FROM")
		from, err := parseFromTree(s)
		if err != nil {
			return nil, err
		}
		q.From = from

		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "BY") {
			s.Pos += len("BY")
			lex.SkipSpaces(s)
			if matchKeywordAt(s.Src, s.Pos, "SLICE") {
				s.Pos += len("SLICE")
				lex.SkipSpaces(s)
				if s.Peek() != '(' {
					return nil, errs.ErrSyntax.New("expected '(' after BY SLICE" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
				}
				s.Pos++
				text, err := readBalancedParenContent(s)
				if err != nil {
					return nil, err
				}
				plan, err := ParseSlicePlan(lex.New(text))
				if err != nil {
					return nil, err
				}
				q.AggKind = ast.AggBySlice
				q.BySlice = plan
			} else {
				ms, err := parseDurationMs(s)
				if err != nil {
					return nil, err
				}
				q.AggKind = ast.AggByWindow
				q.ByWindowMs = ms
			}
		} else if matchKeywordAt(s.Src, s.Pos, "ROLLING") {
			s.Pos += len("ROLLING")
			lex.SkipSpaces(s)
			if !matchKeywordAt(s.Src, s.Pos, "BY") {
				return nil, errs.ErrSyntax.New("expected BY after ROLLING" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
			}
			s.Pos += len("BY")
			ms, err := parseDurationMs(s)
			if err != nil {
				return nil, err
			}
			q.AggKind = ast.AggRollingBy
			q.RollingMs = ms
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "WHERE") {
		s.Pos += len("WHERE")
		where, err := parseClauseBody(s, func(inner *lex.Scanner) (interface{}, error) {
			return ParsePredicate(inner)
		})
		if err != nil {
			return nil, err
		}
		q.Where = where.(*ast.Predicate)
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "GROUP") {
		if q.AggKind != ast.AggNone {
			return nil, errs.ErrConstraint.New("BY and GROUP BY are mutually exclusive")
		}
		s.Pos += len("GROUP")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "BY") {
			return nil, errs.ErrSyntax.New("expected BY after GROUP" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos += len("BY")
		cols, notNull, err := parseGroupByList(s)
		if err != nil {
			return nil, err
		}
		q.AggKind = ast.AggGroupBy
		q.GroupBy = cols
		q.GroupNotNull = notNull
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "HAVING") {
		s.Pos += len("HAVING")
		having, err := parseClauseBody(s, func(inner *lex.Scanner) (interface{}, error) {
			return ParsePredicate(inner)
		})
		if err != nil {
			return nil, err
		}
		q.Having = having.(*ast.Predicate)
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "ORDER") {
		s.Pos += len("ORDER")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "BY") {
			return nil, errs.ErrSyntax.New("expected BY after ORDER" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos += len("BY")
		keys, hint, hintIdx, err := parseOrderByList(s)
		if err != nil {
			return nil, err
		}
		q.OrderBy = keys
		q.OrderByHint = hint
		q.OrderHintOnKey = hintIdx
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "LIMIT") {
		s.Pos += len("LIMIT")
		lex.SkipSpaces(s)
		n, err := parseSignedInt(s)
		if err != nil {
			return nil, err
		}
		q.Limit = &n
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "INTO") {
		s.Pos += len("INTO")
		lex.SkipSpaces(s)
		table, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		mode := ast.IntoAppend
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "APPEND") {
			s.Pos += len("APPEND")
		} else if matchKeywordAt(s.Src, s.Pos, "REPLACE") {
			mode = ast.IntoReplace
			s.Pos += len("REPLACE")
		}
		q.Into = &ast.Into{Table: table, Mode: mode}
	}

	if err := validateGroupByProjection(q); err != nil {
		return nil, err
	}

	return q, nil
}

// parseClauseBody parses fn's result over the substring running from
// s.Pos up to the next global clause keyword found at depth 0.
func parseClauseBody(s *lex.Scanner, fn func(*lex.Scanner) (interface{}, error)) (interface{}, error) {
	rest := string(s.Src[s.Pos:])
	end := nextClauseBoundary(rest, clauseKeywords)
	body := rest
	if end >= 0 {
		body = rest[:end]
	}
	inner := lex.New(strings.TrimSpace(body))
	v, err := fn(inner)
	if err != nil {
		return nil, err
	}
	if end >= 0 {
		s.Pos += end
	} else {
		s.Pos = len(s.Src)
	}
	return v, nil
}

func nextClauseBoundary(src string, kws []string) int {
	best := -1
	for _, kw := range kws {
		idx := lex.FindTopLevelKeyword(src, kw, 0)
		if idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}

func parseSelectList(s *lex.Scanner) ([]ast.SelectItem, error) {
	return parseProjectionList(s, []string{"FROM"})
}

// parseProjectionList parses a comma-separated list of aliasable
// expressions (a SELECT or MATCH RETURN list) running from s.Pos up to
// the first of boundaryKws found at depth 0.
func parseProjectionList(s *lex.Scanner, boundaryKws []string) ([]ast.SelectItem, error) {
	rest := string(s.Src[s.Pos:])
	end := nextClauseBoundary(rest, boundaryKws)
	body := rest
	if end >= 0 {
		body = rest[:end]
	}
	parts := lex.SplitTopLevel(body, ',')
	items := make([]ast.SelectItem, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		inner := lex.New(p)
		e, err := ParseExpr(inner)
		if err != nil {
			return nil, err
		}
		lex.SkipSpaces(inner)
		alias := ""
		if matchKeywordAt(inner.Src, inner.Pos, "AS") {
			inner.Pos += len("AS")
			lex.SkipSpaces(inner)
			a, err := lex.ReadIdent(inner)
			if err != nil {
				return nil, err
			}
			alias = a
		} else if !inner.Eof() {
			a, err := lex.ReadIdent(inner)
			if err == nil {
				alias = a
			}
		}
		items = append(items, ast.SelectItem{Expr: e, Alias: alias})
	}
	if end >= 0 {
		s.Pos += end
	} else {
		s.Pos = len(s.Src)
	}
	return items, nil
}

func parseFromTree(s *lex.Scanner) (*ast.FromTree, error) {
	base, err := parseFromSource(s)
	if err != nil {
		return nil, err
	}
	tree := &ast.FromTree{Base: base}
	for {
		lex.SkipSpaces(s)
		jt, ok, consumed := peekJoinType(s)
		if !ok {
			break
		}
		s.Pos += consumed
		lex.SkipSpaces(s)
		src, err := parseFromSource(s)
		if err != nil {
			return nil, err
		}
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "ON") {
			return nil, errs.ErrSyntax.New("expected ON in join clause" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos += len("ON")
		onBody, err := parseClauseBody(s, func(inner *lex.Scanner) (interface{}, error) {
			return ParsePredicate(inner)
		})
		if err != nil {
			return nil, err
		}
		tree.Joins = append(tree.Joins, &ast.JoinClause{Type: jt, Src: src, On: onBody.(*ast.Predicate)})
	}
	return tree, nil
}

func peekJoinType(s *lex.Scanner) (ast.JoinType, bool, int) {
	if matchKeywordAt(s.Src, s.Pos, "INNER") {
		rest := s.Pos + len("INNER")
		skip := skipSpacesLen(s.Src, rest)
		if matchKeywordAt(s.Src, rest+skip, "JOIN") {
			return ast.JoinInner, true, rest + skip + len("JOIN") - s.Pos
		}
	}
	if matchKeywordAt(s.Src, s.Pos, "LEFT") {
		return joinAfterSide(s, ast.JoinLeft, "LEFT")
	}
	if matchKeywordAt(s.Src, s.Pos, "RIGHT") {
		return joinAfterSide(s, ast.JoinRight, "RIGHT")
	}
	if matchKeywordAt(s.Src, s.Pos, "FULL") {
		return joinAfterSide(s, ast.JoinFull, "FULL")
	}
	if matchKeywordAt(s.Src, s.Pos, "JOIN") {
		return ast.JoinInner, true, len("JOIN")
	}
	return ast.JoinInner, false, 0
}

func joinAfterSide(s *lex.Scanner, jt ast.JoinType, side string) (ast.JoinType, bool, int) {
	pos := s.Pos + len(side)
	skip := skipSpacesLen(s.Src, pos)
	pos += skip
	if matchKeywordAt(s.Src, pos, "OUTER") {
		pos += len("OUTER")
		pos += skipSpacesLen(s.Src, pos)
	}
	if matchKeywordAt(s.Src, pos, "JOIN") {
		return jt, true, pos + len("JOIN") - s.Pos
	}
	return jt, false, 0
}

func skipSpacesLen(runes []rune, pos int) int {
	n := 0
	for pos+n < len(runes) {
		c := runes[pos+n]
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			n++
			continue
		}
		break
	}
	return n
}

func parseFromSource(s *lex.Scanner) (*ast.FromSource, error) {
	lex.SkipSpaces(s)
	if s.Peek() == '(' {
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		lex.SkipSpaces(s)
		alias := ""
		if matchKeywordAt(s.Src, s.Pos, "AS") {
			s.Pos += len("AS")
			lex.SkipSpaces(s)
		}
		a, err := lex.ReadIdent(s)
		if err != nil {
			return nil, errs.ErrSyntax.New("subquery requires an alias" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		alias = a
		sub, err := ParseSelect(lex.New(text))
		if err != nil {
			return nil, err
		}
		return &ast.FromSource{Kind: ast.FromSubquery, Subquery: sub, Alias: alias}, nil
	}

	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if s.Peek() == '(' {
		s.Pos++
		args, err := parseArgs(s)
		if err != nil {
			return nil, err
		}
		alias := ""
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "AS") {
			s.Pos += len("AS")
			lex.SkipSpaces(s)
			a, err := lex.ReadIdent(s)
			if err != nil {
				return nil, err
			}
			alias = a
		} else if !s.Eof() && !matchesAnyKeyword(s, joinKeywords) {
			save := s.Pos
			a, err := lex.ReadIdent(s)
			if err == nil && a != "" {
				alias = a
			} else {
				s.Pos = save
			}
		}
		return &ast.FromSource{Kind: ast.FromTVF, TVFName: name, TVFArgs: args, Alias: alias}, nil
	}

	alias := ""
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "AS") {
		s.Pos += len("AS")
		lex.SkipSpaces(s)
		a, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		alias = a
	} else if !s.Eof() && !matchesAnyKeyword(s, joinKeywords) {
		save := s.Pos
		a, err := lex.ReadIdent(s)
		if err == nil && a != "" {
			alias = a
		} else {
			s.Pos = save
		}
	}
	return &ast.FromSource{Kind: ast.FromTable, Table: &ast.TableRef{Name: name, Alias: alias}}, nil
}

func matchesAnyKeyword(s *lex.Scanner, kws []string) bool {
	for _, kw := range kws {
		if matchKeywordAt(s.Src, s.Pos, kw) {
			return true
		}
	}
	return false
}

func parseGroupByList(s *lex.Scanner) ([]*ast.Expr, bool, error) {
	rest := string(s.Src[s.Pos:])
	end := nextClauseBoundary(rest, []string{"HAVING", "ORDER", "LIMIT", "INTO"})
	body := rest
	if end >= 0 {
		body = rest[:end]
	}
	notNull := false
	trimmedUpper := strings.ToUpper(strings.TrimSpace(body))
	if strings.HasSuffix(trimmedUpper, "NOTNULL") {
		body = body[:strings.LastIndex(trimmedUpper, "NOTNULL")]
		notNull = true
	}
	parts := lex.SplitTopLevel(body, ',')
	var cols []*ast.Expr
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		e, err := ParseExpr(lex.New(p))
		if err != nil {
			return nil, false, err
		}
		cols = append(cols, e)
	}
	if end >= 0 {
		s.Pos += end
	} else {
		s.Pos = len(s.Src)
	}
	return cols, notNull, nil
}

func parseOrderByList(s *lex.Scanner) ([]ast.OrderKey, ast.OrderHint, int, error) {
	rest := string(s.Src[s.Pos:])
	end := nextClauseBoundary(rest, []string{"LIMIT", "INTO"})
	body := rest
	if end >= 0 {
		body = rest[:end]
	}

	hint := ast.HintNone
	trimmed := strings.TrimSpace(body)
	upper := strings.ToUpper(trimmed)
	if idx := strings.LastIndex(upper, "USING"); idx >= 0 {
		tail := strings.TrimSpace(upper[idx+len("USING"):])
		if tail == "ANN" {
			hint = ast.HintANN
			trimmed = strings.TrimSpace(trimmed[:idx])
		} else if tail == "EXACT" {
			hint = ast.HintExact
			trimmed = strings.TrimSpace(trimmed[:idx])
		}
	}

	parts := lex.SplitTopLevel(trimmed, ',')
	var keys []ast.OrderKey
	hintIdx := -1
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		desc := false
		pu := strings.ToUpper(p)
		if strings.HasSuffix(pu, " DESC") {
			desc = true
			p = strings.TrimSpace(p[:len(p)-len(" DESC")])
		} else if strings.HasSuffix(pu, " ASC") {
			p = strings.TrimSpace(p[:len(p)-len(" ASC")])
		}
		e, err := ParseExpr(lex.New(p))
		if err != nil {
			return nil, ast.HintNone, 0, err
		}
		keys = append(keys, ast.OrderKey{Expr: e, Desc: desc})
		hintIdx = i
	}
	if hint == ast.HintNone {
		hintIdx = -1
	} else if len(keys) > 0 {
		hintIdx = len(keys) - 1
	}

	if end >= 0 {
		s.Pos += end
	} else {
		s.Pos = len(s.Src)
	}
	return keys, hint, hintIdx, nil
}

func validateGroupByProjection(q *ast.Query) error {
	if q.AggKind != ast.AggGroupBy {
		return nil
	}
	groupKeys := make(map[string]bool, len(q.GroupBy))
	for _, g := range q.GroupBy {
		groupKeys[exprKey(g)] = true
	}
	for _, item := range q.Select {
		if item.Expr.Kind == ast.ExprCall && item.Expr.IsAgg {
			continue
		}
		if item.Expr.Kind == ast.ExprColumn && item.Expr.Name == "*" {
			continue
		}
		if !groupKeys[exprKey(item.Expr)] {
			return errs.ErrConstraint.New("projection " + exprKey(item.Expr) + " is not in GROUP BY and is not an aggregate")
		}
	}
	return nil
}

func exprKey(e *ast.Expr) string {
	if e == nil {
		return ""
	}
	if e.Kind == ast.ExprColumn {
		if e.Qualifier != "" {
			return e.Qualifier + "." + e.Name
		}
		return e.Name
	}
	return ""
}

func parseDurationMs(s *lex.Scanner) (int64, error) {
	lex.SkipSpaces(s)
	start := s.Pos
	for !s.Eof() && isDigit(s.Peek()) {
		s.Pos++
	}
	if s.Pos == start {
		return 0, errs.ErrSyntax.New("expected numeric duration" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	n, err := strconv.ParseInt(string(s.Src[start:s.Pos]), 10, 64)
	if err != nil {
		return 0, errs.ErrSyntax.New("invalid duration" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	unitStart := s.Pos
	for !s.Eof() && isIdentStart(s.Peek()) {
		s.Pos++
	}
	unit := strings.ToLower(string(s.Src[unitStart:s.Pos]))
	switch unit {
	case "ms":
		return n, nil
	case "s", "sec", "secs", "second", "seconds":
		return n * 1000, nil
	case "m", "min", "mins", "minute", "minutes":
		return n * 60000, nil
	case "h", "hr", "hour", "hours":
		return n * 3600000, nil
	case "d", "day", "days":
		return n * 86400000, nil
	case "":
		return n, nil
	}
	return 0, errs.ErrSyntax.New("unknown duration unit " + unit)
}

func parseSignedInt(s *lex.Scanner) (int64, error) {
	start := s.Pos
	if s.Peek() == '-' {
		s.Pos++
	}
	for !s.Eof() && isDigit(s.Peek()) {
		s.Pos++
	}
	if s.Pos == start {
		return 0, errs.ErrSyntax.New("expected integer" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	n, err := strconv.ParseInt(string(s.Src[start:s.Pos]), 10, 64)
	if err != nil {
		return 0, errs.ErrSyntax.New("invalid integer" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	return n, nil
}
