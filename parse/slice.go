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
	"strings"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/lex"
)

// parseSliceStatementBody parses the body of a top-level "SLICE USING
// <plan>" statement (s positioned right after the SLICE keyword).
func parseSliceStatementBody(s *lex.Scanner) (*ast.SlicePlan, error) {
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "USING") {
		s.Pos += len("USING")
	}
	return ParseSlicePlan(s)
}

// ParseSlicePlan parses a SLICE algebra expression: a base SliceSource
// followed by zero or more "UNION <src>" / "INTERSECT <src>" clauses, and
// an optional trailing "LABEL(name,...)" designation for the plan.
func ParseSlicePlan(s *lex.Scanner) (*ast.SlicePlan, error) {
	base, err := parseSliceSource(s)
	if err != nil {
		return nil, err
	}
	plan := &ast.SlicePlan{Base: base}
	for {
		lex.SkipSpaces(s)
		var op ast.SliceOp
		if matchKeywordAt(s.Src, s.Pos, "UNION") {
			op = ast.SliceUnion
			s.Pos += len("UNION")
		} else if matchKeywordAt(s.Src, s.Pos, "INTERSECT") {
			op = ast.SliceIntersect
			s.Pos += len("INTERSECT")
		} else {
			break
		}
		lex.SkipSpaces(s)
		src, err := parseSliceSource(s)
		if err != nil {
			return nil, err
		}
		plan.Clauses = append(plan.Clauses, ast.SliceClause{Op: op, Src: src})
	}
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "LABEL") {
		s.Pos += len("LABEL")
		lex.SkipSpaces(s)
		if s.Peek() == '(' {
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			for _, p := range lex.SplitTopLevel(text, ',') {
				p = strings.TrimSpace(p)
				if p != "" {
					plan.Labels = append(plan.Labels, p)
				}
			}
		}
	}
	return plan, nil
}

func parseSliceSource(s *lex.Scanner) (*ast.SliceSource, error) {
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "MANUAL") {
		s.Pos += len("MANUAL")
		lex.SkipSpaces(s)
		if s.Peek() != '(' {
			return nil, errs.ErrSyntax.New("expected '(' after MANUAL")
		}
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		return parseManualIntervals(text)
	}
	if matchKeywordAt(s.Src, s.Pos, "PLAN") || s.Peek() == '(' {
		if s.Peek() == '(' {
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			nested, err := ParseSlicePlan(lex.New(text))
			if err != nil {
				return nil, err
			}
			return &ast.SliceSource{Kind: ast.SliceSrcPlan, Plan: nested}, nil
		}
	}

	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	src := &ast.SliceSource{Kind: ast.SliceSrcTable, Table: name, StartCol: "_start_time", EndCol: "_end_time"}

	lex.SkipSpaces(s)
	if s.Peek() == '(' {
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		for _, p := range lex.SplitTopLevel(text, ',') {
			p = strings.TrimSpace(p)
			if eq := strings.IndexByte(p, '='); eq >= 0 {
				key := strings.TrimSpace(p[:eq])
				val := strings.TrimSpace(p[eq+1:])
				switch strings.ToLower(key) {
				case "start":
					src.StartCol = val
				case "end":
					src.EndCol = val
				}
			}
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "WHERE") {
		s.Pos += len("WHERE")
		rest := string(s.Src[s.Pos:])
		end := nextClauseBoundary(rest, []string{"LABEL", "UNION", "INTERSECT"})
		body := rest
		if end >= 0 {
			body = rest[:end]
		}
		where, err := ParsePredicate(lex.New(strings.TrimSpace(body)))
		if err != nil {
			return nil, err
		}
		src.Where = where
		if end >= 0 {
			s.Pos += end
		} else {
			s.Pos = len(s.Src)
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "LABEL") {
		s.Pos += len("LABEL")
		lex.SkipSpaces(s)
		if s.Peek() == '(' {
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			src.LabelVals = map[string]*ast.Expr{}
			for i, p := range lex.SplitTopLevel(text, ',') {
				p = strings.TrimSpace(p)
				e, err := ParseExpr(lex.New(p))
				if err != nil {
					return nil, err
				}
				src.LabelVals[positionalLabelKey(i)] = e
			}
		}
	}

	return src, nil
}

func positionalLabelKey(i int) string {
	return strings.ToUpper(string(rune('a' + i)))
}

func parseManualIntervals(text string) (*ast.SliceSource, error) {
	var rows []ast.ManualInterval
	depth := 0
	var cur strings.Builder
	var groups []string
	for _, r := range text {
		switch r {
		case '(':
			depth++
			if depth == 1 {
				cur.Reset()
				continue
			}
		case ')':
			depth--
			if depth == 0 {
				groups = append(groups, cur.String())
				continue
			}
		}
		if depth >= 1 {
			cur.WriteRune(r)
		}
	}
	for _, g := range groups {
		parts := lex.SplitTopLevel(g, ',')
		if len(parts) < 2 {
			return nil, errs.ErrSyntax.New("manual slice tuple requires start and end")
		}
		startE, err := ParseExpr(lex.New(strings.TrimSpace(parts[0])))
		if err != nil {
			return nil, err
		}
		endE, err := ParseExpr(lex.New(strings.TrimSpace(parts[1])))
		if err != nil {
			return nil, err
		}
		startMs, _ := startE.LitValue.(int64)
		endMs, _ := endE.LitValue.(int64)
		interval := ast.ManualInterval{Start: startMs, End: endMs, Labels: map[string]*ast.Expr{}}
		for _, lbl := range parts[2:] {
			lbl = strings.TrimSpace(lbl)
			if i := strings.Index(lbl, ":="); i >= 0 {
				key := strings.TrimSpace(lbl[:i])
				val := strings.TrimSpace(lbl[i+2:])
				e, err := ParseExpr(lex.New(val))
				if err != nil {
					return nil, err
				}
				interval.Labels[key] = e
			}
		}
		rows = append(rows, interval)
	}
	return &ast.SliceSource{Kind: ast.SliceSrcManual, Manual: rows}, nil
}
