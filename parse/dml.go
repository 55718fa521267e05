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

// parseInsert parses "INSERT INTO t [(cols)] VALUES (...), (...) | SELECT ...".
func parseInsert(s *lex.Scanner) (*ast.DML, error) {
	s.Pos += len("INSERT")
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "INTO") {
		s.Pos += len("INTO")
	}
	lex.SkipSpaces(s)
	table, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	d := &ast.DML{Table: table}

	lex.SkipSpaces(s)
	if s.Peek() == '(' {
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		for _, c := range lex.SplitTopLevel(text, ',') {
			d.Columns = append(d.Columns, strings.TrimSpace(c))
		}
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "VALUES") {
		s.Pos += len("VALUES")
		for {
			lex.SkipSpaces(s)
			if s.Peek() != '(' {
				return nil, errs.ErrSyntax.New("expected '(' in VALUES list")
			}
			s.Pos++
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			var row []*ast.Expr
			for _, p := range lex.SplitTopLevel(text, ',') {
				e, err := ParseExpr(lex.New(strings.TrimSpace(p)))
				if err != nil {
					return nil, err
				}
				row = append(row, e)
			}
			d.Values = append(d.Values, row)
			lex.SkipSpaces(s)
			if s.Peek() == ',' {
				s.Pos++
				continue
			}
			break
		}
		return d, nil
	}

	if matchKeywordAt(s.Src, s.Pos, "SELECT") || matchKeywordAt(s.Src, s.Pos, "WITH") {
		q, err := ParseSelect(s)
		if err != nil {
			return nil, err
		}
		d.FromSelect = q
		return d, nil
	}

	return nil, errs.ErrSyntax.New("expected VALUES or SELECT in INSERT" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
}

// parseUpdate parses "UPDATE t SET a=1, b=2 [WHERE ...]".
func parseUpdate(s *lex.Scanner) (*ast.DML, error) {
	s.Pos += len("UPDATE")
	lex.SkipSpaces(s)
	table, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	d := &ast.DML{Table: table, Assignments: map[string]*ast.Expr{}}

	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "SET") {
		return nil, errs.ErrSyntax.New("expected SET in UPDATE" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos += len("SET")

	rest := string(s.Src[s.Pos:])
	end := lex.FindTopLevelKeyword(rest, "WHERE", 0)
	body := rest
	if end >= 0 {
		body = rest[:end]
	}
	for _, assign := range lex.SplitTopLevel(body, ',') {
		eq := strings.IndexByte(assign, '=')
		if eq < 0 {
			return nil, errs.ErrSyntax.New("expected column = expr in SET clause")
		}
		col := strings.TrimSpace(assign[:eq])
		valE, err := ParseExpr(lex.New(strings.TrimSpace(assign[eq+1:])))
		if err != nil {
			return nil, err
		}
		d.Assignments[col] = valE
	}
	if end >= 0 {
		s.Pos += end
	} else {
		s.Pos = len(s.Src)
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "WHERE") {
		s.Pos += len("WHERE")
		lex.SkipSpaces(s)
		where, err := ParsePredicate(lex.New(strings.TrimSpace(string(s.Src[s.Pos:]))))
		if err != nil {
			return nil, err
		}
		d.Where = where
		s.Pos = len(s.Src)
	}

	return d, nil
}

// parseDelete parses "DELETE FROM t [WHERE ...]".
func parseDelete(s *lex.Scanner) (*ast.DML, error) {
	s.Pos += len("DELETE")
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "FROM") {
		s.Pos += len("FROM")
	}
	lex.SkipSpaces(s)
	table, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	d := &ast.DML{Table: table}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "WHERE") {
		s.Pos += len("WHERE")
		lex.SkipSpaces(s)
		where, err := ParsePredicate(lex.New(strings.TrimSpace(string(s.Src[s.Pos:]))))
		if err != nil {
			return nil, err
		}
		d.Where = where
		s.Pos = len(s.Src)
	}
	return d, nil
}
