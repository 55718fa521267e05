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

// parseUse parses "USE db[.schema] [GRAPH g]".
func parseUse(s *lex.Scanner) (*ast.UseSet, error) {
	s.Pos += len("USE")
	lex.SkipSpaces(s)
	u := &ast.UseSet{}
	if matchKeywordAt(s.Src, s.Pos, "GRAPH") {
		s.Pos += len("GRAPH")
		lex.SkipSpaces(s)
		g, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		u.Graph = g
		return u, nil
	}
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	parts := strings.Split(name, "/")
	if len(parts) == 1 {
		parts = strings.Split(name, ".")
	}
	u.DB = parts[0]
	if len(parts) > 1 {
		u.Schema = parts[1]
	}
	return u, nil
}

// parseSet parses "SET key = value".
func parseSet(s *lex.Scanner) (*ast.UseSet, error) {
	s.Pos += len("SET")
	lex.SkipSpaces(s)
	key, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if s.Peek() != '=' {
		return nil, errs.ErrSyntax.New("expected '=' in SET statement" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos++
	lex.SkipSpaces(s)
	val := strings.TrimSpace(string(s.Src[s.Pos:]))
	s.Pos = len(s.Src)
	return &ast.UseSet{IsSet: true, Key: key, Value: strings.Trim(val, "'\"")}, nil
}

// parseLoad parses "LOAD <table> FROM '<path>' [FORMAT fmt]".
func parseLoad(s *lex.Scanner) (*ast.Load, error) {
	s.Pos += len("LOAD")
	lex.SkipSpaces(s)
	table, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "FROM") {
		return nil, errs.ErrSyntax.New("expected FROM in LOAD statement")
	}
	s.Pos += len("FROM")
	lex.SkipSpaces(s)
	path, err := lex.ReadQuotedString(s)
	if err != nil {
		return nil, err
	}
	l := &ast.Load{Table: table, Path: path}
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "FORMAT") {
		s.Pos += len("FORMAT")
		lex.SkipSpaces(s)
		f, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		l.Format = f
	}
	return l, nil
}

// parseUser parses "USER ADD|ALTER|DELETE name [PASSWORD 'p'] [ROLES r1,r2]".
func parseUser(s *lex.Scanner) (*ast.UserOp, error) {
	s.Pos += len("USER")
	lex.SkipSpaces(s)
	action := ""
	for _, a := range []string{"ADD", "ALTER", "DELETE"} {
		if matchKeywordAt(s.Src, s.Pos, a) {
			action = a
			s.Pos += len(a)
			break
		}
	}
	if action == "" {
		return nil, errs.ErrSyntax.New("expected ADD, ALTER or DELETE after USER")
	}
	lex.SkipSpaces(s)
	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}
	u := &ast.UserOp{Action: action, Username: name}

	for {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "PASSWORD") {
			s.Pos += len("PASSWORD")
			lex.SkipSpaces(s)
			pw, err := lex.ReadQuotedString(s)
			if err != nil {
				return nil, err
			}
			u.Password = pw
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "ROLES") {
			s.Pos += len("ROLES")
			lex.SkipSpaces(s)
			for !s.Eof() {
				r, err := lex.ReadIdent(s)
				if err != nil {
					break
				}
				u.Roles = append(u.Roles, r)
				lex.SkipSpaces(s)
				if s.Peek() == ',' {
					s.Pos++
					continue
				}
				break
			}
			continue
		}
		break
	}
	return u, nil
}
