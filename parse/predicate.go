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

// ParsePredicate parses a boolean expression per the grammar in spec
// §4.3:
//
//	bool    := or
//	or      := and ( OR and )*
//	and     := not ( AND not )*
//	not     := NOT not | primary
//	primary := '(' bool ')' | EXISTS '(' SELECT ... ')' | arith [comp_suffix]
func ParsePredicate(s *lex.Scanner) (*ast.Predicate, error) {
	return parseOr(s)
}

func parseOr(s *lex.Scanner) (*ast.Predicate, error) {
	left, err := parseAnd(s)
	if err != nil {
		return nil, err
	}
	clauses := []*ast.Predicate{left}
	for {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "OR") {
			s.Pos += len("OR")
			right, err := parseAnd(s)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, right)
			continue
		}
		break
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return ast.Or(clauses...), nil
}

func parseAnd(s *lex.Scanner) (*ast.Predicate, error) {
	left, err := parseNot(s)
	if err != nil {
		return nil, err
	}
	clauses := []*ast.Predicate{left}
	for {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "AND") {
			s.Pos += len("AND")
			right, err := parseNot(s)
			if err != nil {
				return nil, err
			}
			clauses = append(clauses, right)
			continue
		}
		break
	}
	if len(clauses) == 1 {
		return clauses[0], nil
	}
	return ast.And(clauses...), nil
}

func parseNot(s *lex.Scanner) (*ast.Predicate, error) {
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "NOT") {
		s.Pos += len("NOT")
		inner, err := parseNot(s)
		if err != nil {
			return nil, err
		}
		return ast.Negate(inner), nil
	}
	return parsePrimaryPred(s)
}

func parsePrimaryPred(s *lex.Scanner) (*ast.Predicate, error) {
	lex.SkipSpaces(s)

	if matchKeywordAt(s.Src, s.Pos, "EXISTS") {
		s.Pos += len("EXISTS")
		lex.SkipSpaces(s)
		if s.Peek() != '(' {
			return nil, errs.ErrSyntax.New("expected '(' after EXISTS" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
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
		return &ast.Predicate{Kind: ast.PredExists, Sub: q}, nil
	}

	if s.Peek() == '(' {
		// Could be a parenthesized boolean group, or the start of an
		// arithmetic primary that parseArith will handle (e.g. "(a+b) > 1").
		// Disambiguate by checking whether, after consuming a balanced
		// group, what follows begins a comp_suffix; if not, treat as a
		// parenthesized predicate group.
		save := s.Pos
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		afterParen := s.Pos
		lex.SkipSpaces(s)
		if startsCompSuffix(s) {
			s.Pos = save
			return parseCompSuffixPrimary(s)
		}
		s.Pos = afterParen
		inner, err := ParsePredicate(lex.New(text))
		if err != nil {
			return nil, err
		}
		return &ast.Predicate{Kind: ast.PredParen, Inner: inner}, nil
	}

	return parseCompSuffixPrimary(s)
}

// startsCompSuffix reports whether the scanner is positioned at a
// comp_suffix token (comparator, LIKE, IS, BETWEEN, IN) per spec §4.3.
func startsCompSuffix(s *lex.Scanner) bool {
	c := s.Peek()
	if c == '=' || c == '<' || c == '>' {
		return true
	}
	if c == '!' && s.PeekAt(1) == '=' {
		return true
	}
	for _, kw := range []string{"LIKE", "NOT", "IS", "BETWEEN", "IN"} {
		if matchKeywordAt(s.Src, s.Pos, kw) {
			return true
		}
	}
	return false
}

// parseCompSuffixPrimary parses "arith [comp_suffix]".
func parseCompSuffixPrimary(s *lex.Scanner) (*ast.Predicate, error) {
	left, err := parseAdditive(s)
	if err != nil {
		return nil, err
	}
	lex.SkipSpaces(s)

	negated := false
	if matchKeywordAt(s.Src, s.Pos, "NOT") {
		save := s.Pos
		s.Pos += len("NOT")
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "LIKE") || matchKeywordAt(s.Src, s.Pos, "BETWEEN") || matchKeywordAt(s.Src, s.Pos, "IN") {
			negated = true
		} else {
			s.Pos = save
		}
	}

	op, ok := readComparator(s)
	if ok {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "ANY") || matchKeywordAt(s.Src, s.Pos, "ALL") {
			all := matchKeywordAt(s.Src, s.Pos, "ALL")
			if all {
				s.Pos += len("ALL")
			} else {
				s.Pos += len("ANY")
			}
			lex.SkipSpaces(s)
			if s.Peek() != '(' {
				return nil, errs.ErrSyntax.New("expected '(' after ANY/ALL" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
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
			return &ast.Predicate{Kind: ast.PredCompare, Left: left, Op: op, RightAnyAll: &ast.AnyAll{Op: op, All: all, Sub: q}}, nil
		}
		right, err := parseAdditive(s)
		if err != nil {
			return nil, err
		}
		return ast.Compare(op, left, right), nil
	}

	if matchKeywordAt(s.Src, s.Pos, "LIKE") {
		s.Pos += len("LIKE")
		pattern, err := parseAdditive(s)
		if err != nil {
			return nil, err
		}
		return &ast.Predicate{Kind: ast.PredLike, Left: left, Pattern: pattern, Negated: negated}, nil
	}

	if matchKeywordAt(s.Src, s.Pos, "IS") {
		s.Pos += len("IS")
		lex.SkipSpaces(s)
		isNot := false
		if matchKeywordAt(s.Src, s.Pos, "NOT") {
			isNot = true
			s.Pos += len("NOT")
			lex.SkipSpaces(s)
		}
		if !matchKeywordAt(s.Src, s.Pos, "NULL") {
			return nil, errs.ErrSyntax.New("expected NULL after IS [NOT]" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos += len("NULL")
		return &ast.Predicate{Kind: ast.PredIsNull, Left: left, Negated: isNot}, nil
	}

	if matchKeywordAt(s.Src, s.Pos, "BETWEEN") {
		s.Pos += len("BETWEEN")
		low, err := parseAdditive(s)
		if err != nil {
			return nil, err
		}
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "AND") {
			return nil, errs.ErrSyntax.New("expected AND in BETWEEN" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos += len("AND")
		high, err := parseAdditive(s)
		if err != nil {
			return nil, err
		}
		return &ast.Predicate{Kind: ast.PredBetween, Left: left, Low: low, High: high, Negated: negated}, nil
	}

	if matchKeywordAt(s.Src, s.Pos, "IN") {
		s.Pos += len("IN")
		lex.SkipSpaces(s)
		if s.Peek() != '(' {
			return nil, errs.ErrSyntax.New("expected '(' after IN" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos++
		text, err := readBalancedParenContent(s)
		if err != nil {
			return nil, err
		}
		trimmed := strings.TrimSpace(text)
		if matchKeywordAt([]rune(strings.ToUpper(trimmed)), 0, "SELECT") || matchKeywordAt([]rune(strings.ToUpper(trimmed)), 0, "WITH") {
			q, err := ParseSelect(lex.New(text))
			if err != nil {
				return nil, err
			}
			return &ast.Predicate{Kind: ast.PredIn, Left: left, InSub: q, Negated: negated}, nil
		}
		var list []*ast.Expr
		inner := lex.New(text)
		for {
			lex.SkipSpaces(inner)
			e, err := ParseExpr(inner)
			if err != nil {
				return nil, err
			}
			list = append(list, e)
			lex.SkipSpaces(inner)
			if inner.Peek() == ',' {
				inner.Pos++
				continue
			}
			break
		}
		return &ast.Predicate{Kind: ast.PredIn, Left: left, List: list, Negated: negated}, nil
	}

	if negated {
		return nil, errs.ErrSyntax.New("expected LIKE, BETWEEN or IN after NOT" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}

	// Bare arithmetic expression used as a truthy predicate (e.g. a
	// boolean column reference); wrap as an equality-to-true compare so
	// downstream evaluation has a uniform predicate shape.
	return ast.Compare(ast.CmpEq, left, ast.Literal(true)), nil
}

func readComparator(s *lex.Scanner) (ast.CompareOp, bool) {
	c := s.Peek()
	switch c {
	case '=':
		s.Pos++
		return ast.CmpEq, true
	case '!':
		if s.PeekAt(1) == '=' {
			s.Pos += 2
			return ast.CmpNe, true
		}
	case '<':
		if s.PeekAt(1) == '>' {
			s.Pos += 2
			return ast.CmpNe, true
		}
		if s.PeekAt(1) == '=' {
			s.Pos += 2
			return ast.CmpLe, true
		}
		s.Pos++
		return ast.CmpLt, true
	case '>':
		if s.PeekAt(1) == '=' {
			s.Pos += 2
			return ast.CmpGe, true
		}
		s.Pos++
		return ast.CmpGt, true
	}
	return "", false
}
