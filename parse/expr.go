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

// Package parse implements the character-level SQL parser: expressions,
// predicates and commands (spec §4.2-4.4). It is organized as one
// recursive-descent pass built on lex.Scanner, since the predicate and
// expression grammars are mutually recursive (a predicate's operands are
// expressions, and an expression may embed a boolean comparison).
package parse

import (
	"strconv"
	"strings"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/lex"
	"github.com/euanmacinnes/clarium/types"
)

// knownAggregates is the fixed set of function names tagged as
// aggregates per spec §4.2.
var knownAggregates = map[string]bool{
	"AVG": true, "SUM": true, "COUNT": true, "MIN": true, "MAX": true,
	"FIRST": true, "LAST": true, "STDEV": true, "DELTA": true,
	"HEIGHT": true, "GRADIENT": true, "QUANTILE": true, "ARRAY_AGG": true,
}

// udfArity is the fixed arity table for known UDFs referenced in spec
// §4.2 and §7, used to detect ErrUdf arity violations at parse time.
var udfArity = map[string][2]int{
	"nullif":        {2, 2},
	"format_type":   {2, 2},
	"pg_get_expr":   {2, 3},
	"to_regtype":    {1, 1},
	"pg_get_viewdef": {1, 1},
}

// ParseExpr parses a single expression from s, stopping at the first
// top-level comma, closing paren/bracket, or clause keyword it doesn't
// consume. Per spec §4.2, it first checks for a top-level comparator
// (including LIKE/NOT LIKE); if present the whole expression is parsed
// as a boolean Predicate and wrapped in an ExprPredicate node, so boolean
// comparisons may appear in projection lists.
func ParseExpr(s *lex.Scanner) (*ast.Expr, error) {
	lex.SkipSpaces(s)
	if hasTopLevelComparator(s) {
		p, err := ParsePredicate(s)
		if err != nil {
			return nil, err
		}
		return ast.WrapPredicate(p), nil
	}
	return parseAdditive(s)
}

// hasTopLevelComparator scans the remainder of s's buffer (from the
// current position up to the next top-level comma or closing
// paren/bracket) for a comparator, LIKE, AND or OR at depth 0 outside
// quotes.
func hasTopLevelComparator(s *lex.Scanner) bool {
	rest := string(s.Src[s.Pos:])
	depth := 0
	var inS, inD bool
	runes := []rune(rest)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inS:
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inS = false
			}
			continue
		case inD:
			if c == '"' {
				inD = false
			}
			continue
		case c == '\'':
			inS = true
			continue
		case c == '"':
			inD = true
			continue
		case c == '(' || c == '[':
			depth++
			continue
		case c == ')' || c == ']':
			if depth == 0 {
				return false
			}
			depth--
			continue
		case c == ',':
			if depth == 0 {
				return false
			}
			continue
		}
		if depth != 0 {
			continue
		}
		switch c {
		case '=', '<', '>':
			return true
		case '!':
			if i+1 < len(runes) && runes[i+1] == '=' {
				return true
			}
		}
		if matchKeywordAt(runes, i, "LIKE") || matchKeywordAt(runes, i, "AND") || matchKeywordAt(runes, i, "OR") {
			return true
		}
	}
	return false
}

func matchKeywordAt(runes []rune, i int, kw string) bool {
	kr := []rune(strings.ToUpper(kw))
	if i+len(kr) > len(runes) {
		return false
	}
	for j, k := range kr {
		r := runes[i+j]
		if r >= 'a' && r <= 'z' {
			r -= 32
		}
		if r != k {
			return false
		}
	}
	if i > 0 && isIdentRune(runes[i-1]) {
		return false
	}
	if i+len(kr) < len(runes) && isIdentRune(runes[i+len(kr)]) {
		return false
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// parseAdditive handles + and - (lower precedence than * /).
func parseAdditive(s *lex.Scanner) (*ast.Expr, error) {
	left, err := parseMultiplicative(s)
	if err != nil {
		return nil, err
	}
	for {
		lex.SkipSpaces(s)
		c := s.Peek()
		if c == '+' || c == '-' {
			s.Pos++
			right, err := parseMultiplicative(s)
			if err != nil {
				return nil, err
			}
			left = ast.Binary(string(c), left, right)
			continue
		}
		break
	}
	return left, nil
}

// parseMultiplicative handles * and / (higher precedence than + -).
func parseMultiplicative(s *lex.Scanner) (*ast.Expr, error) {
	left, err := parsePostfix(s)
	if err != nil {
		return nil, err
	}
	for {
		lex.SkipSpaces(s)
		c := s.Peek()
		if c == '*' || c == '/' {
			s.Pos++
			right, err := parsePostfix(s)
			if err != nil {
				return nil, err
			}
			left = ast.Binary(string(c), left, right)
			continue
		}
		break
	}
	return left, nil
}

// parsePostfix handles trailing cast chains (expr::t1::t2) and slicing
// (expr[a:b:c]) applied to a primary expression.
func parsePostfix(s *lex.Scanner) (*ast.Expr, error) {
	e, err := parsePrimary(s)
	if err != nil {
		return nil, err
	}
	for {
		lex.SkipSpaces(s)
		if s.Peek() == ':' && s.PeekAt(1) == ':' {
			s.Pos += 2
			typeWord, err := readTypeWord(s)
			if err != nil {
				return nil, err
			}
			ct, err := types.NormalizeTypeWord(typeWord)
			if err != nil {
				return nil, err
			}
			e = &ast.Expr{Kind: ast.ExprCast, Operand: e, CastType: ast.CastType{Name: string(ct)}}
			continue
		}
		if s.Peek() == '[' {
			s.Pos++
			sl, err := parseSliceBounds(s)
			if err != nil {
				return nil, err
			}
			sl.Operand = e
			e = sl
			continue
		}
		break
	}
	return e, nil
}

func readTypeWord(s *lex.Scanner) (string, error) {
	start := s.Pos
	depth := 0
	for !s.Eof() {
		c := s.Peek()
		if c == '(' {
			depth++
			s.Pos++
			continue
		}
		if c == ')' {
			if depth == 0 {
				break
			}
			depth--
			s.Pos++
			continue
		}
		if depth > 0 {
			s.Pos++
			continue
		}
		if isIdentRune(c) || c == ' ' {
			s.Pos++
			continue
		}
		break
	}
	word := strings.TrimSpace(string(s.Src[start:s.Pos]))
	if word == "" {
		return "", errs.ErrSyntax.New("expected type name" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	return word, nil
}

// parseSliceBounds parses "a:b:c]" after the opening '[' has been
// consumed, returning an ExprSlice node (Operand left unset for the
// caller to fill in).
func parseSliceBounds(s *lex.Scanner) (*ast.Expr, error) {
	bounds := []*ast.SliceBound{{}, {}, {}}
	idx := 0
	for idx < 3 {
		lex.SkipSpaces(s)
		if s.Peek() == ']' || s.Peek() == ':' {
			// empty bound
		} else {
			b, err := parseSliceBound(s)
			if err != nil {
				return nil, err
			}
			bounds[idx] = b
		}
		lex.SkipSpaces(s)
		if s.Peek() == ':' {
			s.Pos++
			idx++
			continue
		}
		break
	}
	lex.SkipSpaces(s)
	if s.Peek() != ']' {
		return nil, errs.ErrSyntax.New("expected ']'" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos++
	return &ast.Expr{Kind: ast.ExprSlice, Start: bounds[0], End: bounds[1], Step: exprOrNil(bounds[2])}, nil
}

func exprOrNil(b *ast.SliceBound) *ast.Expr {
	if b == nil || (b.Index == nil && b.Pattern == nil) {
		return nil
	}
	if b.Index != nil {
		return b.Index
	}
	return b.Pattern
}

// parseSliceBound parses one bound: either a plain index expression or a
// negated pattern literal (-'x'), per spec §4.2.
func parseSliceBound(s *lex.Scanner) (*ast.SliceBound, error) {
	lex.SkipSpaces(s)
	if s.Peek() == '-' && s.PeekAt(1) == '\'' {
		s.Pos++
		lit, err := lex.ReadQuotedString(s)
		if err != nil {
			return nil, err
		}
		return &ast.SliceBound{Pattern: ast.Literal(lit), Negated: true}, nil
	}
	if s.Peek() == '\'' {
		lit, err := lex.ReadQuotedString(s)
		if err != nil {
			return nil, err
		}
		return &ast.SliceBound{Pattern: ast.Literal(lit), Inclusive: true}, nil
	}
	e, err := parseAdditive(s)
	if err != nil {
		return nil, err
	}
	return &ast.SliceBound{Index: e}, nil
}

// parsePrimary parses a literal, column reference, parenthesized
// expression, function call, CASE expression, f-string, or scalar
// subquery.
func parsePrimary(s *lex.Scanner) (*ast.Expr, error) {
	lex.SkipSpaces(s)
	if s.Eof() {
		return nil, errs.ErrSyntax.New("unexpected end of input" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}

	c := s.Peek()

	// unary minus binds numeric literals only (spec §4.2)
	if c == '-' && isDigit(s.PeekAt(1)) {
		s.Pos++
		n, err := parseNumber(s)
		if err != nil {
			return nil, err
		}
		switch v := n.LitValue.(type) {
		case int64:
			n.LitValue = -v
		case float64:
			n.LitValue = -v
		}
		return n, nil
	}

	if c == '(' {
		s.Pos++
		lex.SkipSpaces(s)
		if looksLikeSelect(s) {
			text, err := readBalancedParenContent(s)
			if err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.ExprScalarSubquery, SQLText: strings.TrimSpace(text)}, nil
		}
		inner, err := ParseExpr(s)
		if err != nil {
			return nil, err
		}
		lex.SkipSpaces(s)
		if s.Peek() != ')' {
			return nil, errs.ErrSyntax.New("expected ')'" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		}
		s.Pos++
		return inner, nil
	}

	if c == '\'' {
		lit, err := lex.ReadQuotedString(s)
		if err != nil {
			return nil, err
		}
		if ms, ok := types.TryParseISOTimestamp(lit); ok {
			return ast.Literal(ms), nil
		}
		return ast.Literal(lit), nil
	}

	if (c == 'f' || c == 'F') && s.PeekAt(1) == '\'' {
		s.Pos++
		return parseFString(s)
	}

	if isDigit(c) {
		return parseNumber(s)
	}

	if isIdentStart(c) || c == '"' {
		return parseIdentOrCall(s)
	}

	if c == '*' {
		s.Pos++
		return &ast.Expr{Kind: ast.ExprColumn, Name: "*"}, nil
	}

	return nil, errs.ErrSyntax.New("unexpected character" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isIdentStart(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func parseNumber(s *lex.Scanner) (*ast.Expr, error) {
	start := s.Pos
	isFloat := false
	for !s.Eof() {
		c := s.Peek()
		if isDigit(c) {
			s.Pos++
			continue
		}
		if c == '.' && !isFloat {
			isFloat = true
			s.Pos++
			continue
		}
		break
	}
	text := string(s.Src[start:s.Pos])
	if isFloat {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errs.ErrSyntax.New("invalid number" + "\n" + lex.CaretSnippet(string(s.Src), start))
		}
		return ast.Literal(f), nil
	}
	i, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return nil, errs.ErrSyntax.New("invalid number" + "\n" + lex.CaretSnippet(string(s.Src), start))
	}
	return ast.Literal(i), nil
}

// parseFString parses the body of an f'...' literal (opening quote
// already consumed), producing an ExprConcat of literal string fragments
// and embedded expressions. {{ and }} are literal braces.
func parseFString(s *lex.Scanner) (*ast.Expr, error) {
	start := s.Pos
	s.Pos++ // opening quote
	var parts []*ast.Expr
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, ast.Literal(lit.String()))
			lit.Reset()
		}
	}
	for {
		if s.Eof() {
			return nil, errs.ErrSyntax.New("unterminated f-string" + "\n" + lex.CaretSnippet(string(s.Src), start))
		}
		c := s.Peek()
		switch c {
		case '\'':
			if s.PeekAt(1) == '\'' {
				lit.WriteRune('\'')
				s.Pos += 2
				continue
			}
			s.Pos++
			flush()
			return &ast.Expr{Kind: ast.ExprConcat, Parts: parts}, nil
		case '{':
			if s.PeekAt(1) == '{' {
				lit.WriteRune('{')
				s.Pos += 2
				continue
			}
			s.Pos++
			flush()
			e, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			lex.SkipSpaces(s)
			if s.Peek() != '}' {
				return nil, errs.ErrSyntax.New("expected '}'" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
			}
			s.Pos++
			parts = append(parts, e)
		case '}':
			if s.PeekAt(1) == '}' {
				lit.WriteRune('}')
				s.Pos += 2
				continue
			}
			return nil, errs.ErrSyntax.New("unmatched '}'" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
		default:
			lit.WriteRune(c)
			s.Pos++
		}
	}
}

// looksLikeSelect reports whether the content about to be parsed inside
// a just-opened paren is a scalar subquery: its trimmed content starts
// with SELECT or WITH.
func looksLikeSelect(s *lex.Scanner) bool {
	i := s.Pos
	for i < len(s.Src) && (s.Src[i] == ' ' || s.Src[i] == '\t' || s.Src[i] == '\n') {
		i++
	}
	return matchKeywordAt(s.Src, i, "SELECT") || matchKeywordAt(s.Src, i, "WITH")
}

// readBalancedParenContent reads up to (but not including) the matching
// close paren for the paren already opened by the caller, and consumes
// that close paren.
func readBalancedParenContent(s *lex.Scanner) (string, error) {
	start := s.Pos
	depth := 1
	var inS, inD bool
	for !s.Eof() {
		c := s.Peek()
		switch {
		case inS:
			if c == '\'' {
				if s.PeekAt(1) == '\'' {
					s.Pos += 2
					continue
				}
				inS = false
			}
			s.Pos++
			continue
		case inD:
			if c == '"' {
				inD = false
			}
			s.Pos++
			continue
		case c == '\'':
			inS = true
			s.Pos++
			continue
		case c == '"':
			inD = true
			s.Pos++
			continue
		case c == '(':
			depth++
			s.Pos++
			continue
		case c == ')':
			depth--
			if depth == 0 {
				text := string(s.Src[start:s.Pos])
				s.Pos++
				return text, nil
			}
			s.Pos++
			continue
		default:
			s.Pos++
		}
	}
	return "", errs.ErrSyntax.New("unterminated '('" + "\n" + lex.CaretSnippet(string(s.Src), start))
}

// parseIdentOrCall parses a bare/quoted/dotted identifier, and if
// followed immediately by '(' parses it as a function call (or CASE
// expression, handled separately by the CASE keyword).
func parseIdentOrCall(s *lex.Scanner) (*ast.Expr, error) {
	start := s.Pos
	if matchKeywordAt(s.Src, s.Pos, "CASE") {
		return parseCase(s)
	}

	name, err := lex.ReadIdent(s)
	if err != nil {
		return nil, err
	}

	if strings.EqualFold(name, "NULL") {
		return ast.Literal(nil), nil
	}
	if strings.EqualFold(name, "TRUE") {
		return ast.Literal(true), nil
	}
	if strings.EqualFold(name, "FALSE") {
		return ast.Literal(false), nil
	}

	if s.Peek() == '(' {
		s.Pos++
		args, err := parseArgs(s)
		if err != nil {
			return nil, err
		}
		upper := strings.ToUpper(name)
		if upper == "COUNT" && len(args) == 1 && args[0].Kind == ast.ExprColumn && args[0].Name == "*" {
			return ast.Call("COUNT", args, true), nil
		}
		if arity, ok := udfArity[name]; ok {
			if len(args) < arity[0] || len(args) > arity[1] {
				return nil, errs.ErrUdf.New("function " + name + " expects between " +
					strconv.Itoa(arity[0]) + " and " + strconv.Itoa(arity[1]) + " arguments")
			}
		}
		call := ast.Call(name, args, knownAggregates[upper])
		if upper == "QUANTILE" && len(args) == 2 {
			if f, ok := args[1].LitValue.(float64); ok {
				call.AggPct = f
			} else if i, ok := args[1].LitValue.(int64); ok {
				call.AggPct = float64(i)
			}
		}
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "OVER") {
			ws, err := parseWindowSpec(s)
			if err != nil {
				return nil, err
			}
			call.Over = ws
		}
		return call, nil
	}

	if name == "*" {
		return &ast.Expr{Kind: ast.ExprColumn, Name: "*"}, nil
	}

	if strings.HasSuffix(name, ".") && s.Peek() == '*' {
		s.Pos++
		name += "*"
	}
	qualifier, col := splitQualifier(name)
	if col == "*" {
		return &ast.Expr{Kind: ast.ExprColumn, Qualifier: qualifier, Name: "*"}, nil
	}
	_ = start
	return ast.Column(qualifier, col), nil
}

// parseWindowSpec parses "OVER (PARTITION BY e,... ORDER BY k [ASC|DESC],...)"
// with s positioned at "OVER".
func parseWindowSpec(s *lex.Scanner) (*ast.WindowSpec, error) {
	s.Pos += len("OVER")
	lex.SkipSpaces(s)
	if s.Peek() != '(' {
		return nil, errs.ErrSyntax.New("expected '(' after OVER")
	}
	s.Pos++
	ws := &ast.WindowSpec{}
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "PARTITION") {
		s.Pos += len("PARTITION")
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "BY") {
			s.Pos += len("BY")
		}
		for {
			lex.SkipSpaces(s)
			e, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			ws.PartitionBy = append(ws.PartitionBy, e)
			lex.SkipSpaces(s)
			if s.Peek() == ',' {
				s.Pos++
				continue
			}
			break
		}
	}
	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "ORDER") {
		s.Pos += len("ORDER")
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "BY") {
			s.Pos += len("BY")
		}
		for {
			lex.SkipSpaces(s)
			e, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			desc := false
			lex.SkipSpaces(s)
			if matchKeywordAt(s.Src, s.Pos, "DESC") {
				desc = true
				s.Pos += len("DESC")
			} else if matchKeywordAt(s.Src, s.Pos, "ASC") {
				s.Pos += len("ASC")
			}
			ws.OrderBy = append(ws.OrderBy, ast.OrderKey{Expr: e, Desc: desc})
			lex.SkipSpaces(s)
			if s.Peek() == ',' {
				s.Pos++
				continue
			}
			break
		}
	}
	lex.SkipSpaces(s)
	if s.Peek() != ')' {
		return nil, errs.ErrSyntax.New("expected ')' to close OVER")
	}
	s.Pos++
	return ws, nil
}

func splitQualifier(name string) (string, string) {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[:i], name[i+1:]
	}
	return "", name
}

// parseArgs parses a comma-separated argument list up to and including
// the closing ')'. A bare '*' argument (for COUNT(*)) is accepted.
func parseArgs(s *lex.Scanner) ([]*ast.Expr, error) {
	var args []*ast.Expr
	lex.SkipSpaces(s)
	if s.Peek() == ')' {
		s.Pos++
		return args, nil
	}
	for {
		lex.SkipSpaces(s)
		if s.Peek() == '*' {
			s.Pos++
			args = append(args, &ast.Expr{Kind: ast.ExprColumn, Name: "*"})
		} else {
			e, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			args = append(args, e)
		}
		lex.SkipSpaces(s)
		if s.Peek() == ',' {
			s.Pos++
			continue
		}
		if s.Peek() == ')' {
			s.Pos++
			return args, nil
		}
		return nil, errs.ErrSyntax.New("expected ',' or ')'" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
}

// parseCase parses "CASE WHEN <pred> THEN <expr> [...] [ELSE <expr>] END"
// with nested CASE support (each THEN/ELSE expr may itself be a CASE).
func parseCase(s *lex.Scanner) (*ast.Expr, error) {
	s.Pos += len("CASE")
	var whens []ast.WhenThen
	var elseExpr *ast.Expr
	for {
		lex.SkipSpaces(s)
		if matchKeywordAt(s.Src, s.Pos, "WHEN") {
			s.Pos += len("WHEN")
			pred, err := ParsePredicate(s)
			if err != nil {
				return nil, err
			}
			lex.SkipSpaces(s)
			if !matchKeywordAt(s.Src, s.Pos, "THEN") {
				return nil, errs.ErrSyntax.New("expected THEN" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
			}
			s.Pos += len("THEN")
			then, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			whens = append(whens, ast.WhenThen{When: pred, Then: then})
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "ELSE") {
			s.Pos += len("ELSE")
			e, err := ParseExpr(s)
			if err != nil {
				return nil, err
			}
			elseExpr = e
			lex.SkipSpaces(s)
			continue
		}
		if matchKeywordAt(s.Src, s.Pos, "END") {
			s.Pos += len("END")
			break
		}
		return nil, errs.ErrSyntax.New("expected WHEN, ELSE or END" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	if len(whens) == 0 {
		return nil, errs.ErrSyntax.New("CASE requires at least one WHEN clause")
	}
	return &ast.Expr{Kind: ast.ExprCase, WhenThens: whens, Else: elseExpr}, nil
}
