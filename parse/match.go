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

// parseMatch parses the restricted openCypher subset accepted by the
// core, per spec §4.10:
//
//	MATCH [SHORTEST] [USING GRAPH G] (s:Lbl {key: K})-[:Type*L..U]->(t:Lbl [{key: D}])
//	  [WHERE ...] RETURN ... [ORDER BY ...] [LIMIT n]
func parseMatch(s *lex.Scanner) (*ast.MatchPattern, error) {
	s.Pos += len("MATCH")
	m := &ast.MatchPattern{MinHops: 1, MaxHops: 1}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "SHORTEST") {
		m.Shortest = true
		s.Pos += len("SHORTEST")
		lex.SkipSpaces(s)
	}
	if matchKeywordAt(s.Src, s.Pos, "USING") {
		s.Pos += len("USING")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "GRAPH") {
			return nil, errs.ErrSyntax.New("expected GRAPH after USING")
		}
		s.Pos += len("GRAPH")
		lex.SkipSpaces(s)
		g, err := lex.ReadIdent(s)
		if err != nil {
			return nil, err
		}
		m.Graph = g
		lex.SkipSpaces(s)
	}

	if s.Peek() != '(' {
		return nil, errs.ErrSyntax.New("expected '(' for start node pattern" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos++
	startText, err := readBalancedParenContent(s)
	if err != nil {
		return nil, err
	}
	startLabel, startKey, err := parseNodePattern(startText)
	if err != nil {
		return nil, err
	}
	m.StartLabel = startLabel
	m.StartKeyLit = startKey

	lex.SkipSpaces(s)
	if s.Peek() != '-' || s.PeekAt(1) != '[' {
		return nil, errs.ErrSyntax.New("expected -[:Type*L..U]-> after start node")
	}
	s.Pos += 2
	relText, err := readUntilRune(s, ']')
	if err != nil {
		return nil, err
	}
	etype, minHops, maxHops, err := parseRelPattern(relText)
	if err != nil {
		return nil, err
	}
	m.EdgeType = etype
	m.MinHops = minHops
	m.MaxHops = maxHops

	if s.Peek() != ']' {
		return nil, errs.ErrSyntax.New("expected ']'")
	}
	s.Pos++
	if s.Peek() != '-' || s.PeekAt(1) != '>' {
		return nil, errs.ErrSyntax.New("expected ->")
	}
	s.Pos += 2

	lex.SkipSpaces(s)
	if s.Peek() != '(' {
		return nil, errs.ErrSyntax.New("expected '(' for end node pattern")
	}
	s.Pos++
	endText, err := readBalancedParenContent(s)
	if err != nil {
		return nil, err
	}
	endLabel, endKey, err := parseNodePattern(endText)
	if err != nil {
		return nil, err
	}
	m.EndLabel = endLabel
	m.EndKeyLit = endKey

	if m.Shortest && m.EndKeyLit == nil {
		return nil, errs.ErrSyntax.New("MATCH SHORTEST requires a destination key")
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "WHERE") {
		s.Pos += len("WHERE")
		rest := string(s.Src[s.Pos:])
		end := nextClauseBoundary(rest, []string{"RETURN"})
		body := rest
		if end >= 0 {
			body = rest[:end]
		}
		where, err := ParsePredicate(lex.New(strings.TrimSpace(body)))
		if err != nil {
			return nil, err
		}
		m.Where = where
		if end >= 0 {
			s.Pos += end
		} else {
			s.Pos = len(s.Src)
		}
	}

	lex.SkipSpaces(s)
	if !matchKeywordAt(s.Src, s.Pos, "RETURN") {
		return nil, errs.ErrSyntax.New("expected RETURN" + "\n" + lex.CaretSnippet(string(s.Src), s.Pos))
	}
	s.Pos += len("RETURN")
	items, err := parseProjectionList(s, []string{"ORDER", "LIMIT"})
	if err != nil {
		return nil, err
	}
	m.Return = items

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "ORDER") {
		s.Pos += len("ORDER")
		lex.SkipSpaces(s)
		if !matchKeywordAt(s.Src, s.Pos, "BY") {
			return nil, errs.ErrSyntax.New("expected BY after ORDER")
		}
		s.Pos += len("BY")
		keys, _, _, err := parseOrderByList(s)
		if err != nil {
			return nil, err
		}
		m.OrderBy = keys
	}

	lex.SkipSpaces(s)
	if matchKeywordAt(s.Src, s.Pos, "LIMIT") {
		s.Pos += len("LIMIT")
		lex.SkipSpaces(s)
		n, err := parseSignedInt(s)
		if err != nil {
			return nil, err
		}
		m.Limit = &n
	}

	return m, nil
}

func readUntilRune(s *lex.Scanner, r rune) (string, error) {
	start := s.Pos
	for !s.Eof() && s.Peek() != r {
		s.Pos++
	}
	if s.Eof() {
		return "", errs.ErrSyntax.New("unterminated pattern")
	}
	return string(s.Src[start:s.Pos]), nil
}

// parseNodePattern parses "Lbl {key: K}" or "Lbl" content (braces and
// parens already stripped by the caller).
func parseNodePattern(text string) (label string, keyLit *ast.Expr, err error) {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, ':'); i >= 0 && strings.IndexByte(text, '{') < 0 {
		label = strings.TrimSpace(text[i+1:]) // ":Lbl" or "var:Lbl" form (no braces)
		return label, nil, nil
	}
	// "var:Lbl {key: K}" or ":Lbl {key: K}"
	braceIdx := strings.IndexByte(text, '{')
	head := text
	body := ""
	if braceIdx >= 0 {
		head = text[:braceIdx]
		body = strings.TrimSuffix(strings.TrimSpace(text[braceIdx+1:]), "}")
	}
	head = strings.TrimSpace(head)
	if ci := strings.IndexByte(head, ':'); ci >= 0 {
		label = strings.TrimSpace(head[ci+1:])
	} else {
		label = head
	}
	if body != "" {
		if ci := strings.IndexByte(body, ':'); ci >= 0 {
			valText := strings.TrimSpace(body[ci+1:])
			e, perr := ParseExpr(lex.New(valText))
			if perr != nil {
				return "", nil, perr
			}
			keyLit = e
		}
	}
	return label, keyLit, nil
}

// parseRelPattern parses ":Type*L..U" (both Type and the hop range are
// optional; a bare "*" defaults to 1..1).
func parseRelPattern(text string) (etype string, minHops, maxHops int, err error) {
	text = strings.TrimSpace(text)
	minHops, maxHops = 1, 1
	star := strings.IndexByte(text, '*')
	head := text
	rangeText := ""
	if star >= 0 {
		head = text[:star]
		rangeText = text[star+1:]
	}
	head = strings.TrimSpace(head)
	head = strings.TrimPrefix(head, ":")
	etype = strings.TrimSpace(head)
	rangeText = strings.TrimSpace(rangeText)
	if rangeText != "" {
		parts := strings.SplitN(rangeText, "..", 2)
		if len(parts) == 2 {
			lo, e1 := strconv.Atoi(strings.TrimSpace(parts[0]))
			hi, e2 := strconv.Atoi(strings.TrimSpace(parts[1]))
			if e1 != nil || e2 != nil {
				return "", 0, 0, errs.ErrSyntax.New("invalid hop range " + rangeText)
			}
			minHops, maxHops = lo, hi
		} else {
			n, e1 := strconv.Atoi(rangeText)
			if e1 != nil {
				return "", 0, 0, errs.ErrSyntax.New("invalid hop count " + rangeText)
			}
			minHops, maxHops = n, n
		}
	}
	return etype, minHops, maxHops, nil
}
