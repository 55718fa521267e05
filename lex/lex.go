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

// Package lex provides character-by-character scanning helpers shared by
// the expression, predicate and command parsers. The core operates
// character-by-character rather than token-by-token so that dotted and
// slashed names, expr[a:b:c] slicing, expr::t1::t2 cast chains and
// f-string interpolation all survive a single scan.
package lex

import (
	"strings"

	"github.com/euanmacinnes/clarium/errs"
)

// Scanner walks a rune slice while tracking paren/bracket depth and quote
// state, so callers can find top-level delimiters without being confused
// by nested expressions or string literals.
type Scanner struct {
	Src  []rune
	Pos  int
}

// New returns a Scanner positioned at the start of src.
func New(src string) *Scanner {
	return &Scanner{Src: []rune(src)}
}

// Eof reports whether the scanner has consumed all input.
func (s *Scanner) Eof() bool { return s.Pos >= len(s.Src) }

// Peek returns the rune at the current position, or 0 at EOF.
func (s *Scanner) Peek() rune {
	if s.Eof() {
		return 0
	}
	return s.Src[s.Pos]
}

// PeekAt returns the rune at pos+offset, or 0 if out of range.
func (s *Scanner) PeekAt(offset int) rune {
	i := s.Pos + offset
	if i < 0 || i >= len(s.Src) {
		return 0
	}
	return s.Src[i]
}

// CaretSnippet renders a one-line "source\n    ^" annotation for error
// messages, matching the SyntaxError contract in spec §4.2.
func CaretSnippet(src string, pos int) string {
	runes := []rune(src)
	if pos < 0 {
		pos = 0
	}
	if pos > len(runes) {
		pos = len(runes)
	}
	return string(runes) + "\n" + strings.Repeat(" ", pos) + "^"
}

// SplitTopLevel splits src on sep wherever sep appears outside single and
// double quotes and outside parens/brackets, honoring '' as an escaped
// quote inside single-quoted runs. It is the workhorse behind UNION
// splitting, comma-separated SELECT lists, and clause boundary detection.
func SplitTopLevel(src string, sep rune) []string {
	var parts []string
	var cur strings.Builder
	depth := 0
	var inSingle, inDouble bool
	runes := []rune(src)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inSingle:
			cur.WriteRune(c)
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					cur.WriteRune(runes[i+1])
					i++
					continue
				}
				inSingle = false
			}
		case inDouble:
			cur.WriteRune(c)
			if c == '"' {
				inDouble = false
			}
		case c == '\'':
			inSingle = true
			cur.WriteRune(c)
		case c == '"':
			inDouble = true
			cur.WriteRune(c)
		case c == '(' || c == '[':
			depth++
			cur.WriteRune(c)
		case c == ')' || c == ']':
			depth--
			cur.WriteRune(c)
		case c == sep && depth == 0:
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(c)
		}
	}
	parts = append(parts, cur.String())
	return parts
}

// FindTopLevelKeyword returns the byte-rune index of the first
// case-insensitive whole-word occurrence of kw in src at paren/bracket
// depth 0 and outside quotes, starting the search at 'from'. Returns -1
// if not found. Used to locate clause boundaries (WHERE, GROUP BY, ...)
// and join keywords.
func FindTopLevelKeyword(src string, kw string, from int) int {
	runes := []rune(src)
	kwRunes := []rune(strings.ToUpper(kw))
	depth := 0
	var inSingle, inDouble bool
	for i := from; i < len(runes); i++ {
		c := runes[i]
		switch {
		case inSingle:
			if c == '\'' {
				if i+1 < len(runes) && runes[i+1] == '\'' {
					i++
					continue
				}
				inSingle = false
			}
			continue
		case inDouble:
			if c == '"' {
				inDouble = false
			}
			continue
		case c == '\'':
			inSingle = true
			continue
		case c == '"':
			inDouble = true
			continue
		case c == '(' || c == '[':
			depth++
			continue
		case c == ')' || c == ']':
			depth--
			continue
		}
		if depth != 0 {
			continue
		}
		if matchWord(runes, i, kwRunes) {
			return i
		}
	}
	return -1
}

func matchWord(runes []rune, i int, kw []rune) bool {
	if i+len(kw) > len(runes) {
		return false
	}
	for j, k := range kw {
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
	if i+len(kw) < len(runes) && isIdentRune(runes[i+len(kw)]) {
		return false
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// ReadQuotedString reads a '...' literal starting at s.Pos (which must be
// pointing at the opening quote), handling '' as an escaped apostrophe.
// It returns the unescaped content and advances s.Pos past the closing
// quote.
func ReadQuotedString(s *Scanner) (string, error) {
	if s.Peek() != '\'' {
		return "", errs.ErrSyntax.New("expected string literal" + "\n" + CaretSnippet(string(s.Src), s.Pos))
	}
	start := s.Pos
	s.Pos++
	var sb strings.Builder
	for {
		if s.Eof() {
			return "", errs.ErrSyntax.New("unterminated string literal" + "\n" + CaretSnippet(string(s.Src), start))
		}
		c := s.Peek()
		if c == '\'' {
			if s.PeekAt(1) == '\'' {
				sb.WriteRune('\'')
				s.Pos += 2
				continue
			}
			s.Pos++
			return sb.String(), nil
		}
		sb.WriteRune(c)
		s.Pos++
	}
}

// SkipSpaces advances s.Pos past any run of whitespace.
func SkipSpaces(s *Scanner) {
	for !s.Eof() {
		c := s.Peek()
		if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
			s.Pos++
			continue
		}
		break
	}
}

// ReadIdent reads a bare or double-quoted identifier starting at s.Pos.
func ReadIdent(s *Scanner) (string, error) {
	if s.Peek() == '"' {
		start := s.Pos
		s.Pos++
		var sb strings.Builder
		for {
			if s.Eof() {
				return "", errs.ErrSyntax.New("unterminated quoted identifier" + "\n" + CaretSnippet(string(s.Src), start))
			}
			c := s.Peek()
			if c == '"' {
				if s.PeekAt(1) == '"' {
					sb.WriteRune('"')
					s.Pos += 2
					continue
				}
				s.Pos++
				return sb.String(), nil
			}
			sb.WriteRune(c)
			s.Pos++
		}
	}
	start := s.Pos
	for !s.Eof() && (isIdentRune(s.Peek()) || s.Peek() == '.' || s.Peek() == '/') {
		s.Pos++
	}
	if s.Pos == start {
		return "", errs.ErrSyntax.New("expected identifier" + "\n" + CaretSnippet(string(s.Src), start))
	}
	return string(s.Src[start:s.Pos]), nil
}
