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

// Package ident canonicalizes table/view/graph identifiers to the
// db/schema/object path form used throughout the catalog and executor.
package ident

import (
	"fmt"
	"strings"

	"github.com/euanmacinnes/clarium/errs"
)

// Defaults holds the session's default db/schema, applied to any bare
// (less-than-three-segment) identifier.
type Defaults struct {
	DB     string
	Schema string
}

// Name is a canonicalized db/schema/object identifier. TimeTable is true
// when the identifier was normalized in a context where a trailing
// ".time" suffix is meaningful (time-table DDL/DML); regular paths never
// carry the suffix.
type Name struct {
	DB       string
	Schema   string
	Object   string
	TimeTable bool
}

// String renders the canonical "db/schema/object[.time]" form.
func (n Name) String() string {
	s := fmt.Sprintf("%s/%s/%s", n.DB, n.Schema, n.Object)
	if n.TimeTable {
		s += ".time"
	}
	return s
}

// Normalize canonicalizes a raw identifier: it strips a matching pair of
// double quotes (preserving the inner case), lowercases unquoted
// segments, accepts both dotted ("a.b.c") and slashed ("a/b/c") forms and
// unifies them to slashed, and fills in missing leading segments from
// def. forTimeTable indicates whether a trailing ".time" suffix should be
// recognized and preserved (only meaningful for time-table DDL/DML).
func Normalize(raw string, def Defaults, forTimeTable bool) (Name, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Name{}, errs.ErrIdent.New(raw, "empty identifier")
	}

	timeTable := false
	if forTimeTable && strings.HasSuffix(strings.ToLower(s), ".time") {
		// Only treat the suffix as the time-table marker if what
		// precedes it isn't itself a quoted segment ending in a
		// literal ".time" object name handled below via segment split.
		timeTable = true
		s = s[:len(s)-len(".time")]
	}

	segs, err := splitSegments(s)
	if err != nil {
		return Name{}, err
	}
	if len(segs) > 3 {
		return Name{}, errs.ErrIdent.New(raw, fmt.Sprintf("too many path segments (%d)", len(segs)))
	}

	for len(segs) < 3 {
		var prefix string
		switch len(segs) {
		case 1:
			prefix = def.Schema
		case 2:
			prefix = def.DB
		}
		segs = append([]string{prefix}, segs...)
	}

	return Name{
		DB:        segs[0],
		Schema:    segs[1],
		Object:    segs[2],
		TimeTable: timeTable,
	}, nil
}

// splitSegments splits a raw identifier on '.' or '/' at depth zero,
// treating a double-quoted run as a single segment whose case is
// preserved and whose quotes are stripped. Unquoted segments are
// lowercased.
func splitSegments(s string) ([]string, error) {
	var segs []string
	var cur strings.Builder
	inQuote := false
	quoted := false

	flush := func() {
		if quoted {
			segs = append(segs, cur.String())
		} else {
			segs = append(segs, strings.ToLower(cur.String()))
		}
		cur.Reset()
		quoted = false
	}

	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == '"':
			if inQuote && i+1 < len(runes) && runes[i+1] == '"' {
				cur.WriteRune('"')
				i++
				continue
			}
			inQuote = !inQuote
			quoted = true
		case (c == '.' || c == '/') && !inQuote:
			flush()
		default:
			cur.WriteRune(c)
		}
	}
	if inQuote {
		return nil, errs.ErrIdent.New(s, "unterminated quoted segment")
	}
	flush()

	out := make([]string, 0, len(segs))
	for _, seg := range segs {
		if seg != "" {
			out = append(out, seg)
		}
	}
	if len(out) == 0 {
		return nil, errs.ErrIdent.New(s, "no path segments")
	}
	return out, nil
}
