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

// Package errs defines the error taxonomy shared by every stage of the
// query core: parser, executor, ANN planner, graph engine and catalog.
// Each kind is a gopkg.in/src-d/go-errors.v1 Kind, following the same
// "var block of NewKind calls" convention the auth package uses.
package errs

import "gopkg.in/src-d/go-errors.v1"

var (
	// ErrSyntax is returned for any parser failure. Callers should format
	// the message with a position and a caret-annotated snippet, e.g.
	// ErrSyntax.New(fmt.Sprintf("%s\n%s", msg, lex.CaretSnippet(src, pos))).
	ErrSyntax = errors.NewKind("syntax error: %s")

	// ErrName covers unresolved identifiers, arity mismatches, duplicate
	// ORDER BY keys, and view/table name collisions.
	ErrName = errors.NewKind("name error: %s")

	// ErrType covers dtype mismatches, e.g. aggregating a string column
	// with SUM.
	ErrType = errors.NewKind("type error: %s")

	// ErrConstraint covers GROUP BY discipline violations, BY + GROUP BY
	// both present, and HAVING referencing a non-aggregated projection.
	ErrConstraint = errors.NewKind("constraint error: %s")

	// ErrUdf covers missing UDFs, arity mismatches detected at parse time
	// for the known function set, and (when not downgraded to NULL by the
	// null_on_error session flag) UDF execution failures.
	ErrUdf = errors.NewKind("udf error: %s")

	// ErrIndex covers out-of-bounds slicing; recovered as NULL at
	// execution time unless strict mode is set.
	ErrIndex = errors.NewKind("index error: %s")

	// ErrIO covers store or sidecar read/write failures. The message
	// carries the canonical name of the failing object.
	ErrIO = errors.NewKind("io error on %s: %s")

	// ErrCancelled is returned when a query's context deadline elapses or
	// it is explicitly cancelled.
	ErrCancelled = errors.NewKind("cancelled")

	// ErrIdent is returned by the identifier normalizer when a name
	// resolves to more than three logical path components.
	ErrIdent = errors.NewKind("invalid identifier %q: %s")
)
