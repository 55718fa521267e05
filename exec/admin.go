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

package exec

import (
	"strconv"
	"strings"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
)

// execUseSet applies a USE or SET statement to the session in place: USE
// switches the session's default db/schema or graph (spec §4.1); SET
// toggles one of the two error-downgrade flags spec §7 defines.
func (e *Engine) execUseSet(ctx *Context, u *ast.UseSet) (*Batch, error) {
	if !u.IsSet {
		if u.Graph != "" {
			ctx.Session.Graph = u.Graph
			return statusBatch("use_graph", 1), nil
		}
		ctx.Session.DB = u.DB
		if u.Schema != "" {
			ctx.Session.Schema = u.Schema
		}
		return statusBatch("use", 1), nil
	}
	switch strings.ToLower(u.Key) {
	case "strict_projection":
		v, err := strconv.ParseBool(u.Value)
		if err != nil {
			return nil, errs.ErrSyntax.New("strict_projection expects a boolean value")
		}
		ctx.Session.StrictProjection = v
	case "null_on_error":
		v, err := strconv.ParseBool(u.Value)
		if err != nil {
			return nil, errs.ErrSyntax.New("null_on_error expects a boolean value")
		}
		ctx.Session.NullOnError = v
	default:
		return nil, errs.ErrName.New("unknown session setting " + u.Key)
	}
	return statusBatch("set", 1), nil
}

// execShow renders SHOW/DESCRIBE introspection output from the catalog,
// per spec §6's information_schema-flavored surface.
func (e *Engine) execShow(ctx *Context, s *ast.Show) (*Batch, error) {
	if s.IsDescribe {
		return e.describeTable(ctx, s.What)
	}
	switch strings.ToUpper(strings.TrimSpace(s.What)) {
	case "TABLES":
		b := NewBatch([]ColRef{{Name: "database"}, {Name: "schema"}, {Name: "name"}, {Name: "kind"}})
		for _, r := range e.Cat.InformationSchemaTables() {
			b.Rows = append(b.Rows, Row(r))
		}
		return b, nil
	case "DATABASES":
		b := NewBatch([]ColRef{{Name: "name"}})
		for _, name := range e.Cat.DatabaseNames() {
			b.Rows = append(b.Rows, Row{name})
		}
		return b, nil
	case "VIEWS":
		b := NewBatch([]ColRef{{Name: "schema"}, {Name: "name"}, {Name: "definition"}})
		for _, r := range e.Cat.InformationSchemaViews() {
			b.Rows = append(b.Rows, Row(r))
		}
		return b, nil
	}
	return e.describeTable(ctx, s.What)
}

func (e *Engine) describeTable(ctx *Context, name string) (*Batch, error) {
	_, tbl, err := e.Store.Resolve(ctx.Session.Defaults(), name)
	if err != nil {
		return nil, err
	}
	b := NewBatch([]ColRef{{Name: "column"}, {Name: "type"}, {Name: "nullable"}})
	for _, c := range tbl.Schema() {
		b.Rows = append(b.Rows, Row{c.Name, c.Type.String(), c.Nullable})
	}
	return b, nil
}

// execLoad accepts a LOAD statement for call-shape compatibility. The
// on-disk parquet store LOAD reads from is an explicit external
// collaborator (spec §1's non-goal list), so the core has nothing to
// open here; it validates the target table exists and reports the
// statement as accepted.
func (e *Engine) execLoad(ctx *Context, l *ast.Load) (*Batch, error) {
	if _, _, err := e.Store.Resolve(ctx.Session.Defaults(), l.Table); err != nil {
		return nil, err
	}
	return statusBatch("load", 0), nil
}

// execGCGraph revalidates every registered graph's backend by attempting
// to open it, surfacing a stale or corrupt graphstore sidecar as a
// reclaimed/unreclaimed count rather than leaving it to surface lazily on
// the next graph_neighbors/graph_paths call.
func (e *Engine) execGCGraph(ctx *Context) (*Batch, error) {
	names := e.Cat.Sidecars.GraphNames()
	var ok, failed int64
	for _, name := range names {
		if _, _, err := e.openGraphBackend(ctx, name); err != nil {
			failed++
			continue
		}
		ok++
	}
	b := NewBatch([]ColRef{{Name: "checked"}, {Name: "failed"}})
	b.Rows = append(b.Rows, Row{ok, failed})
	return b, nil
}

// execUser accepts USER ADD/ALTER/DELETE for call-shape compatibility.
// User/role management is an explicit external collaborator (spec §1's
// non-goal list); the core has no authentication surface to update, so
// this only validates the statement shape and reports it as accepted.
func (e *Engine) execUser(ctx *Context, u *ast.UserOp) (*Batch, error) {
	if u.Username == "" {
		return nil, errs.ErrSyntax.New("USER statement requires a username")
	}
	return statusBatch("user_"+strings.ToLower(u.Action), 1), nil
}
