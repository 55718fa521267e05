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
	"github.com/opentracing/opentracing-go"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/match"
	"github.com/euanmacinnes/clarium/parse"
	"github.com/euanmacinnes/clarium/store"
)

// Engine is the top-level query-execution handle analogous to the
// teacher's *sqle.Engine: it owns the table store, the sidecar/view
// catalog and the UDF registry, and exposes one entry point (Query) that
// parses and runs a single statement.
type Engine struct {
	Store *store.Catalog
	Cat   *catalog.Catalog
	UDFs  Registry
}

// NewEngine wires st and cat together behind a default (no scripting
// runtime registered) UDF registry.
func NewEngine(st *store.Catalog, cat *catalog.Catalog) *Engine {
	return &Engine{Store: st, Cat: cat, UDFs: EmptyRegistry{}}
}

// Query parses sql and executes the resulting command, returning the
// response envelope the CLI boundary consumes (spec §6).
func (e *Engine) Query(ctx *Context, sql string) Response {
	cmd, err := parse.ParseCommand(sql)
	if err != nil {
		return Err(err)
	}
	b, err := e.Execute(ctx, cmd)
	if err != nil {
		return Err(err)
	}
	return OK(b)
}

// Execute runs a single parsed command and returns its resulting batch.
// DML/DDL/administrative commands return a small status batch (spec
// §4.6's "INTO"/"affected rows" convention); SELECT-family commands
// return their full result set.
func (e *Engine) Execute(ctx *Context, cmd *ast.Command) (*Batch, error) {
	ctx.Log.WithField("kind", cmd.Kind).Trace("exec: dispatch command")
	if ctx.Tracer != nil {
		span := ctx.Tracer.StartSpan("exec.Execute")
		span.SetTag("command.kind", cmd.Kind)
		defer span.Finish()
	}
	switch cmd.Kind {
	case ast.CmdSelect:
		if cmd.Select == nil {
			return nil, errs.ErrSyntax.New("command carries no query")
		}
		return e.ExecuteQuery(ctx, cmd.Select, nil)
	case ast.CmdSlice:
		return e.execSliceStatement(ctx, cmd.Slice)
	case ast.CmdMatch:
		q, err := match.Rewrite(cmd.Match, ctx.Session.Graph)
		if err != nil {
			return nil, err
		}
		return e.ExecuteQuery(ctx, q, nil)
	case ast.CmdInsert, ast.CmdUpdate, ast.CmdDelete:
		return e.execDML(ctx, cmd.Kind, cmd.DML)
	case ast.CmdCreate, ast.CmdDrop, ast.CmdRename:
		return e.execDDL(ctx, cmd.DDL)
	case ast.CmdUse, ast.CmdSet:
		return e.execUseSet(ctx, cmd.UseSet)
	case ast.CmdShow, ast.CmdDescribe:
		return e.execShow(ctx, cmd.Show)
	case ast.CmdLoad:
		return e.execLoad(ctx, cmd.Load)
	case ast.CmdGCGraph:
		return e.execGCGraph(ctx)
	case ast.CmdUserAdd, ast.CmdUserAlter, ast.CmdUserDelete:
		return e.execUser(ctx, cmd.User)
	}
	return nil, errs.ErrSyntax.New("unsupported command")
}

// scope carries the CTEs visible to the query currently executing, so a
// table reference inside a subquery or TVF argument can resolve a WITH
// name before falling back to the catalog/store.
type scope struct {
	ctes map[string]*Batch
}

func (e *Engine) parseSelectText(sql string) (*ast.Command, error) {
	return parse.ParseCommand(sql)
}

func statusBatch(label string, n int) *Batch {
	b := NewBatch([]ColRef{{Name: label}, {Name: "count"}})
	b.Rows = append(b.Rows, Row{label, int64(n)})
	return b
}
