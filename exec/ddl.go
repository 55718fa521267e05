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
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/ident"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

// execDDL dispatches CREATE/DROP/RENAME statements (spec §4.4) against
// the store and catalog. Administrative object kinds the core carries
// only as a sidecar/metadata concern (SCRIPT, STORE, KEY — spec §1's
// non-goal scripting/user-role/on-disk-store collaborators) are accepted
// for call-shape compatibility and recorded as a status row; they have no
// storage-layer effect here.
func (e *Engine) execDDL(ctx *Context, d *ast.DDL) (*Batch, error) {
	switch d.Action {
	case ast.DDLCreate:
		return e.execCreate(ctx, d)
	case ast.DDLDrop:
		return e.execDrop(ctx, d)
	case ast.DDLRename:
		return e.execRename(ctx, d)
	}
	return nil, errs.ErrSyntax.New("unsupported DDL action")
}

func (e *Engine) execCreate(ctx *Context, d *ast.DDL) (*Batch, error) {
	switch d.Object {
	case ast.DDLDatabase:
		if _, err := e.Store.CreateDatabase(d.Name); err != nil {
			return nil, err
		}
		e.Cat.RegisterDB(d.Name)
		return statusBatch("create_database", 1), nil
	case ast.DDLSchema:
		// The store layer folds schema into the object path rather than
		// modeling it as a separate container (store.Catalog keys databases
		// only by name); CREATE SCHEMA validates the name and is otherwise
		// a no-op against storage.
		if _, err := ident.Normalize(d.Name, ctx.Session.Defaults(), false); err != nil {
			return nil, err
		}
		return statusBatch("create_schema", 1), nil
	case ast.DDLTable, ast.DDLTimeTable:
		return e.createTable(ctx, d)
	case ast.DDLView:
		return e.createView(ctx, d)
	case ast.DDLVectorIndex:
		return e.createVectorIndex(ctx, d)
	case ast.DDLGraph:
		return e.createGraph(ctx, d)
	case ast.DDLScript, ast.DDLStore, ast.DDLKey:
		return statusBatch("create_"+ddlObjectLabel(d.Object), 1), nil
	}
	return nil, errs.ErrSyntax.New("unsupported CREATE target")
}

func (e *Engine) createTable(ctx *Context, d *ast.DDL) (*Batch, error) {
	name, err := e.normalizeDefault(ctx, d.Name, d.Object == ast.DDLTimeTable)
	if err != nil {
		return nil, err
	}
	db, err := e.Store.Database(name.DB)
	if err != nil {
		return nil, err
	}

	schema := make(store.Schema, 0, len(d.Columns)+1)
	if d.Object == ast.DDLTimeTable {
		hasTime := false
		for _, c := range d.Columns {
			if c.Name == timeColumnName {
				hasTime = true
			}
		}
		if !hasTime {
			schema = append(schema, store.Column{Name: timeColumnName, Type: types.TimestampMs})
		}
	}
	for _, c := range d.Columns {
		dt, err := types.ColumnDType(c.Type)
		if err != nil {
			return nil, err
		}
		pk := false
		for _, k := range d.PrimaryKey {
			if k == c.Name {
				pk = true
			}
		}
		schema = append(schema, store.Column{Name: c.Name, Type: dt, Nullable: !pk})
	}

	tbl := store.NewMemTable(name.Object, schema)
	if err := db.CreateTable(name.Object, tbl); err != nil {
		return nil, err
	}
	return statusBatch("create_table", 1), nil
}

// createView registers a CREATE VIEW, rejecting a name collision with an
// existing table per spec §4.11. A MATCH-based view runs the rewriter at
// reference time (see resolveViewQuery) rather than storing a deparsed
// SELECT string, since the core carries no SQL deparser; SQL here holds a
// presentable stand-in for information_schema.views / pg_get_viewdef.
func (e *Engine) createView(ctx *Context, d *ast.DDL) (*Batch, error) {
	name, err := e.normalizeDefault(ctx, d.Name, false)
	if err != nil {
		return nil, err
	}
	if db, derr := e.Store.Database(name.DB); derr == nil {
		if _, terr := db.Table(name.Object); terr == nil {
			return nil, errs.ErrName.New("view " + d.Name + " collides with an existing table")
		}
	}

	v := &catalog.View{Name: d.Name, Namespace: name.DB}
	if d.ViewMatch != nil {
		v.Match = d.ViewMatch
		v.SQL = "MATCH (rewritten to graph_neighbors/graph_paths at reference time)"
	} else {
		v.SQL = d.ViewSQL
	}
	if err := e.Cat.CreateView(v); err != nil {
		return nil, err
	}
	return statusBatch("create_view", 1), nil
}

func (e *Engine) createVectorIndex(ctx *Context, d *ast.DDL) (*Batch, error) {
	vi := &catalog.VectorIndex{
		Name: d.Name, Table: d.VIndexTable, Column: d.VIndexColumn,
		Algo: d.VIndexAlgo, Metric: d.VIndexMetric, Dim: d.VIndexDim,
		Params: d.VIndexParams, Mode: catalog.VIndexMode(d.VIndexMode),
		State: catalog.VIndexReady,
	}
	if err := e.Cat.Sidecars.PutVectorIndex(vi); err != nil {
		return nil, err
	}
	return statusBatch("create_vector_index", 1), nil
}

func (e *Engine) createGraph(ctx *Context, d *ast.DDL) (*Batch, error) {
	gc := &catalog.GraphCatalog{Name: d.Name, Engine: catalog.GraphEngine(d.GraphEngine)}
	for _, n := range d.GraphNodes {
		gc.Nodes = append(gc.Nodes, catalog.GraphNode{
			Label: n.Label, Key: n.Key, Table: n.Table, KeyColumn: n.KeyColumn,
		})
	}
	for _, ed := range d.GraphEdges {
		gc.Edges = append(gc.Edges, catalog.GraphEdge{
			Type: ed.Type, From: ed.From, To: ed.To, Table: ed.Table,
			SrcColumn: ed.SrcColumn, DstColumn: ed.DstColumn,
			CostColumn: ed.CostColumn, TimeColumn: ed.TimeColumn,
		})
	}
	if gc.Engine == "" {
		gc.Engine = catalog.GraphEngineRelational
	}
	if err := e.Cat.Sidecars.PutGraph(gc); err != nil {
		return nil, err
	}
	return statusBatch("create_graph", 1), nil
}

func (e *Engine) execDrop(ctx *Context, d *ast.DDL) (*Batch, error) {
	switch d.Object {
	case ast.DDLDatabase, ast.DDLSchema:
		// Catalog-level containers are never physically dropped by this
		// core (spec §1 places database/schema lifecycle administration
		// outside the query core's covered surface); accepted for parser
		// completeness only.
		return statusBatch("drop_"+ddlObjectLabel(d.Object), 0), nil
	case ast.DDLTable, ast.DDLTimeTable:
		name, err := e.normalizeDefault(ctx, d.Name, d.Object == ast.DDLTimeTable)
		if err != nil {
			return nil, err
		}
		db, err := e.Store.Database(name.DB)
		if err != nil {
			return nil, err
		}
		if err := db.DropTable(name.Object); err != nil {
			return nil, err
		}
		return statusBatch("drop_table", 1), nil
	case ast.DDLView:
		if !e.Cat.DropView(d.Name) {
			return nil, errs.ErrName.New("view " + d.Name + " does not exist")
		}
		return statusBatch("drop_view", 1), nil
	case ast.DDLVectorIndex, ast.DDLGraph, ast.DDLScript, ast.DDLStore, ast.DDLKey:
		return statusBatch("drop_"+ddlObjectLabel(d.Object), 1), nil
	}
	return nil, errs.ErrSyntax.New("unsupported DROP target")
}

func (e *Engine) execRename(ctx *Context, d *ast.DDL) (*Batch, error) {
	switch d.Object {
	case ast.DDLTable, ast.DDLTimeTable:
		name, err := e.normalizeDefault(ctx, d.Name, d.Object == ast.DDLTimeTable)
		if err != nil {
			return nil, err
		}
		newName, err := e.normalizeDefault(ctx, d.NewName, d.Object == ast.DDLTimeTable)
		if err != nil {
			return nil, err
		}
		db, err := e.Store.Database(name.DB)
		if err != nil {
			return nil, err
		}
		tbl, err := db.Table(name.Object)
		if err != nil {
			return nil, err
		}
		if err := db.CreateTable(newName.Object, tbl); err != nil {
			return nil, err
		}
		if err := db.DropTable(name.Object); err != nil {
			return nil, err
		}
		return statusBatch("rename_table", 1), nil
	}
	return nil, errs.ErrSyntax.New("RENAME is only supported for tables")
}

func ddlObjectLabel(o ast.DDLObject) string {
	switch o {
	case ast.DDLDatabase:
		return "database"
	case ast.DDLSchema:
		return "schema"
	case ast.DDLTable:
		return "table"
	case ast.DDLTimeTable:
		return "time_table"
	case ast.DDLView:
		return "view"
	case ast.DDLVectorIndex:
		return "vector_index"
	case ast.DDLGraph:
		return "graph"
	case ast.DDLScript:
		return "script"
	case ast.DDLStore:
		return "store"
	case ast.DDLKey:
		return "key"
	}
	return "object"
}
