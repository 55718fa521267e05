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

package catalog

import (
	"sort"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

// View is a registered CREATE VIEW definition: either a stored SQL text
// or a MATCH pattern (rewritten to SELECT lazily by the match package).
type View struct {
	Name      string
	SQL       string
	Match     *ast.MatchPattern
	Namespace string
}

// Catalog is the process-wide system-table surface: it wraps a
// store.Catalog of real tables with view definitions and sidecar
// metadata, and renders the presentable information_schema/pg_catalog
// rows spec §6 requires.
type Catalog struct {
	Store    *store.Catalog
	Sidecars *SidecarStore

	views   map[string]*View
	dbNames []string
}

// New wraps an existing store.Catalog with an empty view/sidecar layer.
func New(st *store.Catalog, sidecarDir string) (*Catalog, error) {
	sc, err := NewSidecarStore(sidecarDir)
	if err != nil {
		return nil, err
	}
	return &Catalog{Store: st, Sidecars: sc, views: map[string]*View{}}, nil
}

// CreateView registers v, failing with ErrName on a duplicate name.
func (c *Catalog) CreateView(v *View) error {
	if _, ok := c.views[v.Name]; ok {
		return errs.ErrName.New("view " + v.Name + " already exists")
	}
	if c.views == nil {
		c.views = map[string]*View{}
	}
	c.views[v.Name] = v
	return nil
}

// View looks up a registered view by name.
func (c *Catalog) View(name string) (*View, bool) {
	v, ok := c.views[name]
	return v, ok
}

// DropView removes a registered view, reporting whether it existed.
func (c *Catalog) DropView(name string) bool {
	if _, ok := c.views[name]; !ok {
		return false
	}
	delete(c.views, name)
	return true
}

// InformationSchemaTables renders information_schema.tables: one row per
// base table across every database, plus one per registered view.
func (c *Catalog) InformationSchemaTables() []store.Row {
	var rows []store.Row
	for _, dbName := range c.storeDBNames() {
		db, _ := c.Store.Database(dbName)
		for _, tname := range db.TableNames() {
			rows = append(rows, store.Row{dbName, "public", tname, "BASE TABLE"})
		}
	}
	var vnames []string
	for name := range c.views {
		vnames = append(vnames, name)
	}
	sort.Strings(vnames)
	for _, name := range vnames {
		rows = append(rows, store.Row{"", "public", name, "VIEW"})
	}
	return rows
}

// InformationSchemaColumns renders information_schema.columns for every
// base table's schema.
func (c *Catalog) InformationSchemaColumns() []store.Row {
	var rows []store.Row
	for _, dbName := range c.storeDBNames() {
		db, _ := c.Store.Database(dbName)
		for _, tname := range db.TableNames() {
			tbl, _ := db.Table(tname)
			for i, col := range tbl.Schema() {
				rows = append(rows, store.Row{dbName, "public", tname, col.Name, int64(i + 1), dtypeSQLName(col.Type), col.Nullable})
			}
		}
	}
	return rows
}

// InformationSchemaViews renders information_schema.views.
func (c *Catalog) InformationSchemaViews() []store.Row {
	var rows []store.Row
	var names []string
	for name := range c.views {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := c.views[name]
		rows = append(rows, store.Row{"public", name, v.SQL})
	}
	return rows
}

// PgClass renders pg_catalog.pg_class: one row per base table (relkind
// 'r') and one per view (relkind 'v'), per spec §6.
func (c *Catalog) PgClass() []store.Row {
	var rows []store.Row
	oid := int64(16384) // first user-object OID, matching Postgres' convention
	for _, dbName := range c.storeDBNames() {
		db, _ := c.Store.Database(dbName)
		for _, tname := range db.TableNames() {
			rows = append(rows, store.Row{oid, tname, int64(NspPublic), RelkindTable})
			oid++
		}
	}
	var names []string
	for name := range c.views {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, store.Row{oid, name, int64(NspPublic), RelkindView})
		oid++
	}
	return rows
}

// PgGetViewdef implements pg_catalog.pg_get_viewdef(oid): resolve oid to
// a registered view's SQL text via PgClass's numbering, or return
// ok=false (NULL) for an unknown oid, per spec §6.
func (c *Catalog) PgGetViewdef(oid int64) (string, bool) {
	rows := c.PgClass()
	for _, r := range rows {
		if r[0].(int64) == oid && r[3].(string) == RelkindView {
			name := r[1].(string)
			if v, ok := c.views[name]; ok {
				return canonicalizeViewSQL(v.SQL), true
			}
		}
	}
	return "", false
}

// DatabaseNames returns every database name registered via RegisterDB,
// sorted, for SHOW DATABASES.
func (c *Catalog) DatabaseNames() []string {
	return c.dbNames
}

func (c *Catalog) storeDBNames() []string {
	// store.Catalog doesn't expose a name enumerator directly; callers
	// register databases through it, so the catalog tracks nothing extra
	// here and instead relies on the caller populating via RegisterDB.
	return c.dbNames
}

// RegisterDB records dbName as one InformationSchema/PgClass should walk;
// store.Catalog itself has no name-enumeration method since most callers
// resolve a single known database per session.
func (c *Catalog) RegisterDB(dbName string) {
	for _, n := range c.dbNames {
		if n == dbName {
			return
		}
	}
	c.dbNames = append(c.dbNames, dbName)
	sort.Strings(c.dbNames)
}

func dtypeSQLName(d types.DType) string {
	switch d {
	case types.Int64:
		return "bigint"
	case types.Float64:
		return "double precision"
	case types.Bool:
		return "boolean"
	case types.String:
		return "text"
	case types.TimestampMs:
		return "timestamp"
	case types.Vector:
		return "list<f32>"
	default:
		return "unknown"
	}
}
