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

// Package store defines the abstract storage adapter the executor reads
// and writes through, plus an in-memory reference implementation. Tables,
// time tables and graph edge/node tables are all plain Tables at this
// layer; the distinction lives in the catalog.
package store

import (
	"io"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/ident"
	"github.com/euanmacinnes/clarium/types"
)

// Column is one column definition in a Table's Schema.
type Column struct {
	Name     string
	Type     types.DType
	Nullable bool
}

// Schema is an ordered list of Columns.
type Schema []Column

// IndexOf returns the position of name in the schema, or -1.
func (s Schema) IndexOf(name string) int {
	for i, c := range s {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// Row is one record: values positionally aligned with a Table's Schema.
type Row []types.Value

// RowIter streams rows from a Scan call; callers must Close it.
type RowIter interface {
	Next() (Row, error)
	Close() error
}

// Table is the minimal interface the executor needs from a storage
// adapter: schema introspection plus scan/mutate operations. A real
// deployment backs this with whatever the catalog's DDL names (relational
// table, time table, vector sidecar, graph edge/node table); the in-memory
// implementation here backs every DDLObject kind the parser accepts.
type Table interface {
	Name() string
	Schema() Schema
	Scan() (RowIter, error)
	Insert(row Row) error
	Update(pred func(Row) bool, apply func(Row) Row) (int, error)
	Delete(pred func(Row) bool) (int, error)
}

// sliceIter is a RowIter over an in-memory snapshot of rows.
type sliceIter struct {
	rows []Row
	pos  int
}

func (it *sliceIter) Next() (Row, error) {
	if it.pos >= len(it.rows) {
		return nil, io.EOF
	}
	r := it.rows[it.pos]
	it.pos++
	return r, nil
}

func (it *sliceIter) Close() error { return nil }

// MemTable is the in-memory reference Table implementation, grounded on
// the teacher's memory.Table: a name, a fixed schema, and a guarded row
// slice. Unlike the teacher it has no partitioning, since the executor
// drives concurrency at the statement level (spec §5).
type MemTable struct {
	mu     sync.RWMutex
	name   string
	schema Schema
	rows   []Row
}

// NewMemTable constructs an empty table with the given name and schema.
func NewMemTable(name string, schema Schema) *MemTable {
	return &MemTable{name: name, schema: schema}
}

func (t *MemTable) Name() string   { return t.name }
func (t *MemTable) Schema() Schema { return t.schema }

// Scan returns a RowIter over a point-in-time snapshot of the table's
// rows, so concurrent writers never invalidate an in-flight iteration.
func (t *MemTable) Scan() (RowIter, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	snap := make([]Row, len(t.rows))
	copy(snap, t.rows)
	return &sliceIter{rows: snap}, nil
}

// Insert appends row, type-checking it against the schema's width.
func (t *MemTable) Insert(row Row) error {
	if len(row) != len(t.schema) {
		return errs.ErrConstraint.New("row has " + itoa(len(row)) + " values, schema has " + itoa(len(t.schema)) + " columns")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows = append(t.rows, row)
	return nil
}

// Update rewrites every row for which pred returns true with apply(row),
// returning the count of rows touched.
func (t *MemTable) Update(pred func(Row) bool, apply func(Row) Row) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for i, r := range t.rows {
		if pred(r) {
			t.rows[i] = apply(r)
			n++
		}
	}
	return n, nil
}

// Delete removes every row for which pred returns true, returning the
// count removed.
func (t *MemTable) Delete(pred func(Row) bool) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.rows[:0]
	n := 0
	for _, r := range t.rows {
		if pred(r) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	t.rows = kept
	return n, nil
}

// Database is a named collection of Tables, guarded for concurrent
// CREATE/DROP against concurrent lookups.
type Database struct {
	mu     sync.RWMutex
	name   string
	tables map[string]Table
}

// NewDatabase returns an empty named Database.
func NewDatabase(name string) *Database {
	return &Database{name: name, tables: map[string]Table{}}
}

func (d *Database) Name() string { return d.name }

// CreateTable registers t under name, failing with ErrName if one already
// exists (spec §4.4 CREATE TABLE semantics: no implicit replace).
func (d *Database) CreateTable(name string, t Table) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; ok {
		return errs.ErrName.New("table " + name + " already exists")
	}
	d.tables[name] = t
	return nil
}

// DropTable removes name, failing with ErrName if it doesn't exist.
func (d *Database) DropTable(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tables[name]; !ok {
		return errs.ErrName.New("table " + name + " does not exist")
	}
	delete(d.tables, name)
	return nil
}

// Table looks up a table by name, failing with ErrName if absent.
func (d *Database) Table(name string) (Table, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tables[name]
	if !ok {
		return nil, errs.ErrName.New("table " + name + " does not exist")
	}
	return t, nil
}

// TableNames returns every registered table name, sorted.
func (d *Database) TableNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.tables))
	for n := range d.tables {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Catalog holds every Database known to a session, keyed by canonical
// "db" (or "db/schema") name per ident.Normalize.
type Catalog struct {
	mu  sync.RWMutex
	dbs map[string]*Database
}

// NewCatalog returns an empty Catalog.
func NewCatalog() *Catalog {
	return &Catalog{dbs: map[string]*Database{}}
}

// CreateDatabase registers a new empty Database, failing with ErrName on
// a duplicate.
func (c *Catalog) CreateDatabase(name string) (*Database, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.dbs[name]; ok {
		return nil, errs.ErrName.New("database " + name + " already exists")
	}
	db := NewDatabase(name)
	c.dbs[name] = db
	return db, nil
}

// Database returns the named Database, failing with ErrName if absent.
func (c *Catalog) Database(name string) (*Database, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	db, ok := c.dbs[name]
	if !ok {
		return nil, errs.ErrName.New("database " + name + " does not exist")
	}
	return db, nil
}

// Resolve splits a canonicalized identifier and locates its table,
// defaulting db/schema per ident.Defaults (spec §4.1).
func (c *Catalog) Resolve(defaults ident.Defaults, raw string) (*Database, Table, error) {
	name, err := ident.Normalize(raw, defaults, false)
	if err != nil {
		return nil, nil, errors.Wrap(err, "resolving "+raw)
	}
	db, err := c.Database(name.DB)
	if err != nil {
		return nil, nil, err
	}
	tbl, err := db.Table(name.Object)
	if err != nil {
		return nil, nil, err
	}
	return db, tbl, nil
}

// LockOrder returns names sorted into the canonical acquisition order
// every writer must follow (spec §5): two transactions that each touch
// the same set of tables, even if named in opposite order in their
// statements, always acquire their locks in this same order and so never
// deadlock against each other.
func LockOrder(names ...string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
