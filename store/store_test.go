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

package store_test

import (
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euanmacinnes/clarium/ident"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

func schema() store.Schema {
	return store.Schema{
		{Name: "id", Type: types.Int64},
		{Name: "name", Type: types.String, Nullable: true},
	}
}

func TestMemTableInsertScan(t *testing.T) {
	tbl := store.NewMemTable("widgets", schema())
	require.NoError(t, tbl.Insert(store.Row{int64(1), "a"}))
	require.NoError(t, tbl.Insert(store.Row{int64(2), "b"}))

	it, err := tbl.Scan()
	require.NoError(t, err)
	var rows []store.Row
	for {
		r, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, r)
	}
	assert.Len(t, rows, 2)
	assert.Equal(t, "widgets", tbl.Name())
}

func TestMemTableInsertArityError(t *testing.T) {
	tbl := store.NewMemTable("widgets", schema())
	err := tbl.Insert(store.Row{int64(1)})
	require.Error(t, err)
}

func TestMemTableUpdateDelete(t *testing.T) {
	tbl := store.NewMemTable("widgets", schema())
	require.NoError(t, tbl.Insert(store.Row{int64(1), "a"}))
	require.NoError(t, tbl.Insert(store.Row{int64(2), "b"}))

	n, err := tbl.Update(
		func(r store.Row) bool { return r[0] == int64(1) },
		func(r store.Row) store.Row { r[1] = "updated"; return r },
	)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = tbl.Delete(func(r store.Row) bool { return r[0] == int64(2) })
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	it, _ := tbl.Scan()
	var rows []store.Row
	for {
		r, err := it.Next()
		if err == io.EOF {
			break
		}
		rows = append(rows, r)
	}
	require.Len(t, rows, 1)
	assert.Equal(t, "updated", rows[0][1])
}

func TestDatabaseCreateTableDuplicate(t *testing.T) {
	db := store.NewDatabase("app")
	require.NoError(t, db.CreateTable("widgets", store.NewMemTable("widgets", schema())))
	err := db.CreateTable("widgets", store.NewMemTable("widgets", schema()))
	require.Error(t, err)
}

func TestCatalogResolveDefaults(t *testing.T) {
	cat := store.NewCatalog()
	db, err := cat.CreateDatabase("app")
	require.NoError(t, err)
	require.NoError(t, db.CreateTable("widgets", store.NewMemTable("widgets", schema())))

	_, tbl, err := cat.Resolve(ident.Defaults{DB: "app", Schema: "public"}, "widgets")
	require.NoError(t, err)
	assert.Equal(t, "widgets", tbl.Name())

	_, _, err = cat.Resolve(ident.Defaults{DB: "app", Schema: "public"}, "missing")
	require.Error(t, err)
}

func TestLockOrderDeterministicAcrossWriters(t *testing.T) {
	// Two writers naming the same tables in opposite order must still
	// acquire their locks in the same global order, or they can deadlock
	// (spec §5). LockOrder is the single source of that order.
	a := store.LockOrder("zeta", "alpha", "mu")
	b := store.LockOrder("mu", "zeta", "alpha")
	assert.Equal(t, a, b)
	assert.Equal(t, []string{"alpha", "mu", "zeta"}, a)
}

func TestLockOrderNoDeadlockUnderConcurrency(t *testing.T) {
	locks := map[string]*sync.Mutex{"alpha": {}, "mu": {}, "zeta": {}}
	acquire := func(names ...string) {
		for _, n := range store.LockOrder(names...) {
			locks[n].Lock()
		}
		for _, n := range store.LockOrder(names...) {
			locks[n].Unlock()
		}
	}
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); acquire("zeta", "alpha") }()
	go func() { defer wg.Done(); acquire("alpha", "zeta") }()
	wg.Wait()
}
