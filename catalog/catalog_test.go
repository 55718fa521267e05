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

package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/store"
	"github.com/euanmacinnes/clarium/types"
)

func newTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	sc := store.NewCatalog()
	db, err := sc.CreateDatabase("app")
	require.NoError(t, err)
	require.NoError(t, db.CreateTable("widgets", store.NewMemTable("widgets", store.Schema{
		{Name: "id", Type: types.Int64},
		{Name: "name", Type: types.String, Nullable: true},
	})))
	c, err := catalog.New(sc, "")
	require.NoError(t, err)
	c.RegisterDB("app")
	return c
}

func TestInformationSchemaTablesAndColumns(t *testing.T) {
	c := newTestCatalog(t)
	rows := c.InformationSchemaTables()
	require.Len(t, rows, 1)
	assert.Equal(t, "widgets", rows[0][2])

	cols := c.InformationSchemaColumns()
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0][3])
	assert.Equal(t, "bigint", cols[0][5])
}

func TestCreateViewAndPgClass(t *testing.T) {
	c := newTestCatalog(t)
	require.NoError(t, c.CreateView(&catalog.View{Name: "widget_names", SQL: "SELECT name FROM widgets"}))
	err := c.CreateView(&catalog.View{Name: "widget_names", SQL: "SELECT name FROM widgets"})
	require.Error(t, err)

	rows := c.PgClass()
	var sawView, sawTable bool
	for _, r := range rows {
		if r[1] == "widget_names" && r[3] == catalog.RelkindView {
			sawView = true
		}
		if r[1] == "widgets" && r[3] == catalog.RelkindTable {
			sawTable = true
		}
	}
	assert.True(t, sawView)
	assert.True(t, sawTable)
}

func TestPgGetViewdefUnknownOidIsNull(t *testing.T) {
	c := newTestCatalog(t)
	_, ok := c.PgGetViewdef(999999)
	assert.False(t, ok)
}

func TestFormatTypeAndToRegtype(t *testing.T) {
	name, ok := catalog.FormatType(catalog.OIDInt8, 0)
	require.True(t, ok)
	assert.Equal(t, "bigint", name)

	oid, ok := catalog.ToRegtype("int8")
	require.True(t, ok)
	assert.Equal(t, catalog.OIDInt8, oid)

	_, ok = catalog.ToRegtype("not_a_type")
	assert.False(t, ok)
}

func TestEdgeCostDefaultsWhenNoCostColumn(t *testing.T) {
	e := catalog.GraphEdge{Type: "CALLS", From: "Host", To: "Host"}
	cost := catalog.EdgeCost(e, map[string]interface{}{})
	assert.Equal(t, catalog.EdgeDefaultCost, cost)

	e.CostColumn = "weight"
	cost = catalog.EdgeCost(e, map[string]interface{}{"weight": 2.5})
	assert.Equal(t, 2.5, cost)
}

func TestSidecarStoreVectorIndexLookup(t *testing.T) {
	dir := t.TempDir()
	sc, err := catalog.NewSidecarStore(dir)
	require.NoError(t, err)
	require.NoError(t, sc.PutVectorIndex(&catalog.VectorIndex{
		Name: "docs_idx", Table: "docs", Column: "body",
		Algo: "HNSW", Metric: "l2", Dim: 3, State: catalog.VIndexReady,
	}))
	v, ok := sc.VectorIndexFor("docs", "body")
	require.True(t, ok)
	assert.Equal(t, catalog.VIndexReady, v.State)

	_, ok = sc.VectorIndexFor("docs", "missing_col")
	assert.False(t, ok)
}
