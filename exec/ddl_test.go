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

package exec_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/exec"
	"github.com/euanmacinnes/clarium/store"
)

func newTestEngine(t *testing.T) (*exec.Engine, *exec.Context) {
	t.Helper()
	sc := store.NewCatalog()
	_, err := sc.CreateDatabase("clarium")
	require.NoError(t, err)
	cat, err := catalog.New(sc, "")
	require.NoError(t, err)
	cat.RegisterDB("clarium")
	e := exec.NewEngine(sc, cat)
	ctx := exec.NewContext(context.Background(), &exec.Session{DB: "clarium", Schema: "public"})
	return e, ctx
}

func TestCreateTableThenInsertSelect(t *testing.T) {
	e, ctx := newTestEngine(t)

	resp := e.Query(ctx, "CREATE TABLE widgets (id int, name text)")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "INSERT INTO widgets (id, name) VALUES (1, 'a')")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "SELECT id, name FROM widgets")
	require.Equal(t, "ok", resp.Status, resp.Error)
	require.Len(t, resp.Results.Rows, 1)
	assert.Equal(t, int64(1), resp.Results.Rows[0][0])
	assert.Equal(t, "a", resp.Results.Rows[0][1])
}

func TestCreateTimeTableAddsImplicitTimeColumn(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "CREATE TIME TABLE readings (value float)")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "DESCRIBE readings")
	require.Equal(t, "ok", resp.Status, resp.Error)
	var sawTime bool
	for _, r := range resp.Results.Rows {
		if r[0] == "_time" {
			sawTime = true
		}
	}
	assert.True(t, sawTime)
}

func TestCreateViewRejectsTableNameCollision(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "CREATE TABLE widgets (id int)")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "CREATE VIEW widgets AS SELECT id FROM widgets")
	require.Equal(t, "error", resp.Status)
}

func TestDropTable(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE widgets (id int)").Status)
	require.Equal(t, "ok", e.Query(ctx, "DROP TABLE widgets").Status)
	require.Equal(t, "error", e.Query(ctx, "DESCRIBE widgets").Status)
}

func TestRenameTable(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE widgets (id int)").Status)
	require.Equal(t, "ok", e.Query(ctx, "RENAME TABLE widgets TO gadgets").Status)
	require.Equal(t, "ok", e.Query(ctx, "DESCRIBE gadgets").Status)
}
