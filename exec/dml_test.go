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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateAppliesAssignmentsUnderWhere(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE widgets (id int, name text)").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO widgets (id, name) VALUES (1, 'a')").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO widgets (id, name) VALUES (2, 'b')").Status)

	resp := e.Query(ctx, "UPDATE widgets SET name = 'updated' WHERE id = 1")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "SELECT name FROM widgets WHERE id = 1")
	require.Equal(t, "ok", resp.Status, resp.Error)
	require.Len(t, resp.Results.Rows, 1)
	assert.Equal(t, "updated", resp.Results.Rows[0][0])
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE widgets (id int)").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO widgets (id) VALUES (1)").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO widgets (id) VALUES (2)").Status)

	resp := e.Query(ctx, "DELETE FROM widgets WHERE id = 1")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "SELECT id FROM widgets")
	require.Equal(t, "ok", resp.Status, resp.Error)
	require.Len(t, resp.Results.Rows, 1)
	assert.Equal(t, int64(2), resp.Results.Rows[0][0])
}

func TestInsertSelect(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE src (id int)").Status)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE dst (id int)").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO src (id) VALUES (1)").Status)
	require.Equal(t, "ok", e.Query(ctx, "INSERT INTO src (id) VALUES (2)").Status)

	resp := e.Query(ctx, "INSERT INTO dst (id) SELECT id FROM src")
	require.Equal(t, "ok", resp.Status, resp.Error)

	resp = e.Query(ctx, "SELECT id FROM dst")
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Len(t, resp.Results.Rows, 2)
}
