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

func TestUseSwitchesSessionDefaults(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "USE clarium")
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.Equal(t, "clarium", ctx.Session.DB)
}

func TestSetTogglesNullOnError(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "SET null_on_error = true")
	require.Equal(t, "ok", resp.Status, resp.Error)
	assert.True(t, ctx.Session.NullOnError)
}

func TestSetUnknownKeyErrors(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "SET bogus_key = true")
	assert.Equal(t, "error", resp.Status)
}

func TestShowTablesListsCreatedTable(t *testing.T) {
	e, ctx := newTestEngine(t)
	require.Equal(t, "ok", e.Query(ctx, "CREATE TABLE widgets (id int)").Status)
	resp := e.Query(ctx, "SHOW TABLES")
	require.Equal(t, "ok", resp.Status, resp.Error)
	var sawWidgets bool
	for _, r := range resp.Results.Rows {
		if r[2] == "widgets" {
			sawWidgets = true
		}
	}
	assert.True(t, sawWidgets)
}

func TestGCGraphOnEmptyCatalogReportsZero(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "GC GRAPH")
	require.Equal(t, "ok", resp.Status, resp.Error)
	require.Len(t, resp.Results.Rows, 1)
	assert.Equal(t, int64(0), resp.Results.Rows[0][0])
	assert.Equal(t, int64(0), resp.Results.Rows[0][1])
}

func TestUserAddIsAccepted(t *testing.T) {
	e, ctx := newTestEngine(t)
	resp := e.Query(ctx, "USER ADD alice PASSWORD 'secret'")
	require.Equal(t, "ok", resp.Status, resp.Error)
}
