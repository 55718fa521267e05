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

package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euanmacinnes/clarium/ast"
)

func TestParseSelectByWindow(t *testing.T) {
	cmd, err := ParseCommand(`SELECT COUNT(*) FROM t.time BY 2s`)
	require.NoError(t, err)
	require.Equal(t, ast.CmdSelect, cmd.Kind)
	assert.Equal(t, ast.AggByWindow, cmd.Select.AggKind)
	assert.Equal(t, int64(2000), cmd.Select.ByWindowMs)
}

func TestParseGroupByNotNull(t *testing.T) {
	cmd, err := ParseCommand(`SELECT COUNT(a) FROM t.time GROUP BY a NOTNULL`)
	require.NoError(t, err)
	assert.Equal(t, ast.AggGroupBy, cmd.Select.AggKind)
	assert.True(t, cmd.Select.GroupNotNull)
}

func TestParseOrderByAnnHint(t *testing.T) {
	cmd, err := ParseCommand(`SELECT id FROM docs ORDER BY vec_l2(docs.body, q) USING ANN LIMIT 2`)
	require.NoError(t, err)
	q := cmd.Select
	assert.Equal(t, ast.HintANN, q.OrderByHint)
	require.Len(t, q.OrderBy, 1)
	require.NotNil(t, q.Limit)
	assert.Equal(t, int64(2), *q.Limit)
}

func TestParseSliceIntersect(t *testing.T) {
	cmd, err := ParseCommand(`SLICE USING A INTERSECT B`)
	require.NoError(t, err)
	require.Equal(t, ast.CmdSlice, cmd.Kind)
	require.Len(t, cmd.Slice.Clauses, 1)
	assert.Equal(t, ast.SliceIntersect, cmd.Slice.Clauses[0].Op)
}

func TestParseCorrelatedExists(t *testing.T) {
	sql := `SELECT name FROM customers c WHERE status='active' AND EXISTS(SELECT 1 FROM orders o WHERE o.customer_id=c.customer_id AND o.amount>100)`
	cmd, err := ParseCommand(sql)
	require.NoError(t, err)
	q := cmd.Select
	require.NotNil(t, q.Where)
	assert.Equal(t, ast.PredAnd, q.Where.Kind)
}

func TestParseMatchShortest(t *testing.T) {
	sql := `MATCH SHORTEST USING GRAPH G (s:Host {key: 'planner'})-[:CALLS*1..5]->(t:Host {key: 'executor'}) RETURN t.key ORDER BY t.key LIMIT 1`
	cmd, err := ParseCommand(sql)
	require.NoError(t, err)
	require.Equal(t, ast.CmdMatch, cmd.Kind)
	m := cmd.Match
	assert.True(t, m.Shortest)
	assert.Equal(t, "G", m.Graph)
	assert.Equal(t, "CALLS", m.EdgeType)
	assert.Equal(t, 1, m.MinHops)
	assert.Equal(t, 5, m.MaxHops)
	require.NotNil(t, m.EndKeyLit)
	require.Len(t, m.Return, 1)
	require.Len(t, m.OrderBy, 1)
	require.NotNil(t, m.Limit)
	assert.Equal(t, int64(1), *m.Limit)
}

func TestParseJoinChain(t *testing.T) {
	sql := `SELECT o.id, c.name FROM orders o LEFT JOIN customers c ON o.customer_id = c.id WHERE o.amount > 10`
	cmd, err := ParseCommand(sql)
	require.NoError(t, err)
	q := cmd.Select
	require.Len(t, q.From.Joins, 1)
	assert.Equal(t, ast.JoinLeft, q.From.Joins[0].Type)
	require.NotNil(t, q.Where)
}

func TestParseUnion(t *testing.T) {
	cmd, err := ParseCommand(`SELECT id FROM a UNION ALL SELECT id FROM b`)
	require.NoError(t, err)
	require.NotNil(t, cmd.Select.UnionNext)
	assert.True(t, cmd.Select.UnionAll)
}

func TestParseInsertValues(t *testing.T) {
	cmd, err := ParseCommand(`INSERT INTO t (a, b) VALUES (1, 'x'), (2, 'y')`)
	require.NoError(t, err)
	require.Equal(t, ast.CmdInsert, cmd.Kind)
	assert.Len(t, cmd.DML.Values, 2)
}

func TestParseCreateVectorIndex(t *testing.T) {
	cmd, err := ParseCommand(`CREATE VECTOR-INDEX docs_idx ON docs (body) USING HNSW METRIC l2 DIM 3`)
	require.NoError(t, err)
	require.Equal(t, ast.CmdCreate, cmd.Kind)
	d := cmd.DDL
	assert.Equal(t, ast.DDLVectorIndex, d.Object)
	assert.Equal(t, 3, d.VIndexDim)
	assert.Equal(t, "l2", d.VIndexMetric)
}

func TestParseSyntaxError(t *testing.T) {
	_, err := ParseCommand(`SELECT FROM WHERE`)
	require.Error(t, err)
}
