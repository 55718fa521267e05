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

package match_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/match"
)

func TestRewriteNeighborsUsesSessionDefaultGraph(t *testing.T) {
	m := &ast.MatchPattern{
		StartKeyLit: ast.Literal("alice"),
		EdgeType:    "FOLLOWS",
		MaxHops:     2,
		Return:      []ast.SelectItem{{Expr: ast.Column("t", "key"), Alias: "who"}},
	}
	q, err := match.Rewrite(m, "social")
	require.NoError(t, err)

	require.NotNil(t, q.From)
	src := q.From.Base
	assert.Equal(t, ast.FromTVF, src.Kind)
	assert.Equal(t, "graph_neighbors", src.TVFName)
	require.Len(t, src.TVFArgs, 4)
	assert.Equal(t, "social", src.TVFArgs[0].LitValue)
	assert.Equal(t, "alice", src.TVFArgs[1].LitValue)
	assert.Equal(t, "FOLLOWS", src.TVFArgs[2].LitValue)
	assert.Equal(t, int64(2), src.TVFArgs[3].LitValue)

	require.Len(t, q.Select, 1)
	assert.Equal(t, "node_id", q.Select[0].Expr.Name)
	assert.Equal(t, "g", q.Select[0].Expr.Qualifier)
	assert.Equal(t, "who", q.Select[0].Alias)
}

func TestRewriteRequiresGraph(t *testing.T) {
	m := &ast.MatchPattern{StartKeyLit: ast.Literal("alice")}
	_, err := match.Rewrite(m, "")
	assert.Error(t, err)
}

func TestRewriteUsesExplicitGraphOverDefault(t *testing.T) {
	m := &ast.MatchPattern{Graph: "orgchart", StartKeyLit: ast.Literal("ceo")}
	q, err := match.Rewrite(m, "social")
	require.NoError(t, err)
	assert.Equal(t, "orgchart", q.From.Base.TVFArgs[0].LitValue)
}

func TestRewriteShortestRequiresEndKey(t *testing.T) {
	m := &ast.MatchPattern{Shortest: true, StartKeyLit: ast.Literal("a")}
	_, err := match.Rewrite(m, "g")
	assert.Error(t, err)
}

func TestRewriteShortestBuildsGraphPaths(t *testing.T) {
	m := &ast.MatchPattern{
		Shortest:    true,
		StartKeyLit: ast.Literal("a"),
		EndKeyLit:   ast.Literal("z"),
		EdgeType:    "ROAD",
		MaxHops:     10,
		Return:      []ast.SelectItem{{Expr: ast.Column("t", "key")}},
	}
	q, err := match.Rewrite(m, "roads")
	require.NoError(t, err)

	src := q.From.Base
	assert.Equal(t, "graph_paths", src.TVFName)
	require.Len(t, src.TVFArgs, 5)
	assert.Equal(t, "roads", src.TVFArgs[0].LitValue)
	assert.Equal(t, "a", src.TVFArgs[1].LitValue)
	assert.Equal(t, "z", src.TVFArgs[2].LitValue)
	assert.Equal(t, int64(10), src.TVFArgs[3].LitValue)
	assert.Equal(t, "ROAD", src.TVFArgs[4].LitValue)
}

func TestRewriteSubstitutesWhereAndOrderBy(t *testing.T) {
	m := &ast.MatchPattern{
		StartKeyLit: ast.Literal("alice"),
		EdgeType:    "FOLLOWS",
		MaxHops:     1,
		Return:      []ast.SelectItem{{Expr: ast.Column("t", "key")}},
		Where: &ast.Predicate{
			Kind:  ast.PredCompare,
			Op:    ast.CmpEq,
			Left:  ast.Column("prev", "key"),
			Right: ast.Literal("bob"),
		},
		OrderBy: []ast.OrderKey{{Expr: ast.Column("s", "key"), Desc: true}},
	}
	q, err := match.Rewrite(m, "social")
	require.NoError(t, err)

	require.NotNil(t, q.Where)
	assert.Equal(t, "prev_id", q.Where.Left.Name)
	assert.Equal(t, "g", q.Where.Left.Qualifier)

	require.Len(t, q.OrderBy, 1)
	assert.Equal(t, "alice", q.OrderBy[0].Expr.LitValue)
	assert.True(t, q.OrderBy[0].Desc)
}
