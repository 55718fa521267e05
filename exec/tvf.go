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
	"fmt"
	"path/filepath"
	"strings"

	"github.com/euanmacinnes/clarium/ann"
	"github.com/euanmacinnes/clarium/ast"
	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/graph"
	"github.com/euanmacinnes/clarium/types"
)

// dispatchTVF evaluates a table-valued function FROM source (spec §4.7):
// nearest_neighbors/vector_search over the ANN planner's exact rescore,
// graph_neighbors/graph_paths over the graph traversal engine.
func (e *Engine) dispatchTVF(ctx *Context, src *ast.FromSource, sc *scope) (*Batch, error) {
	args := make([]types.Value, len(src.TVFArgs))
	for i, a := range src.TVFArgs {
		v, err := e.EvalExpr(ctx, a, nil)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	alias := src.Alias
	if alias == "" {
		alias = src.TVFName
	}

	switch strings.ToLower(src.TVFName) {
	case "graph_neighbors":
		return e.tvfGraphNeighbors(ctx, alias, args)
	case "graph_paths":
		return e.tvfGraphPaths(ctx, alias, args)
	case "nearest_neighbors":
		return e.tvfNearestNeighbors(ctx, alias, args)
	case "vector_search":
		return e.tvfVectorSearch(ctx, alias, args)
	}
	return nil, errs.ErrSyntax.New("unknown table-valued function " + src.TVFName)
}

func argString(args []types.Value, i int) string {
	if i < 0 || i >= len(args) || args[i] == nil {
		return ""
	}
	if s, ok := args[i].(string); ok {
		return s
	}
	return fmt.Sprint(args[i])
}

func argInt(args []types.Value, i int, def int64) int64 {
	if i < 0 || i >= len(args) || args[i] == nil {
		return def
	}
	if n, ok := args[i].(int64); ok {
		return n
	}
	return def
}

func argIntPtr(args []types.Value, i int) *int64 {
	if i < 0 || i >= len(args) || args[i] == nil {
		return nil
	}
	if n, ok := args[i].(int64); ok {
		return &n
	}
	return nil
}

func argBool(args []types.Value, i int) bool {
	if i < 0 || i >= len(args) || args[i] == nil {
		return false
	}
	b, _ := args[i].(bool)
	return b
}

// parseMetricName maps the short metric spelling CREATE VECTOR-INDEX and
// the TVF argument forms use ("l2"/"cosine"/"ip") to an ann.Metric.
func parseMetricName(s string) (ann.Metric, bool) {
	switch strings.ToLower(s) {
	case "l2":
		return ann.MetricL2, true
	case "cosine":
		return ann.MetricCosine, true
	case "ip":
		return ann.MetricIP, true
	}
	return 0, false
}

// scanVectorCandidates reads every row of table, pairing each row's
// column value (when it parses as a vector) with its scan-order row ID,
// the same numbering scanTableRef assigns so a nearest_neighbors result
// can be joined back via __row_id.
func (e *Engine) scanVectorCandidates(ctx *Context, table, column string) ([]ann.Candidate, error) {
	name, err := e.normalizeDefault(ctx, table, false)
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
	schema := tbl.Schema()
	colIdx := schema.IndexOf(column)
	if colIdx < 0 {
		return nil, errs.ErrName.New("unknown column " + column)
	}
	iter, err := tbl.Scan()
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var candidates []ann.Candidate
	var rowID int64
	for {
		row, err := iter.Next()
		if err != nil {
			break
		}
		if vec, verr := asVector(row[colIdx]); verr == nil && vec != nil {
			candidates = append(candidates, ann.Candidate{ID: int(rowID), Vec: vec})
		}
		rowID++
	}
	return candidates, nil
}

// tvfNearestNeighbors implements nearest_neighbors(table, col, query_vec,
// k, metric, ef, with_ord), emitting {row_id, score, [ord]}.
func (e *Engine) tvfNearestNeighbors(ctx *Context, alias string, args []types.Value) (*Batch, error) {
	table := argString(args, 0)
	column := argString(args, 1)
	query, err := asVector(args[2])
	if err != nil || query == nil {
		return nil, errs.ErrType.New("nearest_neighbors query operand is not a vector")
	}
	k := argInt(args, 3, -1)
	metric, ok := parseMetricName(argString(args, 4))
	if !ok {
		metric = ann.MetricL2
	}
	withOrd := argBool(args, 6)

	candidates, err := e.scanVectorCandidates(ctx, table, column)
	if err != nil {
		return nil, err
	}
	ranked, err := ann.TopK(metric, query, candidates, k)
	if err != nil {
		return nil, err
	}

	cols := []ColRef{{Alias: alias, Name: "row_id"}, {Alias: alias, Name: "score"}}
	if withOrd {
		cols = append(cols, ColRef{Alias: alias, Name: "ord"})
	}
	out := NewBatch(cols)
	for i, r := range ranked {
		row := Row{int64(r.ID), r.Score}
		if withOrd {
			row = append(row, int64(i))
		}
		out.Rows = append(out.Rows, row)
	}
	return out, nil
}

// tvfVectorSearch implements vector_search(index_name, query_vec, k
// [, topk [, engine_hint]]), emitting {row_id, score} for an index's
// bound (table, column). topk/engine_hint are accepted for call-shape
// compatibility but the core has no real approximate index to route
// through (see ann package doc comment), so the result is always the
// exact rescore.
func (e *Engine) tvfVectorSearch(ctx *Context, alias string, args []types.Value) (*Batch, error) {
	indexName := argString(args, 0)
	query, err := asVector(args[1])
	if err != nil || query == nil {
		return nil, errs.ErrType.New("vector_search query operand is not a vector")
	}
	k := argInt(args, 2, -1)

	vi, ok := e.Cat.Sidecars.VectorIndex(indexName)
	if !ok {
		return nil, errs.ErrName.New("unknown vector index " + indexName)
	}
	metric, ok := parseMetricName(vi.Metric)
	if !ok {
		metric = ann.MetricL2
	}

	candidates, err := e.scanVectorCandidates(ctx, vi.Table, vi.Column)
	if err != nil {
		return nil, err
	}
	ranked, err := ann.TopK(metric, query, candidates, k)
	if err != nil {
		return nil, err
	}

	cols := []ColRef{{Alias: alias, Name: "row_id"}, {Alias: alias, Name: "score"}}
	out := NewBatch(cols)
	for _, r := range ranked {
		out.Rows = append(out.Rows, Row{int64(r.ID), r.Score})
	}
	return out, nil
}

// openGraphBackend resolves graphName's sidecar and constructs the
// Backend its Engine names: relational (scans node/edge store.Tables) or
// graphstore (mmap'd CSR under "<sidecar dir>/graphstore/<name>.gstore").
func (e *Engine) openGraphBackend(ctx *Context, graphName string) (graph.Backend, *catalog.GraphCatalog, error) {
	gc, ok := e.Cat.Sidecars.Graph(graphName)
	if !ok {
		return nil, nil, errs.ErrName.New("unknown graph " + graphName)
	}
	if gc.Engine == catalog.GraphEngineGraphstore {
		dir := filepath.Join(e.Cat.Sidecars.Dir(), "graphstore", gc.Name+".gstore")
		b, err := graph.OpenGraphstore(dir)
		if err != nil {
			return nil, nil, err
		}
		return b, gc, nil
	}
	b := &graph.RelationalBackend{Store: e.Store, Defaults: ctx.Session.Defaults(), Cat: gc}
	return b, gc, nil
}

func nodeLabels(gc *catalog.GraphCatalog) []string {
	labels := make([]string, len(gc.Nodes))
	for i, n := range gc.Nodes {
		labels[i] = n.Label
	}
	return labels
}

// tvfGraphNeighbors implements graph_neighbors(graph, start_key, etype,
// max_hops [, lower_ts [, upper_ts]]), emitting {node_id, hop, prev_id}
// with node_id/prev_id rendered as the node's bare key (the form the
// MATCH rewriter's t.key/prev.key substitutions expect).
func (e *Engine) tvfGraphNeighbors(ctx *Context, alias string, args []types.Value) (*Batch, error) {
	graphName := argString(args, 0)
	startKey := argString(args, 1)
	etype := argString(args, 2)
	maxHops := int(argInt(args, 3, 1))
	lower := argIntPtr(args, 4)
	upper := argIntPtr(args, 5)

	backend, cat, err := e.openGraphBackend(ctx, graphName)
	if err != nil {
		return nil, err
	}
	start, err := graph.StartAny(backend, nodeLabels(cat), startKey)
	if err != nil {
		return nil, err
	}

	rows, err := graph.Neighbors(backend, start, etype, maxHops, lower, upper)
	if err != nil {
		return nil, err
	}

	cols := []ColRef{{Alias: alias, Name: "node_id"}, {Alias: alias, Name: "hop"}, {Alias: alias, Name: "prev_id"}}
	out := NewBatch(cols)
	for _, r := range rows {
		_, nodeKey, err := backend.Resolve(r.NodeID)
		if err != nil {
			return nil, err
		}
		_, prevKey, err := backend.Resolve(r.PrevID)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, Row{nodeKey, int64(r.Hop), prevKey})
	}
	return out, nil
}

// tvfGraphPaths implements graph_paths(graph, src, dst, max_hops [, etype]
// [, lower_ts [, upper_ts]]), emitting {node_id, ord, cost} in path order.
func (e *Engine) tvfGraphPaths(ctx *Context, alias string, args []types.Value) (*Batch, error) {
	graphName := argString(args, 0)
	srcKey := argString(args, 1)
	dstKey := argString(args, 2)
	maxHops := int(argInt(args, 3, 1))

	idx := 4
	etype := ""
	if idx < len(args) {
		if s, ok := args[idx].(string); ok {
			etype = s
			idx++
		}
	}
	lower := argIntPtr(args, idx)
	upper := argIntPtr(args, idx+1)

	backend, cat, err := e.openGraphBackend(ctx, graphName)
	if err != nil {
		return nil, err
	}
	labels := nodeLabels(cat)
	start, err := graph.StartAny(backend, labels, srcKey)
	if err != nil {
		return nil, err
	}
	end, err := graph.StartAny(backend, labels, dstKey)
	if err != nil {
		return nil, err
	}

	steps, err := graph.ShortestPath(backend, start, end, etype, maxHops, lower, upper)
	if err != nil {
		return nil, err
	}

	cols := []ColRef{{Alias: alias, Name: "node_id"}, {Alias: alias, Name: "ord"}, {Alias: alias, Name: "cost"}}
	out := NewBatch(cols)
	for _, s := range steps {
		_, key, err := backend.Resolve(s.NodeID)
		if err != nil {
			return nil, err
		}
		out.Rows = append(out.Rows, Row{key, int64(s.Ord), s.Cost})
	}
	return out, nil
}
