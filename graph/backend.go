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

// Package graph implements the graph traversal engine (spec §4.9): a
// common Backend interface behind which a relational backend (reads
// node/edge store.Tables) and a graphstore backend (mmap'd CSR
// adjacency) both answer BFS/Dijkstra's single question, "what is
// reachable from this node", so graph_neighbors/graph_paths don't care
// which storage a graph was declared with.
package graph

import "github.com/euanmacinnes/clarium/errs"

// Edge is one outgoing edge a Backend reports during traversal.
type Edge struct {
	To     string // opaque node ID in the Backend's own ID space
	Cost   float64
	TimeMs *int64
}

// Backend resolves node identity and adjacency for one graph.
type Backend interface {
	// Start resolves (label,key) to the backend's internal node ID.
	Start(label, key string) (nodeID string, err error)
	// Neighbors returns every outgoing edge of nodeID whose type matches
	// etype (etype == "" matches any) and whose time (if any) satisfies
	// [lower,upper).
	Neighbors(nodeID, etype string, lower, upper *int64) ([]Edge, error)
	// Resolve renders nodeID back to its (label,key) display form.
	Resolve(nodeID string) (label, key string, err error)
	// HasCost reports whether any configured edge type carries a cost
	// column, i.e. whether graph_paths should use Dijkstra or BFS.
	HasCost() bool
}

// StartAny resolves key against each label in turn, returning the first
// one a Backend accepts. The graph_neighbors/graph_paths TVFs (spec
// §4.7) take a bare key with no node-kind qualifier, so the caller tries
// every node kind a graph declares rather than requiring the query author
// to name one.
func StartAny(b Backend, labels []string, key string) (string, error) {
	var lastErr error
	for _, label := range labels {
		id, err := b.Start(label, key)
		if err == nil {
			return id, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errs.ErrName.New("graph declares no node labels")
	}
	return "", lastErr
}

// inTimeWindow applies spec §4.9's temporal filter: lower inclusive,
// upper exclusive, either bound optional. An edge with no time_column
// (t == nil) carries no timestamp to test and is always eligible,
// per DESIGN.md's Open Question 3 resolution — a missing time_column
// must not silently drop traversal targets.
func inTimeWindow(t *int64, lower, upper *int64) bool {
	if t == nil {
		return true
	}
	if lower != nil && *t < *lower {
		return false
	}
	if upper != nil && *t >= *upper {
		return false
	}
	return true
}
