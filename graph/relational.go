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

package graph

import (
	"fmt"
	"strings"

	"github.com/euanmacinnes/clarium/catalog"
	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/ident"
	"github.com/euanmacinnes/clarium/store"
)

// RelationalBackend answers traversal queries by scanning the node/edge
// store.Tables a CREATE GRAPH statement bound, per spec §4.9's default
// backend: "reads node and edge tables on demand; applies temporal
// predicate to edge rows; builds an in-memory adjacency list keyed by
// node key."
type RelationalBackend struct {
	Store    *store.Catalog
	Defaults ident.Defaults
	Cat      *catalog.GraphCatalog
}

const sep = "\x00"

func nodeID(label, key string) string { return label + sep + key }

func splitNodeID(id string) (string, string) {
	parts := strings.SplitN(id, sep, 2)
	if len(parts) != 2 {
		return "", id
	}
	return parts[0], parts[1]
}

// Start validates that label is a known node kind and returns its
// canonical node ID; the relational backend does not require the key to
// already exist in the node table (an edge table may reference keys not
// yet materialized in the node table, per an open modeling question
// resolved here by permissiveness rather than a lookup failure).
func (b *RelationalBackend) Start(label, key string) (string, error) {
	for _, n := range b.Cat.Nodes {
		if n.Label == label {
			return nodeID(label, key), nil
		}
	}
	return "", errs.ErrName.New("unknown node label " + label)
}

func (b *RelationalBackend) Resolve(id string) (string, string, error) {
	label, key := splitNodeID(id)
	return label, key, nil
}

func (b *RelationalBackend) HasCost() bool {
	for _, e := range b.Cat.Edges {
		if e.CostColumn != "" {
			return true
		}
	}
	return false
}

// Neighbors scans every edge table whose edge-kind matches etype (or all
// kinds when etype == "") and whose From label matches nodeID's label,
// emitting an Edge for each row whose source column equals nodeID's key
// and whose time (if configured) satisfies the window.
func (b *RelationalBackend) Neighbors(id, etype string, lower, upper *int64) ([]Edge, error) {
	label, key := splitNodeID(id)
	var out []Edge
	for _, ed := range b.Cat.Edges {
		if etype != "" && ed.Type != etype {
			continue
		}
		if ed.From != label {
			continue
		}
		_, tbl, err := b.Store.Resolve(b.Defaults, ed.Table)
		if err != nil {
			return nil, err
		}
		schema := tbl.Schema()
		srcIdx := schema.IndexOf(ed.SrcColumn)
		dstIdx := schema.IndexOf(ed.DstColumn)
		if srcIdx < 0 || dstIdx < 0 {
			continue
		}
		costIdx := -1
		if ed.CostColumn != "" {
			costIdx = schema.IndexOf(ed.CostColumn)
		}
		timeIdx := -1
		if ed.TimeColumn != "" {
			timeIdx = schema.IndexOf(ed.TimeColumn)
		}

		iter, err := tbl.Scan()
		if err != nil {
			return nil, err
		}
		for {
			row, err := iter.Next()
			if err != nil {
				break
			}
			if fmt.Sprint(row[srcIdx]) != key {
				continue
			}
			var t *int64
			if timeIdx >= 0 {
				if tv, ok := row[timeIdx].(int64); ok {
					t = &tv
				}
			}
			if !inTimeWindow(t, lower, upper) {
				continue
			}
			cost := catalog.EdgeDefaultCost
			if costIdx >= 0 {
				switch v := row[costIdx].(type) {
				case int64:
					cost = float64(v)
				case float64:
					cost = v
				}
			}
			out = append(out, Edge{
				To:     nodeID(ed.To, fmt.Sprint(row[dstIdx])),
				Cost:   cost,
				TimeMs: t,
			})
		}
		iter.Close()
	}
	return out, nil
}
