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

package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"
	"github.com/pkg/errors"

	"github.com/euanmacinnes/clarium/errs"
)

// VIndexState is the lifecycle state of a VectorIndex sidecar, per spec §3.
type VIndexState string

const (
	VIndexCreated  VIndexState = "CREATED"
	VIndexBuilding VIndexState = "BUILDING"
	VIndexReady    VIndexState = "READY"
	VIndexStale    VIndexState = "STALE"
)

// VIndexMode controls how a vector index is refreshed after writes.
type VIndexMode string

const (
	VIndexBatched    VIndexMode = "BATCHED"
	VIndexImmediate  VIndexMode = "IMMEDIATE"
	VIndexAsync      VIndexMode = "ASYNC"
	VIndexRebuildOnly VIndexMode = "REBUILD_ONLY"
)

// VectorIndex is the JSON sidecar describing one CREATE VECTOR-INDEX, per
// spec §3. The ANN planner (package ann) reads these to decide whether a
// query's ORDER BY can route through the index.
type VectorIndex struct {
	Name   string            `json:"name"`
	Table  string            `json:"table"`
	Column string            `json:"column"`
	Algo   string            `json:"algo"`
	Metric string            `json:"metric"`
	Dim    int               `json:"dim"`
	Params map[string]string `json:"params,omitempty"`
	State  VIndexState       `json:"state"`
	Mode   VIndexMode        `json:"mode"`
}

// GraphNode is one node-kind binding in a GraphCatalog sidecar.
type GraphNode struct {
	Label     string `json:"label"`
	Key       string `json:"key"`
	Table     string `json:"table"`
	KeyColumn string `json:"key_column"`
}

// GraphEdge is one edge-kind binding in a GraphCatalog sidecar. CostColumn
// and TimeColumn are optional per edge type; per spec §2 open question,
// this core defaults a missing cost to 1.0 rather than failing, so that
// graphs mixing weighted and unweighted edge types still traverse.
type GraphEdge struct {
	Type        string `json:"type"`
	From        string `json:"from"`
	To          string `json:"to"`
	Table       string `json:"table"`
	SrcColumn   string `json:"src_column"`
	DstColumn   string `json:"dst_column"`
	CostColumn  string `json:"cost_column,omitempty"`
	TimeColumn  string `json:"time_column,omitempty"`
}

// GraphEngine selects the backend a graph's traversal TVFs use.
type GraphEngine string

const (
	GraphEngineRelational GraphEngine = "relational"
	GraphEngineGraphstore GraphEngine = "graphstore"
)

// GraphCatalog is the JSON sidecar describing one CREATE GRAPH, per spec §3.
type GraphCatalog struct {
	Name   string      `json:"name"`
	Nodes  []GraphNode `json:"nodes"`
	Edges  []GraphEdge `json:"edges"`
	Engine GraphEngine `json:"engine"`
}

// EdgeDefaultCost is substituted for a missing per-edge cost value when
// the edge's GraphEdge has no CostColumn configured.
const EdgeDefaultCost = 1.0

// SidecarStore persists vector-index and graph sidecars as JSON files
// under a directory, publishing updates via write-to-temp-then-rename so
// a reader never observes a partially written sidecar (spec §5's
// "builders write new segment files and then publish... atomically by
// rename"). An advisory flock guards the rename against concurrent
// publishers.
type SidecarStore struct {
	mu  sync.RWMutex
	dir string

	vindexes map[string]*VectorIndex
	graphs   map[string]*GraphCatalog
}

// NewSidecarStore returns a store rooted at dir, loading any sidecars
// already present.
func NewSidecarStore(dir string) (*SidecarStore, error) {
	s := &SidecarStore{dir: dir, vindexes: map[string]*VectorIndex{}, graphs: map[string]*GraphCatalog{}}
	if dir == "" {
		return s, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errs.ErrIO.New(dir, err.Error())
	}
	vpaths, _ := filepath.Glob(filepath.Join(dir, "vindex.*.json"))
	for _, p := range vpaths {
		v, err := LoadVectorIndex(p)
		if err != nil {
			return nil, err
		}
		s.vindexes[v.Name] = v
	}
	gpaths, _ := filepath.Glob(filepath.Join(dir, "graph.*.json"))
	for _, p := range gpaths {
		g, err := LoadGraphCatalog(p)
		if err != nil {
			return nil, err
		}
		s.graphs[g.Name] = g
	}
	return s, nil
}

// PutVectorIndex registers (or replaces) a vector index sidecar, both in
// memory and on disk if the store has a backing directory.
func (s *SidecarStore) PutVectorIndex(v *VectorIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vindexes[v.Name] = v
	if s.dir == "" {
		return nil
	}
	return publishJSON(filepath.Join(s.dir, "vindex."+v.Name+".json"), v)
}

// VectorIndexFor returns the sidecar matching (table, column) if one
// exists, else ok=false. The ANN planner uses this as the first step of
// its compatibility gate (spec §4.8 step 1).
func (s *SidecarStore) VectorIndexFor(table, column string) (*VectorIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, v := range s.vindexes {
		if v.Table == table && v.Column == column {
			return v, true
		}
	}
	return nil, false
}

// VectorIndex returns the named vector index sidecar, if registered. The
// vector_search TVF (spec §4.7) looks an index up by name directly,
// unlike the ANN ORDER BY planner's (table, column) lookup.
func (s *SidecarStore) VectorIndex(name string) (*VectorIndex, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vindexes[name]
	return v, ok
}

// PutGraph registers (or replaces) a graph catalog sidecar.
func (s *SidecarStore) PutGraph(g *GraphCatalog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graphs[g.Name] = g
	if s.dir == "" {
		return nil
	}
	return publishJSON(filepath.Join(s.dir, "graph."+g.Name+".json"), g)
}

// Dir returns the sidecar store's backing directory, used by the graph
// package to locate a graphstore-engine graph's CSR artifact at
// "<dir>/graphstore/<name>.gstore".
func (s *SidecarStore) Dir() string {
	return s.dir
}

// Graph returns the named graph catalog sidecar, if registered.
func (s *SidecarStore) Graph(name string) (*GraphCatalog, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.graphs[name]
	return g, ok
}

// GraphNames returns every registered graph name, used by GC GRAPH to walk
// the full sidecar set.
func (s *SidecarStore) GraphNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.graphs))
	for n := range s.graphs {
		names = append(names, n)
	}
	return names
}

// EdgeCost returns e's configured cost column value if present, else the
// default unweighted cost, resolving the spec's open question on mixed
// weighted/unweighted edge types by defaulting rather than failing.
func EdgeCost(e GraphEdge, row map[string]interface{}) float64 {
	if e.CostColumn == "" {
		return EdgeDefaultCost
	}
	v, ok := row[e.CostColumn]
	if !ok || v == nil {
		return EdgeDefaultCost
	}
	switch f := v.(type) {
	case float64:
		return f
	case int64:
		return float64(f)
	}
	return EdgeDefaultCost
}

// publishJSON writes v to path atomically: marshal to a sibling temp
// file, flock a lockfile alongside it, then rename into place.
func publishJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errs.ErrIO.New(path, err.Error())
	}
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.Wrap(err, "locking sidecar publish for "+path)
	}
	defer lock.Unlock()

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return errs.ErrIO.New(path, err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		return errs.ErrIO.New(path, err.Error())
	}
	return nil
}

// LoadVectorIndex reads a single vector-index sidecar file from disk.
func LoadVectorIndex(path string) (*VectorIndex, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	var v VectorIndex
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	return &v, nil
}

// LoadGraphCatalog reads a single graph-catalog sidecar file from disk.
func LoadGraphCatalog(path string) (*GraphCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	var g GraphCatalog
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	return &g, nil
}
