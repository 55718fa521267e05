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
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/google/btree"

	"github.com/euanmacinnes/clarium/errs"
)

// adjMagic is the CSR adjacency segment's file signature.
const adjMagic = 0x4144474A

// dictEntry is one row of a nodes/dict.seg.json segment.
type dictEntry struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	ID    uint64 `json:"id"`
}

type nodeDict struct {
	Entries []dictEntry `json:"entries"`
}

type manifestEdgesPartition struct {
	Part        int      `json:"part"`
	AdjSegments []string `json:"adj_segments"`
}

type manifest struct {
	Engine     string `json:"engine"`
	Epoch      int    `json:"epoch"`
	Partitions int    `json:"partitions"`
	Nodes      struct {
		DictSegments []string `json:"dict_segments"`
	} `json:"nodes"`
	Edges struct {
		HasReverse bool                      `json:"has_reverse"`
		Partitions []manifestEdgesPartition `json:"edges_partitions,omitempty"`
	} `json:"edges"`
}

// adjSegment is one mmap'd CSR adjacency file: row_ptr[n+1] offsets into
// cols, and cols[e] the flat neighbor-id array, per the binary layout
// originally specified for graphstore_neighbors_tests.
type adjSegment struct {
	mm      mmap.MMap
	nNodes  uint64
	rowPtr  []uint64
	cols    []uint64
}

func openAdjSegment(path string) (*adjSegment, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, errs.ErrIO.New(path, err.Error())
	}
	if len(m) < 40 {
		return nil, errs.ErrIO.New(path, "adjacency segment too small")
	}
	magic := binary.LittleEndian.Uint32(m[0:4])
	if magic != adjMagic {
		return nil, errs.ErrIO.New(path, "bad adjacency segment magic")
	}
	nNodes := binary.LittleEndian.Uint64(m[8:16])
	nEdges := binary.LittleEndian.Uint64(m[16:24])
	rowPtrOff := binary.LittleEndian.Uint64(m[24:32])
	colsOff := binary.LittleEndian.Uint64(m[32:40])

	rowPtr := make([]uint64, nNodes+1)
	for i := range rowPtr {
		off := rowPtrOff + uint64(i)*8
		rowPtr[i] = binary.LittleEndian.Uint64(m[off : off+8])
	}
	cols := make([]uint64, nEdges)
	for i := range cols {
		off := colsOff + uint64(i)*8
		cols[i] = binary.LittleEndian.Uint64(m[off : off+8])
	}
	return &adjSegment{mm: m, nNodes: nNodes, rowPtr: rowPtr, cols: cols}, nil
}

// epochSegment is a btree.Item ordering loaded adjacency segments by the
// epoch suffix on their file name ("adj.P0.seg.<epoch>"), per spec §4.3:
// "segments are numbered by epoch; a manifest picks the active set."
type epochSegment struct {
	epoch int
	adj   *adjSegment
}

func (e epochSegment) Less(than btree.Item) bool {
	return e.epoch < than.(epochSegment).epoch
}

// segmentEpoch extracts the trailing ".seg.<epoch>" numeral from an
// adjacency segment file name, defaulting to 0 for unsuffixed names.
func segmentEpoch(name string) int {
	idx := strings.LastIndex(name, ".seg.")
	if idx < 0 {
		return 0
	}
	n, err := strconv.Atoi(name[idx+len(".seg."):])
	if err != nil {
		return 0
	}
	return n
}

// GraphstoreBackend answers traversal queries from the mmap'd CSR
// artifact, per spec §4.9's second backend. It carries no cost or time
// columns (the CSR format specifies plain adjacency only), so
// graph_paths always falls back to unweighted BFS for a graphstore-
// engine graph and temporal bounds are ignored. The CSR carries no edge
// types either, so an etype filter is not applied. A manifest may list
// several compaction epochs for one partition; the backend always serves
// traversals from the highest (most recent) epoch loaded.
type GraphstoreBackend struct {
	labelKeyToID map[string]uint64
	idToLabelKey map[uint64][2]string
	epochs       *btree.BTree
	adj          *adjSegment
}

// OpenGraphstore loads the manifest, node dictionary, and every
// adjacency segment of the first edge partition rooted at dir (the
// "<table>.gstore" directory), then activates the highest epoch found.
func OpenGraphstore(dir string) (*GraphstoreBackend, error) {
	var mf manifest
	data, err := os.ReadFile(filepath.Join(dir, "meta", "manifest.json"))
	if err != nil {
		return nil, errs.ErrIO.New(dir, err.Error())
	}
	if err := json.Unmarshal(data, &mf); err != nil {
		return nil, errs.ErrIO.New(dir, err.Error())
	}

	b := &GraphstoreBackend{
		labelKeyToID: map[string]uint64{},
		idToLabelKey: map[uint64][2]string{},
		epochs:       btree.New(16),
	}
	for _, seg := range mf.Nodes.DictSegments {
		segData, err := os.ReadFile(filepath.Join(dir, "nodes", seg))
		if err != nil {
			return nil, errs.ErrIO.New(dir, err.Error())
		}
		var nd nodeDict
		if err := json.Unmarshal(segData, &nd); err != nil {
			return nil, errs.ErrIO.New(dir, err.Error())
		}
		for _, e := range nd.Entries {
			b.labelKeyToID[e.Label+sep+e.Key] = e.ID
			b.idToLabelKey[e.ID] = [2]string{e.Label, e.Key}
		}
	}

	if len(mf.Edges.Partitions) == 0 || len(mf.Edges.Partitions[0].AdjSegments) == 0 {
		return nil, errs.ErrIO.New(dir, "manifest names no adjacency segments")
	}
	for _, segName := range mf.Edges.Partitions[0].AdjSegments {
		adj, err := openAdjSegment(filepath.Join(dir, "edges", segName))
		if err != nil {
			return nil, err
		}
		b.epochs.ReplaceOrInsert(epochSegment{epoch: segmentEpoch(segName), adj: adj})
	}
	b.adj = b.epochs.Max().(epochSegment).adj
	return b, nil
}

// Epochs returns every compaction epoch loaded for this graph, ascending.
func (b *GraphstoreBackend) Epochs() []int {
	out := make([]int, 0, b.epochs.Len())
	b.epochs.Ascend(func(i btree.Item) bool {
		out = append(out, i.(epochSegment).epoch)
		return true
	})
	return out
}

// ActiveEpoch returns the epoch currently serving traversals (the
// highest loaded).
func (b *GraphstoreBackend) ActiveEpoch() int {
	return b.epochs.Max().(epochSegment).epoch
}

func (b *GraphstoreBackend) Start(label, key string) (string, error) {
	id, ok := b.labelKeyToID[label+sep+key]
	if !ok {
		return "", errs.ErrName.New("unknown node " + label + ":" + key)
	}
	return fmt.Sprint(id), nil
}

func (b *GraphstoreBackend) Resolve(id string) (string, string, error) {
	var n uint64
	if _, err := fmt.Sscan(id, &n); err != nil {
		return "", "", errs.ErrName.New("malformed graphstore node id " + id)
	}
	lk, ok := b.idToLabelKey[n]
	if !ok {
		return "", "", errs.ErrName.New("unknown graphstore node id " + id)
	}
	return lk[0], lk[1], nil
}

func (b *GraphstoreBackend) HasCost() bool { return false }

func (b *GraphstoreBackend) Neighbors(id, etype string, lower, upper *int64) ([]Edge, error) {
	var n uint64
	if _, err := fmt.Sscan(id, &n); err != nil {
		return nil, errs.ErrName.New("malformed graphstore node id " + id)
	}
	if n+1 >= uint64(len(b.adj.rowPtr)) {
		return nil, errs.ErrName.New("graphstore node id out of range")
	}
	start, end := b.adj.rowPtr[n], b.adj.rowPtr[n+1]
	out := make([]Edge, 0, end-start)
	for _, nb := range b.adj.cols[start:end] {
		out = append(out, Edge{To: fmt.Sprint(nb), Cost: 1})
	}
	return out, nil
}
