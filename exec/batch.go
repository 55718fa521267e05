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

	"github.com/euanmacinnes/clarium/errs"
	"github.com/euanmacinnes/clarium/types"
)

// RowIDPrefix tags the hidden per-alias row-identity column design note §9
// describes: "give every alias a hidden __row_id.<alias> column so TVFs
// like nearest_neighbors can be joined back without relying on primary
// keys."
const RowIDPrefix = "__row_id"

// ColRef names one column of a Batch: an optional source alias plus the
// column's own name. Two columns with the same Name but different Alias
// are distinct and only collide when referenced unqualified.
type ColRef struct {
	Alias string
	Name  string
}

// Row is one batch record, positionally aligned with the owning Batch's
// Cols.
type Row []types.Value

// Batch is the columnar unit the pipeline stages pass between each other:
// an ordered column list plus the rows currently flowing through the
// stage.
type Batch struct {
	Cols []ColRef
	Rows []Row
}

// NewBatch returns an empty batch with the given columns.
func NewBatch(cols []ColRef) *Batch {
	return &Batch{Cols: cols}
}

// IndexOf resolves (qualifier, name) to a column position. qualifier may
// be empty, in which case the first unqualified-or-any-alias match wins;
// an empty qualifier matching more than one alias is NOT an error here
// (spec leaves bare-name disambiguation to the query author via
// alias.col), but zero matches is a NameError.
func (b *Batch) IndexOf(qualifier, name string) (int, error) {
	if qualifier != "" {
		for i, c := range b.Cols {
			if c.Alias == qualifier && c.Name == name {
				return i, nil
			}
		}
		return -1, errs.ErrName.New(fmt.Sprintf("unknown column %s.%s", qualifier, name))
	}
	for i, c := range b.Cols {
		if c.Name == name {
			return i, nil
		}
	}
	return -1, errs.ErrName.New(fmt.Sprintf("unknown column %q", name))
}

// RowIDIndex returns the index of the hidden row-id column for alias.
func (b *Batch) RowIDIndex(alias string) (int, error) {
	return b.IndexOf(alias, RowIDPrefix)
}

// Rename returns a copy of b whose every column's Alias is replaced with
// newAlias, used when a FromSubquery or CTE reference collapses its
// internal qualifiers behind the outer alias.
func (b *Batch) Rename(newAlias string) *Batch {
	cols := make([]ColRef, len(b.Cols))
	for i, c := range b.Cols {
		cols[i] = ColRef{Alias: newAlias, Name: c.Name}
	}
	return &Batch{Cols: cols, Rows: b.Rows}
}

// ExpandWildcard resolves a projected "*" (qualifier == "") or "alias.*"
// item to the concrete column list it stands for, per spec §4.6: bare "*"
// preserves alias-prefixed names, qualified "alias.*" expands to base
// names. Hidden __row_id.* columns are never included in a wildcard
// expansion.
func (b *Batch) ExpandWildcard(qualifier string) []ColRef {
	var out []ColRef
	for _, c := range b.Cols {
		if c.Name == RowIDPrefix {
			continue
		}
		if qualifier != "" && c.Alias != qualifier {
			continue
		}
		out = append(out, c)
	}
	return out
}

// projectedName is the display name of a wildcard-expanded column,
// prefixed with its alias only when that alias is non-empty (bare "*"
// keeps alias-prefixed names per spec §4.6).
func projectedName(c ColRef) string {
	if c.Alias == "" {
		return c.Name
	}
	return c.Alias + "." + c.Name
}
