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

// Results is the JSON-tagged shape of a successful query's payload, per
// the CLI boundary documented in spec §6 / SPEC_FULL's original_source
// supplement (src/cli/connectivity.rs): {status:"ok", results:{columns,
// rows}}. Response is the full envelope a CLI (or any other external
// collaborator) consumes; exec itself never serializes it, it only
// produces the struct.
type Results struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Response is the top-level {status, results|error} envelope.
type Response struct {
	Status  string  `json:"status"`
	Results *Results `json:"results,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// OK wraps b as a successful Response.
func OK(b *Batch) Response {
	return Response{Status: "ok", Results: toResults(b)}
}

// Err wraps err as a failed Response.
func Err(err error) Response {
	return Response{Status: "error", Error: err.Error()}
}

func toResults(b *Batch) *Results {
	r := &Results{Columns: make([]string, 0, len(b.Cols))}
	for _, c := range b.Cols {
		if c.Name == RowIDPrefix {
			continue
		}
		r.Columns = append(r.Columns, projectedName(c))
	}
	for _, row := range b.Rows {
		out := make([]interface{}, 0, len(r.Columns))
		for i, c := range b.Cols {
			if c.Name == RowIDPrefix {
				continue
			}
			out = append(out, row[i])
		}
		r.Rows = append(r.Rows, out)
	}
	return r
}
