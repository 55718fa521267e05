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

package ident

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	def := Defaults{DB: "main", Schema: "public"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", "orders", "main/public/orders"},
		{"dotted two-part", "sales.orders", "main/sales/orders"},
		{"full dotted", "a.b.c", "a/b/c"},
		{"slashed", "a/b/c", "a/b/c"},
		{"quoted preserves case", `"Orders"`, "main/public/Orders"},
		{"mixed quote and bare", `sales."Orders"`, "main/sales/Orders"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in, def, false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	def := Defaults{DB: "main", Schema: "public"}
	ids := []string{"orders", "sales.orders", `"Orders"`, "a/b/c"}
	for _, raw := range ids {
		first, err := Normalize(raw, def, false)
		require.NoError(t, err)
		second, err := Normalize(first.String(), def, false)
		require.NoError(t, err)
		assert.Equal(t, first.String(), second.String())
	}
}

func TestNormalizeTimeTableSuffix(t *testing.T) {
	def := Defaults{DB: "main", Schema: "public"}
	got, err := Normalize("t.time", def, true)
	require.NoError(t, err)
	assert.Equal(t, "main/public/t.time", got.String())
	assert.True(t, got.TimeTable)

	got2, err := Normalize("t.time", def, false)
	require.NoError(t, err)
	assert.False(t, got2.TimeTable)
}

func TestNormalizeTooManySegments(t *testing.T) {
	def := Defaults{DB: "main", Schema: "public"}
	_, err := Normalize("a.b.c.d", def, false)
	require.Error(t, err)
}

func TestNormalizeEmpty(t *testing.T) {
	def := Defaults{DB: "main", Schema: "public"}
	_, err := Normalize("", def, false)
	require.Error(t, err)
}
