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

package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTypeWord(t *testing.T) {
	tests := map[string]CastName{
		"int8":             CastInt,
		"INTEGER":          CastInt,
		"double precision": CastFloat,
		"varchar(32)":      CastVarchar,
		"numeric(10,2)":    CastNumeric,
		"timestamp":        CastTimestamp,
		"jsonb":            CastJSON,
	}
	for in, want := range tests {
		got, err := NormalizeTypeWord(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}

func TestNormalizeTypeWordUnknown(t *testing.T) {
	_, err := NormalizeTypeWord("frobnicate")
	require.Error(t, err)
}

func TestCastRoundTrip(t *testing.T) {
	v, err := Cast("42", CastInt)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)

	v, err = Cast(int64(42), CastFloat)
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)

	v, err = Cast(nil, CastInt)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestParseVectorLiteral(t *testing.T) {
	v, err := ParseVectorLiteral("[0.1,0,0]")
	require.NoError(t, err)
	assert.Equal(t, Vec{0.1, 0, 0}, v)
}

func TestTryParseISOTimestamp(t *testing.T) {
	ms, ok := TryParseISOTimestamp("2020-01-01T00:00:00Z")
	assert.True(t, ok)
	assert.Equal(t, int64(1577836800000), ms)

	_, ok = TryParseISOTimestamp("not a date")
	assert.False(t, ok)
}
