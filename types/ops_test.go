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

func TestArithIntStaysInt(t *testing.T) {
	v, err := Arith("+", int64(2), int64(3))
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestArithWidensToFloat(t *testing.T) {
	v, err := Arith("*", int64(2), 1.5)
	require.NoError(t, err)
	assert.Equal(t, 3.0, v)
}

func TestArithNullPropagates(t *testing.T) {
	v, err := Arith("+", nil, int64(1))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestCompareNullNeverOrdered(t *testing.T) {
	_, ok := Compare(nil, int64(1))
	assert.False(t, ok)
}

func TestLikeMatch(t *testing.T) {
	assert.True(t, LikeMatch("hello world", "hello%"))
	assert.True(t, LikeMatch("hello", "h_llo"))
	assert.False(t, LikeMatch("hello", "h_llox"))
}

func TestIsNullOrEmpty(t *testing.T) {
	assert.True(t, IsNullOrEmpty(nil))
	assert.True(t, IsNullOrEmpty(""))
	assert.False(t, IsNullOrEmpty("x"))
}
