// Copyright 2024 The Cockroach Authors
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

package hashtable

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyWeight(t *testing.T) {
	require.EqualValues(t, 0, keyWeight(""))
	require.EqualValues(t, 'a', keyWeight("a"))
	require.EqualValues(t, 'K'+'e'+'y'+'0', keyWeight("Key0"))
	require.Equal(t, keyWeight("ab"), keyWeight("ba"))
}

func TestReorderPreservesEntries(t *testing.T) {
	tbl := New(4, WithSeed(11))
	for i := 0; i < 20; i++ {
		require.True(t, tbl.Insert("Key"+strconv.Itoa(i), uint64(i*10)))
	}
	for i := 0; i < 20; i += 5 {
		require.True(t, tbl.Remove("Key"+strconv.Itoa(i)))
	}

	e := tbl.toBuiltinMap()
	capacity, size := tbl.Capacity(), tbl.Len()
	offsets := append([]int(nil), tbl.offsets...)

	tbl.Reorder()
	require.Equal(t, e, tbl.toBuiltinMap())
	require.Equal(t, capacity, tbl.Capacity())
	require.Equal(t, size, tbl.Len())
	require.Equal(t, offsets, tbl.offsets)

	// Tombstones are dropped by the rebuild.
	tbl.Buckets(func(_ int, b Bucket) bool {
		require.False(t, b.IsTombstoned())
		return true
	})
}

func TestReorderEmpty(t *testing.T) {
	tbl := New(8)
	tbl.Reorder()
	require.EqualValues(t, 0, tbl.Len())
	require.EqualValues(t, 8, tbl.Capacity())
}

func TestReorderPlacesHeaviestFirst(t *testing.T) {
	// All keys collide, so the reinsertion order is visible along the
	// shared probe sequence.
	tbl := New(16, constantHash(0), WithSeed(2))
	for _, k := range []string{"a", "ccc", "bb", "dddd"} {
		require.True(t, tbl.Insert(k, uint64(len(k))))
	}
	tbl.Reorder()

	var got []string
	for attempt := -1; attempt < 3; attempt++ {
		got = append(got, tbl.buckets[tbl.probeIndex(0, attempt)].Key())
	}
	require.Equal(t, []string{"dddd", "ccc", "bb", "a"}, got)
}

func TestReorderIsReproducible(t *testing.T) {
	// Keys with distinct weights. Two tables holding the same entries end up
	// with identical layouts regardless of insertion order.
	var keys []string
	for i := 1; i <= 12; i++ {
		keys = append(keys, strings.Repeat("x", i))
	}

	a := New(8, WithSeed(99))
	for _, k := range keys {
		require.True(t, a.Insert(k, uint64(len(k))))
	}
	b := New(8, WithSeed(99))
	for i := len(keys) - 1; i >= 0; i-- {
		require.True(t, b.Insert(keys[i], uint64(len(keys[i]))))
	}
	require.Equal(t, a.offsets, b.offsets)

	a.Reorder()
	b.Reorder()
	require.Equal(t, a.buckets, b.buckets)
	require.Equal(t, a.String(), b.String())
}
