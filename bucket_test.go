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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBucketLifecycle(t *testing.T) {
	var b Bucket
	require.Equal(t, NeverUsed, b.State())
	require.True(t, b.IsNeverUsed())
	require.True(t, b.IsVacant())
	require.False(t, b.IsOccupied())
	require.False(t, b.IsTombstoned())
	require.Equal(t, "[never-used]", b.String())

	b.load("Alpha", 1)
	require.Equal(t, Occupied, b.State())
	require.True(t, b.IsOccupied())
	require.False(t, b.IsVacant())
	require.Equal(t, "Alpha", b.Key())
	require.EqualValues(t, 1, b.Value())
	require.Equal(t, "<Alpha, 1>", b.String())

	// Reloading an occupied bucket updates it in place.
	b.load("Alpha", 11)
	require.True(t, b.IsOccupied())
	require.EqualValues(t, 11, b.Value())

	b.markRemoved()
	require.Equal(t, Tombstoned, b.State())
	require.True(t, b.IsTombstoned())
	require.True(t, b.IsVacant())
	require.False(t, b.IsNeverUsed())
	require.Equal(t, "[tombstone]", b.String())
	require.Equal(t, Bucket{state: Tombstoned}, b)

	b.load("Beta", 2)
	require.True(t, b.IsOccupied())
	require.Equal(t, "<Beta, 2>", b.String())
}

func TestBucketPayloadRequiresOccupied(t *testing.T) {
	var b Bucket
	require.Panics(t, func() { _ = b.Key() })
	require.Panics(t, func() { _ = b.Value() })

	b.load("Alpha", 1)
	b.markRemoved()
	require.Panics(t, func() { _ = b.Key() })
	require.Panics(t, func() { _ = b.Value() })
}

func TestBucketStateString(t *testing.T) {
	testCases := []struct {
		state    BucketState
		expected string
	}{
		{NeverUsed, "never-used"},
		{Occupied, "occupied"},
		{Tombstoned, "tombstone"},
		{BucketState(7), "BucketState(7)"},
	}
	for _, c := range testCases {
		require.Equal(t, c.expected, c.state.String())
	}
}
