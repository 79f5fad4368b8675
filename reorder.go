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
	"cmp"
	"fmt"
	"slices"
)

type weightedEntry struct {
	key    string
	value  uint64
	weight uint64
}

// Reorder rebuilds the bucket array in a reproducible order. Entries are
// sorted by descending key weight (the sum of the key's bytes), ties broken
// by their current bucket order, every bucket is returned to never-used and
// the entries are reinserted in sorted order. The capacity and probe offsets
// are unchanged, so for a given seed the resulting layout depends only on
// the set of entries and the order of equal-weight keys.
func (t *Table) Reorder() {
	entries := make([]weightedEntry, 0, t.used)
	t.All(func(key string, value uint64) bool {
		entries = append(entries, weightedEntry{key: key, value: value, weight: keyWeight(key)})
		return true
	})
	slices.SortStableFunc(entries, func(a, b weightedEntry) int {
		return cmp.Compare(b.weight, a.weight)
	})

	if debug {
		fmt.Printf("reorder: %d entries capacity=%d\n", len(entries), len(t.buckets))
	}

	t.Clear()
	for _, e := range entries {
		t.uncheckedInsert(e.key, e.value)
	}
	t.checkInvariants()
}

// keyWeight returns the sum of the bytes of key.
func keyWeight(key string) uint64 {
	var w uint64
	for i := 0; i < len(key); i++ {
		w += uint64(key[i])
	}
	return w
}
