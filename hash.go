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
	"unsafe"

	"github.com/cespare/xxhash/v2"
	"github.com/dchest/siphash"
	"golang.org/x/exp/rand"
)

type hashFn func(key string, seed uint64) uint64

// XXHash is the default hash function. It computes the 64-bit xxHash of key
// and folds in the seed.
func XXHash(key string, seed uint64) uint64 {
	return xxhash.Sum64String(key) ^ seed
}

// SipHash is a keyed hash function suitable for use with WithHash when keys
// may be chosen by an adversary. The seed is used as both halves of the
// 128-bit SipHash key, the second half inverted.
func SipHash(key string, seed uint64) uint64 {
	return siphash.Hash(seed, ^seed, stringBytes(key))
}

// stringBytes returns the bytes of s without copying. The result must not be
// modified.
func stringBytes(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}

// GenerateOffsets returns a random permutation of the integers
// [1, capacity-1] drawn from r. Every key probed against a table of the given
// capacity visits its home slot followed by home+offsets[i] (mod capacity)
// for each i, which covers every slot exactly once.
func GenerateOffsets(capacity int, r *rand.Rand) []int {
	if capacity <= 1 {
		return nil
	}
	offsets := make([]int, capacity-1)
	for i := range offsets {
		offsets[i] = i + 1
	}
	r.Shuffle(len(offsets), func(i, j int) {
		offsets[i], offsets[j] = offsets[j], offsets[i]
	})
	return offsets
}
