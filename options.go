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

import "fmt"

// option provide an interface to do work on Table while it is being created.
type option interface {
	apply(t *Table)
}

type hashOption struct {
	hash hashFn
}

func (op hashOption) apply(t *Table) {
	t.hash = op.hash
}

// WithHash is an option to specify the hash function to use for a Table. The
// function is passed the table's seed and must be deterministic for a given
// (key, seed) pair.
func WithHash(hash func(key string, seed uint64) uint64) option {
	return hashOption{hash}
}

type seedOption struct {
	seed uint64
}

func (op seedOption) apply(t *Table) {
	t.seed = op.seed
	t.seeded = true
}

// WithSeed is an option to fix the seed passed to the hash function and used
// to generate probe offsets. Two tables constructed with the same seed and
// subjected to the same sequence of operations have identical bucket
// layouts. By default a random seed is used.
func WithSeed(seed uint64) option {
	return seedOption{seed}
}

type maxLoadFactorOption struct {
	maxLoadFactor float64
}

func (op maxLoadFactorOption) apply(t *Table) {
	if !(op.maxLoadFactor > 0 && op.maxLoadFactor < 1) {
		panic(fmt.Sprintf("hashtable: max load factor %v out of range (0, 1)", op.maxLoadFactor))
	}
	t.maxLoadFactor = op.maxLoadFactor
}

// WithMaxLoadFactor is an option to specify the load factor the table grows
// to avoid exceeding. The default is 0.5. It panics if f is not in (0, 1).
func WithMaxLoadFactor(f float64) option {
	return maxLoadFactorOption{f}
}

// Allocator specifies an interface for allocating and releasing the bucket
// arrays used by a Table. The default allocator utilizes Go's builtin make()
// and allows the GC to reclaim memory.
//
// If the allocator is manually managing memory and requires that bucket
// arrays be freed then Table.Close must be called in order to ensure Free is
// called for the final array.
type Allocator interface {
	// Alloc should return a slice equivalent to make([]Bucket, n).
	Alloc(n int) []Bucket

	// Free can optional release the memory associated with the supplied
	// slice that is guaranteed to have been allocated by Alloc.
	Free(v []Bucket)
}

type defaultAllocator struct{}

func (defaultAllocator) Alloc(n int) []Bucket {
	return make([]Bucket, n)
}

func (defaultAllocator) Free(v []Bucket) {
}

type allocatorOption struct {
	allocator Allocator
}

func (op allocatorOption) apply(t *Table) {
	t.allocator = op.allocator
}

// WithAllocator is an option for specify the Allocator to use for a Table.
func WithAllocator(allocator Allocator) option {
	return allocatorOption{allocator}
}
