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

// Package hashtable implements an open-addressing hash table from string
// keys to uint64 values.
//
// # Layout
//
// A Table is an array of capacity buckets. Each bucket is in one of three
// states: never-used, occupied or tombstoned (see BucketState). A key hashes
// to a home slot, hash(key) % capacity. Collisions are resolved by probing
// the slots home+offsets[0], home+offsets[1], ... (mod capacity), where
// offsets is a random permutation of [1, capacity-1] that is generated once
// per capacity and shared by every key. Because offsets is a permutation,
// the home slot followed by the capacity-1 probe slots visits every bucket
// exactly once, so a probe sequence is bounded by capacity steps and an
// insert finds a vacant bucket whenever one exists.
//
// This is not double hashing: keys with the same home slot follow the same
// probe sequence. The permutation breaks up the primary clustering of linear
// probing without requiring a second hash per key.
//
// # Deletion
//
// Deletion is performed using tombstones. Lookups stop at the first
// never-used bucket, which proves the key was never inserted further along
// the sequence, and continue through tombstones. An insert walks the
// sequence to rule out a duplicate and places the entry in the first
// never-used bucket it reaches; only when the entire sequence is free of
// never-used buckets does it reuse the earliest tombstone. Tombstones are
// dropped when the table grows, which rebuilds the bucket array from the
// live entries.
//
// # Growth
//
// The table doubles its capacity before an insert that would push the load
// factor, used/capacity, above the configured maximum (0.5 by default). The
// new bucket array gets a freshly generated offset permutation and every
// live entry is reinserted in slot order.
//
// A Table is NOT goroutine-safe.
package hashtable

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/rand"
)

const (
	debug = false

	defaultCapacity      = 8
	defaultMaxLoadFactor = 0.5
)

// Table is an open-addressing hash table from string keys to uint64 values
// with Insert, Get, Remove and GetOrInsert operations.
type Table struct {
	// The hash function applied to keys along with seed.
	hash   hashFn
	seed   uint64
	seeded bool
	// rng generates the probe offsets for each capacity the table takes on.
	// It is seeded from seed so that layouts are reproducible.
	rng *rand.Rand
	// The allocator to use for the buckets slice.
	allocator Allocator
	// The load factor an insert may not push the table beyond.
	maxLoadFactor float64
	// buckets is capacity in length.
	buckets []Bucket
	// offsets is a permutation of [1, capacity-1].
	offsets []int
	// The number of occupied buckets.
	used int
	// generation is bumped whenever entries may move or be vacated. Handles
	// from an earlier generation are stale.
	generation uint64
}

// Handle refers to an occupied bucket returned by GetOrInsert. A Handle is
// only valid until the next call to Remove, Reorder, Clear, Close or any
// operation that grows the table; using it afterwards panics.
type Handle struct {
	index      int
	generation uint64
}

// Index returns the bucket index the handle refers to.
func (h Handle) Index() int { return h.index }

// New constructs a new Table with the specified initial capacity. If
// initialCapacity is <= 0 the table starts out with a capacity of 8.
func New(initialCapacity int, options ...option) *Table {
	t := &Table{
		hash:          XXHash,
		allocator:     defaultAllocator{},
		maxLoadFactor: defaultMaxLoadFactor,
	}

	for _, op := range options {
		op.apply(t)
	}

	if !t.seeded {
		t.seed = rand.Uint64()
	}
	t.rng = rand.New(rand.NewSource(t.seed))

	if initialCapacity <= 0 {
		initialCapacity = defaultCapacity
	}
	t.buckets = t.allocator.Alloc(initialCapacity)
	t.offsets = GenerateOffsets(initialCapacity, t.rng)

	t.checkInvariants()
	return t
}

// Close releases the bucket array back to the configured allocator. It is
// unnecessary to close a table using the default allocator. It is invalid to
// use a Table after it has been closed, though Close itself is idempotent.
func (t *Table) Close() {
	if t.buckets != nil {
		t.allocator.Free(t.buckets)
	}
	t.buckets = nil
	t.offsets = nil
	t.used = 0
	t.generation++
}

// Insert adds key with the given value. It returns false, leaving the table
// unchanged, if key is already present.
func (t *Table) Insert(key string, value uint64) bool {
	t.maybeGrow()

	i, found := t.probe(key)
	if found {
		if debug {
			fmt.Printf("insert(%q): duplicate at index=%d\n", key, i)
		}
		return false
	}
	if i < 0 {
		// Unreachable while maxLoadFactor < 1, but a full table is reported
		// rather than overflowed.
		if debug {
			fmt.Printf("insert(%q): no vacant bucket\n", key)
		}
		return false
	}

	t.place(i, key, value)
	t.checkInvariants()
	return true
}

// Remove deletes the entry for key, leaving a tombstone behind. It returns
// false if key is not present.
func (t *Table) Remove(key string) bool {
	i, found := t.probe(key)
	if !found {
		if debug {
			fmt.Printf("remove(%q): not found\n", key)
		}
		return false
	}

	t.buckets[i].markRemoved()
	t.used--
	t.generation++
	if debug {
		fmt.Printf("remove(%q): index=%d used=%d\n", key, i, t.used)
	}
	t.checkInvariants()
	return true
}

// Get retrieves the value for key, returning ok=false if the key is not
// present.
func (t *Table) Get(key string) (value uint64, ok bool) {
	i, found := t.probe(key)
	if !found {
		return 0, false
	}
	return t.buckets[i].value, true
}

// Contains reports whether key is present.
func (t *Table) Contains(key string) bool {
	_, ok := t.Get(key)
	return ok
}

// GetOrInsert returns a handle to the value stored for key, inserting key
// with a value of 0 if it is not present. Use Value and SetValue to access
// the value through the handle.
func (t *Table) GetOrInsert(key string) Handle {
	t.maybeGrow()

	for retried := false; ; retried = true {
		i, found := t.probe(key)
		if found {
			return Handle{index: i, generation: t.generation}
		}
		if i >= 0 {
			t.place(i, key, 0)
			t.checkInvariants()
			return Handle{index: i, generation: t.generation}
		}
		// Doubling the capacity leaves at least half of the buckets
		// never-used, so a second attempt always finds a vacancy.
		if retried {
			panic(fmt.Sprintf("hashtable: no vacant bucket for %q after growing\n%s", key, t.debugString()))
		}
		t.resize(2 * len(t.buckets))
	}
}

// Value returns the value h refers to. It panics if h is stale.
func (t *Table) Value(h Handle) uint64 {
	return t.at(h).value
}

// SetValue overwrites the value h refers to. It panics if h is stale.
func (t *Table) SetValue(h Handle, value uint64) {
	b := t.at(h)
	b.load(b.key, value)
}

// Put sets the value for key, inserting it if it is not present.
func (t *Table) Put(key string, value uint64) {
	t.SetValue(t.GetOrInsert(key), value)
}

func (t *Table) at(h Handle) *Bucket {
	if h.generation != t.generation {
		panic(fmt.Sprintf("hashtable: stale handle (generation %d, table generation %d)",
			h.generation, t.generation))
	}
	b := &t.buckets[h.index]
	b.mustBeOccupied("handle")
	return b
}

// Keys returns the keys of every entry in bucket order.
func (t *Table) Keys() []string {
	keys := make([]string, 0, t.used)
	t.All(func(key string, _ uint64) bool {
		keys = append(keys, key)
		return true
	})
	return keys
}

// All calls yield sequentially for each key and value present in the table,
// in bucket order. If yield returns false, iteration stops. The table can be
// mutated during iteration, though there is no guarantee that the mutations
// will be visible to the iteration.
func (t *Table) All(yield func(key string, value uint64) bool) {
	// Snapshot the buckets so that iteration remains valid if the table is
	// resized during iteration.
	buckets := t.buckets
	for i := range buckets {
		b := buckets[i]
		if b.state == Occupied {
			if !yield(b.key, b.value) {
				return
			}
		}
	}
}

// Buckets calls yield sequentially for every bucket, occupied or not, along
// with its index. If yield returns false, iteration stops. It exposes the
// full bucket layout for diagnostics.
func (t *Table) Buckets(yield func(i int, b Bucket) bool) {
	for i, b := range t.buckets {
		if !yield(i, b) {
			return
		}
	}
}

// Len returns the number of entries in the table.
func (t *Table) Len() int {
	return t.used
}

// Capacity returns the number of buckets.
func (t *Table) Capacity() int {
	return len(t.buckets)
}

// LoadFactor returns Len()/Capacity(), or 0 if the table has no buckets.
func (t *Table) LoadFactor() float64 {
	if len(t.buckets) == 0 {
		return 0
	}
	return float64(t.used) / float64(len(t.buckets))
}

// Clear deletes all entries. The capacity and probe offsets are retained and
// every bucket is returned to the never-used state.
func (t *Table) Clear() {
	for i := range t.buckets {
		t.buckets[i] = Bucket{}
	}
	t.used = 0
	t.generation++
	t.checkInvariants()
}

// String returns one line per occupied bucket of the form
// "Bucket <index>: <key, value>".
func (t *Table) String() string {
	var buf strings.Builder
	_, _ = t.WriteTo(&buf)
	return buf.String()
}

// WriteTo writes the output of String to w.
func (t *Table) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for i := range t.buckets {
		b := t.buckets[i]
		if b.state != Occupied {
			continue
		}
		m, err := fmt.Fprintf(w, "Bucket %d: %s\n", i, b)
		n += int64(m)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

// homeIndex returns the slot key hashes to before any probing.
func (t *Table) homeIndex(key string) int {
	return int(t.hash(key, t.seed) % uint64(len(t.buckets)))
}

// probeIndex returns the slot examined on the given attempt of a probe
// sequence starting at home. Attempt -1 is the home slot itself.
func (t *Table) probeIndex(home, attempt int) int {
	if attempt < 0 {
		return home
	}
	return (home + t.offsets[attempt]) % len(t.buckets)
}

// probe walks the probe sequence for key. If an occupied bucket holding key
// is found, its index is returned with found=true. Otherwise probe returns
// the bucket an insert of key should use: the first never-used bucket on the
// sequence, or if the sequence has none, the earliest tombstone. -1 is
// returned if every bucket on the sequence is occupied.
//
// Reaching a never-used bucket ends the walk since key cannot have been
// placed beyond it. Tombstones do not prove absence and the walk continues
// through them.
func (t *Table) probe(key string) (index int, found bool) {
	home := t.homeIndex(key)
	if debug {
		fmt.Printf("probe(%q): home=%d capacity=%d\n", key, home, len(t.buckets))
	}

	tombstone := -1
	for attempt := -1; attempt < len(t.offsets); attempt++ {
		i := t.probeIndex(home, attempt)
		b := &t.buckets[i]
		switch b.state {
		case Occupied:
			if b.key == key {
				if debug {
					fmt.Printf("probe(found): index=%d attempt=%d\n", i, attempt)
				}
				return i, true
			}
		case NeverUsed:
			if debug {
				fmt.Printf("probe(not-found): index=%d attempt=%d\n", i, attempt)
			}
			return i, false
		case Tombstoned:
			if tombstone < 0 {
				tombstone = i
			}
		}
	}

	if debug {
		fmt.Printf("probe(exhausted): tombstone=%d\n", tombstone)
	}
	return tombstone, false
}

// place loads key and value into the vacant bucket at index i.
func (t *Table) place(i int, key string, value uint64) {
	t.buckets[i].load(key, value)
	t.used++
	if debug {
		fmt.Printf("place(%q,%d): index=%d used=%d\n", key, value, i, t.used)
	}
}

// uncheckedInsert inserts an entry known not to be in the table into a table
// known to have a vacant bucket. Used when rebuilding the bucket array.
func (t *Table) uncheckedInsert(key string, value uint64) {
	i, found := t.probe(key)
	if found || i < 0 {
		panic(fmt.Sprintf("hashtable: cannot reinsert %q (index=%d found=%t)\n%s",
			key, i, found, t.debugString()))
	}
	t.place(i, key, value)
}

// maybeGrow doubles the capacity until one more entry fits without exceeding
// the max load factor.
func (t *Table) maybeGrow() {
	for float64(t.used+1) > t.maxLoadFactor*float64(len(t.buckets)) {
		t.resize(2 * len(t.buckets))
	}
}

// resize replaces the bucket array with one of newCapacity never-used
// buckets, generates new probe offsets and reinserts every live entry in
// slot order. Tombstones are not carried over. Since the new table starts
// empty, no reinsertion can hit a duplicate or need a tombstone.
func (t *Table) resize(newCapacity int) {
	if newCapacity < 1 {
		newCapacity = 1
	}

	old := t.buckets
	if debug {
		fmt.Printf("resize: capacity=%d->%d used=%d\n", len(old), newCapacity, t.used)
	}

	t.buckets = t.allocator.Alloc(newCapacity)
	t.offsets = GenerateOffsets(newCapacity, t.rng)
	t.used = 0
	t.generation++

	for i := range old {
		if b := &old[i]; b.state == Occupied {
			t.uncheckedInsert(b.key, b.value)
		}
	}

	if old != nil {
		t.allocator.Free(old)
	}
	t.checkInvariants()
}

func (t *Table) checkInvariants() {
	if invariants {
		capacity := len(t.buckets)
		if len(t.offsets) != max(capacity-1, 0) {
			panic(fmt.Sprintf("invariant failed: %d offsets for capacity %d\n%s",
				len(t.offsets), capacity, t.debugString()))
		}
		seen := make([]bool, capacity)
		for _, o := range t.offsets {
			if o < 1 || o >= capacity || seen[o] {
				panic(fmt.Sprintf("invariant failed: offsets %v are not a permutation of [1, %d]",
					t.offsets, capacity-1))
			}
			seen[o] = true
		}

		// For every occupied bucket, verify we can retrieve the key using
		// probe. Vacant buckets must not carry a payload.
		var used int
		for i := range t.buckets {
			b := &t.buckets[i]
			switch b.state {
			case Occupied:
				if j, found := t.probe(b.key); !found || j != i {
					panic(fmt.Sprintf("invariant failed: bucket(%d): %q not found (probe=%d)\n%s",
						i, b.key, j, t.debugString()))
				}
				used++
			case NeverUsed, Tombstoned:
				if b.key != "" || b.value != 0 {
					panic(fmt.Sprintf("invariant failed: bucket(%d): %s bucket has payload <%q, %d>",
						i, b.state, b.key, b.value))
				}
			default:
				panic(fmt.Sprintf("invariant failed: bucket(%d): unknown state %d", i, b.state))
			}
		}

		if used != t.used {
			panic(fmt.Sprintf("invariant failed: found %d occupied buckets, but used count is %d\n%s",
				used, t.used, t.debugString()))
		}
		if capacity > 0 && t.LoadFactor() > t.maxLoadFactor {
			panic(fmt.Sprintf("invariant failed: load factor %.3f exceeds %.3f\n%s",
				t.LoadFactor(), t.maxLoadFactor, t.debugString()))
		}
	}
}

func (t *Table) debugString() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "capacity=%d  used=%d  generation=%d\n", len(t.buckets), t.used, t.generation)
	fmt.Fprintf(&buf, "  offsets: %v\n", t.offsets)
	for i, b := range t.buckets {
		if b.state == Occupied {
			fmt.Fprintf(&buf, "  %4d: %s [home=%d]\n", i, b, t.homeIndex(b.key))
		} else {
			fmt.Fprintf(&buf, "  %4d: %s\n", i, b)
		}
	}
	return buf.String()
}
