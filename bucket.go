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
	"fmt"
	"strconv"
)

// BucketState is the occupancy state of a single Bucket. Every bucket begins
// life as NeverUsed, becomes Occupied when loaded with an entry and
// Tombstoned when that entry is removed. A Tombstoned bucket can be reloaded,
// but never returns to NeverUsed except when the whole bucket array is
// replaced (resize, Reorder, Clear).
//
//	NeverUsed --load--> Occupied --markRemoved--> Tombstoned
//	                     ^   |  ^                     |
//	                     +---+  +-------load----------+
type BucketState uint8

const (
	// NeverUsed buckets have held no entry since the bucket array was
	// allocated. Reaching one during a probe proves the key is absent.
	NeverUsed BucketState = iota
	// Occupied buckets hold a live key/value pair.
	Occupied
	// Tombstoned buckets held an entry that was removed. Probes must
	// continue past them.
	Tombstoned
)

func (s BucketState) String() string {
	switch s {
	case NeverUsed:
		return "never-used"
	case Occupied:
		return "occupied"
	case Tombstoned:
		return "tombstone"
	default:
		return "BucketState(" + strconv.Itoa(int(s)) + ")"
	}
}

// Bucket is a single storage cell of a Table. The zero value is a NeverUsed
// bucket. The key and value are only set while the bucket is Occupied; the
// state transitions below clear them otherwise so that a vacant bucket never
// carries a stale payload.
type Bucket struct {
	key   string
	value uint64
	state BucketState
}

// load stores key and value and marks the bucket Occupied. Loading an
// already Occupied bucket overwrites its payload in place.
func (b *Bucket) load(key string, value uint64) {
	b.key = key
	b.value = value
	b.state = Occupied
}

// markRemoved turns the bucket into a tombstone, dropping its payload.
func (b *Bucket) markRemoved() {
	*b = Bucket{state: Tombstoned}
}

// State returns the occupancy state of the bucket.
func (b Bucket) State() BucketState { return b.state }

// IsOccupied reports whether the bucket holds a live entry.
func (b Bucket) IsOccupied() bool { return b.state == Occupied }

// IsNeverUsed reports whether the bucket has never held an entry.
func (b Bucket) IsNeverUsed() bool { return b.state == NeverUsed }

// IsTombstoned reports whether the bucket held an entry that was removed.
func (b Bucket) IsTombstoned() bool { return b.state == Tombstoned }

// IsVacant reports whether the bucket can accept a new entry, i.e. it is
// either NeverUsed or Tombstoned.
func (b Bucket) IsVacant() bool { return b.state != Occupied }

// Key returns the key stored in the bucket. It panics if the bucket is not
// Occupied.
func (b Bucket) Key() string {
	b.mustBeOccupied("Key")
	return b.key
}

// Value returns the value stored in the bucket. It panics if the bucket is
// not Occupied.
func (b Bucket) Value() uint64 {
	b.mustBeOccupied("Value")
	return b.value
}

func (b Bucket) mustBeOccupied(op string) {
	if b.state != Occupied {
		panic(fmt.Sprintf("hashtable: Bucket.%s called on %s bucket", op, b.state))
	}
}

// String formats an occupied bucket as "<key, value>" and a vacant one as
// "[never-used]" or "[tombstone]".
func (b Bucket) String() string {
	if b.state == Occupied {
		return "<" + b.key + ", " + strconv.FormatUint(b.value, 10) + ">"
	}
	return "[" + b.state.String() + "]"
}
