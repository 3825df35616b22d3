package dynamic

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/somners/Spout/lib/spatial"
)

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

var (
	// ErrAlreadyLinked is returned by Add if the update to link is still
	// part of another chain.
	ErrAlreadyLinked = errors.New("block update is already part of a chain")
)

// --------------------------------------------------------------------------
// BlockUpdate
// --------------------------------------------------------------------------

// idCounter issues globally unique creation IDs. The ID is assigned
// exactly once per update and is only used for identity and tie-breaking.
var idCounter atomic.Uint64

// BlockUpdate is a scheduled re-evaluation of a single block position.
// All fields except the chain link are immutable after construction.
//
// Thread-safety: the chain link has no internal synchronization. All
// mutation of a bucket's chain (Add, Remove) must be serialized by the
// bucket owner.
type BlockUpdate struct {
	id     uint64
	packed uint32
	due    int64
	data   int32

	// next links updates sharing a queue bucket, newest head first.
	next *BlockUpdate
}

// NewBlockUpdate creates an update for the given block coordinates, due
// tick and opaque payload. Coordinates are masked into the region window,
// never rejected: out-of-range input wraps.
func NewBlockUpdate(x, y, z int, due int64, data int32) *BlockUpdate {
	return NewPackedBlockUpdate(spatial.Pack(x, y, z), due, data)
}

// NewPackedBlockUpdate creates an update from an already packed position
// key, due tick and opaque payload.
func NewPackedBlockUpdate(packed uint32, due int64, data int32) *BlockUpdate {
	return &BlockUpdate{
		id:     idCounter.Add(1),
		packed: packed,
		due:    due,
		data:   data,
	}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// ID returns the globally unique creation ID of this update.
func (u *BlockUpdate) ID() uint64 { return u.id }

// Packed returns the packed region-local position key.
func (u *BlockUpdate) Packed() uint32 { return u.packed }

// X returns the region-local x block coordinate.
func (u *BlockUpdate) X() int { return spatial.UnpackX(u.packed) }

// Y returns the region-local y block coordinate.
func (u *BlockUpdate) Y() int { return spatial.UnpackY(u.packed) }

// Z returns the region-local z block coordinate.
func (u *BlockUpdate) Z() int { return spatial.UnpackZ(u.packed) }

// Due returns the tick at which this update becomes due.
func (u *BlockUpdate) Due() int64 { return u.due }

// Data returns the opaque payload attached at construction.
func (u *BlockUpdate) Data() int32 { return u.data }

// Next returns the update chained after this one, or nil.
func (u *BlockUpdate) Next() *BlockUpdate { return u.next }

// ChunkKey returns the packed key of the chunk owning this update's
// position, derived with the same per-axis shift used to pack it.
func (u *BlockUpdate) ChunkKey() uint32 {
	return spatial.ChunkKey(u.packed)
}

// InChunk reports whether this update's position lies in the chunk with
// the given chunk coordinates. Both sides are masked into the region's
// chunk window first, so absolute chunk coordinates are accepted.
func (u *BlockUpdate) InChunk(cx, cy, cz int) bool {
	return u.ChunkKey() == spatial.PackChunk(cx, cy, cz)
}

// --------------------------------------------------------------------------
// Ordering and identity
// --------------------------------------------------------------------------

// Compare orders updates by due tick first, then by creation ID ascending.
// It returns a negative value if u sorts before other, a positive value if
// after, and never 0 for two distinct updates, so the order is strict and
// total.
func (u *BlockUpdate) Compare(other *BlockUpdate) int {
	if u.due != other.due {
		return clampDiff(u.due, other.due)
	}
	if u.id < other.id {
		return -1
	}
	if u.id > other.id {
		return 1
	}
	return 0
}

// clampDiff compares two signed 64-bit ticks by their difference. The
// difference is returned directly only when it fits a 32-bit signed range,
// otherwise it is clamped to +-1 by sign. Truncating the difference would
// misorder ticks separated by more than 2^31.
func clampDiff(a, b int64) int {
	diff := a - b
	if int64(int32(diff)) == diff {
		return int(diff)
	}
	if diff > 0 {
		return 1
	}
	return -1
}

// Equal reports whether two updates are the same update. Identity is the
// creation ID alone, independent of position, due tick and payload.
func (u *BlockUpdate) Equal(other *BlockUpdate) bool {
	return other != nil && u.id == other.id
}

// Hash returns a hash of the update's identity.
func (u *BlockUpdate) Hash() uint64 { return u.id }

func (u *BlockUpdate) String() string {
	return fmt.Sprintf("BlockUpdate{id: %d, pos: (%d, %d, %d), due: %d, data: %d}",
		u.id, u.X(), u.Y(), u.Z(), u.due, u.data)
}

// --------------------------------------------------------------------------
// Intrusive bucket chain
// --------------------------------------------------------------------------

// Add links other in front of this chain and returns the new head. Adding
// nil returns the receiver unchanged. Linking an update that is still part
// of a chain returns ErrAlreadyLinked: an update may be linked into at
// most one chain at a time.
func (u *BlockUpdate) Add(other *BlockUpdate) (*BlockUpdate, error) {
	if other == nil {
		return u, nil
	}
	if other.next != nil {
		return u, ErrAlreadyLinked
	}
	other.next = u
	return other, nil
}

// Remove unlinks target from the chain headed by u, clears target's link
// and returns the new head. Removing the head returns the next update
// (nil for a chain of one). A nil or absent target leaves the chain
// untouched.
func (u *BlockUpdate) Remove(target *BlockUpdate) *BlockUpdate {
	if u == nil || target == nil {
		return u
	}

	if target == u {
		head := u.next
		u.next = nil
		return head
	}

	for current := u; current.next != nil; current = current.next {
		if current.next == target {
			current.next = target.next
			target.next = nil
			break
		}
	}
	return u
}
