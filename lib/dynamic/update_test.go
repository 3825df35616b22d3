package dynamic

import (
	"errors"
	"sort"
	"testing"

	"github.com/somners/Spout/lib/spatial"
)

// TestIDsAreUniqueAndMonotonic tests that creation IDs are assigned
// exactly once and strictly increase
func TestIDsAreUniqueAndMonotonic(t *testing.T) {
	a := NewBlockUpdate(1, 2, 3, 10, 0)
	b := NewBlockUpdate(1, 2, 3, 10, 0)

	if a.ID() == b.ID() {
		t.Fatal("two updates must never share a creation ID")
	}
	if b.ID() <= a.ID() {
		t.Errorf("IDs should be monotonic, got %d then %d", a.ID(), b.ID())
	}
}

// TestEqualityIsIDIdentity tests that equality ignores position, due tick
// and payload
func TestEqualityIsIDIdentity(t *testing.T) {
	a := NewBlockUpdate(5, 5, 5, 42, 7)
	b := NewBlockUpdate(5, 5, 5, 42, 7)

	if a.Equal(b) {
		t.Error("updates with identical fields but different IDs must not be equal")
	}
	if !a.Equal(a) {
		t.Error("an update must equal itself")
	}
	if a.Equal(nil) {
		t.Error("an update must not equal nil")
	}
	if a.Hash() == b.Hash() {
		t.Error("hash should follow the ID identity")
	}
}

// TestCompareOrdersByDueThenID tests the strict total order
func TestCompareOrdersByDueThenID(t *testing.T) {
	early := NewBlockUpdate(0, 0, 0, 100, 0)
	late := NewBlockUpdate(0, 0, 0, 200, 0)

	if early.Compare(late) >= 0 {
		t.Error("earlier due tick should sort first")
	}
	if late.Compare(early) <= 0 {
		t.Error("later due tick should sort last")
	}

	// Same due tick: creation ID breaks the tie, older first
	first := NewBlockUpdate(0, 0, 0, 300, 0)
	second := NewBlockUpdate(9, 9, 9, 300, 1)
	if first.Compare(second) >= 0 {
		t.Error("older update should sort first at equal due ticks")
	}
	if first.Compare(first) != 0 {
		t.Error("an update should compare equal to itself")
	}
}

// TestCompareNoWraparound tests that due ticks separated by more than the
// 32-bit range are still ordered correctly
func TestCompareNoWraparound(t *testing.T) {
	tests := []struct {
		a, b int64
	}{
		{0, 1 << 32},
		{1 << 32, 0},
		{-(1 << 33), 1 << 33},
		{-1, 1 << 31},
	}

	for _, tt := range tests {
		ua := NewBlockUpdate(0, 0, 0, tt.a, 0)
		ub := NewBlockUpdate(0, 0, 0, tt.b, 0)

		want := 0
		switch {
		case tt.a < tt.b:
			want = -1
		case tt.a > tt.b:
			want = 1
		}

		got := ua.Compare(ub)
		if (got < 0) != (want < 0) || (got > 0) != (want > 0) {
			t.Errorf("Compare(due=%d, due=%d) = %d, want sign %d", tt.a, tt.b, got, want)
		}
	}
}

// TestSortConsistency tests that sorting by Compare yields due-tick order
// with creation order as tie breaker
func TestSortConsistency(t *testing.T) {
	dues := []int64{50, 10, 50, 1 << 40, -(1 << 40), 10}
	updates := make([]*BlockUpdate, len(dues))
	for i, d := range dues {
		updates[i] = NewBlockUpdate(i, 0, 0, d, 0)
	}

	sort.Slice(updates, func(i, j int) bool {
		return updates[i].Compare(updates[j]) < 0
	})

	for i := 1; i < len(updates); i++ {
		prev, cur := updates[i-1], updates[i]
		if prev.Due() > cur.Due() {
			t.Fatalf("due ticks out of order at %d: %d > %d", i, prev.Due(), cur.Due())
		}
		if prev.Due() == cur.Due() && prev.ID() > cur.ID() {
			t.Fatalf("IDs out of order at %d for equal due ticks", i)
		}
	}
}

// TestConstructionMasksCoordinates tests the wrap-around normalization of
// out-of-range coordinates
func TestConstructionMasksCoordinates(t *testing.T) {
	wrapped := NewBlockUpdate(spatial.RegionBlocks, 0, 0, 1, 0)
	zero := NewBlockUpdate(0, 0, 0, 1, 0)

	if wrapped.Packed() != zero.Packed() {
		t.Errorf("coordinate %d should pack like coordinate 0, got %#x vs %#x",
			spatial.RegionBlocks, wrapped.Packed(), zero.Packed())
	}
}

// TestPackedConstructor tests construction from a pre-packed key
func TestPackedConstructor(t *testing.T) {
	key := spatial.Pack(12, 34, 56)
	u := NewPackedBlockUpdate(key, 99, 3)

	if u.X() != 12 || u.Y() != 34 || u.Z() != 56 {
		t.Errorf("unpacked position = (%d,%d,%d), want (12,34,56)", u.X(), u.Y(), u.Z())
	}
	if u.Due() != 99 || u.Data() != 3 {
		t.Error("due tick or payload not preserved")
	}
}

// TestInChunk tests the chunk membership check including masked chunk
// coordinates
func TestInChunk(t *testing.T) {
	u := NewBlockUpdate(35, 18, 250, 1, 0) // chunk (2, 1, 15)

	if !u.InChunk(2, 1, 15) {
		t.Error("update should belong to chunk (2,1,15)")
	}
	if u.InChunk(3, 1, 15) {
		t.Error("update should not belong to chunk (3,1,15)")
	}

	// Chunk coordinates outside the region window are masked as well
	if !u.InChunk(2+spatial.RegionChunks, 1, 15) {
		t.Error("chunk membership should mask absolute chunk coordinates")
	}
}

// TestChainAddRemove tests the chain round trip: A.Add(B).Add(C) yields
// C -> B -> A, Remove(B) yields C -> A with B unlinked
func TestChainAddRemove(t *testing.T) {
	a := NewBlockUpdate(1, 0, 0, 1, 0)
	b := NewBlockUpdate(2, 0, 0, 2, 0)
	c := NewBlockUpdate(3, 0, 0, 3, 0)

	head, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add(B) failed: %v", err)
	}
	head, err = head.Add(c)
	if err != nil {
		t.Fatalf("Add(C) failed: %v", err)
	}

	if head != c || head.Next() != b || head.Next().Next() != a || a.Next() != nil {
		t.Fatal("chain should be C -> B -> A")
	}

	head = head.Remove(b)
	if head != c || head.Next() != a {
		t.Fatal("after Remove(B) chain should be C -> A")
	}
	if b.Next() != nil {
		t.Error("removed update should have its link cleared")
	}
}

// TestChainRemoveHead tests that removing the head returns the new head
func TestChainRemoveHead(t *testing.T) {
	a := NewBlockUpdate(1, 0, 0, 1, 0)
	b := NewBlockUpdate(2, 0, 0, 2, 0)

	head, _ := a.Add(b) // b -> a

	head = head.Remove(b)
	if head != a {
		t.Fatal("removing the head should return the next update")
	}
	if b.Next() != nil {
		t.Error("removed head should have its link cleared")
	}

	// Chain of one: removing the head empties the chain
	if head.Remove(head) != nil {
		t.Error("removing the sole update should yield an empty chain")
	}
}

// TestChainRemoveAbsent tests that removing nil or a foreign update is a
// no-op
func TestChainRemoveAbsent(t *testing.T) {
	a := NewBlockUpdate(1, 0, 0, 1, 0)
	b := NewBlockUpdate(2, 0, 0, 2, 0)
	foreign := NewBlockUpdate(3, 0, 0, 3, 0)

	head, _ := a.Add(b)

	if head.Remove(nil) != head {
		t.Error("Remove(nil) should return the head unchanged")
	}
	if head.Remove(foreign) != head || head.Next() != a {
		t.Error("removing an absent update should leave the chain untouched")
	}
}

// TestAddAlreadyLinked tests that linking an update twice is rejected
func TestAddAlreadyLinked(t *testing.T) {
	a := NewBlockUpdate(1, 0, 0, 1, 0)
	b := NewBlockUpdate(2, 0, 0, 2, 0)
	c := NewBlockUpdate(3, 0, 0, 3, 0)

	head, _ := a.Add(b) // b -> a

	if _, err := c.Add(b); !errors.Is(err, ErrAlreadyLinked) {
		t.Errorf("adding a linked update should fail with ErrAlreadyLinked, got %v", err)
	}

	// Add(nil) is a no-op on the receiver
	got, err := head.Add(nil)
	if err != nil || got != head {
		t.Error("Add(nil) should return the receiver without error")
	}
}
