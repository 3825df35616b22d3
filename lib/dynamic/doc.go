// Package dynamic implements the scheduled block update record consumed by
// the per-region update queues of the simulation core.
//
// A BlockUpdate records that a block position needs re-evaluation at a
// given tick. Each update carries a packed region-local position key (see
// the spatial package), a due tick, an opaque payload and a creation ID
// drawn from a global monotonic counter. The ID is assigned exactly once
// at construction and is the sole identity of the update: two updates with
// identical position, due tick and payload but different IDs are never
// equal.
//
// Updates form a strict total order: earlier due tick first, creation ID
// as the tie breaker. The comparison is safe for due ticks separated by
// more than 2^31, which matters for long-running worlds.
//
// Collisions of position keys within a queue bucket are resolved by an
// intrusive singly-linked chain through the update's single mutable field.
// This avoids a second allocation per scheduled update at the cost of a
// bucket-local linear scan. The chain has no internal synchronization;
// the owner of a bucket must serialize all mutation of that bucket's
// chain under its own locking discipline.
package dynamic
