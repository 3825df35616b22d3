// Package spatial implements the packed region-local block keys used by the
// simulation core to address blocks and chunks with a single integer.
//
// A packed key collapses a 3-D block coordinate into one 32-bit value with
// 8 bits per axis, after masking each coordinate into the 256-block region
// window. Masking means wrap-around: callers may pass absolute world
// coordinates and always obtain a valid region-local key.
//
// Two properties of the packing are guaranteed and relied upon by callers:
//
//   - Stable masked round-trip: packing a coordinate and packing the same
//     coordinate plus any multiple of the region size yield the same key.
//
//   - Deterministic chunk membership: ChunkKey applies the same per-axis
//     shift used to pack, so the owning chunk of a packed key can be
//     computed without unpacking to world space.
//
// The exact bit layout beyond these two properties is an implementation
// detail and not a compatibility surface.
package spatial
