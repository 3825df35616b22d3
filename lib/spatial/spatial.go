package spatial

// --------------------------------------------------------------------------
// Region geometry constants
// --------------------------------------------------------------------------

// The world is partitioned into regions of 256x256x256 blocks, themselves
// subdivided into chunks of 16x16x16 blocks. All keys produced by this
// package are region-local: absolute world coordinates are masked into the
// region window rather than rejected.
const (
	// ChunkBlockBits is the per-axis bit width of a block coordinate
	// within its chunk (16 blocks per chunk edge).
	ChunkBlockBits = 4

	// RegionBlockBits is the per-axis bit width of a block coordinate
	// within its region (256 blocks per region edge).
	RegionBlockBits = 8

	// RegionChunkBits is the per-axis bit width of a chunk coordinate
	// within its region (16 chunks per region edge).
	RegionChunkBits = RegionBlockBits - ChunkBlockBits

	// RegionBlocks is the number of blocks per region edge.
	RegionBlocks = 1 << RegionBlockBits

	// RegionBlockMask masks a block coordinate into the region window.
	RegionBlockMask = RegionBlocks - 1

	// RegionChunks is the number of chunks per region edge.
	RegionChunks = 1 << RegionChunkBits

	// RegionChunkMask masks a chunk coordinate into the region window.
	RegionChunkMask = RegionChunks - 1
)

// --------------------------------------------------------------------------
// Block keys
// --------------------------------------------------------------------------

// Pack collapses a block coordinate triple into a single region-local key.
// Each coordinate is masked (wrapped) into the region window first, so
// out-of-range input is silently normalized: Pack(RegionBlocks, y, z) and
// Pack(0, y, z) yield the same key.
func Pack(x, y, z int) uint32 {
	return uint32(x&RegionBlockMask)<<(2*RegionBlockBits) |
		uint32(y&RegionBlockMask)<<RegionBlockBits |
		uint32(z&RegionBlockMask)
}

// UnpackX extracts the region-local x block coordinate from a packed key.
func UnpackX(key uint32) int {
	return int((key >> (2 * RegionBlockBits)) & RegionBlockMask)
}

// UnpackY extracts the region-local y block coordinate from a packed key.
func UnpackY(key uint32) int {
	return int((key >> RegionBlockBits) & RegionBlockMask)
}

// UnpackZ extracts the region-local z block coordinate from a packed key.
func UnpackZ(key uint32) int {
	return int(key & RegionBlockMask)
}

// --------------------------------------------------------------------------
// Chunk keys
// --------------------------------------------------------------------------

// PackChunk collapses a chunk coordinate triple into a single region-local
// chunk key. As with Pack, coordinates are masked into the region window.
func PackChunk(cx, cy, cz int) uint32 {
	return uint32(cx&RegionChunkMask)<<(2*RegionChunkBits) |
		uint32(cy&RegionChunkMask)<<RegionChunkBits |
		uint32(cz&RegionChunkMask)
}

// ChunkKey derives the key of the chunk owning a packed block key by
// applying the same per-axis shift used to pack it. The result is
// comparable against PackChunk of the chunk's coordinates.
func ChunkKey(key uint32) uint32 {
	return PackChunk(
		UnpackX(key)>>ChunkBlockBits,
		UnpackY(key)>>ChunkBlockBits,
		UnpackZ(key)>>ChunkBlockBits,
	)
}
