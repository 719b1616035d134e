package kernel

// Interval is a contiguous run of bytes inside the physical pool,
// identified by its pool-relative offset.
type Interval struct {
	Offset uint32
	Size   uint32
}

// RegionAllocator hands out intervals of one fixed partition of the
// physical pool. Implementations come from the emulator boot layer; the
// kernel only consumes this contract.
type RegionAllocator interface {
	// Allocate reserves one contiguous interval and returns its pool
	// offset. ok is false when the region cannot satisfy the request.
	Allocate(size uint32) (offset uint32, ok bool)

	// AllocateFragmented reserves size bytes as one or more intervals,
	// following the region's heap placement strategy. It returns nil when
	// the region cannot satisfy the request in full; it never returns a
	// partial allocation.
	AllocateFragmented(size uint32) []Interval

	// Free returns a previously allocated interval to the region.
	Free(offset, size uint32)
}
