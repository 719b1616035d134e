package guestmem

import (
	"fmt"

	"github.com/pkg/errors"
)

// Pool is the flat block of emulated physical memory for one machine.
// Region allocators hand out offsets into it and kernel objects capture
// byte views aliasing it, so a write through any view is visible through
// every other view of the same interval.
type Pool struct {
	data []byte
}

// NewPool allocates a zeroed physical memory pool of the given size.
func NewPool(size uint32) (*Pool, error) {
	if size == 0 {
		return nil, errors.New("pool size must be nonzero")
	}
	if size%PageSize != 0 {
		return nil, errors.Errorf("pool size %#x is not a multiple of the page size %#x", size, PageSize)
	}
	return &Pool{data: make([]byte, size)}, nil
}

// Size returns the pool size in bytes.
func (p *Pool) Size() uint32 {
	return uint32(len(p.data))
}

// Slice returns a view of the interval [offset, offset+size). The view
// aliases the pool, it is not a copy. Its capacity is clamped to the
// interval so appends cannot bleed into neighboring intervals. An interval
// outside the pool is a host bug and panics.
func (p *Pool) Slice(offset, size uint32) []byte {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(p.data)) {
		panic(fmt.Sprintf("guestmem: interval [%#x, %#x) outside pool of size %#x", offset, end, len(p.data)))
	}
	return p.data[offset:end:end]
}
