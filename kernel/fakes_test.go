package kernel

import (
	"fmt"
	"slices"

	"github.com/amber-emu/amber/guestmem"
)

// fakeRegionAllocator is a bump allocator over one partition of the pool.
// It never reuses freed intervals; freeBytes tracks the region's balance so
// tests can assert allocation round trips.
type fakeRegionAllocator struct {
	base uint32
	size uint32
	next uint32

	// fragmentSize, when nonzero, splits AllocateFragmented results into
	// chunks of this size.
	fragmentSize uint32

	// exhausted forces every allocation to fail.
	exhausted bool

	freeBytes uint32
	freed     []Interval
}

var _ RegionAllocator = (*fakeRegionAllocator)(nil)

func newFakeRegionAllocator(base, size uint32) *fakeRegionAllocator {
	return &fakeRegionAllocator{base: base, size: size, next: base, freeBytes: size}
}

func (a *fakeRegionAllocator) Allocate(size uint32) (uint32, bool) {
	if a.exhausted || size > a.size-(a.next-a.base) {
		return 0, false
	}
	offset := a.next
	a.next += size
	a.freeBytes -= size
	return offset, true
}

func (a *fakeRegionAllocator) AllocateFragmented(size uint32) []Interval {
	if a.exhausted || size > a.size-(a.next-a.base) {
		return nil
	}
	chunk := a.fragmentSize
	if chunk == 0 {
		chunk = size
	}
	var intervals []Interval
	for remaining := size; remaining > 0; {
		n := min(chunk, remaining)
		offset, ok := a.Allocate(n)
		if !ok {
			return nil
		}
		intervals = append(intervals, Interval{Offset: offset, Size: n})
		remaining -= n
	}
	return intervals
}

func (a *fakeRegionAllocator) Free(offset, size uint32) {
	a.freeBytes += size
	a.freed = append(a.freed, Interval{Offset: offset, Size: size})
}

// fakeAddressSpace is a minimal virtual memory manager: an ordered list of
// ranges covering the 32-bit space, split on install and coalesced on
// removal.
type fakeAddressSpace struct {
	ranges   []VirtualRange
	installs int

	// removeErr, when set, is returned by RemoveMapping.
	removeErr error
}

var _ AddressSpace = (*fakeAddressSpace)(nil)

func newFakeAddressSpace() *fakeAddressSpace {
	return &fakeAddressSpace{ranges: []VirtualRange{{Kind: RangeFree, Base: 0, Size: 0xFFFFFFFF}}}
}

func (f *fakeAddressSpace) indexOf(addr guestmem.VAddr) int {
	for i, r := range f.ranges {
		if addr >= r.Base && uint64(addr) < uint64(r.Base)+uint64(r.Size) {
			return i
		}
	}
	return -1
}

func (f *fakeAddressSpace) FindRange(addr guestmem.VAddr) VirtualRange {
	if i := f.indexOf(addr); i >= 0 {
		return f.ranges[i]
	}
	return VirtualRange{}
}

func (f *fakeAddressSpace) InstallBackedMapping(addr guestmem.VAddr, backing []byte, state MemoryState) (RangeHandle, error) {
	size := uint32(len(backing))
	i := f.indexOf(addr)
	if i < 0 || f.ranges[i].Kind != RangeFree {
		return 0, fmt.Errorf("window at %#x is not free", addr)
	}
	r := f.ranges[i]
	end := uint64(addr) + uint64(size)
	if rangeEnd := uint64(r.Base) + uint64(r.Size); end > rangeEnd {
		return 0, fmt.Errorf("window at %#x does not fit the free range", addr)
	}

	var out []VirtualRange
	if addr > r.Base {
		out = append(out, VirtualRange{Kind: RangeFree, Base: r.Base, Size: uint32(addr - r.Base)})
	}
	out = append(out, VirtualRange{Kind: RangeBacked, State: state, Base: addr, Size: size, Backing: backing})
	if rangeEnd := uint64(r.Base) + uint64(r.Size); end < rangeEnd {
		out = append(out, VirtualRange{Kind: RangeFree, Base: guestmem.VAddr(end), Size: uint32(rangeEnd - end)})
	}
	f.ranges = slices.Replace(f.ranges, i, i+1, out...)
	f.installs++
	return RangeHandle(addr), nil
}

func (f *fakeAddressSpace) SetPermission(h RangeHandle, perms VMPermission) {
	for i := range f.ranges {
		if f.ranges[i].Base == guestmem.VAddr(h) && f.ranges[i].Kind == RangeBacked {
			f.ranges[i].Perms = perms
			return
		}
	}
	panic(fmt.Sprintf("no installed range with handle %#x", uint32(h)))
}

func (f *fakeAddressSpace) RemoveMapping(addr guestmem.VAddr, size uint32) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	f.splitAt(addr)
	f.splitAt(addr + guestmem.VAddr(size))
	for i := range f.ranges {
		r := &f.ranges[i]
		if r.Base >= addr && uint64(r.Base) < uint64(addr)+uint64(size) {
			*r = VirtualRange{Kind: RangeFree, Base: r.Base, Size: r.Size}
		}
	}
	f.coalesce()
	return nil
}

// splitAt cuts the range containing addr in two so that addr starts a
// range. A range already starting at addr is left alone.
func (f *fakeAddressSpace) splitAt(addr guestmem.VAddr) {
	i := f.indexOf(addr)
	if i < 0 || f.ranges[i].Base == addr {
		return
	}
	r := f.ranges[i]
	head := uint32(addr - r.Base)
	first := VirtualRange{Kind: r.Kind, State: r.State, Base: r.Base, Size: head, Perms: r.Perms}
	second := VirtualRange{Kind: r.Kind, State: r.State, Base: addr, Size: r.Size - head, Perms: r.Perms}
	if r.Kind == RangeBacked {
		first.Backing = r.Backing[:head]
		second.Backing = r.Backing[head:]
	}
	f.ranges = slices.Replace(f.ranges, i, i+1, first, second)
}

func (f *fakeAddressSpace) coalesce() {
	for i := 0; i+1 < len(f.ranges); {
		a, b := f.ranges[i], f.ranges[i+1]
		if a.Kind == RangeFree && b.Kind == RangeFree && a.Base+guestmem.VAddr(a.Size) == b.Base {
			f.ranges[i].Size = a.Size + b.Size
			f.ranges = slices.Delete(f.ranges, i+1, i+2)
			continue
		}
		i++
	}
}
