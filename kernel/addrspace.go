package kernel

import "github.com/amber-emu/amber/guestmem"

// RangeKind classifies a run of virtual address space.
type RangeKind uint8

const (
	// RangeFree is address space with nothing mapped into it.
	RangeFree RangeKind = iota
	// RangeBacked is mapped directly onto host memory.
	RangeBacked
)

// MemoryState is the guest-visible purpose of a mapped range.
type MemoryState uint8

const (
	StatePrivate MemoryState = iota
	StateShared
)

// RangeHandle identifies an installed range to the address space that
// created it. The kernel treats it as opaque.
type RangeHandle guestmem.VAddr

// VirtualRange describes one homogeneous run of an address space.
type VirtualRange struct {
	Kind  RangeKind
	State MemoryState
	Base  guestmem.VAddr
	Size  uint32
	Perms VMPermission

	// Backing is the host memory behind the range. It is non-nil exactly
	// when Kind is RangeBacked, and its length equals Size.
	Backing []byte
}

// AddressSpace is the virtual memory manager of one emulated process. The
// kernel reads and mutates process mappings only through this contract;
// the emulator supplies the real implementation.
type AddressSpace interface {
	// FindRange returns the range containing addr.
	FindRange(addr guestmem.VAddr) VirtualRange

	// InstallBackedMapping maps backing at addr with the given state.
	// The window must be free.
	InstallBackedMapping(addr guestmem.VAddr, backing []byte, state MemoryState) (RangeHandle, error)

	// SetPermission reprotects a range installed by InstallBackedMapping.
	SetPermission(h RangeHandle, perms VMPermission)

	// RemoveMapping unmaps [addr, addr+size), returning the window to the
	// free state.
	RemoveMapping(addr guestmem.VAddr, size uint32) error
}
