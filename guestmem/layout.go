// Package guestmem defines the emulated machine's memory layout and the
// flat physical pool that backs it. Kernel objects hold byte views into the
// pool; the layout constants fix where the kernel windows guest mappings.
package guestmem

// VAddr is an address in an emulated process' virtual address space.
type VAddr uint32

// PAddr is an address in the emulated physical address space.
type PAddr uint32

// PageSize is the granularity of guest memory management.
const PageSize uint32 = 0x1000

// Physical layout.
const (
	FCRAMPAddr   PAddr  = 0x20000000 // base of main RAM
	FCRAMSize    uint32 = 0x08000000 // main RAM size, base model (128 MiB)
	FCRAMExtSize uint32 = 0x10000000 // main RAM size, extended model (256 MiB)
)

// Virtual layout windows of an emulated process.
const (
	HeapVAddr            VAddr = 0x08000000
	SharedMemoryVAddr    VAddr = 0x10000000
	SharedMemoryVAddrEnd VAddr = 0x14000000
	LinearHeapVAddr      VAddr = 0x14000000
	LinearHeapVAddrEnd   VAddr = 0x1C000000
	NewLinearHeapVAddr   VAddr = 0x30000000
)
