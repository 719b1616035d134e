// Package kernel implements the high-level-emulation kernel objects of an
// emulated machine. It owns object semantics and bookkeeping; the CPU, the
// per-process virtual memory managers, and the region allocators are
// supplied by the surrounding emulator.
package kernel

import (
	"fmt"
	"sync/atomic"

	"github.com/amber-emu/amber/guestmem"
)

// RegionClass selects one of the fixed partitions of main RAM.
type RegionClass uint8

const (
	RegionApplication RegionClass = iota
	RegionSystem
	RegionBase
)

func (rc RegionClass) String() string {
	switch rc {
	case RegionApplication:
		return "application"
	case RegionSystem:
		return "system"
	case RegionBase:
		return "base"
	default:
		return fmt.Sprintf("region(%d)", uint8(rc))
	}
}

// KernelSystem owns the kernel-wide state of one emulated machine: the
// physical pool, the allocator of each memory region, and the identity
// counters for kernel objects and processes.
type KernelSystem struct {
	pool    *guestmem.Pool
	regions map[RegionClass]RegionAllocator

	nextObjectID  atomic.Uint32
	nextProcessID atomic.Uint32
}

// NewKernelSystem creates the kernel state for one machine. regions maps
// every memory region the machine uses to its allocator; using a region
// missing from the map is a boot layer bug and panics.
func NewKernelSystem(pool *guestmem.Pool, regions map[RegionClass]RegionAllocator) *KernelSystem {
	return &KernelSystem{pool: pool, regions: regions}
}

func (k *KernelSystem) memoryRegion(rc RegionClass) RegionAllocator {
	r, ok := k.regions[rc]
	if !ok {
		panic(fmt.Sprintf("kernel: no allocator for memory region %v", rc))
	}
	return r
}

func (k *KernelSystem) newObjectID() uint32 { return k.nextObjectID.Add(1) }
