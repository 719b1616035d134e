package kernel

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/amber-emu/amber/guestmem"
	"github.com/amber-emu/amber/internal/log"
	"github.com/amber-emu/amber/internal/logfields"
	"github.com/amber-emu/amber/internal/oc"
)

// SharedMemory is the kernel object through which emulated processes share
// a block of physical memory, each mapping it into its own address space
// with negotiated permissions.
//
// Everything but the reference count is fixed at creation, so one object
// may be mapped into any number of processes concurrently.
type SharedMemory struct {
	id   uint32
	name string

	size             uint32
	permissions      MemoryPermission
	otherPermissions MemoryPermission

	// ownerProcess created the object. It is nil for kernel-owned objects.
	ownerProcess *Process

	// baseAddress is where the owner already has the memory mapped, or 0
	// when the backing was freshly allocated.
	baseAddress guestmem.VAddr

	// linearHeapPhysAddr locates freshly allocated backing inside main
	// RAM. Map requests at address 0 resolve against it.
	linearHeapPhysAddr guestmem.PAddr

	// backingBlocks are ordered views of the memory behind the object.
	// Their lengths sum to size.
	backingBlocks [][]byte

	// holdingMemory are the pool intervals the object allocated for
	// itself. The last Release returns them to region.
	holdingMemory []Interval
	region        RegionAllocator

	refs atomic.Int32
}

func newSharedMemory(k *KernelSystem, name string, size uint32, permissions, otherPermissions MemoryPermission) *SharedMemory {
	s := &SharedMemory{
		id:               k.newObjectID(),
		name:             name,
		size:             size,
		permissions:      permissions,
		otherPermissions: otherPermissions,
	}
	s.refs.Store(1)
	return s
}

func formatVAddr(a guestmem.VAddr) string {
	return fmt.Sprintf("%#010x", uint32(a))
}

// CreateSharedMemoryFromMapped creates a shared memory object wrapping
// memory the owner process already has mapped at address. The object
// allocates nothing of its own; it captures views of the owner's backing.
// Covering memory the owner does not have backed is unrecoverable.
func (k *KernelSystem) CreateSharedMemoryFromMapped(ctx context.Context, owner *Process, address guestmem.VAddr, size uint32, permissions, otherPermissions MemoryPermission, name string) *SharedMemory {
	_, span := oc.StartSpan(ctx, "kernel::KernelSystem::CreateSharedMemoryFromMapped")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute(logfields.Name, name),
		trace.Int64Attribute(logfields.ProcessID, int64(owner.ID())),
		trace.StringAttribute(logfields.Address, formatVAddr(address)),
		trace.Int64Attribute(logfields.Size, int64(size)))

	s := newSharedMemory(k, name, size, permissions, otherPermissions)
	s.ownerProcess = owner
	s.baseAddress = address

	// The memory is already mapped in the owner. Walk its ranges and
	// capture a view of every piece the window covers.
	vm := owner.AddressSpace()
	for addr, end := address, address+guestmem.VAddr(size); addr < end; {
		r := vm.FindRange(addr)
		if r.Kind != RangeBacked {
			panic(fmt.Sprintf("kernel: trying to share freed memory at %s (shared memory %q)", formatVAddr(addr), name))
		}
		start := uint32(addr - r.Base)
		n := min(r.Size-start, uint32(end-addr))
		s.backingBlocks = append(s.backingBlocks, r.Backing[start:start+n])
		addr += guestmem.VAddr(n)
	}
	return s
}

// CreateSharedMemory creates a shared memory object backed by a fresh
// contiguous allocation from the given memory region. owner may be nil for
// kernel-owned objects. Region exhaustion is unrecoverable.
func (k *KernelSystem) CreateSharedMemory(ctx context.Context, owner *Process, size uint32, permissions, otherPermissions MemoryPermission, region RegionClass, name string) *SharedMemory {
	_, span := oc.StartSpan(ctx, "kernel::KernelSystem::CreateSharedMemory")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute(logfields.Name, name),
		trace.Int64Attribute(logfields.Size, int64(size)),
		trace.StringAttribute(logfields.Region, region.String()))

	alloc := k.memoryRegion(region)
	offset, ok := alloc.Allocate(size)
	if !ok {
		panic(fmt.Sprintf("kernel: not enough space in region %v to allocate shared memory %q (%#x bytes)", region, name, size))
	}

	s := newSharedMemory(k, name, size, permissions, otherPermissions)
	s.ownerProcess = owner
	s.linearHeapPhysAddr = guestmem.FCRAMPAddr + guestmem.PAddr(offset)
	s.backingBlocks = [][]byte{k.pool.Slice(offset, size)}
	s.holdingMemory = []Interval{{Offset: offset, Size: size}}
	s.region = alloc

	if owner != nil {
		owner.addLinearHeapUsed(size)
	}
	return s
}

// CreateSystemSharedMemory creates a kernel-owned shared memory object for
// system services, backed block by block from the system region's heap
// allocator. offset positions the object's nominal base address inside the
// heap window; creation installs nothing anywhere.
func (k *KernelSystem) CreateSystemSharedMemory(ctx context.Context, offset, size uint32, permissions, otherPermissions MemoryPermission, name string) *SharedMemory {
	_, span := oc.StartSpan(ctx, "kernel::KernelSystem::CreateSystemSharedMemory")
	defer span.End()
	span.AddAttributes(
		trace.StringAttribute(logfields.Name, name),
		trace.Int64Attribute(logfields.Offset, int64(offset)),
		trace.Int64Attribute(logfields.Size, int64(size)))

	alloc := k.memoryRegion(RegionSystem)
	intervals := alloc.AllocateFragmented(size)
	if len(intervals) == 0 {
		panic(fmt.Sprintf("kernel: not enough space in region %v to allocate shared memory %q (%#x bytes)", RegionSystem, name, size))
	}
	if total := lo.SumBy(intervals, func(iv Interval) uint32 { return iv.Size }); total != size {
		panic(fmt.Sprintf("kernel: fragmented allocation for %q returned %#x bytes, want %#x", name, total, size))
	}

	s := newSharedMemory(k, name, size, permissions, otherPermissions)
	s.baseAddress = guestmem.HeapVAddr + guestmem.VAddr(offset)
	s.backingBlocks = lo.Map(intervals, func(iv Interval, _ int) []byte {
		return k.pool.Slice(iv.Offset, iv.Size)
	})
	s.holdingMemory = intervals
	s.region = alloc

	return s
}

// Map maps the object into target's address space with the requested
// permissions. address selects where; 0 asks for the canonical linear heap
// address and is only meaningful for freshly allocated objects.
// otherPermissions restates the grant for other processes and must be
// PermDontCare for freshly allocated objects.
//
// Validation happens strictly before any mutation: a non-nil error means
// target's address space is unchanged.
func (s *SharedMemory) Map(ctx context.Context, target *Process, address guestmem.VAddr, permissions, otherPermissions MemoryPermission) (err error) {
	ctx, span := oc.StartSpan(ctx, "kernel::SharedMemory::Map")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.Int64Attribute(logfields.ObjectID, int64(s.id)),
		trace.StringAttribute(logfields.Name, s.name),
		trace.Int64Attribute(logfields.ProcessID, int64(target.ID())),
		trace.StringAttribute(logfields.Address, formatVAddr(address)),
		trace.StringAttribute(logfields.Permissions, permissions.String()),
		trace.StringAttribute(logfields.OtherPermissions, otherPermissions.String()))

	l := log.G(ctx).WithFields(logrus.Fields{
		logfields.ObjectID: s.id,
		logfields.Name:     s.name,
		logfields.Address:  formatVAddr(address),
	})

	// The owner maps against the object's own permissions, every other
	// process against the grant published for others.
	ownOtherPermissions := s.otherPermissions
	if target == s.ownerProcess {
		ownOtherPermissions = s.permissions
	}

	// Freshly allocated objects have no owner-side grant for the caller
	// to restate.
	if s.baseAddress == 0 && otherPermissions != PermDontCare {
		return ErrInvalidCombination
	}

	// The requested permissions must stay inside what the creator allows.
	if permissions&^ownOtherPermissions != 0 {
		l.Error("cannot map shared memory, permissions don't match")
		return ErrInvalidCombination
	}

	// Objects wrapping owner memory require the grant to be restated.
	if s.baseAddress != 0 && otherPermissions == PermDontCare {
		l.Error("cannot map shared memory, permissions don't match")
		return ErrInvalidCombination
	}

	// The restated grant must cover what the creator asked for.
	if otherPermissions != PermDontCare && s.permissions&^otherPermissions != 0 {
		l.Error("cannot map shared memory, permissions don't match")
		return ErrWrongPermission
	}

	if address != 0 {
		if address < guestmem.HeapVAddr || address+guestmem.VAddr(s.size) >= guestmem.SharedMemoryVAddrEnd {
			l.Error("cannot map shared memory, invalid address")
			return ErrInvalidAddress
		}
	}

	targetAddress := address
	if s.baseAddress == 0 && targetAddress == 0 {
		// The canonical address keeps the backing at the same offset
		// relative to the target's linear heap window as it has inside
		// main RAM.
		targetAddress = guestmem.VAddr(s.linearHeapPhysAddr-guestmem.FCRAMPAddr) + target.LinearHeapAreaAddress()
	}

	// The whole window must sit inside a single free range.
	vm := target.AddressSpace()
	if r := vm.FindRange(targetAddress); r.Kind != RangeFree || r.Base+guestmem.VAddr(r.Size) < targetAddress+guestmem.VAddr(s.size) {
		l.Error("trying to map to already allocated memory")
		return ErrInvalidAddressState
	}

	// Install the backing blocks back to back.
	cursor := targetAddress
	for _, block := range s.backingBlocks {
		h, installErr := vm.InstallBackedMapping(cursor, block, StateShared)
		if installErr != nil {
			panic(fmt.Sprintf("kernel: failed to map shared memory %q at %s: %v", s.name, formatVAddr(cursor), installErr))
		}
		vm.SetPermission(h, vmPermissions(permissions))
		cursor += guestmem.VAddr(len(block))
	}

	return nil
}

// Unmap removes the object's mapping at address from target's address
// space. It does not verify that the address corresponds to a mapping of
// this object.
func (s *SharedMemory) Unmap(ctx context.Context, target *Process, address guestmem.VAddr) (err error) {
	_, span := oc.StartSpan(ctx, "kernel::SharedMemory::Unmap")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()
	span.AddAttributes(
		trace.Int64Attribute(logfields.ObjectID, int64(s.id)),
		trace.StringAttribute(logfields.Name, s.name),
		trace.Int64Attribute(logfields.ProcessID, int64(target.ID())),
		trace.StringAttribute(logfields.Address, formatVAddr(address)))

	return target.AddressSpace().RemoveMapping(address, s.size)
}

// GetPointer returns a view of the object's memory starting at offset.
//
// The view comes from the first backing block only. On an object with
// discontiguous backing it does not reach the later blocks, so access past
// the first block boundary is out of bounds.
func (s *SharedMemory) GetPointer(offset uint32) []byte {
	if len(s.backingBlocks) != 1 {
		log.L.WithFields(logrus.Fields{
			logfields.ObjectID: s.id,
			logfields.Name:     s.name,
			logfields.Blocks:   len(s.backingBlocks),
		}).Warning("unsafe GetPointer on discontinuous shared memory")
	}
	return s.backingBlocks[0][offset:]
}

// Acquire adds a reference to the object.
func (s *SharedMemory) Acquire() {
	s.refs.Add(1)
}

// Release drops one reference. Dropping the last reference returns every
// interval the object allocated to its region allocator. Outstanding guest
// mappings do not keep the object alive.
func (s *SharedMemory) Release(ctx context.Context) {
	_, span := oc.StartSpan(ctx, "kernel::SharedMemory::Release")
	defer span.End()
	span.AddAttributes(
		trace.Int64Attribute(logfields.ObjectID, int64(s.id)),
		trace.StringAttribute(logfields.Name, s.name))

	n := s.refs.Add(-1)
	if n < 0 {
		panic(fmt.Sprintf("kernel: shared memory %q released more times than acquired", s.name))
	}
	if n > 0 {
		return
	}
	for _, iv := range s.holdingMemory {
		s.region.Free(iv.Offset, iv.Size)
	}
	s.holdingMemory = nil
}

func (s *SharedMemory) ObjectID() uint32 { return s.id }

func (s *SharedMemory) Name() string { return s.name }

func (s *SharedMemory) Size() uint32 { return s.size }

// BaseAddress is where the owner has the memory mapped, or 0 for freshly
// allocated backing.
func (s *SharedMemory) BaseAddress() guestmem.VAddr { return s.baseAddress }

// LinearHeapPhysAddress locates freshly allocated backing inside main RAM.
// It is meaningless for objects wrapping owner memory.
func (s *SharedMemory) LinearHeapPhysAddress() guestmem.PAddr { return s.linearHeapPhysAddr }
