package kernel

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/containerd/errdefs"
	"go.opencensus.io/trace"

	"github.com/amber-emu/amber/guestmem"
	"github.com/amber-emu/amber/internal/log"
	"github.com/amber-emu/amber/internal/logfields"
	"github.com/amber-emu/amber/internal/oc"
)

// Process is the kernel-side record of one emulated process: its identity,
// its virtual address space, and its linear heap accounting.
type Process struct {
	id   uint32
	name string

	vm AddressSpace

	linearHeapAreaBase guestmem.VAddr

	// linearHeapUsed counts the bytes of linear heap backing owned by
	// this process' objects. Accounting only, nothing is reserved.
	linearHeapUsed atomic.Uint32
}

// ProcessOptions configures a process created by CreateProcess.
type ProcessOptions struct {
	// Name identifies the process in logs and traces.
	Name string

	// AddressSpace is the process' virtual memory manager. Required.
	AddressSpace AddressSpace

	// LinearHeapAreaBase positions the window where linear heap backed
	// memory is mapped. Zero selects the default layout.
	LinearHeapAreaBase guestmem.VAddr
}

// CreateProcess registers a new emulated process with the kernel.
func (k *KernelSystem) CreateProcess(ctx context.Context, opts *ProcessOptions) (_ *Process, err error) {
	ctx, span := oc.StartSpan(ctx, "kernel::KernelSystem::CreateProcess")
	defer span.End()
	defer func() { oc.SetSpanStatus(span, err) }()

	if opts == nil {
		opts = &ProcessOptions{}
	}
	span.AddAttributes(
		trace.StringAttribute(logfields.Name, opts.Name),
		trace.StringAttribute(logfields.Options, log.Format(ctx, opts)))

	if opts.AddressSpace == nil {
		return nil, fmt.Errorf("process %q needs an address space: %w", opts.Name, errdefs.ErrInvalidArgument)
	}

	base := opts.LinearHeapAreaBase
	if base == 0 {
		base = guestmem.LinearHeapVAddr
	}
	p := &Process{
		id:                 k.nextProcessID.Add(1),
		name:               opts.Name,
		vm:                 opts.AddressSpace,
		linearHeapAreaBase: base,
	}
	span.AddAttributes(trace.Int64Attribute(logfields.ProcessID, int64(p.id)))
	return p, nil
}

func (p *Process) ID() uint32 { return p.id }

func (p *Process) Name() string { return p.name }

// AddressSpace returns the process' virtual memory manager.
func (p *Process) AddressSpace() AddressSpace { return p.vm }

// LinearHeapAreaAddress is the base of the window where linear heap backed
// memory appears in this process' address space.
func (p *Process) LinearHeapAreaAddress() guestmem.VAddr { return p.linearHeapAreaBase }

// LinearHeapUsed returns the bytes of linear heap backing owned by this
// process' objects.
func (p *Process) LinearHeapUsed() uint32 { return p.linearHeapUsed.Load() }

func (p *Process) addLinearHeapUsed(n uint32) { p.linearHeapUsed.Add(n) }
