// Package gdt builds and installs the global descriptor table together with
// the task-state segment that anchors the kernel stack used for ring-0
// re-entry.
package gdt

import (
	"unsafe"

	"helios/kernel/cpu"
	"helios/kernel/mem"
)

// Byte selectors for the fixed descriptor layout.
const (
	SelectorKernelCode = 0x08
	SelectorKernelData = 0x10
	SelectorUserData   = 0x18
	SelectorUserCode   = 0x20
	SelectorTSS        = 0x28
)

const gdtEntries = 7

// Access bytes and flag nibbles for the descriptors this kernel needs.
const (
	accessKernelCode = 0x9a // present, DPL0, code, readable
	accessKernelData = 0x92 // present, DPL0, data, writable
	accessUserData   = 0xf2 // present, DPL3, data, writable
	accessUserCode   = 0xfa // present, DPL3, code, readable
	accessTSS        = 0x89 // present, DPL0, available 64-bit TSS

	flagsCode64 = 0xa // granularity + long mode
	flagsData   = 0xc // granularity + 32-bit operands
	flagsNone   = 0x0
)

// TaskStateSegment is the 104-byte amd64 TSS. The 64-bit stack pointers are
// stored as explicit dword pairs because the hardware layout places them at
// 4-byte offsets.
type TaskStateSegment struct {
	reserved0         uint32
	rsp0Low, rsp0High uint32
	rsp1Low, rsp1High uint32
	rsp2Low, rsp2High uint32
	reserved1         [2]uint32
	ist               [14]uint32
	reserved2         [2]uint32
	reserved3         uint16
	ioMapBase         uint16
}

// SetRSP0 points the ring-0 re-entry stack at the given address.
func (t *TaskStateSegment) SetRSP0(addr mem.VAddr) {
	t.rsp0Low = uint32(addr)
	t.rsp0High = uint32(uint64(addr) >> 32)
}

// RSP0 returns the configured ring-0 re-entry stack pointer.
func (t *TaskStateSegment) RSP0() mem.VAddr {
	return mem.VAddr(uint64(t.rsp0Low) | uint64(t.rsp0High)<<32)
}

var (
	// The following are mocked by tests and are automatically inlined by
	// the compiler.
	loadGDTFn          = cpu.LoadGDT
	reloadSegmentsFn   = cpu.ReloadSegments
	loadTaskRegisterFn = cpu.LoadTaskRegister

	initialized bool

	tss TaskStateSegment

	gdt [gdtEntries]uint64

	// gdtr is the pseudo-descriptor handed to LGDT; limit and base sit at
	// offsets 6 and 8 so they form the packed 10-byte layout.
	gdtr struct {
		_     [3]uint16
		limit uint16
		base  uint64
	}
)

// Init builds the descriptor table (null, kernel code/data, user data/code,
// TSS low/high), points the TSS ring-0 stack at kernelStackTop, loads the
// table and reloads the segment registers plus the task register. Init must
// be invoked exactly once.
func Init(kernelStackTop mem.VAddr) {
	if initialized {
		panic("gdt: Init called more than once")
	}
	initialized = true

	tss.SetRSP0(kernelStackTop)
	tssAddr := uint64(uintptr(unsafe.Pointer(&tss)))
	tssLimit := uint32(unsafe.Sizeof(tss) - 1)

	gdt[0] = 0
	gdt[1] = segmentDescriptor(0, 0xfffff, accessKernelCode, flagsCode64)
	gdt[2] = segmentDescriptor(0, 0xfffff, accessKernelData, flagsData)
	gdt[3] = segmentDescriptor(0, 0xfffff, accessUserData, flagsData)
	gdt[4] = segmentDescriptor(0, 0xfffff, accessUserCode, flagsCode64)
	// The 64-bit TSS descriptor spans two slots: a standard descriptor
	// carrying address bits 31:0 and a second slot with bits 63:32.
	gdt[5] = segmentDescriptor(uint32(tssAddr), tssLimit, accessTSS, flagsNone)
	gdt[6] = tssAddr >> 32

	gdtr.limit = uint16(unsafe.Sizeof(gdt) - 1)
	gdtr.base = uint64(uintptr(unsafe.Pointer(&gdt)))

	loadGDTFn(uintptr(unsafe.Pointer(&gdtr.limit)))
	reloadSegmentsFn(SelectorKernelCode, SelectorKernelData)
	loadTaskRegisterFn(SelectorTSS)
}

// segmentDescriptor encodes a legacy 8-byte segment descriptor.
func segmentDescriptor(base, limit uint32, access, flags uint8) uint64 {
	return uint64(limit&0xffff) |
		uint64(base&0xffffff)<<16 |
		uint64(access)<<40 |
		uint64(limit>>16&0xf)<<48 |
		uint64(flags&0xf)<<52 |
		uint64(base>>24&0xff)<<56
}
