// Package idt builds and installs the interrupt descriptor table. Every
// usable vector points at a mechanically generated trampoline that records
// the vector number and funnels into the common interrupt continuation.
package idt

import (
	"unsafe"

	"helios/kernel/cpu"
	"helios/kernel/irq"
)

const (
	idtEntries = 256

	// vectorStride is the distance in bytes between two generated vector
	// trampolines.
	vectorStride = 16

	// kernelCodeSelector is the GDT selector the gates execute with.
	kernelCodeSelector = 0x08

	// gateTypeAttr marks a present, DPL0, 64-bit interrupt gate.
	gateTypeAttr = 0x8e

	// reservedFirst/reservedLast bound the architecture-reserved vectors
	// that get no gate.
	reservedFirst = 21
	reservedLast  = 31
)

// gateDescriptor is the 16-byte layout of one IDT entry.
type gateDescriptor struct {
	offsetLow  uint16
	selector   uint16
	istAndZero uint8
	typeAttr   uint8
	offsetMid  uint16
	offsetHigh uint32
	reserved   uint32
}

var (
	// loadIDTFn is mocked by tests and is automatically inlined by the compiler.
	loadIDTFn = cpu.LoadIDT

	initialized bool

	idt [idtEntries]gateDescriptor

	// idtr is the pseudo-descriptor handed to LIDT. The limit and base
	// fields sit at offsets 6 and 8 so they form the contiguous 10-byte
	// packed layout the CPU expects.
	idtr struct {
		_     [3]uint16
		limit uint16
		base  uint64
	}
)

// Init populates the IDT with gates for vectors 0-20 and 32-255 and loads it.
// The architecture-reserved vectors 21-31 keep zeroed (non-present) slots.
// Init must be invoked exactly once.
func Init() {
	if initialized {
		panic("idt: Init called more than once")
	}
	initialized = true

	base := vectorEntriesBase()
	for vector := 0; vector < idtEntries; vector++ {
		if vector >= reservedFirst && vector <= reservedLast {
			continue
		}
		idt[vector] = makeGate(base + uintptr(vector)*vectorStride)
	}

	idtr.limit = uint16(unsafe.Sizeof(idt) - 1)
	idtr.base = uint64(uintptr(unsafe.Pointer(&idt)))
	loadIDTFn(uintptr(unsafe.Pointer(&idtr.limit)))
}

// makeGate encodes an interrupt gate pointing at the trampoline entry with
// the given address.
func makeGate(entryAddr uintptr) gateDescriptor {
	return gateDescriptor{
		offsetLow:  uint16(entryAddr),
		selector:   kernelCodeSelector,
		typeAttr:   gateTypeAttr,
		offsetMid:  uint16(entryAddr >> 16),
		offsetHigh: uint32(entryAddr >> 32),
	}
}

// dispatchInterrupt is the Go continuation the common trampoline stub calls
// with the vector number and a pointer to the register snapshot it built on
// the interrupted stack.
func dispatchInterrupt(vector uint64, regs *irq.Registers) {
	irq.InterruptHandler(vector, regs)
}

// vectorEntriesBase returns the address of the first generated vector
// trampoline. Trampoline n lives at base + n*vectorStride.
func vectorEntriesBase() uintptr
