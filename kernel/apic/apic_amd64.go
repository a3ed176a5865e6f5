// Package apic enables the CPU-local interrupt controller: it maps the APIC
// register page into the runtime address space as device memory, sets the
// global-enable bit in the base MSR and software-enables the controller
// through the spurious-interrupt vector register.
package apic

import (
	"sync/atomic"
	"unsafe"

	"helios/kernel"
	"helios/kernel/cpu"
	"helios/kernel/mem"
	"helios/kernel/mem/pmm"
	"helios/kernel/mem/vmm"
)

const (
	// regSPIV is the offset of the spurious-interrupt vector register, the
	// only APIC register bring-up touches.
	regSPIV = 0xf0

	// baseGlobalEnable is bit 11 of the APIC base MSR.
	baseGlobalEnable = 1 << 11

	// spivSoftwareEnable is bit 8 of the spurious-interrupt vector register.
	spivSoftwareEnable = 1 << 8
)

var (
	// The following are mocked by tests and are automatically inlined by
	// the compiler.
	readMSRFn  = cpu.ReadMSR
	writeMSRFn = cpu.WriteMSR
	regWriteFn = regWrite
)

// Device drives one local APIC through its memory-mapped register page.
type Device struct {
	base mem.VAddr
}

// Init discovers the APIC register page from the base MSR, maps it as device
// memory in the supplied page table and enables the controller. The register
// page always lies inside the linear physical-memory window, so the returned
// device issues its register writes through PhysMap addresses.
func Init(pt *vmm.PageTable, allocator vmm.FrameAllocator, frameToSlice vmm.FrameToSliceFn) (*Device, *kernel.Error) {
	apicBase := readMSRFn(cpu.MSRAPICBase)
	apicPhys := mem.PAddr(apicBase) &^ (mem.PAddr(mem.PageSize) - 1)
	apicVirt := mem.PhysToVirt(apicPhys)

	err := pt.MapDevice(vmm.PageDown(apicVirt), pmm.FrameDown(apicPhys), allocator, frameToSlice)
	if err != nil {
		return nil, err
	}

	writeMSRFn(cpu.MSRAPICBase, apicBase|baseGlobalEnable)

	dev := &Device{base: apicVirt}
	dev.write(regSPIV, spivSoftwareEnable)

	return dev, nil
}

// write stores val into the APIC register at the given offset.
func (d *Device) write(reg uint16, val uint32) {
	regWriteFn(d.base+mem.VAddr(reg), val)
}

// regWrite performs the volatile 32-bit store the APIC registers require;
// the atomic store keeps the compiler from reordering or eliding it.
func regWrite(addr mem.VAddr, val uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(uintptr(addr))), val)
}
