// Package cpu exposes the privileged x86-64 instructions the bring-up code
// needs as plain Go functions. Everything here is a thin assembly stub;
// the serializing nature of the underlying instructions (CR and MSR writes,
// LGDT/LIDT/LTR) is what orders bring-up memory writes ahead of the hardware
// consuming them.
package cpu

// Model-specific register numbers used during bring-up.
const (
	// MSRAPICBase holds the local APIC base address and its enable bit.
	MSRAPICBase = 0x1b

	// MSREFER holds the NXE and SCE feature bits.
	MSREFER = 0xc0000080

	// MSRSTAR holds the syscall/sysret segment selectors.
	MSRSTAR = 0xc0000081

	// MSRLSTAR holds the 64-bit syscall entry point.
	MSRLSTAR = 0xc0000082

	// MSRFMASK holds the RFLAGS bits cleared on syscall entry.
	MSRFMASK = 0xc0000084
)

// EnableInterrupts enables interrupt handling.
func EnableInterrupts()

// DisableInterrupts disables interrupt handling.
func DisableInterrupts()

// Halt disables interrupts and stops instruction execution for good.
func Halt()

// FlushTLBEntry flushes the TLB entry for a particular virtual address.
func FlushTLBEntry(virtAddr uintptr)

// SwitchPML4 sets the page-table root register to point to the specified
// physical address and flushes the TLB.
func SwitchPML4(pml4PhysAddr uintptr)

// ActivePML4 returns the physical address of the currently active page table.
func ActivePML4() uintptr

// ReadCR0 returns the value stored in the CR0 register.
func ReadCR0() uint64

// WriteCR0 replaces the value stored in the CR0 register.
func WriteCR0(val uint64)

// ReadCR2 returns the value stored in the CR2 register.
func ReadCR2() uint64

// ReadCR4 returns the value stored in the CR4 register.
func ReadCR4() uint64

// WriteCR4 replaces the value stored in the CR4 register.
func WriteCR4(val uint64)

// ReadMSR returns the value stored in the given model-specific register.
func ReadMSR(reg uint32) uint64

// WriteMSR replaces the value stored in the given model-specific register.
func WriteMSR(reg uint32, val uint64)

// PortReadByte reads one byte from the given I/O port.
func PortReadByte(port uint16) uint8

// PortWriteByte writes one byte to the given I/O port.
func PortWriteByte(port uint16, val uint8)

// LoadGDT makes the CPU use the global descriptor table described by the
// 10-byte pseudo-descriptor at ptr.
func LoadGDT(ptr uintptr)

// LoadIDT makes the CPU use the interrupt descriptor table described by the
// 10-byte pseudo-descriptor at ptr.
func LoadIDT(ptr uintptr)

// LoadTaskRegister loads the task register with the given TSS selector.
func LoadTaskRegister(sel uint16)

// ReloadSegments reloads CS via a far return and points SS, DS and ES at
// dataSel. It must be called right after LoadGDT.
func ReloadSegments(codeSel, dataSel uint16)

// SwitchToRuntimePageTable loads pml4 into the page-table root register,
// switches to the supplied stack and continues execution at continuation.
// The continuation must never return; the old stack and any identity-mapped
// state become unreachable once the switch completes.
func SwitchToRuntimePageTable(stack uintptr, pml4 uintptr, continuation func())
