// Package syscall programs the fast system-call machinery: the STAR segment
// selectors, the LSTAR entry point, the RFLAGS entry mask and the EFER
// syscall-enable bit.
package syscall

import "helios/kernel/cpu"

const (
	// callSelector is loaded into CS on syscall entry (kernel code, DPL0).
	callSelector = uint64(0x08)

	// returnSelector seeds the sysret selector pair (user segments, RPL3).
	returnSelector = uint64(0x10 | 3)

	// rflagsClearMask clears every RFLAGS bit on entry except the
	// always-one reserved bit, so handlers start with interrupts off and a
	// clean flag state.
	rflagsClearMask = ^uint64(0x2)

	// eferSyscallEnable is bit 0 of the EFER MSR.
	eferSyscallEnable = 1 << 0
)

var (
	// The following are mocked by tests and are automatically inlined by
	// the compiler.
	readMSRFn  = cpu.ReadMSR
	writeMSRFn = cpu.WriteMSR
)

// Init programs the syscall MSRs: STAR with the call/return selectors, LSTAR
// with the syscall entry trampoline, FMASK with the RFLAGS bits to clear,
// and finally flips the EFER bit that turns the SYSCALL instruction on.
func Init() {
	star := readMSRFn(cpu.MSRSTAR)
	writeMSRFn(cpu.MSRSTAR, star|callSelector<<32|returnSelector<<48)

	writeMSRFn(cpu.MSRLSTAR, uint64(syscallEntryAddr()))
	writeMSRFn(cpu.MSRFMASK, rflagsClearMask)

	efer := readMSRFn(cpu.MSREFER)
	writeMSRFn(cpu.MSREFER, efer|eferSyscallEnable)
}

// syscallEntry is the trampoline LSTAR points at. Until a scheduler and user
// space exist any syscall is terminal, so the trampoline parks the CPU.
func syscallEntry()

// syscallEntryAddr returns the entry address of syscallEntry for MSR
// programming.
func syscallEntryAddr() uintptr
