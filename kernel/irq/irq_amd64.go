// Package irq contains the common continuation that every interrupt vector
// funnels into, together with the register-snapshot types the vector
// trampolines build on the stack.
package irq

import (
	"io"

	"helios/kernel/cpu"
	"helios/kernel/kfmt"
	"helios/kernel/klog"
)

// Registers contains a snapshot of all register values when an interrupt or
// exception occurs. The layout matches what the vector trampolines push: the
// general-purpose registers, the vector number and finally the frame the CPU
// pushed on entry.
type Registers struct {
	RAX uint64
	RBX uint64
	RCX uint64
	RDX uint64
	RSI uint64
	RDI uint64
	RBP uint64
	R8  uint64
	R9  uint64
	R10 uint64
	R11 uint64
	R12 uint64
	R13 uint64
	R14 uint64
	R15 uint64

	// Vector holds the interrupt vector that fired.
	Vector uint64

	// The return frame pushed by the CPU.
	RIP    uint64
	CS     uint64
	RFlags uint64
	RSP    uint64
	SS     uint64
}

// DumpTo outputs the register contents to w.
func (r *Registers) DumpTo(w io.Writer) {
	kfmt.Fprintf(w, "RAX = %16x RBX = %16x\n", r.RAX, r.RBX)
	kfmt.Fprintf(w, "RCX = %16x RDX = %16x\n", r.RCX, r.RDX)
	kfmt.Fprintf(w, "RSI = %16x RDI = %16x\n", r.RSI, r.RDI)
	kfmt.Fprintf(w, "RBP = %16x\n", r.RBP)
	kfmt.Fprintf(w, "R8  = %16x R9  = %16x\n", r.R8, r.R9)
	kfmt.Fprintf(w, "R10 = %16x R11 = %16x\n", r.R10, r.R11)
	kfmt.Fprintf(w, "R12 = %16x R13 = %16x\n", r.R12, r.R13)
	kfmt.Fprintf(w, "R14 = %16x R15 = %16x\n", r.R14, r.R15)
	kfmt.Fprintf(w, "\n")
	kfmt.Fprintf(w, "RIP = %16x CS  = %16x\n", r.RIP, r.CS)
	kfmt.Fprintf(w, "RSP = %16x SS  = %16x\n", r.RSP, r.SS)
	kfmt.Fprintf(w, "RFL = %16x\n", r.RFlags)
}

// exceptionNames describes the architecture-defined exception vectors.
var exceptionNames = [...]string{
	"divide error",
	"debug",
	"non-maskable interrupt",
	"breakpoint",
	"overflow",
	"bound range exceeded",
	"invalid opcode",
	"device not available",
	"double fault",
	"coprocessor segment overrun",
	"invalid TSS",
	"segment not present",
	"stack-segment fault",
	"general protection fault",
	"page fault",
	"reserved",
	"x87 floating-point exception",
	"alignment check",
	"machine check",
	"SIMD floating-point exception",
	"virtualization exception",
}

var (
	// cpuHaltFn is mocked by tests and is automatically inlined by the compiler.
	cpuHaltFn = cpu.Halt
)

// InterruptHandler is the common continuation behind every installed vector
// trampoline. No interrupt source is expected before a scheduler exists, so
// any arrival is terminal: the vector and register snapshot are logged and
// the CPU halts.
func InterruptHandler(vector uint64, regs *Registers) {
	if vector < uint64(len(exceptionNames)) {
		klog.Errorf("irq", "received exception %d: %s", vector, exceptionNames[vector])
	} else {
		klog.Errorf("irq", "received interrupt %d", vector)
	}
	regs.DumpTo(&kfmt.PrefixWriter{Sink: kfmt.GetOutputSink(), Prefix: []byte("  ")})

	cpuHaltFn()
}
