package irq

import (
	"bytes"
	"helios/kernel/cpu"
	"helios/kernel/kfmt"
	"strings"
	"testing"
)

func TestInterruptHandler(t *testing.T) {
	var buf bytes.Buffer
	kfmt.SetOutputSink(&buf)
	defer func() {
		kfmt.SetOutputSink(nil)
		cpuHaltFn = cpu.Halt
	}()

	var halted bool
	cpuHaltFn = func() { halted = true }

	specs := []struct {
		vector  uint64
		expFrag string
	}{
		{13, "received exception 13: general protection fault"},
		{14, "received exception 14: page fault"},
		{33, "received interrupt 33"},
		{255, "received interrupt 255"},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		halted = false

		regs := Registers{RIP: 0xffffffffc0101234, Vector: spec.vector}
		InterruptHandler(spec.vector, &regs)

		if !halted {
			t.Errorf("[spec %d] expected the handler to halt", specIndex)
		}
		if got := buf.String(); !strings.Contains(got, spec.expFrag) {
			t.Errorf("[spec %d] expected output to contain %q; got:\n%s", specIndex, spec.expFrag, got)
		}
		if got := buf.String(); !strings.Contains(got, "RIP = ffffffffc0101234") {
			t.Errorf("[spec %d] expected a register dump with the faulting RIP; got:\n%s", specIndex, got)
		}
	}
}
