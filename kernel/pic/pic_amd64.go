// Package pic neutralizes the legacy 8259 interrupt controller pair: its
// vectors are remapped away from the CPU exception range and every line is
// masked, leaving the local APIC as the only interrupt source.
package pic

import "helios/kernel/cpu"

const (
	primaryCmd    = 0x20
	primaryData   = 0x21
	secondaryCmd  = 0xa0
	secondaryData = 0xa1

	// icw1Init | icw1NeedICW4 starts the initialization sequence.
	icw1Init     = 0x10
	icw1NeedICW4 = 0x01

	// icw4Mode8086 selects 8086 EOI behavior.
	icw4Mode8086 = 0x01

	// remapBase is where the 16 legacy IRQ vectors land after remapping.
	// A spurious line delivered before masking takes effect must not alias
	// a CPU exception vector.
	remapBase = 0x20
)

var (
	// portWriteFn is mocked by tests and is automatically inlined by the compiler.
	portWriteFn = cpu.PortWriteByte
)

// Disable remaps both controllers to the vector range starting at remapBase
// and then masks every interrupt line.
func Disable() {
	portWriteFn(primaryCmd, icw1Init|icw1NeedICW4)
	portWriteFn(secondaryCmd, icw1Init|icw1NeedICW4)

	portWriteFn(primaryData, remapBase)
	portWriteFn(secondaryData, remapBase+8)

	// Wire the secondary controller through IRQ2 of the primary.
	portWriteFn(primaryData, 0x04)
	portWriteFn(secondaryData, 0x02)

	portWriteFn(primaryData, icw4Mode8086)
	portWriteFn(secondaryData, icw4Mode8086)

	// Mask all lines on both controllers.
	portWriteFn(primaryData, 0xff)
	portWriteFn(secondaryData, 0xff)
}
