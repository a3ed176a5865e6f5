// Package serial drives the first 8250-compatible UART as the bring-up
// console byte sink. The port runs polled at 115200 baud, 8N1, with UART
// interrupts disabled; writes busy-wait on the transmitter-empty bit.
package serial

import (
	"io"

	"helios/kernel/cpu"
)

const portBase = uint16(0x3f8)

// Register offsets from portBase. The two baud divisor registers overlay the
// data and interrupt-enable registers while the DLAB bit is set.
const (
	regData      = 0
	regIntEnable = 1

	regBaudDivLSB = 0
	regBaudDivMSB = 1

	regLineCtrl   = 3
	regLineStatus = 5
)

const (
	lineCtrlCharLen8 = 1<<0 | 1<<1
	lineCtrlDLAB     = 1 << 7

	lineStatusTHREmpty = 1 << 5
)

var (
	// portReadFn/portWriteFn are mocked by tests and are automatically
	// inlined by the compiler.
	portReadFn  = cpu.PortReadByte
	portWriteFn = cpu.PortWriteByte

	initialized bool

	port writer
)

// Init programs the UART: interrupts off, divisor 1 (115200 baud), 8 data
// bits, no parity, one stop bit. Init must be invoked exactly once, before
// any output is written.
func Init() {
	if initialized {
		panic("serial: Init called more than once")
	}
	initialized = true

	portWriteFn(portBase+regIntEnable, 0)

	portWriteFn(portBase+regLineCtrl, lineCtrlDLAB)
	portWriteFn(portBase+regBaudDivLSB, 1)
	portWriteFn(portBase+regBaudDivMSB, 0)

	portWriteFn(portBase+regLineCtrl, lineCtrlCharLen8)
}

// Output returns the io.Writer that emits bytes out of the UART.
func Output() io.Writer {
	return &port
}

type writer struct{}

// Write emits len(p) bytes out of the UART, busy-waiting for the transmit
// holding register to drain before each byte.
func (w *writer) Write(p []byte) (int, error) {
	for _, b := range p {
		for portReadFn(portBase+regLineStatus)&lineStatusTHREmpty == 0 {
		}
		portWriteFn(portBase+regData, b)
	}

	return len(p), nil
}
