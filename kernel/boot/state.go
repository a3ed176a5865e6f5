package boot

// bootState tracks the progress of the bring-up sequence. Every stage
// asserts that it runs exactly once and in order; reaching stateCPUInstalled
// is the terminal state of the core.
type bootState uint8

const (
	stateCold bootState = iota
	stateConsoleUp
	stateRegionsDiscovered
	stateAllocatorSeeded
	stateRuntimeMapped
	statePivoted
	stateCPUInstalled
)

var state = stateCold

// advance moves the boot state machine to next, which must be the immediate
// successor of the current state.
func advance(next bootState) {
	if next != state+1 {
		panic("boot: stage executed out of order")
	}
	state = next
}
