// Package vmm provides the virtual page primitives and the four-level
// page-table engine used to construct the kernel's runtime address space.
package vmm

import (
	"helios/kernel/mem"
	"math"
)

// Page describes a virtual memory page index.
type Page uintptr

// Address returns the starting virtual address of this Page.
func (p Page) Address() mem.VAddr {
	return mem.VAddr(p) << mem.PageShift
}

// PageUp rounds addr up to the closest page boundary and returns the page
// that starts there.
func PageUp(addr mem.VAddr) Page {
	if addr > math.MaxUint64-(mem.VAddr(mem.PageSize)-1) {
		panic("vmm: page round-up overflow")
	}
	return Page((addr + mem.VAddr(mem.PageSize) - 1) >> mem.PageShift)
}

// PageDown truncates addr to the page that contains it.
func PageDown(addr mem.VAddr) Page {
	return Page(addr >> mem.PageShift)
}

// Add returns the page npages above p.
func (p Page) Add(npages uint64) Page {
	sum := p + Page(npages)
	if sum < p {
		panic("vmm: page arithmetic overflow")
	}
	return sum
}

// Sub returns the page npages below p.
func (p Page) Sub(npages uint64) Page {
	if Page(npages) > p {
		panic("vmm: page arithmetic underflow")
	}
	return p - Page(npages)
}
