package boot

import (
	"helios/kernel/mem"
	"helios/kernel/sync"
)

// regionTableCapacity bounds the number of installable RAM regions the boot
// code can track. Regions discovered past the limit are logged and dropped.
const regionTableCapacity = 256

// MemoryRegion describes a half-open range [Start, End) of physical
// addresses holding installable RAM after the reserved zones around it have
// been carved away.
type MemoryRegion struct {
	Start mem.PAddr
	End   mem.PAddr
}

// TrimBelow raises Start to addr if and only if addr lies strictly inside
// the region; otherwise the region is unchanged.
func (r *MemoryRegion) TrimBelow(addr mem.PAddr) {
	if r.Start < addr && r.End > addr {
		r.Start = addr
	}
}

// TrimAbove lowers End to addr if and only if addr lies strictly inside the
// region; otherwise the region is unchanged.
func (r *MemoryRegion) TrimAbove(addr mem.PAddr) {
	if r.Start < addr && r.End > addr {
		r.End = addr
	}
}

// IsEmpty returns true when the region covers no bytes.
func (r MemoryRegion) IsEmpty() bool {
	return r.Start >= r.End
}

var (
	// regionLock guards the region table: discovery takes the write side,
	// the mapping and reclamation stages read. The lock must not be held
	// across the page-table pivot.
	regionLock sync.RWSpinlock

	regionCount int
	regions     [regionTableCapacity]MemoryRegion
)

// pushRegion appends a region to the table. It reports false when the table
// is full; the caller logs and drops the region in that case. The caller
// must hold the write lock.
func pushRegion(r MemoryRegion) bool {
	if regionCount == regionTableCapacity {
		return false
	}
	regions[regionCount] = r
	regionCount++
	return true
}
