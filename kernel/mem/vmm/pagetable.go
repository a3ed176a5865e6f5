package vmm

import (
	"helios/kernel"
	"helios/kernel/mem"
	"helios/kernel/mem/pmm"
	"unsafe"
)

const (
	// pageLevels indicates the number of page-table levels supported by the
	// amd64 architecture (PML4, PDPT, PD, PT).
	pageLevels = 4

	// tableEntryCount is the number of 64-bit entries in one table page.
	tableEntryCount = 512
)

// pageLevelShifts defines the shift required to extract each level's table
// index from a virtual address.
var pageLevelShifts = [pageLevels]uint8{39, 30, 21, 12}

// PageSlice is a writable byte view of exactly one physical frame.
type PageSlice [mem.PageSize]byte

// FrameToSliceFn converts a physical frame to a writable view of its
// contents. The conversion depends on how physical memory happens to be
// reachable in the active address space (the loader's identity window before
// the pivot, the linear physical map after it), so the page-table engine
// receives it as an injected capability instead of hard-coding either layout.
type FrameToSliceFn func(pmm.Frame) *PageSlice

// FrameAllocator is the allocation capability the page-table engine uses to
// obtain frames for missing intermediate tables.
type FrameAllocator interface {
	AllocFrame() (pmm.Frame, *kernel.Error)
}

// pageTable is the in-memory layout of one table page at any level.
type pageTable [tableEntryCount]pageTableEntry

// PageTable drives a four-level x86-64 page-table tree rooted at a PML4
// frame. The PageTable owns the tree structure while mapping; it stores no
// allocator or address-space references, both are supplied per call.
type PageTable struct {
	root pmm.Frame
}

// NewPageTable wraps an already zeroed frame as the root of a page-table
// tree.
func NewPageTable(root pmm.Frame) PageTable {
	return PageTable{root: root}
}

// Root returns the physical frame holding the PML4.
func (pt PageTable) Root() pmm.Frame {
	return pt.root
}

// Map establishes a translation from a virtual page to a physical frame with
// the supplied leaf flags. Missing intermediate tables are allocated from
// allocator, cleared in their entirety through frameToSlice and installed as
// present and writable; the caller's flags apply to the leaf entry only. The
// target leaf slot must be empty: mapping the same page twice is a
// programming error and panics.
func (pt *PageTable) Map(page Page, frame pmm.Frame, flags EntryFlag, allocator FrameAllocator, frameToSlice FrameToSliceFn) *kernel.Error {
	virtAddr := page.Address()
	table := tableFromSlice(frameToSlice(pt.root))

	for level := 0; level < pageLevels-1; level++ {
		entry := &table[tableIndex(virtAddr, level)]
		if entry.IsEmpty() {
			tableFrame, err := allocator.AllocFrame()
			if err != nil {
				return err
			}

			slice := frameToSlice(tableFrame)
			kernel.Memset(uintptr(unsafe.Pointer(slice)), 0, uintptr(mem.PageSize))
			*entry = newEntry(tableFrame, FlagPresent|FlagRW)
		}

		// Re-resolve the child through frameToSlice on every descent so
		// the walk never acts on a stale view of the tree.
		table = tableFromSlice(frameToSlice(entry.Frame()))
	}

	leaf := &table[tableIndex(virtAddr, pageLevels-1)]
	if !leaf.IsEmpty() {
		panic("vmm: page is already mapped")
	}
	*leaf = newEntry(frame, flags)

	return nil
}

// MapDevice establishes an uncached translation to a device-memory frame
// (present, global, writable, cache-disabled).
func (pt *PageTable) MapDevice(page Page, frame pmm.Frame, allocator FrameAllocator, frameToSlice FrameToSliceFn) *kernel.Error {
	return pt.Map(page, frame, FlagPresent|FlagGlobal|FlagRW|FlagDoNotCache, allocator, frameToSlice)
}

// tableIndex extracts the table index for the given level from a virtual
// address.
func tableIndex(virtAddr mem.VAddr, level int) uint64 {
	return (uint64(virtAddr) >> pageLevelShifts[level]) & (tableEntryCount - 1)
}

func tableFromSlice(slice *PageSlice) *pageTable {
	return (*pageTable)(unsafe.Pointer(slice))
}
