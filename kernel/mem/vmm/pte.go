package vmm

import (
	"helios/kernel/mem"
	"helios/kernel/mem/pmm"
)

// EntryFlag describes a flag that can be applied to a page table entry.
type EntryFlag uint64

const (
	// FlagPresent is set when the page is available in memory.
	FlagPresent EntryFlag = 1 << iota

	// FlagRW is set if the page can be written to.
	FlagRW

	// FlagUserAccessible is set if user-mode processes can access this
	// page. If not set only kernel code can access this page.
	FlagUserAccessible

	// FlagWriteThrough implies write-through caching when set and
	// write-back caching if cleared.
	FlagWriteThrough

	// FlagDoNotCache prevents this page from being cached if set.
	FlagDoNotCache

	// FlagAccessed is set by the CPU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the CPU when this page is modified.
	FlagDirty

	// FlagHugePage is set when an intermediate entry maps a large page
	// directly instead of pointing at the next table level.
	FlagHugePage

	// FlagGlobal prevents the TLB from flushing the cached translation for
	// this page when the page-table root register is rewritten.
	FlagGlobal

	// FlagNoExecute marks the page contents as non-executable.
	FlagNoExecute = EntryFlag(1) << 63
)

// ptePhysPageMask extracts the physical address bits (12-51) from a page
// table entry.
const ptePhysPageMask = uint64(0x000ffffffffff000)

// pageTableEntry describes an entry at any level of the page-table tree: a
// physical frame address OR'd with a set of attribute flags, or zero when the
// slot is empty.
type pageTableEntry uint64

// IsEmpty returns true if this entry has never been populated.
func (pte pageTableEntry) IsEmpty() bool {
	return pte == 0
}

// HasFlags returns true if this entry has all the input flags set.
func (pte pageTableEntry) HasFlags(flags EntryFlag) bool {
	return (uint64(pte) & uint64(flags)) == uint64(flags)
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *pageTableEntry) SetFlags(flags EntryFlag) {
	*pte = pageTableEntry(uint64(*pte) | uint64(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte pageTableEntry) Frame() pmm.Frame {
	return pmm.Frame((uint64(pte) & ptePhysPageMask) >> mem.PageShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *pageTableEntry) SetFrame(frame pmm.Frame) {
	*pte = pageTableEntry((uint64(*pte) &^ ptePhysPageMask) | uint64(frame.Address()))
}

// newEntry builds a populated entry for the given frame and flags.
func newEntry(frame pmm.Frame, flags EntryFlag) pageTableEntry {
	var pte pageTableEntry
	pte.SetFrame(frame)
	pte.SetFlags(flags)
	return pte
}
