// Package multiboot gives the bring-up code structured access to the
// information record a Multiboot2-compliant boot loader leaves in memory:
// the system memory map and the boot command line.
package multiboot

import "unsafe"

var infoData uintptr

type tagType uint32

// nolint
const (
	tagMbSectionEnd tagType = iota
	tagBootCmdLine
	tagBootLoaderName
	tagModules
	tagBasicMemoryInfo
	tagBiosBootDevice
	tagMemoryMap
	tagVbeInfo
	tagFramebufferInfo
	tagElfSymbols
	tagApmTable
)

// info describes the multiboot info section header.
type info struct {
	// Total size of multiboot info section.
	totalSize uint32

	// Always set to zero; reserved for future use
	reserved uint32
}

// tagHeader describes the header that precedes each tag.
type tagHeader struct {
	// The type of the tag
	tagType tagType

	// The size of the tag including the header but *not* including any
	// padding. According to the spec, each tag starts at a 8-byte aligned
	// address.
	size uint32
}

// mmapHeader describes the header for a memory map specification.
type mmapHeader struct {
	// The size of each entry.
	entrySize uint32

	// The version of the entries that follow.
	entryVersion uint32
}

// MemoryEntryType defines the type of a MemoryMapEntry.
type MemoryEntryType uint32

const (
	// MemAvailable indicates that the memory region is available for use.
	MemAvailable MemoryEntryType = iota + 1

	// MemReserved indicates that the memory region is not available for use.
	MemReserved

	// MemAcpiReclaimable indicates a memory region that holds ACPI info that
	// can be reused by the OS.
	MemAcpiReclaimable

	// MemNvs indicates memory that must be preserved when hibernating.
	MemNvs

	// Any value >= memUnknown will be mapped to MemReserved.
	memUnknown
)

// String implements fmt.Stringer for MemoryEntryType.
func (t MemoryEntryType) String() string {
	switch t {
	case MemAvailable:
		return "available"
	case MemReserved:
		return "reserved"
	case MemAcpiReclaimable:
		return "ACPI (reclaimable)"
	case MemNvs:
		return "NVS"
	default:
		return "unknown"
	}
}

// MemoryMapEntry describes a memory region entry, namely its physical
// address, its length and its type.
type MemoryMapEntry struct {
	// The physical address for this memory region.
	PhysAddress uint64

	// The length of the memory region.
	Length uint64

	// The type of this entry.
	Type MemoryEntryType
}

// MemRegionVisitor defines a visitor function that gets invoked by
// VisitMemRegions for each memory region provided by the boot loader. The
// visitor must return true to continue or false to abort the scan.
type MemRegionVisitor func(*MemoryMapEntry) bool

// SetInfoPtr updates the internal multiboot information pointer to the given
// value. This function must be invoked before invoking any other function
// exported by this package.
func SetInfoPtr(ptr uintptr) {
	infoData = ptr
}

// VisitMemRegions will invoke the supplied visitor for each memory region
// that is defined by the multiboot info data that we received from the
// bootloader.
func VisitMemRegions(visitor MemRegionVisitor) {
	curPtr, size := findTagByType(tagMemoryMap)
	if size == 0 {
		return
	}

	// curPtr points to the memory map header (2 dwords long)
	ptrMapHeader := (*mmapHeader)(unsafe.Pointer(curPtr))
	endPtr := curPtr + uintptr(size)
	curPtr += 8

	var entry *MemoryMapEntry
	for curPtr != endPtr {
		entry = (*MemoryMapEntry)(unsafe.Pointer(curPtr))

		// Mark unknown entry types as reserved
		if entry.Type == 0 || entry.Type >= memUnknown {
			entry.Type = MemReserved
		}

		if !visitor(entry) {
			return
		}

		curPtr += uintptr(ptrMapHeader.entrySize)
	}
}

// CmdLineOption scans the boot command line for the named option and copies
// its value into dst. It reports the number of value bytes copied (values
// longer than dst are truncated) and whether the option was present at all;
// flag-style options without a value report (0, true).
//
// The command line is parsed in place, byte by byte, so this function is
// safe to call before any memory management exists.
func CmdLineOption(key string, dst []byte) (int, bool) {
	curPtr, size := findTagByType(tagBootCmdLine)
	if size == 0 {
		return 0, false
	}

	// The command line is a C-style NULL-terminated string.
	end := int(size - 1)

	for i := 0; i < end && cmdLineByte(curPtr, i) != 0; {
		for i < end && cmdLineByte(curPtr, i) == ' ' {
			i++
		}
		start := i
		for i < end && cmdLineByte(curPtr, i) != ' ' && cmdLineByte(curPtr, i) != 0 {
			i++
		}
		if !tokenHasKey(curPtr, start, i, key) {
			continue
		}

		valueStart := start + len(key)
		if valueStart == i {
			return 0, true
		}

		var copied int
		for j := valueStart + 1; j < i && copied < len(dst); j++ {
			dst[copied] = cmdLineByte(curPtr, j)
			copied++
		}
		return copied, true
	}

	return 0, false
}

func cmdLineByte(base uintptr, i int) byte {
	return *(*byte)(unsafe.Pointer(base + uintptr(i)))
}

// tokenHasKey reports whether the token [start, end) is the given key,
// either exactly (flag form) or followed by '=' (value form).
func tokenHasKey(base uintptr, start, end int, key string) bool {
	tokenLen := end - start
	if tokenLen != len(key) && (tokenLen <= len(key) || cmdLineByte(base, start+len(key)) != '=') {
		return false
	}
	for i := 0; i < len(key); i++ {
		if cmdLineByte(base, start+i) != key[i] {
			return false
		}
	}
	return true
}

// findTagByType scans the multiboot info data looking for the start of the
// specified tag type. It returns a pointer to the tag contents start offset
// and the content length excluding the tag header.
//
// If the tag is not present in the multiboot info, findTagByType will return
// back (0,0).
func findTagByType(tagType tagType) (uintptr, uint32) {
	var ptrTagHeader *tagHeader

	curPtr := infoData + 8
	for ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)); ptrTagHeader.tagType != tagMbSectionEnd; ptrTagHeader = (*tagHeader)(unsafe.Pointer(curPtr)) {
		if ptrTagHeader.tagType == tagType {
			return curPtr + 8, ptrTagHeader.size - 8
		}

		// Tags are aligned at 8-byte aligned addresses
		curPtr += uintptr(int32(ptrTagHeader.size+7) & ^7)
	}

	return 0, 0
}
