//go:build amd64
// +build amd64

package mem

const (
	// InitialVirtualOffset is the high-half offset at which the boot loader
	// maps the kernel image and its 1Gb identity window. Linker symbols are
	// reported at this offset and must have it subtracted before they can be
	// used as physical addresses.
	InitialVirtualOffset = VAddr(0xFFFFFFFFC0000000)

	// PhysMap is the base of the linear physical-memory window installed by
	// the bring-up sequencer. After the pivot, physical address p is readable
	// through virtual address PhysMap + p.
	PhysMap = VAddr(0xFFFFFF8000000000)

	// PhysLimit bounds the physical address space covered by the PhysMap
	// window (512Gb).
	PhysLimit = PAddr(0x8000000000)

	// InitialMap bounds the portion of physical memory reachable through the
	// loader's identity window (1Gb). Before the pivot only frames below this
	// limit may be touched.
	InitialMap = PAddr(0x40000000)
)

// PhysToVirt returns the virtual address inside the PhysMap window through
// which physical address p is accessible. p must lie below PhysLimit.
func PhysToVirt(p PAddr) VAddr {
	if p >= PhysLimit {
		panic("mem: physical address beyond the PhysMap window")
	}
	return PhysMap + VAddr(p)
}

// InitialPhysToVirt returns the virtual address of p inside the loader's
// high-half identity window. Valid only before the pivot and only for
// addresses below InitialMap.
func InitialPhysToVirt(p PAddr) VAddr {
	if p >= InitialMap {
		panic("mem: physical address beyond the initial identity window")
	}
	return InitialVirtualOffset + VAddr(p)
}
