// Package boot drives the bring-up sequence: console, memory discovery,
// allocator seeding, construction of the runtime page table, the pivot away
// from the loader's bootstrap table and the post-pivot CPU state
// installation.
package boot

import (
	"unsafe"

	"helios/kernel"
	"helios/kernel/apic"
	"helios/kernel/cpu"
	"helios/kernel/gdt"
	"helios/kernel/hal/multiboot"
	"helios/kernel/hal/serial"
	"helios/kernel/idt"
	"helios/kernel/kfmt"
	"helios/kernel/klog"
	"helios/kernel/mem"
	"helios/kernel/mem/pmm"
	"helios/kernel/mem/pmm/allocator"
	"helios/kernel/mem/vmm"
	"helios/kernel/pic"
	"helios/kernel/sync"
	"helios/kernel/syscall"
)

// stackPages is the size of the kernel stack mapped below the kernel image.
// The page below the stack stays unmapped so an overflow faults instead of
// corrupting whatever lies beneath.
const stackPages = 3

// LinkerSymbols carries the linker-script addresses the boot assembly
// resolves before handing control to Init. The section addresses are
// high-half virtual (at mem.InitialVirtualOffset); BootBegin is the physical
// start of the loader's bootstrap image, which extends up to KernelBegin.
type LinkerSymbols struct {
	KernelBegin, KernelEnd mem.VAddr
	TextBegin, TextEnd     mem.VAddr
	ROBegin, ROEnd         mem.VAddr
	DataBegin, DataEnd     mem.VAddr
	BootBegin              mem.PAddr
}

var (
	errMissingMemoryMap = &kernel.Error{Module: "boot", Message: "boot loader supplied no usable memory map"}
	errPageTableAlloc   = &kernel.Error{Module: "boot", Message: "could not allocate frame for the runtime page table"}
	errStackAlloc       = &kernel.Error{Module: "boot", Message: "could not allocate frame for the kernel stack"}

	// visitMemRegionsFn and initialFrameToSliceFn are mocked by tests and
	// are automatically inlined by the compiler.
	visitMemRegionsFn     = multiboot.VisitMemRegions
	initialFrameToSliceFn = initialFrameToSlice

	initialized bool

	// handoff is the one-shot slot that transfers the sequencer state
	// across the pivot: the continuation runs on a new stack and must not
	// receive arguments, so it drains this slot instead.
	handoff struct {
		lock      sync.Spinlock
		valid     bool
		stackTop  mem.VAddr
		pageTable vmm.PageTable
		symbols   *LinkerSymbols
	}
)

// Init is the kernel entry point. The boot assembly invokes it exactly once
// with interrupts masked, on the loader's page table and bootstrap stack,
// passing the physical address of the Multiboot information record and the
// resolved linker-script symbols. Init never returns.
func Init(multibootPhysAddr mem.PAddr, symbols *LinkerSymbols) {
	if initialized {
		panic("boot: Init called more than once")
	}
	initialized = true

	serial.Init()
	kfmt.SetOutputSink(serial.Output())
	advance(stateConsoleUp)
	klog.Debugf("boot", "console up")

	multiboot.SetInfoPtr(uintptr(mem.InitialPhysToVirt(multibootPhysAddr)))
	klog.Debugf("boot", "multiboot info at %16x", uint64(multibootPhysAddr))
	discoverMemory(symbols)
	advance(stateRegionsDiscovered)

	applyBootOptions()

	alloc := allocator.Get()

	regionLock.AcquireRead()
	seedAllocator(regions[:regionCount], symbols.BootBegin, alloc)
	advance(stateAllocatorSeeded)

	pageTable := createRuntimePageTable(alloc)
	mapPhysWindow(&pageTable, alloc)
	mapKernelSegments(&pageTable, symbols, alloc)
	stackTop := mapStack(&pageTable, symbols, alloc)
	advance(stateRuntimeMapped)

	// The continuation re-acquires the region lock; release it before the
	// pivot and transfer everything else through the hand-off slot.
	regionLock.ReleaseRead()

	handoff.lock.Acquire()
	handoff.valid = true
	handoff.stackTop = stackTop
	handoff.pageTable = pageTable
	handoff.symbols = symbols
	handoff.lock.Release()

	cpu.SwitchToRuntimePageTable(uintptr(stackTop), uintptr(pageTable.Root().Address()), continueInit)
}

// continueInit runs on the runtime page table and the freshly mapped kernel
// stack. From here on the loader's identity window must not be used.
func continueInit() {
	handoff.lock.Acquire()
	if !handoff.valid {
		panic("boot: pivot hand-off slot is empty")
	}
	handoff.valid = false
	stackTop, pageTable, symbols := handoff.stackTop, handoff.pageTable, handoff.symbols
	handoff.lock.Release()

	advance(statePivoted)
	klog.Debugf("boot", "running on the runtime page table")

	alloc := allocator.Get()
	freeBootMemory(symbols, alloc)

	regionLock.AcquireRead()
	freeUpperMemory(regions[:regionCount], alloc)
	regionLock.ReleaseRead()

	gdt.Init(stackTop)
	idt.Init()
	pic.Disable()
	if _, err := apic.Init(&pageTable, alloc, runtimeFrameToSlice); err != nil {
		kfmt.Panic(err)
	}
	syscall.Init()

	enableNX()
	enableFPU()
	enablePGE()
	advance(stateCPUInstalled)

	klog.Debugf("boot", "bring-up complete")
	cpu.Halt()
}

// discoverMemory walks the boot loader's memory map and fills the region
// table with the installable RAM ranges, carving out the kernel image.
func discoverMemory(symbols *LinkerSymbols) {
	// The image bounds arrive as high-half virtual addresses; convert to
	// physical and round outward to page boundaries before carving.
	kbeginPhys := pmm.FrameDown(virtToPhys(symbols.KernelBegin)).Address()
	kendPhys := pmm.FrameUp(virtToPhys(symbols.KernelEnd)).Address()

	regionLock.AcquireWrite()
	defer regionLock.ReleaseWrite()

	var visitor multiboot.MemRegionVisitor = func(entry *multiboot.MemoryMapEntry) bool {
		start := mem.PAddr(entry.PhysAddress)
		end := start.Add(mem.Size(entry.Length))
		klog.Infof("boot", "%17x - %17x: %s", uint64(start), uint64(end), entry.Type.String())

		if entry.Type != multiboot.MemAvailable {
			return true
		}

		region := MemoryRegion{Start: start, End: end}
		region.TrimBelow(kendPhys)
		region.TrimAbove(kbeginPhys)
		if !region.IsEmpty() {
			if !pushRegion(region) {
				klog.Warnf("boot", "region table full; dropping region [%x, %x)",
					uint64(region.Start), uint64(region.End))
			}
		}
		return true
	}

	// Use the noescape hack to prevent the compiler from leaking the visitor
	// function literal to the heap.
	visitMemRegionsFn(*(*multiboot.MemRegionVisitor)(noEscape(unsafe.Pointer(&visitor))))

	if regionCount == 0 {
		kfmt.Panic(errMissingMemoryMap)
	}
}

// applyBootOptions consults the boot command line for the options the core
// honors; right now that is the log level.
func applyBootOptions() {
	var value [8]byte
	n, ok := multiboot.CmdLineOption("loglevel", value[:])
	if !ok {
		return
	}
	if level, ok := klog.LevelByName(value[:n]); ok {
		klog.SetLevel(level)
	}
}

// seedAllocator frees the frame ranges the allocator may serve before the
// pivot: the part of each region that the loader's identity window covers,
// minus the loader image itself. The ranges are handed to the allocator one
// by one as they are computed; nothing is accumulated.
func seedAllocator(table []MemoryRegion, bootBegin mem.PAddr, alloc *allocator.FirstFitAllocator) {
	for _, reg := range table {
		region := reg
		region.TrimAbove(mem.InitialMap)
		region.TrimAbove(bootBegin)

		start := pmm.FrameUp(region.Start)
		end := pmm.FrameDown(region.End)
		if start.Address() >= mem.InitialMap || end <= start {
			continue
		}
		alloc.FreeFrameRange(pmm.NewFrameRange(start, end))
	}
}

// freeUpperMemory frees the frame ranges above the identity window that
// become usable once the linear physical map is active.
func freeUpperMemory(table []MemoryRegion, alloc *allocator.FirstFitAllocator) {
	for _, reg := range table {
		region := reg
		region.TrimBelow(mem.InitialMap)

		start := pmm.FrameUp(region.Start)
		end := pmm.FrameDown(region.End)
		if end.Address() <= mem.InitialMap || end <= start {
			continue
		}
		alloc.FreeFrameRange(pmm.NewFrameRange(start, end))
	}
}

// createRuntimePageTable allocates and clears the PML4 frame of the runtime
// address space.
func createRuntimePageTable(alloc *allocator.FirstFitAllocator) vmm.PageTable {
	frame, err := alloc.AllocFrame()
	if err != nil {
		kfmt.Panic(errPageTableAlloc)
	}

	slice := initialFrameToSliceFn(frame)
	kernel.Memset(uintptr(unsafe.Pointer(slice)), 0, uintptr(mem.PageSize))

	return vmm.NewPageTable(frame)
}

// mapPhysWindow maps every discovered region, in its entirety, into the
// linear physical-memory window. The caller must hold the region read lock.
func mapPhysWindow(pt *vmm.PageTable, alloc *allocator.FirstFitAllocator) {
	var frames uint64

	for _, reg := range regions[:regionCount] {
		start := pmm.FrameUp(reg.Start)
		end := pmm.FrameDown(reg.End)
		for frame := start; frame < end; frame++ {
			page := vmm.PageDown(mem.PhysToVirt(frame.Address()))
			mustMap(pt, page, frame, vmm.FlagPresent|vmm.FlagRW|vmm.FlagGlobal|vmm.FlagNoExecute, alloc)
			frames++
		}
	}

	klog.Debugf("boot", "mapped %d frames into the physical-memory window", frames)
}

// mapKernelSegments maps the text, read-only and writable data segments of
// the kernel image at their high-half addresses with segment-appropriate
// protection.
func mapKernelSegments(pt *vmm.PageTable, symbols *LinkerSymbols, alloc *allocator.FirstFitAllocator) {
	mapSegment(pt, symbols.TextBegin, symbols.TextEnd,
		vmm.FlagPresent|vmm.FlagGlobal, alloc)
	mapSegment(pt, symbols.ROBegin, symbols.ROEnd,
		vmm.FlagPresent|vmm.FlagGlobal|vmm.FlagNoExecute, alloc)
	mapSegment(pt, symbols.DataBegin, symbols.DataEnd,
		vmm.FlagPresent|vmm.FlagRW|vmm.FlagGlobal|vmm.FlagNoExecute, alloc)
}

// mapSegment maps the frames backing [begin, end) at their high-half
// virtual addresses.
func mapSegment(pt *vmm.PageTable, begin, end mem.VAddr, flags vmm.EntryFlag, alloc *allocator.FirstFitAllocator) {
	startFrame := pmm.FrameDown(virtToPhys(begin))
	endFrame := pmm.FrameUp(virtToPhys(end))

	for frame := startFrame; frame < endFrame; frame++ {
		page := vmm.PageDown(mem.InitialPhysToVirt(frame.Address()))
		mustMap(pt, page, frame, flags, alloc)
	}
}

// mapStack allocates and maps the kernel stack directly below the kernel
// image and returns the initial stack pointer. The page below the lowest
// stack page is deliberately left unmapped as the guard.
func mapStack(pt *vmm.PageTable, symbols *LinkerSymbols, alloc *allocator.FirstFitAllocator) mem.VAddr {
	kbeginPage := vmm.PageDown(symbols.KernelBegin)

	for i := uint64(1); i <= stackPages; i++ {
		frame, err := alloc.AllocFrame()
		if err != nil {
			kfmt.Panic(errStackAlloc)
		}
		mustMap(pt, kbeginPage.Sub(i), frame,
			vmm.FlagPresent|vmm.FlagRW|vmm.FlagGlobal|vmm.FlagNoExecute, alloc)
	}

	// Stacks grow down: the first push lands in the highest mapped page.
	return kbeginPage.Address()
}

func mustMap(pt *vmm.PageTable, page vmm.Page, frame pmm.Frame, flags vmm.EntryFlag, alloc *allocator.FirstFitAllocator) {
	if err := pt.Map(page, frame, flags, alloc, initialFrameToSliceFn); err != nil {
		kfmt.Panic(err)
	}
}

// freeBootMemory releases the loader's bootstrap image, which became dead
// weight the moment the pivot completed.
func freeBootMemory(symbols *LinkerSymbols, alloc *allocator.FirstFitAllocator) {
	start := pmm.FrameUp(symbols.BootBegin)
	end := pmm.FrameDown(virtToPhys(symbols.KernelBegin))
	if end <= start {
		return
	}
	alloc.FreeFrameRange(pmm.NewFrameRange(start, end))
}

// virtToPhys converts a high-half virtual address from the linker table to
// its physical counterpart.
func virtToPhys(addr mem.VAddr) mem.PAddr {
	return mem.PAddr(addr - mem.InitialVirtualOffset)
}

// initialFrameToSlice resolves a frame through the loader's identity window;
// it is the frame access capability used before the pivot.
func initialFrameToSlice(frame pmm.Frame) *vmm.PageSlice {
	return (*vmm.PageSlice)(unsafe.Pointer(uintptr(mem.InitialPhysToVirt(frame.Address()))))
}

// runtimeFrameToSlice resolves a frame through the linear physical-memory
// window; it replaces initialFrameToSlice once the pivot completes.
func runtimeFrameToSlice(frame pmm.Frame) *vmm.PageSlice {
	return (*vmm.PageSlice)(unsafe.Pointer(uintptr(mem.PhysToVirt(frame.Address()))))
}

// noEscape hides a pointer from escape analysis. This function is copied over
// from runtime/stubs.go
//
//go:nosplit
func noEscape(p unsafe.Pointer) unsafe.Pointer {
	x := uintptr(p)
	return unsafe.Pointer(x ^ 0)
}

// Control-register bit positions flipped during the post-pivot stage.
const (
	eferNXE = 1 << 11

	cr0MP = 1 << 1
	cr0EM = 1 << 2
	cr0TS = 1 << 3
	cr0NE = 1 << 5

	cr4PGE    = 1 << 7
	cr4OSFXSR = 1 << 9
)

var (
	// The following are mocked by tests and are automatically inlined by
	// the compiler.
	readMSRFn  = cpu.ReadMSR
	writeMSRFn = cpu.WriteMSR
	readCR0Fn  = cpu.ReadCR0
	writeCR0Fn = cpu.WriteCR0
	readCR4Fn  = cpu.ReadCR4
	writeCR4Fn = cpu.WriteCR4
)

// enableNX turns on no-execute support so the XD mappings installed earlier
// actually enforce.
func enableNX() {
	writeMSRFn(cpu.MSREFER, readMSRFn(cpu.MSREFER)|eferNXE)
}

// enableFPU configures native FPU exception handling and SSE state saving:
// monitor-coprocessor, task-switched and numeric-error on, emulation off,
// FXSAVE/FXRSTOR enabled.
func enableFPU() {
	cr0 := readCR0Fn()
	cr0 |= cr0MP | cr0TS | cr0NE
	cr0 &^= cr0EM
	writeCR0Fn(cr0)

	writeCR4Fn(readCR4Fn() | cr4OSFXSR)
}

// enablePGE lets the TLB retain the global kernel mappings across CR3
// rewrites.
func enablePGE() {
	writeCR4Fn(readCR4Fn() | cr4PGE)
}
