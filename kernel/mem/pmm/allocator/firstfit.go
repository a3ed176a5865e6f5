// Package allocator implements the first-fit physical frame allocator that
// serves every frame allocation during bring-up.
package allocator

import (
	"helios/kernel"
	"helios/kernel/klog"
	"helios/kernel/mem/pmm"
	"helios/kernel/sync"
)

// freeListCapacity bounds the number of disjoint free ranges the allocator
// can track. Ranges freed once the list is full are leaked, not lost to
// corruption.
const freeListCapacity = 256

var (
	errOutOfMemory = &kernel.Error{Module: "pmm_alloc", Message: "out of memory"}

	// firstFit is the singleton allocator instance shared by the whole
	// bring-up path.
	firstFit FirstFitAllocator
)

// Get returns the system-wide first-fit frame allocator.
func Get() *FirstFitAllocator {
	return &firstFit
}

// FirstFitAllocator tracks free physical memory as a sorted list of disjoint,
// non-adjacent frame ranges and serves allocations by scanning the list left
// to right for the first range that is large enough.
//
// Invariants on the free list: entries are pairwise non-overlapping, strictly
// increasing by lower bound, and no entry ends where the next one begins
// (adjacent ranges are coalesced on free).
type FirstFitAllocator struct {
	mu sync.Spinlock

	// count is the number of live entries at the front of frames.
	count  int
	frames [freeListCapacity]pmm.FrameRange
}

// AllocFrame reserves one frame and returns it. The frame comes from the
// start of the leftmost free range. An out-of-memory condition is reported
// as an error; callers decide whether that is fatal.
func (a *FirstFitAllocator) AllocFrame() (pmm.Frame, *kernel.Error) {
	r, err := a.AllocFrameRange(1)
	if err != nil {
		return pmm.InvalidFrame, err
	}
	return r.Lower, nil
}

// FreeFrame releases a single frame previously returned by AllocFrame.
func (a *FirstFitAllocator) FreeFrame(frame pmm.Frame) {
	a.FreeFrameRange(pmm.FrameRangeN(frame, 1))
}

// AllocFrameRange reserves nframes contiguous frames. The first free range
// with at least nframes frames is selected regardless of how good the fit is
// (position, not size, is the tie-break). An exact fit removes the entry; a
// larger range keeps its tail on the free list. The returned range always
// spans exactly nframes frames.
func (a *FirstFitAllocator) AllocFrameRange(nframes uint64) (pmm.FrameRange, *kernel.Error) {
	a.mu.Acquire()
	defer a.mu.Release()

	for i := 0; i < a.count; i++ {
		if a.frames[i].NFrames() < nframes {
			continue
		}

		ret := pmm.FrameRangeN(a.frames[i].Lower, nframes)
		if a.frames[i].NFrames() == nframes {
			a.removeAt(i)
		} else {
			a.frames[i].TrimFront(nframes)
		}
		return ret, nil
	}

	return pmm.FrameRange{}, errOutOfMemory
}

// FreeFrameRange releases a range back to the allocator, coalescing it with
// its neighbors where they touch. Freeing a range that overlaps the free
// list is a programming error and panics. If the free list is full the range
// is logged and leaked; the allocator keeps working with reduced capacity.
func (a *FirstFitAllocator) FreeFrameRange(r pmm.FrameRange) {
	if r.NFrames() == 0 {
		return
	}

	a.mu.Acquire()
	defer a.mu.Release()

	ind := a.insertionIndexFor(r)

	prevCoalesce := ind > 0 && a.frames[ind-1].Upper == r.Lower
	nextCoalesce := ind < a.count && r.Upper == a.frames[ind].Lower

	switch {
	case prevCoalesce && nextCoalesce:
		// The freed range exactly plugs the hole between its neighbors;
		// fold all three into the left entry.
		a.frames[ind-1].PushBack(r.NFrames() + a.frames[ind].NFrames())
		a.removeAt(ind)
	case prevCoalesce:
		a.frames[ind-1].PushBack(r.NFrames())
	case nextCoalesce:
		a.frames[ind].PushFront(r.NFrames())
	default:
		if a.count == freeListCapacity {
			klog.Warnf("pmm_alloc", "no space to store freed range; it will be leaked: [%x, %x)",
				uint64(r.Lower.Address()), uint64(r.Upper.Address()))
			return
		}

		copy(a.frames[ind+1:a.count+1], a.frames[ind:a.count])
		a.frames[ind] = r
		a.count++
	}
}

// insertionIndexFor locates the position where r belongs via binary search
// using the partial order on ranges. An entry that compares equal to or
// overlaps r means r (or part of it) is already free; that is allocator
// corruption and panics.
func (a *FirstFitAllocator) insertionIndexFor(r pmm.FrameRange) int {
	lo, hi := 0, a.count
	for lo < hi {
		mid := lo + (hi-lo)/2
		res, ok := a.frames[mid].Cmp(r)
		if !ok || res == 0 {
			panic("pmm_alloc: freed range overlaps the free list")
		}
		if res < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

func (a *FirstFitAllocator) removeAt(ind int) {
	copy(a.frames[ind:a.count-1], a.frames[ind+1:a.count])
	a.count--
	a.frames[a.count] = pmm.FrameRange{}
}

// RangeHandle couples a reserved frame range with the allocator that owns it
// so the range can be released with a deferred call once handle-scoped
// ownership becomes useful (the bring-up path itself frees manually because
// its allocator state survives the page-table pivot).
type RangeHandle struct {
	Range pmm.FrameRange

	alloc *FirstFitAllocator
}

// AllocFrameRangeHandle behaves like AllocFrameRange but wraps the result in
// a RangeHandle.
func (a *FirstFitAllocator) AllocFrameRangeHandle(nframes uint64) (RangeHandle, *kernel.Error) {
	r, err := a.AllocFrameRange(nframes)
	if err != nil {
		return RangeHandle{}, err
	}
	return RangeHandle{Range: r, alloc: a}, nil
}

// Release returns the held range to its allocator. Further calls are no-ops.
func (h *RangeHandle) Release() {
	if h.alloc == nil {
		return
	}
	h.alloc.FreeFrameRange(h.Range)
	h.alloc = nil
}
