package pmm

// FrameRange describes a contiguous, half-open run of frames [Lower, Upper).
type FrameRange struct {
	Lower Frame
	Upper Frame
}

// NewFrameRange constructs the range [lower, upper). upper must not be below
// lower.
func NewFrameRange(lower, upper Frame) FrameRange {
	if upper < lower {
		panic("pmm: inverted frame range")
	}
	return FrameRange{Lower: lower, Upper: upper}
}

// FrameRangeN constructs the range that starts at lower and spans nframes
// frames.
func FrameRangeN(lower Frame, nframes uint64) FrameRange {
	return FrameRange{Lower: lower, Upper: lower.Add(nframes)}
}

// NFrames returns the number of frames in the range.
func (r FrameRange) NFrames() uint64 {
	return r.Upper.Diff(r.Lower)
}

// TrimFront drops nframes off the front of the range. The range must keep at
// least one frame.
func (r *FrameRange) TrimFront(nframes uint64) {
	if r.NFrames() <= nframes {
		panic("pmm: range trim would empty the range")
	}
	r.Lower = r.Lower.Add(nframes)
}

// TrimBack drops nframes off the back of the range. The range must keep at
// least one frame.
func (r *FrameRange) TrimBack(nframes uint64) {
	if r.NFrames() <= nframes {
		panic("pmm: range trim would empty the range")
	}
	r.Upper = r.Upper.Sub(nframes)
}

// PushFront grows the range by nframes at the front.
func (r *FrameRange) PushFront(nframes uint64) {
	r.Lower = r.Lower.Sub(nframes)
}

// PushBack grows the range by nframes at the back.
func (r *FrameRange) PushBack(nframes uint64) {
	r.Upper = r.Upper.Add(nframes)
}

// Cmp defines the partial order on frame ranges. It reports 0 when the ranges
// coincide, a negative value when r lies entirely left of other and a
// positive value when r lies entirely right of other. Ranges that overlap
// without being equal are incomparable and yield ok == false; callers use
// this to locate insertion points and to detect adjacency, and treat an
// incomparable pair as a corrupted free list.
func (r FrameRange) Cmp(other FrameRange) (result int, ok bool) {
	switch {
	case r.Lower == other.Lower && r.Upper == other.Upper:
		return 0, true
	case r.Upper <= other.Lower:
		return -1, true
	case r.Lower >= other.Upper:
		return 1, true
	default:
		return 0, false
	}
}
