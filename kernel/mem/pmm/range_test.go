package pmm

import "testing"

func TestFrameRangeNFrames(t *testing.T) {
	specs := []struct {
		r   FrameRange
		exp uint64
	}{
		{NewFrameRange(0, 0), 0},
		{NewFrameRange(0, 1), 1},
		{NewFrameRange(10, 25), 15},
		{FrameRangeN(100, 7), 7},
	}

	for specIndex, spec := range specs {
		if got := spec.r.NFrames(); got != spec.exp {
			t.Errorf("[spec %d] expected NFrames() to return %d; got %d", specIndex, spec.exp, got)
		}
	}
}

func TestInvertedFrameRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected an inverted range to panic")
		}
	}()

	NewFrameRange(2, 1)
}

func TestFrameRangeTrimAndPush(t *testing.T) {
	r := NewFrameRange(10, 20)

	r.TrimFront(3)
	if exp := NewFrameRange(13, 20); r != exp {
		t.Errorf("expected %v after TrimFront; got %v", exp, r)
	}

	r.TrimBack(2)
	if exp := NewFrameRange(13, 18); r != exp {
		t.Errorf("expected %v after TrimBack; got %v", exp, r)
	}

	r.PushFront(3)
	r.PushBack(2)
	if exp := NewFrameRange(10, 20); r != exp {
		t.Errorf("expected %v after push; got %v", exp, r)
	}
}

func TestFrameRangeTrimPanics(t *testing.T) {
	specs := []func(r *FrameRange){
		func(r *FrameRange) { r.TrimFront(10) },
		func(r *FrameRange) { r.TrimBack(10) },
		func(r *FrameRange) { r.TrimFront(11) },
	}

	for specIndex, spec := range specs {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("[spec %d] expected emptying trim to panic", specIndex)
				}
			}()

			r := NewFrameRange(0, 10)
			spec(&r)
		}()
	}
}

func TestFrameRangeCmp(t *testing.T) {
	specs := []struct {
		a, b      FrameRange
		expResult int
		expOK     bool
	}{
		// coinciding ranges are equal
		{NewFrameRange(4, 8), NewFrameRange(4, 8), 0, true},
		// strictly left / strictly right, including touching ranges
		{NewFrameRange(0, 4), NewFrameRange(4, 8), -1, true},
		{NewFrameRange(4, 8), NewFrameRange(0, 4), 1, true},
		{NewFrameRange(0, 2), NewFrameRange(6, 8), -1, true},
		// overlapping ranges are incomparable
		{NewFrameRange(0, 5), NewFrameRange(4, 8), 0, false},
		{NewFrameRange(4, 8), NewFrameRange(0, 5), 0, false},
		{NewFrameRange(0, 16), NewFrameRange(4, 8), 0, false},
		{NewFrameRange(4, 8), NewFrameRange(0, 16), 0, false},
	}

	for specIndex, spec := range specs {
		result, ok := spec.a.Cmp(spec.b)
		if result != spec.expResult || ok != spec.expOK {
			t.Errorf("[spec %d] expected Cmp to return (%d, %t); got (%d, %t)",
				specIndex, spec.expResult, spec.expOK, result, ok)
		}
	}
}
