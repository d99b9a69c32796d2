package rt

import "testing"

// range_len == max(0, ceil((stop-start)/step)) for all valid inputs.
func TestRangeSizeFormula(t *testing.T) {
	tests := []struct {
		start, stop, step int64
		size              int64
	}{
		{0, 10, 1, 10},
		{0, 10, 3, 4},
		{0, 10, 10, 1},
		{0, 10, 11, 1},
		{0, 0, 1, 0},
		{5, 5, 1, 0},
		{10, 0, 1, 0},
		{0, 10, -1, 0},
		{10, 0, -1, 10},
		{10, 0, -3, 4},
		{-5, 5, 2, 5},
		{5, -5, -2, 5},
		{1, 2, 100, 1},
	}
	for _, tt := range tests {
		r := NewRange(tt.start, tt.stop, tt.step)
		if r.Len() != tt.size {
			t.Errorf("range(%d, %d, %d).Len() = %d, want %d",
				tt.start, tt.stop, tt.step, r.Len(), tt.size)
		}
	}
}

func TestRangeZeroStepFatal(t *testing.T) {
	withFatalCapture(t)
	msg := expectFatal(t, func() { NewRange(0, 10, 0) })
	if msg != "Range step cannot be zero" {
		t.Errorf("message = %q", msg)
	}
}

func TestRangeGet(t *testing.T) {
	r := NewRange(2, 12, 3) // 2, 5, 8, 11
	want := []int64{2, 5, 8, 11}
	if r.Len() != int64(len(want)) {
		t.Fatalf("len = %d", r.Len())
	}
	for i, w := range want {
		if got := r.Get(int64(i)); got != w {
			t.Errorf("r[%d] = %d, want %d", i, got, w)
		}
	}
	withFatalCapture(t)
	expectFatal(t, func() { r.Get(4) })
	expectFatal(t, func() { r.Get(-1) })
}

func TestRangeConvenienceConstructors(t *testing.T) {
	r := NewRangeStop(4)
	if r.Len() != 4 || r.Get(0) != 0 || r.Get(3) != 3 {
		t.Error("range(stop) wrong")
	}
	r = NewRangeStartStop(3, 7)
	if r.Len() != 4 || r.Get(0) != 3 {
		t.Error("range(start, stop) wrong")
	}
}

func TestRangeToList(t *testing.T) {
	l := NewRange(10, 0, -4).ToList() // 10, 6, 2
	if l.Len() != 3 || l.Get(0) != 10 || l.Get(2) != 2 {
		t.Errorf("ToList = %s", l.Format())
	}
}

func TestRangeRefcounting(t *testing.T) {
	r := NewRange(0, 3, 1)
	r.Retain()
	if r.Refcount() != 2 {
		t.Errorf("refcount = %d", r.Refcount())
	}
	r.Release()
	r.Release()
	if r.Refcount() != 0 {
		t.Errorf("refcount = %d", r.Refcount())
	}
}
