package rt

import (
	"math"
	"testing"
)

// int_to_string parsed back by string_to_int yields the original value,
// including both ends of the 64-bit range.
func TestCoercionRoundTrip(t *testing.T) {
	values := []int64{
		0, 1, -1, 42, -42, 1 << 40, -(1 << 40),
		math.MaxInt64, math.MinInt64,
	}
	for _, v := range values {
		s := IntToString(v)
		if got := StringToInt(s); got != v {
			t.Errorf("round trip %d -> %q -> %d", v, s.Data(), got)
		}
	}
}

func TestStringToIntErrors(t *testing.T) {
	withFatalCapture(t)
	msg := expectFatal(t, func() { StringToInt(NewString("12x")) })
	if msg != "Invalid integer format: '12x'" {
		t.Errorf("message = %q", msg)
	}
	expectFatal(t, func() { StringToInt(NewString("")) })
	msg = expectFatal(t, func() { StringToInt(NewString("99999999999999999999")) })
	if msg != "Integer overflow in string conversion: '99999999999999999999'" {
		t.Errorf("message = %q", msg)
	}
}

func TestStringToFloat(t *testing.T) {
	if got := StringToFloat(NewString("2.5")); got != 2.5 {
		t.Errorf("got %f", got)
	}
	withFatalCapture(t)
	expectFatal(t, func() { StringToFloat(NewString("nope")) })
}

func TestFloatFormats(t *testing.T) {
	if got := FloatToString(3.14159).Data(); got != "3.14" {
		t.Errorf("FloatToString = %q, want %%.2f formatting", got)
	}
	if got := FloatToStringG(0.5).Data(); got != "0.5" {
		t.Errorf("FloatToStringG = %q", got)
	}
	if got := FloatToStringG(3.0).Data(); got != "3" {
		t.Errorf("FloatToStringG(3.0) = %q", got)
	}
}

func TestBoolStrings(t *testing.T) {
	if BoolToString(1).Data() != "True" || BoolToString(0).Data() != "False" {
		t.Error("display form should be True/False")
	}
	if BoolToStringLower(1).Data() != "true" || BoolToStringLower(0).Data() != "false" {
		t.Error("coercion form should be true/false")
	}
}

func TestFloatToIntTruncatesTowardZero(t *testing.T) {
	if FloatToInt(2.9) != 2 || FloatToInt(-2.9) != -2 {
		t.Error("truncation is not toward zero")
	}
}

func TestScalarCoercions(t *testing.T) {
	if IntToFloat(3) != 3.0 {
		t.Error("IntToFloat")
	}
	if BoolToInt(true) != 1 || BoolToInt(false) != 0 {
		t.Error("BoolToInt")
	}
	if BoolToFloat(true) != 1.0 || BoolToFloat(false) != 0.0 {
		t.Error("BoolToFloat")
	}
}

func TestConcatParts(t *testing.T) {
	got := ConcatParts([]*String{NewString("a"), nil, NewString("bc"), NewString("")})
	if got.Data() != "abc" {
		t.Errorf("ConcatParts = %q", got.Data())
	}
	if ConcatParts(nil).Data() != "" {
		t.Error("empty concat should be empty string")
	}
}

func TestStringRefcounting(t *testing.T) {
	s := NewString("x")
	s.Retain()
	s.Release()
	if s.Data() != "x" {
		t.Error("released below zero too early")
	}
	s.Release()
	if s.Data() != "" {
		t.Error("release to zero should clear the data")
	}
}

func TestStringToString(t *testing.T) {
	a := NewString("copy")
	b := StringToString(a)
	if b.Data() != "copy" {
		t.Error("copy broken")
	}
	a.Release()
	a.Release()
	if b.Data() != "copy" {
		t.Error("copy shares storage with the original")
	}
}
