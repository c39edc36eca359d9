package utils

import (
	"math"
	"testing"
)

func TestClampFloat64(t *testing.T) {
	tests := []struct {
		value, lo, hi, expected float64
	}{
		{5, 0, 10, 5},
		{-1, 0, 10, 0},
		{11, 0, 10, 10},
	}
	for _, tt := range tests {
		if got := ClampFloat64(tt.value, tt.lo, tt.hi); got != tt.expected {
			t.Errorf("ClampFloat64(%v, %v, %v) = %v, expected %v", tt.value, tt.lo, tt.hi, got, tt.expected)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(1.5) {
		t.Error("1.5 should be finite")
	}
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if IsFinite(v) {
			t.Errorf("%v should not be finite", v)
		}
	}
	if !AllFinite([]float64{1, 2, 3}) || AllFinite([]float64{1, math.NaN()}) {
		t.Error("AllFinite returned wrong result")
	}
}

func TestCopyFloat64s(t *testing.T) {
	src := []float64{1, 2}
	dst := CopyFloat64s(src)
	dst[0] = 9
	if src[0] != 1 {
		t.Fatal("copy aliases source")
	}
	if CopyFloat64s(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}
