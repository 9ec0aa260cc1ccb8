// Package testutil provides shared float assertion helpers for the amr
// test packages.
package testutil

import (
	"math"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertInDelta compares two float64 values with absolute tolerance.
func AssertInDelta(t *testing.T, name string, want, got, delta float64) {
	t.Helper()
	if diff := math.Abs(want - got); diff > delta {
		t.Errorf("%s: got %v, want %v (diff=%v > delta=%v)", name, got, want, diff, delta)
	}
}
