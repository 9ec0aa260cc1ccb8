package lineout

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeCurveFile(t *testing.T, dir, name string, values []float64) {
	t.Helper()
	var b strings.Builder
	b.WriteString("# amr-sim lineout t=1\n# temperature\n# lineout along x, y=5\n")
	for i, v := range values {
		fmt.Fprintf(&b, "%g %g\n", float64(i), v)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(b.String()), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestCompare_IdenticalDirectories_ZeroDiscrepancy(t *testing.T) {
	// GIVEN two directories with identical lineouts
	refDir, cmpDir := t.TempDir(), t.TempDir()
	values := []float64{1, 2, 3, 4}
	writeCurveFile(t, refDir, "lineout0_t000000.curve", values)
	writeCurveFile(t, refDir, "lineout0_t000010.curve", values)
	writeCurveFile(t, cmpDir, "lineout0_t000000.curve", values)
	writeCurveFile(t, cmpDir, "lineout0_t000010.curve", values)

	// WHEN comparing
	stats, err := Compare(refDir, cmpDir)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// THEN all discrepancy measures are zero
	if stats.Pairs != 2 {
		t.Errorf("pairs = %d, want 2", stats.Pairs)
	}
	if stats.RMSEMean != 0 || stats.RMSEStd != 0 {
		t.Errorf("RMSE = %g +/- %g, want 0", stats.RMSEMean, stats.RMSEStd)
	}
	if stats.RelErrMean != 0 || stats.RelErrStd != 0 {
		t.Errorf("relative error = %g%% +/- %g%%, want 0", stats.RelErrMean, stats.RelErrStd)
	}
}

func TestCompare_ConstantOffset_HandComputedError(t *testing.T) {
	// GIVEN curves that differ by a constant 0.5 against reference 2.0
	refDir, cmpDir := t.TempDir(), t.TempDir()
	writeCurveFile(t, refDir, "lineout0_t000000.curve", []float64{2, 2, 2, 2})
	writeCurveFile(t, cmpDir, "lineout0_t000000.curve", []float64{2.5, 2.5, 2.5, 2.5})

	// WHEN comparing
	stats, err := Compare(refDir, cmpDir)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}

	// THEN RMSE = 0.5 and the relative error is 25%
	if math.Abs(stats.RMSEMean-0.5) > 1e-12 {
		t.Errorf("RMSE = %g, want 0.5", stats.RMSEMean)
	}
	if math.Abs(stats.RelErrMean-25.0) > 1e-12 {
		t.Errorf("relative error = %g%%, want 25%%", stats.RelErrMean)
	}
	if stats.RMSEStd != 0 {
		t.Errorf("RMSE stddev of a single pair = %g, want 0", stats.RMSEStd)
	}
}

func TestCompare_SkipsZeroReferencePointsInRelativeError(t *testing.T) {
	refDir, cmpDir := t.TempDir(), t.TempDir()
	writeCurveFile(t, refDir, "lineout0_t000000.curve", []float64{0, 2})
	writeCurveFile(t, cmpDir, "lineout0_t000000.curve", []float64{1, 3})

	stats, err := Compare(refDir, cmpDir)
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	// Only the second point counts: |3-2|/2 = 50%
	if math.Abs(stats.RelErrMean-50.0) > 1e-12 {
		t.Errorf("relative error = %g%%, want 50%%", stats.RelErrMean)
	}
	// RMSE still uses both points: sqrt((1+1)/2) = 1
	if math.Abs(stats.RMSEMean-1.0) > 1e-12 {
		t.Errorf("RMSE = %g, want 1", stats.RMSEMean)
	}
}

func TestCompare_MismatchedInputs_ReturnsErrors(t *testing.T) {
	refDir, cmpDir := t.TempDir(), t.TempDir()

	// Empty reference directory
	if _, err := Compare(refDir, cmpDir); err == nil {
		t.Error("Compare on empty directories succeeded, want error")
	}

	// Different file counts
	writeCurveFile(t, refDir, "lineout0_t000000.curve", []float64{1})
	writeCurveFile(t, refDir, "lineout0_t000010.curve", []float64{1})
	writeCurveFile(t, cmpDir, "lineout0_t000000.curve", []float64{1})
	if _, err := Compare(refDir, cmpDir); err == nil {
		t.Error("Compare with different file counts succeeded, want error")
	}

	// Different sample counts within a pair
	writeCurveFile(t, cmpDir, "lineout0_t000010.curve", []float64{1, 2})
	if _, err := Compare(refDir, cmpDir); err == nil {
		t.Error("Compare with different sample counts succeeded, want error")
	}

	// Missing directory
	if _, err := Compare(refDir, filepath.Join(cmpDir, "missing")); err == nil {
		t.Error("Compare with a missing directory succeeded, want error")
	}
}

func TestStats_String_MatchesReportFormat(t *testing.T) {
	s := Stats{Pairs: 3, RMSEMean: 0.1234, RMSEStd: 0.01, RelErrMean: 4.5, RelErrStd: 0.5}
	out := s.String()
	for _, want := range []string{
		"Average RMSE: 0.123",
		"Standard Deviation of RMSE: 0.010",
		"Average Relative Error: 4.500%",
		"Standard Deviation of Relative Error: 0.500%",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("String() missing %q in:\n%s", want, out)
		}
	}
}
