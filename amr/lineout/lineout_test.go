package lineout

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amr-sim/amr-sim/amr/export"
)

// testSnapshot covers a 10x10 domain with a 2x2 grid whose values encode
// the cell column and row, so sampled values identify the cell hit.
func testSnapshot() *export.Snapshot {
	return &export.Snapshot{
		Step: 0,
		Time: 0.5,
		Dims: 2,
		Cells: []export.CellRecord{
			{X: 2.5, Y: 2.5, DX: 5, DY: 5, Value: 1},
			{X: 7.5, Y: 2.5, DX: 5, DY: 5, Value: 2},
			{X: 2.5, Y: 7.5, DX: 5, DY: 5, Value: 3},
			{X: 7.5, Y: 7.5, DX: 5, DY: 5, Value: 4},
		},
	}
}

func TestSpec_Extract_SamplesAlongX(t *testing.T) {
	// GIVEN a horizontal lineout through the lower half
	spec := Spec{Axis: 0, At: []float64{2.5}, Samples: 4}

	// WHEN extracting
	curve, err := spec.Extract(testSnapshot())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	// THEN samples sit at cell-center spacing and pick the right cells
	if len(curve.Points) != 4 {
		t.Fatalf("sample count = %d, want 4", len(curve.Points))
	}
	wantCoords := []float64{1.25, 3.75, 6.25, 8.75}
	wantValues := []float64{1, 1, 2, 2}
	for i, p := range curve.Points {
		if math.Abs(p.Coord-wantCoords[i]) > 1e-12 {
			t.Errorf("point %d coord = %g, want %g", i, p.Coord, wantCoords[i])
		}
		if p.Value != wantValues[i] {
			t.Errorf("point %d value = %g, want %g", i, p.Value, wantValues[i])
		}
	}
	if !strings.Contains(curve.Label, "along x") || !strings.Contains(curve.Label, "y=2.5") {
		t.Errorf("label = %q, want axis and fixed coordinate", curve.Label)
	}
}

func TestSpec_Extract_SamplesAlongY(t *testing.T) {
	spec := Spec{Axis: 1, At: []float64{7.5}, Samples: 2}
	curve, err := spec.Extract(testSnapshot())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// Right column: values 2 below, 4 above
	if curve.Points[0].Value != 2 || curve.Points[1].Value != 4 {
		t.Errorf("values = %g, %g, want 2, 4", curve.Points[0].Value, curve.Points[1].Value)
	}
}

func TestSpec_Extract_MixedResolution(t *testing.T) {
	// GIVEN a snapshot whose lower-left quadrant is one level finer
	snap := testSnapshot()
	snap.Cells = []export.CellRecord{
		{X: 1.25, Y: 1.25, DX: 2.5, DY: 2.5, Level: 1, Value: 11},
		{X: 3.75, Y: 1.25, DX: 2.5, DY: 2.5, Level: 1, Value: 12},
		{X: 1.25, Y: 3.75, DX: 2.5, DY: 2.5, Level: 1, Value: 13},
		{X: 3.75, Y: 3.75, DX: 2.5, DY: 2.5, Level: 1, Value: 14},
		{X: 7.5, Y: 2.5, DX: 5, DY: 5, Value: 2},
		{X: 2.5, Y: 7.5, DX: 5, DY: 5, Value: 3},
		{X: 7.5, Y: 7.5, DX: 5, DY: 5, Value: 4},
	}

	spec := Spec{Axis: 0, At: []float64{1.25}, Samples: 4}
	curve, err := spec.Extract(snap)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	wantValues := []float64{11, 12, 2, 2}
	for i, p := range curve.Points {
		if p.Value != wantValues[i] {
			t.Errorf("point %d value = %g, want %g", i, p.Value, wantValues[i])
		}
	}
}

func TestSpec_Extract_Validation(t *testing.T) {
	snap := testSnapshot()
	cases := []struct {
		name string
		spec Spec
	}{
		{"axis out of range", Spec{Axis: 2, At: []float64{5}, Samples: 4}},
		{"negative axis", Spec{Axis: -1, At: []float64{5}, Samples: 4}},
		{"wrong at count", Spec{Axis: 0, At: []float64{5, 5}, Samples: 4}},
		{"zero samples", Spec{Axis: 0, At: []float64{5}, Samples: 0}},
		{"line outside the mesh", Spec{Axis: 0, At: []float64{42}, Samples: 4}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.spec.Extract(snap); err == nil {
				t.Error("Extract succeeded, want error")
			}
		})
	}
}

func TestWriteCurve_ParseCurve_RoundTrip(t *testing.T) {
	// GIVEN an extracted curve
	spec := Spec{Axis: 0, At: []float64{2.5}, Samples: 8}
	curve, err := spec.Extract(testSnapshot())
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	path := filepath.Join(t.TempDir(), "test.curve")

	// WHEN writing and reading back
	if err := WriteCurve(path, curve, 0.5); err != nil {
		t.Fatalf("WriteCurve: %v", err)
	}
	got, err := ParseCurve(path)
	if err != nil {
		t.Fatalf("ParseCurve: %v", err)
	}

	// THEN the points survive
	if got.Label != curve.Label {
		t.Errorf("label = %q, want %q", got.Label, curve.Label)
	}
	if len(got.Points) != len(curve.Points) {
		t.Fatalf("point count = %d, want %d", len(got.Points), len(curve.Points))
	}
	for i := range got.Points {
		if got.Points[i] != curve.Points[i] {
			t.Errorf("point %d = %v, want %v", i, got.Points[i], curve.Points[i])
		}
	}
}

func TestWriteCurve_HeaderFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.curve")
	curve := Curve{Label: "lineout along x, y=5", Points: []Point{{1, 2}}}
	if err := WriteCurve(path, curve, 0.25); err != nil {
		t.Fatalf("WriteCurve: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) < 4 {
		t.Fatalf("file has %d lines, want at least 4", len(lines))
	}
	for i := 0; i < 3; i++ {
		if !strings.HasPrefix(lines[i], "#") {
			t.Errorf("header line %d = %q, want a # comment", i, lines[i])
		}
	}
	if !strings.Contains(lines[0], "t=0.25") {
		t.Errorf("first header = %q, want the checkpoint time", lines[0])
	}
	if lines[3] != "1 2" {
		t.Errorf("data line = %q, want \"1 2\"", lines[3])
	}
}

func TestParseCurve_RejectsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name    string
		content string
	}{
		{"too short", "# a\n# b\n"},
		{"three fields", "# a\n# b\n# c\n1 2 3\n"},
		{"not a number", "# a\n# b\n# c\n1 x\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(dir, strings.ReplaceAll(tc.name, " ", "_")+".curve")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := ParseCurve(path); err == nil {
				t.Error("ParseCurve succeeded, want error")
			}
		})
	}
}

func TestWriter_Export_WritesOneFilePerSpec(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, []Spec{
		{Axis: 0, At: []float64{2.5}, Samples: 4},
		{Axis: 1, At: []float64{7.5}, Samples: 4},
	})
	if err != nil {
		t.Fatalf("NewWriter: %v", err)
	}

	snap := testSnapshot()
	snap.Step = 42
	if err := w.Export(snap); err != nil {
		t.Fatalf("Export: %v", err)
	}

	for _, name := range []string{"lineout0_t000042.curve", "lineout1_t000042.curve"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}
