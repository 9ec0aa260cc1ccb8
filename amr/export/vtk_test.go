package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testSnapshot2D() *Snapshot {
	return &Snapshot{
		Step: 3,
		Time: 0.03,
		Dims: 2,
		Cells: []CellRecord{
			{X: 1.25, Y: 1.25, DX: 2.5, DY: 2.5, Level: 0, Value: 1.5},
			{X: 3.125, Y: 3.125, DX: 1.25, DY: 1.25, Level: 1, Value: 4.0},
		},
	}
}

func TestVTKWriter_Export_WritesLegacyUnstructuredGrid(t *testing.T) {
	// GIVEN a two-cell 2D snapshot
	dir := t.TempDir()
	w, err := NewVTKWriter(dir)
	if err != nil {
		t.Fatalf("NewVTKWriter: %v", err)
	}

	// WHEN exporting
	if err := w.Export(testSnapshot2D()); err != nil {
		t.Fatalf("Export: %v", err)
	}

	// THEN the file carries the legacy header and per-cell sections
	data, err := os.ReadFile(filepath.Join(dir, "mesh_t000003.vtk"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"# vtk DataFile Version 3.0",
		"ASCII",
		"DATASET UNSTRUCTURED_GRID",
		"POINTS 8 float",
		"CELLS 2 10",
		"CELL_TYPES 2",
		"CELL_DATA 2",
		"SCALARS temperature float 1",
		"SCALARS level int 1",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("output missing %q", want)
		}
	}

	// Quad corners of the first cell, counterclockwise from (0, 0)
	if !strings.Contains(content, "0 0 0\n2.5 0 0\n2.5 2.5 0\n0 2.5 0\n") {
		t.Error("first quad corners not found or out of order")
	}

	// Both cells are quads (type 9)
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "CELL_TYPES") {
			if lines[i+1] != "9" || lines[i+2] != "9" {
				t.Errorf("cell types = %q, %q, want quad (9)", lines[i+1], lines[i+2])
			}
		}
	}
}

func TestVTKWriter_Export_3DUsesVoxels(t *testing.T) {
	dir := t.TempDir()
	w, err := NewVTKWriter(dir)
	if err != nil {
		t.Fatalf("NewVTKWriter: %v", err)
	}

	snap := &Snapshot{
		Step: 0,
		Dims: 3,
		Cells: []CellRecord{
			{X: 1, Y: 1, Z: 1, DX: 2, DY: 2, DZ: 2, Level: 0, Value: 1.0},
		},
	}
	if err := w.Export(snap); err != nil {
		t.Fatalf("Export: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "mesh_t000000.vtk"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}
	content := string(data)

	if !strings.Contains(content, "POINTS 8 float") {
		t.Error("voxel should emit 8 corner points")
	}
	if !strings.Contains(content, "CELL_TYPES 1\n11\n") {
		t.Error("3D cell should be a voxel (type 11)")
	}
	// x fastest, then y, then z: first two corners differ only in x
	if !strings.Contains(content, "0 0 0\n2 0 0\n0 2 0\n2 2 0\n") {
		t.Error("voxel corner ordering is not x-fastest")
	}
}

func TestVTKWriter_FileNamePerStep(t *testing.T) {
	dir := t.TempDir()
	w, err := NewVTKWriter(dir)
	if err != nil {
		t.Fatalf("NewVTKWriter: %v", err)
	}
	for _, step := range []int{0, 10, 123456} {
		snap := testSnapshot2D()
		snap.Step = step
		if err := w.Export(snap); err != nil {
			t.Fatalf("Export step %d: %v", step, err)
		}
	}

	for _, name := range []string{"mesh_t000000.vtk", "mesh_t000010.vtk", "mesh_t123456.vtk"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected file %s: %v", name, err)
		}
	}
}

func TestCollector_AppendsSnapshots(t *testing.T) {
	c := &Collector{}
	for i := 0; i < 3; i++ {
		snap := testSnapshot2D()
		snap.Step = i
		if err := c.Export(snap); err != nil {
			t.Fatalf("Export: %v", err)
		}
	}
	if len(c.Snapshots) != 3 {
		t.Fatalf("snapshot count = %d, want 3", len(c.Snapshots))
	}
	for i, snap := range c.Snapshots {
		if snap.Step != i {
			t.Errorf("snapshot %d has step %d", i, snap.Step)
		}
	}
}
