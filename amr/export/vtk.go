package export

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
)

// VTKWriter writes snapshots as VTK-legacy ASCII unstructured grids, one
// file per checkpoint (mesh_t000000.vtk, ...), loadable in ParaView/VisIt.
// Cells are written as independent quads (2D) or voxels (3D) with the
// temperature and refinement level as cell data.
type VTKWriter struct {
	Dir    string
	Prefix string // file name prefix, "mesh" by default
}

// NewVTKWriter creates the output directory if needed.
func NewVTKWriter(dir string) (*VTKWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &VTKWriter{Dir: dir, Prefix: "mesh"}, nil
}

// Export writes one snapshot file.
func (w *VTKWriter) Export(snap *Snapshot) error {
	prefix := w.Prefix
	if prefix == "" {
		prefix = "mesh"
	}
	path := filepath.Join(w.Dir, fmt.Sprintf("%s_t%06d.vtk", prefix, snap.Step))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeVTK(bw, snap); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

const (
	vtkQuad  = 9
	vtkVoxel = 11
)

func writeVTK(w *bufio.Writer, snap *Snapshot) error {
	pointsPerCell := 4
	cellType := vtkQuad
	if snap.Dims == 3 {
		pointsPerCell = 8
		cellType = vtkVoxel
	}
	n := len(snap.Cells)

	fmt.Fprintln(w, "# vtk DataFile Version 3.0")
	fmt.Fprintf(w, "amr-sim snapshot step=%d time=%g\n", snap.Step, snap.Time)
	fmt.Fprintln(w, "ASCII")
	fmt.Fprintln(w, "DATASET UNSTRUCTURED_GRID")

	fmt.Fprintf(w, "POINTS %d float\n", n*pointsPerCell)
	for _, c := range snap.Cells {
		x0, x1 := c.X-c.DX/2, c.X+c.DX/2
		y0, y1 := c.Y-c.DY/2, c.Y+c.DY/2
		if snap.Dims == 3 {
			z0, z1 := c.Z-c.DZ/2, c.Z+c.DZ/2
			// VTK voxel ordering: x fastest, then y, then z.
			for _, z := range []float64{z0, z1} {
				for _, y := range []float64{y0, y1} {
					for _, x := range []float64{x0, x1} {
						fmt.Fprintf(w, "%g %g %g\n", x, y, z)
					}
				}
			}
			continue
		}
		// VTK quad ordering: counterclockwise.
		fmt.Fprintf(w, "%g %g 0\n", x0, y0)
		fmt.Fprintf(w, "%g %g 0\n", x1, y0)
		fmt.Fprintf(w, "%g %g 0\n", x1, y1)
		fmt.Fprintf(w, "%g %g 0\n", x0, y1)
	}

	fmt.Fprintf(w, "CELLS %d %d\n", n, n*(pointsPerCell+1))
	for i := 0; i < n; i++ {
		fmt.Fprintf(w, "%d", pointsPerCell)
		for j := 0; j < pointsPerCell; j++ {
			fmt.Fprintf(w, " %d", i*pointsPerCell+j)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "CELL_TYPES %d\n", n)
	for i := 0; i < n; i++ {
		fmt.Fprintln(w, cellType)
	}

	fmt.Fprintf(w, "CELL_DATA %d\n", n)
	fmt.Fprintln(w, "SCALARS temperature float 1")
	fmt.Fprintln(w, "LOOKUP_TABLE default")
	for _, c := range snap.Cells {
		fmt.Fprintf(w, "%g\n", c.Value)
	}
	fmt.Fprintln(w, "SCALARS level int 1")
	fmt.Fprintln(w, "LOOKUP_TABLE default")
	for _, c := range snap.Cells {
		fmt.Fprintf(w, "%d\n", c.Level)
	}
	return nil
}
