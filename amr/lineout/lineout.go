// Package lineout extracts 1-D samples of the field along axis-aligned
// lines and compares lineouts between two simulation runs. It is a pure
// downstream consumer of the export snapshot format.
package lineout

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/amr-sim/amr-sim/amr/export"
)

// Spec describes one lineout: the axis the line runs along, the fixed
// physical coordinates of the remaining axes (in axis order), and the
// number of evenly spaced samples.
type Spec struct {
	Axis    int       `yaml:"axis"`
	At      []float64 `yaml:"at"`
	Samples int       `yaml:"samples"`
}

// Point is one sample along a lineout.
type Point struct {
	Coord float64
	Value float64
}

// Curve is a named lineout: the Curve2D representation used for cross-run
// comparison.
type Curve struct {
	Label  string
	Points []Point
}

var axisNames = [...]string{"x", "y", "z"}

// Extract samples the snapshot along the described line. Each sample takes
// the value of the leaf cell containing the sample point.
func (s *Spec) Extract(snap *export.Snapshot) (Curve, error) {
	if s.Axis < 0 || s.Axis >= snap.Dims {
		return Curve{}, fmt.Errorf("lineout axis %d out of range for %dD snapshot", s.Axis, snap.Dims)
	}
	if len(s.At) != snap.Dims-1 {
		return Curve{}, fmt.Errorf("lineout needs %d fixed coordinates, got %d", snap.Dims-1, len(s.At))
	}
	if s.Samples <= 0 {
		return Curve{}, fmt.Errorf("lineout samples must be > 0, got %d", s.Samples)
	}

	lo, hi := bounds(snap, s.Axis)
	var point [3]float64
	k := 0
	for axis := 0; axis < snap.Dims; axis++ {
		if axis != s.Axis {
			point[axis] = s.At[k]
			k++
		}
	}

	curve := Curve{
		Label:  s.label(),
		Points: make([]Point, 0, s.Samples),
	}
	for i := 0; i < s.Samples; i++ {
		coord := lo + (float64(i)+0.5)/float64(s.Samples)*(hi-lo)
		point[s.Axis] = coord
		value, ok := sample(snap, point)
		if !ok {
			return Curve{}, fmt.Errorf("lineout point %v outside the mesh", point[:snap.Dims])
		}
		curve.Points = append(curve.Points, Point{Coord: coord, Value: value})
	}
	return curve, nil
}

func (s *Spec) label() string {
	parts := make([]string, 0, 2)
	k := 0
	for axis := 0; axis < 3 && k < len(s.At); axis++ {
		if axis == s.Axis {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%g", axisNames[axis], s.At[k]))
		k++
	}
	return fmt.Sprintf("lineout along %s, %s", axisNames[s.Axis], strings.Join(parts, " "))
}

// bounds returns the snapshot's extent along one axis.
func bounds(snap *export.Snapshot, axis int) (lo, hi float64) {
	for i, c := range snap.Cells {
		center := [3]float64{c.X, c.Y, c.Z}[axis]
		half := [3]float64{c.DX, c.DY, c.DZ}[axis] / 2
		if i == 0 || center-half < lo {
			lo = center - half
		}
		if i == 0 || center+half > hi {
			hi = center + half
		}
	}
	return lo, hi
}

// sample finds the cell containing the point (half-open boxes, so points on
// an interior face belong to exactly one cell).
func sample(snap *export.Snapshot, p [3]float64) (float64, bool) {
	for _, c := range snap.Cells {
		if p[0] < c.X-c.DX/2 || p[0] >= c.X+c.DX/2 {
			continue
		}
		if p[1] < c.Y-c.DY/2 || p[1] >= c.Y+c.DY/2 {
			continue
		}
		if snap.Dims == 3 && (p[2] < c.Z-c.DZ/2 || p[2] >= c.Z+c.DZ/2) {
			continue
		}
		return c.Value, true
	}
	return 0, false
}

// WriteCurve writes a Curve2D file: three header lines, then one
// "coordinate value" pair per line.
func WriteCurve(path string, curve Curve, time float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# amr-sim lineout t=%g\n", time)
	fmt.Fprintln(w, "# temperature")
	fmt.Fprintf(w, "# %s\n", curve.Label)
	for _, p := range curve.Points {
		fmt.Fprintf(w, "%g %g\n", p.Coord, p.Value)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return f.Close()
}

// ParseCurve reads a Curve2D file written by WriteCurve (or exported by
// VisIt): the first three lines are headers, the rest are pairs.
func ParseCurve(path string) (Curve, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Curve{}, fmt.Errorf("read %s: %w", path, err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) < 4 {
		return Curve{}, fmt.Errorf("%s: too short for a Curve2D lineout", path)
	}
	curve := Curve{Label: strings.TrimSpace(strings.TrimPrefix(lines[2], "#"))}
	for i, line := range lines[3:] {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return Curve{}, fmt.Errorf("%s line %d: expected 2 fields, got %d", path, i+4, len(fields))
		}
		coord, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return Curve{}, fmt.Errorf("%s line %d: %w", path, i+4, err)
		}
		value, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return Curve{}, fmt.Errorf("%s line %d: %w", path, i+4, err)
		}
		curve.Points = append(curve.Points, Point{Coord: coord, Value: value})
	}
	return curve, nil
}

// Writer implements the simulation loop's Exporter: at every checkpoint it
// extracts the configured lineouts and writes one .curve file each.
type Writer struct {
	Dir   string
	Specs []Spec
}

// NewWriter creates the output directory if needed.
func NewWriter(dir string, specs []Spec) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lineout dir: %w", err)
	}
	return &Writer{Dir: dir, Specs: specs}, nil
}

// Export writes every configured lineout for the snapshot.
func (w *Writer) Export(snap *export.Snapshot) error {
	for i, spec := range w.Specs {
		curve, err := spec.Extract(snap)
		if err != nil {
			return err
		}
		path := filepath.Join(w.Dir, fmt.Sprintf("lineout%d_t%06d.curve", i, snap.Step))
		if err := WriteCurve(path, curve, snap.Time); err != nil {
			return err
		}
	}
	return nil
}
