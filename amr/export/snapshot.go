// Package export provides per-checkpoint mesh snapshots and the VTK-legacy
// writer used for visualization. It stores pure data types and has no
// dependency on the amr package, so downstream tools can consume snapshots
// without pulling in the solver.
package export

// CellRecord captures one leaf cell: center position, physical extent,
// refinement level relative to the base grid, and field value.
type CellRecord struct {
	X, Y, Z    float64
	DX, DY, DZ float64
	Level      int
	Value      float64
}

// Snapshot is the state of the mesh at one checkpoint, queryable per-cell
// (position + value) for downstream comparison.
type Snapshot struct {
	Step  int
	Time  float64
	Dims  int
	Cells []CellRecord
}

// Collector is an in-memory exporter for tests and embedding callers.
type Collector struct {
	Snapshots []*Snapshot
}

// Export appends the snapshot.
func (c *Collector) Export(snap *Snapshot) error {
	c.Snapshots = append(c.Snapshots, snap)
	return nil
}
