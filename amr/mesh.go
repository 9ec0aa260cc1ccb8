package amr

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
)

var (
	// ErrDepthLimit is returned by Split at the maximum relative depth and
	// by Merge at the minimum. Callers treat it as a no-op, not a failure.
	ErrDepthLimit = errors.New("amr: refinement depth bound reached")
	// ErrNotMergeable is returned by Merge when any child is internal.
	// The orchestration guarantees single-level merges, so hitting this
	// mid-run is an internal invariant failure.
	ErrNotMergeable = errors.New("amr: cell has non-leaf children")
)

// slopeLimit damps the interpolation gradient used to seed child values on
// split, preventing large jumps near steep fronts.
const slopeLimit = 0.1

// Mesh owns the cell arena and the split/merge/balance primitives. The tree
// is a single root covering the whole domain, uniformly refined log2(N)
// times at construction so the base grid sits at absolute level log2(N);
// relative depth bounds from the configuration are translated to absolute
// level bounds once, here.
//
// Mesh is not safe for concurrent use; the simulation loop is the only
// mutator and runs single-threaded.
type Mesh struct {
	dims       int
	childCount int
	lx, ly, lz float64

	baseLevel int32
	minLevel  int32 // absolute; baseLevel + MinRelativeDepth
	maxLevel  int32 // absolute; baseLevel + MaxRelativeDepth

	cells []Cell
	free  []Handle // first handles of retired child blocks, reused on split

	leaves      []Handle
	leavesStale bool
}

// NewMesh builds the uniform base grid for a validated configuration.
func NewMesh(cfg *SimulationConfig) (*Mesh, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	base := int32(cfg.BaseLevel())
	m := &Mesh{
		dims:        cfg.Dims,
		childCount:  1 << cfg.Dims,
		lx:          cfg.LX,
		ly:          cfg.LY,
		lz:          cfg.LZ,
		baseLevel:   base,
		minLevel:    base + int32(cfg.MinRelativeDepth),
		maxLevel:    base + int32(cfg.MaxRelativeDepth),
		leavesStale: true,
	}
	m.cells = append(m.cells, Cell{Parent: NilHandle, Child: NilHandle})

	// Refine the root uniformly down to the base grid. Values are all zero
	// at this point, so interpolation degenerates to plain copies.
	for level := int32(0); level < base; level++ {
		for _, h := range append([]Handle(nil), m.Leaves()...) {
			if err := m.Split(h); err != nil {
				return nil, fmt.Errorf("building base grid: %w", err)
			}
		}
	}
	return m, nil
}

// Dims returns the dimensionality of the mesh (2 or 3).
func (m *Mesh) Dims() int { return m.dims }

// Root returns the handle of the root cell.
func (m *Mesh) Root() Handle { return 0 }

// Cell returns the cell behind a handle. The pointer is invalidated by the
// next Split (arena growth); do not hold it across mutations.
func (m *Mesh) Cell(h Handle) *Cell { return &m.cells[h] }

// RelativeDepth returns the cell's refinement level relative to the base
// grid: 0 for base cells, negative for coarser, positive for finer.
func (m *Mesh) RelativeDepth(h Handle) int {
	return int(m.cells[h].Level - m.baseLevel)
}

// CellSize returns the physical extent of a cell along each axis.
func (m *Mesh) CellSize(h Handle) (dx, dy, dz float64) {
	scale := 1.0 / float64(int64(1)<<m.cells[h].Level)
	return m.lx * scale, m.ly * scale, m.lz * scale
}

// CellCenter returns the physical center of a cell (z is 0 in 2D).
func (m *Mesh) CellCenter(h Handle) (x, y, z float64) {
	c := &m.cells[h]
	scale := 1.0 / float64(int64(1)<<c.Level)
	x = (float64(c.X) + 0.5) * scale * m.lx
	y = (float64(c.Y) + 0.5) * scale * m.ly
	if m.dims == 3 {
		z = (float64(c.Z) + 0.5) * scale * m.lz
	}
	return x, y, z
}

// CellVolume returns the control volume of a cell (area in 2D).
func (m *Mesh) CellVolume(h Handle) float64 {
	dx, dy, dz := m.CellSize(h)
	if m.dims == 3 {
		return dx * dy * dz
	}
	return dx * dy
}

// FaceArea returns the area (length in 2D) of a cell face normal to axis.
func (m *Mesh) FaceArea(h Handle, axis int) float64 {
	dx, dy, dz := m.CellSize(h)
	switch {
	case m.dims == 2 && axis == 0:
		return dy
	case m.dims == 2 && axis == 1:
		return dx
	case axis == 0:
		return dy * dz
	case axis == 1:
		return dx * dz
	default:
		return dx * dy
	}
}

// Leaves returns the current flat list of leaf handles in a stable
// depth-first order. The slice is owned by the mesh and rebuilt lazily
// after mutations; callers that mutate the mesh while iterating must copy.
func (m *Mesh) Leaves() []Handle {
	if !m.leavesStale {
		return m.leaves
	}
	m.leaves = m.leaves[:0]
	stack := []Handle{m.Root()}
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := &m.cells[h]
		if c.IsLeaf() {
			m.leaves = append(m.leaves, h)
			continue
		}
		for i := m.childCount - 1; i >= 0; i-- {
			stack = append(stack, c.Child+Handle(i))
		}
	}
	m.leavesStale = false
	return m.leaves
}

// Inject applies f to every leaf cell, in leaf order. Used for initial
// field setup and per-step heat source injection.
func (m *Mesh) Inject(f func(h Handle, c *Cell)) {
	for _, h := range m.Leaves() {
		f(h, &m.cells[h])
	}
}

// Integral returns the volume-weighted integral of the field over all
// leaves. Conserved exactly by Split and Merge, up to float rounding.
func (m *Mesh) Integral() float64 {
	leaves := m.Leaves()
	vals := make([]float64, len(leaves))
	vols := make([]float64, len(leaves))
	for i, h := range leaves {
		vals[i] = m.cells[h].Value
		vols[i] = m.CellVolume(h)
	}
	return floats.Dot(vals, vols)
}

// allocBlock returns the first handle of a zeroed block of childCount
// contiguous cells, reusing a retired block when one is available.
func (m *Mesh) allocBlock() Handle {
	if n := len(m.free); n > 0 {
		block := m.free[n-1]
		m.free = m.free[:n-1]
		for i := 0; i < m.childCount; i++ {
			m.cells[block+Handle(i)] = Cell{}
		}
		return block
	}
	block := Handle(len(m.cells))
	for i := 0; i < m.childCount; i++ {
		m.cells = append(m.cells, Cell{})
	}
	return block
}

// Split replaces a leaf with 4 (2D) or 8 (3D) children one level finer.
// Child values come from a gradient-limited linear interpolation of the
// parent value and its face neighbors, and average back to the parent value
// exactly, conserving the field integral. Returns ErrDepthLimit at the
// maximum depth bound.
func (m *Mesh) Split(h Handle) error {
	c := m.cells[h]
	if !c.IsLeaf() {
		return fmt.Errorf("split: cell %d is not a leaf", h)
	}
	if c.Level >= m.maxLevel {
		return ErrDepthLimit
	}

	// Per-axis slope from face-neighbor values, central difference where
	// both sides resolve, one-sided otherwise. Computed before the arena
	// grows so neighbor lookups see the pre-split tree.
	var grad [3]float64
	for axis := 0; axis < m.dims; axis++ {
		pos, _, okPos := m.faceValue(h, Direction(2*axis))
		neg, _, okNeg := m.faceValue(h, Direction(2*axis+1))
		switch {
		case okPos && okNeg:
			grad[axis] = (pos - neg) / 2.0
		case okPos:
			grad[axis] = pos - c.Value
		case okNeg:
			grad[axis] = c.Value - neg
		}
		grad[axis] *= slopeLimit
	}

	block := m.allocBlock()
	for i := 0; i < m.childCount; i++ {
		dx, dy, dz := childOffset(i)
		// Child centers sit at -/+ a quarter cell from the parent center.
		value := c.Value +
			(float64(dx)-0.5)*0.5*grad[0] +
			(float64(dy)-0.5)*0.5*grad[1] +
			(float64(dz)-0.5)*0.5*grad[2]
		m.cells[block+Handle(i)] = Cell{
			Level:  c.Level + 1,
			X:      2*c.X + dx,
			Y:      2*c.Y + dy,
			Z:      2*c.Z + dz,
			Parent: h,
			Child:  NilHandle,
			Value:  value,
		}
	}
	m.cells[h].Child = block
	m.leavesStale = true
	return nil
}

// Merge replaces the children of an internal cell with the cell itself,
// whose value becomes the mean of the removed children (equal volumes, so
// the field integral is conserved). Returns ErrNotMergeable if any child is
// internal and ErrDepthLimit at the minimum depth bound.
func (m *Mesh) Merge(parent Handle) error {
	p := m.cells[parent]
	if p.IsLeaf() {
		return fmt.Errorf("merge: cell %d has no children: %w", parent, ErrNotMergeable)
	}
	if p.Level < m.minLevel {
		return ErrDepthLimit
	}
	sum := 0.0
	for i := 0; i < m.childCount; i++ {
		ch := &m.cells[p.Child+Handle(i)]
		if !ch.IsLeaf() {
			return fmt.Errorf("merge: child %d of cell %d is internal: %w",
				p.Child+Handle(i), parent, ErrNotMergeable)
		}
		sum += ch.Value
	}
	for i := 0; i < m.childCount; i++ {
		m.cells[p.Child+Handle(i)] = Cell{Parent: NilHandle, Child: NilHandle, Retired: true}
	}
	m.free = append(m.free, p.Child)
	m.cells[parent].Child = NilHandle
	m.cells[parent].Value = sum / float64(m.childCount)
	m.leavesStale = true
	return nil
}

// Balance enforces the 2:1 invariant: any leaf with a face neighbor more
// than one level finer is force-split, cascading until no violation
// remains. Idempotent; terminates because levels are bounded by the depth
// range. Returns the number of forced splits.
func (m *Mesh) Balance() int {
	forced := 0
	for {
		changed := false
		snapshot := append([]Handle(nil), m.Leaves()...)
	leaf:
		for _, h := range snapshot {
			c := &m.cells[h]
			if c.Retired || !c.IsLeaf() {
				continue
			}
			for _, d := range Directions(m.dims) {
				ns, err := m.Neighbors(h, d)
				if err != nil {
					continue // domain boundary
				}
				for _, n := range ns {
					if m.cells[n.Cell].Level > c.Level+1 {
						// The violating neighbor respects maxLevel, so this
						// split is at most maxLevel-1 -> maxLevel.
						if err := m.Split(h); err != nil {
							continue
						}
						forced++
						changed = true
						continue leaf
					}
				}
			}
		}
		if !changed {
			return forced
		}
	}
}

// Locate returns the leaf containing the physical point (x, y, z).
// Coordinates are clamped to the domain.
func (m *Mesh) Locate(x, y, z float64) Handle {
	u := clampUnit(x / m.lx)
	v := clampUnit(y / m.ly)
	w := 0.0
	if m.dims == 3 {
		w = clampUnit(z / m.lz)
	}
	h := m.Root()
	for {
		c := &m.cells[h]
		if c.IsLeaf() {
			return h
		}
		next := int64(1) << (c.Level + 1)
		dx := int32(u*float64(next)) - 2*c.X
		dy := int32(v*float64(next)) - 2*c.Y
		dz := int32(w*float64(next)) - 2*c.Z
		h = c.Child + Handle(clampBit(dx)+2*clampBit(dy)+4*clampBit(dz))
	}
}

func clampUnit(u float64) float64 {
	if u < 0 {
		return 0
	}
	if u >= 1 {
		return 1 - 1e-12
	}
	return u
}

func clampBit(b int32) int32 {
	if b < 0 {
		return 0
	}
	if b > 1 {
		return 1
	}
	return b
}
