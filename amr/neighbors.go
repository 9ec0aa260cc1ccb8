package amr

import (
	"errors"
	"fmt"
)

// ErrBoundary is the sentinel returned by Neighbors when the requested
// direction points outside the domain. It is not a failure: callers route
// it to boundary-condition handling.
var ErrBoundary = errors.New("amr: neighbor lies outside the domain")

// Distance factors between cell centers across a shared face, normalized to
// the cell's own size. A coarser neighbor's center is offset diagonally,
// hence sqrt(0.25^2 + 0.75^2); a finer pair/quad averages at 0.75.
const (
	factorSameLevel = 1.0
	factorFiner     = 0.75
	factorCoarser   = 0.7905
)

// FaceNeighbor is one leaf cell adjacent to a queried face. Weight is the
// fraction of the queried cell's face shared with this neighbor; weights
// over a face sum to 1 when the face is fully interior.
type FaceNeighbor struct {
	Cell   Handle
	Weight float64
}

// Neighbors resolves the leaf cells adjacent to cell h across the given
// face. A coarser or same-level neighbor yields a single entry with weight
// 1; a finer neighbor yields the leaves on the shared face (two in 2D, four
// in 3D under 2:1 balance), each weighted by its shared-face fraction.
// Returns ErrBoundary when the face lies on the domain edge.
//
// The lookup is an iterative walk: compute the same-level neighbor
// coordinate, then descend from the root following the coordinate bits
// until a leaf or a same-level internal cell is reached.
func (m *Mesh) Neighbors(h Handle, d Direction) ([]FaceNeighbor, error) {
	c := m.cells[h]
	axis := d.Axis()
	if axis >= m.dims {
		return nil, fmt.Errorf("direction %s is invalid in %dD", d, m.dims)
	}

	nx, ny, nz := c.X, c.Y, c.Z
	switch axis {
	case 0:
		nx += d.Sign()
	case 1:
		ny += d.Sign()
	default:
		nz += d.Sign()
	}
	limit := int32(1) << c.Level
	if nx < 0 || nx >= limit || ny < 0 || ny >= limit || (m.dims == 3 && (nz < 0 || nz >= limit)) {
		return nil, ErrBoundary
	}

	cur := m.Root()
	for level := int32(1); level <= c.Level; level++ {
		cell := &m.cells[cur]
		if cell.IsLeaf() {
			break
		}
		shift := c.Level - level
		dx := (nx >> shift) & 1
		dy := (ny >> shift) & 1
		dz := (nz >> shift) & 1
		cur = cell.Child + Handle(dx+2*dy+4*dz)
	}

	if m.cells[cur].IsLeaf() {
		return []FaceNeighbor{{Cell: cur, Weight: 1.0}}, nil
	}
	// Same-level internal neighbor: collect its leaves on the face turned
	// toward h.
	return m.faceLeaves(cur, d), nil
}

// faceLeaves collects the leaves of the subtree under n that touch the face
// through which n was reached from direction d (i.e. the face of n opposite
// to d). Weights halve per level of extra refinement in 2D and quarter in
// 3D, so they always express shared-face fractions of the original cell.
func (m *Mesh) faceLeaves(n Handle, d Direction) []FaceNeighbor {
	axis := d.Axis()
	// Children of n adjacent to the querying cell sit on n's near side:
	// local offset 0 along the axis when approaching in the positive
	// direction, 1 otherwise.
	var near int32
	if d.Sign() < 0 {
		near = 1
	}
	childWeight := 1.0 / float64(m.childCount/2)

	type frame struct {
		h Handle
		w float64
	}
	var out []FaceNeighbor
	stack := []frame{{h: n, w: 1.0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c := &m.cells[f.h]
		if c.IsLeaf() {
			out = append(out, FaceNeighbor{Cell: f.h, Weight: f.w})
			continue
		}
		for i := m.childCount - 1; i >= 0; i-- {
			dx, dy, dz := childOffset(i)
			onFace := [3]int32{dx, dy, dz}[axis] == near
			if onFace {
				stack = append(stack, frame{h: c.Child + Handle(i), w: f.w * childWeight})
			}
		}
	}
	return out
}

// faceValue resolves a single representative value for the face of h in
// direction d, together with the center-distance factor used by gradient
// estimation: 1.0 for a same-level neighbor, factorCoarser for a coarser
// one, factorFiner for the weighted average of a finer set. ok is false on
// the domain boundary.
func (m *Mesh) faceValue(h Handle, d Direction) (value, factor float64, ok bool) {
	ns, err := m.Neighbors(h, d)
	if err != nil {
		return 0, 0, false
	}
	if len(ns) == 1 {
		n := &m.cells[ns[0].Cell]
		factor = factorSameLevel
		if n.Level < m.cells[h].Level {
			factor = factorCoarser
		}
		return n.Value, factor, true
	}
	total := 0.0
	for _, n := range ns {
		value += n.Weight * m.cells[n.Cell].Value
		total += n.Weight
	}
	return value / total, factorFiner, true
}
