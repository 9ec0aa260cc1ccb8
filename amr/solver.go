package amr

import (
	"errors"
	"fmt"
	"math"
)

// ErrDiverged signals that the explicit update produced a non-finite field
// value or one beyond the configured sanity magnitude, which means the
// CFL-like stability bound was violated. The run must abort; the mesh field
// is left untouched by the failing step.
var ErrDiverged = errors.New("amr: field diverged")

// Solver advances the discrete diffusion equation one explicit forward
// Euler step at a time. Fluxes across faces with hanging nodes are
// area-weighted over the finer neighbors, which keeps the scheme
// conservative at refinement boundaries. The solver only reads mesh
// structure; it never resizes the mesh.
type Solver struct {
	alpha         float64 // thermal diffusivity [m^2/s]
	boundary      BoundaryKind
	boundaryValue float64
	limit         float64 // divergence sanity magnitude

	deltas []float64 // per-leaf scratch, reused across steps
}

// NewSolver builds a solver from the validated configuration.
func NewSolver(cfg *SimulationConfig) *Solver {
	return &Solver{
		alpha:         cfg.Diffusivity(),
		boundary:      cfg.Boundary,
		boundaryValue: cfg.BoundaryValue,
		limit:         cfg.DivergenceLimit,
	}
}

// StableDT returns the largest time step for which the explicit update is
// stable on the current mesh: h_min^2 / (2 * dims * alpha). The solver does
// not clamp to it; exceeding the bound is a configuration error surfaced as
// ErrDiverged once the field blows up.
func (s *Solver) StableDT(m *Mesh) float64 {
	minSize := math.Inf(1)
	for _, h := range m.Leaves() {
		dx, dy, dz := m.CellSize(h)
		minSize = math.Min(minSize, math.Min(dx, dy))
		if m.Dims() == 3 {
			minSize = math.Min(minSize, dz)
		}
	}
	return minSize * minSize / (2 * float64(m.Dims()) * s.alpha)
}

// Step advances every leaf's value by one explicit time step. All fluxes
// are computed from the pre-step field, then applied in one pass, so leaf
// order never influences the result.
func (s *Solver) Step(m *Mesh, dt float64) error {
	leaves := m.Leaves()
	if cap(s.deltas) < len(leaves) {
		s.deltas = make([]float64, len(leaves))
	}
	s.deltas = s.deltas[:len(leaves)]

	for i, h := range leaves {
		c := m.Cell(h)
		dx, dy, dz := m.CellSize(h)
		size := [3]float64{dx, dy, dz}

		flux := 0.0
		for _, d := range Directions(m.Dims()) {
			axis := d.Axis()
			ns, err := m.Neighbors(h, d)
			if err != nil {
				// Domain edge: insulated faces contribute nothing, fixed
				// faces see the boundary value at half a cell distance.
				if s.boundary == BoundaryFixed {
					flux += (s.boundaryValue - c.Value) / (size[axis] / 2) * m.FaceArea(h, axis)
				}
				continue
			}
			for _, n := range ns {
				ndx, ndy, ndz := m.CellSize(n.Cell)
				nSize := [3]float64{ndx, ndy, ndz}
				dist := (size[axis] + nSize[axis]) / 2
				flux += (m.Cell(n.Cell).Value - c.Value) / dist * n.Weight * m.FaceArea(h, axis)
			}
		}
		s.deltas[i] = dt * s.alpha * flux / m.CellVolume(h)
	}

	// Validate before mutating so a diverging step leaves the field intact.
	for i, h := range leaves {
		v := m.Cell(h).Value + s.deltas[i]
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > s.limit {
			x, y, z := m.CellCenter(h)
			return fmt.Errorf("value %g at cell (%.3g, %.3g, %.3g), dt likely violates stability bound %.3g: %w",
				v, x, y, z, s.StableDT(m), ErrDiverged)
		}
	}
	for i, h := range leaves {
		m.Cell(h).Value += s.deltas[i]
	}
	return nil
}
