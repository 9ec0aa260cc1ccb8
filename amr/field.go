package amr

import (
	"fmt"
	"math"
	"math/rand"
)

// FieldFunc evaluates an initial field distribution at a physical point.
type FieldFunc func(x, y, z float64) float64

// NewFieldFunc builds the distribution described by spec over a domain of
// extents (lx, ly, lz). Center coordinates in the spec are normalized, so
// the same spec works for any domain size. The noisy distribution draws
// from rng and is therefore deterministic per seed but dependent on
// evaluation order; it is only evaluated once, leaf by leaf, at init.
func NewFieldFunc(spec *FieldSpec, lx, ly, lz float64, rng *rand.Rand) (FieldFunc, error) {
	switch spec.Kind {
	case "uniform":
		v := spec.Value
		return func(x, y, z float64) float64 { return v }, nil
	case "disk":
		cx, cy, cz := denormalize(spec.Center, lx, ly, lz)
		return func(x, y, z float64) float64 {
			if dist(x-cx, y-cy, z-cz) <= spec.Radius {
				return spec.Amplitude
			}
			return spec.Value
		}, nil
	case "gaussian":
		cx, cy, cz := denormalize(spec.Center, lx, ly, lz)
		twoSigma2 := 2 * spec.Sigma * spec.Sigma
		return func(x, y, z float64) float64 {
			r := dist(x-cx, y-cy, z-cz)
			return spec.Value + spec.Amplitude*math.Exp(-r*r/twoSigma2)
		}, nil
	case "noisy":
		return func(x, y, z float64) float64 {
			return spec.Value + rng.NormFloat64()*spec.StdDev
		}, nil
	default:
		return nil, fmt.Errorf("unknown field kind %q", spec.Kind)
	}
}

// NewSourceFunc builds the per-step heat source described by spec: leaves
// inside the disk are held at the source amplitude, re-injected after every
// mesh update (continuous energy injection into the domain). A nonzero
// StdDev jitters the amplitude per step with draws from rng, so noisy
// sources are reproducible per seed.
func NewSourceFunc(spec *FieldSpec, lx, ly, lz float64, rng *rand.Rand) func(m *Mesh) {
	cx, cy, cz := denormalize(spec.Center, lx, ly, lz)
	return func(m *Mesh) {
		amp := spec.Amplitude
		if spec.StdDev > 0 {
			amp += rng.NormFloat64() * spec.StdDev
		}
		m.Inject(func(h Handle, c *Cell) {
			x, y, z := m.CellCenter(h)
			if dist(x-cx, y-cy, z-cz) <= spec.Radius {
				c.Value = amp
			}
		})
	}
}

// InitField evaluates f at every leaf center and stores the result as the
// leaf's field value.
func (m *Mesh) InitField(f FieldFunc) {
	m.Inject(func(h Handle, c *Cell) {
		x, y, z := m.CellCenter(h)
		c.Value = f(x, y, z)
	})
}

func denormalize(center []float64, lx, ly, lz float64) (cx, cy, cz float64) {
	cx = center[0] * lx
	cy = center[1] * ly
	if len(center) > 2 {
		cz = center[2] * lz
	}
	return cx, cy, cz
}

func dist(dx, dy, dz float64) float64 {
	return math.Sqrt(dx*dx + dy*dy + dz*dz)
}
