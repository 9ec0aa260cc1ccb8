package amr

import (
	"fmt"
	"math"
)

// Decision is the outcome of evaluating the refinement criterion on a leaf.
type Decision int

const (
	Keep Decision = iota
	Refine
	Coarsen
)

func (d Decision) String() string {
	switch d {
	case Refine:
		return "refine"
	case Coarsen:
		return "coarsen"
	default:
		return "keep"
	}
}

// Indicator scores a leaf cell from the field and its resolved neighbors.
// ok is false when the score cannot be computed (a face on the domain
// boundary); such leaves always Keep, so refinement is never proposed
// outward past the last interior cell.
type Indicator func(m *Mesh, h Handle) (score float64, ok bool)

// GradientIndicator returns the magnitude of the relative field gradient,
// estimated by centered differences over face-neighbor values with
// center-distance factors for level mismatches.
func GradientIndicator(m *Mesh, h Handle) (float64, bool) {
	mag2 := 0.0
	for axis := 0; axis < m.Dims(); axis++ {
		pos, fPos, okPos := m.faceValue(h, Direction(2*axis))
		neg, fNeg, okNeg := m.faceValue(h, Direction(2*axis+1))
		if !okPos || !okNeg {
			return 0, false
		}
		g := (pos - neg) / (fPos + fNeg)
		mag2 += g * g
	}
	v := m.Cell(h).Value
	if v == 0 {
		return 0, true
	}
	return math.Sqrt(mag2) / math.Abs(v), true
}

// CurvatureIndicator returns the magnitude of the relative second
// difference. Unlike the centered gradient it does not vanish at symmetric
// peaks, so an isolated hot cell refines itself, not only its neighbors.
func CurvatureIndicator(m *Mesh, h Handle) (float64, bool) {
	mag2 := 0.0
	v := m.Cell(h).Value
	for axis := 0; axis < m.Dims(); axis++ {
		pos, _, okPos := m.faceValue(h, Direction(2*axis))
		neg, _, okNeg := m.faceValue(h, Direction(2*axis+1))
		if !okPos || !okNeg {
			return 0, false
		}
		d2 := pos - 2*v + neg
		mag2 += d2 * d2
	}
	if v == 0 {
		return 0, true
	}
	return math.Sqrt(mag2) / math.Abs(v), true
}

// LogGradientIndicator is the log-scaled variant of GradientIndicator,
// compressing large relative gradients so one threshold pair works across
// fields spanning several orders of magnitude.
func LogGradientIndicator(m *Mesh, h Handle) (float64, bool) {
	rel, ok := GradientIndicator(m, h)
	if !ok {
		return 0, false
	}
	return math.Log(rel+1) * 10.0, true
}

// Criterion turns an indicator into Refine/Coarsen/Keep decisions with
// two-threshold hysteresis: scores above RefineThreshold split, scores
// below CoarsenThreshold merge, and the band in between keeps the cell
// as-is, preventing split/merge flapping between consecutive steps.
type Criterion struct {
	Score            Indicator
	RefineThreshold  float64
	CoarsenThreshold float64
}

// NewCriterion builds the criterion named by the configuration.
func NewCriterion(cfg *SimulationConfig) (*Criterion, error) {
	var ind Indicator
	switch cfg.Indicator {
	case "gradient":
		ind = GradientIndicator
	case "log-gradient":
		ind = LogGradientIndicator
	case "curvature":
		ind = CurvatureIndicator
	default:
		return nil, fmt.Errorf("unknown refinement indicator %q", cfg.Indicator)
	}
	return &Criterion{
		Score:            ind,
		RefineThreshold:  cfg.RefineThreshold,
		CoarsenThreshold: cfg.CoarsenThreshold,
	}, nil
}

// Evaluate scores a single leaf and maps it to a decision.
func (c *Criterion) Evaluate(m *Mesh, h Handle) Decision {
	score, ok := c.Score(m, h)
	if !ok {
		return Keep
	}
	switch {
	case score > c.RefineThreshold:
		return Refine
	case score < c.CoarsenThreshold:
		return Coarsen
	default:
		return Keep
	}
}

// EvaluateAll scores every current leaf before any mutation is applied, so
// all decisions of a step see the same unmodified mesh.
func (c *Criterion) EvaluateAll(m *Mesh) map[Handle]Decision {
	decisions := make(map[Handle]Decision, len(m.Leaves()))
	for _, h := range m.Leaves() {
		decisions[h] = c.Evaluate(m, h)
	}
	return decisions
}
