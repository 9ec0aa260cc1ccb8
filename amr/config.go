package amr

import (
	"fmt"
	"math"
)

// BoundaryKind selects how fluxes are computed on domain-edge faces.
type BoundaryKind string

const (
	// BoundaryInsulated applies a zero-flux (Neumann) condition.
	BoundaryInsulated BoundaryKind = "insulated"
	// BoundaryFixed applies a fixed-temperature (Dirichlet) condition
	// using SimulationConfig.BoundaryValue.
	BoundaryFixed BoundaryKind = "fixed"
)

// FieldSpec describes an initial field distribution or a heat source region.
// Center coordinates are normalized to [0, 1] per axis.
type FieldSpec struct {
	Kind      string    `yaml:"kind"` // "uniform", "disk", "gaussian" or "noisy"
	Value     float64   `yaml:"value"`
	Center    []float64 `yaml:"center,omitempty"`
	Radius    float64   `yaml:"radius,omitempty"`    // physical units (disk)
	Amplitude float64   `yaml:"amplitude,omitempty"` // peak value (disk, gaussian)
	Sigma     float64   `yaml:"sigma,omitempty"`     // physical units (gaussian)
	StdDev    float64   `yaml:"stddev,omitempty"`    // noise standard deviation (noisy field, disk source jitter)
}

// SimulationConfig carries every parameter of one simulation run. It is
// immutable once validated and is threaded through mesh, solver, criterion
// and loop construction.
type SimulationConfig struct {
	// Spatial
	Dims int     `yaml:"dims"` // 2 (quadtree) or 3 (octree)
	LX   float64 `yaml:"lx"`   // domain length along x [m]
	LY   float64 `yaml:"ly"`   // domain length along y [m]
	LZ   float64 `yaml:"lz"`   // domain length along z [m], 3D only
	N    int     `yaml:"n"`    // base resolution per dimension, power of two

	// Refinement depth bounds relative to the base grid. Min may be
	// negative (coarser than base) as long as it does not pass the root.
	MinRelativeDepth int `yaml:"min_relative_depth"`
	MaxRelativeDepth int `yaml:"max_relative_depth"`

	// Temporal
	TotalTime float64 `yaml:"total_time"` // total simulated time T [s]
	DT        float64 `yaml:"dt"`         // time step [s]
	NRecords  int     `yaml:"n_records"`  // evenly spaced export checkpoints

	// Material
	Rho    float64 `yaml:"rho"`    // density [kg/m^3]
	Cp     float64 `yaml:"cp"`     // specific heat capacity [J/kg/K]
	Lambda float64 `yaml:"lambda"` // thermal conductivity [W/m/K]

	// Boundary condition at domain edges
	Boundary      BoundaryKind `yaml:"boundary"`
	BoundaryValue float64      `yaml:"boundary_value"`

	// Refinement criterion: indicator above RefineThreshold splits, below
	// CoarsenThreshold merges; the gap between them is the hysteresis band.
	Indicator        string  `yaml:"indicator"` // "gradient", "log-gradient" or "curvature"
	RefineThreshold  float64 `yaml:"refine_threshold"`
	CoarsenThreshold float64 `yaml:"coarsen_threshold"`

	// DivergenceLimit is the sanity magnitude beyond which the solver
	// declares the run diverged (CFL violation is a configuration error,
	// surfaced rather than silently clamped).
	DivergenceLimit float64 `yaml:"divergence_limit"`

	Seed int64 `yaml:"seed"`

	InitialField FieldSpec  `yaml:"initial_field"`
	Source       *FieldSpec `yaml:"source,omitempty"` // optional per-step heat source
}

// DefaultConfig returns the reference thermal setup: a 10m x 10m air domain
// at base resolution 128 with a hot disk at the center.
func DefaultConfig() SimulationConfig {
	return SimulationConfig{
		Dims:             2,
		LX:               10.0,
		LY:               10.0,
		N:                128,
		MinRelativeDepth: 0,
		MaxRelativeDepth: 2,
		TotalTime:        10.0,
		DT:               0.01,
		NRecords:         10,
		Rho:              1.204,  // air density [kg/m^3]
		Cp:               1004.0, // air specific heat [J/kg/K]
		Lambda:           0.026,  // air thermal conductivity [W/m/K]
		Boundary:         BoundaryInsulated,
		Indicator:        "gradient",
		RefineThreshold:  0.5,
		CoarsenThreshold: 0.1,
		DivergenceLimit:  1e6,
		Seed:             42,
		InitialField: FieldSpec{
			Kind:      "disk",
			Value:     0.0,
			Center:    []float64{0.5, 0.5},
			Radius:    2.0,
			Amplitude: 5.0,
		},
	}
}

// Diffusivity returns the thermal diffusivity LAMBDA / (RHO * CP) [m^2/s].
func (c *SimulationConfig) Diffusivity() float64 {
	return c.Lambda / (c.Rho * c.Cp)
}

// NumSteps returns the number of time steps implied by TotalTime and DT.
func (c *SimulationConfig) NumSteps() int {
	return int(math.Round(c.TotalTime / c.DT))
}

// BaseLevel returns log2(N): the absolute tree level of the base grid.
func (c *SimulationConfig) BaseLevel() int {
	level := 0
	for n := c.N; n > 1; n >>= 1 {
		level++
	}
	return level
}

// Validate checks the configuration once, before any stepping begins.
func (c *SimulationConfig) Validate() error {
	if c.Dims != 2 && c.Dims != 3 {
		return fmt.Errorf("dims must be 2 or 3, got %d", c.Dims)
	}
	if c.LX <= 0 || c.LY <= 0 {
		return fmt.Errorf("domain lengths must be > 0, got lx=%g ly=%g", c.LX, c.LY)
	}
	if c.Dims == 3 && c.LZ <= 0 {
		return fmt.Errorf("lz must be > 0 for a 3D domain, got %g", c.LZ)
	}
	if c.N < 1 || c.N&(c.N-1) != 0 {
		return fmt.Errorf("base resolution n must be a power of two, got %d", c.N)
	}
	if c.MaxRelativeDepth < 0 {
		return fmt.Errorf("max_relative_depth must be >= 0, got %d", c.MaxRelativeDepth)
	}
	if c.MinRelativeDepth > c.MaxRelativeDepth {
		return fmt.Errorf("min_relative_depth %d exceeds max_relative_depth %d",
			c.MinRelativeDepth, c.MaxRelativeDepth)
	}
	if c.BaseLevel()+c.MinRelativeDepth < 0 {
		return fmt.Errorf("min_relative_depth %d coarsens past the root (base level %d)",
			c.MinRelativeDepth, c.BaseLevel())
	}
	if c.TotalTime <= 0 {
		return fmt.Errorf("total_time must be > 0, got %g", c.TotalTime)
	}
	if c.DT <= 0 {
		return fmt.Errorf("dt must be > 0, got %g", c.DT)
	}
	if c.NRecords < 0 {
		return fmt.Errorf("n_records must be >= 0, got %d", c.NRecords)
	}
	if c.Rho <= 0 || c.Cp <= 0 || c.Lambda <= 0 {
		return fmt.Errorf("material properties must be > 0, got rho=%g cp=%g lambda=%g",
			c.Rho, c.Cp, c.Lambda)
	}
	if c.Boundary != BoundaryInsulated && c.Boundary != BoundaryFixed {
		return fmt.Errorf("unknown boundary condition %q", c.Boundary)
	}
	if c.Indicator != "gradient" && c.Indicator != "log-gradient" && c.Indicator != "curvature" {
		return fmt.Errorf("unknown refinement indicator %q", c.Indicator)
	}
	if c.CoarsenThreshold < 0 {
		return fmt.Errorf("coarsen_threshold must be >= 0, got %g", c.CoarsenThreshold)
	}
	if c.RefineThreshold <= c.CoarsenThreshold {
		return fmt.Errorf("refine_threshold %g must exceed coarsen_threshold %g",
			c.RefineThreshold, c.CoarsenThreshold)
	}
	if c.DivergenceLimit <= 0 {
		return fmt.Errorf("divergence_limit must be > 0, got %g", c.DivergenceLimit)
	}
	if err := c.InitialField.validate(c.Dims); err != nil {
		return fmt.Errorf("initial_field: %w", err)
	}
	if c.Source != nil {
		if c.Source.Kind != "disk" {
			return fmt.Errorf("source: only disk sources are supported, got %q", c.Source.Kind)
		}
		if c.Source.StdDev < 0 {
			return fmt.Errorf("source: noise stddev must be >= 0, got %g", c.Source.StdDev)
		}
		if err := c.Source.validate(c.Dims); err != nil {
			return fmt.Errorf("source: %w", err)
		}
	}
	return nil
}

func (s *FieldSpec) validate(dims int) error {
	switch s.Kind {
	case "uniform":
		return nil
	case "disk":
		if s.Radius <= 0 {
			return fmt.Errorf("disk radius must be > 0, got %g", s.Radius)
		}
	case "gaussian":
		if s.Sigma <= 0 {
			return fmt.Errorf("gaussian sigma must be > 0, got %g", s.Sigma)
		}
	case "noisy":
		if s.StdDev < 0 {
			return fmt.Errorf("noise stddev must be >= 0, got %g", s.StdDev)
		}
		return nil
	default:
		return fmt.Errorf("unknown field kind %q", s.Kind)
	}
	if len(s.Center) != dims {
		return fmt.Errorf("center needs %d coordinates, got %d", dims, len(s.Center))
	}
	for _, v := range s.Center {
		if v < 0 || v > 1 {
			return fmt.Errorf("center coordinates are normalized to [0,1], got %v", s.Center)
		}
	}
	return nil
}
