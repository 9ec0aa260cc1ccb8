package amr

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/amr-sim/amr-sim/amr/export"
)

// LoopState is the simulation loop's state machine: Stepping while
// elapsed < T, Finished once elapsed >= T.
type LoopState int

const (
	Stepping LoopState = iota
	Finished
)

// Exporter receives a snapshot of the mesh at every checkpoint. The VTK
// writer in amr/export implements it; tests use in-memory collectors.
type Exporter interface {
	Export(snap *export.Snapshot) error
}

// SimulationLoop orchestrates time stepping: solve, evaluate the criterion,
// apply mesh changes, rebalance, export. No phase may be skipped or
// reordered: refinement reacts to the solve before it, and the solver's
// stencil assumes the mesh it sees is balanced.
type SimulationLoop struct {
	cfg       *SimulationConfig
	mesh      *Mesh
	solver    *Solver
	criterion *Criterion
	exporter  Exporter
	metrics   *Metrics
	source    func(*Mesh)

	state       LoopState
	step        int
	numSteps    int
	exportEvery int
	elapsed     float64
}

// NewSimulationLoop validates the configuration, builds the mesh with its
// initial field, and runs one criterion pass so the mesh is adapted to the
// initial condition before the first solve. exporter may be nil.
func NewSimulationLoop(cfg *SimulationConfig, exporter Exporter) (*SimulationLoop, error) {
	mesh, err := NewMesh(cfg)
	if err != nil {
		return nil, err
	}
	criterion, err := NewCriterion(cfg)
	if err != nil {
		return nil, err
	}

	rng := NewPartitionedRNG(NewSimulationKey(cfg.Seed))
	field, err := NewFieldFunc(&cfg.InitialField, cfg.LX, cfg.LY, cfg.LZ, rng.ForSubsystem(SubsystemField))
	if err != nil {
		return nil, fmt.Errorf("initial_field: %w", err)
	}
	mesh.InitField(field)

	l := &SimulationLoop{
		cfg:       cfg,
		mesh:      mesh,
		solver:    NewSolver(cfg),
		criterion: criterion,
		exporter:  exporter,
		metrics:   NewMetrics(),
		state:     Stepping,
		numSteps:  cfg.NumSteps(),
	}
	if cfg.Source != nil {
		l.source = NewSourceFunc(cfg.Source, cfg.LX, cfg.LY, cfg.LZ, rng.ForSubsystem(SubsystemSource))
	}
	l.SetNumSteps(l.numSteps)

	// Adapt the mesh to the initial condition, as the reference setup does
	// before entering the loop.
	if err := l.applyDecisions(criterion.EvaluateAll(mesh)); err != nil {
		return nil, err
	}
	l.metrics.BalanceSplits += mesh.Balance()
	l.metrics.InitialIntegral = mesh.Integral()
	l.metrics.RecordLeafCount(len(mesh.Leaves()))

	if stable := l.solver.StableDT(mesh); cfg.DT > stable {
		logrus.Warnf("dt=%g exceeds the stability bound %g for the current mesh; expect divergence", cfg.DT, stable)
	}
	return l, nil
}

// Mesh exposes the loop's mesh, mainly for tests and post-run inspection.
func (l *SimulationLoop) Mesh() *Mesh { return l.mesh }

// Metrics exposes the run statistics.
func (l *SimulationLoop) Metrics() *Metrics { return l.metrics }

// State returns the current loop state.
func (l *SimulationLoop) State() LoopState { return l.state }

// SetNumSteps overrides the step count implied by TotalTime/DT (CLI knob)
// and re-derives the checkpoint cadence, so an overridden run still gets
// NRecords evenly spaced checkpoints.
func (l *SimulationLoop) SetNumSteps(n int) {
	l.numSteps = n
	l.exportEvery = 0
	if l.cfg.NRecords > 0 {
		l.exportEvery = n / l.cfg.NRecords
		if l.exportEvery == 0 {
			l.exportEvery = 1
		}
	}
}

// Run executes the loop until Finished or a fatal solver error.
func (l *SimulationLoop) Run() error {
	if err := l.exportCheckpoint(); err != nil { // initial state, t=0
		return err
	}
	for l.state == Stepping {
		if err := l.Step(); err != nil {
			return err
		}
	}
	l.metrics.FinalIntegral = l.mesh.Integral()
	logrus.Infof("simulation finished after %d steps (%.3fs simulated)", l.step, l.elapsed)
	return nil
}

// Step performs one Stepping transition: solve, evaluate, mutate, balance,
// re-inject the source, export on checkpoints.
func (l *SimulationLoop) Step() error {
	if l.state != Stepping {
		return fmt.Errorf("step called on a finished simulation")
	}
	l.step++
	l.elapsed += l.cfg.DT

	if err := l.solver.Step(l.mesh, l.cfg.DT); err != nil {
		l.state = Finished
		return fmt.Errorf("step %d: %w", l.step, err)
	}

	// Read-then-mutate: all decisions are computed on the post-solve,
	// pre-mutation mesh.
	decisions := l.criterion.EvaluateAll(l.mesh)
	if err := l.applyDecisions(decisions); err != nil {
		l.state = Finished
		return fmt.Errorf("step %d: %w", l.step, err)
	}
	l.metrics.BalanceSplits += l.mesh.Balance()

	if l.source != nil {
		l.source(l.mesh)
	}

	l.metrics.Steps++
	l.metrics.RecordLeafCount(len(l.mesh.Leaves()))

	if l.step >= l.numSteps {
		l.state = Finished
	}
	// The end state is always exported, even when numSteps is not a
	// multiple of the cadence.
	if l.exportEvery > 0 && (l.step%l.exportEvery == 0 || l.state == Finished) {
		if err := l.exportCheckpoint(); err != nil {
			return err
		}
	}
	return nil
}

// applyDecisions realizes criterion decisions: splits first, then merges.
// A merge happens only when every sibling independently voted Coarsen; a
// single dissenting child blocks it. Depth-bound violations are clamped
// no-ops; a structurally impossible merge is an internal invariant failure.
func (l *SimulationLoop) applyDecisions(decisions map[Handle]Decision) error {
	// Iterate in leaf order, not map order, for deterministic mutation.
	leaves := append([]Handle(nil), l.mesh.Leaves()...)

	for _, h := range leaves {
		if decisions[h] != Refine {
			continue
		}
		switch err := l.mesh.Split(h); {
		case err == nil:
			l.metrics.Splits++
		case errors.Is(err, ErrDepthLimit):
			l.metrics.ClampedRefines++
			logrus.Debugf("refine clamped at max depth for cell %d", h)
		default:
			return err
		}
	}

	for _, h := range leaves {
		if decisions[h] != Coarsen {
			continue
		}
		c := l.mesh.Cell(h)
		if c.Retired || !c.IsLeaf() || c.Parent == NilHandle {
			continue // consumed by an earlier merge, split above, or root
		}
		parent := l.mesh.Cell(c.Parent)
		unanimous := true
		for i := 0; i < 1<<l.mesh.Dims(); i++ {
			sibling := parent.Child + Handle(i)
			if !l.mesh.Cell(sibling).IsLeaf() || decisions[sibling] != Coarsen {
				unanimous = false
				break
			}
		}
		if !unanimous {
			continue
		}
		switch err := l.mesh.Merge(c.Parent); {
		case err == nil:
			l.metrics.Merges++
		case errors.Is(err, ErrDepthLimit):
			logrus.Debugf("coarsen clamped at min depth for cell %d", c.Parent)
		default:
			// Siblings were all leaves a moment ago; anything else here is
			// a broken orchestration contract.
			return fmt.Errorf("invariant failure merging cell %d: %w", c.Parent, err)
		}
	}
	return nil
}

func (l *SimulationLoop) exportCheckpoint() error {
	if l.exporter == nil || l.cfg.NRecords == 0 {
		return nil
	}
	snap := l.mesh.Snapshot(l.step, l.elapsed)
	if err := l.exporter.Export(snap); err != nil {
		return fmt.Errorf("export at step %d: %w", l.step, err)
	}
	l.metrics.CheckpointsWritten++
	logrus.Infof("checkpoint at step %d (t=%.3fs), %d leaves", l.step, l.elapsed, len(snap.Cells))
	return nil
}

// Snapshot captures the current leaves (geometry and values) for export.
func (m *Mesh) Snapshot(step int, t float64) *export.Snapshot {
	leaves := m.Leaves()
	snap := &export.Snapshot{
		Step:  step,
		Time:  t,
		Dims:  m.dims,
		Cells: make([]export.CellRecord, 0, len(leaves)),
	}
	for _, h := range leaves {
		x, y, z := m.CellCenter(h)
		dx, dy, dz := m.CellSize(h)
		snap.Cells = append(snap.Cells, export.CellRecord{
			X: x, Y: y, Z: z,
			DX: dx, DY: dy, DZ: dz,
			Level: m.RelativeDepth(h),
			Value: m.cells[h].Value,
		})
	}
	return snap
}
