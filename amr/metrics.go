// Tracks simulation-wide mesh adaptation and solver statistics.

package amr

import (
	"fmt"
	"time"
)

// Metrics aggregates statistics about one simulation run for final
// reporting. Useful for judging how much work the adaptive mesh saved
// compared with a uniform fine grid, and for debugging refinement behavior
// over time.
type Metrics struct {
	Steps              int // time steps completed
	Splits             int // criterion-driven splits
	Merges             int // realized merges (all siblings voted coarsen)
	BalanceSplits      int // forced splits from 2:1 balance cascades
	ClampedRefines     int // refine requests ignored at the max depth bound
	CheckpointsWritten int

	PeakLeafCount  int
	FinalLeafCount int

	InitialIntegral float64 // field integral at t=0
	FinalIntegral   float64 // field integral at the end of the run

	LeafCounts []int // per-step leaf counts, for post-run analysis
}

// NewMetrics returns a zeroed Metrics.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordLeafCount appends the post-step leaf count and updates the peak.
func (m *Metrics) RecordLeafCount(n int) {
	m.LeafCounts = append(m.LeafCounts, n)
	if n > m.PeakLeafCount {
		m.PeakLeafCount = n
	}
	m.FinalLeafCount = n
}

// Print displays aggregated metrics at the end of the simulation.
func (m *Metrics) Print(uniformFineLeaves int, start time.Time) {
	fmt.Println("=== Simulation Metrics ===")
	fmt.Printf("Steps                : %d\n", m.Steps)
	fmt.Printf("Splits               : %d\n", m.Splits)
	fmt.Printf("Merges               : %d\n", m.Merges)
	fmt.Printf("Balance splits       : %d\n", m.BalanceSplits)
	fmt.Printf("Clamped refines      : %d\n", m.ClampedRefines)
	fmt.Printf("Peak leaf count      : %d\n", m.PeakLeafCount)
	fmt.Printf("Final leaf count     : %d\n", m.FinalLeafCount)
	if uniformFineLeaves > 0 {
		saving := 1 - float64(m.PeakLeafCount)/float64(uniformFineLeaves)
		fmt.Printf("Cells vs uniform fine: %d / %d (%.1f%% saved)\n",
			m.PeakLeafCount, uniformFineLeaves, saving*100)
	}
	fmt.Printf("Heat integral drift  : %.6g -> %.6g\n", m.InitialIntegral, m.FinalIntegral)
	fmt.Printf("Checkpoints written  : %d\n", m.CheckpointsWritten)
	fmt.Printf("Wall clock           : %s\n", time.Since(start).Round(time.Millisecond))
}
