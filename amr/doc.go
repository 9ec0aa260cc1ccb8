// Package amr provides the adaptive mesh refinement kernel and the explicit
// heat-diffusion solver that runs on top of it.
//
// # Reading Guide
//
// Start with these three files to understand the kernel:
//   - cell.go: the arena cell (tagged leaf/internal), handles, and directions
//   - mesh.go: split/merge primitives, the 2:1 balance pass, and leaf indexing
//   - loop.go: the per-step orchestration (solve, evaluate, mutate, export)
//
// # Architecture
//
// The amr package holds the mesh, the neighbor resolver, the refinement
// criterion, and the solver; collaborators live in sub-packages:
//   - amr/export/: snapshot records and the VTK-legacy writer
//   - amr/lineout/: Curve2D lineout extraction and cross-run comparison
//
// Cells are stored in a flat arena and addressed by integer handles; parent
// and child relationships are handles rather than pointers, which keeps
// split and merge O(1) and the tree free of ownership cycles. Neighbor
// lookups walk the tree iteratively from the root, guided by the target
// cell's integer coordinates, so there is no recursion tied to tree depth.
//
// # Key Interfaces
//
// The extension points are small interfaces and function types:
//   - Indicator: scores a leaf from the field (gradient, log-gradient and
//     curvature ship)
//   - Criterion: turns an indicator into Refine/Coarsen/Keep decisions
//   - Exporter: receives per-checkpoint snapshots from the simulation loop
package amr
