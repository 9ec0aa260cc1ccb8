package cmd

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/amr-sim/amr-sim/amr"
	"github.com/amr-sim/amr-sim/amr/export"
	"github.com/amr-sim/amr-sim/amr/lineout"
)

var (
	// CLI flags for the run subcommand
	configPath string // Path to the YAML configuration file
	logLevel   string // Log verbosity level
	outputDir  string // Directory for VTK snapshots and lineouts
	steps      int    // Iteration-count override (0 = derive from total_time/dt)
	seed       int64  // Seed override for the deterministic RNG streams
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "amr-sim",
	Short: "Adaptive-mesh heat diffusion simulator",
}

// runCmd executes a simulation using parameters from the config file,
// with a couple of CLI overrides on top.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the heat diffusion simulation",
	RunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		cfg := &FileConfig{Simulation: amr.DefaultConfig()}
		if configPath != "" {
			cfg, err = LoadConfig(configPath)
			if err != nil {
				return err
			}
		}
		if cmd.Flags().Changed("seed") {
			cfg.Simulation.Seed = seed
		}

		exporter, err := buildExporter(cfg)
		if err != nil {
			return err
		}

		logrus.Infof("starting simulation: %dD, n=%d, depth=[%d,%d], dt=%g, T=%g",
			cfg.Simulation.Dims, cfg.Simulation.N,
			cfg.Simulation.MinRelativeDepth, cfg.Simulation.MaxRelativeDepth,
			cfg.Simulation.DT, cfg.Simulation.TotalTime)

		startTime := time.Now()
		loop, err := amr.NewSimulationLoop(&cfg.Simulation, exporter)
		if err != nil {
			return err
		}
		if steps > 0 {
			loop.SetNumSteps(steps)
		}
		if err := loop.Run(); err != nil {
			return fmt.Errorf("simulation aborted: %w", err)
		}

		fine := cfg.Simulation.N << cfg.Simulation.MaxRelativeDepth
		uniformFine := int(math.Pow(float64(fine), float64(cfg.Simulation.Dims)))
		loop.Metrics().Print(uniformFine, startTime)
		return nil
	},
}

// compareCmd compares the lineouts of two finished runs.
var compareCmd = &cobra.Command{
	Use:   "compare <reference-dir> <comparison-dir>",
	Short: "Compare exported lineouts between two simulation runs",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stats, err := lineout.Compare(args[0], args[1])
		if err != nil {
			return err
		}
		fmt.Println(stats)
		return nil
	},
}

// multiExporter fans one checkpoint out to several exporters.
type multiExporter []amr.Exporter

func (m multiExporter) Export(snap *export.Snapshot) error {
	for _, e := range m {
		if err := e.Export(snap); err != nil {
			return err
		}
	}
	return nil
}

func buildExporter(cfg *FileConfig) (amr.Exporter, error) {
	if cfg.Simulation.NRecords == 0 {
		return nil, nil
	}
	vtk, err := export.NewVTKWriter(outputDir)
	if err != nil {
		return nil, err
	}
	exporters := multiExporter{vtk}
	if len(cfg.Lineouts) > 0 {
		lw, err := lineout.NewWriter(filepath.Join(outputDir, "lineouts"), cfg.Lineouts)
		if err != nil {
			return nil, err
		}
		exporters = append(exporters, lw)
	}
	return exporters, nil
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML configuration file (defaults apply when empty)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().StringVar(&outputDir, "output-dir", "out", "Directory for VTK snapshots and lineouts")
	runCmd.Flags().IntVar(&steps, "steps", 0, "Override the number of time steps (0 = total_time/dt)")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed override for the deterministic RNG streams")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(compareCmd)
}
