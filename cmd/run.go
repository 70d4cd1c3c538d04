package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/accel-sim/config"
	"github.com/inference-sim/accel-sim/engine"
	"github.com/inference-sim/accel-sim/report"
	"github.com/inference-sim/accel-sim/trace"
)

var (
	runConfigPath string
	runTracePath  string
	runOutDir     string
	runSeed       int64
	runSeedSet    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the simulation against a config and a request trace",
	Run:   runRun,
}

func init() {
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "Path to the key=value config file (missing file falls back to defaults)")
	runCmd.Flags().StringVar(&runTracePath, "trace", "", "Path to the request trace file")
	runCmd.Flags().StringVar(&runOutDir, "out", "out", "Directory to write summary.json, timeseries.csv, events.jsonl, run_meta.json")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "Override the config file's seed")
}

func runRun(cmd *cobra.Command, args []string) {
	runSeedSet = cmd.Flags().Changed("seed")

	cfg, err := config.Load(runConfigPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}
	if runSeedSet {
		cfg.Bundle.Seed = runSeed
	}

	specs, err := trace.Load(runTracePath)
	if err != nil {
		logrus.Errorf("loading trace: %v", err)
		exit(1)
		return
	}
	logrus.Infof("loaded %d requests from %s", len(specs), runTracePath)

	eng, err := engine.NewEngine(cfg.Bundle, cfg.GPUConfigs(), cfg.Links, specs)
	if err != nil {
		logrus.Fatalf("constructing engine: %v", err)
	}

	logrus.Infof("starting simulation: %d accelerators, seed=%d, memory_pressure=%s, eviction=%s, routing=%s",
		cfg.NumGPUs, cfg.Bundle.Seed, cfg.Bundle.MemoryPressure, cfg.Bundle.Eviction, cfg.Bundle.Routing)
	metrics := eng.Run()
	logrus.Infof("simulation complete: finished=%d rejected=%d evicted=%d makespan_ms=%.2f",
		metrics.Finished, metrics.Rejected, metrics.Evicted, metrics.MakespanMs)

	if err := report.WriteSummary(runOutDir, metrics); err != nil {
		logrus.Fatalf("writing summary: %v", err)
	}
	if err := report.WriteTimeseriesCSV(runOutDir, eng.Samples, len(eng.GPUs)); err != nil {
		logrus.Fatalf("writing timeseries: %v", err)
	}
	if err := report.WriteEventsJSONL(runOutDir, eng.EventLog); err != nil {
		logrus.Fatalf("writing event log: %v", err)
	}
	if err := report.WriteRunMeta(runOutDir, runConfigPath, runTracePath, cfg); err != nil {
		logrus.Fatalf("writing run meta: %v", err)
	}
	logrus.Infof("wrote report to %s", runOutDir)
}

// exit is a var so tests can intercept process termination.
var exit = os.Exit
