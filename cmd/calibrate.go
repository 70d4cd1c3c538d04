package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/inference-sim/accel-sim/calib"
	"github.com/inference-sim/accel-sim/config"
)

var (
	calibConfigPath    string
	calibGPUIndex      int
	calibArrivalRate   float64
	calibAvgPrompt     float64
	calibAvgGen        float64
	calibObservedTTFT  float64
	calibObservedITL   float64
	calibTargetTTFT    float64
	calibTargetITL     float64
	calibHWCalibPath   string
	calibHWProfile     string
)

// calibrateCmd is an offline advisory tool between runs: it never
// touches a live Engine (spec.md's "no distributed control plane"
// Non-goal does not apply -- this runs between simulations, not inside
// one). It takes one run's observed SLO-relevant delays and proposes
// retuned PrefillTPS/DecodeTPS for the next run's config.
var calibrateCmd = &cobra.Command{
	Use:   "calibrate",
	Short: "Propose retuned accelerator throughput from one run's observed delays",
	Run:   runCalibrate,
}

func init() {
	calibrateCmd.Flags().StringVar(&calibConfigPath, "config", "", "Path to the config file whose accelerator profile is being retuned")
	calibrateCmd.Flags().IntVar(&calibGPUIndex, "gpu", 0, "Index of the accelerator profile being retuned (informational; all accelerators share one profile)")
	calibrateCmd.Flags().Float64Var(&calibArrivalRate, "arrival-rate", 1, "Observed arrival rate (requests/sec) to retune against")
	calibrateCmd.Flags().Float64Var(&calibAvgPrompt, "avg-prompt-tokens", 0, "Observed average prompt length (tokens)")
	calibrateCmd.Flags().Float64Var(&calibAvgGen, "avg-gen-tokens", 0, "Observed average generation length (tokens)")
	calibrateCmd.Flags().Float64Var(&calibObservedTTFT, "observed-ttft-ms", 0, "Observed average queueing+prefill delay (ms)")
	calibrateCmd.Flags().Float64Var(&calibObservedITL, "observed-itl-ms", 0, "Observed average inter-token latency (ms)")
	calibrateCmd.Flags().Float64Var(&calibTargetTTFT, "target-ttft-ms", 0, "SLO target for queueing+prefill delay (ms)")
	calibrateCmd.Flags().Float64Var(&calibTargetITL, "target-itl-ms", 0, "SLO target for inter-token latency (ms)")
	calibrateCmd.Flags().StringVar(&calibHWCalibPath, "hwcalib", "", "Path to a hwcalib.yaml named hardware profile table")
	calibrateCmd.Flags().StringVar(&calibHWProfile, "hw-profile", "", "Name of a profile in --hwcalib to seed the starting accelerator config from, instead of --config")
}

func runCalibrate(cmd *cobra.Command, args []string) {
	if calibAvgPrompt <= 0 || calibAvgGen <= 0 || calibObservedTTFT <= 0 || calibObservedITL <= 0 {
		logrus.Fatalf("calibrate requires --avg-prompt-tokens, --avg-gen-tokens, --observed-ttft-ms, --observed-itl-ms all > 0")
	}
	if calibTargetTTFT <= 0 {
		calibTargetTTFT = calibObservedTTFT
	}
	if calibTargetITL <= 0 {
		calibTargetITL = calibObservedITL
	}

	cfg, err := config.Load(calibConfigPath)
	if err != nil {
		logrus.Fatalf("loading config: %v", err)
	}

	seedCfg := cfg.GPUTemplate
	if calibHWProfile != "" {
		if calibHWCalibPath == "" {
			logrus.Fatalf("--hw-profile requires --hwcalib")
		}
		hwcal, err := calib.LoadHardwareCalib(calibHWCalibPath)
		if err != nil {
			logrus.Fatalf("loading hardware calibration table: %v", err)
		}
		seedCfg, err = hwcal.Lookup(calibHWProfile)
		if err != nil {
			logrus.Fatalf("looking up hardware profile: %v", err)
		}
		cfg.GPUTemplate = seedCfg
	}

	initial := calib.FromAcceleratorConfig(seedCfg)
	cd := calib.BuildConfigData(initial, calibTargetTTFT, calibTargetITL)
	env := calib.Environment{
		ArrivalRatePerSec: calibArrivalRate,
		AvgPromptTokens:   calibAvgPrompt,
		AvgGenTokens:      calibAvgGen,
		MaxConcurrent:     cfg.GPUTemplate.MaxConcurrent,
		AvgQueuePrefillMs: calibObservedTTFT,
		AvgInterTokenMs:   calibObservedITL,
	}

	tuner, err := calib.NewTuner(cd, env)
	if err != nil {
		logrus.Fatalf("building tuner: %v", err)
	}
	if err := tuner.Run(); err != nil {
		logrus.Fatalf("running filter step: %v", err)
	}

	tuned := tuner.Coefficients()
	newCfg := tuned.ApplyTo(cfg.GPUTemplate)

	fmt.Printf("observed:  prefill_tps=%.2f decode_tps=%.2f\n", cfg.GPUTemplate.PrefillTPS, cfg.GPUTemplate.DecodeTPS)
	fmt.Printf("retuned:   prefill_tps=%.2f decode_tps=%.2f\n", newCfg.PrefillTPS, newCfg.DecodeTPS)
	fmt.Printf("coefficients: %+v\n", tuned)
}
