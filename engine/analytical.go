package engine

import (
	"github.com/llm-inferno/queue-analysis/pkg/queue"
)

// AnalyticalBaseline is a per-accelerator queueing-theoretic estimate,
// solved independently of the discrete-event replay, so a run's
// empirical per-accelerator behavior can be checked against a
// closed-form expectation (spec.md §1: "compare ... policies under
// controlled workloads" -- the evaluative purpose this system exists
// for). Grounded on
// _examples/other_examples/atantawi-llm-queue-model__queueanalyzer.go's
// NewQueueAnalyzer/BuildModel/Analyze flow, using
// github.com/llm-inferno/queue-analysis/pkg/queue directly rather than
// its analyzer-package wrapper (that wrapper depends on types from a
// sibling repo outside this module's dependency set).
type AnalyticalBaseline struct {
	GPU int

	// ArrivalRatePerSec is the observed rate fed into the model: this
	// accelerator's finished-request count divided by the run's
	// makespan.
	ArrivalRatePerSec float64

	Valid          bool
	Throughput     float32
	AvgRespTimeMs  float32
	AvgWaitTimeMs  float32
	AvgNumInServ   float32
	Utilization    float32
}

// AnalyticalBaselines solves a state-dependent M/M/1 model for every
// accelerator at its own observed arrival rate. Call after Run().
// avgPromptTokens/avgGenTokens are the trace-wide averages (this model
// has no per-accelerator token-size breakdown to draw on).
func (e *Engine) AnalyticalBaselines(avgPromptTokens, avgGenTokens float64) []AnalyticalBaseline {
	out := make([]AnalyticalBaseline, len(e.GPUs))
	for i, gpu := range e.GPUs {
		out[i] = e.analyticalBaselineFor(i, gpu, avgPromptTokens, avgGenTokens)
	}
	return out
}

func (e *Engine) analyticalBaselineFor(gpuIdx int, gpu *AcceleratorState, avgPromptTokens, avgGenTokens float64) AnalyticalBaseline {
	b := AnalyticalBaseline{GPU: gpuIdx}
	if e.Clock <= 0 || gpu.RequestsFinished == 0 {
		return b
	}
	b.ArrivalRatePerSec = 1000 * float64(gpu.RequestsFinished) / e.Clock

	servRateMs := stateDependentServiceRateMs(gpu.Cfg, avgPromptTokens, avgGenTokens)
	occupancyUpperBound := e.Bundle.MaxQueue + gpu.Cfg.MaxConcurrent
	model := queue.NewMM1ModelStateDependent(occupancyUpperBound, servRateMs)

	lambdaPerMs := float32(b.ArrivalRatePerSec / 1000)
	model.Solve(lambdaPerMs, 1)
	if !model.IsValid() {
		return b
	}

	b.Valid = true
	b.Throughput = model.GetThroughput() * 1000
	b.AvgRespTimeMs = model.GetAvgRespTime()
	b.AvgWaitTimeMs = model.GetAvgWaitTime()
	b.AvgNumInServ = model.GetAvgNumInServers()
	b.Utilization = min32(max32(b.AvgNumInServ/float32(gpu.Cfg.MaxConcurrent), 0), 1)
	return b
}

// stateDependentServiceRateMs computes, for each concurrency level n
// from 1 to MaxConcurrent, the completion rate (requests per ms) of n
// requests sharing this accelerator -- the same per-occupancy service
// rate array queue-analysis's state-dependent M/M/1 model expects,
// derived directly from this engine's own prefill/decode duration
// formulas (spec.md §4.5) rather than from an affine PrefillParms/
// DecodeParms representation, since the engine already has an exact
// per-occupancy duration model.
func stateDependentServiceRateMs(cfg AcceleratorConfig, avgPromptTokens, avgGenTokens float64) []float32 {
	rates := make([]float32, cfg.MaxConcurrent)
	for n := 1; n <= cfg.MaxConcurrent; n++ {
		prefillMs := 1000 * avgPromptTokens / cfg.PrefillTPS
		share := clampInt(n, 1, cfg.DecodeSharingCap)
		effectiveTPS := cfg.DecodeTPS * cfg.DecodeEfficiency / float64(share)
		decodeMs := 1000 * avgGenTokens / effectiveTPS
		totalMs := prefillMs + decodeMs
		if totalMs <= 0 {
			totalMs = 1e-6
		}
		rates[n-1] = float32(float64(n) / totalMs)
	}
	return rates
}

func min32(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func max32(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
