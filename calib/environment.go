package calib

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Environment is the observed operating point a completed simulation run
// handed back: the two SLO-relevant latencies the filter treats as its
// measurement vector. Grounded on
// _examples/vishakha-ramani-inferno-autoscaler/pkg/tuner/environment.go's
// Environment, trimmed to the fields this domain has (no replica count
// or per-minute rate convention). The caller fills every field; the
// calibrate command takes them from its flags and the config file.
type Environment struct {
	// ArrivalRatePerSec is this accelerator's observed request rate
	// (finished count / makespan, the same quantity
	// engine.AnalyticalBaseline reports).
	ArrivalRatePerSec float64
	AvgPromptTokens   float64
	AvgGenTokens      float64
	MaxConcurrent     int

	// AvgQueuePrefillMs is the observed average queueing-plus-prefill
	// delay (a TTFT proxy); AvgInterTokenMs is the observed average
	// per-token decode delay (an ITL proxy). Neither is in a run's
	// report.Summary; both are supplied by the caller.
	AvgQueuePrefillMs float64
	AvgInterTokenMs   float64
}

// Valid mirrors pkg/tuner/environment.go's Environment.Valid.
func (e Environment) Valid() bool {
	return e.ArrivalRatePerSec > 0 &&
		!math.IsInf(e.ArrivalRatePerSec, 0) && !math.IsNaN(e.ArrivalRatePerSec) &&
		e.AvgPromptTokens > 0 && e.AvgGenTokens > 0 && e.MaxConcurrent > 0 &&
		e.AvgQueuePrefillMs > 0 && e.AvgInterTokenMs > 0
}

// GetObservations returns the filter's measurement vector Z = [TTFT, ITL].
func (e Environment) GetObservations() *mat.VecDense {
	return mat.NewVecDense(2, []float64{e.AvgQueuePrefillMs, e.AvgInterTokenMs})
}
