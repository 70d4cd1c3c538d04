// Package calib is an offline, between-runs advisory tool: given a
// completed run's observed delays and a pair of SLO targets, it runs one
// Kalman-filter predict/update step to propose retuned service-time
// coefficients for the next run's accelerator config. It is never
// invoked by the engine itself -- only from the "calibrate" CLI
// subcommand -- so it does not participate in, and cannot violate, the
// simulation's single-threaded virtual-time model (spec.md §5).
//
// Grounded file-for-file on
// _examples/vishakha-ramani-inferno-autoscaler/pkg/tuner's
// Configurator/Environment/Tuner trio, adapted from that repo's
// WVA-specific allocation/replica shape to this engine's
// engine.AcceleratorConfig.
package calib

import "github.com/inference-sim/accel-sim/engine"

// PrefillParms and DecodeParms are the affine service-time
// representation the Kalman filter's state vector tunes: prefill time
// (ms) = Gamma + Delta*promptTokens*n; decode time (ms) per generated
// token = Alpha + Beta*n, where n is the accelerator's occupancy.
// Grounded on
// _examples/other_examples/atantawi-llm-queue-model__types.go's
// PrefillParms/DecodeParms.
type PrefillParms struct {
	Gamma float64
	Delta float64
}

type DecodeParms struct {
	Alpha float64
	Beta  float64
}

// Coefficients is the full 4-state vector the filter estimates, in the
// state-vector order [Alpha, Beta, Delta, Gamma] -- matching
// pkg/tuner/tuner.go's makeObservationFunc indexing
// (x.AtVec(0)=Alpha, 1=Beta, 2=Delta, 3=Gamma) exactly, so a reader
// who knows that file recognizes this ordering immediately.
type Coefficients struct {
	Prefill PrefillParms
	Decode  DecodeParms
}

// StateVector returns the 4-element [Alpha, Beta, Delta, Gamma] slice
// the filter's X0 / GetParms() operate on.
func (c Coefficients) StateVector() []float64 {
	return []float64{c.Decode.Alpha, c.Decode.Beta, c.Prefill.Delta, c.Prefill.Gamma}
}

// CoefficientsFromVector is the inverse of StateVector.
func CoefficientsFromVector(x []float64) Coefficients {
	return Coefficients{
		Decode:  DecodeParms{Alpha: x[0], Beta: x[1]},
		Prefill: PrefillParms{Gamma: x[3], Delta: x[2]},
	}
}

// FromAcceleratorConfig linearizes cfg's constant-throughput prefill/
// decode model into Coefficients around occupancy n=1: the engine's
// prefill duration has no batch-size term (Gamma=0, Delta=1000/PrefillTPS
// reproduces handleStartPrefill's `1000*promptTokens/PrefillTPS` at
// n=1), and its decode duration is exactly affine in occupancy below the
// sharing cap (Alpha=0, Beta=1000/(DecodeTPS*DecodeEfficiency)
// reproduces decodeDurationMs's per-token time at share=n).
func FromAcceleratorConfig(cfg engine.AcceleratorConfig) Coefficients {
	return Coefficients{
		Prefill: PrefillParms{Gamma: 0, Delta: 1000 / cfg.PrefillTPS},
		Decode:  DecodeParms{Alpha: 0, Beta: 1000 / (cfg.DecodeTPS * cfg.DecodeEfficiency)},
	}
}

// ApplyTo returns a copy of base with PrefillTPS/DecodeTPS replaced by
// the throughputs implied by c's tuned Delta/Beta slopes -- the inverse
// of FromAcceleratorConfig. Gamma and Alpha (the base, occupancy-
// independent terms the filter may also have drifted) have no analog in
// the engine's constant-throughput model and are not fed back; they are
// left in the Coefficients for reporting only.
func (c Coefficients) ApplyTo(base engine.AcceleratorConfig) engine.AcceleratorConfig {
	out := base
	if c.Prefill.Delta > 0 {
		out.PrefillTPS = 1000 / c.Prefill.Delta
	}
	if c.Decode.Beta > 0 {
		out.DecodeTPS = 1000 / (c.Decode.Beta * base.DecodeEfficiency)
	}
	return out
}
