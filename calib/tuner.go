package calib

import (
	"bytes"
	"fmt"

	kalman "github.com/llm-inferno/kalman-filter/pkg/core"
	mtconfig "github.com/llm-inferno/model-tuner/pkg/config"
	"gonum.org/v1/gonum/mat"
)

// Tuner wraps an ExtendedKalmanFilter configured for this engine's
// 4-state Coefficients vector. Grounded file-for-file on
// _examples/vishakha-ramani-inferno-autoscaler/pkg/tuner/tuner.go.
type Tuner struct {
	configurator *Configurator
	filter       *kalman.ExtendedKalmanFilter
	env          Environment
}

// NewTuner builds a Tuner from a mtconfig.ConfigData (see BuildConfigData)
// and the Environment a completed run observed.
func NewTuner(cd mtconfig.ConfigData, env Environment) (*Tuner, error) {
	c, err := NewConfigurator(cd)
	if err != nil {
		return nil, err
	}

	f, err := kalman.NewExtendedKalmanFilter(c.NumStates(), c.NumObservations(), c.X, c.P)
	if err != nil {
		return nil, err
	}
	if err := f.SetQ(c.Q); err != nil {
		return nil, err
	}
	if err := f.SetR(c.R); err != nil {
		return nil, err
	}
	if err := f.SetfF(c.fFunc); err != nil {
		return nil, err
	}
	if c.Xbounded {
		if err := f.SetStateLimiter(c.Xmin, c.Xmax); err != nil {
			return nil, err
		}
	}

	t := &Tuner{configurator: c, filter: f, env: env}
	if err := f.SethH(t.observationFunc()); err != nil {
		return nil, err
	}
	return t, nil
}

// Run executes one predict/update cycle against the configured environment.
func (t *Tuner) Run() error {
	if err := t.filter.Predict(t.filter.Q); err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if err := t.filter.Update(t.env.GetObservations(), t.configurator.R); err != nil {
		return fmt.Errorf("update: %w", err)
	}
	return nil
}

// Coefficients returns the filter's current state as a Coefficients value.
func (t *Tuner) Coefficients() Coefficients {
	x := t.filter.State()
	return CoefficientsFromVector(mat.Col(nil, 0, x))
}

func (t *Tuner) Innovation() *mat.VecDense { return t.filter.Innovation() }
func (t *Tuner) P() *mat.Dense             { return t.filter.P }
func (t *Tuner) S() *mat.Dense             { return t.filter.S }

func (t *Tuner) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "Tuner(coefficients=%+v env=%+v)", t.Coefficients(), t.env)
	return b.String()
}

// observationFunc is the filter's h(x): given the current coefficient
// estimate, predict [TTFT, ITL] by evaluating the affine prefill/decode
// model at the environment's MaxConcurrent occupancy and average prompt
// length (AvgGenTokens and ArrivalRatePerSec are not used) -- the same role
// pkg/tuner/tuner.go's makeObservationFunc plays, but evaluated directly
// against this engine's Coefficients instead of going through a
// queue-analysis Configuration/RequestSize round trip.
func (t *Tuner) observationFunc() func(*mat.VecDense) *mat.VecDense {
	return func(x *mat.VecDense) *mat.VecDense {
		c := CoefficientsFromVector(mat.Col(nil, 0, x))
		n := float64(t.env.MaxConcurrent)

		prefillMs := c.Prefill.Gamma + c.Prefill.Delta*t.env.AvgPromptTokens*n
		perTokenMs := c.Decode.Alpha + c.Decode.Beta*n
		ttft := prefillMs
		itl := perTokenMs

		return mat.NewVecDense(2, []float64{ttft, itl})
	}
}
