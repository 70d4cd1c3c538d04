package calib

import (
	"fmt"
	"math"

	mtconfig "github.com/llm-inferno/model-tuner/pkg/config"
	"gonum.org/v1/gonum/mat"
)

// DefaultFilterData mirrors the filter tuning constants
// internal/tuner/utils.go's getDefaultFilterData hard-codes for the WVA
// tuner; this engine has no equivalent constants package, so they are
// inlined here.
func DefaultFilterData() mtconfig.FilterData {
	return mtconfig.FilterData{
		GammaFactor: 1.0,
		ErrorLevel:  0.3,
		TPercentile: 1.96,
	}
}

// DefaultPercentChange is the expected fractional drift per calibration
// step for each of the four tuned coefficients, in StateVector order
// [Alpha, Beta, Delta, Gamma].
func DefaultPercentChange() []float64 {
	return []float64{0.2, 0.2, 0.2, 0.2}
}

// BuildConfigData assembles a mtconfig.ConfigData from a starting
// Coefficients estimate and the two SLO targets (queueing+prefill and
// inter-token latency, in ms), grounded on
// internal/tuner/utils.go's BuildTunerConfig.
func BuildConfigData(initial Coefficients, sloQueuePrefillMs, sloInterTokenMs float64) mtconfig.ConfigData {
	initState := initial.StateVector()
	return mtconfig.ConfigData{
		FilterData: DefaultFilterData(),
		ModelData: mtconfig.ModelData{
			InitState:            initState,
			PercentChange:        DefaultPercentChange(),
			BoundedState:         true,
			MinState:             scale(initState, 0.1),
			MaxState:             scale(initState, 10),
			ExpectedObservations: []float64{sloQueuePrefillMs, sloInterTokenMs},
		},
	}
}

func scale(v []float64, factor float64) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = x * factor
	}
	return out
}

// Configurator builds the matrices an ExtendedKalmanFilter needs (X, P,
// Q, R, the identity state-transition function) from a mtconfig.ConfigData.
// Grounded file-for-file on
// _examples/vishakha-ramani-inferno-autoscaler/pkg/tuner/configurator.go's
// Configurator, with the config type itself now coming from
// github.com/llm-inferno/model-tuner/pkg/config instead of a locally
// redeclared struct.
type Configurator struct {
	nX, nZ int

	X *mat.VecDense
	P *mat.Dense
	Q *mat.Dense
	R *mat.Dense

	fFunc func(*mat.VecDense) *mat.VecDense

	percentChange []float64
	Xbounded      bool
	Xmin, Xmax    []float64
}

func NewConfigurator(cd mtconfig.ConfigData) (*Configurator, error) {
	if err := checkConfigData(cd); err != nil {
		return nil, err
	}

	md := cd.ModelData
	n := len(md.InitState)
	X := mat.NewVecDense(n, md.InitState)

	fd := cd.FilterData
	m := len(md.ExpectedObservations)
	obsCov := make([]float64, m)
	factor := ((fd.ErrorLevel / fd.TPercentile) * (fd.ErrorLevel / fd.TPercentile)) / fd.GammaFactor
	for j := range m {
		obsCov[j] = factor * md.ExpectedObservations[j] * md.ExpectedObservations[j]
	}
	R := mat.DenseCopyOf(mat.NewDiagDense(m, obsCov))

	c := &Configurator{
		nX: n, nZ: m,
		X: X, R: R,
		fFunc:         identityTransition,
		percentChange: md.PercentChange,
		Xbounded:      md.BoundedState,
		Xmin:          md.MinState,
		Xmax:          md.MaxState,
	}

	var err error
	if c.P, err = c.stateCov(X); err != nil {
		return nil, err
	}
	if c.Q, err = c.stateCov(X); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Configurator) stateCov(x *mat.VecDense) (*mat.Dense, error) {
	if x.Len() != c.nX {
		return nil, fmt.Errorf("state vector has %d entries, configurator wants %d", x.Len(), c.nX)
	}
	changeCov := make([]float64, c.nX)
	for i := 0; i < c.nX; i++ {
		changeCov[i] = math.Pow(c.percentChange[i]*x.AtVec(i), 2)
	}
	return mat.DenseCopyOf(mat.NewDiagDense(c.nX, changeCov)), nil
}

func (c *Configurator) NumStates() int       { return c.nX }
func (c *Configurator) NumObservations() int { return c.nZ }

func identityTransition(x *mat.VecDense) *mat.VecDense { return x }

func checkConfigData(cd mtconfig.ConfigData) error {
	fd := cd.FilterData
	if fd.GammaFactor <= 0 || fd.ErrorLevel <= 0 || fd.TPercentile <= 0 {
		return fmt.Errorf("invalid filter data: %+v", fd)
	}
	md := cd.ModelData
	n := len(md.InitState)
	if n == 0 {
		return fmt.Errorf("empty initial state")
	}
	if len(md.PercentChange) != n {
		return fmt.Errorf("percent change has %d entries, want %d", len(md.PercentChange), n)
	}
	if md.BoundedState && (len(md.MinState) != n || len(md.MaxState) != n) {
		return fmt.Errorf("bounded state requires min/max of length %d", n)
	}
	if len(md.ExpectedObservations) == 0 {
		return fmt.Errorf("empty expected observations")
	}
	return nil
}
