package physics

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/san-kum/physfit/internal/fit"
)

const (
	Avogadro = 6.022e23

	SecondsPerHour   = 3600.0
	SecondsPerMinute = 60.0
	BqPerTBq         = 1e12
)

// DecayChain models the activity of the daughter in a two-step chain
// parent -> daughter -> stable, starting from N0 parent nuclei and no
// daughter. Parameters are {lambdaDaughter, lambdaParent} in 1/s.
//
// The default chain is 79Sr -> 79Rb starting from one micromole of 79Sr.
type DecayChain struct {
	N0 float64
}

func NewDecayChain() *DecayChain {
	return &DecayChain{N0: 1e-6 * Avogadro}
}

// DefaultDecayConstants are the starting guesses for 79Rb and 79Sr.
func DefaultDecayConstants() fit.Params {
	return fit.Params{0.0005, 0.005}
}

func (d *DecayChain) Name() string   { return "decay_chain" }
func (d *DecayChain) NumParams() int { return 2 }

// Daughter is the number of daughter nuclei at time t.
func (d *DecayChain) Daughter(p fit.Params, t float64) float64 {
	ld, lp := p[0], p[1]
	return d.N0 * lp * (math.Exp(-lp*t) - math.Exp(-ld*t)) / (ld - lp)
}

// Eval is the daughter activity in Bq at time t seconds.
func (d *DecayChain) Eval(p fit.Params, t float64) float64 {
	return p[0] * d.Daughter(p, t)
}

func (d *DecayChain) Validate(p fit.Params) error {
	if len(p) != 2 {
		return errors.Wrapf(ErrParameterBounds, "decay chain takes 2 constants, got %d", len(p))
	}
	if !(p[0] > 0) || !(p[1] > 0) {
		return errors.Wrapf(ErrParameterBounds, "decay constants %v must be positive", p)
	}
	if p[0] == p[1] {
		return errors.Wrapf(ErrParameterBounds, "decay constants must differ, both %g", p[0])
	}
	return nil
}

func (d *DecayChain) GetParams() map[string]float64 {
	return map[string]float64{"n0": d.N0}
}

func (d *DecayChain) SetParam(name string, value float64) error {
	switch name {
	case "n0":
		if !(value > 0) {
			return errors.Wrapf(ErrParameterBounds, "n0 %g must be positive", value)
		}
		d.N0 = value
	default:
		return errors.Newf("unknown parameter: %s", name)
	}
	return nil
}

// HalfLife returns ln2/lambda, in the reciprocal unit of lambda.
func HalfLife(lambda float64) float64 {
	return math.Ln2 / lambda
}
