package physics

import (
	"math"

	"github.com/cockroachdb/errors"
)

var ErrParameterBounds = errors.New("physics: parameter out of valid bounds")

// Bounce describes a ball dropped from H0 that keeps a fraction Eta of its
// height on every bounce.
type Bounce struct {
	H0   float64 // initial height, m
	HMin float64 // minimum height a bounce must reach, m
	G    float64 // gravitational acceleration, m/s^2
	Eta  float64 // fraction of height kept per bounce
}

func NewBounce() *Bounce {
	return &Bounce{H0: 10, HMin: 0.5, G: 9.81, Eta: 0.7}
}

func (b *Bounce) Validate() error {
	switch {
	case !(b.H0 > 0):
		return errors.Wrapf(ErrParameterBounds, "initial height %g must be positive", b.H0)
	case !(b.HMin > 0) || b.HMin > b.H0:
		return errors.Wrapf(ErrParameterBounds, "minimum height %g must be in (0, %g]", b.HMin, b.H0)
	case !(b.G > 0):
		return errors.Wrapf(ErrParameterBounds, "g %g must be positive", b.G)
	case !(b.Eta > 0) || !(b.Eta < 1):
		return errors.Wrapf(ErrParameterBounds, "eta %g must be in (0, 1)", b.Eta)
	}
	return nil
}

// Bounces is the (fractional) number of bounces that still reach HMin.
func (b *Bounce) Bounces() float64 {
	return math.Log(b.HMin/b.H0) / math.Log(b.Eta)
}

// CompletedBounces is Bounces rounded down.
func (b *Bounce) CompletedBounces() int {
	return int(math.Floor(b.Bounces()))
}

// Time is the total time from release until the last completed bounce
// lands: the initial fall plus a rise and fall per bounce.
func (b *Bounce) Time() float64 {
	n := math.Floor(b.Bounces())
	root := math.Sqrt(b.Eta)
	fall := math.Sqrt(2 * b.H0 / b.G)
	return fall * (1 + 2*root*(1-math.Pow(b.Eta, n/2))/(1-root))
}

func (b *Bounce) GetParams() map[string]float64 {
	return map[string]float64{
		"h0":   b.H0,
		"hmin": b.HMin,
		"g":    b.G,
		"eta":  b.Eta,
	}
}

func (b *Bounce) SetParam(name string, value float64) error {
	switch name {
	case "h0":
		b.H0 = value
	case "hmin":
		b.HMin = value
	case "g":
		b.G = value
	case "eta":
		b.Eta = value
	default:
		return errors.Newf("unknown parameter: %s", name)
	}
	return nil
}
