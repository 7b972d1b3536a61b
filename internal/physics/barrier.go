package physics

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/san-kum/physfit/internal/fit"
)

const (
	// kappa is sqrt(2 m_e)/hbar in 1/(Å·sqrt(eV)).
	kappa = 0.512317
	// imageCoeff scales the image-force rounding of the barrier, eV·Å.
	imageCoeff = 0.00553
)

// Barrier models electron transmission through a thin insulating film with
// an image-force rounded rectangular barrier. The single parameter is the
// film thickness d in Å; the independent variable is the electron energy
// in eV.
type Barrier struct {
	Height       float64 // eV
	LayerSpacing float64 // Å per crystal layer
}

func NewBarrier() *Barrier {
	return &Barrier{Height: 3.0, LayerSpacing: 3.0}
}

// DefaultThickness is the starting guess for d in Å.
const DefaultThickness = 5.0

func (b *Barrier) Name() string   { return "barrier_transmission" }
func (b *Barrier) NumParams() int { return 1 }

// Edges returns the classical turning points d1, d2 and the mean barrier
// height for thickness d.
func (b *Barrier) Edges(d float64) (d1, d2, vbar float64) {
	mu := math.Ln2 / (8 * math.Pi * 4 * imageCoeff * d)
	d1 = 1.2 * mu * d / b.Height
	d2 = d - d1
	vbar = b.Height - (1.15*mu*d/(d2-d1))*math.Log((d2/d1)*((d-d1)/(d-d2)))
	return d1, d2, vbar
}

// Eval is the transmission coefficient at energy e for thickness p[0].
func (b *Barrier) Eval(p fit.Params, e float64) float64 {
	d1, d2, vbar := b.Edges(p[0])
	return math.Exp(-2 * (d2 - d1) * kappa * math.Sqrt(vbar-e))
}

// Layers converts a thickness to a number of crystal layers.
func (b *Barrier) Layers(d float64) float64 {
	return d / b.LayerSpacing
}

func (b *Barrier) GetParams() map[string]float64 {
	return map[string]float64{
		"height":        b.Height,
		"layer_spacing": b.LayerSpacing,
	}
}

func (b *Barrier) SetParam(name string, value float64) error {
	if !(value > 0) {
		return errors.Wrapf(ErrParameterBounds, "%s %g must be positive", name, value)
	}
	switch name {
	case "height":
		b.Height = value
	case "layer_spacing":
		b.LayerSpacing = value
	default:
		return errors.Newf("unknown parameter: %s", name)
	}
	return nil
}
