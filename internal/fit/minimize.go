package fit

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/optimize"
)

// Objective is the scalar function a Minimizer lowers.
type Objective func(p Params) (float64, error)

// Outcome is the best point a Minimizer reached.
type Outcome struct {
	Params      Params
	Value       float64
	Iterations  int
	Evaluations int
	Status      string
	Converged   bool
}

// Minimizer searches parameter space for the lowest objective value.
// Implementations return the best point together with ErrNonConvergence
// when they stop before meeting their tolerance.
type Minimizer interface {
	Name() string
	Minimize(ctx context.Context, obj Objective, init Params) (Outcome, error)
}

const (
	DefaultSimplexTolerance = 1e-4
	DefaultSimplexMaxIter   = 2000
	DefaultSimplexStall     = 25
	simplexRelativeStep     = 0.05
	simplexZeroStep         = 0.00025
)

// Simplex is a derivative-free Nelder-Mead search.
type Simplex struct {
	// Tolerance is the absolute objective improvement below which the search
	// counts as stalled. Stall consecutive stalled iterations converge.
	Tolerance float64
	Stall     int
	MaxIter   int
	MaxEvals  int
}

func (s Simplex) Name() string { return "simplex" }

func (s Simplex) Minimize(ctx context.Context, obj Objective, init Params) (Outcome, error) {
	if len(init) == 0 {
		return Outcome{}, invalidf("fit: simplex needs at least one parameter")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	tol := s.Tolerance
	if tol <= 0 {
		tol = DefaultSimplexTolerance
	}
	stall := s.Stall
	if stall <= 0 {
		stall = DefaultSimplexStall
	}
	maxIter := s.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultSimplexMaxIter
	}

	var objErr error
	eval := func(x []float64) float64 {
		if objErr != nil {
			return math.Inf(1)
		}
		if err := ctx.Err(); err != nil {
			objErr = err
			return math.Inf(1)
		}
		v, err := obj(Params(x).Clone())
		if err != nil {
			objErr = err
			return math.Inf(1)
		}
		return finite(v)
	}

	vertices := initialSimplex(init)
	values := make([]float64, len(vertices))
	for i, v := range vertices {
		values[i] = eval(v)
	}
	if objErr != nil {
		return Outcome{}, objErr
	}

	problem := optimize.Problem{Func: eval}
	settings := &optimize.Settings{
		MajorIterations: maxIter,
		FuncEvaluations: s.MaxEvals,
		Converger: &optimize.FunctionConverge{
			Absolute:   tol,
			Iterations: stall,
		},
	}
	method := &optimize.NelderMead{
		InitialVertices: vertices,
		InitialValues:   values,
	}

	res, err := optimize.Minimize(problem, init.Clone(), settings, method)
	if objErr != nil {
		return Outcome{}, objErr
	}
	if res == nil {
		return Outcome{}, errors.Wrap(err, "fit: simplex")
	}

	out := Outcome{
		Params:      Params(res.X).Clone(),
		Value:       res.F,
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations + len(vertices),
		Status:      res.Status.String(),
	}
	switch res.Status {
	case optimize.Success, optimize.FunctionConvergence, optimize.FunctionThreshold, optimize.MethodConverge:
		out.Converged = true
		return out, nil
	}
	return out, &FitError{
		Method:     s.Name(),
		Iterations: out.Iterations,
		Best:       out.Params,
		Wrapped:    errors.Wrapf(ErrNonConvergence, "status %s", res.Status),
	}
}

// initialSimplex perturbs each coordinate by 5%, or by a small absolute
// step when the coordinate is zero, so parameters of any magnitude get a
// proportionate starting simplex.
func initialSimplex(x0 Params) [][]float64 {
	n := len(x0)
	vertices := make([][]float64, n+1)
	vertices[0] = x0.Clone()
	for i := 0; i < n; i++ {
		v := x0.Clone()
		if v[i] != 0 {
			v[i] *= 1 + simplexRelativeStep
		} else {
			v[i] = simplexZeroStep
		}
		vertices[i+1] = v
	}
	return vertices
}

func finite(v float64) float64 {
	if math.IsNaN(v) {
		return math.Inf(1)
	}
	return v
}
