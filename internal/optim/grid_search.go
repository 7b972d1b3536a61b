package optim

import (
	"context"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/physfit/internal/fit"
)

// GridSearch evaluates the objective at every point of the cartesian
// product of Ranges, one range per parameter, and keeps the lowest.
type GridSearch struct {
	Ranges [][]float64
}

func NewGridSearch(ranges [][]float64) *GridSearch {
	return &GridSearch{Ranges: ranges}
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}

func (g *GridSearch) Name() string { return "grid" }

func (g *GridSearch) Minimize(ctx context.Context, obj fit.Objective, init fit.Params) (fit.Outcome, error) {
	if len(g.Ranges) != len(init) {
		return fit.Outcome{}, errors.Mark(
			errors.Newf("optim: %d ranges for %d parameters", len(g.Ranges), len(init)),
			fit.ErrInvalidInput)
	}
	for i, r := range g.Ranges {
		if len(r) == 0 {
			return fit.Outcome{}, errors.Mark(errors.Newf("optim: empty range for parameter %d", i), fit.ErrInvalidInput)
		}
	}

	s := &search{ctx: ctx, obj: obj, best: math.Inf(1)}
	if err := g.searchRecursive(s, 0, make(fit.Params, len(init))); err != nil {
		return fit.Outcome{}, err
	}

	out := fit.Outcome{
		Value:       s.best,
		Iterations:  s.evals,
		Evaluations: s.evals,
	}
	if s.bestParams == nil {
		out.Params = init.Clone()
		out.Status = "no finite point"
		return out, &fit.FitError{
			Method:     g.Name(),
			Iterations: s.evals,
			Best:       out.Params,
			Wrapped:    errors.Wrap(fit.ErrNonConvergence, "every grid point is infinite"),
		}
	}
	out.Params = s.bestParams
	out.Status = "grid exhausted"
	out.Converged = true
	return out, nil
}

type search struct {
	ctx        context.Context
	obj        fit.Objective
	evals      int
	best       float64
	bestParams fit.Params
}

func (g *GridSearch) searchRecursive(s *search, depth int, current fit.Params) error {
	if depth == len(g.Ranges) {
		if err := s.ctx.Err(); err != nil {
			return err
		}
		s.evals++
		val, err := s.obj(current.Clone())
		if err != nil {
			return err
		}
		if val < s.best {
			s.best = val
			s.bestParams = current.Clone()
		}
		return nil
	}

	for _, val := range g.Ranges[depth] {
		current[depth] = val
		if err := g.searchRecursive(s, depth+1, current); err != nil {
			return err
		}
	}
	return nil
}

// Seeded starts Refine from the best point Seed finds.
type Seeded struct {
	Seed   fit.Minimizer
	Refine fit.Minimizer
}

func (s Seeded) Name() string { return s.Seed.Name() + "+" + s.Refine.Name() }

func (s Seeded) Minimize(ctx context.Context, obj fit.Objective, init fit.Params) (fit.Outcome, error) {
	seed, err := s.Seed.Minimize(ctx, obj, init)
	if err != nil {
		return fit.Outcome{}, errors.Wrapf(err, "seed %s", s.Seed.Name())
	}
	out, err := s.Refine.Minimize(ctx, obj, seed.Params)
	out.Iterations += seed.Iterations
	out.Evaluations += seed.Evaluations
	return out, err
}
