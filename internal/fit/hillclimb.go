package fit

import (
	"context"

	"github.com/cockroachdb/errors"
)

// ClimbState is the state of a hill-climb search.
type ClimbState int

const (
	Searching ClimbState = iota
	Converged
	// Stuck means neither neighbour improves on the current point. This is a
	// local dead end, not necessarily a minimum.
	Stuck
	// Exhausted means the iteration cap was reached while still searching.
	Exhausted
)

func (s ClimbState) String() string {
	switch s {
	case Searching:
		return "searching"
	case Converged:
		return "converged"
	case Stuck:
		return "stuck"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

const DefaultClimbMaxIter = 1_000_000

// HillClimb is a fixed-step search over a single parameter. Each iteration
// compares the objective at d, d+Step and d-Step and moves to the first
// neighbour that improves, upward checked first. The search converges once
// an accepted move improves the objective by less than Tolerance.
type HillClimb struct {
	Step      float64
	Tolerance float64
	MaxIter   int
}

func (h HillClimb) Name() string { return "hill-climb" }

func (h HillClimb) Minimize(ctx context.Context, obj Objective, init Params) (Outcome, error) {
	if len(init) != 1 {
		return Outcome{}, invalidf("fit: hill-climb fits exactly one parameter, got %d", len(init))
	}
	if !(h.Step > 0) {
		return Outcome{}, invalidf("fit: hill-climb step must be positive, got %g", h.Step)
	}
	maxIter := h.MaxIter
	if maxIter <= 0 {
		maxIter = DefaultClimbMaxIter
	}

	evals := 0
	at := func(d float64) (float64, error) {
		evals++
		v, err := obj(Params{d})
		if err != nil {
			return 0, err
		}
		return finite(v), nil
	}

	d := init[0]
	cur, err := at(d)
	if err != nil {
		return Outcome{}, err
	}

	state := Searching
	iter := 0
	for state == Searching {
		if err := ctx.Err(); err != nil {
			return Outcome{}, err
		}
		if iter >= maxIter {
			state = Exhausted
			break
		}
		iter++

		up, err := at(d + h.Step)
		if err != nil {
			return Outcome{}, err
		}
		down, err := at(d - h.Step)
		if err != nil {
			return Outcome{}, err
		}

		var improvement float64
		switch {
		case up < cur:
			improvement = cur - up
			d += h.Step
			cur = up
		case down < cur:
			improvement = cur - down
			d -= h.Step
			cur = down
		default:
			state = Stuck
			continue
		}
		if improvement < h.Tolerance {
			state = Converged
		}
	}

	out := Outcome{
		Params:      Params{d},
		Value:       cur,
		Iterations:  iter,
		Evaluations: evals,
		Status:      state.String(),
		Converged:   state == Converged,
	}
	if out.Converged {
		return out, nil
	}
	return out, &FitError{
		Method:     h.Name(),
		Iterations: iter,
		Best:       out.Params.Clone(),
		Wrapped:    errors.Wrapf(ErrNonConvergence, "search %s", state),
	}
}
