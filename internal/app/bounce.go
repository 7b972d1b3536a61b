package app

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/san-kum/physfit/internal/config"
	"github.com/san-kum/physfit/internal/fit"
	"github.com/san-kum/physfit/internal/physics"
	"github.com/san-kum/physfit/internal/prompt"
)

const (
	questionH0   = "In metres, what is the initial height of the ball?"
	questionHMin = "In metres, what is the minimum height the ball should reach?"
	questionG    = "In metres per second per second, what is your value of g?"
	questionEta  = "What is the energy lost per bounce, η?"
)

// RunBounce computes the bouncing ball kinematics. Nil inputs are asked
// for; given inputs are checked against the same bounds.
func RunBounce(ctx context.Context, env Env, in config.BounceConfig) (*physics.Bounce, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	env = env.withDefaults()

	b := &physics.Bounce{}
	var err error
	if b.H0, err = value(env, in.H0, questionH0, prompt.Range{Lower: 0.2, Upper: 10000}); err != nil {
		return nil, err
	}
	if b.HMin, err = value(env, in.HMin, questionHMin, prompt.Range{Lower: 0.01, Upper: b.H0}); err != nil {
		return nil, err
	}
	if b.G, err = value(env, in.G, questionG, prompt.Range{Lower: 0.5, Upper: 50}); err != nil {
		return nil, err
	}
	if b.Eta, err = value(env, in.Eta, questionEta, prompt.Range{Lower: 0, Upper: 1, Open: true}); err != nil {
		return nil, err
	}
	if err := b.Validate(); err != nil {
		return nil, errors.Mark(err, fit.ErrInvalidInput)
	}

	env.Log.Debug("bounce",
		zap.Float64("bounces", b.Bounces()),
		zap.Float64("time", b.Time()))
	_, err = fmt.Fprintf(env.Out, "The ball dropped from %.2f metres, bounced %d times and in a time of %.2f s\n",
		b.H0, b.CompletedBounces(), b.Time())
	return b, err
}

func value(env Env, given *float64, question string, r prompt.Range) (float64, error) {
	if given == nil {
		return env.Asker.Float(question, r)
	}
	if err := r.Check(*given); err != nil {
		return 0, errors.Mark(errors.Wrapf(err, "%g", *given), fit.ErrInvalidInput)
	}
	return *given, nil
}
