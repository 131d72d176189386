package solver

import (
	"context"

	"github.com/linnyr-go/linnyr/tableau"
)

// Null always reports StatusError without attempting a solve, used as
// the scheduler's default until a real engine is wired in.
type Null struct{}

func (Null) Solve(ctx context.Context, p *tableau.Problem) (Result, error) {
	return Result{Status: StatusError, Message: "no solver configured"}, nil
}

// GreedyBounds is a test double for problems with no coupling beyond
// bound constraints: it sets every variable to its upper bound when
// its objective coefficient is non-positive and to its lower bound
// otherwise, then reports the resulting objective value. It does not
// check feasibility against Rows or SOS2Sets, so it is only valid for
// trivial bound-only scenarios: a single process with a fixed lower
// and upper bound and no connected products.
type GreedyBounds struct{}

func (GreedyBounds) Solve(ctx context.Context, p *tableau.Problem) (Result, error) {
	values := make([]float64, len(p.Variables))
	objective := 0.0
	for i, v := range p.Variables {
		if v.ObjCoeff <= 0 {
			values[i] = v.UB
		} else {
			values[i] = v.LB
		}
		objective += v.ObjCoeff * values[i]
	}
	return Result{Status: StatusOptimal, Values: values, Objective: objective}, nil
}
