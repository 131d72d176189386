// Package solver defines the boundary to an external LP/MILP solver.
// This package only specifies the interface the scheduler drives and
// supplies lightweight test doubles; an actual simplex/branch-and-bound
// engine lives outside this module.
package solver

import (
	"context"

	"github.com/linnyr-go/linnyr/tableau"
)

// Status reports the outcome of a solve attempt.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimeout
	StatusError
)

// Result is the outcome handed back to the scheduler: the variable
// values by index (meaningful only when Status is StatusOptimal) and
// the objective value reached.
type Result struct {
	Status    Status
	Values    []float64
	Objective float64
	Message   string
}

// Solver sends a Problem to an external MILP engine and returns its
// solution. The scheduler calls this while in its AwaitingSolver
// state.
type Solver interface {
	Solve(ctx context.Context, p *tableau.Problem) (Result, error)
}
