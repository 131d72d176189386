package model

import "github.com/linnyr-go/linnyr/expr"

// Actor represents one stakeholder that owns processes and accrues
// their cost/revenue.
type Actor struct {
	ID   ID
	Code string
	Name string

	// RoundUp, when set, rounds this actor's cash flow entries to whole
	// units in reports.
	RoundUp bool

	// Weight scales this actor's share of obscured cash flow in
	// aggregate reporting; an experiment dimension may override it per
	// combination. Nil means the default weight of 1.
	Weight *expr.Program
}
