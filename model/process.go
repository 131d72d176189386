package model

import "github.com/linnyr-go/linnyr/expr"

// Process is a production activity: a rate-constrained node whose
// level is solved by the external LP/MILP per block.
type Process struct {
	ID    ID
	Code  string
	Name  string
	Actor ID // owning Actor, 0 = NoActorName

	LowerBound *expr.Program
	UpperBound *expr.Program

	// Integer marks a process whose commitment (on/off) is modeled with
	// a binary variable rather than treated as continuously divisible.
	Integer bool

	FixedCost    *expr.Program // incurred whenever the process is on
	VariableCost *expr.Program // incurred per unit of level

	// Level holds the solved level for each timestep of the most
	// recently ingested block, indexed by absolute timestep.
	Level []expr.Value
	// On holds the solved commitment state (1 = on, 0 = off) for each
	// timestep, meaningful only when Integer is true.
	On []expr.Value
	// CostPrice holds the cost price propagated by the costprice
	// package after each block: the unit cost the process's inputs and
	// cost-carrying constraints attribute to its own output.
	CostPrice []expr.Value

	Notes []ID
}

func NewProcess(id ID, code, name string) *Process {
	return &Process{ID: id, Code: code, Name: name}
}

// ValueAt returns the requested attribute at timestep t, evaluating a
// formula-backed attribute lazily or indexing a solved vector.
func (p *Process) ValueAt(stack *expr.Stack, ctx expr.EvalContext, attr Attr, t int) expr.Value {
	switch attr {
	case AttrLB:
		return evalOrUndefined(p.LowerBound, stack, ctx, t)
	case AttrUB:
		return evalOrUndefined(p.UpperBound, stack, ctx, t)
	case AttrCost:
		return evalOrUndefined(p.VariableCost, stack, ctx, t)
	case AttrPrice:
		return vectorAt(p.CostPrice, t)
	case AttrOn:
		return vectorAt(p.On, t)
	case AttrDefault, AttrLevel:
		return vectorAt(p.Level, t)
	default:
		return expr.Undefined()
	}
}

func evalOrUndefined(p *expr.Program, stack *expr.Stack, ctx expr.EvalContext, t int) expr.Value {
	if p == nil {
		return expr.Undefined()
	}
	return p.Result(stack, ctx, t, 0)
}

func vectorAt(vec []expr.Value, t int) expr.Value {
	if t < 0 || t >= len(vec) {
		return expr.NotComputed()
	}
	return vec[t]
}
