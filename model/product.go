package model

import "github.com/linnyr-go/linnyr/expr"

// Product is a stock-keeping node: a buffer whose level moves between
// inflow and outflow links.
type Product struct {
	ID   ID
	Code string
	Name string
	Unit string

	LowerBound *expr.Program
	UpperBound *expr.Program
	Price      *expr.Program

	InitialLevel float64

	// SourceSink marks a product with unlimited supply/demand and no
	// storage balance constraint.
	SourceSink bool

	// Stock holds the solved stock level at each timestep, and
	// CostPrice the propagated unit cost price.
	Stock     []expr.Value
	CostPrice []expr.Value

	// HighestCostPrice holds, per timestep, the highest cost price
	// among the product's cost-carrying incoming process links.
	HighestCostPrice []expr.Value

	Notes []ID
}

func NewProduct(id ID, code, name string) *Product {
	return &Product{ID: id, Code: code, Name: name}
}

func (p *Product) ValueAt(stack *expr.Stack, ctx expr.EvalContext, attr Attr, t int) expr.Value {
	switch attr {
	case AttrLB:
		return evalOrUndefined(p.LowerBound, stack, ctx, t)
	case AttrUB:
		return evalOrUndefined(p.UpperBound, stack, ctx, t)
	case AttrPrice:
		if len(p.CostPrice) > 0 {
			return vectorAt(p.CostPrice, t)
		}
		return evalOrUndefined(p.Price, stack, ctx, t)
	case AttrDefault, AttrStock:
		return vectorAt(p.Stock, t)
	default:
		return expr.Undefined()
	}
}
