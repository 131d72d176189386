package model

import "github.com/linnyr-go/linnyr/expr"

// Point is one breakpoint of a constraint's piecewise-linear bound
// line, encoded in the tableau with an SOS2 set.
type Point struct {
	X, Y float64
}

// BoundType selects which side of a constraint's bound line the
// tableau row enforces: the Y entity's level equals, never exceeds,
// or never falls below the interpolated line.
type BoundType int

const (
	BoundEQ BoundType = iota
	BoundLE
	BoundGE
)

func (b BoundType) String() string {
	switch b {
	case BoundLE:
		return "<="
	case BoundGE:
		return ">="
	default:
		return "="
	}
}

// SocDirection selects which endpoint of a transfer constraint the
// share-of-cost rate applies to: the cost of the X entity passed on
// to the Y entity, or the reverse.
type SocDirection int

const (
	SocForward SocDirection = iota
	SocReverse
)

func (d SocDirection) String() string {
	if d == SocReverse {
		return "reverse"
	}
	return "forward"
}

// Constraint ties two entities' levels together through a piecewise
// linear "bound line": the Y entity's level is bounded as a function
// of the X entity's level, interpolated across Points.
type Constraint struct {
	ID   ID
	Code string

	From, To Ref // X entity, Y entity

	Points    []Point
	BoundType BoundType

	// ShareOfCost, when nonzero, turns this constraint into a cost
	// transfer: the fraction of the source entity's cost price passed
	// to the target entity each timestep, applied in the direction
	// SocDirection names.
	ShareOfCost  float64
	SocDirection SocDirection

	// SoftLB/SoftUB add slack above/below the bound line at a per-unit
	// penalty cost instead of making the bound hard.
	SoftLB, SoftUB bool
	LBPenalty      *expr.Program
	UBPenalty      *expr.Program

	// Violation holds the solved slack (0 when the bound line is met
	// exactly) at each timestep.
	Violation []expr.Value

	// TransferCP holds the cost-price contribution this constraint
	// carries from one endpoint to the other at each timestep,
	// meaningful only when ShareOfCost is nonzero.
	TransferCP []expr.Value
}

func NewConstraint(id ID, code string, from, to Ref) *Constraint {
	return &Constraint{ID: id, Code: code, From: from, To: to}
}

// BoundAt returns the piecewise-linear interpolation of Points at x,
// clamping to the first/last segment outside the defined range.
func (c *Constraint) BoundAt(x float64) float64 {
	if len(c.Points) == 0 {
		return 0
	}
	if x <= c.Points[0].X {
		return c.Points[0].Y
	}
	last := len(c.Points) - 1
	if x >= c.Points[last].X {
		return c.Points[last].Y
	}
	for i := 0; i < last; i++ {
		a, b := c.Points[i], c.Points[i+1]
		if x >= a.X && x <= b.X {
			if b.X == a.X {
				return a.Y
			}
			frac := (x - a.X) / (b.X - a.X)
			return a.Y + frac*(b.Y-a.Y)
		}
	}
	return c.Points[last].Y
}

func (c *Constraint) ValueAt(stack *expr.Stack, ctx expr.EvalContext, attr Attr, t int) expr.Value {
	switch attr {
	case AttrDefault:
		return vectorAt(c.Violation, t)
	default:
		return expr.Undefined()
	}
}
