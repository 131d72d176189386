package model

import "github.com/linnyr-go/linnyr/expr"

// Multiplier transforms a link's source quantity before the relative
// rate is applied. The binary-trigger multipliers (everything but
// Level, Sum, Mean and PeakIncrease) are what forces the tableau builder to give
// the link's source node an on_off commitment variable.
type Multiplier int

const (
	MulLevel Multiplier = iota
	MulSum
	MulMean
	MulStartUp
	MulShutDown
	MulFirstCommit
	MulPositive
	MulZero
	MulSpinningReserve
	MulPeakIncrease
)

func (m Multiplier) String() string {
	switch m {
	case MulSum:
		return "sum"
	case MulMean:
		return "mean"
	case MulStartUp:
		return "start-up"
	case MulShutDown:
		return "shut-down"
	case MulFirstCommit:
		return "first-commit"
	case MulPositive:
		return "positive"
	case MulZero:
		return "zero"
	case MulSpinningReserve:
		return "spinning-reserve"
	case MulPeakIncrease:
		return "peak-increase"
	default:
		return "level"
	}
}

// ParseMultiplier maps the persisted multiplier code to its enum
// value, defaulting to MulLevel for an empty or unrecognized string.
func ParseMultiplier(s string) Multiplier {
	switch s {
	case "sum":
		return MulSum
	case "mean":
		return MulMean
	case "start-up":
		return MulStartUp
	case "shut-down":
		return MulShutDown
	case "first-commit":
		return MulFirstCommit
	case "positive":
		return MulPositive
	case "zero":
		return MulZero
	case "spinning-reserve":
		return MulSpinningReserve
	case "peak-increase":
		return MulPeakIncrease
	default:
		return MulLevel
	}
}

// IsBinaryTrigger reports whether this multiplier requires its link's
// source node to carry an on_off commitment variable: everything
// except the three plain aggregations (level, sum, mean) and
// peak-increase, which gets a running-peak variable instead.
func (m Multiplier) IsBinaryTrigger() bool {
	switch m {
	case MulPositive, MulZero, MulStartUp, MulShutDown, MulFirstCommit, MulSpinningReserve:
		return true
	default:
		return false
	}
}

// Link carries flow between a process and a product (in either
// direction), scaled by Rate and optionally deferred by Delay.
type Link struct {
	ID   ID
	Code string

	From, To Ref

	Rate  *expr.Program // flow per unit of the process's level
	Delay *expr.Program // timesteps by which the flow lags the process level

	Multiplier  Multiplier
	ShareOfCost float64
	IsFeedback  bool

	// ActualFlow holds the solved flow quantity at each timestep.
	ActualFlow []expr.Value
	// UCP holds the unit cost price the costprice package attributes to
	// this link's flow at each timestep.
	UCP []expr.Value
}

func NewLink(id ID, code string, from, to Ref) *Link {
	return &Link{ID: id, Code: code, From: from, To: to}
}

func (l *Link) ValueAt(stack *expr.Stack, ctx expr.EvalContext, attr Attr, t int) expr.Value {
	switch attr {
	case AttrDefault, AttrLevel:
		return vectorAt(l.ActualFlow, t)
	default:
		return expr.Undefined()
	}
}

// DelayAt returns the integral delay in effect at timestep t, rounding
// the evaluated Delay expression and clamping negative results to 0:
// a delay cannot be negative.
func (l *Link) DelayAt(stack *expr.Stack, ctx expr.EvalContext, t int) int {
	if l.Delay == nil {
		return 0
	}
	v := l.Delay.Result(stack, ctx, t, 0)
	if !v.IsReal() {
		return 0
	}
	if v.Number < 0 {
		return 0
	}
	return int(v.Number + 0.5)
}
