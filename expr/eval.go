package expr

import (
	"math"
	"sort"
)

// Stack is the shared cycle-detection and call-history structure
// threaded through one top-level evaluation request. A single Stack
// must be reused across every Program.Result call that happens while
// resolving one outer request, including calls the host makes back
// into other Programs from EvalContext.ValueAt, so that a cycle that
// spans several expressions is detected.
type Stack struct {
	active map[frameKey]bool
	frames []CallFrame
}

type frameKey struct {
	prog     *Program
	t        int
	wildcard int
}

// NewStack creates an empty evaluation stack.
func NewStack() *Stack {
	return &Stack{active: map[frameKey]bool{}}
}

// Frames returns a snapshot of the active call stack, most recent
// last, for post-mortem cycle reporting.
func (s *Stack) Frames() []CallFrame {
	out := make([]CallFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

// Result evaluates the program at timestep t under the given wildcard
// substitution (0 when the expression is not inside a wildcard
// context), reusing the per-(t,wildcard) memoization cache and
// detecting self-recursive cycles via stack.
func (p *Program) Result(stack *Stack, ctx EvalContext, t, wildcard int) Value {
	if p.Root == nil {
		return Undefined()
	}

	key := cacheKey{t: t, wildcard: wildcard}
	if p.Static {
		key = cacheKey{t: 0, wildcard: wildcard}
	}

	p.mu.Lock()
	if v, ok := p.cache[key]; ok {
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	fk := frameKey{prog: p, t: t, wildcard: wildcard}
	if stack.active[fk] {
		return Computing()
	}
	stack.active[fk] = true
	stack.frames = append(stack.frames, CallFrame{Source: p.Source, Program: p})
	defer func() {
		delete(stack.active, fk)
		stack.frames = stack.frames[:len(stack.frames)-1]
	}()

	val := evalNode(p.Root, p, stack, ctx, t, wildcard)

	if val.Kind != KindComputing {
		p.mu.Lock()
		p.cache[key] = val
		p.mu.Unlock()
	}
	return val
}

// ResetCache clears memoized results, called at the start of each
// block and whenever the owning expression is recompiled.
func (p *Program) ResetCache() {
	p.mu.Lock()
	p.cache = map[cacheKey]Value{}
	p.mu.Unlock()
	for _, rv := range p.vars {
		rv.mu.Lock()
		rv.byWC = map[int]Variable{}
		rv.mu.Unlock()
	}
}

func evalNode(n Node, p *Program, stack *Stack, ctx EvalContext, t, wildcard int) Value {
	switch v := n.(type) {
	case *NumberLit:
		return Num(v.Value)
	case *StringLit:
		return Undefined() // a bare string literal has no numeric value outside comparisons
	case *VarRef:
		return evalVarRef(v, p, stack, ctx, t, wildcard)
	case *BinOp:
		return evalBinOp(v, p, stack, ctx, t, wildcard)
	case *UnaryOp:
		return evalUnaryOp(v, p, stack, ctx, t, wildcard)
	case *StatCall:
		return evalStatCall(v, p, stack, ctx, t, wildcard)
	default:
		return Undefined()
	}
}

func evalVarRef(v *VarRef, p *Program, stack *Stack, ctx EvalContext, t, wildcard int) Value {
	rv := p.resolvedFor(v)
	if rv == nil {
		return Undefined()
	}

	var (
		variable Variable
		ok       bool
	)

	switch {
	case v.HasWildcard():
		rv.mu.Lock()
		cached, found := rv.byWC[wildcard]
		rv.mu.Unlock()
		if found {
			variable, ok = cached, true
		} else {
			entity := substituteWildcard(v.Entity, wildcard)
			resolved, err := ctx.Resolve(entity, v.Attribute)
			if err == nil {
				rv.mu.Lock()
				rv.byWC[wildcard] = resolved
				rv.mu.Unlock()
				variable, ok = resolved, true
			}
		}
	case v.IsMethod:
		entity := v.Entity
		if entity == "" {
			if scope, found := ctx.MethodPrefix(v.Prefix); found {
				entity = scope
			}
		}
		resolved, err := ctx.Resolve(entity, v.Attribute)
		ok = err == nil
		variable = resolved
	default:
		variable, ok = rv.fixed, rv.ok
	}

	if !ok {
		return Undefined()
	}

	target := t
	if v.Offset != nil {
		offVal := evalNode(v.Offset, p, stack, ctx, t, wildcard)
		if !offVal.IsReal() {
			return Undefined()
		}
		target = t + int(math.Round(offVal.Number))
	}
	if target < 0 {
		return Undefined()
	}

	return ctx.ValueAt(stack, variable, target)
}

// sentinelPropagation returns the value that should short-circuit a
// binary or unary numeric operation, and whether a short-circuit
// applies at all. Priority: a cycle always wins, then an undefined
// operand, then "not yet computed", then a carried solver error.
func sentinelPropagation(vs ...Value) (Value, bool) {
	for _, v := range vs {
		if v.Kind == KindComputing {
			return v, true
		}
	}
	for _, v := range vs {
		if v.Kind == KindUndefined {
			return v, true
		}
	}
	for _, v := range vs {
		if v.Kind == KindNotComputed {
			return v, true
		}
	}
	for _, v := range vs {
		if v.Kind == KindSolverError {
			return v, true
		}
	}
	return Value{}, false
}

func evalBinOp(v *BinOp, p *Program, stack *Stack, ctx EvalContext, t, wildcard int) Value {
	left := evalNode(v.Left, p, stack, ctx, t, wildcard)
	right := evalNode(v.Right, p, stack, ctx, t, wildcard)
	if sv, ok := sentinelPropagation(left, right); ok {
		return sv
	}
	lf, rf := left.AsFloat(), right.AsFloat()

	switch v.Op {
	case "+":
		return FromFloat(lf + rf)
	case "-":
		return FromFloat(lf - rf)
	case "*":
		return FromFloat(lf * rf)
	case "/":
		if rf == 0 {
			return Undefined()
		}
		return FromFloat(lf / rf)
	case "%":
		if rf == 0 {
			return Undefined()
		}
		return FromFloat(math.Mod(lf, rf))
	case "^":
		return FromFloat(math.Pow(lf, rf))
	case "=":
		return boolValue(lf == rf)
	case "<>":
		return boolValue(lf != rf)
	case "<":
		return boolValue(lf < rf)
	case "<=":
		return boolValue(lf <= rf)
	case ">":
		return boolValue(lf > rf)
	case ">=":
		return boolValue(lf >= rf)
	case "AND":
		return boolValue(lf != 0 && rf != 0)
	case "OR":
		return boolValue(lf != 0 || rf != 0)
	default:
		return Undefined()
	}
}

func evalUnaryOp(v *UnaryOp, p *Program, stack *Stack, ctx EvalContext, t, wildcard int) Value {
	operand := evalNode(v.Operand, p, stack, ctx, t, wildcard)
	if sv, ok := sentinelPropagation(operand); ok {
		return sv
	}
	switch v.Op {
	case "-":
		return FromFloat(-operand.AsFloat())
	case "NOT":
		return boolValue(operand.AsFloat() == 0)
	default:
		return Undefined()
	}
}

func evalStatCall(v *StatCall, p *Program, stack *Stack, ctx EvalContext, t, wildcard int) Value {
	var nums []float64
	for _, arg := range v.Args {
		val := evalNode(arg, p, stack, ctx, t, wildcard)
		if sv, ok := sentinelPropagation(val); ok {
			return sv
		}
		if val.IsReal() {
			nums = append(nums, val.Number)
		}
	}

	switch v.Op {
	case "N":
		return Num(float64(len(nums)))
	case "min":
		if len(nums) == 0 {
			return Undefined()
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n < m {
				m = n
			}
		}
		return Num(m)
	case "max":
		if len(nums) == 0 {
			return Undefined()
		}
		m := nums[0]
		for _, n := range nums[1:] {
			if n > m {
				m = n
			}
		}
		return Num(m)
	case "sum":
		var s float64
		for _, n := range nums {
			s += n
		}
		return Num(s)
	case "mean":
		if len(nums) == 0 {
			return Undefined()
		}
		var s float64
		for _, n := range nums {
			s += n
		}
		return Num(s / float64(len(nums)))
	case "sd":
		if len(nums) < 2 {
			return Num(0)
		}
		var s float64
		for _, n := range nums {
			s += n
		}
		mean := s / float64(len(nums))
		var ss float64
		for _, n := range nums {
			d := n - mean
			ss += d * d
		}
		return Num(math.Sqrt(ss / float64(len(nums)-1)))
	case "median":
		if len(nums) == 0 {
			return Undefined()
		}
		sorted := append([]float64(nil), nums...)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 1 {
			return Num(sorted[mid])
		}
		return Num((sorted[mid-1] + sorted[mid]) / 2)
	default:
		return Undefined()
	}
}

func boolValue(b bool) Value {
	if b {
		return Num(1)
	}
	return Num(0)
}
