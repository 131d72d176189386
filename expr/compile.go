package expr

import (
	"strconv"
	"strings"
	"sync"
)

// resolvedVar carries the compile-time (or lazily, eval-time)
// resolution state for one VarRef node in the tree: either a single
// fixed Variable (non-wildcard references), or a per-substituted-
// number cache of Variables (wildcard references), keyed by the
// substituted number.
type resolvedVar struct {
	ref   *VarRef
	fixed Variable
	ok    bool // whether fixed resolution succeeded

	mu   sync.Mutex
	byWC map[int]Variable
}

// Program is a compiled expression: its parsed and variable-resolved
// tree, plus the per-(timestep,wildcard) result cache and cycle guard
// the evaluator needs.
type Program struct {
	Source      string
	Root        Node
	Static      bool
	Diagnostics []Diagnostic

	vars []*resolvedVar

	mu    sync.Mutex
	cache map[cacheKey]Value
}

type cacheKey struct {
	t        int
	wildcard int
}

// CallFrame records a variable's name, source text and program for
// post-mortem cycle reporting.
type CallFrame struct {
	Name    string
	Source  string
	Program *Program
}

// Compile parses source and resolves every non-wildcard, non-method
// variable reference against ctx. A syntax error never returns a Go
// error; it becomes a DiagSyntax Diagnostic on the returned Program,
// same as an unresolved reference, so the caller always gets back a
// Program that evaluates (to Undefined for any node downstream of the
// error) rather than a nil value it must special-case.
//
// ctx is an EvalContext, not a bare Resolver, because static
// classification needs to know whether a resolved variable's own
// attribute is itself static (ctx.IsStatic), not merely whether it
// resolved.
func Compile(source string, ctx EvalContext) (*Program, error) {
	root, err := Parse(source)
	if err != nil {
		return &Program{
			Source: source,
			Diagnostics: []Diagnostic{{
				Kind:    DiagSyntax,
				Message: err.Error(),
			}},
			cache: map[cacheKey]Value{},
		}, nil
	}

	p := &Program{
		Source: source,
		Root:   root,
		cache:  map[cacheKey]Value{},
	}
	p.bindVars(root, ctx)
	p.Static = staticOf(root, p, ctx)
	return p, nil
}

// bindVars walks the tree collecting VarRef nodes and eagerly
// resolving the ones whose entity name contains no wildcard.
func (p *Program) bindVars(n Node, ctx EvalContext) {
	switch v := n.(type) {
	case *VarRef:
		rv := &resolvedVar{ref: v, byWC: map[int]Variable{}}
		entity := v.Entity
		if entity == "" {
			if scope, ok := ctx.MethodPrefix(v.Prefix); ok {
				entity = scope
			}
		}
		if !v.HasWildcard() && !v.IsMethod {
			variable, err := ctx.Resolve(entity, v.Attribute)
			if err != nil {
				p.Diagnostics = append(p.Diagnostics, Diagnostic{
					Kind:    DiagUnresolvedReference,
					Message: err.Error(),
				})
			} else {
				rv.fixed = variable
				rv.ok = true
			}
		}
		p.vars = append(p.vars, rv)
		if v.Offset != nil {
			p.bindVars(v.Offset, ctx)
		}
	case *BinOp:
		p.bindVars(v.Left, ctx)
		p.bindVars(v.Right, ctx)
	case *UnaryOp:
		p.bindVars(v.Operand, ctx)
	case *StatCall:
		for _, a := range v.Args {
			p.bindVars(a, ctx)
		}
	}
}

func (p *Program) resolvedFor(n *VarRef) *resolvedVar {
	for _, rv := range p.vars {
		if rv.ref == n {
			return rv
		}
	}
	return nil
}

// staticOf reports whether an expression is static: all its variable
// references resolve to a variable whose own underlying attribute is
// itself static, and the expression text contains no time-offset,
// wildcard or method reference. A reference resolving successfully is
// not enough on its own: a process's level or a link's flow resolve
// just fine but vary per timestep, so only ctx.IsStatic tells the two
// apart.
func staticOf(n Node, p *Program, ctx EvalContext) bool {
	switch v := n.(type) {
	case *NumberLit, *StringLit:
		return true
	case *VarRef:
		if v.Offset != nil || v.HasWildcard() || v.IsMethod {
			return false
		}
		rv := p.resolvedFor(v)
		return rv != nil && rv.ok && ctx.IsStatic(rv.fixed)
	case *BinOp:
		return staticOf(v.Left, p, ctx) && staticOf(v.Right, p, ctx)
	case *UnaryOp:
		return staticOf(v.Operand, p, ctx)
	case *StatCall:
		for _, a := range v.Args {
			if !staticOf(a, p, ctx) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// substituteWildcard replaces every "??" then every remaining "?" in
// entity with the decimal rendering of wildcard.
func substituteWildcard(entity string, wildcard int) string {
	n := strconv.Itoa(wildcard)
	s := strings.ReplaceAll(entity, "??", n)
	s = strings.ReplaceAll(s, "?", n)
	return s
}
