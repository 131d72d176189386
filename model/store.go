// Package model is the entity store for a Linny-R model: an arena per
// entity kind holding stable ID handles, canonical-name lookup, and the
// expr.Resolver/expr.EvalContext implementation that lets every
// entity's bound expr.Program resolve and evaluate references to its
// siblings.
package model

import (
	"sync"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/units"
)

// Model is the full in-memory representation of one Linny-R model: the
// entity arenas plus the scale-unit registry shared by every Product.
type Model struct {
	mu sync.RWMutex

	actors      Arena[Actor]
	processes   Arena[Process]
	products    Arena[Product]
	clusters    Arena[Cluster]
	links       Arena[Link]
	constraints Arena[Constraint]
	datasets    Arena[DatasetEntity]
	charts      Arena[Chart]
	experiments Arena[Experiment]
	notes       Arena[Note]

	// byCode maps a canonical identifier (model.Identify of a code or
	// display name) to the entity it names, across every kind that
	// participates in expression resolution.
	byCode map[string]Ref

	Units    *units.Registry
	Settings Settings

	undo       UndoStack
	serializer Serializer
}

// New creates an empty model with an atomic-base-only unit registry
// and default settings.
func New() *Model {
	return &Model{
		byCode:   map[string]Ref{},
		Units:    units.NewRegistry(),
		Settings: DefaultSettings(),
	}
}

// varHandle is the concrete type behind every expr.Variable this
// package mints: a reference to the target entity, the attribute
// selected on it, and — for a wildcard equation match — the number
// substituted for "?"/"??" in the matched dataset modifier's own
// expression.
type varHandle struct {
	ref         Ref
	attr        Attr
	wildcard    int
	modIndex    int // index into the matched dataset's Modifiers, valid iff hasWildcard
	hasWildcard bool
}

// lookup resolves a canonical entity name to its Ref.
func (m *Model) lookup(name string) (Ref, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ref, ok := m.byCode[Identify(name)]
	return ref, ok
}

// Lookup is the exported form of lookup, for packages outside model
// (the tableau/schedule pipeline) that need to map a compiled
// variable's code back to the entity it names.
func (m *Model) Lookup(name string) (Ref, bool) {
	return m.lookup(name)
}

// nameOf returns the canonical code for ref, used as the entity text
// MethodPrefix resolution hands back to the compiler.
func (m *Model) nameOf(ref Ref) string {
	switch ref.Kind {
	case KindActor:
		if a := m.actors.Get(ref.ID); a != nil {
			return a.Code
		}
	case KindProcess:
		if p := m.processes.Get(ref.ID); p != nil {
			return p.Code
		}
	case KindProduct:
		if p := m.products.Get(ref.ID); p != nil {
			return p.Code
		}
	case KindDataset:
		if d := m.datasets.Get(ref.ID); d != nil {
			return d.Code
		}
	case KindCluster:
		if c := m.clusters.Get(ref.ID); c != nil {
			return c.Code
		}
	case KindLink:
		if l := m.links.Get(ref.ID); l != nil {
			return l.Code
		}
	case KindConstraint:
		if c := m.constraints.Get(ref.ID); c != nil {
			return c.Code
		}
	}
	return ""
}

// matchEquation looks across every dataset entity for a modifier whose
// selector matches name: a name like "q 1" resolves not by direct
// lookup but by matching a dataset modifier selector such as "q ??".
func (m *Model) matchEquation(name string) (ref Ref, wildcard, modIndex int, ok bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.datasets.All(func(id ID, d *DatasetEntity) bool {
		mod, wc, matched := d.Data.MatchModifier(name)
		if !matched || mod.Expr == nil {
			return true
		}
		for i, candidate := range d.Data.Modifiers {
			if candidate == mod {
				ref, wildcard, modIndex, ok = Ref{Kind: KindDataset, ID: id}, wc, i, true
				return false
			}
		}
		return true
	})
	return ref, wildcard, modIndex, ok
}

// CodeOf returns ref's canonical code, the exported form of nameOf for
// callers outside the package (the xmlio serializer) that need to
// render an entity reference back to text.
func (m *Model) CodeOf(ref Ref) string {
	return m.nameOf(ref)
}

// Resolve implements expr.Resolver.
func (m *Model) Resolve(entity, attribute string) (expr.Variable, error) {
	attr, okAttr := parseAttr(attribute)
	if !okAttr {
		return nil, newError(UnresolvedReference, "unknown attribute selector: %q", attribute)
	}

	if ref, ok := m.lookup(entity); ok {
		return varHandle{ref: ref, attr: attr}, nil
	}
	if ref, wc, idx, ok := m.matchEquation(entity); ok {
		return varHandle{ref: ref, attr: attr, wildcard: wc, modIndex: idx, hasWildcard: true}, nil
	}
	return nil, newError(UnresolvedReference, "unknown entity: %q", entity)
}

// MethodPrefix implements expr.Resolver: a method prefix is itself an
// entity reference, and resolves to that entity's canonical code.
func (m *Model) MethodPrefix(prefix string) (string, bool) {
	ref, ok := m.lookup(prefix)
	if !ok {
		return "", false
	}
	return m.nameOf(ref), true
}

// ValueAt implements expr.EvalContext.
func (m *Model) ValueAt(stack *expr.Stack, v expr.Variable, t int) expr.Value {
	h, ok := v.(varHandle)
	if !ok {
		return expr.Undefined()
	}
	if h.hasWildcard {
		return m.equationValueAt(stack, h, t)
	}

	switch h.ref.Kind {
	case KindProcess:
		p := m.processes.Get(h.ref.ID)
		if p == nil {
			return expr.Undefined()
		}
		return p.ValueAt(stack, m, h.attr, t)
	case KindProduct:
		p := m.products.Get(h.ref.ID)
		if p == nil {
			return expr.Undefined()
		}
		return p.ValueAt(stack, m, h.attr, t)
	case KindLink:
		l := m.links.Get(h.ref.ID)
		if l == nil {
			return expr.Undefined()
		}
		return l.ValueAt(stack, m, h.attr, t)
	case KindConstraint:
		c := m.constraints.Get(h.ref.ID)
		if c == nil {
			return expr.Undefined()
		}
		return c.ValueAt(stack, m, h.attr, t)
	case KindDataset:
		d := m.datasets.Get(h.ref.ID)
		if d == nil {
			return expr.Undefined()
		}
		return d.ValueAt(t, m.modelDt())
	default:
		return expr.Undefined()
	}
}

// modelDt returns the model's own timestep duration in its TimeScale
// unit, defaulting to 1 for a model whose settings were never set.
func (m *Model) modelDt() float64 {
	if m.Settings.TimeScale <= 0 {
		return 1
	}
	return m.Settings.TimeScale
}

func (m *Model) equationValueAt(stack *expr.Stack, h varHandle, t int) expr.Value {
	d := m.datasets.Get(h.ref.ID)
	if d == nil || h.modIndex < 0 || h.modIndex >= len(d.Data.Modifiers) {
		return expr.Undefined()
	}
	mod := d.Data.Modifiers[h.modIndex]
	if mod.Expr == nil {
		return expr.Undefined()
	}
	return mod.Expr.Result(stack, m, t, h.wildcard)
}

// PriceAt returns the per-unit cost price of the entity at ref, as
// propagated by the costprice package (falling back to a product's
// static Price expression before any price has been propagated; a
// process with no propagated cost price yet is NotComputed). It lets a
// caller price an entity by Ref without minting its own expr.Variable
// handles.
func (m *Model) PriceAt(stack *expr.Stack, ref Ref, t int) expr.Value {
	switch ref.Kind {
	case KindProcess:
		p := m.processes.Get(ref.ID)
		if p == nil {
			return expr.Undefined()
		}
		return p.ValueAt(stack, m, AttrPrice, t)
	case KindProduct:
		p := m.products.Get(ref.ID)
		if p == nil {
			return expr.Undefined()
		}
		return p.ValueAt(stack, m, AttrPrice, t)
	default:
		return expr.Undefined()
	}
}

// ValueOf returns ref's attr at timestep t, the exported general-purpose
// form of the internal varHandle dispatch used by chart series and
// experiment outcome recording, which address an entity by Ref rather
// than through a compiled expr.Variable.
func (m *Model) ValueOf(stack *expr.Stack, ref Ref, attr Attr, t int) expr.Value {
	return m.ValueAt(stack, varHandle{ref: ref, attr: attr}, t)
}

// IsStatic implements expr.EvalContext. A solved vector attribute
// (level, stock, flow) is never static since it depends on the
// block's LP solution; a formula-backed attribute inherits its
// program's own static classification; plain dataset data, with no
// modifier involved, is static only when the dataset holds no data
// points, so that every timestep reads the same default.
func (m *Model) IsStatic(v expr.Variable) bool {
	h, ok := v.(varHandle)
	if !ok {
		return false
	}
	if h.hasWildcard {
		d := m.datasets.Get(h.ref.ID)
		if d == nil || h.modIndex < 0 || h.modIndex >= len(d.Data.Modifiers) {
			return false
		}
		mod := d.Data.Modifiers[h.modIndex]
		return mod.Expr != nil && mod.Expr.Static
	}

	switch h.ref.Kind {
	case KindProcess:
		p := m.processes.Get(h.ref.ID)
		if p == nil {
			return false
		}
		switch h.attr {
		case AttrLB:
			return p.LowerBound != nil && p.LowerBound.Static
		case AttrUB:
			return p.UpperBound != nil && p.UpperBound.Static
		case AttrCost:
			return p.VariableCost != nil && p.VariableCost.Static
		default:
			return false
		}
	case KindProduct:
		p := m.products.Get(h.ref.ID)
		if p == nil {
			return false
		}
		switch h.attr {
		case AttrLB:
			return p.LowerBound != nil && p.LowerBound.Static
		case AttrUB:
			return p.UpperBound != nil && p.UpperBound.Static
		case AttrPrice:
			return len(p.CostPrice) == 0 && p.Price != nil && p.Price.Static
		default:
			return false
		}
	case KindDataset:
		d := m.datasets.Get(h.ref.ID)
		return d != nil && len(d.Data.Data) == 0
	default:
		return false
	}
}
