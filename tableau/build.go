package tableau

import (
	"fmt"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/trace"
)

// varRef is a stable per-timestep variable slot, keyed so the builder
// can look an index back up while wiring rows that span entities
// (stock balance, link-to-process coupling).
type varRef struct {
	kind model.Kind
	id   model.ID
	t    int
}

// auxKind names one of the commitment-bookkeeping variables a node
// picks up when it drives a binary-trigger link or carries its own
// integer-level flag.
type auxKind int

const (
	auxOnOff auxKind = iota
	auxStartUp
	auxShutDown
	auxFirstCommit
	auxPeak
	auxPeakInc
)

// auxRef keys one commitment-bookkeeping variable by the node it
// belongs to, the timestep, and which of the six kinds it is.
type auxRef struct {
	ref model.Ref
	t   int
	kind auxKind
}

// Builder constructs one block's Problem from a model, evaluating
// every bound and rate expression at the block's offsets before
// handing the result to an external solver.
type Builder struct {
	m       *model.Model
	problem *Problem
	stack   *expr.Stack
	index   map[varRef]int
	aux     map[auxRef]int
	Tracer  *trace.Collector

	// Ignored pins every process/product/link whose Ref is set here to
	// a [0,0] bound, rather than omitting its row: an experiment run
	// that ignores a cluster zeroes out its members' contribution to
	// the block without leaving dangling references in the flow and
	// balance rows that still mention them.
	Ignored map[model.Ref]bool
}

// NewBuilder creates a Builder bound to m, with a fresh evaluation
// Stack so bound expressions spanning several entities still get
// cross-expression cycle detection (expr.Stack's contract).
func NewBuilder(m *model.Model) *Builder {
	return &Builder{m: m, problem: NewProblem(), stack: expr.NewStack(), index: map[varRef]int{}, aux: map[auxRef]int{}}
}

// Build constructs the Problem for the half-open timestep range
// [start, start+length), evaluating all process/product bounds and
// link rates at absolute timestep start+offset.
//
// The builder is pure with respect to (model, start, length): it
// carries no state across calls, so a node's commitment history
// before start is treated as off and its running peak as zero. Carry
// from the previous block is the scheduler's responsibility to fold
// back into the model (initial levels, settings) before calling Build
// again; this builder does not yet accept it directly.
func (b *Builder) Build(start, length int) *Problem {
	binaryNodes, peakNodes := b.classifyLinks()

	for t := 0; t < length; t++ {
		abs := start + t
		b.m.AllProcesses(func(id model.ID, p *model.Process) bool {
			b.addProcessVar(id, p, abs)
			return true
		})
		b.m.AllProducts(func(id model.ID, p *model.Product) bool {
			if !p.SourceSink {
				b.addProductVar(id, p, abs)
			}
			return true
		})
		for _, ref := range b.orderedRefs(binaryNodes) {
			b.addCommitmentVars(ref, abs, start)
		}
		for _, ref := range b.orderedRefs(peakNodes) {
			b.addPeakVars(ref, abs)
		}
		b.m.AllLinks(func(id model.ID, l *model.Link) bool {
			b.addLinkVar(id, l, abs)
			return true
		})
	}

	for t := 0; t < length; t++ {
		abs := start + t
		b.m.AllLinks(func(id model.ID, l *model.Link) bool {
			b.addFlowRow(id, l, abs, start)
			return true
		})
		b.m.AllProducts(func(id model.ID, p *model.Product) bool {
			if !p.SourceSink {
				b.addBalanceRow(id, p, abs, start)
			}
			return true
		})
		b.m.AllConstraints(func(id model.ID, c *model.Constraint) bool {
			b.addBoundLine(id, c, abs)
			return true
		})
	}

	b.Tracer.Emit(trace.SolverInvoked, map[string]interface{}{
		"vars": len(b.problem.Variables), "rows": len(b.problem.Rows),
	})
	return b.problem
}

// classifyLinks scans every link once to find which nodes need a
// commitment (on_off/start_up/shut_down/first_commit) variable —
// either because a process declares an integer-level flag, or because
// one of its outgoing links carries a binary-trigger multiplier — and
// which nodes need a running-peak variable because an outgoing link
// carries the peak-increase multiplier.
func (b *Builder) classifyLinks() (binary, peak map[model.Ref]bool) {
	binary = map[model.Ref]bool{}
	peak = map[model.Ref]bool{}
	b.m.AllProcesses(func(id model.ID, p *model.Process) bool {
		if p.Integer {
			binary[model.Ref{Kind: model.KindProcess, ID: id}] = true
		}
		return true
	})
	b.m.AllLinks(func(_ model.ID, l *model.Link) bool {
		if l.Multiplier.IsBinaryTrigger() {
			binary[l.From] = true
		}
		if l.Multiplier == model.MulPeakIncrease {
			peak[l.From] = true
		}
		return true
	})
	return binary, peak
}

// orderedRefs returns the members of set in the fixed kind order
// (processes, then products), matching the deterministic row order
// the rest of the builder already follows.
func (b *Builder) orderedRefs(set map[model.Ref]bool) []model.Ref {
	var refs []model.Ref
	b.m.AllProcesses(func(id model.ID, p *model.Process) bool {
		ref := model.Ref{Kind: model.KindProcess, ID: id}
		if set[ref] {
			refs = append(refs, ref)
		}
		return true
	})
	b.m.AllProducts(func(id model.ID, p *model.Product) bool {
		ref := model.Ref{Kind: model.KindProduct, ID: id}
		if set[ref] {
			refs = append(refs, ref)
		}
		return true
	})
	return refs
}

func (b *Builder) bound(prog *expr.Program, t int, fallback float64) float64 {
	if prog == nil {
		return fallback
	}
	v := prog.Result(b.stack, b.m, t, 0)
	if !v.IsReal() {
		return fallback
	}
	return v.Number
}

func (b *Builder) upperBoundAt(ref model.Ref, t int) float64 {
	switch ref.Kind {
	case model.KindProcess:
		if p := b.m.Process(ref.ID); p != nil {
			return b.bound(p.UpperBound, t, 1e12)
		}
	case model.KindProduct:
		if p := b.m.Product(ref.ID); p != nil {
			return b.bound(p.UpperBound, t, 1e12)
		}
	}
	return 0
}

// highestFeasibleUB walks back through ref's ingoing links to tighten
// its own upper bound: a node can never actually reach a level higher
// than the sum of what its inflows, at their own highest feasible
// bound, can deliver. Never returns below 0; never exceeds the node's
// own expression-defined bound. visited guards against link cycles.
func (b *Builder) highestFeasibleUB(ref model.Ref, t int, visited map[model.Ref]bool) float64 {
	if visited[ref] {
		return 0
	}
	visited[ref] = true
	defer delete(visited, ref)

	own := b.upperBoundAt(ref, t)
	if own < 0 {
		own = 0
	}

	inflow, hasInflow := 0.0, false
	b.m.AllLinks(func(_ model.ID, l *model.Link) bool {
		if l.To != ref {
			return true
		}
		rate := 1.0
		if l.Rate != nil {
			rate = b.bound(l.Rate, t, 1)
		}
		inflow += rate * b.highestFeasibleUB(l.From, t, visited)
		hasInflow = true
		return true
	})
	if hasInflow && inflow < own {
		return inflow
	}
	return own
}

func (b *Builder) fixedCostAt(ref model.Ref, t int) float64 {
	if ref.Kind == model.KindProcess {
		if p := b.m.Process(ref.ID); p != nil {
			return b.bound(p.FixedCost, t, 0)
		}
	}
	return 0
}

func (b *Builder) addProcessVar(id model.ID, p *model.Process, t int) {
	ref := model.Ref{Kind: model.KindProcess, ID: id}
	lb, ub := b.bound(p.LowerBound, t, 0), b.bound(p.UpperBound, t, 1e12)
	if b.Ignored[ref] {
		lb, ub = 0, 0
	}
	name := fmt.Sprintf("%s@%d", p.Code, t)
	idx := b.problem.AddVariable(name, Continuous, lb, ub)
	b.index[varRef{model.KindProcess, id, t}] = idx

	cost := b.bound(p.VariableCost, t, 0)
	b.problem.SetObjCoeff(idx, cost)
}

func (b *Builder) addProductVar(id model.ID, p *model.Product, t int) {
	ref := model.Ref{Kind: model.KindProduct, ID: id}
	lb, ub := b.bound(p.LowerBound, t, 0), b.bound(p.UpperBound, t, 1e12)
	if b.Ignored[ref] {
		lb, ub = 0, 0
	}
	name := fmt.Sprintf("%s@%d", p.Code, t)
	idx := b.problem.AddVariable(name, Continuous, lb, ub)
	b.index[varRef{model.KindProduct, id, t}] = idx
}

func (b *Builder) addLinkVar(id model.ID, l *model.Link, t int) {
	ub := 1e12
	if b.Ignored[model.Ref{Kind: model.KindLink, ID: id}] || b.Ignored[l.From] || b.Ignored[l.To] {
		ub = 0
	}
	name := fmt.Sprintf("%s@%d", l.Code, t)
	idx := b.problem.AddVariable(name, Continuous, 0, ub)
	b.index[varRef{model.KindLink, id, t}] = idx
}

// addCommitmentVars gives ref an on_off binary at t, big-M linked to
// its level using the ingoing-link-topology bound, plus start_up and
// shut_down binaries order-linked to on_off at t and t-1.
// first_commit is only meaningful at the block's first modeled
// timestep, since the builder carries no on/off history across
// blocks; at every later t it is pinned to 0.
func (b *Builder) addCommitmentVars(ref model.Ref, t, blockStart int) {
	bigM := b.highestFeasibleUB(ref, t, map[model.Ref]bool{})
	onIdx := b.addOnOffVar(ref, t, bigM)
	if onIdx < 0 {
		return
	}
	b.problem.SetObjCoeff(onIdx, b.fixedCostAt(ref, t))

	code := b.m.CodeOf(ref)
	startIdx := b.problem.AddVariable(fmt.Sprintf("%s#start_up@%d", code, t), Binary, 0, 1)
	b.aux[auxRef{ref, t, auxStartUp}] = startIdx
	shutIdx := b.problem.AddVariable(fmt.Sprintf("%s#shut_down@%d", code, t), Binary, 0, 1)
	b.aux[auxRef{ref, t, auxShutDown}] = shutIdx

	prevOn, hasPrev := b.aux[auxRef{ref, t - 1, auxOnOff}]

	// start_up[t] >= on_off[t] - on_off[t-1]
	upRow := b.problem.AddRow(fmt.Sprintf("%s#start_up_order@%d", code, t), OpGE, 0)
	b.problem.SetCoeff(upRow, startIdx, 1)
	b.problem.SetCoeff(upRow, onIdx, -1)
	if hasPrev {
		b.problem.SetCoeff(upRow, prevOn, 1)
	}

	// shut_down[t] >= on_off[t-1] - on_off[t]
	downRow := b.problem.AddRow(fmt.Sprintf("%s#shut_down_order@%d", code, t), OpGE, 0)
	b.problem.SetCoeff(downRow, shutIdx, 1)
	b.problem.SetCoeff(downRow, onIdx, 1)
	if hasPrev {
		b.problem.SetCoeff(downRow, prevOn, -1)
	}

	firstIdx := b.problem.AddVariable(fmt.Sprintf("%s#first_commit@%d", code, t), Binary, 0, 1)
	b.aux[auxRef{ref, t, auxFirstCommit}] = firstIdx
	if t == blockStart {
		row := b.problem.AddRow(fmt.Sprintf("%s#first_commit_eq@%d", code, t), OpEQ, 0)
		b.problem.SetCoeff(row, firstIdx, 1)
		b.problem.SetCoeff(row, startIdx, -1)
	} else {
		b.problem.Variables[firstIdx].UB = 0
	}
}

func (b *Builder) addOnOffVar(ref model.Ref, t int, bigM float64) int {
	if idx, ok := b.aux[auxRef{ref, t, auxOnOff}]; ok {
		return idx
	}
	lvlIdx, ok := b.index[varRef{ref.Kind, ref.ID, t}]
	if !ok {
		return -1
	}
	if bigM <= 0 {
		bigM = 1e12
	}
	code := b.m.CodeOf(ref)
	onIdx := b.problem.AddVariable(fmt.Sprintf("%s#on@%d", code, t), Binary, 0, 1)
	b.aux[auxRef{ref, t, auxOnOff}] = onIdx

	row := b.problem.AddRow(fmt.Sprintf("%s#commit@%d", code, t), OpLE, 0)
	b.problem.SetCoeff(row, lvlIdx, 1)
	b.problem.SetCoeff(row, onIdx, -bigM)
	return onIdx
}

// addPeakVars gives ref a running-peak variable and the per-timestep
// peak_inc it implies: peak[t] is the largest level seen at or before
// t within the block, and peak_inc[t] is how much the peak grew at t.
func (b *Builder) addPeakVars(ref model.Ref, t int) {
	lvlIdx, ok := b.index[varRef{ref.Kind, ref.ID, t}]
	if !ok {
		return
	}
	code := b.m.CodeOf(ref)
	ub := b.problem.Variables[lvlIdx].UB

	peakIdx := b.problem.AddVariable(fmt.Sprintf("%s#peak@%d", code, t), Continuous, 0, ub)
	b.aux[auxRef{ref, t, auxPeak}] = peakIdx
	incIdx := b.problem.AddVariable(fmt.Sprintf("%s#peak_inc@%d", code, t), Continuous, 0, ub)
	b.aux[auxRef{ref, t, auxPeakInc}] = incIdx

	geLevel := b.problem.AddRow(fmt.Sprintf("%s#peak_ge_level@%d", code, t), OpGE, 0)
	b.problem.SetCoeff(geLevel, peakIdx, 1)
	b.problem.SetCoeff(geLevel, lvlIdx, -1)

	prevPeak, hasPrev := b.aux[auxRef{ref, t - 1, auxPeak}]
	geCarry := b.problem.AddRow(fmt.Sprintf("%s#peak_ge_carry@%d", code, t), OpGE, 0)
	b.problem.SetCoeff(geCarry, peakIdx, 1)
	if hasPrev {
		b.problem.SetCoeff(geCarry, prevPeak, -1)
	}

	incRow := b.problem.AddRow(fmt.Sprintf("%s#peak_inc_eq@%d", code, t), OpEQ, 0)
	b.problem.SetCoeff(incRow, incIdx, 1)
	b.problem.SetCoeff(incRow, peakIdx, -1)
	if hasPrev {
		b.problem.SetCoeff(incRow, prevPeak, 1)
	}
}

// addFlowRow ties a link's flow to f(source, t-delay), where f is
// selected by the link's multiplier: level/sum/mean read the source
// node's own level vector (summed or averaged since the block began
// for sum/mean), while the binary-trigger multipliers read the
// matching commitment variable of the source node instead of its
// level — start-up/shut-down/first-commit pass through the like-named
// binary, positive and spinning-reserve pass on_off directly, zero
// passes its complement, and peak-increase passes peak_inc.
func (b *Builder) addFlowRow(id model.ID, l *model.Link, t, blockStart int) {
	flowIdx, ok := b.index[varRef{model.KindLink, id, t}]
	if !ok {
		return
	}
	rate := 1.0
	if l.Rate != nil {
		rate = b.bound(l.Rate, t, 1)
	}
	delay := l.DelayAt(b.stack, b.m, t)
	srcT := t - delay

	row := b.problem.AddRow(fmt.Sprintf("%s#flow@%d", l.Code, t), OpEQ, 0)
	b.problem.SetCoeff(row, flowIdx, 1)

	switch l.Multiplier {
	case model.MulStartUp:
		b.coupleAux(row, l.From, srcT, auxStartUp, -rate)
	case model.MulShutDown:
		b.coupleAux(row, l.From, srcT, auxShutDown, -rate)
	case model.MulFirstCommit:
		b.coupleAux(row, l.From, srcT, auxFirstCommit, -rate)
	case model.MulSpinningReserve:
		b.coupleAux(row, l.From, srcT, auxOnOff, -rate)
	case model.MulPositive:
		b.coupleAux(row, l.From, srcT, auxOnOff, -rate)
	case model.MulZero:
		// flow == rate * (1 - on_off): flow + rate*on_off == rate
		if idx, ok := b.aux[auxRef{l.From, srcT, auxOnOff}]; ok {
			b.problem.SetCoeff(row, idx, rate)
		}
		b.problem.Rows[row].RHS = rate
	case model.MulPeakIncrease:
		b.coupleAux(row, l.From, srcT, auxPeakInc, -rate)
	case model.MulSum, model.MulMean:
		for tt := blockStart; tt <= srcT; tt++ {
			idx, ok := b.index[varRef{l.From.Kind, l.From.ID, tt}]
			if !ok {
				continue
			}
			coeff := -rate
			if l.Multiplier == model.MulMean {
				coeff = -rate / float64(srcT-blockStart+1)
			}
			b.problem.SetCoeff(row, idx, b.problem.Rows[row].Terms[idx]+coeff)
		}
	default: // level
		if idx, ok := b.index[varRef{l.From.Kind, l.From.ID, srcT}]; ok {
			b.problem.SetCoeff(row, idx, -rate)
		}
	}
}

func (b *Builder) coupleAux(row int, ref model.Ref, t int, kind auxKind, coeff float64) {
	if idx, ok := b.aux[auxRef{ref, t, kind}]; ok {
		b.problem.SetCoeff(row, idx, coeff)
	}
}

// addBalanceRow enforces stock continuity for a product: stock[t] ==
// stock[t-1] (or InitialLevel at the block's first timestep) + inflow
// - outflow.
func (b *Builder) addBalanceRow(id model.ID, p *model.Product, t, blockStart int) {
	idx, ok := b.index[varRef{model.KindProduct, id, t}]
	if !ok {
		return
	}
	row := b.problem.AddRow(fmt.Sprintf("%s#balance@%d", p.Code, t), OpEQ, 0)
	b.problem.SetCoeff(row, idx, 1)

	rhs := 0.0
	if t == blockStart {
		rhs = p.InitialLevel
	} else if prevIdx, ok := b.index[varRef{model.KindProduct, id, t - 1}]; ok {
		b.problem.SetCoeff(row, prevIdx, -1)
	}
	b.problem.Rows[row].RHS = rhs

	target := model.Ref{Kind: model.KindProduct, ID: id}
	b.m.AllLinks(func(lid model.ID, l *model.Link) bool {
		flowIdx, ok := b.index[varRef{model.KindLink, lid, t}]
		if !ok {
			return true
		}
		switch {
		case l.To == target:
			b.problem.SetCoeff(row, flowIdx, b.problem.Rows[row].Terms[flowIdx]-1)
		case l.From == target:
			b.problem.SetCoeff(row, flowIdx, b.problem.Rows[row].Terms[flowIdx]+1)
		}
		return true
	})
}

// addBoundLine encodes a constraint's piecewise-linear bound line as a
// convex combination over its breakpoints with an SOS2 restriction to
// at most two adjacent active segments. The Y row's operator follows
// the constraint's BoundType: an equality bound pins the Y entity's
// level to the interpolated line, while <= / >= only bound it on one
// side.
func (b *Builder) addBoundLine(id model.ID, c *model.Constraint, t int) {
	if len(c.Points) < 2 {
		return
	}
	xIdx, okX := b.index[varRef{c.From.Kind, c.From.ID, t}]
	yIdx, okY := b.index[varRef{c.To.Kind, c.To.ID, t}]
	if !okX || !okY {
		return
	}

	lambdas := make([]int, len(c.Points))
	for i := range c.Points {
		name := fmt.Sprintf("%s#lambda%d@%d", c.Code, i, t)
		lambdas[i] = b.problem.AddVariable(name, Continuous, 0, 1)
	}

	convexRow := b.problem.AddRow(fmt.Sprintf("%s#convex@%d", c.Code, t), OpEQ, 1)
	for _, li := range lambdas {
		b.problem.SetCoeff(convexRow, li, 1)
	}

	xRow := b.problem.AddRow(fmt.Sprintf("%s#x@%d", c.Code, t), OpEQ, 0)
	b.problem.SetCoeff(xRow, xIdx, 1)
	for i, li := range lambdas {
		b.problem.SetCoeff(xRow, li, -c.Points[i].X)
	}

	yOp := OpEQ
	switch c.BoundType {
	case model.BoundLE:
		yOp = OpLE
	case model.BoundGE:
		yOp = OpGE
	}
	yRow := b.problem.AddRow(fmt.Sprintf("%s#y@%d", c.Code, t), yOp, 0)
	b.problem.SetCoeff(yRow, yIdx, 1)
	for i, li := range lambdas {
		b.problem.SetCoeff(yRow, li, -c.Points[i].Y)
	}

	b.problem.AddSOS2(fmt.Sprintf("%s#sos2@%d", c.Code, t), lambdas)
}
