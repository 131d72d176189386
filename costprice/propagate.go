// Package costprice implements cost-price propagation: after a block
// is solved, a fixed-point derivation over processes, products, links
// and cost-carrying constraints infers what each node's output costs
// per unit, following Linny-R's CP/UCP/transfer_cp rule set.
package costprice

import (
	"math"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

// Options tunes the fixed-point iteration.
type Options struct {
	MaxIterations int
	// Epsilon is the magnitude below which a level or flow counts as
	// zero/negligible for the purposes of the derivation rules.
	Epsilon float64
}

// DefaultOptions returns conservative, well-converging defaults.
func DefaultOptions() Options {
	return Options{MaxIterations: 50, Epsilon: 1e-9}
}

// Result reports how propagation went for one Propagate call, taking
// the worst case across every timestep it covered.
type Result struct {
	Converged  bool
	Iterations int
}

// Propagate computes cost prices for every process and product, unit
// cost prices for every link, and transfer prices for every
// cost-carrying constraint, over [start, end). Each timestep is
// derived independently: a handful of direct initialization rules
// followed by a fixed-point iteration over whatever remains unknown,
// with an ordered relaxation fallback — at most one relaxation per
// outer round — if the iteration stalls before every unknown
// resolves. Deterministic ascending-ID order is used throughout so
// repeated runs over the same solved block produce identical results.
func Propagate(m *model.Model, start, end int, opts Options) Result {
	procIDs := collectIDs(func(fn func(model.ID) bool) { m.AllProcesses(func(id model.ID, _ *model.Process) bool { return fn(id) }) })
	prodIDs := collectIDs(func(fn func(model.ID) bool) { m.AllProducts(func(id model.ID, _ *model.Product) bool { return fn(id) }) })
	linkIDs := collectIDs(func(fn func(model.ID) bool) { m.AllLinks(func(id model.ID, _ *model.Link) bool { return fn(id) }) })
	constrIDs := collectIDs(func(fn func(model.ID) bool) { m.AllConstraints(func(id model.ID, _ *model.Constraint) bool { return fn(id) }) })

	for _, id := range procIDs {
		growValues(&m.Process(id).CostPrice, end)
	}
	for _, id := range prodIDs {
		p := m.Product(id)
		growValues(&p.CostPrice, end)
		growValues(&p.HighestCostPrice, end)
	}
	for _, id := range linkIDs {
		growValues(&m.Link(id).UCP, end)
	}
	for _, id := range constrIDs {
		growValues(&m.Constraint(id).TransferCP, end)
	}

	stack := expr.NewStack()
	worst := Result{Converged: true}

	for t := start; t < end; t++ {
		res := propagateAt(m, stack, procIDs, prodIDs, linkIDs, constrIDs, t, opts)
		if !res.Converged {
			worst.Converged = false
		}
		if res.Iterations > worst.Iterations {
			worst.Iterations = res.Iterations
		}
		highestCostPriceAt(m, stack, prodIDs, t)
	}
	return worst
}

func propagateAt(m *model.Model, stack *expr.Stack, procIDs, prodIDs, linkIDs, constrIDs []model.ID, t int, opts Options) Result {
	// Rule 1: any process with a negative level aborts propagation for
	// this timestep entirely.
	for _, id := range procIDs {
		p := m.Process(id)
		l := vectorValueAt(p.Level, t)
		if l.IsReal() && l.Number < 0 {
			for _, pid := range procIDs {
				m.Process(pid).CostPrice[t] = expr.Undefined()
			}
			for _, pid := range prodIDs {
				m.Product(pid).CostPrice[t] = expr.Undefined()
			}
			for _, lid := range linkIDs {
				m.Link(lid).UCP[t] = expr.Undefined()
			}
			for _, cid := range constrIDs {
				m.Constraint(cid).TransferCP[t] = expr.Undefined()
			}
			return Result{Converged: true, Iterations: 0}
		}
	}

	knownProcCP := map[model.ID]float64{}
	knownProdCP := map[model.ID]expr.Value{}
	knownUCP := map[model.ID]float64{}
	knownTransfer := map[model.ID]float64{}

	rate := func(prog *expr.Program, fallback float64) float64 {
		if prog == nil {
			return fallback
		}
		v := prog.Result(stack, m, t, 0)
		if !v.IsReal() {
			return fallback
		}
		return v.Number
	}

	// Rule 3: processes with no inputs and no cost-affecting
	// constraints get their own variable cost plus any cost picked up
	// from selling into negative-priced outputs.
	for _, id := range procIDs {
		ref := model.Ref{Kind: model.KindProcess, ID: id}
		if hasIncomingLink(m, ref) || hasCostConstraint(m, constrIDs, ref) {
			continue
		}
		knownProcCP[id] = variableCostAt(stack, m, id, t) + negativeOutputCost(stack, m, ref, t, true)
	}

	// Rule 4: products with no inflow, or whose every inflow carries no
	// flow this timestep, need no per-unit derivation.
	for _, id := range prodIDs {
		ref := model.Ref{Kind: model.KindProduct, ID: id}
		inflows := incomingLinks(m, ref)
		if len(inflows) == 0 && !hasCostConstraint(m, constrIDs, ref) {
			if mp := marketPriceAt(stack, m, ref, t); mp.IsReal() {
				knownProdCP[id] = mp
			} else {
				knownProdCP[id] = expr.NoCost()
			}
			continue
		}
		if len(inflows) == 0 {
			continue
		}
		allZeroFlow := true
		for _, l := range inflows {
			if flow := vectorValueAt(l.ActualFlow, t); flow.IsReal() && flow.Number != 0 {
				allZeroFlow = false
				break
			}
		}
		if allZeroFlow {
			knownProdCP[id] = expr.Num(0)
		}
	}

	// Rule 2: transfer_cp from constraints with non-negligible levels
	// on both endpoints and positive share-of-cost, sourced from
	// whichever of rule 3/4's results already cover the source side
	// (falling back to a product's own market price).
	for _, id := range constrIDs {
		c := m.Constraint(id)
		if c.ShareOfCost == 0 {
			continue
		}
		fromLvl, toLvl := levelOf(m, c.From, t), levelOf(m, c.To, t)
		if !fromLvl.IsReal() || !toLvl.IsReal() {
			continue
		}
		if math.Abs(fromLvl.Number) <= opts.Epsilon || math.Abs(toLvl.Number) <= opts.Epsilon {
			continue
		}
		src := c.From
		if c.SocDirection == model.SocReverse {
			src = c.To
		}
		if price, ok := knownPriceOf(m, stack, src, knownProcCP, knownProdCP, t); ok {
			knownTransfer[id] = c.ShareOfCost * price
		}
	}

	// Rule 5: links price from a market source, product-to-product
	// pass-through, or a source whose CP is already known.
	for _, id := range linkIDs {
		l := m.Link(id)
		r := rate(l.Rate, 1)
		if mp := marketPriceAt(stack, m, l.From, t); mp.IsReal() {
			knownUCP[id] = mp.Number * r
			continue
		}
		if l.From.Kind == model.KindProduct && l.To.Kind == model.KindProduct {
			knownUCP[id] = 0
			continue
		}
		if l.From.Kind == model.KindProcess {
			if cp, ok := knownProcCP[l.From.ID]; ok {
				knownUCP[id] = cp * r
			}
		} else if cp, ok := knownProdCP[l.From.ID]; ok && cp.IsReal() {
			knownUCP[id] = cp.Number * r
		}
	}

	iterations := 0
	for iterations < opts.MaxIterations {
		progressed := iterateProcesses(m, stack, rate, procIDs, constrIDs, knownProcCP, knownUCP, knownTransfer, t)
		progressed = iterateProducts(m, prodIDs, constrIDs, knownProdCP, knownUCP, knownTransfer, t, opts) || progressed
		iterations++

		if progressed {
			continue
		}
		if relaxOnce(m, stack, rate, procIDs, linkIDs, knownProcCP, knownUCP, t, opts) {
			continue
		}
		break
	}

	converged := true
	for _, id := range procIDs {
		if v, ok := knownProcCP[id]; ok {
			m.Process(id).CostPrice[t] = expr.Num(v)
		} else {
			m.Process(id).CostPrice[t] = expr.Undefined()
			converged = false
		}
	}
	for _, id := range prodIDs {
		if v, ok := knownProdCP[id]; ok {
			m.Product(id).CostPrice[t] = v
		} else {
			m.Product(id).CostPrice[t] = expr.Undefined()
			converged = false
		}
	}
	for _, id := range linkIDs {
		if v, ok := knownUCP[id]; ok {
			m.Link(id).UCP[t] = expr.Num(v)
		} else {
			m.Link(id).UCP[t] = expr.Undefined()
			converged = false
		}
	}
	for _, id := range constrIDs {
		c := m.Constraint(id)
		if c.ShareOfCost == 0 {
			c.TransferCP[t] = expr.Undefined()
			continue
		}
		if v, ok := knownTransfer[id]; ok {
			c.TransferCP[t] = expr.Num(v)
		} else {
			c.TransferCP[t] = expr.Undefined()
			converged = false
		}
	}

	return Result{Converged: converged, Iterations: iterations}
}

// iterateProcesses derives CP for every process whose every input link
// and incoming cost-carrying constraint is already known, then
// propagates the new CP to its outgoing links' UCP (attenuated by
// share-of-cost, and by delay since the propagated value comes from
// t-delay once that's already finalized) and to transfer constraints
// it is the source side of.
func iterateProcesses(m *model.Model, stack *expr.Stack, rate func(*expr.Program, float64) float64, procIDs, constrIDs []model.ID, knownProcCP map[model.ID]float64, knownUCP map[model.ID]float64, knownTransfer map[model.ID]float64, t int) bool {
	progressed := false
	for _, id := range procIDs {
		if _, ok := knownProcCP[id]; ok {
			continue
		}
		ref := model.Ref{Kind: model.KindProcess, ID: id}

		inflows := incomingLinks(m, ref)
		ready := true
		for _, l := range inflows {
			if _, ok := knownUCP[l.ID]; !ok {
				ready = false
				break
			}
		}
		var inConstraints []*model.Constraint
		if ready {
			for _, cid := range constrIDs {
				c := m.Constraint(cid)
				if !constraintTargets(c, ref) {
					continue
				}
				inConstraints = append(inConstraints, c)
				if _, ok := knownTransfer[cid]; !ok {
					ready = false
					break
				}
			}
		}
		if !ready {
			continue
		}

		sum := variableCostAt(stack, m, id, t)
		for _, l := range inflows {
			sum += knownUCP[l.ID]
		}
		for _, c := range inConstraints {
			sum += knownTransfer[c.ID]
		}
		sum += negativeOutputCost(stack, m, ref, t, false)

		knownProcCP[id] = sum
		progressed = true

		m.AllLinks(func(lid model.ID, l *model.Link) bool {
			if l.From != ref {
				return true
			}
			if _, ok := knownUCP[lid]; ok {
				return true
			}
			delay := l.DelayAt(stack, m, t)
			srcCP, ok := delayedProcessCP(m, id, t, delay, sum)
			if !ok {
				return true
			}
			knownUCP[lid] = srcCP * rate(l.Rate, 1) * (1 - l.ShareOfCost)
			return true
		})

		for _, cid := range constrIDs {
			if _, ok := knownTransfer[cid]; ok {
				continue
			}
			c := m.Constraint(cid)
			if c.ShareOfCost == 0 {
				continue
			}
			src := c.From
			if c.SocDirection == model.SocReverse {
				src = c.To
			}
			if src == ref {
				knownTransfer[cid] = c.ShareOfCost * sum
			}
		}
	}
	return progressed
}

// delayedProcessCP returns the CP a downstream link should see for a
// process at t, given the link's own delay: delay 0 uses the value
// just derived this round, otherwise it reads the already-finalized
// vector at t-delay (earlier timesteps are processed first).
func delayedProcessCP(m *model.Model, id model.ID, t, delay int, current float64) (float64, bool) {
	if delay == 0 {
		return current, true
	}
	v := vectorValueAt(m.Process(id).CostPrice, t-delay)
	if !v.IsReal() {
		return 0, false
	}
	return v.Number, true
}

// iterateProducts derives CP for every buffer with no inflow this
// timestep (carried forward from t-1) and every other product whose
// inflows are all known, as their flow-weighted average cost plus any
// transfer-constraint contribution.
func iterateProducts(m *model.Model, prodIDs, constrIDs []model.ID, knownProdCP map[model.ID]expr.Value, knownUCP map[model.ID]float64, knownTransfer map[model.ID]float64, t int, opts Options) bool {
	progressed := false
	for _, id := range prodIDs {
		if _, ok := knownProdCP[id]; ok {
			continue
		}
		ref := model.Ref{Kind: model.KindProduct, ID: id}
		p := m.Product(id)
		inflows := incomingLinks(m, ref)

		totalFlow := 0.0
		for _, l := range inflows {
			if flow := vectorValueAt(l.ActualFlow, t); flow.IsReal() {
				totalFlow += flow.Number
			}
		}

		hasTransfer := false
		for _, cid := range constrIDs {
			if constraintTargets(m.Constraint(cid), ref) {
				hasTransfer = true
				break
			}
		}

		if !p.SourceSink && totalFlow <= opts.Epsilon && !hasTransfer {
			if t == 0 {
				knownProdCP[id] = expr.Num(0)
				progressed = true
			} else if prev := p.CostPrice[t-1]; prev.IsReal() {
				knownProdCP[id] = prev
				progressed = true
			}
			continue
		}

		ready := true
		for _, l := range inflows {
			if _, ok := knownUCP[l.ID]; !ok {
				ready = false
				break
			}
		}
		var inConstraints []model.ID
		if ready {
			for _, cid := range constrIDs {
				if !constraintTargets(m.Constraint(cid), ref) {
					continue
				}
				inConstraints = append(inConstraints, cid)
				if _, ok := knownTransfer[cid]; !ok {
					ready = false
					break
				}
			}
		}
		if !ready {
			continue
		}

		sum := 0.0
		for _, l := range inflows {
			if flow := vectorValueAt(l.ActualFlow, t); flow.IsReal() && flow.Number > 0 {
				sum += flow.Number * knownUCP[l.ID]
			}
		}
		if totalFlow > 0 {
			sum /= totalFlow
		}
		for _, cid := range inConstraints {
			sum += knownTransfer[cid]
		}
		knownProdCP[id] = expr.Num(sum)
		progressed = true

		for _, cid := range constrIDs {
			if _, ok := knownTransfer[cid]; ok {
				continue
			}
			c := m.Constraint(cid)
			if c.ShareOfCost == 0 {
				continue
			}
			src := c.From
			if c.SocDirection == model.SocReverse {
				src = c.To
			}
			if src == ref {
				knownTransfer[cid] = c.ShareOfCost * sum
			}
		}
	}
	return progressed
}

// relaxOnce applies the first applicable fallback rule it finds —
// zero-level processes get CP 0, zero-flow links get UCP 0, links
// sourced from a buffered product take the product's prior stock
// price — and returns whether it made progress, so the caller can
// resume the main iteration with one more unknown resolved.
func relaxOnce(m *model.Model, stack *expr.Stack, rate func(*expr.Program, float64) float64, procIDs, linkIDs []model.ID, knownProcCP map[model.ID]float64, knownUCP map[model.ID]float64, t int, opts Options) bool {
	for _, id := range procIDs {
		if _, ok := knownProcCP[id]; ok {
			continue
		}
		if lvl := vectorValueAt(m.Process(id).Level, t); lvl.IsReal() && math.Abs(lvl.Number) <= opts.Epsilon {
			knownProcCP[id] = 0
			return true
		}
	}
	for _, id := range linkIDs {
		if _, ok := knownUCP[id]; ok {
			continue
		}
		l := m.Link(id)
		if flow := vectorValueAt(l.ActualFlow, t); flow.IsReal() && math.Abs(flow.Number) <= opts.Epsilon {
			knownUCP[id] = 0
			return true
		}
	}
	for _, id := range linkIDs {
		if _, ok := knownUCP[id]; ok {
			continue
		}
		l := m.Link(id)
		if l.From.Kind != model.KindProduct || t == 0 {
			continue
		}
		src := m.Product(l.From.ID)
		if src.SourceSink {
			continue
		}
		prev := src.CostPrice[t-1]
		if !prev.IsReal() {
			continue
		}
		knownUCP[id] = prev.Number * rate(l.Rate, 1)
		return true
	}
	return false
}

// highestCostPriceAt records, per product, the highest cost price
// among its cost-carrying incoming process links (rate scaled by
// share-of-cost), treating a near-zero rate as a signed infinity
// rather than dividing by it.
func highestCostPriceAt(m *model.Model, stack *expr.Stack, prodIDs []model.ID, t int) {
	for _, id := range prodIDs {
		ref := model.Ref{Kind: model.KindProduct, ID: id}
		p := m.Product(id)
		best := expr.Undefined()
		found := false

		m.AllLinks(func(_ model.ID, l *model.Link) bool {
			if l.To != ref || l.From.Kind != model.KindProcess || l.ShareOfCost == 0 {
				return true
			}
			cp := vectorValueAt(m.Process(l.From.ID).CostPrice, t)
			if !cp.IsReal() {
				return true
			}
			r := 1.0
			if l.Rate != nil {
				if v := l.Rate.Result(stack, m, t, 0); v.IsReal() {
					r = v.Number
				}
			}
			var candidate expr.Value
			switch {
			case math.Abs(r) < 1e-12:
				if cp.Number*l.ShareOfCost >= 0 {
					candidate = expr.PlusInf()
				} else {
					candidate = expr.MinusInf()
				}
			default:
				candidate = expr.Num(cp.Number * l.ShareOfCost / r)
			}
			if !found || candidate.AsFloat() > best.AsFloat() {
				best, found = candidate, true
			}
			return true
		})
		p.HighestCostPrice[t] = best
	}
}

// constraintTargets reports whether ref is the recipient of c's cost
// transfer: c.To in the forward direction, c.From when reversed.
func constraintTargets(c *model.Constraint, ref model.Ref) bool {
	if c.ShareOfCost == 0 {
		return false
	}
	if c.SocDirection == model.SocReverse {
		return c.From == ref
	}
	return c.To == ref
}

func hasIncomingLink(m *model.Model, ref model.Ref) bool {
	found := false
	m.AllLinks(func(_ model.ID, l *model.Link) bool {
		if l.To == ref {
			found = true
			return false
		}
		return true
	})
	return found
}

func hasCostConstraint(m *model.Model, constrIDs []model.ID, ref model.Ref) bool {
	for _, id := range constrIDs {
		if constraintTargets(m.Constraint(id), ref) {
			return true
		}
	}
	return false
}

func incomingLinks(m *model.Model, ref model.Ref) []*model.Link {
	var links []*model.Link
	m.AllLinks(func(_ model.ID, l *model.Link) bool {
		if l.To == ref {
			links = append(links, l)
		}
		return true
	})
	return links
}

// negativeOutputCost sums the cost a node picks up from selling into
// negative-priced outputs: level-like links scale by rate, everything
// else (the binary-trigger multipliers) scales by actual_flow over
// the node's own level, floored at 1 to avoid blowing up near zero
// level. clampPositive matches rule 3's explicit max(0, ...); the
// general iteration rule applies no such floor.
func negativeOutputCost(stack *expr.Stack, m *model.Model, ref model.Ref, t int, clampPositive bool) float64 {
	sum := 0.0
	m.AllLinks(func(_ model.ID, l *model.Link) bool {
		if l.From != ref {
			return true
		}
		price := marketPriceAt(stack, m, l.To, t)
		if !price.IsReal() || price.Number >= 0 {
			return true
		}
		r := 1.0
		if l.Rate != nil {
			if v := l.Rate.Result(stack, m, t, 0); v.IsReal() {
				r = v.Number
			}
		}
		if l.Multiplier == model.MulLevel || l.Multiplier == model.MulSum || l.Multiplier == model.MulMean {
			sum += -price.Number * r
		} else {
			lvl := levelOf(m, ref, t)
			flow := vectorValueAt(l.ActualFlow, t)
			denom := 1.0
			if lvl.IsReal() && lvl.Number > 1 {
				denom = lvl.Number
			}
			if flow.IsReal() {
				sum += -price.Number * (flow.Number / denom)
			}
		}
		return true
	})
	if clampPositive && sum < 0 {
		return 0
	}
	return sum
}

// variableCostAt returns a process's own per-unit operating cost: the
// base component of its cost price, on top of whatever its inputs and
// cost-carrying constraints contribute.
func variableCostAt(stack *expr.Stack, m *model.Model, id model.ID, t int) float64 {
	p := m.Process(id)
	if p.VariableCost == nil {
		return 0
	}
	v := p.VariableCost.Result(stack, m, t, 0)
	if !v.IsReal() {
		return 0
	}
	return v.Number
}

// marketPriceAt evaluates a product's own static Price expression
// directly, bypassing any already-propagated CostPrice — the
// derivation rules need this to price a product whose market value is
// given, not derived from its inputs.
func marketPriceAt(stack *expr.Stack, m *model.Model, ref model.Ref, t int) expr.Value {
	if ref.Kind != model.KindProduct {
		return expr.Undefined()
	}
	p := m.Product(ref.ID)
	if p == nil || p.Price == nil {
		return expr.Undefined()
	}
	return p.Price.Result(stack, m, t, 0)
}

// knownPriceOf returns the price already derived for ref this
// timestep, from the process/product maps the rules fill in as they
// run, falling back to a product's static market price.
func knownPriceOf(m *model.Model, stack *expr.Stack, ref model.Ref, knownProcCP map[model.ID]float64, knownProdCP map[model.ID]expr.Value, t int) (float64, bool) {
	switch ref.Kind {
	case model.KindProcess:
		v, ok := knownProcCP[ref.ID]
		return v, ok
	case model.KindProduct:
		if v, ok := knownProdCP[ref.ID]; ok && v.IsReal() {
			return v.Number, true
		}
		if mp := marketPriceAt(stack, m, ref, t); mp.IsReal() {
			return mp.Number, true
		}
	}
	return 0, false
}

func levelOf(m *model.Model, ref model.Ref, t int) expr.Value {
	switch ref.Kind {
	case model.KindProcess:
		if p := m.Process(ref.ID); p != nil {
			return vectorValueAt(p.Level, t)
		}
	case model.KindProduct:
		if p := m.Product(ref.ID); p != nil {
			return vectorValueAt(p.Stock, t)
		}
	}
	return expr.Undefined()
}

func vectorValueAt(vec []expr.Value, t int) expr.Value {
	if t < 0 || t >= len(vec) {
		return expr.NotComputed()
	}
	return vec[t]
}

func collectIDs(walk func(func(model.ID) bool)) []model.ID {
	var ids []model.ID
	walk(func(id model.ID) bool {
		ids = append(ids, id)
		return true
	})
	return ids
}

func growValues(vec *[]expr.Value, n int) {
	for len(*vec) < n {
		*vec = append(*vec, expr.Undefined())
	}
}
