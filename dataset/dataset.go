// Package dataset implements time series with modifiers (including
// wildcard equations), scaling to the model's own timestep duration,
// and periodic/array raw-data handling.
package dataset

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/linnyr-go/linnyr/expr"
)

// Interpolation selects how ComputeVector scales a dataset's raw data,
// sampled at its own timestep duration (Dt), onto the model's
// timestep grid.
type Interpolation int

const (
	// Nearest samples the raw point closest to the model step's
	// midpoint.
	Nearest Interpolation = iota
	// WMean averages every raw sample overlapping the model step,
	// weighted by the fraction of the step each sample covers.
	WMean
	// WSum sums every overlapping raw sample's weighted contribution —
	// the right choice for extensive quantities (energy, cost) rather
	// than rates.
	WSum
	// Max takes the largest raw sample overlapping the model step.
	Max
)

// Modifier binds a selector (a literal name or a wildcard pattern such
// as "q ??") to a compiled expression. A dataset's reserved "Equations"
// role is just a Dataset whose every Modifier carries a wildcard
// selector.
type Modifier struct {
	Selector string
	Expr     *expr.Program

	re       *regexp.Regexp // nil for a non-wildcard (literal) selector
	literals int             // count of literal (non-wildcard) runes, for specificity ranking
}

// Dataset is one named time series plus its modifiers. Raw data is a
// finite real sequence sampled every Dt model-time-units; ComputeVector
// produces the model-timestep-aligned value for an absolute timestep
// by one of the four Interpolation methods, unless Array is set, in
// which case raw data is indexed directly with no scaling at all.
type Dataset struct {
	Name         string
	Unit         string
	DefaultValue float64
	HasDefault   bool
	Interp       Interpolation
	Periodic     bool
	Array        bool

	// Dt is the raw data's own sampling interval, in the same time
	// unit as the model's timestep; 1 means the dataset is already
	// sampled once per model step.
	Dt float64

	// Data holds the raw sequence in ascending index order, dense —
	// index i is the sample taken at time i*Dt from the dataset's own
	// origin.
	Data []float64

	Modifiers []*Modifier
}

// NewDataset constructs an empty dataset sampled once per model step,
// using nearest-point scaling as the default.
func NewDataset(name string) *Dataset {
	return &Dataset{Name: name, Interp: Nearest, Dt: 1}
}

var wildcardRe = regexp.MustCompile(`\?\??`)

// compilePattern turns a selector containing "?" (single digit) and/or
// "??" (multi-digit) wildcards into an anchored regexp capturing the
// wildcard's numeric text, plus a specificity score (count of literal,
// non-wildcard characters — more literal characters means a more
// specific pattern, and the most specific selector wins).
func compilePattern(selector string) (*regexp.Regexp, int) {
	var b strings.Builder
	b.WriteString("^")
	literals := 0
	rest := selector
	for len(rest) > 0 {
		loc := wildcardRe.FindStringIndex(rest)
		if loc == nil {
			b.WriteString(regexp.QuoteMeta(rest))
			literals += len(rest)
			break
		}
		if loc[0] > 0 {
			lit := rest[:loc[0]]
			b.WriteString(regexp.QuoteMeta(lit))
			literals += len(lit)
		}
		if loc[1]-loc[0] == 1 {
			b.WriteString(`(\d)`)
		} else {
			b.WriteString(`(\d+)`)
		}
		rest = rest[loc[1]:]
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String()), literals
}

// AddModifier registers a new selector/expression pair on d, compiling
// a wildcard regexp when the selector contains "?" or "??".
func (d *Dataset) AddModifier(selector string, program *expr.Program) *Modifier {
	m := &Modifier{Selector: selector, Expr: program}
	if wildcardRe.MatchString(selector) {
		m.re, m.literals = compilePattern(selector)
	} else {
		m.literals = len(selector)
	}
	d.Modifiers = append(d.Modifiers, m)
	return m
}

// MatchModifier finds the modifier whose selector matches name exactly
// (literal modifiers) or whose wildcard pattern matches it. Literal
// selectors beat wildcard ones, and among wildcard matches the most
// specific (most literal, non-wildcard characters) wins. Returns the matched modifier
// and, for a wildcard match, the substituted wildcard number.
func (d *Dataset) MatchModifier(name string) (*Modifier, int, bool) {
	var (
		best         *Modifier
		bestWildcard int
		bestScore    = -1
	)
	for _, m := range d.Modifiers {
		if m.re == nil {
			if m.Selector == name {
				return m, 0, true // an exact literal match is never beaten
			}
			continue
		}
		sub := m.re.FindStringSubmatch(name)
		if sub == nil {
			continue
		}
		n, err := strconv.Atoi(sub[1])
		if err != nil {
			continue
		}
		if m.literals > bestScore {
			best, bestWildcard, bestScore = m, n, m.literals
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestWildcard, true
}

// MatchingModifiers returns every modifier matching name, ordered most
// specific first, for callers that need the full ranked list (e.g.
// diagnostics) rather than just the winner.
func (d *Dataset) MatchingModifiers(name string) []*Modifier {
	type scored struct {
		m     *Modifier
		score int
	}
	var hits []scored
	for _, m := range d.Modifiers {
		if m.re == nil {
			if m.Selector == name {
				hits = append(hits, scored{m, 1 << 30})
			}
			continue
		}
		if m.re.MatchString(name) {
			hits = append(hits, scored{m, m.literals})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	out := make([]*Modifier, len(hits))
	for i, h := range hits {
		out[i] = h.m
	}
	return out
}

// rawAt returns Data[i], wrapping modulo len(Data) when d is Periodic
// and i falls outside the recorded range; ok is false when i is out of
// range and d is not periodic, or Data is empty.
func (d *Dataset) rawAt(i int) (float64, bool) {
	n := len(d.Data)
	if n == 0 {
		return 0, false
	}
	if i < 0 || i >= n {
		if !d.Periodic {
			return 0, false
		}
		i = ((i % n) + n) % n
	}
	return d.Data[i], true
}

// ComputeVector returns d's value at absolute model timestep t, given
// the model's own timestep duration modelDt (in the same unit as Dt).
// Array datasets skip all scaling and index Data directly. Otherwise
// the model step [t, t+1) is mapped onto the window of raw samples it
// overlaps at the dataset's own Dt granularity, and reduced by Interp.
func (d *Dataset) ComputeVector(t int, modelDt float64) expr.Value {
	if d.Array {
		v, ok := d.rawAt(t)
		if !ok {
			return d.defaultOrUndefined(modelDt)
		}
		return expr.Num(v)
	}
	if len(d.Data) == 0 {
		return d.defaultOrUndefined(modelDt)
	}

	dt := d.Dt
	if dt <= 0 {
		dt = 1
	}
	start := float64(t) * modelDt / dt
	end := float64(t+1) * modelDt / dt

	switch d.Interp {
	case Nearest:
		idx := int(math.Round((start + end) / 2))
		v, ok := d.rawAt(idx)
		if !ok {
			return d.defaultOrUndefined(modelDt)
		}
		return expr.Num(v)

	case Max:
		lo, hi := windowBounds(start, end)
		var best float64
		found := false
		for i := lo; i < hi; i++ {
			v, ok := d.rawAt(i)
			if !ok {
				continue
			}
			if !found || v > best {
				best, found = v, true
			}
		}
		if !found {
			return d.defaultOrUndefined(modelDt)
		}
		return expr.Num(best)

	case WMean, WSum:
		lo, hi := windowBounds(start, end)
		var sum, weight float64
		for i := lo; i < hi; i++ {
			v, ok := d.rawAt(i)
			if !ok {
				continue
			}
			segStart, segEnd := math.Max(start, float64(i)), math.Min(end, float64(i+1))
			w := segEnd - segStart
			if w <= 0 {
				continue
			}
			sum += v * w
			weight += w
		}
		if weight == 0 {
			return d.defaultOrUndefined(modelDt)
		}
		if d.Interp == WMean {
			return expr.Num(sum / weight)
		}
		return expr.Num(sum)

	default:
		return d.defaultOrUndefined(modelDt)
	}
}

// windowBounds returns the half-open raw-index range [lo, hi) covering
// the continuous interval [start, end), always at least one index
// wide.
func windowBounds(start, end float64) (lo, hi int) {
	lo = int(math.Floor(start))
	hi = int(math.Ceil(end))
	if hi <= lo {
		hi = lo + 1
	}
	return lo, hi
}

// defaultOrUndefined returns DefaultValue when set, scaled by
// modelDt/Dt for a w-sum dataset since the default then represents a
// per-raw-step quantity that must be re-expressed per model step, or
// Undefined when no default was set.
func (d *Dataset) defaultOrUndefined(modelDt float64) expr.Value {
	if !d.HasDefault {
		return expr.Undefined()
	}
	v := d.DefaultValue
	if d.Interp == WSum {
		dt := d.Dt
		if dt <= 0 {
			dt = 1
		}
		v *= modelDt / dt
	}
	return expr.Num(v)
}
