package model

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/linnyr-go/linnyr/expr"
)

// Dimension is one axis of an experiment's Cartesian product: a named
// set of selectors, each either a dataset modifier selector, a
// settings-override token (e.g. "b=6 l=2 t=1-24", "s=1h"), or an
// actor-weight override ("actorcode=1.2").
type Dimension struct {
	Name     string
	Settings []string
}

// ClusterIgnoreRule names a cluster that is excluded from the run
// whenever the active combination includes any of Selectors.
type ClusterIgnoreRule struct {
	ClusterCode string
	Selectors   []string
}

// Experiment runs the Cartesian product of its Dimensions, once per
// combination, minus ExcludedSelectors and with CombinationSelectors
// expanded in place.
type Experiment struct {
	ID         ID
	Code       string
	Name       string
	Dimensions []Dimension
	Charts     []ID

	// ExcludedSelectors names selectors that may never appear together
	// with any other selector in a combination: a combination
	// containing one is skipped entirely.
	ExcludedSelectors []string

	// CombinationSelectors maps a selector name to the tuple of plain
	// selectors it expands to, applied wherever that name appears in a
	// combination. Expansion is transitive but must never introduce two
	// selectors belonging to the same dimension.
	CombinationSelectors map[string][]string

	ClustersToIgnore []ClusterIgnoreRule

	Runs []*ExperimentRun
}

func NewExperiment(id ID, code, name string) *Experiment {
	return &Experiment{ID: id, Code: code, Name: name, CombinationSelectors: map[string][]string{}}
}

// Stats is the descriptive-statistics snapshot recorded for one
// variable's vector at the end of a run: N, sum, mean, variance, min,
// max, a non-zero tally, an exception tally (timesteps whose value
// fell outside the real-number domain), and the last value.
type Stats struct {
	N          int
	Sum        float64
	Mean       float64
	Variance   float64
	Min        float64
	Max        float64
	NonZero    int
	Exceptions int
	Last       float64
}

// ComputeStats reduces vec to its descriptive statistics. Non-real
// values (UNDEFINED, the infinities, NO_COST, solver errors) count as
// exceptions and are excluded from sum/mean/variance/min/max.
func ComputeStats(vec []expr.Value) Stats {
	var s Stats
	s.N = len(vec)
	if s.N == 0 {
		return s
	}
	s.Min, s.Max = math.Inf(1), math.Inf(-1)
	realCount := 0
	for _, v := range vec {
		if !v.IsReal() {
			s.Exceptions++
			continue
		}
		realCount++
		s.Sum += v.Number
		if v.Number != 0 {
			s.NonZero++
		}
		if v.Number < s.Min {
			s.Min = v.Number
		}
		if v.Number > s.Max {
			s.Max = v.Number
		}
	}
	if realCount > 0 {
		s.Mean = s.Sum / float64(realCount)
		var sq float64
		for _, v := range vec {
			if v.IsReal() {
				d := v.Number - s.Mean
				sq += d * d
			}
		}
		s.Variance = sq / float64(realCount)
	} else {
		s.Min, s.Max = 0, 0
	}
	if last := vec[len(vec)-1]; last.IsReal() {
		s.Last = last.Number
	}
	return s
}

// VariableResult is one chart variable or outcome dataset/equation's
// recorded result for a single experiment run: its descriptive
// statistics plus the full time series, run-length encoded.
type VariableResult struct {
	Name   string
	Stats  Stats
	Vector string // run-length-encoded, see EncodeRLE
}

// ExperimentRun is the result of evaluating the model under one
// combination of dimension settings.
type ExperimentRun struct {
	Number      int
	Combination []string // settings in dimension order; a combination selector contributes every setting it expands to
	Started     time.Time
	Recorded    time.Time
	Objective   float64
	Feasible    bool
	Messages    []string
	Results     []VariableResult
}

// EncodeRLE run-length-encodes vec as semicolon-separated "Nxv"
// groups (N repetitions of value v), rounding each value to precision
// decimal places before comparing runs for equality.
func EncodeRLE(vec []expr.Value, precision int) string {
	if len(vec) == 0 {
		return ""
	}
	format := func(v expr.Value) string {
		if !v.IsReal() {
			return v.String()
		}
		return strconv.FormatFloat(v.Number, 'f', precision, 64)
	}
	var groups []string
	run := 1
	cur := format(vec[0])
	for i := 1; i < len(vec); i++ {
		next := format(vec[i])
		if next == cur {
			run++
			continue
		}
		groups = append(groups, rleGroup(run, cur))
		cur, run = next, 1
	}
	groups = append(groups, rleGroup(run, cur))
	return strings.Join(groups, ";")
}

func rleGroup(n int, v string) string {
	if n == 1 {
		return v
	}
	return fmt.Sprintf("%dx%s", n, v)
}

// Combinations returns the full Cartesian product of e's dimensions'
// selectors, in dimension-major, settings-minor lexicographic order,
// with CombinationSelectors expanded in place and any combination
// touching an ExcludedSelectors entry dropped.
func (e *Experiment) Combinations() [][]string {
	if len(e.Dimensions) == 0 {
		return nil
	}
	combos := [][]string{{}}
	for _, dim := range e.Dimensions {
		var next [][]string
		for _, c := range combos {
			for _, s := range dim.Settings {
				cc := append(append([]string{}, c...), s)
				next = append(next, cc)
			}
		}
		combos = next
	}

	var result [][]string
	for _, c := range combos {
		expanded := e.expandCombination(c)
		if e.isExcluded(expanded) {
			continue
		}
		result = append(result, expanded)
	}
	return result
}

func (e *Experiment) expandCombination(combo []string) []string {
	var expanded []string
	for _, s := range combo {
		expanded = append(expanded, e.expandSelector(s, map[string]bool{})...)
	}
	return expanded
}

// expandSelector resolves s through CombinationSelectors transitively,
// guarding against cycles with seen.
func (e *Experiment) expandSelector(s string, seen map[string]bool) []string {
	tuple, ok := e.CombinationSelectors[s]
	if !ok || seen[s] {
		return []string{s}
	}
	seen[s] = true
	var out []string
	for _, t := range tuple {
		out = append(out, e.expandSelector(t, seen)...)
	}
	return out
}

func (e *Experiment) isExcluded(combo []string) bool {
	for _, excluded := range e.ExcludedSelectors {
		for _, s := range combo {
			if s == excluded {
				return true
			}
		}
	}
	return false
}

// IgnoredClusters returns the cluster codes this combination marks
// ignored: every ClusterIgnoreRule whose Selectors intersect combo.
func (e *Experiment) IgnoredClusters(combo []string) []string {
	active := map[string]bool{}
	for _, s := range combo {
		active[s] = true
	}
	var codes []string
	for _, rule := range e.ClustersToIgnore {
		for _, s := range rule.Selectors {
			if active[s] {
				codes = append(codes, rule.ClusterCode)
				break
			}
		}
	}
	return codes
}

// CheckOrthogonal reports whether e's dimensions are mutually
// orthogonal: no two dimensions may modify the same selector. It
// returns the two colliding dimension names when it isn't.
func (e *Experiment) CheckOrthogonal() (ok bool, dimA, dimB, selector string) {
	seen := map[string]string{} // selector -> owning dimension name
	for _, dim := range e.Dimensions {
		for _, s := range dim.Settings {
			if owner, exists := seen[s]; exists && owner != dim.Name {
				return false, owner, dim.Name, s
			}
			seen[s] = dim.Name
		}
	}
	return true, "", "", ""
}
