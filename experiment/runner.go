// Package experiment runs the Cartesian-product sweep over an
// experiment's dimensions: one full schedule run per combination of
// dimension settings, rejecting non-orthogonal dimension sets before
// running anything. Combinations are validated and enumerated up
// front, then executed one at a time, saving and restoring every
// piece of model state a combination may override.
package experiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/schedule"
	"github.com/linnyr-go/linnyr/trace"
)

// ApplySetting activates one combination token as a dataset modifier
// selector, the fallback used whenever the token doesn't parse as a
// recognized settings or actor-weight override. It returns an error if
// the selector names no known modifier on any dataset.
type ApplySetting func(m *model.Model, selector string) error

// RLEPrecision is the number of decimal places a run's chart variables
// are rounded to before run-length encoding.
const RLEPrecision = 4

// timeUnitCodes maps the one-letter suffix an "s=" time-scale override
// carries to the model's full unit name.
var timeUnitCodes = map[byte]string{
	's': "second",
	'm': "minute",
	'h': "hour",
	'd': "day",
	'w': "week",
	'y': "year",
}

// Run executes every combination of e's dimensions against m, applying
// each combination's settings before a run and driving sched across
// the model's full time span [0, horizon). Model settings, actor
// weight overrides and cluster-ignore state are saved before each
// combination and restored after, including a combination left
// unfinished when ctx is cancelled. It returns early with an error if
// e's dimensions are not mutually orthogonal.
func Run(ctx context.Context, e *model.Experiment, m *model.Model, sched *schedule.Scheduler, horizon int, apply ApplySetting) error {
	if ok, a, b, selector := e.CheckOrthogonal(); !ok {
		return fmt.Errorf("experiment %q: dimensions %q and %q both drive selector %q", e.Name, a, b, selector)
	}

	combos := e.Combinations()
	for i, combo := range combos {
		if err := ctx.Err(); err != nil {
			sched.Tracer.Emit(trace.ErrorDiagnostic, map[string]interface{}{"message": "experiment cancelled: " + err.Error()})
			return err
		}

		sched.Tracer.Emit(trace.ExperimentRun, map[string]interface{}{"index": i, "combination": combo})

		saved := saveState(m, sched)
		run := runCombination(ctx, e, m, sched, horizon, apply, combo)
		run.Number = i
		restoreState(m, sched, saved)

		e.Runs = append(e.Runs, run)
	}
	sched.Tracer.Emit(trace.ExperimentDone, map[string]interface{}{"count": len(e.Runs)})
	return nil
}

func runCombination(ctx context.Context, e *model.Experiment, m *model.Model, sched *schedule.Scheduler, horizon int, apply ApplySetting, combo []string) *model.ExperimentRun {
	run := &model.ExperimentRun{Combination: combo, Feasible: true, Started: time.Now()}

	for _, code := range e.IgnoredClusters(combo) {
		if ref, ok := m.Lookup(code); ok && ref.Kind == model.KindCluster {
			ignoreCluster(sched, m, m.Cluster(ref.ID))
		}
	}

	for _, setting := range combo {
		if err := applyCombinationSetting(m, apply, setting); err != nil {
			run.Feasible = false
			run.Messages = append(run.Messages, err.Error())
			run.Recorded = time.Now()
			return run
		}
	}

	var objective float64
	for start := 0; start < horizon; start += sched.BlockLength {
		if err := ctx.Err(); err != nil {
			run.Feasible = false
			run.Messages = append(run.Messages, err.Error())
			break
		}
		result, err := sched.RunBlock(ctx, start)
		if err != nil {
			run.Feasible = false
			run.Messages = append(run.Messages, err.Error())
			sched.Tracer.Emit(trace.ErrorDiagnostic, map[string]interface{}{"message": err.Error()})
			break
		}
		objective += result.Objective
	}
	run.Objective = objective
	run.Results = recordCharts(m, e, horizon)
	run.Recorded = time.Now()
	return run
}

// ignoreCluster marks cluster and any cluster nested within it ignored
// on sched, so the next block it builds pins their members' bounds to
// zero.
func ignoreCluster(sched *schedule.Scheduler, m *model.Model, cluster *model.Cluster) {
	if cluster == nil {
		return
	}
	if sched.Ignored == nil {
		sched.Ignored = map[model.Ref]bool{}
	}
	markMembers(sched.Ignored, m, cluster, map[model.ID]bool{})
}

func markMembers(ignored map[model.Ref]bool, m *model.Model, cluster *model.Cluster, seen map[model.ID]bool) {
	if cluster == nil || seen[cluster.ID] {
		return
	}
	seen[cluster.ID] = true
	for _, ref := range cluster.Members {
		ignored[ref] = true
		if ref.Kind == model.KindCluster {
			markMembers(ignored, m, m.Cluster(ref.ID), seen)
		}
	}
}

// recordCharts evaluates every series of every chart e tracks over
// [0, horizon) and reduces each to its descriptive statistics and a
// run-length-encoded vector.
func recordCharts(m *model.Model, e *model.Experiment, horizon int) []model.VariableResult {
	if len(e.Charts) == 0 {
		return nil
	}
	stack := expr.NewStack()
	var results []model.VariableResult
	for _, chartID := range e.Charts {
		chart := m.Chart(chartID)
		if chart == nil {
			continue
		}
		for _, series := range chart.Series {
			vec := make([]expr.Value, horizon)
			for t := 0; t < horizon; t++ {
				vec[t] = m.ValueOf(stack, series.Target, series.Attr, t)
			}
			label := series.Label
			if label == "" {
				label = m.CodeOf(series.Target)
			}
			results = append(results, model.VariableResult{
				Name:   label,
				Stats:  model.ComputeStats(vec),
				Vector: model.EncodeRLE(vec, RLEPrecision),
			})
		}
	}
	return results
}

// savedState is the subset of model/scheduler state a combination may
// override, restored verbatim once the combination's run completes.
type savedState struct {
	settings model.Settings
	weights  map[model.ID]*expr.Program
	ignored  map[model.Ref]bool
}

func saveState(m *model.Model, sched *schedule.Scheduler) savedState {
	weights := map[model.ID]*expr.Program{}
	m.AllActors(func(id model.ID, a *model.Actor) bool {
		weights[id] = a.Weight
		return true
	})
	ignored := map[model.Ref]bool{}
	for ref, v := range sched.Ignored {
		ignored[ref] = v
	}
	return savedState{settings: m.Settings, weights: weights, ignored: ignored}
}

func restoreState(m *model.Model, sched *schedule.Scheduler, saved savedState) {
	m.Settings = saved.settings
	m.AllActors(func(id model.ID, a *model.Actor) bool {
		a.Weight = saved.weights[id]
		return true
	})
	sched.Ignored = saved.ignored
}

// applyCombinationSetting dispatches one combination token. A token
// string may bundle several space-separated overrides (e.g.
// "b=6 l=2 t=1-24"); if every sub-token parses as a recognized
// settings or actor-weight override, all of them are applied.
// Otherwise the whole string is handed to apply as a single dataset
// modifier selector, so selectors that themselves contain spaces
// (e.g. a wildcard equation match like "q 1") still work.
func applyCombinationSetting(m *model.Model, apply ApplySetting, setting string) error {
	tokens := strings.Fields(setting)
	if len(tokens) == 0 {
		return nil
	}
	overrides := make([]func(), 0, len(tokens))
	for _, tok := range tokens {
		fn, ok, err := parseOverrideToken(m, tok)
		if err != nil {
			return err
		}
		if !ok {
			overrides = nil
			break
		}
		overrides = append(overrides, fn)
	}
	if overrides != nil {
		for _, fn := range overrides {
			fn()
		}
		return nil
	}
	if apply == nil {
		return fmt.Errorf("no dataset modifier selector handler registered for %q", setting)
	}
	return apply(m, setting)
}

// parseOverrideToken recognizes "b=", "l=", "t=start-end", "s=value"
// settings overrides and "actorcode=weight" actor-weight overrides,
// returning a closure that applies the override without mutating m
// itself, so a partially-recognized setting string can still be
// rejected as a whole and fall through to apply.
func parseOverrideToken(m *model.Model, tok string) (applyFn func(), ok bool, err error) {
	key, value, found := strings.Cut(tok, "=")
	if !found {
		return nil, false, nil
	}
	switch key {
	case "b":
		n, perr := strconv.Atoi(value)
		if perr != nil {
			return nil, false, fmt.Errorf("invalid block-length override %q: %w", tok, perr)
		}
		return func() { m.Settings.BlockLength = n }, true, nil
	case "l":
		n, perr := strconv.Atoi(value)
		if perr != nil {
			return nil, false, fmt.Errorf("invalid look-ahead override %q: %w", tok, perr)
		}
		return func() { m.Settings.LookAheadPeriod = n }, true, nil
	case "t":
		start, end, perr := parseRange(value)
		if perr != nil {
			return nil, false, fmt.Errorf("invalid period override %q: %w", tok, perr)
		}
		return func() { m.Settings.StartPeriod, m.Settings.EndPeriod = start, end }, true, nil
	case "s":
		scale, unit, perr := parseTimeScale(value)
		if perr != nil {
			return nil, false, fmt.Errorf("invalid time-scale override %q: %w", tok, perr)
		}
		return func() { m.Settings.TimeScale, m.Settings.TimeUnit = scale, unit }, true, nil
	}

	ref, found := m.Lookup(key)
	if !found || ref.Kind != model.KindActor {
		return nil, false, nil
	}
	prog, cerr := expr.Compile(value, m)
	if cerr != nil {
		return nil, false, fmt.Errorf("invalid actor weight override %q: %w", tok, cerr)
	}
	actor := m.Actor(ref.ID)
	return func() { actor.Weight = prog }, true, nil
}

func parseRange(value string) (start, end int, err error) {
	a, b, found := strings.Cut(value, "-")
	if !found {
		n, perr := strconv.Atoi(value)
		return n, n, perr
	}
	start, err = strconv.Atoi(a)
	if err != nil {
		return 0, 0, err
	}
	end, err = strconv.Atoi(b)
	return start, end, err
}

func parseTimeScale(value string) (scale float64, unit string, err error) {
	if value == "" {
		return 0, "", fmt.Errorf("empty time-scale value")
	}
	suffix := value[len(value)-1]
	unitName, ok := timeUnitCodes[suffix]
	if !ok {
		return 0, "", fmt.Errorf("unrecognized time unit %q", string(suffix))
	}
	numPart := value[:len(value)-1]
	if numPart == "" {
		numPart = "1"
	}
	scale, err = strconv.ParseFloat(numPart, 64)
	if err != nil {
		return 0, "", err
	}
	return scale, unitName, nil
}
