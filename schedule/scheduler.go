// Package schedule drives the rolling-horizon block scheduler: a
// state machine stepping Idle -> Preparing -> AwaitingSolver ->
// Ingesting, repeated block by block across the run's full time span.
package schedule

import (
	"context"
	"fmt"
	"strings"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/solver"
	"github.com/linnyr-go/linnyr/tableau"
	"github.com/linnyr-go/linnyr/trace"
)

// State names one phase of the block-scheduling state machine.
type State int

const (
	Idle State = iota
	Preparing
	AwaitingSolver
	Ingesting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Preparing:
		return "Preparing"
	case AwaitingSolver:
		return "AwaitingSolver"
	case Ingesting:
		return "Ingesting"
	default:
		return "Unknown"
	}
}

// BlockResult records the outcome of one scheduled block.
type BlockResult struct {
	Start, Length int
	Status        solver.Status
	Objective     float64
}

// Scheduler runs a model's blocks in sequence, advancing
// Idle -> Preparing -> AwaitingSolver -> Ingesting for each one.
type Scheduler struct {
	Model       *model.Model
	Solver      solver.Solver
	BlockLength int
	LookAhead   int // extra timesteps appended for continuity, discarded after solving
	Tracer      *trace.Collector

	// Ignored pins the given process/product/link refs to a zero
	// bound in every block this scheduler builds, set by an experiment
	// run excluding a cluster for the active combination.
	Ignored map[model.Ref]bool

	state   State
	Results []BlockResult
}

// NewScheduler creates a Scheduler for m, solving blockLength
// timesteps at a time with lookAhead extra timesteps of horizon beyond
// each block as a rolling look-ahead window.
func NewScheduler(m *model.Model, s solver.Solver, blockLength, lookAhead int) *Scheduler {
	return &Scheduler{Model: m, Solver: s, BlockLength: blockLength, LookAhead: lookAhead, state: Idle}
}

// State returns the scheduler's current phase.
func (s *Scheduler) State() State { return s.state }

// RunBlock advances the state machine through one full block starting
// at timestep start, returning its result.
func (s *Scheduler) RunBlock(ctx context.Context, start int) (BlockResult, error) {
	if s.state != Idle {
		return BlockResult{}, fmt.Errorf("scheduler busy in state %s", s.state)
	}

	endBlock := s.Tracer.Span(trace.BlockBegin, map[string]interface{}{"start": start})

	s.state = Preparing
	length := s.BlockLength + s.LookAhead
	builder := tableau.NewBuilder(s.Model)
	builder.Tracer = s.Tracer
	builder.Ignored = s.Ignored
	problem := builder.Build(start, length)

	s.state = AwaitingSolver
	result, err := s.Solver.Solve(ctx, problem)
	if err != nil {
		s.state = Idle
		s.Tracer.Emit(trace.ErrorDiagnostic, map[string]interface{}{"message": err.Error()})
		endBlock()
		return BlockResult{}, err
	}
	s.Tracer.Emit(trace.SolverComplete, map[string]interface{}{"status": result.Status, "objective": result.Objective})

	s.state = Ingesting
	s.ingest(problem, result, start, s.BlockLength)
	s.state = Idle

	br := BlockResult{Start: start, Length: s.BlockLength, Status: result.Status, Objective: result.Objective}
	s.Results = append(s.Results, br)
	endBlock()
	s.Tracer.Emit(trace.BlockComplete, map[string]interface{}{"start": start, "status": result.Status})
	return br, nil
}

// ingest writes the solved variable values back onto the model's
// per-timestep vectors, discarding the look-ahead portion beyond
// committedLength: only the core block's solution is committed, and
// the look-ahead horizon is re-solved next block.
func (s *Scheduler) ingest(p *tableau.Problem, result solver.Result, start, committedLength int) {
	if result.Status != solver.StatusOptimal {
		return
	}
	end := start + committedLength

	s.Model.AllProcesses(func(id model.ID, proc *model.Process) bool {
		growValues(&proc.Level, end)
		growValues(&proc.On, end)
		return true
	})
	s.Model.AllProducts(func(id model.ID, prod *model.Product) bool {
		growValues(&prod.Stock, end)
		return true
	})
	s.Model.AllLinks(func(id model.ID, l *model.Link) bool {
		growValues(&l.ActualFlow, end)
		return true
	})

	for i, v := range p.Variables {
		base, t, ok := splitVarName(v.Name)
		if !ok || t < start || t >= end {
			continue
		}
		value := expr.Num(result.Values[i])

		onSuffix := strings.HasSuffix(base, "#on")
		code := strings.TrimSuffix(base, "#on")

		ref, found := s.Model.Lookup(code)
		if !found {
			continue
		}
		switch ref.Kind {
		case model.KindProcess:
			proc := s.Model.Process(ref.ID)
			if onSuffix {
				proc.On[t] = value
			} else {
				proc.Level[t] = value
			}
		case model.KindProduct:
			s.Model.Product(ref.ID).Stock[t] = value
		case model.KindLink:
			s.Model.Link(ref.ID).ActualFlow[t] = value
		}
	}
}

func growValues(vec *[]expr.Value, n int) {
	for len(*vec) < n {
		*vec = append(*vec, expr.NotComputed())
	}
}

func splitVarName(name string) (base string, t int, ok bool) {
	idx := strings.LastIndexByte(name, '@')
	if idx < 0 {
		return "", 0, false
	}
	var n int
	if _, err := fmt.Sscanf(name[idx+1:], "%d", &n); err != nil {
		return "", 0, false
	}
	return name[:idx], n, true
}
