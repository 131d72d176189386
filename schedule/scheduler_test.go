package schedule

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/solver"
)

func TestRunBlockIngestsProcessLevel(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)
	p.LowerBound, err = expr.Compile("2", m)
	require.NoError(t, err)
	p.VariableCost, err = expr.Compile("1", m)
	require.NoError(t, err)

	sched := NewScheduler(m, solver.GreedyBounds{}, 2, 0)
	result, err := sched.RunBlock(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, solver.StatusOptimal, result.Status)
	require.Equal(t, Idle, sched.State())

	// positive cost means GreedyBounds drives the level to its lower bound.
	require.True(t, p.Level[0].IsReal())
	require.Equal(t, 2.0, p.Level[0].Number)
	require.True(t, p.Level[1].IsReal())
	require.Equal(t, 2.0, p.Level[1].Number)
}

func TestRunBlockRoutesIntegerCommitmentToOnVector(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("boiler", 0)
	require.NoError(t, err)
	p.Integer = true
	p.UpperBound, err = expr.Compile("5", m)
	require.NoError(t, err)
	p.FixedCost, err = expr.Compile("-1", m)
	require.NoError(t, err)

	sched := NewScheduler(m, solver.GreedyBounds{}, 1, 0)
	_, err = sched.RunBlock(context.Background(), 0)
	require.NoError(t, err)

	require.NotEmpty(t, p.On)
	require.True(t, p.On[0].IsReal())
	require.Equal(t, 1.0, p.On[0].Number)
}

func TestRunBlockDiscardsLookAheadTimesteps(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)

	sched := NewScheduler(m, solver.GreedyBounds{}, 1, 3)
	_, err = sched.RunBlock(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, p.Level, 1)
}

func TestRunBlockFailsWhenAlreadyBusy(t *testing.T) {
	m := model.New()
	sched := NewScheduler(m, solver.GreedyBounds{}, 1, 0)
	sched.state = Preparing

	_, err := sched.RunBlock(context.Background(), 0)
	require.Error(t, err)
}
