package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
	"github.com/linnyr-go/linnyr/schedule"
	"github.com/linnyr-go/linnyr/solver"
)

func TestRunRejectsNonOrthogonalDimensions(t *testing.T) {
	m := model.New()
	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{
		{Name: "a", Settings: []string{"low", "high"}},
		{Name: "b", Settings: []string{"low"}},
	}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	err := Run(context.Background(), e, m, sched, 1, func(*model.Model, string) error { return nil })
	require.Error(t, err)
}

func TestRunExecutesEveryCombination(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)

	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{
		{Name: "demand", Settings: []string{"low", "high"}},
	}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	applied := map[string]int{}
	runErr := Run(context.Background(), e, m, sched, 2, func(_ *model.Model, selector string) error {
		applied[selector]++
		return nil
	})
	require.NoError(t, runErr)
	require.Len(t, e.Runs, 2)
	require.Equal(t, 1, applied["low"])
	require.Equal(t, 1, applied["high"])
	for _, run := range e.Runs {
		require.True(t, run.Feasible)
	}
}

func TestRunRecordsApplyFailureAsInfeasible(t *testing.T) {
	m := model.New()
	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{{Name: "demand", Settings: []string{"bad"}}}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	err := Run(context.Background(), e, m, sched, 1, func(*model.Model, string) error {
		return require.AnError
	})
	require.NoError(t, err)
	require.Len(t, e.Runs, 1)
	require.False(t, e.Runs[0].Feasible)
}

func TestRunAppliesAndRestoresSettingsOverride(t *testing.T) {
	m := model.New()
	m.Settings.BlockLength = 168
	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{
		{Name: "window", Settings: []string{"b=6 l=2"}},
		{Name: "probe", Settings: []string{"check"}},
	}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	var seenDuringRun int
	runErr := Run(context.Background(), e, m, sched, 1, func(mm *model.Model, selector string) error {
		seenDuringRun = mm.Settings.BlockLength
		return nil
	})
	require.NoError(t, runErr)
	require.Equal(t, 6, seenDuringRun)
	require.Equal(t, 168, m.Settings.BlockLength)
}

func TestRunAppliesAndRestoresActorWeightOverride(t *testing.T) {
	m := model.New()
	a, err := m.AddActor("owner")
	require.NoError(t, err)

	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{
		{Name: "weighting", Settings: []string{"owner=2"}},
		{Name: "probe", Settings: []string{"check"}},
	}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	var weightDuringRun *expr.Program
	runErr := Run(context.Background(), e, m, sched, 1, func(*model.Model, string) error {
		weightDuringRun = a.Weight
		return nil
	})
	require.NoError(t, runErr)
	require.NotNil(t, weightDuringRun)
	require.Nil(t, a.Weight)
}

func TestRunRecordsChartStatsAndRLE(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)

	chart := m.AddChart("production")
	chart.Series = append(chart.Series, model.ChartSeries{
		Target: model.Ref{Kind: model.KindProcess, ID: p.ID},
		Attr:   model.AttrLevel,
		Label:  "mill level",
	})

	e := model.NewExperiment(1, "exp", "exp")
	e.Charts = []model.ID{chart.ID}
	e.Dimensions = []model.Dimension{{Name: "demand", Settings: []string{"low"}}}
	sched := schedule.NewScheduler(m, solver.GreedyBounds{}, 1, 0)

	runErr := Run(context.Background(), e, m, sched, 1, func(*model.Model, string) error { return nil })
	require.NoError(t, runErr)
	require.Len(t, e.Runs, 1)
	require.Len(t, e.Runs[0].Results, 1)
	require.Equal(t, "mill level", e.Runs[0].Results[0].Name)
	require.NotEmpty(t, e.Runs[0].Results[0].Vector)
}
