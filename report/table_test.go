package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

func TestFormatVectorIncludesEachTimestep(t *testing.T) {
	f := NewFormatter()
	values := []expr.Value{expr.Num(1), expr.Num(2), expr.Num(3)}

	out := f.FormatVector("mill", values, 0, 3)
	require.Contains(t, out, "mill")
	require.Contains(t, out, "1")
	require.Contains(t, out, "2")
	require.Contains(t, out, "3")
}

func TestFormatVectorTruncatesBeyondMaxRows(t *testing.T) {
	f := &Formatter{MaxRows: 2}
	values := []expr.Value{expr.Num(1), expr.Num(2), expr.Num(3), expr.Num(4)}

	out := f.FormatVector("mill", values, 0, 4)
	require.True(t, strings.Contains(out, "2 of 4 rows shown"))
}

func TestFormatExperimentListsDimensionsAndObjective(t *testing.T) {
	f := NewFormatter()
	e := model.NewExperiment(1, "exp", "exp")
	e.Dimensions = []model.Dimension{{Name: "demand", Settings: []string{"low"}}}
	e.Runs = []*model.ExperimentRun{{Combination: []string{"low"}, Objective: 42, Feasible: true}}

	out := f.FormatExperiment(e)
	require.Contains(t, out, "demand")
	require.Contains(t, out, "low")
	require.Contains(t, out, "42")
}
