package dataset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
)

func TestComputeVectorNearestSamplesClosestRawPoint(t *testing.T) {
	d := NewDataset("demand")
	d.Data = []float64{10, 20, 30}

	v := d.ComputeVector(0, 1)
	require.True(t, v.IsReal())
	require.Equal(t, 20.0, v.Number)
}

func TestComputeVectorMaxTakesLargestOverlappingSample(t *testing.T) {
	d := NewDataset("demand")
	d.Interp = Max
	d.Dt = 1
	d.Data = []float64{10, 30, 20}

	// modelDt=3 with Dt=1 means model step 0 spans raw indices [0,3).
	v := d.ComputeVector(0, 3)
	require.True(t, v.IsReal())
	require.Equal(t, 30.0, v.Number)
}

func TestComputeVectorWMeanAveragesOverlappingSamples(t *testing.T) {
	d := NewDataset("demand")
	d.Interp = WMean
	d.Dt = 1
	d.Data = []float64{10, 20, 30, 40}

	v := d.ComputeVector(0, 2)
	require.True(t, v.IsReal())
	require.Equal(t, 15.0, v.Number)
}

func TestComputeVectorWSumScalesDefaultByDtRatio(t *testing.T) {
	d := NewDataset("demand")
	d.Interp = WSum
	d.Dt = 2
	d.HasDefault = true
	d.DefaultValue = 10

	// No raw data recorded at all, so this exercises the default path:
	// a model step twice as long as a missing raw step should double.
	v := d.ComputeVector(0, 4)
	require.True(t, v.IsReal())
	require.Equal(t, 20.0, v.Number)
}

func TestComputeVectorPeriodicWrapsRawIndex(t *testing.T) {
	d := NewDataset("demand")
	d.Periodic = true
	d.Data = []float64{1, 2, 3}

	v := d.ComputeVector(3, 1)
	require.True(t, v.IsReal())
	require.Equal(t, 2.0, v.Number)
}

func TestComputeVectorArraySkipsScaling(t *testing.T) {
	d := NewDataset("demand")
	d.Array = true
	d.Data = []float64{5, 6, 7}

	v := d.ComputeVector(2, 100)
	require.True(t, v.IsReal())
	require.Equal(t, 7.0, v.Number)
}

func TestComputeVectorOutsideSpanFallsBackToDefault(t *testing.T) {
	d := NewDataset("demand")
	d.HasDefault = true
	d.DefaultValue = -1

	v := d.ComputeVector(100, 1)
	require.True(t, v.IsReal())
	require.Equal(t, -1.0, v.Number)
}

func TestComputeVectorOutsideSpanNoDefaultIsUndefined(t *testing.T) {
	d := NewDataset("demand")
	d.Data = []float64{10}

	v := d.ComputeVector(100, 1)
	require.Equal(t, expr.KindUndefined, v.Kind)
}

func TestMatchModifierExactBeatsWildcard(t *testing.T) {
	d := NewDataset("q")
	d.AddModifier("q ??", nil)
	exact := d.AddModifier("q 7", nil)

	m, wildcard, ok := d.MatchModifier("q 7")
	require.True(t, ok)
	require.Same(t, exact, m)
	require.Equal(t, 0, wildcard)
}

func TestMatchModifierWildcardExtractsNumber(t *testing.T) {
	d := NewDataset("q")
	d.AddModifier("q ??", nil)

	m, wildcard, ok := d.MatchModifier("q 42")
	require.True(t, ok)
	require.NotNil(t, m)
	require.Equal(t, 42, wildcard)
}

func TestMatchModifierMostSpecificWildcardWins(t *testing.T) {
	d := NewDataset("q")
	d.AddModifier("q ??", nil)
	specific := d.AddModifier("q prefix-??", nil)

	m, _, ok := d.MatchModifier("q prefix-9")
	require.True(t, ok)
	require.Same(t, specific, m)
}

func TestMatchModifierNoMatch(t *testing.T) {
	d := NewDataset("q")
	d.AddModifier("q ??", nil)

	_, _, ok := d.MatchModifier("other")
	require.False(t, ok)
}
