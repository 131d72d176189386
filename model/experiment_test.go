package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
)

func TestCombinationsExpandsCombinationSelectors(t *testing.T) {
	e := NewExperiment(1, "exp", "exp")
	e.Dimensions = []Dimension{{Name: "scenario", Settings: []string{"busy"}}}
	e.CombinationSelectors["busy"] = []string{"b=6", "l=2"}

	combos := e.Combinations()
	require.Len(t, combos, 1)
	require.Equal(t, []string{"b=6", "l=2"}, combos[0])
}

func TestCombinationsFiltersExcludedSelectors(t *testing.T) {
	e := NewExperiment(1, "exp", "exp")
	e.Dimensions = []Dimension{
		{Name: "a", Settings: []string{"x", "y"}},
		{Name: "b", Settings: []string{"p", "q"}},
	}
	e.ExcludedSelectors = []string{"y"}

	combos := e.Combinations()
	require.Len(t, combos, 2)
	for _, c := range combos {
		require.NotContains(t, c, "y")
	}
}

func TestIgnoredClustersMatchesActiveSelectors(t *testing.T) {
	e := NewExperiment(1, "exp", "exp")
	e.ClustersToIgnore = []ClusterIgnoreRule{
		{ClusterCode: "boilers", Selectors: []string{"no-heat"}},
	}
	require.Equal(t, []string{"boilers"}, e.IgnoredClusters([]string{"no-heat", "other"}))
	require.Empty(t, e.IgnoredClusters([]string{"other"}))
}

func TestComputeStatsExcludesNonRealValues(t *testing.T) {
	vec := []expr.Value{expr.Num(1), expr.Num(3), expr.Undefined(), expr.Num(2)}
	s := ComputeStats(vec)
	require.Equal(t, 4, s.N)
	require.Equal(t, 1, s.Exceptions)
	require.InDelta(t, 6.0, s.Sum, 1e-9)
	require.InDelta(t, 2.0, s.Mean, 1e-9)
	require.InDelta(t, 1.0, s.Min, 1e-9)
	require.InDelta(t, 3.0, s.Max, 1e-9)
	require.Equal(t, 2.0, s.Last)
	require.Equal(t, 3, s.NonZero)
}

func TestEncodeRLECollapsesRepeatedRuns(t *testing.T) {
	vec := []expr.Value{expr.Num(1), expr.Num(1), expr.Num(1), expr.Num(2)}
	require.Equal(t, "3x1.0000;2.0000", EncodeRLE(vec, 4))
}

func TestEncodeRLEEmptyVector(t *testing.T) {
	require.Equal(t, "", EncodeRLE(nil, 4))
}
