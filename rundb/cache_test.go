package rundb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutThenGetRoundTrips(t *testing.T) {
	c := openTestCache(t)
	run := &model.ExperimentRun{Combination: []string{"low", "a"}, Objective: 12.5, Feasible: true}

	require.NoError(t, c.Put("exp", run))

	got, ok, err := c.Get("exp", []string{"low", "a"})
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 12.5, got.Objective)
	require.True(t, got.Feasible)
}

func TestGetMissIsNotFoundNotError(t *testing.T) {
	c := openTestCache(t)
	_, ok, err := c.Get("exp", []string{"nope"})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestInvalidateRemovesOnlyMatchingExperiment(t *testing.T) {
	c := openTestCache(t)
	require.NoError(t, c.Put("exp-a", &model.ExperimentRun{Combination: []string{"x"}, Objective: 1}))
	require.NoError(t, c.Put("exp-b", &model.ExperimentRun{Combination: []string{"x"}, Objective: 2}))

	require.NoError(t, c.Invalidate("exp-a"))

	_, ok, _ := c.Get("exp-a", []string{"x"})
	require.False(t, ok)

	_, ok, _ = c.Get("exp-b", []string{"x"})
	require.True(t, ok)
}
