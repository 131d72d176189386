package trace

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEmitRecordsEventAndCallsHandler(t *testing.T) {
	var seen []string
	c := NewCollector(func(e Event) { seen = append(seen, e.Name) })

	c.Emit(BlockBegin, map[string]interface{}{"start": 0})
	c.Emit(BlockComplete, nil)

	require.Equal(t, []string{BlockBegin, BlockComplete}, seen)
	require.Len(t, c.Events(), 2)
}

func TestCollectorWithoutHandlerStillAccumulates(t *testing.T) {
	c := NewCollector(nil)
	c.Emit(SolverInvoked, nil)
	require.Len(t, c.Events(), 1)
}

func TestSpanRecordsLatency(t *testing.T) {
	c := NewCollector(nil)
	end := c.Span(CostPriceRound, nil)
	end()

	events := c.Events()
	require.Len(t, events, 1)
	require.Equal(t, CostPriceRound, events[0].Name)
	require.True(t, events[0].Latency >= 0)
}
