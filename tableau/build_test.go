package tableau

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
	"github.com/linnyr-go/linnyr/model"
)

func TestBuildCreatesProcessVariablePerTimestep(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)

	problem := NewBuilder(m).Build(0, 3)

	var names []string
	for _, v := range problem.Variables {
		names = append(names, v.Name)
	}
	for tstep := 0; tstep < 3; tstep++ {
		require.Contains(t, names, fmt.Sprintf("mill@%d", tstep))
	}
}

func TestBuildIntegerProcessAddsOnVariableAndCommitRow(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("boiler", 0)
	require.NoError(t, err)
	p.Integer = true
	p.UpperBound, err = expr.Compile("5", m)
	require.NoError(t, err)

	problem := NewBuilder(m).Build(0, 1)

	found := false
	for _, v := range problem.Variables {
		if v.Name == "boiler#on@0" {
			require.Equal(t, Binary, v.Kind)
			found = true
		}
	}
	require.True(t, found, "expected an on/off commitment variable")

	foundRow := false
	for _, r := range problem.Rows {
		if r.Name == "boiler#commit@0" {
			foundRow = true
		}
	}
	require.True(t, foundRow)
}

func TestBuildLinkFlowRowTiesFlowToSourceLevel(t *testing.T) {
	m := model.New()
	proc, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	prod, err := m.AddProduct("flour")
	require.NoError(t, err)

	procRef := model.Ref{Kind: model.KindProcess, ID: proc.ID}
	prodRef := model.Ref{Kind: model.KindProduct, ID: prod.ID}
	_, err = m.AddLink(procRef, prodRef)
	require.NoError(t, err)

	problem := NewBuilder(m).Build(0, 1)

	found := false
	for _, r := range problem.Rows {
		if r.Name == "mill___flour#flow@0" {
			found = true
			require.Equal(t, OpEQ, r.Op)
		}
	}
	require.True(t, found)
}

func TestAddFlowRowAppliesDelay(t *testing.T) {
	m := model.New()
	proc, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	prod, err := m.AddProduct("flour")
	require.NoError(t, err)

	procRef := model.Ref{Kind: model.KindProcess, ID: proc.ID}
	prodRef := model.Ref{Kind: model.KindProduct, ID: prod.ID}
	link, err := m.AddLink(procRef, prodRef)
	require.NoError(t, err)
	link.Delay, err = expr.Compile("1", m)
	require.NoError(t, err)

	problem := NewBuilder(m).Build(0, 3)

	for _, r := range problem.Rows {
		if r.Name != "mill___flour#flow@2" {
			continue
		}
		var srcCoeff float64
		for _, v := range problem.Variables {
			if v.Name == "mill@1" {
				srcCoeff = r.Terms[v.Index]
			}
		}
		require.Equal(t, -1.0, srcCoeff, "flow at t=2 should reference the source level at t=1")
	}
}

func TestAddFlowRowStartUpMultiplierCouplesToStartUpVariable(t *testing.T) {
	m := model.New()
	proc, err := m.AddProcess("boiler", 0)
	require.NoError(t, err)
	proc.UpperBound, err = expr.Compile("5", m)
	require.NoError(t, err)
	prod, err := m.AddProduct("signal")
	require.NoError(t, err)

	procRef := model.Ref{Kind: model.KindProcess, ID: proc.ID}
	prodRef := model.Ref{Kind: model.KindProduct, ID: prod.ID}
	link, err := m.AddLink(procRef, prodRef)
	require.NoError(t, err)
	link.Multiplier = model.MulStartUp

	problem := NewBuilder(m).Build(0, 1)

	var flowRow *Row
	for i, r := range problem.Rows {
		if r.Name == "boiler___signal#flow@0" {
			flowRow = &problem.Rows[i]
		}
	}
	require.NotNil(t, flowRow)

	var startUpIdx = -1
	for _, v := range problem.Variables {
		if v.Name == "boiler#start_up@0" {
			startUpIdx = v.Index
		}
	}
	require.NotEqual(t, -1, startUpIdx)
	require.Equal(t, -1.0, flowRow.Terms[startUpIdx])
}

func TestAddBoundLineRespectsLEBoundType(t *testing.T) {
	m := model.New()
	a, err := m.AddProcess("a", 0)
	require.NoError(t, err)
	b, err := m.AddProcess("b", 0)
	require.NoError(t, err)

	aRef := model.Ref{Kind: model.KindProcess, ID: a.ID}
	bRef := model.Ref{Kind: model.KindProcess, ID: b.ID}
	c, err := m.AddConstraint(aRef, bRef)
	require.NoError(t, err)
	c.BoundType = model.BoundLE
	c.Points = []model.Point{{X: 0, Y: 0}, {X: 10, Y: 5}}

	problem := NewBuilder(m).Build(0, 1)

	found := false
	for _, r := range problem.Rows {
		if r.Name == "a____b#y@0" {
			require.Equal(t, OpLE, r.Op)
			found = true
		}
	}
	require.True(t, found)
}

func TestAddBoundLineEncodesSOS2(t *testing.T) {
	m := model.New()
	a, err := m.AddProcess("a", 0)
	require.NoError(t, err)
	b, err := m.AddProcess("b", 0)
	require.NoError(t, err)

	aRef := model.Ref{Kind: model.KindProcess, ID: a.ID}
	bRef := model.Ref{Kind: model.KindProcess, ID: b.ID}
	c, err := m.AddConstraint(aRef, bRef)
	require.NoError(t, err)
	c.Points = []model.Point{{X: 0, Y: 0}, {X: 10, Y: 5}, {X: 20, Y: 5}}

	problem := NewBuilder(m).Build(0, 1)
	require.Len(t, problem.SOS2Sets, 1)
	require.Len(t, problem.SOS2Sets[0].Vars, 3)
}

func TestIgnoredEntityIsPinnedToZeroBound(t *testing.T) {
	m := model.New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.UpperBound, err = expr.Compile("10", m)
	require.NoError(t, err)

	b := NewBuilder(m)
	b.Ignored = map[model.Ref]bool{{Kind: model.KindProcess, ID: p.ID}: true}
	problem := b.Build(0, 1)

	for _, v := range problem.Variables {
		if v.Name == "mill@0" {
			require.Equal(t, 0.0, v.LB)
			require.Equal(t, 0.0, v.UB)
			return
		}
	}
	t.Fatal("mill@0 variable not found")
}
