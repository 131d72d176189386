package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/expr"
)

func TestAddProcessIsIdempotent(t *testing.T) {
	m := New()
	p1, err := m.AddProcess("Mill", 0)
	require.NoError(t, err)

	p2, err := m.AddProcess("Mill", 0)
	require.Error(t, err)
	require.Same(t, p1, p2)
}

func TestAddLinkRejectsDuplicate(t *testing.T) {
	m := New()
	from, _ := m.AddProduct("coal")
	to, _ := m.AddProcess("plant", 0)
	fromRef := Ref{Kind: KindProduct, ID: from.ID}
	toRef := Ref{Kind: KindProcess, ID: to.ID}

	_, err := m.AddLink(fromRef, toRef)
	require.NoError(t, err)

	_, err = m.AddLink(fromRef, toRef)
	require.Error(t, err)
}

func TestResolveProcessDefaultAttribute(t *testing.T) {
	m := New()
	p, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	p.Level = []expr.Value{expr.Num(3), expr.Num(4)}

	v, err := m.Resolve("mill", "")
	require.NoError(t, err)

	result := m.ValueAt(expr.NewStack(), v, 1)
	require.True(t, result.IsReal())
	require.Equal(t, 4.0, result.Number)
}

func TestResolveUnknownEntityErrors(t *testing.T) {
	m := New()
	_, err := m.Resolve("nope", "")
	require.Error(t, err)
}

func TestWildcardEquationResolvesThroughDatasetModifier(t *testing.T) {
	m := New()
	ds, err := m.AddDataset("q")
	require.NoError(t, err)

	prog, err := expr.Compile("10", m)
	require.NoError(t, err)
	ds.Data.AddModifier("q ??", prog)

	v, err := m.Resolve("q 5", "")
	require.NoError(t, err)

	result := m.ValueAt(expr.NewStack(), v, 0)
	require.True(t, result.IsReal())
	require.Equal(t, 10.0, result.Number)
}

func TestDeleteCascadesToLinksAndConstraints(t *testing.T) {
	m := New()
	from, _ := m.AddProduct("coal")
	to, _ := m.AddProcess("plant", 0)
	fromRef := Ref{Kind: KindProduct, ID: from.ID}
	toRef := Ref{Kind: KindProcess, ID: to.ID}

	link, err := m.AddLink(fromRef, toRef)
	require.NoError(t, err)

	removed := m.Delete(fromRef)
	require.Contains(t, removed, fromRef)
	require.Contains(t, removed, Ref{Kind: KindLink, ID: link.ID})
	require.Nil(t, m.Link(link.ID))
	require.Nil(t, m.Product(from.ID))
}

func TestRenameRejectsCollision(t *testing.T) {
	m := New()
	_, err := m.AddProduct("coal")
	require.NoError(t, err)
	gas, err := m.AddProduct("gas")
	require.NoError(t, err)

	err = m.Rename(Ref{Kind: KindProduct, ID: gas.ID}, "coal")
	require.Error(t, err)
}
