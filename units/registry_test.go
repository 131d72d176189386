package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertDirect(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("kWh", 1, AtomicBase))
	require.NoError(t, r.Add("MWh", 1000, AtomicBase))

	require.Equal(t, 1000.0, r.Convert("MWh", "kWh"))
	require.Equal(t, 0.001, r.Convert("kWh", "MWh"))
}

func TestConvertTransitive(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("kWh", 1, AtomicBase))
	require.NoError(t, r.Add("MWh", 1000, "kWh"))
	require.NoError(t, r.Add("GWh", 1000, "MWh"))

	require.Equal(t, 1_000_000.0, r.Convert("GWh", "kWh"))
}

func TestConvertUnknownUnitIsUndefined(t *testing.T) {
	r := NewRegistry()
	require.True(t, IsUndefined(r.Convert("nope", "also-nope")))
}

func TestAddRejectsDuplicateAndMissingBase(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("kWh", 1, AtomicBase))
	require.Error(t, r.Add("kWh", 2, AtomicBase))
	require.Error(t, r.Add("MWh", 1000, "unknown-base"))
}

func TestRenameRepointsDependents(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add("kWh", 1, AtomicBase))
	require.NoError(t, r.Add("MWh", 1000, "kWh"))

	require.NoError(t, r.Rename("kWh", "kilowatt-hour"))
	require.False(t, r.Has("kWh"))
	require.Equal(t, 1000.0, r.Convert("MWh", "kilowatt-hour"))
}
