package xmlio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/linnyr-go/linnyr/model"
)

func TestParseBuildsEntitiesAndCompilesExpressions(t *testing.T) {
	doc := XMLDeclaration + `
<model version="1.0">
  <processes>
    <process code="mill" name="mill">
      <upper-bound>10</upper-bound>
    </process>
  </processes>
  <products>
    <product code="flour" name="flour"></product>
  </products>
  <links>
    <link code="mill___flour" from="mill" to="flour">
      <rate>2</rate>
    </link>
  </links>
</model>`

	m, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	ref, ok := m.Lookup("mill")
	require.True(t, ok)
	proc := m.Process(ref.ID)
	require.NotNil(t, proc.UpperBound)

	linkRef, ok := m.Lookup("mill___flour")
	require.True(t, ok)
	link := m.Link(linkRef.ID)
	require.NotNil(t, link.Rate)
}

func TestWriteThenParseRoundTrip(t *testing.T) {
	m := model.New()
	proc, err := m.AddProcess("mill", 0)
	require.NoError(t, err)
	proc.UpperBound, err = compileOptional("10", m)
	require.NoError(t, err)

	prod, err := m.AddProduct("flour")
	require.NoError(t, err)

	_, err = m.AddLink(model.Ref{Kind: model.KindProcess, ID: proc.ID}, model.Ref{Kind: model.KindProduct, ID: prod.ID})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, m))

	reparsed, err := Parse(&buf)
	require.NoError(t, err)

	ref, ok := reparsed.Lookup("mill")
	require.True(t, ok)
	require.NotNil(t, reparsed.Process(ref.ID).UpperBound)

	_, ok = reparsed.Lookup("mill___flour")
	require.True(t, ok)
}
