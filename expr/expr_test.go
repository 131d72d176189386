package expr

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakeResolver resolves entity names to vectors of values, independent
// of any model package, so the compiler/evaluator can be tested in
// isolation.
type fakeResolver struct {
	vectors map[string][]float64
	static  map[string]bool
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{vectors: map[string][]float64{}, static: map[string]bool{}}
}

func (r *fakeResolver) Resolve(entity, attribute string) (Variable, error) {
	key := entity + "|" + attribute
	if _, ok := r.vectors[key]; !ok {
		return nil, fmt.Errorf("unknown variable: %s", key)
	}
	return key, nil
}

func (r *fakeResolver) MethodPrefix(prefix string) (string, bool) { return "", false }

func (r *fakeResolver) ValueAt(stack *Stack, v Variable, t int) Value {
	key := v.(string)
	vec := r.vectors[key]
	if t < 0 || t >= len(vec) {
		return NotComputed()
	}
	return Num(vec[t])
}

func (r *fakeResolver) IsStatic(v Variable) bool {
	return r.static[v.(string)]
}

func TestCompileArithmeticLiteral(t *testing.T) {
	r := newFakeResolver()
	p, err := Compile("2 + 3 * 4", r)
	require.NoError(t, err)
	require.Empty(t, p.Diagnostics)
	require.True(t, p.Static)

	v := p.Result(NewStack(), r, 0, 0)
	require.True(t, v.IsReal())
	require.Equal(t, 14.0, v.Number)
}

func TestCompileUnresolvedReferenceIsDiagnostic(t *testing.T) {
	r := newFakeResolver()
	p, err := Compile("[missing]", r)
	require.NoError(t, err)
	require.Len(t, p.Diagnostics, 1)
	require.Equal(t, DiagUnresolvedReference, p.Diagnostics[0].Kind)

	v := p.Result(NewStack(), r, 0, 0)
	require.Equal(t, KindUndefined, v.Kind)
}

func TestCompileSyntaxErrorBecomesDiagnosticNotGoError(t *testing.T) {
	r := newFakeResolver()
	p, err := Compile("[unterminated", r)
	require.NoError(t, err)
	require.NotEmpty(t, p.Diagnostics)
	require.Equal(t, DiagSyntax, p.Diagnostics[0].Kind)
}

func TestVariableReferenceResolvesAtTimestep(t *testing.T) {
	r := newFakeResolver()
	r.vectors["p|"] = []float64{10, 20, 30}

	p, err := Compile("[p] + 1", r)
	require.NoError(t, err)
	require.Empty(t, p.Diagnostics)

	v := p.Result(NewStack(), r, 1, 0)
	require.True(t, v.IsReal())
	require.Equal(t, 21.0, v.Number)
}

func TestTimeOffsetShiftsTarget(t *testing.T) {
	r := newFakeResolver()
	r.vectors["p|"] = []float64{10, 20, 30}

	p, err := Compile("[p@-1]", r)
	require.NoError(t, err)

	v := p.Result(NewStack(), r, 2, 0)
	require.True(t, v.IsReal())
	require.Equal(t, 20.0, v.Number)
}

func TestNegativeOffsetTargetIsUndefined(t *testing.T) {
	r := newFakeResolver()
	r.vectors["p|"] = []float64{10, 20, 30}

	p, err := Compile("[p@-5]", r)
	require.NoError(t, err)

	v := p.Result(NewStack(), r, 1, 0)
	require.Equal(t, KindUndefined, v.Kind)
}

func TestStatCallSum(t *testing.T) {
	r := newFakeResolver()
	r.vectors["a|"] = []float64{1}
	r.vectors["b|"] = []float64{2}

	p, err := Compile("sum$([a], [b], 3)", r)
	require.NoError(t, err)

	v := p.Result(NewStack(), r, 0, 0)
	require.True(t, v.IsReal())
	require.Equal(t, 6.0, v.Number)
}

func TestNotComputedPropagatesThroughArithmetic(t *testing.T) {
	r := newFakeResolver()
	r.vectors["p|"] = []float64{10}

	p, err := Compile("[p@10] + 1", r)
	require.NoError(t, err)

	v := p.Result(NewStack(), r, 0, 0)
	require.Equal(t, KindNotComputed, v.Kind)
}

func TestResultCachesStaticExpressionAcrossTimesteps(t *testing.T) {
	r := newFakeResolver()
	p, err := Compile("40 + 2", r)
	require.NoError(t, err)
	require.True(t, p.Static)

	stack := NewStack()
	v1 := p.Result(stack, r, 0, 0)
	v2 := p.Result(stack, r, 99, 0)
	require.Equal(t, v1.Number, v2.Number)
	require.Equal(t, 42.0, v1.Number)
}
