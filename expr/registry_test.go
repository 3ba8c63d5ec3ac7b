package expr

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphdb.evalgo.org/value"
)

func TestOverloadResolutionPrefersExactType(t *testing.T) {
	r := NewRegistry()

	// abs has both INT and FLOAT overloads; the exact kind wins
	got, err := r.Execute("abs", []value.Value{value.NewInt(-3)})
	require.NoError(t, err)
	_, isInt := got.Int()
	assert.True(t, isInt, "integer input should pick the INT overload")

	got, err = r.Execute("abs", []value.Value{value.NewFloat(-3.5)})
	require.NoError(t, err)
	f, isFloat := got.Float()
	assert.True(t, isFloat)
	assert.Equal(t, 3.5, f)
}

func TestOverloadResolutionTieBreaksByRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	first := Signature{Name: "pick", ArgTypes: []ValueType{TypeAny}, ReturnType: TypeString, MinArity: 1, MaxArity: 1, Pure: true}
	second := Signature{Name: "pick", ArgTypes: []ValueType{TypeAny}, ReturnType: TypeString, MinArity: 1, MaxArity: 1, Pure: true}
	r.Register(first, func([]value.Value) (value.Value, error) { return value.NewString("first"), nil })
	r.Register(second, func([]value.Value) (value.Value, error) { return value.NewString("second"), nil })

	// equal scores resolve to the earliest registration, stably
	for i := 0; i < 20; i++ {
		got, err := r.Execute("pick", []value.Value{value.NewInt(1)})
		require.NoError(t, err)
		assert.Equal(t, "first", got.String())
	}
}

func TestUndefinedFunction(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("no_such_fn", nil)
	ee, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, UndefinedFunction, ee.Type)
}

func TestArityMismatch(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("abs", []value.Value{value.NewInt(1), value.NewInt(2)})
	ee, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ArgumentCountError, ee.Type)
}

func TestTypeErrorListsCandidates(t *testing.T) {
	r := NewRegistry()
	_, err := r.Execute("abs", []value.Value{value.NewList(nil)})
	ee, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, TypeMismatch, ee.Type)
	assert.Contains(t, ee.Message, "abs(INT)")
	assert.Contains(t, ee.Message, "abs(FLOAT)")
}

func TestNumericWideningCompatibility(t *testing.T) {
	r := NewRegistry()
	// sqrt declares FLOAT; an INT argument is compatible via widening
	got, err := r.Execute("sqrt", []value.Value{value.NewInt(9)})
	require.NoError(t, err)
	f, _ := got.Float()
	assert.Equal(t, 3.0, f)
}

func TestIsPure(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.IsPure("abs"))
	assert.True(t, r.IsPure("upper"))
	assert.False(t, r.IsPure("rand"))
	assert.False(t, r.IsPure("now"))
	assert.False(t, r.IsPure("unknown"))
}

func TestSignatureIntrospection(t *testing.T) {
	r := NewRegistry()
	assert.True(t, r.Contains("coalesce"))
	assert.False(t, r.Contains("bogus"))
	assert.NotEmpty(t, r.Names())

	sigs := r.Signatures("substring")
	require.NotEmpty(t, sigs)
	assert.Equal(t, 2, sigs[0].MinArity)
	assert.Equal(t, 3, sigs[0].MaxArity)
}

func TestRegisterCustomFunction(t *testing.T) {
	r := NewRegistry()
	r.RegisterCustom(CustomFunction{
		Name:        "double",
		MinArity:    1,
		MaxArity:    1,
		Description: "doubles an integer",
	}, func(args []value.Value) (value.Value, error) {
		i, _ := args[0].Int()
		return value.NewInt(i * 2), nil
	})

	got, err := r.Execute("double", []value.Value{value.NewInt(21)})
	require.NoError(t, err)
	assert.True(t, value.NewInt(42).Equal(got))

	cf, ok := r.Custom("double")
	require.True(t, ok)
	assert.Equal(t, "doubles an integer", cf.Description)

	// custom functions are reachable through the evaluator too
	ctx := NewContext(r)
	result, err := Evaluate(&FunctionCall{Name: "double", Args: []Expr{intLit(5)}}, ctx)
	require.NoError(t, err)
	assert.True(t, value.NewInt(10).Equal(result))
}

func TestVariadicSignature(t *testing.T) {
	r := NewRegistry()
	got, err := r.Execute("concat", []value.Value{
		value.NewString("a"), value.NewString("b"), value.NewString("c"), value.NewString("d"),
	})
	require.NoError(t, err)
	assert.Equal(t, "abcd", got.String())
}
