package ruleexpr

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArithmetic(t *testing.T) {
	env := Env{"amount": 1000, "rate": 0.13}
	got, err := EvalNumber("round(amount * rate, 2)", env)
	require.NoError(t, err)
	require.Equal(t, 130.0, got)
}

func TestPrecedence(t *testing.T) {
	got, err := EvalNumber("2 + 3 * 4", nil)
	require.NoError(t, err)
	require.Equal(t, 14.0, got)

	got, err = EvalNumber("(2 + 3) * 4", nil)
	require.NoError(t, err)
	require.Equal(t, 20.0, got)
}

func TestUnaryMinus(t *testing.T) {
	got, err := EvalNumber("-amount + 5", Env{"amount": 3})
	require.NoError(t, err)
	require.Equal(t, 2.0, got)
}

func TestConditional(t *testing.T) {
	env := Env{"ebt": 3800, "tax_rate": 0.25}
	got, err := EvalNumber("if(ebt > 0, ebt * tax_rate, 0)", env)
	require.NoError(t, err)
	require.Equal(t, 950.0, got)

	env["ebt"] = -100
	got, err = EvalNumber("if(ebt > 0, ebt * tax_rate, 0)", env)
	require.NoError(t, err)
	require.Equal(t, 0.0, got)
}

func TestBooleanOperators(t *testing.T) {
	env := Env{"a": 1, "b": 0}
	got, err := EvalNumber("if(a = 1 and b = 0, 10, 20)", env)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)

	got, err = EvalNumber("if(a = 2 or b = 0, 10, 20)", env)
	require.NoError(t, err)
	require.Equal(t, 10.0, got)
}

func TestAbs(t *testing.T) {
	got, err := EvalNumber("abs(0 - 12.5)", nil)
	require.NoError(t, err)
	require.Equal(t, 12.5, got)
}

func TestUnicodeOperators(t *testing.T) {
	got, err := EvalNumber("3 × 4 ÷ 2", nil)
	require.NoError(t, err)
	require.Equal(t, 6.0, got)

	got, err = EvalNumber("if(1 ≤ 2, 1, 0)", nil)
	require.NoError(t, err)
	require.Equal(t, 1.0, got)
}

func TestUnknownFieldFails(t *testing.T) {
	_, err := EvalNumber("missing + 1", Env{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown field")
}

func TestFreeFunctionRejected(t *testing.T) {
	_, err := Parse("exec(1)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "not allowed")
}

func TestAttributeAccessRejected(t *testing.T) {
	_, err := Parse("event.amount")
	require.Error(t, err)
	require.Contains(t, err.Error(), "attribute access")
}

func TestDivisionByZero(t *testing.T) {
	_, err := EvalNumber("1 / 0", nil)
	require.Error(t, err)
}

func TestWrongArity(t *testing.T) {
	_, err := Parse("round(1)")
	require.Error(t, err)
}

func TestReuseCompiledExpression(t *testing.T) {
	expr, err := Parse("round((cost - salvage) / life, 2)")
	require.NoError(t, err)

	got, err := expr.Eval(Env{"cost": 10000, "salvage": 0, "life": 5})
	require.NoError(t, err)
	require.Equal(t, 2000.0, got)

	got, err = expr.Eval(Env{"cost": 9000, "salvage": 600, "life": 7})
	require.NoError(t, err)
	require.Equal(t, 1200.0, got)
}
