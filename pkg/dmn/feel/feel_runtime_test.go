package feel

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_arithmetic_respects_precedence(t *testing.T) {
	tests := []struct {
		expression string
		expected   any
	}{
		{"2 + 3 * 4", int64(14)},
		{"(2 + 3) * 4", int64(20)},
		{"2 ** 3 + 1", int64(9)},
		{"10 - 2 - 3", int64(5)},
		{"2 * -3", int64(-6)},
		{"-5 + 3", int64(-2)},
		{"7 / 2", 3.5},
		{"1.5 + 1", 2.5},
		{"2 ** 0.5 * 2 ** 0.5 > 1.99", true},
		{`"zen" + "dmn"`, "zendmn"},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_integer_overflow_promotes_to_decimal(t *testing.T) {
	tests := []struct {
		expression string
		expected   float64
	}{
		{"9223372036854775807 + 1", 9.223372036854775808e18},
		{"-9223372036854775807 - 2", -9.223372036854775808e18},
		{"3037000500 * 3037000500", 9.22337203700025e18},
		{"2 ** 63", 9.223372036854775808e18},
		{"10 ** 30", 1e30},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, nil)
			require.NoError(t, err)
			require.IsType(t, float64(0), result)
			assert.InEpsilon(t, tt.expected, result, 1e-12)
		})
	}
}

func Test_integer_arithmetic_at_the_int64_edges(t *testing.T) {
	tests := []struct {
		expression string
		expected   any
	}{
		{"9223372036854775806 + 1", int64(math.MaxInt64)},
		{"-9223372036854775807 - 1", int64(math.MinInt64)},
		{"3037000499 * 3037000499", int64(9223372030926249001)},
		{"2 ** 62", int64(1 << 62)},
		{"1 ** 100000000000", int64(1)},
		{"(-1) ** 100000000001", int64(-1)},
		{"0 ** 0", int64(1)},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_large_exponent_returns(t *testing.T) {
	result, err := Evaluate("2 ** 100000000000", nil)

	require.NoError(t, err)
	require.IsType(t, float64(0), result)
	assert.True(t, math.IsInf(result.(float64), 1))
}

func Test_sign_after_keyword_is_unary(t *testing.T) {
	tests := []struct {
		expression string
		scope      map[string]any
		expected   any
	}{
		{"1 + if a then 2 else -3", map[string]any{"a": false}, int64(-2)},
		{"1 + if a then -2 else 3", map[string]any{"a": true}, int64(-1)},
		{"-1 in [-1, 2]", nil, true},
		{"false or -1 < 0", nil, true},
		{"true and -1 < 0", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, tt.scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_nested_if_matches_else_by_depth(t *testing.T) {
	scope := map[string]any{"a": true, "b": false, "c": 10, "d": 20}

	result, err := Evaluate("if a then if b then c else d else c + d", scope)

	require.NoError(t, err)
	assert.Equal(t, int64(20), result)

	scope["a"] = false
	result, err = Evaluate("if a then if b then c else d else c + d", scope)
	require.NoError(t, err)
	assert.Equal(t, int64(30), result)
}

func Test_if_without_else_yields_null(t *testing.T) {
	result, err := Evaluate("if x > 1 then \"big\"", map[string]any{"x": 0})

	require.NoError(t, err)
	assert.Nil(t, result)
}

func Test_if_condition_must_be_boolean(t *testing.T) {
	_, err := Evaluate("if x then 1 else 2", map[string]any{"x": "yes"})

	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)
}

func Test_let_bindings_do_not_see_each_other(t *testing.T) {
	// y is evaluated against the enclosing scope where x is unbound
	_, err := Evaluate("let x = 1, y = x + 1 in y", map[string]any{})
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)

	// with an outer x, y sees the outer value and not the let binding
	result, err := Evaluate("let x = 1, y = x + 1 in y", map[string]any{"x": 10})
	require.NoError(t, err)
	assert.Equal(t, int64(11), result)
}

func Test_let_bindings_do_not_leak(t *testing.T) {
	scope := map[string]any{"a": 2}

	result, err := Evaluate("let b = a * 2 in a + b", scope)

	require.NoError(t, err)
	assert.Equal(t, int64(6), result)
	assert.NotContains(t, scope, "b")
}

func Test_multiline_expression_is_normalized(t *testing.T) {
	result, err := Evaluate("if   a\n\tthen\n  1\nelse 2", map[string]any{"a": true})

	require.NoError(t, err)
	assert.Equal(t, int64(1), result)
}

func Test_context_navigation(t *testing.T) {
	birth := NewDate(1990, time.January, 1)
	scope := map[string]any{"person": map[string]any{"birth_date": birth}}

	result, err := Evaluate("person.birth_date", scope)
	require.NoError(t, err)
	assert.Equal(t, birth, result)

	result, err = Evaluate("person.missing", scope)
	require.NoError(t, err)
	assert.Nil(t, result)

	result, err = Evaluate("person.birth_date.year", scope)
	require.NoError(t, err)
	assert.Equal(t, int64(1990), result)
}

func Test_struct_attribute_navigation(t *testing.T) {
	type applicant struct {
		Income  float64
		Country string `json:"country_code"`
	}
	scope := map[string]any{"applicant": &applicant{Income: 1200.5, Country: "NL"}}

	result, err := Evaluate("applicant.income", scope)
	require.NoError(t, err)
	assert.Equal(t, 1200.5, result)

	result, err = Evaluate("applicant.country_code", scope)
	require.NoError(t, err)
	assert.Equal(t, "NL", result)
}

func Test_years_counts_anniversaries(t *testing.T) {
	result, err := Evaluate(`years(@"1990-01-01", @"2024-06-01")`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(34), result)

	result, err = Evaluate(`years(@"1990-07-01", @"2024-06-01")`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(33), result)

	result, err = Evaluate(`years(date("1990-06-01"), @"2024-06-01")`, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(34), result)
}

func Test_builtins(t *testing.T) {
	tests := []struct {
		expression string
		expected   any
	}{
		{"min([3, 1, 2])", int64(1)},
		{"max(3, 1, 2)", int64(3)},
		{"sum([1, 2, 3.5])", 6.5},
		{"mean([2, 4])", 3.0},
		{"mean([])", int64(0)},
		{"abs(-4)", int64(4)},
		{"floor(2.7)", int64(2)},
		{"ceiling(2.1)", int64(3)},
		{"count([1, 2, 3])", int64(3)},
		{`upper("abc")`, "ABC"},
		{`lower("ABC")`, "abc"},
		{"not(false)", true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_scope_callable_shadows_builtin(t *testing.T) {
	scope := map[string]any{
		"max": FunctionFunc(func(args []any) (any, error) {
			return "shadowed", nil
		}),
	}

	result, err := Evaluate("max(1, 2)", scope)

	require.NoError(t, err)
	assert.Equal(t, "shadowed", result)
}

func Test_call_with_property_chain(t *testing.T) {
	scope := map[string]any{
		"lookup": FunctionFunc(func(args []any) (any, error) {
			return map[string]any{"address": map[string]any{"city": args[0]}}, nil
		}),
	}

	result, err := Evaluate(`lookup("Praha").address.city`, scope)

	require.NoError(t, err)
	assert.Equal(t, "Praha", result)
}

func Test_boolean_logic_and_comparisons(t *testing.T) {
	scope := map[string]any{"age": 20, "income": 1500.0, "status": "single"}
	tests := []struct {
		expression string
		expected   any
	}{
		{"age >= 18 and income < 2000", true},
		{"age < 18 or status = \"single\"", true},
		{"age <= 19", false},
		{"status != \"married\"", true},
		{"not(age > 30)", true},
		{"age in [18, 19, 20]", true},
		{"\"x\" in [\"a\", \"b\"]", false},
		{"age = 20.0", true},
		{"null = null", true},
		{"(age > 18) = true", true},
	}
	for _, tt := range tests {
		t.Run(tt.expression, func(t *testing.T) {
			result, err := Evaluate(tt.expression, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func Test_or_short_circuits(t *testing.T) {
	calls := 0
	scope := map[string]any{
		"probe": FunctionFunc(func(args []any) (any, error) {
			calls++
			return false, nil
		}),
	}

	result, err := Evaluate("true or probe()", scope)
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Evaluate("false and probe()", scope)
	require.NoError(t, err)
	assert.Equal(t, false, result)
	assert.Equal(t, 0, calls)
}

func Test_list_and_context_literals(t *testing.T) {
	result, err := Evaluate(`{name: "Jan", "total amount": 1 + 2, tags: ["a", max(1, 2)]}`, nil)

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"name":         "Jan",
		"total amount": int64(3),
		"tags":         []any{"a", int64(2)},
	}, result)
}

func Test_quoted_literal_keeps_inner_whitespace_and_operators(t *testing.T) {
	result, err := Evaluate(`"a  or  b - c"`, nil)

	require.NoError(t, err)
	assert.Equal(t, "a  or  b - c", result)
}

func Test_syntax_and_evaluation_errors(t *testing.T) {
	_, err := Evaluate("1 +", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELSyntax)

	_, err = Evaluate("§§", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELSyntax)

	_, err = Evaluate("unknown_fn(1)", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)

	_, err = Evaluate("count(1, 2)", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)

	_, err = Evaluate(`1 + "a"`, nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)

	_, err = Evaluate("1 in 2", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)

	_, err = Evaluate("missing + 1", nil)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)
}

func Test_function_errors_keep_their_kind(t *testing.T) {
	scope := map[string]any{
		"fail": FunctionFunc(func(args []any) (any, error) {
			return nil, dmnerr.New(dmnerr.Execution, "boom")
		}),
		"plain": FunctionFunc(func(args []any) (any, error) {
			return nil, errors.New("plain failure")
		}),
	}

	_, err := Evaluate("fail()", scope)
	assert.Equal(t, dmnerr.Execution, dmnerr.KindOf(err))

	_, err = Evaluate("plain()", scope)
	assert.Equal(t, dmnerr.FEELEvaluation, dmnerr.KindOf(err))
}

func Test_runtime_caches_parsed_expressions(t *testing.T) {
	r, err := NewRuntime(16)
	require.NoError(t, err)

	first, err := r.Parse("a +  b")
	require.NoError(t, err)
	second, err := r.Parse("a + b")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, r.CachedExpressions())
}

func Test_placeholder_is_an_identifier(t *testing.T) {
	result, err := Evaluate("? > 18", map[string]any{"?": 21})

	require.NoError(t, err)
	assert.Equal(t, true, result)
}
