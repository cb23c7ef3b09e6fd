package dmn

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/pbinitiative/zendmn/pkg/dmn/feel"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadRules(t *testing.T, engine *ZenDmnEngine) *runtime.DecisionDefinition {
	t.Helper()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/rules.dmn")
	require.NoError(t, err)
	return definition
}

func Test_unique_table_returns_only_the_matching_rule(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "unique_table", map[string]any{"score": 42})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, map[string]any{"unique_table": "high"}, result.Output)
	require.Len(t, result.EvaluatedDecisions, 1)
	matched := result.EvaluatedDecisions[0].MatchedRules
	require.Len(t, matched, 1)
	assert.Equal(t, "unique_rule_high", matched[0].RuleId)
	assert.Equal(t, 2, matched[0].RuleIndex)
}

func Test_collect_table_keeps_declaration_order(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "collect_table", map[string]any{"score": 7})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, []any{"positive", "big"}, result.Output["collect_table"])
}

func Test_collect_table_without_match_is_null(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "collect_table", map[string]any{"score": 0})

	require.True(t, result.RequirementsMet)
	assert.Contains(t, result.Output, "collect_table")
	assert.Nil(t, result.Output["collect_table"])
}

func Test_collect_sum_aggregation(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "collect_sum", map[string]any{"score": 6})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, int64(15), result.Output["collect_sum"])
}

func Test_malformed_cell_excludes_only_its_rule(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "malformed_cell", map[string]any{"score": 3})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, "ok", result.Output["malformed_cell"])
	assert.Empty(t, result.Errors)
}

func Test_failing_output_entry_fails_the_decision(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "failing_output", map[string]any{"score": 3})

	assert.False(t, result.RequirementsMet)
	assert.True(t, result.MissingRequired)
	assert.Empty(t, result.Output)
	// one entry for the failing decision, then the error that ended the evaluation
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Failing Output")
	assert.True(t, strings.HasSuffix(result.Errors[0], result.Errors[1]))
}

func Test_unsupported_hit_policy_is_an_execution_error(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	_, err := engine.EvaluateDRD(context.Background(), definition, "priority_table", map[string]any{"score": 3})

	assert.ErrorIs(t, err, dmnerr.ErrExecution)
	assert.ErrorContains(t, err, "unsupported hit policy")
}

func Test_unknown_hit_policy_falls_back_to_unique(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result, err := engine.EvaluateDRD(context.Background(), definition, "fallback_policy", map[string]any{"score": 3})

	require.NoError(t, err)
	assert.Nil(t, result.DecisionOutput)
	require.Len(t, result.EvaluatedDecisions, 1)
	decision := result.EvaluatedDecisions[0]
	assert.Equal(t, "UNIQUE", decision.HitPolicy)
	require.Len(t, decision.MatchedRules, 1)
	assert.Equal(t, []string{"catch all"}, decision.MatchedRules[0].Annotations)
}

func Test_decision_is_evaluated_once_per_call(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)
	var calls atomic.Int32
	probe := feel.FunctionFunc(func(args []any) (any, error) {
		calls.Add(1)
		return int64(10), nil
	})

	result := engine.Evaluate(context.Background(), definition, "memo_top", map[string]any{"probe": probe})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, int64(41), result.Output["memo_top"])
	assert.Equal(t, int32(1), calls.Load())

	ids := make([]string, 0, len(result.EvaluatedDecisions))
	for _, evaluated := range result.EvaluatedDecisions {
		ids = append(ids, evaluated.DecisionId)
	}
	assert.Equal(t, []string{"memo_base", "memo_left", "memo_right", "memo_top"}, ids)

	// a second top level call starts with a fresh context
	engine.Evaluate(context.Background(), definition, "memo_top", map[string]any{"probe": probe})
	assert.Equal(t, int32(2), calls.Load())
}

func Test_trace_follows_the_requirement_graph(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)
	probe := feel.FunctionFunc(func(args []any) (any, error) { return int64(1), nil })

	result := engine.Evaluate(context.Background(), definition, "memo_top", map[string]any{"probe": probe})

	require.NotNil(t, result.Trace)
	assert.Equal(t, "Memo Top", result.Trace.Name)
	assert.Equal(t, "memo_top", result.Trace.Details["decision_id"])
	assert.Equal(t, int64(5), result.Trace.Result)
	require.Len(t, result.Trace.Children, 2)
	assert.Equal(t, "Memo Left", result.Trace.Children[0].Name)
	assert.Equal(t, "Memo Base", result.Trace.Children[0].Children[0].Name)
	assert.Equal(t, "Memo Right", result.Trace.Children[1].Name)
	assert.Empty(t, result.Trace.Children[1].Children)
}

func Test_missing_decision_never_raises(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)
	parameters := map[string]any{"score": 1}

	result := engine.Evaluate(context.Background(), definition, "nope", parameters)

	assert.False(t, result.RequirementsMet)
	assert.True(t, result.MissingRequired)
	assert.Empty(t, result.Output)
	assert.Equal(t, "nope", result.DecisionId)
	assert.Equal(t, "rules_definitions", result.SpecId)
	assert.Equal(t, parameters, result.Input)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "nope")

	_, err := engine.EvaluateDRD(context.Background(), definition, "nope", parameters)
	assert.ErrorIs(t, err, dmnerr.ErrDecisionNotFound)
}

func Test_missing_required_decision_is_reported(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	result := engine.Evaluate(context.Background(), definition, "missing_requirement", nil)

	assert.True(t, result.MissingRequired)
	require.Len(t, result.Errors, 2)
	assert.Contains(t, result.Errors[0], "Missing Requirement")
	assert.Contains(t, result.Errors[0], "does_not_exist")
	assert.Contains(t, result.Errors[1], "does_not_exist")
}

func Test_decision_without_expression_is_an_execution_error(t *testing.T) {
	engine := NewEngine()
	definition := loadRules(t, engine)

	_, err := engine.EvaluateDRD(context.Background(), definition, "no_expression", nil)

	assert.ErrorIs(t, err, dmnerr.ErrExecution)
}

func Test_cyclic_requirements_are_detected(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/cycle.dmn")
	require.NoError(t, err)

	_, err = engine.EvaluateDRD(context.Background(), definition, "cycle_a", nil)
	assert.ErrorIs(t, err, dmnerr.ErrCircularDependency)

	result := engine.Evaluate(context.Background(), definition, "cycle_a", nil)
	assert.True(t, result.MissingRequired)
	require.Len(t, result.Errors, 3)
	assert.Contains(t, result.Errors[0], "Cycle B")
	assert.Contains(t, result.Errors[1], "Cycle A")
	assert.Contains(t, result.Errors[2], "circular dependency detected at decision [cycle_a]")
}

func Test_bkm_is_bound_under_id_and_variable_name(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/bulk-evaluation-test/loan.dmn")
	require.NoError(t, err)

	result := engine.Evaluate(context.Background(), definition, "installment", map[string]any{"loan_amount": 600})
	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, 50.0, result.Output["installment"])

	bkmNode := result.Trace.Find("Monthly Installment")
	require.NotNil(t, bkmNode)
	assert.Equal(t, traceTypeBkm, bkmNode.Type)
	assert.Equal(t, 50.0, bkmNode.Result)

	scope := map[string]any{}
	engine.injectBkms(context.Background(), newExecutionContext(nil), definition, scope)
	assert.Contains(t, scope, "monthly_installment")
	assert.Contains(t, scope, "installment_of")
}

func Test_bkm_ignores_surplus_arguments(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/bulk-evaluation-test/loan.dmn")
	require.NoError(t, err)
	ec := newExecutionContext(nil)
	ec.push(traceTypeDecision, "caller")
	function := &bkmFunction{
		engine:     engine,
		ctx:        context.Background(),
		ec:         ec,
		definition: definition,
		bkm:        definition.BusinessKnowledgeModels["bkm_monthly_installment"],
	}

	value, err := function.Call([]any{100, 4, "ignored"})
	require.NoError(t, err)
	assert.Equal(t, 25.0, value)

	// months stays unbound
	_, err = function.Call([]any{100})
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)
}

func Test_missing_inputs_are_recorded_in_trace(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/bulk-evaluation-test/loan.dmn")
	require.NoError(t, err)

	result := engine.Evaluate(context.Background(), definition, "risk_category", map[string]any{"age": 12})

	require.True(t, result.RequirementsMet, "errors: %v", result.Errors)
	assert.Equal(t, "DECLINE", result.Output["risk_category"])
	assert.Equal(t, []string{"income"}, result.Trace.Details["missing_inputs"])
}

func Test_parallel_evaluations_share_one_engine(t *testing.T) {
	engine := NewEngine()
	definition, err := engine.LoadFromFile(context.Background(), "./test-data/bulk-evaluation-test/dish.dmn")
	require.NoError(t, err)

	var wg sync.WaitGroup
	failures := make(chan string, 64)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(guests int) {
			defer wg.Done()
			result := engine.Evaluate(context.Background(), definition, "dish", map[string]any{"season": "Winter", "guestCount": guests})
			expected := "Roastbeef"
			if guests > 8 {
				expected = "Stew"
			}
			if result.Output["dish"] != expected {
				failures <- fmt.Sprintf("guests %d: expected %s, got %v (%v)", guests, expected, result.Output["dish"], result.Errors)
			}
		}(i % 16)
	}
	wg.Wait()
	close(failures)
	for failure := range failures {
		t.Error(failure)
	}
}

func Test_evaluate_cell_match(t *testing.T) {
	engine := NewEngine()
	scope := map[string]any{"limit": 10}
	tests := []struct {
		entry    string
		value    any
		expected bool
	}{
		{"-", "anything", true},
		{`"gold"`, "gold", true},
		{`"gold"`, "silver", false},
		{`"gold", "silver"`, "silver", true},
		{"1, 2, 3", 2, true},
		{"1, 2, 3", 4, false},
		{"< 5", 4, true},
		{"<= 5", 5, true},
		{"!= 5", 5, false},
		{"= 5", 5.0, true},
		{"> limit", 11, true},
		{"? > limit", 9, false},
		{"?", 7, true},
		{"limit", 10, true},
		{"true", true, true},
		{"[1, 2]", []any{1, 2}, true},
		{"< 5, > 10", 12, true},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%v", tt.entry, tt.value), func(t *testing.T) {
			match, err := engine.EvaluateCellMatch(tt.entry, tt.value, scope)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, match)
		})
	}

	_, err := engine.EvaluateCellMatch("undefined_threshold", 1, scope)
	assert.ErrorIs(t, err, dmnerr.ErrFEELEvaluation)
}

func Test_evaluate_hit_policy_output(t *testing.T) {
	rule := func(id string, outputs ...EvaluatedOutput) EvaluatedRule {
		return EvaluatedRule{RuleId: id, EvaluatedOutputs: outputs}
	}
	single := func(value any) EvaluatedOutput {
		return EvaluatedOutput{OutputJsonName: "value", OutputValue: value}
	}
	matched := []EvaluatedRule{rule("r1", single(int64(3))), rule("r2", single(int64(7)))}

	tests := []struct {
		name        string
		hitPolicy   runtime.HitPolicy
		aggregation runtime.Aggregation
		expected    any
	}{
		{"first", runtime.HitPolicyFirst, runtime.AggregationNone, int64(3)},
		{"any", runtime.HitPolicyAny, runtime.AggregationNone, int64(3)},
		{"collect", runtime.HitPolicyCollect, runtime.AggregationNone, []any{int64(3), int64(7)}},
		{"collect sum", runtime.HitPolicyCollect, runtime.AggregationSum, int64(10)},
		{"collect min", runtime.HitPolicyCollect, runtime.AggregationMin, int64(3)},
		{"collect max", runtime.HitPolicyCollect, runtime.AggregationMax, int64(7)},
		{"collect count", runtime.HitPolicyCollect, runtime.AggregationCount, int64(2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := EvaluateHitPolicyOutput(tt.hitPolicy, tt.aggregation, matched)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, output)
		})
	}

	multi := rule("r3", EvaluatedOutput{OutputJsonName: "a", OutputValue: 1}, EvaluatedOutput{OutputJsonName: "b", OutputValue: "x"})
	output, err := EvaluateHitPolicyOutput(runtime.HitPolicyUnique, runtime.AggregationNone, []EvaluatedRule{multi})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": 1, "b": "x"}, output)

	_, err = EvaluateHitPolicyOutput(runtime.HitPolicyCollect, runtime.AggregationSum, []EvaluatedRule{multi})
	assert.ErrorIs(t, err, dmnerr.ErrExecution)

	_, err = EvaluateHitPolicyOutput(runtime.HitPolicyRuleOrder, runtime.AggregationNone, matched)
	assert.ErrorIs(t, err, dmnerr.ErrExecution)
}
