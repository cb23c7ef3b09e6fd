package dmn

import (
	"github.com/pbinitiative/zendmn/pkg/dmn/feel"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
)

// EvaluateHitPolicyOutput reduces the matched rules to the decision output. No match yields nil.
func EvaluateHitPolicyOutput(hitPolicy runtime.HitPolicy, aggregation runtime.Aggregation, matchedRules []EvaluatedRule) (any, error) {
	switch hitPolicy {
	case runtime.HitPolicyUnique, runtime.HitPolicyFirst, runtime.HitPolicyAny:
		return evaluateFirstOutput(matchedRules), nil
	case runtime.HitPolicyCollect:
		if len(matchedRules) == 0 {
			return nil, nil
		}
		switch aggregation {
		case runtime.AggregationNone:
			return evaluateCollectOutput(matchedRules), nil
		case runtime.AggregationCount:
			return int64(len(matchedRules)), nil
		case runtime.AggregationSum:
			return evaluateCollectAggregation("sum", matchedRules)
		case runtime.AggregationMin:
			return evaluateCollectAggregation("min", matchedRules)
		case runtime.AggregationMax:
			return evaluateCollectAggregation("max", matchedRules)
		default:
			return nil, newExecutionErrorf("unsupported collect aggregation: %s", aggregation)
		}
	default:
		return nil, newExecutionErrorf("unsupported hit policy: %s", hitPolicy)
	}
}

func evaluateCollectOutput(matchedRules []EvaluatedRule) []any {
	result := make([]any, len(matchedRules))
	for i, rule := range matchedRules {
		result[i] = ruleOutput(rule)
	}
	return result
}

func evaluateCollectAggregation(function string, matchedRules []EvaluatedRule) (any, error) {
	values := make([]any, 0, len(matchedRules))
	for _, rule := range matchedRules {
		if len(rule.EvaluatedOutputs) != 1 {
			return nil, newExecutionErrorf("collect aggregation requires a single output, rule %s has %d", rule.RuleId, len(rule.EvaluatedOutputs))
		}
		values = append(values, rule.EvaluatedOutputs[0].OutputValue)
	}
	return feel.CallBuiltin(function, []any{values})
}

func evaluateFirstOutput(matchedRules []EvaluatedRule) any {
	if len(matchedRules) == 0 {
		return nil
	}
	return ruleOutput(matchedRules[0])
}

// ruleOutput is the bare value of a single output table, otherwise a map keyed by output name.
func ruleOutput(rule EvaluatedRule) any {
	switch len(rule.EvaluatedOutputs) {
	case 0:
		return nil
	case 1:
		return rule.EvaluatedOutputs[0].OutputValue
	}
	outputMap := make(map[string]any, len(rule.EvaluatedOutputs))
	for _, evaluatedOutput := range rule.EvaluatedOutputs {
		outputMap[evaluatedOutput.OutputJsonName] = evaluatedOutput.OutputValue
	}
	return outputMap
}
