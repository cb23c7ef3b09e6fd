package dmn

import (
	"strings"

	"github.com/pbinitiative/zendmn/pkg/dmn/feel"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
)

const placeholder = "?"

var comparisonPrefixes = []string{"!=", "<=", ">=", "=", "<", ">"}

// evaluateDecisionTable matches the rules of table in declaration order and reduces the
// matches according to the hit policy.
func (engine *ZenDmnEngine) evaluateDecisionTable(scope map[string]any, table *runtime.DecisionTable, record *EvaluatedDecisionResult) (any, error) {
	record.HitPolicy = table.HitPolicy.String()
	if !supportedHitPolicy(table.HitPolicy) {
		return nil, newExecutionErrorf("unsupported hit policy: %s", table.HitPolicy)
	}

	evaluatedInputs := make([]EvaluatedInput, len(table.Inputs))
	for i, input := range table.Inputs {
		value, err := engine.feelRuntime.Evaluate(input.Expression, scope)
		evaluatedInputs[i] = EvaluatedInput{
			InputId:         input.Id,
			InputName:       input.Label,
			InputExpression: input.Expression,
			InputValue:      value,
			Error:           err,
		}
	}
	record.EvaluatedInputs = evaluatedInputs

	matchedRules := make([]EvaluatedRule, 0)
	for ruleIndex, rule := range table.Rules {
		if !engine.ruleMatches(rule, evaluatedInputs, scope) {
			continue
		}

		evaluatedOutputs := make([]EvaluatedOutput, len(table.Outputs))
		for i, output := range table.Outputs {
			var value any
			if i < len(rule.OutputEntries) && rule.OutputEntries[i] != "" {
				var err error
				value, err = engine.feelRuntime.Evaluate(rule.OutputEntries[i], scope)
				if err != nil {
					return nil, err
				}
			}
			evaluatedOutputs[i] = EvaluatedOutput{
				OutputId:       output.Id,
				OutputName:     output.Label,
				OutputJsonName: output.Name,
				OutputValue:    value,
			}
		}
		matchedRules = append(matchedRules, EvaluatedRule{
			RuleId:           rule.Id,
			RuleIndex:        ruleIndex + 1,
			Annotations:      rule.Annotations,
			EvaluatedOutputs: evaluatedOutputs,
		})
		if table.HitPolicy != runtime.HitPolicyCollect {
			break
		}
	}
	record.MatchedRules = matchedRules

	return EvaluateHitPolicyOutput(table.HitPolicy, table.Aggregation, matchedRules)
}

func (engine *ZenDmnEngine) ruleMatches(rule runtime.Rule, inputs []EvaluatedInput, scope map[string]any) bool {
	for i, entry := range rule.InputEntries {
		if entry == "-" || entry == "" {
			continue
		}
		if i >= len(inputs) || inputs[i].Error != nil {
			return false
		}
		match, err := engine.EvaluateCellMatch(entry, inputs[i].InputValue, scope)
		if err != nil {
			engine.logger.Debug("rule excluded, input entry failed to evaluate", "rule", rule.Id, "entry", entry, "err", err)
			return false
		}
		if !match {
			return false
		}
	}
	return true
}

// EvaluateCellMatch reports whether the input entry accepts value. Evaluation failures are
// returned and the caller treats them as a non match.
func (engine *ZenDmnEngine) EvaluateCellMatch(entry string, value any, scope map[string]any) (bool, error) {
	entry = strings.TrimSpace(entry)
	if entry == "-" || entry == "" {
		return true, nil
	}

	if feel.HasTopLevelComma(entry) {
		var firstErr error
		for _, part := range feel.SplitList(entry) {
			match, err := engine.EvaluateCellMatch(part, value, scope)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if match {
				return true, nil
			}
		}
		return false, firstErr
	}

	if strings.HasPrefix(entry, `"`) || strings.HasPrefix(entry, "'") {
		result, err := engine.feelRuntime.Evaluate(entry, scope)
		if err != nil {
			return false, err
		}
		return feel.Equal(result, value), nil
	}

	for _, prefix := range comparisonPrefixes {
		if strings.HasPrefix(entry, prefix) {
			entry = placeholder + " " + entry
			break
		}
	}

	cellScope := copyVariables(scope)
	cellScope[placeholder] = value
	result, err := engine.feelRuntime.Evaluate(entry, cellScope)
	if err != nil {
		return false, err
	}
	if strings.Contains(entry, placeholder) {
		if b, ok := result.(bool); ok {
			return b, nil
		}
	}
	return feel.Equal(result, value), nil
}

func supportedHitPolicy(hitPolicy runtime.HitPolicy) bool {
	switch hitPolicy {
	case runtime.HitPolicyUnique, runtime.HitPolicyFirst, runtime.HitPolicyAny, runtime.HitPolicyCollect:
		return true
	}
	return false
}
