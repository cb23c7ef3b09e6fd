package dmn

import "github.com/pbinitiative/zendmn/pkg/trace"

// EvaluationResult is returned by Evaluate. Failures are reported through Errors,
// never as a Go error.
type EvaluationResult struct {
	Output             map[string]any            `json:"output"` // decision variable name -> value, empty on failure
	DecisionId         string                    `json:"decision_id"`
	RequirementsMet    bool                      `json:"requirements_met"`
	Input              map[string]any            `json:"input"` // the parameters as supplied by the caller
	SpecId             string                    `json:"spec_id"`
	Trace              *trace.PathNode           `json:"trace,omitempty"`
	MissingRequired    bool                      `json:"missing_required"`
	Errors             []string                  `json:"errors"`
	EvaluatedDecisions []EvaluatedDecisionResult `json:"-"`
}

type EvaluatedDRDResult struct {
	EvaluatedDecisions []EvaluatedDecisionResult
	DecisionOutput     any
	Trace              *trace.PathNode
	Errors             []string
}

// EvaluatedDecisionResult records one decision evaluated during a run, in completion order.
type EvaluatedDecisionResult struct {
	DecisionId            string
	DecisionName          string
	VariableName          string
	DecisionType          string
	DecisionDefinitionId  string
	DecisionDefinitionKey int64
	HitPolicy             string
	MatchedRules          []EvaluatedRule
	DecisionOutput        any
	EvaluatedInputs       []EvaluatedInput
}

type EvaluatedRule struct {
	RuleId           string
	RuleIndex        int // 1 based position in the table
	Annotations      []string
	EvaluatedOutputs []EvaluatedOutput
}

type EvaluatedOutput struct {
	OutputId       string
	OutputName     string
	OutputJsonName string
	OutputValue    any
}

type EvaluatedInput struct {
	InputId         string
	InputName       string
	InputExpression string
	InputValue      any
	Error           error // set when the input expression could not be evaluated
}
