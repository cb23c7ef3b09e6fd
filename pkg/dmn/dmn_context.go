package dmn

import (
	"fmt"

	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
	"github.com/pbinitiative/zendmn/pkg/trace"
)

const (
	traceTypeDecision        = "decision"
	traceTypeBkm             = "bkm"
	traceTypeDecisionService = "decisionService"
)

// decisionKey identifies a decision across imported definitions that may reuse ids.
type decisionKey struct {
	definition *runtime.DecisionDefinition
	id         string
}

// executionContext belongs to exactly one top level evaluation and is discarded afterwards.
type executionContext struct {
	parameters map[string]any
	// results is the memoization surface
	results map[decisionKey]any
	// bindings exposes decision results to FEEL by id and by variable name, per definition
	bindings   map[*runtime.DecisionDefinition]map[string]any
	traceStack []*trace.PathNode
	root       *trace.PathNode
	errors     []string
	evaluating map[decisionKey]bool
	evaluated  []EvaluatedDecisionResult
}

func newExecutionContext(parameters map[string]any) *executionContext {
	if parameters == nil {
		parameters = map[string]any{}
	}
	return &executionContext{
		parameters: parameters,
		results:    map[decisionKey]any{},
		bindings:   map[*runtime.DecisionDefinition]map[string]any{},
		evaluating: map[decisionKey]bool{},
	}
}

// push opens a trace node below the current top of the stack.
func (ec *executionContext) push(nodeType string, name string) *trace.PathNode {
	node := trace.NewPathNode(nodeType, name)
	if top := ec.top(); top != nil {
		top.AddChild(node)
	} else if ec.root == nil {
		ec.root = node
	}
	ec.traceStack = append(ec.traceStack, node)
	return node
}

func (ec *executionContext) pop() {
	if len(ec.traceStack) > 0 {
		ec.traceStack = ec.traceStack[:len(ec.traceStack)-1]
	}
}

func (ec *executionContext) top() *trace.PathNode {
	if len(ec.traceStack) == 0 {
		return nil
	}
	return ec.traceStack[len(ec.traceStack)-1]
}

func (ec *executionContext) cached(dmnDefinition *runtime.DecisionDefinition, decision *runtime.Decision) (any, bool) {
	value, ok := ec.results[decisionKey{definition: dmnDefinition, id: decision.Id}]
	return value, ok
}

func (ec *executionContext) store(dmnDefinition *runtime.DecisionDefinition, decision *runtime.Decision, value any) {
	ec.results[decisionKey{definition: dmnDefinition, id: decision.Id}] = value
	bindings, ok := ec.bindings[dmnDefinition]
	if !ok {
		bindings = map[string]any{}
		ec.bindings[dmnDefinition] = bindings
	}
	bindings[decision.Id] = value
	bindings[decision.VariableName] = value
}

// scope returns a fresh FEEL scope holding the parameters and every result of
// dmnDefinition evaluated so far.
func (ec *executionContext) scope(dmnDefinition *runtime.DecisionDefinition) map[string]any {
	bindings := ec.bindings[dmnDefinition]
	scope := make(map[string]any, len(ec.parameters)+len(bindings))
	for key, value := range ec.parameters {
		scope[key] = value
	}
	for key, value := range bindings {
		scope[key] = value
	}
	return scope
}

func (ec *executionContext) fail(name string, err error) {
	ec.errors = append(ec.errors, fmt.Sprintf("%s: %v", name, err))
}
