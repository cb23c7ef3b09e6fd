package dmn

import (
	"context"
	"fmt"
	"strings"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
)

// bkmFunction is a business knowledge model bound to the evaluation that exposes it.
type bkmFunction struct {
	engine     *ZenDmnEngine
	ctx        context.Context
	ec         *executionContext
	definition *runtime.DecisionDefinition
	bkm        *runtime.BusinessKnowledgeModel
}

func bkmBindingName(bkm *runtime.BusinessKnowledgeModel) string {
	if bkm.Id == "" {
		return bkm.VariableName
	}
	return strings.TrimPrefix(bkm.Id, "bkm_")
}

// Call binds args to the formal parameters by position. Surplus arguments are ignored and
// parameters without an argument stay unbound.
func (f *bkmFunction) Call(args []any) (any, error) {
	if f.bkm.Body == nil {
		return nil, newExecutionErrorf("business knowledge model [%s] has no literal expression body", f.bkm.Id)
	}
	scope := f.ec.scope(f.definition)
	f.engine.injectBkms(f.ctx, f.ec, f.definition, scope)
	for i, parameter := range f.bkm.Parameters {
		if i >= len(args) {
			break
		}
		scope[parameter.VariableName] = args[i]
	}

	node := f.ec.push(traceTypeBkm, f.bkm.Name)
	defer f.ec.pop()
	node.Details["bkm_id"] = f.bkm.Id
	node.Details["arguments"] = args

	value, err := f.engine.feelRuntime.Evaluate(f.bkm.Body.Text, scope)
	if err != nil {
		node.Details["error"] = err.Error()
		return nil, err
	}
	node.Result = value
	return value, nil
}

func (f *bkmFunction) String() string {
	return fmt.Sprintf("bkm %s", f.bkm.Id)
}

// decisionServiceFunction is a decision service of an imported definition.
type decisionServiceFunction struct {
	engine     *ZenDmnEngine
	ctx        context.Context
	parent     *executionContext
	definition *runtime.DecisionDefinition
	service    *runtime.DecisionService
}

// Call binds args by position to the input data of the service and evaluates it in a
// fresh execution context.
func (f *decisionServiceFunction) Call(args []any) (any, error) {
	parameters := map[string]any{}
	for i, inputId := range f.service.InputData {
		if i >= len(args) {
			break
		}
		name := inputId
		if input, ok := f.definition.Inputs[inputId]; ok {
			name = input.VariableName
		}
		parameters[name] = args[i]
	}

	value, ec, err := f.engine.invokeDecisionService(f.ctx, f.definition, f.service, parameters)
	if top := f.parent.top(); top != nil && ec.root != nil {
		top.AddChild(ec.root)
	}
	return value, err
}

func (f *decisionServiceFunction) String() string {
	return fmt.Sprintf("decision service %s", f.service.Id)
}

// invokeDecisionService evaluates every output decision of service against parameters only.
// A single output is returned as a bare value, several as a map keyed by variable name.
func (engine *ZenDmnEngine) invokeDecisionService(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, service *runtime.DecisionService, parameters map[string]any) (any, *executionContext, error) {
	ec := newExecutionContext(parameters)
	node := ec.push(traceTypeDecisionService, service.Name)
	defer ec.pop()
	node.Details["decision_service_id"] = service.Id

	ctx, err := enterDecisionService(ctx, dmnDefinition, service)
	if err != nil {
		node.Details["error"] = err.Error()
		return nil, ec, err
	}

	outputs := make(map[string]any, len(service.OutputDecisions))
	var last any
	for _, decisionId := range service.OutputDecisions {
		decision, ok := dmnDefinition.Decisions[decisionId]
		if !ok {
			err := decisionNotFound(decisionId)
			node.Details["error"] = err.Error()
			return nil, ec, err
		}
		value, err := engine.evaluateDecision(ctx, ec, dmnDefinition, decision)
		if err != nil {
			node.Details["error"] = err.Error()
			return nil, ec, err
		}
		outputs[decision.VariableName] = value
		last = value
	}

	var result any = outputs
	if len(service.OutputDecisions) == 1 {
		result = last
	}
	node.Result = result
	return result, ec, nil
}

type serviceChainKey struct{}

// enterDecisionService records service in the chain of decision services active on ctx.
// Fresh service contexts do not share the decision cycle guard, so re-entering a service
// that is still running is reported here.
func enterDecisionService(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, service *runtime.DecisionService) (context.Context, error) {
	chain, _ := ctx.Value(serviceChainKey{}).([]decisionKey)
	current := decisionKey{definition: dmnDefinition, id: service.Id}
	for i, active := range chain {
		if active != current {
			continue
		}
		ids := make([]string, 0, len(chain)-i+1)
		for _, key := range chain[i:] {
			ids = append(ids, key.id)
		}
		ids = append(ids, service.Id)
		return ctx, dmnerr.New(dmnerr.CircularDependency, "circular decision service invocation: %s", strings.Join(ids, " -> "))
	}
	next := make([]decisionKey, len(chain), len(chain)+1)
	copy(next, chain)
	return context.WithValue(ctx, serviceChainKey{}, append(next, current)), nil
}
