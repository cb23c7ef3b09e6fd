package dmn

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
)

// Validate checks the requirement graph of dmnDefinition: every reference must resolve and
// required decisions must not form a cycle.
func (engine *ZenDmnEngine) Validate(ctx context.Context, dmnDefinition *runtime.DecisionDefinition) error {
	if dmnDefinition == nil {
		return newExecutionErrorf("no decision definition given for validation")
	}
	var errJoin error
	for _, decisionId := range sortedKeys(dmnDefinition.Decisions) {
		decision := dmnDefinition.Decisions[decisionId]
		for _, requiredId := range decision.RequiredDecisions {
			if _, required := engine.resolveDecision(dmnDefinition, requiredId); required == nil {
				errJoin = errors.Join(errJoin, dmnerr.New(dmnerr.Validation, "decision [%s] requires unknown decision [%s]", decisionId, requiredId))
			}
		}
		for _, inputId := range decision.RequiredInputs {
			if _, ok := dmnDefinition.Inputs[inputId]; !ok {
				errJoin = errors.Join(errJoin, dmnerr.New(dmnerr.Validation, "decision [%s] requires unknown input [%s]", decisionId, inputId))
			}
		}
		for _, bkmId := range decision.RequiredKnowledge {
			if _, ok := dmnDefinition.BusinessKnowledgeModels[bkmId]; !ok {
				errJoin = errors.Join(errJoin, dmnerr.New(dmnerr.Validation, "decision [%s] requires unknown business knowledge model [%s]", decisionId, bkmId))
			}
		}
	}
	for _, serviceId := range sortedKeys(dmnDefinition.DecisionServices) {
		service := dmnDefinition.DecisionServices[serviceId]
		for _, decisionId := range service.OutputDecisions {
			if _, ok := dmnDefinition.Decisions[decisionId]; !ok {
				errJoin = errors.Join(errJoin, dmnerr.New(dmnerr.Validation, "decision service [%s] outputs unknown decision [%s]", serviceId, decisionId))
			}
		}
		for _, inputId := range service.InputData {
			if _, ok := dmnDefinition.Inputs[inputId]; !ok {
				errJoin = errors.Join(errJoin, dmnerr.New(dmnerr.Validation, "decision service [%s] takes unknown input [%s]", serviceId, inputId))
			}
		}
	}
	return errors.Join(errJoin, findCycle(dmnDefinition))
}

// findCycle walks required decision edges depth first and reports the first back edge.
func findCycle(dmnDefinition *runtime.DecisionDefinition) error {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := map[string]int{}
	var path []string

	var visit func(decisionId string) error
	visit = func(decisionId string) error {
		switch state[decisionId] {
		case inProgress:
			start := 0
			for i, id := range path {
				if id == decisionId {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, path[start:]...), decisionId)
			return dmnerr.New(dmnerr.CircularDependency, "circular decision requirement: %s", strings.Join(cycle, " -> "))
		case done:
			return nil
		}
		decision, ok := dmnDefinition.Decisions[decisionId]
		if !ok {
			return nil
		}
		state[decisionId] = inProgress
		path = append(path, decisionId)
		for _, requiredId := range decision.RequiredDecisions {
			if err := visit(requiredId); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[decisionId] = done
		return nil
	}

	for _, decisionId := range sortedKeys(dmnDefinition.Decisions) {
		if state[decisionId] == unvisited {
			if err := visit(decisionId); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
