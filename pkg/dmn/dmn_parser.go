package dmn

import (
	"crypto/md5"
	"encoding/xml"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/pbinitiative/zendmn/pkg/dmn/model/dmn"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
)

// ParseFile reads and parses the DMN document at filename.
func ParseFile(filename string) (*runtime.DecisionDefinition, error) {
	xmlData, err := os.ReadFile(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, dmnerr.Wrap(dmnerr.FileNotFound, err, "dmn file not found: %s", filename)
		}
		return nil, dmnerr.Wrap(dmnerr.Parse, err, "failed to read dmn file: %s", filename)
	}
	return Parse(xmlData, filename)
}

// Parse converts a DMN 1.3 document into a DecisionDefinition. location is recorded
// as the origin of the definition.
func Parse(xmlData []byte, location string) (*runtime.DecisionDefinition, error) {
	var definitions dmn.TDefinitions
	err := xml.Unmarshal(xmlData, &definitions)
	if err != nil {
		return nil, dmnerr.Wrap(dmnerr.Parse, err, "failed to parse dmn definition from file: %v", location)
	}

	def := runtime.NewDecisionDefinition(definitions.Id, definitions.Name, definitions.Namespace)
	def.Location = location
	def.ModelNamespace = definitions.XMLName.Space
	def.Checksum = md5.Sum(xmlData)

	for _, imp := range definitions.Imports {
		def.Imports = append(def.Imports, runtime.Import{
			Namespace:   imp.Namespace,
			LocationURI: imp.LocationURI,
			ImportType:  imp.ImportType,
		})
	}

	for _, inputData := range definitions.InputData {
		input := variableBinding(inputData.Id, inputData.Name, inputData.Variable)
		def.Inputs[input.Id] = &input
	}

	for _, tbkm := range definitions.BusinessKnowledgeModels {
		binding := variableBinding(tbkm.Id, tbkm.Name, tbkm.Variable)
		bkm := runtime.BusinessKnowledgeModel{
			Id:           tbkm.Id,
			Name:         tbkm.Name,
			VariableName: binding.VariableName,
		}
		for _, parameter := range tbkm.EncapsulatedLogic.FormalParameters {
			bkm.Parameters = append(bkm.Parameters, variableBinding(parameter.Id, parameter.Name, &parameter))
		}
		if le := tbkm.EncapsulatedLogic.LiteralExpression; le != nil {
			bkm.Body = &runtime.LiteralExpression{Text: strings.TrimSpace(le.Text), TypeRef: string(le.TypeRef)}
		}
		def.BusinessKnowledgeModels[bkm.Id] = &bkm
	}

	for _, tdecision := range definitions.Decisions {
		decision := parseDecision(tdecision)
		def.Decisions[decision.Id] = decision
	}

	for _, tservice := range definitions.DecisionServices {
		service := runtime.DecisionService{
			Id:   tservice.Id,
			Name: tservice.Name,
		}
		for _, ref := range tservice.OutputDecisions {
			service.OutputDecisions = append(service.OutputDecisions, refId(ref.Href))
		}
		for _, ref := range tservice.InputData {
			service.InputData = append(service.InputData, refId(ref.Href))
		}
		def.DecisionServices[service.Id] = &service
	}

	return def, nil
}

func variableBinding(id string, name string, variable *dmn.TVariable) runtime.Input {
	input := runtime.Input{
		Id:           id,
		Name:         name,
		VariableName: defaultVariableName(name),
	}
	if variable != nil {
		if variable.Name != "" {
			input.VariableName = variable.Name
		}
		input.TypeRef = string(variable.TypeRef)
	}
	return input
}

func parseDecision(tdecision dmn.TDecision) *runtime.Decision {
	binding := variableBinding(tdecision.Id, tdecision.Name, tdecision.Variable)
	decision := runtime.Decision{
		Id:           tdecision.Id,
		Name:         tdecision.Name,
		VariableName: binding.VariableName,
	}

	for _, requirement := range tdecision.InformationRequirement {
		switch {
		case requirement.RequiredInput != nil:
			decision.RequiredInputs = append(decision.RequiredInputs, refId(requirement.RequiredInput.Href))
		case requirement.RequiredDecision != nil:
			decision.RequiredDecisions = append(decision.RequiredDecisions, decisionRef(requirement.RequiredDecision.Href))
		}
	}
	for _, requirement := range tdecision.KnowledgeRequirement {
		if requirement.RequiredKnowledge != nil {
			decision.RequiredKnowledge = append(decision.RequiredKnowledge, refId(requirement.RequiredKnowledge.Href))
		}
	}

	switch {
	case tdecision.DecisionTable != nil:
		decision.ExpressionKind = runtime.ExpressionKindDecisionTable
		decision.Table = parseDecisionTable(*tdecision.DecisionTable, decision.VariableName)
	case tdecision.LiteralExpression != nil:
		decision.ExpressionKind = runtime.ExpressionKindLiteral
		decision.Literal = &runtime.LiteralExpression{
			Text:    strings.TrimSpace(tdecision.LiteralExpression.Text),
			TypeRef: string(tdecision.LiteralExpression.TypeRef),
		}
	}
	return &decision
}

// parseHitPolicy maps the hitPolicy attribute; unknown values fall back to UNIQUE.
func parseHitPolicy(hitPolicy dmn.HitPolicy) runtime.HitPolicy {
	normalized := strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(string(hitPolicy))), "_", " ")
	switch dmn.HitPolicy(normalized) {
	case dmn.HitPolicyFirst:
		return runtime.HitPolicyFirst
	case dmn.HitPolicyAny:
		return runtime.HitPolicyAny
	case dmn.HitPolicyPriority:
		return runtime.HitPolicyPriority
	case dmn.HitPolicyCollect:
		return runtime.HitPolicyCollect
	case dmn.HitPolicyRuleOrder:
		return runtime.HitPolicyRuleOrder
	case dmn.HitPolicyOutputOrder:
		return runtime.HitPolicyOutputOrder
	default:
		return runtime.HitPolicyUnique
	}
}

func parseDecisionTable(table dmn.TDecisionTable, decisionVariable string) *runtime.DecisionTable {
	decisionTable := runtime.DecisionTable{
		HitPolicy:   parseHitPolicy(table.HitPolicy),
		Aggregation: runtime.Aggregation(strings.ToUpper(strings.TrimSpace(string(table.HitPolicyAggregation)))),
	}

	for _, input := range table.Inputs {
		decisionTable.Inputs = append(decisionTable.Inputs, runtime.InputClause{
			Id:         input.Id,
			Expression: strings.TrimSpace(input.InputExpression.Text),
			Label:      input.Label,
			TypeRef:    string(input.InputExpression.TypeRef),
		})
	}

	for _, output := range table.Outputs {
		name := output.Name
		if name == "" {
			name = output.Label
		}
		if name == "" && len(table.Outputs) == 1 {
			name = decisionVariable
		}
		decisionTable.Outputs = append(decisionTable.Outputs, runtime.OutputClause{
			Id:      output.Id,
			Name:    name,
			Label:   output.Label,
			TypeRef: string(output.TypeRef),
		})
	}

	for _, trule := range table.Rules {
		rule := runtime.Rule{Id: trule.Id}
		for _, entry := range trule.InputEntry {
			text := "-"
			if entry.Text != nil && strings.TrimSpace(*entry.Text) != "" {
				text = strings.TrimSpace(*entry.Text)
			}
			rule.InputEntries = append(rule.InputEntries, text)
		}
		for _, entry := range trule.OutputEntry {
			text := ""
			if entry.Text != nil {
				text = strings.TrimSpace(*entry.Text)
			}
			rule.OutputEntries = append(rule.OutputEntries, text)
		}
		if description := strings.TrimSpace(trule.Description); description != "" {
			rule.Annotations = append(rule.Annotations, description)
		}
		for _, annotation := range trule.AnnotationEntry {
			if text := strings.TrimSpace(annotation.Text); text != "" {
				rule.Annotations = append(rule.Annotations, text)
			}
		}
		decisionTable.Rules = append(decisionTable.Rules, rule)
	}
	return &decisionTable
}
