package otel

const (
	Prefix                  = "dmn-"
	AttributeDefinitionId   = Prefix + "definition-id"
	AttributeDefinitionKey  = Prefix + "definition-key"
	AttributeDecisionId     = Prefix + "decision-id"
	AttributeDecisionName   = Prefix + "decision-name"
	AttributeServiceId      = Prefix + "decision-service-id"
	AttributeDefinitionPath = Prefix + "definition-path"
)
