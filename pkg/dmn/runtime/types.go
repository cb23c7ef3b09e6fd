package runtime

// DecisionDefinition is one parsed DMN document.
type DecisionDefinition struct {
	Key       int64  // The engines key for this given decision definition
	Id        string // The ID as defined in the DMN file
	Name      string // The name as defined in the DMN file
	Namespace string // The target namespace of the definitions element
	// ModelNamespace is the XML namespace of the definitions element, normally the DMN 1.3 model namespace
	ModelNamespace string
	Location       string   // absolute path of the file the definition was loaded from
	Checksum       [16]byte // md5 of the raw source data

	Inputs                  map[string]*Input
	Decisions               map[string]*Decision
	BusinessKnowledgeModels map[string]*BusinessKnowledgeModel
	DecisionServices        map[string]*DecisionService
	Imports                 []Import
}

// NewDecisionDefinition returns a definition with all maps allocated.
func NewDecisionDefinition(id string, name string, namespace string) *DecisionDefinition {
	return &DecisionDefinition{
		Id:                      id,
		Name:                    name,
		Namespace:               namespace,
		Inputs:                  map[string]*Input{},
		Decisions:               map[string]*Decision{},
		BusinessKnowledgeModels: map[string]*BusinessKnowledgeModel{},
		DecisionServices:        map[string]*DecisionService{},
	}
}

// Input is an inputData element, also used for BKM formal parameters.
type Input struct {
	Id           string
	Name         string
	VariableName string
	TypeRef      string // informational only
}

type ExpressionKind int

const (
	ExpressionKindUnknown ExpressionKind = iota
	ExpressionKindLiteral
	ExpressionKindDecisionTable
)

func (k ExpressionKind) String() string {
	switch k {
	case ExpressionKindLiteral:
		return "literalExpression"
	case ExpressionKindDecisionTable:
		return "decisionTable"
	}
	return "unknown"
}

type Decision struct {
	Id                string
	Name              string
	VariableName      string
	ExpressionKind    ExpressionKind
	Literal           *LiteralExpression
	Table             *DecisionTable
	RequiredInputs    []string
	RequiredDecisions []string // decision ids, "document#id" for decisions of an imported definition
	RequiredKnowledge []string
}

type LiteralExpression struct {
	Text    string
	TypeRef string
}

type HitPolicy int

const (
	HitPolicyUnique HitPolicy = iota
	HitPolicyFirst
	HitPolicyAny
	HitPolicyPriority
	HitPolicyCollect
	HitPolicyRuleOrder
	HitPolicyOutputOrder
)

func (h HitPolicy) String() string {
	switch h {
	case HitPolicyUnique:
		return "UNIQUE"
	case HitPolicyFirst:
		return "FIRST"
	case HitPolicyAny:
		return "ANY"
	case HitPolicyPriority:
		return "PRIORITY"
	case HitPolicyCollect:
		return "COLLECT"
	case HitPolicyRuleOrder:
		return "RULE_ORDER"
	case HitPolicyOutputOrder:
		return "OUTPUT_ORDER"
	}
	return "UNKNOWN"
}

// Aggregation is the optional COLLECT aggregator; empty means a plain list.
type Aggregation string

const (
	AggregationNone  Aggregation = ""
	AggregationSum   Aggregation = "SUM"
	AggregationMin   Aggregation = "MIN"
	AggregationMax   Aggregation = "MAX"
	AggregationCount Aggregation = "COUNT"
)

type DecisionTable struct {
	HitPolicy   HitPolicy
	Aggregation Aggregation
	Inputs      []InputClause
	Outputs     []OutputClause
	Rules       []Rule
}

type InputClause struct {
	Id         string
	Expression string
	Label      string
	TypeRef    string
}

type OutputClause struct {
	Id      string
	Name    string
	Label   string
	TypeRef string
}

type Rule struct {
	Id            string
	InputEntries  []string
	OutputEntries []string
	Annotations   []string
}

type BusinessKnowledgeModel struct {
	Id           string
	Name         string
	VariableName string
	Parameters   []Input
	Body         *LiteralExpression // nil when the encapsulated logic is not a literal expression
}

type DecisionService struct {
	Id              string
	Name            string
	OutputDecisions []string
	InputData       []string
}

type Import struct {
	Namespace   string
	LocationURI string
	ImportType  string
}
