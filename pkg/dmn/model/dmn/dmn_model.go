package dmn

import "encoding/xml"

// DefaultModelNamespace is the DMN 1.3 model namespace.
const DefaultModelNamespace = "https://www.omg.org/spec/DMN/20191111/MODEL/"

type TDefinitions struct {
	XMLName                 xml.Name                  `xml:"definitions"`
	Id                      string                    `xml:"id,attr"`
	Name                    string                    `xml:"name,attr"`
	Namespace               string                    `xml:"namespace,attr"`
	Exporter                string                    `xml:"exporter,attr"`
	ExporterVersion         string                    `xml:"exporterVersion,attr"`
	Imports                 []TImport                 `xml:"import"`
	InputData               []TInputData              `xml:"inputData"`
	BusinessKnowledgeModels []TBusinessKnowledgeModel `xml:"businessKnowledgeModel"`
	Decisions               []TDecision               `xml:"decision"`
	DecisionServices        []TDecisionService        `xml:"decisionService"`
}

type TImport struct {
	Name        string `xml:"name,attr"`
	Namespace   string `xml:"namespace,attr"`
	LocationURI string `xml:"locationURI,attr"`
	ImportType  string `xml:"importType,attr"`
}

type TInputData struct {
	Id       string     `xml:"id,attr"`
	Name     string     `xml:"name,attr"`
	Variable *TVariable `xml:"variable"`
}

type TBusinessKnowledgeModel struct {
	Id                string             `xml:"id,attr"`
	Name              string             `xml:"name,attr"`
	Variable          *TVariable         `xml:"variable"`
	EncapsulatedLogic TEncapsulatedLogic `xml:"encapsulatedLogic"`
}

type TEncapsulatedLogic struct {
	FormalParameters  []TVariable         `xml:"formalParameter"`
	LiteralExpression *TLiteralExpression `xml:"literalExpression"`
	DecisionTable     *TDecisionTable     `xml:"decisionTable"`
}

type TDecision struct {
	Id                     string                    `xml:"id,attr"`
	Name                   string                    `xml:"name,attr"`
	Variable               *TVariable                `xml:"variable"`
	DecisionTable          *TDecisionTable           `xml:"decisionTable"`
	LiteralExpression      *TLiteralExpression       `xml:"literalExpression"`
	InformationRequirement []TInformationRequirement `xml:"informationRequirement"`
	KnowledgeRequirement   []TKnowledgeRequirement   `xml:"knowledgeRequirement"`
}

type TDecisionService struct {
	Id               string       `xml:"id,attr"`
	Name             string       `xml:"name,attr"`
	Variable         *TVariable   `xml:"variable"`
	OutputDecisions  []TReference `xml:"outputDecision"`
	InputData        []TReference `xml:"inputData"`
	InputDecisions   []TReference `xml:"inputDecision"`
	EncapsulatedDecs []TReference `xml:"encapsulatedDecision"`
}

type TReference struct {
	Href string `xml:"href,attr"`
}

type TDecisionTable struct {
	Id                   string               `xml:"id,attr"`
	HitPolicy            HitPolicy            `xml:"hitPolicy,attr"`
	HitPolicyAggregation HitPolicyAggregation `xml:"aggregation,attr"`
	Inputs               []TInput             `xml:"input"`
	Outputs              []TOutput            `xml:"output"`
	Rules                []TRule              `xml:"rule"`
}

type TInput struct {
	Id              string           `xml:"id,attr"`
	Label           string           `xml:"label,attr"`
	InputExpression TInputExpression `xml:"inputExpression"`
}

type TInputExpression struct {
	Id      string  `xml:"id,attr"`
	TypeRef TypeRef `xml:"typeRef,attr"`
	Text    string  `xml:"text"`
}

type TOutput struct {
	Id      string  `xml:"id,attr"`
	Label   string  `xml:"label,attr"`
	Name    string  `xml:"name,attr"`
	TypeRef TypeRef `xml:"typeRef,attr"`
}

type TRule struct {
	Id              string             `xml:"id,attr"`
	Description     string             `xml:"description"`
	InputEntry      []TEntry           `xml:"inputEntry"`
	OutputEntry     []TEntry           `xml:"outputEntry"`
	AnnotationEntry []TAnnotationEntry `xml:"annotationEntry"`
}

// TEntry is an inputEntry or outputEntry cell. Text is nil when the cell has no text node.
type TEntry struct {
	Id   string  `xml:"id,attr"`
	Text *string `xml:"text"`
}

type TAnnotationEntry struct {
	Text string `xml:"text"`
}

type TVariable struct {
	Id      string  `xml:"id,attr"`
	Name    string  `xml:"name,attr"`
	TypeRef TypeRef `xml:"typeRef,attr"`
}

type TLiteralExpression struct {
	Id      string  `xml:"id,attr"`
	TypeRef TypeRef `xml:"typeRef,attr"`
	Text    string  `xml:"text"`
}

type TInformationRequirement struct {
	Id               string      `xml:"id,attr"`
	RequiredDecision *TReference `xml:"requiredDecision"`
	RequiredInput    *TReference `xml:"requiredInput"`
}

type TKnowledgeRequirement struct {
	Id                string      `xml:"id,attr"`
	RequiredKnowledge *TReference `xml:"requiredKnowledge"`
}

type TypeRef string

const (
	TypeRefString            TypeRef = "string"
	TypeRefNumber            TypeRef = "number"
	TypeRefBoolean           TypeRef = "boolean"
	TypeRefDate              TypeRef = "date"
	TypeRefTime              TypeRef = "time"
	TypeRefDateTime          TypeRef = "dateTime"
	TypeRefDateTimeDuration  TypeRef = "dateTimeDuration"
	TypeRefYearMonthDuration TypeRef = "yearMonthDuration"
	TypeRefAny               TypeRef = "any"
)

type HitPolicy string

const (
	HitPolicyUnique      HitPolicy = "UNIQUE"
	HitPolicyCollect     HitPolicy = "COLLECT"
	HitPolicyFirst       HitPolicy = "FIRST"
	HitPolicyPriority    HitPolicy = "PRIORITY"
	HitPolicyAny         HitPolicy = "ANY"
	HitPolicyRuleOrder   HitPolicy = "RULE ORDER"
	HitPolicyOutputOrder HitPolicy = "OUTPUT ORDER"
)

type HitPolicyAggregation string

const (
	HitPolicyAggregationSum   HitPolicyAggregation = "SUM"
	HitPolicyAggregationMin   HitPolicyAggregation = "MIN"
	HitPolicyAggregationMax   HitPolicyAggregation = "MAX"
	HitPolicyAggregationCount HitPolicyAggregation = "COUNT"
)
