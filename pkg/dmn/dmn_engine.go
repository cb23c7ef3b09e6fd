package dmn

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/hashicorp/go-hclog"
	"github.com/pbinitiative/zendmn/pkg/dmn/dmnerr"
	"github.com/pbinitiative/zendmn/pkg/dmn/feel"
	"github.com/pbinitiative/zendmn/pkg/dmn/model/dmn"
	"github.com/pbinitiative/zendmn/pkg/dmn/runtime"
	otelPkg "github.com/pbinitiative/zendmn/pkg/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type DmnEngine interface {
	LoadFromFile(ctx context.Context, filename string) (*runtime.DecisionDefinition, error)
	Evaluate(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, decisionId string, parameters map[string]any) *EvaluationResult
	EvaluateDRD(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, decisionId string, parameters map[string]any) (*EvaluatedDRDResult, error)
	EvaluateDecisionService(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, serviceId string, parameters map[string]any) (any, error)
	Validate(ctx context.Context, dmnDefinition *runtime.DecisionDefinition) error
}

type ZenDmnEngine struct {
	name                string
	logger              hclog.Logger
	feelRuntime         *feel.Runtime
	expressionCacheSize int
	snowflake           *snowflake.Node
	metrics             *otelPkg.EngineMetrics
	tracer              trace.Tracer

	loadMu sync.Mutex
	// definitions is keyed by absolute file path
	definitions map[string]*runtime.DecisionDefinition
	// imports maps a loaded definition to its imported definitions by namespace
	imports    map[*runtime.DecisionDefinition]map[string]*runtime.DecisionDefinition
	parseCount int
}

type EngineOption = func(*ZenDmnEngine)

// NewEngine creates a new instance of the DMN Engine;
func NewEngine(options ...EngineOption) *ZenDmnEngine {
	name := fmt.Sprintf("Dmn-Engine-%d", getGlobalSnowflakeIdGenerator().Generate().Int64())
	engine := ZenDmnEngine{
		name:        name,
		logger:      hclog.Default().Named("dmn-engine"),
		snowflake:   getGlobalSnowflakeIdGenerator(),
		tracer:      otel.GetTracerProvider().Tracer("dmn-engine"),
		definitions: map[string]*runtime.DecisionDefinition{},
		imports:     map[*runtime.DecisionDefinition]map[string]*runtime.DecisionDefinition{},
	}

	for _, option := range options {
		option(&engine)
	}

	if engine.feelRuntime == nil {
		feelRuntime, err := feel.NewRuntime(engine.expressionCacheSize)
		if err != nil {
			engine.logger.Warn("falling back to the shared FEEL runtime", "err", err)
			feelRuntime = feel.Default()
		}
		engine.feelRuntime = feelRuntime
	}
	if engine.metrics == nil {
		metrics, err := otelPkg.NewMetrics(otel.Meter("dmn-engine"))
		if err != nil {
			engine.logger.Warn("failed to create engine metrics", "err", err)
		} else {
			engine.metrics = metrics
		}
	}
	return &engine
}

func EngineWithName(name string) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.name = name
	}
}

func EngineWithLogger(logger hclog.Logger) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.logger = logger
	}
}

// EngineWithFeelRuntime shares one FEEL runtime (and its expression cache) between engines.
func EngineWithFeelRuntime(feelRuntime *feel.Runtime) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.feelRuntime = feelRuntime
	}
}

func EngineWithExpressionCacheSize(size int) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.expressionCacheSize = size
	}
}

func EngineWithMetrics(metrics *otelPkg.EngineMetrics) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.metrics = metrics
	}
}

func EngineWithTracer(tracer trace.Tracer) EngineOption {
	return func(engine *ZenDmnEngine) {
		engine.tracer = tracer
	}
}

func (engine *ZenDmnEngine) Name() string {
	return engine.name
}

// LoadFromFile parses the DMN file and every file it imports. Definitions are cached by
// absolute path, loading the same path again returns the cached instance.
func (engine *ZenDmnEngine) LoadFromFile(ctx context.Context, filename string) (*runtime.DecisionDefinition, error) {
	path, err := filepath.Abs(filename)
	if err != nil {
		return nil, dmnerr.Wrap(dmnerr.FileNotFound, err, "failed to resolve dmn file path: %s", filename)
	}
	engine.loadMu.Lock()
	defer engine.loadMu.Unlock()
	return engine.load(ctx, path)
}

// load expects loadMu to be held
func (engine *ZenDmnEngine) load(ctx context.Context, path string) (*runtime.DecisionDefinition, error) {
	if definition, ok := engine.definitions[path]; ok {
		engine.logger.Debug("dmn definition served from cache", "path", path)
		return definition, nil
	}

	definition, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	definition.Key = engine.generateKey()
	if definition.ModelNamespace != "" && definition.ModelNamespace != dmn.DefaultModelNamespace {
		engine.logger.Debug("dmn definition uses a non default model namespace", "path", path, "namespace", definition.ModelNamespace)
	}

	// cached before imports are followed so that cyclic imports terminate
	engine.definitions[path] = definition
	imported := map[string]*runtime.DecisionDefinition{}
	engine.imports[definition] = imported
	engine.parseCount++
	if engine.metrics != nil {
		engine.metrics.DefinitionsLoaded.Add(ctx, 1)
	}
	engine.logger.Debug("dmn definition loaded", "path", path, "id", definition.Id, "key", definition.Key)

	for _, imp := range definition.Imports {
		if imp.LocationURI == "" {
			engine.logger.Warn("import without location is ignored", "path", path, "namespace", imp.Namespace)
			continue
		}
		location := imp.LocationURI
		if !filepath.IsAbs(location) {
			location = filepath.Join(filepath.Dir(path), location)
		}
		importedDefinition, err := engine.load(ctx, filepath.Clean(location))
		if err != nil {
			delete(engine.definitions, path)
			delete(engine.imports, definition)
			return nil, fmt.Errorf("failed to load import %s of %s: %w", imp.LocationURI, path, err)
		}
		imported[imp.Namespace] = importedDefinition
	}
	return definition, nil
}

// Imports returns the definitions imported by dmnDefinition keyed by namespace.
func (engine *ZenDmnEngine) Imports(dmnDefinition *runtime.DecisionDefinition) map[string]*runtime.DecisionDefinition {
	engine.loadMu.Lock()
	defer engine.loadMu.Unlock()
	imported := make(map[string]*runtime.DecisionDefinition, len(engine.imports[dmnDefinition]))
	for namespace, definition := range engine.imports[dmnDefinition] {
		imported[namespace] = definition
	}
	return imported
}

// Evaluate evaluates the decision and all its requirements. It never fails, errors are
// reported in EvaluationResult.Errors.
func (engine *ZenDmnEngine) Evaluate(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, decisionId string, parameters map[string]any) *EvaluationResult {
	start := time.Now()
	result := &EvaluationResult{
		Output:     map[string]any{},
		DecisionId: decisionId,
		Input:      parameters,
	}
	if dmnDefinition == nil {
		result.MissingRequired = true
		result.Errors = []string{newExecutionErrorf("no decision definition given for decision [%s]", decisionId).Error()}
		return result
	}
	result.SpecId = dmnDefinition.Id

	ctx, span := engine.tracer.Start(ctx, fmt.Sprintf("evaluate:%s", decisionId), trace.WithAttributes(
		attribute.String(otelPkg.AttributeDefinitionId, dmnDefinition.Id),
		attribute.Int64(otelPkg.AttributeDefinitionKey, dmnDefinition.Key),
		attribute.String(otelPkg.AttributeDecisionId, decisionId),
	))
	defer span.End()

	ec := newExecutionContext(copyVariables(parameters))
	value, decision, err := engine.evaluateById(ctx, ec, dmnDefinition, decisionId)
	result.Trace = ec.root
	result.EvaluatedDecisions = ec.evaluated
	result.Errors = ec.errors
	engine.recordEvaluation(ctx, start, err)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		result.MissingRequired = true
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		engine.logger.Warn("decision evaluation failed", "definition", dmnDefinition.Id, "decision", decisionId, "err", err)
		return result
	}

	result.Output[decision.VariableName] = value
	result.RequirementsMet = true
	return result
}

// EvaluateDRD evaluates the decision requirements graph of decisionId and returns every
// evaluated decision in completion order, the requested decision last.
func (engine *ZenDmnEngine) EvaluateDRD(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, decisionId string, parameters map[string]any) (*EvaluatedDRDResult, error) {
	if dmnDefinition == nil {
		return nil, newExecutionErrorf("no decision definition given for decision [%s]", decisionId)
	}
	start := time.Now()
	ctx, span := engine.tracer.Start(ctx, fmt.Sprintf("evaluate-drd:%s", decisionId), trace.WithAttributes(
		attribute.String(otelPkg.AttributeDefinitionId, dmnDefinition.Id),
		attribute.Int64(otelPkg.AttributeDefinitionKey, dmnDefinition.Key),
		attribute.String(otelPkg.AttributeDecisionId, decisionId),
	))
	defer span.End()

	ec := newExecutionContext(copyVariables(parameters))
	value, _, err := engine.evaluateById(ctx, ec, dmnDefinition, decisionId)
	engine.recordEvaluation(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("failed to evaluate decision: %v, %w", decisionId, err)
	}

	return &EvaluatedDRDResult{
		EvaluatedDecisions: ec.evaluated,
		DecisionOutput:     value,
		Trace:              ec.root,
		Errors:             ec.errors,
	}, nil
}

func (engine *ZenDmnEngine) recordEvaluation(ctx context.Context, start time.Time, err error) {
	if engine.metrics == nil {
		return
	}
	engine.metrics.DecisionsEvaluated.Add(ctx, 1)
	engine.metrics.EvaluationDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000, metric.WithAttributes(attribute.Bool("failed", err != nil)))
	if err != nil {
		engine.metrics.EvaluationsFailed.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", dmnerr.KindOf(err).String())))
	}
}

func (engine *ZenDmnEngine) evaluateById(ctx context.Context, ec *executionContext, dmnDefinition *runtime.DecisionDefinition, decisionId string) (any, *runtime.Decision, error) {
	decision, ok := dmnDefinition.Decisions[decisionId]
	if !ok {
		return nil, nil, decisionNotFound(decisionId)
	}
	value, err := engine.evaluateDecision(ctx, ec, dmnDefinition, decision)
	return value, decision, err
}

// resolveDecision finds a required decision. A reference with a document part
// ("rates.dmn#base_rate") is looked up in the import with that location or namespace. A bare id
// is looked up in the definition itself and, failing that, in its imports.
func (engine *ZenDmnEngine) resolveDecision(dmnDefinition *runtime.DecisionDefinition, ref string) (*runtime.DecisionDefinition, *runtime.Decision) {
	document, decisionId := splitRef(ref)
	if document != "" && document != dmnDefinition.Namespace {
		imported := engine.Imports(dmnDefinition)
		for _, imp := range dmnDefinition.Imports {
			if imp.LocationURI != document && imp.Namespace != document {
				continue
			}
			if owner, ok := imported[imp.Namespace]; ok {
				if decision, ok := owner.Decisions[decisionId]; ok {
					return owner, decision
				}
			}
		}
		return nil, nil
	}
	if decision, ok := dmnDefinition.Decisions[decisionId]; ok {
		return dmnDefinition, decision
	}
	imported := engine.Imports(dmnDefinition)
	namespaces := make([]string, 0, len(imported))
	for namespace := range imported {
		namespaces = append(namespaces, namespace)
	}
	sort.Strings(namespaces)
	for _, namespace := range namespaces {
		if decision, ok := imported[namespace].Decisions[decisionId]; ok {
			return imported[namespace], decision
		}
	}
	return nil, nil
}

func (engine *ZenDmnEngine) evaluateDecision(ctx context.Context, ec *executionContext, dmnDefinition *runtime.DecisionDefinition, decision *runtime.Decision) (any, error) {
	if value, ok := ec.cached(dmnDefinition, decision); ok {
		return value, nil
	}
	key := decisionKey{definition: dmnDefinition, id: decision.Id}
	if ec.evaluating[key] {
		return nil, dmnerr.New(dmnerr.CircularDependency, "circular dependency detected at decision [%s]", decision.Id)
	}
	ec.evaluating[key] = true
	defer delete(ec.evaluating, key)

	ctx, span := engine.tracer.Start(ctx, fmt.Sprintf("decision:%s", decision.Id), trace.WithAttributes(
		attribute.String(otelPkg.AttributeDecisionId, decision.Id),
		attribute.String(otelPkg.AttributeDecisionName, decision.Name),
	))
	defer span.End()

	node := ec.push(traceTypeDecision, decision.Name)
	defer ec.pop()
	node.Details["decision_id"] = decision.Id
	node.Details["decision_name"] = decision.Name

	record := EvaluatedDecisionResult{
		DecisionId:            decision.Id,
		DecisionName:          decision.Name,
		VariableName:          decision.VariableName,
		DecisionType:          decision.ExpressionKind.String(),
		DecisionDefinitionId:  dmnDefinition.Id,
		DecisionDefinitionKey: dmnDefinition.Key,
	}
	value, err := engine.evaluateDecisionExpression(ctx, ec, dmnDefinition, decision, &record)
	if err != nil {
		node.Details["error"] = err.Error()
		ec.fail(decision.Name, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	ec.store(dmnDefinition, decision, value)
	node.Result = value
	record.DecisionOutput = value
	ec.evaluated = append(ec.evaluated, record)
	return value, nil
}

func (engine *ZenDmnEngine) evaluateDecisionExpression(ctx context.Context, ec *executionContext, dmnDefinition *runtime.DecisionDefinition, decision *runtime.Decision, record *EvaluatedDecisionResult) (any, error) {
	// direct requirements shadow other results, imported ones are only visible this way
	required := map[string]any{}
	for _, ref := range decision.RequiredDecisions {
		owner, requiredDecision := engine.resolveDecision(dmnDefinition, ref)
		if requiredDecision == nil {
			return nil, decisionNotFound(ref)
		}
		value, err := engine.evaluateDecision(ctx, ec, owner, requiredDecision)
		if err != nil {
			return nil, err
		}
		required[requiredDecision.Id] = value
		required[requiredDecision.VariableName] = value
	}
	scope := ec.scope(dmnDefinition)
	for key, value := range required {
		scope[key] = value
	}

	var missing []string
	for _, inputId := range decision.RequiredInputs {
		input, ok := dmnDefinition.Inputs[inputId]
		if !ok {
			continue
		}
		if _, ok := ec.parameters[input.VariableName]; !ok {
			missing = append(missing, input.VariableName)
		}
	}
	if len(missing) > 0 {
		ec.top().Details["missing_inputs"] = missing
	}

	switch decision.ExpressionKind {
	case runtime.ExpressionKindLiteral:
		engine.injectCallables(ctx, ec, dmnDefinition, scope)
		return engine.feelRuntime.Evaluate(decision.Literal.Text, scope)
	case runtime.ExpressionKindDecisionTable:
		return engine.evaluateDecisionTable(scope, decision.Table, record)
	default:
		return nil, newExecutionErrorf("decision [%s] has no supported expression", decision.Id)
	}
}

// injectCallables binds every BKM of the definition and every decision service of its
// imports into scope.
func (engine *ZenDmnEngine) injectCallables(ctx context.Context, ec *executionContext, dmnDefinition *runtime.DecisionDefinition, scope map[string]any) {
	engine.injectBkms(ctx, ec, dmnDefinition, scope)
	for _, imported := range engine.Imports(dmnDefinition) {
		for _, service := range imported.DecisionServices {
			scope[service.Id] = &decisionServiceFunction{
				engine:     engine,
				ctx:        ctx,
				parent:     ec,
				definition: imported,
				service:    service,
			}
		}
	}
}

func (engine *ZenDmnEngine) injectBkms(ctx context.Context, ec *executionContext, dmnDefinition *runtime.DecisionDefinition, scope map[string]any) {
	for _, bkm := range dmnDefinition.BusinessKnowledgeModels {
		function := &bkmFunction{
			engine:     engine,
			ctx:        ctx,
			ec:         ec,
			definition: dmnDefinition,
			bkm:        bkm,
		}
		scope[bkmBindingName(bkm)] = function
		if bkm.VariableName != "" {
			scope[bkm.VariableName] = function
		}
	}
}

// EvaluateDecisionService invokes a decision service of dmnDefinition with named parameters.
func (engine *ZenDmnEngine) EvaluateDecisionService(ctx context.Context, dmnDefinition *runtime.DecisionDefinition, serviceId string, parameters map[string]any) (any, error) {
	if dmnDefinition == nil {
		return nil, newExecutionErrorf("no decision definition given for decision service [%s]", serviceId)
	}
	service, ok := dmnDefinition.DecisionServices[serviceId]
	if !ok {
		return nil, decisionServiceNotFound(serviceId)
	}
	start := time.Now()
	ctx, span := engine.tracer.Start(ctx, fmt.Sprintf("evaluate-service:%s", serviceId), trace.WithAttributes(
		attribute.String(otelPkg.AttributeDefinitionId, dmnDefinition.Id),
		attribute.String(otelPkg.AttributeServiceId, serviceId),
	))
	defer span.End()

	value, _, err := engine.invokeDecisionService(ctx, dmnDefinition, service, copyVariables(parameters))
	engine.recordEvaluation(ctx, start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, errors.Join(fmt.Errorf("failed to evaluate decision service: %v", serviceId), err)
	}
	return value, nil
}
