package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/pbinitiative/zendmn/internal/config"
	"github.com/pbinitiative/zendmn/internal/log"
	"github.com/pbinitiative/zendmn/internal/otel"
	"github.com/pbinitiative/zendmn/internal/profile"
	"github.com/pbinitiative/zendmn/pkg/dmn"
)

// zendmn evaluates one decision of a DMN file. Parameters are read as a JSON object from
// stdin, the evaluation result is written to stdout.
func main() {
	profile.InitProfile()
	conf := config.InitConfig()
	log.InitWithLevel(conf.Log.Level)
	defer log.Sync()

	appContext, ctxCancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer ctxCancel()

	openTelemetry, err := otel.SetupOtel(conf.Tracing)
	if err != nil {
		log.Error("Failed to set up OTEL: %s", err)
		os.Exit(1)
	}
	defer openTelemetry.Stop(context.Background())

	if err := run(appContext, conf, openTelemetry); err != nil {
		log.Error("%s", err)
		openTelemetry.Stop(context.Background())
		os.Exit(1)
	}
}

func run(ctx context.Context, conf config.Config, openTelemetry *otel.Otel) error {
	definitionPath, decisionId := conf.Engine.DefinitionPath, conf.Engine.DecisionId
	if len(os.Args) > 1 {
		definitionPath = os.Args[1]
	}
	if len(os.Args) > 2 {
		decisionId = os.Args[2]
	}
	if definitionPath == "" || decisionId == "" {
		return fmt.Errorf("usage: zendmn <definition.dmn> <decisionId> < parameters.json")
	}

	engine := dmn.NewEngine(
		dmn.EngineWithName(conf.Name),
		dmn.EngineWithLogger(hclog.New(&hclog.LoggerOptions{
			Name:   "dmn-engine",
			Level:  hclog.LevelFromString(conf.Log.Level),
			Output: os.Stderr,
		})),
		dmn.EngineWithExpressionCacheSize(conf.Engine.ExpressionCacheSize),
		dmn.EngineWithMetrics(openTelemetry.Metrics),
	)

	definition, err := engine.LoadFromFile(ctx, definitionPath)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", definitionPath, err)
	}
	log.Infof(ctx, "Loaded definition %s (%s) into %s", definition.Id, definition.Location, engine.Name())

	parameters := map[string]any{}
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		decoder := json.NewDecoder(os.Stdin)
		decoder.UseNumber()
		if err := decoder.Decode(&parameters); err != nil {
			return fmt.Errorf("failed to decode parameters: %w", err)
		}
	}
	for key, value := range parameters {
		parameters[key] = jsonValue(value)
	}

	result := engine.Evaluate(ctx, definition, decisionId, parameters)
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if !result.RequirementsMet {
		return fmt.Errorf("decision %s was not evaluated: %v", decisionId, result.Errors)
	}
	return nil
}

// jsonValue keeps integral JSON numbers as integers.
func jsonValue(value any) any {
	switch v := value.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case []any:
		for i := range v {
			v[i] = jsonValue(v[i])
		}
		return v
	case map[string]any:
		for key := range v {
			v[key] = jsonValue(v[key])
		}
		return v
	}
	return value
}
