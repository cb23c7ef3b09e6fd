package otel

import (
	"errors"

	"go.opentelemetry.io/otel/metric"
)

type EngineMetrics struct {
	DefinitionsLoaded  metric.Int64Counter
	DecisionsEvaluated metric.Int64Counter
	EvaluationsFailed  metric.Int64Counter
	EvaluationDuration metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*EngineMetrics, error) {
	var errJoin error

	definitionsLoaded, err := meter.Int64Counter("dmn_definitions_loaded", metric.WithDescription("Number of DMN definitions parsed"))
	errJoin = errors.Join(errJoin, err)

	decisionsEvaluated, err := meter.Int64Counter("dmn_decisions_evaluated", metric.WithDescription("Number of top level decision evaluations"))
	errJoin = errors.Join(errJoin, err)

	evaluationsFailed, err := meter.Int64Counter("dmn_evaluations_failed", metric.WithDescription("Number of decision evaluations that ended with an error"))
	errJoin = errors.Join(errJoin, err)

	evaluationDuration, err := meter.Float64Histogram("dmn_evaluation_duration", metric.WithUnit("ms"), metric.WithDescription("Time a top level decision evaluation took, milliseconds"))
	errJoin = errors.Join(errJoin, err)

	metrics := EngineMetrics{
		DefinitionsLoaded:  definitionsLoaded,
		DecisionsEvaluated: decisionsEvaluated,
		EvaluationsFailed:  evaluationsFailed,
		EvaluationDuration: evaluationDuration,
	}
	return &metrics, errJoin
}
