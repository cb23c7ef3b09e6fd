package otel

import (
	"context"
	"fmt"

	"github.com/pbinitiative/zendmn/internal/config"
	otelPkg "github.com/pbinitiative/zendmn/pkg/otel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const engineMeter = "dmn-engine"

type Otel struct {
	meterProvider  *metric.MeterProvider
	tracerprovider *trace.TracerProvider
	// Metrics are registered on the meter provider installed by SetupOtel
	Metrics *otelPkg.EngineMetrics
}

func SetupOtel(conf config.Tracing) (*Otel, error) {
	o := Otel{}
	var err error

	o.meterProvider, err = setupMeterProvider(conf.Name)
	if err != nil {
		return nil, err
	}
	otel.SetMeterProvider(o.meterProvider)
	o.Metrics, err = otelPkg.NewMetrics(otel.Meter(engineMeter))
	if err != nil {
		return nil, fmt.Errorf("failed to create otel instruments: %w", err)
	}
	if conf.Enabled {
		o.tracerprovider, err = setupTraceProvider(conf)
		if err != nil {
			return nil, fmt.Errorf("failed to set up tracer: %w", err)
		}
		otel.SetTracerProvider(o.tracerprovider)
	}

	return &o, nil
}

func (o *Otel) Stop(ctx context.Context) {
	if o.meterProvider != nil {
		_ = o.meterProvider.Shutdown(ctx)
		o.meterProvider = nil
	}
	if o.tracerprovider != nil {
		_ = o.tracerprovider.Shutdown(ctx)
		o.tracerprovider = nil
	}
}

func setupMeterProvider(appName string) (*metric.MeterProvider, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, fmt.Errorf("failed to set up prometheus exporter: %w", err)
	}

	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(appName),
		attribute.String("library.language", "go"),
	))
	if err != nil {
		return nil, err
	}

	meterProvider := metric.NewMeterProvider(
		metric.WithReader(exporter),
		metric.WithResource(res),
	)
	return meterProvider, nil
}
