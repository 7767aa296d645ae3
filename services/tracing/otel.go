package tracing

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/jgfoster/PrairieLearn/core"
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(context.Context) error

func noopShutdown(context.Context) error { return nil }

// Init installs a global tracer provider exporting spans over OTLP/HTTP.
// When tracing is disabled the otel no-op provider stays in place.
func Init(ctx context.Context, conf *core.Config, logger core.Logger) (ShutdownFunc, error) {
	if !conf.Tracing.Enabled {
		return noopShutdown, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", conf.AppName),
		attribute.String("service.version", conf.Build),
		attribute.String("deployment.environment", conf.Env),
	))
	if err != nil {
		logger.Warn("otel resource init failed (continuing)", err)
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(conf.Tracing.Endpoint)}
	if conf.Debug {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "creating otlp exporter")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	logger.Info("otel tracing initialized", map[string]interface{}{"endpoint": conf.Tracing.Endpoint})
	return tp.Shutdown, nil
}
