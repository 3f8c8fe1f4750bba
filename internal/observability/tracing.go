package observability

import (
	"context"
	"errors"
	"fmt"

	"webforum/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the global tracer used for the application.
var Tracer trace.Tracer = otel.Tracer("webforum")

// TracingConfig holds configuration for initializing the tracer.
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	Enabled        bool
	Exporter       string // "stdout" or "otlp"
	OTLPEndpoint   string
	SamplerRatio   float64
}

// InitTracing installs the global tracer provider and returns its shutdown
// function. When tracing is disabled the no-op provider stays in place.
func InitTracing(cfg TracingConfig) (func(context.Context) error, error) {
	if !cfg.Enabled {
		Tracer = otel.Tracer(cfg.ServiceName)
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create tracing exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("deployment.environment", cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(newSampler(cfg.SamplerRatio)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	Tracer = tp.Tracer(cfg.ServiceName)

	return tp.Shutdown, nil
}

func newExporter(cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "otlp":
		return otlptracehttp.New(context.Background(),
			otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
			otlptracehttp.WithInsecure(),
		)
	case "stdout", "":
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, fmt.Errorf("unknown exporter %q", cfg.Exporter)
	}
}

// newSampler samples everything at ratio >= 1 and nothing at ratio <= 0.
// In between, the root decides and children follow their parent.
func newSampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio >= 1:
		return sdktrace.AlwaysSample()
	case ratio <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

// Operation is a span around one service, storage or cache call.
type Operation struct {
	span trace.Span
}

// StartOperation opens an internal span named "<component>.<name>".
func StartOperation(ctx context.Context, component, name string, attrs ...attribute.KeyValue) (context.Context, *Operation) {
	ctx, span := Tracer.Start(ctx, component+"."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
	)
	return ctx, &Operation{span: span}
}

// StartStorage opens a client span for a database call on table.
func StartStorage(ctx context.Context, system, table, name string) (context.Context, *Operation) {
	ctx, span := Tracer.Start(ctx, "repository."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", system),
			attribute.String("db.operation", name),
			attribute.String("db.sql.table", table),
		),
	)
	return ctx, &Operation{span: span}
}

// StartCache opens a client span for a Redis call on key.
func StartCache(ctx context.Context, name, key string) (context.Context, *Operation) {
	ctx, span := Tracer.Start(ctx, "redis."+name,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", name),
			attribute.String("cache.key", key),
		),
	)
	return ctx, &Operation{span: span}
}

// Annotate adds attributes to the span.
func (o *Operation) Annotate(attrs ...attribute.KeyValue) {
	o.span.SetAttributes(attrs...)
}

// Finish ends the span. Client-side failures (not found, validation, conflict,
// self-like, bad credentials) are tagged with their code but leave the span
// status OK; only internal errors mark it as failed.
func (o *Operation) Finish(err error) {
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code != models.CodeInternal {
			o.span.SetAttributes(attribute.String("error.code", appErr.Code))
		} else {
			o.span.RecordError(err)
			o.span.SetStatus(codes.Error, err.Error())
		}
	}
	o.span.End()
}

// Recording reports whether the span is being sampled.
func (o *Operation) Recording() bool {
	return o.span.IsRecording()
}

// PostAttr identifies the post an operation touches.
func PostAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("forum.post_id", id.String())
}

// UserAttr identifies the acting user.
func UserAttr(id uuid.UUID) attribute.KeyValue {
	return attribute.String("forum.user_id", id.String())
}

// TagAttr names the tag being attached.
func TagAttr(name string) attribute.KeyValue {
	return attribute.String("forum.tag", name)
}

// TotalAttr records the size of a filtered listing.
func TotalAttr(total int64) attribute.KeyValue {
	return attribute.Int64("forum.total_count", total)
}
