package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/hexvoxel/internal/logging"
)

const instrumentationName = "github.com/annel0/hexvoxel"

// Settings - параметры трассировки сервиса карты
type Settings struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string
	Endpoint       string  // host:port; пусто - OTEL_EXPORTER_OTLP_ENDPOINT или localhost:4318
	SampleRatio    float64 // доля корневых span'ов; дочерние следуют решению родителя
}

// Sampler строит семплер по SampleRatio: 1 и выше - всё, 0 и ниже - ничего
func (s Settings) Sampler() sdktrace.Sampler {
	switch {
	case s.SampleRatio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	case s.SampleRatio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(s.SampleRatio))
}

// Resource описывает сервис для экспортера
func (s Settings) Resource(ctx context.Context) (*resource.Resource, error) {
	attrs := []resource.Option{
		resource.WithAttributes(semconv.ServiceName(s.ServiceName)),
	}
	if s.ServiceVersion != "" {
		attrs = append(attrs, resource.WithAttributes(semconv.ServiceVersion(s.ServiceVersion)))
	}
	return resource.New(ctx, attrs...)
}

// InitTelemetry настраивает OTLP/HTTP экспортер и глобальный TracerProvider.
// Возвращает shutdown, который сбрасывает накопленные span'ы.
// При выключенной телеметрии Tracer() остаётся no-op.
func InitTelemetry(ctx context.Context, settings Settings) (func(context.Context) error, error) {
	if !settings.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var opts []otlptracehttp.Option
	if settings.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpoint(settings.Endpoint), otlptracehttp.WithInsecure())
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, err
	}

	res, err := settings.Resource(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(settings.Sampler()),
	)
	otel.SetTracerProvider(tp)
	logging.Info("📡 OpenTelemetry включён (service=%s, sample=%.2f)", settings.ServiceName, settings.SampleRatio)

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return tp.Shutdown(ctx)
	}, nil
}

// Tracer возвращает трейсер сервиса из глобального провайдера
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan открывает span; закрывать через span.End()
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}
