package parking

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultServiceName  = "parking-system"
	serviceVersion      = "1.0.0"
	defaultOTLPEndpoint = "http://localhost:4318"
	metricExportPeriod  = 5 * time.Second
)

// Resource attribute keys describing the lot a process serves.
const (
	StoreDriverKey = attribute.Key("parking.store.driver")
	CarSpotsKey    = attribute.Key("parking.spots.car")
	BikeSpotsKey   = attribute.Key("parking.spots.bike")
)

// TelemetryConfig describes where telemetry goes and which lot it belongs to.
type TelemetryConfig struct {
	ServiceName string
	Endpoint    string
	Environment string
	StoreDriver string
	CarSpots    int
	BikeSpots   int
}

func (c TelemetryConfig) withDefaults() TelemetryConfig {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	if c.Endpoint == "" {
		c.Endpoint = defaultOTLPEndpoint
	}
	c.Endpoint = strings.TrimSuffix(c.Endpoint, "/")
	return c
}

// resourceAttributes tags every span and metric with the lot's layout and
// backing store so dashboards can split memory, postgres and mysql runs.
func resourceAttributes(cfg TelemetryConfig) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(serviceVersion),
		CarSpotsKey.Int(cfg.CarSpots),
		BikeSpotsKey.Int(cfg.BikeSpots),
	}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	if cfg.StoreDriver != "" {
		attrs = append(attrs, StoreDriverKey.String(cfg.StoreDriver))
	}
	return attrs
}

// NewResource builds the OTel resource for the lot. OTEL_RESOURCE_ATTRIBUTES
// is merged in when set.
func NewResource(ctx context.Context, cfg TelemetryConfig) (*resource.Resource, error) {
	cfg = cfg.withDefaults()
	opts := []resource.Option{resource.WithAttributes(resourceAttributes(cfg)...)}
	if os.Getenv("OTEL_RESOURCE_ATTRIBUTES") != "" {
		opts = append(opts, resource.WithFromEnv())
	}
	res, err := resource.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("build telemetry resource: %w", err)
	}
	return res, nil
}

type TelemetryProvider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	tracer         trace.Tracer
	meter          metric.Meter
}

// NewTelemetryProvider exports traces and metrics over OTLP/HTTP and
// installs the providers globally.
func NewTelemetryProvider(ctx context.Context, cfg TelemetryConfig) (*TelemetryProvider, error) {
	cfg = cfg.withDefaults()

	res, err := NewResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	spans, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint+"/v1/traces"),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("trace exporter: %w", err)
	}
	metrics, err := otlpmetrichttp.New(ctx,
		otlpmetrichttp.WithEndpointURL(cfg.Endpoint+"/v1/metrics"),
		otlpmetrichttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("metric exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spans),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metrics,
			sdkmetric.WithInterval(metricExportPeriod),
		)),
	)

	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return NewTelemetryProviderFrom(cfg.ServiceName, tp, mp), nil
}

// NewTelemetryProviderFrom wraps providers built elsewhere, for example
// with in-memory readers in tests. Nothing is installed globally.
func NewTelemetryProviderFrom(serviceName string, tp *sdktrace.TracerProvider, mp *sdkmetric.MeterProvider) *TelemetryProvider {
	return &TelemetryProvider{
		tracerProvider: tp,
		meterProvider:  mp,
		tracer:         tp.Tracer(serviceName),
		meter:          mp.Meter(serviceName),
	}
}

func (tp *TelemetryProvider) Tracer() trace.Tracer {
	return tp.tracer
}

func (tp *TelemetryProvider) Meter() metric.Meter {
	return tp.meter
}

// Shutdown flushes both providers. Both are attempted even if the first fails.
func (tp *TelemetryProvider) Shutdown(ctx context.Context) error {
	traceErr := tp.tracerProvider.Shutdown(ctx)
	meterErr := tp.meterProvider.Shutdown(ctx)
	if traceErr != nil {
		return fmt.Errorf("shutdown tracer provider: %w", traceErr)
	}
	if meterErr != nil {
		return fmt.Errorf("shutdown meter provider: %w", meterErr)
	}
	return nil
}
