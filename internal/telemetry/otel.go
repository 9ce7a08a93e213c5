package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
)

const (
	ServiceName    = "brokerbench"
	exportInterval = 5 * time.Second
)

// Providers holds the OTLP metric and log pipelines.
type Providers struct {
	Meters *sdkmetric.MeterProvider
	Logs   *sdklog.LoggerProvider
}

// Setup connects metric and log exporters to the OTLP gRPC endpoint and
// registers the meter provider globally. Endpoints without a scheme are
// dialled in plaintext.
func Setup(ctx context.Context, endpoint, instanceID string) (*Providers, error) {
	res := resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.instance.id", instanceID),
	)

	var (
		metricOpts []otlpmetricgrpc.Option
		logOpts    []otlploggrpc.Option
	)
	if strings.Contains(endpoint, "://") {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpointURL(endpoint))
		logOpts = append(logOpts, otlploggrpc.WithEndpointURL(endpoint))
	} else {
		metricOpts = append(metricOpts, otlpmetricgrpc.WithEndpoint(endpoint), otlpmetricgrpc.WithInsecure())
		logOpts = append(logOpts, otlploggrpc.WithEndpoint(endpoint), otlploggrpc.WithInsecure())
	}

	metricExporter, err := otlpmetricgrpc.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}
	logExporter, err := otlploggrpc.New(ctx, logOpts...)
	if err != nil {
		_ = metricExporter.Shutdown(ctx)
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	p := &Providers{
		Meters: sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExporter,
				sdkmetric.WithInterval(exportInterval),
			)),
		),
		Logs: sdklog.NewLoggerProvider(
			sdklog.WithResource(res),
			sdklog.WithProcessor(sdklog.NewBatchProcessor(logExporter)),
		),
	}
	otel.SetMeterProvider(p.Meters)

	return p, nil
}

// LogHandler bridges slog records into the OTLP log pipeline.
func (p *Providers) LogHandler() slog.Handler {
	return otelslog.NewHandler(ServiceName, otelslog.WithLoggerProvider(p.Logs))
}

// Shutdown flushes and stops both pipelines.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Meters.Shutdown(ctx),
		p.Logs.Shutdown(ctx),
	)
}
