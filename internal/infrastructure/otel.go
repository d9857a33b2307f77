package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"gridcli/internal/config"
)

// MeterName is the instrumentation scope for every tracer and meter
const MeterName = "gridcli"

// Telemetry holds the OpenTelemetry providers for one process
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *PipelineMetrics
	PrometheusHTTP http.Handler
}

// InitializeOTel sets up tracing and metrics according to cfg. Disabled
// signals fall back to no-op implementations so callers never nil-check.
func InitializeOTel(ctx context.Context, cfg config.TelemetryConfig, logger *slog.Logger) (*Telemetry, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
		semconv.DeploymentEnvironment(cfg.Environment),
	)

	t := &Telemetry{
		Tracer: tracenoop.NewTracerProvider().Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
	}

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
			sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
		)
		otel.SetTracerProvider(tp)
		t.TracerProvider = tp
		t.Tracer = tp.Tracer(MeterName)
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		otel.SetMeterProvider(mp)
		t.MeterProvider = mp
		t.Meter = mp.Meter(MeterName)
		t.PrometheusHTTP = promhttp.Handler()
	case "none", "":
	default:
		return nil, fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	metrics, err := NewPipelineMetrics(t.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline metrics: %w", err)
	}
	t.Metrics = metrics

	logger.InfoContext(ctx, "Telemetry initialized",
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	return t, nil
}

// Shutdown flushes and stops the providers
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.TracerProvider != nil {
		errs = append(errs, t.TracerProvider.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// PipelineMetrics are the instruments recorded by the report and feed pipelines
type PipelineMetrics struct {
	ReportsProcessed metric.Int64Counter
	ReportFailures   metric.Int64Counter
	RowsEmitted      metric.Int64Counter
	FetchRequests    metric.Int64Counter
	FetchDuration    metric.Float64Histogram
	TrackingFlushes  metric.Int64Counter
}

// NewPipelineMetrics creates the pipeline instruments on meter
func NewPipelineMetrics(meter metric.Meter) (*PipelineMetrics, error) {
	reportsProcessed, err := meter.Int64Counter(
		"reports_processed_total",
		metric.WithDescription("Reports that produced rows"),
	)
	if err != nil {
		return nil, err
	}

	reportFailures, err := meter.Int64Counter(
		"report_failures_total",
		metric.WithDescription("Reports rejected, by failure kind"),
	)
	if err != nil {
		return nil, err
	}

	rowsEmitted, err := meter.Int64Counter(
		"rows_emitted_total",
		metric.WithDescription("Denormalized rows written, by hierarchy level"),
	)
	if err != nil {
		return nil, err
	}

	fetchRequests, err := meter.Int64Counter(
		"fetch_requests_total",
		metric.WithDescription("Remote fetches, by source and outcome"),
	)
	if err != nil {
		return nil, err
	}

	fetchDuration, err := meter.Float64Histogram(
		"fetch_duration_seconds",
		metric.WithDescription("Remote fetch latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	trackingFlushes, err := meter.Int64Counter(
		"tracking_flushes_total",
		metric.WithDescription("Tracking state flushes"),
	)
	if err != nil {
		return nil, err
	}

	return &PipelineMetrics{
		ReportsProcessed: reportsProcessed,
		ReportFailures:   reportFailures,
		RowsEmitted:      rowsEmitted,
		FetchRequests:    fetchRequests,
		FetchDuration:    fetchDuration,
		TrackingFlushes:  trackingFlushes,
	}, nil
}

// NoopMetrics returns instruments that record nothing, for tests and tools
func NoopMetrics() *PipelineMetrics {
	m, _ := NewPipelineMetrics(noop.NewMeterProvider().Meter(MeterName))
	return m
}

// RecordFetch records one remote fetch with its outcome and latency
func (m *PipelineMetrics) RecordFetch(ctx context.Context, source string, start time.Time, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("outcome", outcome),
	)
	m.FetchRequests.Add(ctx, 1, attrs)
	m.FetchDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("source", source)))
}

// RecordReportFailure counts a rejected report under its failure kind
func (m *PipelineMetrics) RecordReportFailure(ctx context.Context, kind string) {
	m.ReportFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordRows counts rows written for a hierarchy level
func (m *PipelineMetrics) RecordRows(ctx context.Context, level string, n int) {
	if n == 0 {
		return
	}
	m.RowsEmitted.Add(ctx, int64(n), metric.WithAttributes(attribute.String("level", level)))
}
