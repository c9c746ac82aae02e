package observability

import (
	"context"
	"time"

	"ocrtranslate/internal/config"
	contextutils "ocrtranslate/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Request outcomes recorded on the ocr.requests counter
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Pipeline stages recorded on the ocr.stage.duration histogram
const (
	StageDecode    = "decode"
	StageRecognize = "recognize"
	StageTranslate = "translate"
)

// InitMetrics initializes OpenTelemetry metrics
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
		exporter = exp
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
		exporter = exp
	default:
		return nil, contextutils.ErrorWithContextf("unsupported otel protocol: %s", cfg.Protocol)
	}

	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	)
	return mp, nil
}

// PipelineMetrics holds the instruments recorded by the OCR pipeline
type PipelineMetrics struct {
	requests      otelmetric.Int64Counter
	stageDuration otelmetric.Float64Histogram
}

// NewPipelineMetrics creates the pipeline instruments on the given meter.
// A nil meter uses the global meter provider.
func NewPipelineMetrics(meter otelmetric.Meter) (*PipelineMetrics, error) {
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}

	requests, err := meter.Int64Counter("ocr.requests",
		otelmetric.WithDescription("OCR requests processed, by outcome and error code"),
		otelmetric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create ocr.requests counter: %w", err)
	}

	stageDuration, err := meter.Float64Histogram("ocr.stage.duration",
		otelmetric.WithDescription("Duration of each OCR pipeline stage"),
		otelmetric.WithUnit("s"),
	)
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create ocr.stage.duration histogram: %w", err)
	}

	return &PipelineMetrics{requests: requests, stageDuration: stageDuration}, nil
}

// RecordRequest counts one processed request. err is nil on success.
func (m *PipelineMetrics) RecordRequest(ctx context.Context, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", OutcomeSuccess)}
	if err != nil {
		attrs = []attribute.KeyValue{
			attribute.String("outcome", OutcomeFailure),
			attribute.String("error.code", string(contextutils.GetErrorCode(err))),
		}
	}
	m.requests.Add(ctx, 1, otelmetric.WithAttributes(attrs...))
}

// RecordStage records how long a pipeline stage took
func (m *PipelineMetrics) RecordStage(ctx context.Context, stage string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.Record(ctx, elapsed.Seconds(), otelmetric.WithAttributes(
		attribute.String("stage", stage),
		attribute.Bool("error", err != nil),
	))
}
