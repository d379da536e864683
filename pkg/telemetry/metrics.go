package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

// Metrics owns the SDK meter provider. A manual reader is always attached so
// the current counter values can be read in process; an OTLP exporter is
// added when an endpoint is configured.
type Metrics struct {
	provider *sdkmetric.MeterProvider
	reader   *sdkmetric.ManualReader
}

// InitMetrics registers a global meter provider.
func InitMetrics(ctx context.Context, log *zap.Logger, cfg Config) (*Metrics, error) {
	res, err := newResource(cfg)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	}

	if cfg.Endpoint != "" {
		clientOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			clientOpts = append(clientOpts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, clientOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
		log.Info("metric export enabled", zap.String("endpoint", cfg.Endpoint))
	}

	m := &Metrics{provider: sdkmetric.NewMeterProvider(opts...), reader: reader}
	otel.SetMeterProvider(m.provider)
	return m, nil
}

func (m *Metrics) MeterProvider() metric.MeterProvider {
	return m.provider
}

// Counters collects every int64 sum instrument and returns its total across
// attribute sets, keyed by instrument name.
func (m *Metrics) Counters(ctx context.Context) (map[string]int64, error) {
	return CollectCounters(ctx, m.reader)
}

func (m *Metrics) Shutdown(ctx context.Context) error {
	return m.provider.Shutdown(ctx)
}

// CollectCounters reads r once and sums the data points of each int64 sum.
func CollectCounters(ctx context.Context, r sdkmetric.Reader) (map[string]int64, error) {
	var rm metricdata.ResourceMetrics
	if err := r.Collect(ctx, &rm); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	counters := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, mt := range sm.Metrics {
			sum, ok := mt.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			counters[mt.Name] += total
		}
	}
	return counters, nil
}
