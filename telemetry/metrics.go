package telemetry

import (
	"context"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/Cogwheel-Validator/spectra-wallet-engine"

var (
	// ExecutorAttempts counts single endpoint attempts by request kind and outcome.
	ExecutorAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Name:      "executor_attempts_total",
		Help:      "Endpoint attempts made by the query executor.",
	}, []string{"kind", "outcome"})

	EndpointFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Name:      "endpoint_failures_total",
		Help:      "Failures recorded against endpoints.",
	}, []string{"provider"})

	RouteResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Name:      "route_resolutions_total",
		Help:      "Cross-chain route resolutions by terminal outcome.",
	}, []string{"outcome"})

	Broadcasts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "walletd",
		Name:      "broadcasts_total",
		Help:      "Transaction submissions by outcome.",
	}, []string{"outcome"})

	SimulatedGas = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "walletd",
		Name:      "simulated_gas",
		Help:      "Gas estimates returned by simulation, before the safety buffer.",
		Buckets:   prometheus.ExponentialBuckets(50_000, 2, 10),
	})
)

// engineInstruments mirror the executor and endpoint collectors on the OTel
// meter so they reach an OTLP collector alongside the spans.
type engineInstruments struct {
	attempts otelmetric.Int64Counter
	failures otelmetric.Int64Counter
	gas      otelmetric.Int64Histogram
}

// instruments is nil until NewOTelSDK enables metrics.
var instruments atomic.Pointer[engineInstruments]

func newInstruments(meter otelmetric.Meter) (*engineInstruments, error) {
	attempts, err := meter.Int64Counter("wallet.executor.attempts",
		otelmetric.WithDescription("Endpoint attempts made by the query executor."),
		otelmetric.WithUnit("{attempt}"))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("wallet.endpoint.failures",
		otelmetric.WithDescription("Failures recorded against endpoints."),
		otelmetric.WithUnit("{failure}"))
	if err != nil {
		return nil, err
	}
	gas, err := meter.Int64Histogram("wallet.simulated_gas",
		otelmetric.WithDescription("Gas estimates returned by simulation."),
		otelmetric.WithUnit("{gas}"))
	if err != nil {
		return nil, err
	}
	return &engineInstruments{attempts: attempts, failures: failures, gas: gas}, nil
}

// RecordAttempt counts one executor attempt against an endpoint.
func RecordAttempt(ctx context.Context, kind, outcome string) {
	ExecutorAttempts.WithLabelValues(kind, outcome).Inc()
	if ins := instruments.Load(); ins != nil {
		ins.attempts.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordEndpointFailure counts one failure held against provider.
func RecordEndpointFailure(ctx context.Context, provider string) {
	EndpointFailures.WithLabelValues(provider).Inc()
	if ins := instruments.Load(); ins != nil {
		ins.failures.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("provider", provider)))
	}
}

func RecordSimulatedGas(ctx context.Context, gasUsed uint64) {
	SimulatedGas.Observe(float64(gasUsed))
	if ins := instruments.Load(); ins != nil {
		ins.gas.Record(ctx, int64(gasUsed))
	}
}

// Tracer returns the engine tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}
