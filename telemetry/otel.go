package telemetry

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutlog"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/propagation"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
)

// OTelConfig selects where the engine's spans, instruments and log records
// are exported.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// Traces: executor attempts, route resolutions and broadcasts
	EnableTracing bool
	UseOTLPTraces bool
	OTLPTracesURL string

	// Metrics: the wallet.* instruments, next to the walletd_* collectors
	EnableMetrics  bool
	UsePrometheus  bool
	UseOTLPMetrics bool
	OTLPMetricsURL string

	// Logs
	EnableLogs  bool
	UseOTLPLogs bool
	OTLPLogsURL string

	// InsecureOTLP sends to the collector in plaintext.
	// WARNING: local development only.
	InsecureOTLP bool

	// mTLS towards the collector, unrelated to the wallet server's own TLS
	OTLPClientCertFile string
	OTLPClientKeyFile  string
	OTLPCACertFile     string

	// DevelopmentMode prints every signal to stdout.
	DevelopmentMode bool
}

func DefaultOTelConfig() *OTelConfig {
	return &OTelConfig{
		ServiceName:    "spectra-wallet-engine",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		EnableTracing:  true,
		UseOTLPTraces:  true,
		OTLPTracesURL:  "localhost:4318",
		EnableMetrics:  true,
		UsePrometheus:  true,
		OTLPMetricsURL: "localhost:4318",
		OTLPLogsURL:    "localhost:4318",
	}
}

// Enabled reports whether NewOTelSDK has anything to set up.
func (c *OTelConfig) Enabled() bool {
	return c != nil && (c.EnableTracing || c.EnableMetrics || c.EnableLogs)
}

// collector holds the transport settings every OTLP exporter shares.
type collector struct {
	insecure bool
	tls      *tls.Config
}

func newCollector(config *OTelConfig) (collector, error) {
	if config.InsecureOTLP {
		return collector{insecure: true}, nil
	}
	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if config.OTLPCACertFile != "" {
		caCert, err := os.ReadFile(config.OTLPCACertFile)
		if err != nil {
			return collector{}, fmt.Errorf("failed to read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return collector{}, fmt.Errorf("failed to append CA certificate")
		}
		tlsConfig.RootCAs = pool
	}
	if config.OTLPClientCertFile != "" && config.OTLPClientKeyFile != "" {
		cert, err := tls.LoadX509KeyPair(config.OTLPClientCertFile, config.OTLPClientKeyFile)
		if err != nil {
			return collector{}, fmt.Errorf("failed to load client certificate: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}
	return collector{tls: tlsConfig}, nil
}

func (c collector) traceOptions(url string) []otlptracehttp.Option {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(url)}
	if c.insecure {
		return append(opts, otlptracehttp.WithInsecure())
	}
	return append(opts, otlptracehttp.WithTLSClientConfig(c.tls))
}

func (c collector) metricOptions(url string) []otlpmetrichttp.Option {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(url)}
	if c.insecure {
		return append(opts, otlpmetrichttp.WithInsecure())
	}
	return append(opts, otlpmetrichttp.WithTLSClientConfig(c.tls))
}

func (c collector) logOptions(url string) []otlploghttp.Option {
	opts := []otlploghttp.Option{otlploghttp.WithEndpoint(url)}
	if c.insecure {
		return append(opts, otlploghttp.WithInsecure())
	}
	return append(opts, otlploghttp.WithTLSClientConfig(c.tls))
}

// NewOTelSDK installs the global tracer, meter and logger providers and
// registers the engine instruments on the meter. Call the returned shutdown
// on exit; it flushes every exporter and detaches the instruments.
func NewOTelSDK(ctx context.Context, config *OTelConfig) (func(context.Context) error, error) {
	if config == nil {
		config = DefaultOTelConfig()
	}

	var shutdownFuncs []func(context.Context) error
	shutdown := func(ctx context.Context) error {
		var err error
		for i := len(shutdownFuncs) - 1; i >= 0; i-- {
			err = errors.Join(err, shutdownFuncs[i](ctx))
		}
		shutdownFuncs = nil
		return err
	}
	fail := func(inErr error) (func(context.Context) error, error) {
		return shutdown, errors.Join(inErr, shutdown(ctx))
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			semconv.DeploymentEnvironmentName(config.Environment),
		),
	)
	if err != nil {
		return shutdown, fmt.Errorf("failed to create resource: %w", err)
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	col, err := newCollector(config)
	if err != nil {
		return shutdown, err
	}

	if config.EnableTracing {
		exporter, err := spanExporter(ctx, config, col)
		if err != nil {
			return fail(err)
		}
		opts := []trace.TracerProviderOption{trace.WithResource(res)}
		if exporter != nil {
			opts = append(opts, trace.WithBatcher(exporter, trace.WithBatchTimeout(5*time.Second)))
		}
		tp := trace.NewTracerProvider(opts...)
		shutdownFuncs = append(shutdownFuncs, tp.Shutdown)
		otel.SetTracerProvider(tp)
	}

	if config.EnableMetrics {
		readers, err := metricReaders(ctx, config, col)
		if err != nil {
			return fail(err)
		}
		opts := []metric.Option{metric.WithResource(res)}
		for _, r := range readers {
			opts = append(opts, metric.WithReader(r))
		}
		mp := metric.NewMeterProvider(opts...)
		shutdownFuncs = append(shutdownFuncs, mp.Shutdown)
		otel.SetMeterProvider(mp)

		ins, err := newInstruments(mp.Meter(instrumentationName))
		if err != nil {
			return fail(fmt.Errorf("failed to register engine instruments: %w", err))
		}
		instruments.Store(ins)
		shutdownFuncs = append(shutdownFuncs, func(context.Context) error {
			instruments.Store(nil)
			return nil
		})
	}

	if config.EnableLogs {
		exporter, err := logExporter(ctx, config, col)
		if err != nil {
			return fail(err)
		}
		opts := []sdklog.LoggerProviderOption{sdklog.WithResource(res)}
		if exporter != nil {
			opts = append(opts, sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)))
		}
		lp := sdklog.NewLoggerProvider(opts...)
		shutdownFuncs = append(shutdownFuncs, lp.Shutdown)
		global.SetLoggerProvider(lp)
	}

	return shutdown, nil
}

// spanExporter returns nil when spans are only kept in process.
func spanExporter(ctx context.Context, config *OTelConfig, col collector) (trace.SpanExporter, error) {
	var (
		exporter trace.SpanExporter
		err      error
	)
	switch {
	case config.DevelopmentMode:
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case config.UseOTLPTraces:
		exporter, err = otlptracehttp.New(ctx, col.traceOptions(config.OTLPTracesURL)...)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}
	return exporter, nil
}

func metricReaders(ctx context.Context, config *OTelConfig, col collector) ([]metric.Reader, error) {
	var readers []metric.Reader
	if config.UsePrometheus {
		// registers on the default prometheus registry served at /server/metrics
		exporter, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create Prometheus exporter: %w", err)
		}
		readers = append(readers, exporter)
	}
	if !config.UseOTLPMetrics {
		return readers, nil
	}

	if config.DevelopmentMode {
		exporter, err := stdoutmetric.New()
		if err != nil {
			return nil, fmt.Errorf("failed to create stdout metric exporter: %w", err)
		}
		return append(readers, metric.NewPeriodicReader(exporter, metric.WithInterval(10*time.Second))), nil
	}
	exporter, err := otlpmetrichttp.New(ctx, col.metricOptions(config.OTLPMetricsURL)...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return append(readers, metric.NewPeriodicReader(exporter, metric.WithInterval(60*time.Second))), nil
}

// logExporter returns nil when records are not exported.
func logExporter(ctx context.Context, config *OTelConfig, col collector) (sdklog.Exporter, error) {
	var (
		exporter sdklog.Exporter
		err      error
	)
	switch {
	case config.DevelopmentMode:
		exporter, err = stdoutlog.New()
	case config.UseOTLPLogs:
		exporter, err = otlploghttp.New(ctx, col.logOptions(config.OTLPLogsURL)...)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create log exporter: %w", err)
	}
	return exporter, nil
}
