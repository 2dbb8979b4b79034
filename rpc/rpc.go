package rpc

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

var Logger zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	Logger = zerolog.New(out).With().Str("component", "rpc").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	Logger = l
}

// requestTimeout covers a broadcast waiting out its full confirmation window.
const requestTimeout = 90 * time.Second

type ServerConfig struct {
	Address               string
	AllowedOrigins        []string
	EnableMetrics         bool
	RatePerMinute         *int
	MaxConcurrentRequests *int
	OTelConfig            *telemetry.OTelConfig
}

func DefaultServerConfig() *ServerConfig {
	rateLimit := 0
	maxConcurrentRequests := 200
	return &ServerConfig{
		Address:               "localhost:8090",
		AllowedOrigins:        []string{"http://localhost:3000"},
		EnableMetrics:         true,
		RatePerMinute:         &rateLimit,
		MaxConcurrentRequests: &maxConcurrentRequests,
	}
}

type Server struct {
	config       *ServerConfig
	httpServer   *http.Server
	otelShutdown func(context.Context) error
}

// NewServer wires the middleware stack and every wallet procedure. OTel
// setup failures are logged and the server runs without it.
func NewServer(ctx context.Context, config *ServerConfig, wallet *WalletServer) (*Server, error) {
	if config == nil {
		config = DefaultServerConfig()
	}
	if wallet == nil {
		return nil, fmt.Errorf("wallet server is required")
	}

	var otelShutdown func(context.Context) error
	if config.OTelConfig.Enabled() {
		shutdown, err := telemetry.NewOTelSDK(ctx, config.OTelConfig)
		if err != nil {
			Logger.Error().Err(err).Msg("Failed to initialize OpenTelemetry")
		} else {
			otelShutdown = shutdown
		}
	}

	mux := chi.NewMux()
	mux.Use(middleware.RequestID)
	mux.Use(middleware.RealIP)
	mux.Use(cloudflareIP)
	mux.Use(accessLog)
	mux.Use(recoverer)
	mux.Use(middleware.Timeout(requestTimeout))

	if config.RatePerMinute != nil && *config.RatePerMinute > 0 {
		mux.Use(httprate.LimitByIP(*config.RatePerMinute, time.Minute))
	}
	if config.MaxConcurrentRequests != nil && *config.MaxConcurrentRequests > 0 {
		mux.Use(middleware.Throttle(*config.MaxConcurrentRequests))
	}

	if config.EnableMetrics || (config.OTelConfig != nil && config.OTelConfig.UsePrometheus) {
		mux.Handle("/server/metrics", promhttp.Handler())
	}
	mux.Get("/server/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, `{"status":"healthy","service":"walletd"}`)
	})
	// ready once at least one endpoint is configured
	mux.Get("/server/ready", func(w http.ResponseWriter, r *http.Request) {
		if wallet.endpoints == nil || len(wallet.endpoints.Rank()) == 0 {
			writeStatus(w, http.StatusServiceUnavailable, `{"status":"no endpoints"}`)
			return
		}
		writeStatus(w, http.StatusOK, `{"status":"ready"}`)
	})

	opts := []connect.HandlerOption{
		connect.WithCodec(jsonCodec{}),
		connect.WithRecover(recoverHandler),
		connect.WithInterceptors(loggingInterceptor(), noCacheInterceptor()),
	}
	if config.OTelConfig != nil && config.OTelConfig.EnableTracing {
		interceptor, err := otelconnect.NewInterceptor()
		if err != nil {
			Logger.Warn().Err(err).Msg("Failed to create OTel interceptor, continuing without it")
		} else {
			opts = append(opts, connect.WithInterceptors(interceptor))
		}
	}
	wallet.register(mux, opts)

	return &Server{
		config: config,
		httpServer: &http.Server{
			Addr:              config.Address,
			Handler:           h2c.NewHandler(newCORSHandler(config.AllowedOrigins, mux), &http2.Server{}),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      requestTimeout + 5*time.Second,
			IdleTimeout:       120 * time.Second,
		},
		otelShutdown: otelShutdown,
	}, nil
}

func writeStatus(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write([]byte(body))
}

// Handler is the full handler chain, as served by Start.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	Logger.Info().
		Str("address", s.config.Address).
		Str("service", WalletServiceName).
		Msg("Wallet RPC server starting")
	return s.httpServer.ListenAndServe()
}

func (s *Server) StartTLS(certFile, keyFile string) error {
	Logger.Info().
		Str("address", s.config.Address).
		Str("service", WalletServiceName).
		Msg("Wallet RPC server starting with TLS")
	return s.httpServer.ListenAndServeTLS(certFile, keyFile)
}

// Shutdown stops the HTTP server first, then flushes telemetry.
func (s *Server) Shutdown(ctx context.Context) error {
	Logger.Info().Msg("Shutting down RPC server")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		Logger.Error().Err(err).Msg("Error shutting down HTTP server")
	}
	if s.otelShutdown != nil {
		if err := s.otelShutdown(ctx); err != nil {
			return fmt.Errorf("shutdown telemetry: %w", err)
		}
	}
	return nil
}

func recoverHandler(ctx context.Context, spec connect.Spec, header http.Header, p any) error {
	Logger.Error().
		Interface("panic", p).
		Str("procedure", spec.Procedure).
		Msg("Panic in RPC handler")
	return connect.NewError(connect.CodeInternal, fmt.Errorf("internal server error"))
}
