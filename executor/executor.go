// Package executor runs reads and writes against the healthiest endpoint
// first, failing over through the ranked list for a bounded number of passes.
package executor

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/signer"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/tx"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	MaxAttempts  = 3
	DefaultDelay = time.Second
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "executor").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

type Kind int

const (
	KindRead Kind = iota + 1
	KindSimulate
	KindBroadcast
)

func (k Kind) String() string {
	switch k {
	case KindRead:
		return "read"
	case KindSimulate:
		return "simulate"
	case KindBroadcast:
		return "broadcast"
	default:
		return "unknown"
	}
}

// Request is either a ReadRequest or a WriteRequest.
type Request interface {
	kind() Kind
}

// ReadRequest is a REST call relative to the endpoint's REST base URL.
type ReadRequest struct {
	Method string
	Path   string
	Body   []byte
}

func (ReadRequest) kind() Kind { return KindRead }

// WriteRequest simulates msgs and, unless SimulateOnly, broadcasts them.
type WriteRequest struct {
	From         string
	Msgs         []tx.Msg
	FeeDenom     string
	SimulateOnly bool
}

func (r WriteRequest) kind() Kind {
	if r.SimulateOnly {
		return KindSimulate
	}
	return KindBroadcast
}

// Result is tagged by Kind. Body is set for reads, Outcome for writes.
// Degraded marks a broadcast accepted by a node that could not confirm it;
// only Outcome.TxHash is known then.
type Result struct {
	Kind     Kind
	Endpoint health.Endpoint
	Body     []byte
	Outcome  signer.Outcome
	Degraded bool
}

// SignerFactory binds a signing client to one endpoint.
type SignerFactory func(ctx context.Context, ep health.Endpoint, key *signer.PrivateKey) (signer.SigningClient, error)

// NewSignerFactory returns a factory dialing each endpoint's RPC address.
func NewSignerFactory(prefix, chainID string, timeout time.Duration) SignerFactory {
	return func(ctx context.Context, ep health.Endpoint, key *signer.PrivateKey) (signer.SigningClient, error) {
		return signer.NewClient(query.NewRpcClient(ep.RPC, timeout), key, prefix, chainID)
	}
}

type Executor struct {
	health      *health.Registry
	rest        *query.RestClient
	signers     SignerFactory
	credentials signer.CredentialProvider
	prices      signer.GasPricer

	MaxAttempts int
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

func New(h *health.Registry, rest *query.RestClient, signers SignerFactory, credentials signer.CredentialProvider, prices signer.GasPricer) *Executor {
	return &Executor{
		health:      h,
		rest:        rest,
		signers:     signers,
		credentials: credentials,
		prices:      prices,
		MaxAttempts: MaxAttempts,
		Delay:       DefaultDelay,
		Sleep:       sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Read is Execute for a GET against path. A degraded read has no body and
// is reported as CodeIndexerDegraded.
func (e *Executor) Read(ctx context.Context, path string) ([]byte, error) {
	res, err := e.Execute(ctx, ReadRequest{Method: http.MethodGet, Path: path})
	if err != nil {
		return nil, err
	}
	if res.Degraded {
		return nil, engerr.New(engerr.CodeIndexerDegraded, fmt.Sprintf("%s: node does not index transactions", path))
	}
	return res.Body, nil
}

// Execute tries req against every ranked endpoint, up to MaxAttempts passes
// with Delay between passes. Any failure other than the ones below is
// recorded against the endpoint, non-2xx REST answers included. Chain
// rejections, business rule and credential errors end the run at once. An
// error saying the node does not index transactions, typed or not, is a
// degraded success and is not held against the endpoint.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	kind := req.kind()
	ctx, span := telemetry.Tracer().Start(ctx, "executor.Execute")
	defer span.End()
	span.SetAttributes(attribute.String("executor.kind", kind.String()))

	res, err := e.execute(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("executor.provider", res.Endpoint.Provider))
	}
	return res, err
}

func (e *Executor) execute(ctx context.Context, req Request) (Result, error) {
	kind := req.kind()

	var key *signer.PrivateKey
	if w, ok := req.(WriteRequest); ok {
		if len(w.Msgs) == 0 {
			return Result{}, engerr.New(engerr.CodeBusinessRule, "no messages to send")
		}
		if e.credentials == nil {
			return Result{}, engerr.New(engerr.CodeCredential, "wallet is locked")
		}
		k, err := e.credentials.SigningKey(ctx)
		if err != nil {
			return Result{}, err
		}
		defer k.Zero()
		key = k
	}

	var lastErr error
	for pass := 0; pass < e.MaxAttempts; pass++ {
		if pass > 0 {
			if err := e.Sleep(ctx, e.Delay); err != nil {
				return Result{}, engerr.Wrap(engerr.CodeConnectivity, "no endpoint reachable", err)
			}
		}

		endpoints := e.health.Rank()
		if len(endpoints) == 0 {
			return Result{}, engerr.New(engerr.CodeConnectivity, "no endpoints configured")
		}
		for _, ep := range endpoints {
			res, err := e.attempt(ctx, req, ep, key)
			if err == nil {
				telemetry.RecordAttempt(ctx, kind.String(), "ok")
				return res, nil
			}

			switch code := engerr.CodeOf(err); {
			case code == engerr.CodeChainRejection, code == engerr.CodeBusinessRule, code == engerr.CodeCredential:
				telemetry.RecordAttempt(ctx, kind.String(), "rejected")
				return Result{Kind: kind, Endpoint: ep}, err
			case code == engerr.CodeIndexerDegraded, query.IsIndexerDisabled(err):
				telemetry.RecordAttempt(ctx, kind.String(), "degraded")
				hash := res.Outcome.TxHash
				if ee, ok := engerr.As(err); ok && ee.TxHash != "" {
					hash = ee.TxHash
				}
				log.Warn().Err(err).Str("kind", kind.String()).Str("provider", ep.Provider).Str("tx_hash", hash).Msg("Call not confirmable on this node, treating it as successful")
				res.Kind = kind
				res.Endpoint = ep
				res.Degraded = true
				res.Outcome.TxHash = hash
				return res, nil
			}

			telemetry.RecordAttempt(ctx, kind.String(), "failed")
			log.Warn().
				Err(err).
				Str("kind", kind.String()).
				Str("provider", ep.Provider).
				Int("pass", pass+1).
				Msg("Endpoint attempt failed")
			if rerr := e.health.RecordFailure(ep); rerr != nil {
				log.Error().Err(rerr).Str("endpoint", ep.REST).Msg("Failed to record endpoint failure")
			}
			lastErr = err
			if ctx.Err() != nil {
				return Result{}, engerr.Wrap(engerr.CodeConnectivity, "no endpoint reachable", ctx.Err())
			}
		}
	}
	return Result{}, engerr.Wrap(engerr.CodeConnectivity, fmt.Sprintf("no endpoint reachable after %d attempts", e.MaxAttempts), lastErr)
}

func (e *Executor) attempt(ctx context.Context, req Request, ep health.Endpoint, key *signer.PrivateKey) (Result, error) {
	switch r := req.(type) {
	case ReadRequest:
		method := r.Method
		if method == "" {
			method = http.MethodGet
		}
		body, err := e.rest.Do(ctx, ep.REST, method, r.Path, r.Body)
		if err != nil {
			return Result{}, err
		}
		return Result{Kind: KindRead, Endpoint: ep, Body: body}, nil

	case WriteRequest:
		client, err := e.signers(ctx, ep, key)
		if err != nil {
			return Result{}, err
		}
		out, err := signer.EstimateAndSend(ctx, client, e.prices, r.From, r.Msgs, r.FeeDenom, r.SimulateOnly)
		return Result{Kind: r.kind(), Endpoint: ep, Outcome: out}, err

	default:
		return Result{}, engerr.New(engerr.CodeInternal, fmt.Sprintf("unsupported request %T", req))
	}
}
