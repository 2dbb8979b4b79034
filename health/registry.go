// Package health tracks per-endpoint failure counts and ranks endpoints
// best-first. Counts persist in the store and only go down on Reset.
package health

import (
	"context"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/rs/zerolog"
)

const keyPrefix = "endpoint_health/"

var log zerolog.Logger

func init() {
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(out).With().Timestamp().Str("component", "health").Logger()
}

// SetLogger allows setting a custom logger
func SetLogger(l zerolog.Logger) {
	log = l
}

// Endpoint is one node: REST for reads, RPC for signing and broadcast.
type Endpoint struct {
	REST     string `json:"rest"`
	RPC      string `json:"rpc"`
	Provider string `json:"provider"`
	Failures int    `json:"failures"`
}

type record struct {
	Failures  int       `json:"failures"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry owns the failure counts. It is created at session start and
// Reset on logout.
type Registry struct {
	mu        sync.Mutex
	store     store.Store
	endpoints []Endpoint
}

// NewRegistry loads persisted counts for the configured endpoints. Unreadable
// records count as zero.
func NewRegistry(s store.Store, entries []config.EndpointEntry) *Registry {
	r := &Registry{
		store:     s,
		endpoints: make([]Endpoint, len(entries)),
	}
	for i, e := range entries {
		r.endpoints[i] = Endpoint{REST: e.REST, RPC: e.RPC, Provider: e.Provider}
		var rec record
		found, err := store.GetJSON(s, key(e.REST), &rec)
		if err != nil {
			log.Warn().Err(err).Str("endpoint", e.REST).Msg("Ignoring unreadable health record")
			continue
		}
		if found {
			r.endpoints[i].Failures = rec.Failures
		}
	}
	return r
}

func key(rest string) string {
	return keyPrefix + rest
}

// Rank returns endpoints by ascending failure count. Ties keep configured order.
func (r *Registry) Rank() []Endpoint {
	r.mu.Lock()
	ranked := slices.Clone(r.endpoints)
	r.mu.Unlock()

	slices.SortStableFunc(ranked, func(a, b Endpoint) int {
		return a.Failures - b.Failures
	})
	return ranked
}

// RecordFailure increments and persists the count of the endpoint with the
// same REST address. Callers must not use it for indexer degradation.
func (r *Registry) RecordFailure(e Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := slices.IndexFunc(r.endpoints, func(c Endpoint) bool { return c.REST == e.REST })
	if idx < 0 {
		return fmt.Errorf("unknown endpoint %s", e.REST)
	}
	r.endpoints[idx].Failures++
	count := r.endpoints[idx].Failures
	telemetry.RecordEndpointFailure(context.Background(), e.Provider)

	log.Debug().
		Str("endpoint", e.REST).
		Str("provider", e.Provider).
		Int("failures", count).
		Msg("Recorded endpoint failure")

	if err := store.SetJSON(r.store, key(e.REST), record{Failures: count, UpdatedAt: time.Now().UTC()}); err != nil {
		return fmt.Errorf("persist failure count for %s: %w", e.REST, err)
	}
	return nil
}

// Reset clears every count, in memory and in the store.
func (r *Registry) Reset() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for i := range r.endpoints {
		r.endpoints[i].Failures = 0
		if err := r.store.Remove(key(r.endpoints[i].REST)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("reset %s: %w", r.endpoints[i].REST, err)
		}
	}
	log.Info().Int("endpoints", len(r.endpoints)).Msg("Endpoint health reset")
	return firstErr
}
