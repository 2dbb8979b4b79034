package health_test

import (
	"math/rand"
	"testing"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/zeebo/assert"
)

var entries = []config.EndpointEntry{
	{REST: "https://lcd-a.example.com", RPC: "https://rpc-a.example.com", Provider: "a"},
	{REST: "https://lcd-b.example.com", RPC: "https://rpc-b.example.com", Provider: "b"},
	{REST: "https://lcd-c.example.com", RPC: "https://rpc-c.example.com", Provider: "c"},
	{REST: "https://lcd-d.example.com", RPC: "https://rpc-d.example.com", Provider: "d"},
}

func providers(eps []health.Endpoint) []string {
	out := make([]string, len(eps))
	for i, e := range eps {
		out[i] = e.Provider
	}
	return out
}

func TestRank_InitialOrderPreserved(t *testing.T) {
	r := health.NewRegistry(store.NewMemory(), entries)
	assert.DeepEqual(t, providers(r.Rank()), []string{"a", "b", "c", "d"})
}

func TestRank_StableByFailures(t *testing.T) {
	r := health.NewRegistry(store.NewMemory(), entries)
	ranked := r.Rank()

	// a:2, b:0, c:1, d:0
	assert.NoError(t, r.RecordFailure(ranked[0]))
	assert.NoError(t, r.RecordFailure(ranked[0]))
	assert.NoError(t, r.RecordFailure(ranked[2]))

	assert.DeepEqual(t, providers(r.Rank()), []string{"b", "d", "c", "a"})
}

func TestRank_NonDecreasingForRandomCounts(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		r := health.NewRegistry(store.NewMemory(), entries)
		for i := 0; i < 10; i++ {
			e := health.Endpoint{REST: entries[rng.Intn(len(entries))].REST}
			assert.NoError(t, r.RecordFailure(e))
		}

		ranked := r.Rank()
		for i := 1; i < len(ranked); i++ {
			assert.True(t, ranked[i-1].Failures <= ranked[i].Failures)
			if ranked[i-1].Failures == ranked[i].Failures {
				// equal counts keep configured order
				assert.True(t, ranked[i-1].Provider < ranked[i].Provider)
			}
		}
	}
}

func TestRecordFailure_PersistsAcrossSessions(t *testing.T) {
	s := store.NewMemory()
	r := health.NewRegistry(s, entries)
	assert.NoError(t, r.RecordFailure(health.Endpoint{REST: entries[1].REST, Provider: "b"}))
	assert.NoError(t, r.RecordFailure(health.Endpoint{REST: entries[1].REST, Provider: "b"}))

	reloaded := health.NewRegistry(s, entries)
	ranked := reloaded.Rank()
	assert.Equal(t, ranked[len(ranked)-1].Provider, "b")
	assert.Equal(t, ranked[len(ranked)-1].Failures, 2)
}

func TestRecordFailure_UnknownEndpoint(t *testing.T) {
	r := health.NewRegistry(store.NewMemory(), entries)
	assert.Error(t, r.RecordFailure(health.Endpoint{REST: "https://other.example.com"}))
}

func TestReset(t *testing.T) {
	s := store.NewMemory()
	r := health.NewRegistry(s, entries)
	assert.NoError(t, r.RecordFailure(health.Endpoint{REST: entries[0].REST}))
	assert.NoError(t, r.Reset())

	for _, e := range r.Rank() {
		assert.Equal(t, e.Failures, 0)
	}
	assert.DeepEqual(t, providers(r.Rank()), []string{"a", "b", "c", "d"})

	_, err := s.Get("endpoint_health/" + entries[0].REST)
	assert.Equal(t, err, store.ErrNotFound)
}

func TestNewRegistry_IgnoresCorruptRecord(t *testing.T) {
	s := store.NewMemory()
	assert.NoError(t, s.Set("endpoint_health/"+entries[0].REST, "not json"))
	r := health.NewRegistry(s, entries)
	assert.Equal(t, r.Rank()[0].Failures, 0)
}
