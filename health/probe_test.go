package health_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/zeebo/assert"
)

func statusNode(t *testing.T, network string, height int, txIndex string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprintf(w, `{"jsonrpc":"2.0","id":1,"result":{"node_info":{"network":%q,"other":{"tx_index":%q}},"sync_info":{"latest_block_height":"%d","catching_up":false}}}`,
			network, txIndex, height)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestProbe(t *testing.T) {
	good := statusNode(t, "columbus-5", 1000, "on")
	wrongChain := statusNode(t, "phoenix-1", 1000, "on")
	lagging := statusNode(t, "columbus-5", 900, "on")
	noIndex := statusNode(t, "columbus-5", 1000, "off")

	r := health.NewRegistry(store.NewMemory(), []config.EndpointEntry{
		{REST: "https://lcd-1", RPC: good.URL, Provider: "good"},
		{REST: "https://lcd-2", RPC: wrongChain.URL, Provider: "wrong"},
		{REST: "https://lcd-3", RPC: lagging.URL, Provider: "lagging"},
		{REST: "https://lcd-4", RPC: noIndex.URL, Provider: "noindex"},
		{REST: "https://lcd-5", RPC: "http://127.0.0.1:1", Provider: "down"},
	})

	results := r.Probe(context.Background(), "columbus-5", 2*time.Second)
	assert.Equal(t, len(results), 5)

	byProvider := map[string]health.ProbeResult{}
	for _, res := range results {
		byProvider[res.Endpoint.Provider] = res
	}
	assert.True(t, byProvider["good"].Healthy())
	assert.Equal(t, byProvider["good"].Height, int64(1000))
	assert.False(t, byProvider["wrong"].Healthy())
	assert.Equal(t, byProvider["lagging"].Issues[0], "100 blocks behind")
	assert.False(t, byProvider["noindex"].TxIndex)
	assert.False(t, byProvider["down"].Healthy())

	// probing never touches the failure counts
	for _, ep := range r.Rank() {
		assert.Equal(t, ep.Failures, 0)
	}
}
