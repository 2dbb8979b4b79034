package executor_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/config"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/executor"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/health"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/zeebo/assert"
	"google.golang.org/protobuf/encoding/protowire"
)

// chain is the state shared by every node of one fake network.
type chain struct {
	mu        sync.Mutex
	sequence  uint64
	committed []string
}

// cometNode answers the CometBFT JSON-RPC calls a signing client makes.
// With dropBroadcast set it puts the tx on chain and closes the connection
// without answering.
type cometNode struct {
	chain         *chain
	address       string
	dropBroadcast bool

	mu         sync.Mutex
	broadcasts int
}

func (n *cometNode) broadcastCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.broadcasts
}

func accountReply(addr string, sequence uint64) []byte {
	var base []byte
	base = protowire.AppendTag(base, 1, protowire.BytesType)
	base = protowire.AppendString(base, addr)
	base = protowire.AppendTag(base, 3, protowire.VarintType)
	base = protowire.AppendVarint(base, 7)
	base = protowire.AppendTag(base, 4, protowire.VarintType)
	base = protowire.AppendVarint(base, sequence)

	var packed []byte
	packed = protowire.AppendTag(packed, 1, protowire.BytesType)
	packed = protowire.AppendString(packed, "/cosmos.auth.v1beta1.BaseAccount")
	packed = protowire.AppendTag(packed, 2, protowire.BytesType)
	packed = protowire.AppendBytes(packed, base)

	var resp []byte
	resp = protowire.AppendTag(resp, 1, protowire.BytesType)
	return protowire.AppendBytes(resp, packed)
}

func simulateReply(used uint64) []byte {
	var gas []byte
	gas = protowire.AppendTag(gas, 2, protowire.VarintType)
	gas = protowire.AppendVarint(gas, used)
	var resp []byte
	resp = protowire.AppendTag(resp, 1, protowire.BytesType)
	return protowire.AppendBytes(resp, gas)
}

func (n *cometNode) start(t *testing.T, provider string) config.EndpointEntry {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var call struct {
			Method string         `json:"method"`
			Params map[string]any `json:"params"`
		}
		if err := json.Unmarshal(raw, &call); err != nil {
			t.Errorf("bad request: %v", err)
			return
		}

		var reply string
		switch call.Method {
		case "status":
			reply = `{"node_info":{"network":"columbus-5"}}`
		case "abci_query":
			if call.Params["path"] == "/cosmos.auth.v1beta1.Query/Account" {
				n.chain.mu.Lock()
				seq := n.chain.sequence
				n.chain.mu.Unlock()
				reply = fmt.Sprintf(`{"response":{"code":0,"value":%q}}`, base64.StdEncoding.EncodeToString(accountReply(n.address, seq)))
			} else {
				reply = fmt.Sprintf(`{"response":{"code":0,"value":%q}}`, base64.StdEncoding.EncodeToString(simulateReply(80000)))
			}
		case "broadcast_tx_sync":
			n.mu.Lock()
			n.broadcasts++
			n.mu.Unlock()
			n.chain.mu.Lock()
			n.chain.committed = append(n.chain.committed, call.Params["tx"].(string))
			n.chain.sequence++
			n.chain.mu.Unlock()
			if n.dropBroadcast {
				conn, _, err := w.(http.Hijacker).Hijack()
				if err != nil {
					t.Errorf("hijack: %v", err)
					return
				}
				_ = conn.Close()
				return
			}
			reply = `{"code":0,"log":"","hash":""}`
		case "tx":
			reply = `{"height":"12","tx_result":{"code":0,"gas_wanted":"88000","gas_used":"81000"}}`
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + reply + `}`))
	}))
	t.Cleanup(srv.Close)
	return config.EndpointEntry{REST: srv.URL, RPC: srv.URL, Provider: provider}
}

func TestWrite_LostBroadcastReplyIsNeverResubmitted(t *testing.T) {
	addr := signerAddress(t)
	shared := &chain{}
	a := &cometNode{chain: shared, address: addr, dropBroadcast: true}
	b := &cometNode{chain: shared, address: addr}
	h := health.NewRegistry(store.NewMemory(), []config.EndpointEntry{a.start(t, "a"), b.start(t, "b")})
	e, sleeps := newExecutor(h, executor.NewSignerFactory("terra", "columbus-5", time.Second))

	res, err := e.Execute(context.Background(), writeRequest(addr, false))
	assert.NoError(t, err)
	assert.Equal(t, res.Endpoint.Provider, "a")
	assert.Equal(t, len(res.Outcome.TxHash), 64)
	assert.Equal(t, res.Outcome.Height, int64(12))

	assert.Equal(t, a.broadcastCount(), 1)
	assert.Equal(t, b.broadcastCount(), 0)
	assert.Equal(t, len(shared.committed), 1)
	assert.Equal(t, *sleeps, 0)
	for _, ep := range h.Rank() {
		assert.Equal(t, ep.Failures, 0)
	}
}
