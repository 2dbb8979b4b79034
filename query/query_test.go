package query_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/zeebo/assert"
)

func TestRestClient_Do(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/cosmos/staking/v1beta1/validators":
			_, _ = w.Write([]byte(`{"validators":[]}`))
		default:
			w.WriteHeader(http.StatusNotImplemented)
			_, _ = w.Write([]byte(`{"code":12,"message":"Not Implemented"}`))
		}
	}))
	defer srv.Close()

	c := query.NewRestClient(time.Second)

	body, err := c.Do(context.Background(), srv.URL+"/", http.MethodGet, query.ValidatorsPath, nil)
	assert.NoError(t, err)
	assert.Equal(t, string(body), `{"validators":[]}`)

	_, err = c.Do(context.Background(), srv.URL, http.MethodGet, "/missing", nil)
	var statusErr *query.StatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Equal(t, statusErr.StatusCode, http.StatusNotImplemented)
}

type rpcCall struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params"`
}

func rpcServer(t *testing.T, handle func(call rpcCall) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var call rpcCall
		if err := json.Unmarshal(raw, &call); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		_, _ = w.Write([]byte(handle(call)))
	}))
}

func TestRpcClient_StatusAndBroadcast(t *testing.T) {
	var broadcastParams map[string]any
	srv := rpcServer(t, func(call rpcCall) string {
		switch call.Method {
		case "status":
			return `{"jsonrpc":"2.0","id":1,"result":{"node_info":{"network":"columbus-5","other":{"tx_index":"on"}},"sync_info":{"latest_block_height":"123"}}}`
		case "broadcast_tx_sync":
			broadcastParams = call.Params
			return `{"jsonrpc":"2.0","id":2,"result":{"code":0,"log":"[]","hash":"ABCDEF"}}`
		}
		return `{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"Method not found"}}`
	})
	defer srv.Close()

	c := query.NewRpcClient(srv.URL, time.Second)

	st, err := c.Status(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, st.NodeInfo.Network, "columbus-5")
	assert.Equal(t, st.SyncInfo.LatestBlockHeight, query.Int64(123))

	res, err := c.BroadcastTxSync(context.Background(), []byte{1, 2, 3})
	assert.NoError(t, err)
	assert.Equal(t, res.Hash, "ABCDEF")
	assert.Equal(t, broadcastParams["tx"], base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
}

func TestRpcClient_ABCIQuery(t *testing.T) {
	srv := rpcServer(t, func(call rpcCall) string {
		assert.Equal(t, call.Params["path"], "/cosmos.auth.v1beta1.Query/Account")
		assert.Equal(t, call.Params["data"], "0a01")
		value := base64.StdEncoding.EncodeToString([]byte("payload"))
		return `{"jsonrpc":"2.0","id":1,"result":{"response":{"code":0,"value":"` + value + `","height":"99"}}}`
	})
	defer srv.Close()

	resp, err := query.NewRpcClient(srv.URL, time.Second).ABCIQuery(context.Background(), "/cosmos.auth.v1beta1.Query/Account", []byte{0x0a, 0x01})
	assert.NoError(t, err)
	assert.Equal(t, string(resp.Value), "payload")
	assert.Equal(t, resp.Height, query.Int64(99))
}

func TestRpcClient_TxIndexerDisabled(t *testing.T) {
	srv := rpcServer(t, func(call rpcCall) string {
		return `{"jsonrpc":"2.0","id":1,"error":{"code":-32603,"message":"Internal error","data":"transaction indexing is disabled"}}`
	})
	defer srv.Close()

	_, err := query.NewRpcClient(srv.URL, time.Second).Tx(context.Background(), "ABCDEF")
	var rpcErr *query.RPCError
	assert.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, rpcErr.Data, "transaction indexing is disabled")
	assert.True(t, query.IsIndexerDisabled(err))
	assert.False(t, query.IsTxNotFound(err))
}

func TestIsTxNotFound(t *testing.T) {
	err := &query.RPCError{Code: -32603, Message: "Internal error", Data: "tx (ABCDEF) not found"}
	assert.True(t, query.IsTxNotFound(err))
	assert.False(t, query.IsIndexerDisabled(err))
	assert.False(t, query.IsTxNotFound(errors.New("tx not found")))
}

func TestRpcClient_TxBadHash(t *testing.T) {
	_, err := query.NewRpcClient("http://127.0.0.1:1", time.Second).Tx(context.Background(), "zz")
	assert.Error(t, err)
}

func TestIsIndexerDisabled_MatchesAnyErrorText(t *testing.T) {
	assert.True(t, query.IsIndexerDisabled(errors.New("transaction indexing is disabled")))
	assert.True(t, query.IsIndexerDisabled(fmt.Errorf("lookup: %w", errors.New("Transaction Indexing Is Disabled"))))
	assert.True(t, query.IsIndexerDisabled(&query.StatusError{StatusCode: http.StatusInternalServerError, Body: `{"error":"transaction indexing is disabled"}`}))
	assert.False(t, query.IsIndexerDisabled(errors.New("connection refused")))
	assert.False(t, query.IsIndexerDisabled(nil))
}

func TestIsAlreadyInMempool(t *testing.T) {
	assert.True(t, query.IsAlreadyInMempool(&query.RPCError{Code: -32603, Message: "Internal error", Data: "tx already exists in cache"}))
	assert.False(t, query.IsAlreadyInMempool(errors.New("tx already exists in cache")))
}
