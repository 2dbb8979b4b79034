package query

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

const (
	status          = "status"
	abciQuery       = "abci_query"
	broadcastTxSync = "broadcast_tx_sync"
	txByHash        = "tx"
)

// RpcClient talks JSON-RPC 2.0 to one CometBFT node.
type RpcClient struct {
	URL    string
	Client *http.Client
	nextID atomic.Int64
}

func NewRpcClient(url string, timeout time.Duration) *RpcClient {
	return &RpcClient{
		URL: url,
		Client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return fmt.Errorf("redirect not allowed (count=%d) to %s", len(via), req.URL.String())
			},
		},
	}
}

func (c *RpcClient) performRequest(ctx context.Context, method string, params map[string]any, result any) error {
	requestBody, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      c.nextID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request body for method %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(requestBody))
	if err != nil {
		return fmt.Errorf("build request %s: %w", c.URL, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to perform request %s method %s: %w", c.URL, method, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close response body")
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("read body %s: %w", c.URL, err)
	}

	var envelope rpcEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &StatusError{URL: c.URL, StatusCode: resp.StatusCode, Body: string(body)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("empty result for method %s", method)
	}
	if err := json.Unmarshal(envelope.Result, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

func (c *RpcClient) Status(ctx context.Context) (StatusResult, error) {
	var res StatusResult
	if err := c.performRequest(ctx, status, map[string]any{}, &res); err != nil {
		return StatusResult{}, err
	}
	return res, nil
}

// ABCIQuery runs a gRPC-style query through abci_query at the latest height.
func (c *RpcClient) ABCIQuery(ctx context.Context, path string, data []byte) (ABCIQueryResponse, error) {
	var res abciQueryResult
	params := map[string]any{
		"path":   path,
		"data":   hex.EncodeToString(data),
		"height": "0",
		"prove":  false,
	}
	if err := c.performRequest(ctx, abciQuery, params, &res); err != nil {
		return ABCIQueryResponse{}, err
	}
	return res.Response, nil
}

func (c *RpcClient) BroadcastTxSync(ctx context.Context, txBytes []byte) (BroadcastTxResult, error) {
	var res BroadcastTxResult
	params := map[string]any{"tx": base64.StdEncoding.EncodeToString(txBytes)}
	if err := c.performRequest(ctx, broadcastTxSync, params, &res); err != nil {
		return BroadcastTxResult{}, err
	}
	return res, nil
}

// Tx looks up a committed tx by its hex hash.
func (c *RpcClient) Tx(ctx context.Context, hexHash string) (TxResult, error) {
	hash, err := hex.DecodeString(hexHash)
	if err != nil {
		return TxResult{}, fmt.Errorf("bad tx hash %q: %w", hexHash, err)
	}
	var res TxResult
	params := map[string]any{
		"hash":  base64.StdEncoding.EncodeToString(hash),
		"prove": false,
	}
	if err := c.performRequest(ctx, txByHash, params, &res); err != nil {
		return TxResult{}, err
	}
	return res, nil
}
