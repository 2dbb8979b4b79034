package query

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// RPCError is a JSON-RPC error object. CometBFT puts the useful text in Data.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    string `json:"data"`
}

func (e *RPCError) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s: %s", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Int64 decodes both quoted and bare JSON integers.
type Int64 int64

func (i *Int64) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*i = 0
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("bad integer %s: %w", string(b), err)
	}
	*i = Int64(v)
	return nil
}

type StatusResult struct {
	NodeInfo struct {
		Network string `json:"network"`
		Version string `json:"version"`
		Moniker string `json:"moniker"`
		Other   struct {
			TxIndex string `json:"tx_index"`
		} `json:"other"`
	} `json:"node_info"`
	SyncInfo struct {
		LatestBlockHeight Int64 `json:"latest_block_height"`
		CatchingUp        bool  `json:"catching_up"`
	} `json:"sync_info"`
}

type abciQueryResult struct {
	Response ABCIQueryResponse `json:"response"`
}

type ABCIQueryResponse struct {
	Code      uint32 `json:"code"`
	Log       string `json:"log"`
	Info      string `json:"info"`
	Value     []byte `json:"value"`
	Height    Int64  `json:"height"`
	Codespace string `json:"codespace"`
}

type BroadcastTxResult struct {
	Code      uint32 `json:"code"`
	Log       string `json:"log"`
	Codespace string `json:"codespace"`
	Hash      string `json:"hash"`
}

type TxResult struct {
	Hash     string `json:"hash"`
	Height   Int64  `json:"height"`
	TxResult struct {
		Code      uint32 `json:"code"`
		Log       string `json:"log"`
		GasWanted Int64  `json:"gas_wanted"`
		GasUsed   Int64  `json:"gas_used"`
		Codespace string `json:"codespace"`
	} `json:"tx_result"`
}
