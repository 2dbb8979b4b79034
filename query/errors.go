package query

import (
	"errors"
	"strings"
)

const (
	indexerDisabled = "transaction indexing is disabled"
	alreadyInCache  = "tx already exists in cache"
)

func rpcErrorText(err error) (string, bool) {
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		return "", false
	}
	return strings.ToLower(rpcErr.Message + " " + rpcErr.Data), true
}

// IsIndexerDisabled reports whether err says the node does not index
// transactions. The text is matched anywhere in the chain, since public
// nodes surface it through JSON-RPC errors, REST bodies and wrapped errors
// alike.
func IsIndexerDisabled(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), indexerDisabled)
}

// IsTxNotFound reports whether a tx lookup failed only because the tx is
// not committed yet.
func IsTxNotFound(err error) bool {
	text, ok := rpcErrorText(err)
	return ok && strings.Contains(text, "not found")
}

// IsAlreadyInMempool reports whether broadcast_tx_sync refused a tx the node
// already holds.
func IsAlreadyInMempool(err error) bool {
	text, ok := rpcErrorText(err)
	return ok && strings.Contains(text, alreadyInCache)
}
