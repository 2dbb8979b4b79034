package signer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/tx"
	"github.com/rs/zerolog"
)

const (
	accountQueryPath  = "/cosmos.auth.v1beta1.Query/Account"
	simulateQueryPath = "/cosmos.tx.v1beta1.Service/Simulate"

	DefaultPollInterval   = 3 * time.Second
	DefaultConfirmTimeout = 60 * time.Second
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "signer").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

// Receipt is what the node reported for a submitted tx.
type Receipt struct {
	TxHash    string
	Code      uint32
	Height    int64
	GasWanted uint64
	GasUsed   uint64
	RawLog    string
}

// Client signs and submits transactions through one CometBFT RPC endpoint.
type Client struct {
	rpc     *query.RpcClient
	key     *PrivateKey
	address string

	mu      sync.Mutex
	chainID string

	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	Sleep          func(ctx context.Context, d time.Duration) error
}

// NewClient binds key to rpc. An empty chainID is discovered from the node.
func NewClient(rpc *query.RpcClient, key *PrivateKey, prefix, chainID string) (*Client, error) {
	address, err := key.Address(prefix)
	if err != nil {
		return nil, engerr.Wrap(engerr.CodeCredential, "derive signer address", err)
	}
	return &Client{
		rpc:            rpc,
		key:            key,
		address:        address,
		chainID:        chainID,
		PollInterval:   DefaultPollInterval,
		ConfirmTimeout: DefaultConfirmTimeout,
		Sleep:          sleepContext,
	}, nil
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

func (c *Client) Address() string {
	return c.address
}

func (c *Client) ChainID(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.chainID != "" {
		return c.chainID, nil
	}
	st, err := c.rpc.Status(ctx)
	if err != nil {
		return "", fmt.Errorf("discover chain id from %s: %w", c.rpc.URL, err)
	}
	if st.NodeInfo.Network == "" {
		return "", fmt.Errorf("node %s reported an empty chain id", c.rpc.URL)
	}
	c.chainID = st.NodeInfo.Network
	return c.chainID, nil
}

// Account fetches the signer's account number and sequence.
func (c *Client) Account(ctx context.Context) (tx.Account, error) {
	res, err := c.rpc.ABCIQuery(ctx, accountQueryPath, tx.QueryAccountRequest(c.address))
	if err != nil {
		return tx.Account{}, fmt.Errorf("query account %s: %w", c.address, err)
	}
	if res.Code != 0 {
		return tx.Account{}, engerr.Rejected(res.Code, "", fmt.Sprintf("account %s: %s", c.address, res.Log))
	}
	acc, err := tx.DecodeAccountResponse(res.Value)
	if err != nil {
		return tx.Account{}, fmt.Errorf("decode account %s: %w", c.address, err)
	}
	return acc, nil
}

func (c *Client) build(ctx context.Context, msgs []tx.Msg, fee tx.Fee, sign bool) ([]byte, error) {
	acc, err := c.Account(ctx)
	if err != nil {
		return nil, err
	}
	body := tx.Body{Messages: msgs}.Marshal()
	auth := tx.AuthInfo{
		Signer: tx.SignerInfo{PubKey: c.key.PubKey(), Sequence: acc.Sequence},
		Fee:    fee,
	}.Marshal()

	if !sign {
		return tx.Raw(body, auth, []byte{}), nil
	}
	chainID, err := c.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	sig := c.key.Sign(tx.SignDoc(body, auth, chainID, acc.AccountNumber))
	return tx.Raw(body, auth, sig), nil
}

// Simulate dry-runs msgs and returns the node's gas report. A non-zero
// response code is a chain rejection.
func (c *Client) Simulate(ctx context.Context, msgs []tx.Msg) (tx.GasInfo, error) {
	raw, err := c.build(ctx, msgs, tx.Fee{}, false)
	if err != nil {
		return tx.GasInfo{}, err
	}
	res, err := c.rpc.ABCIQuery(ctx, simulateQueryPath, tx.SimulateRequest(raw))
	if err != nil {
		return tx.GasInfo{}, fmt.Errorf("simulate: %w", err)
	}
	if res.Code != 0 {
		return tx.GasInfo{}, engerr.Rejected(res.Code, "", res.Log)
	}
	info, err := tx.DecodeSimulateResponse(res.Value)
	if err != nil {
		return tx.GasInfo{}, fmt.Errorf("decode simulate response: %w", err)
	}
	return info, nil
}

// SignAndBroadcast submits msgs with broadcast_tx_sync and then waits for
// the tx to be committed. Once the signed bytes may have reached the node
// any later failure is reported as indexer degradation carrying the locally
// computed hash, never as a reason to sign and submit again.
func (c *Client) SignAndBroadcast(ctx context.Context, msgs []tx.Msg, fee tx.Fee) (Receipt, error) {
	raw, err := c.build(ctx, msgs, fee, true)
	if err != nil {
		return Receipt{}, err
	}
	hash := tx.Hash(raw)

	res, err := c.rpc.BroadcastTxSync(ctx, raw)
	switch {
	case err == nil:
	case query.IsAlreadyInMempool(err):
		log.Info().Str("tx_hash", hash).Str("rpc", c.rpc.URL).Msg("Transaction already in mempool")
		return c.WaitForTx(ctx, hash)
	case notSubmitted(err):
		return Receipt{}, fmt.Errorf("broadcast %s: %w", hash, err)
	default:
		log.Warn().Err(err).Str("tx_hash", hash).Str("rpc", c.rpc.URL).Msg("Broadcast reply lost, looking the transaction up instead")
		return c.WaitForTx(ctx, hash)
	}
	if res.Hash != "" {
		hash = res.Hash
	}
	if res.Code != 0 {
		return Receipt{}, engerr.Rejected(res.Code, hash, res.Log)
	}
	log.Info().Str("tx_hash", hash).Str("rpc", c.rpc.URL).Msg("Transaction accepted by mempool")

	return c.WaitForTx(ctx, hash)
}

// notSubmitted reports whether a broadcast error proves the node never took
// the tx: the connection was never opened, or the node answered with a
// JSON-RPC error.
func notSubmitted(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var rpcErr *query.RPCError
	return errors.As(err, &rpcErr)
}

// WaitForTx polls for hash every PollInterval until it is committed or
// ConfirmTimeout worth of polls have been made.
func (c *Client) WaitForTx(ctx context.Context, hash string) (Receipt, error) {
	polls := 1
	if c.PollInterval > 0 {
		polls = max(int(c.ConfirmTimeout/c.PollInterval), 1)
	}
	for i := 0; ; i++ {
		res, err := c.rpc.Tx(ctx, hash)
		switch {
		case err == nil:
			r := Receipt{
				TxHash:    hash,
				Code:      res.TxResult.Code,
				Height:    int64(res.Height),
				GasWanted: uint64(res.TxResult.GasWanted),
				GasUsed:   uint64(res.TxResult.GasUsed),
				RawLog:    res.TxResult.Log,
			}
			if r.Code != 0 {
				return r, engerr.Rejected(r.Code, hash, r.RawLog)
			}
			return r, nil
		case query.IsIndexerDisabled(err):
			return Receipt{TxHash: hash}, engerr.Degraded(hash, err)
		case !query.IsTxNotFound(err):
			log.Debug().Err(err).Str("tx_hash", hash).Msg("Tx lookup failed, will retry")
		}

		if i+1 >= polls {
			return Receipt{TxHash: hash}, engerr.Degraded(hash, fmt.Errorf("not committed within %s", c.ConfirmTimeout))
		}
		if err := c.Sleep(ctx, c.PollInterval); err != nil {
			return Receipt{TxHash: hash}, engerr.Degraded(hash, err)
		}
	}
}
