package health

import (
	"context"
	"fmt"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"golang.org/x/sync/errgroup"
)

// maxProbeLag is how far behind the highest reported height a node may be
// before it is flagged as lagging.
const maxProbeLag = 20

// ProbeResult is one endpoint's RPC status as seen by Probe.
type ProbeResult struct {
	Endpoint   Endpoint `json:"endpoint"`
	ChainID    string   `json:"chain_id,omitempty"`
	Height     int64    `json:"height,omitempty"`
	CatchingUp bool     `json:"catching_up,omitempty"`
	// TxIndex is false for nodes that cannot confirm transactions by hash.
	TxIndex bool     `json:"tx_index"`
	Issues  []string `json:"issues,omitempty"`
}

// Healthy reports whether the endpoint had no issues.
func (p ProbeResult) Healthy() bool {
	return len(p.Issues) == 0
}

// Probe queries the status of every ranked endpoint concurrently. It never
// records failures: probing is diagnostic and leaves the ranking alone.
func (r *Registry) Probe(ctx context.Context, chainID string, timeout time.Duration) []ProbeResult {
	endpoints := r.Rank()
	results := make([]ProbeResult, len(endpoints))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, ep := range endpoints {
		g.Go(func() error {
			results[i] = probe(ctx, ep, chainID, timeout)
			return nil
		})
	}
	_ = g.Wait()

	var top int64
	for _, res := range results {
		top = max(top, res.Height)
	}
	for i := range results {
		if results[i].Height > 0 && top-results[i].Height > maxProbeLag {
			results[i].Issues = append(results[i].Issues, fmt.Sprintf("%d blocks behind", top-results[i].Height))
		}
		log.Debug().
			Str("endpoint", results[i].Endpoint.RPC).
			Int64("height", results[i].Height).
			Strs("issues", results[i].Issues).
			Msg("Probed endpoint")
	}
	return results
}

func probe(ctx context.Context, ep Endpoint, chainID string, timeout time.Duration) ProbeResult {
	res := ProbeResult{Endpoint: ep}
	status, err := query.NewRpcClient(ep.RPC, timeout).Status(ctx)
	if err != nil {
		res.Issues = append(res.Issues, fmt.Sprintf("status: %v", err))
		return res
	}
	res.ChainID = status.NodeInfo.Network
	res.Height = int64(status.SyncInfo.LatestBlockHeight)
	res.CatchingUp = status.SyncInfo.CatchingUp
	res.TxIndex = status.NodeInfo.Other.TxIndex != "off"

	if chainID != "" && res.ChainID != chainID {
		res.Issues = append(res.Issues, fmt.Sprintf("chain id %q, want %q", res.ChainID, chainID))
	}
	if res.CatchingUp {
		res.Issues = append(res.Issues, "catching up")
	}
	if !res.TxIndex {
		res.Issues = append(res.Issues, "tx indexer disabled")
	}
	return res
}
