package router_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/registry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/router"
	"github.com/btcsuite/btcutil/bech32"
	"github.com/zeebo/assert"
)

func addr(t *testing.T, prefix string, seed byte) string {
	t.Helper()
	raw := make([]byte, 20)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	assert.NoError(t, err)
	a, err := bech32.Encode(prefix, conv)
	assert.NoError(t, err)
	return a
}

type fakeRegistry struct {
	prefixes map[string]string
	files    []string
	data     map[string]registry.ChainIbcData
	err      error
}

func (f *fakeRegistry) ChainForPrefix(ctx context.Context, prefix string, level models.NetworkLevel) (string, bool, error) {
	if f.err != nil {
		return "", false, f.err
	}
	name, ok := f.prefixes[prefix]
	return name, ok, nil
}

func (f *fakeRegistry) FindChannelFile(ctx context.Context, level models.NetworkLevel, a, b string) (string, bool, error) {
	for _, n := range f.files {
		if strings.Contains(n, a) && strings.Contains(n, b) {
			return n, true, nil
		}
	}
	return "", false, nil
}

func (f *fakeRegistry) ChannelFile(ctx context.Context, level models.NetworkLevel, name string) (registry.ChainIbcData, error) {
	d, ok := f.data[name]
	if !ok {
		return registry.ChainIbcData{}, errors.New("not found")
	}
	return d, nil
}

type pagedReader struct {
	pages []string
	paths []string
	err   error
}

func (p *pagedReader) Read(ctx context.Context, path string) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.paths = append(p.paths, path)
	return []byte(p.pages[len(p.paths)-1]), nil
}

func fixture() *fakeRegistry {
	return &fakeRegistry{
		prefixes: map[string]string{"terra": "terra2", "osmo": "osmosis", "juno": "juno"},
		files:    []string{"osmosis-terra2.json"},
		data: map[string]registry.ChainIbcData{
			"osmosis-terra2.json": {
				Chain1: registry.IbcChainData{ChainName: "osmosis"},
				Chain2: registry.IbcChainData{ChainName: "terra2"},
				Channels: []registry.IbcChannelData{{
					Chain1: registry.ChannelChainData{ChannelID: "channel-251", PortID: "transfer"},
					Chain2: registry.ChannelChainData{ChannelID: "channel-1", PortID: "transfer"},
				}},
			},
		},
	}
}

const (
	page1 = `{"channels":[
		{"state":"STATE_OPEN","port_id":"transfer","channel_id":"channel-0","counterparty":{"port_id":"transfer","channel_id":"channel-9"}},
		{"state":"STATE_CLOSED","port_id":"transfer","channel_id":"channel-1","counterparty":{"port_id":"transfer","channel_id":"channel-251"}}
	],"pagination":{"next_key":"AAE="}}`
	page2 = `{"channels":[
		{"state":"STATE_OPEN","port_id":"transfer","channel_id":"channel-1","counterparty":{"port_id":"transfer","channel_id":"channel-251"}}
	],"pagination":{"next_key":null}}`
)

func TestResolve_RouteFoundAcrossPages(t *testing.T) {
	reader := &pagedReader{pages: []string{page1, page2}}
	r := router.NewResolver(fixture(), reader)

	res, err := r.Resolve(context.Background(), addr(t, "terra", 1), addr(t, "osmo", 2), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.RouteFound)
	assert.Equal(t, res.Route, models.Route{
		SourceChain:         "terra2",
		DestinationChain:    "osmosis",
		SourcePort:          "transfer",
		SourceChannel:       "channel-1",
		CounterpartyChannel: "channel-251",
		CounterpartyPort:    "transfer",
	})
	assert.Equal(t, len(reader.paths), 2)
	assert.True(t, strings.Contains(reader.paths[1], "pagination.key=AAE%3D"))
}

func TestResolve_Deterministic(t *testing.T) {
	sender, recipient := addr(t, "terra", 1), addr(t, "osmo", 2)
	var first router.Resolution
	for i := 0; i < 5; i++ {
		r := router.NewResolver(fixture(), &pagedReader{pages: []string{page1, page2}})
		res, err := r.Resolve(context.Background(), sender, recipient, models.Mainnet)
		assert.NoError(t, err)
		if i == 0 {
			first = res
			continue
		}
		assert.Equal(t, res, first)
	}
}

func TestResolve_SameChain(t *testing.T) {
	r := router.NewResolver(fixture(), &pagedReader{})
	res, err := r.Resolve(context.Background(), addr(t, "terra", 1), addr(t, "terra", 5), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.SameChain)
}

func TestResolve_Unresolvable(t *testing.T) {
	r := router.NewResolver(fixture(), &pagedReader{})

	res, err := r.Resolve(context.Background(), "not-an-address", addr(t, "osmo", 2), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.Unresolvable)
	assert.Equal(t, res.State, router.StateDecode)

	res, err = r.Resolve(context.Background(), addr(t, "terra", 1), addr(t, "cosmos", 2), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.Unresolvable)
	assert.Equal(t, res.State, router.StateMatchChains)
}

func TestResolve_NoRoute(t *testing.T) {
	sender := addr(t, "terra", 1)

	// no channel file
	r := router.NewResolver(fixture(), &pagedReader{})
	res, err := r.Resolve(context.Background(), sender, addr(t, "juno", 3), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.NoRoute)
	assert.Equal(t, res.State, router.StateLoadRegistryPath)

	// only a closed live match
	r = router.NewResolver(fixture(), &pagedReader{pages: []string{`{"channels":[{"state":"STATE_CLOSED","port_id":"transfer","channel_id":"channel-1","counterparty":{"port_id":"transfer","channel_id":"channel-251"}}]}`}})
	res, err = r.Resolve(context.Background(), sender, addr(t, "osmo", 2), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.NoRoute)
	assert.Equal(t, res.State, router.StateValidate)
}

func TestResolve_ReadFaultsAreErrors(t *testing.T) {
	sender, recipient := addr(t, "terra", 1), addr(t, "osmo", 2)

	broken := fixture()
	broken.err = errors.New("registry offline")
	res, err := router.NewResolver(broken, &pagedReader{}).Resolve(context.Background(), sender, recipient, models.Mainnet)
	assert.Equal(t, engerr.CodeOf(err), engerr.CodeConnectivity)
	assert.Equal(t, res.State, router.StateMatchChains)
	assert.Equal(t, res.Outcome, router.Outcome(""))

	missing := fixture()
	delete(missing.data, "osmosis-terra2.json")
	res, err = router.NewResolver(missing, &pagedReader{}).Resolve(context.Background(), sender, recipient, models.Mainnet)
	assert.Equal(t, engerr.CodeOf(err), engerr.CodeConnectivity)
	assert.Equal(t, res.State, router.StateLoadChannelFile)

	reachable := engerr.New(engerr.CodeConnectivity, "no endpoint reachable after 3 attempts")
	res, err = router.NewResolver(fixture(), &pagedReader{err: reachable}).Resolve(context.Background(), sender, recipient, models.Mainnet)
	assert.True(t, errors.Is(err, reachable))
	assert.Equal(t, engerr.CodeOf(err), engerr.CodeConnectivity)
	assert.Equal(t, res.State, router.StateQueryLiveChannels)
	assert.Equal(t, res.Route.SourceChain, "terra2")

	res, err = router.NewResolver(fixture(), &pagedReader{pages: []string{`<html>`}}).Resolve(context.Background(), sender, recipient, models.Mainnet)
	assert.Equal(t, engerr.CodeOf(err), engerr.CodeConnectivity)
	assert.Equal(t, res.State, router.StateQueryLiveChannels)
}

func TestResolve_ReversedOrientationMatches(t *testing.T) {
	reg := fixture()
	live := `{"channels":[{"state":"STATE_OPEN","port_id":"transfer","channel_id":"channel-251","counterparty":{"port_id":"transfer","channel_id":"channel-1"}}]}`
	r := router.NewResolver(reg, &pagedReader{pages: []string{live}})
	res, err := r.Resolve(context.Background(), addr(t, "terra", 1), addr(t, "osmo", 2), models.Mainnet)
	assert.NoError(t, err)
	assert.Equal(t, res.Outcome, router.RouteFound)
	assert.Equal(t, res.Route.SourceChannel, "channel-251")
}

func TestAddressHelpers(t *testing.T) {
	a := addr(t, "terra", 1)
	p, err := router.Prefix(a)
	assert.NoError(t, err)
	assert.Equal(t, p, "terra")

	assert.NoError(t, router.ValidateAddress(a, "terra"))
	assert.Error(t, router.ValidateAddress(a, "osmo"))

	converted, err := router.ConvertBech32Address(a, "osmo")
	assert.NoError(t, err)
	assert.Equal(t, converted, addr(t, "osmo", 1))
}
