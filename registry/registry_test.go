package registry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/registry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/zeebo/assert"
)

const osmosisTerra = `{
  "chain_1": {"chain_name": "osmosis", "client_id": "07-tendermint-1215", "connection_id": "connection-1042"},
  "chain_2": {"chain_name": "terra2", "client_id": "07-tendermint-3", "connection_id": "connection-3"},
  "channels": [
    {"chain_1": {"channel_id": "channel-251", "port_id": "transfer"},
     "chain_2": {"channel_id": "channel-1", "port_id": "transfer"},
     "ordering": "unordered", "version": "ics20-1", "tags": {"preferred": true, "status": "live"}}
  ]
}`

func githubFake(t *testing.T, hits map[string]int) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits[r.URL.Path]++
		switch r.URL.Path {
		case "/contents/_IBC":
			_, _ = w.Write([]byte(`[
				{"name": "terra2-osmosis.json", "type": "file"},
				{"name": "osmosis-terra2.json", "type": "file"},
				{"name": "README.md", "type": "file"},
				{"name": "nested", "type": "dir"}
			]`))
		case "/contents/testnets/_IBC":
			_, _ = w.Write([]byte(`[]`))
		case "/raw/_IBC/osmosis-terra2.json":
			_, _ = w.Write([]byte(osmosisTerra))
		case "/prefixes.json":
			_, _ = w.Write([]byte(`[
				{"name": "terra2", "mainnet_prefix": "terra", "testnet_prefix": "terra"},
				{"name": "osmosis", "mainnet_prefix": "osmo", "testnet_prefix": "osmo"}
			]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newRegistry(srv *httptest.Server, s store.Store) *registry.Registry {
	gh := &registry.GitHubSource{ContentsAPI: srv.URL + "/contents", RawBase: srv.URL + "/raw", Client: srv.Client()}
	prefixes := &registry.HTTPPrefixSource{URL: srv.URL + "/prefixes.json", Client: srv.Client()}
	return registry.New(s, prefixes, gh)
}

func TestFindChannelFile_FirstLexicalMatch(t *testing.T) {
	hits := map[string]int{}
	srv := githubFake(t, hits)
	defer srv.Close()
	r := newRegistry(srv, store.NewMemory())

	names, err := r.ChannelFiles(context.Background(), models.Mainnet)
	assert.NoError(t, err)
	assert.DeepEqual(t, names, []string{"osmosis-terra2.json", "terra2-osmosis.json"})

	name, ok, err := r.FindChannelFile(context.Background(), models.Mainnet, "Terra2", "OSMOSIS")
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, name, "osmosis-terra2.json")

	_, ok, err = r.FindChannelFile(context.Background(), models.Mainnet, "terra2", "juno")
	assert.NoError(t, err)
	assert.False(t, ok)

	// second lookup served from cache
	assert.Equal(t, hits["/contents/_IBC"], 1)
}

func TestChannelFile_PairsFromEitherSide(t *testing.T) {
	srv := githubFake(t, map[string]int{})
	defer srv.Close()
	r := newRegistry(srv, store.NewMemory())

	data, err := r.ChannelFile(context.Background(), models.Mainnet, "osmosis-terra2.json")
	assert.NoError(t, err)

	fromTerra := data.PairsFrom("terra2")
	assert.Equal(t, len(fromTerra), 1)
	assert.Equal(t, fromTerra[0], registry.ChannelPair{
		Channel: "channel-1", Port: "transfer", CounterpartyChannel: "channel-251", CounterpartyPort: "transfer",
	})
	assert.Equal(t, data.PairsFrom("osmosis")[0].Channel, "channel-251")
	assert.Equal(t, len(data.PairsFrom("juno")), 0)
}

func TestChainForPrefix(t *testing.T) {
	srv := githubFake(t, map[string]int{})
	defer srv.Close()
	r := newRegistry(srv, store.NewMemory())

	name, ok, err := r.ChainForPrefix(context.Background(), "osmo", models.Mainnet)
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, name, "osmosis")

	_, ok, err = r.ChainForPrefix(context.Background(), "cosmos", models.Mainnet)
	assert.NoError(t, err)
	assert.False(t, ok)
}

type flakyPrefixes struct {
	calls int
	fail  bool
}

func (f *flakyPrefixes) ChainPrefixes(ctx context.Context) ([]models.ChainPrefixEntry, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("registry unreachable")
	}
	return []models.ChainPrefixEntry{{Name: "terra2", MainnetPrefix: "terra"}}, nil
}

func TestCache_StaleRefreshAndFallback(t *testing.T) {
	src := &flakyPrefixes{}
	r := registry.New(store.NewMemory(), src, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.Now = func() time.Time { return now }

	_, err := r.ChainPrefixes(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, src.calls, 1)

	now = now.Add(23 * time.Hour)
	_, err = r.ChainPrefixes(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, src.calls, 1)

	now = now.Add(2 * time.Hour)
	src.fail = true
	entries, err := r.ChainPrefixes(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, src.calls, 2)
	assert.Equal(t, entries[0].Name, "terra2")
}

func TestCache_NoDataAndNoSource(t *testing.T) {
	r := registry.New(store.NewMemory(), &flakyPrefixes{fail: true}, nil)
	_, err := r.ChainPrefixes(context.Background())
	assert.Error(t, err)
}

func TestFileSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chains.toml")
	assert.NoError(t, os.WriteFile(path, []byte(`
[[chains]]
name = "terra2"
mainnet_prefix = "terra"
testnet_prefix = "terra"

[[chains]]
name = "osmosis"
mainnet_prefix = "osmo"
testnet_prefix = "osmo"
`), 0o600))

	entries, err := (&registry.FileSource{Path: path}).ChainPrefixes(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, len(entries), 2)
	assert.Equal(t, entries[1], models.ChainPrefixEntry{Name: "osmosis", MainnetPrefix: "osmo", TestnetPrefix: "osmo"})
}

func TestGitSource_ServesFreshCheckout(t *testing.T) {
	dir := t.TempDir()
	level := filepath.Join(dir, string(models.Mainnet))
	assert.NoError(t, os.MkdirAll(level, 0o755))
	assert.NoError(t, os.WriteFile(filepath.Join(level, "terra2-osmosis.json"), []byte(osmosisTerra), 0o600))
	assert.NoError(t, os.WriteFile(filepath.Join(level, "README.md"), []byte("x"), 0o600))

	src := &registry.GitSource{Dir: dir, StaleAfter: time.Hour}
	names, err := src.ListFiles(context.Background(), models.Mainnet)
	assert.NoError(t, err)
	assert.DeepEqual(t, names, []string{"terra2-osmosis.json"})

	body, err := src.FetchFile(context.Background(), models.Mainnet, "terra2-osmosis.json")
	assert.NoError(t, err)
	assert.Equal(t, string(body), osmosisTerra)

	_, err = src.FetchFile(context.Background(), models.Mainnet, "../secret.json")
	assert.Error(t, err)
}
