// Package registry caches the chain-prefix list and chain-registry IBC
// channel files in the persistence store. Cached data older than StaleAfter
// is refreshed on use; when the refresh fails the stale copy is served.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/store"
	"github.com/rs/zerolog"
)

const (
	DefaultStaleAfter = 24 * time.Hour

	prefixesKey = "registry/chain_prefixes"
	filesKey    = "registry/ibc_files/"
	fileKey     = "registry/ibc_file/"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "registry").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

type entry struct {
	UpdatedAt time.Time       `json:"updated_at"`
	Data      json.RawMessage `json:"data"`
}

// Registry is created once per session and shared by resolvers.
type Registry struct {
	store    store.Store
	prefixes PrefixSource
	channels ChannelSource

	StaleAfter time.Duration
	Now        func() time.Time
}

func New(s store.Store, prefixes PrefixSource, channels ChannelSource) *Registry {
	return &Registry{
		store:      s,
		prefixes:   prefixes,
		channels:   channels,
		StaleAfter: DefaultStaleAfter,
		Now:        time.Now,
	}
}

// cached returns the value under key, refreshing it through fetch when it is
// missing or stale. A failed refresh falls back to the stale value.
func cached[T any](r *Registry, key string, fetch func() (T, error)) (T, error) {
	var zero T
	var rec entry
	found, err := store.GetJSON(r.store, key, &rec)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring unreadable registry cache")
		found = false
	}

	var stale T
	haveStale := false
	if found {
		if err := json.Unmarshal(rec.Data, &stale); err == nil {
			if r.Now().Sub(rec.UpdatedAt) < r.StaleAfter {
				return stale, nil
			}
			haveStale = true
		}
	}

	fresh, err := fetch()
	if err != nil {
		if haveStale {
			log.Warn().Err(err).Str("key", key).Time("updated_at", rec.UpdatedAt).Msg("Registry refresh failed, using stale data")
			return stale, nil
		}
		return zero, err
	}

	data, err := json.Marshal(fresh)
	if err != nil {
		return zero, fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.SetJSON(r.store, key, entry{UpdatedAt: r.Now().UTC(), Data: data}); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to cache registry data")
	}
	return fresh, nil
}

func (r *Registry) ChainPrefixes(ctx context.Context) ([]models.ChainPrefixEntry, error) {
	return cached(r, prefixesKey, func() ([]models.ChainPrefixEntry, error) {
		return r.prefixes.ChainPrefixes(ctx)
	})
}

// ChainForPrefix maps a bech32 prefix to its canonical chain name on level.
func (r *Registry) ChainForPrefix(ctx context.Context, prefix string, level models.NetworkLevel) (string, bool, error) {
	entries, err := r.ChainPrefixes(ctx)
	if err != nil {
		return "", false, err
	}
	for _, e := range entries {
		p := e.MainnetPrefix
		if level == models.Testnet {
			p = e.TestnetPrefix
		}
		if p != "" && strings.EqualFold(p, prefix) {
			return e.Name, true, nil
		}
	}
	return "", false, nil
}

// ChannelFiles lists the _IBC file names of level in lexical order.
func (r *Registry) ChannelFiles(ctx context.Context, level models.NetworkLevel) ([]string, error) {
	names, err := cached(r, filesKey+string(level), func() ([]string, error) {
		return r.channels.ListFiles(ctx, level)
	})
	if err != nil {
		return nil, err
	}
	names = slices.Clone(names)
	slices.Sort(names)
	return names, nil
}

// FindChannelFile returns the first file, in lexical order, whose name
// contains both chain names ignoring case.
func (r *Registry) FindChannelFile(ctx context.Context, level models.NetworkLevel, chainA, chainB string) (string, bool, error) {
	names, err := r.ChannelFiles(ctx, level)
	if err != nil {
		return "", false, err
	}
	a, b := strings.ToLower(chainA), strings.ToLower(chainB)
	for _, n := range names {
		lower := strings.ToLower(n)
		if strings.Contains(lower, a) && strings.Contains(lower, b) {
			return n, true, nil
		}
	}
	return "", false, nil
}

func (r *Registry) ChannelFile(ctx context.Context, level models.NetworkLevel, name string) (ChainIbcData, error) {
	return cached(r, fileKey+string(level)+"/"+name, func() (ChainIbcData, error) {
		body, err := r.channels.FetchFile(ctx, level, name)
		if err != nil {
			return ChainIbcData{}, err
		}
		var data ChainIbcData
		if err := json.Unmarshal(body, &data); err != nil {
			return ChainIbcData{}, fmt.Errorf("failed to unmarshal %s: %w", name, err)
		}
		return data, nil
	})
}
