// Package router resolves the IBC channel to use for a transfer between two
// addresses on different chains.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"time"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/registry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "router").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

type State string

const (
	StateDecode            State = "DECODE"
	StateMatchChains       State = "MATCH_CHAINS"
	StateLoadRegistryPath  State = "LOAD_REGISTRY_PATH"
	StateLoadChannelFile   State = "LOAD_CHANNEL_FILE"
	StateQueryLiveChannels State = "QUERY_LIVE_CHANNELS"
	StateValidate          State = "VALIDATE"
)

type Outcome string

const (
	RouteFound   Outcome = "ROUTE_FOUND"
	NoRoute      Outcome = "NO_ROUTE"
	SameChain    Outcome = "NO_IBC_REQUIRED"
	Unresolvable Outcome = "UNRESOLVABLE"
)

// Resolution is the terminal state of one resolution. Route is only set when
// Outcome is RouteFound. Reason explains any other outcome.
type Resolution struct {
	Outcome Outcome      `json:"outcome"`
	Route   models.Route `json:"route"`
	State   State        `json:"state"`
	Reason  string       `json:"reason,omitempty"`
}

// Reader performs REST reads against the sending chain.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

type Registry interface {
	ChainForPrefix(ctx context.Context, prefix string, level models.NetworkLevel) (string, bool, error)
	FindChannelFile(ctx context.Context, level models.NetworkLevel, chainA, chainB string) (string, bool, error)
	ChannelFile(ctx context.Context, level models.NetworkLevel, name string) (registry.ChainIbcData, error)
}

type Resolver struct {
	registry Registry
	reader   Reader
}

func NewResolver(reg Registry, reader Reader) *Resolver {
	return &Resolver{registry: reg, reader: reader}
}

func finish(state State, outcome Outcome, format string, args ...any) Resolution {
	return Resolution{Outcome: outcome, State: state, Reason: fmt.Sprintf(format, args...)}
}

// Resolve walks DECODE through VALIDATE for a transfer from sender to
// recipient. Missing registry entries, channel files and live matches are
// terminal outcomes. A registry or node that cannot be read is an error,
// returned with the state it interrupted.
func (r *Resolver) Resolve(ctx context.Context, sender, recipient string, level models.NetworkLevel) (Resolution, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "router.Resolve")
	defer span.End()

	res, err := r.resolve(ctx, sender, recipient, level)
	span.SetAttributes(attribute.String("route.state", string(res.State)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.RouteResolutions.WithLabelValues("error").Inc()
		log.Error().Err(err).Str("state", string(res.State)).Msg("Route resolution interrupted")
		return res, err
	}
	span.SetAttributes(attribute.String("route.outcome", string(res.Outcome)))
	telemetry.RouteResolutions.WithLabelValues(string(res.Outcome)).Inc()

	event := log.Info()
	if res.Outcome != RouteFound && res.Outcome != SameChain {
		event = log.Warn()
	}
	event.
		Str("outcome", string(res.Outcome)).
		Str("state", string(res.State)).
		Str("source_chain", res.Route.SourceChain).
		Str("destination_chain", res.Route.DestinationChain).
		Str("channel", res.Route.SourceChannel).
		Str("reason", res.Reason).
		Msg("Route resolution finished")
	return res, nil
}

// interrupted keeps the code of a classified err and marks anything else as
// a connectivity fault.
func interrupted(state State, src, dst, what string, err error) (Resolution, error) {
	res := withChains(Resolution{State: state, Reason: err.Error()}, src, dst)
	if _, ok := engerr.As(err); ok {
		return res, fmt.Errorf("%s: %w", what, err)
	}
	return res, engerr.Wrap(engerr.CodeConnectivity, what, err)
}

func (r *Resolver) resolve(ctx context.Context, sender, recipient string, level models.NetworkLevel) (Resolution, error) {
	srcPrefix, err := Prefix(sender)
	if err != nil {
		return finish(StateDecode, Unresolvable, "sender: %v", err), nil
	}
	dstPrefix, err := Prefix(recipient)
	if err != nil {
		return finish(StateDecode, Unresolvable, "recipient: %v", err), nil
	}
	if srcPrefix == dstPrefix {
		return finish(StateDecode, SameChain, "both addresses use prefix %q", srcPrefix), nil
	}
	log.Debug().Str("state", string(StateDecode)).Str("from", srcPrefix).Str("to", dstPrefix).Msg("Decoded prefixes")

	srcChain, ok, err := r.registry.ChainForPrefix(ctx, srcPrefix, level)
	if err != nil {
		return interrupted(StateMatchChains, "", "", "chain registry", err)
	}
	if !ok {
		return finish(StateMatchChains, Unresolvable, "unknown prefix %q", srcPrefix), nil
	}
	dstChain, ok, err := r.registry.ChainForPrefix(ctx, dstPrefix, level)
	if err != nil {
		return interrupted(StateMatchChains, srcChain, "", "chain registry", err)
	}
	if !ok {
		return finish(StateMatchChains, Unresolvable, "unknown prefix %q", dstPrefix), nil
	}
	log.Debug().Str("state", string(StateMatchChains)).Str("source_chain", srcChain).Str("destination_chain", dstChain).Msg("Matched chains")

	name, ok, err := r.registry.FindChannelFile(ctx, level, srcChain, dstChain)
	if err != nil {
		return interrupted(StateLoadRegistryPath, srcChain, dstChain, "channel registry", err)
	}
	if !ok {
		return withChains(finish(StateLoadRegistryPath, NoRoute, "no channel file for %s and %s", srcChain, dstChain), srcChain, dstChain), nil
	}

	file, err := r.registry.ChannelFile(ctx, level, name)
	if err != nil {
		return interrupted(StateLoadChannelFile, srcChain, dstChain, "channel file "+name, err)
	}
	declared := file.PairsFrom(srcChain)
	if len(declared) == 0 {
		return withChains(finish(StateLoadChannelFile, NoRoute, "%s declares no channels for %s", name, srcChain), srcChain, dstChain), nil
	}

	live, err := r.liveChannels(ctx)
	if err != nil {
		return interrupted(StateQueryLiveChannels, srcChain, dstChain, "live channels", err)
	}

	for _, p := range declared {
		for _, c := range live {
			if c.State != query.ChannelStateOpen || !matches(p, c) {
				continue
			}
			return Resolution{
				Outcome: RouteFound,
				State:   StateValidate,
				Route: models.Route{
					SourceChain:         srcChain,
					DestinationChain:    dstChain,
					SourcePort:          c.PortID,
					SourceChannel:       c.ChannelID,
					CounterpartyChannel: c.Counterparty.ChannelID,
					CounterpartyPort:    c.Counterparty.PortID,
				},
			}, nil
		}
	}
	return withChains(finish(StateValidate, NoRoute, "no open live channel matches %s", name), srcChain, dstChain), nil
}

func withChains(res Resolution, src, dst string) Resolution {
	res.Route.SourceChain = src
	res.Route.DestinationChain = dst
	return res
}

// matches accepts the declared pair in either orientation.
func matches(p registry.ChannelPair, c query.IbcChannel) bool {
	if c.ChannelID == p.Channel && c.Counterparty.ChannelID == p.CounterpartyChannel {
		return true
	}
	return c.ChannelID == p.CounterpartyChannel && c.Counterparty.ChannelID == p.Channel
}

func (r *Resolver) liveChannels(ctx context.Context) ([]query.IbcChannel, error) {
	var all []query.IbcChannel
	key := ""
	for {
		path := query.IbcChannelsPath + "?pagination.limit=1000"
		if key != "" {
			path += "&pagination.key=" + url.QueryEscape(key)
		}
		body, err := r.reader.Read(ctx, path)
		if err != nil {
			return nil, err
		}
		var page query.IbcChannelsResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, fmt.Errorf("decode channels: %w", err)
		}
		all = append(all, page.Channels...)
		if page.Pagination.NextKey == "" || page.Pagination.NextKey == key {
			return all, nil
		}
		key = page.Pagination.NextKey
	}
}
