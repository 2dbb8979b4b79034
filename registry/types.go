package registry

import (
	"strings"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
)

// ChainIbcData is one chain-registry _IBC file describing the channels
// between two chains.
type ChainIbcData struct {
	Schema   string           `json:"$schema"`
	Chain1   IbcChainData     `json:"chain_1"`
	Chain2   IbcChainData     `json:"chain_2"`
	Channels []IbcChannelData `json:"channels"`
}

type IbcChainData struct {
	ChainName    string `json:"chain_name"`
	ClientID     string `json:"client_id"`
	ConnectionID string `json:"connection_id"`
}

type IbcChannelData struct {
	Chain1   ChannelChainData `json:"chain_1"`
	Chain2   ChannelChainData `json:"chain_2"`
	Ordering string           `json:"ordering"`
	Version  string           `json:"version"`
	Tags     ChannelTags      `json:"tags"`
}

type ChannelChainData struct {
	ChannelID string `json:"channel_id"`
	PortID    string `json:"port_id"`
}

type ChannelTags struct {
	Preferred bool   `json:"preferred"`
	Status    string `json:"status"`
}

// ChannelPair is a declared channel seen from one side of the file.
type ChannelPair struct {
	Channel             string
	Port                string
	CounterpartyChannel string
	CounterpartyPort    string
}

// PairsFrom orients every declared channel so that chainName is the local
// side. It returns nil when chainName is on neither side.
func (d ChainIbcData) PairsFrom(chainName string) []ChannelPair {
	var local, remote func(IbcChannelData) ChannelChainData
	switch {
	case strings.EqualFold(d.Chain1.ChainName, chainName):
		local = func(c IbcChannelData) ChannelChainData { return c.Chain1 }
		remote = func(c IbcChannelData) ChannelChainData { return c.Chain2 }
	case strings.EqualFold(d.Chain2.ChainName, chainName):
		local = func(c IbcChannelData) ChannelChainData { return c.Chain2 }
		remote = func(c IbcChannelData) ChannelChainData { return c.Chain1 }
	default:
		return nil
	}

	pairs := make([]ChannelPair, 0, len(d.Channels))
	for _, c := range d.Channels {
		l, r := local(c), remote(c)
		pairs = append(pairs, ChannelPair{
			Channel:             l.ChannelID,
			Port:                l.PortID,
			CounterpartyChannel: r.ChannelID,
			CounterpartyPort:    r.PortID,
		})
	}
	return pairs
}

// prefixFile is the TOML layout read by FileSource.
type prefixFile struct {
	Chains []models.ChainPrefixEntry `toml:"chains"`
}
