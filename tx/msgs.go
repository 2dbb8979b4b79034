// Package tx encodes Cosmos SDK messages and transactions in protobuf wire
// format and decodes the few query replies the signer needs.
package tx

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// Msg is a protocol message ready to be packed into an Any.
type Msg interface {
	TypeURL() string
	Marshal() []byte
}

type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

func (c Coin) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, c.Denom)
	b = appendString(b, 2, c.Amount)
	return b
}

type MsgSend struct {
	FromAddress string `json:"from_address"`
	ToAddress   string `json:"to_address"`
	Amount      []Coin `json:"amount"`
}

func (m MsgSend) TypeURL() string { return "/cosmos.bank.v1beta1.MsgSend" }

func (m MsgSend) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.FromAddress)
	b = appendString(b, 2, m.ToAddress)
	for _, c := range m.Amount {
		b = appendMessage(b, 3, c.Marshal())
	}
	return b
}

type MsgDelegate struct {
	DelegatorAddress string `json:"delegator_address"`
	ValidatorAddress string `json:"validator_address"`
	Amount           Coin   `json:"amount"`
}

func (m MsgDelegate) TypeURL() string { return "/cosmos.staking.v1beta1.MsgDelegate" }

func (m MsgDelegate) Marshal() []byte {
	return marshalStaking(m.DelegatorAddress, m.ValidatorAddress, m.Amount)
}

type MsgUndelegate struct {
	DelegatorAddress string `json:"delegator_address"`
	ValidatorAddress string `json:"validator_address"`
	Amount           Coin   `json:"amount"`
}

func (m MsgUndelegate) TypeURL() string { return "/cosmos.staking.v1beta1.MsgUndelegate" }

func (m MsgUndelegate) Marshal() []byte {
	return marshalStaking(m.DelegatorAddress, m.ValidatorAddress, m.Amount)
}

func marshalStaking(delegator, validator string, amount Coin) []byte {
	var b []byte
	b = appendString(b, 1, delegator)
	b = appendString(b, 2, validator)
	b = appendMessage(b, 3, amount.Marshal())
	return b
}

type MsgWithdrawDelegatorReward struct {
	DelegatorAddress string `json:"delegator_address"`
	ValidatorAddress string `json:"validator_address"`
}

func (m MsgWithdrawDelegatorReward) TypeURL() string {
	return "/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward"
}

func (m MsgWithdrawDelegatorReward) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.DelegatorAddress)
	b = appendString(b, 2, m.ValidatorAddress)
	return b
}

// MsgSwap is the market module swap (Terra Classic).
type MsgSwap struct {
	Trader    string `json:"trader"`
	OfferCoin Coin   `json:"offer_coin"`
	AskDenom  string `json:"ask_denom"`
}

func (m MsgSwap) TypeURL() string { return "/terra.market.v1beta1.MsgSwap" }

func (m MsgSwap) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.Trader)
	b = appendMessage(b, 2, m.OfferCoin.Marshal())
	b = appendString(b, 3, m.AskDenom)
	return b
}

type Height struct {
	RevisionNumber uint64 `json:"revision_number"`
	RevisionHeight uint64 `json:"revision_height"`
}

func (h Height) Marshal() []byte {
	var b []byte
	b = appendUint(b, 1, h.RevisionNumber)
	b = appendUint(b, 2, h.RevisionHeight)
	return b
}

// MsgTransfer is an ICS-20 fungible token transfer.
type MsgTransfer struct {
	SourcePort       string `json:"source_port"`
	SourceChannel    string `json:"source_channel"`
	Token            Coin   `json:"token"`
	Sender           string `json:"sender"`
	Receiver         string `json:"receiver"`
	TimeoutHeight    Height `json:"timeout_height"`
	TimeoutTimestamp uint64 `json:"timeout_timestamp"`
	Memo             string `json:"memo,omitempty"`
}

func (m MsgTransfer) TypeURL() string { return "/ibc.applications.transfer.v1.MsgTransfer" }

func (m MsgTransfer) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, m.SourcePort)
	b = appendString(b, 2, m.SourceChannel)
	b = appendMessage(b, 3, m.Token.Marshal())
	b = appendString(b, 4, m.Sender)
	b = appendString(b, 5, m.Receiver)
	// timeout_height is non-nullable and always present
	b = protowire.AppendTag(b, 6, protowire.BytesType)
	b = protowire.AppendBytes(b, m.TimeoutHeight.Marshal())
	b = appendUint(b, 7, m.TimeoutTimestamp)
	b = appendString(b, 8, m.Memo)
	return b
}

// proto3 omits zero scalars, these helpers follow suit.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}
