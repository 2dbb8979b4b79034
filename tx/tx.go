package tx

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

const (
	Secp256k1PubKeyType = "/cosmos.crypto.secp256k1.PubKey"
	signModeDirect      = 1
)

type Any struct {
	TypeURL string
	Value   []byte
}

func (a Any) Marshal() []byte {
	var b []byte
	b = appendString(b, 1, a.TypeURL)
	b = appendBytes(b, 2, a.Value)
	return b
}

// Pack wraps a message into an Any.
func Pack(m Msg) Any {
	return Any{TypeURL: m.TypeURL(), Value: m.Marshal()}
}

type Fee struct {
	Amount   []Coin
	GasLimit uint64
}

func (f Fee) Marshal() []byte {
	var b []byte
	for _, c := range f.Amount {
		b = appendMessage(b, 1, c.Marshal())
	}
	b = appendUint(b, 2, f.GasLimit)
	return b
}

// Body is the TxBody.
type Body struct {
	Messages []Msg
	Memo     string
}

func (t Body) Marshal() []byte {
	var b []byte
	for _, m := range t.Messages {
		b = appendMessage(b, 1, Pack(m).Marshal())
	}
	b = appendString(b, 2, t.Memo)
	return b
}

// SignerInfo describes a single SIGN_MODE_DIRECT secp256k1 signer.
type SignerInfo struct {
	PubKey   []byte
	Sequence uint64
}

func (s SignerInfo) Marshal() []byte {
	var pk []byte
	pk = appendBytes(pk, 1, s.PubKey)

	var single []byte
	single = appendUint(single, 1, signModeDirect)
	var modeInfo []byte
	modeInfo = appendMessage(modeInfo, 1, single)

	var b []byte
	b = appendMessage(b, 1, Any{TypeURL: Secp256k1PubKeyType, Value: pk}.Marshal())
	b = appendMessage(b, 2, modeInfo)
	b = appendUint(b, 3, s.Sequence)
	return b
}

type AuthInfo struct {
	Signer SignerInfo
	Fee    Fee
}

func (a AuthInfo) Marshal() []byte {
	var b []byte
	b = appendMessage(b, 1, a.Signer.Marshal())
	b = appendMessage(b, 2, a.Fee.Marshal())
	return b
}

// SignDoc returns the SIGN_MODE_DIRECT bytes to sign.
func SignDoc(bodyBytes, authInfoBytes []byte, chainID string, accountNumber uint64) []byte {
	var b []byte
	b = appendBytes(b, 1, bodyBytes)
	b = appendBytes(b, 2, authInfoBytes)
	b = appendString(b, 3, chainID)
	b = appendUint(b, 4, accountNumber)
	return b
}

// Raw assembles TxRaw. An empty signature still takes a slot, simulation
// needs one per signer.
func Raw(bodyBytes, authInfoBytes []byte, signatures ...[]byte) []byte {
	var b []byte
	b = appendBytes(b, 1, bodyBytes)
	b = appendBytes(b, 2, authInfoBytes)
	for _, sig := range signatures {
		b = protowire.AppendTag(b, 3, protowire.BytesType)
		b = protowire.AppendBytes(b, sig)
	}
	return b
}

// Hash is the upper-case hex sha256 of the raw tx, as CometBFT reports it.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// SimulateRequest encodes cosmos.tx.v1beta1.SimulateRequest{tx_bytes}.
func SimulateRequest(raw []byte) []byte {
	return appendBytes(nil, 2, raw)
}

// QueryAccountRequest encodes cosmos.auth.v1beta1.QueryAccountRequest.
func QueryAccountRequest(address string) []byte {
	return appendString(nil, 1, address)
}
