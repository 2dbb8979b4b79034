package tx

import (
	"testing"

	"github.com/zeebo/assert"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestMsgSend_Marshal(t *testing.T) {
	msg := MsgSend{
		FromAddress: "terra1from",
		ToAddress:   "terra1to",
		Amount:      []Coin{{Denom: "uluna", Amount: "1500000"}},
	}
	top, err := fields(msg.Marshal())
	assert.NoError(t, err)
	assert.Equal(t, len(top), 3)
	assert.Equal(t, string(top[0].bytes), "terra1from")
	assert.Equal(t, string(top[1].bytes), "terra1to")

	coin, err := fields(top[2].bytes)
	assert.NoError(t, err)
	assert.Equal(t, string(coin[0].bytes), "uluna")
	assert.Equal(t, string(coin[1].bytes), "1500000")
}

func TestMsgDelegate_SameAmountEncodingAsSend(t *testing.T) {
	amount := Coin{Denom: "uluna", Amount: "1500000"}
	del := MsgDelegate{DelegatorAddress: "terra1d", ValidatorAddress: "terravaloper1v", Amount: amount}

	top, err := fields(del.Marshal())
	assert.NoError(t, err)
	assert.Equal(t, len(top), 3)
	assert.DeepEqual(t, top[2].bytes, amount.Marshal())
}

func TestMsgTransfer_AlwaysEncodesTimeoutHeight(t *testing.T) {
	msg := MsgTransfer{
		SourcePort:       "transfer",
		SourceChannel:    "channel-1",
		Token:            Coin{Denom: "uluna", Amount: "1"},
		Sender:           "terra1s",
		Receiver:         "osmo1r",
		TimeoutTimestamp: 1_700_000_000_000_000_000,
	}
	top, err := fields(msg.Marshal())
	assert.NoError(t, err)

	nums := make([]protowire.Number, 0, len(top))
	for _, f := range top {
		nums = append(nums, f.num)
	}
	assert.DeepEqual(t, nums, []protowire.Number{1, 2, 3, 4, 5, 6, 7})
	assert.Equal(t, len(top[5].bytes), 0)
	assert.Equal(t, top[6].value, uint64(1_700_000_000_000_000_000))
}

func TestBody_PacksAny(t *testing.T) {
	body := Body{
		Messages: []Msg{MsgWithdrawDelegatorReward{DelegatorAddress: "terra1d", ValidatorAddress: "terravaloper1v"}},
		Memo:     "hi",
	}
	top, err := fields(body.Marshal())
	assert.NoError(t, err)
	assert.Equal(t, len(top), 2)

	anyFields, err := fields(top[0].bytes)
	assert.NoError(t, err)
	assert.Equal(t, string(anyFields[0].bytes), "/cosmos.distribution.v1beta1.MsgWithdrawDelegatorReward")
	assert.Equal(t, string(top[1].bytes), "hi")
}

func TestSignDocAndRaw(t *testing.T) {
	doc := SignDoc([]byte("body"), []byte("auth"), "columbus-5", 42)
	top, err := fields(doc)
	assert.NoError(t, err)
	assert.Equal(t, len(top), 4)
	assert.Equal(t, string(top[2].bytes), "columbus-5")
	assert.Equal(t, top[3].value, uint64(42))

	// empty signature keeps its slot
	raw := Raw([]byte("body"), []byte("auth"), []byte{})
	top, err = fields(raw)
	assert.NoError(t, err)
	assert.Equal(t, len(top), 3)
	assert.Equal(t, top[2].num, protowire.Number(3))

	assert.Equal(t, len(Hash(raw)), 64)
}

func TestDecodeSimulateResponse(t *testing.T) {
	var gas []byte
	gas = protowire.AppendTag(gas, 1, protowire.VarintType)
	gas = protowire.AppendVarint(gas, 200000)
	gas = protowire.AppendTag(gas, 2, protowire.VarintType)
	gas = protowire.AppendVarint(gas, 123456)

	var resp []byte
	resp = protowire.AppendTag(resp, 1, protowire.BytesType)
	resp = protowire.AppendBytes(resp, gas)
	resp = protowire.AppendTag(resp, 2, protowire.BytesType)
	resp = protowire.AppendBytes(resp, []byte("result"))

	info, err := DecodeSimulateResponse(resp)
	assert.NoError(t, err)
	assert.Equal(t, info.GasWanted, uint64(200000))
	assert.Equal(t, info.GasUsed, uint64(123456))

	_, err = DecodeSimulateResponse(nil)
	assert.Error(t, err)
}

func baseAccount(addr string, number, seq uint64) []byte {
	var b []byte
	b = appendString(b, 1, addr)
	b = appendUint(b, 3, number)
	b = appendUint(b, 4, seq)
	return b
}

func accountResponse(typeURL string, value []byte) []byte {
	return appendMessage(nil, 1, Any{TypeURL: typeURL, Value: value}.Marshal())
}

func TestDecodeAccountResponse(t *testing.T) {
	acc, err := DecodeAccountResponse(accountResponse("/cosmos.auth.v1beta1.BaseAccount", baseAccount("terra1a", 7, 3)))
	assert.NoError(t, err)
	assert.Equal(t, acc.Address, "terra1a")
	assert.Equal(t, acc.AccountNumber, uint64(7))
	assert.Equal(t, acc.Sequence, uint64(3))

	vesting := appendMessage(nil, 1, appendMessage(nil, 1, baseAccount("terra1v", 9, 1)))
	acc, err = DecodeAccountResponse(accountResponse("/cosmos.vesting.v1beta1.ContinuousVestingAccount", vesting))
	assert.NoError(t, err)
	assert.Equal(t, acc.Address, "terra1v")
	assert.Equal(t, acc.AccountNumber, uint64(9))

	_, err = DecodeAccountResponse(accountResponse("/cosmos.auth.v1beta1.ModuleAccount", nil))
	assert.Error(t, err)
}
