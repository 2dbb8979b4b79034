// Package txbuilder turns wallet actions into protocol messages. Every builder
// is pure: no I/O and no validation, malformed input still yields messages.
// Display amounts are converted to minor units here and nowhere else.
package txbuilder

import (
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/assets"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/tx"
	"github.com/shopspring/decimal"
)

// RestakeFeeReserve is kept back from each claimed reward when restaking,
// in minor units, so the delegate tx can still pay for gas.
const RestakeFeeReserve int64 = 10000

// IBCTimeout is added to the current time for MsgTransfer timeouts.
const IBCTimeout = time.Minute

// Exponents resolves the decimal exponent of a denom.
type Exponents interface {
	Exponent(denom string) int32
}

func minorCoin(display, denom string, exp Exponents) tx.Coin {
	return tx.Coin{Denom: denom, Amount: assets.MinorOrZero(display, exp.Exponent(denom))}
}

// Claim builds one reward withdrawal per validator.
func Claim(delegator string, validators []string) []tx.Msg {
	msgs := make([]tx.Msg, 0, len(validators))
	for _, v := range validators {
		msgs = append(msgs, tx.MsgWithdrawDelegatorReward{
			DelegatorAddress: delegator,
			ValidatorAddress: v,
		})
	}
	return msgs
}

// Restake builds one delegate message per delegation/balance pair with
// amount = balance - RestakeFeeReserve, floored at zero. Balances are minor
// units and may carry a fractional part, which is dropped.
func Restake(pairs []models.DelegationResponse) []tx.Msg {
	reserve := decimal.NewFromInt(RestakeFeeReserve)
	msgs := make([]tx.Msg, 0, len(pairs))
	for _, p := range pairs {
		amount := decimal.Zero
		if d, err := decimal.NewFromString(p.Balance.Amount); err == nil {
			amount = d.Truncate(0).Sub(reserve)
		}
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		msgs = append(msgs, tx.MsgDelegate{
			DelegatorAddress: p.Delegation.DelegatorAddress,
			ValidatorAddress: p.Delegation.ValidatorAddress,
			Amount:           tx.Coin{Denom: p.Balance.Denom, Amount: amount.String()},
		})
	}
	return msgs
}

// Stake delegates a display amount of denom to validator.
func Stake(delegator, validator, amount, denom string, exp Exponents) []tx.Msg {
	return []tx.Msg{tx.MsgDelegate{
		DelegatorAddress: delegator,
		ValidatorAddress: validator,
		Amount:           minorCoin(amount, denom, exp),
	}}
}

// Unstake undelegates a display amount of denom from validator.
func Unstake(delegator, validator, amount, denom string, exp Exponents) []tx.Msg {
	return []tx.Msg{tx.MsgUndelegate{
		DelegatorAddress: delegator,
		ValidatorAddress: validator,
		Amount:           minorCoin(amount, denom, exp),
	}}
}

// UnstakeAll undelegates the full balance of every delegation.
func UnstakeAll(delegations []models.DelegationResponse) []tx.Msg {
	msgs := make([]tx.Msg, 0, len(delegations))
	for _, d := range delegations {
		msgs = append(msgs, tx.MsgUndelegate{
			DelegatorAddress: d.Delegation.DelegatorAddress,
			ValidatorAddress: d.Delegation.ValidatorAddress,
			Amount:           tx.Coin{Denom: d.Balance.Denom, Amount: d.Balance.Amount},
		})
	}
	return msgs
}

// Send builds a bank transfer of a display amount.
func Send(from string, send models.SendObject, exp Exponents) []tx.Msg {
	return []tx.Msg{tx.MsgSend{
		FromAddress: from,
		ToAddress:   send.Recipient,
		Amount:      []tx.Coin{minorCoin(send.Amount, send.Denom, exp)},
	}}
}

// MultiSend builds one bank transfer per recipient, all in denom. The
// recipients' own Denom fields are ignored.
func MultiSend(from string, recipients []models.SendObject, denom string, exp Exponents) []tx.Msg {
	msgs := make([]tx.Msg, 0, len(recipients))
	for _, r := range recipients {
		msgs = append(msgs, tx.MsgSend{
			FromAddress: from,
			ToAddress:   r.Recipient,
			Amount:      []tx.Coin{minorCoin(r.Amount, denom, exp)},
		})
	}
	return msgs
}

// Swap builds a market swap of a display amount.
func Swap(trader string, swap models.SwapObject, exp Exponents) []tx.Msg {
	return MultiSwap(trader, []models.SwapObject{swap}, exp)
}

func MultiSwap(trader string, swaps []models.SwapObject, exp Exponents) []tx.Msg {
	msgs := make([]tx.Msg, 0, len(swaps))
	for _, s := range swaps {
		msgs = append(msgs, tx.MsgSwap{
			Trader:    trader,
			OfferCoin: minorCoin(s.Send.Amount, s.Send.Denom, exp),
			AskDenom:  s.TargetDenom,
		})
	}
	return msgs
}

// IBCTransfer builds an ICS-20 transfer over route that times out one
// minute after now.
func IBCTransfer(sender string, route models.Route, send models.SendObject, exp Exponents, now time.Time) []tx.Msg {
	return []tx.Msg{tx.MsgTransfer{
		SourcePort:       route.SourcePort,
		SourceChannel:    route.SourceChannel,
		Token:            minorCoin(send.Amount, send.Denom, exp),
		Sender:           sender,
		Receiver:         send.Recipient,
		TimeoutTimestamp: uint64(now.Add(IBCTimeout).UnixNano()),
	}}
}
