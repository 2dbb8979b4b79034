package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/assets"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/router"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/txbuilder"
)

func (e *Engine) validatorPrefix() string {
	return e.prefix + "valoper"
}

// checkAmount requires amount to be at least one minor unit of denom with no
// more decimals than its exponent.
func (e *Engine) checkAmount(amount, denom string) error {
	_, err := assets.ToPositiveMinor(amount, e.assets.Exponent(denom))
	return err
}

func (e *Engine) checkSend(s models.SendObject) error {
	if s.Denom == "" {
		return fmt.Errorf("denom is required")
	}
	if err := e.checkAmount(s.Amount, s.Denom); err != nil {
		return err
	}
	if err := router.ValidateAddress(s.Recipient, e.prefix); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	return nil
}

func (e *Engine) Send(ctx context.Context, send models.SendObject, simulateOnly bool) models.TransactionResult {
	if err := e.checkSend(send); err != nil {
		return rejectf("%v", err)
	}
	return e.run(ctx, "send", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.Send(e.address, send, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(send.Denom), simulateOnly)
	})
}

// MultiSend pays every recipient in one transaction. All legs must use the
// same denom.
func (e *Engine) MultiSend(ctx context.Context, recipients []models.SendObject, simulateOnly bool) models.TransactionResult {
	if len(recipients) == 0 {
		return rejectf("no recipients")
	}
	denom := recipients[0].Denom
	for _, r := range recipients {
		if r.Denom != denom {
			return rejectf("multi-send supports a single currency, got %s and %s", denom, r.Denom)
		}
		if err := e.checkSend(r); err != nil {
			return rejectf("%v", err)
		}
	}
	return e.run(ctx, "multi_send", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.MultiSend(e.address, recipients, denom, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(denom), simulateOnly)
	})
}

func (e *Engine) checkStake(validator, amount, denom string) error {
	if err := router.ValidateAddress(validator, e.validatorPrefix()); err != nil {
		return fmt.Errorf("invalid validator: %w", err)
	}
	if denom == "" {
		return fmt.Errorf("denom is required")
	}
	return e.checkAmount(amount, denom)
}

func (e *Engine) Stake(ctx context.Context, validator, amount, denom string, simulateOnly bool) models.TransactionResult {
	if err := e.checkStake(validator, amount, denom); err != nil {
		return rejectf("%v", err)
	}
	return e.run(ctx, "stake", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.Stake(e.address, validator, amount, denom, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(denom), simulateOnly)
	})
}

func (e *Engine) Unstake(ctx context.Context, validator, amount, denom string, simulateOnly bool) models.TransactionResult {
	if err := e.checkStake(validator, amount, denom); err != nil {
		return rejectf("%v", err)
	}
	return e.run(ctx, "unstake", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.Unstake(e.address, validator, amount, denom, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(denom), simulateOnly)
	})
}

// ClaimRewards withdraws rewards from every listed validator in one tx.
func (e *Engine) ClaimRewards(ctx context.Context, validators []string, simulateOnly bool) models.TransactionResult {
	if len(validators) == 0 {
		return rejectf("no validators to claim from")
	}
	for _, v := range validators {
		if err := router.ValidateAddress(v, e.validatorPrefix()); err != nil {
			return rejectf("invalid validator: %v", err)
		}
	}
	return e.run(ctx, "claim_rewards", simulateOnly, func(ctx context.Context) models.TransactionResult {
		return e.submit(ctx, txbuilder.Claim(e.address, validators), e.assets.DefaultFeeDenom(), simulateOnly)
	})
}

// UnstakeAll undelegates the full balance of every given delegation.
// Delegations with a zero balance are skipped.
func (e *Engine) UnstakeAll(ctx context.Context, delegations []models.DelegationResponse, simulateOnly bool) models.TransactionResult {
	var active []models.DelegationResponse
	for _, d := range delegations {
		if assets.IsPositive(d.Balance.Amount) {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return rejectf("nothing to unstake")
	}
	return e.run(ctx, "unstake_all", simulateOnly, func(ctx context.Context) models.TransactionResult {
		return e.submit(ctx, txbuilder.UnstakeAll(active), e.assets.DefaultFeeDenom(), simulateOnly)
	})
}

func (e *Engine) checkSwap(s models.SwapObject) error {
	if err := e.checkAmount(s.Send.Amount, s.Send.Denom); err != nil {
		return err
	}
	if !assets.IsValidSwap(e.assets.SwapAssetOf(s.Send.Denom), e.assets.SwapAssetOf(s.TargetDenom)) {
		return fmt.Errorf("cannot swap %s to %s", s.Send.Denom, s.TargetDenom)
	}
	return nil
}

func (e *Engine) Swap(ctx context.Context, swap models.SwapObject, simulateOnly bool) models.TransactionResult {
	if err := e.checkSwap(swap); err != nil {
		return rejectf("%v", err)
	}
	return e.run(ctx, "swap", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.Swap(e.address, swap, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(swap.Send.Denom), simulateOnly)
	})
}

func (e *Engine) MultiSwap(ctx context.Context, swaps []models.SwapObject, simulateOnly bool) models.TransactionResult {
	if len(swaps) == 0 {
		return rejectf("no swaps")
	}
	for _, s := range swaps {
		if err := e.checkSwap(s); err != nil {
			return rejectf("%v", err)
		}
	}
	return e.run(ctx, "multi_swap", simulateOnly, func(ctx context.Context) models.TransactionResult {
		msgs := txbuilder.MultiSwap(e.address, swaps, e.assets)
		return e.submit(ctx, msgs, e.assets.FeeDenom(swaps[0].Send.Denom), simulateOnly)
	})
}

// SendIBC resolves a route from the wallet to the recipient's chain and
// transfers over it. Anything but a found route is a business rule failure.
func (e *Engine) SendIBC(ctx context.Context, obj models.IBCObject, simulateOnly bool) models.TransactionResult {
	send := obj.Send
	if send.Denom == "" {
		return rejectf("denom is required")
	}
	if err := e.checkAmount(send.Amount, send.Denom); err != nil {
		return rejectf("%v", err)
	}
	if obj.Sender != "" && obj.Sender != e.address {
		return rejectf("sender %s is not this wallet", obj.Sender)
	}
	if e.resolver == nil {
		return rejectf("IBC transfers are not configured")
	}
	level := obj.Level
	if level == "" {
		level = e.level
	}

	return e.run(ctx, "send_ibc", simulateOnly, func(ctx context.Context) models.TransactionResult {
		res, err := e.resolver.Resolve(ctx, e.address, send.Recipient, level)
		if err != nil {
			return failure(err)
		}
		switch res.Outcome {
		case router.RouteFound:
		case router.SameChain:
			return rejectf("recipient is on this chain, no IBC transfer required")
		default:
			return rejectf("no open IBC route: %s", res.Reason)
		}
		if obj.DestinationChain != "" && !strings.EqualFold(obj.DestinationChain, res.Route.DestinationChain) {
			return rejectf("recipient belongs to %s, not %s", res.Route.DestinationChain, obj.DestinationChain)
		}
		msgs := txbuilder.IBCTransfer(e.address, res.Route, send, e.assets, e.now())
		return e.submit(ctx, msgs, e.assets.FeeDenom(send.Denom), simulateOnly)
	})
}

// Transfer picks the action for a send: an IBC transfer when the recipient
// is on another chain, a swap when targetDenom names a different asset, a
// plain send otherwise.
func (e *Engine) Transfer(ctx context.Context, send models.SendObject, targetDenom string, simulateOnly bool) models.TransactionResult {
	prefix, err := router.Prefix(send.Recipient)
	if err != nil {
		return rejectf("invalid recipient: %v", err)
	}
	if prefix != e.prefix {
		return e.SendIBC(ctx, models.IBCObject{Sender: e.address, Send: send, Level: e.level}, simulateOnly)
	}
	if targetDenom != "" && targetDenom != send.Denom {
		if send.Recipient != e.address {
			return rejectf("swaps credit the sender, recipient must be %s", e.address)
		}
		return e.Swap(ctx, models.SwapObject{Send: send, TargetDenom: targetDenom}, simulateOnly)
	}
	return e.Send(ctx, send, simulateOnly)
}
