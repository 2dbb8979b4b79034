package wallet

import (
	"context"
	"fmt"
	"slices"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/executor"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/txbuilder"
	"github.com/shopspring/decimal"
)

// ClaimAndRestake claims the rewards of validators and delegates them back,
// less txbuilder.RestakeFeeReserve each. rewards may be nil, in which case
// they are fetched. In simulate mode the gas and fee of both steps are
// summed into one estimate.
func (e *Engine) ClaimAndRestake(ctx context.Context, validators []string, rewards []models.ValidatorReward, simulateOnly bool) models.TransactionResult {
	return e.run(ctx, "claim_and_restake", simulateOnly, func(ctx context.Context) models.TransactionResult {
		if rewards == nil {
			if e.staking == nil {
				return rejectf("staking queries are not configured")
			}
			fetched, err := e.staking.Rewards(ctx, e.address)
			if err != nil {
				return failure(err)
			}
			rewards = fetched
		}
		if len(validators) > 0 {
			rewards = slices.DeleteFunc(slices.Clone(rewards), func(r models.ValidatorReward) bool {
				return !slices.Contains(validators, r.ValidatorAddress)
			})
		}

		bondDenom := e.assets.DefaultFeeDenom()
		var claimFrom []string
		var pairs []models.DelegationResponse
		for _, r := range rewards {
			amount, err := rewardAmount(r.Reward, bondDenom)
			if err != nil {
				log.Warn().Err(err).Str("validator", r.ValidatorAddress).Str("denom", bondDenom).Msg("Skipping validator with unreadable reward")
				continue
			}
			if !amount.IsPositive() {
				continue
			}
			claimFrom = append(claimFrom, r.ValidatorAddress)
			if amount.Truncate(0).GreaterThan(decimal.NewFromInt(txbuilder.RestakeFeeReserve)) {
				pairs = append(pairs, models.DelegationResponse{
					Delegation: models.Delegation{DelegatorAddress: e.address, ValidatorAddress: r.ValidatorAddress},
					Balance:    models.Coin{Denom: bondDenom, Amount: amount.String()},
				})
			}
		}
		if len(claimFrom) == 0 {
			return models.Failure(msgNoRewards)
		}

		claim, err := e.write(ctx, txbuilder.Claim(e.address, claimFrom), bondDenom, simulateOnly)
		if err != nil {
			return failure(err)
		}
		claimResult := toResult(claim)
		if !claimResult.Success {
			return claimResult
		}
		if len(pairs) == 0 {
			claimResult.Message = fmt.Sprintf("Rewards claimed, none above the %d %s restake reserve", txbuilder.RestakeFeeReserve, bondDenom)
			return claimResult
		}

		restake, err := e.write(ctx, txbuilder.Restake(pairs), bondDenom, simulateOnly)
		if err != nil {
			res := failure(err)
			res.Message = "Rewards claimed but restake failed: " + res.Message
			return res
		}
		if simulateOnly {
			return combineEstimates(claim, restake)
		}
		return toResult(restake)
	})
}

func rewardAmount(coins []models.Coin, denom string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range coins {
		if c.Denom != denom {
			continue
		}
		d, err := decimal.NewFromString(c.Amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("reward amount %q: %w", c.Amount, err)
		}
		total = total.Add(d)
	}
	return total, nil
}

func combineEstimates(claim, restake executor.Result) models.TransactionResult {
	a, b := claim.Outcome, restake.Outcome
	fee := decimal.Zero
	for _, amt := range []string{a.Fee.Amount, b.Fee.Amount} {
		if d, err := decimal.NewFromString(amt); err == nil {
			fee = fee.Add(d)
		}
	}
	return models.NewTransactionResult(msgFeeEstimate, &models.TxPayload{
		GasUsed:   a.GasUsed + b.GasUsed,
		GasWanted: a.GasWanted + b.GasWanted,
		Fee:       fee.String() + a.Fee.Denom,
	})
}
