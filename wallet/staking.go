package wallet

import (
	"context"
	"fmt"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
)

// FetchStakingData returns the wallet's delegations joined with their
// validators and rewards.
func (e *Engine) FetchStakingData(ctx context.Context) ([]models.CombinedStakingInfo, error) {
	return e.refresh(ctx, func(ctx context.Context) ([]models.CombinedStakingInfo, error) {
		return e.staking.ByDelegation(ctx, e.address)
	})
}

// FetchValidatorData returns every validator with the wallet's delegation
// and rewards joined in, zero when absent.
func (e *Engine) FetchValidatorData(ctx context.Context) ([]models.CombinedStakingInfo, error) {
	return e.refresh(ctx, func(ctx context.Context) ([]models.CombinedStakingInfo, error) {
		return e.staking.ByValidator(ctx, e.address)
	})
}

func (e *Engine) refresh(ctx context.Context, fetch func(context.Context) ([]models.CombinedStakingInfo, error)) ([]models.CombinedStakingInfo, error) {
	if e.staking == nil {
		return nil, fmt.Errorf("staking queries are not configured")
	}
	infos, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	e.view.Store(&infos)
	return infos, nil
}

// StakingView is the result of the last successful staking refresh. It is
// replaced as a whole, never updated in place.
func (e *Engine) StakingView() []models.CombinedStakingInfo {
	if v := e.view.Load(); v != nil {
		return *v
	}
	return nil
}
