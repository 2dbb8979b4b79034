// Package staking joins delegations, validators and pending rewards into one
// record per validator.
package staking

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/query"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	pageLimit = 200
	// per-delegation lookups in flight at once
	fanOut = 4
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "staking").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

// Reader performs REST reads, normally through the executor.
type Reader interface {
	Read(ctx context.Context, path string) ([]byte, error)
}

type Aggregator struct {
	reader Reader
	// BondDenom is used for synthetic zero delegations.
	BondDenom string
}

func NewAggregator(reader Reader, bondDenom string) *Aggregator {
	return &Aggregator{reader: reader, BondDenom: bondDenom}
}

func (a *Aggregator) get(ctx context.Context, path string, v any) error {
	body, err := a.reader.Read(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// paged walks pagination.key until the node stops returning one.
func paged(ctx context.Context, base string, fetch func(path string) (query.Pagination, error)) error {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	key := ""
	for {
		path := fmt.Sprintf("%s%spagination.limit=%d", base, sep, pageLimit)
		if key != "" {
			path += "&pagination.key=" + url.QueryEscape(key)
		}
		p, err := fetch(path)
		if err != nil {
			return err
		}
		if p.NextKey == "" || p.NextKey == key {
			return nil
		}
		key = p.NextKey
	}
}

func (a *Aggregator) Delegations(ctx context.Context, delegator string) ([]models.DelegationResponse, error) {
	var out []models.DelegationResponse
	err := paged(ctx, fmt.Sprintf(query.DelegationsPath, delegator), func(path string) (query.Pagination, error) {
		var page query.DelegationsResponse
		if err := a.get(ctx, path, &page); err != nil {
			return query.Pagination{}, err
		}
		for _, d := range page.DelegationResponses {
			out = append(out, models.DelegationResponse{
				Delegation: models.Delegation{
					DelegatorAddress: d.Delegation.DelegatorAddress,
					ValidatorAddress: d.Delegation.ValidatorAddress,
					Shares:           d.Delegation.Shares,
				},
				Balance: models.Coin{Denom: d.Balance.Denom, Amount: d.Balance.Amount},
			})
		}
		return page.Pagination, nil
	})
	return out, err
}

func toValidator(v query.RestValidator) models.ValidatorInfo {
	return models.ValidatorInfo{
		OperatorAddress: v.OperatorAddress,
		Jailed:          v.Jailed,
		Status:          models.BondStatus(v.Status),
		CommissionRate:  v.Commission.CommissionRates.Rate,
		Description: models.ValidatorDescription{
			Moniker: v.Description.Moniker,
			Website: v.Description.Website,
			Details: v.Description.Details,
		},
	}
}

func (a *Aggregator) Validators(ctx context.Context) ([]models.ValidatorInfo, error) {
	var out []models.ValidatorInfo
	err := paged(ctx, query.ValidatorsPath, func(path string) (query.Pagination, error) {
		var page query.ValidatorsResponse
		if err := a.get(ctx, path, &page); err != nil {
			return query.Pagination{}, err
		}
		for _, v := range page.Validators {
			out = append(out, toValidator(v))
		}
		return page.Pagination, nil
	})
	return out, err
}

func (a *Aggregator) Validator(ctx context.Context, operator string) (models.ValidatorInfo, error) {
	var res query.ValidatorResponse
	if err := a.get(ctx, fmt.Sprintf(query.ValidatorPath, operator), &res); err != nil {
		return models.ValidatorInfo{}, err
	}
	return toValidator(res.Validator), nil
}

func toCoins(in []query.RestCoin) []models.Coin {
	out := make([]models.Coin, 0, len(in))
	for _, c := range in {
		out = append(out, models.Coin{Denom: c.Denom, Amount: c.Amount})
	}
	return out
}

// Rewards returns the pending rewards of delegator for every validator.
func (a *Aggregator) Rewards(ctx context.Context, delegator string) ([]models.ValidatorReward, error) {
	var res query.DelegatorRewardsResponse
	if err := a.get(ctx, fmt.Sprintf(query.DelegatorRewardsPath, delegator), &res); err != nil {
		return nil, err
	}
	out := make([]models.ValidatorReward, 0, len(res.Rewards))
	for _, r := range res.Rewards {
		out = append(out, models.ValidatorReward{ValidatorAddress: r.ValidatorAddress, Reward: toCoins(r.Reward)})
	}
	return out, nil
}

// ValidatorRewards returns the pending rewards of one delegation.
func (a *Aggregator) ValidatorRewards(ctx context.Context, delegator, validator string) ([]models.Coin, error) {
	var res query.DelegationRewardsResponse
	if err := a.get(ctx, fmt.Sprintf(query.DelegationRewardsPath, delegator, validator), &res); err != nil {
		return nil, err
	}
	return toCoins(res.Rewards), nil
}

// ByDelegation starts from the delegator's delegations and looks up the
// validator and rewards of each one. A failed reward lookup yields an empty
// reward list.
func (a *Aggregator) ByDelegation(ctx context.Context, delegator string) ([]models.CombinedStakingInfo, error) {
	delegations, err := a.Delegations(ctx, delegator)
	if err != nil {
		return nil, fmt.Errorf("fetch delegations: %w", err)
	}

	out := make([]models.CombinedStakingInfo, len(delegations))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fanOut)
	for i, d := range delegations {
		g.Go(func() error {
			operator := d.Delegation.ValidatorAddress
			v, err := a.Validator(gctx, operator)
			if err != nil {
				return fmt.Errorf("fetch validator %s: %w", operator, err)
			}
			rewards, err := a.ValidatorRewards(gctx, delegator, operator)
			if err != nil {
				log.Warn().Err(err).Str("validator", operator).Msg("No reward data for delegation")
				rewards = []models.Coin{}
			}
			out[i] = models.CombinedStakingInfo{
				ValidatorAddress: operator,
				Delegation:       d,
				Validator:        v,
				Rewards:          rewards,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ByValidator fetches validators, delegations and rewards concurrently and
// left-joins the latter two onto every validator. Validators without a
// delegation get a zero delegation, ones without rewards an empty list.
func (a *Aggregator) ByValidator(ctx context.Context, delegator string) ([]models.CombinedStakingInfo, error) {
	var (
		validators  []models.ValidatorInfo
		delegations []models.DelegationResponse
		rewards     []models.ValidatorReward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		validators, err = a.Validators(gctx)
		if err != nil {
			return fmt.Errorf("fetch validators: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		delegations, err = a.Delegations(gctx, delegator)
		if err != nil {
			return fmt.Errorf("fetch delegations: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rewards, err = a.Rewards(gctx, delegator)
		if err != nil {
			return fmt.Errorf("fetch rewards: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return Join(delegator, a.BondDenom, validators, delegations, rewards), nil
}

// Join left-joins delegations and rewards onto validators.
func Join(delegator, bondDenom string, validators []models.ValidatorInfo, delegations []models.DelegationResponse, rewards []models.ValidatorReward) []models.CombinedStakingInfo {
	byValidator := make(map[string]models.DelegationResponse, len(delegations))
	for _, d := range delegations {
		byValidator[d.Delegation.ValidatorAddress] = d
	}
	rewardsOf := make(map[string][]models.Coin, len(rewards))
	for _, r := range rewards {
		rewardsOf[r.ValidatorAddress] = r.Reward
	}

	out := make([]models.CombinedStakingInfo, 0, len(validators))
	for _, v := range validators {
		d, ok := byValidator[v.OperatorAddress]
		if !ok {
			d = models.DelegationResponse{
				Delegation: models.Delegation{
					DelegatorAddress: delegator,
					ValidatorAddress: v.OperatorAddress,
					Shares:           "0",
				},
				Balance: models.Coin{Denom: bondDenom, Amount: "0"},
			}
		}
		r, ok := rewardsOf[v.OperatorAddress]
		if !ok || r == nil {
			r = []models.Coin{}
		}
		out = append(out, models.CombinedStakingInfo{
			ValidatorAddress: v.OperatorAddress,
			Delegation:       d,
			Validator:        v,
			Rewards:          r,
		})
	}
	return out
}
