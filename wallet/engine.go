// Package wallet exposes one entry point per wallet action. Entry points
// validate business rules before any network call, never return an error
// and always answer with a models.TransactionResult.
package wallet

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/Cogwheel-Validator/spectra-wallet-engine/assets"
	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/executor"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/models"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/router"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/tx"
	"github.com/rs/zerolog"
)

var log zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	log = zerolog.New(output).With().Str("component", "wallet").Timestamp().Logger()
}

func SetLogger(l zerolog.Logger) {
	log = l
}

const (
	msgSuccess     = "Transaction successful"
	msgFeeEstimate = "Fee estimate"
	msgUnconfirmed = "Transaction submitted, confirmation unavailable from this node"
	msgNoRewards   = "No rewards to claim"
)

type Executor interface {
	Execute(ctx context.Context, req executor.Request) (executor.Result, error)
}

type Resolver interface {
	Resolve(ctx context.Context, sender, recipient string, level models.NetworkLevel) (router.Resolution, error)
}

type StakingSource interface {
	ByDelegation(ctx context.Context, delegator string) ([]models.CombinedStakingInfo, error)
	ByValidator(ctx context.Context, delegator string) ([]models.CombinedStakingInfo, error)
	Rewards(ctx context.Context, delegator string) ([]models.ValidatorReward, error)
}

type Config struct {
	// Address is the wallet's own account, the sender of every write.
	Address  string
	Level    models.NetworkLevel
	Executor Executor
	Assets   *assets.Registry
	Resolver Resolver
	Staking  StakingSource
	Notifier Notifier
	Now      func() time.Time
}

type Engine struct {
	address  string
	prefix   string
	level    models.NetworkLevel
	exec     Executor
	assets   *assets.Registry
	resolver Resolver
	staking  StakingSource
	notifier Notifier
	now      func() time.Time

	view atomic.Pointer[[]models.CombinedStakingInfo]
}

func New(cfg Config) (*Engine, error) {
	prefix, err := router.Prefix(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("wallet address: %w", err)
	}
	if cfg.Executor == nil || cfg.Assets == nil {
		return nil, fmt.Errorf("executor and asset registry are required")
	}
	e := &Engine{
		address:  cfg.Address,
		prefix:   prefix,
		level:    cfg.Level,
		exec:     cfg.Executor,
		assets:   cfg.Assets,
		resolver: cfg.Resolver,
		staking:  cfg.Staking,
		notifier: cfg.Notifier,
		now:      cfg.Now,
	}
	if e.notifier == nil {
		e.notifier = LogSink{Logger: log}
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e, nil
}

func (e *Engine) Address() string {
	return e.address
}

// AddressOn returns the wallet's address under another chain's prefix. It is
// only a valid receiving address on chains sharing the wallet's coin type.
func (e *Engine) AddressOn(prefix string) (string, error) {
	if prefix == "" {
		return "", fmt.Errorf("prefix is required")
	}
	return router.ConvertBech32Address(e.address, prefix)
}

// run executes fn for a write. Broadcasts are detached from ctx: once the
// caller gives up, fn still completes and its result goes to the notifier.
// Previews stay bound to ctx.
func (e *Engine) run(ctx context.Context, action string, simulateOnly bool, fn func(ctx context.Context) models.TransactionResult) models.TransactionResult {
	if simulateOnly {
		return e.guard(ctx, action, fn)
	}

	done := make(chan models.TransactionResult, 1)
	go func() {
		done <- e.guard(context.WithoutCancel(ctx), action, fn)
	}()

	select {
	case res := <-done:
		e.notify(action, res, false)
		return res
	case <-ctx.Done():
		go func() {
			e.notify(action, <-done, true)
		}()
		return models.Failure(fmt.Sprintf("%s abandoned before completion, the outcome will be delivered as a notification", action))
	}
}

func (e *Engine) guard(ctx context.Context, action string, fn func(ctx context.Context) models.TransactionResult) (res models.TransactionResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Str("action", action).Msg("Wallet action panicked")
			res = models.Failure(fmt.Sprintf("%s failed: internal error", action))
		}
	}()
	return fn(ctx)
}

func (e *Engine) notify(action string, res models.TransactionResult, abandoned bool) {
	e.notifier.Notify(Notification{Action: action, Result: res, Abandoned: abandoned, At: e.now().UTC()})
}

func (e *Engine) write(ctx context.Context, msgs []tx.Msg, feeDenom string, simulateOnly bool) (executor.Result, error) {
	return e.exec.Execute(ctx, executor.WriteRequest{
		From:         e.address,
		Msgs:         msgs,
		FeeDenom:     feeDenom,
		SimulateOnly: simulateOnly,
	})
}

// submit runs one write and converts its outcome.
func (e *Engine) submit(ctx context.Context, msgs []tx.Msg, feeDenom string, simulateOnly bool) models.TransactionResult {
	res, err := e.write(ctx, msgs, feeDenom, simulateOnly)
	if err != nil {
		return failure(err)
	}
	return toResult(res)
}

func toResult(res executor.Result) models.TransactionResult {
	o := res.Outcome
	if res.Degraded {
		return models.NewTransactionResult(msgUnconfirmed, &models.TxPayload{TxHash: o.TxHash})
	}
	payload := &models.TxPayload{
		Code:      o.Code,
		TxHash:    o.TxHash,
		GasUsed:   o.GasUsed,
		GasWanted: o.GasWanted,
		Height:    o.Height,
	}
	if o.Simulated {
		payload.Fee = o.Fee.Amount + o.Fee.Denom
		return models.NewTransactionResult(msgFeeEstimate, payload)
	}
	return models.NewTransactionResult(msgSuccess, payload)
}

func failure(err error) models.TransactionResult {
	e, ok := engerr.As(err)
	if !ok {
		return models.Failure(err.Error())
	}
	if e.Code == engerr.CodeChainRejection {
		return models.NewTransactionResult(e.Message, &models.TxPayload{Code: e.TxCode, TxHash: e.TxHash})
	}
	return models.Failure(e.Error())
}

func rejectf(format string, args ...any) models.TransactionResult {
	return failure(engerr.New(engerr.CodeBusinessRule, fmt.Sprintf(format, args...)))
}
