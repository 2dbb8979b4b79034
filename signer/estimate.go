package signer

import (
	"context"
	"fmt"

	engerr "github.com/Cogwheel-Validator/spectra-wallet-engine/errors"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/telemetry"
	"github.com/Cogwheel-Validator/spectra-wallet-engine/tx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// GasAdjustment is applied to simulated gas before it becomes the limit.
var GasAdjustment = decimal.RequireFromString("1.1")

// SigningClient is the part of Client used by EstimateAndSend.
type SigningClient interface {
	Address() string
	Simulate(ctx context.Context, msgs []tx.Msg) (tx.GasInfo, error)
	SignAndBroadcast(ctx context.Context, msgs []tx.Msg, fee tx.Fee) (Receipt, error)
}

// GasPricer returns the per-gas price of a fee-eligible denom.
type GasPricer interface {
	GasPrice(denom string) (decimal.Decimal, bool)
}

// Outcome of EstimateAndSend. A simulated Receipt only carries gas figures.
type Outcome struct {
	Receipt
	Simulated bool
	GasLimit  uint64
	Fee       tx.Coin
}

// BufferedGas is ceil(gasUsed * GasAdjustment).
func BufferedGas(gasUsed uint64) uint64 {
	return decimal.NewFromUint64(gasUsed).Mul(GasAdjustment).Ceil().BigInt().Uint64()
}

// FeeFor is ceil(gasLimit * price) in denom.
func FeeFor(gasLimit uint64, price decimal.Decimal, denom string) tx.Coin {
	amount := decimal.NewFromUint64(gasLimit).Mul(price).Ceil()
	return tx.Coin{Denom: denom, Amount: amount.String()}
}

// EstimateAndSend simulates msgs, prices the buffered gas in feeDenom and,
// unless simulateOnly, signs and broadcasts them. A simulation never
// broadcasts.
func EstimateAndSend(ctx context.Context, client SigningClient, prices GasPricer, from string, msgs []tx.Msg, feeDenom string, simulateOnly bool) (Outcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "signer.EstimateAndSend")
	defer span.End()
	span.SetAttributes(
		attribute.String("wallet.from", from),
		attribute.Int("wallet.messages", len(msgs)),
		attribute.String("wallet.fee_denom", feeDenom),
		attribute.Bool("wallet.simulate_only", simulateOnly),
	)

	out, err := estimateAndSend(ctx, client, prices, from, msgs, feeDenom, simulateOnly)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		telemetry.Broadcasts.WithLabelValues(outcomeLabel(err)).Inc()
		return out, err
	}
	span.SetAttributes(attribute.Int64("wallet.gas_limit", int64(out.GasLimit)))
	if out.Simulated {
		telemetry.Broadcasts.WithLabelValues("simulated").Inc()
	} else {
		span.SetAttributes(attribute.String("wallet.tx_hash", out.TxHash))
		telemetry.Broadcasts.WithLabelValues("committed").Inc()
	}
	return out, nil
}

func estimateAndSend(ctx context.Context, client SigningClient, prices GasPricer, from string, msgs []tx.Msg, feeDenom string, simulateOnly bool) (Outcome, error) {
	if len(msgs) == 0 {
		return Outcome{}, engerr.New(engerr.CodeBusinessRule, "no messages to send")
	}
	if client.Address() != from {
		return Outcome{}, engerr.New(engerr.CodeCredential, fmt.Sprintf("signer %s cannot sign for %s", client.Address(), from))
	}
	price, ok := prices.GasPrice(feeDenom)
	if !ok {
		return Outcome{}, engerr.New(engerr.CodeBusinessRule, fmt.Sprintf("%s cannot pay fees", feeDenom))
	}

	gas, err := client.Simulate(ctx, msgs)
	if err != nil {
		return Outcome{}, err
	}
	telemetry.RecordSimulatedGas(ctx, gas.GasUsed)

	limit := BufferedGas(gas.GasUsed)
	fee := FeeFor(limit, price, feeDenom)
	log.Debug().
		Str("from", from).
		Uint64("gas_used", gas.GasUsed).
		Uint64("gas_limit", limit).
		Str("fee", fee.Amount+fee.Denom).
		Msg("Simulated transaction")

	if simulateOnly {
		return Outcome{
			Receipt:   Receipt{GasWanted: limit, GasUsed: gas.GasUsed},
			Simulated: true,
			GasLimit:  limit,
			Fee:       fee,
		}, nil
	}

	receipt, err := client.SignAndBroadcast(ctx, msgs, tx.Fee{Amount: []tx.Coin{fee}, GasLimit: limit})
	return Outcome{Receipt: receipt, GasLimit: limit, Fee: fee}, err
}

func outcomeLabel(err error) string {
	switch engerr.CodeOf(err) {
	case engerr.CodeChainRejection:
		return "rejected"
	case engerr.CodeIndexerDegraded:
		return "unconfirmed"
	default:
		return "failed"
	}
}
