package models

// TxPayload is the structured part of a transaction outcome.
type TxPayload struct {
	Code      uint32 `json:"code"`
	TxHash    string `json:"tx_hash,omitempty"`
	GasUsed   uint64 `json:"gas_used,omitempty"`
	GasWanted uint64 `json:"gas_wanted,omitempty"`
	Height    int64  `json:"height,omitempty"`
	// Fee is only filled for fee previews, formatted as amount+denom.
	Fee string `json:"fee,omitempty"`
}

// TransactionResult is what every wallet entry point returns.
// Success requires a payload with code 0.
type TransactionResult struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Payload *TxPayload `json:"payload,omitempty"`
}

// NewTransactionResult derives Success from the payload so the two can never disagree.
func NewTransactionResult(message string, payload *TxPayload) TransactionResult {
	return TransactionResult{
		Success: payload != nil && payload.Code == 0,
		Message: message,
		Payload: payload,
	}
}

// Failure builds a failed result without payload.
func Failure(message string) TransactionResult {
	return TransactionResult{Success: false, Message: message}
}

// SendObject is one transfer leg. Amount is in minor units once it
// leaves the transaction builders.
type SendObject struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Denom     string `json:"denom"`
}

// SwapObject is a market swap from Send.Denom into TargetDenom.
type SwapObject struct {
	Send        SendObject `json:"send"`
	TargetDenom string     `json:"target_denom"`
}

// NetworkLevel selects mainnet or testnet registries.
type NetworkLevel string

const (
	Mainnet NetworkLevel = "main"
	Testnet NetworkLevel = "test"
)

// IBCObject is a cross-chain transfer request.
type IBCObject struct {
	Sender           string       `json:"sender"`
	Send             SendObject   `json:"send"`
	SourceChain      string       `json:"source_chain"`
	DestinationChain string       `json:"destination_chain"`
	Level            NetworkLevel `json:"level"`
}

// Route is a validated IBC path: a live OPEN channel on the source chain
// that matches a registry-declared channel pair.
type Route struct {
	SourceChain         string `json:"source_chain"`
	DestinationChain    string `json:"destination_chain"`
	SourcePort          string `json:"source_port"`
	SourceChannel       string `json:"source_channel"`
	CounterpartyChannel string `json:"counterparty_channel"`
	CounterpartyPort    string `json:"counterparty_port"`
}

// ChainPrefixEntry maps a canonical chain name to its bech32 prefixes.
type ChainPrefixEntry struct {
	Name          string `json:"name" toml:"name"`
	MainnetPrefix string `json:"mainnet_prefix" toml:"mainnet_prefix"`
	TestnetPrefix string `json:"testnet_prefix" toml:"testnet_prefix"`
}
