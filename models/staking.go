package models

// Coin is an amount of a denom, amount kept as a decimal string.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type Delegation struct {
	DelegatorAddress string `json:"delegator_address"`
	ValidatorAddress string `json:"validator_address"`
	Shares           string `json:"shares"`
}

type DelegationResponse struct {
	Delegation Delegation `json:"delegation"`
	Balance    Coin       `json:"balance"`
}

// BondStatus mirrors the staking module enum.
type BondStatus string

const (
	BondStatusUnspecified BondStatus = "BOND_STATUS_UNSPECIFIED"
	BondStatusUnbonded    BondStatus = "BOND_STATUS_UNBONDED"
	BondStatusUnbonding   BondStatus = "BOND_STATUS_UNBONDING"
	BondStatusBonded      BondStatus = "BOND_STATUS_BONDED"
)

type ValidatorDescription struct {
	Moniker string `json:"moniker"`
	Website string `json:"website"`
	Details string `json:"details"`
}

type ValidatorInfo struct {
	OperatorAddress string               `json:"operator_address"`
	Jailed          bool                 `json:"jailed"`
	Status          BondStatus           `json:"status"`
	CommissionRate  string               `json:"commission_rate"`
	Description     ValidatorDescription `json:"description"`
}

// ValidatorReward is the pending reward list for one validator.
type ValidatorReward struct {
	ValidatorAddress string `json:"validator_address"`
	Reward           []Coin `json:"reward"`
}

// CombinedStakingInfo joins delegation, validator and rewards for one
// validator operator address.
type CombinedStakingInfo struct {
	ValidatorAddress string             `json:"validator_address"`
	Delegation       DelegationResponse `json:"delegation"`
	Validator        ValidatorInfo      `json:"validator"`
	Rewards          []Coin             `json:"rewards"`
}
