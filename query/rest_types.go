package query

// REST paths used by the engine.
const (
	DelegationsPath       = "/cosmos/staking/v1beta1/delegations/%s"
	ValidatorsPath        = "/cosmos/staking/v1beta1/validators"
	ValidatorPath         = "/cosmos/staking/v1beta1/validators/%s"
	DelegatorRewardsPath  = "/cosmos/distribution/v1beta1/delegators/%s/rewards"
	DelegationRewardsPath = "/cosmos/distribution/v1beta1/delegators/%s/rewards/%s"
	IbcChannelsPath       = "/ibc/core/channel/v1/channels"
)

type Pagination struct {
	NextKey string `json:"next_key"`
	Total   string `json:"total"`
}

type RestCoin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

type DelegationsResponse struct {
	DelegationResponses []struct {
		Delegation struct {
			DelegatorAddress string `json:"delegator_address"`
			ValidatorAddress string `json:"validator_address"`
			Shares           string `json:"shares"`
		} `json:"delegation"`
		Balance RestCoin `json:"balance"`
	} `json:"delegation_responses"`
	Pagination Pagination `json:"pagination"`
}

type RestValidator struct {
	OperatorAddress string `json:"operator_address"`
	Jailed          bool   `json:"jailed"`
	Status          string `json:"status"`
	Description     struct {
		Moniker string `json:"moniker"`
		Website string `json:"website"`
		Details string `json:"details"`
	} `json:"description"`
	Commission struct {
		CommissionRates struct {
			Rate string `json:"rate"`
		} `json:"commission_rates"`
	} `json:"commission"`
}

type ValidatorsResponse struct {
	Validators []RestValidator `json:"validators"`
	Pagination Pagination      `json:"pagination"`
}

type ValidatorResponse struct {
	Validator RestValidator `json:"validator"`
}

type DelegatorRewardsResponse struct {
	Rewards []struct {
		ValidatorAddress string     `json:"validator_address"`
		Reward           []RestCoin `json:"reward"`
	} `json:"rewards"`
	Total []RestCoin `json:"total"`
}

type DelegationRewardsResponse struct {
	Rewards []RestCoin `json:"rewards"`
}

type IbcChannel struct {
	State        string `json:"state"`
	Ordering     string `json:"ordering"`
	Counterparty struct {
		PortID    string `json:"port_id"`
		ChannelID string `json:"channel_id"`
	} `json:"counterparty"`
	ConnectionHops []string `json:"connection_hops"`
	Version        string   `json:"version"`
	PortID         string   `json:"port_id"`
	ChannelID      string   `json:"channel_id"`
}

type IbcChannelsResponse struct {
	Channels   []IbcChannel `json:"channels"`
	Pagination Pagination   `json:"pagination"`
}

const ChannelStateOpen = "STATE_OPEN"
