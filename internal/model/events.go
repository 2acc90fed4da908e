package model

// Event names emitted by the engine.
const (
	EventTokenRegistered = "TokenRegistered"
	EventPairCreated     = "PairCreated"
	EventSwap            = "Swap"
	EventLiquidityAdded  = "LiquidityAdded"
	EventRewardPaid      = "RewardPaid"
)

// TokenRegisteredData is the TokenRegistered payload.
type TokenRegisteredData struct {
	Token       string `json:"token"`
	TotalSupply string `json:"total_supply"`
}

// PairCreatedData is the PairCreated payload.
type PairCreatedData struct {
	Pair      string `json:"pair"`
	TokenLow  string `json:"token_low"`
	TokenHigh string `json:"token_high"`
	Custody   string `json:"custody"`
}

// SwapEventData is the Swap payload.
type SwapEventData struct {
	Sender    string `json:"sender"`
	TokenIn   string `json:"token_in"`
	TokenOut  string `json:"token_out"`
	AmountIn  string `json:"amount_in"`
	AmountOut string `json:"amount_out"`
}

// LiquidityAddedData is the LiquidityAdded payload.
type LiquidityAddedData struct {
	User    string `json:"user"`
	TokenA  string `json:"token_a"`
	TokenB  string `json:"token_b"`
	AmountA string `json:"amount_a"`
	AmountB string `json:"amount_b"`
	Shares  string `json:"shares"`
}

// RewardPaidData is the RewardPaid payload.
type RewardPaidData struct {
	User   string `json:"user"`
	Amount string `json:"amount"`
}
