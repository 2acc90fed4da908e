package model

// PoolSnapshot is the serializable state of one pool.
type PoolSnapshot struct {
	Pair        string `json:"pair"`
	TokenLow    string `json:"token_low"`
	TokenHigh   string `json:"token_high"`
	Custody     string `json:"custody"`
	ReserveLow  string `json:"reserve_low"`
	ReserveHigh string `json:"reserve_high"`
	TotalShares string `json:"total_shares"`
}

// PositionSnapshot is the serializable state of one user's liquidity position.
type PositionSnapshot struct {
	Pair       string `json:"pair"`
	User       string `json:"user"`
	Shares     string `json:"shares"`
	RewardDebt string `json:"reward_debt"`
}

// RewardSnapshot is the serializable state of the reward accumulator.
type RewardSnapshot struct {
	RewardPerBlock    string `json:"reward_per_block"`
	LastUpdateBlock   uint64 `json:"last_update_block"`
	AccRewardPerShare string `json:"acc_reward_per_share"`
}

// EngineSnapshot captures every piece of engine state.
type EngineSnapshot struct {
	Tokens    []string           `json:"tokens"`
	Pools     []PoolSnapshot     `json:"pools"`
	Positions []PositionSnapshot `json:"positions"`
	Reward    RewardSnapshot     `json:"reward"`
}
