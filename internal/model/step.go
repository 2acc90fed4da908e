package model

// Step is one line of a simulation scenario.
type Step struct {
	Op       string `json:"op"`
	Token    string `json:"token,omitempty"`
	TokenA   string `json:"token_a,omitempty"`
	TokenB   string `json:"token_b,omitempty"`
	TokenIn  string `json:"token_in,omitempty"`
	TokenOut string `json:"token_out,omitempty"`
	User     string `json:"user,omitempty"`
	To       string `json:"to,omitempty"`
	Spender  string `json:"spender,omitempty"`
	Amount   string `json:"amount,omitempty"`
	AmountA  string `json:"amount_a,omitempty"`
	AmountB  string `json:"amount_b,omitempty"`
	Blocks   uint64 `json:"blocks,omitempty"`
	FeeBps   uint64 `json:"fee_bps,omitempty"`
	TokenID  uint64 `json:"token_id,omitempty"`
	Enabled  bool   `json:"enabled,omitempty"`
}

// StepResult records the outcome of one applied step.
type StepResult struct {
	Index  uint64            `json:"index"`
	Op     string            `json:"op"`
	Block  uint64            `json:"block_number"`
	OK     bool              `json:"ok"`
	Error  string            `json:"error,omitempty"`
	Output map[string]string `json:"output,omitempty"`
}

// Checkpoint is the persisted progress of a simulation run. Applied counts
// the scenario steps already reflected in the snapshots.
type Checkpoint struct {
	Applied   uint64          `json:"steps_applied"`
	Block     uint64          `json:"block_number"`
	Engine    EngineSnapshot  `json:"engine"`
	Ledger    LedgerSnapshot  `json:"ledger"`
	Loyalty   LoyaltySnapshot `json:"loyalty"`
	UpdatedAt string          `json:"updated_at"`
}
