package model

// BalanceEntry is one token balance of one holder.
type BalanceEntry struct {
	Token  string `json:"token"`
	Holder string `json:"holder"`
	Amount string `json:"amount"`
}

// AllowanceEntry is one spender allowance granted by an owner.
type AllowanceEntry struct {
	Token   string `json:"token"`
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
	Amount  string `json:"amount"`
}

// SupplyEntry is the total supply of one token, with its transfer fee.
type SupplyEntry struct {
	Token          string `json:"token"`
	Supply         string `json:"supply"`
	TransferFeeBps uint64 `json:"transfer_fee_bps,omitempty"`
}

// LedgerSnapshot is the serializable state of the in-memory token ledger.
type LedgerSnapshot struct {
	Supplies   []SupplyEntry    `json:"supplies"`
	Balances   []BalanceEntry   `json:"balances"`
	Allowances []AllowanceEntry `json:"allowances"`
}

// LoyaltySnapshot is the serializable state of the loyalty collection.
type LoyaltySnapshot struct {
	Admin        string            `json:"admin"`
	NextID       uint64            `json:"next_id"`
	Transferable bool              `json:"transferable"`
	Owners       map[uint64]string `json:"owners"`
}
