package model

// TokenInfo captures ERC20 metadata, supply and an optional holder balance.
type TokenInfo struct {
	Address     string `json:"address"`
	Symbol      string `json:"symbol,omitempty"`
	Name        string `json:"name,omitempty"`
	Decimals    uint8  `json:"decimals"`
	TotalSupply string `json:"total_supply"`
	Holder      string `json:"holder,omitempty"`
	Balance     string `json:"balance,omitempty"`
	BlockNumber uint64 `json:"block_number"`
}
