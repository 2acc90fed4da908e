package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// TokenBoundary is the ledger of record for value movement. The engine only
// records reserve deltas after delegating transfers to it.
type TokenBoundary interface {
	// TransferFrom moves amount from owner to recipient using the allowance
	// owner granted to spender.
	TransferFrom(ctx context.Context, token, spender, owner, recipient common.Address, amount *uint256.Int) error
	// Transfer moves amount out of an account the engine controls.
	Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error
	BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error)
	// Allowance reports what spender may still move out of owner's balance.
	Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error)
	TotalSupply(ctx context.Context, token common.Address) (*uint256.Int, error)
}

// BlockSource reports the current block height.
type BlockSource interface {
	BlockNumber(ctx context.Context) (uint64, error)
}
