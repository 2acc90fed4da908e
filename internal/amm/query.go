package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// IsRegistered reports whether token may participate in pairs.
func (e *Engine) IsRegistered(ctx context.Context, token common.Address) (bool, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return false, err
	}
	defer exit()

	_, ok := e.registered[token]
	return ok, nil
}

// Pool returns a copy of the pool of (tokenA, tokenB).
func (e *Engine) Pool(ctx context.Context, tokenA, tokenB common.Address) (*Pool, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	return pool.clone(), nil
}

// Pools returns copies of every pool in creation order.
func (e *Engine) Pools(ctx context.Context) ([]*Pool, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	pools := make([]*Pool, 0, len(e.poolOrder))
	for _, key := range e.poolOrder {
		pools = append(pools, e.pools[key].clone())
	}
	return pools, nil
}

// Position returns user's position in the pool of (tokenA, tokenB). A user
// who never deposited has a zero position.
func (e *Engine) Position(ctx context.Context, tokenA, tokenB, user common.Address) (Position, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return Position{}, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenA, tokenB)
	if err != nil {
		return Position{}, err
	}
	return e.position(pool.Key, user), nil
}

// RewardState returns a copy of the accumulator.
func (e *Engine) RewardState(ctx context.Context) (RewardState, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return RewardState{}, err
	}
	defer exit()
	return e.reward.clone(), nil
}

// PendingReward projects user's claimable reward in the pool of
// (tokenA, tokenB) as of the current block, without mutating state.
func (e *Engine) PendingReward(ctx context.Context, tokenA, tokenB, user common.Address) (*uint256.Int, error) {
	ctx, exit, err := e.enterRead(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenA, tokenB)
	if err != nil {
		return nil, err
	}
	block, err := e.currentBlock(ctx)
	if err != nil {
		return nil, err
	}
	projected, err := e.reward.advanced(block, pool.TotalShares)
	if err != nil {
		return nil, err
	}
	return pendingReward(e.position(pool.Key, user), projected.AccRewardPerShare)
}

// QuoteSwap returns the output a swap of amountIn would receive now.
func (e *Engine) QuoteSwap(ctx context.Context, amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrNonPositiveInput
	}
	if tokenIn == tokenOut {
		return nil, ErrIdenticalTokens
	}
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	reserveIn, reserveOut := pool.Reserves(tokenIn)
	return GetAmountOut(amountIn, reserveIn, reserveOut)
}
