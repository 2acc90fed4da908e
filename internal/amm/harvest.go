package amm

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Harvest pays user the reward accrued on their position in the pool of
// (tokenA, tokenB) and returns the amount paid.
func (e *Engine) Harvest(ctx context.Context, user, tokenA, tokenB common.Address) (*uint256.Int, error) {
	ctx, exit, err := e.enter(ctx)
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

	reward, err := e.reward.advanced(block, pool.TotalShares)
	if err != nil {
		return nil, err
	}
	key := positionKey{pair: pool.Key, user: user}
	pos, ok := e.positions[key]
	if !ok {
		e.reward = reward
		return new(uint256.Int), nil
	}

	pending, err := pendingReward(pos, reward.AccRewardPerShare)
	if err != nil {
		return nil, err
	}
	debt, err := accruedReward(pos.Shares, reward.AccRewardPerShare)
	if err != nil {
		return nil, err
	}

	if err := e.checkTreasury(ctx, pending); err != nil {
		return nil, err
	}
	if err := e.newSettlement().push(ctx, e.cfg.RewardToken, e.cfg.Treasury, user, pending); err != nil {
		return nil, err
	}

	e.reward = reward
	e.positions[key] = Position{Shares: cloneAmount(pos.Shares), RewardDebt: debt}
	e.notifyRewardPaid(ctx, block, pool.Key, user, pending)
	return pending, nil
}
