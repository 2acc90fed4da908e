package amm

import (
	"fmt"

	"github.com/holiman/uint256"
)

// RewardState is the block-indexed reward accumulator shared by every pool.
//
// AccRewardPerShare is scaled by 1e12 and never decreases.
type RewardState struct {
	RewardPerBlock    *uint256.Int
	LastUpdateBlock   uint64
	AccRewardPerShare *uint256.Int
}

func (r RewardState) clone() RewardState {
	return RewardState{
		RewardPerBlock:    cloneAmount(r.RewardPerBlock),
		LastUpdateBlock:   r.LastUpdateBlock,
		AccRewardPerShare: cloneAmount(r.AccRewardPerShare),
	}
}

// advanced returns the state after crediting the blocks up to current against
// totalShares. The receiver is not modified.
func (r RewardState) advanced(current uint64, totalShares *uint256.Int) (RewardState, error) {
	next := r.clone()
	if current <= r.LastUpdateBlock {
		return next, nil
	}
	if totalShares.IsZero() {
		next.LastUpdateBlock = current
		return next, nil
	}

	elapsed := uint256.NewInt(current - r.LastUpdateBlock)
	reward, err := checkedMul(elapsed, next.RewardPerBlock)
	if err != nil {
		return RewardState{}, fmt.Errorf("block reward: %w", err)
	}
	increment, err := mulDiv(reward, rewardScale, totalShares)
	if err != nil {
		return RewardState{}, fmt.Errorf("reward per share: %w", err)
	}
	acc, err := checkedAdd(next.AccRewardPerShare, increment)
	if err != nil {
		return RewardState{}, fmt.Errorf("accumulate reward: %w", err)
	}

	next.AccRewardPerShare = acc
	next.LastUpdateBlock = current
	return next, nil
}

// accruedReward returns shares * acc / 1e12.
func accruedReward(shares, acc *uint256.Int) (*uint256.Int, error) {
	accrued, err := mulDiv(shares, acc, rewardScale)
	if err != nil {
		return nil, fmt.Errorf("accrued reward: %w", err)
	}
	return accrued, nil
}

// pendingReward returns the reward a position earned since its last settlement.
func pendingReward(pos Position, acc *uint256.Int) (*uint256.Int, error) {
	accrued, err := accruedReward(pos.Shares, acc)
	if err != nil {
		return nil, err
	}
	if accrued.Lt(pos.RewardDebt) {
		return nil, fmt.Errorf("%w: debt %s exceeds accrued %s", ErrRewardAccounting, FormatAmount(pos.RewardDebt), FormatAmount(accrued))
	}
	return accrued.Sub(accrued, pos.RewardDebt), nil
}
