package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

// LiquidityResult reports what a deposit actually took and minted. Amounts
// follow the caller's token order.
type LiquidityResult struct {
	AmountA *uint256.Int
	AmountB *uint256.Int
	Shares  *uint256.Int
	Reward  *uint256.Int
}

// AddLiquidity deposits up to (desiredA, desiredB) into the pool of
// (tokenA, tokenB), mints shares to user and pays out user's pending reward.
func (e *Engine) AddLiquidity(ctx context.Context, user, tokenA, tokenB common.Address, desiredA, desiredB *uint256.Int) (LiquidityResult, error) {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return LiquidityResult{}, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenA, tokenB)
	if err != nil {
		return LiquidityResult{}, err
	}
	block, err := e.currentBlock(ctx)
	if err != nil {
		return LiquidityResult{}, err
	}

	// Nothing below mutates engine state until every transfer has succeeded.
	reward, err := e.reward.advanced(block, pool.TotalShares)
	if err != nil {
		return LiquidityResult{}, err
	}

	desiredLow, desiredHigh := desiredA, desiredB
	if tokenA != pool.TokenLow {
		desiredLow, desiredHigh = desiredB, desiredA
	}
	amountLow, amountHigh, minted, err := depositAmounts(pool, desiredLow, desiredHigh)
	if err != nil {
		return LiquidityResult{}, err
	}

	reserveLow, err := checkedAdd(pool.ReserveLow, amountLow)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("reserve low: %w", err)
	}
	reserveHigh, err := checkedAdd(pool.ReserveHigh, amountHigh)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("reserve high: %w", err)
	}
	totalShares, err := checkedAdd(pool.TotalShares, minted)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("total shares: %w", err)
	}

	pos := e.position(pool.Key, user)
	pending, err := pendingReward(pos, reward.AccRewardPerShare)
	if err != nil {
		return LiquidityResult{}, err
	}
	shares, err := checkedAdd(pos.Shares, minted)
	if err != nil {
		return LiquidityResult{}, fmt.Errorf("user shares: %w", err)
	}
	debt, err := accruedReward(shares, reward.AccRewardPerShare)
	if err != nil {
		return LiquidityResult{}, err
	}

	if err := e.checkDeposit(ctx, pool.TokenLow, user, amountLow); err != nil {
		return LiquidityResult{}, err
	}
	if err := e.checkDeposit(ctx, pool.TokenHigh, user, amountHigh); err != nil {
		return LiquidityResult{}, err
	}
	if err := e.checkTreasury(ctx, pending); err != nil {
		return LiquidityResult{}, err
	}
	s := e.newSettlement()
	if err := s.pull(ctx, pool.TokenLow, user, pool.Custody, amountLow); err != nil {
		return LiquidityResult{}, err
	}
	if err := s.pull(ctx, pool.TokenHigh, user, pool.Custody, amountHigh); err != nil {
		return LiquidityResult{}, err
	}
	if err := s.push(ctx, e.cfg.RewardToken, e.cfg.Treasury, user, pending); err != nil {
		return LiquidityResult{}, err
	}

	e.reward = reward
	pool.ReserveLow = reserveLow
	pool.ReserveHigh = reserveHigh
	pool.TotalShares = totalShares
	e.positions[positionKey{pair: pool.Key, user: user}] = Position{Shares: shares, RewardDebt: debt}

	amountA, amountB := amountLow, amountHigh
	if tokenA != pool.TokenLow {
		amountA, amountB = amountHigh, amountLow
	}

	e.logger.Debug("liquidity added",
		zap.String("pair", pool.Key.String()),
		zap.String("user", user.Hex()),
		zap.String("amount_a", FormatAmount(amountA)),
		zap.String("amount_b", FormatAmount(amountB)),
		zap.String("shares", FormatAmount(minted)),
	)
	e.notifier.Notify(ctx, model.Event{
		Name:  model.EventLiquidityAdded,
		Block: block,
		Pair:  pool.Key.String(),
		Data: model.LiquidityAddedData{
			User:    user.Hex(),
			TokenA:  tokenA.Hex(),
			TokenB:  tokenB.Hex(),
			AmountA: FormatAmount(amountA),
			AmountB: FormatAmount(amountB),
			Shares:  FormatAmount(minted),
		},
	})
	e.notifyRewardPaid(ctx, block, pool.Key, user, pending)

	return LiquidityResult{AmountA: amountA, AmountB: amountB, Shares: minted, Reward: pending}, nil
}

// depositAmounts computes the canonical amounts taken and the shares minted.
func depositAmounts(pool *Pool, desiredLow, desiredHigh *uint256.Int) (*uint256.Int, *uint256.Int, *uint256.Int, error) {
	var amountLow, amountHigh *uint256.Int
	if pool.TotalShares.IsZero() {
		amountLow, amountHigh = cloneAmount(desiredLow), cloneAmount(desiredHigh)
	} else {
		var err error
		amountLow, amountHigh, err = OptimalAmounts(desiredLow, desiredHigh, pool.ReserveLow, pool.ReserveHigh)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	minted, err := MintedShares(amountLow, amountHigh, pool.ReserveLow, pool.ReserveHigh, pool.TotalShares)
	if err != nil {
		return nil, nil, nil, err
	}
	if minted.IsZero() {
		return nil, nil, nil, fmt.Errorf("%w: deposit of %s/%s mints no shares", ErrInsufficientLiquidity, FormatAmount(amountLow), FormatAmount(amountHigh))
	}
	return amountLow, amountHigh, minted, nil
}

func (e *Engine) notifyRewardPaid(ctx context.Context, block uint64, key PairKey, user common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		return
	}
	e.logger.Debug("reward paid", zap.String("user", user.Hex()), zap.String("amount", FormatAmount(amount)))
	e.notifier.Notify(ctx, model.Event{
		Name:  model.EventRewardPaid,
		Block: block,
		Pair:  key.String(),
		Data: model.RewardPaidData{
			User:   user.Hex(),
			Amount: FormatAmount(amount),
		},
	})
}
