package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

// Swap sells amountIn of tokenIn for tokenOut against the pool's reserves
// and returns the amount paid out.
//
// After the transfers the pool's reserves are set to its custody balances,
// not to the nominal in/out amounts, so tokens that move less than requested
// are absorbed into the reserves.
func (e *Engine) Swap(ctx context.Context, sender common.Address, amountIn *uint256.Int, tokenIn, tokenOut common.Address) (*uint256.Int, error) {
	if amountIn == nil || amountIn.IsZero() {
		return nil, ErrNonPositiveInput
	}
	if tokenIn == tokenOut {
		return nil, fmt.Errorf("%w: %s", ErrIdenticalTokens, tokenIn.Hex())
	}

	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return nil, err
	}
	defer exit()

	pool, err := e.lookupPool(tokenIn, tokenOut)
	if err != nil {
		return nil, err
	}
	block, err := e.currentBlock(ctx)
	if err != nil {
		return nil, err
	}

	reserveIn, reserveOut := pool.Reserves(tokenIn)
	amountOut, err := GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return nil, err
	}

	if err := e.checkDeposit(ctx, tokenIn, sender, amountIn); err != nil {
		return nil, err
	}
	s := e.newSettlement()
	if err := s.pull(ctx, tokenIn, sender, pool.Custody, amountIn); err != nil {
		return nil, err
	}
	if err := s.push(ctx, tokenOut, pool.Custody, sender, amountOut); err != nil {
		return nil, err
	}

	reserveLow, reserveHigh, err := e.custodyBalances(ctx, pool)
	if err != nil {
		// The transfers are final; fall back to nominal bookkeeping.
		e.logger.Warn("reserve reconciliation failed", zap.String("pair", pool.Key.String()), zap.Error(err))
		reserveLow, reserveHigh, err = nominalReserves(pool, tokenIn, amountIn, amountOut)
		if err != nil {
			return nil, err
		}
	}
	pool.ReserveLow = reserveLow
	pool.ReserveHigh = reserveHigh

	e.logger.Debug("swap executed",
		zap.String("pair", pool.Key.String()),
		zap.String("sender", sender.Hex()),
		zap.String("amount_in", FormatAmount(amountIn)),
		zap.String("amount_out", FormatAmount(amountOut)),
	)
	e.notifier.Notify(ctx, model.Event{
		Name:  model.EventSwap,
		Block: block,
		Pair:  pool.Key.String(),
		Data: model.SwapEventData{
			Sender:    sender.Hex(),
			TokenIn:   tokenIn.Hex(),
			TokenOut:  tokenOut.Hex(),
			AmountIn:  FormatAmount(amountIn),
			AmountOut: FormatAmount(amountOut),
		},
	})
	return amountOut, nil
}

func (e *Engine) custodyBalances(ctx context.Context, pool *Pool) (*uint256.Int, *uint256.Int, error) {
	low, err := e.tokens.BalanceOf(ctx, pool.TokenLow, pool.Custody)
	if err != nil {
		return nil, nil, fmt.Errorf("balance %s: %w", pool.TokenLow.Hex(), err)
	}
	high, err := e.tokens.BalanceOf(ctx, pool.TokenHigh, pool.Custody)
	if err != nil {
		return nil, nil, fmt.Errorf("balance %s: %w", pool.TokenHigh.Hex(), err)
	}
	return low, high, nil
}

func nominalReserves(pool *Pool, tokenIn common.Address, amountIn, amountOut *uint256.Int) (*uint256.Int, *uint256.Int, error) {
	reserveIn, reserveOut := pool.Reserves(tokenIn)
	newIn, err := checkedAdd(reserveIn, amountIn)
	if err != nil {
		return nil, nil, err
	}
	newOut := new(uint256.Int).Sub(reserveOut, amountOut)
	if tokenIn == pool.TokenLow {
		return newIn, newOut, nil
	}
	return newOut, newIn, nil
}
