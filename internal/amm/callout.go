package amm

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityFarm/internal/model"
)

const defaultReentryWait = 250 * time.Millisecond

// acquire takes the engine lock through try and lock. While the holder is
// inside an external call, a caller that cannot take the lock waits at most
// reentryWait for that call to return: a collaborator calling back into the
// engine keeps it inside indefinitely, so it fails instead of deadlocking.
func (e *Engine) acquire(ctx context.Context, try func() bool, lock func()) error {
	if try() {
		return nil
	}
	deadline := time.Now().Add(e.reentryWait)
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		if e.callouts.Load() == 0 {
			lock()
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: engine busy in an external call for %s", ErrReentrantCall, e.reentryWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if try() {
			return nil
		}
	}
}

// callout marks control leaving the engine until the returned func runs.
func (e *Engine) callout() func() {
	e.callouts.Add(1)
	return func() { e.callouts.Add(-1) }
}

type guardedTokens struct {
	e    *Engine
	next TokenBoundary
}

func (g guardedTokens) TransferFrom(ctx context.Context, token, spender, owner, recipient common.Address, amount *uint256.Int) error {
	defer g.e.callout()()
	return g.next.TransferFrom(ctx, token, spender, owner, recipient, amount)
}

func (g guardedTokens) Transfer(ctx context.Context, token, from, to common.Address, amount *uint256.Int) error {
	defer g.e.callout()()
	return g.next.Transfer(ctx, token, from, to, amount)
}

func (g guardedTokens) BalanceOf(ctx context.Context, token, holder common.Address) (*uint256.Int, error) {
	defer g.e.callout()()
	return g.next.BalanceOf(ctx, token, holder)
}

func (g guardedTokens) Allowance(ctx context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	defer g.e.callout()()
	return g.next.Allowance(ctx, token, owner, spender)
}

func (g guardedTokens) TotalSupply(ctx context.Context, token common.Address) (*uint256.Int, error) {
	defer g.e.callout()()
	return g.next.TotalSupply(ctx, token)
}

type guardedBlocks struct {
	e    *Engine
	next BlockSource
}

func (g guardedBlocks) BlockNumber(ctx context.Context) (uint64, error) {
	defer g.e.callout()()
	return g.next.BlockNumber(ctx)
}

type guardedNotifier struct {
	e    *Engine
	next Notifier
}

func (g guardedNotifier) Notify(ctx context.Context, event model.Event) {
	defer g.e.callout()()
	g.next.Notify(ctx, event)
}
