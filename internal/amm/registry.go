package amm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

// RegisterToken makes token eligible for pairs. The token must report a
// nonzero total supply.
func (e *Engine) RegisterToken(ctx context.Context, token common.Address) error {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer exit()

	if _, ok := e.registered[token]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, token.Hex())
	}
	block, err := e.currentBlock(ctx)
	if err != nil {
		return err
	}

	supply, err := e.tokens.TotalSupply(ctx, token)
	if err != nil {
		return fmt.Errorf("total supply %s: %w", token.Hex(), err)
	}
	if supply.IsZero() {
		return fmt.Errorf("%w: %s has zero total supply", ErrInvalidToken, token.Hex())
	}

	e.registered[token] = struct{}{}
	e.logger.Debug("token registered", zap.String("token", token.Hex()), zap.String("supply", FormatAmount(supply)))
	e.notifier.Notify(ctx, model.Event{
		Name:  model.EventTokenRegistered,
		Block: block,
		Data: model.TokenRegisteredData{
			Token:       token.Hex(),
			TotalSupply: FormatAmount(supply),
		},
	})
	return nil
}

// CreatePair allocates the pool of a registered token pair. Argument order
// does not matter; a pair is created at most once.
func (e *Engine) CreatePair(ctx context.Context, tokenA, tokenB common.Address) (PairKey, error) {
	ctx, exit, err := e.enter(ctx)
	if err != nil {
		return PairKey{}, err
	}
	defer exit()

	if tokenA == tokenB {
		return PairKey{}, fmt.Errorf("%w: %s", ErrIdenticalTokens, tokenA.Hex())
	}
	for _, token := range []common.Address{tokenA, tokenB} {
		if _, ok := e.registered[token]; !ok {
			return PairKey{}, fmt.Errorf("%w: %s", ErrTokenNotRegistered, token.Hex())
		}
	}

	low, high := SortTokens(tokenA, tokenB)
	key := PairKeyOf(low, high)
	if _, ok := e.pools[key]; ok {
		return PairKey{}, fmt.Errorf("%w: %s", ErrPairAlreadyExists, key)
	}
	block, err := e.currentBlock(ctx)
	if err != nil {
		return PairKey{}, err
	}

	pool := newPool(key, low, high)
	e.pools[key] = pool
	e.poolOrder = append(e.poolOrder, key)

	e.logger.Debug("pair created", zap.String("pair", key.String()), zap.String("token_low", low.Hex()), zap.String("token_high", high.Hex()))
	e.notifier.Notify(ctx, model.Event{
		Name:  model.EventPairCreated,
		Block: block,
		Pair:  key.String(),
		Data: model.PairCreatedData{
			Pair:      key.String(),
			TokenLow:  low.Hex(),
			TokenHigh: high.Hex(),
			Custody:   pool.Custody.Hex(),
		},
	})
	return key, nil
}
