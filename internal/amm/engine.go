// Package amm implements a constant-product exchange with a block-emitted
// liquidity-mining reward.
//
// All state-mutating operations are serialized engine-wide. The single
// reward accumulator is advanced lazily, against the total shares of
// whichever pool the current operation touches.
package amm

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"
)

// Config controls engine behavior.
type Config struct {
	// RewardPerBlock is the fixed emission rate.
	RewardPerBlock *uint256.Int
	// RewardToken is the token rewards are paid in.
	RewardToken common.Address
	// Treasury is the engine-controlled account rewards are paid from.
	Treasury common.Address
	// Operator is the spender users approve so the engine can pull deposits.
	Operator common.Address
	// StartBlock seeds the accumulator's last update height.
	StartBlock uint64
	// ReentryWait bounds how long a call waits on an engine that is inside
	// an external call before failing with ErrReentrantCall. Zero means 250ms.
	ReentryWait time.Duration
}

// Engine is the pool-accounting and reward-accrual engine.
type Engine struct {
	cfg      Config
	tokens   TokenBoundary
	blocks   BlockSource
	notifier Notifier
	logger   *zap.Logger

	mu          sync.RWMutex
	callouts    atomic.Int32
	reentryWait time.Duration
	registered map[common.Address]struct{}
	pools      map[PairKey]*Pool
	poolOrder  []PairKey
	positions  map[positionKey]Position
	reward     RewardState
}

// NewEngine builds an Engine with its collaborators.
func NewEngine(cfg Config, tokens TokenBoundary, blocks BlockSource, notifier Notifier, logger *zap.Logger) (*Engine, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token boundary is nil")
	}
	if blocks == nil {
		return nil, fmt.Errorf("block source is nil")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	reentryWait := cfg.ReentryWait
	if reentryWait <= 0 {
		reentryWait = defaultReentryWait
	}

	e := &Engine{
		cfg:         cfg,
		logger:      logger,
		reentryWait: reentryWait,
		registered:  make(map[common.Address]struct{}),
		pools:       make(map[PairKey]*Pool),
		positions:   make(map[positionKey]Position),
		reward: RewardState{
			RewardPerBlock:    cloneAmount(cfg.RewardPerBlock),
			LastUpdateBlock:   cfg.StartBlock,
			AccRewardPerShare: new(uint256.Int),
		},
	}
	e.tokens = guardedTokens{e: e, next: tokens}
	e.blocks = guardedBlocks{e: e, next: blocks}
	e.notifier = guardedNotifier{e: e, next: notifier}
	return e, nil
}

type engineCtxKey struct{}

// enter takes the exclusive lock for a mutating operation. The returned
// context marks calls made on the engine's behalf so that an operation
// started from inside one of them fails instead of deadlocking. Callers
// that drop the marker are caught by acquire.
func (e *Engine) enter(ctx context.Context) (context.Context, func(), error) {
	if e.inside(ctx) {
		return nil, nil, ErrReentrantCall
	}
	if err := e.acquire(ctx, e.mu.TryLock, e.mu.Lock); err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, engineCtxKey{}, e), e.mu.Unlock, nil
}

// enterRead takes the shared lock for a read-only projection.
func (e *Engine) enterRead(ctx context.Context) (context.Context, func(), error) {
	if e.inside(ctx) {
		return nil, nil, ErrReentrantCall
	}
	if err := e.acquire(ctx, e.mu.TryRLock, e.mu.RLock); err != nil {
		return nil, nil, err
	}
	return context.WithValue(ctx, engineCtxKey{}, e), e.mu.RUnlock, nil
}

func (e *Engine) inside(ctx context.Context) bool {
	owner, ok := ctx.Value(engineCtxKey{}).(*Engine)
	return ok && owner == e
}

func (e *Engine) currentBlock(ctx context.Context) (uint64, error) {
	block, err := e.blocks.BlockNumber(ctx)
	if err != nil {
		return 0, fmt.Errorf("current block: %w", err)
	}
	return block, nil
}

// lookupPool resolves a token pair to its pool.
func (e *Engine) lookupPool(tokenA, tokenB common.Address) (*Pool, error) {
	key := PairKeyOf(tokenA, tokenB)
	pool, ok := e.pools[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrPairNotFound, tokenA.Hex(), tokenB.Hex())
	}
	return pool, nil
}

func (e *Engine) position(key PairKey, user common.Address) Position {
	if pos, ok := e.positions[positionKey{pair: key, user: user}]; ok {
		return pos.clone()
	}
	return emptyPosition()
}
