package amm

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"liquidityFarm/internal/ledger"
	"liquidityFarm/internal/model"
)

var (
	tokenA      = common.HexToAddress("0x1111111111111111111111111111111111111111")
	tokenB      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	tokenC      = common.HexToAddress("0x3333333333333333333333333333333333333333")
	rewardToken = common.HexToAddress("0x9999999999999999999999999999999999999999")
	alice       = common.HexToAddress("0xa11ce")
	bob         = common.HexToAddress("0xb0b")
	carol       = common.HexToAddress("0xca201")
	treasury    = common.HexToAddress("0x7ea5")
	operator    = common.HexToAddress("0x0e9a")
)

const startBlock = 100

func u(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	ledger *ledger.Ledger
	clock  *ManualClock
	engine *Engine
	events []model.Event
}

func newFixture(t *testing.T, rewardPerBlock uint64) *fixture {
	return newFixtureWith(t, rewardPerBlock, func(l *ledger.Ledger) TokenBoundary { return l })
}

// newFixtureWith funds alice, bob and carol with 1e6 of tokens A, B and C,
// approves the operator for all of it, and funds the treasury with rewards.
func newFixtureWith(t *testing.T, rewardPerBlock uint64, wrap func(*ledger.Ledger) TokenBoundary) *fixture {
	t.Helper()

	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		ledger: ledger.New(),
		clock:  NewManualClock(startBlock),
	}

	max := new(uint256.Int).SetAllOne()
	for _, token := range []common.Address{tokenA, tokenB, tokenC} {
		for _, user := range []common.Address{alice, bob, carol} {
			require.NoError(t, f.ledger.Mint(token, user, u(1_000_000)))
			f.ledger.Approve(token, user, operator, max)
		}
	}
	require.NoError(t, f.ledger.Mint(rewardToken, treasury, u(1_000_000_000)))

	engine, err := NewEngine(Config{
		RewardPerBlock: u(rewardPerBlock),
		RewardToken:    rewardToken,
		Treasury:       treasury,
		Operator:       operator,
		StartBlock:     startBlock,
	}, wrap(f.ledger), f.clock, NotifierFunc(func(_ context.Context, event model.Event) {
		f.events = append(f.events, event)
	}), zap.NewNop())
	require.NoError(t, err)
	f.engine = engine
	return f
}

func (f *fixture) registerAll(tokens ...common.Address) {
	f.t.Helper()
	for _, token := range tokens {
		require.NoError(f.t, f.engine.RegisterToken(f.ctx, token))
	}
}

func (f *fixture) pair(a, b common.Address) PairKey {
	f.t.Helper()
	f.registerAll(a, b)
	key, err := f.engine.CreatePair(f.ctx, a, b)
	require.NoError(f.t, err)
	return key
}

func (f *fixture) deposit(user common.Address, a, b common.Address, amountA, amountB uint64) LiquidityResult {
	f.t.Helper()
	res, err := f.engine.AddLiquidity(f.ctx, user, a, b, u(amountA), u(amountB))
	require.NoError(f.t, err)
	return res
}

func (f *fixture) pool(a, b common.Address) *Pool {
	f.t.Helper()
	pool, err := f.engine.Pool(f.ctx, a, b)
	require.NoError(f.t, err)
	return pool
}

func (f *fixture) balance(token, holder common.Address) uint64 {
	f.t.Helper()
	bal, err := f.ledger.BalanceOf(f.ctx, token, holder)
	require.NoError(f.t, err)
	return bal.Uint64()
}

func (f *fixture) pending(a, b, user common.Address) uint64 {
	f.t.Helper()
	pending, err := f.engine.PendingReward(f.ctx, a, b, user)
	require.NoError(f.t, err)
	return pending.Uint64()
}

func (f *fixture) snapshot() model.EngineSnapshot {
	f.t.Helper()
	snap, err := f.engine.Snapshot(f.ctx)
	require.NoError(f.t, err)
	return snap
}

func (f *fixture) eventNames() []string {
	names := make([]string, 0, len(f.events))
	for _, event := range f.events {
		names = append(names, event.Name)
	}
	return names
}
