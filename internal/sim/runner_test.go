package sim

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"liquidityFarm/internal/model"
	"liquidityFarm/internal/storage"
)

const (
	tokenA   = "0x1111111111111111111111111111111111111111"
	tokenB   = "0x2222222222222222222222222222222222222222"
	reward   = "0x9999999999999999999999999999999999999999"
	alice    = "0x00000000000000000000000000000000000a11ce"
	bob      = "0x0000000000000000000000000000000000000b0b"
	treasury = "0x0000000000000000000000000000000000007ea5"
	operator = "0x0000000000000000000000000000000000000e9a"
)

const scenario = `
# funding
{"op":"mint","token":"` + tokenA + `","to":"` + alice + `","amount":"1000000"}
{"op":"mint","token":"` + tokenB + `","to":"` + alice + `","amount":"1000000"}
{"op":"mint","token":"` + tokenA + `","to":"` + bob + `","amount":"1000000"}
{"op":"mint","token":"` + reward + `","to":"` + treasury + `","amount":"1000000000"}
{"op":"approve","token":"` + tokenA + `","user":"` + alice + `","amount":"1000000"}
{"op":"approve","token":"` + tokenB + `","user":"` + alice + `","amount":"1000000"}
{"op":"approve","token":"` + tokenA + `","user":"` + bob + `","amount":"1000000"}
{"op":"register","token":"` + tokenA + `"}
{"op":"register","token":"` + tokenB + `"}
{"op":"create-pair","token_a":"` + tokenB + `","token_b":"` + tokenA + `"}
{"op":"add-liquidity","user":"` + alice + `","token_a":"` + tokenA + `","token_b":"` + tokenB + `","amount_a":"1000","amount_b":"1000"}
{"op":"advance","blocks":10}
{"op":"pending","user":"` + alice + `","token_a":"` + tokenA + `","token_b":"` + tokenB + `"}

{"op":"swap","user":"` + bob + `","token_in":"` + tokenA + `","token_out":"` + tokenB + `","amount":"100"}
{"op":"swap","user":"` + bob + `","token_in":"` + tokenB + `","token_out":"` + tokenA + `","amount":"50"}
{"op":"harvest","user":"` + alice + `","token_a":"` + tokenB + `","token_b":"` + tokenA + `"}
{"op":"loyalty-mint","to":"` + alice + `"}
{"op":"loyalty-transfer","user":"` + alice + `","to":"` + bob + `","token_id":1}
{"op":"loyalty-lock","user":"` + treasury + `","enabled":true}
{"op":"loyalty-transfer","user":"` + alice + `","to":"` + bob + `","token_id":1}
{"op":"teleport"}
`

type memorySink struct {
	mu      sync.Mutex
	events  []model.Event
	results []model.StepResult
}

func (m *memorySink) PutEventBatch(_ context.Context, events []model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, events...)
	return nil
}

func (m *memorySink) PutStepResult(_ context.Context, result model.StepResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results = append(m.results, result)
	return nil
}

func (m *memorySink) result(t *testing.T, index uint64) model.StepResult {
	t.Helper()
	for _, r := range m.results {
		if r.Index == index {
			return r
		}
	}
	t.Fatalf("no result for step %d", index)
	return model.StepResult{}
}

type memoryState struct {
	pools     map[string]model.PoolSnapshot
	positions int
	applied   uint64
	block     uint64
	saved     bool
}

func (m *memoryState) LoadState(_ context.Context, _ string) (uint64, uint64, bool, error) {
	return m.applied, m.block, m.saved, nil
}

func (m *memoryState) UpsertPools(_ context.Context, pools []model.PoolSnapshot, _ uint64) error {
	if m.pools == nil {
		m.pools = make(map[string]model.PoolSnapshot)
	}
	for _, p := range pools {
		m.pools[p.Pair] = p
	}
	return nil
}

func (m *memoryState) UpsertPositions(_ context.Context, positions []model.PositionSnapshot) error {
	m.positions = len(positions)
	return nil
}

func (m *memoryState) SaveState(_ context.Context, _ string, applied, block uint64) error {
	m.applied, m.block, m.saved = applied, block, true
	return nil
}

type stepCounter struct {
	ok, failed int
}

func (s *stepCounter) ObserveStep(result model.StepResult) {
	if result.OK {
		s.ok++
		return
	}
	s.failed++
}

func testConfig(t *testing.T, steps []model.Step, snapshotPath string) RunConfig {
	t.Helper()
	return RunConfig{
		Name:            "test",
		Steps:           steps,
		RewardPerBlock:  uint256.NewInt(1000),
		RewardToken:     common.HexToAddress(reward),
		Treasury:        common.HexToAddress(treasury),
		Operator:        common.HexToAddress(operator),
		StartBlock:      100,
		SnapshotPath:    snapshotPath,
		SnapshotEnabled: snapshotPath != "",
	}
}

func mustSteps(t *testing.T) []model.Step {
	t.Helper()
	steps, err := DecodeSteps(strings.NewReader(scenario))
	require.NoError(t, err)
	require.Len(t, steps, 21)
	return steps
}

func TestRunScenario(t *testing.T) {
	steps := mustSteps(t)
	sink := &memorySink{}
	state := &memoryState{}
	counter := &stepCounter{}

	runner, err := NewRunner(testConfig(t, steps, ""), Deps{
		Events:  []storage.EventSink{sink},
		Results: sink,
		Steps:   counter,
		State:   state,
	}, nil)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(21), summary.Applied)
	assert.Equal(t, uint64(3), summary.Failed)
	assert.Equal(t, uint64(6), summary.Events)
	assert.Equal(t, uint64(110), summary.Block)
	assert.Equal(t, 18, counter.ok)
	assert.Equal(t, 3, counter.failed)

	assert.Equal(t, "10000", sink.result(t, 12).Output["pending"])
	assert.Equal(t, "90", sink.result(t, 13).Output["amount_out"])
	assert.Contains(t, sink.result(t, 14).Error, "insufficient allowance")
	assert.Equal(t, "10000", sink.result(t, 15).Output["reward"])
	assert.Equal(t, "1", sink.result(t, 16).Output["token_id"])
	assert.Contains(t, sink.result(t, 17).Error, "transfers locked")
	assert.True(t, sink.result(t, 19).OK)
	assert.Contains(t, sink.result(t, 20).Error, "unknown op")

	names := make([]string, 0, len(sink.events))
	for _, e := range sink.events {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{
		model.EventTokenRegistered,
		model.EventTokenRegistered,
		model.EventPairCreated,
		model.EventLiquidityAdded,
		model.EventSwap,
		model.EventRewardPaid,
	}, names)

	bal, err := runner.Ledger().BalanceOf(context.Background(), common.HexToAddress(reward), common.HexToAddress(alice))
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), bal.Uint64())

	assert.Len(t, state.pools, 1)
	assert.Equal(t, 1, state.positions)
	assert.Equal(t, uint64(21), state.applied)
	assert.Equal(t, uint64(110), state.block)
	for _, p := range state.pools {
		assert.Equal(t, "1100", p.ReserveLow)
		assert.Equal(t, "910", p.ReserveHigh)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	steps := mustSteps(t)
	ctx := context.Background()

	reference, err := NewRunner(testConfig(t, steps, ""), Deps{}, nil)
	require.NoError(t, err)
	_, err = reference.Run(ctx)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "snapshot.json")
	sink := &memorySink{}

	first, err := NewRunner(testConfig(t, steps[:13], path), Deps{Events: []storage.EventSink{sink}}, nil)
	require.NoError(t, err)
	summary, err := first.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(13), summary.Applied)

	second, err := NewRunner(testConfig(t, steps, path), Deps{Events: []storage.EventSink{sink}}, nil)
	require.NoError(t, err)
	summary, err = second.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(13), summary.Resumed)
	assert.Equal(t, uint64(8), summary.Applied)
	assert.Equal(t, uint64(110), summary.Block)
	assert.Len(t, sink.events, 6)

	want, err := reference.Engine().Snapshot(ctx)
	require.NoError(t, err)
	got, err := second.Engine().Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, reference.Ledger().Snapshot(), second.Ledger().Snapshot())

	again, err := NewRunner(testConfig(t, steps, path), Deps{}, nil)
	require.NoError(t, err)
	summary, err = again.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), summary.Applied)
}

func TestRunRejectsShorterScenario(t *testing.T) {
	steps := mustSteps(t)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	runner, err := NewRunner(testConfig(t, steps, path), Deps{}, nil)
	require.NoError(t, err)
	_, err = runner.Run(context.Background())
	require.NoError(t, err)

	short, err := NewRunner(testConfig(t, steps[:5], path), Deps{}, nil)
	require.NoError(t, err)
	_, err = short.Run(context.Background())
	require.Error(t, err)
}

type failingSink struct{}

func (failingSink) PutEventBatch(context.Context, []model.Event) error {
	return fmt.Errorf("disk full")
}

func TestRunStopsOnSinkFailure(t *testing.T) {
	steps := mustSteps(t)
	runner, err := NewRunner(testConfig(t, steps, ""), Deps{Events: []storage.EventSink{failingSink{}}}, nil)
	require.NoError(t, err)

	_, err = runner.Run(context.Background())
	require.ErrorContains(t, err, "disk full")
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner, err := NewRunner(testConfig(t, mustSteps(t), ""), Deps{}, nil)
	require.NoError(t, err)
	_, err = runner.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestRunRejectsStateAheadOfCheckpoint(t *testing.T) {
	state := &memoryState{applied: 5, block: 100, saved: true}
	runner, err := NewRunner(testConfig(t, mustSteps(t), ""), Deps{State: state}, nil)
	require.NoError(t, err)

	summary, err := runner.Run(context.Background())
	require.ErrorIs(t, err, ErrStateDiverged)
	assert.Equal(t, uint64(0), summary.Applied)
	assert.Equal(t, uint64(5), state.applied)
}

func TestRunWarnsWhenStateBehindCheckpoint(t *testing.T) {
	steps := mustSteps(t)
	path := filepath.Join(t.TempDir(), "snapshot.json")

	first, err := NewRunner(testConfig(t, steps[:13], path), Deps{}, nil)
	require.NoError(t, err)
	_, err = first.Run(context.Background())
	require.NoError(t, err)

	core, logs := observer.New(zap.WarnLevel)
	state := &memoryState{applied: 4, block: 100, saved: true}
	second, err := NewRunner(testConfig(t, steps, path), Deps{State: state}, zap.New(core))
	require.NoError(t, err)
	summary, err := second.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, uint64(13), summary.Resumed)
	require.Equal(t, 1, logs.FilterMessage("state store behind checkpoint").Len())
	assert.Equal(t, uint64(21), state.applied)
	assert.Equal(t, uint64(110), state.block)
}
