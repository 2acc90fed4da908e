package amm

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityFarm/internal/model"
)

// Snapshot exports the full engine state.
func (e *Engine) Snapshot(ctx context.Context) (model.EngineSnapshot, error) {
	_, exit, err := e.enterRead(ctx)
	if err != nil {
		return model.EngineSnapshot{}, err
	}
	defer exit()

	snap := model.EngineSnapshot{
		Tokens:    make([]string, 0, len(e.registered)),
		Pools:     make([]model.PoolSnapshot, 0, len(e.poolOrder)),
		Positions: make([]model.PositionSnapshot, 0, len(e.positions)),
		Reward: model.RewardSnapshot{
			RewardPerBlock:    FormatAmount(e.reward.RewardPerBlock),
			LastUpdateBlock:   e.reward.LastUpdateBlock,
			AccRewardPerShare: FormatAmount(e.reward.AccRewardPerShare),
		},
	}

	tokens := make([]common.Address, 0, len(e.registered))
	for token := range e.registered {
		tokens = append(tokens, token)
	}
	sort.Slice(tokens, func(i, j int) bool { return bytes.Compare(tokens[i].Bytes(), tokens[j].Bytes()) < 0 })
	for _, token := range tokens {
		snap.Tokens = append(snap.Tokens, token.Hex())
	}

	for _, key := range e.poolOrder {
		snap.Pools = append(snap.Pools, e.pools[key].Snapshot())
	}

	for key, pos := range e.positions {
		snap.Positions = append(snap.Positions, model.PositionSnapshot{
			Pair:       key.pair.String(),
			User:       key.user.Hex(),
			Shares:     FormatAmount(pos.Shares),
			RewardDebt: FormatAmount(pos.RewardDebt),
		})
	}
	sort.Slice(snap.Positions, func(i, j int) bool {
		if snap.Positions[i].Pair != snap.Positions[j].Pair {
			return snap.Positions[i].Pair < snap.Positions[j].Pair
		}
		return snap.Positions[i].User < snap.Positions[j].User
	})
	return snap, nil
}

// Restore replaces the engine state with snap. Pools are re-keyed from
// their tokens and must match the recorded pair key.
func (e *Engine) Restore(ctx context.Context, snap model.EngineSnapshot) error {
	registered := make(map[common.Address]struct{}, len(snap.Tokens))
	for _, input := range snap.Tokens {
		token, err := parseHexAddress(input)
		if err != nil {
			return err
		}
		registered[token] = struct{}{}
	}

	pools := make(map[PairKey]*Pool, len(snap.Pools))
	order := make([]PairKey, 0, len(snap.Pools))
	for _, ps := range snap.Pools {
		pool, err := restorePool(ps)
		if err != nil {
			return err
		}
		if _, dup := pools[pool.Key]; dup {
			return fmt.Errorf("%w: %s", ErrPairAlreadyExists, pool.Key)
		}
		pools[pool.Key] = pool
		order = append(order, pool.Key)
	}

	positions := make(map[positionKey]Position, len(snap.Positions))
	for _, ps := range snap.Positions {
		key, err := ParsePairKey(ps.Pair)
		if err != nil {
			return err
		}
		if _, ok := pools[key]; !ok {
			return fmt.Errorf("%w: position references %s", ErrPairNotFound, ps.Pair)
		}
		user, err := parseHexAddress(ps.User)
		if err != nil {
			return err
		}
		shares, err := ParseAmount(ps.Shares)
		if err != nil {
			return fmt.Errorf("position shares: %w", err)
		}
		debt, err := ParseAmount(ps.RewardDebt)
		if err != nil {
			return fmt.Errorf("position reward debt: %w", err)
		}
		positions[positionKey{pair: key, user: user}] = Position{Shares: shares, RewardDebt: debt}
	}

	perBlock, err := ParseAmount(snap.Reward.RewardPerBlock)
	if err != nil {
		return fmt.Errorf("reward per block: %w", err)
	}
	acc, err := ParseAmount(snap.Reward.AccRewardPerShare)
	if err != nil {
		return fmt.Errorf("acc reward per share: %w", err)
	}

	_, exit, err := e.enter(ctx)
	if err != nil {
		return err
	}
	defer exit()

	e.registered = registered
	e.pools = pools
	e.poolOrder = order
	e.positions = positions
	e.reward = RewardState{
		RewardPerBlock:    perBlock,
		LastUpdateBlock:   snap.Reward.LastUpdateBlock,
		AccRewardPerShare: acc,
	}
	return nil
}

func restorePool(ps model.PoolSnapshot) (*Pool, error) {
	low, err := parseHexAddress(ps.TokenLow)
	if err != nil {
		return nil, err
	}
	high, err := parseHexAddress(ps.TokenHigh)
	if err != nil {
		return nil, err
	}
	if sortedLow, _ := SortTokens(low, high); sortedLow != low || low == high {
		return nil, fmt.Errorf("pool %s tokens are not canonical", ps.Pair)
	}
	key := PairKeyOf(low, high)
	if ps.Pair != "" && ps.Pair != key.String() {
		return nil, fmt.Errorf("pool key mismatch: recorded %s, derived %s", ps.Pair, key)
	}

	pool := newPool(key, low, high)
	amounts := []struct {
		dst   **uint256.Int
		input string
		name  string
	}{
		{&pool.ReserveLow, ps.ReserveLow, "reserve low"},
		{&pool.ReserveHigh, ps.ReserveHigh, "reserve high"},
		{&pool.TotalShares, ps.TotalShares, "total shares"},
	}
	for _, a := range amounts {
		v, err := ParseAmount(a.input)
		if err != nil {
			return nil, fmt.Errorf("pool %s %s: %w", ps.Pair, a.name, err)
		}
		*a.dst = v
	}

	emptyReserves := pool.ReserveLow.IsZero() && pool.ReserveHigh.IsZero()
	if emptyReserves != pool.TotalShares.IsZero() {
		return nil, fmt.Errorf("pool %s: reserves and shares disagree on emptiness", ps.Pair)
	}
	return pool, nil
}

func parseHexAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}
