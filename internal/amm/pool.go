package amm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityFarm/internal/model"
)

// Pool is the reserve and liquidity ledger of one canonical pair.
//
// ReserveLow and ReserveHigh are both zero exactly when TotalShares is zero.
type Pool struct {
	Key         PairKey
	TokenLow    common.Address
	TokenHigh   common.Address
	Custody     common.Address
	ReserveLow  *uint256.Int
	ReserveHigh *uint256.Int
	TotalShares *uint256.Int
}

func newPool(key PairKey, low, high common.Address) *Pool {
	return &Pool{
		Key:         key,
		TokenLow:    low,
		TokenHigh:   high,
		Custody:     key.Custody(),
		ReserveLow:  new(uint256.Int),
		ReserveHigh: new(uint256.Int),
		TotalShares: new(uint256.Int),
	}
}

func (p *Pool) clone() *Pool {
	c := *p
	c.ReserveLow = cloneAmount(p.ReserveLow)
	c.ReserveHigh = cloneAmount(p.ReserveHigh)
	c.TotalShares = cloneAmount(p.TotalShares)
	return &c
}

// Contains reports whether token is one side of the pool.
func (p *Pool) Contains(token common.Address) bool {
	return token == p.TokenLow || token == p.TokenHigh
}

// Reserves returns the reserves ordered as (reserveOf(token), reserveOf(other)).
func (p *Pool) Reserves(token common.Address) (*uint256.Int, *uint256.Int) {
	if token == p.TokenLow {
		return p.ReserveLow, p.ReserveHigh
	}
	return p.ReserveHigh, p.ReserveLow
}

// Snapshot renders the pool for storage.
func (p *Pool) Snapshot() model.PoolSnapshot {
	return model.PoolSnapshot{
		Pair:        p.Key.String(),
		TokenLow:    p.TokenLow.Hex(),
		TokenHigh:   p.TokenHigh.Hex(),
		Custody:     p.Custody.Hex(),
		ReserveLow:  FormatAmount(p.ReserveLow),
		ReserveHigh: FormatAmount(p.ReserveHigh),
		TotalShares: FormatAmount(p.TotalShares),
	}
}

// Position is one user's stake in one pool.
type Position struct {
	Shares     *uint256.Int
	RewardDebt *uint256.Int
}

func emptyPosition() Position {
	return Position{Shares: new(uint256.Int), RewardDebt: new(uint256.Int)}
}

func (p Position) clone() Position {
	return Position{Shares: cloneAmount(p.Shares), RewardDebt: cloneAmount(p.RewardDebt)}
}

type positionKey struct {
	pair PairKey
	user common.Address
}
