// Package ledger is an in-memory ERC20-style token ledger used as the
// value-transfer boundary of the exchange engine.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityFarm/internal/model"
)

const maxFeeBps = 10_000

var (
	// ErrInsufficientBalance is returned when a holder cannot cover a transfer.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInsufficientAllowance is returned when a spender's allowance cannot cover a transfer.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrSupplyOverflow is returned when minting would exceed 256 bits.
	ErrSupplyOverflow = errors.New("supply overflow")
	// ErrInvalidFee is returned for transfer fees above 100%.
	ErrInvalidFee = errors.New("invalid transfer fee")
)

// SupplySource reports the total supply of tokens that live elsewhere.
type SupplySource interface {
	TotalSupply(ctx context.Context, token common.Address) (*big.Int, error)
}

type allowanceKey struct {
	owner   common.Address
	spender common.Address
}

// Ledger holds balances, allowances and supplies for any number of tokens.
// It is safe for concurrent use.
type Ledger struct {
	mu         sync.RWMutex
	balances   map[common.Address]map[common.Address]*uint256.Int
	allowances map[common.Address]map[allowanceKey]*uint256.Int
	supply     map[common.Address]*uint256.Int
	feeBps     map[common.Address]uint64

	supplySource SupplySource
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithSupplySource makes TotalSupply consult src instead of local mint bookkeeping.
func WithSupplySource(src SupplySource) Option {
	return func(l *Ledger) {
		l.supplySource = src
	}
}

// New builds an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{
		balances:   make(map[common.Address]map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[allowanceKey]*uint256.Int),
		supply:     make(map[common.Address]*uint256.Int),
		feeBps:     make(map[common.Address]uint64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Mint credits amount of token to holder and grows the supply.
func (l *Ledger) Mint(token, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	supply, overflow := new(uint256.Int).AddOverflow(l.supplyOf(token), amount)
	if overflow {
		return fmt.Errorf("%w: token %s", ErrSupplyOverflow, token.Hex())
	}
	l.supply[token] = supply
	l.credit(token, to, amount)
	return nil
}

// Approve sets the allowance spender may move out of owner's balance.
func (l *Ledger) Approve(token, owner, spender common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	byKey, ok := l.allowances[token]
	if !ok {
		byKey = make(map[allowanceKey]*uint256.Int)
		l.allowances[token] = byKey
	}
	byKey[allowanceKey{owner: owner, spender: spender}] = new(uint256.Int).Set(amount)
}

// Allowance returns the remaining allowance of spender over owner's balance.
func (l *Ledger) Allowance(_ context.Context, token, owner, spender common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.allowanceOf(token, owner, spender)), nil
}

// SetTransferFee burns bps/10000 of every transfer of token, so recipients
// receive less than the requested amount.
func (l *Ledger) SetTransferFee(token common.Address, bps uint64) error {
	if bps > maxFeeBps {
		return fmt.Errorf("%w: %d bps", ErrInvalidFee, bps)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if bps == 0 {
		delete(l.feeBps, token)
		return nil
	}
	l.feeBps[token] = bps
	return nil
}

// TransferFrom moves amount from owner to recipient, spending the allowance
// owner granted to spender.
func (l *Ledger) TransferFrom(_ context.Context, token, spender, owner, recipient common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	allowance := l.allowanceOf(token, owner, spender)
	if allowance.Lt(amount) {
		return fmt.Errorf("%w: token %s owner %s spender %s has %s, needs %s",
			ErrInsufficientAllowance, token.Hex(), owner.Hex(), spender.Hex(), allowance.ToBig(), amount.ToBig())
	}
	if err := l.move(token, owner, recipient, amount); err != nil {
		return err
	}
	if amount.IsZero() {
		return nil
	}
	l.allowances[token][allowanceKey{owner: owner, spender: spender}] = new(uint256.Int).Sub(allowance, amount)
	return nil
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(_ context.Context, token, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(token, from, to, amount)
}

// BalanceOf returns holder's balance of token.
func (l *Ledger) BalanceOf(_ context.Context, token, holder common.Address) (*uint256.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.balanceOf(token, holder)), nil
}

// TotalSupply returns the supply of token, from the supply source when one is set.
func (l *Ledger) TotalSupply(ctx context.Context, token common.Address) (*uint256.Int, error) {
	if l.supplySource != nil {
		supply, err := l.supplySource.TotalSupply(ctx, token)
		if err != nil {
			return nil, fmt.Errorf("external supply %s: %w", token.Hex(), err)
		}
		value, overflow := uint256.FromBig(supply)
		if overflow || supply.Sign() < 0 {
			return nil, fmt.Errorf("external supply %s out of range: %s", token.Hex(), supply)
		}
		return value, nil
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.supplyOf(token)), nil
}

func (l *Ledger) move(token, from, to common.Address, amount *uint256.Int) error {
	balance := l.balanceOf(token, from)
	if balance.Lt(amount) {
		return fmt.Errorf("%w: token %s holder %s has %s, needs %s",
			ErrInsufficientBalance, token.Hex(), from.Hex(), balance.ToBig(), amount.ToBig())
	}
	if amount.IsZero() {
		return nil
	}

	received := new(uint256.Int).Set(amount)
	if bps := l.feeBps[token]; bps > 0 {
		fee := new(uint256.Int).Mul(amount, uint256.NewInt(bps))
		fee.Div(fee, uint256.NewInt(maxFeeBps))
		received.Sub(received, fee)
		l.supply[token] = new(uint256.Int).Sub(l.supplyOf(token), fee)
	}

	l.balances[token][from] = new(uint256.Int).Sub(balance, amount)
	l.credit(token, to, received)
	return nil
}

func (l *Ledger) credit(token, to common.Address, amount *uint256.Int) {
	byHolder, ok := l.balances[token]
	if !ok {
		byHolder = make(map[common.Address]*uint256.Int)
		l.balances[token] = byHolder
	}
	// Sum cannot overflow: every balance is bounded by the token's supply.
	byHolder[to] = new(uint256.Int).Add(l.balanceOf(token, to), amount)
}

func (l *Ledger) balanceOf(token, holder common.Address) *uint256.Int {
	if bal, ok := l.balances[token][holder]; ok {
		return bal
	}
	return new(uint256.Int)
}

func (l *Ledger) allowanceOf(token, owner, spender common.Address) *uint256.Int {
	if amount, ok := l.allowances[token][allowanceKey{owner: owner, spender: spender}]; ok {
		return amount
	}
	return new(uint256.Int)
}

func (l *Ledger) supplyOf(token common.Address) *uint256.Int {
	if supply, ok := l.supply[token]; ok {
		return supply
	}
	return new(uint256.Int)
}

// Snapshot exports the ledger in a stable order.
func (l *Ledger) Snapshot() model.LedgerSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var snap model.LedgerSnapshot
	for token, supply := range l.supply {
		snap.Supplies = append(snap.Supplies, model.SupplyEntry{
			Token:          token.Hex(),
			Supply:         supply.ToBig().String(),
			TransferFeeBps: l.feeBps[token],
		})
	}
	for token, byHolder := range l.balances {
		for holder, amount := range byHolder {
			if amount.IsZero() {
				continue
			}
			snap.Balances = append(snap.Balances, model.BalanceEntry{
				Token:  token.Hex(),
				Holder: holder.Hex(),
				Amount: amount.ToBig().String(),
			})
		}
	}
	for token, byKey := range l.allowances {
		for key, amount := range byKey {
			if amount.IsZero() {
				continue
			}
			snap.Allowances = append(snap.Allowances, model.AllowanceEntry{
				Token:   token.Hex(),
				Owner:   key.owner.Hex(),
				Spender: key.spender.Hex(),
				Amount:  amount.ToBig().String(),
			})
		}
	}

	sort.Slice(snap.Supplies, func(i, j int) bool { return snap.Supplies[i].Token < snap.Supplies[j].Token })
	sort.Slice(snap.Balances, func(i, j int) bool {
		if snap.Balances[i].Token != snap.Balances[j].Token {
			return snap.Balances[i].Token < snap.Balances[j].Token
		}
		return snap.Balances[i].Holder < snap.Balances[j].Holder
	})
	sort.Slice(snap.Allowances, func(i, j int) bool {
		a, b := snap.Allowances[i], snap.Allowances[j]
		if a.Token != b.Token {
			return a.Token < b.Token
		}
		if a.Owner != b.Owner {
			return a.Owner < b.Owner
		}
		return a.Spender < b.Spender
	})
	return snap
}

// Restore replaces the ledger contents with snap.
func (l *Ledger) Restore(snap model.LedgerSnapshot) error {
	balances := make(map[common.Address]map[common.Address]*uint256.Int)
	allowances := make(map[common.Address]map[allowanceKey]*uint256.Int)
	supply := make(map[common.Address]*uint256.Int)
	feeBps := make(map[common.Address]uint64)

	for _, entry := range snap.Supplies {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return err
		}
		amount, err := parseAmount(entry.Supply)
		if err != nil {
			return fmt.Errorf("supply %s: %w", entry.Token, err)
		}
		if entry.TransferFeeBps > maxFeeBps {
			return fmt.Errorf("%w: %d bps", ErrInvalidFee, entry.TransferFeeBps)
		}
		supply[token] = amount
		if entry.TransferFeeBps > 0 {
			feeBps[token] = entry.TransferFeeBps
		}
	}
	for _, entry := range snap.Balances {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return err
		}
		holder, err := parseAddress(entry.Holder)
		if err != nil {
			return err
		}
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			return fmt.Errorf("balance %s/%s: %w", entry.Token, entry.Holder, err)
		}
		if balances[token] == nil {
			balances[token] = make(map[common.Address]*uint256.Int)
		}
		balances[token][holder] = amount
	}
	for _, entry := range snap.Allowances {
		token, err := parseAddress(entry.Token)
		if err != nil {
			return err
		}
		owner, err := parseAddress(entry.Owner)
		if err != nil {
			return err
		}
		spender, err := parseAddress(entry.Spender)
		if err != nil {
			return err
		}
		amount, err := parseAmount(entry.Amount)
		if err != nil {
			return fmt.Errorf("allowance %s/%s: %w", entry.Token, entry.Owner, err)
		}
		if allowances[token] == nil {
			allowances[token] = make(map[allowanceKey]*uint256.Int)
		}
		allowances[token][allowanceKey{owner: owner, spender: spender}] = amount
	}

	l.mu.Lock()
	l.balances = balances
	l.allowances = allowances
	l.supply = supply
	l.feeBps = feeBps
	l.mu.Unlock()
	return nil
}

func parseAddress(input string) (common.Address, error) {
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid address: %s", input)
	}
	return common.HexToAddress(input), nil
}

func parseAmount(input string) (*uint256.Int, error) {
	value, ok := new(big.Int).SetString(input, 10)
	if !ok || value.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount: %s", input)
	}
	amount, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("amount exceeds 256 bits: %s", input)
	}
	return amount, nil
}
