// Package loyalty implements the non-fungible loyalty collection handed out
// to liquidity providers.
package loyalty

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

var (
	// ErrNotOwner is returned when a holder acts on a token it does not own.
	ErrNotOwner = errors.New("not token owner")
	// ErrNotAdmin is returned when a non-admin flips the transfer gate.
	ErrNotAdmin = errors.New("not admin")
	// ErrTransferLocked is returned for holder-to-holder transfers while the gate is closed.
	ErrTransferLocked = errors.New("transfers locked")
	// ErrInvalidHolder is returned for the null holder.
	ErrInvalidHolder = errors.New("invalid holder")
)

// Collection tracks token ownership. Token ids start at 1 and are never reused.
// Transfers between holders start locked.
type Collection struct {
	mu           sync.RWMutex
	admin        common.Address
	nextID       uint64
	transferable bool
	owners       map[uint64]common.Address
	balances     map[common.Address]uint64
	logger       *zap.Logger
}

// New creates an empty collection administered by admin.
func New(admin common.Address, logger *zap.Logger) *Collection {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection{
		admin:    admin,
		nextID:   1,
		owners:   make(map[uint64]common.Address),
		balances: make(map[common.Address]uint64),
		logger:   logger,
	}
}

// Mint issues a new token to to and returns its id.
func (c *Collection) Mint(to common.Address) (uint64, error) {
	if to == (common.Address{}) {
		return 0, fmt.Errorf("%w: mint to zero address", ErrInvalidHolder)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	id := c.nextID
	c.nextID++
	c.owners[id] = to
	c.balances[to]++
	c.logger.Debug("loyalty minted", zap.Uint64("token_id", id), zap.String("to", to.Hex()))
	return id, nil
}

// Burn destroys id, which holder must own.
func (c *Collection) Burn(holder common.Address, id uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkOwner(holder, id); err != nil {
		return err
	}
	delete(c.owners, id)
	c.debit(holder)
	c.logger.Debug("loyalty burned", zap.Uint64("token_id", id), zap.String("holder", holder.Hex()))
	return nil
}

// Transfer moves id from one holder to another. It fails while transfers are locked.
func (c *Collection) Transfer(from, to common.Address, id uint64) error {
	if to == (common.Address{}) {
		return fmt.Errorf("%w: transfer to zero address", ErrInvalidHolder)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.transferable {
		return ErrTransferLocked
	}
	if err := c.checkOwner(from, id); err != nil {
		return err
	}
	c.owners[id] = to
	c.debit(from)
	c.balances[to]++
	return nil
}

// SetTransferable opens or closes the transfer gate.
func (c *Collection) SetTransferable(caller common.Address, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if caller != c.admin {
		return fmt.Errorf("%w: %s", ErrNotAdmin, caller.Hex())
	}
	c.transferable = enabled
	c.logger.Info("loyalty transfer gate changed", zap.Bool("transferable", enabled))
	return nil
}

// OwnerOf returns the holder of id.
func (c *Collection) OwnerOf(id uint64) (common.Address, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	owner, ok := c.owners[id]
	return owner, ok
}

// BalanceOf returns how many tokens holder owns.
func (c *Collection) BalanceOf(holder common.Address) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.balances[holder]
}

// Transferable reports whether holder-to-holder transfers are open.
func (c *Collection) Transferable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transferable
}

// Snapshot exports the collection.
func (c *Collection) Snapshot() model.LoyaltySnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	owners := make(map[uint64]string, len(c.owners))
	for id, owner := range c.owners {
		owners[id] = owner.Hex()
	}
	return model.LoyaltySnapshot{
		Admin:        c.admin.Hex(),
		NextID:       c.nextID,
		Transferable: c.transferable,
		Owners:       owners,
	}
}

// Restore replaces the collection with snap. Balances are rebuilt from owners.
func (c *Collection) Restore(snap model.LoyaltySnapshot) error {
	if !common.IsHexAddress(snap.Admin) {
		return fmt.Errorf("invalid admin: %q", snap.Admin)
	}

	ids := make([]uint64, 0, len(snap.Owners))
	for id := range snap.Owners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	owners := make(map[uint64]common.Address, len(ids))
	balances := make(map[common.Address]uint64)
	for _, id := range ids {
		if id == 0 || id >= snap.NextID {
			return fmt.Errorf("token id %d outside issued range", id)
		}
		input := snap.Owners[id]
		if !common.IsHexAddress(input) {
			return fmt.Errorf("token %d: invalid owner %q", id, input)
		}
		owner := common.HexToAddress(input)
		owners[id] = owner
		balances[owner]++
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.admin = common.HexToAddress(snap.Admin)
	c.nextID = snap.NextID
	c.transferable = snap.Transferable
	c.owners = owners
	c.balances = balances
	return nil
}

func (c *Collection) checkOwner(holder common.Address, id uint64) error {
	owner, ok := c.owners[id]
	if !ok || owner != holder {
		return fmt.Errorf("%w: token %d, holder %s", ErrNotOwner, id, holder.Hex())
	}
	return nil
}

func (c *Collection) debit(holder common.Address) {
	if c.balances[holder] <= 1 {
		delete(c.balances, holder)
		return
	}
	c.balances[holder]--
}
