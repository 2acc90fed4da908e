package loyalty

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = common.HexToAddress("0xad")
	alice = common.HexToAddress("0xa1")
	bob   = common.HexToAddress("0xb2")
)

func TestMintBurn(t *testing.T) {
	c := New(admin, nil)

	first, err := c.Mint(alice)
	require.NoError(t, err)
	second, err := c.Mint(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)
	assert.Equal(t, uint64(2), c.BalanceOf(alice))

	err = c.Burn(bob, first)
	require.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, c.Burn(alice, first))
	_, ok := c.OwnerOf(first)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), c.BalanceOf(alice))

	require.ErrorIs(t, c.Burn(alice, first), ErrNotOwner)

	third, err := c.Mint(bob)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), third, "ids are not reused")

	_, err = c.Mint(common.Address{})
	require.ErrorIs(t, err, ErrInvalidHolder)
}

func TestTransferGate(t *testing.T) {
	c := New(admin, nil)
	id, err := c.Mint(alice)
	require.NoError(t, err)

	require.ErrorIs(t, c.Transfer(alice, bob, id), ErrTransferLocked)
	require.ErrorIs(t, c.SetTransferable(alice, true), ErrNotAdmin)
	assert.False(t, c.Transferable())

	require.NoError(t, c.SetTransferable(admin, true))
	require.ErrorIs(t, c.Transfer(bob, alice, id), ErrNotOwner)
	require.NoError(t, c.Transfer(alice, bob, id))

	owner, ok := c.OwnerOf(id)
	require.True(t, ok)
	assert.Equal(t, bob, owner)
	assert.Equal(t, uint64(0), c.BalanceOf(alice))
	assert.Equal(t, uint64(1), c.BalanceOf(bob))

	require.NoError(t, c.SetTransferable(admin, false))
	require.ErrorIs(t, c.Transfer(bob, alice, id), ErrTransferLocked)
	// Burning is never gated.
	require.NoError(t, c.Burn(bob, id))
}

func TestSnapshotRestore(t *testing.T) {
	c := New(admin, nil)
	_, _ = c.Mint(alice)
	id, _ := c.Mint(bob)
	_, _ = c.Mint(bob)
	require.NoError(t, c.Burn(bob, id))
	require.NoError(t, c.SetTransferable(admin, true))

	snap := c.Snapshot()
	assert.Equal(t, uint64(4), snap.NextID)
	assert.Len(t, snap.Owners, 2)

	restored := New(common.Address{}, nil)
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, uint64(1), restored.BalanceOf(bob))
	assert.True(t, restored.Transferable())

	next, err := restored.Mint(alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(4), next)

	snap.Owners[9] = alice.Hex()
	require.Error(t, New(admin, nil).Restore(snap))
}
