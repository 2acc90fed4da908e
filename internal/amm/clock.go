package amm

import (
	"context"
	"sync/atomic"
)

// ManualClock is a BlockSource advanced explicitly by its owner.
type ManualClock struct {
	height atomic.Uint64
}

// NewManualClock starts a clock at height.
func NewManualClock(height uint64) *ManualClock {
	c := &ManualClock{}
	c.height.Store(height)
	return c
}

func (c *ManualClock) BlockNumber(context.Context) (uint64, error) {
	return c.height.Load(), nil
}

// Advance moves the clock forward and returns the new height.
func (c *ManualClock) Advance(blocks uint64) uint64 {
	return c.height.Add(blocks)
}

// Set jumps to height.
func (c *ManualClock) Set(height uint64) {
	c.height.Store(height)
}

// Height returns the current height.
func (c *ManualClock) Height() uint64 {
	return c.height.Load()
}
