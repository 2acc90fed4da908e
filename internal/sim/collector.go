package sim

import (
	"context"
	"sync"

	"liquidityFarm/internal/model"
)

// collector buffers the events of the step being applied.
type collector struct {
	mu     sync.Mutex
	events []model.Event
}

func (c *collector) Notify(_ context.Context, event model.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

// drain returns and clears the buffered events.
func (c *collector) drain() []model.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	events := c.events
	c.events = nil
	return events
}
