package amm

import (
	"context"

	"go.uber.org/zap"

	"liquidityFarm/internal/model"
)

// Notifier receives engine events. Notify is called while the engine is
// locked; implementations must not call back into the engine.
type Notifier interface {
	Notify(ctx context.Context, event model.Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, event model.Event)

func (f NotifierFunc) Notify(ctx context.Context, event model.Event) {
	f(ctx, event)
}

// MultiNotifier fans an event out to every notifier in order.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, event model.Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, event)
		}
	}
}

// LogNotifier writes each event to logger at debug level.
func LogNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NotifierFunc(func(_ context.Context, event model.Event) {
		logger.Debug("engine event",
			zap.String("event", event.Name),
			zap.Uint64("block", event.Block),
			zap.String("pair", event.Pair),
			zap.Any("data", event.Data),
		)
	})
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, model.Event) {}
