package storage

import (
	"context"

	"liquidityFarm/internal/model"
)

// EventSink receives engine events in commit order.
type EventSink interface {
	PutEventBatch(ctx context.Context, events []model.Event) error
}

// ResultSink receives per-step outcomes of a simulation run.
type ResultSink interface {
	PutStepResult(ctx context.Context, result model.StepResult) error
}
