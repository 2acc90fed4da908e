// Package sim replays JSONL scenarios against the exchange engine.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"liquidityFarm/internal/amm"
	"liquidityFarm/internal/ledger"
	"liquidityFarm/internal/loyalty"
	"liquidityFarm/internal/model"
	"liquidityFarm/internal/storage"
)

var (
	// ErrUnknownOp is returned for a step whose op is not recognized.
	ErrUnknownOp = errors.New("unknown op")
	// ErrStateDiverged is returned when the state store records more
	// applied steps than the checkpoint the run resumes from.
	ErrStateDiverged = errors.New("state store ahead of checkpoint")
)

// RunConfig holds runtime settings for a simulation.
type RunConfig struct {
	Name            string
	Steps           []model.Step
	RewardPerBlock  *uint256.Int
	RewardToken     common.Address
	Treasury        common.Address
	Operator        common.Address
	LoyaltyAdmin    common.Address
	StartBlock      uint64
	SnapshotPath    string
	SnapshotEnabled bool
}

// StepObserver is told about every applied step.
type StepObserver interface {
	ObserveStep(result model.StepResult)
}

// StateSyncer mirrors engine state after each step.
type StateSyncer interface {
	LoadState(ctx context.Context, name string) (applied, block uint64, ok bool, err error)
	UpsertPools(ctx context.Context, pools []model.PoolSnapshot, block uint64) error
	UpsertPositions(ctx context.Context, positions []model.PositionSnapshot) error
	SaveState(ctx context.Context, name string, applied, block uint64) error
}

// Deps are the optional collaborators of a Runner. Nil fields are skipped.
type Deps struct {
	Supply    ledger.SupplySource
	Events    []storage.EventSink
	Results   storage.ResultSink
	Notifiers []amm.Notifier
	Steps     StepObserver
	State     StateSyncer
}

// Summary reports what a run did.
type Summary struct {
	Resumed uint64
	Applied uint64
	Failed  uint64
	Events  uint64
	Block   uint64
}

// Runner applies scenario steps and checkpoints after each one.
type Runner struct {
	cfg        RunConfig
	deps       Deps
	logger     *zap.Logger
	checkpoint *storage.SnapshotStore

	ledger    *ledger.Ledger
	clock     *amm.ManualClock
	engine    *amm.Engine
	loyalty   *loyalty.Collection
	collector *collector
}

// NewRunner builds a Runner and the engine it drives.
func NewRunner(cfg RunConfig, deps Deps, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "simulate"
	}
	if cfg.LoyaltyAdmin == (common.Address{}) {
		cfg.LoyaltyAdmin = cfg.Treasury
	}

	var opts []ledger.Option
	if deps.Supply != nil {
		opts = append(opts, ledger.WithSupplySource(deps.Supply))
	}
	r := &Runner{
		cfg:        cfg,
		deps:       deps,
		logger:     logger,
		checkpoint: storage.NewSnapshotStore(cfg.SnapshotPath, cfg.SnapshotEnabled),
		ledger:     ledger.New(opts...),
		clock:      amm.NewManualClock(cfg.StartBlock),
		loyalty:    loyalty.New(cfg.LoyaltyAdmin, logger.Named("loyalty")),
		collector:  &collector{},
	}

	notifiers := amm.MultiNotifier{r.collector, amm.LogNotifier(logger.Named("events"))}
	notifiers = append(notifiers, deps.Notifiers...)
	engine, err := amm.NewEngine(amm.Config{
		RewardPerBlock: cfg.RewardPerBlock,
		RewardToken:    cfg.RewardToken,
		Treasury:       cfg.Treasury,
		Operator:       cfg.Operator,
		StartBlock:     cfg.StartBlock,
	}, r.ledger, r.clock, notifiers, logger.Named("engine"))
	if err != nil {
		return nil, fmt.Errorf("build engine: %w", err)
	}
	r.engine = engine
	return r, nil
}

// Engine exposes the engine being driven.
func (r *Runner) Engine() *amm.Engine {
	return r.engine
}

// Ledger exposes the token ledger being driven.
func (r *Runner) Ledger() *ledger.Ledger {
	return r.ledger
}

// Run applies every step not covered by the checkpoint. A failing step is
// recorded and skipped; sink and checkpoint failures abort the run.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var summary Summary

	start, err := r.resume(ctx)
	if err != nil {
		return summary, err
	}
	summary.Resumed = start
	if err := r.checkState(ctx, start); err != nil {
		return summary, err
	}

	if start >= uint64(len(r.cfg.Steps)) {
		r.logger.Info("nothing to apply", zap.Uint64("steps", uint64(len(r.cfg.Steps))))
		summary.Block = r.clock.Height()
		return summary, nil
	}

	for i := start; i < uint64(len(r.cfg.Steps)); i++ {
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		step := r.cfg.Steps[i]
		output, stepErr := r.apply(ctx, step)
		result := model.StepResult{
			Index:  i,
			Op:     step.Op,
			Block:  r.clock.Height(),
			OK:     stepErr == nil,
			Output: output,
		}
		if stepErr != nil {
			result.Error = stepErr.Error()
			summary.Failed++
			r.logger.Warn("step failed", zap.Uint64("index", i), zap.String("op", step.Op), zap.Error(stepErr))
		} else {
			r.logger.Debug("step applied", zap.Uint64("index", i), zap.String("op", step.Op), zap.Any("output", output))
		}

		events := r.collector.drain()
		for _, sink := range r.deps.Events {
			if err := sink.PutEventBatch(ctx, events); err != nil {
				return summary, fmt.Errorf("store events: %w", err)
			}
		}
		summary.Events += uint64(len(events))

		if r.deps.Results != nil {
			if err := r.deps.Results.PutStepResult(ctx, result); err != nil {
				return summary, fmt.Errorf("store step result: %w", err)
			}
		}
		if r.deps.Steps != nil {
			r.deps.Steps.ObserveStep(result)
		}

		if err := r.commit(ctx, i+1); err != nil {
			return summary, err
		}
		summary.Applied++
	}

	summary.Block = r.clock.Height()
	r.logger.Info("scenario complete",
		zap.Uint64("resumed_at", summary.Resumed),
		zap.Uint64("applied", summary.Applied),
		zap.Uint64("failed", summary.Failed),
		zap.Uint64("events", summary.Events),
		zap.Uint64("block", summary.Block),
	)
	return summary, nil
}

func (r *Runner) resume(ctx context.Context) (uint64, error) {
	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	if cp.Applied > uint64(len(r.cfg.Steps)) {
		return 0, fmt.Errorf("checkpoint covers %d steps, scenario has %d", cp.Applied, len(r.cfg.Steps))
	}

	if err := r.ledger.Restore(cp.Ledger); err != nil {
		return 0, fmt.Errorf("restore ledger: %w", err)
	}
	if err := r.engine.Restore(ctx, cp.Engine); err != nil {
		return 0, fmt.Errorf("restore engine: %w", err)
	}
	if err := r.loyalty.Restore(cp.Loyalty); err != nil {
		return 0, fmt.Errorf("restore loyalty: %w", err)
	}
	r.clock.Set(cp.Block)

	r.logger.Info("resume from checkpoint", zap.Uint64("applied", cp.Applied), zap.Uint64("block", cp.Block))
	return cp.Applied, nil
}

// checkState compares the state store's progress with the checkpoint. A
// store that is ahead would receive duplicate events, so the run stops; one
// that is behind is brought up to date by the next commit.
func (r *Runner) checkState(ctx context.Context, start uint64) error {
	if r.deps.State == nil {
		return nil
	}
	applied, block, ok, err := r.deps.State.LoadState(ctx, r.cfg.Name)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}
	if applied > start {
		return fmt.Errorf("%w: %s has %d steps applied, checkpoint has %d", ErrStateDiverged, r.cfg.Name, applied, start)
	}
	if applied != start || block != r.clock.Height() {
		r.logger.Warn("state store behind checkpoint",
			zap.String("name", r.cfg.Name),
			zap.Uint64("store_applied", applied),
			zap.Uint64("store_block", block),
			zap.Uint64("checkpoint_applied", start),
			zap.Uint64("checkpoint_block", r.clock.Height()),
		)
	}
	return nil
}

func (r *Runner) commit(ctx context.Context, applied uint64) error {
	snap, err := r.engine.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot engine: %w", err)
	}
	block := r.clock.Height()

	cp := model.Checkpoint{
		Applied: applied,
		Block:   block,
		Engine:  snap,
		Ledger:  r.ledger.Snapshot(),
		Loyalty: r.loyalty.Snapshot(),
	}
	if err := r.checkpoint.Save(cp); err != nil {
		return err
	}

	if r.deps.State == nil {
		return nil
	}
	if err := r.deps.State.UpsertPools(ctx, snap.Pools, block); err != nil {
		return fmt.Errorf("sync pools: %w", err)
	}
	if err := r.deps.State.UpsertPositions(ctx, snap.Positions); err != nil {
		return fmt.Errorf("sync positions: %w", err)
	}
	if err := r.deps.State.SaveState(ctx, r.cfg.Name, applied, block); err != nil {
		return fmt.Errorf("save run state: %w", err)
	}
	return nil
}
