package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityFarm/internal/amm"
	"liquidityFarm/internal/chain"
	"liquidityFarm/internal/config"
	"liquidityFarm/internal/metrics"
	"liquidityFarm/internal/model"
	"liquidityFarm/internal/sim"
	"liquidityFarm/internal/storage"
	"liquidityFarm/internal/storage/postgres"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if len(cfg.Inputs) == 0 {
		return fmt.Errorf("at least one --in scenario is required")
	}

	var steps []model.Step
	for _, path := range cfg.Inputs {
		loaded, err := sim.ReadSteps(path)
		if err != nil {
			return err
		}
		steps = append(steps, loaded...)
	}

	rewardPerBlock, err := amm.ParseAmount(cfg.RewardPerBlock)
	if err != nil {
		return fmt.Errorf("reward-per-block: %w", err)
	}
	rewardToken, err := sim.ParseAddress("reward-token", cfg.RewardToken)
	if err != nil {
		return err
	}
	treasury, err := sim.ParseAddress("treasury", cfg.Treasury)
	if err != nil {
		return err
	}
	operator, err := sim.ParseAddress("operator", cfg.Operator)
	if err != nil {
		return err
	}
	var loyaltyAdmin common.Address
	if cfg.LoyaltyAdmin != "" {
		if loyaltyAdmin, err = sim.ParseAddress("loyalty-admin", cfg.LoyaltyAdmin); err != nil {
			return err
		}
	}

	name := cfg.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(cfg.Inputs[0]), filepath.Ext(cfg.Inputs[0]))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	eventsOut := storage.NewJsonlStorage(cfg.EventsOut)
	defer closeSink(logger, "events", eventsOut)
	deps := sim.Deps{
		Events: []storage.EventSink{eventsOut},
	}
	if cfg.ResultsOut != "" {
		resultsOut := storage.NewJsonlStorage(cfg.ResultsOut)
		defer closeSink(logger, "results", resultsOut)
		deps.Results = resultsOut
	}

	startBlock := cfg.StartBlock
	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL,
			chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
			chain.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		deps.Supply = chainClient
		if startBlock == 0 {
			head, err := chainClient.BlockNumber(ctx)
			if err != nil {
				return fmt.Errorf("latest block: %w", err)
			}
			startBlock = head
		}
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewObserver(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	deps.Notifiers = []amm.Notifier{observer}
	deps.Steps = observer

	if server := metrics.NewServer(cfg.MetricsAddr, registry, logger); server != nil {
		server.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Stop(shutdownCtx); err != nil {
				logger.Warn("metrics shutdown", zap.Error(err))
			}
		}()
	}

	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()

		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		deps.Events = append(deps.Events, store)
		deps.State = store
	}

	runner, err := sim.NewRunner(sim.RunConfig{
		Name:            name,
		Steps:           steps,
		RewardPerBlock:  rewardPerBlock,
		RewardToken:     rewardToken,
		Treasury:        treasury,
		Operator:        operator,
		LoyaltyAdmin:    loyaltyAdmin,
		StartBlock:      startBlock,
		SnapshotPath:    cfg.Snapshot,
		SnapshotEnabled: cfg.SnapshotEnabled,
	}, deps, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("name", name),
		zap.Strings("in", cfg.Inputs),
		zap.Int("steps", len(steps)),
		zap.String("reward_per_block", amm.FormatAmount(rewardPerBlock)),
		zap.String("reward_token", rewardToken.Hex()),
		zap.Uint64("start_block", startBlock),
		zap.String("events_out", cfg.EventsOut),
		zap.Bool("snapshot_enabled", cfg.SnapshotEnabled),
		zap.String("snapshot", cfg.Snapshot),
		zap.Bool("postgres", cfg.PGDSN != ""),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	logger.Info("simulate done",
		zap.Uint64("resumed", summary.Resumed),
		zap.Uint64("applied", summary.Applied),
		zap.Uint64("failed", summary.Failed),
		zap.Uint64("events", summary.Events),
		zap.Uint64("block", summary.Block),
	)
	return nil
}

func closeSink(logger *zap.Logger, name string, sink *storage.JsonlStorage) {
	if err := sink.Close(); err != nil {
		logger.Warn("close output", zap.String("sink", name), zap.Error(err))
	}
}
