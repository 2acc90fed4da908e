package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityFarm/internal/chain"
	"liquidityFarm/internal/config"
	"liquidityFarm/internal/sim"
)

func runTokenInfo(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadTokenInfo(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	token, err := sim.ParseAddress("token", cfg.Token)
	if err != nil {
		return err
	}
	var holder *common.Address
	if cfg.Holder != "" {
		addr, err := sim.ParseAddress("holder", cfg.Holder)
		if err != nil {
			return err
		}
		holder = &addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := chain.NewClient(ctx, cfg.RPCURL,
		chain.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
		chain.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer client.Close()

	info, err := client.TokenInfo(ctx, token, holder)
	if err != nil {
		return err
	}
	logger.Debug("token info", zap.String("token", token.Hex()), zap.String("symbol", info.Symbol))

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}
