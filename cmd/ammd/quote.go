package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityFarm/internal/amm"
	"liquidityFarm/internal/config"
)

func runQuote(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadQuote(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	reserveIn, err := amm.ParseAmount(cfg.ReserveIn)
	if err != nil {
		return fmt.Errorf("reserve-in: %w", err)
	}
	reserveOut, err := amm.ParseAmount(cfg.ReserveOut)
	if err != nil {
		return fmt.Errorf("reserve-out: %w", err)
	}
	amountIn, err := amm.ParseAmount(cfg.AmountIn)
	if err != nil {
		return fmt.Errorf("amount-in: %w", err)
	}

	out, err := amm.GetAmountOut(amountIn, reserveIn, reserveOut)
	if err != nil {
		return err
	}

	logger.Debug("quote",
		zap.String("amount_in", amm.FormatAmount(amountIn)),
		zap.String("reserve_in", amm.FormatAmount(reserveIn)),
		zap.String("reserve_out", amm.FormatAmount(reserveOut)),
	)
	fmt.Fprintln(cmd.OutOrStdout(), amm.FormatAmount(out))
	return nil
}
