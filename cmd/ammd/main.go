package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "ammd",
		Short:        "Constant-product exchange with liquidity mining",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a JSONL scenario against the exchange engine",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().StringSlice("in", nil, "scenario JSONL files, applied in order (comma-separated)")
	simulateCmd.Flags().String("name", "", "run name used for state tracking (defaults to the first input)")
	simulateCmd.Flags().String("events-out", "./data/events.jsonl", "output events JSONL")
	simulateCmd.Flags().String("results-out", "./data/results.jsonl", "output step results JSONL (empty disables)")
	simulateCmd.Flags().String("snapshot", "./data/snapshot.json", "snapshot file path")
	simulateCmd.Flags().Bool("snapshot-enabled", true, "enable snapshot checkpoints")
	simulateCmd.Flags().String("reward-per-block", "0", "reward tokens emitted per block")
	simulateCmd.Flags().String("reward-token", "", "reward token address")
	simulateCmd.Flags().String("treasury", "", "treasury address funding rewards")
	simulateCmd.Flags().String("operator", "", "engine custody address (approval spender)")
	simulateCmd.Flags().String("loyalty-admin", "", "loyalty collection admin (defaults to treasury)")
	simulateCmd.Flags().Uint64("start-block", 0, "initial block height, 0 uses the chain head when --rpc is set")
	simulateCmd.Flags().String("pg-dsn", "", "optional Postgres DSN for state mirroring")
	simulateCmd.Flags().String("rpc", "", "optional RPC URL used for external token supply")
	simulateCmd.Flags().String("metrics-addr", "", "optional Prometheus listen address (e.g. :9102)")
	simulateCmd.Flags().Int("max-retries", 5, "maximum RPC retry attempts")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial RPC retry backoff")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Compute the swap output for given reserves",
		RunE:  runQuote,
	}

	quoteCmd.Flags().String("reserve-in", "", "reserve of the input token")
	quoteCmd.Flags().String("reserve-out", "", "reserve of the output token")
	quoteCmd.Flags().String("amount-in", "", "amount of the input token")
	quoteCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(quoteCmd)

	tokenInfoCmd := &cobra.Command{
		Use:   "token-info",
		Short: "Read ERC20 metadata and supply over RPC",
		RunE:  runTokenInfo,
	}

	tokenInfoCmd.Flags().String("rpc", "", "RPC URL")
	tokenInfoCmd.Flags().String("token", "", "token address")
	tokenInfoCmd.Flags().String("holder", "", "optional holder address for a balance lookup")
	tokenInfoCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	tokenInfoCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	tokenInfoCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(tokenInfoCmd)

	return root
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
