package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func simulateFlags() *pflag.FlagSet {
	flags := pflag.NewFlagSet("simulate", pflag.ContinueOnError)
	flags.StringSlice("in", nil, "")
	flags.String("reward-per-block", "0", "")
	flags.Uint64("start-block", 0, "")
	flags.Duration("retry-backoff", 500*time.Millisecond, "")
	return flags
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}

func TestLoadSimulateDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadSimulate("", simulateFlags())
	if err != nil {
		t.Fatalf("LoadSimulate: %v", err)
	}
	if cfg.Treasury != DefaultTreasury || cfg.Operator != DefaultOperator {
		t.Fatalf("unexpected accounts: %+v", cfg)
	}
	if !cfg.SnapshotEnabled || cfg.MaxRetries != 5 || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.RetryBackoff != 500*time.Millisecond {
		t.Fatalf("retry backoff = %s", cfg.RetryBackoff)
	}
}

func TestLoadSimulateFlagsAndEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("AMMD_PG_DSN", "postgres://local/test")
	t.Setenv("AMMD_REWARD_TOKEN", "0x9999999999999999999999999999999999999999")

	flags := simulateFlags()
	if err := flags.Parse([]string{"--in", "a.jsonl, b.jsonl", "--reward-per-block", "1000", "--start-block", "42"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadSimulate("", flags)
	if err != nil {
		t.Fatalf("LoadSimulate: %v", err)
	}
	if len(cfg.Inputs) != 2 || cfg.Inputs[0] != "a.jsonl" || cfg.Inputs[1] != "b.jsonl" {
		t.Fatalf("inputs = %v", cfg.Inputs)
	}
	if cfg.RewardPerBlock != "1000" || cfg.StartBlock != 42 {
		t.Fatalf("unexpected flag values: %+v", cfg)
	}
	if cfg.PGDSN != "postgres://local/test" || cfg.RewardToken != "0x9999999999999999999999999999999999999999" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadQuoteConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quote.yaml")
	content := "reserve-in: \"1000\"\nreserve-out: \"2000\"\namount-in: \"10\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadQuote(path, nil)
	if err != nil {
		t.Fatalf("LoadQuote: %v", err)
	}
	if cfg.ReserveIn != "1000" || cfg.ReserveOut != "2000" || cfg.AmountIn != "10" {
		t.Fatalf("unexpected quote config: %+v", cfg)
	}
}

func TestLoadMissingConfigFile(t *testing.T) {
	if _, err := LoadTokenInfo(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
