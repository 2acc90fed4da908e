package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "AMMD"

// Default engine accounts used when none are configured.
const (
	DefaultTreasury = "0x0000000000000000000000000000000000007ea5"
	DefaultOperator = "0x0000000000000000000000000000000000000e9a"
)

// SimulateConfig holds configuration values for the simulate command.
type SimulateConfig struct {
	Inputs          []string
	EventsOut       string
	ResultsOut      string
	Snapshot        string
	SnapshotEnabled bool
	RewardPerBlock  string
	RewardToken     string
	Treasury        string
	Operator        string
	LoyaltyAdmin    string
	StartBlock      uint64
	PGDSN           string
	RPCURL          string
	MetricsAddr     string
	MaxRetries      int
	RetryBackoff    time.Duration
	LogLevel        string
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"events-out":       "./data/events.jsonl",
		"results-out":      "./data/results.jsonl",
		"snapshot":         "./data/snapshot.json",
		"snapshot-enabled": true,
		"reward-per-block": "0",
		"treasury":         DefaultTreasury,
		"operator":         DefaultOperator,
		"max-retries":      5,
		"retry-backoff":    500 * time.Millisecond,
		"log-level":        "info",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Inputs:          getStringSlice(v, "in"),
		EventsOut:       v.GetString("events-out"),
		ResultsOut:      v.GetString("results-out"),
		Snapshot:        v.GetString("snapshot"),
		SnapshotEnabled: v.GetBool("snapshot-enabled"),
		RewardPerBlock:  v.GetString("reward-per-block"),
		RewardToken:     v.GetString("reward-token"),
		Treasury:        v.GetString("treasury"),
		Operator:        v.GetString("operator"),
		LoyaltyAdmin:    v.GetString("loyalty-admin"),
		StartBlock:      v.GetUint64("start-block"),
		PGDSN:           v.GetString("pg-dsn"),
		RPCURL:          v.GetString("rpc"),
		MetricsAddr:     v.GetString("metrics-addr"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		LogLevel:        v.GetString("log-level"),
	}
	return cfg, nil
}

// load builds a viper instance over defaults, env, flags and an optional
// config file. Without cfgFile, ./config.* is read when present.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
