package config

import (
	"time"

	"github.com/spf13/pflag"
)

// TokenInfoConfig holds configuration for the token-info command.
type TokenInfoConfig struct {
	RPCURL       string
	Token        string
	Holder       string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadTokenInfo merges config file, environment variables, and flags into TokenInfoConfig.
func LoadTokenInfo(cfgFile string, flags *pflag.FlagSet) (TokenInfoConfig, error) {
	v, err := load(cfgFile, flags, map[string]interface{}{
		"max-retries":   5,
		"retry-backoff": 500 * time.Millisecond,
		"log-level":     "info",
	})
	if err != nil {
		return TokenInfoConfig{}, err
	}
	return TokenInfoConfig{
		RPCURL:       v.GetString("rpc"),
		Token:        v.GetString("token"),
		Holder:       v.GetString("holder"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}
