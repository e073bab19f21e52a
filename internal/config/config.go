package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Ledger backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// LedgerConfig selects and locates the ledger backend.
type LedgerConfig struct {
	Backend    string
	SQLitePath string
	PGDSN      string
	Genesis    string
}

// Validate checks that the selected backend has what it needs.
func (c LedgerConfig) Validate() error {
	switch c.Backend {
	case BackendMemory:
		return nil
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required")
		}
	case BackendPostgres:
		if c.PGDSN == "" {
			return fmt.Errorf("pg dsn is required")
		}
	default:
		return fmt.Errorf("unknown ledger backend: %q", c.Backend)
	}
	return nil
}

// Config holds configuration for single pool operations.
type Config struct {
	Ledger   LedgerConfig
	LogLevel string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Ledger:   ledgerConfig(v),
		LogLevel: v.GetString("log-level"),
	}, nil
}

// ReplayConfig holds configuration for the replay command.
type ReplayConfig struct {
	Ledger            LedgerConfig
	Script            string
	FromLine          uint64
	ToLine            uint64
	BatchSize         uint64
	Journal           string
	Errors            string
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	MetricsFile       string
	LogLevel          string
}

// LoadReplay merges config file, environment variables, and flags into ReplayConfig.
func LoadReplay(cfgFile string, flags *pflag.FlagSet) (ReplayConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"batch-size":         uint64(500),
		"journal":            "./data/journal.jsonl",
		"errors":             "./data/journal_errors.jsonl",
		"checkpoint":         "./data/replay_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      200 * time.Millisecond,
	})
	if err != nil {
		return ReplayConfig{}, err
	}

	return ReplayConfig{
		Ledger:            ledgerConfig(v),
		Script:            v.GetString("script"),
		FromLine:          v.GetUint64("from"),
		ToLine:            v.GetUint64("to"),
		BatchSize:         v.GetUint64("batch-size"),
		Journal:           v.GetString("journal"),
		Errors:            v.GetString("errors"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		MetricsFile:       v.GetString("metrics-file"),
		LogLevel:          v.GetString("log-level"),
	}, nil
}

// newViper builds a viper instance bound to flags, AMM_ environment
// variables and an optional config file. A missing ./config.* is not an error.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", BackendSQLite)
	v.SetDefault("sqlite-path", "./data/ledger.db")
	v.SetDefault("log-level", "info")
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

func ledgerConfig(v *viper.Viper) LedgerConfig {
	return LedgerConfig{
		Backend:    strings.ToLower(strings.TrimSpace(v.GetString("backend"))),
		SQLitePath: v.GetString("sqlite-path"),
		PGDSN:      v.GetString("pg-dsn"),
		Genesis:    v.GetString("genesis"),
	}
}
