package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"cpamm/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "ammctl",
		Short:        "Constant-product liquidity pool engine",
		SilenceUsage: true,
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "config file path")
	pf.String("backend", config.BackendSQLite, "ledger backend (memory, sqlite, postgres)")
	pf.String("sqlite-path", "./data/ledger.db", "SQLite ledger path")
	pf.String("pg-dsn", "", "Postgres DSN")
	pf.String("genesis", "", "genesis YAML applied to a fresh memory ledger")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")

	genesisCmd := &cobra.Command{
		Use:   "genesis <file>",
		Short: "Create assets, balances and pools from a genesis file",
		Args:  cobra.ExactArgs(1),
		RunE:  runGenesis,
	}
	root.AddCommand(genesisCmd)

	root.AddCommand(newPoolCmd())
	root.AddCommand(newSwapCmd(), newWithdrawCmd(), newDepositCmd(), newQuoteCmd())

	replayCmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply a JSONL operation script and journal the outcomes",
		RunE:  runReplay,
	}
	replayCmd.Flags().String("script", "", "operation script JSONL")
	replayCmd.Flags().Uint64("from", 0, "first script line (1-based, inclusive)")
	replayCmd.Flags().Uint64("to", 0, "last script line (inclusive), 0 means end of file")
	replayCmd.Flags().Uint64("batch-size", 500, "lines per batch")
	replayCmd.Flags().String("journal", "./data/journal.jsonl", "executed operations JSONL")
	replayCmd.Flags().String("errors", "./data/journal_errors.jsonl", "rejected operations JSONL")
	replayCmd.Flags().String("checkpoint", "./data/replay_checkpoint.json", "checkpoint file path")
	replayCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	replayCmd.Flags().Int("max-retries", 5, "maximum retry attempts on transaction conflicts")
	replayCmd.Flags().Duration("retry-backoff", 200*time.Millisecond, "initial retry backoff")
	replayCmd.Flags().String("metrics-file", "", "write engine metrics in Prometheus text format")
	root.AddCommand(replayCmd)

	aggregateCmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Aggregate the journal into pool window metrics",
		RunE:  runAggregate,
	}
	aggregateCmd.Flags().String("in", "./data/journal.jsonl", "input journal JSONL")
	aggregateCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	aggregateCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	aggregateCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	aggregateCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	root.AddCommand(aggregateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
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

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
