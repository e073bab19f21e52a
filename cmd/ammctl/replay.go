package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/config"
	"cpamm/internal/replay"
	"cpamm/internal/storage"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Script == "" {
		return fmt.Errorf("script path is required")
	}

	s, err := openSessionWith(cfg.Ledger, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer s.Close()

	journal := storage.NewJsonlJournal(cfg.Journal, cfg.Errors)
	runner := replay.NewRunner(replay.RunConfig{
		Script:            cfg.Script,
		FromLine:          cfg.FromLine,
		ToLine:            cfg.ToLine,
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, s.engine, journal, s.logger)

	s.logger.Info("replay start",
		zap.String("script", cfg.Script),
		zap.String("backend", cfg.Ledger.Backend),
		zap.Uint64("from", cfg.FromLine),
		zap.Uint64("to", cfg.ToLine),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.String("journal", cfg.Journal),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	summary, runErr := runner.Run(s.ctx)
	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, s.registry); err != nil {
			s.logger.Warn("write metrics file", zap.Error(err))
		}
	}
	if runErr != nil {
		return runErr
	}
	return printJSON(cmd, summary)
}
