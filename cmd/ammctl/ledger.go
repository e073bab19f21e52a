package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/config"
	"cpamm/internal/ledger"
	"cpamm/internal/ledger/memory"
	"cpamm/internal/pool"
	"cpamm/internal/storage/postgres"
	"cpamm/internal/storage/sqlite"
)

// session bundles what an engine command needs.
type session struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   *zap.Logger
	ledger   ledger.Ledger
	pg       *postgres.Store
	engine   *pool.Engine
	registry *prometheus.Registry
	closers  []func()
}

func (s *session) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// openSession loads the shared config and opens the configured ledger.
func openSession(cmd *cobra.Command) (*session, error) {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return openSessionWith(cfg.Ledger, cfg.LogLevel)
}

func openSessionWith(ledgerCfg config.LedgerConfig, logLevel string) (*session, error) {
	logger, err := newLogger(logLevel)
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger, registry: prometheus.NewRegistry()}
	s.ctx, s.cancel = signalContext()
	s.closers = append(s.closers, func() { _ = logger.Sync() }, s.cancel)

	if err := s.openLedger(ledgerCfg); err != nil {
		s.Close()
		return nil, err
	}
	s.engine = pool.NewEngine(s.ledger, logger, pool.NewMetrics(s.registry))

	if ledgerCfg.Backend == config.BackendMemory && ledgerCfg.Genesis != "" {
		g, err := config.LoadGenesis(ledgerCfg.Genesis)
		if err != nil {
			s.Close()
			return nil, err
		}
		if _, err := applyGenesis(s.ctx, s.ledger, s.engine, g); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *session) openLedger(cfg config.LedgerConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	switch cfg.Backend {
	case config.BackendMemory:
		s.ledger = memory.New()
	case config.BackendSQLite:
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create ledger dir: %w", err)
			}
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, func() { _ = store.Close() })
		s.ledger = store
	case config.BackendPostgres:
		store, err := connectPostgres(s.ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		s.closers = append(s.closers, store.Close)
		s.ledger = store
		s.pg = store
	}

	s.logger.Debug("ledger open",
		zap.String("backend", cfg.Backend),
		zap.String("sqlite_path", cfg.SQLitePath),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)
	return nil
}

func connectPostgres(ctx context.Context, dsn string) (*postgres.Store, error) {
	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}
