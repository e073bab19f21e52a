// Package sqlite provides a SQLite-backed ledger.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
	"cpamm/internal/storage/sqlite/migrations"
)

// Store persists ledger state in SQLite. Amounts are stored as decimal text
// so the full u64 range survives SQLite's signed integers.
type Store struct {
	sqlDB *sql.DB
}

// Open opens a SQLite ledger and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_txlock=immediate"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(context.Background(), sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RunInTx implements ledger.Ledger.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

// classify maps lock contention to a retryable conflict.
func classify(op string, err error) error {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() & 0xff {
		case sqlite3lib.SQLITE_BUSY, sqlite3lib.SQLITE_LOCKED:
			return errs.Wrap(errs.CodeConflict, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type txStore struct {
	tx *sql.Tx
}

func (s *txStore) GetPool(ctx context.Context, address common.Address) (model.Pool, error) {
	var (
		seed, assetX, assetY, shareAsset, admin string
		feeBps                                  uint16
		locked                                  bool
		authoritySalt, shareSalt                uint8
	)
	err := s.tx.QueryRowContext(ctx,
		`SELECT seed, asset_x, asset_y, share_asset, fee_bps, locked, authority_salt, share_salt, admin
		 FROM pools WHERE address = ?`,
		address.Hex(),
	).Scan(&seed, &assetX, &assetY, &shareAsset, &feeBps, &locked, &authoritySalt, &shareSalt, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Pool{}, notFound("pool", address)
	}
	if err != nil {
		return model.Pool{}, classify("get pool", err)
	}
	seedValue, err := strconv.ParseUint(seed, 10, 64)
	if err != nil {
		return model.Pool{}, fmt.Errorf("parse pool seed: %w", err)
	}
	return model.Pool{
		Address:       address,
		Seed:          seedValue,
		AssetX:        common.HexToAddress(assetX),
		AssetY:        common.HexToAddress(assetY),
		ShareAsset:    common.HexToAddress(shareAsset),
		FeeBps:        feeBps,
		Locked:        locked,
		AuthoritySalt: authoritySalt,
		ShareSalt:     shareSalt,
		Admin:         common.HexToAddress(admin),
	}, nil
}

func (s *txStore) PutPool(ctx context.Context, pool model.Pool) error {
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO pools (
		   address, seed, asset_x, asset_y, share_asset, fee_bps, locked, authority_salt, share_salt, admin
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   seed = excluded.seed,
		   asset_x = excluded.asset_x,
		   asset_y = excluded.asset_y,
		   share_asset = excluded.share_asset,
		   fee_bps = excluded.fee_bps,
		   locked = excluded.locked,
		   authority_salt = excluded.authority_salt,
		   share_salt = excluded.share_salt,
		   admin = excluded.admin`,
		pool.Address.Hex(),
		strconv.FormatUint(pool.Seed, 10),
		pool.AssetX.Hex(),
		pool.AssetY.Hex(),
		pool.ShareAsset.Hex(),
		pool.FeeBps,
		pool.Locked,
		pool.AuthoritySalt,
		pool.ShareSalt,
		pool.Admin.Hex(),
	)
	if err != nil {
		return classify("put pool", err)
	}
	return nil
}

func (s *txStore) GetAsset(ctx context.Context, id common.Address) (model.Asset, error) {
	var supply, mintAuthority string
	err := s.tx.QueryRowContext(ctx,
		`SELECT supply, mint_authority FROM assets WHERE id = ?`,
		id.Hex(),
	).Scan(&supply, &mintAuthority)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Asset{}, notFound("asset", id)
	}
	if err != nil {
		return model.Asset{}, classify("get asset", err)
	}
	supplyValue, err := strconv.ParseUint(supply, 10, 64)
	if err != nil {
		return model.Asset{}, fmt.Errorf("parse asset supply: %w", err)
	}
	return model.Asset{ID: id, Supply: supplyValue, MintAuthority: common.HexToAddress(mintAuthority)}, nil
}

func (s *txStore) PutAsset(ctx context.Context, asset model.Asset) error {
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO assets (id, supply, mint_authority) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   supply = excluded.supply,
		   mint_authority = excluded.mint_authority`,
		asset.ID.Hex(),
		strconv.FormatUint(asset.Supply, 10),
		asset.MintAuthority.Hex(),
	)
	if err != nil {
		return classify("put asset", err)
	}
	return nil
}

func (s *txStore) GetAccount(ctx context.Context, address common.Address) (model.TokenAccount, error) {
	var owner, asset, amount string
	err := s.tx.QueryRowContext(ctx,
		`SELECT owner, asset, amount FROM token_accounts WHERE address = ?`,
		address.Hex(),
	).Scan(&owner, &asset, &amount)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TokenAccount{}, notFound("account", address)
	}
	if err != nil {
		return model.TokenAccount{}, classify("get account", err)
	}
	amountValue, err := strconv.ParseUint(amount, 10, 64)
	if err != nil {
		return model.TokenAccount{}, fmt.Errorf("parse account amount: %w", err)
	}
	return model.TokenAccount{
		Address: address,
		Owner:   common.HexToAddress(owner),
		Asset:   common.HexToAddress(asset),
		Amount:  amountValue,
	}, nil
}

func (s *txStore) PutAccount(ctx context.Context, account model.TokenAccount) error {
	_, err := s.tx.ExecContext(ctx,
		`INSERT INTO token_accounts (address, owner, asset, amount) VALUES (?, ?, ?, ?)
		 ON CONFLICT(address) DO UPDATE SET
		   owner = excluded.owner,
		   asset = excluded.asset,
		   amount = excluded.amount`,
		account.Address.Hex(),
		account.Owner.Hex(),
		account.Asset.Hex(),
		strconv.FormatUint(account.Amount, 10),
	)
	if err != nil {
		return classify("put account", err)
	}
	return nil
}

func notFound(kind string, address common.Address) error {
	return errs.WithMetadata(errs.CodeNotFound, kind+" not found", map[string]string{
		"address": address.Hex(),
	})
}
