package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

//go:embed schema.sql
var schemaSQL string

// Store provides Postgres persistence for the ledger and window metrics.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Migrate creates missing tables.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// RunInTx implements ledger.Ledger with a SERIALIZABLE transaction.
// Serialization failures surface as errs.CodeConflict.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	if s.pool == nil {
		return fmt.Errorf("store is not connected")
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected:
			return errs.Wrap(errs.CodeConflict, op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetPool(ctx context.Context, address common.Address) (model.Pool, error) {
	var (
		seed, assetX, assetY, shareAsset, admin string
		feeBps                                  int32
		locked                                  bool
		authoritySalt, shareSalt                int16
	)
	row := s.tx.QueryRow(ctx, `
		SELECT seed::text, asset_x, asset_y, share_asset, fee_bps, locked, authority_salt, share_salt, admin
		FROM pools WHERE address = $1
	`, address.Hex())
	if err := row.Scan(&seed, &assetX, &assetY, &shareAsset, &feeBps, &locked, &authoritySalt, &shareSalt, &admin); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Pool{}, notFound("pool", address)
		}
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
		FeeBps:        uint16(feeBps),
		Locked:        locked,
		AuthoritySalt: uint8(authoritySalt),
		ShareSalt:     uint8(shareSalt),
		Admin:         common.HexToAddress(admin),
	}, nil
}

func (s *txStore) PutPool(ctx context.Context, pool model.Pool) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO pools (
			address, seed, asset_x, asset_y, share_asset, fee_bps, locked, authority_salt, share_salt, admin, created_at, updated_at
		) VALUES ($1, $2::text::numeric, $3, $4, $5, $6, $7, $8, $9, $10, now(), now())
		ON CONFLICT (address)
		DO UPDATE SET
			seed = EXCLUDED.seed,
			asset_x = EXCLUDED.asset_x,
			asset_y = EXCLUDED.asset_y,
			share_asset = EXCLUDED.share_asset,
			fee_bps = EXCLUDED.fee_bps,
			locked = EXCLUDED.locked,
			authority_salt = EXCLUDED.authority_salt,
			share_salt = EXCLUDED.share_salt,
			admin = EXCLUDED.admin,
			updated_at = now()
	`,
		pool.Address.Hex(),
		strconv.FormatUint(pool.Seed, 10),
		pool.AssetX.Hex(),
		pool.AssetY.Hex(),
		pool.ShareAsset.Hex(),
		int32(pool.FeeBps),
		pool.Locked,
		int16(pool.AuthoritySalt),
		int16(pool.ShareSalt),
		pool.Admin.Hex(),
	)
	if err != nil {
		return classify("put pool", err)
	}
	return nil
}

func (s *txStore) GetAsset(ctx context.Context, id common.Address) (model.Asset, error) {
	var supply, mintAuthority string
	row := s.tx.QueryRow(ctx, `SELECT supply::text, mint_authority FROM assets WHERE id = $1`, id.Hex())
	if err := row.Scan(&supply, &mintAuthority); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Asset{}, notFound("asset", id)
		}
		return model.Asset{}, classify("get asset", err)
	}
	supplyValue, err := strconv.ParseUint(supply, 10, 64)
	if err != nil {
		return model.Asset{}, fmt.Errorf("parse asset supply: %w", err)
	}
	return model.Asset{ID: id, Supply: supplyValue, MintAuthority: common.HexToAddress(mintAuthority)}, nil
}

func (s *txStore) PutAsset(ctx context.Context, asset model.Asset) error {
	_, err := s.tx.Exec(ctx, `
		INSERT INTO assets (id, supply, mint_authority, updated_at)
		VALUES ($1, $2::text::numeric, $3, now())
		ON CONFLICT (id)
		DO UPDATE SET
			supply = EXCLUDED.supply,
			mint_authority = EXCLUDED.mint_authority,
			updated_at = now()
	`, asset.ID.Hex(), strconv.FormatUint(asset.Supply, 10), asset.MintAuthority.Hex())
	if err != nil {
		return classify("put asset", err)
	}
	return nil
}

func (s *txStore) GetAccount(ctx context.Context, address common.Address) (model.TokenAccount, error) {
	var owner, asset, amount string
	row := s.tx.QueryRow(ctx, `SELECT owner, asset, amount::text FROM token_accounts WHERE address = $1`, address.Hex())
	if err := row.Scan(&owner, &asset, &amount); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.TokenAccount{}, notFound("account", address)
		}
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
	_, err := s.tx.Exec(ctx, `
		INSERT INTO token_accounts (address, owner, asset, amount, updated_at)
		VALUES ($1, $2, $3, $4::text::numeric, now())
		ON CONFLICT (address)
		DO UPDATE SET
			owner = EXCLUDED.owner,
			asset = EXCLUDED.asset,
			amount = EXCLUDED.amount,
			updated_at = now()
	`, account.Address.Hex(), account.Owner.Hex(), account.Asset.Hex(), strconv.FormatUint(account.Amount, 10))
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
