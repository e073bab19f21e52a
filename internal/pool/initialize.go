package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/authority"
	"cpamm/internal/curve"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// InitializeRequest creates the pool derived from Seed. A zero Admin leaves
// the pool without lock control.
type InitializeRequest struct {
	Seed   uint64
	AssetX common.Address
	AssetY common.Address
	FeeBps uint16
	Admin  common.Address
}

// Initialize creates a pool record, its share asset and both reserve
// accounts.
func (e *Engine) Initialize(ctx context.Context, req InitializeRequest) (model.Pool, error) {
	var created model.Pool
	err := e.execute(ctx, model.OpInitialize, func(ctx context.Context, store ledger.Store) error {
		if err := validate(
			check(req.FeeBps < curve.FeeDenominator, errs.WithMetadata(errs.CodeInvalidFee, "fee must be below 10000 bps", map[string]string{
				"fee_bps": fmt.Sprint(req.FeeBps),
			})),
			check(req.AssetX != req.AssetY, errs.WithMetadata(errs.CodeInvalidAsset, "pool assets must differ", map[string]string{
				"asset": req.AssetX.Hex(),
			})),
		); err != nil {
			return err
		}

		poolAuth, poolSalt, err := authority.FindPoolAuthority(req.Seed)
		if err != nil {
			return err
		}
		address := poolAuth.Address()
		switch _, err := store.GetPool(ctx, address); {
		case err == nil:
			return errs.WithMetadata(errs.CodeAlreadyInitialized, "pool already initialized", map[string]string{
				"pool": address.Hex(),
				"seed": fmt.Sprint(req.Seed),
			})
		case !errors.Is(err, errs.ErrNotFound):
			return fmt.Errorf("load pool: %w", err)
		}

		for _, id := range []common.Address{req.AssetX, req.AssetY} {
			if _, err := store.GetAsset(ctx, id); err != nil {
				if errors.Is(err, errs.ErrNotFound) {
					return errs.WithMetadata(errs.CodeInvalidAsset, "pool asset does not exist", map[string]string{"asset": id.Hex()})
				}
				return fmt.Errorf("load asset: %w", err)
			}
		}

		shareMint, shareSalt, err := authority.FindShareMint(address)
		if err != nil {
			return err
		}
		if err := store.PutAsset(ctx, model.Asset{ID: shareMint.Address(), MintAuthority: address}); err != nil {
			return fmt.Errorf("create share asset: %w", err)
		}

		tr := ledger.NewTransfers(store)
		for _, id := range []common.Address{req.AssetX, req.AssetY} {
			if _, err := tr.OpenAccount(ctx, address, id); err != nil {
				return fmt.Errorf("open reserve: %w", err)
			}
		}

		created = model.Pool{
			Address:       address,
			Seed:          req.Seed,
			AssetX:        req.AssetX,
			AssetY:        req.AssetY,
			ShareAsset:    shareMint.Address(),
			FeeBps:        req.FeeBps,
			AuthoritySalt: poolSalt,
			ShareSalt:     shareSalt,
			Admin:         req.Admin,
		}
		return store.PutPool(ctx, created)
	})
	if err != nil {
		e.logger.Warn("initialize rejected",
			zap.Uint64("seed", req.Seed),
			zap.String("code", string(errs.CodeOf(err))),
			zap.Error(err),
		)
		return model.Pool{}, err
	}

	e.logger.Info("pool initialized",
		zap.String("pool", created.Address.Hex()),
		zap.Uint64("seed", created.Seed),
		zap.String("asset_x", created.AssetX.Hex()),
		zap.String("asset_y", created.AssetY.Hex()),
		zap.Uint16("fee_bps", created.FeeBps),
	)
	return created, nil
}

// Lock stops deposits, swaps and withdrawals on the pool. Only the admin
// may call it.
func (e *Engine) Lock(ctx context.Context, pool, admin common.Address) error {
	return e.setLocked(ctx, pool, admin, true)
}

// Unlock reverses Lock.
func (e *Engine) Unlock(ctx context.Context, pool, admin common.Address) error {
	return e.setLocked(ctx, pool, admin, false)
}

func (e *Engine) setLocked(ctx context.Context, address, admin common.Address, locked bool) error {
	op := model.OpUnlock
	if locked {
		op = model.OpLock
	}
	err := e.execute(ctx, op, func(ctx context.Context, store ledger.Store) error {
		p, err := store.GetPool(ctx, address)
		if err != nil {
			return fmt.Errorf("load pool %s: %w", address.Hex(), err)
		}
		if err := validate(
			check(p.HasAdmin() && p.Admin == admin, errs.WithMetadata(errs.CodeUnauthorized, "caller is not the pool admin", map[string]string{
				"pool":   address.Hex(),
				"caller": admin.Hex(),
			})),
		); err != nil {
			return err
		}
		p.Locked = locked
		return store.PutPool(ctx, p)
	})
	if err != nil {
		e.logRejected(op, address, admin, err)
		return err
	}
	e.logger.Info("pool lock changed", zap.String("pool", address.Hex()), zap.Bool("locked", locked))
	return nil
}
