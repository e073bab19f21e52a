package pool

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/authority"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// rule is one precondition over resolved records and the error it maps to.
type rule struct {
	ok  bool
	err error
}

func check(ok bool, err error) rule {
	return rule{ok: ok, err: err}
}

// validate returns the error of the first failing rule.
func validate(rules ...rule) error {
	for _, r := range rules {
		if !r.ok {
			return r.err
		}
	}
	return nil
}

// resolved holds the records a pool operation reads, loaded once per
// invocation.
type resolved struct {
	pool     model.Pool
	signer   authority.Capability
	reserveX model.TokenAccount
	reserveY model.TokenAccount
	shares   model.Asset
}

func resolvePool(ctx context.Context, store ledger.Store, address common.Address) (resolved, error) {
	pool, err := store.GetPool(ctx, address)
	if err != nil {
		return resolved{}, fmt.Errorf("load pool %s: %w", address.Hex(), err)
	}
	reserveX, err := store.GetAccount(ctx, authority.AssociatedAccount(pool.Address, pool.AssetX))
	if err != nil {
		return resolved{}, fmt.Errorf("load reserve x: %w", err)
	}
	reserveY, err := store.GetAccount(ctx, authority.AssociatedAccount(pool.Address, pool.AssetY))
	if err != nil {
		return resolved{}, fmt.Errorf("load reserve y: %w", err)
	}
	shares, err := store.GetAsset(ctx, pool.ShareAsset)
	if err != nil {
		return resolved{}, fmt.Errorf("load share asset: %w", err)
	}

	signer := authority.PoolAuthority(pool.Seed, pool.AuthoritySalt)
	shareID := authority.ShareMint(pool.Address, pool.ShareSalt).Address()
	meta := map[string]string{"pool": pool.Address.Hex()}

	if err := validate(
		check(signer.Address() == pool.Address, errs.WithMetadata(errs.CodeUnauthorized, "pool address does not match its seeds", meta)),
		check(shareID == pool.ShareAsset, errs.WithMetadata(errs.CodeInvalidAsset, "share asset does not match pool", meta)),
		check(reserveX.Owner == pool.Address && reserveX.Asset == pool.AssetX, errs.WithMetadata(errs.CodeUnauthorized, "reserve x is not held by the pool authority", meta)),
		check(reserveY.Owner == pool.Address && reserveY.Asset == pool.AssetY, errs.WithMetadata(errs.CodeUnauthorized, "reserve y is not held by the pool authority", meta)),
		check(shares.MintAuthority == pool.Address, errs.WithMetadata(errs.CodeUnauthorized, "share asset is not minted by the pool authority", meta)),
	); err != nil {
		return resolved{}, err
	}

	return resolved{
		pool:     pool,
		signer:   signer,
		reserveX: reserveX,
		reserveY: reserveY,
		shares:   shares,
	}, nil
}

func (r resolved) snapshot() model.PoolSnapshot {
	return model.PoolSnapshot{
		Pool:        r.pool,
		ReserveX:    r.reserveX.Amount,
		ReserveY:    r.reserveY.Amount,
		ShareSupply: r.shares.Supply,
	}
}

func (r resolved) hasLiquidity() bool {
	return r.reserveX.Amount > 0 && r.reserveY.Amount > 0
}

// peekAccount reads owner's associated account for asset without creating
// it. A missing account reads as an empty one.
func peekAccount(ctx context.Context, store ledger.Store, owner, asset common.Address) (model.TokenAccount, error) {
	address := authority.AssociatedAccount(owner, asset)
	acct, err := store.GetAccount(ctx, address)
	switch {
	case err == nil:
		return acct, nil
	case errors.Is(err, errs.ErrNotFound):
		return model.TokenAccount{Address: address, Owner: owner, Asset: asset}, nil
	default:
		return model.TokenAccount{}, fmt.Errorf("load account %s: %w", address.Hex(), err)
	}
}

func insufficient(account model.TokenAccount, amount uint64) error {
	return errs.WithMetadata(errs.CodeInsufficientBalance, "balance too low", map[string]string{
		"account": account.Address.Hex(),
		"balance": fmt.Sprint(account.Amount),
		"amount":  fmt.Sprint(amount),
	})
}
