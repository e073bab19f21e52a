package ledger

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/authority"
	"cpamm/internal/errs"
	"cpamm/internal/model"
)

// Transfers moves balances between token accounts of one Store.
type Transfers struct {
	store Store
}

// NewTransfers binds a transfer adapter to a transaction's store.
func NewTransfers(store Store) *Transfers {
	return &Transfers{store: store}
}

// Transfer debits amount from one account and credits it to another. The
// signer must own the source account.
func (t *Transfers) Transfer(ctx context.Context, from, to common.Address, signer Signer, amount uint64) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}
	src, err := t.store.GetAccount(ctx, from)
	if err != nil {
		return fmt.Errorf("load source account: %w", err)
	}
	dst, err := t.store.GetAccount(ctx, to)
	if err != nil {
		return fmt.Errorf("load destination account: %w", err)
	}
	if src.Asset != dst.Asset {
		return errs.WithMetadata(errs.CodeInvalidAsset, "transfer between different assets", map[string]string{
			"from_asset": src.Asset.Hex(),
			"to_asset":   dst.Asset.Hex(),
		})
	}
	if signer == nil || signer.Address() != src.Owner {
		return errs.WithMetadata(errs.CodeUnauthorized, "signer does not own source account", map[string]string{
			"account": from.Hex(),
		})
	}
	if src.Amount < amount {
		return errs.WithMetadata(errs.CodeInsufficientBalance, "source balance too low", map[string]string{
			"account": from.Hex(),
			"balance": fmt.Sprint(src.Amount),
			"amount":  fmt.Sprint(amount),
		})
	}
	if from == to {
		return nil
	}
	if dst.Amount > math.MaxUint64-amount {
		return errs.ErrOverflow
	}

	src.Amount -= amount
	dst.Amount += amount
	if err := t.store.PutAccount(ctx, src); err != nil {
		return fmt.Errorf("store source account: %w", err)
	}
	if err := t.store.PutAccount(ctx, dst); err != nil {
		return fmt.Errorf("store destination account: %w", err)
	}
	return nil
}

// Burn destroys amount units from account and shrinks the asset supply. The
// signer must own the account.
func (t *Transfers) Burn(ctx context.Context, account common.Address, signer Signer, amount uint64) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}
	acct, err := t.store.GetAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	if signer == nil || signer.Address() != acct.Owner {
		return errs.WithMetadata(errs.CodeUnauthorized, "signer does not own account", map[string]string{
			"account": account.Hex(),
		})
	}
	if acct.Amount < amount {
		return errs.WithMetadata(errs.CodeInsufficientBalance, "burn exceeds balance", map[string]string{
			"account": account.Hex(),
			"balance": fmt.Sprint(acct.Amount),
			"amount":  fmt.Sprint(amount),
		})
	}
	asset, err := t.store.GetAsset(ctx, acct.Asset)
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.Supply < amount {
		return errs.New(errs.CodeInvalidCurveState, "burn exceeds asset supply")
	}

	acct.Amount -= amount
	asset.Supply -= amount
	if err := t.store.PutAccount(ctx, acct); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	if err := t.store.PutAsset(ctx, asset); err != nil {
		return fmt.Errorf("store asset: %w", err)
	}
	return nil
}

// MintTo creates amount new units in account. The signer must be the asset's
// mint authority.
func (t *Transfers) MintTo(ctx context.Context, account common.Address, signer Signer, amount uint64) error {
	if amount == 0 {
		return errs.ErrInvalidAmount
	}
	acct, err := t.store.GetAccount(ctx, account)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}
	asset, err := t.store.GetAsset(ctx, acct.Asset)
	if err != nil {
		return fmt.Errorf("load asset: %w", err)
	}
	if asset.MintAuthority == (common.Address{}) || signer == nil || signer.Address() != asset.MintAuthority {
		return errs.WithMetadata(errs.CodeUnauthorized, "signer is not the mint authority", map[string]string{
			"asset": asset.ID.Hex(),
		})
	}
	if asset.Supply > math.MaxUint64-amount || acct.Amount > math.MaxUint64-amount {
		return errs.ErrOverflow
	}

	acct.Amount += amount
	asset.Supply += amount
	if err := t.store.PutAccount(ctx, acct); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	if err := t.store.PutAsset(ctx, asset); err != nil {
		return fmt.Errorf("store asset: %w", err)
	}
	return nil
}

// Balance returns the amount held by account.
func (t *Transfers) Balance(ctx context.Context, account common.Address) (uint64, error) {
	acct, err := t.store.GetAccount(ctx, account)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// OpenAccount returns owner's associated account for asset, creating an
// empty one when it does not exist yet.
func (t *Transfers) OpenAccount(ctx context.Context, owner, asset common.Address) (model.TokenAccount, error) {
	address := authority.AssociatedAccount(owner, asset)
	acct, err := t.store.GetAccount(ctx, address)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return model.TokenAccount{}, err
	}
	if _, err := t.store.GetAsset(ctx, asset); err != nil {
		return model.TokenAccount{}, fmt.Errorf("load asset %s: %w", asset.Hex(), err)
	}
	acct = model.TokenAccount{Address: address, Owner: owner, Asset: asset}
	if err := t.store.PutAccount(ctx, acct); err != nil {
		return model.TokenAccount{}, fmt.Errorf("create account: %w", err)
	}
	return acct, nil
}
