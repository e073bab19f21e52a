// Package ledger defines the transactional boundary pool operations run in
// and the transfer adapter that moves balances between token accounts.
package ledger

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/model"
)

// Signer is the authorizing party of a ledger mutation.
type Signer interface {
	Address() common.Address
}

// User is a signer backed by an externally owned address.
type User common.Address

// Address implements Signer.
func (u User) Address() common.Address {
	return common.Address(u)
}

// Store gives raw read/write access to ledger state inside one transaction.
// Get methods return errs.ErrNotFound for missing records.
type Store interface {
	GetPool(ctx context.Context, address common.Address) (model.Pool, error)
	PutPool(ctx context.Context, pool model.Pool) error
	GetAsset(ctx context.Context, id common.Address) (model.Asset, error)
	PutAsset(ctx context.Context, asset model.Asset) error
	GetAccount(ctx context.Context, address common.Address) (model.TokenAccount, error)
	PutAccount(ctx context.Context, account model.TokenAccount) error
}

// Ledger runs units of work atomically: either every write made through the
// Store passed to fn becomes visible, or none does.
type Ledger interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}
