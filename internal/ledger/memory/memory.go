// Package memory provides an in-process ledger. Transactions are serialized
// and buffered in an overlay that is merged only when the unit of work
// returns without error.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// Ledger keeps pools, assets and token accounts in maps.
type Ledger struct {
	mu       sync.Mutex
	pools    map[common.Address]model.Pool
	assets   map[common.Address]model.Asset
	accounts map[common.Address]model.TokenAccount
}

func New() *Ledger {
	return &Ledger{
		pools:    make(map[common.Address]model.Pool),
		assets:   make(map[common.Address]model.Asset),
		accounts: make(map[common.Address]model.TokenAccount),
	}
}

// RunInTx implements ledger.Ledger.
func (l *Ledger) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &overlay{
		base:     l,
		pools:    make(map[common.Address]model.Pool),
		assets:   make(map[common.Address]model.Asset),
		accounts: make(map[common.Address]model.TokenAccount),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	for k, v := range tx.pools {
		l.pools[k] = v
	}
	for k, v := range tx.assets {
		l.assets[k] = v
	}
	for k, v := range tx.accounts {
		l.accounts[k] = v
	}
	return nil
}

type overlay struct {
	base     *Ledger
	pools    map[common.Address]model.Pool
	assets   map[common.Address]model.Asset
	accounts map[common.Address]model.TokenAccount
}

func (o *overlay) GetPool(_ context.Context, address common.Address) (model.Pool, error) {
	if p, ok := o.pools[address]; ok {
		return p, nil
	}
	if p, ok := o.base.pools[address]; ok {
		return p, nil
	}
	return model.Pool{}, notFound("pool", address)
}

func (o *overlay) PutPool(_ context.Context, pool model.Pool) error {
	o.pools[pool.Address] = pool
	return nil
}

func (o *overlay) GetAsset(_ context.Context, id common.Address) (model.Asset, error) {
	if a, ok := o.assets[id]; ok {
		return a, nil
	}
	if a, ok := o.base.assets[id]; ok {
		return a, nil
	}
	return model.Asset{}, notFound("asset", id)
}

func (o *overlay) PutAsset(_ context.Context, asset model.Asset) error {
	o.assets[asset.ID] = asset
	return nil
}

func (o *overlay) GetAccount(_ context.Context, address common.Address) (model.TokenAccount, error) {
	if a, ok := o.accounts[address]; ok {
		return a, nil
	}
	if a, ok := o.base.accounts[address]; ok {
		return a, nil
	}
	return model.TokenAccount{}, notFound("account", address)
}

func (o *overlay) PutAccount(_ context.Context, account model.TokenAccount) error {
	o.accounts[account.Address] = account
	return nil
}

func notFound(kind string, address common.Address) error {
	return errs.WithMetadata(errs.CodeNotFound, fmt.Sprintf("%s not found", kind), map[string]string{
		"address": address.Hex(),
	})
}
