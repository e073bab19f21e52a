package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"cpamm/internal/authority"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/ledger/memory"
	"cpamm/internal/model"
)

const testSeed = 42

var (
	assetX = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	assetY = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	minter = common.HexToAddress("0x0000000000000000000000000000000000000f01")
	admin  = common.HexToAddress("0x0000000000000000000000000000000000000ad1")
	lp     = common.HexToAddress("0x0000000000000000000000000000000000001001")
	trader = common.HexToAddress("0x0000000000000000000000000000000000001002")
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	ledger *memory.Ledger
	engine *Engine
	pool   model.Pool
}

// newFixture initializes a pool and, when shares is non-zero, seeds it with
// a first deposit of reserveX/reserveY made by lp.
func newFixture(t *testing.T, reserveX, reserveY, shares uint64, fee uint16) *fixture {
	t.Helper()
	f := &fixture{t: t, ctx: context.Background(), ledger: memory.New()}
	f.engine = NewEngine(f.ledger, zaptest.NewLogger(t), nil)

	err := f.ledger.RunInTx(f.ctx, func(ctx context.Context, store ledger.Store) error {
		for _, id := range []common.Address{assetX, assetY} {
			if err := store.PutAsset(ctx, model.Asset{ID: id, MintAuthority: minter}); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	f.pool, err = f.engine.Initialize(f.ctx, InitializeRequest{
		Seed:   testSeed,
		AssetX: assetX,
		AssetY: assetY,
		FeeBps: fee,
		Admin:  admin,
	})
	require.NoError(t, err)

	if shares > 0 {
		f.fund(lp, reserveX, reserveY)
		_, err = f.engine.Deposit(f.ctx, DepositRequest{
			Pool:   f.pool.Address,
			User:   lp,
			Shares: shares,
			MaxX:   reserveX,
			MaxY:   reserveY,
		})
		require.NoError(t, err)
	}
	return f
}

func (f *fixture) fund(owner common.Address, x, y uint64) {
	f.t.Helper()
	err := f.ledger.RunInTx(f.ctx, func(ctx context.Context, store ledger.Store) error {
		tr := ledger.NewTransfers(store)
		for _, leg := range []struct {
			asset  common.Address
			amount uint64
		}{{assetX, x}, {assetY, y}} {
			acct, err := tr.OpenAccount(ctx, owner, leg.asset)
			if err != nil {
				return err
			}
			if leg.amount == 0 {
				continue
			}
			if err := tr.MintTo(ctx, acct.Address, ledger.User(minter), leg.amount); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(f.t, err)
}

func (f *fixture) balance(owner, asset common.Address) uint64 {
	f.t.Helper()
	var amount uint64
	err := f.ledger.RunInTx(f.ctx, func(ctx context.Context, store ledger.Store) error {
		acct, err := store.GetAccount(ctx, authority.AssociatedAccount(owner, asset))
		if errors.Is(err, errs.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		amount = acct.Amount
		return nil
	})
	require.NoError(f.t, err)
	return amount
}

func (f *fixture) snapshot() model.PoolSnapshot {
	f.t.Helper()
	snap, err := f.engine.Snapshot(f.ctx, f.pool.Address)
	require.NoError(f.t, err)
	return snap
}

func (f *fixture) reserveAccount(asset common.Address) common.Address {
	return authority.AssociatedAccount(f.pool.Address, asset)
}

// drainReserve zeroes one reserve account directly, leaving share supply
// untouched.
func (f *fixture) drainReserve(asset common.Address) {
	f.t.Helper()
	err := f.ledger.RunInTx(f.ctx, func(ctx context.Context, store ledger.Store) error {
		acct, err := store.GetAccount(ctx, f.reserveAccount(asset))
		if err != nil {
			return err
		}
		acct.Amount = 0
		return store.PutAccount(ctx, acct)
	})
	require.NoError(f.t, err)
}

// recordingLedger counts account writes, including those of units of work
// that are later rolled back.
type recordingLedger struct {
	inner  ledger.Ledger
	writes int
}

func (l *recordingLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	return l.inner.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		return fn(ctx, recordingStore{Store: store, ledger: l})
	})
}

type recordingStore struct {
	ledger.Store
	ledger *recordingLedger
}

func (s recordingStore) PutAccount(ctx context.Context, account model.TokenAccount) error {
	s.ledger.writes++
	return s.Store.PutAccount(ctx, account)
}

// faultLedger fails any write to one account, after the rest of the unit of
// work has already run.
type faultLedger struct {
	inner  ledger.Ledger
	failOn common.Address
}

func (l *faultLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, store ledger.Store) error) error {
	return l.inner.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		return fn(ctx, faultStore{Store: store, failOn: l.failOn})
	})
}

type faultStore struct {
	ledger.Store
	failOn common.Address
}

var errInjected = errors.New("injected write failure")

func (s faultStore) PutAccount(ctx context.Context, account model.TokenAccount) error {
	if account.Address == s.failOn {
		return errInjected
	}
	return s.Store.PutAccount(ctx, account)
}

func (f *fixture) faultyEngine(failOn common.Address) *Engine {
	return NewEngine(&faultLedger{inner: f.ledger, failOn: failOn}, zaptest.NewLogger(f.t), nil)
}

func TestSnapshotUnknownPool(t *testing.T) {
	f := newFixture(t, 0, 0, 0, 30)
	_, err := f.engine.Snapshot(f.ctx, common.HexToAddress("0xdead"))
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestValidateReturnsFirstFailure(t *testing.T) {
	err := validate(
		check(true, errs.ErrOverflow),
		check(false, errs.ErrPoolLocked),
		check(false, errs.ErrInvalidAmount),
	)
	require.ErrorIs(t, err, errs.ErrPoolLocked)
	require.NoError(t, validate(check(true, errs.ErrPoolLocked)))
}

func TestRejectedOperationsWriteNoAccounts(t *testing.T) {
	f := newFixture(t, 1000, 2000, 500, 30)
	newcomer := common.HexToAddress("0x0000000000000000000000000000000000001003")
	rec := &recordingLedger{inner: f.ledger}
	engine := NewEngine(rec, zaptest.NewLogger(t), nil)

	_, err := engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: newcomer, AmountIn: 10})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)

	_, err = engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: newcomer, Shares: 1})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)

	_, err = engine.Deposit(f.ctx, DepositRequest{Pool: f.pool.Address, User: newcomer, Shares: 1, MaxX: 10, MaxY: 10})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)

	require.Zero(t, rec.writes, "validation must not open accounts")
}
