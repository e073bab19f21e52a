package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/errs"
)

func TestWithdrawProportional(t *testing.T) {
	f := newFixture(t, 1000, 2000, 500, 30)

	res, err := f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 50, MinX: 100, MinY: 200})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), res.AmountX)
	assert.Equal(t, uint64(200), res.AmountY)
	assert.Equal(t, uint64(450), res.ShareSupply)

	assert.Equal(t, uint64(100), f.balance(lp, assetX))
	assert.Equal(t, uint64(200), f.balance(lp, assetY))
	assert.Equal(t, uint64(450), f.balance(lp, f.pool.ShareAsset))

	snap := f.snapshot()
	assert.Equal(t, uint64(900), snap.ReserveX)
	assert.Equal(t, uint64(1800), snap.ReserveY)
	assert.Equal(t, uint64(450), snap.ShareSupply)
}

func TestWithdrawFullRedemption(t *testing.T) {
	f := newFixture(t, 1001, 7, 3, 30)

	res, err := f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 3})
	require.NoError(t, err)
	assert.Equal(t, uint64(1001), res.AmountX)
	assert.Equal(t, uint64(7), res.AmountY)

	snap := f.snapshot()
	assert.Zero(t, snap.ReserveX)
	assert.Zero(t, snap.ReserveY)
	assert.Zero(t, snap.ShareSupply)

	_, err = f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 1})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance, "lp holds no shares after full redemption")
}

func TestWithdrawRejectionsLeaveStateUntouched(t *testing.T) {
	cases := []struct {
		name string
		req  WithdrawRequest
		lock bool
		want error
	}{
		{name: "slippage on x", req: WithdrawRequest{User: lp, Shares: 50, MinX: 101}, want: errs.ErrSlippageExceeded},
		{name: "slippage on y", req: WithdrawRequest{User: lp, Shares: 50, MinY: 201}, want: errs.ErrSlippageExceeded},
		{name: "zero shares", req: WithdrawRequest{User: lp}, want: errs.ErrInvalidAmount},
		{name: "more shares than held", req: WithdrawRequest{User: trader, Shares: 1}, want: errs.ErrInsufficientBalance},
		{name: "locked", req: WithdrawRequest{User: lp}, lock: true, want: errs.ErrPoolLocked},
		{name: "shareless caller", req: WithdrawRequest{User: trader, Shares: 5, MinX: 5000}, want: errs.ErrInsufficientBalance},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 1000, 2000, 500, 30)
			if tc.lock {
				require.NoError(t, f.engine.Lock(f.ctx, f.pool.Address, admin))
			}
			tc.req.Pool = f.pool.Address

			_, err := f.engine.Withdraw(f.ctx, tc.req)
			require.ErrorIs(t, err, tc.want)

			assert.Equal(t, uint64(500), f.balance(lp, f.pool.ShareAsset))
			assert.Zero(t, f.balance(lp, assetX))
			snap := f.snapshot()
			assert.Equal(t, uint64(1000), snap.ReserveX)
			assert.Equal(t, uint64(2000), snap.ReserveY)
			assert.Equal(t, uint64(500), snap.ShareSupply)
		})
	}
}

func TestWithdrawEmptyPool(t *testing.T) {
	f := newFixture(t, 0, 0, 0, 30)
	_, err := f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: trader, Shares: 5})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)
}

func TestWithdrawChecksSharesBeforeLiquidity(t *testing.T) {
	f := newFixture(t, 1000, 2000, 500, 30)
	f.drainReserve(assetX)

	_, err := f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: trader, Shares: 5})
	require.ErrorIs(t, err, errs.ErrInsufficientBalance)

	_, err = f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 5})
	require.ErrorIs(t, err, errs.ErrNoLiquidityInPool)
	assert.Equal(t, uint64(500), f.balance(lp, f.pool.ShareAsset))
}

func TestWithdrawRollsBackWhenSecondPayoutFails(t *testing.T) {
	f := newFixture(t, 1000, 2000, 500, 30)

	faulty := f.faultyEngine(f.reserveAccount(assetY))
	_, err := faulty.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 50})
	require.ErrorIs(t, err, errInjected)

	assert.Zero(t, f.balance(lp, assetX), "x payout must be rolled back")
	assert.Equal(t, uint64(500), f.balance(lp, f.pool.ShareAsset))
	snap := f.snapshot()
	assert.Equal(t, uint64(1000), snap.ReserveX)
	assert.Equal(t, uint64(500), snap.ShareSupply)
}

func TestWithdrawAfterSwapsKeepsShareValue(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 100, 0)

	_, err := f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, AmountIn: 100})
	require.NoError(t, err)

	res, err := f.engine.Withdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 1000})
	require.NoError(t, err)
	assert.Equal(t, uint64(1100), res.AmountX)
	assert.Equal(t, uint64(910), res.AmountY)
}
