package pool

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/curve"
	"cpamm/internal/errs"
)

func TestSwapWorkedExample(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 100, 0)

	res, err := f.engine.Swap(f.ctx, SwapRequest{
		Pool:         f.pool.Address,
		User:         trader,
		Side:         curve.SideX,
		AmountIn:     100,
		MinAmountOut: 90,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(90), res.AmountOut)
	assert.Equal(t, uint64(1), res.Fee)
	assert.Equal(t, assetX, res.AssetIn)
	assert.Equal(t, assetY, res.AssetOut)

	assert.Equal(t, uint64(0), f.balance(trader, assetX))
	assert.Equal(t, uint64(90), f.balance(trader, assetY))

	snap := f.snapshot()
	assert.Equal(t, uint64(1100), snap.ReserveX)
	assert.Equal(t, uint64(910), snap.ReserveY)
	assert.Equal(t, uint64(1000), snap.ShareSupply)
	assert.Equal(t, snap.ReserveX, res.ReserveX)
	assert.Equal(t, snap.ReserveY, res.ReserveY)
}

func TestSwapSideY(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 0, 100)

	res, err := f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideY, AmountIn: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(90), res.AmountOut)
	assert.Equal(t, uint64(90), f.balance(trader, assetX))

	snap := f.snapshot()
	assert.Equal(t, uint64(910), snap.ReserveX)
	assert.Equal(t, uint64(1100), snap.ReserveY)
}

func TestSwapRejectionsLeaveStateUntouched(t *testing.T) {
	cases := []struct {
		name   string
		funded uint64
		req    func(f *fixture) SwapRequest
		want   error
	}{
		{
			name:   "slippage",
			funded: 100,
			req: func(f *fixture) SwapRequest {
				return SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100, MinAmountOut: 91}
			},
			want: errs.ErrSlippageExceeded,
		},
		{
			name:   "zero amount",
			funded: 100,
			req: func(f *fixture) SwapRequest {
				return SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX}
			},
			want: errs.ErrInvalidAmount,
		},
		{
			name:   "output truncates to zero",
			funded: 100,
			req: func(f *fixture) SwapRequest {
				return SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 1}
			},
			want: errs.ErrInvalidAmount,
		},
		{
			name:   "balance too low",
			funded: 50,
			req: func(f *fixture) SwapRequest {
				return SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100}
			},
			want: errs.ErrInsufficientBalance,
		},
		{
			name:   "unknown side",
			funded: 100,
			req: func(f *fixture) SwapRequest {
				return SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.Side(7), AmountIn: 100}
			},
			want: errs.ErrInvalidAsset,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, 1000, 1000, 1000, 30)
			f.fund(trader, tc.funded, 0)

			_, err := f.engine.Swap(f.ctx, tc.req(f))
			require.ErrorIs(t, err, tc.want)

			assert.Equal(t, tc.funded, f.balance(trader, assetX))
			assert.Equal(t, uint64(0), f.balance(trader, assetY))
			snap := f.snapshot()
			assert.Equal(t, uint64(1000), snap.ReserveX)
			assert.Equal(t, uint64(1000), snap.ReserveY)
		})
	}
}

func TestSwapLockedPool(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 100, 0)
	require.NoError(t, f.engine.Lock(f.ctx, f.pool.Address, admin))

	// A locked pool wins over every other failing precondition.
	_, err := f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX})
	require.ErrorIs(t, err, errs.ErrPoolLocked)

	_, err = f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100})
	require.ErrorIs(t, err, errs.ErrPoolLocked)
	assert.Equal(t, uint64(100), f.balance(trader, assetX))

	require.NoError(t, f.engine.Unlock(f.ctx, f.pool.Address, admin))
	_, err = f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100})
	require.NoError(t, err)
}

func TestSwapEmptyPool(t *testing.T) {
	f := newFixture(t, 0, 0, 0, 30)
	f.fund(trader, 100, 0)

	_, err := f.engine.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100})
	require.ErrorIs(t, err, errs.ErrNoLiquidityInPool)
}

func TestSwapRollsBackDepositWhenPayoutFails(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 100, 0)

	faulty := f.faultyEngine(f.reserveAccount(assetY))
	_, err := faulty.Swap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100})
	require.ErrorIs(t, err, errInjected)

	assert.Equal(t, uint64(100), f.balance(trader, assetX), "input transfer must be rolled back")
	snap := f.snapshot()
	assert.Equal(t, uint64(1000), snap.ReserveX)
	assert.Equal(t, uint64(1000), snap.ReserveY)
}

func TestSwapSequenceConservesBalances(t *testing.T) {
	f := newFixture(t, 1_000_000, 3_000_000, 1_000_000, 25)
	f.fund(trader, 10_000_000, 10_000_000)

	rng := rand.New(rand.NewSource(11))
	k := func(p curve.PairAmounts) *uint256.Int {
		return new(uint256.Int).Mul(uint256.NewInt(p.X), uint256.NewInt(p.Y))
	}
	prev := curve.PairAmounts{X: 1_000_000, Y: 3_000_000}

	for i := 0; i < 200; i++ {
		side := curve.Side(rng.Intn(2))
		_, err := f.engine.Swap(f.ctx, SwapRequest{
			Pool:     f.pool.Address,
			User:     trader,
			Side:     side,
			AmountIn: uint64(rng.Int63n(50_000)) + 1,
		})
		if err != nil {
			require.True(t, errors.Is(err, errs.ErrInvalidAmount), "unexpected error: %v", err)
			continue
		}

		snap := f.snapshot()
		cur := curve.PairAmounts{X: snap.ReserveX, Y: snap.ReserveY}
		require.False(t, k(cur).Lt(k(prev)), "k decreased at step %d", i)
		prev = cur

		require.Equal(t, uint64(11_000_000), snap.ReserveX+f.balance(trader, assetX))
		require.Equal(t, uint64(13_000_000), snap.ReserveY+f.balance(trader, assetY))
	}
}
