package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/curve"
	"cpamm/internal/errs"
)

func TestQuoteSwapMatchesExecution(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	f.fund(trader, 100, 0)
	req := SwapRequest{Pool: f.pool.Address, User: trader, Side: curve.SideX, AmountIn: 100}

	quote, err := f.engine.QuoteSwap(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), f.snapshot().ReserveX, "quote must not move reserves")

	executed, err := f.engine.Swap(f.ctx, req)
	require.NoError(t, err)
	assert.Equal(t, quote, executed)
}

func TestQuoteSwapIgnoresBalance(t *testing.T) {
	f := newFixture(t, 1000, 1000, 1000, 30)
	quote, err := f.engine.QuoteSwap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, AmountIn: 100})
	require.NoError(t, err)
	assert.Equal(t, uint64(90), quote.AmountOut)

	require.NoError(t, f.engine.Lock(f.ctx, f.pool.Address, admin))
	_, err = f.engine.QuoteSwap(f.ctx, SwapRequest{Pool: f.pool.Address, User: trader, AmountIn: 100})
	require.ErrorIs(t, err, errs.ErrPoolLocked)
}

func TestQuoteWithdraw(t *testing.T) {
	f := newFixture(t, 1000, 2000, 500, 30)

	quote, err := f.engine.QuoteWithdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 50})
	require.NoError(t, err)
	assert.Equal(t, uint64(100), quote.AmountX)
	assert.Equal(t, uint64(200), quote.AmountY)
	assert.Equal(t, uint64(500), f.snapshot().ShareSupply)

	_, err = f.engine.QuoteWithdraw(f.ctx, WithdrawRequest{Pool: f.pool.Address, User: lp, Shares: 501})
	require.ErrorIs(t, err, errs.ErrInvalidAmount)
}
