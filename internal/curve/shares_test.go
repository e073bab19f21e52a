package curve

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/errs"
)

func TestWithdrawAmountsFromShares(t *testing.T) {
	got, err := WithdrawAmountsFromShares(1000, 2000, 500, 50, Precision)
	require.NoError(t, err)
	assert.Equal(t, PairAmounts{X: 100, Y: 200}, got)
}

func TestWithdrawAmountsTruncate(t *testing.T) {
	got, err := WithdrawAmountsFromShares(1001, 999, 3, 1, Precision)
	require.NoError(t, err)
	assert.Equal(t, PairAmounts{X: 333, Y: 333}, got)
}

func TestWithdrawFullSupplyIsExact(t *testing.T) {
	reserves := []PairAmounts{
		{X: 1, Y: 1},
		{X: 1001, Y: 7},
		{X: math.MaxUint64, Y: math.MaxUint64 - 1},
	}
	for _, r := range reserves {
		got, err := WithdrawAmountsFromShares(r.X, r.Y, 12345, 12345, Precision)
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
}

func TestWithdrawAmountsValidation(t *testing.T) {
	_, err := WithdrawAmountsFromShares(10, 10, 0, 1, Precision)
	require.ErrorIs(t, err, errs.ErrNoLiquidityInPool)

	_, err = WithdrawAmountsFromShares(10, 10, 5, 0, Precision)
	require.ErrorIs(t, err, errs.ErrInvalidAmount)

	_, err = WithdrawAmountsFromShares(10, 10, 5, 6, Precision)
	require.ErrorIs(t, err, errs.ErrInvalidAmount)

	_, err = WithdrawAmountsFromShares(10, 10, 5, 1, 40)
	require.ErrorIs(t, err, errs.ErrInvalidCurveState)
}

func TestDepositAmountsRoundUp(t *testing.T) {
	got, err := DepositAmountsFromShares(1001, 999, 3, 1, Precision)
	require.NoError(t, err)
	assert.Equal(t, PairAmounts{X: 334, Y: 333}, got)

	_, err = DepositAmountsFromShares(10, 10, 0, 1, Precision)
	require.ErrorIs(t, err, errs.ErrNoLiquidityInPool)
}

func TestDepositAmountsOverflow(t *testing.T) {
	_, err := DepositAmountsFromShares(math.MaxUint64, 1, 1, 2, Precision)
	require.ErrorIs(t, err, errs.ErrOverflow)
}
