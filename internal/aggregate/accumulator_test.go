package aggregate

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/model"
)

func swapEntry(t *testing.T, ts uint64, swap model.SwapEventData) model.JournalEntry {
	t.Helper()
	data, err := json.Marshal(swap)
	require.NoError(t, err)
	return model.JournalEntry{Pool: testPool, Operation: model.OpSwap, Timestamp: ts, Data: data}
}

func TestAccumulatorSwapVolumesAndFees(t *testing.T) {
	first := swapEntry(t, 100, model.SwapEventData{Side: "x", AmountIn: "100", AmountOut: "90", Fee: "1", ReserveX: "1100", ReserveY: "910"})
	acc := NewAccumulator(first, 0, 3600)
	require.NoError(t, acc.AddEntry(first))

	second := swapEntry(t, 200, model.SwapEventData{Side: "y", AmountIn: "50", AmountOut: "54", Fee: "2", ReserveX: "1046", ReserveY: "960"})
	require.NoError(t, acc.AddEntry(second))

	assert.Equal(t, uint64(2), acc.SwapCount)
	assert.True(t, acc.VolumeX.Equal(decimal.NewFromInt(154)))
	assert.True(t, acc.VolumeY.Equal(decimal.NewFromInt(140)))
	assert.True(t, acc.FeeX.Equal(decimal.NewFromInt(1)))
	assert.True(t, acc.FeeY.Equal(decimal.NewFromInt(2)))
	require.True(t, acc.HasReserves)
	assert.True(t, acc.ReserveX.Equal(decimal.NewFromInt(1046)))
	assert.Equal(t, uint64(200), acc.LastTS)
}

func TestAccumulatorKeepsLatestReserves(t *testing.T) {
	late := swapEntry(t, 300, model.SwapEventData{Side: "x", AmountIn: "10", AmountOut: "9", Fee: "0", ReserveX: "500", ReserveY: "400"})
	acc := NewAccumulator(late, 0, 3600)
	require.NoError(t, acc.AddEntry(late))

	early := swapEntry(t, 100, model.SwapEventData{Side: "x", AmountIn: "10", AmountOut: "9", Fee: "0", ReserveX: "1", ReserveY: "1"})
	require.NoError(t, acc.AddEntry(early))

	assert.True(t, acc.ReserveX.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, uint64(300), acc.LastTS)
}

func TestAccumulatorCountsLiquidityOperations(t *testing.T) {
	entry := model.JournalEntry{Pool: testPool, Operation: model.OpDeposit, Timestamp: 5}
	acc := NewAccumulator(entry, 0, 60)
	require.NoError(t, acc.AddEntry(entry))
	require.NoError(t, acc.AddEntry(model.JournalEntry{Pool: testPool, Operation: model.OpWithdraw, Timestamp: 6}))
	require.NoError(t, acc.AddEntry(model.JournalEntry{Pool: testPool, Operation: model.OpLock, Timestamp: 7}))

	assert.Equal(t, uint64(1), acc.DepositCount)
	assert.Equal(t, uint64(1), acc.WithdrawCount)
	assert.Zero(t, acc.SwapCount)
	assert.False(t, acc.HasReserves)
}

func TestAccumulatorRejectsBadSwap(t *testing.T) {
	bad := []model.SwapEventData{
		{Side: "z", AmountIn: "1", AmountOut: "1"},
		{Side: "x", AmountIn: "-1", AmountOut: "1"},
		{Side: "x", AmountIn: "1.5", AmountOut: "1"},
		{Side: "x", AmountIn: "abc", AmountOut: "1"},
	}
	for _, swap := range bad {
		entry := swapEntry(t, 1, swap)
		acc := NewAccumulator(entry, 0, 60)
		require.Error(t, acc.AddEntry(entry), "swap %+v", swap)
		assert.Zero(t, acc.SwapCount)
	}
}
