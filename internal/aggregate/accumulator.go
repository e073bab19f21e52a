package aggregate

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"cpamm/internal/model"
)

// Accumulator holds aggregate values for a pool window. Amounts are in base
// units.
type Accumulator struct {
	PoolAddress   string
	WindowStart   uint64
	WindowEnd     uint64
	SwapCount     uint64
	DepositCount  uint64
	WithdrawCount uint64
	VolumeX       decimal.Decimal
	VolumeY       decimal.Decimal
	FeeX          decimal.Decimal
	FeeY          decimal.Decimal
	LastTS        uint64

	// Reserves after the latest swap of the window, when one was journaled.
	ReserveX    decimal.Decimal
	ReserveY    decimal.Decimal
	HasReserves bool
}

func NewAccumulator(entry model.JournalEntry, windowStart, windowEnd uint64) *Accumulator {
	return &Accumulator{
		PoolAddress: entry.Pool,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		LastTS:      entry.Timestamp,
	}
}

func (a *Accumulator) AddEntry(entry model.JournalEntry) error {
	switch entry.Operation {
	case model.OpSwap:
		var swap model.SwapEventData
		if err := json.Unmarshal(entry.Data, &swap); err != nil {
			return fmt.Errorf("decode swap: %w", err)
		}
		if err := a.applySwap(swap, entry.Timestamp >= a.LastTS); err != nil {
			return err
		}
	case model.OpDeposit:
		a.DepositCount++
	case model.OpWithdraw:
		a.WithdrawCount++
	default:
		return nil
	}
	if entry.Timestamp >= a.LastTS {
		a.LastTS = entry.Timestamp
	}
	return nil
}

func (a *Accumulator) applySwap(swap model.SwapEventData, latest bool) error {
	amountIn, err := parseAmount(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseAmount(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseAmount(swap.Fee)
	if err != nil {
		return err
	}

	switch swap.Side {
	case "x":
		a.VolumeX = a.VolumeX.Add(amountIn)
		a.VolumeY = a.VolumeY.Add(amountOut)
		a.FeeX = a.FeeX.Add(fee)
	case "y":
		a.VolumeY = a.VolumeY.Add(amountIn)
		a.VolumeX = a.VolumeX.Add(amountOut)
		a.FeeY = a.FeeY.Add(fee)
	default:
		return fmt.Errorf("invalid swap side: %q", swap.Side)
	}

	if latest && swap.ReserveX != "" && swap.ReserveY != "" {
		reserveX, err := parseAmount(swap.ReserveX)
		if err != nil {
			return err
		}
		reserveY, err := parseAmount(swap.ReserveY)
		if err != nil {
			return err
		}
		a.ReserveX, a.ReserveY, a.HasReserves = reserveX, reserveY, true
	}

	a.SwapCount++
	return nil
}

func parseAmount(value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", value, err)
	}
	if parsed.IsNegative() || !parsed.Equal(parsed.Truncate(0)) {
		return decimal.Zero, fmt.Errorf("invalid amount %q", value)
	}
	return parsed, nil
}
