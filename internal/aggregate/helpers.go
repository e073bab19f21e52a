package aggregate

import (
	"time"

	"github.com/shopspring/decimal"
)

const ratioScale = 18

var yearSeconds = decimal.NewFromInt(int64(365 * 24 * time.Hour / time.Second))

// formatAmount renders base units as a fixed-point string with precision
// decimals.
func formatAmount(value decimal.Decimal, precision uint8) string {
	return value.Shift(-int32(precision)).StringFixed(int32(precision))
}

func computeFeeRates(feeX, feeY decimal.Decimal, tvlX, tvlY *decimal.Decimal) (*string, *string) {
	return computeRate(feeX, tvlX), computeRate(feeY, tvlY)
}

func computeRate(fee decimal.Decimal, tvl *decimal.Decimal) *string {
	if fee.IsZero() || tvl == nil || tvl.IsZero() {
		return nil
	}
	rate := fee.DivRound(*tvl, ratioScale).String()
	return &rate
}

// computeAPR annualizes the mean of the available per-side fee rates.
func computeAPR(feeRateX, feeRateY *string, windowSeconds uint64) *string {
	if windowSeconds == 0 {
		return nil
	}
	var rates []decimal.Decimal
	for _, rate := range []*string{feeRateX, feeRateY} {
		if rate == nil {
			continue
		}
		parsed, err := decimal.NewFromString(*rate)
		if err != nil {
			return nil
		}
		rates = append(rates, parsed)
	}
	if len(rates) == 0 {
		return nil
	}

	mean := decimal.Avg(rates[0], rates[1:]...)
	apr := mean.Mul(yearSeconds).DivRound(decimal.NewFromInt(int64(windowSeconds)), ratioScale).String()
	return &apr
}
