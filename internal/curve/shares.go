package curve

import (
	"fmt"

	"cpamm/internal/errs"
)

// WithdrawAmountsFromShares returns the reserve slice redeemed by burning
// shares out of supply. Amounts truncate toward zero, so burning the whole
// supply returns both reserves exactly.
func WithdrawAmountsFromShares(x, y, supply, shares uint64, precision uint8) (PairAmounts, error) {
	if err := checkShareInputs(supply, shares, precision); err != nil {
		return PairAmounts{}, err
	}

	outX, err := mulDiv(x, shares, supply, false)
	if err != nil {
		return PairAmounts{}, err
	}
	outY, err := mulDiv(y, shares, supply, false)
	if err != nil {
		return PairAmounts{}, err
	}
	return PairAmounts{X: outX, Y: outY}, nil
}

// DepositAmountsFromShares returns the amounts required to mint shares
// against existing reserves, rounded up in the pool's favour.
func DepositAmountsFromShares(x, y, supply, shares uint64, precision uint8) (PairAmounts, error) {
	if shares == 0 {
		return PairAmounts{}, errs.ErrInvalidAmount
	}
	if supply == 0 {
		return PairAmounts{}, errs.ErrNoLiquidityInPool
	}
	if precision > maxPrecision {
		return PairAmounts{}, errs.New(errs.CodeInvalidCurveState, "precision out of range")
	}

	inX, err := mulDiv(x, shares, supply, true)
	if err != nil {
		return PairAmounts{}, err
	}
	inY, err := mulDiv(y, shares, supply, true)
	if err != nil {
		return PairAmounts{}, err
	}
	return PairAmounts{X: inX, Y: inY}, nil
}

func checkShareInputs(supply, shares uint64, precision uint8) error {
	if precision > maxPrecision {
		return errs.New(errs.CodeInvalidCurveState, "precision out of range")
	}
	if supply == 0 {
		return errs.ErrNoLiquidityInPool
	}
	if shares == 0 {
		return errs.ErrInvalidAmount
	}
	if shares > supply {
		return errs.WithMetadata(errs.CodeInvalidAmount, "shares exceed supply", map[string]string{
			"shares": fmt.Sprint(shares),
			"supply": fmt.Sprint(supply),
		})
	}
	return nil
}
