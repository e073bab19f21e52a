// Package curve implements constant-product (x * y = k) pricing with a
// basis-point fee. Everything here is pure: callers pass reserve snapshots
// and get amounts back, no balances are touched.
package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	"cpamm/internal/errs"
)

const (
	// FeeDenominator is the basis-point scale of fee rates.
	FeeDenominator = 10_000

	// Precision is the fixed decimal precision used by pool operations. It
	// does not follow the decimals of the traded assets.
	Precision uint8 = 6

	maxPrecision uint8 = 18
)

// Side selects which asset of the pair is being sold or priced.
type Side uint8

const (
	SideX Side = iota
	SideY
)

func (s Side) String() string {
	switch s {
	case SideX:
		return "x"
	case SideY:
		return "y"
	default:
		return fmt.Sprintf("side(%d)", uint8(s))
	}
}

// Opposite returns the other side of the pair.
func (s Side) Opposite() Side {
	if s == SideX {
		return SideY
	}
	return SideX
}

// ParseSide parses "x" or "y".
func ParseSide(input string) (Side, error) {
	switch input {
	case "x", "X":
		return SideX, nil
	case "y", "Y":
		return SideY, nil
	default:
		return 0, fmt.Errorf("invalid side: %q", input)
	}
}

// SwapResult is the outcome of a swap against the curve.
// Deposit is the full pre-fee amount taken from the trader; Fee is the part
// of it that does not count toward pricing and stays in the reserve.
type SwapResult struct {
	Deposit  uint64
	Withdraw uint64
	Fee      uint64
}

// PairAmounts holds one amount per asset.
type PairAmounts struct {
	X uint64
	Y uint64
}

// ConstantProduct is a curve context built from one consistent snapshot of
// reserves and share supply.
type ConstantProduct struct {
	x         uint64
	y         uint64
	supply    uint64
	feeBps    uint16
	precision uint8
}

// New validates the snapshot and returns a curve context.
func New(x, y, supply uint64, feeBps uint16, precision uint8) (*ConstantProduct, error) {
	if feeBps >= FeeDenominator {
		return nil, errs.WithMetadata(errs.CodeInvalidCurveState, "fee must be below denominator", map[string]string{
			"fee_bps": fmt.Sprint(feeBps),
		})
	}
	if precision > maxPrecision {
		return nil, errs.WithMetadata(errs.CodeInvalidCurveState, "precision out of range", map[string]string{
			"precision": fmt.Sprint(precision),
		})
	}
	if supply > 0 && (x == 0 || y == 0) {
		return nil, errs.WithMetadata(errs.CodeInvalidCurveState, "empty reserve with outstanding shares", map[string]string{
			"x":      fmt.Sprint(x),
			"y":      fmt.Sprint(y),
			"supply": fmt.Sprint(supply),
		})
	}
	return &ConstantProduct{x: x, y: y, supply: supply, feeBps: feeBps, precision: precision}, nil
}

// Reserves returns the current reserve pair of the context.
func (c *ConstantProduct) Reserves() PairAmounts {
	return PairAmounts{X: c.x, Y: c.y}
}

// Supply returns the share supply of the context.
func (c *ConstantProduct) Supply() uint64 {
	return c.supply
}

// K returns the invariant x * y as a 256-bit value.
func (c *ConstantProduct) K() *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(c.x), uint256.NewInt(c.y))
}

// Swap sells amountIn of side against the curve. On success the context's
// reserves advance by the result so successive swaps compose.
func (c *ConstantProduct) Swap(side Side, amountIn, minAmountOut uint64) (SwapResult, error) {
	if amountIn == 0 {
		return SwapResult{}, errs.ErrInvalidAmount
	}

	reserveIn, reserveOut := c.x, c.y
	if side == SideY {
		reserveIn, reserveOut = c.y, c.x
	}
	if reserveIn == 0 || reserveOut == 0 {
		return SwapResult{}, errs.ErrNoLiquidityInPool
	}

	afterFee, err := mulDiv(amountIn, uint64(FeeDenominator-c.feeBps), FeeDenominator, false)
	if err != nil {
		return SwapResult{}, err
	}

	newIn, overflow := new(uint256.Int).AddOverflow(uint256.NewInt(reserveIn), uint256.NewInt(amountIn))
	if overflow || !newIn.IsUint64() {
		return SwapResult{}, errs.WithMetadata(errs.CodeOverflow, "input reserve exceeds u64", map[string]string{
			"reserve_in": fmt.Sprint(reserveIn),
			"amount_in":  fmt.Sprint(amountIn),
		})
	}

	// The output reserve is rounded up so the output itself rounds down.
	k := new(uint256.Int).Mul(uint256.NewInt(reserveIn), uint256.NewInt(reserveOut))
	denom := new(uint256.Int).Add(uint256.NewInt(reserveIn), uint256.NewInt(afterFee))
	newOut, err := ceilDiv(k, denom)
	if err != nil {
		return SwapResult{}, err
	}
	withdraw := reserveOut - newOut

	if withdraw == 0 {
		return SwapResult{}, errs.WithMetadata(errs.CodeInvalidAmount, "swap output is zero", map[string]string{
			"amount_in": fmt.Sprint(amountIn),
		})
	}
	if withdraw < minAmountOut {
		return SwapResult{}, errs.WithMetadata(errs.CodeSlippageExceeded, "swap output below minimum", map[string]string{
			"amount_out":     fmt.Sprint(withdraw),
			"min_amount_out": fmt.Sprint(minAmountOut),
		})
	}

	if side == SideX {
		c.x, c.y = newIn.Uint64(), newOut
	} else {
		c.y, c.x = newIn.Uint64(), newOut
	}

	return SwapResult{
		Deposit:  amountIn,
		Withdraw: withdraw,
		Fee:      amountIn - afterFee,
	}, nil
}

// SpotPrice returns the marginal price of one unit of side in units of the
// other asset, scaled by 10^precision.
func (c *ConstantProduct) SpotPrice(side Side) (uint64, error) {
	self, other := c.x, c.y
	if side == SideY {
		self, other = c.y, c.x
	}
	if self == 0 || other == 0 {
		return 0, errs.ErrNoLiquidityInPool
	}
	return mulDiv(other, pow10(c.precision), self, false)
}

func pow10(p uint8) uint64 {
	out := uint64(1)
	for i := uint8(0); i < p; i++ {
		out *= 10
	}
	return out
}

// mulDiv computes a*b/d in 256-bit space and narrows the result back to u64.
func mulDiv(a, b, d uint64, roundUp bool) (uint64, error) {
	if d == 0 {
		return 0, errs.New(errs.CodeInvalidCurveState, "division by zero")
	}
	prod, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow {
		return 0, errs.ErrOverflow
	}
	if roundUp {
		return ceilDiv(prod, uint256.NewInt(d))
	}
	q := new(uint256.Int).Div(prod, uint256.NewInt(d))
	if !q.IsUint64() {
		return 0, errs.ErrOverflow
	}
	return q.Uint64(), nil
}

func ceilDiv(n, d *uint256.Int) (uint64, error) {
	if d.IsZero() {
		return 0, errs.New(errs.CodeInvalidCurveState, "division by zero")
	}
	q, r := new(uint256.Int).DivMod(n, d, new(uint256.Int))
	if !r.IsZero() {
		var overflow bool
		q, overflow = q.AddOverflow(q, uint256.NewInt(1))
		if overflow {
			return 0, errs.ErrOverflow
		}
	}
	if !q.IsUint64() {
		return 0, errs.ErrOverflow
	}
	return q.Uint64(), nil
}
