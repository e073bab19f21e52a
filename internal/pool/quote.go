package pool

import (
	"context"

	"cpamm/internal/errs"
	"cpamm/internal/ledger"
)

// QuoteSwap prices a swap against current reserves without moving balances.
// The caller's balance is not checked.
func (e *Engine) QuoteSwap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	var result SwapResult
	err := e.ledger.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, req.Pool)
		if err != nil {
			return err
		}
		if err := validate(
			validSide(req.Side),
			check(!r.pool.Locked, errs.ErrPoolLocked),
			check(req.AmountIn != 0, errs.ErrInvalidAmount),
			check(r.hasLiquidity(), errs.ErrNoLiquidityInPool),
		); err != nil {
			return err
		}
		priced, reserves, err := e.priceSwap(r, req)
		if err != nil {
			return err
		}
		legs := legsFor(r, req.Side)
		result = SwapResult{
			Pool:      r.pool.Address,
			User:      req.User,
			Side:      req.Side,
			AssetIn:   legs.assetIn,
			AssetOut:  legs.assetOut,
			AmountIn:  priced.Deposit,
			AmountOut: priced.Withdraw,
			Fee:       priced.Fee,
			ReserveX:  reserves.X,
			ReserveY:  reserves.Y,
		}
		return nil
	})
	return result, err
}

// QuoteWithdraw prices a withdrawal against current reserves without
// burning shares.
func (e *Engine) QuoteWithdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error) {
	var result WithdrawResult
	err := e.ledger.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, req.Pool)
		if err != nil {
			return err
		}
		if err := validate(
			check(!r.pool.Locked, errs.ErrPoolLocked),
			check(req.Shares != 0, errs.ErrInvalidAmount),
			check(r.shares.Supply > 0 && r.hasLiquidity(), errs.ErrNoLiquidityInPool),
		); err != nil {
			return err
		}
		amounts, err := e.priceWithdraw(r, req)
		if err != nil {
			return err
		}
		result = WithdrawResult{
			Pool:         r.pool.Address,
			User:         req.User,
			SharesBurned: req.Shares,
			AmountX:      amounts.X,
			AmountY:      amounts.Y,
			ShareSupply:  r.shares.Supply - req.Shares,
		}
		return nil
	})
	return result, err
}
