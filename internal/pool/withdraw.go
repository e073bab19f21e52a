package pool

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"cpamm/internal/curve"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
)

// WithdrawRequest redeems Shares for a proportional slice of both reserves.
type WithdrawRequest struct {
	Pool   common.Address
	User   common.Address
	Shares uint64
	MinX   uint64
	MinY   uint64
}

// WithdrawResult describes an executed (or quoted) withdrawal. ShareSupply is
// the supply after the burn.
type WithdrawResult struct {
	Pool         common.Address
	User         common.Address
	SharesBurned uint64
	AmountX      uint64
	AmountY      uint64
	ShareSupply  uint64
}

// EventData converts the result into its journal payload.
func (r WithdrawResult) EventData(minX, minY uint64) model.WithdrawEventData {
	return model.WithdrawEventData{
		User:         r.User.Hex(),
		SharesBurned: fmt.Sprint(r.SharesBurned),
		AmountX:      fmt.Sprint(r.AmountX),
		AmountY:      fmt.Sprint(r.AmountY),
		MinX:         fmt.Sprint(minX),
		MinY:         fmt.Sprint(minY),
		ShareSupply:  fmt.Sprint(r.ShareSupply),
	}
}

func (e *Engine) priceWithdraw(r resolved, req WithdrawRequest) (curve.PairAmounts, error) {
	amounts, err := curve.WithdrawAmountsFromShares(r.reserveX.Amount, r.reserveY.Amount, r.shares.Supply, req.Shares, e.precision)
	if err != nil {
		return curve.PairAmounts{}, err
	}
	if err := validate(
		check(amounts.X >= req.MinX && amounts.Y >= req.MinY, errs.WithMetadata(errs.CodeSlippageExceeded, "withdrawal below minimum", map[string]string{
			"amount_x": fmt.Sprint(amounts.X),
			"amount_y": fmt.Sprint(amounts.Y),
			"min_x":    fmt.Sprint(req.MinX),
			"min_y":    fmt.Sprint(req.MinY),
		})),
		check(r.reserveX.Amount >= amounts.X && r.reserveY.Amount >= amounts.Y, errs.ErrNoLiquidityInPool),
	); err != nil {
		return curve.PairAmounts{}, err
	}
	return amounts, nil
}

// Withdraw burns the caller's shares and pays out both reserves pro rata.
// A side whose amount truncates to zero is skipped; the shares still burn.
func (e *Engine) Withdraw(ctx context.Context, req WithdrawRequest) (WithdrawResult, error) {
	var result WithdrawResult
	err := e.execute(ctx, model.OpWithdraw, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, req.Pool)
		if err != nil {
			return err
		}

		userShares, err := peekAccount(ctx, store, req.User, r.pool.ShareAsset)
		if err != nil {
			return err
		}

		if err := validate(
			check(!r.pool.Locked, errs.ErrPoolLocked),
			check(req.Shares != 0, errs.ErrInvalidAmount),
			check(userShares.Amount >= req.Shares, insufficient(userShares, req.Shares)),
			check(r.shares.Supply > 0 && r.hasLiquidity(), errs.ErrNoLiquidityInPool),
		); err != nil {
			return err
		}

		amounts, err := e.priceWithdraw(r, req)
		if err != nil {
			return err
		}

		tr := ledger.NewTransfers(store)
		userX, err := tr.OpenAccount(ctx, req.User, r.pool.AssetX)
		if err != nil {
			return fmt.Errorf("open x account: %w", err)
		}
		userY, err := tr.OpenAccount(ctx, req.User, r.pool.AssetY)
		if err != nil {
			return fmt.Errorf("open y account: %w", err)
		}

		if amounts.X > 0 {
			if err := tr.Transfer(ctx, r.reserveX.Address, userX.Address, r.signer, amounts.X); err != nil {
				return fmt.Errorf("pay out x: %w", err)
			}
		}
		if amounts.Y > 0 {
			if err := tr.Transfer(ctx, r.reserveY.Address, userY.Address, r.signer, amounts.Y); err != nil {
				return fmt.Errorf("pay out y: %w", err)
			}
		}
		if err := tr.Burn(ctx, userShares.Address, ledger.User(req.User), req.Shares); err != nil {
			return fmt.Errorf("burn shares: %w", err)
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
	if err != nil {
		e.logRejected(model.OpWithdraw, req.Pool, req.User, err)
		return WithdrawResult{}, err
	}

	e.metrics.observeWithdraw(result)
	e.logger.Info("withdraw executed",
		zap.String("pool", result.Pool.Hex()),
		zap.String("user", result.User.Hex()),
		zap.Uint64("shares", result.SharesBurned),
		zap.Uint64("amount_x", result.AmountX),
		zap.Uint64("amount_y", result.AmountY),
	)
	return result, nil
}
