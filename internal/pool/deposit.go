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

// DepositRequest mints Shares in exchange for at most MaxX and MaxY of the
// pool's assets. Into an empty pool the maxima are deposited as given.
type DepositRequest struct {
	Pool   common.Address
	User   common.Address
	Shares uint64
	MaxX   uint64
	MaxY   uint64
}

// DepositResult describes an executed deposit. ShareSupply is the supply
// after minting.
type DepositResult struct {
	Pool         common.Address
	User         common.Address
	SharesMinted uint64
	AmountX      uint64
	AmountY      uint64
	ShareSupply  uint64
}

// EventData converts the result into its journal payload.
func (r DepositResult) EventData() model.DepositEventData {
	return model.DepositEventData{
		User:         r.User.Hex(),
		SharesMinted: fmt.Sprint(r.SharesMinted),
		AmountX:      fmt.Sprint(r.AmountX),
		AmountY:      fmt.Sprint(r.AmountY),
		ShareSupply:  fmt.Sprint(r.ShareSupply),
	}
}

func (e *Engine) priceDeposit(r resolved, req DepositRequest) (curve.PairAmounts, error) {
	if r.shares.Supply == 0 {
		return curve.PairAmounts{X: req.MaxX, Y: req.MaxY}, nil
	}
	return curve.DepositAmountsFromShares(r.reserveX.Amount, r.reserveY.Amount, r.shares.Supply, req.Shares, e.precision)
}

// Deposit adds liquidity and mints pool shares to the caller.
func (e *Engine) Deposit(ctx context.Context, req DepositRequest) (DepositResult, error) {
	var result DepositResult
	err := e.execute(ctx, model.OpDeposit, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, req.Pool)
		if err != nil {
			return err
		}

		userX, err := peekAccount(ctx, store, req.User, r.pool.AssetX)
		if err != nil {
			return err
		}
		userY, err := peekAccount(ctx, store, req.User, r.pool.AssetY)
		if err != nil {
			return err
		}

		if err := validate(
			check(!r.pool.Locked, errs.ErrPoolLocked),
			check(req.Shares != 0 && req.MaxX != 0 && req.MaxY != 0, errs.ErrInvalidAmount),
		); err != nil {
			return err
		}

		amounts, err := e.priceDeposit(r, req)
		if err != nil {
			return err
		}
		if err := validate(
			check(amounts.X <= req.MaxX && amounts.Y <= req.MaxY, errs.WithMetadata(errs.CodeSlippageExceeded, "deposit above maximum", map[string]string{
				"amount_x": fmt.Sprint(amounts.X),
				"amount_y": fmt.Sprint(amounts.Y),
				"max_x":    fmt.Sprint(req.MaxX),
				"max_y":    fmt.Sprint(req.MaxY),
			})),
			check(userX.Amount >= amounts.X, insufficient(userX, amounts.X)),
			check(userY.Amount >= amounts.Y, insufficient(userY, amounts.Y)),
		); err != nil {
			return err
		}

		tr := ledger.NewTransfers(store)
		userShares, err := tr.OpenAccount(ctx, req.User, r.pool.ShareAsset)
		if err != nil {
			return fmt.Errorf("open share account: %w", err)
		}
		if amounts.X > 0 {
			if err := tr.Transfer(ctx, userX.Address, r.reserveX.Address, ledger.User(req.User), amounts.X); err != nil {
				return fmt.Errorf("deposit x: %w", err)
			}
		}
		if amounts.Y > 0 {
			if err := tr.Transfer(ctx, userY.Address, r.reserveY.Address, ledger.User(req.User), amounts.Y); err != nil {
				return fmt.Errorf("deposit y: %w", err)
			}
		}
		if err := tr.MintTo(ctx, userShares.Address, r.signer, req.Shares); err != nil {
			return fmt.Errorf("mint shares: %w", err)
		}

		result = DepositResult{
			Pool:         r.pool.Address,
			User:         req.User,
			SharesMinted: req.Shares,
			AmountX:      amounts.X,
			AmountY:      amounts.Y,
			ShareSupply:  r.shares.Supply + req.Shares,
		}
		return nil
	})
	if err != nil {
		e.logRejected(model.OpDeposit, req.Pool, req.User, err)
		return DepositResult{}, err
	}

	e.metrics.observeDeposit(result)
	e.logger.Info("deposit executed",
		zap.String("pool", result.Pool.Hex()),
		zap.String("user", result.User.Hex()),
		zap.Uint64("shares", result.SharesMinted),
		zap.Uint64("amount_x", result.AmountX),
		zap.Uint64("amount_y", result.AmountY),
	)
	return result, nil
}
