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

// SwapRequest sells AmountIn of Side for the opposite asset.
type SwapRequest struct {
	Pool         common.Address
	User         common.Address
	Side         curve.Side
	AmountIn     uint64
	MinAmountOut uint64
}

// SwapResult describes an executed (or quoted) swap. Reserves are the pool
// reserves after the swap.
type SwapResult struct {
	Pool      common.Address
	User      common.Address
	Side      curve.Side
	AssetIn   common.Address
	AssetOut  common.Address
	AmountIn  uint64
	AmountOut uint64
	Fee       uint64
	ReserveX  uint64
	ReserveY  uint64
}

// EventData converts the result into its journal payload.
func (r SwapResult) EventData(minOut uint64) model.SwapEventData {
	return model.SwapEventData{
		User:      r.User.Hex(),
		Side:      r.Side.String(),
		AssetIn:   r.AssetIn.Hex(),
		AssetOut:  r.AssetOut.Hex(),
		AmountIn:  fmt.Sprint(r.AmountIn),
		AmountOut: fmt.Sprint(r.AmountOut),
		Fee:       fmt.Sprint(r.Fee),
		MinOut:    fmt.Sprint(minOut),
		ReserveX:  fmt.Sprint(r.ReserveX),
		ReserveY:  fmt.Sprint(r.ReserveY),
	}
}

type swapLegs struct {
	assetIn    common.Address
	assetOut   common.Address
	reserveIn  model.TokenAccount
	reserveOut model.TokenAccount
}

func legsFor(r resolved, side curve.Side) swapLegs {
	if side == curve.SideY {
		return swapLegs{assetIn: r.pool.AssetY, assetOut: r.pool.AssetX, reserveIn: r.reserveY, reserveOut: r.reserveX}
	}
	return swapLegs{assetIn: r.pool.AssetX, assetOut: r.pool.AssetY, reserveIn: r.reserveX, reserveOut: r.reserveY}
}

func validSide(side curve.Side) rule {
	return check(side == curve.SideX || side == curve.SideY, errs.WithMetadata(errs.CodeInvalidAsset, "unknown swap side", map[string]string{
		"side": side.String(),
	}))
}

// priceSwap runs the curve over a resolved snapshot.
func (e *Engine) priceSwap(r resolved, req SwapRequest) (curve.SwapResult, curve.PairAmounts, error) {
	c, err := curve.New(r.reserveX.Amount, r.reserveY.Amount, r.shares.Supply, r.pool.FeeBps, e.precision)
	if err != nil {
		return curve.SwapResult{}, curve.PairAmounts{}, err
	}
	res, err := c.Swap(req.Side, req.AmountIn, req.MinAmountOut)
	if err != nil {
		return curve.SwapResult{}, curve.PairAmounts{}, err
	}
	return res, c.Reserves(), nil
}

// Swap exchanges one asset of the pool for the other. The trader's deposit
// lands in the reserve before the pool pays out; if the payout fails the
// deposit is rolled back with it.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (SwapResult, error) {
	var result SwapResult
	err := e.execute(ctx, model.OpSwap, func(ctx context.Context, store ledger.Store) error {
		r, err := resolvePool(ctx, store, req.Pool)
		if err != nil {
			return err
		}
		legs := legsFor(r, req.Side)

		userIn, err := peekAccount(ctx, store, req.User, legs.assetIn)
		if err != nil {
			return err
		}

		if err := validate(
			validSide(req.Side),
			check(!r.pool.Locked, errs.ErrPoolLocked),
			check(req.AmountIn != 0, errs.ErrInvalidAmount),
			check(r.hasLiquidity(), errs.ErrNoLiquidityInPool),
			check(userIn.Amount >= req.AmountIn, insufficient(userIn, req.AmountIn)),
		); err != nil {
			return err
		}

		priced, reserves, err := e.priceSwap(r, req)
		if err != nil {
			return err
		}
		if err := validate(
			check(priced.Deposit != 0 && priced.Withdraw != 0, errs.ErrInvalidAmount),
		); err != nil {
			return err
		}

		tr := ledger.NewTransfers(store)
		userOut, err := tr.OpenAccount(ctx, req.User, legs.assetOut)
		if err != nil {
			return fmt.Errorf("open output account: %w", err)
		}
		if err := tr.Transfer(ctx, userIn.Address, legs.reserveIn.Address, ledger.User(req.User), priced.Deposit); err != nil {
			return fmt.Errorf("deposit into reserve: %w", err)
		}
		if err := validate(
			check(legs.reserveOut.Amount >= priced.Withdraw, insufficient(legs.reserveOut, priced.Withdraw)),
		); err != nil {
			return err
		}
		if err := tr.Transfer(ctx, legs.reserveOut.Address, userOut.Address, r.signer, priced.Withdraw); err != nil {
			return fmt.Errorf("pay out of reserve: %w", err)
		}

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
	if err != nil {
		e.logRejected(model.OpSwap, req.Pool, req.User, err)
		return SwapResult{}, err
	}

	e.metrics.observeSwap(result)
	e.logger.Info("swap executed",
		zap.String("pool", result.Pool.Hex()),
		zap.String("user", result.User.Hex()),
		zap.Stringer("side", result.Side),
		zap.Uint64("amount_in", result.AmountIn),
		zap.Uint64("amount_out", result.AmountOut),
		zap.Uint64("fee", result.Fee),
	)
	return result, nil
}
