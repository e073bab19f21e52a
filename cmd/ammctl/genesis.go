package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cpamm/internal/config"
	"cpamm/internal/errs"
	"cpamm/internal/ledger"
	"cpamm/internal/model"
	"cpamm/internal/pool"
)

func runGenesis(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	g, err := config.LoadGenesis(args[0])
	if err != nil {
		return err
	}
	pools, err := applyGenesis(s.ctx, s.ledger, s.engine, g)
	if err != nil {
		return err
	}
	s.logger.Info("genesis applied",
		zap.Int("assets", len(g.Assets)),
		zap.Int("balances", len(g.Balances)),
		zap.Int("pools", len(pools)),
	)
	return printJSON(cmd, pools)
}

// applyGenesis registers assets and mints balances in one transaction, then
// creates each pool through the engine.
func applyGenesis(ctx context.Context, l ledger.Ledger, engine *pool.Engine, g *config.Genesis) ([]model.Pool, error) {
	err := l.RunInTx(ctx, func(ctx context.Context, store ledger.Store) error {
		for _, a := range g.Assets {
			id := common.HexToAddress(a.ID)
			_, err := store.GetAsset(ctx, id)
			if err == nil {
				continue
			}
			if !errors.Is(err, errs.ErrNotFound) {
				return err
			}
			asset := model.Asset{ID: id, MintAuthority: common.HexToAddress(a.MintAuthority)}
			if err := store.PutAsset(ctx, asset); err != nil {
				return fmt.Errorf("create asset %s: %w", a.ID, err)
			}
		}

		tr := ledger.NewTransfers(store)
		for _, b := range g.Balances {
			owner, assetID := common.HexToAddress(b.Owner), common.HexToAddress(b.Asset)
			acct, err := tr.OpenAccount(ctx, owner, assetID)
			if err != nil {
				return err
			}
			if b.Amount == 0 {
				continue
			}
			asset, err := store.GetAsset(ctx, assetID)
			if err != nil {
				return err
			}
			if err := tr.MintTo(ctx, acct.Address, ledger.User(asset.MintAuthority), b.Amount); err != nil {
				return fmt.Errorf("mint %s to %s: %w", b.Asset, b.Owner, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("apply genesis balances: %w", err)
	}

	pools := make([]model.Pool, 0, len(g.Pools))
	for _, p := range g.Pools {
		req := pool.InitializeRequest{
			Seed:   p.Seed,
			AssetX: common.HexToAddress(p.AssetX),
			AssetY: common.HexToAddress(p.AssetY),
			FeeBps: p.FeeBps,
		}
		if p.Admin != "" {
			req.Admin = common.HexToAddress(p.Admin)
		}
		created, err := engine.Initialize(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("initialize pool seed %d: %w", p.Seed, err)
		}
		if p.Deposit != nil {
			_, err := engine.Deposit(ctx, pool.DepositRequest{
				Pool:   created.Address,
				User:   common.HexToAddress(p.Deposit.User),
				Shares: p.Deposit.Shares,
				MaxX:   p.Deposit.MaxX,
				MaxY:   p.Deposit.MaxY,
			})
			if err != nil {
				return nil, fmt.Errorf("seed pool %s: %w", created.Address.Hex(), err)
			}
		}
		pools = append(pools, created)
	}
	return pools, nil
}
