package main

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cpamm/internal/config"
	"cpamm/internal/errs"
	"cpamm/internal/ledger/memory"
	"cpamm/internal/pool"
)

const (
	assetA = "0x00000000000000000000000000000000000000a1"
	assetB = "0x00000000000000000000000000000000000000a2"
	minter = "0x0000000000000000000000000000000000000f01"
	lp     = "0x0000000000000000000000000000000000001001"
)

func testGenesis() *config.Genesis {
	return &config.Genesis{
		Assets: []config.GenesisAsset{
			{ID: assetA, MintAuthority: minter},
			{ID: assetB, MintAuthority: minter},
		},
		Balances: []config.GenesisBalance{
			{Owner: lp, Asset: assetA, Amount: 5000},
			{Owner: lp, Asset: assetB, Amount: 5000},
		},
		Pools: []config.GenesisPool{{
			Seed:    7,
			AssetX:  assetA,
			AssetY:  assetB,
			FeeBps:  30,
			Deposit: &config.GenesisDeposit{User: lp, Shares: 1000, MaxX: 1000, MaxY: 2000},
		}},
	}
}

func TestApplyGenesis(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	engine := pool.NewEngine(l, nil, nil)

	pools, err := applyGenesis(ctx, l, engine, testGenesis())
	require.NoError(t, err)
	require.Len(t, pools, 1)
	assert.False(t, pools[0].HasAdmin())

	snap, err := engine.Snapshot(ctx, pools[0].Address)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), snap.ReserveX)
	assert.Equal(t, uint64(2000), snap.ReserveY)
	assert.Equal(t, uint64(1000), snap.ShareSupply)

	res, err := engine.Swap(ctx, pool.SwapRequest{
		Pool:     pools[0].Address,
		User:     common.HexToAddress(lp),
		AmountIn: 100,
	})
	require.NoError(t, err)
	assert.Positive(t, res.AmountOut)
}

func TestApplyGenesisTwiceRejectsPool(t *testing.T) {
	ctx := context.Background()
	l := memory.New()
	engine := pool.NewEngine(l, nil, nil)

	_, err := applyGenesis(ctx, l, engine, testGenesis())
	require.NoError(t, err)

	_, err = applyGenesis(ctx, l, engine, testGenesis())
	require.ErrorIs(t, err, errs.ErrAlreadyInitialized)
}
