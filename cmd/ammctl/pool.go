package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"cpamm/internal/pool"
	"cpamm/internal/replay"
)

func newPoolCmd() *cobra.Command {
	poolCmd := &cobra.Command{
		Use:   "pool",
		Short: "Create, inspect and lock pools",
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a pool for a pair of assets",
		RunE:  runPoolInit,
	}
	initCmd.Flags().Uint64("seed", 0, "pool seed")
	initCmd.Flags().String("asset-x", "", "first asset id")
	initCmd.Flags().String("asset-y", "", "second asset id")
	initCmd.Flags().Uint16("fee-bps", 30, "swap fee in basis points")
	initCmd.Flags().String("admin", "", "address allowed to lock the pool (optional)")

	showCmd := &cobra.Command{
		Use:   "show <pool>",
		Short: "Print pool configuration, reserves and share supply",
		Args:  cobra.ExactArgs(1),
		RunE:  runPoolShow,
	}

	lockCmd := &cobra.Command{
		Use:   "lock <pool>",
		Short: "Stop swaps, deposits and withdrawals on a pool",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runSetLocked(cmd, args, true) },
	}
	unlockCmd := &cobra.Command{
		Use:   "unlock <pool>",
		Short: "Resume a locked pool",
		Args:  cobra.ExactArgs(1),
		RunE:  func(cmd *cobra.Command, args []string) error { return runSetLocked(cmd, args, false) },
	}
	for _, c := range []*cobra.Command{lockCmd, unlockCmd} {
		c.Flags().String("admin", "", "pool admin address")
	}

	poolCmd.AddCommand(initCmd, showCmd, lockCmd, unlockCmd)
	return poolCmd
}

func runPoolInit(cmd *cobra.Command, _ []string) error {
	seed, _ := cmd.Flags().GetUint64("seed")
	fee, _ := cmd.Flags().GetUint16("fee-bps")
	assetX, err := addressFlag(cmd, "asset-x")
	if err != nil {
		return err
	}
	assetY, err := addressFlag(cmd, "asset-y")
	if err != nil {
		return err
	}
	var admin common.Address
	if raw, _ := cmd.Flags().GetString("admin"); raw != "" {
		if admin, err = replay.ParseAddress("admin", raw); err != nil {
			return err
		}
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.engine.Initialize(s.ctx, pool.InitializeRequest{
		Seed:   seed,
		AssetX: assetX,
		AssetY: assetY,
		FeeBps: fee,
		Admin:  admin,
	})
	if err != nil {
		return err
	}
	return printJSON(cmd, created)
}

func runPoolShow(cmd *cobra.Command, args []string) error {
	address, err := replay.ParseAddress("pool", args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	snap, err := s.engine.Snapshot(s.ctx, address)
	if err != nil {
		return err
	}
	return printJSON(cmd, snap)
}

func runSetLocked(cmd *cobra.Command, args []string, locked bool) error {
	address, err := replay.ParseAddress("pool", args[0])
	if err != nil {
		return err
	}
	admin, err := addressFlag(cmd, "admin")
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if locked {
		err = s.engine.Lock(s.ctx, address, admin)
	} else {
		err = s.engine.Unlock(s.ctx, address, admin)
	}
	if err != nil {
		return err
	}
	snap, err := s.engine.Snapshot(s.ctx, address)
	if err != nil {
		return err
	}
	return printJSON(cmd, snap.Pool)
}

func addressFlag(cmd *cobra.Command, name string) (common.Address, error) {
	raw, _ := cmd.Flags().GetString(name)
	return replay.ParseAddress(name, raw)
}
