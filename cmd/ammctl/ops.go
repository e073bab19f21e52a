package main

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"cpamm/internal/curve"
	"cpamm/internal/pool"
)

func addPoolUserFlags(cmd *cobra.Command) {
	cmd.Flags().String("pool", "", "pool address")
	cmd.Flags().String("user", "", "user address")
}

func poolAndUser(cmd *cobra.Command) (common.Address, common.Address, error) {
	p, err := addressFlag(cmd, "pool")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	u, err := addressFlag(cmd, "user")
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return p, u, nil
}

func newSwapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Sell one asset of a pool for the other",
		RunE:  runSwap,
	}
	addPoolUserFlags(cmd)
	addSwapFlags(cmd)
	return cmd
}

func addSwapFlags(cmd *cobra.Command) {
	cmd.Flags().String("side", "x", "asset being sold (x or y)")
	cmd.Flags().Uint64("amount-in", 0, "amount sold, in base units")
	cmd.Flags().Uint64("min-out", 0, "minimum amount received")
}

func swapRequest(cmd *cobra.Command) (pool.SwapRequest, error) {
	p, u, err := poolAndUser(cmd)
	if err != nil {
		return pool.SwapRequest{}, err
	}
	rawSide, _ := cmd.Flags().GetString("side")
	side, err := curve.ParseSide(rawSide)
	if err != nil {
		return pool.SwapRequest{}, err
	}
	amountIn, _ := cmd.Flags().GetUint64("amount-in")
	minOut, _ := cmd.Flags().GetUint64("min-out")
	return pool.SwapRequest{Pool: p, User: u, Side: side, AmountIn: amountIn, MinAmountOut: minOut}, nil
}

func runSwap(cmd *cobra.Command, _ []string) error {
	req, err := swapRequest(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Swap(s.ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, res.EventData(req.MinAmountOut))
}

func newWithdrawCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Burn pool shares for a proportional slice of both reserves",
		RunE:  runWithdraw,
	}
	addPoolUserFlags(cmd)
	addWithdrawFlags(cmd)
	return cmd
}

func addWithdrawFlags(cmd *cobra.Command) {
	cmd.Flags().Uint64("shares", 0, "shares to burn")
	cmd.Flags().Uint64("min-x", 0, "minimum amount of asset x received")
	cmd.Flags().Uint64("min-y", 0, "minimum amount of asset y received")
}

func withdrawRequest(cmd *cobra.Command) (pool.WithdrawRequest, error) {
	p, u, err := poolAndUser(cmd)
	if err != nil {
		return pool.WithdrawRequest{}, err
	}
	shares, _ := cmd.Flags().GetUint64("shares")
	minX, _ := cmd.Flags().GetUint64("min-x")
	minY, _ := cmd.Flags().GetUint64("min-y")
	return pool.WithdrawRequest{Pool: p, User: u, Shares: shares, MinX: minX, MinY: minY}, nil
}

func runWithdraw(cmd *cobra.Command, _ []string) error {
	req, err := withdrawRequest(cmd)
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Withdraw(s.ctx, req)
	if err != nil {
		return err
	}
	return printJSON(cmd, res.EventData(req.MinX, req.MinY))
}

func newDepositCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deposit",
		Short: "Add liquidity and mint pool shares",
		RunE:  runDeposit,
	}
	addPoolUserFlags(cmd)
	cmd.Flags().Uint64("shares", 0, "shares to mint")
	cmd.Flags().Uint64("max-x", 0, "maximum amount of asset x paid")
	cmd.Flags().Uint64("max-y", 0, "maximum amount of asset y paid")
	return cmd
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	p, u, err := poolAndUser(cmd)
	if err != nil {
		return err
	}
	shares, _ := cmd.Flags().GetUint64("shares")
	maxX, _ := cmd.Flags().GetUint64("max-x")
	maxY, _ := cmd.Flags().GetUint64("max-y")

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	res, err := s.engine.Deposit(s.ctx, pool.DepositRequest{Pool: p, User: u, Shares: shares, MaxX: maxX, MaxY: maxY})
	if err != nil {
		return err
	}
	return printJSON(cmd, res.EventData())
}

func newQuoteCmd() *cobra.Command {
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Price an operation without executing it",
	}

	swapCmd := &cobra.Command{
		Use:   "swap",
		Short: "Quote a swap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := swapRequest(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.QuoteSwap(s.ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, res.EventData(req.MinAmountOut))
		},
	}
	addPoolUserFlags(swapCmd)
	addSwapFlags(swapCmd)

	withdrawCmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Quote a withdrawal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := withdrawRequest(cmd)
			if err != nil {
				return err
			}
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.engine.QuoteWithdraw(s.ctx, req)
			if err != nil {
				return err
			}
			return printJSON(cmd, res.EventData(req.MinX, req.MinY))
		},
	}
	addPoolUserFlags(withdrawCmd)
	addWithdrawFlags(withdrawCmd)

	quoteCmd.AddCommand(swapCmd, withdrawCmd)
	return quoteCmd
}
